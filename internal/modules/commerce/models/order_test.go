package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, OrderStatus("shipped").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusReady.Terminal())
}

func TestOrder_LinesTotal(t *testing.T) {
	order := Order{
		Lines: []OrderLine{
			{Quantity: 2, UnitPrice: 1000, TotalPrice: 2000},
			{Quantity: 1, UnitPrice: 500, TotalPrice: 500},
		},
		TotalAmount: 2500,
	}
	assert.Equal(t, order.TotalAmount, order.LinesTotal())
}

func TestOrder_Rated(t *testing.T) {
	var order Order
	assert.False(t, order.Rated())

	rating := 4
	order.Rating = &rating
	assert.True(t, order.Rated())
}
