package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCartLine_NewItem(t *testing.T) {
	var ctx SessionContext

	ctx.AddCartLine(CartLine{
		ItemID:      1,
		ItemName:    "Laptop",
		Quantity:    2,
		UnitPrice:   500000,
		WarehouseID: 1,
	})

	require.Len(t, ctx.Cart, 1)
	assert.Equal(t, 2, ctx.Cart[0].Quantity)
	assert.Equal(t, float64(1000000), ctx.Cart[0].TotalPrice)
}

func TestAddCartLine_MergesSameItem(t *testing.T) {
	var ctx SessionContext

	ctx.AddCartLine(CartLine{ItemID: 1, ItemName: "Laptop", Quantity: 2, UnitPrice: 500000})
	// Same item added later at a different price keeps the original price.
	ctx.AddCartLine(CartLine{ItemID: 1, ItemName: "Laptop", Quantity: 3, UnitPrice: 600000})

	require.Len(t, ctx.Cart, 1)
	assert.Equal(t, 5, ctx.Cart[0].Quantity)
	assert.Equal(t, float64(500000), ctx.Cart[0].UnitPrice)
	assert.Equal(t, float64(2500000), ctx.Cart[0].TotalPrice)
}

func TestAddCartLine_DifferentItemsStaySeparate(t *testing.T) {
	var ctx SessionContext

	ctx.AddCartLine(CartLine{ItemID: 1, ItemName: "Laptop", Quantity: 1, UnitPrice: 500000})
	ctx.AddCartLine(CartLine{ItemID: 2, ItemName: "Mouse", Quantity: 2, UnitPrice: 15000})

	require.Len(t, ctx.Cart, 2)
	assert.Equal(t, float64(530000), ctx.CartTotal())
}

func TestCartEmptyAndClear(t *testing.T) {
	var ctx SessionContext
	assert.True(t, ctx.CartEmpty())

	ctx.AddCartLine(CartLine{ItemID: 1, Quantity: 1, UnitPrice: 100})
	assert.False(t, ctx.CartEmpty())

	ctx.ClearCart()
	assert.True(t, ctx.CartEmpty())
	assert.Equal(t, float64(0), ctx.CartTotal())
}

func TestSessionContext_ScanValueRoundTrip(t *testing.T) {
	itemID := uint(7)
	original := SessionContext{
		Cart: []CartLine{
			{ItemID: 7, ItemName: "Laptop", Quantity: 1, UnitPrice: 500000, TotalPrice: 500000, WarehouseID: 2},
		},
		SelectedItemID:  &itemID,
		SearchQuery:     "lap",
		DeliveryAddress: "Dar es Salaam",
	}

	value, err := original.Value()
	require.NoError(t, err)

	var restored SessionContext
	require.NoError(t, restored.Scan(value))

	assert.Equal(t, original.Cart, restored.Cart)
	assert.Equal(t, original.SelectedItemID, restored.SelectedItemID)
	assert.Equal(t, original.SearchQuery, restored.SearchQuery)
	assert.Equal(t, original.DeliveryAddress, restored.DeliveryAddress)
}

func TestSessionContext_ScanNil(t *testing.T) {
	ctx := SessionContext{Cart: []CartLine{{ItemID: 1}}}
	require.NoError(t, ctx.Scan(nil))
	assert.True(t, ctx.CartEmpty())
}
