package models

import (
	"time"
)

// OrderStatus values. Stock is deducted only on the transition to delivered;
// delivered and cancelled are terminal.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderLine snapshots one ordered item. Name and unit price are copied at
// order time so later catalog edits do not rewrite history.
type OrderLine struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	OrderID    uint    `gorm:"index;not null" json:"order_id"`
	ItemID     uint    `gorm:"not null" json:"item_id"`
	ItemName   string  `gorm:"not null" json:"item_name"`
	Quantity   int     `gorm:"not null" json:"quantity"`
	UnitPrice  float64 `gorm:"not null" json:"unit_price"`
	TotalPrice float64 `gorm:"not null" json:"total_price"`
}

func (OrderLine) TableName() string {
	return "whatsapp_order_lines"
}

// Order is a customer order placed through the bot or the admin API.
type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	OrderNumber     string      `gorm:"uniqueIndex;not null" json:"order_number"`
	CustomerPhone   string      `gorm:"index;not null" json:"customer_phone"`
	CustomerID      *uint       `gorm:"index" json:"customer_id"`
	WarehouseID     uint        `gorm:"not null" json:"warehouse_id"`
	Lines           []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	TotalAmount     float64     `gorm:"not null" json:"total_amount"`
	Status          OrderStatus `gorm:"type:varchar(16);default:'pending'" json:"status"`
	DeliveryAddress string      `json:"delivery_address"`
	Notes           string      `json:"notes"`

	// StatusNotified guards against re-sending the notification for the
	// current status. It resets whenever the status actually changes.
	StatusNotified bool `gorm:"default:false" json:"status_notified"`

	Rating   *int       `json:"rating"`
	Feedback string     `json:"feedback"`
	RatedAt  *time.Time `json:"rated_at"`

	ConfirmedAt *time.Time `json:"confirmed_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Order) TableName() string {
	return "whatsapp_orders"
}

// LinesTotal sums the line totals. It must always equal TotalAmount.
func (o *Order) LinesTotal() float64 {
	var total float64
	for _, line := range o.Lines {
		total += line.TotalPrice
	}
	return total
}

// Rated reports whether the order already carries a rating.
func (o *Order) Rated() bool {
	return o.Rating != nil
}
