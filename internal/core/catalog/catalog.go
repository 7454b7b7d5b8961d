// Package catalog exposes the inventory tables the storefront sells from.
// The bot only reads the catalog, except for stock adjustments at delivery.
package catalog

import (
	"context"
	"time"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"not null" json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "item_categories"
}

type Warehouse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}

type ItemPrice struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ItemID       uint      `gorm:"index;not null" json:"item_id"`
	SellingPrice float64   `gorm:"not null" json:"selling_price"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ItemPrice) TableName() string {
	return "item_prices"
}

type ItemStock struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ItemID      uint       `gorm:"index;not null" json:"item_id"`
	WarehouseID uint       `gorm:"index;not null" json:"warehouse_id"`
	Quantity    int        `gorm:"not null;default:0" json:"quantity"`
	Warehouse   *Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ItemStock) TableName() string {
	return "item_stocks"
}

type Item struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	Code        string      `gorm:"index" json:"code"`
	Description string      `json:"description"`
	Condition   string      `json:"condition"` // new, used
	ImageURL    string      `json:"image_url"`
	CategoryID  *uint       `gorm:"index" json:"category_id"`
	Category    *Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Prices      []ItemPrice `gorm:"foreignKey:ItemID" json:"prices,omitempty"`
	Stocks      []ItemStock `gorm:"foreignKey:ItemID" json:"stocks,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// ActivePrice returns the item's active price record, or nil when the item
// is not currently sellable.
func (i *Item) ActivePrice() *ItemPrice {
	for idx := range i.Prices {
		if i.Prices[idx].IsActive {
			return &i.Prices[idx]
		}
	}
	return nil
}

// StockIn returns the stock record for the given warehouse, or nil.
func (i *Item) StockIn(warehouseID uint) *ItemStock {
	for idx := range i.Stocks {
		if i.Stocks[idx].WarehouseID == warehouseID {
			return &i.Stocks[idx]
		}
	}
	return nil
}

// FirstStock returns the item's first stock record, or nil when the item is
// stocked nowhere. Browsing quotes availability from here.
func (i *Item) FirstStock() *ItemStock {
	if len(i.Stocks) == 0 {
		return nil
	}
	return &i.Stocks[0]
}

// Available reports the browsable quantity, from the first stock record.
func (i *Item) Available() int {
	if s := i.FirstStock(); s != nil {
		return s.Quantity
	}
	return 0
}

// Filter narrows FindItems. Zero values mean no constraint.
type Filter struct {
	CategoryID *uint
	NameQuery  string // case-insensitive substring match on name
	Code       string // case-insensitive exact match on code
	Limit      int
}

// Provider is the catalog read (and stock write) surface used by the bot.
type Provider interface {
	GetItem(ctx context.Context, id uint) (*Item, error)
	FindItems(ctx context.Context, f Filter) ([]Item, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetWarehouse(ctx context.Context, id uint) (*Warehouse, error)

	// SetStockQuantity overwrites a stock record's quantity. Callers are
	// expected to run it inside a transaction via database.WithTx.
	SetStockQuantity(ctx context.Context, stockID uint, quantity int) error
}
