// Package ledger records completed sales for reporting. Writes here are best
// effort: a failed sale record never blocks a delivery.
package ledger

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
)

type Sale struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CustomerID  uint      `gorm:"index;not null" json:"customer_id"`
	ItemID      uint      `gorm:"index;not null" json:"item_id"`
	WarehouseID uint      `gorm:"index;not null" json:"warehouse_id"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   float64   `gorm:"not null" json:"unit_price"`
	TotalPrice  float64   `gorm:"not null" json:"total_price"`
	Reference   string    `json:"reference"` // order number the sale came from
	SoldAt      time.Time `json:"sold_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Sale) TableName() string {
	return "sales"
}

type Ledger interface {
	RecordSale(ctx context.Context, sale *Sale) error
}

type gormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) Ledger {
	return &gormLedger{db: db}
}

func (l *gormLedger) RecordSale(ctx context.Context, sale *Sale) error {
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now()
	}
	return database.FromContext(ctx, l.db).Create(sale).Error
}
