// Package directory resolves WhatsApp phone numbers to customer records.
package directory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
)

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Phone     string    `gorm:"uniqueIndex;not null" json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// Directory looks customers up by phone and lazily registers unknown ones.
type Directory interface {
	// FindByPhone returns nil, nil when no customer matches.
	FindByPhone(ctx context.Context, phone string) (*Customer, error)

	// Ensure returns the customer for phone, creating a record named after
	// the WhatsApp profile when none exists yet.
	Ensure(ctx context.Context, phone, profileName string) (*Customer, error)
}

type gormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) Directory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) scope(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, d.db)
}

func (d *gormDirectory) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	var c Customer
	err := d.scope(ctx).Where("phone = ?", phone).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *gormDirectory) Ensure(ctx context.Context, phone, profileName string) (*Customer, error) {
	existing, err := d.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := profileName
	if name == "" {
		name = "WhatsApp " + phone
	}
	c := &Customer{
		Name:  name,
		Phone: phone,
	}
	if err := d.scope(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}
