package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/apperr"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
)

type gormProvider struct {
	db *gorm.DB
}

// NewGormProvider returns a Provider backed by the shared GORM connection.
func NewGormProvider(db *gorm.DB) Provider {
	return &gormProvider{db: db}
}

func (p *gormProvider) scope(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, p.db)
}

func (p *gormProvider) GetItem(ctx context.Context, id uint) (*Item, error) {
	var item Item
	err := p.scope(ctx).
		Preload("Category").
		Preload("Prices").
		Preload("Stocks").
		Preload("Stocks.Warehouse").
		First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("item", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (p *gormProvider) FindItems(ctx context.Context, f Filter) ([]Item, error) {
	q := p.scope(ctx).
		Preload("Category").
		Preload("Prices").
		Preload("Stocks").
		Preload("Stocks.Warehouse")

	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.NameQuery != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.NameQuery)+"%")
	}
	if f.Code != "" {
		q = q.Where("LOWER(code) = ?", strings.ToLower(f.Code))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var items []Item
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (p *gormProvider) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := p.scope(ctx).Order("code ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (p *gormProvider) GetWarehouse(ctx context.Context, id uint) (*Warehouse, error) {
	var wh Warehouse
	err := p.scope(ctx).First(&wh, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("warehouse", id)
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

func (p *gormProvider) SetStockQuantity(ctx context.Context, stockID uint, quantity int) error {
	res := p.scope(ctx).Model(&ItemStock{}).
		Where("id = ?", stockID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("item stock", stockID)
	}
	return nil
}
