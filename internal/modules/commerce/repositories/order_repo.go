package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/apperr"
	"github.com/dukatrade/whatsapp-commerce-be/internal/shared/database"
)

// OrderRepo persists orders. Every method honors a transaction carried in
// ctx via database.WithTx.
type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, number string) (*models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	FindByPhone(ctx context.Context, phone string, limit int) ([]models.Order, error)
	FindDeliveredUnrated(ctx context.Context, phone string) ([]models.Order, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	Save(ctx context.Context, order *models.Order) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (r *orderRepo) scope(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db)
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	return r.scope(ctx).Create(order).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.scope(ctx).Preload("Lines").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) GetByOrderNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.scope(ctx).Preload("Lines").Where("order_number = ?", number).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order", number)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.scope(ctx).Preload("Lines").Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepo) FindByPhone(ctx context.Context, phone string, limit int) ([]models.Order, error) {
	q := r.scope(ctx).Preload("Lines").
		Where("customer_phone = ?", phone).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepo) FindDeliveredUnrated(ctx context.Context, phone string) ([]models.Order, error) {
	var orders []models.Order
	err := r.scope(ctx).Preload("Lines").
		Where("customer_phone = ?", phone).
		Where("status = ?", models.OrderStatusDelivered).
		Where("rating IS NULL").
		Order("delivered_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.scope(ctx).Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *orderRepo) Save(ctx context.Context, order *models.Order) error {
	return r.scope(ctx).Save(order).Error
}
