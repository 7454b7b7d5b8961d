package repositories

import (
	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
)

// MessageLogRepo stores the webhook audit trail.
type MessageLogRepo interface {
	Create(entry *models.MessageLog) error
	FindByPhone(phone string, limit int) ([]models.MessageLog, error)
}

type messageLogRepo struct {
	db *gorm.DB
}

func NewMessageLogRepo(db *gorm.DB) MessageLogRepo {
	return &messageLogRepo{db: db}
}

func (r *messageLogRepo) Create(entry *models.MessageLog) error {
	return r.db.Create(entry).Error
}

func (r *messageLogRepo) FindByPhone(phone string, limit int) ([]models.MessageLog, error) {
	q := r.db.Where("phone_number = ?", phone).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var logs []models.MessageLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
