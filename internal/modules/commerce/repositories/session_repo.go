package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dukatrade/whatsapp-commerce-be/internal/modules/commerce/models"
)

// SessionRepo persists conversation sessions.
type SessionRepo interface {
	GetByPhone(phone string) (*models.Session, error)
	Create(session *models.Session) error
	Save(session *models.Session) error

	// FindStale returns sessions untouched since cutoff whose state is not
	// in excluded and whose last reminder (if any) predates cutoff too.
	FindStale(cutoff time.Time, excluded []models.SessionState) ([]models.Session, error)
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepo {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) GetByPhone(phone string) (*models.Session, error) {
	var session models.Session
	err := r.db.Where("phone_number = ?", phone).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Create(session *models.Session) error {
	return r.db.Create(session).Error
}

func (r *sessionRepo) Save(session *models.Session) error {
	return r.db.Save(session).Error
}

func (r *sessionRepo) FindStale(cutoff time.Time, excluded []models.SessionState) ([]models.Session, error) {
	q := r.db.Where("updated_at < ?", cutoff).
		Where("last_cart_reminder_at IS NULL OR last_cart_reminder_at < ?", cutoff)
	if len(excluded) > 0 {
		q = q.Where("state NOT IN ?", excluded)
	}

	var sessions []models.Session
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
