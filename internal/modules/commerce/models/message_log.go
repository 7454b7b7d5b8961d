package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message directions
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// MessageLog is an audit trail of webhook traffic. Writes are best effort
// and never block message handling.
type MessageLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PhoneNumber string         `gorm:"index;not null" json:"phone_number"`
	MessageID   string         `gorm:"index" json:"message_id"`
	Direction   string         `gorm:"type:varchar(16);not null" json:"direction"`
	Body        string         `json:"body"`
	Payload     datatypes.JSON `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (MessageLog) TableName() string {
	return "message_logs"
}

func (m *MessageLog) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
