package models

import (
	"time"

	"brpay/src/types"

	"github.com/google/uuid"
)

// TransactionEvent rows are append-only: created on every state transition and
// webhook application, never updated or deleted.
type TransactionEvent struct {
	ID uint `gorm:"primarykey" json:"id"`

	TransactionID uuid.UUID       `gorm:"type:uuid;index" json:"transaction_id"`
	Type          types.EventType `json:"type"`
	Payload       types.JSONB     `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime:nano" json:"created_at"`

	Transaction Transaction `gorm:"foreignKey:transaction_id" json:"-"`
}
