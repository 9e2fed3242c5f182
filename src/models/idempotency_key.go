package models

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey binds a client-supplied key to the transaction it created.
// The unique index is what closes the check-then-insert race: concurrent
// creations with the same key both attempt the insert and exactly one wins.
type IdempotencyKey struct {
	ID uint `gorm:"primarykey" json:"id"`

	Key           string    `gorm:"uniqueIndex;not null" json:"key"`
	TransactionID uuid.UUID `gorm:"type:uuid;index" json:"transaction_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime:nano" json:"created_at"`

	Transaction Transaction `gorm:"foreignKey:transaction_id;constraint:OnDelete:CASCADE" json:"-"`
}
