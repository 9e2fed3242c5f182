package common

import (
	"log"
	"time"

	"brpay/src/lib"
	"brpay/src/models"
	"brpay/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swapped out in tests
var kafkaPublish = lib.KafkaPublishEvent

// AppendEvent writes an audit event row inside tx. It does not touch the
// kafka stream: callers invoke PublishEvent once the surrounding
// transaction has committed, so a rollback never emits a phantom event.
func AppendEvent(tx *gorm.DB, transactionID uuid.UUID, eventType types.EventType, payload types.JSONB) error {
	event := models.TransactionEvent{
		TransactionID: transactionID,
		Type:          eventType,
		Payload:       payload,
	}
	if err := tx.Create(&event).Error; err != nil {
		log.Printf("[events] Error appending %s event for %s: %s\n", eventType, transactionID, err.Error())
		return err
	}
	return nil
}

// PublishEvent mirrors a committed audit event to the kafka stream,
// fire and forget.
func PublishEvent(transactionID uuid.UUID, eventType types.EventType, payload types.JSONB) {
	go kafkaPublish(map[string]any{
		"transaction_id": transactionID.String(),
		"type":           string(eventType),
		"payload":        map[string]any(payload),
		"created_at":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}
