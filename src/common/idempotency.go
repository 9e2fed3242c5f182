package common

import (
	"context"
	"errors"
	"log"
	"time"

	"brpay/src/db"
	"brpay/src/lib"
	"brpay/src/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const idempotencyKeyTTL = 24 * time.Hour

func idempotencyCacheKey(key string) string { return "idem:" + key }

// LookupIdempotencyKey returns the transaction bound to a key, checking the
// redis fast path before the durable record.
func LookupIdempotencyKey(ctx context.Context, key string) (*models.Transaction, bool) {
	if key == "" {
		return nil, false
	}

	var txnID string
	if rdb := lib.GetRedisClient(); rdb != nil {
		if cached, err := rdb.Get(ctx, idempotencyCacheKey(key)).Result(); err == nil {
			txnID = cached
		}
	}

	gdb := db.GetDb()
	if txnID == "" {
		var record models.IdempotencyKey
		err := gdb.
			Model(&models.IdempotencyKey{}).
			Where(&models.IdempotencyKey{Key: key}).
			First(&record).
			Error
		if err != nil {
			return nil, false
		}
		txnID = record.TransactionID.String()
	}

	var txn models.Transaction
	if err := gdb.Model(&models.Transaction{}).Where("id = ?", txnID).First(&txn).Error; err != nil {
		log.Printf("[idempotency] Key %q points at missing transaction %s: %s\n", key, txnID, err.Error())
		return nil, false
	}
	return &txn, true
}

// BindIdempotencyKey atomically binds key -> transactionID via the unique
// index on the key column (insert-if-absent, no check-then-insert race).
// Returns the winning transaction id and whether this call created the
// binding; a lost race returns the id the concurrent winner bound.
func BindIdempotencyKey(ctx context.Context, key string, transactionID uuid.UUID) (uuid.UUID, bool, error) {
	gdb := db.GetDb()
	record := models.IdempotencyKey{Key: key, TransactionID: transactionID}
	res := gdb.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&record)
	if res.Error != nil {
		return uuid.Nil, false, res.Error
	}

	created := res.RowsAffected > 0
	winnerID := transactionID
	if !created {
		var existing models.IdempotencyKey
		err := gdb.
			Model(&models.IdempotencyKey{}).
			Where(&models.IdempotencyKey{Key: key}).
			First(&existing).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, false, errors.New("idempotency key conflict but no record found")
			}
			return uuid.Nil, false, err
		}
		winnerID = existing.TransactionID
	}

	if rdb := lib.GetRedisClient(); rdb != nil {
		if err := rdb.SetNX(ctx, idempotencyCacheKey(key), winnerID.String(), idempotencyKeyTTL).Err(); err != nil {
			log.Printf("[idempotency] Failed to cache key %q: %s\n", key, err.Error())
		}
	}
	return winnerID, created, nil
}
