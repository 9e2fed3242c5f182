package common

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"brpay/src/config"
	"brpay/src/db"
	"brpay/src/lib/providers"
	"brpay/src/models"
	"brpay/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// legalTransitions is the authoritative state machine. Re-applying the
// current status is always legal (webhook re-delivery) and handled in
// CanTransition directly.
var legalTransitions = map[types.TransactionStatus][]types.TransactionStatus{
	types.TRANSACTION_PENDING: {
		types.TRANSACTION_PAID, types.TRANSACTION_AUTHORIZED, types.TRANSACTION_FAILED,
		types.TRANSACTION_CANCELED, types.TRANSACTION_EXPIRED,
	},
	types.TRANSACTION_AUTHORIZED: {
		types.TRANSACTION_PAID, types.TRANSACTION_CANCELED, types.TRANSACTION_FAILED,
	},
	types.TRANSACTION_PAID: {
		types.TRANSACTION_REFUNDED,
	},
}

func CanTransition(from, to types.TransactionStatus) bool {
	if from == to {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NormalizeAmount resolves the authoritative integer cents from a request
// that may carry amount_cents, a decimal amount, or both.
func NormalizeAmount(amount float64, amountCents int64) (int64, error) {
	if amountCents > 0 {
		return amountCents, nil
	}
	if amount <= 0 {
		return 0, types.NewApiError(types.ERR_INVALID_REQUEST, "amount or amount_cents is required")
	}
	cents := decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, types.NewApiError(types.ERR_INVALID_REQUEST, "amount has sub-cent precision")
	}
	return cents.IntPart(), nil
}

// CreatePayment runs the full creation flow: idempotency guard, pending
// insert, provider routing, outbound charge, result normalization. The bool
// result reports a replay of a previously created transaction.
func CreatePayment(ctx context.Context, body *types.CreatePaymentRequestBody, idempotencyKey string) (*models.Transaction, bool, error) {
	method := types.PaymentMethod(body.Method)
	if method != types.METHOD_PIX && method != types.METHOD_CARD {
		return nil, false, types.NewApiError(types.ERR_INVALID_METHOD, fmt.Sprintf("unsupported payment method %q", body.Method))
	}
	amountCents, err := NormalizeAmount(body.Amount, body.AmountCents)
	if err != nil {
		return nil, false, err
	}

	transactionID := uuid.New()
	if idempotencyKey != "" {
		if existing, found := LookupIdempotencyKey(ctx, idempotencyKey); found {
			return existing, true, nil
		}
		winnerID, created, err := BindIdempotencyKey(ctx, idempotencyKey, transactionID)
		if err != nil {
			return nil, false, types.NewApiError(types.ERR_INTERNAL, "could not reserve idempotency key")
		}
		if !created {
			// lost the race to a concurrent duplicate: serve its transaction
			var winner models.Transaction
			gdb := db.GetDb()
			if err := gdb.Model(&models.Transaction{}).Where("id = ?", winnerID).First(&winner).Error; err != nil {
				return nil, false, types.NewApiError(types.ERR_INTERNAL, "idempotency replay lookup failed")
			}
			return &winner, true, nil
		}
	}

	capture := true
	if body.Capture != nil {
		capture = *body.Capture
	}
	mode := merchantMode(body.MerchantTag)
	providerName, err := providers.Route(providers.RouteInput{
		Method:      method,
		Hint:        providerHint(body),
		MerchantTag: body.MerchantTag,
		Mode:        mode,
		Sandbox:     config.IsSandbox(),
	})
	if err != nil {
		return nil, false, types.NewApiError(types.ERR_INVALID_METHOD, err.Error())
	}

	txn := models.Transaction{
		ID:          transactionID,
		Amount:      float64(amountCents) / 100,
		AmountCents: amountCents,
		Currency:    strings.ToUpper(body.Currency),
		Method:      method,
		Status:      types.TRANSACTION_PENDING,
		Capture:     capture,
		Customer:    RedactJSONB(body.Customer),
		// the attempted provider is recorded before the outbound call so a
		// transport failure still shows where the charge went
		Provider:      providerName,
		MethodDetails: cardSummary(body.Card),
		Metadata:      RedactJSONB(body.Metadata),
		MerchantTag:   body.MerchantTag,
	}

	createdPayload := types.JSONB{
		"method":   string(method),
		"provider": providerName,
		"amount":   amountCents,
	}
	gdb := db.GetDb()
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		return AppendEvent(tx, txn.ID, types.EVENT_CREATED, createdPayload)
	})
	if err != nil {
		log.Printf("Error inserting transaction: %s\n", err.Error())
		return nil, false, types.NewApiError(types.ERR_INTERNAL, "could not create transaction")
	}
	PublishEvent(txn.ID, types.EVENT_CREATED, createdPayload)

	adapter, err := providers.Get(providerName)
	if err != nil {
		_ = applyStatus(&txn, types.TRANSACTION_FAILED, types.EVENT_STATUS_CHANGE, types.JSONB{"error": err.Error()})
		return &txn, false, types.NewApiError(types.ERR_INVALID_REQUEST, err.Error())
	}

	chargeCtx, cancel := context.WithTimeout(ctx, config.ProviderTimeout())
	defer cancel()
	result, err := adapter.Charge(chargeCtx, &providers.ChargeParams{
		TransactionID: txn.ID.String(),
		AmountCents:   amountCents,
		Currency:      txn.Currency,
		Capture:       capture,
		Customer:      txn.Customer,
		Card:          body.Card,
		CardHash:      body.CardHash,
		Description:   body.Description,
		MerchantTag:   body.MerchantTag,
		Metadata:      txn.Metadata,
	})
	if err != nil {
		// transport-level failure: provider outcome unknown, record and fail
		log.Printf("[%s] Charge transport failure for %s: %s\n", providerName, txn.ID, err.Error())
		_ = applyStatus(&txn, types.TRANSACTION_FAILED, types.EVENT_PROVIDER_RESULT, types.JSONB{
			"error": "provider unreachable",
		})
		return &txn, false, nil
	}

	raw := RedactJSONB(result.Raw)
	updates := map[string]any{"metadata": mergeMetadata(txn.Metadata, raw)}
	if result.ProviderReference != "" {
		updates["provider_reference"] = result.ProviderReference
		txn.ProviderReference = &result.ProviderReference
	}
	eventPayload := types.JSONB{"provider": result.Provider, "raw": map[string]any(raw)}

	status := result.Status
	if !result.Success {
		status = types.TRANSACTION_FAILED
		eventPayload["decline_reason"] = result.DeclineReason
	}
	if !status.Valid() {
		status = txn.Status
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("id = ?", txn.ID).Updates(updates).Error; err != nil {
			return err
		}
		txn.Metadata = updates["metadata"].(types.JSONB)
		return nil
	})
	if err != nil {
		log.Printf("Error recording provider result for %s: %s\n", txn.ID, err.Error())
		return &txn, false, types.NewApiError(types.ERR_INTERNAL, "could not record provider result")
	}
	if err := applyStatus(&txn, status, types.EVENT_PROVIDER_RESULT, eventPayload); err != nil {
		return &txn, false, err
	}
	return &txn, false, nil
}

func providerHint(body *types.CreatePaymentRequestBody) string {
	if body.Provider != "" {
		return body.Provider
	}
	if body.Metadata != nil {
		if hint, ok := body.Metadata["provider"].(string); ok {
			return hint
		}
	}
	return ""
}

func merchantMode(tag string) types.OperationMode {
	if tag != "" {
		var merchant models.Merchant
		gdb := db.GetDb()
		err := gdb.Model(&models.Merchant{}).Where(&models.Merchant{Tag: tag}).First(&merchant).Error
		if err == nil {
			return merchant.Mode
		}
	}
	return types.OperationMode(config.OperationMode())
}

// cardSummary keeps last4 and expiry only. Full PAN and CVV never reach the
// ledger.
func cardSummary(card *types.CardRequestBody) types.JSONB {
	if card == nil {
		return nil
	}
	summary := types.JSONB{}
	if n := len(card.Number); n >= 4 {
		summary["last4"] = card.Number[n-4:]
	}
	if card.ExpMonth != "" {
		summary["exp_month"] = card.ExpMonth
	}
	if card.ExpYear != "" {
		summary["exp_year"] = card.ExpYear
	}
	if len(summary) == 0 {
		return nil
	}
	return summary
}

func mergeMetadata(metadata, raw types.JSONB) types.JSONB {
	out := types.JSONB{}
	for k, v := range metadata {
		out[k] = v
	}
	if raw != nil {
		out["provider_response"] = map[string]any(raw)
	}
	return out
}

// applyStatus performs one legal state transition and appends its audit
// event atomically. Illegal transitions leave the row untouched.
func applyStatus(txn *models.Transaction, to types.TransactionStatus, eventType types.EventType, payload types.JSONB) error {
	if !CanTransition(txn.Status, to) {
		return types.NewApiError(types.ERR_INVALID_STATUS,
			fmt.Sprintf("illegal transition %s -> %s", txn.Status, to))
	}
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if txn.Status != to {
			if err := tx.Model(&models.Transaction{}).Where("id = ?", txn.ID).Update("status", to).Error; err != nil {
				return err
			}
		}
		if payload == nil {
			payload = types.JSONB{}
		}
		payload["from"] = string(txn.Status)
		payload["to"] = string(to)
		return AppendEvent(tx, txn.ID, eventType, payload)
	})
	if err != nil {
		log.Printf("Error applying status %s to %s: %s\n", to, txn.ID, err.Error())
		return types.NewApiError(types.ERR_INTERNAL, "could not update transaction status")
	}
	txn.Status = to
	PublishEvent(txn.ID, eventType, payload)
	return nil
}

func GetTransaction(id string) (*models.Transaction, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return nil, types.NewApiError(types.ERR_NOT_FOUND, "unknown transaction")
	}
	var txn models.Transaction
	gdb := db.GetDb()
	if err := gdb.Model(&models.Transaction{}).Where("id = ?", txnID).First(&txn).Error; err != nil {
		return nil, types.NewApiError(types.ERR_NOT_FOUND, "unknown transaction")
	}
	return &txn, nil
}

// ConfirmPix settles a pending PIX transaction (manual confirmation path).
func ConfirmPix(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if txn.Method != types.METHOD_PIX {
		return nil, types.NewApiError(types.ERR_INVALID_METHOD, "confirm applies to pix transactions only")
	}
	if txn.Status != types.TRANSACTION_PENDING {
		return nil, types.NewApiError(types.ERR_INVALID_STATUS,
			fmt.Sprintf("cannot confirm a %s transaction", txn.Status))
	}
	if err := applyStatus(txn, types.TRANSACTION_PAID, types.EVENT_STATUS_CHANGE, types.JSONB{"action": "confirm"}); err != nil {
		return nil, err
	}
	return txn, nil
}

// Capture converts an authorized card charge into a settled one.
func Capture(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if txn.Method != types.METHOD_CARD {
		return nil, types.NewApiError(types.ERR_INVALID_METHOD, "capture applies to card transactions only")
	}
	if txn.Status != types.TRANSACTION_AUTHORIZED {
		return nil, types.NewApiError(types.ERR_INVALID_STATUS,
			fmt.Sprintf("cannot capture a %s transaction", txn.Status))
	}
	if err := providerLifecycle(ctx, txn, "capture", 0); err != nil {
		return nil, err
	}
	if err := applyStatus(txn, types.TRANSACTION_PAID, types.EVENT_STATUS_CHANGE, types.JSONB{"action": "capture"}); err != nil {
		return nil, err
	}
	return txn, nil
}

// Cancel voids a transaction that has not settled.
func Cancel(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if txn.Status != types.TRANSACTION_PENDING && txn.Status != types.TRANSACTION_AUTHORIZED {
		return nil, types.NewApiError(types.ERR_INVALID_STATUS,
			fmt.Sprintf("cannot cancel a %s transaction", txn.Status))
	}
	if err := providerLifecycle(ctx, txn, "cancel", 0); err != nil {
		return nil, err
	}
	if err := applyStatus(txn, types.TRANSACTION_CANCELED, types.EVENT_STATUS_CHANGE, types.JSONB{"action": "cancel"}); err != nil {
		return nil, err
	}
	return txn, nil
}

// Refund returns value on a settled charge. A partial amount may be given;
// exceeding the settled amount is an insufficient_amount error.
func Refund(ctx context.Context, id string, amountCents *int64) (*models.Transaction, error) {
	txn, err := GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if txn.Status != types.TRANSACTION_PAID {
		return nil, types.NewApiError(types.ERR_INVALID_STATUS,
			fmt.Sprintf("cannot refund a %s transaction", txn.Status))
	}
	refundCents := txn.AmountCents
	if amountCents != nil {
		refundCents = *amountCents
	}
	if refundCents <= 0 || refundCents > txn.AmountCents {
		return nil, types.NewApiError(types.ERR_INSUFFICIENT_AMOUNT,
			fmt.Sprintf("refund of %d exceeds settled amount %d", refundCents, txn.AmountCents))
	}
	if err := providerLifecycle(ctx, txn, "refund", refundCents); err != nil {
		return nil, err
	}
	if err := applyStatus(txn, types.TRANSACTION_REFUNDED, types.EVENT_STATUS_CHANGE, types.JSONB{
		"action":       "refund",
		"amount_cents": refundCents,
	}); err != nil {
		return nil, err
	}
	return txn, nil
}

// providerLifecycle forwards capture/cancel/refund to the provider when its
// adapter speaks the lifecycle contract. Adapters without remote lifecycle
// calls are a local-only transition.
func providerLifecycle(ctx context.Context, txn *models.Transaction, action string, amountCents int64) error {
	adapter, err := providers.Get(txn.Provider)
	if err != nil {
		log.Printf("[lifecycle] Transaction %s references unknown provider %q, applying locally\n", txn.ID, txn.Provider)
		return nil
	}
	lc, ok := adapter.(providers.LifecycleAdapter)
	if !ok || txn.ProviderReference == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, config.ProviderTimeout())
	defer cancel()
	switch action {
	case "capture":
		err = lc.Capture(callCtx, *txn.ProviderReference)
	case "cancel":
		err = lc.Cancel(callCtx, *txn.ProviderReference)
	case "refund":
		err = lc.Refund(callCtx, *txn.ProviderReference, amountCents)
	}
	if err != nil {
		log.Printf("[lifecycle] Provider %s %s failed for %s: %s\n", txn.Provider, action, txn.ID, err.Error())
		return types.NewApiError(types.ERR_INTERNAL, fmt.Sprintf("provider %s failed", action))
	}
	return nil
}

// ReconcileWebhook applies a verified provider webhook onto the transaction
// it references. Unknown transactions are not failures; at-least-once and
// out-of-order delivery is expected.
func ReconcileWebhook(ctx context.Context, provider string, rawPayload []byte, deliveryID string) (*models.Transaction, error) {
	if !gjson.ValidBytes(rawPayload) {
		return nil, types.NewApiError(types.ERR_INVALID_REQUEST, "webhook payload is not valid JSON")
	}
	payload := string(rawPayload)

	txn, found := locateTransaction(provider, payload)
	if !found {
		log.Printf("[webhook] No transaction matches %s delivery, ignoring\n", provider)
		return nil, nil
	}

	if deliveryID != "" && config.WebhookDedupeByDeliveryID() && deliveryApplied(txn.ID, deliveryID) {
		log.Printf("[webhook] Delivery %q already applied to %s, skipping\n", deliveryID, txn.ID)
		return txn, nil
	}

	rawStatus := firstString(payload, "status", "data.status", "charge.status", "event")
	status := providers.NormalizeStatus(provider, rawStatus, txn.Status)
	if !providers.KnownStatus(provider, rawStatus) {
		log.Printf("[webhook] Unrecognized %s status %q, keeping transaction at %s\n", provider, rawStatus, txn.Status)
	}
	if !CanTransition(txn.Status, status) {
		log.Printf("[webhook] Ignoring out-of-order %s -> %s for %s\n", txn.Status, status, txn.ID)
		status = txn.Status
	}

	var redacted types.JSONB
	if err := json.Unmarshal(rawPayload, &redacted); err == nil {
		redacted = RedactJSONB(redacted)
	}
	eventPayload := types.JSONB{
		"provider":   provider,
		"raw_status": rawStatus,
		"payload":    map[string]any(redacted),
	}
	if deliveryID != "" {
		eventPayload["delivery_id"] = deliveryID
	}
	if err := applyStatus(txn, status, types.EVENT_PROVIDER_WEBHOOK, eventPayload); err != nil {
		return nil, err
	}
	return txn, nil
}

func locateTransaction(provider, payload string) (*models.Transaction, bool) {
	gdb := db.GetDb()

	if embedded := firstString(payload,
		"metadata.transaction_id", "data.metadata.transaction_id",
		"data.object.metadata.transaction_id", "transaction_id"); embedded != "" {
		if txnID, err := uuid.Parse(embedded); err == nil {
			var txn models.Transaction
			if err := gdb.Model(&models.Transaction{}).Where("id = ?", txnID).First(&txn).Error; err == nil {
				return &txn, true
			}
		}
	}

	if ref := firstString(payload, "reference", "external_reference", "data.id", "data.object.id", "id"); ref != "" {
		var txn models.Transaction
		err := gdb.
			Model(&models.Transaction{}).
			Where(&models.Transaction{Provider: provider, ProviderReference: &ref}).
			First(&txn).
			Error
		if err == nil {
			return &txn, true
		}
	}
	return nil, false
}

func deliveryApplied(transactionID uuid.UUID, deliveryID string) bool {
	gdb := db.GetDb()
	var count int64
	err := gdb.
		Model(&models.TransactionEvent{}).
		Where("transaction_id = ? AND type = ? AND payload ->> 'delivery_id' = ?",
			transactionID, types.EVENT_PROVIDER_WEBHOOK, deliveryID).
		Count(&count).
		Error
	if err != nil {
		log.Printf("[webhook] Dedupe lookup failed for %s: %s\n", deliveryID, err.Error())
		return false
	}
	return count > 0
}

func firstString(payload string, paths ...string) string {
	for _, path := range paths {
		if v := gjson.Get(payload, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// ExpireStalePixTransactions flips pending PIX charges older than the expiry
// window to expired. Runs on the scheduler.
func ExpireStalePixTransactions() {
	cutoff := time.Now().Add(-config.PixExpiry())
	gdb := db.GetDb()

	var stale []models.Transaction
	err := gdb.
		Model(&models.Transaction{}).
		Where("method = ? AND status = ? AND created_at < ?", types.METHOD_PIX, types.TRANSACTION_PENDING, cutoff).
		Limit(500).
		Find(&stale).
		Error
	if err != nil {
		log.Printf("[expiry] Error listing stale pix transactions: %s\n", err.Error())
		return
	}
	for i := range stale {
		txn := stale[i]
		if err := applyStatus(&txn, types.TRANSACTION_EXPIRED, types.EVENT_EXPIRED, types.JSONB{
			"expired_after": config.PixExpiry().String(),
		}); err != nil {
			log.Printf("[expiry] Could not expire %s: %s\n", txn.ID, err.Error())
		}
	}
	if len(stale) > 0 {
		log.Printf("[expiry] Expired %d stale pix transactions\n", len(stale))
	}
}
