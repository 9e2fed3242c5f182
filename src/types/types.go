package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type TransactionStatus string

const (
	TRANSACTION_PENDING    TransactionStatus = "pending"
	TRANSACTION_AUTHORIZED TransactionStatus = "authorized"
	TRANSACTION_PAID       TransactionStatus = "paid"
	TRANSACTION_FAILED     TransactionStatus = "failed"
	TRANSACTION_CANCELED   TransactionStatus = "canceled"
	TRANSACTION_REFUNDED   TransactionStatus = "refunded"
	TRANSACTION_EXPIRED    TransactionStatus = "expired"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TRANSACTION_PENDING, TRANSACTION_AUTHORIZED, TRANSACTION_PAID,
		TRANSACTION_FAILED, TRANSACTION_CANCELED, TRANSACTION_REFUNDED,
		TRANSACTION_EXPIRED:
		return true
	}
	return false
}

// Terminal statuses accept no further transition except re-applying themselves.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TRANSACTION_FAILED, TRANSACTION_CANCELED, TRANSACTION_REFUNDED, TRANSACTION_EXPIRED:
		return true
	}
	return false
}

type PaymentMethod string

const (
	METHOD_PIX  PaymentMethod = "pix"
	METHOD_CARD PaymentMethod = "card"
)

type OperationMode string

const (
	MODE_WHITE OperationMode = "white"
	MODE_BLACK OperationMode = "black"
)

type EventType string

const (
	EVENT_CREATED          EventType = "created"
	EVENT_PROVIDER_RESULT  EventType = "provider_result"
	EVENT_PROVIDER_WEBHOOK EventType = "provider_webhook"
	EVENT_STATUS_CHANGE    EventType = "status_change"
	EVENT_EXPIRED          EventType = "expired"
)

type ErrorCode string

const (
	ERR_INVALID_REQUEST     ErrorCode = "invalid_request"
	ERR_INVALID_METHOD      ErrorCode = "invalid_method"
	ERR_NOT_FOUND           ErrorCode = "not_found"
	ERR_INVALID_STATUS      ErrorCode = "invalid_status"
	ERR_INSUFFICIENT_AMOUNT ErrorCode = "insufficient_amount"
	ERR_INVALID_SIGNATURE   ErrorCode = "invalid_signature"
	ERR_INTERNAL            ErrorCode = "internal_error"
)

// ApiError carries the wire error code alongside the message so handlers can
// map it to an HTTP status without string matching.
type ApiError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"error"`
}

func (e *ApiError) Error() string { return e.Message }

func NewApiError(code ErrorCode, msg string) *ApiError {
	return &ApiError{Code: code, Message: msg}
}

type CardRequestBody struct {
	Number   string `json:"number,omitempty"`
	Holder   string `json:"holder,omitempty"`
	ExpMonth string `json:"exp_month,omitempty"`
	ExpYear  string `json:"exp_year,omitempty"`
	CVV      string `json:"cvv,omitempty"`
}

type CreatePaymentRequestBody struct {
	Amount      float64          `json:"amount,omitempty" binding:"omitempty,gt=0"`
	AmountCents int64            `json:"amount_cents,omitempty" binding:"omitempty,gt=0"`
	Currency    string           `json:"currency" binding:"required,currency"`
	Method      string           `json:"method,omitempty" binding:"omitempty,paymethod"`
	Capture     *bool            `json:"capture,omitempty"`
	Customer    JSONB            `json:"customer,omitempty"`
	Card        *CardRequestBody `json:"card,omitempty"`
	CardHash    string           `json:"card_hash,omitempty"`
	Provider    string           `json:"provider,omitempty"`
	MerchantTag string           `json:"merchant_tag,omitempty"`
	Description string           `json:"description,omitempty"`
	Metadata    JSONB            `json:"metadata,omitempty"`
}

type RefundRequestBody struct {
	AmountCents *int64 `json:"amount_cents,omitempty" binding:"omitempty,gt=0"`
}

type PaymentQueryFilters struct {
	Status   string `form:"status" binding:"omitempty"`
	Method   string `form:"method" binding:"omitempty,paymethod"`
	Provider string `form:"provider" binding:"omitempty"`
}
