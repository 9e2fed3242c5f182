package models

import (
	"brpay/src/types"

	"github.com/google/uuid"
)

type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	Amount            float64                 `json:"amount"`
	AmountCents       int64                   `json:"amount_cents"`
	Currency          string                  `json:"currency"`
	Method            types.PaymentMethod     `json:"method"`
	Status            types.TransactionStatus `gorm:"default:pending" json:"status"`
	Capture           bool                    `json:"capture"`
	Customer          types.JSONB             `gorm:"type:jsonb" json:"customer,omitempty"`
	Provider          string                  `json:"provider,omitempty"`
	ProviderReference *string                 `gorm:"index" json:"provider_reference,omitempty"`
	MethodDetails     types.JSONB             `gorm:"type:jsonb" json:"method_details,omitempty"`
	Metadata          types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`
	MerchantTag       string                  `json:"merchant_tag,omitempty"`

	types.Timestamps

	Events []TransactionEvent `gorm:"foreignKey:transaction_id;constraint:OnDelete:CASCADE" json:"-"`
}
