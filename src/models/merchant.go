package models

import (
	"brpay/src/types"
)

type Merchant struct {
	ID uint `gorm:"primarykey" json:"id"`

	Tag    string              `gorm:"uniqueIndex;not null" json:"tag"`
	Name   string              `json:"name"`
	City   string              `json:"city,omitempty"`
	Mode   types.OperationMode `gorm:"default:white" json:"mode"`
	PixKey *string             `json:"pix_key,omitempty"`

	types.Timestamps
}
