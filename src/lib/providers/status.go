package providers

import (
	"strings"

	"brpay/src/types"
)

// genericStatuses covers the vocabulary shared by most gateways. Per-provider
// tables override individual entries where a provider's wording diverges.
var genericStatuses = map[string]types.TransactionStatus{
	"paid":           types.TRANSACTION_PAID,
	"completed":      types.TRANSACTION_PAID,
	"approved":       types.TRANSACTION_PAID,
	"confirmed":      types.TRANSACTION_PAID,
	"settled":        types.TRANSACTION_PAID,
	"succeeded":      types.TRANSACTION_PAID,
	"authorized":     types.TRANSACTION_AUTHORIZED,
	"pre_authorized": types.TRANSACTION_AUTHORIZED,
	"refused":        types.TRANSACTION_FAILED,
	"failed":         types.TRANSACTION_FAILED,
	"error":          types.TRANSACTION_FAILED,
	"refunded":       types.TRANSACTION_REFUNDED,
	"chargeback":     types.TRANSACTION_REFUNDED,
	"pending":        types.TRANSACTION_PENDING,
	"created":        types.TRANSACTION_PENDING,
	"waiting":        types.TRANSACTION_PENDING,
	"processing":     types.TRANSACTION_PENDING,
	"canceled":       types.TRANSACTION_CANCELED,
	"cancelled":      types.TRANSACTION_CANCELED,
	"expired":        types.TRANSACTION_EXPIRED,
}

var providerStatuses = map[string]map[string]types.TransactionStatus{
	PROVIDER_STRIPE: {
		"requires_capture":        types.TRANSACTION_AUTHORIZED,
		"requires_payment_method": types.TRANSACTION_PENDING,
		"requires_confirmation":   types.TRANSACTION_PENDING,
		"requires_action":         types.TRANSACTION_PENDING,
	},
	PROVIDER_HOSTED_CHECKOUT: {
		"open":     types.TRANSACTION_PENDING,
		"complete": types.TRANSACTION_PAID,
	},
	PROVIDER_PIX_GATEWAY: {
		"active":  types.TRANSACTION_PENDING,
		"removed": types.TRANSACTION_CANCELED,
	},
}

// NormalizeStatus maps a provider's raw status string onto the canonical set.
// Unrecognized values fall back to the transaction's current status so a
// provider vocabulary change can never corrupt the ledger.
func NormalizeStatus(provider, raw string, current types.TransactionStatus) types.TransactionStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if table, ok := providerStatuses[provider]; ok {
		if status, ok := table[key]; ok {
			return status
		}
	}
	if status, ok := genericStatuses[key]; ok {
		return status
	}
	return current
}

// KnownStatus reports whether a raw provider string has a canonical mapping.
func KnownStatus(provider, raw string) bool {
	key := strings.ToLower(strings.TrimSpace(raw))
	if table, ok := providerStatuses[provider]; ok {
		if _, ok := table[key]; ok {
			return true
		}
	}
	_, ok := genericStatuses[key]
	return ok
}
