package providers

import (
	"context"
	"fmt"

	"brpay/src/types"

	"github.com/google/uuid"
)

// MockAdapter deterministically settles charges without touching a network.
// Routed to only outside production (sandbox rule), never registered behind
// the hosted-checkout allow-list.
type MockAdapter struct{}

func (a *MockAdapter) Name() string { return PROVIDER_MOCK }

func (a *MockAdapter) Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error) {
	status := types.TRANSACTION_AUTHORIZED
	if params.Capture {
		status = types.TRANSACTION_PAID
	}
	ref := fmt.Sprintf("mock_%s", uuid.NewString())
	return &ChargeResult{
		Success:           true,
		Status:            status,
		Provider:          a.Name(),
		ProviderReference: ref,
		Raw: types.JSONB{
			"id":     ref,
			"status": string(status),
			"amount": params.AmountCents,
		},
	}, nil
}
