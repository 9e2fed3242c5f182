// Package providers holds the payment-provider adapters and the routing policy
// that picks between them. Every adapter speaks the same Charge contract and
// reports statuses in the canonical vocabulary.
package providers

import (
	"context"
	"fmt"
	"sync"

	"brpay/src/types"
)

const (
	PROVIDER_STATIC_PIX      = "pix-static"
	PROVIDER_PIX_GATEWAY     = "pix-gateway"
	PROVIDER_MOCK            = "mock"
	PROVIDER_STRIPE          = "stripe"
	PROVIDER_HOSTED_CHECKOUT = "hosted-checkout"
)

type ChargeParams struct {
	TransactionID string
	AmountCents   int64
	Currency      string
	Capture       bool
	Customer      types.JSONB
	Card          *types.CardRequestBody
	CardHash      string
	Description   string
	MerchantTag   string
	Metadata      types.JSONB
}

// ChargeResult is the normalized outcome of one outbound provider call.
// Business declines come back with Success=false and a DeclineReason;
// transport failures are returned as errors by Charge itself.
type ChargeResult struct {
	Success           bool
	Status            types.TransactionStatus
	Provider          string
	ProviderReference string
	DeclineReason     string
	Raw               types.JSONB
}

type Adapter interface {
	Name() string
	Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error)
}

// LifecycleAdapter is implemented by adapters whose provider must be told
// about capture/cancel/refund. Adapters without remote lifecycle calls
// (static PIX, mock) skip it and the ledger transition stands alone.
type LifecycleAdapter interface {
	Capture(ctx context.Context, providerReference string) error
	Cancel(ctx context.Context, providerReference string) error
	Refund(ctx context.Context, providerReference string, amountCents int64) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Adapter{}
)

func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Name()] = a
}

func Get(name string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return a, nil
}

// RegisterDefaults wires the concrete adapters in. Called once at boot; tests
// call Register directly to inject fakes.
func RegisterDefaults() {
	Register(&StaticPixAdapter{})
	Register(&MockAdapter{})
	Register(&StripeAdapter{})
	Register(&HostedCheckoutAdapter{})
	Register(NewPixGatewayAdapter())
}
