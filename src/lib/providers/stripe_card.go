package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brpay/src/lib"
	"brpay/src/types"

	"github.com/stripe/stripe-go/v82"
)

// StripeAdapter drives card charges through PaymentIntents. Card declines are
// business results, not errors; only transport and API failures propagate.
type StripeAdapter struct{}

func (a *StripeAdapter) Name() string { return PROVIDER_STRIPE }

func (a *StripeAdapter) Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error) {
	sc := lib.GetStripeClient()

	captureMethod := "manual"
	if params.Capture {
		captureMethod = "automatic"
	}
	createParams := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(params.AmountCents),
		Currency:      stripe.String(strings.ToLower(params.Currency)),
		CaptureMethod: stripe.String(captureMethod),
		Metadata: map[string]string{
			"transaction_id": params.TransactionID,
		},
	}
	if params.CardHash != "" {
		createParams.PaymentMethod = stripe.String(params.CardHash)
		createParams.Confirm = stripe.Bool(true)
	}

	pi, err := sc.V1PaymentIntents.Create(ctx, createParams)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return &ChargeResult{
				Success:       false,
				Status:        types.TRANSACTION_FAILED,
				Provider:      a.Name(),
				DeclineReason: string(stripeErr.Code),
				Raw: types.JSONB{
					"decline_code": string(stripeErr.Code),
					"message":      stripeErr.Msg,
				},
			}, nil
		}
		return nil, err
	}

	return &ChargeResult{
		Success:           true,
		Status:            NormalizeStatus(a.Name(), string(pi.Status), types.TRANSACTION_PENDING),
		Provider:          a.Name(),
		ProviderReference: pi.ID,
		Raw: types.JSONB{
			"id":     pi.ID,
			"status": string(pi.Status),
			"amount": pi.Amount,
		},
	}, nil
}

func (a *StripeAdapter) Capture(ctx context.Context, providerReference string) error {
	sc := lib.GetStripeClient()
	_, err := sc.V1PaymentIntents.Capture(ctx, providerReference, &stripe.PaymentIntentCaptureParams{})
	if err != nil {
		return fmt.Errorf("stripe capture %s: %w", providerReference, err)
	}
	return nil
}

func (a *StripeAdapter) Cancel(ctx context.Context, providerReference string) error {
	sc := lib.GetStripeClient()
	_, err := sc.V1PaymentIntents.Cancel(ctx, providerReference, &stripe.PaymentIntentCancelParams{})
	if err != nil {
		return fmt.Errorf("stripe cancel %s: %w", providerReference, err)
	}
	return nil
}

func (a *StripeAdapter) Refund(ctx context.Context, providerReference string, amountCents int64) error {
	sc := lib.GetStripeClient()
	refundParams := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(providerReference),
	}
	if amountCents > 0 {
		refundParams.Amount = stripe.Int64(amountCents)
	}
	_, err := sc.V1Refunds.Create(ctx, refundParams)
	if err != nil {
		return fmt.Errorf("stripe refund %s: %w", providerReference, err)
	}
	return nil
}
