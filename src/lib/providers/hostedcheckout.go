package providers

import (
	"context"
	"os"
	"strings"

	"brpay/src/lib"
	"brpay/src/types"

	"github.com/stripe/stripe-go/v82"
)

// HostedCheckoutAdapter opens a hosted checkout session and reports the
// charge as pending; settlement arrives later via webhook. Reserved for the
// fixed allow-list of hosted-checkout merchants.
type HostedCheckoutAdapter struct{}

func (a *HostedCheckoutAdapter) Name() string { return PROVIDER_HOSTED_CHECKOUT }

func (a *HostedCheckoutAdapter) Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error) {
	sc := lib.GetStripeClient()

	productName := params.Description
	if productName == "" {
		productName = "Payment " + params.TransactionID
	}
	successURL := os.Getenv("CHECKOUT_SUCCESS_URL")
	if successURL == "" {
		successURL = "https://checkout.local/success"
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String("payment"),
		SuccessURL: stripe.String(successURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(params.Currency)),
					UnitAmount: stripe.Int64(params.AmountCents),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
				},
			},
		},
		Metadata: map[string]string{
			"transaction_id": params.TransactionID,
			"merchant_tag":   params.MerchantTag,
		},
	}

	session, err := sc.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		Success:           true,
		Status:            NormalizeStatus(a.Name(), string(session.Status), types.TRANSACTION_PENDING),
		Provider:          a.Name(),
		ProviderReference: session.ID,
		Raw: types.JSONB{
			"id":           session.ID,
			"status":       string(session.Status),
			"checkout_url": session.URL,
		},
	}, nil
}
