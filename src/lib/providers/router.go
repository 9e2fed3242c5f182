package providers

import (
	"fmt"
	"log"

	"brpay/src/config"
	"brpay/src/types"
)

type RouteInput struct {
	Method      types.PaymentMethod
	Hint        string
	MerchantTag string
	Mode        types.OperationMode
	Sandbox     bool
}

// Route picks the adapter for an intent. Precedence:
//
//  1. an explicit provider hint always wins
//  2. hosted-checkout allow-list for card intents, in every environment
//     (intentionally ahead of the sandbox override; do not reorder)
//  3. sandbox forces the mock adapter
//  4. operation mode: black routes to the live gateway, white to the
//     static BR Code generator (PIX) or the configured default (card)
func Route(in RouteInput) (string, error) {
	if in.Hint != "" {
		log.Printf("[router] Provider hint %q supplied, skipping policy\n", in.Hint)
		return in.Hint, nil
	}

	if in.Method == types.METHOD_CARD && hostedCheckoutMerchant(in.MerchantTag) {
		return PROVIDER_HOSTED_CHECKOUT, nil
	}

	if in.Sandbox {
		return PROVIDER_MOCK, nil
	}

	switch in.Method {
	case types.METHOD_PIX:
		if in.Mode == types.MODE_BLACK {
			return PROVIDER_PIX_GATEWAY, nil
		}
		return PROVIDER_STATIC_PIX, nil
	case types.METHOD_CARD:
		if in.Mode == types.MODE_BLACK {
			return PROVIDER_STRIPE, nil
		}
		return config.DefaultCardProvider(), nil
	}
	return "", fmt.Errorf("unsupported payment method %q", in.Method)
}

func hostedCheckoutMerchant(tag string) bool {
	if tag == "" {
		return false
	}
	for _, t := range config.HostedCheckoutTags() {
		if t == tag {
			return true
		}
	}
	return false
}
