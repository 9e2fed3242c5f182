package providers

import (
	"context"
	"log"

	"brpay/src/config"
	"brpay/src/pix"
	"brpay/src/types"
)

// StaticPixAdapter makes no network call: it encodes a BR Code for the
// configured merchant and leaves the transaction pending until a webhook or
// manual confirmation settles it.
type StaticPixAdapter struct{}

func (a *StaticPixAdapter) Name() string { return PROVIDER_STATIC_PIX }

func (a *StaticPixAdapter) Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error) {
	txid := params.TransactionID
	if len(txid) > 25 {
		txid = txid[:25]
	}
	payload, err := pix.Encode(pix.BRCodeParams{
		PixKey:       config.PixKey(),
		MerchantName: config.MerchantName(),
		MerchantCity: config.MerchantCity(),
		Description:  params.Description,
		TxID:         txid,
		AmountCents:  params.AmountCents,
	})
	if err != nil {
		return nil, err
	}
	raw := types.JSONB{"brcode": payload, "txid": txid}
	if image, err := pix.RenderBase64(payload); err == nil {
		raw["qr_code_base64"] = image
	} else {
		log.Printf("[pix-static] QR image rendering failed, returning payload only: %s\n", err.Error())
	}
	return &ChargeResult{
		Success:           true,
		Status:            types.TRANSACTION_PENDING,
		Provider:          a.Name(),
		ProviderReference: txid,
		Raw:               raw,
	}, nil
}
