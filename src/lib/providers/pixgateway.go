package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"brpay/src/config"
	"brpay/src/types"

	"github.com/tidwall/gjson"
)

// PixGatewayAdapter creates dynamic PIX charges against the live gateway's
// REST API. Used when a merchant operates in black mode.
type PixGatewayAdapter struct {
	httpClient *http.Client
}

func NewPixGatewayAdapter() *PixGatewayAdapter {
	return &PixGatewayAdapter{
		httpClient: &http.Client{Timeout: config.ProviderTimeout()},
	}
}

func (a *PixGatewayAdapter) Name() string { return PROVIDER_PIX_GATEWAY }

func (a *PixGatewayAdapter) Charge(ctx context.Context, params *ChargeParams) (*ChargeResult, error) {
	baseURL := os.Getenv("PIX_GATEWAY_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("PIX_GATEWAY_URL is not configured")
	}

	reqBody, err := json.Marshal(map[string]any{
		"amount":      params.AmountCents,
		"currency":    params.Currency,
		"external_id": params.TransactionID,
		"customer":    params.Customer,
		"description": params.Description,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/charges", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+os.Getenv("PIX_GATEWAY_TOKEN"))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pix gateway request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pix gateway response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("pix gateway returned %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("pix gateway returned non-JSON body (%d)", resp.StatusCode)
	}

	sbody := string(body)
	if resp.StatusCode >= http.StatusBadRequest {
		reason := gjson.Get(sbody, "error.message").String()
		if reason == "" {
			reason = gjson.Get(sbody, "message").String()
		}
		return &ChargeResult{
			Success:       false,
			Status:        types.TRANSACTION_FAILED,
			Provider:      a.Name(),
			DeclineReason: reason,
			Raw:           types.JSONB{"status_code": resp.StatusCode, "message": reason},
		}, nil
	}

	raw := types.JSONB{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return &ChargeResult{
		Success:           true,
		Status:            NormalizeStatus(a.Name(), gjson.Get(sbody, "status").String(), types.TRANSACTION_PENDING),
		Provider:          a.Name(),
		ProviderReference: gjson.Get(sbody, "id").String(),
		Raw:               raw,
	}, nil
}
