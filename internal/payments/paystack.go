package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const paystackBaseURL = "https://api.paystack.co"

// VerifyResult is the normalized outcome of a Paystack transaction lookup.
type VerifyResult struct {
	Success   bool
	Reference string
	Amount    float64 // major units; Paystack reports kobo/pesewas
	Currency  string
	Channel   string
	PaidAt    *time.Time
}

// PaystackVerifier is what handlers depend on; tests swap in a fake.
type PaystackVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
}

type paystackClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewPaystack builds the production client. An empty secret key is allowed at
// startup (the verify endpoint then fails per-request) so local environments
// without gateway credentials still boot.
func NewPaystack(secretKey string, log *zap.Logger) PaystackVerifier {
	if secretKey == "" {
		log.Warn("Paystack secret key is empty")
	}
	return &paystackClient{
		secretKey:  secretKey,
		baseURL:    paystackBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string     `json:"status"`
		Reference string     `json:"reference"`
		Amount    int64      `json:"amount"` // subunits
		Currency  string     `json:"currency"`
		Channel   string     `json:"channel"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (p *paystackClient) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	log := p.log.With(zap.String("reference", reference))

	url := fmt.Sprintf("%s/transaction/verify/%s", p.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Error("Paystack request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read paystack response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Paystack returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("paystack error: %s", string(bodyBytes))
	}

	var res paystackVerifyResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding Paystack response", zap.Error(err))
		return nil, err
	}

	return &VerifyResult{
		Success:   res.Status && res.Data.Status == "success",
		Reference: res.Data.Reference,
		Amount:    float64(res.Data.Amount) / 100,
		Currency:  res.Data.Currency,
		Channel:   res.Data.Channel,
		PaidAt:    res.Data.PaidAt,
	}, nil
}
