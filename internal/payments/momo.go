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

// MomoStatus is the normalized state of an MTN MoMo transaction.
type MomoStatus struct {
	TransactionID string
	Status        string // SUCCESSFUL | FAILED | PENDING
	Amount        float64
	Currency      string
}

// MomoChecker queries MTN for the authoritative state of a transaction.
// When credentials are not configured the webhook's self-reported status is
// used instead, so callers must check Configured first.
type MomoChecker interface {
	Configured() bool
	TransactionStatus(ctx context.Context, transactionID string) (*MomoStatus, error)
}

type momoClient struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	log            *zap.Logger
}

func NewMomo(baseURL, consumerKey, consumerSecret string, log *zap.Logger) MomoChecker {
	return &momoClient{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		log:            log,
	}
}

func (m *momoClient) Configured() bool {
	return m.baseURL != "" && m.consumerKey != "" && m.consumerSecret != ""
}

type momoStatusResponse struct {
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m *momoClient) TransactionStatus(ctx context.Context, transactionID string) (*MomoStatus, error) {
	log := m.log.With(zap.String("transaction_id", transactionID))

	url := fmt.Sprintf("%s/collection/v1_0/requesttopay/%s", m.baseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(m.consumerKey, m.consumerSecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Error("MTN request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read MTN response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("MTN returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("mtn error: %s", string(bodyBytes))
	}

	var res momoStatusResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding MTN response", zap.Error(err))
		return nil, err
	}

	var amount float64
	fmt.Sscanf(res.Amount, "%f", &amount)

	return &MomoStatus{
		TransactionID: transactionID,
		Status:        res.Status,
		Amount:        amount,
		Currency:      res.Currency,
	}, nil
}
