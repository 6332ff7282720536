package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	TopicPaymentVerified = "payment.verified"

	EventPaymentVerified = "PaymentVerified"
)

// Envelope wraps every event on the wire. EventID doubles as the idempotency
// key for consumers.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

// PaymentVerifiedPayload carries the outcome of a gateway verification so
// the order can be updated asynchronously.
type PaymentVerifiedPayload struct {
	OrderID   int64   `json:"order_id"`
	UserID    *int64  `json:"user_id,omitempty"`
	Reference string  `json:"reference"`
	Provider  string  `json:"provider"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"` // paid | failed
}

// NewPaymentVerified builds a ready-to-publish envelope around the payload.
func NewPaymentVerified(producer string, p PaymentVerifiedPayload) (Envelope, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    uuid.New().String(),
		EventType:  EventPaymentVerified,
		OccurredAt: time.Now().UTC(),
		Producer:   producer,
		Payload:    body,
	}, nil
}

// PartitionKey keeps all events for one order on one partition so they are
// applied in order.
func PartitionKey(orderID int64) []byte {
	return strconv.AppendInt(nil, orderID, 10)
}
