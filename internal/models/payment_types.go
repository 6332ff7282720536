package models

import "time"

// Statuses of a single payment attempt. A row is written once with its final
// status and never updated; retries create new rows.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Payment providers.
const (
	ProviderPaystack = "paystack"
	ProviderMTNMoMo  = "mtn_momo"
	ProviderManual   = "manual"
)

// Payment is the model for the 'payments' table.
type Payment struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"`
	Reference string    `json:"reference" db:"reference"`
	Provider  string    `json:"provider" db:"provider"`
	Amount    float64   `json:"amount" db:"amount"`
	Status    string    `json:"status" db:"status"`
	Channel   *string   `json:"channel,omitempty" db:"channel"`
	Currency  string    `json:"currency" db:"currency"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
