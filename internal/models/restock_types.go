package models

import (
	"database/sql"
	"time"
)

// Restock request statuses. A request is decided exactly once.
const (
	RestockStatusPending  = "pending"
	RestockStatusApproved = "approved"
	RestockStatusRejected = "rejected"
)

// DefaultRestockReason is used when the outlet does not supply one.
const DefaultRestockReason = "Stock replenishment"

// RestockRequest is the model for the 'restock_requests' table.
// PreviousQuantity snapshots the product's stock at request time for audit.
type RestockRequest struct {
	ID                int64          `json:"id" db:"id"`
	ProductID         int64          `json:"productId" db:"product_id"`
	OutletID          int64          `json:"outletId" db:"outlet_id"`
	RequestedQuantity int            `json:"requestedQuantity" db:"requested_quantity"`
	PreviousQuantity  int            `json:"previousQuantity" db:"previous_quantity"`
	Reason            string         `json:"reason" db:"reason"`
	Status            string         `json:"status" db:"status"`
	AdminNote         sql.NullString `json:"adminNote,omitempty" db:"admin_note"`
	ProcessedBy       sql.NullInt64  `json:"processedBy,omitempty" db:"processed_by"`
	ProcessedAt       *time.Time     `json:"processedAt,omitempty" db:"processed_at"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`

	// Populated by joins for the admin view, not columns.
	ProductName string `json:"productName,omitempty" db:"-"`
	OutletName  string `json:"outletName,omitempty" db:"-"`
}
