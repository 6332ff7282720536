package models

import "time"

// Subscription plans and their lifecycle statuses.
const (
	PlanFree = "free"
	PlanPro  = "pro"

	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is the model for the 'subscriptions' table.
type Subscription struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Plan      string    `json:"plan" db:"plan"`
	Status    string    `json:"status" db:"status"`
	Price     float64   `json:"price" db:"price"`
	Features  []string  `json:"features" db:"features"` // stored as a JSON array
	StartDate time.Time `json:"startDate" db:"start_date"`
	EndDate   time.Time `json:"endDate" db:"end_date"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Populated by joins for the admin view, not a column.
	UserName string `json:"userName,omitempty" db:"-"`
}

// PlanSpec fixes the price, entitlements and window length of a plan.
type PlanSpec struct {
	Price    float64
	Features []string
	// Free plans run for a fixed number of days; paid plans for whole
	// calendar months (AddDate), matching billing cycles.
	DurationDays   int
	DurationMonths int
}

// PlanSpecs is the authoritative plan table.
var PlanSpecs = map[string]PlanSpec{
	PlanFree: {
		Price:        0,
		DurationDays: 14,
		Features: []string{
			"Up to 10 products",
			"Basic sales dashboard",
			"Email support",
		},
	},
	PlanPro: {
		Price:          199,
		DurationMonths: 1,
		Features: []string{
			"Unlimited products",
			"Full analytics suite",
			"Restock management",
			"Priority support",
		},
	},
}

// Expiry returns the end of a subscription window that starts at 'start'.
func (s PlanSpec) Expiry(start time.Time) time.Time {
	if s.DurationMonths > 0 {
		return start.AddDate(0, s.DurationMonths, 0)
	}
	return start.AddDate(0, 0, s.DurationDays)
}

// FeatureOverride is the model for the 'feature_overrides' table. It replaces
// the old source-embedded email allowlist: a row grants one named feature to
// one user.
type FeatureOverride struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Feature   string    `json:"feature" db:"feature"`
	GrantedBy int64     `json:"grantedBy" db:"granted_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Known feature override names.
const (
	FeatureSubscriptionBypass = "subscription_bypass"
)
