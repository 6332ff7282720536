package models

import "time"

// Product is the model for the 'products' table.
type Product struct {
	ID          int64   `json:"id" db:"id"`
	OutletID    int64   `json:"outletId" db:"outlet_id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description string  `json:"description" db:"description"`
	Category    string  `json:"category" db:"category"`
	Price       float64 `json:"price" db:"price"`
	Quantity    int     `json:"quantity" db:"quantity"`
	ImageURL    *string `json:"imageUrl,omitempty" db:"image_url"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Populated by joins for list views, not a column.
	OutletName string `json:"outletName,omitempty" db:"-"`
}
