package models

import "time"

// Fulfillment statuses for an order. Payment state lives in a separate
// column so gateway callbacks never write values outside this set.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment state of an order, derived from the payments table.
const (
	OrderPaymentUnpaid = "unpaid"
	OrderPaymentPaid   = "paid"
	OrderPaymentFailed = "failed"
)

// OrderStatuses lists every legal fulfillment status, for input validation.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Order is the model for the 'orders' table.
type Order struct {
	ID          int64  `json:"id" db:"id"`
	OrderNumber string `json:"orderNumber" db:"order_number"`

	// Either a registered user or inline guest contact details.
	UserID     *int64  `json:"userId,omitempty" db:"user_id"`
	GuestName  *string `json:"guestName,omitempty" db:"guest_name"`
	GuestEmail *string `json:"guestEmail,omitempty" db:"guest_email"`
	GuestPhone *string `json:"guestPhone,omitempty" db:"guest_phone"`

	ShippingAddress string `json:"shippingAddress" db:"shipping_address"`
	City            string `json:"city" db:"city"`
	PhoneNumber     string `json:"phoneNumber" db:"phone_number"`

	// Submitted by the client at checkout and stored as-is.
	TotalPrice float64 `json:"totalPrice" db:"total_price"`

	Status        string `json:"status" db:"status"`
	PaymentStatus string `json:"paymentStatus" db:"payment_status"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Populated by a second query, not a column.
	Items []OrderItem `json:"items,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table. Name, price and image
// are copied from the product at purchase time; later product edits must not
// change past orders. OutletID is denormalized so outlet order queries are
// indexed lookups.
type OrderItem struct {
	ID          int64   `json:"id" db:"id"`
	OrderID     int64   `json:"orderId" db:"order_id"`
	ProductID   int64   `json:"productId" db:"product_id"`
	OutletID    int64   `json:"outletId" db:"outlet_id"`
	ProductName string  `json:"productName" db:"product_name"`
	UnitPrice   float64 `json:"unitPrice" db:"unit_price"`
	ImageURL    *string `json:"imageUrl,omitempty" db:"image_url"`
	Quantity    int     `json:"quantity" db:"quantity"`
}
