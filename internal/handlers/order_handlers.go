package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//
// --- Order Handlers ---
//

// OrderLineInput is one line item at checkout.
type OrderLineInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderInput defines the JSON body for checkout. Either the request is
// authenticated or the guest contact fields must be filled in.
type CreateOrderInput struct {
	Items           []OrderLineInput `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string           `json:"shippingAddress" binding:"required"`
	City            string           `json:"city" binding:"required"`
	PhoneNumber     string           `json:"phoneNumber" binding:"required"`

	// Submitted by the client and stored as-is; the server does not
	// recompute it from line items.
	TotalPrice float64 `json:"totalPrice" binding:"required,gt=0"`

	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail"`
	GuestPhone string `json:"guestPhone"`
}

// CreateOrder is the handler for POST /api/route/createOrder
// Product name, price and image are snapshotted into the order items so
// later catalog edits never change past orders.
func (h *Handlers) CreateOrder(c *gin.Context) {
	// 1. --- Identify the Buyer ---
	var userID *int64
	if raw, exists := c.Get("userID"); exists {
		id := raw.(int64)
		userID = &id
	}

	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if userID == nil && (input.GuestName == "" || input.GuestEmail == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Guest orders require guestName and guestEmail"})
		return
	}

	// 2. --- Begin Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 3. --- Snapshot Each Product ---
	type snapshot struct {
		productID int64
		outletID  int64
		name      string
		price     float64
		imageURL  sql.NullString
		quantity  int
	}
	snapshots := make([]snapshot, 0, len(input.Items))
	for _, item := range input.Items {
		var s snapshot
		s.productID = item.ProductID
		s.quantity = item.Quantity
		err := tx.QueryRow(
			"SELECT outlet_id, name, price, image_url FROM products WHERE id = ?",
			item.ProductID,
		).Scan(&s.outletID, &s.name, &s.price, &s.imageURL)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Product with id %d not found", item.ProductID)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
			return
		}
		snapshots = append(snapshots, s)
	}

	// 4. --- Insert the Order ---
	now := time.Now()
	orderNumber := "BF-" + strings.ToUpper(uuid.New().String()[:8])

	var guestName, guestEmail, guestPhone any
	if userID == nil {
		guestName, guestEmail = input.GuestName, input.GuestEmail
		if input.GuestPhone != "" {
			guestPhone = input.GuestPhone
		}
	}

	orderQuery := `
		INSERT INTO orders
		(order_number, user_id, guest_name, guest_email, guest_phone,
		 shipping_address, city, phone_number, total_price, status, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', 'unpaid', ?, ?)`
	result, err := tx.Exec(orderQuery, orderNumber, userID, guestName, guestEmail, guestPhone,
		input.ShippingAddress, input.City, input.PhoneNumber, input.TotalPrice, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new order ID"})
		return
	}

	// 5. --- Insert the Snapshot Items ---
	itemQuery := `
		INSERT INTO order_items
		(order_id, product_id, outlet_id, product_name, unit_price, image_url, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, s := range snapshots {
		if _, err := tx.Exec(itemQuery, orderID, s.productID, s.outletID, s.name, s.price, s.imageURL, s.quantity); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save order item"})
			return
		}
	}

	// 6. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	// 7. --- Notify the Affected Outlets ---
	orderedItems := make([]models.OrderItem, len(snapshots))
	for i, s := range snapshots {
		orderedItems[i] = models.OrderItem{OutletID: s.outletID}
	}
	for _, outletID := range distinctOutlets(orderedItems) {
		h.Realtime.PublishToOutlet(c.Request.Context(), outletID, "order:new", gin.H{
			"orderId":     orderID,
			"orderNumber": orderNumber,
		})
	}

	h.Log.Info("order created",
		zap.Int64("order_id", orderID),
		zap.String("order_number", orderNumber),
		zap.Int("items", len(snapshots)),
	)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"order": gin.H{
			"id":          orderID,
			"orderNumber": orderNumber,
			"totalPrice":  input.TotalPrice,
			"status":      models.OrderStatusPending,
		},
	})
}

// orderFilters builds the WHERE tail shared by every order listing:
// order-number search, status filter and a date range.
func orderFilters(c *gin.Context) (where string, args []any, ok bool) {
	where = "1=1"
	if search := c.Query("search"); search != "" {
		where += " AND o.order_number LIKE ?"
		args = append(args, "%"+search+"%")
	}
	if status := c.Query("status"); status != "" {
		where += " AND o.status = ?"
		args = append(args, status)
	}
	start, end, ok := dateRangeParams(c)
	if !ok {
		return "", nil, false
	}
	if start != nil {
		where += " AND o.created_at >= ?"
		args = append(args, *start)
	}
	if end != nil {
		where += " AND o.created_at <= ?"
		args = append(args, *end)
	}
	return where, args, true
}

const orderColumns = `o.id, o.order_number, o.user_id, o.guest_name, o.guest_email, o.guest_phone,
	o.shipping_address, o.city, o.phone_number, o.total_price, o.status, o.payment_status,
	o.created_at, o.updated_at`

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.GuestName, &o.GuestEmail, &o.GuestPhone,
		&o.ShippingAddress, &o.City, &o.PhoneNumber, &o.TotalPrice, &o.Status, &o.PaymentStatus,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// listOrders runs a filtered, paginated order query.
func (h *Handlers) listOrders(c *gin.Context, extraWhere string, extraArgs []any, joinItems bool) {
	offset, limit := paginationParams(c)

	where, args, ok := orderFilters(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	if extraWhere != "" {
		where += " AND " + extraWhere
		args = append(args, extraArgs...)
	}

	from := "orders o"
	selectCols := orderColumns
	if joinItems {
		from = "orders o JOIN order_items oi ON oi.order_id = o.id"
		selectCols = "DISTINCT " + orderColumns
	}

	var total int
	countQuery := "SELECT COUNT(DISTINCT o.id) FROM " + from + " WHERE " + where
	if err := h.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	query := "SELECT " + selectCols + " FROM " + from + " WHERE " + where +
		" ORDER BY o.created_at DESC LIMIT ? OFFSET ?"
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// GetOrders is the handler for GET /api/route/getOrders (admin only).
func (h *Handlers) GetOrders(c *gin.Context) {
	h.listOrders(c, "", nil, false)
}

// GetOrdersByUser is the handler for GET /api/route/getOrdersByUser/:id
func (h *Handlers) GetOrdersByUser(c *gin.Context) {
	h.listOrders(c, "o.user_id = ?", []any{c.Param("id")}, false)
}

// GetOutletOrders is the handler for GET /api/route/getOutletOrders/:outletId
// Orders are matched through the denormalized outlet id on order items, so
// this is an indexed join rather than a scan over every order.
func (h *Handlers) GetOutletOrders(c *gin.Context) {
	h.listOrders(c, "oi.outlet_id = ?", []any{c.Param("outletId")}, true)
}

// GetOrder is the handler for GET /api/route/getOrder/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	row := h.DB.QueryRow("SELECT "+orderColumns+" FROM orders o WHERE o.id = ?", c.Param("id"))
	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	items, err := h.orderItems(o.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order items"})
		return
	}
	o.Items = items

	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (h *Handlers) orderItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := h.DB.Query(`
		SELECT id, order_id, product_id, outlet_id, product_name, unit_price, image_url, quantity
		FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.OutletID,
			&it.ProductName, &it.UnitPrice, &it.ImageURL, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateOrderStatusInput defines the JSON body for a status change.
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

// UpdateOrderStatus is the handler for PUT /api/route/updateOrder/:id
// A no-op when the status is unchanged. On change, the buyer and every
// outlet with a line in the order are notified.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. --- Fetch Current State ---
	row := h.DB.QueryRow("SELECT "+orderColumns+" FROM orders o WHERE o.id = ?", c.Param("id"))
	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	if o.Status == input.Status {
		c.JSON(http.StatusOK, gin.H{"message": "Status unchanged", "order": o})
		return
	}

	// 2. --- Persist ---
	if _, err := h.DB.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		input.Status, time.Now(), o.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	// 3. --- Fan Out Notifications ---
	items, err := h.orderItems(o.ID)
	if err != nil {
		h.Log.Warn("failed to load items for notification fan-out", zap.Int64("order_id", o.ID), zap.Error(err))
		items = nil
	}

	payload := gin.H{"orderId": o.ID, "orderNumber": o.OrderNumber, "status": input.Status}
	message := fmt.Sprintf("Order %s is now %s", o.OrderNumber, input.Status)

	if o.UserID != nil {
		h.Realtime.PublishToUser(c.Request.Context(), *o.UserID, "order:status", payload)
		if err := AddNotification(h.DB, *o.UserID, message, "/orders/"+fmt.Sprint(o.ID)); err != nil {
			h.Log.Warn("failed to persist buyer notification", zap.Error(err))
		}
	}
	for _, outletID := range distinctOutlets(items) {
		h.Realtime.PublishToOutlet(c.Request.Context(), outletID, "order:status", payload)
		if err := AddNotification(h.DB, outletID, message, "/outlet/orders/"+fmt.Sprint(o.ID)); err != nil {
			h.Log.Warn("failed to persist outlet notification", zap.Error(err))
		}
	}

	o.Status = input.Status
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": o})
}

// DeleteOrder is the handler for DELETE /api/route/deleteOrder/:id (admin only).
// Order and its items go in one transaction so a failure cannot orphan items.
func (h *Handlers) DeleteOrder(c *gin.Context) {
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM order_items WHERE order_id = ?", c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order items"})
		return
	}
	result, err := tx.Exec("DELETE FROM orders WHERE id = ?", c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// distinctOutlets returns each outlet id appearing in the items, once.
func distinctOutlets(items []models.OrderItem) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, it := range items {
		if !seen[it.OutletID] {
			seen[it.OutletID] = true
			out = append(out, it.OutletID)
		}
	}
	return out
}
