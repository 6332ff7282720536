package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/events"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/metrics"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- Payment Handlers ---
//

// RecordPaymentInput defines the JSON body for recording a payment that was
// verified out-of-band. No gateway call is made here.
type RecordPaymentInput struct {
	OrderID   int64   `json:"orderId" binding:"required"`
	Reference string  `json:"reference" binding:"required"`
	Provider  string  `json:"provider" binding:"required,oneof=paystack mtn_momo manual"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Status    string  `json:"status" binding:"required,oneof=pending paid failed"`
	Channel   string  `json:"channel"`
	Currency  string  `json:"currency"`
}

// RecordPayment is the handler for POST /api/route/payments/save
func (h *Handlers) RecordPayment(c *gin.Context) {
	var input RecordPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *int64
	if raw, exists := c.Get("userID"); exists {
		id := raw.(int64)
		userID = &id
	}

	currency := input.Currency
	if currency == "" {
		currency = "GHS"
	}
	var channel any
	if input.Channel != "" {
		channel = input.Channel
	}

	query := `
		INSERT INTO payments
		(order_id, user_id, reference, provider, amount, status, channel, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, input.OrderID, userID, input.Reference, input.Provider,
		input.Amount, input.Status, channel, currency, time.Now())
	if err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "A payment with this reference already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
		return
	}
	paymentID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"message": "Payment recorded", "paymentId": paymentID})
}

// VerifyPaystackInput carries the order the reference belongs to.
type VerifyPaystackInput struct {
	OrderID int64 `json:"orderId" binding:"required"`
}

// VerifyPaystack is the handler for POST /api/route/paystack/verify/:reference
// Fails closed: if Paystack does not report success, nothing is persisted
// and the client gets a 400.
func (h *Handlers) VerifyPaystack(c *gin.Context) {
	reference := c.Param("reference")

	var input VerifyPaystackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. --- Ask the Gateway ---
	result, err := h.Paystack.VerifyTransaction(c.Request.Context(), reference)
	if err != nil {
		h.Log.Error("paystack verification failed", zap.String("reference", reference), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment verification failed"})
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment was not successful"})
		return
	}

	// 2. --- Apply to the Order ---
	var userID *int64
	if raw, exists := c.Get("userID"); exists {
		id := raw.(int64)
		userID = &id
	}

	payload := events.PaymentVerifiedPayload{
		OrderID:   input.OrderID,
		UserID:    userID,
		Reference: reference,
		Provider:  models.ProviderPaystack,
		Amount:    result.Amount,
		Status:    models.PaymentStatusPaid,
	}
	if err := h.ApplyVerifiedPayment(c.Request.Context(), payload); err != nil {
		h.Log.Error("failed to apply verified payment", zap.String("reference", reference), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Payment verified",
		"reference": reference,
		"amount":    result.Amount,
	})
}

// MomoWebhookInput is the self-reported transaction state MTN posts to us.
type MomoWebhookInput struct {
	OrderID int64   `json:"orderId" binding:"required"`
	Status  string  `json:"status" binding:"required"`
	Amount  float64 `json:"amount"`
}

// MomoWebhook is the handler for POST /api/route/mtn-momo/verify/:transactionId
// The provider retries on anything but a 2xx, so we acknowledge first and do
// the verification work asynchronously: query MTN when credentials are
// configured (falling back to the webhook's own status otherwise), then
// publish the outcome to the payment queue. The consumer applies it to the
// order exactly once.
func (h *Handlers) MomoWebhook(c *gin.Context) {
	transactionID := c.Param("transactionId")

	var input MomoWebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Acknowledge before doing any work.
	c.JSON(http.StatusOK, gin.H{"received": true})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status := normalizeMomoStatus(input.Status)
		amount := input.Amount

		if h.Momo.Configured() {
			momoStatus, err := h.Momo.TransactionStatus(ctx, transactionID)
			if err != nil {
				h.Log.Error("MTN status query failed, using webhook status",
					zap.String("transaction_id", transactionID), zap.Error(err))
			} else {
				status = normalizeMomoStatus(momoStatus.Status)
				if momoStatus.Amount > 0 {
					amount = momoStatus.Amount
				}
			}
		}

		if status == "" {
			h.Log.Warn("ignoring MoMo webhook with indeterminate status",
				zap.String("transaction_id", transactionID), zap.String("raw_status", input.Status))
			return
		}

		env, err := events.NewPaymentVerified("breakfast-factory-api", events.PaymentVerifiedPayload{
			OrderID:   input.OrderID,
			Reference: transactionID,
			Provider:  models.ProviderMTNMoMo,
			Amount:    amount,
			Status:    status,
		})
		if err != nil {
			h.Log.Error("failed to build payment event", zap.Error(err))
			return
		}
		h.Producer.Publish(env, events.PartitionKey(input.OrderID))
	}()
}

// normalizeMomoStatus maps MTN statuses onto payment statuses. Pending and
// unknown states map to "", meaning nothing should be applied yet.
func normalizeMomoStatus(s string) string {
	switch s {
	case "SUCCESSFUL", "success", "paid":
		return models.PaymentStatusPaid
	case "FAILED", "failed":
		return models.PaymentStatusFailed
	default:
		return ""
	}
}

// ApplyVerifiedPayment records the payment and moves the order's payment
// state, then notifies the buyer. Shared by the synchronous Paystack flow
// and the queue consumer. Payment rows are append-only; a replayed
// reference is treated as already applied.
func (h *Handlers) ApplyVerifiedPayment(ctx context.Context, p events.PaymentVerifiedPayload) error {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. --- Insert the Payment Row ---
	query := `
		INSERT INTO payments
		(order_id, user_id, reference, provider, amount, status, channel, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, 'GHS', ?)`
	if _, err := tx.Exec(query, p.OrderID, p.UserID, p.Reference, p.Provider, p.Amount, p.Status, time.Now()); err != nil {
		if isDuplicateKey(err) {
			h.Log.Info("payment reference already applied", zap.String("reference", p.Reference))
			return nil
		}
		return err
	}

	// 2. --- Move the Order's Payment State ---
	orderPayment := models.OrderPaymentPaid
	if p.Status == models.PaymentStatusFailed {
		orderPayment = models.OrderPaymentFailed
	}
	result, err := tx.Exec("UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?",
		orderPayment, time.Now(), p.OrderID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	metrics.PaymentEventsApplied.WithLabelValues(p.Provider, p.Status).Inc()

	// 3. --- Notify the Buyer ---
	if p.UserID != nil {
		h.Realtime.PublishToUser(ctx, *p.UserID, "payment:"+p.Status, gin.H{
			"orderId":   p.OrderID,
			"reference": p.Reference,
			"amount":    p.Amount,
		})
	}

	return nil
}

// GetOutletPayments is the handler for GET /api/route/payments/outlet/:outletId
// Payments for orders that contain at least one of the outlet's items.
func (h *Handlers) GetOutletPayments(c *gin.Context) {
	offset, limit := paginationParams(c)

	query := `
		SELECT DISTINCT p.id, p.order_id, p.user_id, p.reference, p.provider,
		       p.amount, p.status, p.channel, p.currency, p.created_at
		FROM payments p
		JOIN order_items oi ON oi.order_id = p.order_id
		WHERE oi.outlet_id = ?
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, c.Param("outletId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	paymentsList := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Reference, &p.Provider,
			&p.Amount, &p.Status, &p.Channel, &p.Currency, &p.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan payment"})
			return
		}
		paymentsList = append(paymentsList, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": paymentsList})
}
