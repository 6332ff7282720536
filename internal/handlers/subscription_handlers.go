package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- Subscription Handlers ---
//

// hasFeatureOverride reports whether an admin has granted the user a named
// feature outside the normal subscription flow.
func (h *Handlers) hasFeatureOverride(userID int64, feature string) (bool, error) {
	var count int
	err := h.DB.QueryRow(
		"SELECT COUNT(*) FROM feature_overrides WHERE user_id = ? AND feature = ?",
		userID, feature).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// activeSubscription returns the user's current non-expired active
// subscription, or sql.ErrNoRows when they have none. The end_date filter
// matters: the hourly worker flips lapsed rows to expired with a delay, and
// a lapsed row must not block a new subscription in the meantime.
func (h *Handlers) activeSubscription(userID int64) (models.Subscription, error) {
	var sub models.Subscription
	var featuresJSON []byte
	err := h.DB.QueryRow(`
		SELECT id, user_id, plan, price, features, status, start_date, end_date, created_at, updated_at
		FROM subscriptions
		WHERE user_id = ? AND status = ? AND end_date > ?
		ORDER BY end_date DESC LIMIT 1`,
		userID, models.SubscriptionStatusActive, time.Now()).
		Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Price, &featuresJSON, &sub.Status,
			&sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return sub, err
	}
	if len(featuresJSON) > 0 {
		_ = json.Unmarshal(featuresJSON, &sub.Features)
	}
	return sub, nil
}

// insertSubscription writes a new subscription row from a plan spec, with the
// window starting at start.
func (h *Handlers) insertSubscription(userID int64, plan string, spec models.PlanSpec, start time.Time) (models.Subscription, error) {
	featuresJSON, err := json.Marshal(spec.Features)
	if err != nil {
		return models.Subscription{}, err
	}

	end := spec.Expiry(start)
	query := `
		INSERT INTO subscriptions
		(user_id, plan, price, features, status, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, userID, plan, spec.Price, featuresJSON,
		models.SubscriptionStatusActive, start, end, time.Now(), time.Now())
	if err != nil {
		return models.Subscription{}, err
	}
	id, _ := result.LastInsertId()

	return models.Subscription{
		ID:        id,
		UserID:    userID,
		Plan:      plan,
		Price:     spec.Price,
		Features:  spec.Features,
		Status:    models.SubscriptionStatusActive,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// CreateSubscriptionInput defines the JSON body for starting a subscription.
type CreateSubscriptionInput struct {
	Plan string `json:"plan" binding:"required,oneof=free pro"`
}

// CreateSubscription is the handler for POST /api/route/subscriptions/create
func (h *Handlers) CreateSubscription(c *gin.Context) {
	var input CreateSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.MustGet("userID").(int64)

	// 1. --- Check for a Bypass Grant ---
	bypassed, err := h.hasFeatureOverride(userID, models.FeatureSubscriptionBypass)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if bypassed {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Subscription not required for this account",
			"bypassed": true,
		})
		return
	}

	// 2. --- Reject a Second Active Subscription ---
	if _, err := h.activeSubscription(userID); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You already have an active subscription"})
		return
	} else if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	// 3. --- Create the Subscription ---
	spec := models.PlanSpecs[input.Plan]
	sub, err := h.insertSubscription(userID, input.Plan, spec, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscription created", "subscription": sub})
}

// RenewSubscription is the handler for POST /api/route/subscriptions/renew
// Renewal keeps the latest plan and opens a fresh window from now, whether
// or not the previous window had already expired.
func (h *Handlers) RenewSubscription(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	var subID int64
	var plan, status string
	err := h.DB.QueryRow(`
		SELECT id, plan, status FROM subscriptions
		WHERE user_id = ?
		ORDER BY end_date DESC LIMIT 1`, userID).Scan(&subID, &plan, &status)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription found to renew"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	now := time.Now()
	if status == models.SubscriptionStatusActive {
		if _, err := h.DB.Exec("UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?",
			models.SubscriptionStatusExpired, now, subID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew subscription"})
			return
		}
	}

	sub, err := h.insertSubscription(userID, plan, models.PlanSpecs[plan], now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription renewed", "subscription": sub})
}

// UpgradeSubscription is the handler for POST /api/route/subscriptions/upgrade
func (h *Handlers) UpgradeSubscription(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	current, err := h.activeSubscription(userID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active subscription to upgrade"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if current.Plan == models.PlanPro {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are already on the pro plan"})
		return
	}

	now := time.Now()
	if _, err := h.DB.Exec("UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?",
		models.SubscriptionStatusExpired, now, current.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade subscription"})
		return
	}

	sub, err := h.insertSubscription(userID, models.PlanPro, models.PlanSpecs[models.PlanPro], now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription upgraded", "subscription": sub})
}

// CancelSubscription is the handler for POST /api/route/subscriptions/cancel
// The row is kept for auditing; only its status changes.
func (h *Handlers) CancelSubscription(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	result, err := h.DB.Exec(
		"UPDATE subscriptions SET status = ?, updated_at = ? WHERE user_id = ? AND status = ?",
		models.SubscriptionStatusCancelled, time.Now(), userID, models.SubscriptionStatusActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel subscription"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active subscription found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled"})
}

// GetUserSubscription is the handler for GET /api/route/subscriptions/user/:userId
func (h *Handlers) GetUserSubscription(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Self-or-admin.
	callerID := c.MustGet("userID").(int64)
	callerRole := c.MustGet("userRole").(string)
	if callerID != targetID && callerRole != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own subscription"})
		return
	}

	bypassed, err := h.hasFeatureOverride(targetID, models.FeatureSubscriptionBypass)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	sub, err := h.activeSubscription(targetID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusOK, gin.H{"subscription": nil, "bypassed": bypassed})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub, "bypassed": bypassed})
}

// GetAllSubscriptions is the handler for GET /api/route/subscriptions (Admin Only)
func (h *Handlers) GetAllSubscriptions(c *gin.Context) {
	offset, limit := paginationParams(c)

	statusFilter := c.Query("status")
	where := ""
	args := []any{}
	if statusFilter != "" {
		where = "WHERE s.status = ?"
		args = append(args, statusFilter)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM subscriptions s "+where, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	query := `
		SELECT s.id, s.user_id, s.plan, s.price, s.features, s.status,
		       s.start_date, s.end_date, s.created_at, s.updated_at, u.name
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id ` + where + `
		ORDER BY s.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		var sub models.Subscription
		var featuresJSON []byte
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Price, &featuresJSON, &sub.Status,
			&sub.StartDate, &sub.EndDate, &sub.CreatedAt, &sub.UpdatedAt, &sub.UserName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan subscription"})
			return
		}
		if len(featuresJSON) > 0 {
			_ = json.Unmarshal(featuresJSON, &sub.Features)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs, "total": total})
}

// GrantFeatureOverrideInput defines the JSON body for granting a feature.
type GrantFeatureOverrideInput struct {
	UserID  int64  `json:"userId" binding:"required"`
	Feature string `json:"feature" binding:"required"`
}

// GrantFeatureOverride is the handler for POST /api/route/feature-overrides (Admin Only)
func (h *Handlers) GrantFeatureOverride(c *gin.Context) {
	var input GrantFeatureOverrideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adminID := c.MustGet("userID").(int64)

	query := `
		INSERT INTO feature_overrides (user_id, feature, granted_by, created_at)
		VALUES (?, ?, ?, ?)`
	if _, err := h.DB.Exec(query, input.UserID, input.Feature, adminID, time.Now()); err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "This user already has that feature"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant feature"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Feature granted"})
}

// RevokeFeatureOverride is the handler for DELETE /api/route/feature-overrides (Admin Only)
func (h *Handlers) RevokeFeatureOverride(c *gin.Context) {
	var input GrantFeatureOverrideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec("DELETE FROM feature_overrides WHERE user_id = ? AND feature = ?",
		input.UserID, input.Feature)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke feature"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No such grant found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feature revoked"})
}

// ExpireOverdueSubscriptions flips active subscriptions whose window has
// closed to expired and tells the seller. Rows are never deleted. Runs on a
// ticker from main.
func (h *Handlers) ExpireOverdueSubscriptions(ctx context.Context) {
	rows, err := h.DB.Query(`
		SELECT id, user_id, plan FROM subscriptions
		WHERE status = ? AND end_date < ?`,
		models.SubscriptionStatusActive, time.Now())
	if err != nil {
		h.Log.Error("failed to query overdue subscriptions", zap.Error(err))
		return
	}
	defer rows.Close()

	type overdue struct {
		id     int64
		userID int64
		plan   string
	}
	var expired []overdue
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.id, &o.userID, &o.plan); err != nil {
			h.Log.Error("failed to scan overdue subscription", zap.Error(err))
			return
		}
		expired = append(expired, o)
	}
	if err := rows.Err(); err != nil {
		h.Log.Error("error iterating overdue subscriptions", zap.Error(err))
		return
	}

	for _, o := range expired {
		if _, err := h.DB.Exec("UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ?",
			models.SubscriptionStatusExpired, time.Now(), o.id); err != nil {
			h.Log.Error("failed to expire subscription", zap.Int64("subscription_id", o.id), zap.Error(err))
			continue
		}
		if err := AddNotification(h.DB, o.userID,
			"Your "+o.plan+" subscription has expired. Renew to keep selling.",
			"/subscriptions"); err != nil {
			h.Log.Warn("failed to notify subscriber of expiry", zap.Int64("user_id", o.userID), zap.Error(err))
		}
		h.Realtime.PublishToUser(ctx, o.userID, "subscription:expired", gin.H{
			"subscriptionId": o.id,
			"plan":           o.plan,
		})
	}
	if len(expired) > 0 {
		h.Log.Info("expired overdue subscriptions", zap.Int("count", len(expired)))
	}
}
