package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- Restock Handlers ---
//

// CreateRestockRequestInput defines the JSON body for requesting a restock.
type CreateRestockRequestInput struct {
	ProductID         int64  `json:"productId" binding:"required"`
	RequestedQuantity int    `json:"requestedQuantity" binding:"required,gt=0"`
	Reason            string `json:"reason"`
}

// CreateRestockRequest is the handler for POST /api/route/restock (Outlet Only)
func (h *Handlers) CreateRestockRequest(c *gin.Context) {
	var input CreateRestockRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outletID := c.MustGet("userID").(int64)

	// 1. --- Snapshot the Product's Current Stock ---
	var ownerID int64
	var currentQuantity int
	err := h.DB.QueryRow("SELECT outlet_id, quantity FROM products WHERE id = ?", input.ProductID).
		Scan(&ownerID, &currentQuantity)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if ownerID != outletID && c.MustGet("userRole").(string) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only request restocks for your own products"})
		return
	}

	reason := input.Reason
	if reason == "" {
		reason = models.DefaultRestockReason
	}

	// 2. --- Create the Request ---
	query := `
		INSERT INTO restock_requests
		(product_id, outlet_id, requested_quantity, previous_quantity, reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, input.ProductID, ownerID, input.RequestedQuantity,
		currentQuantity, reason, models.RestockStatusPending, time.Now(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create restock request"})
		return
	}
	requestID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"message": "Restock request submitted", "requestId": requestID})
}

const restockColumns = `
	r.id, r.product_id, r.outlet_id, r.requested_quantity, r.previous_quantity,
	r.reason, r.status, r.admin_note, r.processed_by, r.processed_at,
	r.created_at, r.updated_at, p.name, u.name`

// listRestockRequests runs the shared paginated listing query. extraWhere
// scopes it ("" for admin, "r.outlet_id = ?" for outlets).
func (h *Handlers) listRestockRequests(c *gin.Context, extraWhere string, extraArgs []any) {
	offset, limit := paginationParams(c)

	where := ""
	args := []any{}
	if statusFilter := c.Query("status"); statusFilter != "" {
		where = "WHERE r.status = ?"
		args = append(args, statusFilter)
	}
	if extraWhere != "" {
		if where == "" {
			where = "WHERE " + extraWhere
		} else {
			where += " AND " + extraWhere
		}
		args = append(args, extraArgs...)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM restock_requests r "+where, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	query := `
		SELECT ` + restockColumns + `
		FROM restock_requests r
		JOIN products p ON p.id = r.product_id
		JOIN users u ON u.id = r.outlet_id ` + where + `
		ORDER BY r.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	requests := []models.RestockRequest{}
	for rows.Next() {
		var r models.RestockRequest
		if err := rows.Scan(&r.ID, &r.ProductID, &r.OutletID, &r.RequestedQuantity, &r.PreviousQuantity,
			&r.Reason, &r.Status, &r.AdminNote, &r.ProcessedBy, &r.ProcessedAt,
			&r.CreatedAt, &r.UpdatedAt, &r.ProductName, &r.OutletName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan restock request"})
			return
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"restockRequests": requests, "total": total})
}

// GetAllRestockRequests is the handler for GET /api/route/restock (Admin Only)
func (h *Handlers) GetAllRestockRequests(c *gin.Context) {
	h.listRestockRequests(c, "", nil)
}

// GetOutletRestockRequests is the handler for GET /api/route/restock/outlet/:outletId
func (h *Handlers) GetOutletRestockRequests(c *gin.Context) {
	h.listRestockRequests(c, "r.outlet_id = ?", []any{c.Param("outletId")})
}

// ProcessRestockRequestInput defines the JSON body for deciding a request.
type ProcessRestockRequestInput struct {
	Status    string `json:"status" binding:"required,oneof=approved rejected"`
	AdminNote string `json:"adminNote"`
}

// ProcessRestockRequest is the handler for PUT /api/route/restock/:id/process (Admin Only)
// The decision and the stock adjustment happen in one transaction under a
// row lock, so a request can only ever be decided once and an approval can
// never be applied twice.
func (h *Handlers) ProcessRestockRequest(c *gin.Context) {
	var input ProcessRestockRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adminID := c.MustGet("userID").(int64)

	// 1. --- Start Transaction ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 2. --- Lock the Request Row ---
	var request models.RestockRequest
	err = tx.QueryRow(`
		SELECT id, product_id, outlet_id, requested_quantity, status
		FROM restock_requests WHERE id = ? FOR UPDATE`, c.Param("id")).
		Scan(&request.ID, &request.ProductID, &request.OutletID, &request.RequestedQuantity, &request.Status)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restock request not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if request.Status != models.RestockStatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This request has already been processed"})
		return
	}

	// 3. --- Apply the Stock on Approval ---
	if input.Status == models.RestockStatusApproved {
		result, err := tx.Exec(
			"UPDATE products SET quantity = quantity + ?, updated_at = ? WHERE id = ?",
			request.RequestedQuantity, time.Now(), request.ProductID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product no longer exists"})
			return
		}
	}

	// 4. --- Record the Decision ---
	var adminNote any
	if input.AdminNote != "" {
		adminNote = input.AdminNote
	}
	_, err = tx.Exec(`
		UPDATE restock_requests
		SET status = ?, admin_note = ?, processed_by = ?, processed_at = ?, updated_at = ?
		WHERE id = ?`,
		input.Status, adminNote, adminID, time.Now(), time.Now(), request.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update restock request"})
		return
	}

	// 5. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	// 6. --- Tell the Outlet ---
	message := fmt.Sprintf("Your restock request #%d was %s", request.ID, input.Status)
	if err := AddNotification(h.DB, request.OutletID, message, "/restock"); err != nil {
		h.Log.Warn("failed to notify outlet of restock decision", zap.Int64("request_id", request.ID), zap.Error(err))
	}
	h.Realtime.PublishToOutlet(c.Request.Context(), request.OutletID, "restock:"+input.Status, gin.H{
		"requestId": request.ID,
		"productId": request.ProductID,
		"quantity":  request.RequestedQuantity,
	})
	h.Log.Info("restock request processed",
		zap.Int64("request_id", request.ID),
		zap.String("decision", input.Status),
		zap.Int64("admin_id", adminID))

	c.JSON(http.StatusOK, gin.H{"message": "Restock request " + input.Status})
}
