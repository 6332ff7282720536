package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Notification Handlers ---
//

// execer lets AddNotification run against either the pool or a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// AddNotification persists one notification row. Called by other handlers
// alongside the realtime publish; the realtime copy is display-only while
// this row is the durable inbox entry.
func AddNotification(db execer, userID int64, message string, link string) error {
	var nullLink sql.NullString
	if link != "" {
		nullLink = sql.NullString{String: link, Valid: true}
	}

	query := `
		INSERT INTO notifications
		(user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`
	if _, err := db.Exec(query, userID, message, nullLink, time.Now()); err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// GetMyNotifications is the handler for GET /api/route/notifications
// Unread first, then newest first, capped at 50.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	query := `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`
	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /api/route/notifications/:id/read
// The user filter prevents marking someone else's notifications.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID := c.MustGet("userID").(int64)

	result, err := h.DB.Exec("UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?",
		c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
