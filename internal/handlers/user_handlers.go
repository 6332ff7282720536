package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/auth"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//
// --- Auth & User Handlers ---
//

// RegisterInput defines the JSON body for account creation. Outlets must
// supply a store name; customers must not need one.
type RegisterInput struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Role        string `json:"role" binding:"omitempty,oneof=user outlet"`

	StoreName        string `json:"storeName"`
	StoreDescription string `json:"storeDescription"`
}

// Register is the handler for POST /api/auth/create
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if role == models.RoleOutlet && input.StoreName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storeName is required for outlet accounts"})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 3. --- Insert ---
	now := time.Now()
	query := `
		INSERT INTO users
		(role, status, email, password_hash, name, phone_number, store_name, store_description, created_at, updated_at)
		VALUES (?, 'active', ?, ?, ?, ?, ?, ?, ?, ?)`

	var storeName, storeDesc any
	if role == models.RoleOutlet {
		storeName = input.StoreName
		if input.StoreDescription != "" {
			storeDesc = input.StoreDescription
		}
	}

	result, err := h.DB.Exec(query, role, input.Email, password.Hash, input.Name,
		input.PhoneNumber, storeName, storeDesc, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		h.Log.Error("user insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}
	userID, _ := result.LastInsertId()

	// 4. --- Issue Token ---
	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"token":   token,
		"user": gin.H{
			"id":    userID,
			"role":  role,
			"email": input.Email,
			"name":  input.Name,
		},
	})
}

// LoginInput defines the JSON body for login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. --- Fetch Account ---
	var user models.User
	query := `
		SELECT id, role, status, email, password_hash, name
		FROM users WHERE email = ?`
	err := h.DB.QueryRow(query, input.Email).Scan(
		&user.ID, &user.Role, &user.Status, &user.Email, &user.PasswordHash, &user.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	// 2. --- Check Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// 3. --- Gate on Status ---
	if user.Status != models.UserStatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
		return
	}

	// 4. --- Refresh Login Timestamp & Issue Token ---
	if _, err := h.DB.Exec("UPDATE users SET last_login_at = ? WHERE id = ?", time.Now(), user.ID); err != nil {
		h.Log.Warn("failed to refresh last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"role":  user.Role,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// GoogleSignInInput defines the JSON body for the Google sign-in upsert.
// The frontend has already exchanged the Google credential; we only get the
// verified profile fields.
type GoogleSignInInput struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

// GoogleSignIn is the handler for POST /api/auth/create/google
// It logs in an existing account by email, or creates one with a random
// password so the account can only ever be used via Google.
func (h *Handlers) GoogleSignIn(c *gin.Context) {
	var input GoogleSignInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID int64
	var role, status string
	err := h.DB.QueryRow("SELECT id, role, status FROM users WHERE email = ?", input.Email).
		Scan(&userID, &role, &status)

	switch {
	case err == sql.ErrNoRows:
		// New account. Random password, customer role.
		var password models.Password
		if err := password.Set(uuid.New().String()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}
		now := time.Now()
		result, err := h.DB.Exec(`
			INSERT INTO users (role, status, email, password_hash, name, phone_number, created_at, updated_at)
			VALUES ('user', 'active', ?, ?, ?, '', ?, ?)`,
			input.Email, password.Hash, input.Name, now, now)
		if err != nil {
			h.Log.Error("google sign-in insert failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}
		userID, _ = result.LastInsertId()
		role = models.RoleUser

	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return

	default:
		if status != models.UserStatusActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
			return
		}
	}

	if _, err := h.DB.Exec("UPDATE users SET last_login_at = ? WHERE id = ?", time.Now(), userID); err != nil {
		h.Log.Warn("failed to refresh last login", zap.Int64("user_id", userID), zap.Error(err))
	}

	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": userID, "role": role, "email": input.Email, "name": input.Name},
	})
}

// Logout is the handler for POST /api/auth/logout
// Tokens are stateless; the client drops its copy.
func (h *Handlers) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// UpdateProfileInput defines the JSON body for profile edits.
type UpdateProfileInput struct {
	Name             *string `json:"name"`
	PhoneNumber      *string `json:"phoneNumber"`
	StoreName        *string `json:"storeName"`
	StoreDescription *string `json:"storeDescription"`
}

// UpdateProfile is the handler for PUT /api/auth/update/:id
// A user may edit their own profile; admins may edit anyone's.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	callerID := c.MustGet("userID").(int64)
	callerRole := c.MustGet("userRole").(string)

	targetID := c.Param("id")
	if fmt.Sprint(callerID) != targetID && callerRole != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own profile"})
		return
	}

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Build the SET clause from only the supplied fields.
	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}
	if input.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *input.Name)
	}
	if input.PhoneNumber != nil {
		sets = append(sets, "phone_number = ?")
		args = append(args, *input.PhoneNumber)
	}
	if input.StoreName != nil {
		sets = append(sets, "store_name = ?")
		args = append(args, *input.StoreName)
	}
	if input.StoreDescription != nil {
		sets = append(sets, "store_description = ?")
		args = append(args, *input.StoreDescription)
	}
	args = append(args, targetID)

	result, err := h.DB.Exec("UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// GetAllUsers is the handler for GET /api/auth/get-all-users (admin only).
// Supports offset/limit pagination and a free-text search over name/email.
func (h *Handlers) GetAllUsers(c *gin.Context) {
	offset, limit := paginationParams(c)

	where := "1=1"
	args := []any{}
	if search := c.Query("search"); search != "" {
		where += " AND (name LIKE ? OR email LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	if role := c.Query("role"); role != "" {
		where += " AND role = ?"
		args = append(args, role)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	query := `
		SELECT id, role, status, email, name, phone_number, store_name, store_description, last_login_at, created_at, updated_at
		FROM users WHERE ` + where + `
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Role, &u.Status, &u.Email, &u.Name, &u.PhoneNumber,
			&u.StoreName, &u.StoreDescription, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user"})
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

// UpdateUserRoleInput defines the JSON body for role changes.
type UpdateUserRoleInput struct {
	Role string `json:"role" binding:"required,oneof=user outlet admin"`
}

// UpdateUserRole is the handler for PUT /api/auth/role/:id (admin only).
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	var input UpdateUserRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec("UPDATE users SET role = ?, updated_at = ? WHERE id = ?",
		input.Role, time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

// DeleteUser is the handler for DELETE /api/auth/delete/:id (admin only).
// Deleting the last remaining admin is refused so the platform cannot lock
// itself out.
func (h *Handlers) DeleteUser(c *gin.Context) {
	targetID := c.Param("id")

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 1. --- Fetch & Lock the Target ---
	var role string
	err = tx.QueryRow("SELECT role FROM users WHERE id = ? FOR UPDATE", targetID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	// 2. --- Last-Admin Guard ---
	if role == models.RoleAdmin {
		var adminCount int
		if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&adminCount); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count admins"})
			return
		}
		if adminCount <= 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete the last admin account"})
			return
		}
	}

	// 3. --- Delete & Commit ---
	if _, err := tx.Exec("DELETE FROM users WHERE id = ?", targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// isDuplicateKey reports whether err is a MySQL unique-constraint violation.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
