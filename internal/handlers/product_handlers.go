package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

//
// --- Product Handlers ---
//

// CreateProductInput defines the JSON body for creating a catalog item.
type CreateProductInput struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Quantity    int     `json:"quantity" binding:"gte=0"`
	ImageURL    string  `json:"imageUrl"`
}

// CreateProduct is the handler for POST /api/route/products (outlet only).
func (h *Handlers) CreateProduct(c *gin.Context) {
	outletID := c.MustGet("userID").(int64)

	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var imageURL any
	if input.ImageURL != "" {
		imageURL = input.ImageURL
	}

	now := time.Now()
	query := `
		INSERT INTO products
		(outlet_id, name, slug, description, category, price, quantity, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, outletID, input.Name, slug.Make(input.Name),
		input.Description, input.Category, input.Price, input.Quantity, imageURL, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	productID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Product created",
		"productId": productID,
	})
}

// GetAllProducts is the handler for GET /api/route/allproducts
// Public catalog listing with pagination, free-text search and a category
// filter. An outletId query narrows to one seller's catalog.
func (h *Handlers) GetAllProducts(c *gin.Context) {
	offset, limit := paginationParams(c)

	where := "1=1"
	args := []any{}
	if search := c.Query("search"); search != "" {
		where += " AND p.name LIKE ?"
		args = append(args, "%"+search+"%")
	}
	if category := c.Query("category"); category != "" {
		where += " AND p.category = ?"
		args = append(args, category)
	}
	if outletID := c.Query("outletId"); outletID != "" {
		where += " AND p.outlet_id = ?"
		args = append(args, outletID)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products p WHERE "+where, args...).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return
	}

	query := `
		SELECT p.id, p.outlet_id, p.name, p.slug, p.description, p.category,
		       p.price, p.quantity, p.image_url, p.created_at, p.updated_at,
		       u.store_name
		FROM products p
		JOIN users u ON p.outlet_id = u.id
		WHERE ` + where + `
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := h.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		var storeName sql.NullString
		if err := rows.Scan(&p.ID, &p.OutletID, &p.Name, &p.Slug, &p.Description, &p.Category,
			&p.Price, &p.Quantity, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &storeName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		p.OutletName = storeName.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": total})
}

// GetProduct is the handler for GET /api/route/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	var p models.Product
	query := `
		SELECT id, outlet_id, name, slug, description, category, price, quantity, image_url, created_at, updated_at
		FROM products WHERE id = ?`
	err := h.DB.QueryRow(query, c.Param("id")).Scan(&p.ID, &p.OutletID, &p.Name, &p.Slug,
		&p.Description, &p.Category, &p.Price, &p.Quantity, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": p})
}

// UpdateProductInput defines the JSON body for product edits.
type UpdateProductInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	ImageURL    *string  `json:"imageUrl"`
}

// UpdateProduct is the handler for PUT /api/route/update/:id
// Only the owning outlet (or an admin) may edit a product.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	callerID := c.MustGet("userID").(int64)
	callerRole := c.MustGet("userRole").(string)

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Price != nil && *input.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than zero"})
		return
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity cannot be negative"})
		return
	}

	// 1. --- Ownership Check ---
	var ownerID int64
	err := h.DB.QueryRow("SELECT outlet_id FROM products WHERE id = ?", c.Param("id")).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if ownerID != callerID && callerRole != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this product"})
		return
	}

	// 2. --- Build & Run the Update ---
	sets := "updated_at = ?"
	args := []any{time.Now()}
	if input.Name != nil {
		sets += ", name = ?, slug = ?"
		args = append(args, *input.Name, slug.Make(*input.Name))
	}
	if input.Description != nil {
		sets += ", description = ?"
		args = append(args, *input.Description)
	}
	if input.Category != nil {
		sets += ", category = ?"
		args = append(args, *input.Category)
	}
	if input.Price != nil {
		sets += ", price = ?"
		args = append(args, *input.Price)
	}
	if input.Quantity != nil {
		sets += ", quantity = ?"
		args = append(args, *input.Quantity)
	}
	if input.ImageURL != nil {
		sets += ", image_url = ?"
		args = append(args, *input.ImageURL)
	}
	args = append(args, c.Param("id"))

	if _, err := h.DB.Exec("UPDATE products SET "+sets+" WHERE id = ?", args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated"})
}

// DeleteProduct is the handler for DELETE /api/route/delete/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	callerID := c.MustGet("userID").(int64)
	callerRole := c.MustGet("userRole").(string)

	var ownerID int64
	err := h.DB.QueryRow("SELECT outlet_id FROM products WHERE id = ?", c.Param("id")).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	if ownerID != callerID && callerRole != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this product"})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM products WHERE id = ?", c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// PurchaseInput defines the JSON body for a stock decrement.
type PurchaseInput struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// PurchaseProduct is the handler for PUT /api/route/purchase/:id
// Decrements available stock inside a transaction with the row locked, so
// concurrent purchases cannot oversell.
func (h *Handlers) PurchaseProduct(c *gin.Context) {
	var input PurchaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	// 1. --- Lock the Row & Check Stock ---
	var quantity int
	err = tx.QueryRow("SELECT quantity FROM products WHERE id = ? FOR UPDATE", c.Param("id")).Scan(&quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	if quantity < input.Quantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not enough stock available"})
		return
	}

	// 2. --- Decrement & Commit ---
	_, err = tx.Exec("UPDATE products SET quantity = quantity - ?, updated_at = ? WHERE id = ?",
		input.Quantity, time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
		return
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Purchase recorded",
		"remainingQuantity": quantity - input.Quantity,
	})
}
