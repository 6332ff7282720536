package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

//
// --- Analytics Handlers ---
//

// SeriesPoint is one bucket of the sales-over-time series.
type SeriesPoint struct {
	Bucket     string  `json:"bucket"`
	Revenue    float64 `json:"revenue"`
	OrderCount int     `json:"orderCount"`
}

// CategoryRevenue is one slice of the category breakdown.
type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Units    int     `json:"units"`
}

// TopProduct is one entry of the top-products list.
type TopProduct struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Revenue   float64 `json:"revenue"`
	Units     int     `json:"units"`
}

// SalesSummary holds the headline totals.
type SalesSummary struct {
	TotalRevenue float64 `json:"totalRevenue"`
	OrderCount   int     `json:"orderCount"`
	AverageOrder float64 `json:"averageOrder"`
	ItemsSold    int     `json:"itemsSold"`
}

// analyticsWindow resolves the period/date query params into a time range
// and a bucketing expression. A specific date buckets by hour; daily by
// day-of-month, weekly by ISO week, monthly and yearly by month.
func analyticsWindow(c *gin.Context) (start, end time.Time, bucketExpr string, ok bool) {
	now := time.Now()

	if dateStr := c.Query("date"); dateStr != "" {
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return start, end, "", false
		}
		return day, day.Add(24 * time.Hour), "DATE_FORMAT(o.created_at, '%H:00')", true
	}

	switch c.DefaultQuery("period", "monthly") {
	case "daily":
		return now.AddDate(0, -1, 0), now, "DATE_FORMAT(o.created_at, '%Y-%m-%d')", true
	case "weekly":
		return now.AddDate(0, -3, 0), now, "DATE_FORMAT(o.created_at, '%x-W%v')", true
	case "monthly":
		return now.AddDate(-1, 0, 0), now, "DATE_FORMAT(o.created_at, '%Y-%m')", true
	case "yearly":
		return now.AddDate(-3, 0, 0), now, "DATE_FORMAT(o.created_at, '%Y-%m')", true
	default:
		return start, end, "", false
	}
}

// salesSeries runs the time-bucketed revenue/count aggregation. outletID of
// 0 means platform-wide.
func (h *Handlers) salesSeries(outletID int64, start, end time.Time, bucketExpr string) ([]SeriesPoint, error) {
	where := "o.created_at >= ? AND o.created_at < ?"
	args := []any{start, end}
	if outletID != 0 {
		where += " AND oi.outlet_id = ?"
		args = append(args, outletID)
	}

	query := `
		SELECT ` + bucketExpr + ` AS bucket,
		       COALESCE(SUM(oi.unit_price * oi.quantity), 0),
		       COUNT(DISTINCT oi.order_id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE ` + where + `
		GROUP BY bucket
		ORDER BY bucket`
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []SeriesPoint{}
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Bucket, &p.Revenue, &p.OrderCount); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// categoryBreakdown aggregates revenue per product category.
func (h *Handlers) categoryBreakdown(outletID int64, start, end time.Time) ([]CategoryRevenue, error) {
	where := "o.created_at >= ? AND o.created_at < ?"
	args := []any{start, end}
	if outletID != 0 {
		where += " AND oi.outlet_id = ?"
		args = append(args, outletID)
	}

	query := `
		SELECT p.category,
		       COALESCE(SUM(oi.unit_price * oi.quantity), 0),
		       COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE ` + where + `
		GROUP BY p.category
		ORDER BY 2 DESC`
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := []CategoryRevenue{}
	for rows.Next() {
		var cr CategoryRevenue
		if err := rows.Scan(&cr.Category, &cr.Revenue, &cr.Units); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, cr)
	}
	return breakdown, rows.Err()
}

// topProducts returns the five products with the most revenue in the window.
// Uses the snapshotted product name so deleted products still report.
func (h *Handlers) topProducts(outletID int64, start, end time.Time) ([]TopProduct, error) {
	where := "o.created_at >= ? AND o.created_at < ?"
	args := []any{start, end}
	if outletID != 0 {
		where += " AND oi.outlet_id = ?"
		args = append(args, outletID)
	}

	query := `
		SELECT oi.product_id, oi.product_name,
		       COALESCE(SUM(oi.unit_price * oi.quantity), 0) AS revenue,
		       COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE ` + where + `
		GROUP BY oi.product_id, oi.product_name
		ORDER BY revenue DESC
		LIMIT 5`
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := []TopProduct{}
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.Revenue, &tp.Units); err != nil {
			return nil, err
		}
		top = append(top, tp)
	}
	return top, rows.Err()
}

// salesSummary computes the headline totals for the window.
func (h *Handlers) salesSummary(outletID int64, start, end time.Time) (SalesSummary, error) {
	where := "o.created_at >= ? AND o.created_at < ?"
	args := []any{start, end}
	if outletID != 0 {
		where += " AND oi.outlet_id = ?"
		args = append(args, outletID)
	}

	var s SalesSummary
	query := `
		SELECT COALESCE(SUM(oi.unit_price * oi.quantity), 0),
		       COUNT(DISTINCT oi.order_id),
		       COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE ` + where
	if err := h.DB.QueryRow(query, args...).Scan(&s.TotalRevenue, &s.OrderCount, &s.ItemsSold); err != nil {
		return s, err
	}
	if s.OrderCount > 0 {
		s.AverageOrder = s.TotalRevenue / float64(s.OrderCount)
	}
	return s, nil
}

// runAnalytics fans the four aggregations out concurrently and assembles
// the dashboard payload.
func (h *Handlers) runAnalytics(c *gin.Context, outletID int64) {
	start, end, bucketExpr, ok := analyticsWindow(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period or date"})
		return
	}

	var (
		series    []SeriesPoint
		breakdown []CategoryRevenue
		top       []TopProduct
		summary   SalesSummary
	)

	g, _ := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		series, err = h.salesSeries(outletID, start, end, bucketExpr)
		return err
	})
	g.Go(func() (err error) {
		breakdown, err = h.categoryBreakdown(outletID, start, end)
		return err
	})
	g.Go(func() (err error) {
		top, err = h.topProducts(outletID, start, end)
		return err
	})
	g.Go(func() (err error) {
		summary, err = h.salesSummary(outletID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":           summary,
		"series":            series,
		"categoryBreakdown": breakdown,
		"topProducts":       top,
		"window": gin.H{
			"start": start,
			"end":   end,
		},
	})
}

// GetOutletAnalytics is the handler for GET /api/route/analytics/:outletId
func (h *Handlers) GetOutletAnalytics(c *gin.Context) {
	outletID, err := strconv.ParseInt(c.Param("outletId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid outlet ID"})
		return
	}

	// 1. --- Confirm the Outlet Exists ---
	var role string
	err = h.DB.QueryRow("SELECT role FROM users WHERE id = ?", outletID).Scan(&role)
	if err == sql.ErrNoRows || (err == nil && role != models.RoleOutlet && role != models.RoleAdmin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Outlet not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	// 2. --- Scope Check ---
	callerID := c.MustGet("userID").(int64)
	callerRole := c.MustGet("userRole").(string)
	if callerID != outletID && callerRole != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own analytics"})
		return
	}

	h.runAnalytics(c, outletID)
}

// GetAdminSalesReport is the handler for GET /api/route/analytics/admin/sales-report (Admin Only)
func (h *Handlers) GetAdminSalesReport(c *gin.Context) {
	h.runAnalytics(c, 0)
}
