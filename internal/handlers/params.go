package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// paginationParams reads offset/limit query params with sane bounds.
func paginationParams(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}

// dateRangeParams reads optional startDate/endDate query params (YYYY-MM-DD).
// ok is false when a supplied value is malformed.
func dateRangeParams(c *gin.Context) (start, end *time.Time, ok bool) {
	if s := c.Query("startDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, nil, false
		}
		start = &t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, nil, false
		}
		// Inclusive end of day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		end = &t
	}
	return start, end, true
}
