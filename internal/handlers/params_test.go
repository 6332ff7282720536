package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationParams(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/getOrders", nil)
		offset, limit := paginationParams(c)
		assert.Equal(t, 0, offset)
		assert.Equal(t, 20, limit)
	})

	t.Run("OutOfBoundsClamped", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/getOrders?offset=-5&limit=5000", nil)
		offset, limit := paginationParams(c)
		assert.Equal(t, 0, offset)
		assert.Equal(t, 20, limit)
	})

	t.Run("Explicit", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/getOrders?offset=40&limit=10", nil)
		offset, limit := paginationParams(c)
		assert.Equal(t, 40, offset)
		assert.Equal(t, 10, limit)
	})
}

func TestDateRangeParams(t *testing.T) {
	t.Run("EndDateIsInclusive", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/getOrders?startDate=2026-01-01&endDate=2026-01-31", nil)
		start, end, ok := dateRangeParams(c)
		require.True(t, ok)
		require.NotNil(t, start)
		require.NotNil(t, end)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *start)
		// End of the last day, not its midnight.
		assert.Equal(t, 31, end.Day())
		assert.Equal(t, 23, end.Hour())
	})

	t.Run("MalformedDateRejected", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/getOrders?startDate=31-01-2026", nil)
		_, _, ok := dateRangeParams(c)
		assert.False(t, ok)
	})

	t.Run("AbsentIsOpenRange", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/getOrders", nil)
		start, end, ok := dateRangeParams(c)
		assert.True(t, ok)
		assert.Nil(t, start)
		assert.Nil(t, end)
	})
}

func TestAnalyticsWindow(t *testing.T) {
	t.Run("ExplicitDateBucketsByHour", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/analytics/9?date=2026-03-15", nil)
		start, end, bucket, ok := analyticsWindow(c)
		require.True(t, ok)
		assert.Equal(t, 24*time.Hour, end.Sub(start))
		assert.Contains(t, bucket, "%H")
	})

	t.Run("UnknownPeriodRejected", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/analytics/9?period=hourly", nil)
		_, _, _, ok := analyticsWindow(c)
		assert.False(t, ok)
	})

	t.Run("DefaultIsMonthly", func(t *testing.T) {
		c, _ := testContext(t, "GET", "/api/route/analytics/9", nil)
		_, _, bucket, ok := analyticsWindow(c)
		require.True(t, ok)
		assert.Equal(t, "DATE_FORMAT(o.created_at, '%Y-%m')", bucket)
	})
}
