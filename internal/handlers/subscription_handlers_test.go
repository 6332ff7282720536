package handlers

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscriptionRow(id int64, plan string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "plan", "price", "features", "status",
		"start_date", "end_date", "created_at", "updated_at"}).
		AddRow(id, 5, plan, 199.0, `["Unlimited products"]`, "active",
			now, now.AddDate(0, 1, 0), now, now)
}

func TestCreateSubscription(t *testing.T) {
	t.Run("BypassGrantSkipsSubscription", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM feature_overrides`).
			WithArgs(int64(5), "subscription_bypass").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		c, w := testContext(t, "POST", "/api/route/subscriptions/create", gin.H{"plan": "pro"})
		asUser(c, 5, "outlet")
		h.CreateSubscription(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"bypassed":true`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SecondActiveSubscriptionRejected", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM feature_overrides`).
			WithArgs(int64(5), "subscription_bypass").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT (.+) FROM subscriptions`).
			WithArgs(int64(5), "active", sqlmock.AnyArg()).
			WillReturnRows(subscriptionRow(2, "free"))

		c, w := testContext(t, "POST", "/api/route/subscriptions/create", gin.H{"plan": "pro"})
		asUser(c, 5, "outlet")
		h.CreateSubscription(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "already have an active subscription")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LapsedActiveRowDoesNotBlock", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM feature_overrides`).
			WithArgs(int64(5), "subscription_bypass").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		// The eligibility query must filter on end_date, not just status:
		// a lapsed row the expiry worker hasn't flipped yet matches neither.
		mock.ExpectQuery(`FROM subscriptions\s+WHERE user_id = \? AND status = \? AND end_date > \?`).
			WithArgs(int64(5), "active", sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO subscriptions`).
			WithArgs(int64(5), "pro", 199.0, sqlmock.AnyArg(), "active",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(8, 1))

		c, w := testContext(t, "POST", "/api/route/subscriptions/create", gin.H{"plan": "pro"})
		asUser(c, 5, "outlet")
		h.CreateSubscription(c)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FreePlanCreated", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM feature_overrides`).
			WithArgs(int64(5), "subscription_bypass").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT (.+) FROM subscriptions`).
			WithArgs(int64(5), "active", sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO subscriptions`).
			WithArgs(int64(5), "free", 0.0, sqlmock.AnyArg(), "active",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(7, 1))

		c, w := testContext(t, "POST", "/api/route/subscriptions/create", gin.H{"plan": "free"})
		asUser(c, 5, "outlet")
		h.CreateSubscription(c)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"plan":"free"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpgradeSubscription_AlreadyPro(t *testing.T) {
	h, mock, _, _ := newTestHandlers(t)

	mock.ExpectQuery(`SELECT (.+) FROM subscriptions`).
		WithArgs(int64(5), "active", sqlmock.AnyArg()).
		WillReturnRows(subscriptionRow(2, "pro"))

	c, w := testContext(t, "POST", "/api/route/subscriptions/upgrade", nil)
	asUser(c, 5, "outlet")
	h.UpgradeSubscription(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already on the pro plan")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSubscription_NoActive(t *testing.T) {
	h, mock, _, _ := newTestHandlers(t)

	mock.ExpectExec(`UPDATE subscriptions SET status = \?`).
		WithArgs("cancelled", sqlmock.AnyArg(), int64(5), "active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, w := testContext(t, "POST", "/api/route/subscriptions/cancel", nil)
	asUser(c, 5, "outlet")
	h.CancelSubscription(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOverdueSubscriptions(t *testing.T) {
	h, mock, rt, _ := newTestHandlers(t)

	mock.ExpectQuery(`SELECT id, user_id, plan FROM subscriptions`).
		WithArgs("active", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "plan"}).
			AddRow(2, 5, "free").
			AddRow(3, 6, "pro"))
	for _, id := range []int64{2, 3} {
		mock.ExpectExec(`UPDATE subscriptions SET status = \?`).
			WithArgs("expired", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO notifications`).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	h.ExpireOverdueSubscriptions(t.Context())

	assert.Equal(t, []string{"subscription:expired", "subscription:expired"}, rt.userEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}
