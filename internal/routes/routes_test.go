package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/auth"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.SetSecret("test-secret")
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &handlers.Handlers{DB: db, Log: zap.NewNop()}
	return SetupRouter(h, "*"), mock
}

// A regular customer must be able to hit the purchase endpoint; it sits in
// the login-required group, not behind the outlet gate.
func TestPurchaseRouteReachableByCustomer(t *testing.T) {
	router, mock := newTestRouter(t)

	token, err := auth.GenerateToken(9)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT role, status FROM users WHERE id = \?`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"role", "status"}).AddRow("user", "active"))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT quantity FROM products WHERE id = \? FOR UPDATE`).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(10))
	mock.ExpectExec(`UPDATE products SET quantity = quantity - \?`).
		WithArgs(2, sqlmock.AnyArg(), "3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest(http.MethodPut, "/api/route/purchase/3",
		bytes.NewBufferString(`{"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remainingQuantity":8`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRouteRequiresLogin(t *testing.T) {
	router, mock := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/route/purchase/3",
		bytes.NewBufferString(`{"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
