package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPurchaseProduct(t *testing.T) {
	t.Run("DecrementsStockUnderLock", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT quantity FROM products WHERE id = \? FOR UPDATE`).
			WithArgs("3").
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(10))
		mock.ExpectExec(`UPDATE products SET quantity = quantity - \?`).
			WithArgs(4, sqlmock.AnyArg(), "3").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, w := testContext(t, "PUT", "/api/route/purchase/3", gin.H{"quantity": 4})
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		asUser(c, 9, "outlet")
		h.PurchaseProduct(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"remainingQuantity":6`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientStockRejected", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT quantity FROM products WHERE id = \? FOR UPDATE`).
			WithArgs("3").
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))
		mock.ExpectRollback()

		c, w := testContext(t, "PUT", "/api/route/purchase/3", gin.H{"quantity": 4})
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		asUser(c, 9, "outlet")
		h.PurchaseProduct(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Not enough stock available")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
