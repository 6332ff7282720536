package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderTestColumns = []string{
	"id", "order_number", "user_id", "guest_name", "guest_email", "guest_phone",
	"shipping_address", "city", "phone_number", "total_price", "status", "payment_status",
	"created_at", "updated_at",
}

func orderRow(id int64, orderNumber, status string, userID any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderTestColumns).
		AddRow(id, orderNumber, userID, nil, nil, nil,
			"12 Ring Road", "Accra", "0244000000", 20.0, status, "unpaid", now, now)
}

func TestCreateOrder(t *testing.T) {
	t.Run("GuestWithoutContactRejected", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		c, w := testContext(t, "POST", "/api/route/createOrder", gin.H{
			"items":           []gin.H{{"productId": 1, "quantity": 2}},
			"shippingAddress": "12 Ring Road",
			"city":            "Accra",
			"phoneNumber":     "0244000000",
			"totalPrice":      20.0,
			"guestName":       "Ama",
			// guestEmail missing
		})
		h.CreateOrder(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "guestEmail")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SnapshotsProductAndStoresSubmittedTotal", func(t *testing.T) {
		h, mock, rt, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT outlet_id, name, price, image_url FROM products WHERE id = \?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"outlet_id", "name", "price", "image_url"}).
				AddRow(9, "Croissant", 10.0, nil))
		// The client-submitted total (999.99) is stored verbatim even though
		// the line items sum to 20.
		mock.ExpectExec(`INSERT INTO orders`).
			WithArgs(sqlmock.AnyArg(), int64(5), nil, nil, nil,
				"12 Ring Road", "Accra", "0244000000", 999.99, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(42, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(int64(42), int64(1), int64(9), "Croissant", 10.0, nil, 2).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		c, w := testContext(t, "POST", "/api/route/createOrder", gin.H{
			"items":           []gin.H{{"productId": 1, "quantity": 2}},
			"shippingAddress": "12 Ring Road",
			"city":            "Accra",
			"phoneNumber":     "0244000000",
			"totalPrice":      999.99,
		})
		asUser(c, 5, "user")
		h.CreateOrder(c)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "999.99")
		assert.Equal(t, []string{"order:new"}, rt.outletEvents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownProductIs404", func(t *testing.T) {
		h, mock, rt, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT outlet_id, name, price, image_url FROM products`).
			WithArgs(int64(77)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		c, w := testContext(t, "POST", "/api/route/createOrder", gin.H{
			"items":           []gin.H{{"productId": 77, "quantity": 1}},
			"shippingAddress": "12 Ring Road",
			"city":            "Accra",
			"phoneNumber":     "0244000000",
			"totalPrice":      5.0,
		})
		asUser(c, 5, "user")
		h.CreateOrder(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Product with id 77 not found")
		assert.Empty(t, rt.outletEvents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("NoOpWhenUnchanged", func(t *testing.T) {
		h, mock, rt, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT (.+) FROM orders o WHERE o.id = \?`).
			WithArgs("3").
			WillReturnRows(orderRow(3, "BF-ABC12345", "shipped", nil))

		c, w := testContext(t, "PUT", "/api/route/updateOrder/3", gin.H{"status": "shipped"})
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		asUser(c, 1, "admin")
		h.UpdateOrderStatus(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, rt.userEvents)
		assert.Empty(t, rt.outletEvents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ChangeFansOutToBuyerAndOutlets", func(t *testing.T) {
		h, mock, rt, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT (.+) FROM orders o WHERE o.id = \?`).
			WithArgs("3").
			WillReturnRows(orderRow(3, "BF-ABC12345", "pending", int64(5)))
		mock.ExpectExec(`UPDATE orders SET status = \?`).
			WithArgs("processing", sqlmock.AnyArg(), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM order_items WHERE order_id = \?`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "outlet_id",
				"product_name", "unit_price", "image_url", "quantity"}).
				AddRow(1, 3, 1, 9, "Croissant", 10.0, nil, 2))
		// Buyer notification row, then one per distinct outlet.
		mock.ExpectExec(`INSERT INTO notifications`).
			WithArgs(int64(5), "Order BF-ABC12345 is now processing", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO notifications`).
			WithArgs(int64(9), "Order BF-ABC12345 is now processing", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))

		c, w := testContext(t, "PUT", "/api/route/updateOrder/3", gin.H{"status": "processing"})
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		asUser(c, 1, "admin")
		h.UpdateOrderStatus(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"order:status"}, rt.userEvents)
		assert.Equal(t, []string{"order:status"}, rt.outletEvents)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Run("RemovesOrderAndItemsAtomically", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM order_items WHERE order_id = \?`).
			WithArgs("3").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM orders WHERE id = \?`).
			WithArgs("3").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, w := testContext(t, "DELETE", "/api/route/deleteOrder/3", nil)
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		asUser(c, 1, "admin")
		h.DeleteOrder(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ItemDeleteFailureRollsBack", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM order_items WHERE order_id = \?`).
			WithArgs("3").
			WillReturnError(errors.New("lock wait timeout"))
		mock.ExpectRollback()

		c, w := testContext(t, "DELETE", "/api/route/deleteOrder/3", nil)
		c.Params = []gin.Param{{Key: "id", Value: "3"}}
		asUser(c, 1, "admin")
		h.DeleteOrder(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownOrderIs404", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM order_items WHERE order_id = \?`).
			WithArgs("99").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM orders WHERE id = \?`).
			WithArgs("99").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		c, w := testContext(t, "DELETE", "/api/route/deleteOrder/99", nil)
		c.Params = []gin.Param{{Key: "id", Value: "99"}}
		asUser(c, 1, "admin")
		h.DeleteOrder(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
