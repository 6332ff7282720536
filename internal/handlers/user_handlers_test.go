package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	var password models.Password
	require.NoError(t, password.Set("correct-horse"))

	loginRow := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "role", "status", "email", "password_hash", "name"}).
			AddRow(5, "user", status, "ama@example.com", password.Hash, "Ama")
	}

	t.Run("Success", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT id, role, status, email, password_hash, name FROM users WHERE email = \?`).
			WithArgs("ama@example.com").
			WillReturnRows(loginRow("active"))
		mock.ExpectExec(`UPDATE users SET last_login_at = \?`).
			WithArgs(sqlmock.AnyArg(), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, w := testContext(t, "POST", "/api/auth/login", gin.H{
			"email": "ama@example.com", "password": "correct-horse",
		})
		h.Login(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "token")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("WrongPassword", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT id, role, status, email, password_hash, name FROM users WHERE email = \?`).
			WithArgs("ama@example.com").
			WillReturnRows(loginRow("active"))

		c, w := testContext(t, "POST", "/api/auth/login", gin.H{
			"email": "ama@example.com", "password": "wrong",
		})
		h.Login(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InactiveAccountForbidden", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectQuery(`SELECT id, role, status, email, password_hash, name FROM users WHERE email = \?`).
			WithArgs("ama@example.com").
			WillReturnRows(loginRow("inactive"))

		c, w := testContext(t, "POST", "/api/auth/login", gin.H{
			"email": "ama@example.com", "password": "correct-horse",
		})
		h.Login(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "inactive")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegister_OutletRequiresStoreName(t *testing.T) {
	h, mock, _, _ := newTestHandlers(t)

	c, w := testContext(t, "POST", "/api/auth/create", gin.H{
		"name":        "Kofi",
		"email":       "kofi@example.com",
		"password":    "longenough",
		"phoneNumber": "0244000000",
		"role":        "outlet",
	})
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "storeName")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	t.Run("LastAdminProtected", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT role FROM users WHERE id = \? FOR UPDATE`).
			WithArgs("1").
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role = 'admin'`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		c, w := testContext(t, "DELETE", "/api/auth/delete/1", nil)
		c.Params = []gin.Param{{Key: "id", Value: "1"}}
		asUser(c, 1, "admin")
		h.DeleteUser(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "last admin")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DeletesRegularUser", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT role FROM users WHERE id = \? FOR UPDATE`).
			WithArgs("7").
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("user"))
		mock.ExpectExec(`DELETE FROM users WHERE id = \?`).
			WithArgs("7").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, w := testContext(t, "DELETE", "/api/auth/delete/7", nil)
		c.Params = []gin.Param{{Key: "id", Value: "7"}}
		asUser(c, 1, "admin")
		h.DeleteUser(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SecondAdminDeletable", func(t *testing.T) {
		h, mock, _, _ := newTestHandlers(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT role FROM users WHERE id = \? FOR UPDATE`).
			WithArgs("2").
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role = 'admin'`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec(`DELETE FROM users WHERE id = \?`).
			WithArgs("2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, w := testContext(t, "DELETE", "/api/auth/delete/2", nil)
		c.Params = []gin.Param{{Key: "id", Value: "2"}}
		asUser(c, 1, "admin")
		h.DeleteUser(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
