package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func roleContext(role string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	if role != "" {
		c.Set("userRole", role)
	}
	return c, w
}

func TestAdminMiddleware(t *testing.T) {
	t.Run("AdminPasses", func(t *testing.T) {
		c, w := roleContext("admin")
		AdminMiddleware()(c)
		assert.False(t, c.IsAborted())
		assert.NotEqual(t, http.StatusForbidden, w.Code)
	})

	t.Run("OutletDenied", func(t *testing.T) {
		c, w := roleContext("outlet")
		AdminMiddleware()(c)
		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("MissingRoleUnauthorized", func(t *testing.T) {
		c, w := roleContext("")
		AdminMiddleware()(c)
		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOutletMiddleware_AdminAlsoAllowed(t *testing.T) {
	for _, role := range []string{"outlet", "admin"} {
		c, _ := roleContext(role)
		OutletMiddleware()(c)
		assert.False(t, c.IsAborted(), "role %s should pass", role)
	}

	c, w := roleContext("user")
	OutletMiddleware()(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	limited := RateLimit(rate.Limit(0.001), 2)

	newReq := func() (*gin.Context, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/api/auth/login", nil)
		c.Request.RemoteAddr = "203.0.113.7:54321"
		return c, w
	}

	// Burst of 2 passes, the third is throttled.
	for i := 0; i < 2; i++ {
		c, w := newReq()
		limited(c)
		assert.False(t, c.IsAborted(), "request %d should pass", i)
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}

	c, w := newReq()
	limited(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different client is unaffected.
	c2, w2 := newReq()
	c2.Request.RemoteAddr = "198.51.100.9:40000"
	limited(c2)
	assert.False(t, c2.IsAborted())
	assert.NotEqual(t, http.StatusTooManyRequests, w2.Code)
}
