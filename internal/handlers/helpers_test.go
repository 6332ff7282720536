package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/auth"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/events"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/payments"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.SetSecret("test-secret")
}

// fakeBroadcaster records publishes instead of touching redis.
type fakeBroadcaster struct {
	userEvents   []string
	outletEvents []string
}

func (f *fakeBroadcaster) PublishToUser(_ context.Context, _ int64, event string, _ any) {
	f.userEvents = append(f.userEvents, event)
}

func (f *fakeBroadcaster) PublishToOutlet(_ context.Context, _ int64, event string, _ any) {
	f.outletEvents = append(f.outletEvents, event)
}

// fakePublisher records published envelopes instead of touching kafka.
type fakePublisher struct {
	published []events.Envelope
}

func (f *fakePublisher) Publish(env events.Envelope, _ []byte) {
	f.published = append(f.published, env)
}

// fakePaystack returns a canned verification result.
type fakePaystack struct {
	result payments.VerifyResult
	err    error
}

func (f *fakePaystack) VerifyTransaction(context.Context, string) (*payments.VerifyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := f.result
	return &result, nil
}

// fakeMomo returns a canned transaction status.
type fakeMomo struct {
	configured bool
	status     payments.MomoStatus
	err        error
}

func (f *fakeMomo) Configured() bool { return f.configured }

func (f *fakeMomo) TransactionStatus(context.Context, string) (*payments.MomoStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	return &status, nil
}

// newTestHandlers wires a Handlers with sqlmock and fake side effects.
func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock, *fakeBroadcaster, *fakePublisher) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rt := &fakeBroadcaster{}
	producer := &fakePublisher{}
	h := &Handlers{
		DB:       db,
		Log:      zap.NewNop(),
		Realtime: rt,
		Paystack: &fakePaystack{},
		Momo:     &fakeMomo{},
		Producer: producer,
	}
	return h, mock, rt, producer
}

// testContext builds a gin context carrying a JSON body.
func testContext(t *testing.T, method, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

// asUser stamps the auth middleware's context keys.
func asUser(c *gin.Context, userID int64, role string) {
	c.Set("userID", userID)
	c.Set("userRole", role)
}
