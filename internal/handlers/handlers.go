package handlers

import (
	"database/sql"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/ai"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/events"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/payments"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/realtime"
	"go.uber.org/zap"
)

// Handlers holds all dependencies for the HTTP handlers.
type Handlers struct {
	DB       *sql.DB
	Log      *zap.Logger
	Realtime realtime.Broadcaster
	Paystack payments.PaystackVerifier
	Momo     payments.MomoChecker
	Producer events.Publisher
	AI       *ai.Assistant
}
