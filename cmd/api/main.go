package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennis-owusu/breakfast-factory-golang/internal/ai"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/auth"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/config"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/database"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/events"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/handlers"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/logger"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/payments"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/realtime"
	"github.com/dennis-owusu/breakfast-factory-golang/internal/routes"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	envErr := godotenv.Load()
	cfg := config.Load()

	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.L()
	if envErr != nil {
		log.Info("no .env file found, relying on system environment variables")
	}

	auth.SetSecret(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. --- Database Connection ---
	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 2. --- Realtime (Redis Rooms + Dedup) ---
	rt := realtime.New(cfg.RedisAddr)
	if err := rt.Ping(ctx); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rt.Close()

	// 3. --- Payment Event Queue (Kafka) ---
	producer := events.NewProducer(cfg.KafkaBrokers, events.TopicPaymentVerified, 256, log)
	producer.Start(ctx)

	// 4. --- AI Service (Optional) ---
	var assistant *ai.Assistant
	if cfg.GeminiAPIKey != "" {
		assistant, err = ai.NewAssistant(ctx, cfg.GeminiAPIKey, db, log)
		if err != nil {
			log.Fatal("failed to initialize AI assistant", zap.Error(err))
		}
		defer assistant.Close()
	} else {
		log.Warn("GEMINI_API_KEY not set, AI assistant disabled")
	}

	// We inject ALL dependencies into the Handlers struct.
	app := &handlers.Handlers{
		DB:       db,
		Log:      log,
		Realtime: rt,
		Paystack: payments.NewPaystack(cfg.PaystackSecretKey, log),
		Momo:     payments.NewMomo(cfg.MTNAPIURL, cfg.MTNConsumerKey, cfg.MTNConsumerSecret, log),
		Producer: producer,
		AI:       assistant,
	}

	// 5. --- Payment Event Consumer ---
	consumer := events.NewConsumer(cfg.KafkaBrokers, "breakfast-factory-api",
		events.TopicPaymentVerified, rt, app.ApplyVerifiedPayment, log)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error("payment consumer stopped", zap.Error(err))
		}
	}()

	// 6. --- Background Workers (Cron) ---
	// Flips overdue active subscriptions to expired once an hour.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Info("background worker started, monitoring subscription expiry")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.ExpireOverdueSubscriptions(ctx)
			}
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app, cfg.CORSOrigin)

	// --- Start Server ---
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Info("starting API server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	producer.WaitClosed()
}
