package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rburns/chorepoint/internal/backup"
	"github.com/rburns/chorepoint/internal/billing"
	"github.com/rburns/chorepoint/internal/database"
	"github.com/rburns/chorepoint/internal/email"
	"github.com/rburns/chorepoint/internal/logging"
	"github.com/rburns/chorepoint/internal/push"
	"github.com/rburns/chorepoint/internal/server"
	"github.com/rburns/chorepoint/internal/smart"
	"github.com/rburns/chorepoint/internal/weather"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(os.Getenv("CHOREPOINT_LOG_LEVEL"), os.Getenv("CHOREPOINT_LOG_FORMAT"))

	port := envOr("CHOREPOINT_PORT", "8080")
	dbPath := envOr("CHOREPOINT_DB_PATH", "chorepoint.db")

	secret := os.Getenv("CHOREPOINT_JWT_SECRET")
	if secret == "" {
		log.Fatal("CHOREPOINT_JWT_SECRET is required")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	weatherSvc := weather.NewService(weather.Config{
		Latitude:        os.Getenv("CHOREPOINT_WEATHER_LAT"),
		Longitude:       os.Getenv("CHOREPOINT_WEATHER_LON"),
		TemperatureUnit: envOr("CHOREPOINT_WEATHER_UNITS", "fahrenheit"),
	})

	emailClient := email.NewClient(os.Getenv("POSTMARK_SERVER_TOKEN"), os.Getenv("POSTMARK_FROM_EMAIL"))

	suggestClient := smart.NewChatClient(os.Getenv("OPENAI_API_KEY"), envOr("OPENAI_MODEL", "gpt-4o-mini"))

	billingCfg := billing.Config{
		SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PremiumPriceID: os.Getenv("STRIPE_PREMIUM_PRICE_ID"),
		SuccessURL:     os.Getenv("STRIPE_SUCCESS_URL"),
		CancelURL:      os.Getenv("STRIPE_CANCEL_URL"),
	}

	backupHour, _ := strconv.Atoi(envOr("CHOREPOINT_BACKUP_HOUR", "3"))
	backupCfg := backup.Config{
		Endpoint:  os.Getenv("CHOREPOINT_S3_ENDPOINT"),
		Bucket:    os.Getenv("CHOREPOINT_S3_BUCKET"),
		Region:    envOr("CHOREPOINT_S3_REGION", "us-east-1"),
		AccessKey: os.Getenv("CHOREPOINT_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("CHOREPOINT_S3_SECRET_KEY"),
		DBPath:    dbPath,
		Hour:      backupHour,
	}

	vapidPub := os.Getenv("VAPID_PUBLIC_KEY")
	vapidPriv := os.Getenv("VAPID_PRIVATE_KEY")
	if vapidPub == "" || vapidPriv == "" {
		logger.Info("VAPID keys not configured, push notifications disabled")
		if os.Getenv("CHOREPOINT_GENERATE_VAPID") == "true" {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				log.Fatalf("generate VAPID keys: %v", err)
			}
			logger.Info("generated VAPID key pair", "public_key", pub, "private_key", priv)
			return
		}
	}

	srv := server.New(db, server.Config{
		Port:            port,
		FrontendOrigin:  os.Getenv("CHOREPOINT_FRONTEND_ORIGIN"),
		TokenSecret:     secret,
		VAPIDPublicKey:  vapidPub,
		VAPIDPrivateKey: vapidPriv,
		PushSubscriber:  os.Getenv("VAPID_SUBSCRIBER"),
	}, weatherSvc, emailClient, suggestClient, billingCfg, backupCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}
	if mgr := srv.BackupManager(); mgr.Enabled() {
		mgr.Start(ctx)
		defer mgr.Stop()
	}

	// Expired rate-limit windows accumulate without periodic cleanup.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("chorepoint listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
