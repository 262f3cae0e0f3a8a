package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callbridge/internal/auth"
	"callbridge/internal/callcontrol"
	"callbridge/internal/calls"
	"callbridge/internal/config"
	"callbridge/internal/httpapi"
	"callbridge/internal/metrics"
	"callbridge/internal/phone"
	"callbridge/internal/reporting"
	"callbridge/internal/signaling"
	"callbridge/internal/storage/postgres"
	"callbridge/internal/telephony"
	"callbridge/pkg/logger"
	"callbridge/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(rootCtx, db, log); err != nil {
		log.Error("postgres migrate failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	if cfg.Twilio.VerifyServiceSID == "" {
		log.Warn("TWILIO_VERIFY_SERVICE_SID not set; phone verification will fail")
	}

	// Storage and carrier
	phones := postgres.NewPhoneRepo(db)
	records := postgres.NewCallRepo(db)
	carrier := telephony.NewTwilioCarrier(telephony.TwilioConfig{
		AccountSID:       cfg.Twilio.AccountSID,
		AuthToken:        cfg.Twilio.AuthToken,
		VerifyServiceSID: cfg.Twilio.VerifyServiceSID,
	})
	callerID := calls.CallerIDPolicy{
		UsePlatformNumber: cfg.Twilio.UsePlatformNumber,
		PlatformNumber:    cfg.Twilio.FromNumber,
	}
	tokens := signaling.NewIssuer(phones, signaling.Credentials{
		AccountSID:   cfg.Twilio.AccountSID,
		APIKeySID:    cfg.Twilio.APIKeySID,
		APIKeySecret: cfg.Twilio.APIKeySecret,
		AppSID:       cfg.Twilio.TwiMLAppSID,
	})
	m := metrics.New()

	d := deps{
		cfg: cfg,
		db:  db,
		rdb: rdb,
		api: httpapi.Handlers{
			Auth:    authManager,
			Phones:  phone.NewService(phones, carrier, phone.NewRedisSessionStore(rdb)),
			Calls:   calls.NewService(phones, records, carrier, callerID, calls.NewCallbackURLs(cfg.App.PublicBaseURL)),
			Tokens:  tokens,
			Reports: reporting.NewService(reporting.NewStoreRepo(records)),
			Metrics: m,
		},
		webhooks: httpapi.Webhooks{
			Reconciler: calls.NewReconciler(records),
			Responder:  callcontrol.NewResponder(phones, records, callerID, cfg.Twilio.DialTimeoutSeconds),
			Metrics:    m,
		},
		metrics: m,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())

	// Route groups
	registerPublicRoutes(r, d) // webhooks, health, metrics
	registerAuthRoutes(r, d)
	registerProtectedRoutes(r, d, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "public_base_url", cfg.App.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("shutdown complete")
}
