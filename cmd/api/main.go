package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/moritahq/clinic-reserve-bot/internal/api/router"
	"github.com/moritahq/clinic-reserve-bot/internal/bot"
	appconfig "github.com/moritahq/clinic-reserve-bot/internal/config"
	"github.com/moritahq/clinic-reserve-bot/internal/events"
	"github.com/moritahq/clinic-reserve-bot/internal/http/handlers"
	"github.com/moritahq/clinic-reserve-bot/internal/lineworks"
	observemetrics "github.com/moritahq/clinic-reserve-bot/internal/observability/metrics"
	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
	"github.com/moritahq/clinic-reserve-bot/internal/schedule"
	"github.com/moritahq/clinic-reserve-bot/internal/sheets"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-reserve-bot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	scheduleSrc, err := schedule.NewFileSource(cfg.SchedulePath)
	if err != nil {
		logger.Error("failed to load schedule", "path", cfg.SchedulePath, "error", err)
		os.Exit(1)
	}

	store, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsFile: cfg.CredentialsFile,
		ActiveSheet:     cfg.ActiveSheet,
		HistorySheet:    cfg.HistorySheet,
		Logger:          logger.Component("sheets"),
	})
	if err != nil {
		logger.Error("failed to init sheets store", "error", err)
		os.Exit(1)
	}

	var processed *events.ProcessedStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		processed = events.NewProcessedStore(rdb, cfg.ProcessedTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, duplicate callback deliveries will not be filtered")
	}

	lw, err := lineworks.New(lineworks.Config{
		BotID:          cfg.BotID,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		ServiceAccount: cfg.ServiceAccount,
		PrivateKey:     cfg.PrivateKey,
		TokenURL:       cfg.TokenURL,
		BaseURL:        cfg.APIBaseURL,
		Logger:         logger.Component("lineworks"),
	})
	if err != nil {
		logger.Error("failed to init lineworks client", "error", err)
		os.Exit(1)
	}

	service := reservations.NewService(store, scheduleSrc, logger)

	sessions := bot.NewSessionStore(cfg.SessionTTL)
	engine := bot.NewHandler(service, sessions, logger.Component("bot"))

	webhookMetrics := observemetrics.NewWebhookMetrics(nil)

	callbackCfg := handlers.CallbackConfig{
		Bot:       engine,
		Sender:    lw,
		BotSecret: cfg.BotSecret,
		Logger:    logger,
		Metrics:   webhookMetrics,
	}
	if processed != nil {
		callbackCfg.Processed = processed
	}
	callback := handlers.NewCallbackHandler(callbackCfg)

	r := router.New(&router.Config{
		Logger:         logger,
		Callback:       callback,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Periodically evict abandoned dialog sessions.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := sessions.Sweep(); removed > 0 {
					logger.Info("swept stale dialog sessions", "removed", removed)
				}
				webhookMetrics.SetActiveSessions(sessions.Len())
			case <-sweepDone:
				return
			}
		}
	}()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
