package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"eventservices/internal/dispatch"
	"eventservices/internal/httpapi"
	"eventservices/internal/ledger"
	"eventservices/internal/notify"
	"eventservices/pkg/config"
	"eventservices/pkg/db"
	"eventservices/pkg/logging"
	"eventservices/pkg/mail"
	"eventservices/pkg/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.ServiceName, cfg.AppEnv)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Error("db open", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			logger.Error("migrate", "err", err)
			os.Exit(1)
		}
	}

	locker, closeLocker, err := newLocker(cfg, logger)
	if err != nil {
		logger.Error("ledger locker", "err", err)
		os.Exit(1)
	}
	defer closeLocker()
	bookings := ledger.New(ledger.NewPostgresStore(conn), locker)

	queue := dispatch.NewQueue(dispatch.Config{
		Workers:     cfg.Dispatch.Workers,
		Buffer:      cfg.Dispatch.Buffer,
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		BaseBackoff: cfg.Dispatch.BaseBackoff,
		MaxBackoff:  cfg.Dispatch.MaxBackoff,
		Jitter:      cfg.Dispatch.Jitter,
		JobTimeout:  cfg.Dispatch.JobTimeout,
	}, dispatch.NewPostgresDeliveryLog(conn), logger)

	var wa whatsapp.Sender
	if cfg.WhatsApp.URL != "" {
		wa = whatsapp.Client{
			HTTPClient:  &http.Client{Timeout: 15 * time.Second},
			BaseURL:     cfg.WhatsApp.URL,
			AccessToken: cfg.WhatsApp.AccessToken,
			SenderID:    cfg.WhatsApp.SenderID,
		}
	}
	notify.Register(queue, mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From), wa, logger)

	// Cancelling workerCtx after the server stops ends intake; handlers already
	// running finish within the job timeout and unsent jobs are marked failed.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(workerCtx)
	}()

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:    cfg,
		DB:     conn,
		Logger: logger,
		Ledger: bookings,
		Queue:  queue,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	stopWorkers()
	wg.Wait()
	logger.Info("shutdown complete")
}

func newLocker(cfg config.Config, logger *slog.Logger) (ledger.Locker, func(), error) {
	if cfg.LedgerLocker != "redis" {
		return ledger.NewKeyedMutex(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	logger.Info("ledger using redis locks", "addr", opts.Addr)
	return ledger.NewRedisLocker(rdb, 10*time.Second, 5*time.Second), func() { _ = rdb.Close() }, nil
}
