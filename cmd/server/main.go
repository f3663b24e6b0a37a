package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hongminglow/papertrade/internal/config"
	"github.com/hongminglow/papertrade/internal/logging"
	"github.com/hongminglow/papertrade/internal/quote"
	"github.com/hongminglow/papertrade/internal/server"
	"github.com/hongminglow/papertrade/internal/storage"
	"github.com/hongminglow/papertrade/internal/storage/memory"
	"github.com/hongminglow/papertrade/internal/storage/postgres"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer store.Close()

	quotes := quote.NewClient(cfg.QuoteAPIURL, cfg.QuoteAPIKey, cfg.QuoteTimeout, cfg.QuoteRetries, log)

	srv, err := server.New(cfg, store, quotes, log)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}
	stopSweep, err := srv.ScheduleSessionSweep(cfg.SessionSweep)
	if err != nil {
		log.Fatalf("init session sweep: %v", err)
	}
	defer stopSweep()

	go func() {
		log.WithField("addr", cfg.HTTPAddress()).Info("papertrade listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("graceful shutdown error")
	}
}

func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.New(), nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL, log)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found; relying on existing environment")
	}
}
