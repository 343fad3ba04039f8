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

	"github.com/phpscreening/screener/internal/archive"
	"github.com/phpscreening/screener/internal/config"
	"github.com/phpscreening/screener/internal/events"
	"github.com/phpscreening/screener/internal/logger"
	"github.com/phpscreening/screener/internal/pdf"
	"github.com/phpscreening/screener/internal/screening"
	"github.com/phpscreening/screener/internal/storage"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := &server{log: log, cfg: cfg}

	var store screening.BlobStore = storage.NewMemory()
	if cfg.MinIO.Enabled() {
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		m, err := storage.NewMinIO(initCtx, storage.MinIOConfig{
			Endpoint:        cfg.MinIOEndpoint,
			AccessKeyID:     cfg.MinIOAccessKey,
			SecretAccessKey: cfg.MinIOSecretKey,
			Bucket:          cfg.MinIOBucket,
			UseSSL:          cfg.MinIOUseSSL,
		}, log)
		cancel()
		if err != nil {
			log.Error("init minio", slog.Any("err", err))
			os.Exit(1)
		}
		store = m
		srv.health = m.Health
	}

	opts := []screening.Option{
		screening.WithClassifyWindow(cfg.ClassifyWindow),
		screening.WithArchiveFolder(cfg.ArchiveFolder),
		screening.WithExtractTimeout(cfg.ExtractTimeout),
	}

	var publisher *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.EventBuffer, log)
		opts = append(opts, screening.WithPublisher(publisher))
	}

	srv.session = screening.NewSession(pdf.NewExtractor(), store, archive.Zip{}, log, opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.session.Run(ctx)
	}()
	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)
		if publisher != nil {
			publisher.Run(ctx)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr),
			slog.Bool("minio", cfg.MinIO.Enabled()), slog.Bool("kafka", publisher != nil))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
	<-done
	<-pubDone
	if publisher != nil && publisher.Dropped() > 0 {
		log.Warn("review events dropped", slog.Int64("count", publisher.Dropped()))
	}
}
