package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/vytor/verve/internal/api"
	"github.com/vytor/verve/internal/config"
	"github.com/vytor/verve/internal/db"
	"github.com/vytor/verve/internal/jobs"
	"github.com/vytor/verve/internal/logger"
	"github.com/vytor/verve/internal/repository/sqlite"
	"github.com/vytor/verve/internal/services"
	"github.com/vytor/verve/internal/session"
	"github.com/vytor/verve/internal/worker"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server stopped with error: %v", err)
		_ = logger.Default().Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(cfg.LogColors),
	)
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	log.Info("===========================================")
	log.Info("Verve Server Starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("write_queue_size=%d", cfg.WriteQueueSize)
	log.Debug("write_max_retries=%d", cfg.WriteMaxRetries)
	log.Debug("write_backoff=%s", cfg.WriteBackoff)
	log.Debug("snapshot_ttl=%s", cfg.SnapshotTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenContext(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		log.Debug("closing database connection")
		_ = database.Close()
	}()

	clock := clockwork.NewRealClock()
	setRepo := sqlite.NewSetRepository(database.DB)
	cardRepo := sqlite.NewCardRepository(database.DB)
	snapshotRepo := sqlite.NewSnapshotRepository(database.DB)

	setService := services.NewSetService(setRepo, cardRepo, snapshotRepo, clock)
	cardService := services.NewCardService(setRepo, cardRepo, clock)
	importService := services.NewImportService(setRepo, cardRepo, clock)

	writeQueue := worker.NewQueue(clock, worker.QueueConfig{
		Size:           cfg.WriteQueueSize,
		MaxRetries:     cfg.WriteMaxRetries,
		InitialBackoff: cfg.WriteBackoff,
	})
	writes := jobs.NewWorkerQueue(writeQueue, cardService)

	sessions := session.NewManager(session.Deps{
		Cards:     cardService,
		Writes:    writes,
		Snapshots: snapshotRepo,
		View:      session.LogView{Logger: log.WithPrefix("view")},
		Clock:     clock,
		Logger:    log,
	})

	maintenance := jobs.NewMaintenance(snapshotRepo, clock, cfg.SnapshotTTL, cfg.SnapshotPurgeInterval)

	srv := &api.Server{
		Sets:           setService,
		Cards:          cardService,
		Imports:        importService,
		Sessions:       sessions,
		Health:         database,
		MaxImportBytes: cfg.MaxImportBytes,
	}
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The queue outlives the request context so pending writes can drain
	// after the HTTP server stops.
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	writeQueue.Start(queueCtx)

	if err := maintenance.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error: %v", err)
		}
		maintenance.Stop()

		log.Debug("draining write queue (%d pending)", writeQueue.Pending())
		if err := writes.Wait(shutdownCtx); err != nil {
			log.Warn("write queue not drained: %v", err)
		}
		writeQueue.Stop()
		return nil
	})

	err = g.Wait()

	log.Info("===========================================")
	log.Info("Verve Server Stopped")
	log.Info("===========================================")
	return err
}
