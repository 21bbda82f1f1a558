package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"robot-training-hub/api/rest/handlers"
	"robot-training-hub/api/rest/routes"
	"robot-training-hub/api/ws"
	"robot-training-hub/config"
	"robot-training-hub/core/monitoring"
	"robot-training-hub/core/repository"
	"robot-training-hub/core/simulator"
	"robot-training-hub/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket broadcaster and training simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}()

	artifacts, err := openArtifacts(ctx, cfg.Uploads)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	// the hub outlives the signal context so events published while shutting down still go out
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()

	hub := ws.NewHub(metrics)
	if cfg.Redis.Addr != "" {
		relay, err := ws.NewRedisRelay(ctx, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			return err
		}
		defer relay.Close()

		hub.SetRelay(relay)
		go func() {
			if err := relay.Forward(hubCtx, hub); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("redis event relay stopped")
			}
		}()
	}
	go hub.Run(hubCtx)

	manager := simulator.NewManager(store, hub,
		simulator.WithInterval(cfg.Simulator.TickInterval),
		simulator.WithObserver(metrics),
	)

	monitor := monitoring.NewJobMonitor(store, manager, metrics, cfg.Monitor.Interval)
	go monitor.Start(ctx)

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: routes.NewHandler(routes.Deps{
			Store:       store,
			Runner:      manager,
			Broadcaster: hub,
			Uploads:     handlers.NewUploads(artifacts, cfg.Uploads.MaxBytes),
			Metrics:     metrics,
			Gatherer:    reg,
			CORSOrigin:  cfg.Server.CORSOrigin,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
		}).Info("starting server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			manager.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shut down")
	}
	manager.Shutdown()
	cancelHub()

	log.Info("server exited")
	return nil
}

func openStore(ctx context.Context, c config.StoreConfig) (repository.Store, error) {
	switch c.Driver {
	case config.StorePostgres:
		db, err := repository.NewDB(c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewPostgresStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("database connected")
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func openArtifacts(ctx context.Context, c config.UploadsConfig) (storage.ArtifactStore, error) {
	if c.Backend == config.UploadsS3 {
		s3Store, err := storage.NewS3Store(ctx, c.S3Region, c.S3Bucket, c.S3Prefix)
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	local, err := storage.NewLocalStore(c.Dir)
	if err != nil {
		return nil, err
	}
	return local, nil
}
