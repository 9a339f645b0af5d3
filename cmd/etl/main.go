package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/station-availability-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/station-availability-etl/internal/adapter/kafka"
	"github.com/couchcryptid/station-availability-etl/internal/adapter/postgres"
	"github.com/couchcryptid/station-availability-etl/internal/adapter/rediscache"
	"github.com/couchcryptid/station-availability-etl/internal/adapter/sheet"
	"github.com/couchcryptid/station-availability-etl/internal/config"
	"github.com/couchcryptid/station-availability-etl/internal/observability"
	"github.com/couchcryptid/station-availability-etl/internal/pipeline"
)

// incidentStore is a carry-over backend: it persists each report and serves
// the latest incident per station as the next period's previous records.
type incidentStore interface {
	pipeline.Loader
	pipeline.CarryoverSource
	sharedobs.ReadinessChecker
}

// service gates readiness on both the pipeline and the incident store.
type service struct {
	*pipeline.Pipeline
	store sharedobs.ReadinessChecker
}

func (s service) CheckReadiness(ctx context.Context) error {
	if err := s.Pipeline.CheckReadiness(ctx); err != nil {
		return err
	}
	if s.store != nil {
		return s.store.CheckReadiness(ctx)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loaders := []pipeline.Loader{sheet.NewWriter(cfg.ReportsDir, logger)}
	var closers []func()

	// Carry-over store (INCIDENT_STORE=none|postgres|redis).
	var store incidentStore
	switch cfg.IncidentStore {
	case config.StorePostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			logger.Error("failed to migrate incident store", "error", err)
			os.Exit(1)
		}
		store = pg
		closers = append(closers, pg.Close)
	case config.StoreRedis:
		rc, err := rediscache.New(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = rc
		closers = append(closers, func() {
			if err := rc.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		})
	}
	if store != nil {
		loaders = append(loaders, store)
		logger.Info("incident store enabled", "backend", cfg.IncidentStore)
	} else {
		logger.Info("incident store disabled, carry-over uses in-memory reports")
	}

	// Priority event stream (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewPublisher(cfg, logger)
		loaders = append(loaders, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		})
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	consolidator := pipeline.NewConsolidator(cfg.Thresholds, cfg.PeriodDays, cfg.ExcludedVariables, logger)
	p := pipeline.New(consolidator, loaders, logger, metrics)

	var carryover pipeline.CarryoverSource = pipeline.MemoryCarryover{P: p}
	svc := service{Pipeline: p}
	if store != nil {
		carryover = store
		svc.store = store
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, carryover, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		c()
	}

	logger.Info("shutdown complete")
}
