package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apppayables "github.com/erp/payables/internal/application/payables"
	"github.com/erp/payables/internal/infrastructure/cache"
	"github.com/erp/payables/internal/infrastructure/config"
	"github.com/erp/payables/internal/infrastructure/logger"
	"github.com/erp/payables/internal/infrastructure/persistence"
	"github.com/erp/payables/internal/infrastructure/telemetry"
)

// runtime owns the resources shared by every subcommand. Resources are
// opened on first use and released by close in reverse order.
type runtime struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	log     *zap.Logger
	db      *persistence.Database
	metrics *telemetry.CheckRunMetrics

	closers []func(context.Context) error
}

func (rt *runtime) init(ctx context.Context) error {
	cfg, err := config.LoadFile(rt.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if rt.logLevel != "" {
		cfg.Log.Level = rt.logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	log = log.With(
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	rt.cfg = cfg
	rt.log = log
	rt.onClose(func(context.Context) error {
		// Sync fails on console file descriptors; nothing useful to report
		_ = log.Sync()
		return nil
	})

	return rt.initTelemetry(ctx)
}

func (rt *runtime) initTelemetry(ctx context.Context) error {
	tc := rt.cfg.Telemetry

	// Registered first so it flushes after the tracer and meter have logged their shutdown
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    version,
		Insecure:          tc.Insecure,
	}, rt.log)
	if err != nil {
		return fmt.Errorf("init log export: %w", err)
	}
	rt.onClose(lp.Shutdown)
	rt.log = lp.Bridge(rt.log)

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    version,
		Insecure:          tc.Insecure,
	}, rt.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	rt.onClose(tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.ExportInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, rt.log)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	rt.onClose(mp.Shutdown)

	metrics, err := telemetry.NewCheckRunMetrics(mp.Meter("payables/checkrun"))
	if err != nil {
		rt.log.Warn("Check run metrics unavailable", zap.Error(err))
		return nil
	}
	rt.metrics = metrics
	return nil
}

// openDatabase opens a connection that the caller owns
func (rt *runtime) openDatabase() (*persistence.Database, error) {
	tc := rt.cfg.Telemetry
	dbSystem := "postgresql"
	if rt.cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}

	db, err := persistence.NewDatabase(&rt.cfg.Database,
		persistence.WithLogger(rt.log.Named("gorm")),
		persistence.WithSlowQueryThreshold(tc.DBSlowQueryThresh),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         tc.Enabled && tc.DBTraceEnabled,
			LogFullSQL:      tc.DBLogFullSQL,
			SlowQueryThresh: tc.DBSlowQueryThresh,
			DBSystem:        dbSystem,
		}, rt.log)),
	)
	if err != nil {
		return nil, err
	}
	rt.log.Debug("Database connected",
		zap.String("driver", rt.cfg.Database.Driver),
		zap.String("dbname", rt.cfg.Database.DBName),
	)
	return db, nil
}

// database returns the shared connection, opening it on first use
func (rt *runtime) database() (*persistence.Database, error) {
	if rt.db != nil {
		return rt.db, nil
	}
	db, err := rt.openDatabase()
	if err != nil {
		return nil, err
	}
	rt.db = db
	rt.onClose(func(context.Context) error { return db.Close() })
	return db, nil
}

func (rt *runtime) previewService(ctx context.Context) (*apppayables.CheckPreviewService, error) {
	db, err := rt.database()
	if err != nil {
		return nil, err
	}

	opts := []apppayables.PreviewOption{
		apppayables.WithQueryTimeout(rt.cfg.CheckRun.QueryTimeout),
		apppayables.WithPreviewMetrics(rt.metrics),
		apppayables.WithPreviewLogger(rt.log),
	}

	// Reservations must outlive this process, so there is no in-memory fallback
	if rt.cfg.CheckRun.ReservationEnabled {
		store, err := cache.NewReservationStoreFactory(rt.cfg.Redis,
			cache.WithLogger(rt.log),
			cache.WithInMemoryFallback(false),
		).CreateStore(ctx)
		if err != nil {
			return nil, err
		}
		rt.onClose(func(context.Context) error { return store.Close() })
		opts = append(opts, apppayables.WithReservations(store, rt.cfg.CheckRun.ReservationTTL))
	}

	return apppayables.NewCheckPreviewService(
		persistence.NewGormCheckPreviewRepository(db.DB),
		persistence.NewGormPaymentRepository(db.DB),
		opts...,
	), nil
}

func (rt *runtime) voidService() (*apppayables.VoidCheckService, error) {
	db, err := rt.database()
	if err != nil {
		return nil, err
	}
	return apppayables.NewVoidCheckService(
		persistence.NewGormPaymentRepository(db.DB),
		rt.metrics,
		rt.log,
	), nil
}

func (rt *runtime) onClose(fn func(context.Context) error) {
	rt.closers = append(rt.closers, fn)
}

// close releases every opened resource, last opened first
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
