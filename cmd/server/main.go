package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tdrs/internal/casefile"
	casefilehandler "tdrs/internal/casefile/handler"
	"tdrs/internal/extract"
	extracthandler "tdrs/internal/extract/handler"
	"tdrs/internal/importer"
	importerhandler "tdrs/internal/importer/handler"
	"tdrs/internal/platform/config"
	"tdrs/internal/platform/httpserver"
	"tdrs/internal/platform/logger"
	"tdrs/internal/platform/metrics"
	"tdrs/internal/platform/postgres"
	"tdrs/internal/platform/redis"
	httptransport "tdrs/internal/transport/http"
	"tdrs/internal/validation"
	validationhandler "tdrs/internal/validation/handler"
	txcontext "tdrs/pkg/platform/tx"
)

const shutdownTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, postgres.Config{URL: cfg.DatabaseURL, MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var locker extract.Locker = extract.NewLocalLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = extract.NewRedisLocker(rdb.Client)
		log.Info("using redis extract lock")
	}

	catalog, err := validation.EmbeddedCatalog()
	if err != nil {
		return fmt.Errorf("load rule catalog: %w", err)
	}

	tx := txcontext.NewRunner(db, cfg.TxTimeout)
	records := casefile.NewPostgres(db)
	cases := casefile.NewService(records, casefile.WithLogger(log), casefile.WithTx(tx))

	validationService := validation.NewService(records, validation.NewPostgresLedger(db), catalog,
		validation.WithLogger(log),
		validation.WithMetrics(validation.NewMetrics()),
		validation.WithTx(tx),
	)
	extractService := extract.NewService(records, extract.NewPostgres(db),
		extract.WithLogger(log),
		extract.WithMetrics(extract.NewMetrics()),
		extract.WithTx(tx),
		extract.WithLocker(locker, cfg.ExtractLockTTL),
	)
	importService := importer.NewService(cases, importer.NewPostgres(db),
		importer.WithLogger(log),
		importer.WithMetrics(importer.NewMetrics()),
		importer.WithTx(tx),
		importer.WithMaxBytes(cfg.ImportMaxBytes),
	)

	health := map[string]httptransport.HealthCheck{"postgres": db.PingContext}
	if rdb != nil {
		health["redis"] = rdb.Health
	}
	router := httptransport.NewRouter(httptransport.Config{
		Logger:  log,
		Metrics: metrics.New(),
		Health:  health,
		Handlers: []httptransport.Registrar{
			casefilehandler.New(cases, log),
			validationhandler.New(validationService, log),
			extracthandler.New(extractService, log),
			importerhandler.New(importService, cfg.ImportMaxBytes, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting tdrs", "addr", cfg.Addr, "rules", catalog.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
