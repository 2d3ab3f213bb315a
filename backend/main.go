package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"salesengine/m/domain"
	"salesengine/m/internal/api"
	"salesengine/m/internal/config"
	"salesengine/m/internal/database"
	"salesengine/m/internal/events"
	"salesengine/m/internal/logging"
	"salesengine/m/internal/migrations"
	"salesengine/m/internal/repository"
	"salesengine/m/internal/sales"
	"salesengine/m/internal/seed"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.DatabaseMaxConn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return err
	}

	var saleRepo domain.SaleRepository = repository.NewSaleRepository(db)
	if cfg.SaleCacheSize > 0 {
		cached, err := repository.NewCachedSaleRepository(saleRepo, cfg.SaleCacheSize)
		if err != nil {
			return err
		}
		saleRepo = cached
	}

	dispatcher := events.NewDispatcher()
	events.RegisterLogHandlers(dispatcher, logger)
	svc := sales.NewService(saleRepo, dispatcher, logger)

	if cfg.SeedFile != "" {
		if _, err := seed.LoadSales(ctx, svc, cfg.SeedFile, logger); err != nil {
			logger.Warn("unable to load seed sales", zap.String("path", cfg.SeedFile), zap.Error(err))
		}
	}

	handler := api.New(svc, repository.NewUserRepository(db), cfg.Secret, cfg.TokenTTL, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("sales server starting", zap.String("addr", srv.Addr), zap.String("driver", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
