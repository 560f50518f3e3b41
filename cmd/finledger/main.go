package main

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"finledger/internal/cli"
	apphttp "finledger/internal/http"
	"finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting finledger",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend,
		"port", cfg.Port)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	res := cli.MustOpenBackend(ctx, logger, cfg)
	defer cli.Cleanup(logger, res)

	var opts []services.Option
	if res.Publisher != nil {
		opts = append(opts, services.WithEvents(res.Publisher))
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - ledger events will not be published")
	}
	ledger := services.NewLedger(res.Store, opts...)

	if cfg.SeedDemoData {
		if err := services.SeedDemoData(ctx, ledger); err != nil {
			logger.Error("Failed to seed demo data", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		Logger:    logger.WithComponent(log.ComponentHTTP),
		RateLimit: ratelimit.DefaultConfig(),
		Ready:     res.Ping,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server", "timeout", cfg.ShutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cli.Cleanup(logger, res)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
