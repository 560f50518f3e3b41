package main

import (
	"context"
	"errors"
	"os"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"finledger/internal/cli"
	"finledger/internal/log"
	"finledger/internal/services"
	"finledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig(log.ComponentAudit)
	logger.Info("Starting ledger-audit",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend,
		"schedule", cfg.AuditSchedule,
		"concurrency", cfg.AuditConcurrency)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	res := cli.MustOpenBackend(ctx, logger, cfg)
	defer cli.Cleanup(logger, res)

	// No publisher: recomputed balances must not re-enter the event queue.
	ledger := services.NewLedger(res.Store)
	w := worker.NewLedgerWorker(services.NewAuditor(ledger, cfg.AuditConcurrency), logger)

	sweep := func() {
		report, err := w.Sweep(ctx)
		if err != nil {
			logger.Error("Audit sweep failed", log.FieldError, err, log.FieldOperation, log.OpAudit)
			return
		}
		logger.Info("Audit sweep complete",
			"accounts", report.Accounts,
			"balances_changed", len(report.Changed),
			"over_allocated", len(report.OverAllocated))
	}

	// Run an initial sweep on startup
	sweep()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.AuditSchedule, sweep); err != nil {
		logger.Error("Invalid audit schedule", log.FieldError, err, "schedule", cfg.AuditSchedule)
		cli.Cleanup(logger, res)
		os.Exit(1)
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	if res.Publisher != nil {
		g.Go(func() error {
			logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
			err := res.Publisher.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - auditing on schedule only")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()

	logger.Info("Shutting down ledger-audit...", log.FieldOperation, log.OpShutdown)
	<-scheduler.Stop().Done()

	stats := w.Stats()
	logger.Info("Ledger-audit stopped",
		"events_handled", stats.Handled,
		"over_allocated", stats.OverAllocated,
		"failed", stats.Failed,
		"sweeps", stats.Sweeps)
	if err != nil {
		logger.Error("Event consumer failed", log.FieldError, err)
		cli.Cleanup(logger, res)
		os.Exit(1)
	}
}
