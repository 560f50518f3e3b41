package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

// AccountAuditor is the part of services.Auditor the worker drives.
type AccountAuditor interface {
	Run(ctx context.Context) (services.AuditReport, error)
	AuditAccount(ctx context.Context, accountID int64) (core.Headroom, bool, error)
}

// Stats counts what the worker has processed since it started.
type Stats struct {
	Handled       int64 `json:"handled"`
	OverAllocated int64 `json:"overAllocated"`
	Failed        int64 `json:"failed"`
	Sweeps        int64 `json:"sweeps"`
}

// LedgerWorker re-audits accounts named by ledger events and runs the
// periodic full sweep that catches anything the event stream missed.
type LedgerWorker struct {
	auditor AccountAuditor
	logger  *log.Logger

	handled       atomic.Int64
	overAllocated atomic.Int64
	failed        atomic.Int64
	sweeps        atomic.Int64
}

func NewLedgerWorker(auditor AccountAuditor, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerWorker{auditor: auditor, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleLedgerEvent audits the account an event refers to. An account deleted
// before the event arrived is acknowledged without error.
func (w *LedgerWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.DebugContext(ctx, "Processing ledger event",
		"type", ev.Type,
		log.FieldAccountID, ev.AccountID)

	h, over, err := w.auditor.AuditAccount(ctx, ev.AccountID)
	if err != nil {
		if core.IsNotFound(err) {
			w.logger.InfoContext(ctx, "Account no longer exists, skipping event",
				"type", ev.Type,
				log.FieldAccountID, ev.AccountID)
			w.handled.Add(1)
			return nil
		}
		w.failed.Add(1)
		return fmt.Errorf("audit account %d: %w", ev.AccountID, err)
	}
	w.handled.Add(1)

	if over {
		w.overAllocated.Add(1)
		fields := log.NewFields().
			WithAccount(h.AccountID).
			WithAmount(log.FieldBalance, h.Balance).
			WithAmount(log.FieldAvailable, h.Available)
		if ev.GoalID != 0 {
			fields = fields.WithGoal(ev.GoalID)
		}
		w.logger.WarnContext(ctx, "Account goal allocations exceed its balance", fields.ToSlice()...)
	}
	return nil
}

// Sweep runs a full audit pass.
func (w *LedgerWorker) Sweep(ctx context.Context) (services.AuditReport, error) {
	report, err := w.auditor.Run(ctx)
	if err != nil {
		w.failed.Add(1)
		return services.AuditReport{}, fmt.Errorf("audit sweep: %w", err)
	}
	w.sweeps.Add(1)
	for _, h := range report.OverAllocated {
		w.logger.WarnContext(ctx, "Account goal allocations exceed its balance",
			log.NewFields().
				WithAccount(h.AccountID).
				WithAmount(log.FieldBalance, h.Balance).
				WithAmount(log.FieldAvailable, h.Available).
				ToSlice()...)
	}
	return report, nil
}

// Stats returns a snapshot of the worker counters.
func (w *LedgerWorker) Stats() Stats {
	return Stats{
		Handled:       w.handled.Load(),
		OverAllocated: w.overAllocated.Load(),
		Failed:        w.failed.Load(),
		Sweeps:        w.sweeps.Load(),
	}
}
