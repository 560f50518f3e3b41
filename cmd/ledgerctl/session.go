package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"finledger/internal/backend"
	"finledger/internal/cli"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

// session is an open ledger for the duration of one command.
type session struct {
	ledger   *services.Ledger
	logger   *log.Logger
	backend  *backend.BackendResult
	currency string
}

func openSession(ctx context.Context, currency string) (*session, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg, os.Stderr, log.ComponentCLI)
	if err != nil {
		return nil, err
	}
	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	return &session{
		ledger:   services.NewLedger(res.Store),
		logger:   logger,
		backend:  res,
		currency: currency,
	}, nil
}

func (s *session) Close() {
	cli.Cleanup(s.logger, s.backend)
}

// run opens a session, calls fn and maps the outcome to an exit status.
func run(ctx context.Context, currency string, fn func(*session) error) subcommands.ExitStatus {
	s, err := openSession(ctx, currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if err := fn(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// formatMoney renders a two-place amount in the given ISO currency.
func formatMoney(d decimal.Decimal, currency string) string {
	cents := core.RoundMoney(d).Shift(core.MoneyPlaces).IntPart()
	return money.New(cents, currency).Display()
}

func (s *session) money(d decimal.Decimal) string {
	return formatMoney(d, s.currency)
}

// idArg parses the single positional id argument of a command.
func idArg(args []string, name string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one %s argument", name)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, args[0])
	}
	return id, nil
}

func usageError(w io.Writer, err error) subcommands.ExitStatus {
	fmt.Fprintf(w, "Error: %v\n", err)
	return subcommands.ExitUsageError
}
