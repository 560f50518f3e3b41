package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"finledger/internal/services"
)

var commands = []subcommands.Command{
	&accountsCmd{},
	&recomputeCmd{},
	&headroomCmd{},
	&spendingCmd{},
	&overviewCmd{},
}

// currencyFlag is embedded by every command that prints amounts.
type currencyFlag struct {
	currency string
}

func (c *currencyFlag) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "EUR", "ISO 4217 code used to display amounts")
}

type accountsCmd struct {
	currencyFlag
	all bool
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts with their balances" }
func (*accountsCmd) Usage() string {
	return `ledgerctl accounts [-all] [-currency EUR]

  Lists active accounts with their stored balance. -all includes inactive ones.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	c.currencyFlag.SetFlags(f)
	f.BoolVar(&c.all, "all", false, "include inactive accounts")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.currency, func(s *session) error {
		accounts, err := s.ledger.ListAccounts(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE\tACTIVE")
		for _, a := range accounts {
			if !a.IsActive && !c.all {
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", a.ID, a.Name, a.Type, s.money(a.Balance), a.IsActive)
		}
		return tw.Flush()
	})
}

type recomputeCmd struct {
	currencyFlag
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "recompute an account balance from its records" }
func (*recomputeCmd) Usage() string {
	return `ledgerctl recompute <account-id>

  Recomputes the balance from the initial balance, transactions and holdings
  and stores the result.
`
}

func (c *recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f.Args(), "account id")
	if err != nil {
		return usageError(os.Stderr, err)
	}
	return run(ctx, c.currency, func(s *session) error {
		before, err := s.ledger.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		after, err := s.ledger.RecomputeAccount(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s -> %s\n", before.Name, s.money(before.Balance), s.money(after))
		return nil
	})
}

type headroomCmd struct {
	currencyFlag
}

func (*headroomCmd) Name() string     { return "headroom" }
func (*headroomCmd) Synopsis() string { return "show how much of an account is free for goals" }
func (*headroomCmd) Usage() string {
	return `ledgerctl headroom <account-id>
`
}

func (c *headroomCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f.Args(), "account id")
	if err != nil {
		return usageError(os.Stderr, err)
	}
	return run(ctx, c.currency, func(s *session) error {
		h, err := s.ledger.Headroom(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("Balance:   %s\nAllocated: %s\nAvailable: %s\n",
			s.money(h.Balance), s.money(h.Allocated), s.money(h.Available))
		return nil
	})
}

type spendingCmd struct {
	currencyFlag
}

func (*spendingCmd) Name() string     { return "spending" }
func (*spendingCmd) Synopsis() string { return "show a budget's spending in its current window" }
func (*spendingCmd) Usage() string {
	return `ledgerctl spending <budget-id>
`
}

func (c *spendingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := idArg(f.Args(), "budget id")
	if err != nil {
		return usageError(os.Stderr, err)
	}
	return run(ctx, c.currency, func(s *session) error {
		st, err := s.ledger.BudgetStatus(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("Window:    %s .. %s\nSpent:     %s of %s\nRemaining: %s\nState:     %s\n",
			st.Start, st.End, s.money(st.Spent), s.money(st.Limit), s.money(st.Remaining), st.State)
		return nil
	})
}

type overviewCmd struct {
	currencyFlag
	year  int
	month int
}

func (*overviewCmd) Name() string     { return "overview" }
func (*overviewCmd) Synopsis() string { return "summarize one month of income and expenses" }
func (*overviewCmd) Usage() string {
	return `ledgerctl overview [-year 2025] [-month 3]

  Defaults to the current month.
`
}

func (c *overviewCmd) SetFlags(f *flag.FlagSet) {
	c.currencyFlag.SetFlags(f)
	now := time.Now()
	f.IntVar(&c.year, "year", now.Year(), "year")
	f.IntVar(&c.month, "month", int(now.Month()), "month (1-12)")
}

func (c *overviewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.currency, func(s *session) error {
		ov, err := s.ledger.Overview(ctx, c.year, c.month)
		if err != nil {
			return err
		}
		fmt.Printf("%04d-%02d\n", ov.Year, ov.Month)
		fmt.Printf("Total balance: %s\nIncome:        %s\nExpenses:      %s\nNet:           %s\n",
			s.money(ov.TotalBalance), s.money(ov.Income), s.money(ov.Expenses), s.money(ov.Net))
		if len(ov.ByCategory) > 0 {
			fmt.Println()
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSPENT")
			for _, ca := range ov.ByCategory {
				fmt.Fprintf(tw, "%s\t%s\n", ca.Name, s.money(ca.Amount))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		return nil
	})
}

type auditCmd struct {
	currencyFlag
	concurrency int
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "recompute every balance and report over-allocated accounts" }
func (*auditCmd) Usage() string {
	return `ledgerctl audit [-c 4]
`
}

func (c *auditCmd) SetFlags(f *flag.FlagSet) {
	c.currencyFlag.SetFlags(f)
	f.IntVar(&c.concurrency, "c", 4, "accounts audited concurrently")
}

func (c *auditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, c.currency, func(s *session) error {
		report, err := services.NewAuditor(s.ledger, c.concurrency).Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Audited %d accounts\n", report.Accounts)
		for _, ch := range report.Changed {
			fmt.Printf("  account %d: %s -> %s\n", ch.AccountID, s.money(ch.Before), s.money(ch.After))
		}
		for _, h := range report.OverAllocated {
			fmt.Printf("  account %d over-allocated: balance %s, allocated %s\n",
				h.AccountID, s.money(h.Balance), s.money(h.Allocated))
		}
		return nil
	})
}

type seedCmd struct{}

func (*seedCmd) Name() string             { return "seed" }
func (*seedCmd) Synopsis() string         { return "fill an empty ledger with demo data" }
func (*seedCmd) Usage() string            { return "ledgerctl seed\n" }
func (*seedCmd) SetFlags(f *flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, "EUR", func(s *session) error {
		return services.SeedDemoData(ctx, s.ledger)
	})
}
