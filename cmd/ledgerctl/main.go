// Command ledgerctl runs one-off ledger operations against the configured backend.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"finledger/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "ledger")
	}
	commander.Register(&auditCmd{}, "maintenance")
	commander.Register(&seedCmd{}, "maintenance")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
