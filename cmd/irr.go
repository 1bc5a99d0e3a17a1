package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/perfmod/perform"
)

// irrCmd holds the flags for the 'irr' subcommand.
type irrCmd struct {
	from string
	to   string
}

func (*irrCmd) Name() string     { return "irr" }
func (*irrCmd) Synopsis() string { return "compute the money-weighted annual return" }
func (*irrCmd) Usage() string {
	return `pfx irr -from <date> [-to <date>]

  Computes the internal rate of return of all external cash flows over the
  interval, with start and end valuations as implicit flows.
`
}

func (c *irrCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day of the reporting interval")
	f.StringVar(&c.to, "to", "", "Last day of the reporting interval (defaults to today)")
}

func (c *irrCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client, rates, err := loadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	interval, err := parseInterval(c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	rate, ws, err := perform.IRR(client, rates, interval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printWarnings(ws)

	fmt.Printf("%s: %s\n", interval, rate.SignedString())
	return subcommands.ExitSuccess
}
