package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/perfmod/perform"
)

// indexCmd holds the flags for the 'index' subcommand.
type indexCmd struct {
	from      string
	to        string
	period    string
	account   string
	portfolio string
	security  string
}

func (*indexCmd) Name() string     { return "index" }
func (*indexCmd) Synopsis() string { return "compute a daily performance index" }
func (*indexCmd) Usage() string {
	return `pfx index -from <date> [-to <date>] [-period <p>] [-account <name>] [-portfolio <name>] [-security <ticker>]

  Computes the time-weighted performance index over the interval and writes
  it as delimited rows to stdout. Scope flags restrict the view to one
  account, portfolio or security; without them the whole client is indexed.
`
}

func (c *indexCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day of the reporting interval")
	f.StringVar(&c.to, "to", "", "Last day of the reporting interval (defaults to today)")
	f.StringVar(&c.period, "period", "day", "Aggregation period (day, week, month, quarter, year)")
	f.StringVar(&c.account, "account", "", "Restrict the index to one account")
	f.StringVar(&c.portfolio, "portfolio", "", "Restrict the index to one portfolio")
	f.StringVar(&c.security, "security", "", "Restrict the index to one security")
}

func (c *indexCmd) scope() perform.Scope {
	switch {
	case c.account != "":
		return perform.AccountScope(c.account)
	case c.portfolio != "":
		return perform.PortfolioScope(c.portfolio)
	case c.security != "":
		return perform.SecurityScope(c.security)
	}
	return perform.ClientScope()
}

func (c *indexCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
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
	period, err := perform.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	x, err := perform.ComputeScopedIndex(ctx, client, rates, interval, c.scope())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printWarnings(x.Warnings)

	if period == perform.Daily {
		err = perform.Export(os.Stdout, x)
	} else {
		err = perform.ExportAggregated(os.Stdout, perform.Aggregate(x, period))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
