package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/perfmod/perform"
)

// attributionCmd holds the flags for the 'attribution' subcommand.
type attributionCmd struct {
	from string
	to   string
}

func (*attributionCmd) Name() string { return "attribution" }
func (*attributionCmd) Synopsis() string {
	return "decompose the valuation change into performance categories"
}
func (*attributionCmd) Usage() string {
	return `pfx attribution -from <date> [-to <date>]

  Decomposes the valuation change over the interval into capital gains,
  realized gains, earnings, fees, taxes, currency gains and transfers.
  The categories sum exactly to the change between initial and final value.
`
}

func (c *attributionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day of the reporting interval")
	f.StringVar(&c.to, "to", "", "Last day of the reporting interval (defaults to today)")
}

func (c *attributionCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
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

	attr, err := perform.Attribute(client, rates, interval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printWarnings(attr.Warnings)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, cat := range attr.Categories {
		fmt.Fprintf(w, "%s\t%s\t\n", cat.Kind, cat.Valuation.SignedString())
		for _, pos := range cat.Positions {
			fmt.Fprintf(w, "  %s\t%s\t\n", pos.Label, pos.Value.SignedString())
		}
	}
	fmt.Fprintf(w, "delta\t%s\t\n", attr.Delta().SignedString())
	w.Flush()
	return subcommands.ExitSuccess
}
