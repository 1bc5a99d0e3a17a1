// Package cmd implements the CLI application to query portfolio
// performance: daily and aggregated indexes, attribution and
// money-weighted returns over a holdings model stored as JSONL.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/perfmod/perform"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute()
// on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&indexCmd{}, "reports")
	c.Register(&attributionCmd{}, "reports")
	c.Register(&irrCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok
// to use global variables.

var clientFile = flag.String("client-file", "client.jsonl", "Path to the holdings model file (JSONL format)")
var termCurrency = flag.String("currency", "EUR", "Term currency all amounts are converted into")

// loadClient reads the app holdings model and its exchange rates.
func loadClient() (*perform.Client, *perform.RateTable, error) {
	f, err := os.Open(*clientFile)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %q: %w", *clientFile, err)
	}
	defer f.Close()
	return perform.DecodeClient(f, *termCurrency)
}

// parseInterval turns the -from and -to flags into a reporting range.
// An empty -to defaults to today.
func parseInterval(from, to string) (perform.Range, error) {
	start, err := perform.ParseDate(from)
	if err != nil {
		return perform.Range{}, fmt.Errorf("invalid -from date: %w", err)
	}
	end := perform.Today()
	if to != "" {
		if end, err = perform.ParseDate(to); err != nil {
			return perform.Range{}, fmt.Errorf("invalid -to date: %w", err)
		}
	}
	return perform.NewRange(start, end), nil
}

// printWarnings reports the degradations of a calculation on stderr.
func printWarnings(ws perform.Warnings) {
	for _, w := range ws {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
