package perform

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Export writes a daily index as delimited rows, one per day:
//
//	Date;Value;InboundTransferals;OutboundTransferals;Delta%;CumulatedPerformance%
//
// Monetary columns are fixed-point decimals in the term currency, returns
// are fixed-point fractions.
func Export(w io.Writer, x *PerformanceIndex) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"Date", "Value", "InboundTransferals", "OutboundTransferals", "Delta%", "CumulatedPerformance%"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range x.Dates {
		row := []string{
			x.Dates[i].String(),
			fixed(x.Totals[i]),
			fixed(x.Inbound[i]),
			fixed(x.Outbound[i]),
			fmt.Sprintf("%.4f", float64(x.Delta[i])),
			fmt.Sprintf("%.4f", float64(x.Accumulated[i])),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportAggregated writes an aggregated index in the same shape, one row
// per period.
func ExportAggregated(w io.Writer, x *AggregatedIndex) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"Date", "Value", "Transferals", "Delta%", "CumulatedPerformance%"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range x.Dates {
		row := []string{
			x.Dates[i].String(),
			fixed(x.Totals[i]),
			fixed(x.Transferals[i]),
			fmt.Sprintf("%.4f", float64(x.Delta[i])),
			fmt.Sprintf("%.4f", float64(x.Accumulated[i])),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// fixed renders an amount with the decimal places of its currency.
func fixed(m Money) string {
	return m.value.StringFixed(int32(m.currency().Fraction))
}
