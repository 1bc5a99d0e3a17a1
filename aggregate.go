package perform

// AggregatedIndex re-buckets a daily index into coarser periods. Each
// point covers one period: its start date, the valuation and compounded
// series value at the end of the period, the return compounded inside the
// period, and the external flows summed over it.
//
// Aggregation is pure re-bucketing: no valuation is recomputed, so
// compounding all bucket returns equals compounding the daily series.
type AggregatedIndex struct {
	Period      Period
	Dates       []Date // start of each period
	Totals      []Money
	Transferals []Money
	Delta       []Percent
	Accumulated []Percent

	term string
}

// TermCurrency is the currency of the monetary columns.
func (x *AggregatedIndex) TermCurrency() string { return x.term }

// Len returns the number of buckets.
func (x *AggregatedIndex) Len() int { return len(x.Dates) }

// Aggregate re-buckets a daily index by period. The trailing partial
// period is emitted as a regular point.
func Aggregate(daily *PerformanceIndex, p Period) *AggregatedIndex {
	x := &AggregatedIndex{Period: p, term: daily.TermCurrency()}
	if daily.Len() == 0 {
		return x
	}

	var bucketReturn Percent
	bucketFlows := M(0, x.term)

	for i, day := range daily.Dates {
		bucketReturn = Percent((1+float64(bucketReturn))*(1+float64(daily.Delta[i])) - 1)
		bucketFlows = bucketFlows.Add(daily.Inbound[i]).Sub(daily.Outbound[i])

		last := i == daily.Len()-1
		if !last && daily.Dates[i+1].StartOf(p) == day.StartOf(p) {
			continue
		}

		x.Dates = append(x.Dates, day.StartOf(p))
		x.Totals = append(x.Totals, daily.Totals[i])
		x.Transferals = append(x.Transferals, bucketFlows)
		x.Delta = append(x.Delta, bucketReturn)
		x.Accumulated = append(x.Accumulated, daily.Accumulated[i])

		bucketReturn = 0
		bucketFlows = M(0, x.term)
	}
	return x
}
