package perform

import (
	"context"
	"runtime"
	"sync"
)

// PerformanceIndex is a daily time-weighted return series over a reporting
// interval: one entry per calendar day, with the valuation, the external
// flows of the day, the day's return net of those flows, and the compounded
// return since the interval start.
//
// All slices run parallel to Dates. Monetary columns are in the term
// currency of the converter the index was computed with.
type PerformanceIndex struct {
	Dates       []Date
	Totals      []Money
	Inbound     []Money
	Outbound    []Money
	Taxes       []Money
	Delta       []Percent
	Accumulated []Percent
	Warnings    Warnings

	term string
}

// TermCurrency is the currency of the monetary columns.
func (x *PerformanceIndex) TermCurrency() string { return x.term }

// Len returns the number of days in the series.
func (x *PerformanceIndex) Len() int { return len(x.Dates) }

// Final returns the compounded return over the whole interval.
func (x *PerformanceIndex) Final() Percent {
	if len(x.Accumulated) == 0 {
		return 0
	}
	return x.Accumulated[len(x.Accumulated)-1]
}

// dayFlows are the converted external flows of one calendar day.
type dayFlows struct {
	inbound  Money
	outbound Money
	taxes    Money
}

// ComputeIndex computes the daily index of a whole client over an
// interval. The first day seeds the series with the valuation at interval
// start and a zero return; each subsequent day's return is the valuation change
// not explained by external flows, divided by the prior day's valuation.
//
// The computation is sequential by construction, one iterator cursor
// walking all ledgers once. Cancelling the context between days abandons
// the run with no partial result.
func ComputeIndex(ctx context.Context, c *Client, conv Converter, interval Range) (*PerformanceIndex, error) {
	x := &PerformanceIndex{term: conv.TermCurrency()}

	flows, err := collectFlows(c, conv, interval, &x.Warnings)
	if err != nil {
		return nil, err
	}

	it := NewSnapshotIterator(c)
	zero := M(0, x.term)

	for day := range interval.Dates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := it.Advance(day)
		if err != nil {
			return nil, err
		}
		x.Warnings.merge(s.Warnings())
		total, ws := s.Total(conv)
		x.Warnings.merge(ws)

		fl := flows[day]
		if fl == nil {
			fl = &dayFlows{inbound: zero, outbound: zero, taxes: zero}
		}
		x.Dates = append(x.Dates, day)
		x.Totals = append(x.Totals, total)
		x.Inbound = append(x.Inbound, zero.Add(fl.inbound))
		x.Outbound = append(x.Outbound, zero.Add(fl.outbound))
		x.Taxes = append(x.Taxes, zero.Add(fl.taxes))

		i := len(x.Dates) - 1
		if i == 0 {
			x.Delta = append(x.Delta, 0)
			x.Accumulated = append(x.Accumulated, 0)
			continue
		}

		transferals := fl.inbound.Sub(fl.outbound)
		raw := total.Sub(transferals).Sub(x.Totals[i-1])

		var delta Percent
		prev := x.Totals[i-1]
		switch {
		case !prev.IsZero():
			delta = Percent(raw.value.Div(prev.value).InexactFloat64())
		case raw.IsZero():
			delta = 0
		case !transferals.IsZero():
			// no basis yet: relate the unexplained change to the
			// flows that created the basis
			delta = Percent(raw.value.Div(transferals.value).InexactFloat64())
		default:
			x.Warnings.addf(day, "value of %s appeared without prior value or inbound flow, reporting zero return", raw)
			delta = 0
		}

		x.Delta = append(x.Delta, delta)
		x.Accumulated = append(x.Accumulated, Percent((1+float64(x.Accumulated[i-1]))*(1+float64(delta))-1))
	}
	return x, nil
}

// ComputeScopedIndex synthesizes a view of the client and computes its
// daily index.
func ComputeScopedIndex(ctx context.Context, c *Client, conv Converter, interval Range, scope Scope) (*PerformanceIndex, error) {
	view, err := scope(c)
	if err != nil {
		return nil, err
	}
	return ComputeIndex(ctx, view, conv, interval)
}

// ComputeIndexes computes several scoped indexes of one client in
// parallel, bounded by the available cores. The client is never mutated
// during computation, so the runs share it safely; each run owns its own
// iterator. The first error cancels the remaining runs.
func ComputeIndexes(ctx context.Context, c *Client, conv Converter, interval Range, scopes map[string]Scope) (map[string]*PerformanceIndex, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make(map[string]*PerformanceIndex, len(scopes))
		firstErr error
	)
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	for name, scope := range scopes {
		wg.Add(1)
		go func(name string, scope Scope) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			x, err := ComputeScopedIndex(ctx, c, conv, interval, scope)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			results[name] = x
		}(name, scope)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// collectFlows walks all ledgers once and buckets, per day in the
// interval, the converted external flows: deposits and removals on
// accounts, deliveries on portfolios, and the taxes paid.
func collectFlows(c *Client, conv Converter, interval Range, ws *Warnings) (map[Date]*dayFlows, error) {
	flows := make(map[Date]*dayFlows)
	zero := M(0, conv.TermCurrency())

	at := func(on Date) *dayFlows {
		fl := flows[on]
		if fl == nil {
			fl = &dayFlows{inbound: zero, outbound: zero, taxes: zero}
			flows[on] = fl
		}
		return fl
	}

	for _, a := range c.Accounts() {
		for _, t := range a.Txs() {
			if t.On.Before(interval.From) {
				continue
			}
			if t.On.After(interval.To) {
				break
			}
			fl := at(t.On)
			switch t.Kind {
			case KindDeposit:
				fl.inbound = fl.inbound.Add(convertOrWarn(conv, t.On, t.Amount, ws))
			case KindRemoval:
				fl.outbound = fl.outbound.Add(convertOrWarn(conv, t.On, t.Amount, ws))
			case KindTax:
				fl.taxes = fl.taxes.Add(convertOrWarn(conv, t.On, t.Amount, ws))
			case KindTaxRefund:
				fl.taxes = fl.taxes.Sub(convertOrWarn(conv, t.On, t.Amount, ws))
			}
			if !t.Tax.IsZero() {
				fl.taxes = fl.taxes.Add(convertOrWarn(conv, t.On, t.Tax, ws))
			}
		}
	}
	for _, p := range c.Portfolios() {
		for _, t := range p.Txs() {
			if t.On.Before(interval.From) {
				continue
			}
			if t.On.After(interval.To) {
				break
			}
			fl := at(t.On)
			switch t.Kind {
			case KindDeliveryInbound:
				fl.inbound = fl.inbound.Add(convertOrWarn(conv, t.On, t.Amount, ws))
			case KindDeliveryOutbound:
				fl.outbound = fl.outbound.Add(convertOrWarn(conv, t.On, t.Amount, ws))
			}
			if !t.Tax.IsZero() {
				fl.taxes = fl.taxes.Add(convertOrWarn(conv, t.On, t.Tax, ws))
			}
		}
	}
	return flows, nil
}
