package perform

import (
	"math"
	"slices"
)

// Cashflow is one signed flow of an internal-rate-of-return computation,
// in the term currency. By convention money put in is negative and money
// taken out is positive, with the end valuation counted as a final
// outflow.
type Cashflow struct {
	On     Date
	Amount float64
}

// irrPrecision is the NPV tolerance under which a rate counts as a root.
const irrPrecision = 1e-8

// IRR computes the money-weighted annual return of a client over an
// interval: the rate discounting the start valuation, every external flow
// and the end valuation to zero. Buys and sells stay inside the client and
// are not flows.
//
// Non-convergence is reported as a warning with a zero rate, never as an
// error.
func IRR(c *Client, conv Converter, interval Range) (Percent, Warnings, error) {
	var ws Warnings

	start, err := NewSnapshot(c, interval.From)
	if err != nil {
		return 0, nil, err
	}
	end, err := NewSnapshot(c, interval.To)
	if err != nil {
		return 0, nil, err
	}
	ws.merge(start.Warnings())
	ws.merge(end.Warnings())

	startValue, w := start.Total(conv)
	ws.merge(w)
	endValue, w := end.Total(conv)
	ws.merge(w)

	flows := []Cashflow{{On: interval.From, Amount: -startValue.AsFloat()}}
	flows = append(flows, externalFlows(c, conv, interval, &ws)...)
	flows = append(flows, Cashflow{On: interval.To, Amount: endValue.AsFloat()})

	rate, ok := solveRate(flows, interval.From)
	if !ok {
		ws.addf(interval.To, "internal rate of return did not converge over %s", interval)
		return 0, ws, nil
	}
	return Percent(rate), ws, nil
}

// externalFlows collects deposits, removals, transfers crossing the client
// boundary and deliveries inside the interval, converted at their own
// dates. Flows in mean negative.
func externalFlows(c *Client, conv Converter, interval Range, ws *Warnings) []Cashflow {
	var flows []Cashflow
	add := func(on Date, m Money, in bool) {
		v := convertOrWarn(conv, on, m, ws).AsFloat()
		if in {
			v = -v
		}
		flows = append(flows, Cashflow{On: on, Amount: v})
	}

	for _, a := range c.Accounts() {
		for _, t := range a.Txs() {
			if !t.On.After(interval.From) || t.On.After(interval.To) {
				continue
			}
			switch t.Kind {
			case KindDeposit:
				add(t.On, t.Amount, true)
			case KindRemoval:
				add(t.On, t.Amount, false)
			}
		}
	}
	for _, p := range c.Portfolios() {
		for _, t := range p.Txs() {
			if !t.On.After(interval.From) || t.On.After(interval.To) {
				continue
			}
			switch t.Kind {
			case KindDeliveryInbound:
				add(t.On, t.Amount, true)
			case KindDeliveryOutbound:
				add(t.On, t.Amount, false)
			}
		}
	}

	slices.SortStableFunc(flows, func(a, b Cashflow) int {
		if a.On.Before(b.On) {
			return -1
		}
		if a.On.After(b.On) {
			return 1
		}
		return 0
	})
	return flows
}

// npv discounts all flows to the epoch date at a rate, with exponents in
// years of 365 days.
func npv(flows []Cashflow, epoch Date, rate float64) float64 {
	var sum float64
	for _, f := range flows {
		t := float64(f.On.DaysSince(epoch)) / 365.0
		sum += f.Amount / math.Pow(1+rate, t)
	}
	return sum
}

// solveRate finds a root of the NPV function: Newton-Raphson with a
// numeric derivative first, bisection over a wide bracket as fallback.
func solveRate(flows []Cashflow, epoch Date) (float64, bool) {
	if rate, ok := newton(flows, epoch, 0.05); ok {
		return rate, true
	}
	return bisect(flows, epoch, -0.9999, 10)
}

func newton(flows []Cashflow, epoch Date, guess float64) (float64, bool) {
	const h = 1e-6
	rate := guess
	for range 50 {
		v := npv(flows, epoch, rate)
		if math.Abs(v) < irrPrecision {
			return rate, true
		}
		d := (npv(flows, epoch, rate+h) - npv(flows, epoch, rate-h)) / (2 * h)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}
		next := rate - v/d
		if next <= -1 || next > 1e3 {
			// out of any plausible domain, let bisection take over
			return 0, false
		}
		if math.Abs(next-rate) < 1e-12 {
			return next, true
		}
		rate = next
	}
	return 0, false
}

func bisect(flows []Cashflow, epoch Date, lo, hi float64) (float64, bool) {
	flo := npv(flows, epoch, lo)
	fhi := npv(flows, epoch, hi)
	if flo == 0 {
		return lo, true
	}
	if fhi == 0 {
		return hi, true
	}
	if (flo < 0) == (fhi < 0) {
		return 0, false
	}
	for range 200 {
		mid := (lo + hi) / 2
		fmid := npv(flows, epoch, mid)
		if math.Abs(fmid) < irrPrecision || hi-lo < 1e-12 {
			return mid, true
		}
		if (fmid < 0) == (flo < 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	return 0, false
}
