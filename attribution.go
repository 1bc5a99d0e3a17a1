package perform

import (
	"fmt"
	"slices"
)

// CategoryKind names the buckets a valuation change is decomposed into.
type CategoryKind int

const (
	CategoryInitialValue CategoryKind = iota
	CategoryCapitalGains
	CategoryRealizedGains
	CategoryEarnings
	CategoryFees
	CategoryTaxes
	CategoryCurrencyGains
	CategoryTransfers
	CategoryFinalValue
)

var categoryLabels = map[CategoryKind]string{
	CategoryInitialValue:  "initial value",
	CategoryCapitalGains:  "capital gains",
	CategoryRealizedGains: "realized capital gains",
	CategoryEarnings:      "earnings",
	CategoryFees:          "fees",
	CategoryTaxes:         "taxes",
	CategoryCurrencyGains: "currency gains",
	CategoryTransfers:     "transfers",
	CategoryFinalValue:    "final value",
}

func (k CategoryKind) String() string { return categoryLabels[k] }

// AttributionPosition is one named line inside a category: a security, an
// account, or a synthetic bucket like "other earnings". ForexGain, where
// set, is the part of the value explained by exchange-rate movement alone.
type AttributionPosition struct {
	Label     string
	Value     Money
	ForexGain Money
}

// Category is one bucket of an attribution: a signed valuation in the term
// currency and its named positions. Position values sum to the category
// valuation.
type Category struct {
	Kind      CategoryKind
	Valuation Money
	Positions []AttributionPosition
}

// Attribution decomposes the valuation change of a client over an interval
// into categories. The categories between initial and final value sum,
// with sign, to exactly final minus initial: every transaction amount is
// converted once, at its own date, and lands in exactly one bucket.
type Attribution struct {
	Interval   Range
	Categories []Category
	Warnings   Warnings

	term string
}

// TermCurrency is the currency of all category valuations.
func (a *Attribution) TermCurrency() string { return a.term }

// Category returns the bucket of a kind.
func (a *Attribution) Category(kind CategoryKind) Category {
	for _, c := range a.Categories {
		if c.Kind == kind {
			return c
		}
	}
	return Category{Kind: kind}
}

// Delta returns final value minus initial value.
func (a *Attribution) Delta() Money {
	return a.Category(CategoryFinalValue).Valuation.Sub(a.Category(CategoryInitialValue).Valuation)
}

// attributionRun accumulates the signed contribution of every transaction
// between the two snapshots, all in the term currency.
type attributionRun struct {
	client   *Client
	conv     Converter
	interval Range
	ws       Warnings

	start *Snapshot
	end   *Snapshot

	earningsBySecurity map[string]Money
	otherEarnings      Money
	fees               Money
	taxes              Money
	inbound            Money
	outbound           Money

	// per security: settled trade values, converted at trade date
	buys  map[string]Money
	sells map[string]Money

	// per account: signed converted cash flows, for currency gains
	accountFlows map[string]Money
}

// Attribute decomposes the valuation change of a client between the first
// and last day of an interval. Transactions strictly after the interval
// start and up to its end participate; both boundary valuations come from
// full-replay snapshots.
func Attribute(c *Client, conv Converter, interval Range) (*Attribution, error) {
	r := &attributionRun{
		client:             c,
		conv:               conv,
		interval:           interval,
		earningsBySecurity: make(map[string]Money),
		otherEarnings:      M(0, conv.TermCurrency()),
		fees:               M(0, conv.TermCurrency()),
		taxes:              M(0, conv.TermCurrency()),
		inbound:            M(0, conv.TermCurrency()),
		outbound:           M(0, conv.TermCurrency()),
		buys:               make(map[string]Money),
		sells:              make(map[string]Money),
		accountFlows:       make(map[string]Money),
	}

	var err error
	if r.start, err = NewSnapshot(c, interval.From); err != nil {
		return nil, err
	}
	if r.end, err = NewSnapshot(c, interval.To); err != nil {
		return nil, err
	}
	r.ws.merge(r.start.Warnings())
	r.ws.merge(r.end.Warnings())

	for _, a := range c.Accounts() {
		if err := r.consumeAccount(a); err != nil {
			return nil, err
		}
	}
	for _, p := range c.Portfolios() {
		if err := r.consumePortfolio(p); err != nil {
			return nil, err
		}
	}

	return r.assemble()
}

func (r *attributionRun) inInterval(on Date) bool {
	return on.After(r.interval.From) && !on.After(r.interval.To)
}

func (r *attributionRun) convert(on Date, m Money) Money {
	return convertOrWarn(r.conv, on, m, &r.ws)
}

func (r *attributionRun) consumeAccount(a *Account) error {
	flows := M(0, r.conv.TermCurrency())

	for _, t := range a.Txs() {
		if t.On.After(r.interval.To) {
			break
		}
		if !r.inInterval(t.On) {
			continue
		}

		sign, err := t.Kind.cashSign()
		if err != nil {
			return fmt.Errorf("account %s on %s: %w", a.Name(), t.On, err)
		}
		v := r.convert(t.On, t.Amount)
		if t.Kind == KindTransferOut {
			// both legs of an internal transfer use the inbound value,
			// pushing the exchange spread into currency gains
			if _, counter := r.client.accountTx(t.CrossOwner, t.CrossID); counter != nil {
				v = r.convert(t.On, counter.Amount)
			}
		}
		if sign > 0 {
			flows = flows.Add(v)
		} else {
			flows = flows.Sub(v)
		}

		tax := r.convert(t.On, t.Tax)

		switch t.Kind {
		case KindDeposit:
			r.inbound = r.inbound.Add(v)
		case KindRemoval:
			r.outbound = r.outbound.Add(v)
		case KindInterest, KindDividend:
			r.addEarning(t.Security, v.Add(tax))
			r.taxes = r.taxes.Add(tax)
		case KindInterestCharge:
			r.addEarning(t.Security, v.Sub(tax).Neg())
			r.taxes = r.taxes.Add(tax)
		case KindFee:
			r.fees = r.fees.Add(v.Sub(tax))
			r.taxes = r.taxes.Add(tax)
		case KindFeeRefund:
			// a refund is a credit: withheld tax sits on top of the cash
			r.fees = r.fees.Sub(v.Add(tax))
			r.taxes = r.taxes.Add(tax)
		case KindTax:
			r.taxes = r.taxes.Add(v)
		case KindTaxRefund:
			r.taxes = r.taxes.Sub(v)
		case KindBuy, KindSell:
			// decomposed on the portfolio side
		case KindTransferIn, KindTransferOut:
			// internal, nets out across accounts
		default:
			return fmt.Errorf("account %s on %s: no attribution rule for %s", a.Name(), t.On, t.Kind)
		}
	}

	r.accountFlows[a.Name()] = flows
	return nil
}

func (r *attributionRun) consumePortfolio(p *Portfolio) error {
	for _, t := range p.Txs() {
		if t.On.After(r.interval.To) {
			break
		}
		if !r.inInterval(t.On) {
			continue
		}

		gross, err := t.GrossValue()
		if err != nil {
			return fmt.Errorf("portfolio %s on %s: %w", p.Name(), t.On, err)
		}
		g := r.convert(t.On, gross)

		switch t.Kind {
		case KindBuy:
			r.buys[t.Security] = r.buys[t.Security].Add(g)
			r.fees = r.fees.Add(r.convert(t.On, t.Fee))
			r.taxes = r.taxes.Add(r.convert(t.On, t.Tax))
		case KindSell:
			r.sells[t.Security] = r.sells[t.Security].Add(g)
			r.fees = r.fees.Add(r.convert(t.On, t.Fee))
			r.taxes = r.taxes.Add(r.convert(t.On, t.Tax))
		case KindDeliveryInbound:
			r.buys[t.Security] = r.buys[t.Security].Add(g)
			r.inbound = r.inbound.Add(g)
		case KindDeliveryOutbound:
			r.sells[t.Security] = r.sells[t.Security].Add(g)
			r.outbound = r.outbound.Add(g)
		case KindTransferIn, KindTransferOut:
			// internal, position only moves between portfolios
		default:
			return fmt.Errorf("portfolio %s on %s: no attribution rule for %s", p.Name(), t.On, t.Kind)
		}
	}
	return nil
}

func (r *attributionRun) addEarning(security string, v Money) {
	if security == "" {
		r.otherEarnings = r.otherEarnings.Add(v)
		return
	}
	prev, ok := r.earningsBySecurity[security]
	if !ok {
		prev = M(0, r.conv.TermCurrency())
	}
	r.earningsBySecurity[security] = prev.Add(v)
}

func (r *attributionRun) assemble() (*Attribution, error) {
	term := r.conv.TermCurrency()
	zero := M(0, term)

	initial, ws := r.start.Total(r.conv)
	r.ws.merge(ws)
	final, ws := r.end.Total(r.conv)
	r.ws.merge(ws)

	// capital gains per security, split into realized and unrealized
	realized, err := r.realizedGains()
	if err != nil {
		return nil, err
	}

	var capPositions, realizedPositions []AttributionPosition
	capTotal, realizedTotal := zero, zero
	for _, sec := range r.client.Securities() {
		ticker := sec.Ticker()
		startValue := r.convert(r.interval.From, r.start.Position(ticker).Value)
		endValue := r.convert(r.interval.To, r.end.Position(ticker).Value)

		gain := endValue.Sub(startValue)
		if b, ok := r.buys[ticker]; ok {
			gain = gain.Sub(b)
		}
		if s, ok := r.sells[ticker]; ok {
			gain = gain.Add(s)
		}

		realizedPart := realized[ticker]
		if realizedPart.Currency() == "" {
			realizedPart = zero
		}
		unrealized := gain.Sub(realizedPart)

		if !unrealized.IsZero() {
			capPositions = append(capPositions, AttributionPosition{
				Label:     ticker,
				Value:     unrealized,
				ForexGain: r.forexGain(sec),
			})
			capTotal = capTotal.Add(unrealized)
		}
		if !realizedPart.IsZero() {
			realizedPositions = append(realizedPositions, AttributionPosition{Label: ticker, Value: realizedPart})
			realizedTotal = realizedTotal.Add(realizedPart)
		}
	}

	// currency gains per account: the funds change no converted flow explains
	var currencyPositions []AttributionPosition
	currencyTotal := zero
	for _, a := range r.client.Accounts() {
		startFunds := r.convert(r.interval.From, r.start.Funds(a.Name()))
		endFunds := r.convert(r.interval.To, r.end.Funds(a.Name()))
		gain := endFunds.Sub(startFunds).Sub(r.accountFlows[a.Name()])
		if gain.IsZero() {
			continue
		}
		currencyPositions = append(currencyPositions, AttributionPosition{Label: a.Name(), Value: gain})
		currencyTotal = currencyTotal.Add(gain)
	}

	var earningPositions []AttributionPosition
	earningsTotal := zero
	for _, sec := range r.client.Securities() {
		if v, ok := r.earningsBySecurity[sec.Ticker()]; ok && !v.IsZero() {
			earningPositions = append(earningPositions, AttributionPosition{Label: sec.Ticker(), Value: v})
			earningsTotal = earningsTotal.Add(v)
		}
	}
	if !r.otherEarnings.IsZero() {
		earningPositions = append(earningPositions, AttributionPosition{Label: "other earnings", Value: r.otherEarnings})
		earningsTotal = earningsTotal.Add(r.otherEarnings)
	}

	transfersNet := r.inbound.Sub(r.outbound)

	attr := &Attribution{
		Interval: r.interval,
		Warnings: r.ws,
		term:     term,
		Categories: []Category{
			{Kind: CategoryInitialValue, Valuation: initial},
			{Kind: CategoryCapitalGains, Valuation: capTotal, Positions: capPositions},
			{Kind: CategoryRealizedGains, Valuation: realizedTotal, Positions: realizedPositions},
			{Kind: CategoryEarnings, Valuation: earningsTotal, Positions: earningPositions},
			{Kind: CategoryFees, Valuation: r.fees.Neg()},
			{Kind: CategoryTaxes, Valuation: r.taxes.Neg()},
			{Kind: CategoryCurrencyGains, Valuation: currencyTotal, Positions: currencyPositions},
			{Kind: CategoryTransfers, Valuation: transfersNet, Positions: []AttributionPosition{
				{Label: "inbound", Value: r.inbound},
				{Label: "outbound", Value: r.outbound.Neg()},
			}},
			{Kind: CategoryFinalValue, Valuation: final},
		},
	}
	return attr, nil
}

// forexGain is the part of a position's change explained by exchange-rate
// movement alone: the start position revalued at end rates. Informational,
// not part of the reconciliation sum.
func (r *attributionRun) forexGain(sec *Security) Money {
	if sec.Currency() == r.conv.TermCurrency() {
		return M(0, r.conv.TermCurrency())
	}
	startValue := r.start.Position(sec.Ticker()).Value
	atEnd := r.convert(r.interval.To, startValue)
	atStart := r.convert(r.interval.From, startValue)
	return atEnd.Sub(atStart)
}

// lot is an open FIFO purchase.
type lot struct {
	shares Quantity
	cost   Money // per share, term currency, converted at purchase date
}

// realizedGains replays each security's trades from the beginning of the
// ledgers with FIFO lot matching and returns, per security, the gains
// realized by disposals inside the interval: proceeds minus the cost of
// the matched lots. Disposals exceeding the held shares cost nothing and
// are warned about.
func (r *attributionRun) realizedGains() (map[string]Money, error) {
	zero := M(0, r.conv.TermCurrency())
	lots := make(map[string][]lot)
	gains := make(map[string]Money)

	// one merged chronological walk over all portfolio ledgers
	var steps []PortfolioTx
	for _, p := range r.client.Portfolios() {
		for _, t := range p.Txs() {
			if t.On.After(r.interval.To) {
				break
			}
			steps = append(steps, t)
		}
	}
	slices.SortStableFunc(steps, func(a, b PortfolioTx) int {
		if a.On.Before(b.On) {
			return -1
		}
		if a.On.After(b.On) {
			return 1
		}
		return 0
	})

	for _, t := range steps {
		sign, err := t.Kind.shareSign()
		if err != nil {
			return nil, err
		}
		if t.Kind == KindTransferIn || t.Kind == KindTransferOut {
			continue // lots stay with the client
		}

		gross, err := t.GrossValue()
		if err != nil {
			return nil, err
		}
		g := r.convert(t.On, gross)

		if sign > 0 {
			cost := zero
			if !t.Shares.IsZero() {
				cost = g.Div(t.Shares)
			}
			lots[t.Security] = append(lots[t.Security], lot{shares: t.Shares, cost: cost})
			continue
		}

		// disposal: match lots first-in first-out
		remaining := t.Shares
		cost := zero
		queue := lots[t.Security]
		for len(queue) > 0 && remaining.IsPositive() {
			take := queue[0].shares.Min(remaining)
			cost = cost.Add(queue[0].cost.Mul(take))
			queue[0].shares = queue[0].shares.Sub(take)
			remaining = remaining.Sub(take)
			if queue[0].shares.IsZero() {
				queue = queue[1:]
			}
		}
		lots[t.Security] = queue
		if remaining.IsPositive() {
			r.ws.addf(t.On, "%s disposal of %s shares exceeds held lots by %s, missing shares carried at zero cost",
				t.Security, t.Shares, remaining)
		}

		if r.inInterval(t.On) {
			prev, ok := gains[t.Security]
			if !ok {
				prev = zero
			}
			gains[t.Security] = prev.Add(g.Sub(cost))
		}
	}
	return gains, nil
}
