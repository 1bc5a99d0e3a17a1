package perform

import "fmt"

// SnapshotIterator reconstructs snapshots for a strictly increasing series
// of dates without replaying the ledgers from scratch: each ledger keeps a
// cursor, and Advance only consumes the transactions between two dates.
// Iterating a whole date range costs one pass over the transactions plus
// one price lookup per security per day, where full replay would cost one
// pass per day.
//
// An iterator and the snapshots it produces agree exactly with NewSnapshot
// on every date.
type SnapshotIterator struct {
	client     *Client
	on         Date
	funds      []Money    // running balance, parallel to client.Accounts()
	acur       []int      // next tx to consume, parallel to client.Accounts()
	shares     []Quantity // running position, parallel to client.Securities()
	pcur       []int      // next tx to consume, parallel to client.Portfolios()
	implied    []Money    // latest transaction-implied price per security
	impliedOn  []Date
	hasImplied []bool
	index      map[string]int // ticker to securities index
}

// NewSnapshotIterator creates an iterator positioned before all dates.
func NewSnapshotIterator(c *Client) *SnapshotIterator {
	it := &SnapshotIterator{
		client:     c,
		acur:       make([]int, len(c.Accounts())),
		pcur:       make([]int, len(c.Portfolios())),
		shares:     make([]Quantity, len(c.Securities())),
		implied:    make([]Money, len(c.Securities())),
		impliedOn:  make([]Date, len(c.Securities())),
		hasImplied: make([]bool, len(c.Securities())),
		index:      make(map[string]int, len(c.Securities())),
	}
	for _, a := range c.Accounts() {
		it.funds = append(it.funds, M(0, a.Currency()))
	}
	for i, s := range c.Securities() {
		it.index[s.Ticker()] = i
	}
	return it
}

// Advance consumes all transactions up to and including a date and returns
// the snapshot on it. Dates must be strictly increasing across calls.
func (it *SnapshotIterator) Advance(on Date) (*Snapshot, error) {
	if !it.on.IsZero() && !on.After(it.on) {
		return nil, fmt.Errorf("snapshot iterator: %s does not advance past %s", on, it.on)
	}
	for i, a := range it.client.Accounts() {
		if err := it.consumeAccount(i, a, on); err != nil {
			return nil, err
		}
	}
	for i, p := range it.client.Portfolios() {
		if err := it.consumePortfolio(i, p, on); err != nil {
			return nil, err
		}
	}
	it.on = on

	s := &Snapshot{on: on, client: it.client}
	s.funds = append(s.funds, it.funds...)
	for i, sec := range it.client.Securities() {
		price := it.priceFor(s, sec, i)
		s.positions = append(s.positions, Position{
			Security: sec,
			Shares:   it.shares[i],
			Price:    price,
			Value:    price.Mul(it.shares[i]),
		})
	}
	return s, nil
}

func (it *SnapshotIterator) consumeAccount(i int, a *Account, on Date) error {
	txs := a.Txs()
	for ; it.acur[i] < len(txs); it.acur[i]++ {
		tx := txs[it.acur[i]]
		if tx.On.After(on) {
			break
		}
		sign, err := tx.Kind.cashSign()
		if err != nil {
			return fmt.Errorf("account %s on %s: %w", a.Name(), tx.On, err)
		}
		if sign > 0 {
			it.funds[i] = it.funds[i].Add(tx.Amount)
		} else {
			it.funds[i] = it.funds[i].Sub(tx.Amount)
		}
	}
	return nil
}

func (it *SnapshotIterator) consumePortfolio(i int, p *Portfolio, on Date) error {
	txs := p.Txs()
	for ; it.pcur[i] < len(txs); it.pcur[i]++ {
		tx := txs[it.pcur[i]]
		if tx.On.After(on) {
			break
		}
		sign, err := tx.Kind.shareSign()
		if err != nil {
			return fmt.Errorf("portfolio %s on %s: %w", p.Name(), tx.On, err)
		}
		si, known := it.index[tx.Security]
		if !known {
			continue
		}
		if sign > 0 {
			it.shares[si] = it.shares[si].Add(tx.Shares)
		} else {
			it.shares[si] = it.shares[si].Sub(tx.Shares)
		}
		if !tx.Shares.IsZero() && (!it.hasImplied[si] || !tx.On.Before(it.impliedOn[si])) {
			if gp, err := tx.GrossPrice(); err == nil && !gp.IsZero() {
				it.implied[si], it.impliedOn[si], it.hasImplied[si] = gp, tx.On, true
			}
		}
	}
	return nil
}

func (it *SnapshotIterator) priceFor(s *Snapshot, sec *Security, i int) Money {
	if price, ok := sec.PriceAsOf(s.on); ok {
		return price
	}
	if it.hasImplied[i] {
		return it.implied[i]
	}
	if !it.shares[i].IsZero() {
		s.warnings.addf(s.on, "no price for %s on or before %s, valuing position at zero", sec.Ticker(), s.on)
	}
	return M(0, sec.Currency())
}
