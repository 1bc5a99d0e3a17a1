package perform

import "fmt"

// Position is the state of one security in a snapshot: the net shares held
// across all portfolios, and their value at the price used for the day.
// Price and Value are in the security's own currency.
type Position struct {
	Security *Security
	Shares   Quantity
	Price    Money
	Value    Money
}

// Snapshot is the state of a whole client on one date: the funds of every
// account and the position in every security, reconstructed by replaying
// each ledger from its beginning.
type Snapshot struct {
	on        Date
	client    *Client
	funds     []Money    // parallel to client.Accounts()
	positions []Position // parallel to client.Securities()
	warnings  Warnings
}

// NewSnapshot reconstructs the client state on a date by full replay. It
// fails only on a malformed model (a transaction kind no rule handles);
// missing prices degrade to the latest transaction-implied price, or zero
// with a warning.
func NewSnapshot(c *Client, on Date) (*Snapshot, error) {
	s := &Snapshot{on: on, client: c}
	for _, a := range c.Accounts() {
		funds, err := a.FundsAt(on)
		if err != nil {
			return nil, err
		}
		s.funds = append(s.funds, funds)
	}
	for _, sec := range c.Securities() {
		shares := Q(0)
		for _, p := range c.Portfolios() {
			q, err := p.SharesAt(sec.Ticker(), on)
			if err != nil {
				return nil, err
			}
			shares = shares.Add(q)
		}
		price := s.priceFor(sec, shares)
		s.positions = append(s.positions, Position{
			Security: sec,
			Shares:   shares,
			Price:    price,
			Value:    price.Mul(shares),
		})
	}
	return s, nil
}

// priceFor resolves the price of one share on the snapshot date: the
// nearest prior quote, else the gross price implied by the latest
// transaction, else zero with a warning when the position is held.
func (s *Snapshot) priceFor(sec *Security, shares Quantity) Money {
	if price, ok := sec.PriceAsOf(s.on); ok {
		return price
	}
	if price, ok := impliedPrice(s.client, sec.Ticker(), s.on); ok {
		return price
	}
	if !shares.IsZero() {
		s.warnings.addf(s.on, "no price for %s on or before %s, valuing position at zero", sec.Ticker(), s.on)
	}
	return M(0, sec.Currency())
}

// impliedPrice returns the gross per-share price of the latest transaction
// in the security on or before a date, across all portfolios.
func impliedPrice(c *Client, ticker string, on Date) (Money, bool) {
	var found bool
	var latest Date
	var price Money
	for _, p := range c.Portfolios() {
		for _, tx := range p.Txs() {
			if tx.On.After(on) {
				break
			}
			if tx.Security != ticker || tx.Shares.IsZero() {
				continue
			}
			if found && tx.On.Before(latest) {
				continue
			}
			gp, err := tx.GrossPrice()
			if err != nil || gp.IsZero() {
				continue
			}
			found, latest, price = true, tx.On, gp
		}
	}
	return price, found
}

// On returns the snapshot date.
func (s *Snapshot) On() Date { return s.on }

// Funds returns the balance of an account, in the account currency.
func (s *Snapshot) Funds(account string) Money {
	for i, a := range s.client.Accounts() {
		if a.Name() == account {
			return s.funds[i]
		}
	}
	return Money{}
}

// Shares returns the net position held in a security.
func (s *Snapshot) Shares(ticker string) Quantity {
	for _, p := range s.positions {
		if p.Security.Ticker() == ticker {
			return p.Shares
		}
	}
	return Q(0)
}

// Position returns the position in a security, or the zero Position if the
// ticker is unknown.
func (s *Snapshot) Position(ticker string) Position {
	for _, p := range s.positions {
		if p.Security.Ticker() == ticker {
			return p
		}
	}
	return Position{}
}

// Positions returns all security positions, in client declaration order.
func (s *Snapshot) Positions() []Position { return s.positions }

// Warnings returns the degradations recorded while valuing the snapshot.
func (s *Snapshot) Warnings() Warnings { return s.warnings }

// Total converts and sums all funds and position values into the term
// currency of the converter. Missing rates degrade to zero with a warning.
func (s *Snapshot) Total(conv Converter) (Money, Warnings) {
	var ws Warnings
	total := M(0, conv.TermCurrency())
	for i := range s.client.Accounts() {
		total = total.Add(convertOrWarn(conv, s.on, s.funds[i], &ws))
	}
	for _, p := range s.positions {
		if p.Value.IsZero() {
			continue
		}
		total = total.Add(convertOrWarn(conv, s.on, p.Value, &ws))
	}
	return total, ws
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot of %d accounts, %d securities on %s", len(s.funds), len(s.positions), s.on)
}
