package perform

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// The holdings model is a read-only input for one calculation run: accounts
// (cash ledgers), portfolios (security ledgers) and securities (price
// histories), all owned by a Client. Once handed to the engine it is never
// mutated, so any number of calculation runs may share it concurrently.

// AccountTx is a dated cash event on an account ledger. Amount is the cash
// actually moved on the account (net of withheld taxes for dividends and
// interest); Tax and Fee carry the sub-amounts when the event has them.
//
// Buy and sell transactions are the settlement leg of a portfolio
// transaction; CrossOwner and CrossID point at the counter-transaction in
// that ledger so both ledgers stay independently serializable.
type AccountTx struct {
	ID         string
	On         Date
	Kind       TxKind
	Amount     Money
	Security   string // optional: the security the event relates to
	Fee        Money
	Tax        Money
	CrossOwner string
	CrossID    string
}

// GrossAmount returns the amount before tax withholding: the economic value
// of an earning event (dividend, interest).
func (t AccountTx) GrossAmount() Money {
	return t.Amount.Add(t.Tax)
}

// PortfolioTx is a dated security event on a portfolio ledger. Amount is the
// total settlement value: for purchases the cash paid including fees and
// taxes, for disposals the net cash received after fees and taxes.
type PortfolioTx struct {
	ID         string
	On         Date
	Kind       TxKind
	Security   string
	Shares     Quantity
	Amount     Money
	Fee        Money
	Tax        Money
	CrossOwner string
	CrossID    string
}

// GrossValue returns the market value of the security leg, excluding fees
// and taxes: amount - fee - tax on purchases, amount + fee + tax on
// disposals.
func (t PortfolioTx) GrossValue() (Money, error) {
	sign, err := t.Kind.shareSign()
	if err != nil {
		return Money{}, err
	}
	if sign > 0 {
		return t.Amount.Sub(t.Fee).Sub(t.Tax), nil
	}
	return t.Amount.Add(t.Fee).Add(t.Tax), nil
}

// GrossPrice returns the per-share gross price implied by the transaction.
func (t PortfolioTx) GrossPrice() (Money, error) {
	gross, err := t.GrossValue()
	if err != nil {
		return Money{}, err
	}
	if t.Shares.IsZero() {
		return M(0, t.Amount.Currency()), nil
	}
	return gross.Div(t.Shares), nil
}

// Account is a cash ledger: a currency and a chronologically ordered list
// of transactions. Funds at a date are the signed running sum of all
// transactions up to and including it.
type Account struct {
	name     string
	currency string
	txs      []AccountTx
}

// NewAccount creates an empty account ledger for one currency.
func NewAccount(name, currency string) *Account {
	return &Account{name: name, currency: currency}
}

func (a *Account) Name() string     { return a.name }
func (a *Account) Currency() string { return a.currency }
func (a *Account) Txs() []AccountTx { return a.txs }

// Append inserts transactions keeping the ledger chronological. Same-day
// transactions keep their insertion order.
func (a *Account) Append(txs ...AccountTx) *Account {
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = fmt.Sprintf("%s/%d", a.name, len(a.txs)+1)
		}
		i, _ := slices.BinarySearchFunc(a.txs, tx, func(x, y AccountTx) int {
			if x.On.After(y.On) {
				return 1
			}
			return -1 // equal dates sort after existing ones
		})
		a.txs = slices.Insert(a.txs, i, tx)
	}
	return a
}

// FundsAt returns the balance of the account on a date by full replay.
func (a *Account) FundsAt(on Date) (Money, error) {
	funds := M(0, a.currency)
	for _, tx := range a.txs {
		if tx.On.After(on) {
			break
		}
		sign, err := tx.Kind.cashSign()
		if err != nil {
			return Money{}, fmt.Errorf("account %s on %s: %w", a.name, tx.On, err)
		}
		if sign > 0 {
			funds = funds.Add(tx.Amount)
		} else {
			funds = funds.Sub(tx.Amount)
		}
	}
	return funds, nil
}

// Portfolio is a security ledger. It may reference at most one account used
// to settle its buy and sell transactions.
type Portfolio struct {
	name             string
	referenceAccount string
	txs              []PortfolioTx
}

// NewPortfolio creates an empty portfolio ledger.
func NewPortfolio(name, referenceAccount string) *Portfolio {
	return &Portfolio{name: name, referenceAccount: referenceAccount}
}

func (p *Portfolio) Name() string             { return p.name }
func (p *Portfolio) ReferenceAccount() string { return p.referenceAccount }
func (p *Portfolio) Txs() []PortfolioTx       { return p.txs }

// Append inserts transactions keeping the ledger chronological.
func (p *Portfolio) Append(txs ...PortfolioTx) *Portfolio {
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = fmt.Sprintf("%s/%d", p.name, len(p.txs)+1)
		}
		i, _ := slices.BinarySearchFunc(p.txs, tx, func(x, y PortfolioTx) int {
			if x.On.After(y.On) {
				return 1
			}
			return -1
		})
		p.txs = slices.Insert(p.txs, i, tx)
	}
	return p
}

// SharesAt returns the net position in a security on a date by full replay.
func (p *Portfolio) SharesAt(security string, on Date) (Quantity, error) {
	var shares Quantity
	for _, tx := range p.txs {
		if tx.On.After(on) {
			break
		}
		if tx.Security != security {
			continue
		}
		sign, err := tx.Kind.shareSign()
		if err != nil {
			return Quantity{}, fmt.Errorf("portfolio %s on %s: %w", p.name, tx.On, err)
		}
		if sign > 0 {
			shares = shares.Add(tx.Shares)
		} else {
			shares = shares.Sub(tx.Shares)
		}
	}
	return shares, nil
}

// Security is a tradable instrument: a currency and a price history.
type Security struct {
	ticker   string
	currency string
	prices   history
}

// NewSecurity creates a security with an empty price history.
func NewSecurity(ticker, currency string) *Security {
	return &Security{ticker: ticker, currency: currency}
}

func (s *Security) Ticker() string   { return s.ticker }
func (s *Security) Currency() string { return s.currency }

// SetPrice records the closing price of one share on a date.
func (s *Security) SetPrice(on Date, price decimal.Decimal) *Security {
	s.prices.Append(on, price)
	return s
}

// PriceAsOf returns the price on a date, falling back to the nearest prior
// quote. It returns false when no quote exists on or before the date.
func (s *Security) PriceAsOf(on Date) (Money, bool) {
	v, ok := s.prices.ValueAsOf(on)
	if !ok {
		return M(0, s.currency), false
	}
	return M(v, s.currency), true
}

// Client is the root of the holdings model.
type Client struct {
	accounts   []*Account
	portfolios []*Portfolio
	securities []*Security
	byTicker   map[string]*Security
}

// NewClient creates an empty holdings model.
func NewClient() *Client {
	return &Client{byTicker: make(map[string]*Security)}
}

func (c *Client) Accounts() []*Account     { return c.accounts }
func (c *Client) Portfolios() []*Portfolio { return c.portfolios }
func (c *Client) Securities() []*Security  { return c.securities }

// Security returns the security with this ticker, or nil if unknown.
func (c *Client) Security(ticker string) *Security { return c.byTicker[ticker] }

// Account returns the account with this name, or nil if unknown.
func (c *Client) Account(name string) *Account {
	for _, a := range c.accounts {
		if a.name == name {
			return a
		}
	}
	return nil
}

// Portfolio returns the portfolio with this name, or nil if unknown.
func (c *Client) Portfolio(name string) *Portfolio {
	for _, p := range c.portfolios {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (c *Client) AddAccount(a *Account) *Client {
	c.accounts = append(c.accounts, a)
	return c
}

func (c *Client) AddPortfolio(p *Portfolio) *Client {
	c.portfolios = append(c.portfolios, p)
	return c
}

func (c *Client) AddSecurity(s *Security) *Client {
	if _, dup := c.byTicker[s.ticker]; dup {
		return c
	}
	c.securities = append(c.securities, s)
	c.byTicker[s.ticker] = s
	return c
}

// accountTx resolves a cross-reference into an account ledger.
func (c *Client) accountTx(owner, id string) (*Account, *AccountTx) {
	a := c.Account(owner)
	if a == nil {
		return nil, nil
	}
	for i := range a.txs {
		if a.txs[i].ID == id {
			return a, &a.txs[i]
		}
	}
	return a, nil
}
