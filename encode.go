package perform

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// The holdings model and its market data persist as JSONL: one record per
// line, human-readable and diff-friendly. A "record" property tells the
// record types apart:
//
//	{"record":"security","ticker":"MSFT","currency":"USD"}
//	{"record":"price","ticker":"MSFT","on":"2025-01-03","price":415.2}
//	{"record":"rate","currency":"USD","on":"2025-01-03","rate":0.97}
//	{"record":"account","name":"broker","currency":"EUR"}
//	{"record":"portfolio","name":"main","account":"broker"}
//	{"record":"cash",...}   an account transaction
//	{"record":"trade",...}  a portfolio transaction
//
// Rate records quote one unit of the currency in the term currency the
// stream is decoded with.

type securityRec struct {
	Ticker   string `json:"ticker"`
	Currency string `json:"currency"`
}

type priceRec struct {
	Ticker string          `json:"ticker"`
	On     Date            `json:"on"`
	Price  decimal.Decimal `json:"price"`
}

type rateRec struct {
	Currency string          `json:"currency"`
	On       Date            `json:"on"`
	Rate     decimal.Decimal `json:"rate"`
}

type accountRec struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type portfolioRec struct {
	Name    string `json:"name"`
	Account string `json:"account,omitempty"`
}

type cashRec struct {
	Account    string          `json:"account"`
	On         Date            `json:"on"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Security   string          `json:"security,omitempty"`
	Fee        decimal.Decimal `json:"fee,omitempty"`
	Tax        decimal.Decimal `json:"tax,omitempty"`
	ID         string          `json:"id,omitempty"`
	CrossOwner string          `json:"crossOwner,omitempty"`
	CrossID    string          `json:"crossId,omitempty"`
}

type tradeRec struct {
	Portfolio  string          `json:"portfolio"`
	On         Date            `json:"on"`
	Kind       string          `json:"kind"`
	Security   string          `json:"security"`
	Shares     Quantity        `json:"shares"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee,omitempty"`
	Tax        decimal.Decimal `json:"tax,omitempty"`
	ID         string          `json:"id,omitempty"`
	CrossOwner string          `json:"crossOwner,omitempty"`
	CrossID    string          `json:"crossId,omitempty"`
}

// DecodeClient reads a JSONL stream into a holdings model and a rate
// table resolving to the term currency. Records may come in any order as
// long as securities, accounts and portfolios precede their prices and
// transactions.
func DecodeClient(r io.Reader, term string) (*Client, *RateTable, error) {
	c := NewClient()
	rates := NewRateTable(term)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var header struct {
			Record string `json:"record"`
		}
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, nil, fmt.Errorf("line %d: not a json record: %w", line, err)
		}

		var err error
		switch header.Record {
		case "security":
			var rec securityRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				c.AddSecurity(NewSecurity(rec.Ticker, rec.Currency))
			}
		case "price":
			var rec priceRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				s := c.Security(rec.Ticker)
				if s == nil {
					err = fmt.Errorf("price for unknown security %q", rec.Ticker)
					break
				}
				s.SetPrice(rec.On, rec.Price)
			}
		case "rate":
			var rec rateRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				rates.SetRate(rec.On, rec.Currency, rec.Rate)
			}
		case "account":
			var rec accountRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				c.AddAccount(NewAccount(rec.Name, rec.Currency))
			}
		case "portfolio":
			var rec portfolioRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				c.AddPortfolio(NewPortfolio(rec.Name, rec.Account))
			}
		case "cash":
			err = decodeCash(c, raw)
		case "trade":
			err = decodeTrade(c, raw)
		default:
			err = fmt.Errorf("unknown record type %q", header.Record)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return c, rates, nil
}

func decodeCash(c *Client, raw []byte) error {
	var rec cashRec
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}
	a := c.Account(rec.Account)
	if a == nil {
		return fmt.Errorf("cash transaction on unknown account %q", rec.Account)
	}
	kind, err := ParseTxKind(rec.Kind)
	if err != nil {
		return err
	}
	a.Append(AccountTx{
		ID:         rec.ID,
		On:         rec.On,
		Kind:       kind,
		Amount:     M(rec.Amount, a.Currency()),
		Security:   rec.Security,
		Fee:        M(rec.Fee, a.Currency()),
		Tax:        M(rec.Tax, a.Currency()),
		CrossOwner: rec.CrossOwner,
		CrossID:    rec.CrossID,
	})
	return nil
}

func decodeTrade(c *Client, raw []byte) error {
	var rec tradeRec
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}
	p := c.Portfolio(rec.Portfolio)
	if p == nil {
		return fmt.Errorf("trade on unknown portfolio %q", rec.Portfolio)
	}
	s := c.Security(rec.Security)
	if s == nil {
		return fmt.Errorf("trade in unknown security %q", rec.Security)
	}
	kind, err := ParseTxKind(rec.Kind)
	if err != nil {
		return err
	}
	p.Append(PortfolioTx{
		ID:         rec.ID,
		On:         rec.On,
		Kind:       kind,
		Security:   rec.Security,
		Shares:     rec.Shares,
		Amount:     M(rec.Amount, s.Currency()),
		Fee:        M(rec.Fee, s.Currency()),
		Tax:        M(rec.Tax, s.Currency()),
		CrossOwner: rec.CrossOwner,
		CrossID:    rec.CrossID,
	})
	return nil
}

// EncodeClient writes a holdings model back as a JSONL stream, in a
// stable order: securities, prices, accounts and their transactions,
// portfolios and theirs.
func EncodeClient(w io.Writer, c *Client) error {
	enc := newLineEncoder(w)

	for _, s := range c.Securities() {
		enc.record("security", securityRec{Ticker: s.Ticker(), Currency: s.Currency()})
	}
	for _, s := range c.Securities() {
		for on, price := range s.prices.Values() {
			enc.record("price", priceRec{Ticker: s.Ticker(), On: on, Price: price})
		}
	}
	for _, a := range c.Accounts() {
		enc.record("account", accountRec{Name: a.Name(), Currency: a.Currency()})
	}
	for _, p := range c.Portfolios() {
		enc.record("portfolio", portfolioRec{Name: p.Name(), Account: p.ReferenceAccount()})
	}
	for _, a := range c.Accounts() {
		for _, t := range a.Txs() {
			enc.record("cash", cashRec{
				Account:    a.Name(),
				On:         t.On,
				Kind:       t.Kind.String(),
				Amount:     t.Amount.value,
				Security:   t.Security,
				Fee:        t.Fee.value,
				Tax:        t.Tax.value,
				ID:         t.ID,
				CrossOwner: t.CrossOwner,
				CrossID:    t.CrossID,
			})
		}
	}
	for _, p := range c.Portfolios() {
		for _, t := range p.Txs() {
			enc.record("trade", tradeRec{
				Portfolio:  p.Name(),
				On:         t.On,
				Kind:       t.Kind.String(),
				Security:   t.Security,
				Shares:     t.Shares,
				Amount:     t.Amount.value,
				Fee:        t.Fee.value,
				Tax:        t.Tax.value,
				ID:         t.ID,
				CrossOwner: t.CrossOwner,
				CrossID:    t.CrossID,
			})
		}
	}
	return enc.err
}

// lineEncoder writes one json object per line, tagging each with its
// record type and remembering the first error.
type lineEncoder struct {
	w   io.Writer
	err error
}

func newLineEncoder(w io.Writer) *lineEncoder { return &lineEncoder{w: w} }

func (e *lineEncoder) record(kind string, rec any) {
	if e.err != nil {
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		e.err = err
		return
	}
	// splice the record type in front of the other properties
	if _, err := fmt.Fprintf(e.w, "{\"record\":%q,%s\n", kind, body[1:]); err != nil {
		e.err = err
	}
}
