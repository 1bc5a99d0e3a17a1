package perform

import "fmt"

// A Scope synthesizes the view of a client that a scoped index is computed
// on: a pseudo client containing only the relevant transactions, with
// out-of-scope counterparts reinterpreted as external flows. The daily
// index algorithm then runs on the pseudo client unchanged.
//
// A Scope fails only on a transaction kind its reinterpretation table does
// not cover. The kind enumeration is closed, so such a failure means the
// model was corrupted upstream.
type Scope func(c *Client) (*Client, error)

// ClientScope is the identity view: the whole client.
func ClientScope() Scope {
	return func(c *Client) (*Client, error) { return c, nil }
}

// AccountScope restricts the view to the named accounts. Cash events whose
// counterpart lives outside the view become plain deposits and removals:
// a buy is cash leaving the view, a sell or dividend is cash entering it.
func AccountScope(names ...string) Scope {
	return ElementsScope(names, nil)
}

// PortfolioScope restricts the view to the named portfolios. Buys and
// sells settle outside the view, so they become inbound and outbound
// deliveries.
func PortfolioScope(names ...string) Scope {
	return ElementsScope(nil, names)
}

// ElementsScope restricts the view to an arbitrary set of accounts and
// portfolios. Transactions whose both legs are in scope pass through
// unchanged; transactions crossing the boundary are reinterpreted as
// external flows on the in-scope side.
func ElementsScope(accounts, portfolios []string) Scope {
	return func(c *Client) (*Client, error) {
		f := &elementsFilter{
			client:     c,
			accounts:   toSet(accounts),
			portfolios: toSet(portfolios),
			used:       make(map[string]bool),
			pseudo:     NewClient(),
		}
		return f.run()
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

type elementsFilter struct {
	client     *Client
	accounts   map[string]bool
	portfolios map[string]bool
	used       map[string]bool // securities referenced by kept portfolio txs
	pseudo     *Client
}

func (f *elementsFilter) run() (*Client, error) {
	for _, p := range f.client.Portfolios() {
		if !f.portfolios[p.Name()] {
			continue
		}
		pseudo := NewPortfolio(p.Name(), p.ReferenceAccount())
		f.pseudo.AddPortfolio(pseudo)
		if err := f.adaptPortfolio(p, pseudo); err != nil {
			return nil, err
		}
	}
	for _, a := range f.client.Accounts() {
		if !f.accounts[a.Name()] {
			continue
		}
		pseudo := NewAccount(a.Name(), a.Currency())
		f.pseudo.AddAccount(pseudo)
		if err := f.adaptAccount(a, pseudo); err != nil {
			return nil, err
		}
	}
	for ticker := range f.used {
		if s := f.client.Security(ticker); s != nil {
			f.pseudo.AddSecurity(s)
		}
	}
	return f.pseudo, nil
}

func (f *elementsFilter) adaptPortfolio(p *Portfolio, pseudo *Portfolio) error {
	for _, t := range p.Txs() {
		f.used[t.Security] = true

		switch t.Kind {
		case KindBuy:
			if f.accounts[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asDelivery(t, KindDeliveryInbound))
			}
		case KindSell:
			if f.accounts[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asDelivery(t, KindDeliveryOutbound))
			}
		case KindTransferIn:
			if f.portfolios[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asDelivery(t, KindDeliveryInbound))
			}
		case KindTransferOut:
			if f.portfolios[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asDelivery(t, KindDeliveryOutbound))
			}
		case KindDeliveryInbound, KindDeliveryOutbound:
			pseudo.Append(t)
		default:
			return fmt.Errorf("portfolio %s on %s: no view rule for %s", p.Name(), t.On, t.Kind)
		}
	}
	return nil
}

func (f *elementsFilter) adaptAccount(a *Account, pseudo *Account) error {
	for _, t := range a.Txs() {
		switch t.Kind {
		case KindBuy:
			if f.portfolios[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asCashFlow(t, KindRemoval))
			}
		case KindSell:
			if f.portfolios[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asCashFlow(t, KindDeposit))
			}
		case KindTransferIn:
			if f.accounts[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asCashFlow(t, KindDeposit))
			}
		case KindTransferOut:
			if f.accounts[t.CrossOwner] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asCashFlow(t, KindRemoval))
			}
		case KindDividend, KindTaxRefund, KindFeeRefund:
			if t.Security == "" || f.used[t.Security] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asCashFlow(t, KindDeposit))
			}
		case KindTax, KindFee:
			if t.Security == "" || f.used[t.Security] {
				pseudo.Append(t)
			} else {
				pseudo.Append(asCashFlow(t, KindRemoval))
			}
		case KindDeposit, KindRemoval, KindInterest, KindInterestCharge:
			pseudo.Append(t)
		default:
			return fmt.Errorf("account %s on %s: no view rule for %s", a.Name(), t.On, t.Kind)
		}
	}
	return nil
}

// asDelivery reinterprets a settled trade as an external security flow,
// keeping value, shares, fees and taxes.
func asDelivery(t PortfolioTx, kind TxKind) PortfolioTx {
	return PortfolioTx{
		On:       t.On,
		Kind:     kind,
		Security: t.Security,
		Shares:   t.Shares,
		Amount:   t.Amount,
		Fee:      t.Fee,
		Tax:      t.Tax,
	}
}

// asCashFlow reinterprets a cash event as an external flow. Deposits and
// removals carry no security and no sub-amounts.
func asCashFlow(t AccountTx, kind TxKind) AccountTx {
	return AccountTx{On: t.On, Kind: kind, Amount: t.Amount}
}

// SecurityScope restricts the view to single securities: the performance
// of the positions themselves, with dividends counted as return but cash
// kept out of the valuation basis. It is the classification view of a
// virtual node holding the securities at full weight.
func SecurityScope(tickers ...string) Scope {
	node := NewClassification("securities")
	for _, ticker := range tickers {
		node.AssignSecurity(ticker, WeightOne)
	}
	return ClassificationScope(node)
}

// ClassificationScope restricts the view to the vehicles assigned to a
// classification subtree, scaling every amount by the assigned weight.
// At full weight original transactions are reused unscaled. When a trade
// joins a security and an account assigned at different weights, the
// common part stays a trade and each side's excess becomes an external
// flow, so neither vehicle's view sees more than its share.
func ClassificationScope(node *Classification) Scope {
	return func(c *Client) (*Client, error) {
		f := newClassificationFilter(c, node)
		return f.run()
	}
}

// UnassignedScope is the complement view of a taxonomy: every vehicle at
// the weight the tree leaves unassigned. Amounts are derived by subtracting
// the rounded assigned slice from the original, so for any vehicle the
// assigned views and the unassigned view sum back to the client exactly,
// with every rounding residual landing in the unassigned bucket.
func UnassignedScope(tax *Taxonomy) Scope {
	return func(c *Client) (*Client, error) {
		f := newClassificationFilter(c, tax.Unassigned(c))
		f.complement = true
		return f.run()
	}
}

type classificationFilter struct {
	client     *Client
	secWeight  map[string]int
	accWeight  map[string]int
	pseudo     *Client
	accounts   map[string]*Account   // pseudo accounts by name, all client accounts
	folios     map[string]*Portfolio // pseudo portfolios by name
	complement bool                  // scale as original minus assigned slice
}

func newClassificationFilter(c *Client, node *Classification) *classificationFilter {
	f := &classificationFilter{
		client:    c,
		secWeight: make(map[string]int),
		accWeight: make(map[string]int),
		pseudo:    NewClient(),
		accounts:  make(map[string]*Account),
		folios:    make(map[string]*Portfolio),
	}
	node.visit(func(a Assignment) {
		switch {
		case a.Security != "":
			f.secWeight[a.Security] += a.Weight
		case a.Account != "":
			f.accWeight[a.Account] += a.Weight
		}
	})
	return f
}

func (f *classificationFilter) run() (*Client, error) {
	for _, a := range f.client.Accounts() {
		pseudo := NewAccount(a.Name(), a.Currency())
		f.accounts[a.Name()] = pseudo
		f.pseudo.AddAccount(pseudo)
	}
	for _, p := range f.client.Portfolios() {
		pseudo := NewPortfolio(p.Name(), p.ReferenceAccount())
		f.folios[p.Name()] = pseudo
		f.pseudo.AddPortfolio(pseudo)
	}

	for _, p := range f.client.Portfolios() {
		if err := f.adaptPortfolio(p); err != nil {
			return nil, err
		}
	}
	for _, a := range f.client.Accounts() {
		var err error
		if f.accWeight[a.Name()] > 0 {
			err = f.adaptAccount(a)
		} else {
			err = f.collectSecurityRelated(a)
		}
		if err != nil {
			return nil, err
		}
	}

	for ticker := range f.secWeight {
		if s := f.client.Security(ticker); s != nil {
			f.pseudo.AddSecurity(s)
		}
	}
	return f.pseudo, nil
}

func (f *classificationFilter) adaptPortfolio(p *Portfolio) error {
	pseudo := f.folios[p.Name()]
	for _, t := range p.Txs() {
		secW := f.secWeight[t.Security]
		if secW == 0 {
			continue
		}

		switch t.Kind {
		case KindBuy, KindSell:
			if f.accWeight[t.CrossOwner] == 0 {
				kind := KindDeliveryInbound
				if t.Kind == KindSell {
					kind = KindDeliveryOutbound
				}
				pseudo.Append(f.scaledDelivery(t, kind, secW))
			} else if err := f.splitTrade(pseudo, t, secW); err != nil {
				return err
			}
		case KindDeliveryInbound, KindDeliveryOutbound:
			pseudo.Append(f.scaledDelivery(t, t.Kind, secW))
		case KindTransferIn:
			// recreate the pair from the inbound side
			source := f.folios[t.CrossOwner]
			if source == nil {
				pseudo.Append(f.scaledDelivery(t, KindDeliveryInbound, secW))
				break
			}
			pseudo.Append(f.scaledTransfer(t, secW))
			// outbound leg, mirrored
			out := f.scaledTransfer(t, secW)
			out.Kind = KindTransferOut
			out.CrossOwner = p.Name()
			source.Append(out)
		case KindTransferOut:
			// handled via the inbound leg
		default:
			return fmt.Errorf("portfolio %s on %s: no view rule for %s", p.Name(), t.On, t.Kind)
		}
	}
	return nil
}

// splitTrade splits a trade between a weighted security and a weighted
// account. The part both assignments share stays a trade; an account
// excess becomes a deposit or removal, a security excess becomes a
// delivery. Taxes are stripped from the security side throughout.
func (f *classificationFilter) splitTrade(pseudo *Portfolio, t PortfolioTx, secW int) error {
	account := f.accounts[t.CrossOwner]
	if account == nil {
		return fmt.Errorf("portfolio %s on %s: %s settles on unknown account %q", pseudo.Name(), t.On, t.Kind, t.CrossOwner)
	}

	taxes := f.scaled(t.Tax, secW)
	secAmount := f.scaled(t.Amount, secW)
	if t.Kind == KindBuy {
		secAmount = secAmount.Sub(taxes)
	} else {
		secAmount = secAmount.Add(taxes)
	}

	accW := f.accWeight[t.CrossOwner]
	accAmount := f.scaled(t.Amount, accW)

	common := secAmount
	if accAmount.LessThan(common) {
		common = accAmount
	}
	commonF := fractionOf(secW)
	if !secAmount.IsZero() {
		commonF = common.value.Div(secAmount.value).Mul(commonF)
	}

	pseudo.Append(PortfolioTx{
		On:         t.On,
		Kind:       t.Kind,
		Security:   t.Security,
		Shares:     t.Shares.Scale(commonF),
		Amount:     common,
		Fee:        t.Fee.Scale(commonF),
		CrossOwner: account.Name(),
	})
	account.Append(AccountTx{
		On:         t.On,
		Kind:       t.Kind,
		Amount:     common,
		Security:   t.Security,
		Fee:        t.Fee.Scale(commonF),
		CrossOwner: pseudo.Name(),
	})

	if excess := accAmount.Sub(common); excess.IsPositive() {
		kind := KindRemoval
		if t.Kind == KindSell {
			kind = KindDeposit
		}
		account.Append(AccountTx{On: t.On, Kind: kind, Amount: excess})
	}

	if excess := secAmount.Sub(common); excess.IsPositive() {
		kind := KindDeliveryInbound
		if t.Kind == KindSell {
			kind = KindDeliveryOutbound
		}
		restF := fractionOf(secW).Sub(commonF)
		pseudo.Append(PortfolioTx{
			On:       t.On,
			Kind:     kind,
			Security: t.Security,
			Shares:   t.Shares.Scale(restF),
			Amount:   excess,
			Fee:      t.Fee.Scale(restF),
		})
	}
	return nil
}

func (f *classificationFilter) adaptAccount(a *Account) error {
	accW := f.accWeight[a.Name()]
	pseudo := f.accounts[a.Name()]

	for _, t := range a.Txs() {
		amount := f.scaled(t.Amount, accW)

		switch t.Kind {
		case KindBuy:
			// trades in weighted securities are split on the portfolio side
			if f.secWeight[t.Security] == 0 {
				pseudo.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: amount})
			}
		case KindSell:
			if f.secWeight[t.Security] == 0 {
				pseudo.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: amount})
			}
		case KindDividend:
			if f.secWeight[t.Security] == 0 {
				pseudo.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: amount})
			} else {
				f.addWeightedEarning(pseudo, t, accW)
			}
		case KindFeeRefund:
			switch {
			case t.Security != "" && f.secWeight[t.Security] > 0:
				f.addWeightedEarning(pseudo, t, accW)
			case t.Security != "":
				pseudo.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: amount})
			default:
				pseudo.Append(AccountTx{On: t.On, Kind: t.Kind, Amount: amount})
			}
		case KindFee:
			switch {
			case t.Security != "" && f.secWeight[t.Security] > 0:
				f.addWeightedEarning(pseudo, t, accW)
			case t.Security != "":
				pseudo.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: amount})
			default:
				pseudo.Append(AccountTx{On: t.On, Kind: t.Kind, Amount: amount})
			}
		case KindTransferIn:
			if f.accWeight[t.CrossOwner] > 0 {
				if err := f.addTransfer(a, t); err != nil {
					return err
				}
			} else {
				pseudo.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: amount})
			}
		case KindTransferOut:
			// a weighted counter account recreates the pair from its side
			if f.accWeight[t.CrossOwner] == 0 {
				pseudo.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: amount})
			}
		case KindTaxRefund:
			// taxes never count into classification performance
			pseudo.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: amount})
		case KindTax:
			pseudo.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: amount})
		case KindDeposit, KindRemoval, KindInterest, KindInterestCharge:
			pseudo.Append(AccountTx{On: t.On, Kind: t.Kind, Amount: amount})
		default:
			return fmt.Errorf("account %s on %s: no view rule for %s", a.Name(), t.On, t.Kind)
		}
	}
	return nil
}

// addWeightedEarning books a security earning (dividend, fee, refund) at
// the security's weight, gross of withheld taxes, and settles the gap to
// the account's own weight with a deposit or removal.
func (f *classificationFilter) addWeightedEarning(pseudo *Account, t AccountTx, accW int) {
	secW := f.secWeight[t.Security]
	taxes := f.scaled(t.Tax, secW)
	amount := f.scaled(t.Amount, secW)
	gross := amount.Add(taxes)

	pseudo.Append(AccountTx{
		On:       t.On,
		Kind:     t.Kind,
		Amount:   gross,
		Security: t.Security,
		Fee:      f.scaled(t.Fee, secW),
	})

	delta := f.scaled(t.Amount, accW).Sub(gross)
	if delta.IsZero() {
		return
	}
	sign, err := t.Kind.cashSign()
	if err != nil {
		sign = 1
	}
	kind := KindRemoval
	if delta.IsPositive() == (sign > 0) {
		kind = KindDeposit
	}
	pseudo.Append(AccountTx{On: t.On, Kind: kind, Amount: delta.Abs()})
}

// addTransfer recreates a transfer between two weighted accounts from the
// inbound side. The pair is carried at the lower weight; the heavier side
// books the difference as its own external flow.
func (f *classificationFilter) addTransfer(inbound *Account, t AccountTx) error {
	pseudoOut := f.accounts[t.CrossOwner]
	if pseudoOut == nil {
		return fmt.Errorf("account %s on %s: %s from unknown account %q", inbound.Name(), t.On, t.Kind, t.CrossOwner)
	}
	wi := f.accWeight[inbound.Name()]
	wo := f.accWeight[t.CrossOwner]
	pseudoIn := f.accounts[inbound.Name()]

	common := min(wi, wo)
	pseudoIn.Append(AccountTx{
		On:         t.On,
		Kind:       KindTransferIn,
		Amount:     f.scaled(t.Amount, common),
		CrossOwner: t.CrossOwner,
	})
	pseudoOut.Append(AccountTx{
		On:         t.On,
		Kind:       KindTransferOut,
		Amount:     f.scaled(t.Amount, common),
		CrossOwner: inbound.Name(),
	})

	switch {
	case wo > wi:
		pseudoOut.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: f.scaled(t.Amount, wo-wi)})
	case wi > wo:
		pseudoIn.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: f.scaled(t.Amount, wi-wo)})
	}
	return nil
}

// collectSecurityRelated keeps, on an unweighted account, the earnings of
// weighted securities as performance without letting the cash linger: each
// earning is immediately neutralized by an opposite external flow.
func (f *classificationFilter) collectSecurityRelated(a *Account) error {
	pseudo := f.accounts[a.Name()]

	for _, t := range a.Txs() {
		if t.Security == "" {
			continue
		}
		secW := f.secWeight[t.Security]
		if secW == 0 {
			continue
		}

		switch t.Kind {
		case KindDividend:
			gross := f.scaled(t.Amount, secW).Add(f.scaled(t.Tax, secW))
			pseudo.Append(AccountTx{On: t.On, Kind: KindDividend, Amount: gross, Security: t.Security})
			pseudo.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: gross})
		case KindFee:
			amount := f.scaled(t.Amount, secW)
			pseudo.Append(AccountTx{On: t.On, Kind: KindFee, Amount: amount, Security: t.Security})
			pseudo.Append(AccountTx{On: t.On, Kind: KindDeposit, Amount: amount})
		case KindFeeRefund:
			amount := f.scaled(t.Amount, secW)
			pseudo.Append(AccountTx{On: t.On, Kind: KindFeeRefund, Amount: amount, Security: t.Security})
			pseudo.Append(AccountTx{On: t.On, Kind: KindRemoval, Amount: amount})
		case KindTax, KindTaxRefund,
			KindBuy, KindSell, KindTransferIn, KindTransferOut,
			KindDeposit, KindRemoval, KindInterest, KindInterestCharge:
			// not performance of the security in this view
		default:
			return fmt.Errorf("account %s on %s: no view rule for %s", a.Name(), t.On, t.Kind)
		}
	}
	return nil
}

// scaledTransfer carries the inbound leg of a portfolio transfer at the
// security's weight.
func (f *classificationFilter) scaledTransfer(t PortfolioTx, weight int) PortfolioTx {
	return PortfolioTx{
		On:         t.On,
		Kind:       KindTransferIn,
		Security:   t.Security,
		Shares:     f.scaledShares(t.Shares, weight),
		Amount:     f.scaled(t.Amount, weight),
		CrossOwner: t.CrossOwner,
	}
}

// scaledDelivery reinterprets a security flow at a weight, stripping taxes
// from the amount so the view prices the security net of taxation.
func (f *classificationFilter) scaledDelivery(t PortfolioTx, kind TxKind, weight int) PortfolioTx {
	taxes := f.scaled(t.Tax, weight)
	amount := f.scaled(t.Amount, weight)
	if kind == KindDeliveryInbound {
		amount = amount.Sub(taxes)
	} else {
		amount = amount.Add(taxes)
	}
	return PortfolioTx{
		On:       t.On,
		Kind:     kind,
		Security: t.Security,
		Shares:   f.scaledShares(t.Shares, weight),
		Amount:   amount,
		Fee:      f.scaled(t.Fee, weight),
	}
}

// scaled slices an amount at weight/WeightOne, reusing the exact amount at
// full weight. A complement view books the original minus the assigned
// slice instead of rounding its own slice, so the assigned views and the
// unassigned view of one vehicle always sum back to the original.
func (f *classificationFilter) scaled(m Money, weight int) Money {
	if weight == WeightOne {
		return m
	}
	if f.complement {
		return m.Sub(m.Scale(fractionOf(WeightOne - weight)))
	}
	return m.Scale(fractionOf(weight))
}

// scaledShares slices a share count the same way.
func (f *classificationFilter) scaledShares(q Quantity, weight int) Quantity {
	if weight == WeightOne {
		return q
	}
	if f.complement {
		return q.Sub(q.Scale(fractionOf(WeightOne - weight)))
	}
	return q.Scale(fractionOf(weight))
}
