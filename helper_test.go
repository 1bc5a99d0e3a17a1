package perform

import (
	"math"
	"testing"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// day is a helper for test to create dates from const
func day(s string) Date { return MustParseDate(s) }

// identity converts money already in the term currency, never failing.
type identity string

func (i identity) TermCurrency() string { return string(i) }

func (i identity) Convert(on Date, m Money) (Money, bool) {
	return M(m.value, string(i)), true
}

// closeTo checks float equality the way series of compounded returns can
// be checked: within a millionth.
func closeTo(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.000001 {
		t.Errorf("%s = %v want %v", name, got, want)
	}
}

// excelClient is a single cash account with a week of deposits, removals,
// interests and fees whose daily returns are known from a spreadsheet.
func excelClient() *Client {
	a := NewAccount("cash", "EUR")
	a.Append(
		AccountTx{On: day("2011-12-31"), Kind: KindDeposit, Amount: EUR(10000)},
		AccountTx{On: day("2012-01-01"), Kind: KindInterest, Amount: EUR(230)},
		AccountTx{On: day("2012-01-02"), Kind: KindDeposit, Amount: EUR(200)},
		AccountTx{On: day("2012-01-02"), Kind: KindInterest, Amount: EUR(200)},
		AccountTx{On: day("2012-01-03"), Kind: KindRemoval, Amount: EUR(400)},
		AccountTx{On: day("2012-01-03"), Kind: KindFee, Amount: EUR(234.41)},
		AccountTx{On: day("2012-01-04"), Kind: KindInterest, Amount: EUR(293.99)},
		AccountTx{On: day("2012-01-05"), Kind: KindInterest, Amount: EUR(293.99)},
		AccountTx{On: day("2012-01-06"), Kind: KindDeposit, Amount: EUR(5400)},
		AccountTx{On: day("2012-01-06"), Kind: KindInterest, Amount: EUR(195.99)},
		AccountTx{On: day("2012-01-07"), Kind: KindRemoval, Amount: EUR(3697.04)},
		AccountTx{On: day("2012-01-07"), Kind: KindFee, Amount: EUR(882.52)},
		AccountTx{On: day("2012-01-08"), Kind: KindFee, Amount: EUR(1003.85)},
	)
	return NewClient().AddAccount(a)
}

// tradedClient holds 100 shares bought at 10.00 with the price rising to
// 12.00 by day five.
func tradedClient() *Client {
	msft := NewSecurity("MSFT", "EUR").
		SetPrice(day("2024-01-01"), newDecimal(10)).
		SetPrice(day("2024-01-03"), newDecimal(11)).
		SetPrice(day("2024-01-05"), newDecimal(12))

	broker := NewAccount("broker", "EUR")
	broker.Append(
		AccountTx{ID: "d1", On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(1000)},
		AccountTx{ID: "b1", On: day("2024-01-01"), Kind: KindBuy, Amount: EUR(1000), Security: "MSFT", CrossOwner: "main", CrossID: "t1"},
	)
	main := NewPortfolio("main", "broker")
	main.Append(
		PortfolioTx{ID: "t1", On: day("2024-01-01"), Kind: KindBuy, Security: "MSFT", Shares: Q(100), Amount: EUR(1000), CrossOwner: "broker", CrossID: "b1"},
	)
	return NewClient().AddSecurity(msft).AddAccount(broker).AddPortfolio(main)
}
