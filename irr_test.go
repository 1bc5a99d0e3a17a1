package perform

import "testing"

func TestIRRSimpleYear(t *testing.T) {
	a := NewAccount("cash", "EUR")
	a.Append(
		AccountTx{On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(1000)},
		AccountTx{On: day("2024-12-31"), Kind: KindInterest, Amount: EUR(100)},
	)
	c := NewClient().AddAccount(a)

	rate, ws, err := IRR(c, identity("EUR"), NewRange(day("2024-01-01"), day("2024-12-31")))
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	if len(ws) != 0 {
		t.Errorf("Warnings = %v want none", ws)
	}
	// 1000 grows to 1100 over exactly 365 days
	closeTo(t, "rate", float64(rate), 0.1)
}

func TestIRRMidYearDepositNoGain(t *testing.T) {
	a := NewAccount("cash", "EUR")
	a.Append(
		AccountTx{On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(1000)},
		AccountTx{On: day("2024-07-01"), Kind: KindDeposit, Amount: EUR(1000)},
	)
	c := NewClient().AddAccount(a)

	rate, _, err := IRR(c, identity("EUR"), NewRange(day("2024-01-01"), day("2024-12-31")))
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	closeTo(t, "rate", float64(rate), 0)
}

func TestIRRWeighsFlowTiming(t *testing.T) {
	// the same 100 of gain is worth a higher rate when the second
	// thousand arrives late and barely participates
	early := NewAccount("cash", "EUR")
	early.Append(
		AccountTx{On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(2000)},
		AccountTx{On: day("2024-12-31"), Kind: KindInterest, Amount: EUR(100)},
	)
	late := NewAccount("cash", "EUR")
	late.Append(
		AccountTx{On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(1000)},
		AccountTx{On: day("2024-12-01"), Kind: KindDeposit, Amount: EUR(1000)},
		AccountTx{On: day("2024-12-31"), Kind: KindInterest, Amount: EUR(100)},
	)

	interval := NewRange(day("2024-01-01"), day("2024-12-31"))
	earlyRate, _, err := IRR(NewClient().AddAccount(early), identity("EUR"), interval)
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	lateRate, _, err := IRR(NewClient().AddAccount(late), identity("EUR"), interval)
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}

	if lateRate <= earlyRate {
		t.Errorf("late = %v early = %v want late > early", lateRate, earlyRate)
	}
}

func TestIRRTotalLossDoesNotConverge(t *testing.T) {
	// money goes in and vanishes: the NPV never crosses zero
	a := NewAccount("cash", "EUR")
	a.Append(
		AccountTx{On: day("2024-07-01"), Kind: KindDeposit, Amount: EUR(500)},
		AccountTx{On: day("2024-12-31"), Kind: KindFee, Amount: EUR(500)},
	)
	c := NewClient().AddAccount(a)

	rate, ws, err := IRR(c, identity("EUR"), NewRange(day("2024-01-01"), day("2024-12-31")))
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	if rate != 0 {
		t.Errorf("rate = %v want 0", rate)
	}
	if len(ws) != 1 {
		t.Fatalf("Warnings = %v want exactly one", ws)
	}
}

func TestIRRCountsDeliveries(t *testing.T) {
	msft := NewSecurity("MSFT", "EUR").
		SetPrice(day("2024-07-01"), newDecimal(10)).
		SetPrice(day("2024-12-31"), newDecimal(10))
	main := NewPortfolio("main", "broker")
	main.Append(
		PortfolioTx{On: day("2024-07-01"), Kind: KindDeliveryInbound, Security: "MSFT", Shares: Q(100), Amount: EUR(1000)},
	)
	c := NewClient().AddSecurity(msft).AddPortfolio(main)

	// the delivery is an inflow like a deposit; the price never moves, so
	// the rate is zero
	rate, _, err := IRR(c, identity("EUR"), NewRange(day("2024-01-01"), day("2024-12-31")))
	if err != nil {
		t.Fatalf("IRR() error = %v", err)
	}
	closeTo(t, "rate", float64(rate), 0)
}
