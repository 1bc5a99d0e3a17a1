package perform

import "testing"

func TestSnapshotReplaysFunds(t *testing.T) {
	c := excelClient()

	s, err := NewSnapshot(c, day("2012-01-03"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	// 10000 + 230 + 200 + 200 - 400 - 234.41
	if got := s.Funds("cash"); !got.Equal(EUR(9995.59)) {
		t.Errorf("Funds(cash) = %s want %s", got, EUR(9995.59))
	}

	before, err := NewSnapshot(c, day("2011-12-30"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if got := before.Funds("cash"); !got.IsZero() {
		t.Errorf("Funds(cash) before first deposit = %s want zero", got)
	}
}

func TestSnapshotPositions(t *testing.T) {
	s, err := NewSnapshot(tradedClient(), day("2024-01-03"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}

	if got := s.Shares("MSFT"); !got.Equal(Q(100)) {
		t.Errorf("Shares(MSFT) = %s want %s", got, Q(100))
	}
	p := s.Position("MSFT")
	if !p.Price.Equal(EUR(11)) {
		t.Errorf("Price = %s want %s", p.Price, EUR(11))
	}
	if !p.Value.Equal(EUR(1100)) {
		t.Errorf("Value = %s want %s", p.Value, EUR(1100))
	}
	if got := s.Funds("broker"); !got.IsZero() {
		t.Errorf("Funds(broker) = %s want zero", got)
	}

	total, ws := s.Total(identity("EUR"))
	if len(ws) != 0 {
		t.Errorf("Total() warnings = %v want none", ws)
	}
	if !total.Equal(EUR(1100)) {
		t.Errorf("Total() = %s want %s", total, EUR(1100))
	}
}

func TestSnapshotImpliedPriceFallback(t *testing.T) {
	// a quote exists only later: the buy itself prices the position
	msft := NewSecurity("MSFT", "EUR").SetPrice(day("2024-02-01"), newDecimal(15))
	broker := NewAccount("broker", "EUR")
	broker.Append(
		AccountTx{ID: "d1", On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(2000)},
		AccountTx{ID: "b1", On: day("2024-01-02"), Kind: KindBuy, Amount: EUR(1210), Security: "MSFT", CrossOwner: "main", CrossID: "t1"},
	)
	main := NewPortfolio("main", "broker")
	main.Append(
		PortfolioTx{ID: "t1", On: day("2024-01-02"), Kind: KindBuy, Security: "MSFT", Shares: Q(100), Amount: EUR(1210), Fee: EUR(10), CrossOwner: "broker", CrossID: "b1"},
	)
	c := NewClient().AddSecurity(msft).AddAccount(broker).AddPortfolio(main)

	s, err := NewSnapshot(c, day("2024-01-10"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	// gross of the fee: (1210 - 10) / 100
	if got := s.Position("MSFT").Price; !got.Equal(EUR(12)) {
		t.Errorf("Price = %s want %s", got, EUR(12))
	}
	if len(s.Warnings()) != 0 {
		t.Errorf("Warnings = %v want none", s.Warnings())
	}

	// once a quote exists it wins over the implied price
	later, err := NewSnapshot(c, day("2024-02-02"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if got := later.Position("MSFT").Price; !got.Equal(EUR(15)) {
		t.Errorf("Price = %s want %s", got, EUR(15))
	}
}

func TestSnapshotUnpricedPositionWarns(t *testing.T) {
	msft := NewSecurity("MSFT", "EUR")
	main := NewPortfolio("main", "broker")
	main.Append(
		PortfolioTx{On: day("2024-01-02"), Kind: KindDeliveryInbound, Security: "MSFT", Shares: Q(100)},
	)
	c := NewClient().AddSecurity(msft).AddPortfolio(main)

	s, err := NewSnapshot(c, day("2024-01-10"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if got := s.Position("MSFT").Value; !got.IsZero() {
		t.Errorf("Value = %s want zero", got)
	}
	if len(s.Warnings()) != 1 {
		t.Errorf("Warnings = %v want exactly one", s.Warnings())
	}
}

func TestSnapshotTotalConverts(t *testing.T) {
	us := NewAccount("us", "USD")
	us.Append(AccountTx{On: day("2024-01-02"), Kind: KindDeposit, Amount: USD(1000)})
	eu := NewAccount("eu", "EUR")
	eu.Append(AccountTx{On: day("2024-01-02"), Kind: KindDeposit, Amount: EUR(500)})
	c := NewClient().AddAccount(us).AddAccount(eu)

	rates := NewRateTable("EUR")
	rates.SetRate(day("2024-01-01"), "USD", newDecimal(0.9))

	s, err := NewSnapshot(c, day("2024-01-05"))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	total, ws := s.Total(rates)
	if len(ws) != 0 {
		t.Errorf("Total() warnings = %v want none", ws)
	}
	if !total.Equal(EUR(1400)) {
		t.Errorf("Total() = %s want %s", total, EUR(1400))
	}
}
