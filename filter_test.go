package perform

import (
	"context"
	"testing"
)

func TestAccountScope(t *testing.T) {
	view, err := AccountScope("broker")(tradedClient())
	if err != nil {
		t.Fatalf("AccountScope() error = %v", err)
	}

	if view.Portfolio("main") != nil {
		t.Error("portfolio main leaked into the account view")
	}
	a := view.Account("broker")
	if a == nil {
		t.Fatal("account broker missing from its own view")
	}

	txs := a.Txs()
	if len(txs) != 2 {
		t.Fatalf("got %d transactions want 2", len(txs))
	}
	// the buy settles outside the view: cash leaves
	if txs[1].Kind != KindRemoval {
		t.Errorf("buy became %s want %s", txs[1].Kind, KindRemoval)
	}
	if !txs[1].Amount.Equal(EUR(1000)) {
		t.Errorf("removal amount = %s want %s", txs[1].Amount, EUR(1000))
	}
	if txs[1].Security != "" {
		t.Errorf("removal kept security %q", txs[1].Security)
	}
}

func TestAccountScopeSellBecomesDeposit(t *testing.T) {
	a := NewAccount("broker", "EUR")
	a.Append(AccountTx{On: day("2024-02-01"), Kind: KindSell, Amount: EUR(500), Security: "MSFT", CrossOwner: "main", CrossID: "t9"})
	c := NewClient().AddAccount(a)

	view, err := AccountScope("broker")(c)
	if err != nil {
		t.Fatalf("AccountScope() error = %v", err)
	}
	txs := view.Account("broker").Txs()
	if len(txs) != 1 || txs[0].Kind != KindDeposit {
		t.Fatalf("sell became %v want a single %s", txs, KindDeposit)
	}
}

func TestAccountScopeKeepsInScopeTrade(t *testing.T) {
	view, err := ElementsScope([]string{"broker"}, []string{"main"})(tradedClient())
	if err != nil {
		t.Fatalf("ElementsScope() error = %v", err)
	}

	txs := view.Account("broker").Txs()
	if txs[1].Kind != KindBuy {
		t.Errorf("in-scope buy became %s", txs[1].Kind)
	}
	ptxs := view.Portfolio("main").Txs()
	if len(ptxs) != 1 || ptxs[0].Kind != KindBuy {
		t.Fatalf("in-scope portfolio buy became %v", ptxs)
	}
	if view.Security("MSFT") == nil {
		t.Error("security MSFT missing from the view")
	}
}

func TestPortfolioScope(t *testing.T) {
	view, err := PortfolioScope("main")(tradedClient())
	if err != nil {
		t.Fatalf("PortfolioScope() error = %v", err)
	}

	if view.Account("broker") != nil {
		t.Error("account broker leaked into the portfolio view")
	}
	txs := view.Portfolio("main").Txs()
	if len(txs) != 1 {
		t.Fatalf("got %d transactions want 1", len(txs))
	}
	// the buy settles outside the view: shares are delivered in
	if txs[0].Kind != KindDeliveryInbound {
		t.Errorf("buy became %s want %s", txs[0].Kind, KindDeliveryInbound)
	}
	if !txs[0].Shares.Equal(Q(100)) {
		t.Errorf("delivered shares = %s want %s", txs[0].Shares, Q(100))
	}
}

func TestAccountScopeSecurityEarnings(t *testing.T) {
	// dividends of a security absent from the view are plain deposits
	a := NewAccount("broker", "EUR")
	a.Append(
		AccountTx{On: day("2024-02-01"), Kind: KindDividend, Amount: EUR(30), Security: "MSFT"},
		AccountTx{On: day("2024-02-02"), Kind: KindFee, Amount: EUR(5), Security: "MSFT"},
		AccountTx{On: day("2024-02-03"), Kind: KindFee, Amount: EUR(2)},
	)
	c := NewClient().AddAccount(a)

	view, err := AccountScope("broker")(c)
	if err != nil {
		t.Fatalf("AccountScope() error = %v", err)
	}
	txs := view.Account("broker").Txs()
	want := []TxKind{KindDeposit, KindRemoval, KindFee}
	for i, k := range want {
		if txs[i].Kind != k {
			t.Errorf("txs[%d].Kind = %s want %s", i, txs[i].Kind, k)
		}
	}
}

func TestClassificationScopeFullWeight(t *testing.T) {
	node := NewClassification("tech").
		AssignSecurity("MSFT", WeightOne).
		AssignAccount("broker", WeightOne)

	view, err := ClassificationScope(node)(tradedClient())
	if err != nil {
		t.Fatalf("ClassificationScope() error = %v", err)
	}

	txs := view.Account("broker").Txs()
	if len(txs) != 2 {
		t.Fatalf("got %d account transactions want 2", len(txs))
	}
	byKind := make(map[TxKind]Money)
	for _, tx := range txs {
		byKind[tx.Kind] = tx.Amount
	}
	if !byKind[KindDeposit].Equal(EUR(1000)) {
		t.Errorf("deposit = %s want %s", byKind[KindDeposit], EUR(1000))
	}
	if !byKind[KindBuy].Equal(EUR(1000)) {
		t.Errorf("buy leg = %s want %s", byKind[KindBuy], EUR(1000))
	}

	ptxs := view.Portfolio("main").Txs()
	if len(ptxs) != 1 || ptxs[0].Kind != KindBuy || !ptxs[0].Shares.Equal(Q(100)) {
		t.Fatalf("portfolio view = %v want the full buy", ptxs)
	}
}

func TestClassificationScopePartialWeight(t *testing.T) {
	// security at 40%, account unweighted: the whole trade becomes a
	// scaled inbound delivery
	node := NewClassification("tech").AssignSecurity("MSFT", 40_00)

	view, err := ClassificationScope(node)(tradedClient())
	if err != nil {
		t.Fatalf("ClassificationScope() error = %v", err)
	}

	ptxs := view.Portfolio("main").Txs()
	if len(ptxs) != 1 {
		t.Fatalf("got %d portfolio transactions want 1", len(ptxs))
	}
	if ptxs[0].Kind != KindDeliveryInbound {
		t.Errorf("Kind = %s want %s", ptxs[0].Kind, KindDeliveryInbound)
	}
	if !ptxs[0].Shares.Equal(Q(40)) {
		t.Errorf("Shares = %s want %s", ptxs[0].Shares, Q(40))
	}
	if !ptxs[0].Amount.Equal(EUR(400)) {
		t.Errorf("Amount = %s want %s", ptxs[0].Amount, EUR(400))
	}

	// the unweighted account contributed nothing
	if got := view.Account("broker").Txs(); len(got) != 0 {
		t.Errorf("account view = %v want empty", got)
	}
}

func TestClassificationScopeSplitTrade(t *testing.T) {
	// security at 100%, account at 40%: the trade splits into a common
	// part at 40% and a security-side delivery for the remaining 60%
	node := NewClassification("mixed").
		AssignSecurity("MSFT", WeightOne).
		AssignAccount("broker", 40_00)

	view, err := ClassificationScope(node)(tradedClient())
	if err != nil {
		t.Fatalf("ClassificationScope() error = %v", err)
	}

	ptxs := view.Portfolio("main").Txs()
	if len(ptxs) != 2 {
		t.Fatalf("got %d portfolio transactions want 2", len(ptxs))
	}
	if ptxs[0].Kind != KindBuy || !ptxs[0].Amount.Equal(EUR(400)) || !ptxs[0].Shares.Equal(Q(40)) {
		t.Errorf("common part = %s %s %s want buy of 40 shares for 400", ptxs[0].Kind, ptxs[0].Shares, ptxs[0].Amount)
	}
	if ptxs[1].Kind != KindDeliveryInbound || !ptxs[1].Amount.Equal(EUR(600)) || !ptxs[1].Shares.Equal(Q(60)) {
		t.Errorf("security excess = %s %s %s want delivery of 60 shares for 600", ptxs[1].Kind, ptxs[1].Shares, ptxs[1].Amount)
	}

	atxs := view.Account("broker").Txs()
	// the deposit at 40% and the common buy leg
	if len(atxs) != 2 {
		t.Fatalf("got %d account transactions want 2", len(atxs))
	}
	byKind := make(map[TxKind]Money)
	for _, tx := range atxs {
		byKind[tx.Kind] = tx.Amount
	}
	if !byKind[KindDeposit].Equal(EUR(400)) {
		t.Errorf("scaled deposit = %s want %s", byKind[KindDeposit], EUR(400))
	}
	if !byKind[KindBuy].Equal(EUR(400)) {
		t.Errorf("common buy leg = %s want %s", byKind[KindBuy], EUR(400))
	}
}

func TestClassificationScopeWeightedDividend(t *testing.T) {
	// dividend gross of withheld taxes at the security weight, with the
	// gap to the account weight settled by a removal
	a := NewAccount("broker", "EUR")
	a.Append(AccountTx{On: day("2024-02-01"), Kind: KindDividend, Amount: EUR(80), Security: "MSFT", Tax: EUR(20)})
	c := NewClient().AddAccount(a).AddSecurity(NewSecurity("MSFT", "EUR"))

	node := NewClassification("mixed").
		AssignSecurity("MSFT", WeightOne).
		AssignAccount("broker", 50_00)

	view, err := ClassificationScope(node)(c)
	if err != nil {
		t.Fatalf("ClassificationScope() error = %v", err)
	}
	txs := view.Account("broker").Txs()
	if len(txs) != 2 {
		t.Fatalf("got %d transactions want 2", len(txs))
	}
	if txs[0].Kind != KindDividend || !txs[0].Amount.Equal(EUR(100)) {
		t.Errorf("txs[0] = %s %s want gross dividend of 100", txs[0].Kind, txs[0].Amount)
	}
	// account gets 40 of cash but booked 100: 60 leave again
	if txs[1].Kind != KindRemoval || !txs[1].Amount.Equal(EUR(60)) {
		t.Errorf("txs[1] = %s %s want removal of 60", txs[1].Kind, txs[1].Amount)
	}
}

func TestSecurityScopeDividendIsNeutralized(t *testing.T) {
	// on an unweighted account the dividend counts as performance but
	// its cash is immediately removed from the view
	a := NewAccount("broker", "EUR")
	a.Append(AccountTx{On: day("2024-02-01"), Kind: KindDividend, Amount: EUR(80), Security: "MSFT", Tax: EUR(20)})
	c := NewClient().AddAccount(a).AddSecurity(NewSecurity("MSFT", "EUR"))

	view, err := SecurityScope("MSFT")(c)
	if err != nil {
		t.Fatalf("SecurityScope() error = %v", err)
	}
	txs := view.Account("broker").Txs()
	if len(txs) != 2 {
		t.Fatalf("got %d transactions want 2", len(txs))
	}
	if txs[0].Kind != KindDividend || !txs[0].Amount.Equal(EUR(100)) {
		t.Errorf("txs[0] = %s %s want gross dividend of 100", txs[0].Kind, txs[0].Amount)
	}
	if txs[1].Kind != KindRemoval || !txs[1].Amount.Equal(EUR(100)) {
		t.Errorf("txs[1] = %s %s want removal of 100", txs[1].Kind, txs[1].Amount)
	}
}

func TestTaxonomyUnassigned(t *testing.T) {
	c := tradedClient()
	root := NewClassification("assets").Add(
		NewClassification("tech").AssignSecurity("MSFT", 40_00),
		NewClassification("cash").AssignAccount("broker", WeightOne),
	)
	tax := NewTaxonomy("allocation", root)

	rest := tax.Unassigned(c)
	var secW, accW int
	rest.visit(func(a Assignment) {
		switch {
		case a.Security == "MSFT":
			secW = a.Weight
		case a.Account == "broker":
			accW = a.Weight
		}
	})
	if secW != 60_00 {
		t.Errorf("unassigned MSFT weight = %v want %v", secW, 60_00)
	}
	if accW != 0 {
		t.Errorf("unassigned broker weight = %v want 0", accW)
	}
}

func TestClassificationSplitPreservesValue(t *testing.T) {
	// a node at 40% plus the unassigned remainder must account for the
	// whole client value
	c := tradedClient()
	node := NewClassification("tech").
		AssignSecurity("MSFT", 40_00).
		AssignAccount("broker", 40_00)
	root := NewClassification("assets").Add(node)
	tax := NewTaxonomy("allocation", root)

	interval := NewRange(day("2024-01-01"), day("2024-01-05"))

	whole, err := ComputeIndex(context.Background(), c, identity("EUR"), interval)
	if err != nil {
		t.Fatalf("ComputeIndex() error = %v", err)
	}
	part, err := ComputeScopedIndex(context.Background(), c, identity("EUR"), interval, ClassificationScope(node))
	if err != nil {
		t.Fatalf("ComputeScopedIndex() error = %v", err)
	}
	rest, err := ComputeScopedIndex(context.Background(), c, identity("EUR"), interval, UnassignedScope(tax))
	if err != nil {
		t.Fatalf("ComputeScopedIndex() error = %v", err)
	}

	for i := range whole.Dates {
		sum := part.Totals[i].Add(rest.Totals[i])
		if !sum.Equal(whole.Totals[i]) {
			t.Errorf("Totals[%d]: %s + %s = %s want %s", i, part.Totals[i], rest.Totals[i], sum, whole.Totals[i])
		}
	}
}

func TestUnassignedScopeAbsorbsResidual(t *testing.T) {
	// half of 1000.05 rounds to 500.03 on the assigned side; the
	// unassigned view must book the remaining 500.02, not round its
	// own slice to 500.03 again
	a := NewAccount("broker", "EUR")
	a.Append(AccountTx{On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(1000.05)})
	c := NewClient().AddAccount(a)

	node := NewClassification("half").AssignAccount("broker", 50_00)
	tax := NewTaxonomy("allocation", NewClassification("assets").Add(node))
	interval := NewRange(day("2024-01-01"), day("2024-01-02"))

	whole, err := ComputeIndex(context.Background(), c, identity("EUR"), interval)
	if err != nil {
		t.Fatalf("ComputeIndex() error = %v", err)
	}
	part, err := ComputeScopedIndex(context.Background(), c, identity("EUR"), interval, ClassificationScope(node))
	if err != nil {
		t.Fatalf("ComputeScopedIndex() error = %v", err)
	}
	rest, err := ComputeScopedIndex(context.Background(), c, identity("EUR"), interval, UnassignedScope(tax))
	if err != nil {
		t.Fatalf("ComputeScopedIndex() error = %v", err)
	}

	if !part.Totals[0].Equal(EUR(500.03)) {
		t.Errorf("assigned Totals[0] = %s want %s", part.Totals[0], EUR(500.03))
	}
	if !rest.Totals[0].Equal(EUR(500.02)) {
		t.Errorf("unassigned Totals[0] = %s want %s", rest.Totals[0], EUR(500.02))
	}
	for i := range whole.Dates {
		sum := part.Totals[i].Add(rest.Totals[i])
		if !sum.Equal(whole.Totals[i]) {
			t.Errorf("Totals[%d]: %s + %s = %s want %s", i, part.Totals[i], rest.Totals[i], sum, whole.Totals[i])
		}
	}
}

func TestClassificationScopeUnknownTradeAccount(t *testing.T) {
	node := NewClassification("tech").
		AssignSecurity("MSFT", 40_00).
		AssignAccount("ghost", 40_00)

	msft := NewSecurity("MSFT", "EUR").SetPrice(day("2024-01-01"), newDecimal(10))
	main := NewPortfolio("main", "broker")
	main.Append(PortfolioTx{On: day("2024-01-01"), Kind: KindBuy, Security: "MSFT", Shares: Q(100), Amount: EUR(1000), CrossOwner: "ghost"})
	c := NewClient().AddSecurity(msft).AddPortfolio(main)

	if _, err := ClassificationScope(node)(c); err == nil {
		t.Error("ClassificationScope() error = nil want unknown-account error")
	}
}

func TestClassificationScopeUnknownTransferAccount(t *testing.T) {
	node := NewClassification("cash").
		AssignAccount("broker", WeightOne).
		AssignAccount("ghost", WeightOne)

	a := NewAccount("broker", "EUR")
	a.Append(
		AccountTx{On: day("2024-01-01"), Kind: KindDeposit, Amount: EUR(1000)},
		AccountTx{On: day("2024-01-02"), Kind: KindTransferIn, Amount: EUR(100), CrossOwner: "ghost"},
	)
	c := NewClient().AddAccount(a)

	if _, err := ClassificationScope(node)(c); err == nil {
		t.Error("ClassificationScope() error = nil want unknown-account error")
	}
}
