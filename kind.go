package perform

import "fmt"

// TxKind is the closed enumeration of transaction kinds. The kind determines
// the credit/debit direction on a cash ledger and the purchase/disposal
// direction on a security ledger.
//
// The enumeration is exhaustive by construction: every consumer (snapshot
// iterator, view synthesis, attribution) switches over all kinds and treats
// an unhandled one as a broken upstream invariant, aborting the calculation.
type TxKind int

const (
	KindUnknown TxKind = iota

	// Cash ledger kinds.
	KindDeposit
	KindRemoval
	KindInterest
	KindInterestCharge
	KindDividend
	KindFee
	KindFeeRefund
	KindTax
	KindTaxRefund

	// Kinds appearing on both ledgers: the security leg lives in a
	// portfolio, the settlement leg in the cross-referenced account.
	KindBuy
	KindSell
	KindTransferIn
	KindTransferOut

	// Security ledger kinds without a cash leg.
	KindDeliveryInbound
	KindDeliveryOutbound
)

var kindNames = map[TxKind]string{
	KindDeposit:          "deposit",
	KindRemoval:          "removal",
	KindInterest:         "interest",
	KindInterestCharge:   "interest-charge",
	KindDividend:         "dividend",
	KindFee:              "fee",
	KindFeeRefund:        "fee-refund",
	KindTax:              "tax",
	KindTaxRefund:        "tax-refund",
	KindBuy:              "buy",
	KindSell:             "sell",
	KindTransferIn:       "transfer-in",
	KindTransferOut:      "transfer-out",
	KindDeliveryInbound:  "delivery-in",
	KindDeliveryOutbound: "delivery-out",
}

func (k TxKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseTxKind parses the persisted name of a transaction kind.
func ParseTxKind(s string) (TxKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown transaction kind %q", s)
}

// cashSign returns +1 for kinds that increase account funds, -1 for kinds
// that decrease them. An unhandled kind is an invariant violation.
func (k TxKind) cashSign() (int, error) {
	switch k {
	case KindDeposit, KindInterest, KindDividend, KindFeeRefund, KindTaxRefund, KindSell, KindTransferIn:
		return +1, nil
	case KindRemoval, KindInterestCharge, KindFee, KindTax, KindBuy, KindTransferOut:
		return -1, nil
	default:
		return 0, fmt.Errorf("unhandled transaction kind %s on cash ledger", k)
	}
}

// shareSign returns +1 for kinds that increase a security position, -1 for
// kinds that decrease it. An unhandled kind is an invariant violation.
func (k TxKind) shareSign() (int, error) {
	switch k {
	case KindBuy, KindTransferIn, KindDeliveryInbound:
		return +1, nil
	case KindSell, KindTransferOut, KindDeliveryOutbound:
		return -1, nil
	default:
		return 0, fmt.Errorf("unhandled transaction kind %s on security ledger", k)
	}
}

// isExternal reports whether the kind moves money across the boundary of
// the holdings model (a transferal in the performance-index sense).
func (k TxKind) isExternal() bool {
	switch k {
	case KindDeposit, KindRemoval, KindDeliveryInbound, KindDeliveryOutbound:
		return true
	default:
		return false
	}
}
