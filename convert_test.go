package perform

import "testing"

func TestRateTableConvert(t *testing.T) {
	rates := NewRateTable("EUR").
		SetRate(day("2024-01-01"), "USD", newDecimal(0.9)).
		SetRate(day("2024-01-10"), "USD", newDecimal(0.95))

	// nearest prior rate wins
	v, ok := rates.Convert(day("2024-01-05"), USD(100))
	if !ok || !v.Equal(EUR(90)) {
		t.Errorf("Convert() = %s, %v want %s", v, ok, EUR(90))
	}
	v, ok = rates.Convert(day("2024-01-10"), USD(100))
	if !ok || !v.Equal(EUR(95)) {
		t.Errorf("Convert() = %s, %v want %s", v, ok, EUR(95))
	}

	// term currency and weak amounts convert as themselves
	v, ok = rates.Convert(day("2024-01-05"), EUR(100))
	if !ok || !v.Equal(EUR(100)) {
		t.Errorf("Convert() of term currency = %s, %v want %s", v, ok, EUR(100))
	}
	v, ok = rates.Convert(day("2024-01-05"), M(100, ""))
	if !ok || !v.Equal(EUR(100)) {
		t.Errorf("Convert() of weak currency = %s, %v want %s", v, ok, EUR(100))
	}
}

func TestRateTableMissingRate(t *testing.T) {
	rates := NewRateTable("EUR").
		SetRate(day("2024-01-10"), "USD", newDecimal(0.95))

	if _, ok := rates.Convert(day("2024-01-05"), USD(100)); ok {
		t.Error("Convert() before the first rate reported ok")
	}
	if _, ok := rates.Convert(day("2024-01-05"), M(100, "JPY")); ok {
		t.Error("Convert() of an unknown currency reported ok")
	}

	var ws Warnings
	v := convertOrWarn(rates, day("2024-01-05"), USD(100), &ws)
	if !v.IsZero() || v.Currency() != "EUR" {
		t.Errorf("convertOrWarn() = %s want zero EUR", v)
	}
	if len(ws) != 1 {
		t.Fatalf("Warnings = %v want exactly one", ws)
	}
	if ws[0].On != day("2024-01-05") {
		t.Errorf("warning day = %s want 2024-01-05", ws[0].On)
	}
}

func TestRateTableUpdatesRate(t *testing.T) {
	rates := NewRateTable("EUR").
		SetRate(day("2024-01-01"), "USD", newDecimal(0.9)).
		SetRate(day("2024-01-01"), "USD", newDecimal(0.91))

	v, ok := rates.Convert(day("2024-01-01"), USD(100))
	if !ok || !v.Equal(EUR(91)) {
		t.Errorf("Convert() = %s, %v want %s", v, ok, EUR(91))
	}
}
