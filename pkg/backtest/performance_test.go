package backtest

import (
	"testing"

	"github.com/ammarena/strategyarena/pkg/primitives"
)

func mustDecimal(t *testing.T, s string) primitives.Decimal {
	t.Helper()
	d, err := primitives.NewDecimalFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func TestComputeSteadyFeeIncomeHasNoDrawdown(t *testing.T) {
	history := []ValuePoint{
		{Tick: 0, Value: mustDecimal(t, "0")},
		{Tick: 1, Value: mustDecimal(t, "1")},
		{Tick: 2, Value: mustDecimal(t, "2")},
		{Tick: 3, Value: mustDecimal(t, "3")},
	}
	result, err := Compute(history)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !result.MaxDrawdown.IsZero() {
		t.Fatalf("expected zero drawdown for monotonic series, got %s", result.MaxDrawdown)
	}
	if !result.FinalValue.Equal(mustDecimal(t, "3")) {
		t.Fatalf("unexpected final value: %s", result.FinalValue)
	}
}

func TestComputeRejectsEmptyHistory(t *testing.T) {
	if _, err := Compute(nil); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestComputeSinglearPointHasZeroedMetrics(t *testing.T) {
	history := []ValuePoint{{Tick: 0, Value: mustDecimal(t, "5")}}
	result, err := Compute(history)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !result.Sharpe.IsZero() || !result.MaxDrawdown.IsZero() {
		t.Fatalf("expected zeroed metrics for single point, got %+v", result)
	}
}
