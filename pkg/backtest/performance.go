// Package backtest computes risk-adjusted performance statistics for a
// submission's realized fee-income series over the course of a
// tournament run: total return, Sharpe ratio, and maximum
// drawdown. The formulas are unchanged from a conventional portfolio
// backtest; what changed is the series they run over, which here is
// cumulative AMM fee income per tick rather than mark-to-market
// portfolio value.
package backtest

import (
	"fmt"
	"math"

	"github.com/ammarena/strategyarena/pkg/primitives"
)

// ValuePoint is one sample of cumulative realized value at a given tick.
type ValuePoint struct {
	Tick  int64
	Value primitives.Decimal
}

// Result holds the statistics derived from a ValuePoint series.
type Result struct {
	InitialValue primitives.Decimal
	FinalValue   primitives.Decimal
	History      []ValuePoint

	TotalReturn primitives.Decimal
	Sharpe      primitives.Decimal
	MaxDrawdown primitives.Decimal
}

// Compute derives a Result from a chronological value history. An empty
// history is an error. A single-point history yields zeroed risk metrics
// rather than an error, since a submission that never trades still needs
// to rank on the leaderboard.
func Compute(history []ValuePoint) (*Result, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("backtest: empty value history")
	}

	result := &Result{
		InitialValue: history[0].Value,
		FinalValue:   history[len(history)-1].Value,
		History:      history,
	}

	if len(history) < 2 {
		result.TotalReturn = primitives.Zero()
		result.Sharpe = primitives.Zero()
		result.MaxDrawdown = primitives.Zero()
		return result, nil
	}

	if err := result.calculateTotalReturn(); err != nil {
		return nil, fmt.Errorf("backtest: total return: %w", err)
	}
	if err := result.calculateSharpe(); err != nil {
		return nil, fmt.Errorf("backtest: sharpe: %w", err)
	}
	result.calculateMaxDrawdown()

	return result, nil
}

func (r *Result) calculateTotalReturn() error {
	if r.InitialValue.IsZero() {
		// No baseline to compare against (a pool that started with zero
		// fee income); report the raw final value as the return.
		r.TotalReturn = r.FinalValue
		return nil
	}
	ret, err := r.FinalValue.Sub(r.InitialValue).Div(r.InitialValue)
	if err != nil {
		return err
	}
	r.TotalReturn = ret
	return nil
}

// calculateSharpe computes a Sharpe ratio over tick-to-tick deltas in the
// value series, assuming a zero risk-free rate. Because the series is a
// monotonically non-decreasing fee ledger rather than a priced asset,
// "volatility" here measures how lumpy fee income is across ticks: a
// strategy earning steady fees scores higher than one earning the same
// total in a few large bursts.
func (r *Result) calculateSharpe() error {
	deltas := make([]primitives.Decimal, 0, len(r.History)-1)
	for i := 1; i < len(r.History); i++ {
		deltas = append(deltas, r.History[i].Value.Sub(r.History[i-1].Value))
	}
	if len(deltas) < 2 {
		r.Sharpe = primitives.Zero()
		return nil
	}

	sum := primitives.Zero()
	for _, d := range deltas {
		sum = sum.Add(d)
	}
	n := primitives.NewDecimal(int64(len(deltas)))
	mean, err := sum.Div(n)
	if err != nil {
		return err
	}

	varianceSum := primitives.Zero()
	for _, d := range deltas {
		diff := d.Sub(mean)
		varianceSum = varianceSum.Add(diff.Mul(diff))
	}
	variance, err := varianceSum.Div(n)
	if err != nil {
		return err
	}

	stdDev := math.Sqrt(variance.Float64())
	if stdDev == 0 {
		r.Sharpe = primitives.Zero()
		return nil
	}

	sharpe := mean.Float64() / stdDev * math.Sqrt(float64(len(deltas)))
	r.Sharpe = primitives.NewDecimalFromFloat(sharpe)
	return nil
}

// calculateMaxDrawdown finds the largest peak-to-trough decline in the
// cumulative value series.
func (r *Result) calculateMaxDrawdown() {
	maxDrawdown := primitives.Zero()
	peak := r.History[0].Value

	for _, point := range r.History[1:] {
		if point.Value.GreaterThan(peak) {
			peak = point.Value
			continue
		}
		if peak.IsZero() {
			continue
		}
		drawdown, err := peak.Sub(point.Value).Div(peak)
		if err != nil {
			continue
		}
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}

	r.MaxDrawdown = maxDrawdown
}

// Summary returns a human-readable one-line performance summary.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"total_return=%s sharpe=%s max_drawdown=%s points=%d",
		r.TotalReturn.String(), r.Sharpe.String(), r.MaxDrawdown.String(), len(r.History),
	)
}
