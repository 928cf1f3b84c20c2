// Package adapter bridges the sandbox executor's raw WAD-encoded integer
// results into the strategy.FeeQuote domain that pkg/amm consumes. It is
// the only place WAD decoding, clamping, and magnitude rejection happen.
package adapter

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/ammarena/strategyarena/pkg/primitives"
	"github.com/ammarena/strategyarena/pkg/sandbox"
	"github.com/ammarena/strategyarena/pkg/strategy"
)

// StrategyAdapter wraps a deployed Sandbox so it satisfies
// strategy.Strategy, converting WAD integers to FeeQuote and clamping or
// rejecting out-of-band results along the way.
type StrategyAdapter struct {
	name string
	box  *sandbox.Sandbox
}

// New wraps box, reporting name as the strategy's display name (read from
// the submission's manifest, since getName() is a one-time informational
// call and not part of the hot trading loop).
func New(name string, box *sandbox.Sandbox) *StrategyAdapter {
	return &StrategyAdapter{name: name, box: box}
}

// AfterInitialize decodes the sandbox's afterInitialize result into a
// clamped FeeQuote.
func (a *StrategyAdapter) AfterInitialize(initialX, initialY primitives.Amount) (strategy.FeeQuote, error) {
	result, err := a.box.AfterInitialize(toWei(initialX), toWei(initialY))
	if err != nil {
		return strategy.FeeQuote{}, fmt.Errorf("strategy %q afterInitialize failed: %w", a.name, err)
	}
	if !result.Success {
		return strategy.FeeQuote{}, fmt.Errorf("strategy %q afterInitialize failed: %w", a.name, result.Err)
	}
	return a.decodeQuote(result.BidFeeWad, result.AskFeeWad)
}

// AfterSwap decodes the sandbox's afterSwap result into a clamped
// FeeQuote for the given trade.
func (a *StrategyAdapter) AfterSwap(trade strategy.TradeInfo) (strategy.FeeQuote, error) {
	var side uint8
	if trade.Side == strategy.SideSell {
		side = 1
	}
	result, err := a.box.AfterSwapFast(sandbox.TradeInfoABI{
		Side:      side,
		AmountX:   toWei(trade.AmountX),
		AmountY:   toWei(trade.AmountY),
		Timestamp: big.NewInt(trade.Timestamp),
		ReserveX:  toWei(trade.ReserveX),
		ReserveY:  toWei(trade.ReserveY),
	})
	if err != nil {
		return strategy.FeeQuote{}, err
	}
	return a.decodeQuote(result.BidFeeWad, result.AskFeeWad)
}

// GetName returns the adapter's configured display name.
func (a *StrategyAdapter) GetName() string {
	return a.name
}

// decodeQuote converts two raw WAD big.Ints into a clamped FeeQuote,
// rejecting either leg if its magnitude is implausible (> 2^128) rather
// than silently clamping it.
func (a *StrategyAdapter) decodeQuote(bidWad, askWad *big.Int) (strategy.FeeQuote, error) {
	bid, err := primitives.DecimalFromWad(decimal.NewFromBigInt(bidWad, 0))
	if err != nil {
		return strategy.FeeQuote{}, fmt.Errorf("strategy %q returned an implausible bid fee magnitude: %w", a.name, err)
	}
	ask, err := primitives.DecimalFromWad(decimal.NewFromBigInt(askWad, 0))
	if err != nil {
		return strategy.FeeQuote{}, fmt.Errorf("strategy %q returned an implausible ask fee magnitude: %w", a.name, err)
	}
	quote := strategy.FeeQuote{BidFee: bid, AskFee: ask}
	return quote.Clamp(), nil
}

// toWei converts a decimal Amount into its WAD-scaled big.Int
// representation, the integer width the ABI boundary expects.
func toWei(a primitives.Amount) *big.Int {
	return primitives.WadBigInt(a.Decimal())
}
