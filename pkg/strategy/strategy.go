// Package strategy defines the narrow callback contract that competitor
// code implements: a strategy observes pool initialization and each
// subsequent trade, and returns a fee quote for the AMM to charge on the
// next trade. It has no other surface: no access to other pools, no
// wall-clock, no randomness.
package strategy

import (
	"fmt"

	"github.com/ammarena/strategyarena/pkg/primitives"
)

// Side identifies which direction a trade moved from the pool's
// perspective. SideBuy means the user provided X (and received Y);
// SideSell means the user took X out of the pool (and paid Y).
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// TradeInfo is the immutable record passed to AfterSwap once a trade has
// settled. ReserveX/ReserveY are the post-trade reserve levels; AmountX and
// AmountY are gross, before fee.
type TradeInfo struct {
	Side      Side
	AmountX   primitives.Amount
	AmountY   primitives.Amount
	Timestamp int64
	ReserveX  primitives.Amount
	ReserveY  primitives.Amount
}

// MinFee and MaxFee bound the range a strategy's fee quote is clamped
// to: 0% to 10%.
var (
	MinFee = primitives.Zero()
	MaxFee = primitives.MustDecimalFromString("0.1")
)

// FeeQuote is a pair of fractional rates in [0, 0.1]. BidFee applies when
// the pool receives X (a buy); AskFee applies when the pool receives Y (a
// sell).
type FeeQuote struct {
	BidFee primitives.Decimal
	AskFee primitives.Decimal
}

// Symmetric builds a FeeQuote charging the same rate on both sides, the
// common case for simple strategies.
func Symmetric(rate primitives.Decimal) FeeQuote {
	return FeeQuote{BidFee: rate, AskFee: rate}
}

func (q FeeQuote) String() string {
	return fmt.Sprintf("FeeQuote(bid=%s, ask=%s)", q.BidFee.String(), q.AskFee.String())
}

// Clamp returns q with each leg clamped into [MinFee, MaxFee]. Clamping is
// silent: an out-of-range-but-plausible fee is not an error, it is a
// bounded one.
func (q FeeQuote) Clamp() FeeQuote {
	return FeeQuote{
		BidFee: clampRate(q.BidFee),
		AskFee: clampRate(q.AskFee),
	}
}

func clampRate(rate primitives.Decimal) primitives.Decimal {
	if rate.LessThan(MinFee) {
		return MinFee
	}
	if rate.GreaterThan(MaxFee) {
		return MaxFee
	}
	return rate
}

// Strategy is the abstract callback interface a competitor's compiled
// artifact must satisfy, as adapted from the sandboxed VM by pkg/adapter.
// Implementations must be deterministic given their inputs and must not
// mutate the TradeInfo they are handed.
type Strategy interface {
	// AfterInitialize is invoked exactly once, when the owning pool is
	// initialized, and seeds the first fee quote.
	AfterInitialize(initialX, initialY primitives.Amount) (FeeQuote, error)

	// AfterSwap is invoked once per successful trade, in strictly
	// increasing TradeInfo.Timestamp order, and replaces the pool's
	// current fee quote.
	AfterSwap(trade TradeInfo) (FeeQuote, error)

	// GetName returns the strategy's display name for leaderboards and
	// logs.
	GetName() string
}

// VanillaStrategy is a fixed-rate reference implementation: it returns the
// same symmetric fee on initialization and every subsequent swap,
// regardless of trade history. Used in tests that need a strategy with no
// sandboxing overhead.
type VanillaStrategy struct {
	name string
	rate primitives.Decimal
}

// NewVanillaStrategy builds a VanillaStrategy charging rate on both legs.
func NewVanillaStrategy(name string, rate primitives.Decimal) *VanillaStrategy {
	return &VanillaStrategy{name: name, rate: rate}
}

func (v *VanillaStrategy) AfterInitialize(_, _ primitives.Amount) (FeeQuote, error) {
	return Symmetric(v.rate), nil
}

func (v *VanillaStrategy) AfterSwap(_ TradeInfo) (FeeQuote, error) {
	return Symmetric(v.rate), nil
}

func (v *VanillaStrategy) GetName() string {
	return v.name
}
