// Package amm implements the constant-product AMM engine: reserve state,
// quote computation, trade execution, and the fee bucket that is kept
// separate from reserves so the invariant is preserved (up to the rounding
// of decimal division) rather than grown.
package amm

import (
	"errors"
	"fmt"

	"github.com/ammarena/strategyarena/pkg/primitives"
	"github.com/ammarena/strategyarena/pkg/strategy"
)

var (
	// ErrAlreadyInitialized is returned by Initialize on a pool that has
	// already been set up.
	ErrAlreadyInitialized = errors.New("pool already initialized")

	// ErrNotInitialized is returned by any quote/execute call on a pool
	// that has not yet been initialized. The substring "not initialized"
	// is part of the external diagnostic contract.
	ErrNotInitialized = errors.New("pool not initialized")
)

// Quote is the result of pricing a prospective trade without applying it.
// AmountX is the X leg fixed by the caller's request; AmountY is the
// associated Y leg computed from the constant-product formula; FeeAmount
// is the portion of the relevant leg retained as fee rather than entering
// reserves.
type Quote struct {
	AmountX   primitives.Amount
	AmountY   primitives.Amount
	FeeRate   primitives.Decimal
	FeeAmount primitives.Amount
}

// Pool is a single constant-product AMM instance: two reserves, a fee
// bucket, and exactly one owned strategy. A Pool is not safe for
// concurrent use; trades on a single pool are serialized by the caller.
type Pool struct {
	strategy strategy.Strategy

	initialized bool
	reserveX    primitives.Decimal
	reserveY    primitives.Decimal
	k           primitives.Decimal

	accumulatedFeesX primitives.Decimal
	accumulatedFeesY primitives.Decimal

	currentFees strategy.FeeQuote
}

// NewPool constructs a Pool with the given initial reserves, owned by
// strat for its entire lifetime. The pool is not usable until Initialize
// is called.
func NewPool(strat strategy.Strategy, reserveX, reserveY primitives.Amount) *Pool {
	return &Pool{
		strategy:         strat,
		reserveX:         reserveX.Decimal(),
		reserveY:         reserveY.Decimal(),
		accumulatedFeesX: primitives.Zero(),
		accumulatedFeesY: primitives.Zero(),
	}
}

// Initialize computes k, invokes the strategy's AfterInitialize callback,
// and stores the returned (clamped) quote as the pool's current fees.
func (p *Pool) Initialize() error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	p.k = p.reserveX.Mul(p.reserveY)

	quote, err := p.strategy.AfterInitialize(
		primitives.MustAmount(p.reserveX),
		primitives.MustAmount(p.reserveY),
	)
	if err != nil {
		return fmt.Errorf("strategy %q afterInitialize failed: %w", p.strategy.GetName(), err)
	}
	p.currentFees = quote.Clamp()
	p.initialized = true
	return nil
}

// ReserveX returns the current X reserve.
func (p *Pool) ReserveX() primitives.Amount { return primitives.MustAmount(p.reserveX) }

// ReserveY returns the current Y reserve.
func (p *Pool) ReserveY() primitives.Amount { return primitives.MustAmount(p.reserveY) }

// K returns the pool's current constant product.
func (p *Pool) K() primitives.Decimal { return p.k }

// CurrentFees returns the fee quote that will apply to the next trade.
func (p *Pool) CurrentFees() strategy.FeeQuote { return p.currentFees }

// AccumulatedFeesX returns the total X ever siphoned into the fee bucket.
func (p *Pool) AccumulatedFeesX() primitives.Decimal { return p.accumulatedFeesX }

// AccumulatedFeesY returns the total Y ever siphoned into the fee bucket.
func (p *Pool) AccumulatedFeesY() primitives.Decimal { return p.accumulatedFeesY }

// SpotPrice returns reserve_y / reserve_x.
func (p *Pool) SpotPrice() (primitives.Decimal, error) {
	return p.reserveY.Div(p.reserveX)
}

// GetQuoteBuyX prices a trade in which the caller provides amountX of X
// gross, paying it into the pool and receiving Y out. The fee (bid_fee)
// is charged on the X leg: fee is deducted before the net enters
// reserves. Returns (nil, nil) if amountX exceeds the current X reserve.
func (p *Pool) GetQuoteBuyX(amountX primitives.Amount) (*Quote, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	x := amountX.Decimal()
	if x.GreaterThan(p.reserveX) {
		return nil, nil
	}

	f := p.currentFees.BidFee
	feeX := x.Mul(f)
	netX := x.Sub(feeX)
	newX := p.reserveX.Add(netX)
	newY, err := p.k.Div(newX)
	if err != nil {
		return nil, err
	}
	amountY := p.reserveY.Sub(newY)

	return &Quote{
		AmountX:   amountX,
		AmountY:   primitives.MustAmount(amountY),
		FeeRate:   f,
		FeeAmount: primitives.MustAmount(feeX),
	}, nil
}

// GetQuoteSellX prices a trade in which the caller wants to take amountX
// of X out of the pool, paying in Y. The fee (ask_fee) is charged on the
// Y leg: reserves move by the net amount, the user pays net plus fee.
// Returns (nil, nil) if the pool cannot deliver amountX.
func (p *Pool) GetQuoteSellX(amountX primitives.Amount) (*Quote, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	x := amountX.Decimal()
	if !x.LessThan(p.reserveX) {
		return nil, nil
	}

	newX := p.reserveX.Sub(x)
	newY, err := p.k.Div(newX)
	if err != nil {
		return nil, err
	}
	grossY := newY.Sub(p.reserveY)

	f := p.currentFees.AskFee
	feeY, err := feeOnNet(grossY, f)
	if err != nil {
		return nil, err
	}
	amountY := grossY.Add(feeY)

	return &Quote{
		AmountX:   amountX,
		AmountY:   primitives.MustAmount(amountY),
		FeeRate:   f,
		FeeAmount: primitives.MustAmount(feeY),
	}, nil
}

// ExecuteBuyX quotes, mutates reserves and the fee bucket by the net
// amounts, invokes the strategy's AfterSwap callback, and updates the
// pool's current fees. Only net X (after bid_fee) enters reserves; the
// fee is credited to the X bucket. Returns (nil, nil) if the trade is
// unsatisfiable.
func (p *Pool) ExecuteBuyX(amountX primitives.Amount, timestamp int64) (*strategy.TradeInfo, error) {
	quote, err := p.GetQuoteBuyX(amountX)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, nil
	}

	netX := amountX.Decimal().Sub(quote.FeeAmount.Decimal())
	p.reserveX = p.reserveX.Add(netX)
	p.reserveY = p.reserveY.Sub(quote.AmountY.Decimal())
	p.accumulatedFeesX = p.accumulatedFeesX.Add(quote.FeeAmount.Decimal())
	p.k = p.reserveX.Mul(p.reserveY)

	trade := strategy.TradeInfo{
		Side:      strategy.SideBuy,
		AmountX:   amountX,
		AmountY:   quote.AmountY,
		Timestamp: timestamp,
		ReserveX:  primitives.MustAmount(p.reserveX),
		ReserveY:  primitives.MustAmount(p.reserveY),
	}
	if err := p.invokeAfterSwap(trade); err != nil {
		return nil, err
	}
	return &trade, nil
}

// ExecuteSellX quotes, mutates reserves and the fee bucket, invokes the
// strategy's AfterSwap callback, and updates the pool's current fees.
// Only net Y (after ask_fee) enters reserves; the fee is credited to the
// Y bucket. Returns (nil, nil) if amountX is not deliverable from the
// current X reserve.
func (p *Pool) ExecuteSellX(amountX primitives.Amount, timestamp int64) (*strategy.TradeInfo, error) {
	quote, err := p.GetQuoteSellX(amountX)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, nil
	}

	netY := quote.AmountY.Decimal().Sub(quote.FeeAmount.Decimal())
	p.reserveX = p.reserveX.Sub(amountX.Decimal())
	p.reserveY = p.reserveY.Add(netY)
	p.accumulatedFeesY = p.accumulatedFeesY.Add(quote.FeeAmount.Decimal())
	p.k = p.reserveX.Mul(p.reserveY)

	trade := strategy.TradeInfo{
		Side:      strategy.SideSell,
		AmountX:   amountX,
		AmountY:   quote.AmountY,
		Timestamp: timestamp,
		ReserveX:  primitives.MustAmount(p.reserveX),
		ReserveY:  primitives.MustAmount(p.reserveY),
	}
	if err := p.invokeAfterSwap(trade); err != nil {
		return nil, err
	}
	return &trade, nil
}

func (p *Pool) invokeAfterSwap(trade strategy.TradeInfo) error {
	quote, err := p.strategy.AfterSwap(trade)
	if err != nil {
		return fmt.Errorf("strategy %q afterSwap failed: %w", p.strategy.GetName(), err)
	}
	p.currentFees = quote.Clamp()
	return nil
}

// feeOnNet computes the fee owed on top of a net amount that already
// entered reserves, given rate f: fee = net * f / (1 - f). This is the
// sell-side markup that keeps net_Δy exactly equal to the reserve-side
// movement while the user pays net plus fee.
func feeOnNet(net primitives.Decimal, f primitives.Decimal) (primitives.Decimal, error) {
	if f.IsZero() {
		return primitives.Zero(), nil
	}
	oneMinusF := primitives.One().Sub(f)
	return net.Mul(f).Div(oneMinusF)
}
