package amm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammarena/strategyarena/pkg/primitives"
	"github.com/ammarena/strategyarena/pkg/strategy"
)

func newTestPool(t *testing.T, rate string) *Pool {
	t.Helper()
	strat := strategy.NewVanillaStrategy("test", primitives.MustDecimalFromString(rate))
	pool := NewPool(strat,
		primitives.MustAmount(primitives.NewDecimal(100)),
		primitives.MustAmount(primitives.NewDecimal(10000)),
	)
	require.NoError(t, pool.Initialize())
	return pool
}

func TestInitializeSetsConstantProduct(t *testing.T) {
	pool := newTestPool(t, "0.003")

	want := primitives.NewDecimal(100).Mul(primitives.NewDecimal(10000))
	assert.True(t, pool.K().Equal(want))
}

func TestInitializeTwiceReturnsError(t *testing.T) {
	pool := newTestPool(t, "0.003")
	err := pool.Initialize()
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestUninitializedPoolRejectsQuotes(t *testing.T) {
	strat := strategy.NewVanillaStrategy("test", primitives.MustDecimalFromString("0.003"))
	pool := NewPool(strat, primitives.MustAmount(primitives.NewDecimal(100)), primitives.MustAmount(primitives.NewDecimal(10000)))

	_, err := pool.GetQuoteBuyX(primitives.MustAmount(primitives.NewDecimal(1)))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// TestGetQuoteBuyXNoFeeMatchesWorkedScenario pins the quote formula to the
// worked numeric example: pool (100 X, 10000 Y), zero fee, buy 10 X gross
// -> amount_out ~= 10000 - 1000000/110 ~= 909.0909.
func TestGetQuoteBuyXNoFeeMatchesWorkedScenario(t *testing.T) {
	pool := newTestPool(t, "0")

	quote, err := pool.GetQuoteBuyX(primitives.MustAmount(primitives.NewDecimal(10)))
	require.NoError(t, err)
	require.NotNil(t, quote)

	want := primitives.MustDecimalFromString("909.0909090909090909")
	diff := quote.AmountY.Decimal().Sub(want).Abs()
	assert.True(t, diff.LessThan(primitives.MustDecimalFromString("0.01")), "got %s, want ~%s", quote.AmountY, want)
}

// TestGetQuoteSellXNoFeeMatchesWorkedScenario pins the quote formula to the
// worked numeric example: pool (100 X, 10000 Y), zero fee, sell (take out)
// 10 X -> amount_in ~= 1000000/90 - 10000 ~= 1111.11.
func TestGetQuoteSellXNoFeeMatchesWorkedScenario(t *testing.T) {
	pool := newTestPool(t, "0")

	quote, err := pool.GetQuoteSellX(primitives.MustAmount(primitives.NewDecimal(10)))
	require.NoError(t, err)
	require.NotNil(t, quote)

	want := primitives.MustDecimalFromString("1111.1111111111111111")
	diff := quote.AmountY.Decimal().Sub(want).Abs()
	assert.True(t, diff.LessThan(primitives.MustDecimalFromString("0.01")), "got %s, want ~%s", quote.AmountY, want)
}

func TestExecuteBuyXPreservesConstantProduct(t *testing.T) {
	pool := newTestPool(t, "0.003")
	kBefore := pool.K()

	trade, err := pool.ExecuteBuyX(primitives.MustAmount(primitives.NewDecimal(5)), 1)
	require.NoError(t, err)
	require.NotNil(t, trade)

	drift, err := pool.K().Sub(kBefore).Abs().Div(kBefore)
	require.NoError(t, err)
	assert.True(t, drift.LessThan(primitives.MustDecimalFromString("0.0000000001")), "k must be preserved to within 1e-10 relative: fees never enter reserves")
	assert.Equal(t, strategy.SideBuy, trade.Side)
}

// TestExecuteBuyXAccumulatesFeesInX: buying (providing X gross, receiving
// Y) moves only net X into reserves and credits the fee to the X bucket.
func TestExecuteBuyXAccumulatesFeesInX(t *testing.T) {
	pool := newTestPool(t, "0.003")
	initialX := pool.ReserveX().Decimal()
	initialY := pool.ReserveY().Decimal()

	trade, err := pool.ExecuteBuyX(primitives.MustAmount(primitives.NewDecimal(10)), 1)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.True(t, pool.ReserveX().Decimal().GreaterThan(initialX))
	assert.True(t, pool.ReserveX().Decimal().LessThan(initialX.Add(primitives.NewDecimal(10))))
	assert.True(t, pool.ReserveY().Decimal().LessThan(initialY))
	assert.True(t, pool.AccumulatedFeesX().IsPositive())
	assert.True(t, pool.AccumulatedFeesY().IsZero())
}

// TestExecuteSellXAccumulatesFeesInY: selling (taking X out, paying Y in)
// moves only net Y into reserves and credits the fee to the Y bucket.
func TestExecuteSellXAccumulatesFeesInY(t *testing.T) {
	pool := newTestPool(t, "0.003")
	initialX := pool.ReserveX().Decimal()
	initialY := pool.ReserveY().Decimal()

	trade, err := pool.ExecuteSellX(primitives.MustAmount(primitives.NewDecimal(10)), 1)
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.True(t, pool.ReserveX().Decimal().Equal(initialX.Sub(primitives.NewDecimal(10))))
	assert.True(t, pool.ReserveY().Decimal().GreaterThan(initialY))
	assert.True(t, pool.AccumulatedFeesY().IsPositive())
	assert.True(t, pool.AccumulatedFeesX().IsZero())
}

func TestExecuteSellXBeyondReserveIsANoOp(t *testing.T) {
	pool := newTestPool(t, "0.003")

	trade, err := pool.ExecuteSellX(primitives.MustAmount(primitives.NewDecimal(200)), 0)
	require.NoError(t, err)
	assert.Nil(t, trade)
}

func TestExecuteBuyXBeyondReserveIsANoOp(t *testing.T) {
	pool := newTestPool(t, "0.003")

	trade, err := pool.ExecuteBuyX(primitives.MustAmount(primitives.NewDecimal(150)), 1)
	require.NoError(t, err)
	assert.Nil(t, trade)
}

func TestZeroFeeBuyChargesNoMarkup(t *testing.T) {
	pool := newTestPool(t, "0")

	quote, err := pool.GetQuoteBuyX(primitives.MustAmount(primitives.NewDecimal(5)))
	require.NoError(t, err)
	require.NotNil(t, quote)

	assert.True(t, quote.FeeAmount.IsZero())
}

func TestSpotPriceIsReserveRatio(t *testing.T) {
	pool := newTestPool(t, "0.003")

	spot, err := pool.SpotPrice()
	require.NoError(t, err)

	want, _ := primitives.NewDecimal(10000).Div(primitives.NewDecimal(100))
	assert.True(t, spot.Equal(want))
}
