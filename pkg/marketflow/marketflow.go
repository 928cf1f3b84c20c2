// Package marketflow generates the simulated external market activity
// that drives a tournament pool: a GBM mid-price path and a Poisson
// process of retail orders. It exposes a deterministic sequence of
// orders for a given seed, not a scored component in its own right.
package marketflow

import (
	"math"
	"math/rand"

	"github.com/ammarena/strategyarena/pkg/primitives"
	"github.com/ammarena/strategyarena/pkg/strategy"
)

// Config holds the simulation parameters for one market-flow run.
type Config struct {
	NSteps            int
	InitialPrice      float64
	InitialX          float64
	InitialY          float64
	GBMMu             float64
	GBMSigma          float64
	GBMDt             float64
	RetailArrivalRate float64
	RetailMeanSize    float64
	RetailSizeSigma   float64
	RetailBuyProb     float64
	Seed              int64
}

// Order is one proposed retail trade: a side, a size in X, and the tick
// timestamp it arrives at.
type Order struct {
	Side      strategy.Side
	SizeX     primitives.Amount
	Timestamp int64
	MidPrice  float64
}

// Generator produces a deterministic sequence of Orders from a Config. Two
// Generators built from identical Configs yield byte-identical sequences,
// since rand.Rand is the sole source of randomness and is seeded
// explicitly.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	price float64
}

// New returns a Generator seeded from cfg.Seed.
func New(cfg Config) *Generator {
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		price: cfg.InitialPrice,
	}
}

// Next advances the price one GBM step and, via the Poisson retail
// arrival process, returns the order proposed at this tick (ok=false if
// no retail order arrived this tick).
func (g *Generator) Next(tick int64) (Order, bool) {
	g.stepPrice()

	arrivals := g.poissonArrivals()
	if arrivals == 0 {
		return Order{}, false
	}

	size := g.logNormalSize()
	side := strategy.SideBuy
	if g.rng.Float64() >= g.cfg.RetailBuyProb {
		side = strategy.SideSell
	}

	return Order{
		Side:      side,
		SizeX:     primitives.MustAmount(primitives.NewDecimalFromFloat(size)),
		Timestamp: tick,
		MidPrice:  g.price,
	}, true
}

// Run generates the full NSteps sequence in one call.
func (g *Generator) Run() []Order {
	orders := make([]Order, 0, g.cfg.NSteps)
	for tick := int64(0); tick < int64(g.cfg.NSteps); tick++ {
		if order, ok := g.Next(tick); ok {
			orders = append(orders, order)
		}
	}
	return orders
}

// stepPrice advances the mid price by one geometric Brownian motion
// increment: S_{t+dt} = S_t * exp((mu - sigma^2/2)*dt + sigma*sqrt(dt)*Z).
func (g *Generator) stepPrice() {
	mu, sigma, dt := g.cfg.GBMMu, g.cfg.GBMSigma, g.cfg.GBMDt
	z := g.rng.NormFloat64()
	drift := (mu - sigma*sigma/2) * dt
	diffusion := sigma * math.Sqrt(dt) * z
	g.price *= math.Exp(drift + diffusion)
}

// poissonArrivals draws the number of retail order arrivals this tick
// from a Poisson distribution with rate RetailArrivalRate, via Knuth's
// algorithm.
func (g *Generator) poissonArrivals() int {
	l := math.Exp(-g.cfg.RetailArrivalRate)
	k := 0
	p := 1.0
	for {
		k++
		p *= g.rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// logNormalSize draws an order size from a log-normal distribution
// parameterized by RetailMeanSize/RetailSizeSigma.
func (g *Generator) logNormalSize() float64 {
	mu := math.Log(g.cfg.RetailMeanSize)
	return math.Exp(mu + g.cfg.RetailSizeSigma*g.rng.NormFloat64())
}
