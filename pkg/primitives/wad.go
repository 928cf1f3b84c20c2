package primitives

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrMagnitudeOutOfRange indicates a WAD-encoded integer is too large to be
// a plausible fee value (as opposed to merely out of the clamp range).
var ErrMagnitudeOutOfRange = errors.New("magnitude out of range")

// wadDivisor is 10^18, the fractional scale of a WAD fixed-point value.
var wadDivisor = decimal.New(1, 18)

// maxPlausibleWad is 2^128, the integer-width boundary past which a raw
// strategy return value is treated as garbage rather than an out-of-band
// fee (see DecimalFromWad).
var maxPlausibleWad = decimal.RequireFromString("340282366920938463463374607431768211456")

// DecimalFromWad converts a raw WAD-encoded fixed-point integer (18
// fractional decimal digits) into a Decimal fraction, e.g. an input of
// 3e15 becomes 0.003 (30 bps).
//
// Returns ErrMagnitudeOutOfRange if the raw value's magnitude would not fit
// the integer width used by the surrounding simulation engine (> 2^128).
// This is a distinct, louder failure mode from clamping: see pkg/adapter,
// which clamps in-range-but-out-of-policy values silently and rejects only
// these pathological magnitudes.
func DecimalFromWad(raw decimal.Decimal) (Decimal, error) {
	if raw.Abs().GreaterThan(maxPlausibleWad) {
		return Decimal{}, ErrMagnitudeOutOfRange
	}
	return Decimal{value: raw.Div(wadDivisor)}, nil
}

// WadFromDecimal encodes a fractional Decimal (e.g. 0.003) as a raw WAD
// fixed-point integer Decimal (e.g. 3000000000000000), the inverse of
// DecimalFromWad.
func WadFromDecimal(d Decimal) Decimal {
	return Decimal{value: d.value.Mul(wadDivisor)}
}

// WadBigInt encodes d as a raw WAD fixed-point integer, rounding to the
// nearest integer WAD unit (sub-WAD precision, i.e. beyond 18 fractional
// digits, is not representable across the ABI boundary). Used by the
// strategy adapter to build call arguments for the sandboxed VM.
func WadBigInt(d Decimal) *big.Int {
	scaled := d.value.Mul(wadDivisor).Round(0)
	i, ok := new(big.Int).SetString(scaled.StringFixed(0), 10)
	if !ok {
		return big.NewInt(0)
	}
	return i
}
