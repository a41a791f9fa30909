// Package half implements the IEEE 754 binary16 format used by OpenEXR
// HALF channels.
//
// A half has 1 sign bit, 5 exponent bits (bias 15) and 10 mantissa bits.
// Conversions from float32 round to nearest, ties to even.
package half

import (
	"math"
	"strconv"
)

// Half is a binary16 value stored in its bit pattern.
type Half uint16

const (
	signMask     = 0x8000
	exponentMask = 0x7c00
	mantissaMask = 0x03ff
)

// Frequently used values.
const (
	Zero    Half = 0x0000
	NegZero Half = 0x8000
	One     Half = 0x3c00
	Inf     Half = 0x7c00
	NegInf  Half = 0xfc00
	NaN     Half = 0x7e00
	Max     Half = 0x7bff // 65504
)

// FromBits wraps a raw bit pattern.
func FromBits(bits uint16) Half { return Half(bits) }

// Bits returns the raw bit pattern.
func (h Half) Bits() uint16 { return uint16(h) }

// FromFloat32 converts f to the nearest half. Values beyond the half range
// become infinities; NaN payloads keep their top bits and stay NaN.
func FromFloat32(f float32) Half {
	b := math.Float32bits(f)
	sign := uint32(b>>16) & signMask
	exp := int32(b>>23) & 0xff
	man := b & 0x7fffff

	if exp == 0xff {
		if man == 0 {
			return Half(sign | exponentMask)
		}
		m := man >> 13
		if m == 0 {
			m = 1
		}
		return Half(sign | exponentMask | m)
	}

	e := exp - 127 + 15
	switch {
	case e >= 31:
		return Half(sign | exponentMask)
	case e <= 0:
		if e < -10 {
			return Half(sign)
		}
		man |= 0x800000
		shift := uint32(14 - e)
		h := man >> shift
		rem := man & (1<<shift - 1)
		halfway := uint32(1) << (shift - 1)
		if rem > halfway || (rem == halfway && h&1 == 1) {
			h++
		}
		return Half(sign | h)
	}

	h := uint32(e)<<10 | man>>13
	rem := man & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		// A carry out of the mantissa bumps the exponent, possibly to Inf.
		h++
	}
	return Half(sign | h)
}

// FromFloat64 converts f through float32.
func FromFloat64(f float64) Half { return FromFloat32(float32(f)) }

// Float32 widens h exactly.
func (h Half) Float32() float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&exponentMask) >> 10
	man := uint32(h & mantissaMask)

	switch exp {
	case 0:
		if man == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize into the float32 range.
		e := uint32(127 - 15 + 1)
		for man&0x400 == 0 {
			man <<= 1
			e--
		}
		man &= mantissaMask
		return math.Float32frombits(sign | e<<23 | man<<13)
	case 0x1f:
		if man == 0 {
			return math.Float32frombits(sign | 0x7f800000)
		}
		return math.Float32frombits(sign | 0x7fc00000 | man<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | man<<13)
}

// Float64 widens h exactly.
func (h Half) Float64() float64 { return float64(h.Float32()) }

// IsNaN reports whether h is a NaN.
func (h Half) IsNaN() bool { return h&exponentMask == exponentMask && h&mantissaMask != 0 }

// IsInf reports whether h is an infinity of either sign.
func (h Half) IsInf() bool { return h&^signMask == Inf }

// IsFinite reports whether h is neither infinite nor NaN.
func (h Half) IsFinite() bool { return h&exponentMask != exponentMask }

// Neg flips the sign bit.
func (h Half) Neg() Half { return h ^ signMask }

func (h Half) String() string {
	return strconv.FormatFloat(float64(h.Float32()), 'g', -1, 32)
}
