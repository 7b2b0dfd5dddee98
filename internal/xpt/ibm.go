// Package xpt implements the fixed-layout XPT table codec from spec.md §4.7:
// library/member headers, a namestr descriptor block, and an observation
// block, with numerics stored as IBM System/360 hexadecimal floating point.
// No library in the retrieval pack speaks the SAS transport format (it is a
// closed legacy wire format with no real-world Go client in this corpus), so
// this package is built directly from the spec's byte-layout description
// using encoding/binary, the same way the teacher only reaches for stdlib
// when no example repo's dependency covers the concern.
package xpt

import "math"

// missingMarker is the IBM-float missing-value sentinel: a leading '.' byte
// (SAS's plain missing code) followed by seven zero bytes. A true zero is
// represented as eight zero bytes, which ieeeToIBM/ibmToIEEE never produce
// for any finite non-zero input, so the two never collide.
var missingMarker = [8]byte{'.', 0, 0, 0, 0, 0, 0, 0}

func ieeeToIBM(f float64) [8]byte {
	if f == 0 {
		return [8]byte{}
	}
	var out [8]byte
	sign := byte(0)
	if f < 0 {
		sign = 0x80
		f = -f
	}
	exp16 := int(math.Ceil(binaryExp(f) / 4.0))
	frac16 := f / math.Pow(16, float64(exp16))
	for frac16 >= 1.0 {
		frac16 /= 16
		exp16++
	}
	for frac16 > 0 && frac16 < 1.0/16.0 {
		frac16 *= 16
		exp16--
	}
	expByte := byte((exp16 + 64) & 0x7f)
	out[0] = sign | expByte
	fracInt := uint64(frac16 * float64(uint64(1)<<56))
	for i := 0; i < 7; i++ {
		out[7-i] = byte(fracInt)
		fracInt >>= 8
	}
	return out
}

func binaryExp(f float64) float64 {
	_, exp := math.Frexp(f)
	return float64(exp)
}

func ibmToIEEE(b [8]byte) (float64, bool) {
	if b[0] == '.' || (b[0] >= 'A' && b[0] <= 'Z') || b[0] == '_' {
		missing := true
		for _, c := range b[1:] {
			if c != 0 {
				missing = false
				break
			}
		}
		if missing {
			return 0, false
		}
	}
	if b == ([8]byte{}) {
		return 0, true
	}
	sign := 1.0
	if b[0]&0x80 != 0 {
		sign = -1.0
	}
	exp16 := int(b[0]&0x7f) - 64
	var fracInt uint64
	for i := 1; i < 8; i++ {
		fracInt = (fracInt << 8) | uint64(b[i])
	}
	frac := float64(fracInt) / float64(uint64(1)<<56)
	return sign * frac * math.Pow(16, float64(exp16)), true
}
