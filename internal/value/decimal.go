package value

import (
	"math/big"
	"strings"
)

// Decimal is an arbitrary-precision decimal represented as
// sign * coefficient * 10^exponent, with coefficient always non-negative.
// Exponent notation never round-trips: the textual form is always plain.
type Decimal struct {
	Negative    bool
	Coefficient *big.Int // non-negative
	Exponent    int       // coefficient * 10^Exponent
}

func NewDecimalInt(i int64) Decimal {
	neg := i < 0
	abs := new(big.Int).SetInt64(i)
	abs.Abs(abs)
	return Decimal{Negative: neg, Coefficient: abs, Exponent: 0}
}

// ParseDecimal parses a plain decimal literal: optional sign, digits, optional
// '.' + digits. Exponent notation ("1e3") is rejected by returning ok=false;
// callers that accept such tokens as STRING should do so before calling this.
func ParseDecimal(s string) (Decimal, bool) {
	t := s
	neg := false
	if strings.HasPrefix(t, "+") {
		t = t[1:]
	} else if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	}
	if t == "" {
		return Decimal{}, false
	}
	for _, r := range t {
		if (r < '0' || r > '9') && r != '.' {
			return Decimal{}, false
		}
	}
	intPart := t
	fracPart := ""
	if idx := strings.IndexByte(t, '.'); idx >= 0 {
		intPart = t[:idx]
		fracPart = t[idx+1:]
		if strings.Contains(fracPart, ".") {
			return Decimal{}, false
		}
	}
	if intPart == "" && fracPart == "" {
		return Decimal{}, false
	}
	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	coeff, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, false
	}
	d := Decimal{Negative: neg, Coefficient: coeff, Exponent: -len(fracPart)}
	return d.normalize(), true
}

// normalize strips trailing zero digits from the coefficient by raising the
// exponent, and clears the sign on a zero value.
func (d Decimal) normalize() Decimal {
	if d.Coefficient == nil {
		d.Coefficient = big.NewInt(0)
	}
	ten := big.NewInt(10)
	coeff := new(big.Int).Set(d.Coefficient)
	exp := d.Exponent
	for coeff.Sign() != 0 && exp < 0 {
		q, r := new(big.Int).QuoRem(coeff, ten, new(big.Int))
		if r.Sign() != 0 {
			break
		}
		coeff = q
		exp++
	}
	if coeff.Sign() == 0 {
		d.Negative = false
		exp = 0
	}
	d.Coefficient = coeff
	d.Exponent = exp
	return d
}

// scaledTo returns the coefficient scaled so both values share the more
// negative of the two exponents (i.e. the finer scale).
func scaledTo(d Decimal, exp int) *big.Int {
	c := new(big.Int).Set(d.Coefficient)
	if d.Exponent == exp {
		return c
	}
	diff := d.Exponent - exp
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(diff)), nil)
	return c.Mul(c, scale)
}

func minExp(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (a Decimal) signedCoeff() *big.Int {
	c := new(big.Int).Set(a.Coefficient)
	if a.Negative {
		c.Neg(c)
	}
	return c
}

func fromSigned(c *big.Int, exp int) Decimal {
	neg := c.Sign() < 0
	abs := new(big.Int).Abs(c)
	return Decimal{Negative: neg, Coefficient: abs, Exponent: exp}.normalize()
}

func (a Decimal) Add(b Decimal) Decimal {
	exp := minExp(a.Exponent, b.Exponent)
	ac := scaledTo(a, exp)
	if a.Negative {
		ac.Neg(ac)
	}
	bc := scaledTo(b, exp)
	if b.Negative {
		bc.Neg(bc)
	}
	return fromSigned(new(big.Int).Add(ac, bc), exp)
}

func (a Decimal) Sub(b Decimal) Decimal {
	nb := b
	nb.Negative = !b.Negative
	if b.Coefficient != nil && b.Coefficient.Sign() == 0 {
		nb.Negative = false
	}
	return a.Add(nb)
}

func (a Decimal) Mul(b Decimal) Decimal {
	c := new(big.Int).Mul(a.Coefficient, b.Coefficient)
	neg := a.Negative != b.Negative
	if neg {
		c.Neg(c)
	}
	return fromSigned(c, a.Exponent+b.Exponent)
}

// DivExact performs decimal division, scaling the result to at most extraDigits
// of additional precision beyond the finer of the two operands' scales. It
// returns ok=false on division by zero.
func (a Decimal) DivExact(b Decimal, extraDigits int) (Decimal, bool) {
	if b.Coefficient.Sign() == 0 {
		return Decimal{}, false
	}
	// Scale up numerator to get extraDigits of fractional precision.
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(extraDigits)), nil)
	num := new(big.Int).Mul(a.Coefficient, scale)
	q, r := new(big.Int).QuoRem(num, b.Coefficient, new(big.Int))
	exp := a.Exponent - b.Exponent - extraDigits
	neg := a.Negative != b.Negative
	// Trim trailing exact zeros by increasing exponent while remainder permits
	// (only safe when r == 0, which normalize() already handles via coeff).
	_ = r
	if neg {
		q.Neg(q)
	}
	return fromSigned(q, exp), true
}

// Cmp returns -1, 0, or 1.
func (a Decimal) Cmp(b Decimal) int {
	exp := minExp(a.Exponent, b.Exponent)
	ac := scaledTo(a, exp)
	if a.Negative {
		ac.Neg(ac)
	}
	bc := scaledTo(b, exp)
	if b.Negative {
		bc.Neg(bc)
	}
	return ac.Cmp(bc)
}

func (a Decimal) IsZero() bool {
	return a.Coefficient == nil || a.Coefficient.Sign() == 0
}

// String renders the normalized textual form: no exponent, no trailing
// fractional zeros, "-0" collapsed to "0".
func (d Decimal) String() string {
	d = d.normalize()
	digits := d.Coefficient.String()
	sign := ""
	if d.Negative && d.Coefficient.Sign() != 0 {
		sign = "-"
	}
	if d.Exponent >= 0 {
		if d.Exponent == 0 {
			return sign + digits
		}
		return sign + digits + strings.Repeat("0", d.Exponent)
	}
	frac := -d.Exponent
	if len(digits) <= frac {
		digits = strings.Repeat("0", frac-len(digits)+1) + digits
	}
	intPart := digits[:len(digits)-frac]
	fracPart := digits[len(digits)-frac:]
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return sign + intPart
	}
	return sign + intPart + "." + fracPart
}

// DecimalFromBigInt builds an integer-valued Decimal from a big.Int.
func DecimalFromBigInt(i *big.Int) Decimal {
	neg := i.Sign() < 0
	abs := new(big.Int).Abs(i)
	return Decimal{Negative: neg, Coefficient: abs, Exponent: 0}
}
