package fixed

import (
	"fmt"
	"math/big"
)

// Decimals is the fixed-point precision of every chain-emitted value:
// amounts, prices, rates and payments are integers scaled by 10^18.
const Decimals = 18

// Parse decodes a base-10 integer string as it appears in chain logs
// and wire payloads. Floats and scientific notation are rejected; a
// value that does not parse is a malformed event, never a zero.
func Parse(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty fixed-point value")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid fixed-point value %q", s)
	}
	return v, nil
}

// MustParse is Parse for hand-written constants. Panics on bad input.
func MustParse(s string) *big.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders v for storage and wire output. nil renders as "0" so
// partially populated rows never emit the literal "<nil>".
func String(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Clone returns an independent copy. Handlers clone before mutating so
// a stored entity never aliases an event's payload.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Max returns the larger of a and b without mutating either.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return Clone(a)
	}
	return Clone(b)
}

// Min returns the smaller of a and b without mutating either.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return Clone(a)
	}
	return Clone(b)
}

// IsZero reports whether v is nil or exactly zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
