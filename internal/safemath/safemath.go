package safemath

import (
	"errors"
	"math/bits"
)

var (
	ErrOverflow       = errors.New("number overflow")
	ErrUnderflow      = errors.New("number underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

func Add32(a, b uint32) (uint32, bool) {
	v, carry := bits.Add32(a, b, 0)
	return v, carry == 0
}

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

// Sum64 adds all values, failing with ErrOverflow if the total does not fit.
func Sum64(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		var ok bool
		if total, ok = Add64(total, v); !ok {
			return 0, ErrOverflow
		}
	}
	return total, nil
}

// MulDiv64 computes floor(a*b/c) with a 128-bit intermediate product.
func MulDiv64(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}
