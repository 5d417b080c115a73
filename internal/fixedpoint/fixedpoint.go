package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Values are 60.18 fixed-point decimals: non-negative 256-bit integers
// scaled by 10^18. All operations floor and never wrap silently.
var (
	// One is the fixed-point representation of 1.0.
	One = uint256.NewInt(1_000_000_000_000_000_000)

	// HalfScale is 10^9, the effective scale of Sqrt applied to a
	// full-scale value.
	HalfScale = uint256.NewInt(1_000_000_000)
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("overflow")
	ErrUnderflow      = errors.New("underflow")
)

// FromUint64 converts a whole-number amount to fixed point.
func FromUint64(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), One)
}

// Add returns x + y, erroring on 256-bit overflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x - y, erroring when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// Mul returns floor(x * y / 10^18).
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDiv(x, y, One)
}

// Div returns floor(x * 10^18 / y).
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDiv(x, One, y)
}

// MulDiv returns floor(a * b / denominator), computing the intermediate
// product at full 512-bit width so it is exact for any 256-bit inputs.
func MulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sqrt returns floor(sqrt(x)) over the raw scaled representation. Applied
// to a 10^18-scaled value the result is scaled by 10^9, not 10^18; the
// range and liquidity formulas are calibrated to that half scale.
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// ToBig converts to math/big for signed arithmetic at the edges.
func ToBig(x *uint256.Int) *big.Int {
	return x.ToBig()
}

// SignedDiff returns x - y as a signed big integer.
func SignedDiff(x, y *uint256.Int) *big.Int {
	return new(big.Int).Sub(x.ToBig(), y.ToBig())
}
