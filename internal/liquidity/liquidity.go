// Package liquidity implements concentrated-liquidity range math: splitting
// a capital value into token-pair amounts, deriving liquidity units, and
// projecting token balances after a price move.
//
// All sqrt-price parameters are the half-scale (10^9) roots produced by
// fixedpoint.Sqrt on a 10^18-scaled price. The raw product of two such
// roots restores the 10^18 scale, and liquidity values carry an extra 10^9
// factor that the delta formulas cancel back out.
package liquidity

import (
	"errors"

	"github.com/holiman/uint256"

	"hedgeScope/internal/fixedpoint"
)

var (
	ErrInvalidPriceRange = errors.New("invalid price range")
	ErrPriceOutOfRange   = errors.New("price out of range")
)

func validateRange(lower, upper *uint256.Int) error {
	if lower.Cmp(upper) >= 0 {
		return ErrInvalidPriceRange
	}
	return nil
}

func validateInRange(price, lower, upper *uint256.Int) error {
	if price.Lt(lower) || price.Gt(upper) {
		return ErrPriceOutOfRange
	}
	return nil
}

// sqrtProduct multiplies two half-scale roots. The raw product is already
// back on the 10^18 scale, so no rescaling division follows.
func sqrtProduct(u, v *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(u, v)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	return out, nil
}

// SplitValueByRange splits totalValue into (amount0, amount1) for a range
// given as half-scale sqrt prices. At the exact lower bound the whole value
// buys token0, at the exact upper bound it all stays in token1.
func SplitValueByRange(sp, sa, sb, totalValue *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := validateRange(sa, sb); err != nil {
		return nil, nil, err
	}
	if err := validateInRange(sp, sa, sb); err != nil {
		return nil, nil, err
	}

	if totalValue.IsZero() {
		return new(uint256.Int), new(uint256.Int), nil
	}
	if sp.Eq(sb) {
		return new(uint256.Int), totalValue.Clone(), nil
	}

	price, err := sqrtProduct(sp, sp)
	if err != nil {
		return nil, nil, err
	}

	// amount0 = value / (p + sp*sb*(sp-sa)/(sb-sp)), derived from the
	// constant-liquidity invariant across the two reserves. At the lower
	// bound the second term vanishes and the whole value buys token0.
	spb, err := sqrtProduct(sp, sb)
	if err != nil {
		return nil, nil, err
	}
	rise := new(uint256.Int).Sub(sp, sa)
	gap := new(uint256.Int).Sub(sb, sp)
	term, err := fixedpoint.MulDiv(spb, rise, gap)
	if err != nil {
		return nil, nil, err
	}
	denom, err := fixedpoint.Add(price, term)
	if err != nil {
		return nil, nil, err
	}
	amount0, err := fixedpoint.Div(totalValue, denom)
	if err != nil {
		return nil, nil, err
	}

	spent, err := fixedpoint.Mul(amount0, price)
	if err != nil {
		return nil, nil, err
	}

	// Rounding in the mul-div step can push the token0 value past the
	// input; the residual is floored at zero rather than rejected.
	amount1 := new(uint256.Int)
	if spent.Lt(totalValue) {
		amount1.Sub(totalValue, spent)
	}
	return amount0, amount1, nil
}

// LiquidityFromToken0 returns the liquidity obtainable from x units of
// token0 over [sa, sb]: x * sa * sb / (sb - sa). The result carries an
// extra 10^9 factor from the half-scale width.
func LiquidityFromToken0(x, sa, sb *uint256.Int) (*uint256.Int, error) {
	if err := validateRange(sa, sb); err != nil {
		return nil, err
	}
	sab, err := sqrtProduct(sa, sb)
	if err != nil {
		return nil, err
	}
	width := new(uint256.Int).Sub(sb, sa)
	return fixedpoint.MulDiv(x, sab, width)
}

// LiquidityFromToken1 returns the liquidity obtainable from y units of
// token1 over [sa, sb]: y / (sb - sa). Same 10^9-shifted scale as
// LiquidityFromToken0, so the two sides compare directly.
func LiquidityFromToken1(y, sa, sb *uint256.Int) (*uint256.Int, error) {
	if err := validateRange(sa, sb); err != nil {
		return nil, err
	}
	width := new(uint256.Int).Sub(sb, sa)
	return fixedpoint.Div(y, width)
}

// CombinedLiquidity derives the position liquidity from held amounts. Below
// the range only token0 counts, above it only token1; inside the range the
// minimum of both single-sided values is the conservative bound.
func CombinedLiquidity(x, y, sp, sa, sb *uint256.Int) (*uint256.Int, error) {
	if err := validateRange(sa, sb); err != nil {
		return nil, err
	}

	if sp.Cmp(sa) <= 0 {
		return LiquidityFromToken0(x, sa, sb)
	}
	if sp.Cmp(sb) >= 0 {
		return LiquidityFromToken1(y, sa, sb)
	}

	l0, err := LiquidityFromToken0(x, sp, sb)
	if err != nil {
		return nil, err
	}
	l1, err := LiquidityFromToken1(y, sa, sp)
	if err != nil {
		return nil, err
	}
	if l1.Lt(l0) {
		return l1, nil
	}
	return l0, nil
}
