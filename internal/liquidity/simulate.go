package liquidity

import (
	"github.com/holiman/uint256"

	"hedgeScope/internal/fixedpoint"
)

// clampToRange bounds a price to [lower, upper] before it enters a sqrt
// calculation. The clamp applies to the price inputs only, never to the
// projected amounts.
func clampToRange(price, lower, upper *uint256.Int) *uint256.Int {
	if price.Lt(lower) {
		return lower
	}
	if price.Gt(upper) {
		return upper
	}
	return price
}

// SimulateAmountsAfterPriceMove projects the token amounts (x, y) held at
// price p in range [a, b] to the amounts held once the price reaches
// targetPrice. Prices are raw 10^18-scaled decimals. A computed decrease
// larger than the held amount clamps the result at zero.
func SimulateAmountsAfterPriceMove(p, a, b, x, y, targetPrice *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := validateRange(a, b); err != nil {
		return nil, nil, err
	}
	if err := validateInRange(p, a, b); err != nil {
		return nil, nil, err
	}
	if err := validateInRange(targetPrice, a, b); err != nil {
		return nil, nil, err
	}

	if targetPrice.Eq(p) {
		return x.Clone(), y.Clone(), nil
	}

	sp := fixedpoint.Sqrt(clampToRange(p, a, b))
	sa := fixedpoint.Sqrt(a)
	sb := fixedpoint.Sqrt(b)
	st := fixedpoint.Sqrt(clampToRange(targetPrice, a, b))

	liq, err := CombinedLiquidity(x, y, sp, sa, sb)
	if err != nil {
		return nil, nil, err
	}
	if liq.IsZero() || st.Eq(sp) {
		return x.Clone(), y.Clone(), nil
	}

	// dx = L * |st - sp| / (sp * st) and dy = L * |st - sp|. The raw root
	// product restores the 10^18 scale, and the 10^9 factor carried by the
	// liquidity cancels against the half-scale root difference.
	spst, err := sqrtProduct(sp, st)
	if err != nil {
		return nil, nil, err
	}
	var diff *uint256.Int
	if st.Gt(sp) {
		diff = new(uint256.Int).Sub(st, sp)
	} else {
		diff = new(uint256.Int).Sub(sp, st)
	}
	dx, err := fixedpoint.MulDiv(liq, diff, spst)
	if err != nil {
		return nil, nil, err
	}
	dy, err := fixedpoint.Mul(liq, diff)
	if err != nil {
		return nil, nil, err
	}

	x1 := x.Clone()
	y1 := y.Clone()

	if st.Gt(sp) {
		// Price up: token0 is sold off, token1 accrues.
		if dx.Lt(x1) {
			x1.Sub(x1, dx)
		} else {
			x1.Clear()
		}
		y1, err = fixedpoint.Add(y1, dy)
		if err != nil {
			return nil, nil, err
		}
		return x1, y1, nil
	}

	// Price down: token0 accrues, token1 is sold off.
	x1, err = fixedpoint.Add(x1, dx)
	if err != nil {
		return nil, nil, err
	}
	if dy.Lt(y1) {
		y1.Sub(y1, dy)
	} else {
		y1.Clear()
	}
	return x1, y1, nil
}

// PositionValue prices a pair of amounts at a raw price: x*price + y.
func PositionValue(x, y, price *uint256.Int) (*uint256.Int, error) {
	v, err := fixedpoint.Mul(x, price)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(v, y)
}
