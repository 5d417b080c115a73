// Package hedge sizes the capital split between a concentrated-liquidity
// leg and an offsetting leveraged short so that projected losses on the LP
// leg are cancelled by gains on the short leg at a target price.
package hedge

import (
	"github.com/holiman/uint256"

	"hedgeScope/internal/fixedpoint"
	"hedgeScope/internal/liquidity"
)

// Allocation is a capital split between the two legs. The values are not
// normalized against any particular total; callers rescale with Rescale.
type Allocation struct {
	LPValue    *uint256.Int
	ShortValue *uint256.Int
}

// referenceNotional is the virtual LP size the solver works with. The
// caller rescales the resulting ratio against real capital.
var referenceNotional = fixedpoint.FromUint64(100_000)

// staticLPBps is the fixed LP share used by the static allocation path.
const (
	staticLPBps = 7_900
	bpsScale    = 10_000
)

// MaxToken0ForRange returns the largest token0 amount purchasable with
// maxValue at raw price p inside [a, b].
func MaxToken0ForRange(p, a, b, maxValue *uint256.Int) (*uint256.Int, error) {
	if a.Cmp(b) >= 0 {
		return nil, liquidity.ErrInvalidPriceRange
	}
	if p.Lt(a) || p.Gt(b) {
		return nil, liquidity.ErrPriceOutOfRange
	}

	sp := fixedpoint.Sqrt(p)
	sa := fixedpoint.Sqrt(a)
	sb := fixedpoint.Sqrt(b)
	if sb.Eq(sp) {
		return nil, fixedpoint.ErrDivisionByZero
	}

	// Raw product of two half-scale roots, already back on the 10^18 scale.
	spb, overflow := new(uint256.Int).MulOverflow(sp, sb)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	rise := new(uint256.Int).Sub(sp, sa)
	gap := new(uint256.Int).Sub(sb, sp)
	term, err := fixedpoint.MulDiv(spb, rise, gap)
	if err != nil {
		return nil, err
	}
	denom, err := fixedpoint.Add(p, term)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Div(maxValue, denom)
}

// SolveEqualPnLAllocation projects the LP leg from p to targetPrice on a
// reference notional and back-solves the short notional whose gain at
// targetPrice offsets the LP loss, assuming the short is entered at
// shortPrice. A non-negative LP PnL needs no hedge and yields a zero
// short value.
func SolveEqualPnLAllocation(p, a, b, targetPrice, shortPrice *uint256.Int) (Allocation, error) {
	if targetPrice.Eq(shortPrice) {
		return Allocation{}, fixedpoint.ErrDivisionByZero
	}

	ref := referenceNotional.Clone()
	x0, err := MaxToken0ForRange(p, a, b, ref)
	if err != nil {
		return Allocation{}, err
	}
	spent, err := fixedpoint.Mul(x0, p)
	if err != nil {
		return Allocation{}, err
	}
	y0 := new(uint256.Int)
	if spent.Lt(ref) {
		y0.Sub(ref, spent)
	}

	x1, y1, err := liquidity.SimulateAmountsAfterPriceMove(p, a, b, x0, y0, targetPrice)
	if err != nil {
		return Allocation{}, err
	}

	initialValue, err := liquidity.PositionValue(x0, y0, p)
	if err != nil {
		return Allocation{}, err
	}
	finalValue, err := liquidity.PositionValue(x1, y1, targetPrice)
	if err != nil {
		return Allocation{}, err
	}

	if finalValue.Cmp(initialValue) >= 0 {
		return Allocation{LPValue: ref, ShortValue: new(uint256.Int)}, nil
	}

	loss := new(uint256.Int).Sub(initialValue, finalValue)
	priceGap := new(uint256.Int)
	if targetPrice.Gt(shortPrice) {
		priceGap.Sub(targetPrice, shortPrice)
	} else {
		priceGap.Sub(shortPrice, targetPrice)
	}

	shortValue, err := fixedpoint.MulDiv(loss, shortPrice, priceGap)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{LPValue: ref, ShortValue: shortValue}, nil
}

// StaticAllocation is the fixed 79/21 split used by the top-level entry
// point. It predates the PnL solver and intentionally stays a separate
// path; the two can disagree.
func StaticAllocation(totalCapital *uint256.Int) Allocation {
	lp := new(uint256.Int).Mul(totalCapital, uint256.NewInt(staticLPBps))
	lp.Div(lp, uint256.NewInt(bpsScale))
	short := new(uint256.Int).Sub(totalCapital, lp)
	return Allocation{LPValue: lp, ShortValue: short}
}

// Rescale maps an allocation's ratio onto real capital: the LP leg gets
// lpValue * total / (lpValue + shortValue) and the short leg the rest.
func Rescale(alloc Allocation, totalCapital *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	sum, err := fixedpoint.Add(alloc.LPValue, alloc.ShortValue)
	if err != nil {
		return nil, nil, err
	}
	if sum.IsZero() {
		return nil, nil, fixedpoint.ErrDivisionByZero
	}
	lp, err := fixedpoint.MulDiv(alloc.LPValue, totalCapital, sum)
	if err != nil {
		return nil, nil, err
	}
	short := new(uint256.Int).Sub(totalCapital, lp)
	return lp, short, nil
}
