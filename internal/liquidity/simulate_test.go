package liquidity

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"hedgeScope/internal/fixedpoint"
)

// approxEq reports whether got is within tol of want.
func approxEq(got, want, tol *uint256.Int) bool {
	var diff uint256.Int
	if got.Gt(want) {
		diff.Sub(got, want)
	} else {
		diff.Sub(want, got)
	}
	return !diff.Gt(tol)
}

func TestSimulateIdentity(t *testing.T) {
	x := fixedpoint.FromUint64(500)
	y := fixedpoint.FromUint64(500)
	p := wad(100)

	x1, y1, err := SimulateAmountsAfterPriceMove(p, wad(25), wad(400), x, y, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !x1.Eq(x) || !y1.Eq(y) {
		t.Fatalf("identity move changed amounts: (%s, %s)", x1.Dec(), y1.Dec())
	}
}

func TestSimulatePriceUpExact(t *testing.T) {
	// Price 1 -> 4 across the full [0.25, 4] range with a balanced 500/500
	// position. Liquidity is 1000 (shifted by 10^9); the move sells all
	// token0 and accrues exactly 1000 token1.
	x := fixedpoint.FromUint64(500)
	y := fixedpoint.FromUint64(500)

	x1, y1, err := SimulateAmountsAfterPriceMove(wad(100), wad(25), wad(400), x, y, wad(400))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !x1.IsZero() {
		t.Fatalf("x1 = %s, want 0", x1.Dec())
	}
	if !y1.Eq(fixedpoint.FromUint64(1500)) {
		t.Fatalf("y1 = %s, want 1500e18", y1.Dec())
	}
}

func TestSimulatePriceDownExact(t *testing.T) {
	// Mirror move 1 -> 0.25: token1 drains completely and token0 grows to
	// 1500, worth 375 at the target price.
	x := fixedpoint.FromUint64(500)
	y := fixedpoint.FromUint64(500)

	x1, y1, err := SimulateAmountsAfterPriceMove(wad(100), wad(25), wad(400), x, y, wad(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !x1.Eq(fixedpoint.FromUint64(1500)) {
		t.Fatalf("x1 = %s, want 1500e18", x1.Dec())
	}
	if !y1.IsZero() {
		t.Fatalf("y1 = %s, want 0", y1.Dec())
	}

	value, err := PositionValue(x1, y1, wad(25))
	if err != nil {
		t.Fatalf("PositionValue: %v", err)
	}
	if !value.Eq(fixedpoint.FromUint64(375)) {
		t.Fatalf("value = %s, want 375e18", value.Dec())
	}
}

func TestSimulateSubUnityPrices(t *testing.T) {
	// All roots land exactly on the half scale: 0.04 -> 2e8, 0.09 -> 3e8,
	// 0.16 -> 4e8. A 500/500 position at 0.09 pushed to the upper bound
	// sells all token0 and ends at 560 token1.
	x := fixedpoint.FromUint64(500)
	y := fixedpoint.FromUint64(500)

	x1, y1, err := SimulateAmountsAfterPriceMove(wad(9), wad(4), wad(16), x, y, wad(16))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !x1.IsZero() {
		t.Fatalf("x1 = %s, want 0", x1.Dec())
	}
	if !y1.Eq(fixedpoint.FromUint64(560)) {
		t.Fatalf("y1 = %s, want 560e18", y1.Dec())
	}
}

func TestSimulateRoundTripValue(t *testing.T) {
	// The 1000-value split over [0.5, 2] from the spot price 1, pushed to
	// the upper bound: the final value must match L*(st-sa) evaluated in
	// token1, about 1207.10678 -- the classic sqrt-range payoff.
	total := fixedpoint.FromUint64(1000)
	sp := fixedpoint.Sqrt(wad(100))
	sa := fixedpoint.Sqrt(wad(50))
	sb := fixedpoint.Sqrt(wad(200))

	amount0, amount1, err := SplitValueByRange(sp, sa, sb, total)
	if err != nil {
		t.Fatalf("SplitValueByRange: %v", err)
	}
	tol := uint256.NewInt(1e14) // one ten-thousandth of a token
	if !approxEq(amount0, fixedpoint.FromUint64(500), tol) {
		t.Fatalf("amount0 = %s, want ~500e18", amount0.Dec())
	}
	if !approxEq(amount1, fixedpoint.FromUint64(500), tol) {
		t.Fatalf("amount1 = %s, want ~500e18", amount1.Dec())
	}

	x1, y1, err := SimulateAmountsAfterPriceMove(wad(100), wad(50), wad(200), amount0, amount1, wad(200))
	if err != nil {
		t.Fatalf("SimulateAmountsAfterPriceMove: %v", err)
	}
	if x1.Gt(tol) {
		t.Fatalf("x1 = %s, want ~0", x1.Dec())
	}
	// 500 + 1000*(sqrt(2) - 1) * (1 + sqrt(2)/2) collapses to
	// 500*(1 + sqrt(2)) = 1207.106781...
	wantY := fromDecimal(t, "1207106781186547524000")
	if !approxEq(y1, wantY, tol) {
		t.Fatalf("y1 = %s, want ~%s", y1.Dec(), wantY.Dec())
	}

	value, err := PositionValue(x1, y1, wad(200))
	if err != nil {
		t.Fatalf("PositionValue: %v", err)
	}
	if !approxEq(value, wantY, new(uint256.Int).Mul(tol, uint256.NewInt(3))) {
		t.Fatalf("final value = %s, want ~%s", value.Dec(), wantY.Dec())
	}

	// Divergence loss against holding the initial amounts at the target
	// price: 1500 - 1207.106781... = 292.893218...
	hold, err := PositionValue(amount0, amount1, wad(200))
	if err != nil {
		t.Fatalf("PositionValue: %v", err)
	}
	loss := new(uint256.Int).Sub(hold, value)
	wantLoss := fromDecimal(t, "292893218813452476000")
	if !approxEq(loss, wantLoss, new(uint256.Int).Mul(tol, uint256.NewInt(4))) {
		t.Fatalf("divergence loss = %s, want ~%s", loss.Dec(), wantLoss.Dec())
	}
}

func TestSimulateValidation(t *testing.T) {
	x := fixedpoint.FromUint64(500)
	y := fixedpoint.FromUint64(500)

	if _, _, err := SimulateAmountsAfterPriceMove(wad(100), wad(400), wad(25), x, y, wad(100)); !errors.Is(err, ErrInvalidPriceRange) {
		t.Fatalf("inverted range: err = %v, want ErrInvalidPriceRange", err)
	}
	if _, _, err := SimulateAmountsAfterPriceMove(wad(500), wad(25), wad(400), x, y, wad(100)); !errors.Is(err, ErrPriceOutOfRange) {
		t.Fatalf("price out of range: err = %v, want ErrPriceOutOfRange", err)
	}
	if _, _, err := SimulateAmountsAfterPriceMove(wad(100), wad(25), wad(400), x, y, wad(500)); !errors.Is(err, ErrPriceOutOfRange) {
		t.Fatalf("target out of range: err = %v, want ErrPriceOutOfRange", err)
	}
}
