package fixedpoint

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
)

func TestMulBasic(t *testing.T) {
	got, err := Mul(FromUint64(3), FromUint64(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(FromUint64(12)) {
		t.Fatalf("3 * 4 = %s, want 12e18", got.Dec())
	}
}

func TestDivBasic(t *testing.T) {
	got, err := Div(FromUint64(10), FromUint64(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).Mul(uint256.NewInt(25), uint256.NewInt(100_000_000_000_000_000))
	if !got.Eq(want) {
		t.Fatalf("10 / 4 = %s, want 2.5e18", got.Dec())
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(One, uint256.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := MulDiv(One, One, uint256.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestAddSubOverflow(t *testing.T) {
	max := new(uint256.Int).SubUint64(new(uint256.Int), 1)
	if _, err := Add(max, One); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := Sub(One, FromUint64(2)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
}

// MulDiv must match exact big.Int floor division, including inputs whose
// product exceeds 256 bits.
func TestMulDivMatchesBigInt(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	randInt := func(bits int) *uint256.Int {
		buf := make([]byte, 32)
		rng.Read(buf)
		v := new(uint256.Int).SetBytes(buf)
		return v.Rsh(v, uint(256-bits))
	}

	for i := 0; i < 500; i++ {
		a := randInt(200)
		b := randInt(200)
		d := randInt(150)
		if d.IsZero() {
			continue
		}

		want := new(big.Int).Mul(a.ToBig(), b.ToBig())
		want.Div(want, d.ToBig())
		if want.BitLen() > 256 {
			if _, err := MulDiv(a, b, d); !errors.Is(err, ErrOverflow) {
				t.Fatalf("case %d: expected ErrOverflow for %d-bit result", i, want.BitLen())
			}
			continue
		}

		got, err := MulDiv(a, b, d)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if got.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: MulDiv(%s,%s,%s) = %s, want %s", i, a.Dec(), b.Dec(), d.Dec(), got.Dec(), want.String())
		}
	}
}

func TestSqrtBasics(t *testing.T) {
	if !Sqrt(uint256.NewInt(0)).IsZero() {
		t.Fatalf("sqrt(0) != 0")
	}
	for _, n := range []uint64{1, 2, 3, 10, 999, 123456} {
		sq := new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(n))
		if got := Sqrt(sq); !got.Eq(uint256.NewInt(n)) {
			t.Fatalf("sqrt(%d^2) = %s, want %d", n, got.Dec(), n)
		}
	}
}

func TestSqrtMonotonic(t *testing.T) {
	prev := uint256.NewInt(0)
	for n := uint64(0); n < 5000; n += 37 {
		cur := Sqrt(uint256.NewInt(n))
		if cur.Lt(prev) {
			t.Fatalf("sqrt not monotonic at %d", n)
		}
		prev = cur
	}
}

// Sqrt of a full-scale value lands on the 10^9 half scale. Downstream
// formulas depend on this exact behavior.
func TestSqrtHalfScale(t *testing.T) {
	if got := Sqrt(One); !got.Eq(HalfScale) {
		t.Fatalf("sqrt(1e18) = %s, want 1e9", got.Dec())
	}
	four := FromUint64(4)
	want := new(uint256.Int).Mul(uint256.NewInt(2), HalfScale)
	if got := Sqrt(four); !got.Eq(want) {
		t.Fatalf("sqrt(4e18) = %s, want 2e9", got.Dec())
	}
}
