package rewards

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

var maxUint256 = func() *uint256.Int {
	v := new(uint256.Int)
	v.SetAllOne()
	return v
}()

func TestCheckedAdd(t *testing.T) {
	sum, err := checkedAdd(uint256.NewInt(2), uint256.NewInt(3))
	if err != nil || sum.Uint64() != 5 {
		t.Fatalf("add: %s %v", sum, err)
	}
	if _, err := checkedAdd(maxUint256, uint256.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("overflow not detected: %v", err)
	}
}

func TestCheckedSub(t *testing.T) {
	diff, err := checkedSub(uint256.NewInt(5), uint256.NewInt(3))
	if err != nil || diff.Uint64() != 2 {
		t.Fatalf("sub: %s %v", diff, err)
	}
	if _, err := checkedSub(uint256.NewInt(3), uint256.NewInt(5)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("underflow not detected: %v", err)
	}
}

func TestCheckedMul(t *testing.T) {
	product, err := checkedMul(uint256.NewInt(6), uint256.NewInt(7))
	if err != nil || product.Uint64() != 42 {
		t.Fatalf("mul: %s %v", product, err)
	}
	if _, err := checkedMul(maxUint256, uint256.NewInt(2)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("overflow not detected: %v", err)
	}
	if _, err := checkedMul(scale, scale); !errors.Is(err, ErrOverflow) {
		t.Fatalf("scale*scale must overflow 256 bits: %v", err)
	}
}

func TestCheckedDivFloors(t *testing.T) {
	quotient, err := checkedDiv(uint256.NewInt(7), uint256.NewInt(2))
	if err != nil || quotient.Uint64() != 3 {
		t.Fatalf("expected floor division, got %s %v", quotient, err)
	}
	if _, err := checkedDiv(uint256.NewInt(7), uint256.NewInt(0)); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("divide by zero not detected: %v", err)
	}
}

func TestMulDiv(t *testing.T) {
	// 100 * scale / 3 floors, and dividing back loses the remainder.
	out, err := mulDiv(uint256.NewInt(100), scale, uint256.NewInt(3))
	if err != nil {
		t.Fatalf("mulDiv: %v", err)
	}
	back := new(uint256.Int).Mul(out, uint256.NewInt(3))
	if !back.Lt(new(uint256.Int).Mul(uint256.NewInt(100), scale)) {
		t.Fatalf("expected flooring to lose the remainder")
	}
	if _, err := mulDiv(maxUint256, uint256.NewInt(2), uint256.NewInt(2)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("intermediate overflow not detected: %v", err)
	}
}

func TestPow10(t *testing.T) {
	for exp, want := range map[uint8]string{0: "1", 1: "10", 6: "1000000", 18: "1000000000000000000"} {
		got, err := pow10(exp)
		if err != nil {
			t.Fatalf("pow10(%d): %v", exp, err)
		}
		if got.Dec() != want {
			t.Fatalf("pow10(%d) = %s, want %s", exp, got.Dec(), want)
		}
	}
}
