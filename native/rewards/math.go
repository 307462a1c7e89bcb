package rewards

import "github.com/holiman/uint256"

var (
	// scale is the fixed-point precision of the cumulative reward-per-stake
	// accumulator.
	scale = mustUint256("1000000000000000000000000000000000000") // 1e36

	// minScaledSupply and maxScaledSupply bound the internal reward supply a
	// pool may carry. Pools below the floor lose too much precision to floor
	// division; pools above the ceiling risk overflowing the accumulator.
	minScaledSupply = mustUint256("10000000000")                          // 1e10
	maxScaledSupply = mustUint256("100000000000000000000000000000000000") // 1e35
)

const (
	// maxDecimalsRemoved bounds the creation-time unit scaling so that
	// 10^decimalsRemoved cannot push payout amounts out of range.
	maxDecimalsRemoved = 18

	// periodsPerYear caps the timelock duration at creation.
	periodsPerYear = 31_536_000
)

func mustUint256(value string) *uint256.Int {
	v, err := uint256.FromDecimal(value)
	if err != nil {
		panic("invalid uint256 constant: " + value)
	}
	return v
}

func checkedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	sum, carry := new(uint256.Int).AddOverflow(a, b)
	if carry {
		return nil, ErrOverflow
	}
	return sum, nil
}

func checkedSub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, borrow := new(uint256.Int).SubOverflow(a, b)
	if borrow {
		return nil, ErrUnderflow
	}
	return diff, nil
}

func checkedMul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product, nil
}

// checkedDiv returns the floor of a/b.
func checkedDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b == nil || b.IsZero() {
		return nil, ErrDivideByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// mulDiv computes floor(a*b/c) with overflow and zero-divisor checks.
func mulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	product, err := checkedMul(a, b)
	if err != nil {
		return nil, err
	}
	return checkedDiv(product, c)
}

// pow10 returns 10^exp, bounded by maxDecimalsRemoved at the call sites.
func pow10(exp uint8) (*uint256.Int, error) {
	out := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint8(0); i < exp; i++ {
		next, err := checkedMul(out, ten)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
