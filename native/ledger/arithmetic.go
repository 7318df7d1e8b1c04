package ledger

import (
	"errors"
	"math/big"
)

// ErrArithmeticOverflow is returned by the checked helpers below when a fund
// movement would underflow or overflow. Balance flows always use these
// helpers; score/counter updates use plain saturating arithmetic instead
// (see native/reputation), per the dual arithmetic-safety rule.
var ErrArithmeticOverflow = errors.New("ledger: arithmetic overflow")

// CheckedAdd returns a+b, failing if either operand is negative (balances are
// never negative in this ledger).
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Add(a, b), nil
}

// CheckedSub returns a-b, failing if the result would be negative.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if a.Sign() < 0 || b.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	if a.Cmp(b) < 0 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Sub(a, b), nil
}

// CheckedMulDivPercent computes floor(amount*pct/100) using checked
// multiplication, matching the fee formula in the escrow module:
// fee := amount * feePercent / 100.
func CheckedMulDivPercent(amount *big.Int, pct uint64) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	product := new(big.Int).Mul(amount, new(big.Int).SetUint64(pct))
	if product.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	return new(big.Int).Div(product, big.NewInt(100)), nil
}

// SaturatingSubUint32 subtracts b from a, clamping at zero rather than
// underflowing. Used for saturating score/counter updates (reputation).
func SaturatingSubUint32(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

// SaturatingAddUint32 adds b to a, clamping at cap rather than overflowing.
func SaturatingAddUint32(a, b, cap uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > uint64(cap) {
		return cap
	}
	return uint32(sum)
}
