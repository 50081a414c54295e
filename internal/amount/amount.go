// Copyright (c) 2013, 2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package amount

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountUnit describes a method of converting an Amount to something other
// than the base unit of a coin.  The value of the AmountUnit is the exponent
// component of the decadic multiple to convert from an amount in coins to an
// amount counted in atomic units.
type AmountUnit int

// These constants define various units used when describing a coin monetary
// amount.
const (
	AmountMegaCoin  AmountUnit = 6
	AmountKiloCoin  AmountUnit = 3
	AmountCoin      AmountUnit = 0
	AmountMilliCoin AmountUnit = -3
	AmountMicroCoin AmountUnit = -6
	AmountAtom      AmountUnit = -8
)

// AtomsPerCoin is the number of atomic units in one coin.
const AtomsPerCoin = 1e8

// String returns the unit as a string.  For recognized units, the SI prefix is
// used, or "Atom" for the base unit.  For all unrecognized units, "1eN COIN"
// is returned, where N is the AmountUnit.
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaCoin:
		return "MCOIN"
	case AmountKiloCoin:
		return "kCOIN"
	case AmountCoin:
		return "COIN"
	case AmountMilliCoin:
		return "mCOIN"
	case AmountMicroCoin:
		return "μCOIN"
	case AmountAtom:
		return "Atom"
	default:
		return "1e" + fmt.Sprint(int(u)) + " COIN"
	}
}

// Amount represents a non-negative quantity of coins or tokens counted in
// atoms.  All arithmetic on amounts is checked: operations that would wrap
// return an error instead.
type Amount uint64

// Zero is the zero amount.
const Zero Amount = 0

// MaxAmount is the largest representable amount.
const MaxAmount Amount = math.MaxUint64

// NewAmount creates an Amount from a floating point value representing some
// value in coins.  NewAmount errors if f is NaN, +-Infinity or negative.
func NewAmount(f float64) (Amount, error) {
	switch {
	case math.IsNaN(f), math.IsInf(f, 1), math.IsInf(f, -1):
		return 0, fmt.Errorf("invalid coin amount %v", f)
	case f < 0:
		return 0, ruleError(ErrAmountUnderflow, fmt.Sprintf("negative "+
			"coin amount %v", f))
	}

	atoms := decimal.NewFromFloat(f).Shift(8).Round(0)
	if atoms.GreaterThan(decimal.NewFromBigInt(new(big.Int).SetUint64(
		math.MaxUint64), 0)) {

		return 0, ruleError(ErrAmountOverflow, fmt.Sprintf("coin amount "+
			"%v does not fit in %d bits", f, 64))
	}
	return Amount(atoms.BigInt().Uint64()), nil
}

// decimal returns the amount as an exact decimal number of coins.
func (a Amount) decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -8)
}

// ToUnit converts a monetary amount counted in atoms to a floating point
// value representing an amount of coins.
func (a Amount) ToUnit(u AmountUnit) float64 {
	f, _ := a.decimal().Shift(-int32(u)).Float64()
	return f
}

// ToCoin is the equivalent of calling ToUnit with AmountCoin.
func (a Amount) ToCoin() float64 {
	return a.ToUnit(AmountCoin)
}

// Format formats a monetary amount counted in atoms as a string for a given
// unit.  The conversion is exact and trailing zeros are trimmed.
func (a Amount) Format(u AmountUnit) string {
	return a.decimal().Shift(-int32(u)).String() + " " + u.String()
}

// String is the equivalent of calling Format with AmountCoin.
func (a Amount) String() string {
	return a.Format(AmountCoin)
}

// Add returns a + b or ErrAmountOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if sum < a {
		return 0, ruleError(ErrAmountOverflow, fmt.Sprintf("%d + %d "+
			"overflows", a, b))
	}
	return sum, nil
}

// Sub returns a - b or ErrAmountUnderflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ruleError(ErrAmountUnderflow, fmt.Sprintf("%d - %d "+
			"underflows", a, b))
	}
	return a - b, nil
}

// Mul returns a * n or ErrAmountOverflow.
func (a Amount) Mul(n uint64) (Amount, error) {
	if n != 0 && uint64(a) > math.MaxUint64/n {
		return 0, ruleError(ErrAmountOverflow, fmt.Sprintf("%d * %d "+
			"overflows", a, n))
	}
	return a * Amount(n), nil
}

// Sum adds all of the passed amounts, failing on the first overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, v := range amounts {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Signed converts the amount into a signed amount.
func (a Amount) Signed() (SignedAmount, error) {
	if a > math.MaxInt64 {
		return 0, ruleError(ErrAmountOverflow, fmt.Sprintf("%d does not "+
			"fit a signed amount", a))
	}
	return SignedAmount(a), nil
}

// AddSigned applies the signed change s to the amount.
func (a Amount) AddSigned(s SignedAmount) (Amount, error) {
	if s >= 0 {
		return a.Add(Amount(s))
	}
	if s == math.MinInt64 {
		return a.Sub(Amount(uint64(math.MaxInt64) + 1))
	}
	return a.Sub(Amount(-s))
}

// SignedAmount is a signed quantity of atoms used for invertible deltas.
type SignedAmount int64

// Add returns s + o or an overflow/underflow error.
func (s SignedAmount) Add(o SignedAmount) (SignedAmount, error) {
	sum := s + o
	switch {
	case o > 0 && sum < s:
		return 0, ruleError(ErrAmountOverflow, fmt.Sprintf("%d + %d "+
			"overflows", s, o))
	case o < 0 && sum > s:
		return 0, ruleError(ErrAmountUnderflow, fmt.Sprintf("%d + %d "+
			"underflows", s, o))
	}
	return sum, nil
}

// Neg returns -s.
func (s SignedAmount) Neg() (SignedAmount, error) {
	if s == math.MinInt64 {
		return 0, ruleError(ErrAmountOverflow, "negating the minimum "+
			"signed amount overflows")
	}
	return -s, nil
}

// Amount converts a non-negative signed amount back to an Amount.
func (s SignedAmount) Amount() (Amount, error) {
	if s < 0 {
		return 0, ruleError(ErrAmountUnderflow, fmt.Sprintf("%d is "+
			"negative", s))
	}
	return Amount(s), nil
}
