// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txverifier

import (
	"fmt"

	"github.com/stakechain/chaind/internal/amount"
)

// Fee is the amount of coins a transaction leaves unclaimed for the block
// reward.
type Fee struct {
	value amount.Amount
}

// NewFee returns a fee of the given amount.
func NewFee(a amount.Amount) Fee {
	return Fee{value: a}
}

// Amount returns the fee as a plain amount.
func (f Fee) Amount() amount.Amount {
	return f.value
}

// Add returns the sum of the two fees.
func (f Fee) Add(other Fee) (Fee, error) {
	sum, err := f.value.Add(other.value)
	if err != nil {
		return Fee{}, ruleError(ErrFeeOverflow, fmt.Sprintf("fees %v and "+
			"%v overflow", f.value, other.value))
	}
	return Fee{value: sum}, nil
}

// String returns the fee in coins.
func (f Fee) String() string {
	return f.value.String()
}

// Subsidy is the amount of new coins a block reward may claim.
type Subsidy struct {
	value amount.Amount
}

// NewSubsidy returns a subsidy of the given amount.
func NewSubsidy(a amount.Amount) Subsidy {
	return Subsidy{value: a}
}

// Amount returns the subsidy as a plain amount.
func (s Subsidy) Amount() amount.Amount {
	return s.value
}

// String returns the subsidy in coins.
func (s Subsidy) String() string {
	return s.value.String()
}

// rewardCeiling returns the most a block reward may pay out given the value of
// its inputs.
func rewardCeiling(inputs amount.Amount, subsidy Subsidy, fees Fee) (amount.Amount, error) {
	total, err := amount.Sum(inputs, subsidy.value, fees.value)
	if err != nil {
		str := fmt.Sprintf("block reward inputs %v, subsidy %v and fees "+
			"%v overflow", inputs, subsidy, fees)
		return 0, ruleError(ErrRewardAdditionError, str)
	}
	return total, nil
}
