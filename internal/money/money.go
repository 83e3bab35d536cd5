package money

import "fmt"

// Money is an amount of currency in minor units (cents).
// Keeping amounts as integers makes fee and refund arithmetic exact.
type Money int64

// MinorUnitsPerUnit is the number of minor units in one currency unit.
const MinorUnitsPerUnit = 100

// PlatformFeeBps is the marketplace surcharge in basis points (5%).
const PlatformFeeBps = 500

var ErrNegativeResult = fmt.Errorf("money: operation yields negative amount")

func (m Money) Add(other Money) Money {
	return m + other
}

// Sub subtracts other from m and fails when the result would be negative.
// Ledger balances are never allowed below zero.
func (m Money) Sub(other Money) (Money, error) {
	if other > m {
		return 0, ErrNegativeResult
	}
	return m - other, nil
}

// Percent computes (m * bps / 10000) rounded half-up.
// Round-half-up keeps fee computation deterministic across platforms;
// negative rates are not a thing in this domain.
func (m Money) Percent(bps int64) Money {
	return Money((int64(m)*bps + 5000) / 10000)
}

// PlatformFee is the marketplace cut on the fee-exclusive order total.
func PlatformFee(base Money) Money {
	return base.Percent(PlatformFeeBps)
}

// Units reports the amount in whole currency units, truncated.
// Reward points are granted one per unit.
func (m Money) Units() int64 {
	return int64(m) / MinorUnitsPerUnit
}

func (m Money) IsNegative() bool {
	return m < 0
}

// String formats the amount as units.cents, e.g. 1050 -> "10.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/MinorUnitsPerUnit, v%MinorUnitsPerUnit)
}
