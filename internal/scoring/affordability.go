package scoring

import "math"

// Fixed upfront costs a buyer pays regardless of price: inspection/appraisal
// bundle plus lender fees.
const (
	upfrontCostsBase   = 8310.0
	upfrontLenderFees  = 1990.0
	FixedUpfrontCosts  = upfrontCostsBase + upfrontLenderFees // 10300
)

// entryFactor is the fraction of price due at entry: 20% down, 1% closing,
// 1.6% points.
const entryFactor = 0.226

// ceilingBaseline offsets the closed-form ceiling so a buyer with exactly
// the fixed costs covered still qualifies for an entry-level price.
const ceilingBaseline = 15000.0

// MaxAffordablePrice returns the price ceiling a buyer can reach with the
// given down payment, rounded to the nearest $1000. The function is total:
// a down payment far enough below FixedUpfrontCosts yields a non-positive
// ceiling, which callers must treat as "cannot evaluate budget fit".
func MaxAffordablePrice(downPayment float64) float64 {
	ceiling := (downPayment-FixedUpfrontCosts)/entryFactor + ceilingBaseline
	return math.Round(ceiling/1000) * 1000
}

// HasValidDownPayment reports whether the down payment clears the fixed
// upfront costs.
func HasValidDownPayment(amount float64) bool {
	return amount > FixedUpfrontCosts
}
