package triangle

import (
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
)

// CDF is the cumulative development factor for one ladder rung: the
// multiplier from that development age to assumed ultimate.
type CDF struct {
	Month  int
	Factor float64
}

// CDFSet holds one cumulative development factor per ladder rung, ordered by
// development age ascending. The terminal rung's factor is always exactly 1.0.
type CDFSet struct {
	Values []CDF
	// Monotonic is true when factors are non-increasing as the development
	// age increases. Well-formed input always satisfies this; pathological
	// input is flagged here rather than rejected.
	Monotonic bool
}

// At returns the cumulative development factor for the given development age.
func (c CDFSet) At(month int) (float64, bool) {
	for _, v := range c.Values {
		if v.Month == month {
			return v.Factor, true
		}
	}
	return 0, false
}

// ChainCDFs converts selected age-to-age factors into cumulative development
// factors by a right-to-left running product over the ladder: the factor for
// rung i is the product of every selected factor from rung i through the last
// transition. An empty selection yields identity CDFs for every rung.
func ChainCDFs(selected []SelectedFactor, ladder Ladder) CDFSet {
	values := make([]CDF, len(ladder))

	product := constants.IdentityFactor
	for i := len(ladder) - 1; i >= 0; i-- {
		if i < len(ladder)-1 && i < len(selected) {
			product *= selected[i].Selected
		}
		values[i] = CDF{Month: ladder[i], Factor: product}
	}
	// The terminal rung is already at ultimate.
	values[len(values)-1].Factor = constants.IdentityFactor

	set := CDFSet{Values: values, Monotonic: true}
	for i := 0; i < len(values)-1; i++ {
		if values[i].Factor < values[i+1].Factor-constants.RelativeTolerance {
			set.Monotonic = false
			break
		}
	}
	return set
}
