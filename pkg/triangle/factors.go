package triangle

import (
	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
)

// ATAFactor is a single observed age-to-age link ratio for one accident year.
// When either side of the ratio is missing, zero, or negative, the factor is
// recorded with OK=false; absence propagates as "no observation", never as
// zero.
type ATAFactor struct {
	FromMonth    int
	ToMonth      int
	AccidentYear int
	Value        float64
	// Weight is the "from" volume used by the weighted average; zero when
	// the factor is not observable.
	Weight float64
	OK     bool
}

// Transition groups the per-accident-year factors for one ladder transition.
type Transition struct {
	FromMonth int
	ToMonth   int
	Factors   []ATAFactor
}

// Calculator derives age-to-age factors from triangle observations.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator creates a new factor calculator with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger}
}

// ATAFactors produces the per-accident-year link ratios for every adjacent
// pair of ladder rungs, computed from the loss_ratio metric. Missing or
// degenerate observations are recorded as unobservable factors rather than
// raising errors. When fewer than two accident years carry any loss_ratio
// data the result is explicitly empty.
func (c *Calculator) ATAFactors(store *Store, ladder Ladder) []Transition {
	years := store.Years(MetricLossRatio)
	if len(years) < constants.MinQualifyingYears {
		c.logger.Debug("insufficient accident years for factor calculation",
			zap.String("op", "triangle.ATAFactors"),
			zap.Int("years", len(years)),
		)
		return []Transition{}
	}

	transitions := make([]Transition, 0, ladder.Transitions())
	for i := 0; i < ladder.Transitions(); i++ {
		tr := Transition{
			FromMonth: ladder[i],
			ToMonth:   ladder[i+1],
			Factors:   make([]ATAFactor, 0, len(years)),
		}
		for _, year := range years {
			tr.Factors = append(tr.Factors, c.factorFor(store, year, ladder[i], ladder[i+1]))
		}
		transitions = append(transitions, tr)
	}
	return transitions
}

func (c *Calculator) factorFor(store *Store, year, from, to int) ATAFactor {
	factor := ATAFactor{FromMonth: from, ToMonth: to, AccidentYear: year}

	fromAmount, fromOK := store.Amount(year, from, MetricLossRatio)
	toAmount, toOK := store.Amount(year, to, MetricLossRatio)

	// Zero or negative denominators would produce spurious infinite or zero
	// link ratios, so they are treated the same as missing data.
	if !fromOK || !toOK || fromAmount <= 0 || toAmount <= 0 {
		c.logger.Debug("no observable factor",
			zap.String("op", "triangle.ATAFactors"),
			zap.Int("accidentYear", year),
			zap.Int("fromMonth", from),
			zap.Int("toMonth", to),
		)
		return factor
	}

	factor.Value = toAmount / fromAmount
	factor.Weight = fromAmount
	factor.OK = true
	return factor
}

// FactorSource records which fallback tier produced a selected factor.
type FactorSource string

// Selection tiers, in precedence order.
const (
	SourceWeightedAverage FactorSource = "weighted_average"
	SourceSimpleAverage   FactorSource = "simple_average"
	SourceIdentity        FactorSource = "identity"
)

// SelectedFactor is the single representative factor chosen for one ladder
// transition. Both averages are carried even when a fallback is used so a
// caller can audit why a given value was chosen.
type SelectedFactor struct {
	FromMonth       int
	ToMonth         int
	SimpleAverage   float64
	SimpleDefined   bool
	WeightedAverage float64
	WeightedDefined bool
	Selected        float64
	Source          FactorSource
	ObservedYears   int
}

// Selector collapses per-year factor lists into one selected factor per
// transition.
type Selector struct {
	logger *zap.Logger
}

// NewSelector creates a new factor selector with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewSelector(logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{logger: logger}
}

// Select applies the three-level fallback to every transition: the weighted
// average when defined, else the simple average, else the identity factor
// 1.0. The precedence is a hard invariant. A transition with zero qualifying
// years selects 1.0 with both averages undefined.
func (s *Selector) Select(transitions []Transition) []SelectedFactor {
	selected := make([]SelectedFactor, 0, len(transitions))
	for _, tr := range transitions {
		selected = append(selected, s.selectOne(tr))
	}
	return selected
}

func (s *Selector) selectOne(tr Transition) SelectedFactor {
	sf := SelectedFactor{FromMonth: tr.FromMonth, ToMonth: tr.ToMonth}

	sum := 0.0
	weightedSum := 0.0
	totalWeight := 0.0
	for _, f := range tr.Factors {
		if !f.OK {
			continue
		}
		sf.ObservedYears++
		sum += f.Value
		weightedSum += f.Value * f.Weight
		totalWeight += f.Weight
	}

	if sf.ObservedYears > 0 {
		sf.SimpleAverage = sum / float64(sf.ObservedYears)
		sf.SimpleDefined = true
	}
	if totalWeight > 0 {
		sf.WeightedAverage = weightedSum / totalWeight
		sf.WeightedDefined = true
	}

	switch {
	case sf.WeightedDefined:
		sf.Selected = sf.WeightedAverage
		sf.Source = SourceWeightedAverage
	case sf.SimpleDefined:
		sf.Selected = sf.SimpleAverage
		sf.Source = SourceSimpleAverage
	default:
		sf.Selected = constants.IdentityFactor
		sf.Source = SourceIdentity
		s.logger.Debug("no qualifying years for transition, assuming no development",
			zap.String("op", "triangle.Select"),
			zap.Int("fromMonth", tr.FromMonth),
			zap.Int("toMonth", tr.ToMonth),
		)
	}
	return sf
}
