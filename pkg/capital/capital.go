// Package capital computes the regulatory capital position from
// accident-year summaries using a covariance-weighted risk-charge formula.
package capital

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/mathutil"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
)

// Strategy names one of the RBC formulas found in the source dashboards.
// Which formula is authoritative is ambiguous there: some revisions use the
// full covariance model, others a flat combined-ratio heuristic. Both are
// exposed and the choice is configuration, not a guess.
type Strategy string

// The available capital-adequacy strategies.
const (
	StrategyFullCovariance Strategy = "full_covariance"
	StrategyCombinedRatio  Strategy = "combined_ratio"
)

// Valid reports whether the strategy is a known one.
func (s Strategy) Valid() bool {
	return s == StrategyFullCovariance || s == StrategyCombinedRatio
}

// Coefficients are the named risk-charge and surplus-formula parameters.
// These are configurable, not hardcoded constants.
type Coefficients struct {
	// AffiliateCharge is R0, fixed at 0 in the absence of affiliate-asset data.
	AffiliateCharge float64
	// AssetCharge is R1, applied to estimated invested assets.
	AssetCharge float64
	// EquityCharge is R2, applied to the equity sub-allocation of invested assets.
	EquityCharge float64
	// CreditCharge is R3, applied to total reserves.
	CreditCharge float64
	// ReserveCharge is R4, applied to reserves plus IBNR.
	ReserveCharge float64
	// PremiumCharge is R5, applied to trailing earned premium.
	PremiumCharge float64
	// SurplusReserveFactor and SurplusPremiumFactor form the linear
	// policyholder-surplus estimate.
	SurplusReserveFactor float64
	SurplusPremiumFactor float64
}

// DefaultCoefficients returns the default risk-charge coefficients.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		AffiliateCharge:      constants.DefaultAffiliateCharge,
		AssetCharge:          constants.DefaultAssetCharge,
		EquityCharge:         constants.DefaultEquityCharge,
		CreditCharge:         constants.DefaultCreditCharge,
		ReserveCharge:        constants.DefaultReserveCharge,
		PremiumCharge:        constants.DefaultPremiumCharge,
		SurplusReserveFactor: constants.DefaultSurplusReserveFactor,
		SurplusPremiumFactor: constants.DefaultSurplusPremiumFactor,
	}
}

// Thresholds are the RBC ratio bands, in percent, evaluated against the raw
// unclamped ratio.
type Thresholds struct {
	Regulatory float64
	Target     float64
	Strong     float64
}

// DefaultThresholds returns the regulatory/target/strong RBC thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Regulatory: constants.RegulatoryMinimumRBC,
		Target:     constants.TargetRBC,
		Strong:     constants.StrongRBC,
	}
}

// Parameters configures a capital calculator.
type Parameters struct {
	Coefficients Coefficients
	Thresholds   Thresholds
	// EquityAllocation is the share of invested assets treated as equity.
	EquityAllocation float64
	// RecentYears is how many of the most recent accident years to include.
	RecentYears int
	Strategy    Strategy
}

// DefaultParameters returns the default calculator configuration.
func DefaultParameters() Parameters {
	return Parameters{
		Coefficients:     DefaultCoefficients(),
		Thresholds:       DefaultThresholds(),
		EquityAllocation: constants.DefaultEquityAllocation,
		RecentYears:      constants.DefaultRecentYears,
		Strategy:         StrategyFullCovariance,
	}
}

// Status is the capital-adequacy band of an RBC ratio.
type Status string

// Capital adequacy bands.
const (
	StatusBelowMinimum Status = "below_regulatory_minimum"
	StatusAdequate     Status = "adequate"
	StatusTarget       Status = "target"
	StatusStrong       Status = "strong"
)

// RiskCharges holds the individual R0..R5 components.
type RiskCharges struct {
	R0 float64
	R1 float64
	R2 float64
	R3 float64
	R4 float64
	R5 float64
}

// Position is the process-scope capital aggregate, recomputed from all
// accident-year summaries on every run.
type Position struct {
	YearsIncluded            int
	TotalReserves            float64
	TotalIBNR                float64
	Trailing12MEarnedPremium float64
	PremiumWeightedLossRatio float64
	Charges                  RiskCharges
	CovarianceRBC            float64
	AuthorizedControlLevel   float64
	PolicyholderSurplus      float64
	// RBCRatio is the raw, never-clamped ratio; clamping happens only at
	// the presentation boundary.
	RBCRatio float64
	Status   Status
	Strategy Strategy
}

// Calculator derives capital positions. Construction fails fast on
// out-of-range configuration; calculation itself never errors.
type Calculator struct {
	params Parameters
	logger *zap.Logger
}

// NewCalculator validates the parameters and returns a calculator.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewCalculator(params Parameters, logger *zap.Logger) (*Calculator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateParameters(params); err != nil {
		return nil, err
	}
	return &Calculator{params: params, logger: logger}, nil
}

func validateParameters(params Parameters) error {
	c := params.Coefficients
	if c.AffiliateCharge < 0 {
		return fmt.Errorf("affiliate charge must not be negative, got %v", c.AffiliateCharge)
	}
	positive := map[string]float64{
		"asset charge":           c.AssetCharge,
		"equity charge":          c.EquityCharge,
		"credit charge":          c.CreditCharge,
		"reserve charge":         c.ReserveCharge,
		"premium charge":         c.PremiumCharge,
		"surplus reserve factor": c.SurplusReserveFactor,
		"surplus premium factor": c.SurplusPremiumFactor,
	}
	// Deterministic error ordering for tests and logs.
	names := make([]string, 0, len(positive))
	for name := range positive {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if positive[name] <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, positive[name])
		}
	}
	if params.EquityAllocation < 0 || params.EquityAllocation > 1 {
		return fmt.Errorf("equity allocation must be within [0, 1], got %v", params.EquityAllocation)
	}
	if params.RecentYears < 1 {
		return fmt.Errorf("recent years must be at least 1, got %d", params.RecentYears)
	}
	th := params.Thresholds
	if th.Regulatory <= 0 || th.Target <= th.Regulatory || th.Strong <= th.Target {
		return fmt.Errorf("thresholds must be positive and ascending, got %v/%v/%v", th.Regulatory, th.Target, th.Strong)
	}
	if !params.Strategy.Valid() {
		return fmt.Errorf("unknown capital adequacy strategy %q", params.Strategy)
	}
	return nil
}

// Calculate aggregates the most recent accident years into one capital
// position. The input is read-only; the result is complete and internally
// consistent for any input, including an empty one.
func (c *Calculator) Calculate(summaries []projection.AccidentYearSummary) Position {
	included := recentYears(summaries, c.params.RecentYears)

	pos := Position{
		YearsIncluded: len(included),
		Strategy:      c.params.Strategy,
	}

	totalPremium := 0.0
	weightedRatio := 0.0
	for _, s := range included {
		pos.TotalReserves += s.Reserves
		pos.TotalIBNR += s.IBNR
		totalPremium += s.EarnedPremium
		weightedRatio += s.LossRatio * s.EarnedPremium
	}
	if totalPremium > 0 {
		pos.PremiumWeightedLossRatio = weightedRatio / totalPremium
	}
	pos.Trailing12MEarnedPremium = trailingPremium(included)

	coeff := c.params.Coefficients
	investedAssets := pos.TotalReserves + pos.TotalIBNR
	pos.Charges = RiskCharges{
		R0: coeff.AffiliateCharge,
		R1: coeff.AssetCharge * investedAssets,
		R2: coeff.EquityCharge * c.params.EquityAllocation * investedAssets,
		R3: coeff.CreditCharge * pos.TotalReserves,
		R4: coeff.ReserveCharge * (pos.TotalReserves + pos.TotalIBNR),
		R5: coeff.PremiumCharge * pos.Trailing12MEarnedPremium,
	}
	pos.CovarianceRBC = mathutil.EuclideanNorm(
		pos.Charges.R1, pos.Charges.R2, pos.Charges.R3, pos.Charges.R4, pos.Charges.R5,
	)

	switch c.params.Strategy {
	case StrategyCombinedRatio:
		// Flat heuristic from the simplified dashboard revisions: premium
		// charge scaled by the combined loss experience plus a reserve
		// charge, no covariance adjustment.
		experience := pos.PremiumWeightedLossRatio / constants.PercentageMultiplier
		if experience <= 0 {
			experience = 1.0
		}
		pos.AuthorizedControlLevel = pos.Charges.R0 +
			coeff.PremiumCharge*pos.Trailing12MEarnedPremium*experience +
			coeff.ReserveCharge*(pos.TotalReserves+pos.TotalIBNR)
	default:
		pos.AuthorizedControlLevel = pos.Charges.R0 + pos.CovarianceRBC
	}

	pos.PolicyholderSurplus = coeff.SurplusReserveFactor*pos.TotalReserves +
		coeff.SurplusPremiumFactor*pos.Trailing12MEarnedPremium

	if pos.AuthorizedControlLevel > 0 {
		pos.RBCRatio = mathutil.CalculatePercentage(pos.PolicyholderSurplus, pos.AuthorizedControlLevel)
	}
	pos.Status = c.status(pos.RBCRatio)

	c.logger.Debug("calculated capital position",
		zap.String("op", "capital.Calculate"),
		zap.String("strategy", string(pos.Strategy)),
		zap.Float64("rbcRatio", pos.RBCRatio),
		zap.String("status", string(pos.Status)),
	)
	return pos
}

func (c *Calculator) status(ratio float64) Status {
	th := c.params.Thresholds
	switch {
	case ratio >= th.Strong:
		return StatusStrong
	case ratio >= th.Target:
		return StatusTarget
	case ratio >= th.Regulatory:
		return StatusAdequate
	default:
		return StatusBelowMinimum
	}
}

// recentYears returns up to n summaries with the highest accident years,
// ordered ascending, without mutating the input slice.
func recentYears(summaries []projection.AccidentYearSummary, n int) []projection.AccidentYearSummary {
	sorted := make([]projection.AccidentYearSummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].AccidentYear < sorted[j].AccidentYear
	})
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

// trailingPremium annualizes the most recent accident year's earned premium
// when its latest development observation is under a year; earlier years are
// assumed complete.
func trailingPremium(included []projection.AccidentYearSummary) float64 {
	if len(included) == 0 {
		return 0
	}
	latest := included[len(included)-1]
	premium := latest.EarnedPremium
	if months := latest.LatestDevelopmentMonths; months > 0 && months < constants.MonthsPerYear {
		premium = premium * constants.MonthsPerYear / float64(months)
	}
	return premium
}
