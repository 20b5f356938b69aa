// Package constants provides shared constants for the capital engine.
package constants

// Development triangle constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// MinLadderRungs is the minimum number of development ages a ladder must have
	MinLadderRungs = 2

	// IdentityFactor is the development factor representing "no development assumed"
	IdentityFactor = 1.0

	// MinQualifyingYears is the minimum number of accident years with triangle
	// data required before age-to-age factors are computed
	MinQualifyingYears = 2

	// RelativeTolerance is the relative tolerance for comparing chained
	// development factors
	RelativeTolerance = 1e-9
)

// DefaultLadder lists the standard development ages in months.
var DefaultLadder = []int{12, 24, 36, 48, 60, 72, 84, 96}

// Risk-based capital defaults. These are configurable coefficients; the values
// here are only the defaults applied when a configuration omits them.
const (
	// DefaultAffiliateCharge is the R0 charge in the absence of affiliate-asset data
	DefaultAffiliateCharge = 0.0

	// DefaultAssetCharge is the R1 charge applied to estimated invested assets
	DefaultAssetCharge = 0.02

	// DefaultEquityCharge is the R2 charge applied to the equity sub-allocation
	DefaultEquityCharge = 0.15

	// DefaultCreditCharge is the R3 charge applied to total reserves
	DefaultCreditCharge = 0.01

	// DefaultReserveCharge is the R4 charge applied to reserves plus IBNR
	DefaultReserveCharge = 0.11

	// DefaultPremiumCharge is the R5 charge applied to trailing earned premium
	DefaultPremiumCharge = 0.09

	// DefaultEquityAllocation is the share of invested assets treated as equity
	DefaultEquityAllocation = 0.25

	// DefaultSurplusReserveFactor scales total reserves in the surplus estimate
	DefaultSurplusReserveFactor = 0.55

	// DefaultSurplusPremiumFactor scales trailing premium in the surplus estimate
	DefaultSurplusPremiumFactor = 0.04

	// DefaultRecentYears is how many of the most recent accident years feed the
	// capital position
	DefaultRecentYears = 5
)

// RBC ratio thresholds (percent)
const (
	// RegulatoryMinimumRBC is the regulatory minimum RBC ratio
	RegulatoryMinimumRBC = 200.0

	// TargetRBC is the lower bound of the target band
	TargetRBC = 250.0

	// StrongRBC is the lower bound of the strong band
	StrongRBC = 300.0
)

// Display constants. Clamping applies at the presentation boundary only; the
// engine never clamps the raw ratio.
const (
	// DisplayRatioFloor is the lowest RBC ratio shown by presentation layers
	DisplayRatioFloor = 0.0

	// DisplayRatioCeiling is the highest RBC ratio shown by presentation layers
	DisplayRatioCeiling = 500.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for CSV data (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024
)

// Validation constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
