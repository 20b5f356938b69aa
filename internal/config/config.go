// Package config defines the data structures related to configuration and
// includes functions for loading, parsing, and validating the config.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/capital"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

// Configuration holds all configuration for the capital engine.
type Configuration struct {
	Engine  EngineConfig  `yaml:"engine,omitempty"`
	Capital CapitalConfig `yaml:"capital,omitempty"`
	Data    DataConfig    `yaml:"data,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
}

// EngineConfig holds the triangle pipeline parameters.
type EngineConfig struct {
	// Ladder is the standard development-age ladder in months.
	Ladder []int `yaml:"ladder,omitempty"`
}

// CapitalConfig holds the risk-charge coefficients, surplus formula, and
// threshold parameters.
type CapitalConfig struct {
	Strategy         string            `yaml:"strategy,omitempty"`
	RecentYears      int               `yaml:"recentYears,omitempty"`
	EquityAllocation float64           `yaml:"equityAllocation,omitempty"`
	RiskCharges      RiskChargesConfig `yaml:"riskCharges,omitempty"`
	Surplus          SurplusConfig     `yaml:"surplus,omitempty"`
	Thresholds       ThresholdsConfig  `yaml:"thresholds,omitempty"`
}

// RiskChargesConfig holds the R0..R5 coefficients.
type RiskChargesConfig struct {
	Affiliate float64 `yaml:"affiliate"`
	Asset     float64 `yaml:"asset,omitempty"`
	Equity    float64 `yaml:"equity,omitempty"`
	Credit    float64 `yaml:"credit,omitempty"`
	Reserve   float64 `yaml:"reserve,omitempty"`
	Premium   float64 `yaml:"premium,omitempty"`
}

// SurplusConfig holds the policyholder-surplus formula coefficients.
type SurplusConfig struct {
	ReserveFactor float64 `yaml:"reserveFactor,omitempty"`
	PremiumFactor float64 `yaml:"premiumFactor,omitempty"`
}

// ThresholdsConfig holds the RBC ratio bands in percent.
type ThresholdsConfig struct {
	Regulatory float64 `yaml:"regulatory,omitempty"`
	Target     float64 `yaml:"target,omitempty"`
	Strong     float64 `yaml:"strong,omitempty"`
}

// DataConfig points at the input data sources.
type DataConfig struct {
	TriangleFile  string `yaml:"triangleFile,omitempty"`
	AggregateFile string `yaml:"aggregateFile,omitempty"`
	DatabasePath  string `yaml:"databasePath,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.applyDefaults()
	return &configuration, nil
}

// DefaultConfiguration returns a configuration populated entirely from
// defaults, used when no config file is supplied.
func DefaultConfiguration() *Configuration {
	conf := &Configuration{}
	conf.applyDefaults()
	return conf
}

// applyDefaults fills unset fields with the documented defaults. Values that
// are present but out of range are left alone so EngineParams can reject them.
func (c *Configuration) applyDefaults() {
	if len(c.Engine.Ladder) == 0 {
		c.Engine.Ladder = append([]int(nil), constants.DefaultLadder...)
	}
	if c.Capital.Strategy == "" {
		c.Capital.Strategy = string(capital.StrategyFullCovariance)
	}
	if c.Capital.RecentYears == 0 {
		c.Capital.RecentYears = constants.DefaultRecentYears
	}
	if c.Capital.EquityAllocation == 0 {
		c.Capital.EquityAllocation = constants.DefaultEquityAllocation
	}
	rc := &c.Capital.RiskCharges
	if rc.Asset == 0 {
		rc.Asset = constants.DefaultAssetCharge
	}
	if rc.Equity == 0 {
		rc.Equity = constants.DefaultEquityCharge
	}
	if rc.Credit == 0 {
		rc.Credit = constants.DefaultCreditCharge
	}
	if rc.Reserve == 0 {
		rc.Reserve = constants.DefaultReserveCharge
	}
	if rc.Premium == 0 {
		rc.Premium = constants.DefaultPremiumCharge
	}
	if c.Capital.Surplus.ReserveFactor == 0 {
		c.Capital.Surplus.ReserveFactor = constants.DefaultSurplusReserveFactor
	}
	if c.Capital.Surplus.PremiumFactor == 0 {
		c.Capital.Surplus.PremiumFactor = constants.DefaultSurplusPremiumFactor
	}
	if c.Capital.Thresholds.Regulatory == 0 {
		c.Capital.Thresholds.Regulatory = constants.RegulatoryMinimumRBC
	}
	if c.Capital.Thresholds.Target == 0 {
		c.Capital.Thresholds.Target = constants.TargetRBC
	}
	if c.Capital.Thresholds.Strong == 0 {
		c.Capital.Thresholds.Strong = constants.StrongRBC
	}
}

// EngineParams converts the configuration into engine parameters.
// Out-of-range values surface here as hard errors; configuration misuse
// fails fast rather than being silently tolerated.
func (c *Configuration) EngineParams() (engine.Params, error) {
	ladder, err := triangle.NewLadder(c.Engine.Ladder)
	if err != nil {
		return engine.Params{}, err
	}

	params := engine.Params{
		Ladder: ladder,
		Capital: capital.Parameters{
			Coefficients: capital.Coefficients{
				AffiliateCharge:      c.Capital.RiskCharges.Affiliate,
				AssetCharge:          c.Capital.RiskCharges.Asset,
				EquityCharge:         c.Capital.RiskCharges.Equity,
				CreditCharge:         c.Capital.RiskCharges.Credit,
				ReserveCharge:        c.Capital.RiskCharges.Reserve,
				PremiumCharge:        c.Capital.RiskCharges.Premium,
				SurplusReserveFactor: c.Capital.Surplus.ReserveFactor,
				SurplusPremiumFactor: c.Capital.Surplus.PremiumFactor,
			},
			Thresholds: capital.Thresholds{
				Regulatory: c.Capital.Thresholds.Regulatory,
				Target:     c.Capital.Thresholds.Target,
				Strong:     c.Capital.Thresholds.Strong,
			},
			EquityAllocation: c.Capital.EquityAllocation,
			RecentYears:      c.Capital.RecentYears,
			Strategy:         capital.Strategy(c.Capital.Strategy),
		},
	}
	return params, nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Hard configuration errors are reported by EngineParams;
// warnings cover conditions that are legal but probably unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.Engine.Ladder) > 0 && c.Engine.Ladder[0] != constants.MonthsPerYear {
		warnings = append(warnings, fmt.Sprintf(
			"ladder starts at %d months rather than %d; first-year observations will not align with annual statements",
			c.Engine.Ladder[0], constants.MonthsPerYear))
	}
	if c.Capital.RecentYears > 10 {
		warnings = append(warnings, fmt.Sprintf(
			"capital position includes %d accident years; older years dilute the trailing premium estimate",
			c.Capital.RecentYears))
	}
	if c.Capital.Strategy == string(capital.StrategyCombinedRatio) {
		warnings = append(warnings,
			"combined_ratio strategy is a simplified heuristic; the full covariance model is the default for regulatory reporting")
	}
	if c.Data.TriangleFile == "" && c.Data.DatabasePath == "" {
		warnings = append(warnings, "no triangle data source configured; engine runs will be empty")
	}
	return warnings
}
