package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/capital"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	path := writeConfig(t, `
engine:
  ladder: [12, 24, 36]
capital:
  strategy: combined_ratio
  recentYears: 3
  riskCharges:
    asset: 0.03
  surplus:
    reserveFactor: 0.6
logging:
  level: debug
  format: console
output:
  format: csv
data:
  triangleFile: triangle.csv
`)

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if len(conf.Engine.Ladder) != 3 {
		t.Errorf("Ladder = %v, expected 3 rungs", conf.Engine.Ladder)
	}
	if conf.Capital.Strategy != "combined_ratio" {
		t.Errorf("Strategy = %s, expected combined_ratio", conf.Capital.Strategy)
	}
	if conf.Capital.RecentYears != 3 {
		t.Errorf("RecentYears = %d, expected 3", conf.Capital.RecentYears)
	}
	if conf.Capital.RiskCharges.Asset != 0.03 {
		t.Errorf("Asset = %v, expected override 0.03", conf.Capital.RiskCharges.Asset)
	}
	// Unset coefficients pick up defaults.
	if conf.Capital.RiskCharges.Reserve != 0.11 {
		t.Errorf("Reserve = %v, expected default 0.11", conf.Capital.RiskCharges.Reserve)
	}
	if conf.Capital.Surplus.ReserveFactor != 0.6 {
		t.Errorf("SurplusReserveFactor = %v, expected 0.6", conf.Capital.Surplus.ReserveFactor)
	}
	if conf.Capital.Surplus.PremiumFactor != 0.04 {
		t.Errorf("SurplusPremiumFactor = %v, expected default 0.04", conf.Capital.Surplus.PremiumFactor)
	}
	if conf.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, expected debug", conf.Logging.Level)
	}
	if conf.Output.Format != "csv" {
		t.Errorf("Output.Format = %s, expected csv", conf.Output.Format)
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Errorf("LoadConfiguration() expected error for missing file")
	}
}

func TestDefaultConfiguration(t *testing.T) {
	conf := DefaultConfiguration()

	if len(conf.Engine.Ladder) != 8 || conf.Engine.Ladder[0] != 12 {
		t.Errorf("default ladder = %v", conf.Engine.Ladder)
	}
	if conf.Capital.Strategy != string(capital.StrategyFullCovariance) {
		t.Errorf("default strategy = %s", conf.Capital.Strategy)
	}
	if conf.Capital.RecentYears != 5 {
		t.Errorf("default recentYears = %d", conf.Capital.RecentYears)
	}

	params, err := conf.EngineParams()
	if err != nil {
		t.Fatalf("EngineParams() error = %v for defaults", err)
	}
	if params.Capital.Coefficients.PremiumCharge != 0.09 {
		t.Errorf("default premium charge = %v", params.Capital.Coefficients.PremiumCharge)
	}
}

func TestEngineParamsFailsFast(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{
			name:   "Single rung ladder",
			mutate: func(c *Configuration) { c.Engine.Ladder = []int{12} },
		},
		{
			name:   "Descending ladder",
			mutate: func(c *Configuration) { c.Engine.Ladder = []int{24, 12} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := DefaultConfiguration()
			tt.mutate(conf)
			if _, err := conf.EngineParams(); err == nil {
				t.Errorf("EngineParams() expected error")
			}
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	conf := DefaultConfiguration()
	conf.Capital.Strategy = string(capital.StrategyCombinedRatio)
	conf.Capital.RecentYears = 15
	conf.Engine.Ladder = []int{6, 12, 24}

	warnings := conf.ValidateConfiguration()
	if len(warnings) < 3 {
		t.Fatalf("ValidateConfiguration() = %d warnings, expected at least 3: %v", len(warnings), warnings)
	}

	var sawStrategy bool
	for _, w := range warnings {
		if strings.Contains(w, "combined_ratio") {
			sawStrategy = true
		}
	}
	if !sawStrategy {
		t.Errorf("expected a combined_ratio heuristic warning, got %v", warnings)
	}
}

func TestValidateConfigurationQuietOnDefaults(t *testing.T) {
	conf := DefaultConfiguration()
	conf.Data.TriangleFile = "triangle.csv"

	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("ValidateConfiguration() = %v, expected no warnings", warnings)
	}
}
