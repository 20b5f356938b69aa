package output

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/capital"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func sampleResult() engine.Result {
	return engine.Result{
		Factors: []triangle.SelectedFactor{
			{FromMonth: 12, ToMonth: 24, Selected: 1.1, Source: triangle.SourceWeightedAverage},
		},
		Summaries: []projection.AccidentYearSummary{
			{
				AccidentYear:    2023,
				EarnedPremium:   5000000,
				NetPaid:         2000000,
				Reserves:        400000,
				IBNR:            150000,
				IBNRMeaningful:  true,
				Incurred:        2550000,
				LossRatio:       51.0,
				LossRatioSource: projection.LossRatioFromIncurred,
				UltimateLoss:    2550000,
				HasUltimate:     true,
			},
		},
		Capital: capital.Position{
			YearsIncluded:            1,
			TotalReserves:            400000,
			TotalIBNR:                150000,
			Trailing12MEarnedPremium: 5000000,
			AuthorizedControlLevel:   700000,
			PolicyholderSurplus:      420000,
			RBCRatio:                 60.0,
			Status:                   capital.StatusBelowMinimum,
			Strategy:                 capital.StrategyFullCovariance,
		},
		Warnings: []string{"transition 24-36: no observed factors, identity fallback applied"},
	}
}

func TestPrettyFormat(t *testing.T) {
	got := captureStdout(t, func() {
		PrettyFormat(sampleResult())
	})

	if !strings.Contains(got, "--- Accident year development ---") {
		t.Errorf("PrettyFormat missing development header")
	}
	if !strings.Contains(got, "$5,000,000.00") {
		t.Errorf("PrettyFormat missing grouped premium value, got:\n%s", got)
	}
	if !strings.Contains(got, "12-24 | 1.1000 | weighted_average") {
		t.Errorf("PrettyFormat missing factor row, got:\n%s", got)
	}
	if !strings.Contains(got, "Status:                   below_regulatory_minimum") {
		t.Errorf("PrettyFormat missing capital status, got:\n%s", got)
	}
	if !strings.Contains(got, "identity fallback applied") {
		t.Errorf("PrettyFormat missing warning section")
	}
}

func TestCsvFormat(t *testing.T) {
	got := captureStdout(t, func() {
		CsvFormat(sampleResult())
	})

	if !strings.Contains(got, `"accident_year","earned_premium"`) {
		t.Errorf("CsvFormat missing header row, got:\n%s", got)
	}
	if !strings.Contains(got, `"2023","5000000.00"`) {
		t.Errorf("CsvFormat missing data row, got:\n%s", got)
	}
	if !strings.Contains(got, `"incurred_over_premium"`) {
		t.Errorf("CsvFormat missing loss ratio source column")
	}
}

func TestCsvFormatOmitsMeaninglessIBNR(t *testing.T) {
	result := sampleResult()
	result.Summaries[0].IBNRMeaningful = false
	result.Summaries[0].HasUltimate = false

	got := captureStdout(t, func() {
		CsvFormat(result)
	})

	if !strings.Contains(got, `"2550000.00","51.00","incurred_over_premium",""`) {
		t.Errorf("CsvFormat should leave ultimate blank when not projected, got:\n%s", got)
	}
}

func TestClampRatioForDisplay(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"WithinRange", 250.0, 250.0},
		{"AboveCeiling", 173205.1, 500.0},
		{"BelowFloor", -10.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampRatioForDisplay(tt.ratio); got != tt.want {
				t.Errorf("ClampRatioForDisplay(%v) = %v, want %v", tt.ratio, got, tt.want)
			}
		})
	}
}
