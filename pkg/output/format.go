// Package output provides utilities for formatting and displaying engine results.
package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/mathutil"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
)

// ClampRatioForDisplay bounds an RBC ratio to the presentation range. The
// calculation layer keeps the raw value; only rendered output is clamped.
func ClampRatioForDisplay(ratio float64) float64 {
	return mathutil.Clamp(ratio, constants.DisplayRatioFloor, constants.DisplayRatioCeiling)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(result engine.Result) {
	p := message.NewPrinter(language.English)

	fmt.Printf("--- Accident year development ---\n")
	fmt.Printf("Year | Earned Premium   | Incurred         | IBNR             | Loss Ratio | Source\n")
	fmt.Printf("____ | ________________ | ________________ | ________________ | __________ | ______\n")
	for _, summary := range result.Summaries {
		ibnr := "n/a"
		if summary.IBNRMeaningful {
			ibnr = p.Sprintf("$%.2f", summary.IBNR)
		}
		_, _ = p.Printf("%d | $%.2f | $%.2f | %s | %.1f%% | %s\n",
			summary.AccidentYear, summary.EarnedPremium, summary.Incurred,
			ibnr, summary.LossRatio, summary.LossRatioSource)
	}

	fmt.Printf("\n--- Selected development factors ---\n")
	fmt.Printf("Transition | Factor  | Source\n")
	fmt.Printf("__________ | ______  | ______\n")
	for _, factor := range result.Factors {
		fmt.Printf("%d-%d | %.4f | %s\n",
			factor.FromMonth, factor.ToMonth, factor.Selected, factor.Source)
	}

	fmt.Printf("\n--- Capital position (%s) ---\n", result.Capital.Strategy)
	_, _ = p.Printf("Total reserves:           $%.2f\n", result.Capital.TotalReserves)
	_, _ = p.Printf("Total IBNR:               $%.2f\n", result.Capital.TotalIBNR)
	_, _ = p.Printf("Trailing 12M premium:     $%.2f\n", result.Capital.Trailing12MEarnedPremium)
	_, _ = p.Printf("Authorized control level: $%.2f\n", result.Capital.AuthorizedControlLevel)
	_, _ = p.Printf("Policyholder surplus:     $%.2f\n", result.Capital.PolicyholderSurplus)
	fmt.Printf("RBC ratio:                %.1f%%\n", ClampRatioForDisplay(result.Capital.RBCRatio))
	fmt.Printf("Status:                   %s\n", result.Capital.Status)

	if len(result.Warnings) > 0 {
		fmt.Printf("\n--- Warnings ---\n")
		for _, warning := range result.Warnings {
			fmt.Printf("%s\n", warning)
		}
	}
}

// CsvFormat outputs accident-year summaries in comma-separated value format.
func CsvFormat(result engine.Result) {
	fmt.Printf(`"accident_year","earned_premium","net_paid","reserves","ibnr","incurred","loss_ratio","loss_ratio_source","ultimate_loss"`)
	fmt.Printf("\n")
	for _, summary := range result.Summaries {
		fmt.Printf(`"%d","%.2f","%.2f","%.2f",`, summary.AccidentYear,
			summary.EarnedPremium, summary.NetPaid, summary.Reserves)
		if summary.IBNRMeaningful {
			fmt.Printf(`"%.2f",`, summary.IBNR)
		} else {
			fmt.Printf(`"",`)
		}
		fmt.Printf(`"%.2f","%.2f","%s",`, summary.Incurred, summary.LossRatio, summary.LossRatioSource)
		if summary.HasUltimate {
			fmt.Printf(`"%.2f"`, summary.UltimateLoss)
		} else {
			fmt.Printf(`""`)
		}
		fmt.Printf("\n")
	}
}

// SummaryLine renders a one-line digest of a year suitable for logs.
func SummaryLine(summary projection.AccidentYearSummary) string {
	parts := []string{
		fmt.Sprintf("year=%d", summary.AccidentYear),
		fmt.Sprintf("loss_ratio=%.1f", summary.LossRatio),
		fmt.Sprintf("source=%s", summary.LossRatioSource),
	}
	if summary.IBNRMeaningful {
		parts = append(parts, fmt.Sprintf("ibnr=%.0f", summary.IBNR))
	}
	return strings.Join(parts, " ")
}
