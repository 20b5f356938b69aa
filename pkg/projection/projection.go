// Package projection derives per-accident-year summaries from triangle
// observations, raw aggregates, and cumulative development factors.
package projection

import (
	"sort"

	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/mathutil"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

// YearAggregate carries the raw per-accident-year figures sourced by an
// external data-access collaborator. The projector treats it as read-only.
type YearAggregate struct {
	AccidentYear  int
	EarnedPremium float64
	NetPaid       float64
	Reserves      float64
	// Incurred is a direct figure from the backing store; it takes
	// precedence over derived incurred whenever HasIncurred is set.
	Incurred    float64
	HasIncurred bool
	// HasPaidReserveData distinguishes "zero because truly zero" from "zero
	// because no data arrived yet".
	HasPaidReserveData bool
	// RecordLossRatios are per-record loss-ratio observations from a
	// separate granular source.
	RecordLossRatios []float64
}

// LossRatioSource records which precedence tier produced a year's loss ratio.
type LossRatioSource string

// Loss-ratio tiers, in strict precedence order.
const (
	LossRatioFromIncurred LossRatioSource = "incurred_over_premium"
	LossRatioFromTriangle LossRatioSource = "triangle_latest"
	LossRatioFromRecords  LossRatioSource = "record_average"
	LossRatioNoData       LossRatioSource = "no_data"
)

// AccidentYearSummary is the derived view of one accident year.
type AccidentYearSummary struct {
	AccidentYear       int
	EarnedPremium      float64
	NetPaid            float64
	Reserves           float64
	IBNR               float64
	IBNRMeaningful     bool
	Incurred           float64
	LossRatio          float64
	LossRatioSource    LossRatioSource
	HasPaidReserveData bool

	// LatestDevelopmentMonths is the highest ladder rung carrying any
	// triangle data for the year, zero when the year has none.
	LatestDevelopmentMonths int

	// UltimateLoss is the projected final loss once fully developed:
	// the direct paid+reserve+IBNR aggregation when paid/reserve data
	// exists, otherwise the latest paid observation developed by its CDF.
	UltimateLoss float64
	HasUltimate  bool

	// UltimateLossRatio develops the latest triangle loss ratio to
	// ultimate via its rung's CDF. Diagnostic; the reported LossRatio
	// follows the precedence tiers as observed.
	UltimateLossRatio    float64
	HasUltimateLossRatio bool
}

// Projector turns a data snapshot into accident-year summaries. It never
// raises for missing or degenerate data; every branch degrades to a defined
// fallback, and callers distinguish "computed" from "defaulted" through
// HasPaidReserveData and LossRatioSource.
type Projector struct {
	logger *zap.Logger
}

// NewProjector creates a new projector with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewProjector(logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{logger: logger}
}

// Project produces one summary per accident year present in either the
// triangle store or the aggregates, ordered by accident year ascending.
func (p *Projector) Project(store *triangle.Store, cdfs triangle.CDFSet, ladder triangle.Ladder, aggregates []YearAggregate) []AccidentYearSummary {
	byYear := make(map[int]YearAggregate, len(aggregates))
	years := make(map[int]struct{})
	for _, agg := range aggregates {
		byYear[agg.AccidentYear] = agg
		years[agg.AccidentYear] = struct{}{}
	}
	for _, year := range store.Years("") {
		years[year] = struct{}{}
	}

	ordered := make([]int, 0, len(years))
	for year := range years {
		ordered = append(ordered, year)
	}
	sort.Ints(ordered)

	summaries := make([]AccidentYearSummary, 0, len(ordered))
	for _, year := range ordered {
		summaries = append(summaries, p.projectYear(store, cdfs, ladder, year, byYear[year]))
	}
	return summaries
}

func (p *Projector) projectYear(store *triangle.Store, cdfs triangle.CDFSet, ladder triangle.Ladder, year int, agg YearAggregate) AccidentYearSummary {
	summary := AccidentYearSummary{
		AccidentYear:       year,
		EarnedPremium:      agg.EarnedPremium,
		NetPaid:            agg.NetPaid,
		Reserves:           agg.Reserves,
		HasPaidReserveData: agg.HasPaidReserveData,
	}

	if months, _, ok := latestAnyMetric(store, year, ladder); ok {
		summary.LatestDevelopmentMonths = months
	}

	// Incurred: a direct figure always takes precedence over the derived
	// netPaid + reserves + bulk IBNR.
	bulkIBNR := 0.0
	if _, amount, ok := store.LatestAmount(year, triangle.MetricBulkIBNR, ladder); ok {
		bulkIBNR = amount
	}
	if agg.HasIncurred {
		summary.Incurred = agg.Incurred
	} else {
		summary.Incurred = agg.NetPaid + agg.Reserves + bulkIBNR
	}

	if agg.HasPaidReserveData {
		summary.IBNR = mathutil.Max(0, summary.Incurred-agg.NetPaid-agg.Reserves)
		summary.IBNRMeaningful = true
	}

	p.assignLossRatio(&summary, store, ladder, agg)
	p.assignUltimate(&summary, store, cdfs, ladder, agg)

	p.logger.Debug("projected accident year",
		zap.String("op", "projection.Project"),
		zap.Int("accidentYear", year),
		zap.Float64("lossRatio", summary.LossRatio),
		zap.String("lossRatioSource", string(summary.LossRatioSource)),
	)
	return summary
}

// assignLossRatio applies the strict precedence order: incurred over premium,
// then the latest triangle loss_ratio, then the mean of per-record ratios,
// then zero flagged as no data.
func (p *Projector) assignLossRatio(summary *AccidentYearSummary, store *triangle.Store, ladder triangle.Ladder, agg YearAggregate) {
	if summary.Incurred > 0 && agg.EarnedPremium > 0 {
		summary.LossRatio = mathutil.CalculatePercentage(summary.Incurred, agg.EarnedPremium)
		summary.LossRatioSource = LossRatioFromIncurred
		return
	}

	if _, ratio, ok := store.LatestAmount(summary.AccidentYear, triangle.MetricLossRatio, ladder); ok {
		summary.LossRatio = ratio
		summary.LossRatioSource = LossRatioFromTriangle
		return
	}

	if len(agg.RecordLossRatios) > 0 {
		sum := 0.0
		for _, r := range agg.RecordLossRatios {
			sum += r
		}
		summary.LossRatio = sum / float64(len(agg.RecordLossRatios))
		summary.LossRatioSource = LossRatioFromRecords
		return
	}

	summary.LossRatio = 0
	summary.LossRatioSource = LossRatioNoData
}

func (p *Projector) assignUltimate(summary *AccidentYearSummary, store *triangle.Store, cdfs triangle.CDFSet, ladder triangle.Ladder, agg YearAggregate) {
	if agg.HasPaidReserveData {
		summary.UltimateLoss = summary.Incurred
		summary.HasUltimate = true
	} else if months, paid, ok := latestPaid(store, summary.AccidentYear, ladder); ok && paid > 0 {
		if cdf, present := cdfs.At(months); present {
			summary.UltimateLoss = paid * cdf
			summary.HasUltimate = true
		}
	}

	if months, ratio, ok := store.LatestAmount(summary.AccidentYear, triangle.MetricLossRatio, ladder); ok && ratio > 0 {
		if cdf, present := cdfs.At(months); present {
			summary.UltimateLossRatio = ratio * cdf
			summary.HasUltimateLossRatio = true
		}
	}
}

// latestPaid prefers net paid loss and falls back to gross paid.
func latestPaid(store *triangle.Store, year int, ladder triangle.Ladder) (int, float64, bool) {
	if months, paid, ok := store.LatestAmount(year, triangle.MetricNetPaidLoss, ladder); ok {
		return months, paid, true
	}
	return store.LatestAmount(year, triangle.MetricGrossPaid, ladder)
}

// latestAnyMetric finds the highest development age with data for the year
// across every metric type.
func latestAnyMetric(store *triangle.Store, year int, ladder triangle.Ladder) (int, float64, bool) {
	var bestMonths int
	var bestAmount float64
	found := false
	for _, metric := range []triangle.MetricType{
		triangle.MetricLossRatio,
		triangle.MetricNetPaidLoss,
		triangle.MetricGrossPaid,
		triangle.MetricClaimReserves,
		triangle.MetricBulkIBNR,
		triangle.MetricEarnedPremium,
	} {
		if months, amount, ok := store.LatestAmount(year, metric, ladder); ok && (!found || months > bestMonths) {
			bestMonths = months
			bestAmount = amount
			found = true
		}
	}
	return bestMonths, bestAmount, found
}
