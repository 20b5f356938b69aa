package projection

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

func testLadder(t *testing.T) triangle.Ladder {
	t.Helper()
	ladder, err := triangle.NewLadder([]int{12, 24, 36})
	if err != nil {
		t.Fatalf("NewLadder() error = %v", err)
	}
	return ladder
}

func identityCDFs(ladder triangle.Ladder) triangle.CDFSet {
	return triangle.ChainCDFs(nil, ladder)
}

func TestProjectorLossRatioPrecedence(t *testing.T) {
	projector := NewProjector(zap.NewNop())
	ladder := testLadder(t)

	store := triangle.NewStore()
	store.AddBatch([]triangle.Point{
		{AccidentYear: 2023, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 48},
		{AccidentYear: 2023, DevelopmentMonths: 24, Metric: triangle.MetricLossRatio, Amount: 52.8},
		{AccidentYear: 2022, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 61.5},
	})

	tests := []struct {
		name           string
		aggregate      YearAggregate
		expectedRatio  float64
		expectedSource LossRatioSource
	}{
		{
			name: "Tier 1: direct incurred over premium",
			aggregate: YearAggregate{
				AccidentYear: 2023, EarnedPremium: 1000, Incurred: 550, HasIncurred: true,
				HasPaidReserveData: true,
			},
			expectedRatio:  55.0,
			expectedSource: LossRatioFromIncurred,
		},
		{
			name:           "Tier 2: triangle latest when premium absent",
			aggregate:      YearAggregate{AccidentYear: 2023},
			expectedRatio:  52.8,
			expectedSource: LossRatioFromTriangle,
		},
		{
			name: "Tier 3: record average when no triangle data",
			aggregate: YearAggregate{
				AccidentYear:     2020,
				RecordLossRatios: []float64{40, 60},
			},
			expectedRatio:  50.0,
			expectedSource: LossRatioFromRecords,
		},
		{
			name:           "Tier 4: zero flagged no data",
			aggregate:      YearAggregate{AccidentYear: 2019},
			expectedRatio:  0,
			expectedSource: LossRatioNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries := projector.Project(store, identityCDFs(ladder), ladder, []YearAggregate{tt.aggregate})
			var summary *AccidentYearSummary
			for i := range summaries {
				if summaries[i].AccidentYear == tt.aggregate.AccidentYear {
					summary = &summaries[i]
				}
			}
			if summary == nil {
				t.Fatalf("no summary produced for year %d", tt.aggregate.AccidentYear)
			}
			if math.Abs(summary.LossRatio-tt.expectedRatio) > 1e-9 {
				t.Errorf("LossRatio = %v, expected %v", summary.LossRatio, tt.expectedRatio)
			}
			if summary.LossRatioSource != tt.expectedSource {
				t.Errorf("LossRatioSource = %s, expected %s", summary.LossRatioSource, tt.expectedSource)
			}
		})
	}
}

func TestProjectorTierOneRequiresPositiveFigures(t *testing.T) {
	projector := NewProjector(nil)
	ladder := testLadder(t)

	store := triangle.NewStore()
	store.Add(triangle.Point{AccidentYear: 2023, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 48})

	// Zero premium must not divide; tier 2 applies instead.
	agg := YearAggregate{AccidentYear: 2023, EarnedPremium: 0, Incurred: 550, HasIncurred: true}
	summaries := projector.Project(store, identityCDFs(ladder), ladder, []YearAggregate{agg})
	if summaries[0].LossRatioSource != LossRatioFromTriangle {
		t.Errorf("LossRatioSource = %s, expected triangle fallback on zero premium", summaries[0].LossRatioSource)
	}
}

func TestProjectorIBNR(t *testing.T) {
	projector := NewProjector(nil)
	ladder := testLadder(t)
	store := triangle.NewStore()

	tests := []struct {
		name               string
		aggregate          YearAggregate
		expectedIBNR       float64
		expectedMeaningful bool
	}{
		{
			name: "IBNR from direct incurred",
			aggregate: YearAggregate{
				AccidentYear: 2023, NetPaid: 300, Reserves: 100,
				Incurred: 550, HasIncurred: true, HasPaidReserveData: true,
			},
			expectedIBNR:       150,
			expectedMeaningful: true,
		},
		{
			name: "IBNR floored at zero",
			aggregate: YearAggregate{
				AccidentYear: 2023, NetPaid: 500, Reserves: 200,
				Incurred: 550, HasIncurred: true, HasPaidReserveData: true,
			},
			expectedIBNR:       0,
			expectedMeaningful: true,
		},
		{
			name: "IBNR not meaningful without paid/reserve data",
			aggregate: YearAggregate{
				AccidentYear: 2023, Incurred: 550, HasIncurred: true,
			},
			expectedIBNR:       0,
			expectedMeaningful: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries := projector.Project(store, identityCDFs(ladder), ladder, []YearAggregate{tt.aggregate})
			summary := summaries[0]
			if summary.IBNR != tt.expectedIBNR {
				t.Errorf("IBNR = %v, expected %v", summary.IBNR, tt.expectedIBNR)
			}
			if summary.IBNRMeaningful != tt.expectedMeaningful {
				t.Errorf("IBNRMeaningful = %v, expected %v", summary.IBNRMeaningful, tt.expectedMeaningful)
			}
		})
	}
}

func TestProjectorDerivedIncurredUsesBulkIBNR(t *testing.T) {
	projector := NewProjector(nil)
	ladder := testLadder(t)

	store := triangle.NewStore()
	store.Add(triangle.Point{AccidentYear: 2023, DevelopmentMonths: 12, Metric: triangle.MetricBulkIBNR, Amount: 75})

	agg := YearAggregate{AccidentYear: 2023, NetPaid: 300, Reserves: 100, HasPaidReserveData: true}
	summaries := projector.Project(store, identityCDFs(ladder), ladder, []YearAggregate{agg})
	summary := summaries[0]

	if summary.Incurred != 475 {
		t.Errorf("Incurred = %v, expected derived 300+100+75", summary.Incurred)
	}
	if summary.IBNR != 75 {
		t.Errorf("IBNR = %v, expected 75", summary.IBNR)
	}
}

func TestProjectorUltimateFromCDF(t *testing.T) {
	projector := NewProjector(nil)
	ladder := testLadder(t)

	store := triangle.NewStore()
	store.AddBatch([]triangle.Point{
		{AccidentYear: 2024, DevelopmentMonths: 12, Metric: triangle.MetricNetPaidLoss, Amount: 1000},
		{AccidentYear: 2024, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 50},
	})

	cdfs := triangle.ChainCDFs([]triangle.SelectedFactor{
		{FromMonth: 12, ToMonth: 24, Selected: 1.10},
		{FromMonth: 24, ToMonth: 36, Selected: 1.05},
	}, ladder)

	// No paid/reserve aggregate: ultimate comes from the latest paid
	// observation developed by its rung's CDF.
	summaries := projector.Project(store, cdfs, ladder, nil)
	summary := summaries[0]
	if !summary.HasUltimate {
		t.Fatalf("HasUltimate = false, expected CDF-developed ultimate")
	}
	expected := 1000 * 1.10 * 1.05
	if math.Abs(summary.UltimateLoss-expected) > 1e-9 {
		t.Errorf("UltimateLoss = %v, expected %v", summary.UltimateLoss, expected)
	}
	if !summary.HasUltimateLossRatio {
		t.Fatalf("HasUltimateLossRatio = false")
	}
	if math.Abs(summary.UltimateLossRatio-50*1.10*1.05) > 1e-9 {
		t.Errorf("UltimateLossRatio = %v, expected %v", summary.UltimateLossRatio, 50*1.10*1.05)
	}
}

func TestProjectorUltimateFromDirectAggregation(t *testing.T) {
	projector := NewProjector(nil)
	ladder := testLadder(t)
	store := triangle.NewStore()

	agg := YearAggregate{
		AccidentYear: 2022, NetPaid: 400, Reserves: 100,
		Incurred: 600, HasIncurred: true, HasPaidReserveData: true,
	}
	summaries := projector.Project(store, identityCDFs(ladder), ladder, []YearAggregate{agg})
	summary := summaries[0]
	if !summary.HasUltimate || summary.UltimateLoss != 600 {
		t.Errorf("UltimateLoss = (%v, %v), expected direct aggregation 600", summary.UltimateLoss, summary.HasUltimate)
	}
}

func TestProjectorCoversYearsFromBothSources(t *testing.T) {
	projector := NewProjector(nil)
	ladder := testLadder(t)

	store := triangle.NewStore()
	store.Add(triangle.Point{AccidentYear: 2021, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 48})

	aggregates := []YearAggregate{{AccidentYear: 2023, EarnedPremium: 100}}

	summaries := projector.Project(store, identityCDFs(ladder), ladder, aggregates)
	if len(summaries) != 2 {
		t.Fatalf("Project() returned %d summaries, expected 2 (union of sources)", len(summaries))
	}
	if summaries[0].AccidentYear != 2021 || summaries[1].AccidentYear != 2023 {
		t.Errorf("summaries out of order: %d, %d", summaries[0].AccidentYear, summaries[1].AccidentYear)
	}
}
