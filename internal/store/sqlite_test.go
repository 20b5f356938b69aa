package store

import (
	"path/filepath"
	"testing"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	s := openTestStore(t)

	snapshot := engine.Snapshot{
		Points: []triangle.Point{
			{AccidentYear: 2023, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 48.0},
			{AccidentYear: 2023, DevelopmentMonths: 24, Metric: triangle.MetricLossRatio, Amount: 52.8},
			{AccidentYear: 2024, DevelopmentMonths: 12, Metric: triangle.MetricNetPaidLoss, Amount: 1500000},
		},
		Aggregates: []projection.YearAggregate{
			{
				AccidentYear:       2023,
				EarnedPremium:      5000000,
				NetPaid:            2000000,
				Reserves:           400000,
				HasPaidReserveData: true,
				RecordLossRatios:   []float64{48.0, 52.5},
			},
			{
				AccidentYear:  2024,
				EarnedPremium: 5500000,
				Incurred:      3000000,
				HasIncurred:   true,
			},
		},
	}

	if err := s.ReplaceSnapshot(snapshot); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if len(loaded.Points) != 3 {
		t.Fatalf("loaded %d points, want 3", len(loaded.Points))
	}
	if loaded.Points[0].Metric != triangle.MetricLossRatio || loaded.Points[0].Amount != 48.0 {
		t.Errorf("first point = %+v, want 2023/12 loss_ratio 48.0", loaded.Points[0])
	}

	if len(loaded.Aggregates) != 2 {
		t.Fatalf("loaded %d aggregates, want 2", len(loaded.Aggregates))
	}
	agg2023 := loaded.Aggregates[0]
	if !agg2023.HasPaidReserveData || agg2023.HasIncurred {
		t.Errorf("2023 flags = paid:%v incurred:%v, want paid:true incurred:false",
			agg2023.HasPaidReserveData, agg2023.HasIncurred)
	}
	if len(agg2023.RecordLossRatios) != 2 || agg2023.RecordLossRatios[1] != 52.5 {
		t.Errorf("2023 record ratios = %v, want [48 52.5]", agg2023.RecordLossRatios)
	}
	if !loaded.Aggregates[1].HasIncurred || loaded.Aggregates[1].Incurred != 3000000 {
		t.Errorf("2024 aggregate = %+v, want incurred 3000000", loaded.Aggregates[1])
	}
}

func TestUpsertPointsLastWins(t *testing.T) {
	s := openTestStore(t)

	first := []triangle.Point{
		{AccidentYear: 2024, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 50.0},
	}
	if err := s.UpsertPoints(first); err != nil {
		t.Fatalf("UpsertPoints() first batch error = %v", err)
	}

	second := []triangle.Point{
		{AccidentYear: 2024, DevelopmentMonths: 12, Metric: triangle.MetricLossRatio, Amount: 55.0},
	}
	if err := s.UpsertPoints(second); err != nil {
		t.Fatalf("UpsertPoints() second batch error = %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded.Points) != 1 {
		t.Fatalf("loaded %d points, want 1", len(loaded.Points))
	}
	if loaded.Points[0].Amount != 55.0 {
		t.Errorf("amount = %v, want 55.0 (most recent ingest wins)", loaded.Points[0].Amount)
	}
}

func TestReplaceSnapshotClearsPrevious(t *testing.T) {
	s := openTestStore(t)

	if err := s.ReplaceSnapshot(engine.Snapshot{
		Points: []triangle.Point{
			{AccidentYear: 2020, DevelopmentMonths: 12, Metric: triangle.MetricEarnedPremium, Amount: 100},
		},
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() initial error = %v", err)
	}

	if err := s.ReplaceSnapshot(engine.Snapshot{
		Points: []triangle.Point{
			{AccidentYear: 2021, DevelopmentMonths: 12, Metric: triangle.MetricEarnedPremium, Amount: 200},
		},
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() second error = %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded.Points) != 1 || loaded.Points[0].AccidentYear != 2021 {
		t.Errorf("loaded points = %+v, want single 2021 point", loaded.Points)
	}
}

func TestLoadEmptySnapshot(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(loaded.Points) != 0 || len(loaded.Aggregates) != 0 {
		t.Errorf("empty store returned %d points, %d aggregates", len(loaded.Points), len(loaded.Aggregates))
	}
}
