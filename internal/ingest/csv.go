// Package ingest parses CSV exports from the claims backing store into
// engine snapshots. Amounts arrive as currency-formatted strings, so parsing
// goes through a decimal type rather than direct float conversion.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/internal/engine"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

// Triangle CSV header fields, in order.
var triangleHeader = []string{"accident_year", "development_months", "metric_type", "amount"}

// Aggregate CSV header fields, in order. Each row is one record; the reader
// aggregates records per accident year.
var aggregateHeader = []string{"accident_year", "earned_premium", "net_paid_loss", "claim_reserves", "incurred", "loss_ratio"}

// Reader parses CSV data into snapshot inputs.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a new CSV reader with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadSnapshot parses triangle and aggregate CSV streams into one snapshot.
// Either stream may be nil when that source is absent.
func (r *Reader) ReadSnapshot(triangleCSV, aggregateCSV io.Reader) (engine.Snapshot, error) {
	var snapshot engine.Snapshot

	if triangleCSV != nil {
		points, err := r.ReadTrianglePoints(triangleCSV)
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("failed to parse triangle data: %w", err)
		}
		snapshot.Points = points
	}

	if aggregateCSV != nil {
		aggregates, err := r.ReadYearAggregates(aggregateCSV)
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("failed to parse aggregate data: %w", err)
		}
		snapshot.Aggregates = aggregates
	}

	return snapshot, nil
}

// ReadTrianglePoints parses triangle observations. Rows later in the file win
// over earlier duplicates of the same key, matching the store's policy.
func (r *Reader) ReadTrianglePoints(in io.Reader) ([]triangle.Point, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := checkHeader(header, triangleHeader); err != nil {
		return nil, err
	}

	var points []triangle.Point
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid accident year %q", line, record[0])
		}
		months, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid development months %q", line, record[1])
		}
		metric := triangle.MetricType(strings.TrimSpace(record[2]))
		if !metric.Valid() {
			return nil, fmt.Errorf("line %d: unknown metric type %q", line, record[2])
		}
		amount, present, err := ParseAmount(record[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !present {
			// A blank amount is no observation at all, never a zero.
			r.logger.Debug("skipping blank amount",
				zap.String("op", "ingest.ReadTrianglePoints"),
				zap.Int("line", line),
			)
			continue
		}

		points = append(points, triangle.Point{
			AccidentYear:      year,
			DevelopmentMonths: months,
			Metric:            metric,
			Amount:            amount,
		})
	}

	r.logger.Debug("parsed triangle points",
		zap.String("op", "ingest.ReadTrianglePoints"),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// ReadYearAggregates parses per-record rows and aggregates them per accident
// year: currency fields are summed, per-record loss ratios are collected, and
// HasPaidReserveData is set only when a paid or reserve field actually
// carried a value.
func (r *Reader) ReadYearAggregates(in io.Reader) ([]projection.YearAggregate, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := checkHeader(header, aggregateHeader); err != nil {
		return nil, err
	}

	byYear := make(map[int]*projection.YearAggregate)
	var order []int
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid accident year %q", line, record[0])
		}

		agg, ok := byYear[year]
		if !ok {
			agg = &projection.YearAggregate{AccidentYear: year}
			byYear[year] = agg
			order = append(order, year)
		}

		premium, present, err := ParseAmount(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if present {
			agg.EarnedPremium += premium
		}

		paid, paidPresent, err := ParseAmount(record[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if paidPresent {
			agg.NetPaid += paid
			agg.HasPaidReserveData = true
		}

		reserves, reservesPresent, err := ParseAmount(record[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if reservesPresent {
			agg.Reserves += reserves
			agg.HasPaidReserveData = true
		}

		incurred, incurredPresent, err := ParseAmount(record[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if incurredPresent {
			agg.Incurred += incurred
			agg.HasIncurred = true
		}

		ratio, ratioPresent, err := ParseAmount(record[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ratioPresent {
			agg.RecordLossRatios = append(agg.RecordLossRatios, ratio)
		}
	}

	aggregates := make([]projection.YearAggregate, 0, len(order))
	for _, year := range order {
		aggregates = append(aggregates, *byYear[year])
	}

	r.logger.Debug("parsed year aggregates",
		zap.String("op", "ingest.ReadYearAggregates"),
		zap.Int("years", len(aggregates)),
	)
	return aggregates, nil
}

// ParseAmount converts a currency- or percentage-formatted string into a
// float64. It accepts "$1,234.56", "(500.00)" for negatives, and "54.2%".
// A blank field is reported as not present, which downstream components must
// treat as "no data" rather than zero.
func ParseAmount(raw string) (float64, bool, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), true, nil
}

func checkHeader(got, expected []string) error {
	if len(got) != len(expected) {
		return fmt.Errorf("expected header %v, got %v", expected, got)
	}
	for i := range expected {
		if strings.TrimSpace(strings.ToLower(got[i])) != expected[i] {
			return fmt.Errorf("expected header column %d to be %q, got %q", i, expected[i], got[i])
		}
	}
	return nil
}
