// Package triangle implements the loss development triangle: raw observation
// storage, age-to-age factor calculation, factor selection, and cumulative
// development factor chaining.
package triangle

import (
	"fmt"
	"sort"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/constants"
)

// MetricType identifies the kind of amount a triangle observation carries.
type MetricType string

// The closed set of supported metric types.
const (
	MetricEarnedPremium MetricType = "earned_premium"
	MetricNetPaidLoss   MetricType = "net_paid_loss"
	MetricClaimReserves MetricType = "claim_reserves"
	MetricBulkIBNR      MetricType = "bulk_ibnr"
	MetricLossRatio     MetricType = "loss_ratio"
	MetricGrossPaid     MetricType = "gross_paid"
)

// Valid reports whether the metric type is one of the supported set.
func (m MetricType) Valid() bool {
	switch m {
	case MetricEarnedPremium, MetricNetPaidLoss, MetricClaimReserves,
		MetricBulkIBNR, MetricLossRatio, MetricGrossPaid:
		return true
	}
	return false
}

// Point is one observed amount at a given accident year and development age.
type Point struct {
	AccidentYear      int
	DevelopmentMonths int
	Metric            MetricType
	Amount            float64
}

type pointKey struct {
	year   int
	months int
	metric MetricType
}

// Store holds triangle observations keyed by (accident year, development
// months, metric type). At most one amount exists per key; adding a duplicate
// key overwrites the previous amount, so the most recently ingested
// observation wins.
type Store struct {
	points map[pointKey]float64
}

// NewStore creates an empty observation store.
func NewStore() *Store {
	return &Store{points: make(map[pointKey]float64)}
}

// Add records one observation. A later Add for the same
// (year, months, metric) key replaces the earlier amount.
func (s *Store) Add(p Point) {
	s.points[pointKey{year: p.AccidentYear, months: p.DevelopmentMonths, metric: p.Metric}] = p.Amount
}

// AddBatch records a batch of observations in order, so later duplicates in
// the batch win over earlier ones.
func (s *Store) AddBatch(points []Point) {
	for _, p := range points {
		s.Add(p)
	}
}

// Amount looks up the observation for the given key. The second return value
// is false when no observation exists; callers must treat absence as "no
// data", never as zero.
func (s *Store) Amount(year, months int, metric MetricType) (float64, bool) {
	amount, ok := s.points[pointKey{year: year, months: months, metric: metric}]
	return amount, ok
}

// LatestAmount returns the observation at the highest ladder rung for which
// the given year and metric have data, along with that rung's development age.
func (s *Store) LatestAmount(year int, metric MetricType, ladder Ladder) (months int, amount float64, ok bool) {
	for i := len(ladder) - 1; i >= 0; i-- {
		if v, present := s.Amount(year, ladder[i], metric); present {
			return ladder[i], v, true
		}
	}
	return 0, 0, false
}

// Years returns the sorted accident years that have at least one observation
// of the given metric. A nil metric filter ("") matches any metric.
func (s *Store) Years(metric MetricType) []int {
	seen := make(map[int]struct{})
	for key := range s.points {
		if metric != "" && key.metric != metric {
			continue
		}
		seen[key.year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Len returns the number of stored observations.
func (s *Store) Len() int {
	return len(s.points)
}

// Clone returns an independent copy of the store so that concurrent
// computations never share mutable state.
func (s *Store) Clone() *Store {
	clone := &Store{points: make(map[pointKey]float64, len(s.points))}
	for key, amount := range s.points {
		clone.points[key] = amount
	}
	return clone
}

// Ladder is the ordered list of standard development ages in months.
type Ladder []int

// NewLadder validates and returns a development-age ladder. A ladder must
// have at least two rungs, all positive and strictly increasing; anything
// else is a configuration error and fails fast.
func NewLadder(ages []int) (Ladder, error) {
	if len(ages) < constants.MinLadderRungs {
		return nil, fmt.Errorf("ladder must have at least %d rungs, got %d", constants.MinLadderRungs, len(ages))
	}
	for i, age := range ages {
		if age <= 0 {
			return nil, fmt.Errorf("ladder rung %d must be positive, got %d", i, age)
		}
		if i > 0 && age <= ages[i-1] {
			return nil, fmt.Errorf("ladder rungs must be strictly increasing, got %d after %d", age, ages[i-1])
		}
	}
	ladder := make(Ladder, len(ages))
	copy(ladder, ages)
	return ladder, nil
}

// DefaultLadder returns the standard development-age ladder.
func DefaultLadder() Ladder {
	ladder := make(Ladder, len(constants.DefaultLadder))
	copy(ladder, constants.DefaultLadder)
	return ladder
}

// Transitions returns the number of adjacent rung pairs on the ladder.
func (l Ladder) Transitions() int {
	if len(l) < constants.MinLadderRungs {
		return 0
	}
	return len(l) - 1
}
