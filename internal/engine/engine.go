// Package engine wires the development-triangle pipeline together: store,
// factor calculation, factor selection, CDF chaining, ultimate projection,
// and the capital position. A run is a pure function of its input snapshot.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/capital"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/triangle"
)

// Params configures an engine. Construction fails fast on out-of-range
// configuration; run-time data problems never fail.
type Params struct {
	Ladder  triangle.Ladder
	Capital capital.Parameters
}

// DefaultParams returns engine parameters with the standard ladder and
// default capital configuration.
func DefaultParams() Params {
	return Params{
		Ladder:  triangle.DefaultLadder(),
		Capital: capital.DefaultParameters(),
	}
}

// Snapshot is the immutable input to one run: raw triangle observations plus
// per-year aggregates from the external data-access collaborator.
type Snapshot struct {
	Points     []triangle.Point
	Aggregates []projection.YearAggregate
}

// Result is the complete, internally consistent output of one run.
type Result struct {
	Transitions []triangle.Transition
	Factors     []triangle.SelectedFactor
	CDFs        triangle.CDFSet
	Summaries   []projection.AccidentYearSummary
	Capital     capital.Position
	Warnings    []string
}

// Engine computes results from snapshots. It holds no mutable state between
// runs; each run builds a private store from its snapshot, so concurrent
// invocations never observe each other's intermediate state.
type Engine struct {
	ladder     triangle.Ladder
	calculator *triangle.Calculator
	selector   *triangle.Selector
	projector  *projection.Projector
	capital    *capital.Calculator
	logger     *zap.Logger
}

// New validates the parameters and constructs an engine.
// If logger is nil, it will use a no-op logger to prevent panics.
func New(params Params, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ladder, err := triangle.NewLadder(params.Ladder)
	if err != nil {
		return nil, fmt.Errorf("invalid development ladder: %w", err)
	}

	capitalCalc, err := capital.NewCalculator(params.Capital, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid capital parameters: %w", err)
	}

	return &Engine{
		ladder:     ladder,
		calculator: triangle.NewCalculator(logger),
		selector:   triangle.NewSelector(logger),
		projector:  projection.NewProjector(logger),
		capital:    capitalCalc,
		logger:     logger,
	}, nil
}

// Run executes the full pipeline on the snapshot. The snapshot is read-only;
// missing or degenerate data degrades through the documented fallbacks, so
// Run itself cannot fail.
func (e *Engine) Run(snapshot Snapshot) Result {
	store := triangle.NewStore()
	store.AddBatch(snapshot.Points)

	aggregates := make([]projection.YearAggregate, len(snapshot.Aggregates))
	copy(aggregates, snapshot.Aggregates)

	transitions := e.calculator.ATAFactors(store, e.ladder)
	factors := e.selector.Select(transitions)
	cdfs := triangle.ChainCDFs(factors, e.ladder)
	summaries := e.projector.Project(store, cdfs, e.ladder, aggregates)
	position := e.capital.Calculate(summaries)

	result := Result{
		Transitions: transitions,
		Factors:     factors,
		CDFs:        cdfs,
		Summaries:   summaries,
		Capital:     position,
	}

	if !cdfs.Monotonic {
		result.Warnings = append(result.Warnings,
			"cumulative development factors are not non-increasing; check triangle input for pathological development")
	}
	for _, f := range factors {
		if f.Source == triangle.SourceIdentity {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no qualifying accident years for transition %d->%d; assumed no development", f.FromMonth, f.ToMonth))
		}
	}

	e.logger.Info("engine run complete",
		zap.String("op", "engine.Run"),
		zap.Int("points", store.Len()),
		zap.Int("summaries", len(summaries)),
		zap.Float64("rbcRatio", position.RBCRatio),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result
}

// Ladder returns the engine's development-age ladder.
func (e *Engine) Ladder() triangle.Ladder {
	return e.ladder
}
