// Package triage scores open claims with weighted points so adjusters can
// work the riskiest files first. Accident-year summaries from the projection
// layer feed in as one signal among several; the scorer never blocks on a
// year that has no summary.
package triage

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/RMendoza92-afk/finance-ops-command-sub002/pkg/projection"
)

// Severity buckets a claim's total score into an action tier.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityElevated Severity = "elevated"
	SeverityRoutine  Severity = "routine"
)

// Score cutoffs for the severity tiers.
const (
	highThreshold     = 60
	elevatedThreshold = 30
)

// Claim is a single open claim as reported by the claims system.
type Claim struct {
	ClaimNumber  string
	AccidentYear int
	OpenAmount   float64
	ReportedAt   time.Time
	HasAttorney  bool
	InLitigation bool
}

// Assessment is the scored result for one claim. Reasons list every rule
// that contributed points, in the order the rules fired.
type Assessment struct {
	ClaimNumber  string
	AccidentYear int
	Points       int
	Severity     Severity
	Reasons      []string
}

// Scorer applies the point rules against a set of claims.
type Scorer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewScorer constructs a Scorer. If logger is nil, it will use a no-op
// logger to prevent panics.
func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger, now: time.Now}
}

// Assess scores every claim and returns assessments sorted by points
// descending, ties broken by claim number for a stable ordering. Summaries
// are keyed by accident year; a claim whose year has no summary simply
// skips the year-level rules.
func (s *Scorer) Assess(claims []Claim, summaries []projection.AccidentYearSummary) []Assessment {
	byYear := make(map[int]projection.AccidentYearSummary, len(summaries))
	for _, summary := range summaries {
		byYear[summary.AccidentYear] = summary
	}

	assessments := make([]Assessment, 0, len(claims))
	for _, claim := range claims {
		assessment := s.assessOne(claim, byYear)
		assessments = append(assessments, assessment)
	}

	sort.Slice(assessments, func(i, j int) bool {
		if assessments[i].Points != assessments[j].Points {
			return assessments[i].Points > assessments[j].Points
		}
		return assessments[i].ClaimNumber < assessments[j].ClaimNumber
	})

	s.logger.Info("scored claims",
		zap.String("op", "triage.Assess"),
		zap.Int("claims", len(claims)),
	)
	return assessments
}

func (s *Scorer) assessOne(claim Claim, byYear map[int]projection.AccidentYearSummary) Assessment {
	assessment := Assessment{
		ClaimNumber:  claim.ClaimNumber,
		AccidentYear: claim.AccidentYear,
	}

	add := func(points int, reason string) {
		assessment.Points += points
		assessment.Reasons = append(assessment.Reasons, reason)
	}

	switch {
	case claim.OpenAmount >= 250000:
		add(30, fmt.Sprintf("open amount %.0f at or above 250000", claim.OpenAmount))
	case claim.OpenAmount >= 100000:
		add(20, fmt.Sprintf("open amount %.0f at or above 100000", claim.OpenAmount))
	case claim.OpenAmount >= 25000:
		add(10, fmt.Sprintf("open amount %.0f at or above 25000", claim.OpenAmount))
	}

	if !claim.ReportedAt.IsZero() {
		ageDays := int(s.now().Sub(claim.ReportedAt).Hours() / 24)
		switch {
		case ageDays > 730:
			add(20, fmt.Sprintf("open %d days, beyond two years", ageDays))
		case ageDays > 365:
			add(10, fmt.Sprintf("open %d days, beyond one year", ageDays))
		}
	}

	if claim.HasAttorney {
		add(15, "attorney represented")
	}
	if claim.InLitigation {
		add(25, "in active litigation")
	}

	if summary, ok := byYear[claim.AccidentYear]; ok {
		if summary.LossRatio > 100 {
			add(10, fmt.Sprintf("accident year %d loss ratio %.1f exceeds 100", summary.AccidentYear, summary.LossRatio))
		}
		if !summary.HasPaidReserveData {
			add(5, fmt.Sprintf("accident year %d lacks paid and reserve data", summary.AccidentYear))
		}
	}

	switch {
	case assessment.Points >= highThreshold:
		assessment.Severity = SeverityHigh
	case assessment.Points >= elevatedThreshold:
		assessment.Severity = SeverityElevated
	default:
		assessment.Severity = SeverityRoutine
	}

	return assessment
}
