// Package schedule implements the feasibility kernel (spec.md §4.3): given
// an ordered visit sequence for one visitor, compute per-visit start/end
// times and cost, or report infeasibility. This is the only package that
// knows the forward-pass algorithm; construct and localsearch call it
// through the Evaluator interface so a future gap-aware evaluator (see
// SPEC_FULL.md "Multiple availability windows") can be swapped in without
// touching either caller.
package schedule

import (
	"math"

	"github.com/fieldops/routesolver/internal/domain"
)

// TravelFunc returns the travel time in seconds between two points. Callers
// build this from a matrix.Matrix plus a location->index lookup so the
// evaluator itself never depends on the matrix package.
type TravelFunc func(from, to domain.Location) float64

// Span is a visitor's collapsed availability window for the planning date,
// seconds-from-midnight (spec.md §4.2's outer-bound collapse).
type Span struct {
	Start int
	End   int
}

// Result is a feasible schedule for one ordered visit sequence.
type Result struct {
	Visits     []domain.ScheduledVisit
	TravelTime float64
	Cost       float64
}

// Evaluator computes a Result for an ordered route, or reports
// infeasibility. The default implementation is the single forward pass from
// spec.md §4.3.
type Evaluator interface {
	Evaluate(visitorID string, start domain.Location, span Span, visits []domain.Visit, travel TravelFunc, opts domain.SolveOptions) (Result, bool)
}

// ForwardPassEvaluator is the spec.md §4.3 reference implementation: one
// monotone forward pass, O(n) per call, deterministic, tie-broken by
// insertion order (the caller controls that by calling Evaluate once per
// candidate order).
type ForwardPassEvaluator struct{}

// NewForwardPassEvaluator returns the default evaluator.
func NewForwardPassEvaluator() *ForwardPassEvaluator {
	return &ForwardPassEvaluator{}
}

// Evaluate runs the forward pass described in spec.md §4.3 and computes the
// cost from §4.6. It never iterates to a fixed point — each visit's
// earliest feasible start is a monotone function of the previous visit's
// end time, so a single pass suffices.
func (ForwardPassEvaluator) Evaluate(visitorID string, start domain.Location, span Span, visits []domain.Visit, travel TravelFunc, opts domain.SolveOptions) (Result, bool) {
	t := span.Start
	loc := start

	scheduled := make([]domain.ScheduledVisit, 0, len(visits))
	var travelTime float64
	var targetDeviationCost float64
	var reassignmentCost float64

	for _, v := range visits {
		legSeconds := travel(loc, v.Location)
		arrival := float64(t) + legSeconds
		travelTime += legSeconds

		var earliest float64
		if v.CommittedWindow != nil {
			earliest = math.Max(arrival, float64(v.CommittedWindow.Start))
			// The whole visit, not only its start, must fit in the window.
			if earliest+float64(v.DurationSeconds) > float64(v.CommittedWindow.End) {
				return Result{}, false
			}
		} else {
			earliest = arrival
		}

		startSeconds := earliest
		endSeconds := startSeconds + float64(v.DurationSeconds)
		if endSeconds > float64(span.End) {
			return Result{}, false
		}

		scheduled = append(scheduled, domain.ScheduledVisit{
			VisitID: v.ID,
			Start:   int(startSeconds),
			End:     int(endSeconds),
		})

		if v.TargetTimeSeconds != nil {
			deviation := math.Abs(startSeconds - float64(*v.TargetTimeSeconds))
			targetDeviationCost += deviation * float64(opts.TargetTimeWeight)
		}

		if v.CurrentVisitorID != "" && v.CurrentVisitorID != visitorID {
			reassignmentCost += float64(opts.ReassignmentPenalty)
		}

		t = int(endSeconds)
		loc = v.Location
	}

	cost := travelTime + targetDeviationCost + reassignmentCost

	return Result{
		Visits:     scheduled,
		TravelTime: travelTime,
		Cost:       cost,
	}, true
}
