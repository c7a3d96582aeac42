// Package routestate holds the mutable, in-progress route representation
// shared by the constructor and local search: an ordered visit sequence for
// one visitor plus the static facts (start location, capabilities,
// collapsed availability span) the schedule evaluator needs. Neither
// constructor nor local search mutates a Route in place during evaluation —
// candidates are built as copies, exactly the "parallel fold over a
// read-only snapshot" the spec's concurrency model (spec.md §5) requires.
package routestate

import (
	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/schedule"
)

// Route is one visitor's in-progress, ordered visit sequence.
type Route struct {
	VisitorID    string
	Start        domain.Location
	Capabilities []string
	Span         schedule.Span
	// Available is false when the availability provider returned None for
	// this visitor on the planning date (spec.md §4.2): the route stays
	// empty and the visitor never counts toward "some capable visitor
	// exists" when ranking unassigned reasons, except for a visit pinned to
	// it, which is reported NoFeasibleWindow.
	Available bool
	Visits    []domain.Visit
}

// New returns an empty route for a visitor over its collapsed availability
// span.
func New(visitorID string, start domain.Location, capabilities []string, span schedule.Span, available bool) *Route {
	return &Route{
		VisitorID:    visitorID,
		Start:        start,
		Capabilities: capabilities,
		Span:         span,
		Available:    available,
	}
}

// Len returns the number of visits currently on the route.
func (r *Route) Len() int {
	return len(r.Visits)
}

// WithInserted returns a new Route with v inserted at position pos
// (0 <= pos <= Len()). The receiver is left unmodified.
func (r *Route) WithInserted(v domain.Visit, pos int) *Route {
	visits := make([]domain.Visit, 0, len(r.Visits)+1)
	visits = append(visits, r.Visits[:pos]...)
	visits = append(visits, v)
	visits = append(visits, r.Visits[pos:]...)
	return r.withVisits(visits)
}

// WithRemoved returns a new Route with the visit at position pos removed,
// along with the removed visit. The receiver is left unmodified.
func (r *Route) WithRemoved(pos int) (*Route, domain.Visit) {
	removed := r.Visits[pos]
	visits := make([]domain.Visit, 0, len(r.Visits)-1)
	visits = append(visits, r.Visits[:pos]...)
	visits = append(visits, r.Visits[pos+1:]...)
	return r.withVisits(visits), removed
}

// WithReversed returns a new Route with the [i, j] sub-sequence reversed
// in place (2-opt's move), 0 <= i <= j < Len().
func (r *Route) WithReversed(i, j int) *Route {
	visits := make([]domain.Visit, len(r.Visits))
	copy(visits, r.Visits)
	for a, b := i, j; a < b; a, b = a+1, b-1 {
		visits[a], visits[b] = visits[b], visits[a]
	}
	return r.withVisits(visits)
}

func (r *Route) withVisits(visits []domain.Visit) *Route {
	return &Route{
		VisitorID:    r.VisitorID,
		Start:        r.Start,
		Capabilities: r.Capabilities,
		Span:         r.Span,
		Available:    r.Available,
		Visits:       visits,
	}
}

// HasCapabilities reports whether this visitor covers the required
// capability set (spec.md GLOSSARY: visitor capability set is a superset).
func (r *Route) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	offered := make(map[string]struct{}, len(r.Capabilities))
	for _, c := range r.Capabilities {
		offered[c] = struct{}{}
	}
	for _, need := range required {
		if _, ok := offered[need]; !ok {
			return false
		}
	}
	return true
}

// Evaluate runs the schedule evaluator over the route's current visit
// sequence.
func (r *Route) Evaluate(evaluator schedule.Evaluator, travel schedule.TravelFunc, opts domain.SolveOptions) (schedule.Result, bool) {
	return evaluator.Evaluate(r.VisitorID, r.Start, r.Span, r.Visits, travel, opts)
}

// ToDomainRoute converts a feasible evaluation Result into the domain.Route
// the orchestrator emits.
func (r *Route) ToDomainRoute(result schedule.Result) *domain.Route {
	return &domain.Route{
		VisitorID:  r.VisitorID,
		Visits:     result.Visits,
		TravelTime: result.TravelTime,
		Cost:       result.Cost,
	}
}

// IndexOf returns the position of visitID in the route, or -1.
func (r *Route) IndexOf(visitID string) int {
	for i, v := range r.Visits {
		if v.ID == visitID {
			return i
		}
	}
	return -1
}
