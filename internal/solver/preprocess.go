package solver

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/fieldops/routesolver/internal/availability"
	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/matrix"
	"github.com/fieldops/routesolver/internal/routestate"
	"github.com/fieldops/routesolver/internal/schedule"
)

// validateVisits checks the structural invariants Solve requires before any
// routing runs (spec.md §7: "malformed input... fails the entire call").
// Every violation is collected so the caller sees the full picture in one
// Fault rather than one field at a time.
func validateVisits(visits []domain.Visit) error {
	var errs error
	for _, v := range visits {
		if v.DurationSeconds <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("visit %s: duration must be positive, got %d", v.ID, v.DurationSeconds))
		}
		if v.Location.Lat < -90 || v.Location.Lat > 90 {
			errs = multierr.Append(errs, fmt.Errorf("visit %s: latitude %f out of range", v.ID, v.Location.Lat))
		}
		if v.Location.Lng < -180 || v.Location.Lng > 180 {
			errs = multierr.Append(errs, fmt.Errorf("visit %s: longitude %f out of range", v.ID, v.Location.Lng))
		}
		if v.CommittedWindow != nil && v.CommittedWindow.Start > v.CommittedWindow.End {
			errs = multierr.Append(errs, fmt.Errorf("visit %s: committed window start after end", v.ID))
		}
	}
	return errs
}

// sameDate compares a pin's required date against the planning date,
// ignoring time-of-day and location (spec.md §3's Pin semantics operate on
// calendar dates).
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// classifyResult is the outcome of splitting the input visit list into the
// visits that enter routing and the ones already known to be unassigned.
type classifyResult struct {
	routable   []domain.Visit
	unassigned []domain.Unassigned
}

// classifyVisits applies spec.md §3's pin semantics ahead of construction:
// a Date/VisitorAndDate pin for a different date removes the visit from
// this plan entirely (ReasonWrongDate), and a Visitor/VisitorAndDate pin
// naming a visitor absent from the input removes it too
// (ReasonMissingPinnedVisitor). Everything else proceeds to routing.
func classifyVisits(visits []domain.Visit, visitorIDs map[string]struct{}, date time.Time) classifyResult {
	var result classifyResult

	for _, v := range visits {
		if v.Pin.HasDate() && !sameDate(v.Pin.Date, date) {
			result.unassigned = append(result.unassigned, domain.Unassigned{VisitID: v.ID, Reason: domain.ReasonWrongDate})
			continue
		}
		if v.Pin.HasVisitor() {
			if _, ok := visitorIDs[v.Pin.VisitorID]; !ok {
				result.unassigned = append(result.unassigned, domain.Unassigned{VisitID: v.ID, Reason: domain.ReasonMissingPinnedVisitor})
				continue
			}
		}
		result.routable = append(result.routable, v)
	}

	return result
}

// splitPinned partitions routable visits into those pinned to a specific
// visitor (seeded first, in input order, per spec.md §4.4) and the
// remainder the constructor places freely.
func splitPinned(visits []domain.Visit) (pinned, free []domain.Visit) {
	pinned = lo.Filter(visits, func(v domain.Visit, _ int) bool { return v.Pin.HasVisitor() })
	free = lo.Filter(visits, func(v domain.Visit, _ int) bool { return !v.Pin.HasVisitor() })
	return pinned, free
}

// buildRoutes creates one empty routestate.Route per visitor, collapsing
// each visitor's availability windows to the single outer-bound span
// (spec.md §4.2/§9) the evaluator consumes. A visitor with no windows for
// the date gets an unavailable route that never accepts visits. A provider
// error aborts the whole call (spec.md §7) rather than being treated as
// unavailability.
func buildRoutes(visitors []domain.Visitor, avail availability.Provider, date time.Time) (map[string]*routestate.Route, error) {
	routes := make(map[string]*routestate.Route, len(visitors))
	for _, visitor := range visitors {
		windows, ok, err := avail.Windows(visitor.ID, date)
		if err != nil {
			return nil, fmt.Errorf("visitor %s: %w", visitor.ID, err)
		}
		if !ok {
			routes[visitor.ID] = routestate.New(visitor.ID, visitor.StartLocation, visitor.Capabilities, schedule.Span{}, false)
			continue
		}
		start, end, ok := availability.Collapse(windows)
		if !ok {
			routes[visitor.ID] = routestate.New(visitor.ID, visitor.StartLocation, visitor.Capabilities, schedule.Span{}, false)
			continue
		}
		span := schedule.Span{Start: start, End: end}
		routes[visitor.ID] = routestate.New(visitor.ID, visitor.StartLocation, visitor.Capabilities, span, true)
	}
	return routes, nil
}

// routeOrder returns visitor IDs in the fixed order construction and local
// search must iterate in, so the (route_index, position) tie-break named by
// spec.md §5 is reproducible across runs of the same input.
func routeOrder(visitors []domain.Visitor) []string {
	return lo.Map(visitors, func(v domain.Visitor, _ int) string { return v.ID })
}

// buildTravelFunc returns a schedule.TravelFunc closure over a Matrix
// already built from index's unique points (see collectPoints). A location
// missing from the index travels in 0 seconds.
func buildTravelFunc(m *matrix.Matrix, index *matrix.PointIndex) schedule.TravelFunc {
	return func(from, to domain.Location) float64 {
		i := index.IndexOf(from)
		j := index.IndexOf(to)
		if i < 0 || j < 0 {
			return 0
		}
		return m.Travel(i, j)
	}
}

// collectPoints registers every location that will ever be looked up during
// routing: each visitor's start and each routable visit's location.
func collectPoints(visitors []domain.Visitor, visits []domain.Visit) (*matrix.PointIndex, []domain.Location) {
	index := matrix.NewPointIndex()
	for _, v := range visitors {
		index.Add(v.StartLocation)
	}
	for _, v := range visits {
		index.Add(v.Location)
	}
	return index, index.Unique
}
