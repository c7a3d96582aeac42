// Package localsearch implements the post-construction improvement phase
// (spec.md §4.5): 2-opt intra-route reversal and relocate moves, both
// first-improvement, run for up to LocalSearchIterations passes or until a
// pass finds nothing to improve.
package localsearch

import (
	"go.uber.org/zap"

	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/routestate"
	"github.com/fieldops/routesolver/internal/schedule"
)

// Improver runs 2-opt and relocate passes over a fixed set of routes.
type Improver struct {
	Evaluator schedule.Evaluator
	Travel    schedule.TravelFunc
	Options   domain.SolveOptions
	Logger    *zap.Logger
	// OnMove, if set, is called once per accepted move with "two_opt" or
	// "relocate" so a caller can feed move counts into metrics without this
	// package depending on the metrics package directly.
	OnMove func(kind string)
}

// New returns an Improver; a nil logger is replaced with zap.NewNop().
func New(evaluator schedule.Evaluator, travel schedule.TravelFunc, opts domain.SolveOptions, logger *zap.Logger) *Improver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Improver{Evaluator: evaluator, Travel: travel, Options: opts, Logger: logger}
}

// costOf evaluates a route's current visit sequence; infeasible routes score
// +Inf so they are never preferred by a move, even transiently.
func (im *Improver) costOf(r *routestate.Route) float64 {
	result, ok := r.Evaluate(im.Evaluator, im.Travel, im.Options)
	if !ok {
		return posInf
	}
	return result.Cost
}

const posInf = 1e18

// twoOpt scans one route for the first (i, j) segment reversal that
// strictly reduces cost and applies it. Pins never block intra-route
// reversal (spec.md invariant 6: pins constrain visitor, not position).
func (im *Improver) twoOpt(routeOrder []string, routes map[string]*routestate.Route) bool {
	for _, id := range routeOrder {
		route := routes[id]
		n := route.Len()
		if n < 3 {
			continue
		}
		baseCost := im.costOf(route)
		for i := 1; i < n; i++ {
			for j := i + 1; j < n; j++ {
				candidate := route.WithReversed(i, j)
				candCost := im.costOf(candidate)
				if candCost < baseCost {
					routes[id] = candidate
					im.Logger.Debug("2-opt move applied",
						zap.String("visitor_id", id),
						zap.Int("i", i), zap.Int("j", j),
						zap.Float64("before", baseCost), zap.Float64("after", candCost),
					)
					if im.OnMove != nil {
						im.OnMove("two_opt")
					}
					return true
				}
			}
		}
	}
	return false
}

// relocateCandidate is one feasible (destination route, position) for
// moving a single visit, with the combined cost delta of removing it from
// its source and inserting it at the destination.
type relocateCandidate struct {
	srcRouteID string
	srcPos     int
	dstRouteID string
	dstPos     int
	delta      float64
}

// relocate scans every non-pinned visit for the first strictly-improving
// move to another position (same or different route) and applies it.
// Enumeration order is (source route, source position, destination route,
// destination position), all ascending, per spec.md §4.5's deterministic
// ordering requirement.
func (im *Improver) relocate(routeOrder []string, routes map[string]*routestate.Route) bool {
	for _, srcID := range routeOrder {
		srcRoute := routes[srcID]
		for pos := 0; pos < srcRoute.Len(); pos++ {
			visit := srcRoute.Visits[pos]
			if visit.Pin.HasVisitor() {
				continue // invariant 6: never relocate a pinned visit off its visitor
			}

			removedRoute, removedVisit := srcRoute.WithRemoved(pos)
			srcCostBefore := im.costOf(srcRoute)
			srcCostAfter := im.costOf(removedRoute)

			var best *relocateCandidate
			for _, dstID := range routeOrder {
				dstRoute := routes[dstID]
				if dstID == srcID {
					dstRoute = removedRoute
				}
				if !dstRoute.HasCapabilities(removedVisit.RequiredCapabilities) {
					continue
				}
				dstCostBefore := im.costOf(dstRoute)
				for p := 0; p <= dstRoute.Len(); p++ {
					if dstID == srcID && p == pos {
						continue // identity move, never an improvement
					}
					candidate := dstRoute.WithInserted(removedVisit, p)
					candCost := im.costOf(candidate)
					if candCost == posInf {
						continue
					}

					var delta float64
					if dstID == srcID {
						delta = candCost - srcCostBefore
					} else {
						delta = (srcCostAfter + candCost) - (srcCostBefore + dstCostBefore)
					}

					if delta < -epsilon && (best == nil || delta < best.delta) {
						best = &relocateCandidate{srcRouteID: srcID, srcPos: pos, dstRouteID: dstID, dstPos: p, delta: delta}
						break // first-improvement within this destination route
					}
				}
				if best != nil {
					break // first-improvement across destination routes too
				}
			}

			if best != nil {
				im.applyRelocate(routes, removedVisit, *best)
				im.Logger.Debug("relocate move applied",
					zap.String("visit_id", removedVisit.ID),
					zap.String("from", best.srcRouteID), zap.String("to", best.dstRouteID),
					zap.Float64("delta", best.delta),
				)
				if im.OnMove != nil {
					im.OnMove("relocate")
				}
				return true
			}
		}
	}
	return false
}

const epsilon = 1e-9

func (im *Improver) applyRelocate(routes map[string]*routestate.Route, visit domain.Visit, move relocateCandidate) {
	srcRoute := routes[move.srcRouteID]
	removedRoute, _ := srcRoute.WithRemoved(move.srcPos)

	if move.srcRouteID == move.dstRouteID {
		routes[move.srcRouteID] = removedRoute.WithInserted(visit, move.dstPos)
		return
	}

	routes[move.srcRouteID] = removedRoute
	routes[move.dstRouteID] = routes[move.dstRouteID].WithInserted(visit, move.dstPos)
}

// Run executes alternating 2-opt and relocate passes, each pass re-scanning
// from scratch, until neither move type improves anything or the iteration
// budget is exhausted (spec.md §4.5 default 100).
func (im *Improver) Run(routeOrder []string, routes map[string]*routestate.Route) {
	maxIterations := im.Options.LocalSearchIterations
	if maxIterations == 0 {
		maxIterations = domain.DefaultSolveOptions().LocalSearchIterations
	}

	for iter := uint(0); iter < maxIterations; iter++ {
		improvedTwoOpt := im.twoOpt(routeOrder, routes)
		improvedRelocate := im.relocate(routeOrder, routes)
		if !improvedTwoOpt && !improvedRelocate {
			im.Logger.Debug("local search converged", zap.Uint("iteration", iter))
			return
		}
	}
	im.Logger.Debug("local search reached iteration budget", zap.Uint("max_iterations", maxIterations))
}
