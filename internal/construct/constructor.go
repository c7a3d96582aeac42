// Package construct implements the greedy cheapest-insertion constructor
// (spec.md §4.4): for each unassigned visit, find the (route, position) with
// minimum feasible cost, evaluating routes in parallel and reducing
// deterministically.
package construct

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/routestate"
	"github.com/fieldops/routesolver/internal/schedule"
)

// Constructor runs the cheapest-insertion loop over a fixed, ordered set of
// routes.
type Constructor struct {
	Evaluator schedule.Evaluator
	Travel    schedule.TravelFunc
	Options   domain.SolveOptions
	Logger    *zap.Logger
}

// New returns a Constructor; a nil logger is replaced with zap.NewNop().
func New(evaluator schedule.Evaluator, travel schedule.TravelFunc, opts domain.SolveOptions, logger *zap.Logger) *Constructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Constructor{Evaluator: evaluator, Travel: travel, Options: opts, Logger: logger}
}

// routeCandidate is one route's best feasible insertion for the visit
// currently being placed, or no feasible insertion at all.
type routeCandidate struct {
	routeIndex int
	feasible   bool
	cost       float64
	position   int
	result     schedule.Result
	capable    bool
}

// evaluateRoute scans every insertion slot 0..=len(route) and keeps the
// first strictly-cheapest feasible one (spec.md §4.3: "ties in floating
// point cost are broken by insertion order").
func (c *Constructor) evaluateRoute(routeIndex int, route *routestate.Route, visit domain.Visit) routeCandidate {
	cand := routeCandidate{routeIndex: routeIndex}

	if visit.Pin.HasVisitor() && visit.Pin.VisitorID != route.VisitorID {
		return cand
	}
	if !route.HasCapabilities(visit.RequiredCapabilities) {
		return cand
	}
	if !route.Available {
		// An unavailable visitor does not count as capable for a free visit;
		// a visit pinned to it is reported NoFeasibleWindow instead.
		cand.capable = visit.Pin.HasVisitor()
		return cand
	}
	cand.capable = true

	bestCost := zeroInfeasibleSentinel
	bestPos := -1
	var bestResult schedule.Result
	for pos := 0; pos <= route.Len(); pos++ {
		candidateRoute := route.WithInserted(visit, pos)
		result, ok := candidateRoute.Evaluate(c.Evaluator, c.Travel, c.Options)
		if !ok {
			continue
		}
		if bestPos == -1 || result.Cost < bestCost {
			bestCost = result.Cost
			bestPos = pos
			bestResult = result
		}
	}

	if bestPos == -1 {
		return cand
	}
	cand.feasible = true
	cand.cost = bestCost
	cand.position = bestPos
	cand.result = bestResult
	return cand
}

const zeroInfeasibleSentinel = 0

// BestInsertion runs the parallel fan-out over routeOrder for one visit and
// reduces to the single minimum-cost (route, position), breaking ties on
// (route_index, position) by scanning in ascending route_index order and
// only accepting strict improvements (spec.md §5's ordering guarantee).
func (c *Constructor) BestInsertion(visit domain.Visit, routeOrder []string, routes map[string]*routestate.Route) (routeID string, position int, result schedule.Result, anyCapable bool, found bool) {
	candidates := make([]routeCandidate, len(routeOrder))

	var wg sync.WaitGroup
	for i, id := range routeOrder {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			candidates[i] = c.evaluateRoute(i, routes[id], visit)
		}(i, id)
	}
	wg.Wait()

	bestIdx := -1
	var bestCost float64
	for i, cand := range candidates {
		if cand.capable {
			anyCapable = true
		}
		if !cand.feasible {
			continue
		}
		if bestIdx == -1 || cand.cost < bestCost {
			bestIdx = i
			bestCost = cand.cost
		}
	}

	if bestIdx == -1 {
		return "", 0, schedule.Result{}, anyCapable, false
	}

	winner := candidates[bestIdx]
	return routeOrder[bestIdx], winner.position, winner.result, anyCapable, true
}

// Run places every visit in visits (in input order — the constructor is
// single-pass and order-sensitive per spec.md §4.4) into the best feasible
// route, mutating routes in place. It returns an Unassigned entry for every
// visit that found no feasible insertion, using the reason ranking from
// spec.md §4.4/§7.
func (c *Constructor) Run(visits []domain.Visit, routeOrder []string, routes map[string]*routestate.Route) []domain.Unassigned {
	var unassigned []domain.Unassigned

	for _, visit := range visits {
		routeID, pos, result, anyCapable, found := c.BestInsertion(visit, routeOrder, routes)
		if !found {
			reason := domain.ReasonNoFeasibleWindow
			if !anyCapable {
				reason = domain.ReasonNoCapableVisitor
			}
			unassigned = append(unassigned, domain.Unassigned{VisitID: visit.ID, Reason: reason})
			c.Logger.Debug("visit unassigned by constructor",
				zap.String("visit_id", visit.ID),
				zap.String("reason", reason.String()),
			)
			continue
		}

		routes[routeID] = routes[routeID].WithInserted(visit, pos)
		c.Logger.Debug("visit inserted",
			zap.String("visit_id", visit.ID),
			zap.String("visitor_id", routeID),
			zap.Int("position", pos),
			zap.Float64("cost", result.Cost),
		)
	}

	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i].VisitID < unassigned[j].VisitID })
	return unassigned
}
