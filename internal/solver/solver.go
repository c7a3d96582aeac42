// Package solver wires the distance matrix, availability provider, schedule
// evaluator, constructor, and local search into the single entry point
// external callers use: Solve. It owns preprocessing (pin classification,
// route seeding) and the translation from internal routestate.Route values
// into the domain.Plan the spec's §6 interface promises.
package solver

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/routesolver/internal/availability"
	"github.com/fieldops/routesolver/internal/construct"
	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/localsearch"
	"github.com/fieldops/routesolver/internal/matrix"
	"github.com/fieldops/routesolver/internal/metrics"
	"github.com/fieldops/routesolver/internal/routestate"
	"github.com/fieldops/routesolver/internal/schedule"
)

// Solver is the external interface named by spec.md §6: solve(visits,
// visitors, date, availability, matrix, options) -> Plan.
type Solver interface {
	Solve(ctx context.Context, visits []domain.Visit, visitors []domain.Visitor, date time.Time, avail availability.Provider, matrixProvider matrix.Provider, opts domain.SolveOptions) (*domain.Plan, error)
}

// DefaultSolver runs the reference pipeline: preprocess, construct, improve.
type DefaultSolver struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// New returns a DefaultSolver; a nil logger is replaced with zap.NewNop().
// Metrics may be left nil (e.g. in tests) — every metrics call is a no-op
// in that case.
func New(logger *zap.Logger, m *metrics.Metrics) *DefaultSolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultSolver{Logger: logger, Metrics: m}
}

// Solve builds a Plan for one planning date. Per-visit infeasibility is
// never an error — it comes back as a domain.Unassigned entry. Only a
// runtime fault (bad input, a matrix or availability provider failure)
// returns a non-nil error, as a *Fault, and in that case the returned Plan
// is always nil (spec.md §7: "no partial plan returned").
func (s *DefaultSolver) Solve(ctx context.Context, visits []domain.Visit, visitors []domain.Visitor, date time.Time, avail availability.Provider, matrixProvider matrix.Provider, opts domain.SolveOptions) (*domain.Plan, error) {
	started := time.Now()
	s.Logger.Debug("solve started", zap.Int("visit_count", len(visits)), zap.Int("visitor_count", len(visitors)))

	if err := validateVisits(visits); err != nil {
		return nil, newFault(FaultInvalidInput, err)
	}

	visitorIDs := make(map[string]struct{}, len(visitors))
	for _, v := range visitors {
		visitorIDs[v.ID] = struct{}{}
	}

	classified := classifyVisits(visits, visitorIDs, date)
	pinned, free := splitPinned(classified.routable)
	if opts.StableVisitOrder {
		// Opt-in convenience named in SPEC_FULL.md's "visit ordering
		// stability" decision: sort by ID before construction so repeated
		// calls with reordered-but-identical input sets converge to the
		// same plan. Default behavior stays order-sensitive.
		sortVisitsByID(pinned)
		sortVisitsByID(free)
	}

	pointIndex, points := collectPoints(visitors, classified.routable)
	m, err := matrixProvider.Build(ctx, points)
	if err != nil {
		return nil, newFault(FaultMatrixProvider, err)
	}
	travel := buildTravelFunc(m, pointIndex)

	routes, err := buildRoutes(visitors, avail, date)
	if err != nil {
		return nil, newFault(FaultAvailabilityProvider, err)
	}
	order := routeOrder(visitors)

	evaluator := schedule.NewForwardPassEvaluator()
	constructor := construct.New(evaluator, travel, opts, s.Logger)

	// Seed pinned visits first, each restricted to its own visitor's route,
	// in pin-input order (spec.md §4.4): "pinned visits already seeded into
	// visitors' routes in pin-input order."
	pinnedUnassigned := seedPinned(constructor, pinned, routes)
	freeUnassigned := constructor.Run(free, order, routes)

	improver := localsearch.New(evaluator, travel, opts, s.Logger)
	if s.Metrics != nil {
		improver.OnMove = func(kind string) { s.Metrics.LocalSearchMoves.WithLabelValues(kind).Inc() }
	}
	improver.Run(order, routes)

	plan := assemblePlan(evaluator, travel, opts, routes, order, classified.unassigned, pinnedUnassigned, freeUnassigned)

	s.Logger.Debug("solve finished",
		zap.Int("assigned_routes", len(plan.Routes)),
		zap.Int("unassigned_count", len(plan.Unassigned)),
		zap.Float64("total_cost", plan.TotalCost),
	)

	if s.Metrics != nil {
		s.Metrics.SolveDuration.Observe(time.Since(started).Seconds())
		s.Metrics.ObservePlan(plan)
	}

	return plan, nil
}

func sortVisitsByID(visits []domain.Visit) {
	sort.Slice(visits, func(i, j int) bool { return visits[i].ID < visits[j].ID })
}

// seedPinned places each pinned visit onto its required visitor's route,
// restricting the constructor's candidate route set to exactly that one
// visitor so the usual cheapest-position search still applies.
func seedPinned(c *construct.Constructor, pinned []domain.Visit, routes map[string]*routestate.Route) []domain.Unassigned {
	var unassigned []domain.Unassigned
	for _, v := range pinned {
		unassigned = append(unassigned, c.Run([]domain.Visit{v}, []string{v.Pin.VisitorID}, routes)...)
	}
	return unassigned
}

// assemblePlan converts the final routestate.Route set into domain.Route
// values (re-evaluating each one to capture its final schedule and cost)
// and merges every unassigned source, keeping the strongest reason per
// visit (spec.md §4.4 reason ranking) if a visit somehow appears twice.
func assemblePlan(evaluator schedule.Evaluator, travel schedule.TravelFunc, opts domain.SolveOptions, routes map[string]*routestate.Route, order []string, unassignedSources ...[]domain.Unassigned) *domain.Plan {
	plan := &domain.Plan{Routes: make(map[string]*domain.Route)}

	for _, id := range order {
		r := routes[id]
		if r.Len() == 0 {
			continue
		}
		result, ok := r.Evaluate(evaluator, travel, opts)
		if !ok {
			// Construction and local search only ever commit feasible
			// moves, so this would indicate a logic error upstream rather
			// than a legitimate runtime state; skip defensively.
			continue
		}
		domainRoute := r.ToDomainRoute(result)
		plan.Routes[id] = domainRoute
		plan.TotalCost += domainRoute.Cost
	}

	reasons := make(map[string]domain.UnassignedReason)
	for _, list := range unassignedSources {
		for _, u := range list {
			if existing, ok := reasons[u.VisitID]; ok {
				reasons[u.VisitID] = domain.StrongerReason(existing, u.Reason)
			} else {
				reasons[u.VisitID] = u.Reason
			}
		}
	}
	for visitID, reason := range reasons {
		plan.Unassigned = append(plan.Unassigned, domain.Unassigned{VisitID: visitID, Reason: reason})
	}
	sort.Slice(plan.Unassigned, func(i, j int) bool { return plan.Unassigned[i].VisitID < plan.Unassigned[j].VisitID })

	return plan
}
