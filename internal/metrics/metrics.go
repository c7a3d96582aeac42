// Package metrics exposes the prometheus instrumentation cmd/routesolverd
// serves at /metrics. These are ambient observability, not part of the
// solver's correctness surface (SPEC_FULL.md's DOMAIN STACK).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fieldops/routesolver/internal/domain"
)

// Metrics bundles the collectors one routesolverd process registers once at
// startup and passes down into the solver.
type Metrics struct {
	SolveDuration      prometheus.Histogram
	UnassignedByReason *prometheus.CounterVec
	AssignedVisits     prometheus.Counter
	LocalSearchMoves   *prometheus.CounterVec
}

// New registers every collector against reg and returns the bundle. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across test runs.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routesolver",
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock time spent in one Solve call.",
			Buckets:   prometheus.DefBuckets,
		}),
		UnassignedByReason: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routesolver",
			Name:      "unassigned_visits_total",
			Help:      "Visits left unassigned, partitioned by reason.",
		}, []string{"reason"}),
		AssignedVisits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "routesolver",
			Name:      "assigned_visits_total",
			Help:      "Visits successfully placed onto a route.",
		}),
		LocalSearchMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routesolver",
			Name:      "local_search_moves_total",
			Help:      "Accepted local-search moves, partitioned by move kind.",
		}, []string{"kind"}),
	}
}

// ObservePlan records a completed Plan's shape: assigned/unassigned counts
// broken down by reason.
func (m *Metrics) ObservePlan(plan *domain.Plan) {
	if m == nil || plan == nil {
		return
	}
	for _, route := range plan.Routes {
		m.AssignedVisits.Add(float64(len(route.Visits)))
	}
	for _, u := range plan.Unassigned {
		m.UnassignedByReason.WithLabelValues(u.Reason.String()).Inc()
	}
}
