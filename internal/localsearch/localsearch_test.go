package localsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/routestate"
	"github.com/fieldops/routesolver/internal/schedule"
)

// gridTravel treats Location.Lat as a 1-D coordinate and returns the
// absolute distance in seconds, so crossing routes are easy to construct.
func gridTravel(from, to domain.Location) float64 {
	d := from.Lat - to.Lat
	if d < 0 {
		d = -d
	}
	return d
}

func loc(x float64) domain.Location { return domain.Location{Lat: x} }

func fullDaySpan() schedule.Span {
	return schedule.Span{Start: 0, End: 100000}
}

func TestTwoOptUncrossesRoute(t *testing.T) {
	eval := schedule.NewForwardPassEvaluator()
	opts := domain.DefaultSolveOptions()
	im := New(eval, gridTravel, opts, nil)

	// Visitor starts at 0; visiting 5, then 15, then 10 doubles back
	// (cost 5+10+5 = 20). Reversing the segment [1..2] gives the strictly
	// shorter tour 0 -> 5 -> 10 -> 15 (cost 15). twoOpt only reverses
	// segments starting at index 1 or later.
	route := routestate.New("alice", loc(0), nil, fullDaySpan(), true)
	route = route.WithInserted(domain.Visit{ID: "v5", Location: loc(5), DurationSeconds: 0}, 0)
	route = route.WithInserted(domain.Visit{ID: "v15", Location: loc(15), DurationSeconds: 0}, 1)
	route = route.WithInserted(domain.Visit{ID: "v10", Location: loc(10), DurationSeconds: 0}, 2)

	routes := map[string]*routestate.Route{"alice": route}
	beforeCost := im.costOf(route)

	improved := im.twoOpt([]string{"alice"}, routes)

	require.True(t, improved)
	afterCost := im.costOf(routes["alice"])
	assert.Less(t, afterCost, beforeCost)
}

func TestRelocateMovesVisitToCheaperRoute(t *testing.T) {
	eval := schedule.NewForwardPassEvaluator()
	opts := domain.DefaultSolveOptions()
	im := New(eval, gridTravel, opts, nil)

	far := routestate.New("alice", loc(0), nil, fullDaySpan(), true)
	far = far.WithInserted(domain.Visit{ID: "v100", Location: loc(100), DurationSeconds: 0}, 0)
	near := routestate.New("bob", loc(99), nil, fullDaySpan(), true)

	routes := map[string]*routestate.Route{"alice": far, "bob": near}

	improved := im.relocate([]string{"alice", "bob"}, routes)

	require.True(t, improved)
	assert.Equal(t, 0, routes["alice"].Len())
	assert.Equal(t, 1, routes["bob"].Len())
}

func TestRelocateNeverMovesPinnedVisit(t *testing.T) {
	eval := schedule.NewForwardPassEvaluator()
	opts := domain.DefaultSolveOptions()
	im := New(eval, gridTravel, opts, nil)

	far := routestate.New("alice", loc(0), nil, fullDaySpan(), true)
	far = far.WithInserted(domain.Visit{
		ID: "v100", Location: loc(100), DurationSeconds: 0,
		Pin: domain.Pin{Kind: domain.PinVisitor, VisitorID: "alice"},
	}, 0)
	near := routestate.New("bob", loc(99), nil, fullDaySpan(), true)

	routes := map[string]*routestate.Route{"alice": far, "bob": near}

	improved := im.relocate([]string{"alice", "bob"}, routes)

	assert.False(t, improved)
	assert.Equal(t, 1, routes["alice"].Len())
	assert.Equal(t, 0, routes["bob"].Len())
}

func TestRunConvergesWithinIterationBudget(t *testing.T) {
	eval := schedule.NewForwardPassEvaluator()
	opts := domain.DefaultSolveOptions()
	opts.LocalSearchIterations = 5
	im := New(eval, gridTravel, opts, nil)

	route := routestate.New("alice", loc(0), nil, fullDaySpan(), true)
	route = route.WithInserted(domain.Visit{ID: "v10", Location: loc(10), DurationSeconds: 0}, 0)
	route = route.WithInserted(domain.Visit{ID: "v5", Location: loc(5), DurationSeconds: 0}, 1)
	route = route.WithInserted(domain.Visit{ID: "v15", Location: loc(15), DurationSeconds: 0}, 2)

	routes := map[string]*routestate.Route{"alice": route}
	beforeCost := im.costOf(route)

	im.Run([]string{"alice"}, routes)

	afterCost := im.costOf(routes["alice"])
	assert.LessOrEqual(t, afterCost, beforeCost)
}

func TestRunNeverIncreasesCost(t *testing.T) {
	eval := schedule.NewForwardPassEvaluator()
	opts := domain.DefaultSolveOptions()
	im := New(eval, gridTravel, opts, nil)

	far := routestate.New("alice", loc(0), nil, fullDaySpan(), true)
	far = far.WithInserted(domain.Visit{ID: "v100", Location: loc(100), DurationSeconds: 0}, 0)
	far = far.WithInserted(domain.Visit{ID: "v40", Location: loc(40), DurationSeconds: 0}, 0)
	near := routestate.New("bob", loc(99), nil, fullDaySpan(), true)

	routes := map[string]*routestate.Route{"alice": far, "bob": near}
	beforeTotal := im.costOf(routes["alice"]) + im.costOf(routes["bob"])

	im.Run([]string{"alice", "bob"}, routes)

	afterTotal := im.costOf(routes["alice"]) + im.costOf(routes["bob"])
	assert.LessOrEqual(t, afterTotal, beforeTotal)
}
