package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/routesolver/internal/availability"
	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/matrix"
)

// erroringAvailability simulates a host-supplied availability.Provider whose
// backing system (calendar/HR) is unreachable.
type erroringAvailability struct {
	err error
}

func (p erroringAvailability) Windows(string, time.Time) ([]availability.Window, bool, error) {
	return nil, false, p.err
}

var planningDate = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

func fullDayAvailability() *availability.StaticProvider {
	p := availability.NewStaticProvider()
	return p
}

func withFullDay(p *availability.StaticProvider, visitorID string, date time.Time) {
	p.Set(visitorID, date, availability.Window{Start: 28800, End: 61200})
}

func newSolver() *DefaultSolver {
	return New(nil, nil)
}

func TestSolveSingleVisitSingleVisitor(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{Lat: 36.15, Lng: -115.17}}}
	visits := []domain.Visit{{ID: "v1", Location: domain.Location{Lat: 36.16, Lng: -115.18}, DurationSeconds: 1800}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.NoError(t, err)
	require.Empty(t, plan.Unassigned)
	require.Contains(t, plan.Routes, "alice")
	assert.Equal(t, []string{"v1"}, plan.Routes["alice"].VisitIDs())
}

func TestSolvePinnedToMissingVisitorIsUnassigned(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{}}}
	visits := []domain.Visit{{
		ID: "v1", Location: domain.Location{}, DurationSeconds: 1800,
		Pin: domain.Pin{Kind: domain.PinVisitor, VisitorID: "nobody"},
	}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.NoError(t, err)
	require.Len(t, plan.Unassigned, 1)
	assert.Equal(t, domain.ReasonMissingPinnedVisitor, plan.Unassigned[0].Reason)
}

func TestSolveWrongDatePinIsUnassignedRegardlessOfVisitors(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{}}}
	wrongDate := planningDate.AddDate(0, 0, 1)
	visits := []domain.Visit{{
		ID: "v1", Location: domain.Location{}, DurationSeconds: 1800,
		Pin: domain.Pin{Kind: domain.PinDate, Date: wrongDate},
	}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.NoError(t, err)
	require.Len(t, plan.Unassigned, 1)
	assert.Equal(t, domain.ReasonWrongDate, plan.Unassigned[0].Reason)
}

func TestSolveCommittedWindowTooNarrowIsNoFeasibleWindow(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{}}}
	visits := []domain.Visit{{
		ID: "v1", Location: domain.Location{}, DurationSeconds: 3600,
		CommittedWindow: &domain.Window{Start: 28800, End: 28900}, // 100s, can't fit 3600s visit
	}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.NoError(t, err)
	require.Len(t, plan.Unassigned, 1)
	assert.Equal(t, domain.ReasonNoFeasibleWindow, plan.Unassigned[0].Reason)
}

func TestSolveCapabilityFilterRoutesToCapableVisitor(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)
	withFullDay(avail, "bob", planningDate)

	visitors := []domain.Visitor{
		{ID: "alice", StartLocation: domain.Location{}, Capabilities: []string{"basic"}},
		{ID: "bob", StartLocation: domain.Location{}, Capabilities: []string{"basic", "crane"}},
	}
	visits := []domain.Visit{{
		ID: "v1", Location: domain.Location{}, DurationSeconds: 1800,
		RequiredCapabilities: []string{"crane"},
	}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.NoError(t, err)
	require.Empty(t, plan.Unassigned)
	assert.Equal(t, []string{"v1"}, plan.Routes["bob"].VisitIDs())
	assert.NotContains(t, plan.Routes, "alice")
}

func TestSolveStabilityKeepsVisitWithCurrentVisitorUnderSmallDelta(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)
	withFullDay(avail, "bob", planningDate)

	// bob is slightly closer, but the 300s reassignment penalty outweighs a
	// small travel-time saving, so the visit should stay with alice.
	visitors := []domain.Visitor{
		{ID: "alice", StartLocation: domain.Location{Lat: 0, Lng: 0}},
		{ID: "bob", StartLocation: domain.Location{Lat: 0.0005, Lng: 0}},
	}
	visits := []domain.Visit{{
		ID: "v1", Location: domain.Location{Lat: 0.001, Lng: 0}, DurationSeconds: 600,
		CurrentVisitorID: "alice",
	}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.NoError(t, err)
	require.Empty(t, plan.Unassigned)
	assert.Equal(t, []string{"v1"}, plan.Routes["alice"].VisitIDs())
}

func TestSolveLocalSearchNeverIncreasesConstructionCost(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{Lat: 0, Lng: 0}}}
	visits := []domain.Visit{
		{ID: "v_near", Location: domain.Location{Lat: 0.01, Lng: 0}, DurationSeconds: 600},
		{ID: "v_far", Location: domain.Location{Lat: 0.03, Lng: 0}, DurationSeconds: 600},
		{ID: "v_mid", Location: domain.Location{Lat: 0.02, Lng: 0}, DurationSeconds: 600},
	}
	opts := domain.DefaultSolveOptions()

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), opts)
	require.NoError(t, err)
	require.Empty(t, plan.Unassigned)
	require.Len(t, plan.Routes["alice"].Visits, 3)

	// The geography is a straight line, so the only cost-minimal order is
	// strictly increasing distance from the start location (spec.md §4.5's
	// local-search-monotonicity law: whatever construction produced, the
	// final plan's cost is never worse, and here the unique optimum is the
	// sorted order).
	ordered := plan.Routes["alice"].VisitIDs()
	assert.Equal(t, []string{"v_near", "v_mid", "v_far"}, ordered)
}

func TestSolveIsDeterministic(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)
	withFullDay(avail, "bob", planningDate)

	visitors := []domain.Visitor{
		{ID: "alice", StartLocation: domain.Location{Lat: 0, Lng: 0}},
		{ID: "bob", StartLocation: domain.Location{Lat: 1, Lng: 1}},
	}
	visits := []domain.Visit{
		{ID: "v1", Location: domain.Location{Lat: 0.1, Lng: 0}, DurationSeconds: 600},
		{ID: "v2", Location: domain.Location{Lat: 0.2, Lng: 0}, DurationSeconds: 600},
		{ID: "v3", Location: domain.Location{Lat: 1.1, Lng: 1}, DurationSeconds: 600},
	}
	opts := domain.DefaultSolveOptions()

	plan1, err1 := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), opts)
	plan2, err2 := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), opts)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, plan1.TotalCost, plan2.TotalCost)
	assert.Equal(t, plan1.Routes["alice"].VisitIDs(), plan2.Routes["alice"].VisitIDs())
	assert.Equal(t, plan1.Routes["bob"].VisitIDs(), plan2.Routes["bob"].VisitIDs())
}

func TestSolveInvalidDurationFailsTheWholeCall(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{}}}
	visits := []domain.Visit{{ID: "v1", Location: domain.Location{}, DurationSeconds: 0}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.Error(t, err)
	assert.Nil(t, plan)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultInvalidInput, fault.Kind)
}

func TestSolveAvailabilityProviderErrorFailsTheWholeCall(t *testing.T) {
	avail := erroringAvailability{err: errors.New("calendar system unreachable")}

	visitors := []domain.Visitor{{ID: "alice", StartLocation: domain.Location{}}}
	visits := []domain.Visit{{ID: "v1", Location: domain.Location{}, DurationSeconds: 600}}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())

	require.Error(t, err)
	assert.Nil(t, plan)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultAvailabilityProvider, fault.Kind)
}

func TestSolveEveryVisitAppearsExactlyOnce(t *testing.T) {
	avail := fullDayAvailability()
	withFullDay(avail, "alice", planningDate)
	withFullDay(avail, "bob", planningDate)

	visitors := []domain.Visitor{
		{ID: "alice", StartLocation: domain.Location{}},
		{ID: "bob", StartLocation: domain.Location{}},
	}
	visits := []domain.Visit{
		{ID: "v1", Location: domain.Location{}, DurationSeconds: 600},
		{ID: "v2", Location: domain.Location{}, DurationSeconds: 600},
		{ID: "v3", Location: domain.Location{}, DurationSeconds: 600},
	}

	plan, err := newSolver().Solve(context.Background(), visits, visitors, planningDate, avail, matrix.NewGreatCircleProvider(), domain.DefaultSolveOptions())
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, route := range plan.Routes {
		for _, id := range route.VisitIDs() {
			seen[id]++
		}
	}
	for _, u := range plan.Unassigned {
		seen[u.VisitID]++
	}
	for _, v := range visits {
		assert.Equal(t, 1, seen[v.ID], "visit %s must appear exactly once", v.ID)
	}
}
