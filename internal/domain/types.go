// Package domain holds the core value types shared by every solver stage:
// the read-only inputs (Visit, Visitor), the availability windows the
// schedule evaluator consumes, and the Route/Plan types the constructor and
// local search mutate and the orchestrator emits.
package domain

import "time"

// Location is a WGS-84 geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PinKind enumerates the closed set of pin specifications a Visit can carry.
type PinKind int

const (
	// PinNone means the visit is unconstrained and may go to any capable
	// visitor on any date.
	PinNone PinKind = iota
	// PinDate restricts the visit to a specific planning date.
	PinDate
	// PinVisitor forces the visit onto a specific visitor, any date.
	PinVisitor
	// PinVisitorAndDate forces both a specific visitor and date.
	PinVisitorAndDate
)

func (k PinKind) String() string {
	switch k {
	case PinNone:
		return "none"
	case PinDate:
		return "date"
	case PinVisitor:
		return "visitor"
	case PinVisitorAndDate:
		return "visitor_and_date"
	default:
		return "unknown"
	}
}

// Pin is the hard constraint fixing a visit to a visitor, a date, or both.
// A zero-value Pin is PinNone. VisitorID and Date are only meaningful for
// the PinKind that names them.
type Pin struct {
	Kind      PinKind
	VisitorID string
	Date      time.Time
}

// HasVisitor reports whether the pin names a required visitor.
func (p Pin) HasVisitor() bool {
	return p.Kind == PinVisitor || p.Kind == PinVisitorAndDate
}

// HasDate reports whether the pin names a required planning date.
func (p Pin) HasDate() bool {
	return p.Kind == PinDate || p.Kind == PinVisitorAndDate
}

// Window is a committed or target time window, seconds-from-midnight.
type Window struct {
	Start int
	End   int
}

// Visit is one service occurrence to be routed.
type Visit struct {
	ID                    string
	Location              Location
	DurationSeconds       int
	CommittedWindow       *Window // nil means no hard window; otherwise the visit must start and end inside it
	TargetTimeSeconds      *int   // nil means no soft preference
	RequiredCapabilities  []string
	Pin                   Pin
	CurrentVisitorID      string // empty means "no existing assignment"
}

// Visitor is one worker/vehicle with exactly one route per planning day.
type Visitor struct {
	ID            string
	StartLocation Location
	Capabilities  []string
}

// HasCapabilities reports whether the visitor offers every capability in
// required (visitor capability set is a superset, per spec.md GLOSSARY).
func (v Visitor) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	offered := make(map[string]struct{}, len(v.Capabilities))
	for _, c := range v.Capabilities {
		offered[c] = struct{}{}
	}
	for _, r := range required {
		if _, ok := offered[r]; !ok {
			return false
		}
	}
	return true
}

// AvailabilitySpan is a collapsed outer-bound availability span (see
// internal/availability for the multi-window collapse). The schedule
// evaluator does not use this type; it takes schedule.Span.
type AvailabilitySpan struct {
	Start int
	End   int
}

// ScheduledVisit is one visit placed in a route with its computed times.
type ScheduledVisit struct {
	VisitID string
	Start   int
	End     int
}

// Route is the ordered sequence of visits assigned to one visitor, plus the
// computed schedule and cost components from the last evaluation.
type Route struct {
	VisitorID  string
	Visits     []ScheduledVisit
	TravelTime float64
	Cost       float64
}

// VisitIDs returns the ordered visit IDs on the route.
func (r Route) VisitIDs() []string {
	ids := make([]string, len(r.Visits))
	for i, v := range r.Visits {
		ids[i] = v.VisitID
	}
	return ids
}

// UnassignedReason is the closed set of reasons a visit did not make it onto
// any route.
type UnassignedReason int

const (
	ReasonNone UnassignedReason = iota
	ReasonWrongDate
	ReasonMissingPinnedVisitor
	ReasonNoCapableVisitor
	ReasonNoFeasibleWindow
)

// precedence ranks reasons from most to least specific, lower wins. Mirrors
// spec.md §4.4/§7: WrongDate > MissingPinnedVisitor > NoCapableVisitor >
// NoFeasibleWindow.
var precedence = map[UnassignedReason]int{
	ReasonWrongDate:            0,
	ReasonMissingPinnedVisitor: 1,
	ReasonNoCapableVisitor:     2,
	ReasonNoFeasibleWindow:     3,
}

// StrongerReason returns whichever of a, b has higher precedence (lower
// ordinal). ReasonNone never outranks a concrete reason.
func StrongerReason(a, b UnassignedReason) UnassignedReason {
	if a == ReasonNone {
		return b
	}
	if b == ReasonNone {
		return a
	}
	if precedence[a] <= precedence[b] {
		return a
	}
	return b
}

func (r UnassignedReason) String() string {
	switch r {
	case ReasonWrongDate:
		return "wrong_date"
	case ReasonMissingPinnedVisitor:
		return "missing_pinned_visitor"
	case ReasonNoCapableVisitor:
		return "no_capable_visitor"
	case ReasonNoFeasibleWindow:
		return "no_feasible_window"
	default:
		return "none"
	}
}

// Unassigned is one visit that did not make it into any route.
type Unassigned struct {
	VisitID string
	Reason  UnassignedReason
}

// Plan is the solver's output: one route per visitor that received visits,
// the unassigned list with reasons, and the aggregate cost.
type Plan struct {
	Routes     map[string]*Route
	Unassigned []Unassigned
	TotalCost  float64
}

// SolveOptions configures the objective weights and local-search budget.
// Zero-value options are invalid; use DefaultSolveOptions.
type SolveOptions struct {
	TargetTimeWeight       int
	ReassignmentPenalty    int
	LocalSearchIterations  uint
	StableVisitOrder       bool
}

// DefaultSolveOptions returns the defaults named in spec.md §4.6/§6.1.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		TargetTimeWeight:      1,
		ReassignmentPenalty:   300,
		LocalSearchIterations: 100,
	}
}
