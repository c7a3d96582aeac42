// Package httpapi is the thin HTTP binding over solver.Solve, in the style
// of the teacher's internal/handler package: request/response DTOs with gin
// binding tags, one handler struct per resource, a shared ErrorResponse
// shape.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/routesolver/internal/availability"
	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/matrix"
	"github.com/fieldops/routesolver/internal/solver"
)

// SolveHandler handles POST /api/v1/solve.
type SolveHandler struct {
	Solver         solver.Solver
	MatrixProvider matrix.Provider
	// DefaultOptions seeds every request's SolveOptions before the request
	// body's own Options override individual fields (config.Config's
	// operator-configured defaults, not domain.DefaultSolveOptions).
	DefaultOptions domain.SolveOptions
}

// NewSolveHandler wires a handler against a Solver, the matrix Provider
// every request is evaluated against, and the server-configured default
// SolveOptions a request may override.
func NewSolveHandler(s solver.Solver, matrixProvider matrix.Provider, defaultOptions domain.SolveOptions) *SolveHandler {
	return &SolveHandler{Solver: s, MatrixProvider: matrixProvider, DefaultOptions: defaultOptions}
}

// LocationRequest is a WGS-84 point in a request body.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WindowRequest is a [start, end] seconds-from-midnight pair.
type WindowRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PinRequest mirrors domain.Pin over the wire.
type PinRequest struct {
	Kind      string `json:"kind"` // "none" | "date" | "visitor" | "visitor_and_date"
	VisitorID string `json:"visitor_id,omitempty"`
	Date      string `json:"date,omitempty"` // YYYY-MM-DD
}

// VisitRequest is one routable visit.
type VisitRequest struct {
	ID                   string          `json:"id" binding:"required"`
	Location             LocationRequest `json:"location" binding:"required"`
	DurationSeconds      int             `json:"duration_seconds" binding:"required,min=1"`
	CommittedWindow      *WindowRequest  `json:"committed_window,omitempty"`
	TargetTimeSeconds    *int            `json:"target_time_seconds,omitempty"`
	RequiredCapabilities []string        `json:"required_capabilities,omitempty"`
	Pin                  *PinRequest     `json:"pin,omitempty"`
	CurrentVisitorID     string          `json:"current_visitor_id,omitempty"`
}

// VisitorRequest is one visitor plus its availability windows for the
// requested date — the host application's data adapter is out of scope, so
// availability travels inline in the request body.
type VisitorRequest struct {
	ID            string          `json:"id" binding:"required"`
	StartLocation LocationRequest `json:"start_location" binding:"required"`
	Capabilities  []string        `json:"capabilities,omitempty"`
	Availability  []WindowRequest `json:"availability,omitempty"` // absent/empty means unavailable that day
}

// OptionsRequest mirrors domain.SolveOptions; absent (nil) fields keep the
// handler's DefaultOptions value. StableVisitOrder is always taken from the
// request.
type OptionsRequest struct {
	TargetTimeWeight      *int  `json:"target_time_weight,omitempty"`
	ReassignmentPenalty   *int  `json:"reassignment_penalty,omitempty"`
	LocalSearchIterations *uint `json:"local_search_iterations,omitempty"`
	StableVisitOrder      bool  `json:"stable_visit_order,omitempty"`
}

// SolveRequest is the full POST /api/v1/solve body.
type SolveRequest struct {
	Date     string           `json:"date" binding:"required"` // RFC3339; time-of-day ignored
	Visitors []VisitorRequest `json:"visitors" binding:"required,min=1"`
	Visits   []VisitRequest   `json:"visits" binding:"required,min=1"`
	Options  *OptionsRequest  `json:"options,omitempty"`
}

// ScheduledVisitResponse is one placed visit with its computed times.
type ScheduledVisitResponse struct {
	VisitID string `json:"visit_id"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// UnassignedResponse is one visit that did not make it onto any route.
type UnassignedResponse struct {
	VisitID string `json:"visit_id"`
	Reason  string `json:"reason"`
}

// SolveResponse is the full POST /api/v1/solve response.
type SolveResponse struct {
	Routes     map[string][]ScheduledVisitResponse `json:"routes"`
	Unassigned []UnassignedResponse                `json:"unassigned"`
	TotalCost  float64                              `json:"total_cost"`
}

// ErrorResponse is the shared error body shape across every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Solve handles POST /api/v1/solve.
func (h *SolveHandler) Solve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		// Allow a bare date too, since callers rarely care about the
		// time-of-day component of the planning date.
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_date", Message: "date must be RFC3339 or YYYY-MM-DD", Code: http.StatusBadRequest})
			return
		}
	}

	visitors, avail := toDomainVisitors(req.Visitors, date)

	visits, err := toDomainVisits(req.Visits)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_visit", Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	opts := toSolveOptions(h.DefaultOptions, req.Options)

	plan, err := h.Solver.Solve(c.Request.Context(), visits, visitors, date, avail, h.MatrixProvider, opts)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "solve_failed", Message: err.Error(), Code: http.StatusUnprocessableEntity})
		return
	}

	c.JSON(http.StatusOK, toSolveResponse(plan))
}

// HealthCheck handles GET /health.
func (h *SolveHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func toDomainVisitors(reqs []VisitorRequest, date time.Time) ([]domain.Visitor, *availability.StaticProvider) {
	visitors := make([]domain.Visitor, len(reqs))
	avail := availability.NewStaticProvider()
	for i, v := range reqs {
		visitors[i] = domain.Visitor{
			ID:            v.ID,
			StartLocation: domain.Location{Lat: v.StartLocation.Lat, Lng: v.StartLocation.Lng},
			Capabilities:  v.Capabilities,
		}
		if len(v.Availability) > 0 {
			windows := make([]availability.Window, len(v.Availability))
			for j, w := range v.Availability {
				windows[j] = availability.Window{Start: w.Start, End: w.End}
			}
			avail.Set(v.ID, date, windows...)
		}
	}
	return visitors, avail
}

func toDomainVisits(reqs []VisitRequest) ([]domain.Visit, error) {
	visits := make([]domain.Visit, len(reqs))
	for i, v := range reqs {
		visit := domain.Visit{
			ID:                   v.ID,
			Location:             domain.Location{Lat: v.Location.Lat, Lng: v.Location.Lng},
			DurationSeconds:      v.DurationSeconds,
			TargetTimeSeconds:    v.TargetTimeSeconds,
			RequiredCapabilities: v.RequiredCapabilities,
			CurrentVisitorID:     v.CurrentVisitorID,
		}
		if v.CommittedWindow != nil {
			visit.CommittedWindow = &domain.Window{Start: v.CommittedWindow.Start, End: v.CommittedWindow.End}
		}
		if v.Pin != nil {
			pin, err := toDomainPin(*v.Pin)
			if err != nil {
				return nil, err
			}
			visit.Pin = pin
		}
		visits[i] = visit
	}
	return visits, nil
}

func toDomainPin(req PinRequest) (domain.Pin, error) {
	switch req.Kind {
	case "", "none":
		return domain.Pin{}, nil
	case "date":
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return domain.Pin{}, err
		}
		return domain.Pin{Kind: domain.PinDate, Date: d}, nil
	case "visitor":
		return domain.Pin{Kind: domain.PinVisitor, VisitorID: req.VisitorID}, nil
	case "visitor_and_date":
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return domain.Pin{}, err
		}
		return domain.Pin{Kind: domain.PinVisitorAndDate, VisitorID: req.VisitorID, Date: d}, nil
	default:
		return domain.Pin{}, errInvalidPinKind(req.Kind)
	}
}

type errInvalidPinKind string

func (e errInvalidPinKind) Error() string {
	return "unknown pin kind: " + string(e)
}

// toSolveOptions starts from the server's configured default (cfg.DefaultOptions),
// then applies any per-field overrides the request body supplies.
func toSolveOptions(defaults domain.SolveOptions, req *OptionsRequest) domain.SolveOptions {
	opts := defaults
	if req == nil {
		return opts
	}
	if req.TargetTimeWeight != nil {
		opts.TargetTimeWeight = *req.TargetTimeWeight
	}
	if req.ReassignmentPenalty != nil {
		opts.ReassignmentPenalty = *req.ReassignmentPenalty
	}
	if req.LocalSearchIterations != nil {
		opts.LocalSearchIterations = *req.LocalSearchIterations
	}
	opts.StableVisitOrder = req.StableVisitOrder
	return opts
}

func toSolveResponse(plan *domain.Plan) SolveResponse {
	resp := SolveResponse{
		Routes:    make(map[string][]ScheduledVisitResponse, len(plan.Routes)),
		TotalCost: plan.TotalCost,
	}
	for visitorID, route := range plan.Routes {
		scheduled := make([]ScheduledVisitResponse, len(route.Visits))
		for i, v := range route.Visits {
			scheduled[i] = ScheduledVisitResponse{VisitID: v.VisitID, Start: v.Start, End: v.End}
		}
		resp.Routes[visitorID] = scheduled
	}
	for _, u := range plan.Unassigned {
		resp.Unassigned = append(resp.Unassigned, UnassignedResponse{VisitID: u.VisitID, Reason: u.Reason.String()})
	}
	return resp
}
