// Package matrix defines the DistanceMatrix contract (spec.md §4.1, §6.3)
// and the point-deduplication index the orchestrator uses before querying a
// Provider. Two Providers are implemented here: GoogleProvider (the real
// road-network source, batched through googlemaps.github.io/maps) and
// GreatCircleProvider (the haversine fallback).
package matrix

import (
	"context"
	"fmt"

	"github.com/fieldops/routesolver/internal/domain"
)

// Matrix is a pairwise travel-time lookup in seconds over a fixed point set.
// Travel(i, i) is always 0; symmetry is not guaranteed for asymmetric
// providers.
type Matrix struct {
	seconds [][]float64
}

// NewMatrix wraps a pre-computed n×n seconds table. The caller must ensure
// seconds[i][i] == 0 and the table is square.
func NewMatrix(seconds [][]float64) *Matrix {
	return &Matrix{seconds: seconds}
}

// Travel returns the travel time in seconds from point i to point j.
func (m *Matrix) Travel(i, j int) float64 {
	if i == j {
		return 0
	}
	return m.seconds[i][j]
}

// Size returns the number of points the matrix covers.
func (m *Matrix) Size() int {
	return len(m.seconds)
}

// Provider builds a Matrix over a set of distinct points. A Provider must be
// deterministic for a given input ordering (spec.md §4.1) and must fail the
// whole build rather than return partial data.
type Provider interface {
	Build(ctx context.Context, points []domain.Location) (*Matrix, error)
}

// pointKey rounds a location to a fixed precision so that visits at the same
// address collapse to one matrix row/column, per spec.md §4.1 ("the solver
// uses an index deduplicating identical (lat, lng) points").
type pointKey struct {
	lat int64
	lng int64
}

const dedupPrecision = 1e6 // ~0.11m at the equator

func keyOf(loc domain.Location) pointKey {
	return pointKey{
		lat: int64(loc.Lat * dedupPrecision),
		lng: int64(loc.Lng * dedupPrecision),
	}
}

// PointIndex deduplicates a sequence of locations into a unique point list
// while remembering, for each original slot, which unique index it maps to.
type PointIndex struct {
	Unique   []domain.Location
	indexOf  map[pointKey]int
	original []int // original[i] = unique index for the i-th location passed to Add
}

// NewPointIndex builds an empty index.
func NewPointIndex() *PointIndex {
	return &PointIndex{
		indexOf: make(map[pointKey]int),
	}
}

// Add registers a location (duplicates allowed) and returns its unique
// index, assigning a fresh one the first time a given (lat, lng) is seen.
func (p *PointIndex) Add(loc domain.Location) int {
	key := keyOf(loc)
	if idx, ok := p.indexOf[key]; ok {
		p.original = append(p.original, idx)
		return idx
	}
	idx := len(p.Unique)
	p.indexOf[key] = idx
	p.Unique = append(p.Unique, loc)
	p.original = append(p.original, idx)
	return idx
}

// Len returns the number of unique points registered so far.
func (p *PointIndex) Len() int {
	return len(p.Unique)
}

// IndexOf returns the unique index a previously-Added location was assigned,
// or -1 if loc was never registered. Used to build a TravelFunc closure over
// a built Matrix without re-running Build.
func (p *PointIndex) IndexOf(loc domain.Location) int {
	if idx, ok := p.indexOf[keyOf(loc)]; ok {
		return idx
	}
	return -1
}

// ErrProviderFailed wraps any failure to compute a requested matrix entry.
// Per spec.md §4.1, failure to compute any entry is fatal to the run.
type ErrProviderFailed struct {
	Provider string
	Cause    error
}

func (e *ErrProviderFailed) Error() string {
	return fmt.Sprintf("%s distance matrix provider failed: %v", e.Provider, e.Cause)
}

func (e *ErrProviderFailed) Unwrap() error {
	return e.Cause
}
