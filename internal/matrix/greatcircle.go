package matrix

import (
	"context"

	"github.com/fieldops/routesolver/internal/domain"
	"github.com/fieldops/routesolver/internal/geo"
)

// GreatCircleProvider is the haversine fallback named in spec.md §4.1:
// symmetric travel time at a fixed assumed speed, used when no real-network
// source is configured.
type GreatCircleProvider struct {
	// SpeedKmH is the assumed travel speed; defaults to 40 km/h when <= 0.
	SpeedKmH float64
}

// NewGreatCircleProvider returns a provider at the default assumed speed.
func NewGreatCircleProvider() *GreatCircleProvider {
	return &GreatCircleProvider{SpeedKmH: 40.0}
}

// Build computes a symmetric n×n seconds table via the haversine formula.
// It never fails: every pair of finite coordinates has a well-defined
// great-circle distance.
func (p *GreatCircleProvider) Build(_ context.Context, points []domain.Location) (*Matrix, error) {
	n := len(points)
	table := make([][]float64, n)
	for i := range table {
		table[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			seconds := geo.TravelSeconds(points[i].Lat, points[i].Lng, points[j].Lat, points[j].Lng, p.SpeedKmH)
			table[i][j] = seconds
			table[j][i] = seconds
		}
	}
	return NewMatrix(table), nil
}
