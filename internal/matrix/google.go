package matrix

import (
	"context"
	"fmt"

	googlemaps "googlemaps.github.io/maps"

	"github.com/fieldops/routesolver/internal/domain"
)

// GoogleProvider adapts the teacher's googlemaps.github.io/maps client from
// single-trip travel-time lookups into the batched, all-pairs DistanceMatrix
// contract spec.md §4.1 requires: one DistanceMatrixRequest over the full
// deduplicated point set, origins == destinations == points.
type GoogleProvider struct {
	client *googlemaps.Client
}

// NewGoogleProvider creates a provider backed by the Google Distance Matrix
// API. Returns an error if the client cannot be constructed (e.g. an empty
// API key), matching the teacher's NewGoogleMapsService contract.
func NewGoogleProvider(apiKey string) (*GoogleProvider, error) {
	client, err := googlemaps.NewClient(googlemaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

// Build requests the full pairwise matrix in one call and fails the whole
// build if any requested cell comes back without a usable duration — per
// spec.md §4.1 the solver cannot fall back row-by-row.
func (p *GoogleProvider) Build(ctx context.Context, points []domain.Location) (*Matrix, error) {
	n := len(points)
	if n == 0 {
		return NewMatrix(nil), nil
	}

	coords := make([]string, n)
	for i, loc := range points {
		coords[i] = fmt.Sprintf("%f,%f", loc.Lat, loc.Lng)
	}

	req := &googlemaps.DistanceMatrixRequest{
		Origins:      coords,
		Destinations: coords,
		Mode:         googlemaps.TravelModeDriving,
		Units:        googlemaps.UnitsMetric,
	}

	resp, err := p.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, &ErrProviderFailed{Provider: "google", Cause: err}
	}

	rows := make([][]distanceMatrixCell, len(resp.Rows))
	for i, row := range resp.Rows {
		cells := make([]distanceMatrixCell, len(row.Elements))
		for j, element := range row.Elements {
			duration := element.DurationInTraffic
			if duration == 0 {
				duration = element.Duration
			}
			cells[j] = distanceMatrixCell{status: element.Status, seconds: duration.Seconds()}
		}
		rows[i] = cells
	}

	return buildMatrixFromCells(n, rows)
}

// distanceMatrixCell is the googlemaps.DistanceMatrixElement fields Build
// actually needs, so the fail-whole-build validation below can be unit
// tested without a live API response.
type distanceMatrixCell struct {
	status  string
	seconds float64
}

// buildMatrixFromCells applies spec.md §4.1's "no row-by-row fallback" rule:
// any missing row/element or non-OK status fails the whole build.
func buildMatrixFromCells(n int, rows [][]distanceMatrixCell) (*Matrix, error) {
	if len(rows) != n {
		return nil, &ErrProviderFailed{Provider: "google", Cause: fmt.Errorf("expected %d rows, got %d", n, len(rows))}
	}

	table := make([][]float64, n)
	for i := 0; i < n; i++ {
		table[i] = make([]float64, n)
		row := rows[i]
		if len(row) != n {
			return nil, &ErrProviderFailed{Provider: "google", Cause: fmt.Errorf("row %d: expected %d elements, got %d", i, n, len(row))}
		}
		for j := 0; j < n; j++ {
			if i == j {
				table[i][j] = 0
				continue
			}
			cell := row[j]
			if cell.status != "OK" {
				return nil, &ErrProviderFailed{Provider: "google", Cause: fmt.Errorf("no route from point %d to %d: %s", i, j, cell.status)}
			}
			table[i][j] = cell.seconds
		}
	}

	return NewMatrix(table), nil
}
