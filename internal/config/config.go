// Package config loads routesolverd's runtime configuration the way the
// teacher's cmd/main.go reads environment variables, but through
// spf13/viper so defaults, env binding, and type coercion are declarative
// instead of a chain of os.Getenv/if-empty checks.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fieldops/routesolver/internal/domain"
)

// MatrixProviderKind selects which matrix.Provider cmd/routesolverd wires
// up at startup.
type MatrixProviderKind string

const (
	MatrixProviderGreatCircle MatrixProviderKind = "great_circle"
	MatrixProviderGoogle      MatrixProviderKind = "google"
)

// Config is routesolverd's full runtime configuration.
type Config struct {
	Port                string
	GinMode             string
	GoogleMapsAPIKey    string
	MatrixProvider      MatrixProviderKind
	GreatCircleSpeedKmH float64
	DefaultOptions      domain.SolveOptions
	MetricsEnabled      bool
}

// Load reads a .env file if present (a missing file is not an error, same
// as the teacher's godotenv.Load call), then resolves the process
// environment through viper into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Matches the teacher's tolerant behavior: a missing .env is normal
		// in production where real env vars are injected by the platform.
	}

	v := viper.New()
	v.SetEnvPrefix("ROUTESOLVER")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "")
	v.SetDefault("matrix_provider", string(MatrixProviderGreatCircle))
	v.SetDefault("great_circle_speed_kmh", 40.0)
	v.SetDefault("target_time_weight", 1)
	v.SetDefault("reassignment_penalty", 300)
	v.SetDefault("local_search_iterations", 100)
	v.SetDefault("metrics_enabled", true)

	provider := MatrixProviderKind(v.GetString("matrix_provider"))
	if provider != MatrixProviderGreatCircle && provider != MatrixProviderGoogle {
		return nil, fmt.Errorf("config: unknown matrix_provider %q", provider)
	}

	apiKey := v.GetString("google_maps_api_key")
	if provider == MatrixProviderGoogle && apiKey == "" {
		return nil, fmt.Errorf("config: matrix_provider=google requires ROUTESOLVER_GOOGLE_MAPS_API_KEY")
	}

	return &Config{
		Port:                v.GetString("port"),
		GinMode:             v.GetString("gin_mode"),
		GoogleMapsAPIKey:    apiKey,
		MatrixProvider:      provider,
		GreatCircleSpeedKmH: v.GetFloat64("great_circle_speed_kmh"),
		DefaultOptions: domain.SolveOptions{
			TargetTimeWeight:      v.GetInt("target_time_weight"),
			ReassignmentPenalty:   v.GetInt("reassignment_penalty"),
			LocalSearchIterations: uint(v.GetInt("local_search_iterations")),
		},
		MetricsEnabled: v.GetBool("metrics_enabled"),
	}, nil
}
