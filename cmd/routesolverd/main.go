package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fieldops/routesolver/internal/config"
	"github.com/fieldops/routesolver/internal/httpapi"
	"github.com/fieldops/routesolver/internal/matrix"
	"github.com/fieldops/routesolver/internal/metrics"
	"github.com/fieldops/routesolver/internal/solver"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	matrixProvider, err := buildMatrixProvider(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize distance matrix provider", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(registry)
	}

	s := solver.New(logger, m)
	solveHandler := httpapi.NewSolveHandler(s, matrixProvider, cfg.DefaultOptions)

	router := setupRouter(solveHandler, registry, cfg)

	logger.Info("starting routesolverd", zap.String("port", cfg.Port), zap.String("matrix_provider", string(cfg.MatrixProvider)))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func buildMatrixProvider(cfg *config.Config, logger *zap.Logger) (matrix.Provider, error) {
	switch cfg.MatrixProvider {
	case config.MatrixProviderGoogle:
		return matrix.NewGoogleProvider(cfg.GoogleMapsAPIKey)
	default:
		logger.Info("using great-circle distance matrix provider", zap.Float64("speed_kmh", cfg.GreatCircleSpeedKmH))
		return &matrix.GreatCircleProvider{SpeedKmH: cfg.GreatCircleSpeedKmH}, nil
	}
}

func setupRouter(solveHandler *httpapi.SolveHandler, registry *prometheus.Registry, cfg *config.Config) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	router.GET("/health", solveHandler.HealthCheck)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/solve", solveHandler.Solve)
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

