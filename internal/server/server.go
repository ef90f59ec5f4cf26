// Package server assembles the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/auth"
	"github.com/RockaiDev/bariqe-dashboard/internal/catalog"
	"github.com/RockaiDev/bariqe-dashboard/internal/export"
	"github.com/RockaiDev/bariqe-dashboard/internal/ingestion"
	"github.com/RockaiDev/bariqe-dashboard/internal/middleware"
	"github.com/RockaiDev/bariqe-dashboard/internal/profile"
	"github.com/RockaiDev/bariqe-dashboard/internal/records"
)

// APIPrefix is the mount point of the entity routes.
const APIPrefix = "/api/v1"

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	MetricsEnabled bool
	// DefaultOrganizationID scopes requests without an organization header.
	DefaultOrganizationID uuid.UUID
}

// Services are the application services the API exposes.
type Services struct {
	Registry  *catalog.Registry
	Records   *records.Service
	Ingestion *ingestion.Service
	Export    *export.Service
	Profile   *profile.Service
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(opts Options, svc Services, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.L()
	}

	router := gin.New()
	for _, h := range middleware.AccessLog(logger) {
		router.Use(h)
	}
	router.Use(middleware.RequestLogger(logger))
	if opts.MetricsEnabled {
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.NoRoute(notFound)

	health := newHealthHandler(svc.Records)
	router.GET("/live", gin.WrapF(health.LiveEndpoint))
	router.GET("/ready", gin.WrapF(health.ReadyEndpoint))

	api := router.Group(APIPrefix)
	api.Use(
		gzip.Gzip(gzip.DefaultCompression),
		renderErrors(),
		auth.OrganizationScope(opts.DefaultOrganizationID),
		middleware.DataLoader(svc.Records.Repository()),
	)

	recordHandler := records.NewHTTPHandler(svc.Records)
	importHandler := ingestion.NewHTTPHandler(svc.Ingestion)
	exportHandler := export.NewHTTPHandler(svc.Export)

	for _, def := range svc.Registry.All() {
		base := "/" + def.Slug
		api.POST(base+"/import", importHandler.Import(def))
		api.GET(base+"/export", exportHandler.Export(def))
		api.GET(base+"/template", exportHandler.Template(def))
		recordHandler.Register(api, def)
	}

	if svc.Profile != nil {
		api.GET("/business-info", profile.NewHTTPHandler(svc.Profile).Get)
	}

	return router
}

func newHealthHandler(recordService *records.Service) healthcheck.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	health.AddReadinessCheck("store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return recordService.Repository().Ping(ctx)
	})
	return health
}

// WithCORS wraps the router with the cross origin policy of the dashboard frontend.
func WithCORS(handler http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
	}).Handler(handler)
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewHTTPServer creates the listener for handler.
func NewHTTPServer(cfg HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
