package http

import (
	"context"
	"time"

	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/jwt"
	repo "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/infra/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config   *config.Config
	Service  appsvc.Service
	Codec    jwt.Codec
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Checks   map[string]repo.Pinger
}

// NewRouter assembles the gin engine. ctx bounds the background work of the
// middleware chain.
func NewRouter(ctx context.Context, d RouterDeps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	var metrics *middleware.Metrics
	if d.Registry != nil {
		metrics = middleware.NewMetrics(d.Registry)
		router.Use(metrics.Handler())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	if d.Config.RateLimitRPS > 0 {
		burst := max(d.Config.RateLimitBurst, 1)
		router.Use(middleware.NewHTTPRateLimitPerIP(ctx,
			d.Config.RateLimitRPS, burst, 10_000, time.Hour))
	}

	if len(d.Config.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: d.Config.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"Authorization",
				"X-Requested-With",
			},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: d.Config.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	NewHandler(d.Service, log, metrics, d.Checks).Register(router, middleware.AuthGate(d.Codec))
	return router
}
