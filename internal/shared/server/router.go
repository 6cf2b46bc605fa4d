package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "resume-ranker/internal/auth"
	"resume-ranker/internal/llm"
	"resume-ranker/internal/profiles"
	"resume-ranker/internal/ranking"
	"resume-ranker/internal/render"
	"resume-ranker/internal/services/health"
	"resume-ranker/internal/shared/config"
	"resume-ranker/internal/shared/metrics"
	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/users"
)

const (
	rankRateGroup = "RANK"
	rankBurst     = 5
)

// RouteRegistrar mounts routes on a group. The local object store implements it.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps bundles dependencies needed to build the HTTP router.
type RouterDeps struct {
	Config         config.Config
	ProfileHandler *profiles.Handler
	RankHandler    *ranking.Handler
	UserHandler    *users.Handler
	SummaryHandler *llm.Handler
	DocsHandler    *render.Handler
	GoogleAuth     *googleauth.GoogleService
	Files          RouteRegistrar
	Health         *health.Service
	RateLimiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	cfg := deps.Config
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				rankRateGroup: middleware.PerMinute(cfg.RankRatePerMinute, rankBurst),
			},
			GroupFor: rateGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	api := r.Group("/api/v1")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	api.GET("/health", healthSvc.Handler())
	api.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterRoutes(api)
	}
	if deps.RankHandler != nil {
		deps.RankHandler.RegisterRoutes(api)
		deps.RankHandler.RegisterHistoryRoutes(api)
	}
	if deps.SummaryHandler != nil {
		deps.SummaryHandler.RegisterRoutes(api)
	}
	if deps.DocsHandler != nil {
		deps.DocsHandler.RegisterRoutes(api)
	}
	if deps.Files != nil {
		deps.Files.RegisterRoutes(api)
	}
	if config.IsDevLike(cfg.Env) && deps.ProfileHandler != nil {
		dev := api.Group("/dev")
		deps.ProfileHandler.RegisterDevRoutes(dev)
	}

	return r
}

func rateGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/rank" {
		return rankRateGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
