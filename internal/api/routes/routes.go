package routes

import (
	"time"

	"github.com/applymint/applymint/internal/api/handlers"
	"github.com/applymint/applymint/internal/api/middleware"
	"github.com/applymint/applymint/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Session *handlers.SessionHandler
	Stream  *handlers.StreamHandler
	WS      *handlers.WSHandler
	Token   *handlers.TokenHandler
	Audio   *handlers.AudioHandler
	Events  *handlers.EventsHandler
	Health  *handlers.HealthHandler

	JWT                middleware.JWTConfig
	Metrics            *metrics.Metrics
	Logger             *logrus.Logger
	CORSOrigins        []string
	TokenRatePerMinute int
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "If-Unmodified-Since", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(d.CORSOrigins)))
	}

	r.GET("/ping", d.Health.Ping)
	r.GET("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// Protected routes (JWT)
	api := r.Group("/api")
	api.Use(middleware.JWTAuth(d.JWT))

	iv := api.Group("/interview")
	iv.POST("/sessions", d.Session.Create)
	iv.GET("/sessions", d.Session.List)
	iv.GET("/sessions/:id", d.Session.Get)
	iv.PATCH("/sessions/:id", d.Session.Patch)
	iv.POST("/sessions/:id/audio", d.Audio.Upload)
	iv.GET("/sessions/:id/events", d.Events.List)

	iv.GET("/stream", d.Stream.Events)
	iv.POST("/stream", d.Stream.Command)
	iv.GET("/ws", d.WS.SessionWS)

	iv.POST("/gemini-token", middleware.RateLimitPerUser(d.TokenRatePerMinute), d.Token.Issue)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/interview/sessions/:id/events", d.Events.AdminList)
}
