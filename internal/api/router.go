package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/journal-submission-api/internal/auth"
	"github.com/journal-submission-api/internal/config"
	"github.com/journal-submission-api/internal/metrics"
	"github.com/journal-submission-api/internal/notify"
	"github.com/journal-submission-api/internal/service"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Deps carries the collaborators the router wires into middleware and
// side endpoints. Nil fields disable the matching feature, except Tokens
// which is built from cfg.Auth when missing.
type Deps struct {
	Tokens  *auth.TokenService
	Hub     *notify.Hub
	Metrics *metrics.Metrics
	// DB is pinged by /health when set
	DB Pinger
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, deps Deps) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	if deps.Tokens == nil {
		deps.Tokens = auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigin))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	// Handlers
	authHandler := NewAuthHandler(services, log)
	submissionHandler := NewSubmissionHandler(services, cfg, log)
	catalogHandler := NewCatalogHandler(services, log)
	billingHandler := NewBillingHandler(services, log)
	exportHandler := NewExportHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(deps.Hub, deps.DB))
	if deps.Metrics != nil {
		router.GET("/metrics", deps.Metrics.Handler())
	}
	if deps.Hub != nil {
		router.GET("/ws", auth.OptionalAuth(deps.Tokens), notify.WSHandler(deps.Hub, cfg.Server.AllowedOrigin))
	}

	api := router.Group("/api")
	api.Use(auth.OptionalAuth(deps.Tokens))
	{
		account := api.Group("/auth")
		{
			account.POST("/register/", authHandler.Register)
			account.POST("/token/", authHandler.Token)
			account.GET("/me/", auth.RequireAuth(deps.Tokens), authHandler.Me)
		}

		submissions := api.Group("/submissions")
		{
			submissions.GET("/", submissionHandler.List)
			submissions.POST("/", auth.RequireAuth(deps.Tokens), submissionHandler.Create)
			submissions.GET("/:id/", submissionHandler.Get)
			submissions.PATCH("/:id/", auth.RequireAuth(deps.Tokens), submissionHandler.Patch)
			submissions.DELETE("/:id/", auth.RequireAuth(deps.Tokens), submissionHandler.Delete)
			submissions.POST("/:id/withdraw/", auth.RequireAuth(deps.Tokens), submissionHandler.Withdraw)
			submissions.GET("/:id/history/", submissionHandler.History)
			submissions.GET("/:id/certificate/", submissionHandler.Certificate)
			submissions.POST("/:id/analysis/", auth.RequireAuth(deps.Tokens), submissionHandler.Analysis)
		}

		api.GET("/journals/", catalogHandler.Journals)
		api.GET("/journals/:slug/", catalogHandler.Journal)
		api.GET("/plans/", catalogHandler.Plans)
		api.POST("/catalog/import", auth.RequireAuth(deps.Tokens), catalogHandler.Import)

		billing := api.Group("/billing")
		{
			billing.GET("/estimate/", submissionHandler.Estimate)
			billing.GET("/my-subscription/", auth.RequireAuth(deps.Tokens), billingHandler.MySubscription)
			billing.POST("/subscribe/", auth.RequireAuth(deps.Tokens), billingHandler.Subscribe)
			billing.GET("/transactions/", auth.RequireAuth(deps.Tokens), billingHandler.Transactions)
			billing.POST("/adjust-balance/", auth.RequireAuth(deps.Tokens), billingHandler.AdjustBalance)
		}
		api.GET("/finance/summary/", auth.RequireAuth(deps.Tokens), billingHandler.FinanceSummary)

		api.GET("/exports/submissions", auth.RequireAuth(deps.Tokens), exportHandler.StreamSubmissions)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(hub *notify.Hub, db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "journal-submission-api",
		}
		if hub != nil {
			body["notifications"] = hub.Stats()
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["database"] = err.Error()
			} else {
				body["database"] = "ok"
			}
		}
		c.JSON(status, body)
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   codeInternal,
					"message": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// requestIDMiddleware propagates or assigns an X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString("request_id")).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
