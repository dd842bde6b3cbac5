// Package api exposes the brief service as an HTTP JSON API.
//
// Every route under /api requires the identity headers read by
// IdentityMiddleware. Failures are rendered by writeError with a redirect
// flag so that surfaces can navigate away on not-found and access-denied
// instead of rendering partial content.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/briefs/internal/workflow"
)

// Server is the HTTP front of a workflow.Service.
type Server struct {
	svc      *workflow.Service
	router   *gin.Engine
	logger   *slog.Logger
	validate *validator.Validate
}

// NewServer builds the router for svc. A nil logger uses slog.Default().
func NewServer(svc *workflow.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		svc:      svc,
		router:   router,
		logger:   logger,
		validate: validator.New(),
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", IdentityMiddleware(s.validate))
	{
		api.GET("/briefs", s.handleList)
		api.POST("/briefs", s.handleCreate)
		api.POST("/briefs/import", s.handleImport)
		api.GET("/briefs/:id", s.handleGet)
		api.DELETE("/briefs/:id", s.handleDelete)

		api.GET("/briefs/:id/transitions", s.handleTransitions)
		api.POST("/briefs/:id/transitions", s.handleTransition)
		api.GET("/briefs/:id/history", s.handleHistory)

		api.PUT("/briefs/:id/fields", s.handleFieldEdit)
		api.POST("/briefs/:id/fields/mark", s.handleMark)
		api.PUT("/briefs/:id/notes", s.handleNote)

		api.GET("/briefs/:id/audit", s.handleAudit)
		api.GET("/briefs/:id/completion", s.handleCompletion)
		api.GET("/briefs/:id/signals", s.handleSignals)

		api.POST("/briefs/:id/reviews", s.handleOpenReview)
	}

	reviews := api.Group("/reviews/:sid")
	{
		reviews.GET("", s.handleReviewState)
		reviews.DELETE("", s.handleCloseReview)
		reviews.POST("/confirm", s.handleReviewConfirm)
		reviews.POST("/edit", s.handleReviewEdit)
		reviews.POST("/view", s.handleReviewView)
		reviews.POST("/editor", s.handleReviewEditor)
		reviews.PUT("/notes", s.handleReviewNote)
		reviews.POST("/save", s.handleReviewSave)
		reviews.POST("/submit", s.handleReviewSubmit)
	}

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
