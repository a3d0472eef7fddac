// Package server exposes the pipeline over HTTP: quiz submission,
// purchase consultation, and a health probe. Transport concerns only;
// every decision is made by the workflow engine behind the Runner
// interface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bobaba99/truepick/internal/config"
	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/store"
	"github.com/bobaba99/truepick/internal/types"
	"github.com/bobaba99/truepick/internal/workflow"
)

// Runner abstracts the workflow engine so handlers can be tested without
// live providers.
type Runner interface {
	Run(ctx context.Context, input workflow.Input) (*workflow.PipelineState, error)
}

// ProfileSaver is the slice of profile persistence the quiz endpoint
// needs.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, userID string, profile types.PsychographicProfile) error
}

// ProviderNames carries the configured provider identities for the
// health body.
type ProviderNames struct {
	Reasoner  string `json:"reasoner"`
	Embedding string `json:"embedding"`
}

// Server routes HTTP traffic into the pipeline.
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	runner   Runner
	profiles ProfileSaver
	store    store.VectorStore
	names    ProviderNames
}

// New wires the routes. gin runs in release mode with recovery plus the
// category request logger; gin's own writer stays silent.
func New(cfg *config.Config, runner Runner, profiles ProfileSaver, vs store.VectorStore, names ProviderNames) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		runner:   runner,
		profiles: profiles,
		store:    vs,
		names:    names,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.POST("/quiz", s.handleQuiz)
	router.POST("/consult", s.handleConsult)
	router.GET("/health", s.handleHealth)
	s.router = router
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests
// within the configured shutdown window.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.Server("Listening on %s", srv.Addr)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}
	logging.Server("Server drained")
	return nil
}

// requestLogger writes one line per request through the server category.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Server("%s %s -> %d (%v)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
