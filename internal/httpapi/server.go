// Package httpapi exposes the catalog and the compatibility rules over JSON.
// The server keeps no selection state: every request carries the selection
// it wants evaluated.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kingrea/coursepick/internal/catalog"
	"github.com/kingrea/coursepick/internal/selection"
)

// Server holds the state for the HTTP server.
type Server struct {
	addr      string
	catalog   *catalog.Catalog
	evaluator selection.Evaluator
	logger    *zap.Logger
	router    *gin.Engine
	http      *http.Server
}

// NewServer builds the router for cat.
func NewServer(addr string, cat *catalog.Catalog, limit int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:      addr,
		catalog:   cat,
		evaluator: selection.New(cat, limit),
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	router.GET("/healthz", s.health)
	api := router.Group("/api")
	{
		api.GET("/courses", s.listCourses)
		api.GET("/courses/:code", s.getCourse)
		api.POST("/evaluate", s.evaluate)
		api.POST("/apply", s.apply)
	}
	return router
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.addr), zap.Int("courses", s.catalog.Len()))
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignals)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpapi: listen: %w", err)
		}
		return nil
	case sig := <-osSignals:
		s.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
