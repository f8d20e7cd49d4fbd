package ui

import (
	"context"
	"net/http"
	"time"

	"termarea/app"
	"termarea/internal"
	"termarea/ports"

	"github.com/gin-gonic/gin"
)

// Server exposes report jobs over HTTP
type Server struct {
	router  *gin.Engine
	reports *app.ReportService
	tracker ports.JobTracker
	logger  *internal.Logger
}

// NewServer creates the HTTP surface for the report service
func NewServer(reports *app.ReportService, tracker ports.JobTracker, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  gin.New(),
		reports: reports,
		tracker: tracker,
		logger:  logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the routed engine
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[http] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	})
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/reports")
	api.POST("", s.handleCreateReport)
	api.GET("/:id", s.handleGetReport)
	api.GET("/:id/download", s.handleDownloadReport)
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}
