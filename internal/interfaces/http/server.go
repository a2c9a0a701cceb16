// Package http exposes the analyzer over a REST API: DVH file upload and
// analysis, result listing and download, health and metrics endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivszhuravlev/rt-bioeval/internal/application/analysis"
	"github.com/ivszhuravlev/rt-bioeval/internal/config"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/dvhfile"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/prometheus"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// Server serves the REST API.  Construct with NewServer, then Start and
// Stop around the process lifetime.
type Server struct {
	cfg         config.ServerConfig
	pipelineCfg config.PipelineConfig

	parser   *dvhfile.Parser
	analyzer *analysis.Analyzer
	metrics  *prometheus.Metrics
	logger   logging.Logger

	engine *gin.Engine
	srv    *http.Server
}

// NewServer wires the API server.  Metrics may be nil; the /metrics route
// is only mounted when a collector is present.
func NewServer(cfg config.ServerConfig, pipelineCfg config.PipelineConfig,
	parser *dvhfile.Parser, analyzer *analysis.Analyzer,
	metrics *prometheus.Metrics, logger logging.Logger) (*Server, error) {
	if parser == nil || analyzer == nil {
		return nil, errors.Configuration("server requires a parser and an analyzer")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	gin.SetMode(ginMode(cfg.Mode))
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		pipelineCfg: pipelineCfg,
		parser:      parser,
		analyzer:    analyzer,
		metrics:     metrics,
		logger:      logger.Named("http"),
		engine:      engine,
	}
	s.registerRoutes()

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func ginMode(mode string) string {
	switch mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

func (s *Server) registerRoutes() {
	s.engine.Use(s.requestLogger())

	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.engine.Group("/api/v1")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/results", s.handleListResults)
	api.GET("/results/:name", s.handleDownloadResult)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
