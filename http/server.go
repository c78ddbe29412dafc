// Package http serves the prediction form, the JSON API and the live channel.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"forestcover/config"
	"forestcover/db"
	"forestcover/ml"
	"forestcover/monitoring"
)

// History is the subset of the prediction store the handlers use.
type History interface {
	Save(ctx context.Context, r db.Record) error
	Recent(ctx context.Context, limit int) ([]db.Record, error)
	CountByCoverType(ctx context.Context) (map[string]int, error)
}

// Dependencies are the load-once pieces a Server needs. History may be nil;
// Metrics and Logger get defaults when nil.
type Dependencies struct {
	Predictor *ml.Predictor
	History   History
	Metrics   *monitoring.MetricsCollector
	Logger    *zap.Logger
}

type Server struct {
	server  *http.Server
	handler http.Handler
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Predictor == nil {
		return nil, fmt.Errorf("new server: %w", ml.ErrNotLoaded)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetricsCollector()
	}
	describeMetrics(deps.Metrics)

	page, err := newPage(cfg.UI)
	if err != nil {
		return nil, err
	}
	h := &handlers{
		predictor: deps.Predictor,
		history:   deps.History,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		page:      page,
		upgrader:  newUpgrader(cfg.HTTP.AllowedOrigins),
	}

	mux := http.NewServeMux()
	h.register(mux)

	chain := Chain(
		RecoveryMiddleware(deps.Logger),
		LoggerMiddleware(deps.Logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.HTTP.AllowedOrigins),
		RequestSizeMiddleware(cfg.HTTP.MaxBodyBytes),
		GzipMiddleware,
	)
	// The live channel hijacks the connection, so it skips compression and
	// the body limit.
	liveChain := Chain(
		RecoveryMiddleware(deps.Logger),
		LoggerMiddleware(deps.Logger),
	)

	root := http.NewServeMux()
	root.Handle("GET /api/live", liveChain(http.HandlerFunc(h.handleLive)))
	root.Handle("/", chain(mux))

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      root,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  120 * time.Second,
		},
		handler: root,
		logger:  deps.Logger,
	}, nil
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
