// Package api serves the scoring pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"depression-risk-service/internal/artifacts"
	"depression-risk-service/internal/common/config"
	"depression-risk-service/internal/common/logger"
	"depression-risk-service/internal/common/observability"
	"depression-risk-service/internal/common/validation"
)

const defaultMaxBodyBytes = 64 << 10

// Dependencies are the collaborators the HTTP transport needs.
type Dependencies struct {
	Store     *artifacts.Store
	Scorer    Scorer // defaults to Store.Pipeline()
	Validator *validation.Validator
	Obs       *observability.Observability
	Logger    logger.Logger
}

// Server owns the gin engine and the underlying http.Server.
type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
	http   *http.Server
	logger logger.Logger
	ready  atomic.Bool
}

// NewServer builds the router. The server reports ready as soon as it is
// created; SetReady(false) is used while draining.
func NewServer(cfg config.ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("api: artifact store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Obs == nil {
		deps.Obs = observability.Noop()
	}
	if deps.Scorer == nil {
		deps.Scorer = deps.Store.Pipeline()
	}
	if deps.Validator == nil {
		v, err := validation.NewAssessmentValidator()
		if err != nil {
			return nil, err
		}
		deps.Validator = v
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins
	}

	s := &Server{cfg: cfg, logger: deps.Logger}
	s.ready.Store(true)

	h := &handler{
		store:        deps.Store,
		scorer:       deps.Scorer,
		validator:    deps.Validator,
		obs:          deps.Obs,
		logger:       deps.Logger,
		maxBodyBytes: maxBody,
		ready:        s.ready.Load,
	}

	engine := gin.New()
	engine.Use(RequestID(), Recovery(deps.Logger), AccessLog(deps.Logger), CORS(origins))

	engine.POST("/predict", h.predict)
	engine.GET("/model", h.model)
	engine.GET("/health", h.health)
	engine.GET("/ready", h.readiness)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	s.http = &http.Server{
		Addr:         cfg.Address(),
		Handler:      engine,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server unready and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)
	return s.http.Shutdown(ctx)
}
