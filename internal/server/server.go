package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/monitoring"
	"github.com/codeweld/mergebot/internal/session"
	"github.com/codeweld/mergebot/internal/stream"
)

// Config contains ops server configuration.
type Config struct {
	Port      string
	RateLimit RateLimitConfig
}

// Server exposes the operational HTTP surface: health and status
// probes, Prometheus metrics, and a WebSocket feed of live build
// output. It never touches the chat transport.
type Server struct {
	router   *gin.Engine
	store    *session.Store
	hub      *stream.Hub
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	httpSrv  *http.Server
	started  time.Time
	gatherer prometheus.Gatherer
}

// New creates an ops server. gatherer serves /metrics; pass the
// registry the metrics were created with.
func New(cfg Config, store *session.Store, hub *stream.Hub, metrics *monitoring.Metrics, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORS(DefaultCORSConfig()))
	router.Use(RateLimit(cfg.RateLimit))
	router.Use(monitoring.Middleware(metrics))

	s := &Server{
		router:   router,
		store:    store,
		hub:      hub,
		metrics:  metrics,
		logger:   logger,
		started:  time.Now(),
		gatherer: gatherer,
	}

	router.GET("/", s.root)
	router.GET("/health", s.health)
	router.GET("/status", s.status)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/ws/builds", s.handleBuildStream)

	s.httpSrv = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", zap.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "mergebot",
		"status":  "running",
	})
}

func (s *Server) health(c *gin.Context) {
	s.metrics.UpdateUptime()
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (s *Server) status(c *gin.Context) {
	s.metrics.UpdateUptime()
	c.JSON(http.StatusOK, gin.H{
		"sessions_active":    s.store.Len(),
		"stream_subscribers": s.hub.Subscribers(),
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
	})
}
