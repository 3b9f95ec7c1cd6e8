package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayhq/relay/internal/config"
	"github.com/relayhq/relay/internal/logging"
	"github.com/relayhq/relay/internal/monitoring"
	"github.com/relayhq/relay/internal/netexec"
	"github.com/relayhq/relay/internal/script/engine"
)

// Server wraps the debug HTTP server and its dependencies
type Server struct {
	router   *gin.Engine
	engine   *engine.Engine
	executor *netexec.Executor
	logger   *logging.Logger
	registry *prometheus.Registry
}

// NewServer creates a debug server instance
func NewServer(cfg *config.Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefault()
	}
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	s := &Server{
		engine:   engine.New(cfg.Engine, logger, metrics),
		executor: netexec.New(cfg.HTTP, logger),
		logger:   logger.Named("server"),
		registry: registry,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.POST("/run", s.runScript)

	s.router = router
	return s
}

// Run starts listening on addr
func (s *Server) Run(addr string) error {
	s.logger.Info("debug server listening")
	return s.router.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
