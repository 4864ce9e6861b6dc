package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/swarmlens/backend/internal/api/http"
	"github.com/swarmlens/backend/internal/api/middleware"
	"github.com/swarmlens/backend/internal/api/ws"
	"github.com/swarmlens/backend/internal/domain/stage"
	"github.com/swarmlens/backend/internal/domain/swarm"
	"github.com/swarmlens/backend/internal/feed"
	"github.com/swarmlens/backend/internal/infrastructure/config"
	"github.com/swarmlens/backend/internal/infrastructure/logging"
	"github.com/swarmlens/backend/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpSrv    *http.Server
	store      *swarm.Store
	queue      *stage.Queue
	bridge     *ws.Bridge
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	pollCancel context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing swarmlens backend",
		zap.String("port", cfg.Server.Port),
		zap.Int("stage_min_display_ms", cfg.Stage.MinDisplayMs),
		zap.Bool("feed_poll", cfg.Feed.PollEnabled),
	)

	metrics := monitoring.NewMetrics()

	// Renderer bridge, guarded by a circuit breaker so a wedged client
	// cannot stall every queued intent on a full ack timeout
	bridge := ws.NewBridge(
		time.Duration(cfg.Stage.AckTimeoutMs)*time.Millisecond,
		logger,
	).WithMetrics(metrics)
	renderer := stage.NewGuardedRenderer(bridge, logger)

	queue := stage.NewQueue(stage.Config{
		MinDisplay:      time.Duration(cfg.Stage.MinDisplayMs) * time.Millisecond,
		TransitionDelay: time.Duration(cfg.Stage.TransitionDelayMs) * time.Millisecond,
		MaxPending:      cfg.Stage.MaxPending,
	}, renderer, logger).WithMetrics(metrics)

	store := swarm.NewStore(queue).WithMetrics(metrics)

	ingest := ws.NewIngest(store, queue, logger).WithMetrics(metrics)
	handlers := apihttp.NewHandlers(store, queue, metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Agent mirror
	router.GET("/agents", handlers.ListAgents)
	router.GET("/agents/:id", handlers.GetAgent)
	router.GET("/swarm/stats", handlers.SwarmStats)

	// Stage control
	router.GET("/stage/status", handlers.StageStatus)
	router.POST("/stage/clear", handlers.StageClear)
	router.POST("/stage/force-stop", handlers.StageForceStop)
	router.GET("/stage/config", handlers.GetStageConfig)
	router.PUT("/stage/config", handlers.UpdateStageConfig)

	// WebSocket boundaries
	router.GET("/stage/stream", bridge.HandleRenderer)
	router.GET("/ingest", ingest.HandleFeed)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	srv := &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: router,
		},
		store:   store,
		queue:   queue,
		bridge:  bridge,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}

	if cfg.Feed.PollEnabled && cfg.Feed.PollURL != "" {
		poller := feed.NewPoller(
			cfg.Feed.PollURL,
			time.Duration(cfg.Feed.PollIntervalMs)*time.Millisecond,
			store,
			logger,
		)
		ctx, cancel := context.WithCancel(context.Background())
		srv.pollCancel = cancel
		go poller.Run(ctx)
	}

	logger.Info("Server initialized successfully")
	return srv, nil
}

// Run starts the HTTP server and blocks until Close is called or the
// listener fails
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server, letting in-flight requests finish
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.pollCancel != nil {
		s.pollCancel()
	}
	s.queue.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP shutdown error", zap.Error(err))
	}

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
