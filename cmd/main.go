package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duynhne/user-management/config"
	database "github.com/duynhne/user-management/internal/core"
	"github.com/duynhne/user-management/internal/core/domain"
	"github.com/duynhne/user-management/internal/core/repository/memory"
	"github.com/duynhne/user-management/internal/core/repository/psql"
	logicv1 "github.com/duynhne/user-management/internal/logic/v1"
	v1 "github.com/duynhne/user-management/internal/web/v1"
	"github.com/duynhne/user-management/middleware"
)

func main() {
	// Load configuration from environment variables (with .env file support for local dev)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	logger.Info("Service starting",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("env", cfg.Service.Env),
		zap.String("port", cfg.Service.Port),
		zap.String("storage", cfg.Database.Backend),
	)

	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		tp, err = middleware.InitTracing(cfg)
		if err != nil {
			logger.Warn("Failed to initialize tracing", zap.Error(err))
			tp = nil
		} else {
			logger.Info("Tracing initialized",
				zap.String("endpoint", cfg.Tracing.Endpoint),
				zap.Float64("sample_rate", cfg.Tracing.SampleRate),
			)
		}
	} else {
		logger.Info("Tracing disabled (TRACING_ENABLED=false)")
	}

	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg, logger); err != nil {
			logger.Warn("Failed to initialize profiling", zap.Error(err))
		} else {
			logger.Info("Profiling initialized", zap.String("endpoint", cfg.Profiling.Endpoint))
			defer middleware.StopProfiling()
		}
	} else {
		logger.Info("Profiling disabled (PROFILING_ENABLED=false)")
	}

	repo, closeStore := openRepository(cfg, logger)
	defer closeStore()

	service := logicv1.NewUserService(repo)
	handler := v1.NewUserHandler(service)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	var isShuttingDown atomic.Bool
	r := newRouter(cfg, logger, handler, &isShuttingDown)

	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           v1.TrimTrailingSlash(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting user service", zap.String("port", cfg.Service.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Fail readiness first and wait for propagation.
	isShuttingDown.Store(true)
	if drainDelay := cfg.ReadinessDrainDelay; drainDelay > 0 {
		logger.Info("Readiness drain delay started", zap.Duration("delay", drainDelay))
		time.Sleep(drainDelay)
	}

	shutdownTimeout := cfg.ShutdownTimeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server...", zap.Duration("timeout", shutdownTimeout))

	// HTTP server, then storage, then tracer.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server shutdown complete")
	}

	closeStore()

	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Tracer shutdown error", zap.Error(err))
		} else {
			logger.Info("Tracer shutdown complete")
		}
	}

	logger.Info("Graceful shutdown complete")
}

// newRouter assembles the middleware chain and every route.
func newRouter(cfg *config.Config, logger *zap.Logger, handler *v1.UserHandler, shuttingDown *atomic.Bool) *gin.Engine {
	r := gin.New()
	// Trailing slashes are trimmed before routing (v1.TrimTrailingSlash).
	r.RedirectTrailingSlash = false

	// Tracing first for context propagation, logging before recovery so
	// panics are logged with the request's trace id. Metrics sit outside
	// recovery so a recovered panic is counted as a 500.
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.LoggingMiddleware(logger))
	if cfg.Metrics.Enabled {
		r.Use(middleware.PrometheusMiddleware())
	}
	r.Use(v1.Recovery(!cfg.IsProduction()))
	r.Use(cors.New(corsConfig(cfg.CORS)))

	v1.NewSystemHandler(cfg.Service.Name, cfg.Service.Version, shuttingDown).Register(r)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	v1.RegisterUserRoutes(r, handler)
	r.NoRoute(v1.NotFound)

	return r
}

// openRepository builds the configured storage backend. The returned close
// func is safe to call more than once.
func openRepository(cfg *config.Config, logger *zap.Logger) (domain.UserRepository, func()) {
	if cfg.Database.Backend == config.BackendMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewUserRepository(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connection pool established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
		zap.Int("max_connections", cfg.Database.MaxConnections),
	)

	if cfg.Database.InitSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			logger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		logger.Info("Database schema ready")
	}

	if cfg.Metrics.Enabled {
		prometheus.MustRegister(middleware.NewPoolStatsCollector(db.Stats))
	}

	var closed atomic.Bool
	return psql.NewUserRepository(db.SQL()), func() {
		if !closed.CompareAndSwap(false, true) {
			return
		}
		if err := db.Close(); err != nil {
			logger.Error("Database close error", zap.Error(err))
			return
		}
		logger.Info("Database pool closed")
	}
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.TraceIDHeader, middleware.TraceParentHeader},
		ExposeHeaders: []string{middleware.TraceIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if c.AllowAll() {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}
