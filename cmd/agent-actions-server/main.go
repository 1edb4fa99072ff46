package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/api"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/audit"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/dispatch"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/ratelimit"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/store"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/tools"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("AGENT_ACTIONS_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("AGENT_ACTIONS_HTTP_PORT", "8086")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	signingKey := os.Getenv("SESSION_SIGNING_KEY")
	authCacheTTL := envOrDefaultInt("AGENT_ACTIONS_AUTH_CACHE_TTL_S", 30)
	sweepInterval := envOrDefaultInt("AGENT_ACTIONS_SWEEP_INTERVAL_S", 60)

	if postgresDSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}
	if signingKey == "" {
		logger.Fatal("SESSION_SIGNING_KEY is required")
	}

	tiers := ratelimit.DefaultTiers()
	tiers.Individual.Ceiling = envOrDefaultInt("AGENT_ACTIONS_RL_INDIVIDUAL_CEILING", tiers.Individual.Ceiling)
	tiers.Business.Ceiling = envOrDefaultInt("AGENT_ACTIONS_RL_BUSINESS_CEILING", tiers.Business.Ceiling)
	tiers.Default.Ceiling = envOrDefaultInt("AGENT_ACTIONS_RL_DEFAULT_CEILING", tiers.Default.Ceiling)
	tiers.Individual.Window = envOrDefaultSeconds("AGENT_ACTIONS_RL_INDIVIDUAL_WINDOW_S", tiers.Individual.Window)
	tiers.Business.Window = envOrDefaultSeconds("AGENT_ACTIONS_RL_BUSINESS_WINDOW_S", tiers.Business.Window)
	tiers.Default.Window = envOrDefaultSeconds("AGENT_ACTIONS_RL_DEFAULT_WINDOW_S", tiers.Default.Window)

	logger.Info("starting agent actions server",
		zap.String("http_port", httpPort),
		zap.Int("rl_individual_ceiling", tiers.Individual.Ceiling),
		zap.Int("rl_business_ceiling", tiers.Business.Ceiling),
	)

	// Postgres pool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pg, err := store.Connect(ctx, postgresDSN)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	logger.Info("postgres connected")

	// Audit sink — ClickHouse or LogWriter fallback
	var writer audit.Writer
	if clickhouseDSN != "" {
		chWriter, err := audit.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = audit.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = audit.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Rate limiter with background expiry sweep
	limiter := ratelimit.NewLimiter()
	stopSweep := make(chan struct{})
	defer close(stopSweep)
	limiter.StartSweeper(time.Duration(sweepInterval)*time.Second, stopSweep)

	// Caller context extraction
	extractor := identity.NewExtractor(identity.ExtractorConfig{
		SigningKey: []byte(signingKey),
		Directory:  pg,
		CacheTTL:   time.Duration(authCacheTTL) * time.Second,
		Logger:     logger,
	})

	// Catalog + dispatcher
	registry := tools.NewRegistry()
	dispatcher, err := dispatch.NewDispatcher(
		registry,
		limiter,
		tiers,
		func(caller *identity.CallerContext) tools.Store { return pg.Scoped(caller) },
		writer,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatcher configuration invalid", zap.Error(err))
	}

	deps := &api.Dependencies{
		Dispatcher: dispatcher,
		Extractor:  extractor,
		Logger:     logger,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("agent actions server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envOrDefaultSeconds(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return defaultVal
}
