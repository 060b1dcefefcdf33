package main

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
	"github.com/sirupsen/logrus"

	"github.com/irfndi/arbscan/internal/api"
	"github.com/irfndi/arbscan/internal/api/handlers"
	"github.com/irfndi/arbscan/internal/cache"
	"github.com/irfndi/arbscan/internal/config"
	"github.com/irfndi/arbscan/internal/database"
	"github.com/irfndi/arbscan/internal/exchange"
	"github.com/irfndi/arbscan/internal/logging"
	"github.com/irfndi/arbscan/internal/refdata"
	"github.com/irfndi/arbscan/internal/services"
	"github.com/irfndi/arbscan/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	if cfg.Telemetry.Enabled && cfg.Telemetry.ExportLogs {
		shutdownLogs, err := logging.InstallOTLPHook(ctx, logger, cfg.Telemetry.OTLPEndpoint, provider.Resource())
		if err != nil {
			logger.WithError(err).Warn("Log export disabled")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownLogs(shutdownCtx)
			}()
		}
	}

	var redisClient *database.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisConnection(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
	}

	ref, err := refdata.LoadFile(cfg.Reference.DataFile)
	if err != nil {
		return err
	}
	chains, statuses, collisions := ref.Counts()
	logger.WithFields(logrus.Fields{
		"chains":     chains,
		"statuses":   statuses,
		"collisions": collisions,
	}).Info("Reference data loaded")

	blacklist, refreshers, err := loadDenylists(ctx, cfg.Reference, redisClient, logger)
	if err != nil {
		return err
	}

	client := exchange.NewClient(clientConfig(cfg.Exchanges), logger)
	registry, err := exchange.NewRegistry(client, cfg.Exchanges)
	if err != nil {
		return fmt.Errorf("failed to build exchange registry: %w", err)
	}
	logger.WithField("exchanges", registry.Names()).Info("Exchange adapters ready")

	breakers := services.NewCircuitBreakerManager(services.CircuitBreakerConfig{
		FailureThreshold: cfg.Exchanges.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.Exchanges.CircuitBreaker.SuccessThreshold,
		OpenTimeout:      cfg.Exchanges.CircuitBreaker.OpenTimeout,
	}, logger)

	collector := services.NewCollectorService(registry.Adapters(), breakers, logger)
	pipeline := services.NewPipeline(cfg.Scanner, blacklist, ref, ref, logger)
	notifier := newNotifier(cfg.Telegram, logger)

	scanner := services.NewScannerService(cfg.Scanner, collector, pipeline, notifier, breakers, logger)
	if cfg.Scanner.ConsoleReport {
		scanner.SetConsoleReporter(services.NewConsoleReporter(os.Stdout, cfg.Scanner.MinNetSpreadPct))
	}
	for _, r := range refreshers {
		scanner.AddRefresher(r)
	}

	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer scanner.Stop()

	var srv *http.Server
	serverErr := make(chan error, 1)
	if cfg.Server.Enabled {
		srv = newHTTPServer(cfg, scanner, redisClient, logger)
		go func() {
			logger.WithFields(logrus.Fields{
				"service": cfg.Telemetry.ServiceName,
				"version": telemetry.ServiceVersion,
				"port":    cfg.Server.Port,
			}).Info("Application startup")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server forced to shutdown")
		}
	}
	return nil
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	tc := *telemetry.DefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Environment = cfg.Environment
	if cfg.Telemetry.ServiceName != "" {
		tc.ServiceName = cfg.Telemetry.ServiceName
	}
	if cfg.Telemetry.Exporter != "" {
		tc.Exporter = cfg.Telemetry.Exporter
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	return tc
}

func clientConfig(cfg config.ExchangesConfig) exchange.ClientConfig {
	return exchange.ClientConfig{
		Timeout:        cfg.RequestTimeout,
		UserAgent:      cfg.UserAgent,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		Multiplier:     cfg.Retry.Multiplier,
	}
}

// loadDenylists combines the flat-file blacklist with the shared Redis set
// when one is configured. The Redis list is primed before the first cycle.
func loadDenylists(ctx context.Context, cfg config.ReferenceConfig, redisClient *database.RedisClient, logger logrus.FieldLogger) (cache.SymbolDenylist, []services.DenylistRefresher, error) {
	file, err := cache.LoadBlacklistFile(cfg.BlacklistFile, logger)
	if err != nil {
		return nil, nil, err
	}
	lists := cache.CompositeDenylist{file}
	var refreshers []services.DenylistRefresher

	if cfg.UseRedis {
		if redisClient == nil {
			logger.Warn("reference.use_redis is set but redis is disabled, using the file blacklist only")
			return lists, nil, nil
		}
		shared := cache.NewRedisSymbolDenylist(redisClient.Client, cfg.RedisKey, logger)
		if err := shared.Refresh(ctx); err != nil {
			logger.WithError(err).Warn("Initial shared blacklist refresh failed")
		} else {
			logger.WithFields(logrus.Fields{"key": cfg.RedisKey, "symbols": shared.GetStats().Entries}).Info("Shared blacklist loaded")
		}
		lists = append(lists, shared)
		refreshers = append(refreshers, shared)
	}
	return lists, refreshers, nil
}

func newNotifier(cfg config.TelegramConfig, logger logrus.FieldLogger) *services.NotificationService {
	if !cfg.TelegramEnabled() {
		logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, alerting disabled")
		return nil
	}
	sink, err := services.NewTelegramSink(cfg)
	if err != nil {
		logger.WithError(err).Warn("Telegram sink unavailable, alerting disabled")
		return nil
	}
	return services.NewNotificationService(sink, logger)
}

func newHTTPServer(cfg *config.Config, scanner api.Scanner, redisClient *database.RedisClient, logger logrus.FieldLogger) *http.Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(cfg.Telemetry.ServiceName, logger)

	var health handlers.HealthChecker
	if redisClient != nil {
		health = redisClient
	}
	api.SetupRoutes(router, scanner, health)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
}
