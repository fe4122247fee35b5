package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ivis-ai/rag-gateway/config"
	"github.com/ivis-ai/rag-gateway/internal/adapters/bus"
	"github.com/ivis-ai/rag-gateway/internal/adapters/devauth"
	"github.com/ivis-ai/rag-gateway/internal/adapters/oidc"
	"github.com/ivis-ai/rag-gateway/internal/adapters/ws"
	"github.com/ivis-ai/rag-gateway/internal/core"
	"github.com/ivis-ai/rag-gateway/internal/data"
	"github.com/ivis-ai/rag-gateway/internal/observability/statsd"
	"github.com/ivis-ai/rag-gateway/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Dispatch *service.DispatchService
	Results  *service.ResultService
	Push     *service.PushService
	History  *service.ChatHistoryService
	Registry *service.SessionRegistry
	Consumer *bus.Runner
	Verifier core.TokenVerifier
	WS       *ws.Handler
	Cache    *data.RedisCacheRepo
	Metrics  *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the dispatch/consume/poll/push pipeline from shared
// infrastructure. The context is used for OIDC discovery only.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	metricsSink := buildMetricsSink(logger, cfg.Observability)

	cacheRepo := data.NewRedisCacheRepo(deps.RedisClient)
	results := core.NewResultStore(core.ResultStoreOptions{
		Cache: cacheRepo,
		TTL:   cfg.Cache.ResultTTL,
	})
	bindings := core.NewBindingStore(core.BindingStoreOptions{
		Cache: cacheRepo,
		TTL:   cfg.Cache.BindingTTL,
	})

	registry := service.NewSessionRegistry()

	pushSvc := service.NewPushService(service.PushServiceOptions{
		Bindings: bindings,
		Registry: registry,
		Logger:   logger,
		Metrics:  metricsSink,
	})

	var historySvc *service.ChatHistoryService
	if deps.DB != nil {
		historySvc = service.NewChatHistoryService(service.ChatHistoryServiceOptions{
			Repo:     data.NewChatHistoryRepo(deps.DB),
			Bindings: bindings,
			Logger:   logger,
		})
	}

	producer := bus.NewStreamProducer(bus.StreamProducerOptions{
		Client:       deps.RedisClient,
		MaxStreamLen: cfg.Bus.MaxStreamLen,
	})

	dispatchSvc := service.NewDispatchService(service.DispatchServiceOptions{
		Publisher: producer,
		Bindings:  bindings,
		Logger:    logger,
		Metrics:   metricsSink,
	})

	resultSvc := service.NewResultService(service.ResultServiceOptions{
		Results: results,
	})

	verifier, err := buildVerifier(ctx, cfg.Auth, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	container := ServiceContainer{
		Dispatch: dispatchSvc,
		Results:  resultSvc,
		Push:     pushSvc,
		History:  historySvc,
		Registry: registry,
		Verifier: verifier,
		Cache:    cacheRepo,
		Metrics:  metricsSink,
	}

	if cfg.IsHTTPServerEnabled() {
		container.WS = ws.NewHandler(ws.HandlerOptions{
			Registry: registry,
			Logger:   logger,
			Metrics:  metricsSink,
		})
	}

	if cfg.IsConsumerEnabled() {
		runnerOpts := bus.RunnerOptions{
			Client:   deps.RedisClient,
			Results:  results,
			Config:   cfg.Bus,
			Notifier: pushSvc,
			Logger:   logger,
			Metrics:  metricsSink,
		}
		if historySvc != nil {
			runnerOpts.Recorder = historySvc
		}
		container.Consumer = bus.NewRunner(runnerOpts)
	}

	return container, nil
}

// buildMetricsSink configures the StatsD client. Emission failures are
// logged, never fatal; a nil client swallows every call.
func buildMetricsSink(logger *slog.Logger, cfg config.ObservabilityConfig) *statsd.Client {
	if !cfg.Metrics.IsEnabled() {
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  "raggw",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// buildVerifier picks the token verifier for the configured auth mode.
//
//nolint:ireturn // the caller only needs the TokenVerifier port.
func buildVerifier(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) (core.TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeOIDC:
		provider, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:  cfg.OIDC.ClientID,
			IssuerURL: cfg.OIDC.IssuerURL,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise oidc verifier: %w", err)
		}
		return provider, nil
	case config.AuthModeMock:
		logger.Warn("auth running in mock mode, every caller gets the dev identity")
		provider, err := devauth.NewProvider(devauth.Config{
			Subject: cfg.DevAuth.Subject,
			Email:   cfg.DevAuth.Email,
		})
		if err != nil {
			return nil, fmt.Errorf("initialise dev verifier: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %q", cfg.Mode)
	}
}

// ServiceOrchestrationConfig groups dependencies for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts the enabled services and blocks until a
// shutdown signal arrives or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Config.IsHTTPServerEnabled() {
		server := StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
		group.Go(func() error {
			<-groupCtx.Done()
			return ShutdownHTTPServer(ShutdownConfig{
				Context: context.Background(),
				Server:  server,
				Logger:  logger,
			})
		})
	}

	if cfg.Config.IsConsumerEnabled() && cfg.Services.Consumer != nil {
		group.Go(func() error {
			logger.Info("starting result consumer")
			if err := cfg.Services.Consumer.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("result consumer: %w", err)
			}
			return nil
		})
	}

	err := group.Wait()

	if cfg.Services.Metrics != nil {
		if cerr := cfg.Services.Metrics.Close(); cerr != nil {
			logger.Error("close statsd client failed", "error", cerr)
		}
	}

	return err
}
