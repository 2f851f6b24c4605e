package app

import (
	"context"
	"fmt"

	"github.com/kapu/kfp-startpage/internal/broadcast"
	"github.com/kapu/kfp-startpage/internal/config"
	"github.com/kapu/kfp-startpage/internal/constants"
	"github.com/kapu/kfp-startpage/internal/kfp"
	"github.com/kapu/kfp-startpage/internal/samples"
	"github.com/kapu/kfp-startpage/internal/server"
	"github.com/kapu/kfp-startpage/internal/service/resolver"
	"github.com/kapu/kfp-startpage/internal/util"
	"github.com/kapu/kfp-startpage/internal/view"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Container bundles the assembled services.
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Catalog     *samples.Catalog
	Client      *kfp.Client
	Resolver    *resolver.LinkResolver
	Page        *view.Page
	Server      *server.Server
	Broadcaster *broadcast.RefreshBroadcaster

	closers []func()
	tasks   conc.WaitGroup
}

// Build assembles everything but starts nothing; see Start.
func Build(cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	catalog, err := samples.Load(cfg.Samples.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample pipelines: %w", err)
	}
	logger.Info("Sample pipelines loaded",
		zap.Strings("names", catalog.Names),
		zap.Int("data_index", catalog.Topics.Data),
		zap.Int("control_index", catalog.Topics.Control),
	)

	client := NewPipelineClient(cfg, logger)
	linkResolver := resolver.NewLinkResolver(client, logger)
	page := view.NewPage(catalog, linkResolver, logger)

	var broadcaster *broadcast.RefreshBroadcaster
	opts := server.Options{
		Page:          page,
		CircuitStatus: client.CircuitStatus,
		Logger:        logger,
	}
	if cfg.Redis.Enabled {
		broadcaster, err = broadcast.NewRefreshBroadcaster(broadcast.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create refresh broadcaster: %w", err)
		}
		closers = append(closers, func() {
			_ = broadcaster.Close()
		})
		opts.Publisher = broadcaster
	}

	srv, err := server.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Catalog:     catalog,
		Client:      client,
		Resolver:    linkResolver,
		Page:        page,
		Server:      srv,
		Broadcaster: broadcaster,
		closers:     closers,
	}, nil
}

// NewPipelineClient builds the API client with its circuit breaker; the
// breaker probes the API health endpoint to recover.
func NewPipelineClient(cfg *config.Config, logger *zap.Logger) *kfp.Client {
	client := kfp.NewClient(kfp.ClientConfig{
		BaseURL:   cfg.Pipeline.BaseURL,
		Namespace: cfg.Pipeline.Namespace,
		AuthToken: cfg.Pipeline.AuthToken,
		Timeout:   cfg.Pipeline.Timeout,
	}, logger)

	breaker := util.NewCircuitBreaker("pipelines-api", util.CircuitBreakerOptions{
		FailureThreshold:    constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:        constants.CircuitBreakerConfig.ResetTimeout,
		HealthCheckInterval: constants.CircuitBreakerConfig.HealthCheckInterval,
		HealthCheckTimeout:  constants.CircuitBreakerConfig.HealthCheckTimeout,
		HealthCheck:         client.Healthz,
	}, logger)

	return client.WithCircuitBreaker(breaker)
}

// Start mounts the page (first resolution cycle) and, when Redis is enabled,
// listens for refreshes from other replicas until ctx is done.
func (c *Container) Start(ctx context.Context) {
	c.Page.Mount(ctx, c.Server.Shell())

	if c.Broadcaster == nil {
		return
	}
	c.tasks.Go(func() {
		err := c.Broadcaster.Listen(ctx, func(ctx context.Context) {
			c.Page.Refresh(ctx)
		})
		if err != nil {
			c.Logger.Error("Refresh listener stopped", zap.Error(err))
		}
	})
}

// Close waits for background work started by Start and releases resources.
// The caller cancels Start's context first.
func (c *Container) Close() {
	c.Page.Wait()
	c.tasks.Wait()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
