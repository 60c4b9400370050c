// Package engine wires the durable store, cooldown registry, execution
// coordinator, settlement watchers, exposure recorder, reporter sink, and
// inbound queue consumer into a single process-wide struct with an
// explicit, testable dependency graph: build every collaborator, hydrate
// durable state, launch background loops, wait for shutdown.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/arbengine/internal/config"
	"github.com/evetabi/arbengine/internal/cooldown"
	"github.com/evetabi/arbengine/internal/execution"
	"github.com/evetabi/arbengine/internal/exposure"
	"github.com/evetabi/arbengine/internal/gateway"
	"github.com/evetabi/arbengine/internal/kvstore"
	"github.com/evetabi/arbengine/internal/queue"
	"github.com/evetabi/arbengine/internal/reporter"
	"github.com/evetabi/arbengine/internal/settlement"
)

// Engine owns every long-lived collaborator the worker process needs and
// drives the inbound queue consumer loop.
type Engine struct {
	Store       *kvstore.RedisStore
	Cooldown    *cooldown.Registry
	Exposure    *exposure.Recorder
	Watcher     *settlement.Watcher
	Coordinator *execution.Coordinator
	Consumer    *queue.Consumer
	Reporter    reporter.Sink

	cfg    *config.Config
	logger *slog.Logger
}

// New assembles an Engine from configuration and an external provider
// gateway implementation. The durable store's own Redis client is reused as
// the BLPOP source for the inbound queue, so the process holds a single
// connection pool rather than two.
func New(cfg *config.Config, gw gateway.Gateway, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := kvstore.NewRedisStore(cfg.Redis.URL, cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("engine: build redis store: %w", err)
	}

	sink := reporter.NewHTTPSink(cfg.Reporter.APIBaseURL, cfg.Reporter.HTTPTimeout, cfg.Reporter.QueueDepth, logger)

	cooldownRegistry := cooldown.New(store, logger)
	exposureRecorder := exposure.New(store, sink, cfg.Engine.ExposureCacheSize, logger)
	serializedGateway := gateway.NewSerializingGateway(gw)
	watcher := settlement.New(serializedGateway, exposureRecorder, sink, cfg.Engine.PollInterval, cfg.Engine.MaxPolls, logger)
	coordinator := execution.New(store, serializedGateway, cooldownRegistry, watcher, sink, logger)
	consumer := queue.New(store.Client(), cfg.Engine.QueueName, cfg.Engine.QueuePollTimeout, coordinator, logger)

	return &Engine{
		Store:       store,
		Cooldown:    cooldownRegistry,
		Exposure:    exposureRecorder,
		Watcher:     watcher,
		Coordinator: coordinator,
		Consumer:    consumer,
		Reporter:    sink,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Start verifies store connectivity, hydrates the cooldown registry from
// durable state, launches the reporter's worker pool, and starts the queue
// consumer loop in its own goroutine. It returns once hydration completes;
// Start does not block for the lifetime of the engine — callers wait on
// ctx themselves (see cmd/worker).
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Store.Ping(ctx); err != nil {
		return fmt.Errorf("engine: redis unreachable: %w", err)
	}
	if err := e.Cooldown.Hydrate(ctx); err != nil {
		return fmt.Errorf("engine: hydrate cooldown registry: %w", err)
	}

	if sink, ok := e.Reporter.(*reporter.HTTPSink); ok {
		sink.Start(ctx, e.cfg.Reporter.Workers)
	}

	go e.Consumer.Run(ctx)

	e.logger.Info("engine: started", "queue", e.cfg.Engine.QueueName)
	return nil
}
