package espalier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/bridge"
	"github.com/aretw0/espalier/pkg/coordinator"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/identity"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/scheduler"
	"github.com/aretw0/espalier/pkg/template"
)

// Version is the library version, surfaced by the CLI.
const Version = "0.1.0"

// System is the high-level entry point for the Espalier library.
// It wires the template store, tool registry, identity dispatcher, plan
// coordinator, and batch scheduler into a single dispatch core.
type System struct {
	store       ports.TemplateStore
	registry    *registry.Registry
	dispatcher  *identity.Dispatcher
	coordinator *coordinator.Coordinator
	scheduler   *scheduler.Scheduler
	logger      *slog.Logger

	conversationID string
}

// Option defines a functional option for configuring the System.
type Option func(*config)

type config struct {
	store          ports.TemplateStore
	logger         *slog.Logger
	workers        int
	registerer     prometheus.Registerer
	grace          time.Duration
	conversationID string
}

// WithStore injects a template store, bypassing the default in-memory one.
func WithStore(store ports.TemplateStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithLogger sets a custom structured logger for the system.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithWorkers sets the batch scheduler's worker pool size.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithRegisterer registers scheduler metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

// WithShutdownGrace sets how long Close waits for in-flight batch work.
func WithShutdownGrace(grace time.Duration) Option {
	return func(c *config) {
		c.grace = grace
	}
}

// WithConversationID attaches a conversation id to every execution the
// system dispatches.
func WithConversationID(conversationID string) Option {
	return func(c *config) {
		c.conversationID = conversationID
	}
}

// New initializes a new Espalier System.
// By default it uses an in-memory template store, a no-op logger, and
// scheduler.DefaultWorkers batch workers.
func New(opts ...Option) *System {
	cfg := &config{
		logger:  logging.NewNop(),
		workers: scheduler.DefaultWorkers,
		grace:   scheduler.DefaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.store == nil {
		cfg.store = memory.NewStore()
	}

	reg := registry.NewRegistry()
	coord := coordinator.New(reg, coordinator.WithLogger(cfg.logger))
	sched := scheduler.New(reg,
		scheduler.WithWorkers(cfg.workers),
		scheduler.WithLogger(cfg.logger),
		scheduler.WithRegisterer(cfg.registerer),
		scheduler.WithShutdownGrace(cfg.grace),
	)

	return &System{
		store:          cfg.store,
		registry:       reg,
		dispatcher:     identity.NewDispatcher(),
		coordinator:    coord,
		scheduler:      sched,
		logger:         cfg.logger,
		conversationID: cfg.conversationID,
	}
}

// RegisterTool makes a tool invocable from plan steps and batch entries.
func (s *System) RegisterTool(name, description string, invoker ports.ToolInvoker) {
	s.registry.Register(name, description, invoker)
}

// RegisterPlanTool exposes a plan template as an invocable tool. Invoking it
// triggers a nested plan execution bridged through the coordinator.
func (s *System) RegisterPlanTool(name, description, templateID string) {
	b := bridge.New(templateID, s.store, s.dispatcher, s.coordinator,
		bridge.WithLogger(s.logger),
		bridge.WithConversationID(s.conversationID),
	)
	s.registry.Register(name, description, b)
}

// Tools lists the registered tools.
func (s *System) Tools() []domain.Tool {
	return s.registry.List()
}

// Scheduler returns the batch scheduler for parallel fan-out.
func (s *System) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// Run executes a template as the root of a fresh execution tree and blocks
// until it resolves. Params are substituted into the template's latest
// definition before execution.
func (s *System) Run(ctx context.Context, templateID string, params map[string]any) (domain.Result, error) {
	root := domain.NewRootIdentity()

	definition, err := s.store.GetLatestDefinition(ctx, templateID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("template %q: %w", templateID, err)
	}

	merged := make(map[string]any, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	merged["plan_id"] = root.PlanID

	substituted, err := template.Substitute(definition, merged)
	if err != nil {
		return domain.Result{}, err
	}

	handle := s.coordinator.Execute(ctx, coordinator.Request{
		Definition:     substituted,
		Identity:       root,
		CallID:         "call-" + uuid.NewString(),
		Source:         "user",
		ConversationID: s.conversationID,
	})
	// The tree's sub-plan counters stay reserved until the execution
	// resolves, even when the waiter gives up early.
	go func() {
		<-handle.Done()
		s.dispatcher.Release(root.RootPlanID)
	}()
	return handle.Wait(ctx)
}

// Close drains the scheduler's worker pool.
func (s *System) Close() {
	s.scheduler.Close()
}
