// Package redpen composes the proofreading core with its default
// collaborators into a single embeddable plugin for editor hosts.
package redpen

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/redpen/core"
	"pkt.systems/redpen/internal/command"
	"pkt.systems/redpen/internal/eventbus"
	"pkt.systems/redpen/internal/openai"
	"pkt.systems/redpen/schema"
)

// Plugin is the assembled proofreading plugin. A host embeds one Plugin,
// attaches its surfaces to the Service, and renders the registry the
// Service pushes back through the host's capability interface.
type Plugin interface {
	// Start loads configuration and builds the initial command registry.
	// A missing prompt catalog or API key leaves the plugin idle rather
	// than failing: the host simply gets no proofreading commands until
	// the next Reload.
	Start(ctx context.Context) error
	// Service exposes the core service API.
	Service() core.Service
	// Commands exposes the slash-command handler bound to the service.
	Commands() *command.Handler
	// Events returns the event bus, or nil unless WithEventBus was given.
	Events() *eventbus.Bus
	// Close releases plugin-owned resources. Safe to call more than once.
	Close() error
}

// PluginConfig configures the plugin compositor.
type PluginConfig struct {
	Service schema.ServiceConfig
	OpenAI  OpenAIConfig
}

// OpenAIConfig configures the default completion client. Ignored when a
// Completer is supplied through PluginDeps.
type OpenAIConfig struct {
	BaseURL       string
	ModelCacheTTL time.Duration
}

// PluginDeps captures dependencies required to build the plugin. Config is
// mandatory; a nil Completer selects the bundled OpenAI client.
type PluginDeps struct {
	ServiceDeps core.ServiceDeps
}

// PluginOption toggles plugin components.
type PluginOption func(*pluginOptions)

type pluginOptions struct {
	enableBus    bool
	refreshModel bool
}

// WithEventBus attaches an event bus so host frontends can subscribe to
// request and registry events.
func WithEventBus() PluginOption {
	return func(o *pluginOptions) { o.enableBus = true }
}

// WithModelRefresh fetches the model catalog in the background after a
// successful Start, so the model submenu fills without a user action.
func WithModelRefresh() PluginOption {
	return func(o *pluginOptions) { o.refreshModel = true }
}

// New constructs a redpen plugin.
func New(cfg PluginConfig, deps PluginDeps, opts ...PluginOption) (Plugin, error) {
	options := pluginOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if deps.ServiceDeps.Config == nil {
		return nil, errors.New("config source dependency is required")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	logger := serviceDeps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	var owned *openai.Client
	if serviceDeps.Completer == nil {
		owned = openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.ModelCacheTTL, logger)
		serviceDeps.Completer = owned
	}

	var bus *eventbus.Bus
	if options.enableBus {
		bus = eventbus.New(logger)
	}
	sinks := make([]core.EventSink, 0, 2)
	if serviceDeps.EventSink != nil {
		sinks = append(sinks, serviceDeps.EventSink)
	}
	if bus != nil {
		sinks = append(sinks, bus)
	}
	switch len(sinks) {
	case 0:
	case 1:
		serviceDeps.EventSink = sinks[0]
	default:
		serviceDeps.EventSink = eventFanout{sinks: sinks}
	}

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, err
	}

	handler := command.NewHandler(service, command.HandlerConfig{
		DisableAuditLogging: cfg.Service.DisableAuditLogging,
	})

	return &plugin{
		cfg:     cfg,
		options: options,
		service: service,
		handler: handler,
		bus:     bus,
		owned:   owned,
		logger:  logger,
	}, nil
}

type plugin struct {
	cfg     PluginConfig
	options pluginOptions
	service core.Service
	handler *command.Handler
	bus     *eventbus.Bus
	owned   *openai.Client
	logger  pslog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

func (p *plugin) Service() core.Service { return p.service }

func (p *plugin) Commands() *command.Handler { return p.handler }

func (p *plugin) Events() *eventbus.Bus { return p.bus }

func (p *plugin) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		p.logger.Warn("plugin start rejected", "reason", "already started")
		return errors.New("plugin already started")
	}
	p.started = true
	p.mu.Unlock()

	log := pslog.Ctx(ctx)
	log.Info("plugin start", "bus", p.bus != nil, "model_refresh", p.options.refreshModel)

	if _, err := p.service.Reload(ctx, schema.ReloadRequest{}); err != nil {
		if errors.Is(err, schema.ErrNoPrompts) || errors.Is(err, schema.ErrNoAPIKey) {
			log.Warn("plugin idle", "reason", err)
			return nil
		}
		log.Error("plugin start failed", "err", err)
		return err
	}

	if p.options.refreshModel {
		go func() {
			if _, err := p.service.RefreshModels(context.Background(), schema.RefreshModelsRequest{}); err != nil {
				p.logger.Warn("model refresh failed", "err", err)
			}
		}()
	}
	return nil
}

func (p *plugin) Close() error {
	p.mu.Lock()
	closed := p.closed
	p.closed = true
	p.mu.Unlock()
	if closed {
		return nil
	}
	if p.owned != nil {
		p.owned.Close()
	}
	p.logger.Info("plugin closed")
	return nil
}
