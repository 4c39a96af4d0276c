package redpen

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/redpen/core"
	"pkt.systems/redpen/internal/eventbus"
	"pkt.systems/redpen/schema"
)

type stubConfigSource struct {
	prompts schema.PromptList
	apiKey  string
	model   schema.ModelID
}

func (s *stubConfigSource) LoadPrompts(context.Context) (schema.PromptList, error) {
	return append(schema.PromptList(nil), s.prompts...), nil
}

func (s *stubConfigSource) LoadAPIKey(context.Context) (string, error) {
	if s.apiKey == "" {
		return "", schema.ErrNoAPIKey
	}
	return s.apiKey, nil
}

func (s *stubConfigSource) LoadModel(context.Context) (schema.ModelID, error) {
	return s.model, nil
}

func (s *stubConfigSource) SaveModel(_ context.Context, model schema.ModelID) error {
	s.model = model
	return nil
}

type stubCompleter struct {
	models []schema.ModelID
}

func (s *stubCompleter) CompleteText(context.Context, schema.CompletionRequest) (schema.CompletionResponse, error) {
	return schema.CompletionResponse{Text: "done"}, nil
}

func (s *stubCompleter) ListModels(context.Context, string) ([]schema.ModelID, error) {
	return append([]schema.ModelID(nil), s.models...), nil
}

type stubHost struct {
	mu      sync.Mutex
	renders int
}

func (h *stubHost) FetchContent(_ schema.SurfaceID, _ schema.ContentMode, deliver func(string, error)) {
	deliver("content", nil)
}

func (h *stubHost) InsertContent(schema.SurfaceID, string, schema.InsertMode) error { return nil }

func (h *stubHost) ShowAlert(schema.SurfaceID, schema.AlertTag, string) {}

func (h *stubHost) ShowModalNotice(schema.SurfaceID, string) {}

func (h *stubHost) ShowProgress(schema.SurfaceID, string) core.ProgressHandle { return nil }

func (h *stubHost) RenderLayout(schema.SurfaceID, schema.ActionTable, schema.LayoutDocument) error {
	h.mu.Lock()
	h.renders++
	h.mu.Unlock()
	return nil
}

func (h *stubHost) renderCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.renders
}

type recordingSink struct {
	mu       sync.Mutex
	registry []schema.RegistryEvent
}

func (r *recordingSink) OnRequestEvent(schema.RequestEvent) {}

func (r *recordingSink) OnRegistryEvent(event schema.RegistryEvent) {
	r.mu.Lock()
	r.registry = append(r.registry, event)
	r.mu.Unlock()
}

func (r *recordingSink) registryEvents() []schema.RegistryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schema.RegistryEvent(nil), r.registry...)
}

func testPluginDeps(config core.ConfigSource, host core.HostSurface, sink core.EventSink) PluginDeps {
	return PluginDeps{ServiceDeps: core.ServiceDeps{
		Config:    config,
		Host:      host,
		Completer: &stubCompleter{models: []schema.ModelID{"gpt-4o", "gpt-4o-mini"}},
		EventSink: sink,
	}}
}

func TestNewRequiresConfigSource(t *testing.T) {
	if _, err := New(PluginConfig{}, PluginDeps{}); err == nil {
		t.Fatalf("expected error for missing config source")
	}
}

func TestPluginStartBuildsRegistry(t *testing.T) {
	config := &stubConfigSource{
		prompts: schema.PromptList{{ID: "fix-grammar", Name: "Fix Grammar", Text: "Correct grammar"}},
		apiKey:  "sk-test",
	}
	host := &stubHost{}
	plug, err := New(PluginConfig{}, testPluginDeps(config, host, nil))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	defer func() { _ = plug.Close() }()

	ctx := context.Background()
	if _, err := plug.Service().AttachSurface(ctx, schema.AttachSurfaceRequest{Surface: "editor"}); err != nil {
		t.Fatalf("attach surface: %v", err)
	}
	if err := plug.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := plug.Service().Registry(ctx, schema.RegistryRequest{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if resp.Registry.Empty() {
		t.Fatalf("expected a built registry after start")
	}
	if host.renderCount() == 0 {
		t.Fatalf("expected attached surface to be rendered")
	}
	if plug.Commands() == nil {
		t.Fatalf("expected a command handler")
	}
}

func TestPluginStartIdleWithoutPrompts(t *testing.T) {
	config := &stubConfigSource{apiKey: "sk-test"}
	plug, err := New(PluginConfig{}, testPluginDeps(config, &stubHost{}, nil))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	defer func() { _ = plug.Close() }()

	if err := plug.Start(context.Background()); err != nil {
		t.Fatalf("start with no prompts should leave the plugin idle, got %v", err)
	}
	resp, err := plug.Service().Registry(context.Background(), schema.RegistryRequest{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if !resp.Registry.Empty() {
		t.Fatalf("expected an empty registry while idle")
	}
}

func TestPluginStartTwiceRejected(t *testing.T) {
	config := &stubConfigSource{
		prompts: schema.PromptList{{ID: "p", Name: "P", Text: "t"}},
		apiKey:  "sk-test",
	}
	plug, err := New(PluginConfig{}, testPluginDeps(config, &stubHost{}, nil))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	defer func() { _ = plug.Close() }()
	if err := plug.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := plug.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to be rejected")
	}
}

func TestPluginFansOutEvents(t *testing.T) {
	config := &stubConfigSource{
		prompts: schema.PromptList{{ID: "p", Name: "P", Text: "t"}},
		apiKey:  "sk-test",
	}
	sink := &recordingSink{}
	plug, err := New(PluginConfig{}, testPluginDeps(config, &stubHost{}, sink), WithEventBus())
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	defer func() { _ = plug.Close() }()

	bus := plug.Events()
	if bus == nil {
		t.Fatalf("expected an event bus with WithEventBus")
	}
	events, cancel := bus.Subscribe(eventbus.AllSurfaces)
	defer cancel()

	if err := plug.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(sink.registryEvents()) == 0 {
		t.Fatalf("expected the custom sink to observe the registry rebuild")
	}
	select {
	case ev := <-events:
		if ev.Type != eventbus.EventRegistry {
			t.Fatalf("expected a registry event, got %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected the bus subscriber to observe the registry rebuild")
	}
}

func TestPluginCloseIdempotent(t *testing.T) {
	config := &stubConfigSource{apiKey: "sk-test"}
	plug, err := New(PluginConfig{}, testPluginDeps(config, nil, nil))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	if err := plug.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := plug.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
