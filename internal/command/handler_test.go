package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"pkt.systems/redpen/internal/version"
	"pkt.systems/redpen/schema"
)

type fakeService struct {
	attachFn        func(context.Context, schema.AttachSurfaceRequest) (schema.AttachSurfaceResponse, error)
	detachFn        func(context.Context, schema.DetachSurfaceRequest) (schema.DetachSurfaceResponse, error)
	reloadFn        func(context.Context, schema.ReloadRequest) (schema.ReloadResponse, error)
	refreshModelsFn func(context.Context, schema.RefreshModelsRequest) (schema.RefreshModelsResponse, error)
	registryFn      func(context.Context, schema.RegistryRequest) (schema.RegistryResponse, error)
	activateFn      func(context.Context, schema.ActivateActionRequest) (schema.ActivateActionResponse, error)
	selectModelFn   func(context.Context, schema.SelectModelRequest) (schema.SelectModelResponse, error)
	activeFn        func(context.Context, schema.ActiveRequestsRequest) (schema.ActiveRequestsResponse, error)
}

func (f *fakeService) AttachSurface(ctx context.Context, req schema.AttachSurfaceRequest) (schema.AttachSurfaceResponse, error) {
	if f.attachFn != nil {
		return f.attachFn(ctx, req)
	}
	return schema.AttachSurfaceResponse{}, nil
}

func (f *fakeService) DetachSurface(ctx context.Context, req schema.DetachSurfaceRequest) (schema.DetachSurfaceResponse, error) {
	if f.detachFn != nil {
		return f.detachFn(ctx, req)
	}
	return schema.DetachSurfaceResponse{}, nil
}

func (f *fakeService) Reload(ctx context.Context, req schema.ReloadRequest) (schema.ReloadResponse, error) {
	if f.reloadFn != nil {
		return f.reloadFn(ctx, req)
	}
	return schema.ReloadResponse{}, nil
}

func (f *fakeService) RefreshModels(ctx context.Context, req schema.RefreshModelsRequest) (schema.RefreshModelsResponse, error) {
	if f.refreshModelsFn != nil {
		return f.refreshModelsFn(ctx, req)
	}
	return schema.RefreshModelsResponse{}, nil
}

func (f *fakeService) Registry(ctx context.Context, req schema.RegistryRequest) (schema.RegistryResponse, error) {
	if f.registryFn != nil {
		return f.registryFn(ctx, req)
	}
	return schema.RegistryResponse{}, nil
}

func (f *fakeService) ActivateAction(ctx context.Context, req schema.ActivateActionRequest) (schema.ActivateActionResponse, error) {
	if f.activateFn != nil {
		return f.activateFn(ctx, req)
	}
	return schema.ActivateActionResponse{}, nil
}

func (f *fakeService) SelectModel(ctx context.Context, req schema.SelectModelRequest) (schema.SelectModelResponse, error) {
	if f.selectModelFn != nil {
		return f.selectModelFn(ctx, req)
	}
	return schema.SelectModelResponse{}, nil
}

func (f *fakeService) ActiveRequests(ctx context.Context, req schema.ActiveRequestsRequest) (schema.ActiveRequestsResponse, error) {
	if f.activeFn != nil {
		return f.activeFn(ctx, req)
	}
	return schema.ActiveRequestsResponse{}, nil
}

func testRegistry() schema.RegistrySnapshot {
	return schema.RegistrySnapshot{
		Table: schema.ActionTable{
			{ID: "ai-proofread-fix-grammar", Kind: schema.ActionPrompt, Prompt: "fix-grammar", Label: "Fix Grammar"},
			{ID: "ai-proofread-make-concise", Kind: schema.ActionPrompt, Prompt: "make-concise", Label: "Make Concise"},
			{ID: schema.ActionIDMenu, Kind: schema.ActionMenu, Label: "AI"},
		},
		Prompts: schema.PromptList{
			{ID: "fix-grammar", Name: "Fix Grammar", Text: "Fix all grammar mistakes."},
			{ID: "make-concise", Name: "Make Concise", Text: "Make the text concise."},
		},
		Models: schema.ModelState{
			Available: []schema.ModelID{"gpt-4o", "gpt-4o-mini"},
			Selected:  "gpt-4o",
		},
	}
}

func TestHandlePassesThroughPlainText(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	res, handled, err := handler.Handle(context.Background(), "notes", "just some text")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if handled {
		t.Fatalf("expected plain text to pass through")
	}
	if len(res.Lines) != 0 || res.Quit {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	_, handled, err := handler.Handle(context.Background(), "notes", "/frobnicate")
	if !handled {
		t.Fatalf("expected handled command")
	}
	if err == nil || !strings.Contains(err.Error(), "unknown command: /frobnicate") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestHandleEmptyCommand(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	_, handled, err := handler.Handle(context.Background(), "notes", "/")
	if !handled {
		t.Fatalf("expected handled command")
	}
	if err == nil || !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("expected invalid command error, got %v", err)
	}
}

func TestHandleHelp(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	res, handled, err := handler.Handle(context.Background(), "notes", "/help")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled {
		t.Fatalf("expected handled command")
	}
	if len(res.Lines) == 0 || res.Lines[0] != "Commands" {
		t.Fatalf("expected commands header, got %+v", res.Lines)
	}
	joined := strings.Join(res.Lines, "\n")
	for _, want := range []string{"/proofread", "/model", "/reload", "/quit"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %s in help output, got %+v", want, res.Lines)
		}
	}
}

func TestHandleModelShowsSelection(t *testing.T) {
	svc := &fakeService{
		registryFn: func(_ context.Context, _ schema.RegistryRequest) (schema.RegistryResponse, error) {
			return schema.RegistryResponse{Registry: testRegistry()}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/model")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Lines) < 2 || res.Lines[0] != "model: gpt-4o" {
		t.Fatalf("expected selected model line, got %+v", res.Lines)
	}
	if !strings.Contains(res.Lines[1], "gpt-4o-mini") {
		t.Fatalf("expected available models line, got %+v", res.Lines)
	}
}

func TestHandleModelSelects(t *testing.T) {
	var selected schema.ModelID
	svc := &fakeService{
		selectModelFn: func(_ context.Context, req schema.SelectModelRequest) (schema.SelectModelResponse, error) {
			selected = req.Model
			return schema.SelectModelResponse{Model: req.Model}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/model gpt-4o-mini")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if selected != "gpt-4o-mini" {
		t.Fatalf("expected model selection, got %q", selected)
	}
	if len(res.Lines) != 1 || res.Lines[0] != "model set to: gpt-4o-mini" {
		t.Fatalf("unexpected output: %+v", res.Lines)
	}
}

func TestHandleModelReportsPersistFailure(t *testing.T) {
	svc := &fakeService{
		selectModelFn: func(_ context.Context, req schema.SelectModelRequest) (schema.SelectModelResponse, error) {
			return schema.SelectModelResponse{Model: req.Model, PersistErr: "disk full"}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/model gpt-4o-mini")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Lines) != 2 || !strings.Contains(res.Lines[1], "disk full") {
		t.Fatalf("expected persist warning, got %+v", res.Lines)
	}
}

func TestHandleModelUsage(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	_, _, err := handler.Handle(context.Background(), "notes", "/model gpt-4o extra")
	if err == nil || !strings.Contains(err.Error(), "usage: /model") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestHandleModelsMarksSelected(t *testing.T) {
	reg := testRegistry()
	reg.Models.Selected = "gpt-4o-mini"
	svc := &fakeService{
		refreshModelsFn: func(_ context.Context, _ schema.RefreshModelsRequest) (schema.RefreshModelsResponse, error) {
			return schema.RefreshModelsResponse{
				Models:   reg.Models.Available,
				Registry: reg,
			}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/models")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := []string{"Models", "  gpt-4o", "✓ gpt-4o-mini"}
	if len(res.Lines) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), res.Lines)
	}
	for i, line := range want {
		if res.Lines[i] != line {
			t.Fatalf("line %d: expected %q, got %q", i, line, res.Lines[i])
		}
	}
}

func TestHandleProofreadActivatesFirstPrompt(t *testing.T) {
	var activated schema.ActivateActionRequest
	svc := &fakeService{
		registryFn: func(_ context.Context, _ schema.RegistryRequest) (schema.RegistryResponse, error) {
			return schema.RegistryResponse{Registry: testRegistry()}, nil
		},
		activateFn: func(_ context.Context, req schema.ActivateActionRequest) (schema.ActivateActionResponse, error) {
			activated = req
			return schema.ActivateActionResponse{Kind: schema.ActionPrompt, Request: "req-1"}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/proofread")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if activated.Action != "ai-proofread-fix-grammar" {
		t.Fatalf("expected first prompt action, got %q", activated.Action)
	}
	if activated.Surface != "notes" || activated.Mode != schema.ContentDocument {
		t.Fatalf("unexpected activation request: %+v", activated)
	}
	if len(res.Lines) != 1 || !strings.Contains(res.Lines[0], "proofreading started") {
		t.Fatalf("unexpected output: %+v", res.Lines)
	}
}

func TestHandleProofreadByName(t *testing.T) {
	var activated schema.ActivateActionRequest
	svc := &fakeService{
		registryFn: func(_ context.Context, _ schema.RegistryRequest) (schema.RegistryResponse, error) {
			return schema.RegistryResponse{Registry: testRegistry()}, nil
		},
		activateFn: func(_ context.Context, req schema.ActivateActionRequest) (schema.ActivateActionResponse, error) {
			activated = req
			return schema.ActivateActionResponse{Kind: schema.ActionPrompt, Request: "req-2"}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	_, _, err := handler.Handle(context.Background(), "notes", "/proofread make concise")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if activated.Action != "ai-proofread-make-concise" {
		t.Fatalf("expected named prompt action, got %q", activated.Action)
	}
}

func TestHandleProofreadUnknownPrompt(t *testing.T) {
	svc := &fakeService{
		registryFn: func(_ context.Context, _ schema.RegistryRequest) (schema.RegistryResponse, error) {
			return schema.RegistryResponse{Registry: testRegistry()}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	_, _, err := handler.Handle(context.Background(), "notes", "/proofread shorten aggressively")
	if err == nil || !strings.Contains(err.Error(), "prompt not found") {
		t.Fatalf("expected prompt not found, got %v", err)
	}
}

func TestHandleProofreadRequiresSurface(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	_, _, err := handler.Handle(context.Background(), "", "/proofread")
	if err == nil || !strings.Contains(err.Error(), "no active surface") {
		t.Fatalf("expected surface error, got %v", err)
	}
}

func TestHandlePromptsListsLabels(t *testing.T) {
	svc := &fakeService{
		registryFn: func(_ context.Context, _ schema.RegistryRequest) (schema.RegistryResponse, error) {
			return schema.RegistryResponse{Registry: testRegistry()}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/prompts")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := []string{"Prompts", "- Fix Grammar", "- Make Concise"}
	if len(res.Lines) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), res.Lines)
	}
	for i, line := range want {
		if res.Lines[i] != line {
			t.Fatalf("line %d: expected %q, got %q", i, line, res.Lines[i])
		}
	}
}

func TestHandleReload(t *testing.T) {
	svc := &fakeService{
		reloadFn: func(_ context.Context, _ schema.ReloadRequest) (schema.ReloadResponse, error) {
			return schema.ReloadResponse{Registry: testRegistry()}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/reload")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0] != "configuration reloaded: 2 prompts, 2 models" {
		t.Fatalf("unexpected output: %+v", res.Lines)
	}
}

func TestHandleStatusListsRequests(t *testing.T) {
	started := time.Now().Add(-2 * time.Second)
	svc := &fakeService{
		activeFn: func(_ context.Context, req schema.ActiveRequestsRequest) (schema.ActiveRequestsResponse, error) {
			if req.Surface != "notes" {
				return schema.ActiveRequestsResponse{}, nil
			}
			return schema.ActiveRequestsResponse{Requests: []schema.RequestSnapshot{{
				ID:        "req-1",
				Surface:   "notes",
				Prompt:    "fix-grammar",
				Model:     "gpt-4o",
				State:     schema.RequestAwaitingCompletion,
				StartedAt: started,
			}}}, nil
		},
	}
	handler := NewHandler(svc, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/status")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Lines) != 2 || res.Lines[0] != "Requests" {
		t.Fatalf("unexpected output: %+v", res.Lines)
	}
	line := res.Lines[1]
	for _, want := range []string{"req-1", "fix-grammar", "gpt-4o", string(schema.RequestAwaitingCompletion)} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in status line %q", want, line)
		}
	}
}

func TestHandleStatusEmpty(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/status")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Lines) != 2 || res.Lines[1] != "no outstanding requests" {
		t.Fatalf("unexpected output: %+v", res.Lines)
	}
}

func TestHandleQuit(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	for _, input := range []string{"/quit", "/exit", "/q"} {
		res, handled, err := handler.Handle(context.Background(), "notes", input)
		if err != nil {
			t.Fatalf("Handle %s: %v", input, err)
		}
		if !handled || !res.Quit {
			t.Fatalf("expected quit for %s, got %+v", input, res)
		}
	}
}

func TestHandleVersion(t *testing.T) {
	handler := NewHandler(&fakeService{}, HandlerConfig{})
	res, _, err := handler.Handle(context.Background(), "notes", "/version")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	expected := version.Module() + " " + version.Current()
	if len(res.Lines) != 1 || res.Lines[0] != expected {
		t.Fatalf("expected version line %q, got %+v", expected, res.Lines)
	}
}

func TestParseRemainderKeepsSpacing(t *testing.T) {
	cmd, ok := Parse("  /proofread   Fix Grammar  ")
	if !ok {
		t.Fatalf("expected parsed command")
	}
	if cmd.Name != "proofread" {
		t.Fatalf("expected proofread, got %q", cmd.Name)
	}
	if cmd.Remainder != "Fix Grammar" {
		t.Fatalf("expected remainder, got %q", cmd.Remainder)
	}
	if len(cmd.Args) != 2 {
		t.Fatalf("expected 2 args, got %+v", cmd.Args)
	}
}
