package core

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/redpen/schema"
)

func refreshTwoModels(t *testing.T, deps *testDeps, svc Service) {
	t.Helper()
	deps.completer.mu.Lock()
	deps.completer.models = []schema.ModelID{"gpt-4o", "gpt-4o-mini"}
	deps.completer.mu.Unlock()
	if _, err := svc.RefreshModels(context.Background(), schema.RefreshModelsRequest{}); err != nil {
		t.Fatalf("refresh models: %v", err)
	}
}

func TestSelectModelMovesMarkerAndPersists(t *testing.T) {
	deps := defaultTestDeps()
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)
	refreshTwoModels(t, deps, svc)

	resp, err := svc.SelectModel(context.Background(), schema.SelectModelRequest{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("select model: %v", err)
	}
	if resp.Model != "gpt-4o-mini" || resp.PersistErr != "" {
		t.Fatalf("select response: %+v", resp)
	}
	if saved := deps.config.savedModels(); len(saved) != 1 || saved[0] != "gpt-4o-mini" {
		t.Fatalf("saved models: %v", saved)
	}

	snap := resp.Registry
	if snap.Models.Selected != "gpt-4o-mini" {
		t.Fatalf("selected: %s", snap.Models.Selected)
	}
	header, ok := snap.Table.Find(schema.ActionIDModelMenu)
	if !ok || header.Label != "Model (gpt-4o-mini)" {
		t.Fatalf("model menu header: %+v", header)
	}
	plain, ok := snap.Table.Find("ai-model-gpt-4o")
	if !ok || plain.Label != "gpt-4o" {
		t.Fatalf("deselected entry: %+v", plain)
	}
	marked, ok := snap.Table.Find("ai-model-gpt-4o-mini")
	if !ok || marked.Label != "✓ gpt-4o-mini" {
		t.Fatalf("selected entry: %+v", marked)
	}
}

func TestSelectModelRejectsUnknown(t *testing.T) {
	deps := defaultTestDeps()
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)

	_, err := svc.SelectModel(context.Background(), schema.SelectModelRequest{Model: "gpt-99"})
	if !errors.Is(err, schema.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	reg, err := svc.Registry(context.Background(), schema.RegistryRequest{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if reg.Registry.Models.Selected != "gpt-4o" {
		t.Fatalf("selection changed: %s", reg.Registry.Models.Selected)
	}
	if len(deps.config.savedModels()) != 0 {
		t.Fatalf("unexpected persist")
	}
}

func TestSelectModelRejectsMalformedID(t *testing.T) {
	deps := defaultTestDeps()
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)

	for _, bad := range []schema.ModelID{"", "gpt 4o", "model\n"} {
		_, err := svc.SelectModel(context.Background(), schema.SelectModelRequest{Model: bad})
		if !errors.Is(err, schema.ErrInvalidModel) {
			t.Fatalf("model %q: expected ErrInvalidModel, got %v", bad, err)
		}
	}
}

func TestSelectModelKeepsSelectionWhenPersistFails(t *testing.T) {
	deps := defaultTestDeps()
	deps.config.saveErr = errors.New("state file read-only")
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)
	refreshTwoModels(t, deps, svc)

	resp, err := svc.SelectModel(context.Background(), schema.SelectModelRequest{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("select model: %v", err)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Fatalf("model: %s", resp.Model)
	}
	if resp.PersistErr != "state file read-only" {
		t.Fatalf("persist err: %q", resp.PersistErr)
	}
	// The in-memory selection survives the failed persist.
	reg, err := svc.Registry(context.Background(), schema.RegistryRequest{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if reg.Registry.Models.Selected != "gpt-4o-mini" {
		t.Fatalf("selection rolled back: %s", reg.Registry.Models.Selected)
	}
	marked, ok := reg.Registry.Table.Find("ai-model-gpt-4o-mini")
	if !ok || marked.Label != "✓ gpt-4o-mini" {
		t.Fatalf("selected entry: %+v", marked)
	}
}

func TestSelectModelAppliesToNextRequest(t *testing.T) {
	deps := defaultTestDeps()
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)
	refreshTwoModels(t, deps, svc)

	if _, err := svc.SelectModel(context.Background(), schema.SelectModelRequest{Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("select model: %v", err)
	}
	activateFixGrammar(t, svc, surface)
	waitFor(t, "insert", func() bool { return deps.host.insertCount() == 1 })

	seen := deps.completer.seenRequests()
	if len(seen) != 1 || seen[0].Model != "gpt-4o-mini" {
		t.Fatalf("completion model: %+v", seen)
	}
}

func TestInFlightRequestKeepsSnapshotModel(t *testing.T) {
	deps := defaultTestDeps()
	deps.completer.release = make(chan struct{})
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)
	refreshTwoModels(t, deps, svc)

	reqID := activateFixGrammar(t, svc, surface)
	waitFor(t, "completion in flight", func() bool { return len(deps.completer.seenRequests()) == 1 })

	if _, err := svc.SelectModel(context.Background(), schema.SelectModelRequest{Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("select model: %v", err)
	}
	close(deps.completer.release)
	waitFor(t, "insert", func() bool { return deps.host.insertCount() == 1 })
	waitFor(t, "terminal event", func() bool { return len(deps.sink.terminalEvents(reqID)) == 1 })

	seen := deps.completer.seenRequests()
	if seen[0].Model != "gpt-4o" {
		t.Fatalf("in-flight request saw live model: %s", seen[0].Model)
	}
	if deps.sink.terminalEvents(reqID)[0].Model != "gpt-4o" {
		t.Fatalf("terminal event model: %s", deps.sink.terminalEvents(reqID)[0].Model)
	}
}

func TestActivateModelEntrySelects(t *testing.T) {
	deps := defaultTestDeps()
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)
	refreshTwoModels(t, deps, svc)

	resp, err := svc.ActivateAction(context.Background(), schema.ActivateActionRequest{
		Surface: surface,
		Action:  "ai-model-gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("activate model entry: %v", err)
	}
	if resp.Kind != schema.ActionModel || resp.Model != "gpt-4o-mini" {
		t.Fatalf("activate response: %+v", resp)
	}
	if saved := deps.config.savedModels(); len(saved) != 1 || saved[0] != "gpt-4o-mini" {
		t.Fatalf("saved models: %v", saved)
	}
}

func TestDropdownListsPromptChoices(t *testing.T) {
	deps := defaultTestDeps()
	surface := schema.SurfaceID("composer-1")
	svc := deps.startService(t, schema.ServiceConfig{}, surface)

	resp, err := svc.ActivateAction(context.Background(), schema.ActivateActionRequest{
		Surface: surface,
		Action:  schema.ActionIDDropdown,
	})
	if err != nil {
		t.Fatalf("activate dropdown: %v", err)
	}
	if resp.Kind != schema.ActionDropdown {
		t.Fatalf("kind: %s", resp.Kind)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Action != "ai-proofread-fix-grammar" || resp.Choices[0].Label != "Fix Grammar" {
		t.Fatalf("choices: %+v", resp.Choices)
	}

	deps.config.mu.Lock()
	deps.config.prompts = append(deps.config.prompts, schema.Prompt{Name: "Translate", Text: "Translate to English."})
	deps.config.mu.Unlock()
	if _, err := svc.Reload(context.Background(), schema.ReloadRequest{}); err != nil {
		t.Fatalf("reload: %v", err)
	}

	resp, err = svc.ActivateAction(context.Background(), schema.ActivateActionRequest{
		Surface: surface,
		Action:  schema.ActionIDDropdown,
	})
	if err != nil {
		t.Fatalf("activate dropdown after reload: %v", err)
	}
	if len(resp.Choices) != 2 || resp.Choices[1].Action != "ai-proofread-translate" {
		t.Fatalf("choices after reload: %+v", resp.Choices)
	}
}
