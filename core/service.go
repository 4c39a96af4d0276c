package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/redpen/internal/logx"
	"pkt.systems/redpen/schema"
)

// service implements the core service behavior.
type service struct {
	cfg        schema.ServiceConfig
	config     ConfigSource
	host       HostSurface
	completer  Completer
	dispatcher Dispatcher
	sink       EventSink
	logger     pslog.Logger
	mu         sync.Mutex
	prompts    schema.PromptList
	models     schema.ModelState
	apiKey     string
	registry   schema.RegistrySnapshot
	surfaces   map[schema.SurfaceID]*surfaceState
}

type surfaceState struct {
	active *requestContext
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = syncDispatcher{}
	}
	return &service{
		cfg:        cfg,
		config:     deps.Config,
		host:       deps.Host,
		completer:  deps.Completer,
		dispatcher: dispatcher,
		sink:       deps.EventSink,
		logger:     logger,
		models:     schema.ModelState{Selected: cfg.DefaultModel},
		surfaces:   make(map[schema.SurfaceID]*surfaceState),
	}, nil
}

func (s *service) AttachSurface(ctx context.Context, req schema.AttachSurfaceRequest) (schema.AttachSurfaceResponse, error) {
	if ctx == nil {
		return schema.AttachSurfaceResponse{}, errors.New("missing context")
	}
	if req.Surface == "" {
		return schema.AttachSurfaceResponse{}, schema.ErrInvalidRequest
	}
	log := logx.WithSurface(ctx, req.Surface)

	s.mu.Lock()
	if _, ok := s.surfaces[req.Surface]; !ok {
		s.surfaces[req.Surface] = &surfaceState{}
	}
	snap := s.registry
	s.mu.Unlock()

	rendered := false
	if s.host != nil && !snap.Empty() {
		s.renderSurfaces([]schema.SurfaceID{req.Surface}, snap)
		rendered = true
	}
	log.Info("surface attached", "rendered", rendered)
	return schema.AttachSurfaceResponse{Rendered: rendered, Registry: snap}, nil
}

func (s *service) DetachSurface(ctx context.Context, req schema.DetachSurfaceRequest) (schema.DetachSurfaceResponse, error) {
	if ctx == nil {
		return schema.DetachSurfaceResponse{}, errors.New("missing context")
	}
	if req.Surface == "" {
		return schema.DetachSurfaceResponse{}, schema.ErrInvalidRequest
	}
	log := logx.WithSurface(ctx, req.Surface)

	s.mu.Lock()
	surf, ok := s.surfaces[req.Surface]
	if !ok {
		s.mu.Unlock()
		log.Warn("surface detach rejected", "err", schema.ErrSurfaceNotFound)
		return schema.DetachSurfaceResponse{}, schema.ErrSurfaceNotFound
	}
	rc := surf.active
	delete(s.surfaces, req.Surface)
	s.mu.Unlock()

	canceled := 0
	if rc != nil {
		rc.markCanceled()
		s.teardown(rc, schema.OutcomeCanceled, "")
		canceled = 1
	}
	log.Info("surface detached", "canceled", canceled)
	return schema.DetachSurfaceResponse{Canceled: canceled}, nil
}

func (s *service) Reload(ctx context.Context, req schema.ReloadRequest) (schema.ReloadResponse, error) {
	_ = req
	if ctx == nil {
		return schema.ReloadResponse{}, errors.New("missing context")
	}
	if s.config == nil {
		return schema.ReloadResponse{}, schema.ErrConfigUnavailable
	}
	log := logx.Ctx(ctx)

	prompts, err := s.config.LoadPrompts(ctx)
	if err != nil {
		log.Error("service reload failed", "err", err)
		return schema.ReloadResponse{}, fmt.Errorf("load prompts: %w", err)
	}
	prompts = schema.NormalizePromptList(prompts)
	if len(prompts) == 0 {
		log.Warn("no prompts configured, skipping proofreading UI")
		return schema.ReloadResponse{}, schema.ErrNoPrompts
	}
	apiKey, err := s.config.LoadAPIKey(ctx)
	if err != nil {
		if errors.Is(err, schema.ErrNoAPIKey) {
			log.Warn("no API key configured, skipping proofreading UI")
			return schema.ReloadResponse{}, schema.ErrNoAPIKey
		}
		log.Error("service reload failed", "err", err)
		return schema.ReloadResponse{}, fmt.Errorf("load api key: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		log.Warn("no API key configured, skipping proofreading UI")
		return schema.ReloadResponse{}, schema.ErrNoAPIKey
	}
	model, err := s.config.LoadModel(ctx)
	if err != nil {
		log.Warn("model load failed, using default", "err", err, "model", s.cfg.DefaultModel)
		model = s.cfg.DefaultModel
	}
	if model == "" {
		model = s.cfg.DefaultModel
	}

	s.mu.Lock()
	s.prompts = prompts
	s.apiKey = apiKey
	s.models.Selected = model
	if len(s.models.Available) == 0 {
		s.models.Available = []schema.ModelID{model}
	}
	s.rebuildLocked()
	snap := s.registry
	attached := s.attachedSurfacesLocked()
	s.mu.Unlock()

	s.emitRegistryEvent(snap)
	s.renderSurfaces(attached, snap)
	log.Info("registry reloaded", "prompts", len(prompts), "models", len(snap.Models.Available), "model", model)
	return schema.ReloadResponse{Registry: snap}, nil
}

func (s *service) RefreshModels(ctx context.Context, req schema.RefreshModelsRequest) (schema.RefreshModelsResponse, error) {
	_ = req
	if ctx == nil {
		return schema.RefreshModelsResponse{}, errors.New("missing context")
	}
	if s.completer == nil {
		return schema.RefreshModelsResponse{}, schema.ErrCompleterUnavailable
	}
	log := logx.Ctx(ctx)

	s.mu.Lock()
	apiKey := s.apiKey
	s.mu.Unlock()
	if apiKey == "" {
		log.Warn("model refresh rejected", "err", schema.ErrNoAPIKey)
		return schema.RefreshModelsResponse{}, schema.ErrNoAPIKey
	}

	ids, err := s.completer.ListModels(ctx, apiKey)
	if err != nil {
		log.Warn("model refresh failed", "err", err)
		return schema.RefreshModelsResponse{}, fmt.Errorf("list models: %w", err)
	}

	s.mu.Lock()
	s.models.Available = append([]schema.ModelID(nil), ids...)
	s.rebuildLocked()
	snap := s.registry
	attached := s.attachedSurfacesLocked()
	s.mu.Unlock()

	s.emitRegistryEvent(snap)
	s.renderSurfaces(attached, snap)
	log.Info("models refreshed", "models", len(ids))
	return schema.RefreshModelsResponse{Models: append([]schema.ModelID(nil), ids...), Registry: snap}, nil
}

func (s *service) Registry(ctx context.Context, req schema.RegistryRequest) (schema.RegistryResponse, error) {
	_ = ctx
	_ = req
	s.mu.Lock()
	snap := s.registry
	s.mu.Unlock()
	return schema.RegistryResponse{Registry: snap}, nil
}

func (s *service) ActivateAction(ctx context.Context, req schema.ActivateActionRequest) (schema.ActivateActionResponse, error) {
	if ctx == nil {
		return schema.ActivateActionResponse{}, errors.New("missing context")
	}
	if req.Surface == "" || req.Action == "" {
		return schema.ActivateActionResponse{}, schema.ErrInvalidRequest
	}
	log := logx.WithSurface(ctx, req.Surface)
	mode := req.Mode
	if mode == "" {
		mode = schema.ContentDocument
	}

	s.mu.Lock()
	surf, ok := s.surfaces[req.Surface]
	if !ok {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", req.Action, "err", schema.ErrSurfaceNotFound)
		return schema.ActivateActionResponse{}, schema.ErrSurfaceNotFound
	}
	snap := s.registry
	desc, found := snap.Table.Find(req.Action)
	if !found {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", req.Action, "err", schema.ErrActionNotFound)
		return schema.ActivateActionResponse{}, schema.ErrActionNotFound
	}

	switch desc.Kind {
	case schema.ActionMenu, schema.ActionModelMenu:
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrActionNotInvokable)
		return schema.ActivateActionResponse{}, schema.ErrActionNotInvokable
	case schema.ActionDropdown:
		choices := promptChoices(snap)
		s.mu.Unlock()
		if !s.cfg.DisableAuditLogging {
			s.logger.Debug("audit activate", "surface", req.Surface, "action", desc.ID, "choices", len(choices))
		}
		log.Info("dropdown opened", "choices", len(choices))
		return schema.ActivateActionResponse{Kind: schema.ActionDropdown, Choices: choices}, nil
	case schema.ActionModel:
		s.mu.Unlock()
		selResp, err := s.SelectModel(ctx, schema.SelectModelRequest{Model: desc.Model})
		if err != nil {
			return schema.ActivateActionResponse{}, err
		}
		return schema.ActivateActionResponse{Kind: schema.ActionModel, Model: selResp.Model}, nil
	case schema.ActionPrompt:
		return s.startProofreadLocked(ctx, log, surf, snap, desc, req.Surface, mode)
	default:
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrActionNotInvokable)
		return schema.ActivateActionResponse{}, schema.ErrActionNotInvokable
	}
}

// startProofreadLocked begins the proofread pipeline for a prompt action.
// Called with s.mu held; releases it.
func (s *service) startProofreadLocked(ctx context.Context, log pslog.Logger, surf *surfaceState, snap schema.RegistrySnapshot, desc schema.ActionDescriptor, surfaceID schema.SurfaceID, mode schema.ContentMode) (schema.ActivateActionResponse, error) {
	if s.host == nil {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrHostUnavailable)
		return schema.ActivateActionResponse{}, schema.ErrHostUnavailable
	}
	if s.completer == nil {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrCompleterUnavailable)
		return schema.ActivateActionResponse{}, schema.ErrCompleterUnavailable
	}
	if s.apiKey == "" {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrNoAPIKey)
		return schema.ActivateActionResponse{}, schema.ErrNoAPIKey
	}
	prompt, ok := snap.Prompts.Find(desc.Prompt)
	if desc.Prompt == "" || !ok {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrPromptNotFound)
		return schema.ActivateActionResponse{}, schema.ErrPromptNotFound
	}
	if surf.active != nil {
		s.mu.Unlock()
		log.Warn("activate rejected", "action", desc.ID, "err", schema.ErrSurfaceBusy)
		return schema.ActivateActionResponse{}, schema.ErrSurfaceBusy
	}

	rc := &requestContext{
		id:        schema.RequestID(newID()),
		surface:   surfaceID,
		prompt:    prompt,
		prompts:   snap.Prompts,
		apiKey:    s.apiKey,
		model:     snap.Models.Selected,
		mode:      mode,
		startedAt: time.Now(),
		state:     schema.RequestIdle,
	}
	runCtx, cancel := detachRequestContext(ctx, s.logger, surfaceID, rc.id)
	rc.cancel = cancel
	rc.indicator = newIndicator(s.dispatcher.Dispatch, func() ProgressHandle {
		return s.host.ShowProgress(surfaceID, schema.ProgressMessage(rc.model))
	})
	surf.active = rc
	s.mu.Unlock()

	if !s.cfg.DisableAuditLogging {
		s.logger.Debug("audit activate", "surface", surfaceID, "action", desc.ID, "prompt", prompt.ID, "model", rc.model, "mode", mode)
	}
	rc.advance(schema.RequestFetchingContent)
	s.emitRequestEvent(rc, schema.RequestFetchingContent, "", "")
	reqLog := logx.WithSurfaceRequest(ctx, surfaceID, rc.id)
	reqLog.Info("proofread request started", "prompt", prompt.ID, "model", rc.model)

	s.dispatcher.Dispatch(func() {
		s.host.FetchContent(rc.surface, rc.mode, func(content string, err error) {
			s.dispatcher.Dispatch(func() { s.handleContent(rc, runCtx, content, err) })
		})
	})
	return schema.ActivateActionResponse{Kind: schema.ActionPrompt, Request: rc.id}, nil
}

// handleContent receives the fetched surface content on the dispatcher and
// either aborts silently or hands the request to the completion worker.
func (s *service) handleContent(rc *requestContext, runCtx context.Context, content string, err error) {
	log := s.requestLogger(rc)

	rc.mu.Lock()
	if rc.done {
		canceled := rc.canceled
		rc.mu.Unlock()
		if canceled {
			log.Debug("content after cancel discarded")
		} else {
			log.Error("duplicate content delivery")
		}
		return
	}
	if rc.state != schema.RequestFetchingContent {
		state := rc.state
		rc.mu.Unlock()
		log.Error("duplicate content delivery", "state", state)
		return
	}
	if rc.canceled {
		rc.mu.Unlock()
		s.teardown(rc, schema.OutcomeCanceled, "")
		return
	}
	if err != nil {
		rc.mu.Unlock()
		log.Warn("content fetch failed", "err", err)
		s.teardown(rc, schema.OutcomeHostError, err.Error())
		return
	}
	if strings.TrimSpace(content) == "" {
		rc.mu.Unlock()
		log.Warn("content fetch returned nothing", "err", schema.ErrEmptyContent)
		s.teardown(rc, schema.OutcomeHostError, schema.ErrEmptyContent.Error())
		return
	}
	rc.state = schema.RequestAwaitingCompletion
	rc.mu.Unlock()

	rc.indicator.arm(s.cfg.IndicatorDelay)
	s.emitRequestEvent(rc, schema.RequestAwaitingCompletion, "", "")
	log.Info("completion started", "prompt", rc.prompt.ID, "model", rc.model, "content_len", len(content))

	creq := schema.CompletionRequest{
		Content: content,
		Prompt:  rc.prompt.ID,
		Prompts: rc.prompts,
		APIKey:  rc.apiKey,
		Model:   rc.model,
	}
	go s.completeRequest(rc, runCtx, creq)
}

// completeRequest runs the completion call off the dispatcher and posts the
// result back onto it.
func (s *service) completeRequest(rc *requestContext, runCtx context.Context, creq schema.CompletionRequest) {
	cresp, err := s.completer.CompleteText(runCtx, creq)
	s.dispatcher.Dispatch(func() { s.finishRequest(rc, cresp.Text, err) })
}

// finishRequest applies exactly one terminal effect on the dispatcher. The
// indicator is disarmed before anything user-visible happens, so it can
// never appear after the result.
func (s *service) finishRequest(rc *requestContext, text string, err error) {
	log := s.requestLogger(rc)
	won, canceled := rc.finish()
	if !won {
		if canceled {
			log.Debug("completion after cancel discarded")
		} else {
			log.Error("duplicate terminal signal")
		}
		return
	}
	rc.indicator.disarm()
	if canceled {
		s.teardown(rc, schema.OutcomeCanceled, "")
		return
	}

	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("completion canceled", "err", err)
			s.teardown(rc, schema.OutcomeCanceled, err.Error())
			return
		}
		message := err.Error()
		if apiErr, ok := schema.AsAPIError(err); ok {
			message = apiErr.Message
		}
		log.Warn("completion failed", "err", err)
		s.host.ShowAlert(rc.surface, schema.AlertProofreadingError, message)
		s.teardown(rc, schema.OutcomeAPIError, message)
	case strings.TrimSpace(text) == "":
		log.Info("completion returned no text")
		s.host.ShowModalNotice(rc.surface, schema.NoticeEmptyResponse)
		s.teardown(rc, schema.OutcomeEmpty, "")
	default:
		if ierr := s.host.InsertContent(rc.surface, text, schema.InsertModeFor(rc.mode)); ierr != nil {
			log.Warn("insert content failed", "err", ierr)
			s.teardown(rc, schema.OutcomeHostError, ierr.Error())
			return
		}
		log.Info("proofread inserted", "chars", len(text))
		s.teardown(rc, schema.OutcomeInserted, "")
	}
}

// teardown releases a request exactly once: indicator disarmed, completion
// context canceled, surface slot cleared, terminal event emitted. Repeats
// are discarded; a repeat that is not a cancel race is an invariant
// violation and logged as such.
func (s *service) teardown(rc *requestContext, outcome schema.RequestOutcome, errText string) {
	log := s.requestLogger(rc)
	if !rc.complete() {
		rc.mu.Lock()
		canceled := rc.canceled
		rc.mu.Unlock()
		if canceled {
			log.Debug("teardown after cancel discarded", "outcome", outcome)
		} else {
			log.Error("request teardown repeated", "outcome", outcome)
		}
		return
	}
	rc.indicator.disarm()
	if rc.cancel != nil {
		rc.cancel()
	}

	s.mu.Lock()
	if surf, ok := s.surfaces[rc.surface]; ok && surf.active == rc {
		surf.active = nil
	}
	s.mu.Unlock()

	log.Info("request terminated", "outcome", outcome, "prompt", rc.prompt.ID, "model", rc.model, "elapsed", time.Since(rc.startedAt).Round(time.Millisecond))
	s.emitRequestEvent(rc, schema.RequestTerminated, outcome, errText)
}

func (s *service) SelectModel(ctx context.Context, req schema.SelectModelRequest) (schema.SelectModelResponse, error) {
	if ctx == nil {
		return schema.SelectModelResponse{}, errors.New("missing context")
	}
	model, err := schema.NormalizeModelID(string(req.Model))
	if err != nil {
		return schema.SelectModelResponse{}, err
	}
	log := logx.Ctx(ctx)

	s.mu.Lock()
	if !s.models.Has(model) {
		s.mu.Unlock()
		log.Warn("model select rejected", "model", model, "err", schema.ErrUnknownModel)
		return schema.SelectModelResponse{}, schema.ErrUnknownModel
	}
	s.models.Selected = model
	s.rebuildLocked()
	snap := s.registry
	attached := s.attachedSurfacesLocked()
	s.mu.Unlock()

	persistErr := ""
	if s.config != nil {
		if err := s.config.SaveModel(ctx, model); err != nil {
			persistErr = err.Error()
			log.Warn("model selection not persisted", "model", model, "err", err)
		}
	}
	s.emitRegistryEvent(snap)
	s.renderSurfaces(attached, snap)
	log.Info("model selected", "model", model, "persisted", persistErr == "")
	return schema.SelectModelResponse{Model: model, PersistErr: persistErr, Registry: snap}, nil
}

func (s *service) ActiveRequests(ctx context.Context, req schema.ActiveRequestsRequest) (schema.ActiveRequestsResponse, error) {
	_ = ctx
	s.mu.Lock()
	snapshots := make([]schema.RequestSnapshot, 0, len(s.surfaces))
	for id, surf := range s.surfaces {
		if req.Surface != "" && id != req.Surface {
			continue
		}
		if surf.active != nil {
			snapshots = append(snapshots, surf.active.snapshot())
		}
	}
	s.mu.Unlock()
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].StartedAt.Equal(snapshots[j].StartedAt) {
			return snapshots[i].ID < snapshots[j].ID
		}
		return snapshots[i].StartedAt.Before(snapshots[j].StartedAt)
	})
	return schema.ActiveRequestsResponse{Requests: snapshots}, nil
}

// rebuildLocked derives a fresh registry snapshot from the working prompt
// and model state. Called with s.mu held. An empty prompt list leaves the
// current snapshot in place.
func (s *service) rebuildLocked() {
	table, layout, err := BuildRegistry(s.cfg, s.prompts, s.models)
	if err != nil {
		return
	}
	s.registry = schema.RegistrySnapshot{
		Table:   table,
		Layout:  layout,
		Prompts: s.prompts,
		Models:  s.models,
	}
}

func (s *service) attachedSurfacesLocked() []schema.SurfaceID {
	ids := make([]schema.SurfaceID, 0, len(s.surfaces))
	for id := range s.surfaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// renderSurfaces installs a snapshot on each surface via the dispatcher.
func (s *service) renderSurfaces(ids []schema.SurfaceID, snap schema.RegistrySnapshot) {
	if s.host == nil || snap.Empty() {
		return
	}
	for _, id := range ids {
		surfaceID := id
		s.dispatcher.Dispatch(func() {
			if err := s.host.RenderLayout(surfaceID, snap.Table, snap.Layout); err != nil {
				s.logger.Warn("render layout failed", "surface", surfaceID, "err", err)
			}
		})
	}
}

func (s *service) requestLogger(rc *requestContext) pslog.Logger {
	return s.logger.With("surface", rc.surface, "request", rc.id)
}

func (s *service) emitRequestEvent(rc *requestContext, state schema.RequestState, outcome schema.RequestOutcome, errText string) {
	if s.sink == nil {
		return
	}
	s.sink.OnRequestEvent(schema.RequestEvent{
		Surface: rc.surface,
		Request: rc.id,
		Prompt:  rc.prompt.ID,
		Model:   rc.model,
		State:   state,
		Outcome: outcome,
		Err:     errText,
	})
}

func (s *service) emitRegistryEvent(snap schema.RegistrySnapshot) {
	if s.sink == nil {
		return
	}
	s.sink.OnRegistryEvent(schema.RegistryEvent{
		Prompts:  len(snap.Prompts),
		Models:   len(snap.Models.Available),
		Selected: snap.Models.Selected,
	})
}

// detachRequestContext derives the long-lived context for a request's
// completion call: detached from the caller's cancellation, carrying the
// service logger and surface/request markers.
func detachRequestContext(ctx context.Context, logger pslog.Logger, surfaceID schema.SurfaceID, requestID schema.RequestID) (context.Context, context.CancelFunc) {
	base := context.Background()
	if logger != nil {
		base = pslog.ContextWithLogger(base, logger)
	}
	if ctx != nil {
		base = logx.CopyContextFields(base, ctx)
	}
	base = logx.ContextWithSurfaceRequest(base, surfaceID, requestID)
	return context.WithCancel(base)
}
