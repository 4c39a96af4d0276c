package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pkt.systems/redpen/core"
	"pkt.systems/redpen/internal/logx"
	"pkt.systems/redpen/internal/version"
	"pkt.systems/redpen/schema"
)

// HandlerConfig configures slash command behavior.
type HandlerConfig struct {
	DisableAuditLogging bool
}

// Result carries the outcome of a handled slash command. Lines are display
// output for the invoking surface; Quit asks the host to exit.
type Result struct {
	Lines []string
	Quit  bool
}

// Handler routes slash commands to service operations.
type Handler struct {
	service core.Service
	cfg     HandlerConfig
	now     func() time.Time
}

// NewHandler constructs a command handler.
func NewHandler(service core.Service, cfg HandlerConfig) *Handler {
	return &Handler{service: service, cfg: cfg, now: time.Now}
}

// Handle inspects input and executes slash commands. The boolean reports
// whether input was a slash command at all; plain text passes through
// untouched.
func (h *Handler) Handle(ctx context.Context, surface schema.SurfaceID, input string) (Result, bool, error) {
	if ctx == nil {
		return Result{}, false, errors.New("missing context")
	}
	baseLog := logx.WithSurface(ctx, surface)
	ctx = logx.ContextWithSurfaceLogger(ctx, baseLog, surface)
	log := baseLog.With("input_len", len(input))
	cmd, ok := Parse(input)
	if !ok {
		return Result{}, false, nil
	}
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "slash", "command", strings.TrimSpace(input))
	}
	log = log.With("command", cmd.Name, "args", len(cmd.Args))
	log.Info("command slash request")
	switch cmd.Name {
	case "":
		log.Warn("command slash rejected", "reason", "empty")
		return Result{}, true, fmt.Errorf("invalid command")
	case "help":
		res, err := h.handleHelp(ctx)
		return res, true, err
	case "proofread":
		res, err := h.handleProofread(ctx, surface, cmd)
		return res, true, err
	case "prompts":
		res, err := h.handlePrompts(ctx)
		return res, true, err
	case "model":
		res, err := h.handleModel(ctx, cmd)
		return res, true, err
	case "models":
		res, err := h.handleModels(ctx)
		return res, true, err
	case "reload":
		res, err := h.handleReload(ctx)
		return res, true, err
	case "status":
		res, err := h.handleStatus(ctx, surface)
		return res, true, err
	case "version":
		res, err := h.handleVersion(ctx)
		return res, true, err
	case "quit", "exit", "q":
		log.Info("command quit completed")
		return Result{Quit: true}, true, nil
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return Result{}, true, fmt.Errorf("unknown command: /%s", cmd.Name)
	}
}

func (h *Handler) handleHelp(ctx context.Context) (Result, error) {
	logx.Ctx(ctx).Info("command help completed")
	return Result{Lines: helpLines()}, nil
}

func (h *Handler) handleProofread(ctx context.Context, surface schema.SurfaceID, cmd Command) (Result, error) {
	log := logx.Ctx(ctx)
	if surface == "" {
		log.Warn("command proofread rejected", "reason", "no active surface")
		return Result{}, errors.New("no active surface")
	}
	regResp, err := h.service.Registry(ctx, schema.RegistryRequest{})
	if err != nil {
		log.Warn("command proofread registry failed", "err", err)
		return Result{}, err
	}
	action, err := resolvePromptRef(cmd.Remainder, regResp.Registry.Table)
	if err != nil {
		log.Warn("command proofread rejected", "err", err)
		return Result{}, err
	}
	resp, err := h.service.ActivateAction(ctx, schema.ActivateActionRequest{
		Surface: surface,
		Action:  action.ID,
		Mode:    schema.ContentDocument,
	})
	if err != nil {
		log.Warn("command proofread failed", "err", err)
		return Result{}, err
	}
	log.Info("command proofread completed", "action", action.ID, "request", resp.Request)
	return Result{Lines: []string{fmt.Sprintf("proofreading started: %s (request %s)", action.Label, resp.Request)}}, nil
}

func (h *Handler) handlePrompts(ctx context.Context) (Result, error) {
	log := logx.Ctx(ctx)
	resp, err := h.service.Registry(ctx, schema.RegistryRequest{})
	if err != nil {
		log.Warn("command prompts failed", "err", err)
		return Result{}, err
	}
	lines := []string{"Prompts"}
	count := 0
	for _, d := range resp.Registry.Table {
		if d.Kind != schema.ActionPrompt {
			continue
		}
		count++
		lines = append(lines, fmt.Sprintf("- %s", d.Label))
	}
	if count == 0 {
		lines = append(lines, "no prompts configured")
	}
	log.Info("command prompts completed", "count", count)
	return Result{Lines: lines}, nil
}

func (h *Handler) handleModel(ctx context.Context, cmd Command) (Result, error) {
	log := logx.Ctx(ctx)
	if len(cmd.Args) > 1 {
		log.Warn("command model rejected", "reason", "too many args")
		return Result{}, fmt.Errorf("usage: /model [model]")
	}
	if len(cmd.Args) == 0 {
		resp, err := h.service.Registry(ctx, schema.RegistryRequest{})
		if err != nil {
			log.Warn("command model failed", "err", err)
			return Result{}, err
		}
		models := resp.Registry.Models
		lines := []string{fmt.Sprintf("model: %s", models.Selected)}
		if len(models.Available) > 0 {
			lines = append(lines, "available: "+strings.Join(formatModels(models.Available), ", "))
		}
		log.Info("command model listed", "model", models.Selected)
		return Result{Lines: lines}, nil
	}
	modelID, err := schema.NormalizeModelID(cmd.Args[0])
	if err != nil {
		log.Warn("command model rejected", "err", err)
		return Result{}, err
	}
	resp, err := h.service.SelectModel(ctx, schema.SelectModelRequest{Model: modelID})
	if err != nil {
		log.Warn("command model failed", "err", err)
		return Result{}, err
	}
	lines := []string{fmt.Sprintf("model set to: %s", resp.Model)}
	if resp.PersistErr != "" {
		lines = append(lines, "warning: selection not saved: "+resp.PersistErr)
	}
	log.Info("command model completed", "model", resp.Model)
	return Result{Lines: lines}, nil
}

func (h *Handler) handleModels(ctx context.Context) (Result, error) {
	log := logx.Ctx(ctx)
	resp, err := h.service.RefreshModels(ctx, schema.RefreshModelsRequest{})
	if err != nil {
		log.Warn("command models failed", "err", err)
		return Result{}, err
	}
	lines := []string{"Models"}
	if len(resp.Models) == 0 {
		lines = append(lines, "no models available")
	} else {
		selected := resp.Registry.Models.Selected
		for _, m := range resp.Models {
			marker := "  "
			if m == selected {
				marker = "✓ "
			}
			lines = append(lines, marker+string(m))
		}
	}
	log.Info("command models completed", "count", len(resp.Models))
	return Result{Lines: lines}, nil
}

func (h *Handler) handleReload(ctx context.Context) (Result, error) {
	log := logx.Ctx(ctx)
	resp, err := h.service.Reload(ctx, schema.ReloadRequest{})
	if err != nil {
		log.Warn("command reload failed", "err", err)
		return Result{}, err
	}
	reg := resp.Registry
	log.Info("command reload completed", "prompts", len(reg.Prompts), "models", len(reg.Models.Available))
	return Result{Lines: []string{fmt.Sprintf("configuration reloaded: %d prompts, %d models", len(reg.Prompts), len(reg.Models.Available))}}, nil
}

func (h *Handler) handleStatus(ctx context.Context, surface schema.SurfaceID) (Result, error) {
	log := logx.Ctx(ctx)
	resp, err := h.service.ActiveRequests(ctx, schema.ActiveRequestsRequest{Surface: surface})
	if err != nil {
		log.Warn("command status failed", "err", err)
		return Result{}, err
	}
	lines := []string{"Requests"}
	if len(resp.Requests) == 0 {
		lines = append(lines, "no outstanding requests")
	} else {
		now := h.now()
		for _, req := range resp.Requests {
			lines = append(lines, fmt.Sprintf("- %s %s/%s %s (%s)", req.ID, req.Prompt, req.Model, req.State, formatDuration(now.Sub(req.StartedAt))))
		}
	}
	log.Info("command status completed", "count", len(resp.Requests))
	return Result{Lines: lines}, nil
}

func (h *Handler) handleVersion(ctx context.Context) (Result, error) {
	logx.Ctx(ctx).Info("command version completed")
	return Result{Lines: []string{version.Module() + " " + version.Current()}}, nil
}

// resolvePromptRef picks the prompt action named by ref, matching the label
// or prompt id case-insensitively. An empty ref picks the first prompt in
// table order.
func resolvePromptRef(ref string, table schema.ActionTable) (schema.ActionDescriptor, error) {
	ref = strings.TrimSpace(ref)
	var first schema.ActionDescriptor
	found := false
	for _, d := range table {
		if d.Kind != schema.ActionPrompt {
			continue
		}
		if !found {
			first = d
			found = true
		}
		if ref == "" {
			break
		}
		if strings.EqualFold(d.Label, ref) || strings.EqualFold(string(d.Prompt), ref) {
			return d, nil
		}
	}
	if ref == "" {
		if !found {
			return schema.ActionDescriptor{}, errors.New("no prompts configured")
		}
		return first, nil
	}
	return schema.ActionDescriptor{}, fmt.Errorf("prompt not found: %s", ref)
}

func helpLines() []string {
	return []string{
		"Commands",
		"  /proofread [prompt]  run a proofreading prompt on the document",
		"  /prompts             list configured prompts",
		"  /model [model]       show or switch the completion model",
		"  /models              refresh and list completion models",
		"  /reload              reload prompts and configuration",
		"  /status              list outstanding proofreading requests",
		"  /version             show version information",
		"  /quit                exit the editor",
	}
}

func formatModels(models []schema.ModelID) []string {
	if len(models) == 0 {
		return nil
	}
	formatted := make([]string, 0, len(models))
	for _, m := range models {
		formatted = append(formatted, string(m))
	}
	return formatted
}

func formatDuration(duration time.Duration) string {
	if duration < time.Second {
		return fmt.Sprintf("%dms", duration.Milliseconds())
	}
	seconds := duration.Seconds()
	if seconds < 10 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	return fmt.Sprintf("%.1fs", seconds)
}
