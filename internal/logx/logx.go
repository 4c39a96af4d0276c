package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/redpen/schema"
)

type contextKey int

const (
	surfaceKey contextKey = iota
	requestKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSurface annotates the logger with the surface id if present.
func WithSurface(ctx context.Context, surfaceID schema.SurfaceID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if surfaceID != "" {
		if current, ok := ctx.Value(surfaceKey).(schema.SurfaceID); ok && current == surfaceID {
			return log
		}
		log = log.With("surface", surfaceID)
	}
	return log
}

// WithSurfaceRequest annotates the logger with surface and request identifiers.
func WithSurfaceRequest(ctx context.Context, surfaceID schema.SurfaceID, requestID schema.RequestID) pslog.Logger {
	log := WithSurface(ctx, surfaceID)
	if requestID != "" {
		if current, ok := ctx.Value(requestKey).(schema.RequestID); ok && current == requestID {
			return log
		}
		log = log.With("request", requestID)
	}
	return log
}

// WithPrompt annotates the logger with a prompt id when available.
func WithPrompt(log pslog.Logger, promptID schema.PromptID) pslog.Logger {
	if promptID != "" {
		log = log.With("prompt", promptID)
	}
	return log
}

// WithModel annotates the logger with a model id when available.
func WithModel(log pslog.Logger, model schema.ModelID) pslog.Logger {
	if model != "" {
		log = log.With("model", model)
	}
	return log
}

// ContextWithSurface stores the surface marker on the context for log de-duplication.
func ContextWithSurface(ctx context.Context, surfaceID schema.SurfaceID) context.Context {
	if ctx == nil || surfaceID == "" {
		return ctx
	}
	return context.WithValue(ctx, surfaceKey, surfaceID)
}

// ContextWithRequest stores the request marker on the context for log de-duplication.
func ContextWithRequest(ctx context.Context, requestID schema.RequestID) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// ContextWithSurfaceRequest stores surface/request markers on the context.
func ContextWithSurfaceRequest(ctx context.Context, surfaceID schema.SurfaceID, requestID schema.RequestID) context.Context {
	return ContextWithRequest(ContextWithSurface(ctx, surfaceID), requestID)
}

// ContextWithSurfaceLogger attaches the logger and surface marker to the context.
func ContextWithSurfaceLogger(ctx context.Context, log pslog.Logger, surfaceID schema.SurfaceID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSurface(ctx, surfaceID)
}

// CopyContextFields copies surface/request markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if surface, ok := src.Value(surfaceKey).(schema.SurfaceID); ok && surface != "" {
		dst = ContextWithSurface(dst, surface)
	}
	if request, ok := src.Value(requestKey).(schema.RequestID); ok && request != "" {
		dst = ContextWithRequest(dst, request)
	}
	return dst
}
