package core

import (
	"context"

	"pkt.systems/redpen/schema"
)

// Service is the host-agnostic API for the proofreading command registry and
// request pipeline.
type Service interface {
	AttachSurface(ctx context.Context, req schema.AttachSurfaceRequest) (schema.AttachSurfaceResponse, error)
	DetachSurface(ctx context.Context, req schema.DetachSurfaceRequest) (schema.DetachSurfaceResponse, error)
	Reload(ctx context.Context, req schema.ReloadRequest) (schema.ReloadResponse, error)
	RefreshModels(ctx context.Context, req schema.RefreshModelsRequest) (schema.RefreshModelsResponse, error)
	Registry(ctx context.Context, req schema.RegistryRequest) (schema.RegistryResponse, error)
	ActivateAction(ctx context.Context, req schema.ActivateActionRequest) (schema.ActivateActionResponse, error)
	SelectModel(ctx context.Context, req schema.SelectModelRequest) (schema.SelectModelResponse, error)
	ActiveRequests(ctx context.Context, req schema.ActiveRequestsRequest) (schema.ActiveRequestsResponse, error)
}
