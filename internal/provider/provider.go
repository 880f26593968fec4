package provider

import (
	"context"

	"github.com/autodevcrew/crew/internal/provider/shared"
)

// Provider is the interface that all model providers must implement
type Provider interface {
	// Generate produces text for the request
	Generate(ctx context.Context, req *shared.Request) (*shared.Response, error)

	// Name returns the provider name
	Name() string
}
