package capability

import (
	"context"

	"github.com/mandubian/ccos-sub008/value"
)

// Executor runs one dispatch against a manifest's provider-specific
// backend (spec §4.C "Provider executors"). Implementations live under
// capability/providers and are registered on a Marketplace by ProviderType.
type Executor interface {
	Execute(ctx context.Context, manifest *Manifest, inputs value.Value) (value.Value, error)
}

// ExecutorFunc adapts a plain function to the Executor interface, mirroring
// http.HandlerFunc — most providers are a single dispatch function with no
// other state.
type ExecutorFunc func(ctx context.Context, manifest *Manifest, inputs value.Value) (value.Value, error)

func (f ExecutorFunc) Execute(ctx context.Context, manifest *Manifest, inputs value.Value) (value.Value, error) {
	return f(ctx, manifest, inputs)
}
