package providers

import (
	"context"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Registry is the migration-path executor for capabilities delegated to a
// pure-runtime registry outside CCOS (spec §4.C "Registry"). It is not yet
// implemented upstream, so every dispatch reports Unsupported.
type Registry struct{}

func NewRegistry() *Registry { return &Registry{} }

func (Registry) Execute(context.Context, *capability.Manifest, value.Value) (value.Value, error) {
	return value.Nil, ccoserr.New(ccoserr.KindProviderError, "registry provider is unsupported (migration path)")
}
