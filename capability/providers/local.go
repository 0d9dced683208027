// Package providers implements the capability.Executor variants named in
// spec §4.C: Local, HTTP, MCP, A2A, OpenAPI, Registry, and Stream.
package providers

import (
	"context"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// LocalHandler is an in-process capability implementation.
type LocalHandler func(ctx context.Context, inputs value.Value) (value.Value, error)

// Local dispatches to an owned handler closure registered by id — no
// network, no sandbox (spec §4.C "Local").
type Local struct {
	handlers map[string]LocalHandler
}

func NewLocal() *Local {
	return &Local{handlers: make(map[string]LocalHandler)}
}

// Register installs a handler for a capability id. Manifests with
// ProviderType "local" must have a corresponding handler registered before
// first dispatch.
func (l *Local) Register(id string, h LocalHandler) {
	l.handlers[id] = h
}

func (l *Local) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	h, ok := l.handlers[manifest.ID]
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindProviderError, "no local handler registered for %q", manifest.ID)
	}
	return h(ctx, inputs)
}
