package capability

import (
	"context"
	"sync"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// LocalFunc is a single ProviderLocal capability's implementation.
type LocalFunc func(ctx context.Context, inputs value.Value) (value.Value, error)

// LocalRegistry maps a capability ID to its LocalFunc and exposes itself as
// a single Executor — every ProviderLocal manifest shares one Executor
// (registered once via RegisterExecutor(ProviderLocal, registry.Executor())),
// keyed internally by manifest.ID the same way http.ServeMux keys handlers
// by path.
type LocalRegistry struct {
	mu    sync.RWMutex
	funcs map[string]LocalFunc
}

func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{funcs: make(map[string]LocalFunc)}
}

// Register installs fn under id, replacing any previous function.
func (r *LocalRegistry) Register(id string, fn LocalFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[id] = fn
}

// Executor adapts the registry to the Executor interface for
// RegisterExecutor(ProviderLocal, ...).
func (r *LocalRegistry) Executor() ExecutorFunc {
	return func(ctx context.Context, manifest *Manifest, inputs value.Value) (value.Value, error) {
		r.mu.RLock()
		fn, ok := r.funcs[manifest.ID]
		r.mu.RUnlock()
		if !ok {
			return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "no local implementation registered for %q", manifest.ID)
		}
		return fn(ctx, inputs)
	}
}
