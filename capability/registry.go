package capability

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Observer is notified around each dispatch so the Causal Chain ledger can
// record CapabilityCall/CapabilityResult actions without the Marketplace
// importing package causalchain (spec §4.C step 6).
type Observer interface {
	OnCapabilityCall(id string, inputs value.Value)
	OnCapabilityResult(id string, result value.Value, err error, durationMS int64)
}

// Marketplace is the capability registry and dispatcher (spec §4.C).
type Marketplace struct {
	mu        sync.RWMutex
	manifests map[string]*Manifest
	executors map[ProviderType]Executor

	monitor            *ResourceMonitor
	requireAttestation bool
	observers          []Observer
	now                func() time.Time
}

// NewMarketplace builds an empty Marketplace. monitor may be nil to disable
// resource accounting (spec §4.C step 3 is then skipped entirely).
func NewMarketplace(monitor *ResourceMonitor, requireAttestation bool) *Marketplace {
	return &Marketplace{
		manifests:          make(map[string]*Manifest),
		executors:          make(map[ProviderType]Executor),
		monitor:            monitor,
		requireAttestation: requireAttestation,
		now:                time.Now,
	}
}

// RegisterExecutor wires an Executor for a ProviderType. Called once per
// provider kind at startup.
func (mp *Marketplace) RegisterExecutor(pt ProviderType, ex Executor) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.executors[pt] = ex
}

// AddObserver registers a trace/ledger hook invoked around every dispatch.
func (mp *Marketplace) AddObserver(o Observer) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.observers = append(mp.observers, o)
}

// reservedNamespace is the prefix built-in capabilities use (spec
// SPEC_FULL.md §4 "Capability namespace reservation": `ccos.*` reserved
// for built-ins; Marketplace registration of a non-built-in capability
// under this namespace is rejected).
const reservedNamespace = "ccos."

func isReservedID(id string) bool {
	return strings.HasPrefix(id, reservedNamespace)
}

// Register installs or replaces a manifest, idempotent on ID (spec §4.C
// "Registration"). When require_attestation is set, any registration (new
// or replacing) whose Attestation is absent or expired is rejected — the
// Marketplace does not itself run the validation harness; it only enforces
// that a conforming Attestation accompanies whatever synthesis/discovery
// hands it. IDs under the reserved `ccos.*` namespace are refused here —
// use RegisterBuiltin for those.
func (mp *Marketplace) Register(m *Manifest) error {
	if isReservedID(m.ID) {
		return ccoserr.New(ccoserr.KindSecurityViolation, "capability id %q is in the reserved ccos.* namespace; use RegisterBuiltin", m.ID)
	}
	return mp.register(m)
}

// RegisterBuiltin installs a manifest under the reserved `ccos.*`
// namespace — used at startup by the introspection capabilities (spec
// §4.J) and the planner's built-in resolve/fallback targets
// (ccos.user.ask, ccos.output.emit).
func (mp *Marketplace) RegisterBuiltin(m *Manifest) error {
	if !isReservedID(m.ID) {
		return ccoserr.New(ccoserr.KindInternalError, "RegisterBuiltin called with non-reserved id %q", m.ID)
	}
	return mp.register(m)
}

func (mp *Marketplace) register(m *Manifest) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.requireAttestation && !m.Attestation.validAt(mp.now()) {
		return ccoserr.New(ccoserr.KindSecurityViolation, "capability %q lacks a valid attestation and security.require_attestation is set", m.ID)
	}
	mp.manifests[m.ID] = m
	return nil
}

// Lookup returns the manifest for id, if registered.
func (mp *Marketplace) Lookup(id string) (*Manifest, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	m, ok := mp.manifests[id]
	return m, ok
}

// List returns every registered manifest (used by introspect.capability_graph
// static mode and the discovery pipeline's dedupe stage).
func (mp *Marketplace) List() []*Manifest {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	out := make([]*Manifest, 0, len(mp.manifests))
	for _, m := range mp.manifests {
		out = append(out, m)
	}
	return out
}

// Execute runs the spec §4.C dispatch pipeline: lookup, isolation check,
// resource-monitored executor call, observer notification.
func (mp *Marketplace) Execute(ctx context.Context, id string, inputs value.Value) (value.Value, error) {
	mp.mu.RLock()
	manifest, ok := mp.manifests[id]
	var executor Executor
	if ok {
		executor, ok = mp.executors[manifest.ProviderType]
	}
	observers := append([]Observer(nil), mp.observers...)
	mp.mu.RUnlock()

	if manifest == nil {
		return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "no capability registered for id %q", id)
	}
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "no executor registered for provider type %q", manifest.ProviderType)
	}

	if err := checkIsolation(manifest.Isolation, id, mp.now()); err != nil {
		return value.Nil, err
	}

	for _, o := range observers {
		o.OnCapabilityCall(id, inputs)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if manifest.TimeoutMS > 0 {
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(manifest.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	start := mp.now()
	result, err := executor.Execute(callCtx, manifest, inputs)
	duration := mp.now().Sub(start)

	if err == nil && callCtx.Err() != nil {
		err = ccoserr.New(ccoserr.KindTimeout, "capability %q exceeded its %dms timeout", id, manifest.TimeoutMS)
	}

	if mp.monitor != nil {
		if rerr := mp.monitor.Record(ResourceUsage{
			CapabilityID: id,
			DurationMS:   duration.Milliseconds(),
		}, manifest.Isolation.Resources); rerr != nil && err == nil {
			err = rerr
		}
	}

	for _, o := range observers {
		o.OnCapabilityResult(id, result, err, duration.Milliseconds())
	}

	return result, err
}
