package capability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// ResourceKind names the dimension a ResourceConstraints/ResourceViolation
// applies to.
type ResourceKind string

const (
	ResourceMemory   ResourceKind = "Memory"
	ResourceCPU      ResourceKind = "CPU"
	ResourceDuration ResourceKind = "Duration"
	ResourceCost     ResourceKind = "Cost"
)

// Enforcement selects how a ResourceMonitor reacts to a breached
// constraint (spec §5 "Resource accounting").
type Enforcement string

const (
	EnforcementHard    Enforcement = "Hard"
	EnforcementWarning Enforcement = "Warning"
	EnforcementAdaptive Enforcement = "Adaptive"
)

// ResourceUsage is one capability call's observed footprint.
type ResourceUsage struct {
	CapabilityID string
	MemoryMB     float64
	CPUSeconds   float64
	DurationMS   int64
	CostUSD      float64
}

// ResourceViolation reports a breached constraint.
type ResourceViolation struct {
	Resource ResourceKind
	Current  float64
	Limit    float64
	Unit     string
}

// ResourceMonitor accumulates per-capability usage snapshots and checks them
// against ResourceConstraints, exporting the running totals as Prometheus
// gauges the way the teacher's component stack exports operational metrics.
type ResourceMonitor struct {
	enforcement Enforcement

	mu     sync.Mutex
	totals map[string]*ResourceUsage

	callsTotal      *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	memoryGauge     *prometheus.GaugeVec
	violationsTotal *prometheus.CounterVec
}

// NewResourceMonitor builds a monitor and registers its metrics on reg (pass
// prometheus.NewRegistry() in tests to avoid polluting the default
// registry; pass prometheus.DefaultRegisterer in production).
func NewResourceMonitor(reg prometheus.Registerer, enforcement Enforcement) *ResourceMonitor {
	m := &ResourceMonitor{
		enforcement: enforcement,
		totals:      make(map[string]*ResourceUsage),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccos_capability_calls_total",
			Help: "Total capability dispatch attempts by capability id and outcome.",
		}, []string{"capability_id", "outcome"}),
		durationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "ccos_capability_duration_seconds",
			Help: "Capability call duration in seconds.",
		}, []string{"capability_id"}),
		memoryGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ccos_capability_memory_mb",
			Help: "Most recent observed memory usage per capability, in MB.",
		}, []string{"capability_id"}),
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccos_capability_resource_violations_total",
			Help: "Resource constraint violations by capability id and resource kind.",
		}, []string{"capability_id", "resource"}),
	}
	if reg != nil {
		reg.MustRegister(m.callsTotal, m.durationSeconds, m.memoryGauge, m.violationsTotal)
	}
	return m
}

// Record folds usage into the running totals, exports it to Prometheus, and
// checks it against constraints. A Hard violation returns a
// ResourceLimitExceeded error that aborts the call; Warning violations are
// recorded but do not fail the call; Adaptive violations do not fail the
// call either, and replace the running total of the breached resource with
// the observed value (readable through Totals). Record does not change the
// constraints: every call is checked against the ones its caller passes.
func (m *ResourceMonitor) Record(usage ResourceUsage, constraints ResourceConstraints) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.totals[usage.CapabilityID]
	if total == nil {
		total = &ResourceUsage{CapabilityID: usage.CapabilityID}
		m.totals[usage.CapabilityID] = total
	}
	total.MemoryMB += usage.MemoryMB
	total.CPUSeconds += usage.CPUSeconds
	total.DurationMS += usage.DurationMS
	total.CostUSD += usage.CostUSD

	m.durationSeconds.WithLabelValues(usage.CapabilityID).Observe(float64(usage.DurationMS) / 1000)
	m.memoryGauge.WithLabelValues(usage.CapabilityID).Set(usage.MemoryMB)

	violation := m.firstViolation(usage, constraints)
	if violation == nil {
		m.callsTotal.WithLabelValues(usage.CapabilityID, "ok").Inc()
		return nil
	}

	m.violationsTotal.WithLabelValues(usage.CapabilityID, string(violation.Resource)).Inc()

	switch m.enforcement {
	case EnforcementHard:
		m.callsTotal.WithLabelValues(usage.CapabilityID, "resource_limit_exceeded").Inc()
		return ccoserr.New(ccoserr.KindResourceLimitExceeded, "%s usage %.2f%s exceeds limit %.2f%s",
			violation.Resource, violation.Current, violation.Unit, violation.Limit, violation.Unit)
	case EnforcementAdaptive:
		m.scaleConstraint(usage.CapabilityID, violation.Resource, violation.Current)
		fallthrough
	default: // Warning
		m.callsTotal.WithLabelValues(usage.CapabilityID, "ok_with_warning").Inc()
		return nil
	}
}

func (m *ResourceMonitor) firstViolation(usage ResourceUsage, c ResourceConstraints) *ResourceViolation {
	switch {
	case c.MaxMemoryMB > 0 && usage.MemoryMB > c.MaxMemoryMB:
		return &ResourceViolation{Resource: ResourceMemory, Current: usage.MemoryMB, Limit: c.MaxMemoryMB, Unit: "MB"}
	case c.MaxCPUSeconds > 0 && usage.CPUSeconds > c.MaxCPUSeconds:
		return &ResourceViolation{Resource: ResourceCPU, Current: usage.CPUSeconds, Limit: c.MaxCPUSeconds, Unit: "s"}
	case c.MaxDurationMS > 0 && usage.DurationMS > c.MaxDurationMS:
		return &ResourceViolation{Resource: ResourceDuration, Current: float64(usage.DurationMS), Limit: float64(c.MaxDurationMS), Unit: "ms"}
	case c.MaxCostUSD > 0 && usage.CostUSD > c.MaxCostUSD:
		return &ResourceViolation{Resource: ResourceCost, Current: usage.CostUSD, Limit: c.MaxCostUSD, Unit: "usd"}
	default:
		return nil
	}
}

func (m *ResourceMonitor) scaleConstraint(capabilityID string, kind ResourceKind, observed float64) {
	// Adaptive enforcement sets the breached resource's running total to
	// what was actually observed, rather than hard-failing the call; the
	// value is only read back by Totals, for callers that want to propagate
	// it into the next call's constraints.
	total := m.totals[capabilityID]
	if total == nil {
		return
	}
	switch kind {
	case ResourceMemory:
		total.MemoryMB = observed
	case ResourceCPU:
		total.CPUSeconds = observed
	case ResourceDuration:
		total.DurationMS = int64(observed)
	case ResourceCost:
		total.CostUSD = observed
	}
}

// Totals returns the accumulated usage for a capability, or a zero value if
// never recorded.
func (m *ResourceMonitor) Totals(capabilityID string) ResourceUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.totals[capabilityID]; ok {
		return *t
	}
	return ResourceUsage{CapabilityID: capabilityID}
}
