// Package capability implements the CCOS Capability Marketplace (spec
// §4.C): manifest registration, isolation policy enforcement, resource
// accounting, and provider-typed dispatch.
package capability

import (
	"time"

	"github.com/mandubian/ccos-sub008/value"
)

// ProviderType selects which executor handles a manifest's dispatch.
type ProviderType string

const (
	ProviderLocal    ProviderType = "local"
	ProviderHTTP     ProviderType = "http"
	ProviderMCP      ProviderType = "mcp"
	ProviderA2A      ProviderType = "a2a"
	ProviderOpenAPI  ProviderType = "openapi"
	ProviderStream   ProviderType = "stream"
	ProviderRegistry ProviderType = "registry"

	// ProviderSandbox runs an ExternalProgram capability inside a MicroVM
	// Provider (spec §4.D) rather than dispatching it in-process — see
	// capability/providers/sandbox.go.
	ProviderSandbox ProviderType = "sandbox"
)

// TimeConstraints restricts when a capability may be invoked (e.g. business
// hours only). A zero value imposes no restriction.
type TimeConstraints struct {
	AllowedHours []int // 0-23, empty means unrestricted
	AllowedDays  []time.Weekday
}

func (t TimeConstraints) allows(now time.Time) bool {
	if len(t.AllowedHours) > 0 {
		ok := false
		for _, h := range t.AllowedHours {
			if now.Hour() == h {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(t.AllowedDays) > 0 {
		ok := false
		for _, d := range t.AllowedDays {
			if now.Weekday() == d {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// ResourceConstraints bounds a capability's runtime footprint; see
// capability.ResourceMonitor for enforcement.
type ResourceConstraints struct {
	MaxMemoryMB   float64
	MaxCPUSeconds float64
	MaxDurationMS int64
	MaxCostUSD    float64
}

// IsolationPolicy governs whether a capability may be dispatched at all
// (spec §4.C step 2): glob allow/deny patterns over the capability id,
// time-of-day constraints, and resource ceilings.
type IsolationPolicy struct {
	AllowPatterns []string
	DenyPatterns  []string
	Time          TimeConstraints
	Resources     ResourceConstraints
}

// Manifest describes one registered capability.
type Manifest struct {
	ID           string
	Description  string
	ProviderType ProviderType
	InputSchema  *value.TypeExpr
	OutputSchema *value.TypeExpr
	TimeoutMS    int64
	AuthToken    string

	// HTTP/OpenAPI/A2A/MCP endpoint configuration.
	BaseURL   string
	Operation string // OpenAPI operation hint: operation-id, "METHOD /path", or summary
	OpenAPI   *OpenAPIOperation

	Isolation IsolationPolicy

	// Attestation is required at registration when the Marketplace is
	// configured with security.require_attestation (spec §4.H); Execute
	// does not check it.
	Attestation *Attestation
	Provenance  *Provenance
}

// Attestation is produced by the synthesis/validation harness on a passing
// validation run (spec §4.H).
type Attestation struct {
	Signature string
	Authority string
	CreatedAt time.Time
	ExpiresAt time.Time
	Metadata  map[string]string
}

func (a *Attestation) validAt(now time.Time) bool {
	if a == nil {
		return false
	}
	return !now.Before(a.CreatedAt) && now.Before(a.ExpiresAt)
}

// OpenAPIAuthLocation is where an OpenAPI operation expects its auth
// parameter to be sent.
type OpenAPIAuthLocation string

const (
	OpenAPIAuthQuery  OpenAPIAuthLocation = "query"
	OpenAPIAuthHeader OpenAPIAuthLocation = "header"
	OpenAPIAuthCookie OpenAPIAuthLocation = "cookie"
)

// OpenAPIOperation resolves spec §4.C's OpenAPI provider hint to a concrete
// HTTP operation: method, path template with `{param}` placeholders, and
// where to place the auth credential.
type OpenAPIOperation struct {
	OperationID string
	Summary     string
	Method      string
	Path        string // e.g. "/users/{id}"
	AuthParam   string
	AuthIn      OpenAPIAuthLocation
	AuthEnvVar  string
}

// Provenance records where a synthesized capability came from.
type Provenance struct {
	ContentHash  string
	Version      string
	CustodyChain []string
	Source       string
	RegisteredAt time.Time
}
