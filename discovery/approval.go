package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApprovalQueue gates newly discovered servers behind an operator decision
// (spec §6 "Approval queue: add_server_discovery(source, server_info, tags,
// risk, approver?, expiry_hours) → approval_id").
type ApprovalQueue interface {
	AddServerDiscovery(ctx context.Context, source string, serverInfo RegistrySearchResult, tags []string, risk RiskAssessment, approver string, expiryHours int) (string, error)
}

// ApprovalRequest is one entry produced by AddServerDiscovery.
type ApprovalRequest struct {
	ID         string
	Source     string
	Server     RegistrySearchResult
	Tags       []string
	Risk       RiskAssessment
	Approver   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Decided    bool
	Approved   bool
}

// MemApprovalQueue is an in-memory ApprovalQueue, the default until an
// operator wires a persistent one (e.g. backed by the same JetStream KV
// bucket causalchain uses, per SPEC_FULL.md §3's persistence resolution).
type MemApprovalQueue struct {
	requests map[string]*ApprovalRequest
	now      func() time.Time
}

func NewMemApprovalQueue() *MemApprovalQueue {
	return &MemApprovalQueue{requests: make(map[string]*ApprovalRequest), now: time.Now}
}

func (q *MemApprovalQueue) AddServerDiscovery(_ context.Context, source string, serverInfo RegistrySearchResult, tags []string, risk RiskAssessment, approver string, expiryHours int) (string, error) {
	id := "approval-" + uuid.NewString()
	now := q.now()
	q.requests[id] = &ApprovalRequest{
		ID: id, Source: source, Server: serverInfo, Tags: tags, Risk: risk,
		Approver: approver, CreatedAt: now, ExpiresAt: now.Add(time.Duration(expiryHours) * time.Hour),
	}
	return id, nil
}

// Get returns the approval request by id, if present.
func (q *MemApprovalQueue) Get(id string) (*ApprovalRequest, bool) {
	r, ok := q.requests[id]
	return r, ok
}

// Decide records an approve/reject decision.
func (q *MemApprovalQueue) Decide(id string, approved bool) bool {
	r, ok := q.requests[id]
	if !ok {
		return false
	}
	r.Decided = true
	r.Approved = approved
	return true
}

// AssessRisk derives a RiskAssessment for a candidate server about to enter
// the approval queue. Risk rises to medium for best-effort browser
// introspection or more than 10 operations, to high for a local endpoint
// address, and to critical for any destructive or execution operation.
// Endpoints are not checked for authentication.
func AssessRisk(candidate RegistrySearchResult, introspection *IntrospectionResult) RiskAssessment {
	var reasons []string
	level := RiskLow

	if introspection != nil && introspection.Kind == IntrospectBrowser {
		reasons = append(reasons, "introspected via best-effort browser extraction, not a structured schema")
		level = RiskMedium
	}
	if introspection != nil && len(introspection.Operations) > 10 {
		reasons = append(reasons, "exposes a large operation surface")
		if level == RiskLow {
			level = RiskMedium
		}
	}
	if strings.Contains(strings.ToLower(candidate.Endpoint), "localhost") || strings.Contains(candidate.Endpoint, "127.0.0.1") {
		reasons = append(reasons, "endpoint is a local address, unusual for a discovered server")
		level = RiskHigh
	}
	for _, op := range operationsOf(introspection) {
		lower := strings.ToLower(op.ID + " " + op.Description)
		if strings.Contains(lower, "delete") || strings.Contains(lower, "drop") || strings.Contains(lower, "exec") {
			reasons = append(reasons, "exposes a destructive or execution operation: "+op.ID)
			level = RiskCritical
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no elevated-risk signals found")
	}
	return RiskAssessment{Level: level, Reasons: reasons}
}

func operationsOf(introspection *IntrospectionResult) []Operation {
	if introspection == nil {
		return nil
	}
	return introspection.Operations
}
