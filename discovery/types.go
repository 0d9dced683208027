// Package discovery implements the Server Discovery Pipeline (spec §4.I):
// a configurable, stage-ordered search for capability providers — registry
// search across multiple sources, LLM-suggested candidates, LLM-assisted
// ranking, dedupe, introspection, staging, and an approval queue gated by
// a risk assessment. Shape follows the teacher's processor/* pipeline
// component style: one small struct per stage, composed by a Pipeline.
package discovery

import "time"

// Category classifies where a RegistrySearchResult came from; each
// Introspector's Applies uses it to decide whether it handles a candidate.
type Category string

const (
	CategoryMCP     Category = "MCP"
	CategoryNPM     Category = "NPM"
	CategoryLocal   Category = "Local"
	CategoryOpenAPI Category = "OpenAPI"
	CategoryWebDoc  Category = "WebDoc"
)

// RegistrySearchResult is one candidate capability provider surfaced by any
// search source (spec §4.I).
type RegistrySearchResult struct {
	ID          string
	Name        string
	Description string
	Endpoint    string
	Source      string
	Category    Category
	MatchScore  float64
	Tags        []string
}

// IntrospectionKind names which introspection stage produced a result.
type IntrospectionKind string

const (
	IntrospectMCP     IntrospectionKind = "mcp"
	IntrospectOpenAPI IntrospectionKind = "openapi"
	IntrospectBrowser IntrospectionKind = "browser"
)

// IntrospectionResult is what a successful introspection stage extracted
// from a candidate's endpoint: enough to stage a capability manifest.
type IntrospectionResult struct {
	Kind        IntrospectionKind
	Operations  []Operation
	Title       string
	Description string
}

// Operation is one capability surfaced by introspecting a candidate
// endpoint (an MCP tool, an OpenAPI operation, or a browser-extracted
// affordance).
type Operation struct {
	ID          string
	Description string
	InputHint   string
}

// RiskLevel is the approval queue's coarse risk bucket.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskAssessment is attached to every approval-queue entry (spec §4.I
// "enqueues a ServerDiscovery request into the approval queue with a risk
// assessment").
type RiskAssessment struct {
	Level   RiskLevel
	Reasons []string
}

// StagedCapability is a PL capability body materialized under
// pending/<server>/… awaiting approval (spec §4.I staging stage).
type StagedCapability struct {
	Server    string
	ID        string
	PLSource  string
	StagedAt  time.Time
	FromKind  IntrospectionKind
}
