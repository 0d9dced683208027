// Package intentgraph implements the typed graph of Intents and Edges that
// the Modular Planner decomposes a goal into (spec §3 "Intent"/"Intent
// Graph", §4.F). Storage lives behind a plain mutex the way the teacher's
// storage.Store guards its NATS KV handles — a coarser lock than the
// spec's async RW lock, since CCOS runs the Planner/Interpreter/Marketplace
// cooperatively on one logical thread (spec §5 "Scheduling model").
package intentgraph

import (
	"time"

	"github.com/mandubian/ccos-sub008/value"
)

// Status is an Intent's lifecycle state (spec §3, §4.F).
type Status string

const (
	StatusActive    Status = "Active"
	StatusExecuting Status = "Executing"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusArchived  Status = "Archived"
	StatusSuspended Status = "Suspended"
)

// validTransitions encodes spec §4.F: "Active → Executing →
// (Completed|Failed|Suspended); Suspended → Executing allowed; Archived is
// terminal." Any status may transition to Archived (not listed explicitly,
// but required for the Plan Archive to ever mark an Intent done with).
var validTransitions = map[Status]map[Status]bool{
	StatusActive:    {StatusExecuting: true, StatusArchived: true},
	StatusExecuting: {StatusCompleted: true, StatusFailed: true, StatusSuspended: true, StatusArchived: true},
	StatusSuspended: {StatusExecuting: true, StatusArchived: true},
	StatusCompleted: {StatusArchived: true},
	StatusFailed:    {StatusArchived: true},
	StatusArchived:  {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return validTransitions[from][to]
}

// TriggeredBy classifies what caused an Intent to be created (spec §3
// StorableIntent).
type TriggeredBy string

const (
	TriggeredByHumanRequest   TriggeredBy = "HumanRequest"
	TriggeredByPlanExecution  TriggeredBy = "PlanExecution"
	TriggeredBySystemSignal   TriggeredBy = "SystemSignal"
)

// GenerationContext records provenance for a synthesised Intent (spec §3
// StorableIntent "generation_context (arbiter version, timestamp,
// reasoning trace)").
type GenerationContext struct {
	ArbiterVersion string
	Timestamp      time.Time
	ReasoningTrace string
}

// Intent is a node of the Intent Graph: a declarative statement of desired
// outcome (spec §3 "Intent", "StorableIntent").
type Intent struct {
	ID              string
	Name            string
	Goal            string
	OriginalRequest string
	Constraints     map[string]value.Value
	Preferences     map[string]value.Value
	SuccessCriteria value.Value
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Metadata        map[string]value.Value

	// StorableIntent fields.
	RtfsIntentSource  string
	ParentIntent      string
	ChildIntents      []string
	TriggeredBy       TriggeredBy
	GenerationContext GenerationContext
	Priority          int
}

// NewIntent builds an Active Intent with fresh timestamps, ready for
// Graph.StoreIntent.
func NewIntent(id, goal string) *Intent {
	now := time.Now()
	return &Intent{
		ID:          id,
		Goal:        goal,
		Status:      StatusActive,
		Constraints: make(map[string]value.Value),
		Preferences: make(map[string]value.Value),
		Metadata:    make(map[string]value.Value),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
