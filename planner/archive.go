package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// Plan is one archived Plan Language program (spec §4.G step 8): the
// canonical PL body, its content hash, and provenance back to the Intent
// that produced it.
type Plan struct {
	ID                  string
	IntentID            string
	Body                string // canonical PL source, see pl.CanonicalProgram
	ContentHash         string
	HasPendingSynthesis bool
	CreatedAt           time.Time
}

// HashPlanBody content-addresses a canonical PL body the same way
// causalchain/hash.go content-addresses an Action: SHA-256 over the exact
// bytes, hex-encoded. Canonical rendering (pl.CanonicalProgram) guarantees
// two plans with the same logical body hash identically regardless of
// whitespace the synthesiser happened to emit.
func HashPlanBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// PlanArchive stores Plans keyed by content hash, deduplicating identical
// bodies (spec §4.G step 8 "content-addressed by hash of canonical body").
type PlanArchive interface {
	Store(ctx context.Context, p *Plan) error
	Get(ctx context.Context, contentHash string) (*Plan, bool, error)
	GetByID(ctx context.Context, planID string) (*Plan, bool, error)
	ByIntent(ctx context.Context, intentID string) ([]*Plan, error)
}

// MemPlanArchive is an in-memory PlanArchive, the planner-scoped analogue
// of causalchain.MemStore: adequate for tests and for a single-process
// runtime that doesn't need the archive to survive a restart.
type MemPlanArchive struct {
	mu       sync.Mutex
	byHash   map[string]*Plan
	byID     map[string]*Plan
	byIntent map[string][]*Plan
}

func NewMemPlanArchive() *MemPlanArchive {
	return &MemPlanArchive{
		byHash:   make(map[string]*Plan),
		byID:     make(map[string]*Plan),
		byIntent: make(map[string][]*Plan),
	}
}

func (a *MemPlanArchive) Store(_ context.Context, p *Plan) error {
	if p.ContentHash == "" {
		return ccoserr.New(ccoserr.KindInternalError, "plan archive: plan %q has no content hash", p.ID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byID[p.ID] = p
	if _, exists := a.byHash[p.ContentHash]; exists {
		return nil // content-addressed: identical body is already archived
	}
	a.byHash[p.ContentHash] = p
	a.byIntent[p.IntentID] = append(a.byIntent[p.IntentID], p)
	return nil
}

func (a *MemPlanArchive) Get(_ context.Context, contentHash string) (*Plan, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.byHash[contentHash]
	return p, ok, nil
}

// GetByID looks up a Plan by its ID rather than its content hash — the
// lookup `introspect.plan_trace`/`introspect.type_analysis` (spec §4.J) need
// given only a plan_id parameter.
func (a *MemPlanArchive) GetByID(_ context.Context, planID string) (*Plan, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.byID[planID]
	return p, ok, nil
}

func (a *MemPlanArchive) ByIntent(_ context.Context, intentID string) ([]*Plan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Plan, len(a.byIntent[intentID]))
	copy(out, a.byIntent[intentID])
	return out, nil
}
