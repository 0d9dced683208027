package causalchain

import (
	"context"
	"sync"
)

// Chain is the in-memory working set over a session's appended Actions,
// multi-indexed by intent/plan/capability/parent (spec §4.E "Session
// working set"). A Chain is backed by a Store for durability; Append
// writes through before updating the in-memory structures, matching the
// teacher's NATS-KV-is-source-of-truth discipline in storage/entity.go.
type Chain struct {
	store Store

	mu          sync.Mutex
	actions     []*Action // insertion order; the chain_hash sequence
	byID        map[string]*Action
	byIntent    map[string][]*Action
	byPlan      map[string][]*Action
	byCapability map[string][]*Action
	byParent    map[string][]*Action
	lastHash    string
}

// NewChain builds a Chain over an empty working set backed by store.
func NewChain(store Store) *Chain {
	return &Chain{
		store:        store,
		byID:         make(map[string]*Action),
		byIntent:     make(map[string][]*Action),
		byPlan:       make(map[string][]*Action),
		byCapability: make(map[string][]*Action),
		byParent:     make(map[string][]*Action),
	}
}

// Append computes action_hash/chain_hash, persists the Action via the
// Store, then updates the in-memory working set and indices (spec §4.E
// "Append"). The Action's ActionHash/ChainHash are mutated in place.
func (c *Chain) Append(ctx context.Context, a *Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	actionHash, err := ActionHash(a)
	if err != nil {
		return err
	}
	a.ActionHash = actionHash
	a.ChainHash = ChainHash(c.lastHash, actionHash)

	if c.store != nil {
		if err := c.store.Append(ctx, a); err != nil {
			return err
		}
	}

	c.index(a)
	c.lastHash = a.ChainHash
	return nil
}

func (c *Chain) index(a *Action) {
	c.actions = append(c.actions, a)
	c.byID[a.ID] = a
	if a.IntentID != "" {
		c.byIntent[a.IntentID] = append(c.byIntent[a.IntentID], a)
	}
	if a.PlanID != "" {
		c.byPlan[a.PlanID] = append(c.byPlan[a.PlanID], a)
	}
	if a.FunctionName != "" && (a.Type == ActionCapabilityCall || a.Type == ActionCapabilityResult) {
		c.byCapability[a.FunctionName] = append(c.byCapability[a.FunctionName], a)
	}
	if a.ParentActionID != "" {
		c.byParent[a.ParentActionID] = append(c.byParent[a.ParentActionID], a)
	}
}

// LoadSession streams matching rows from the Store in insertion order,
// rebuilding indices, skipping IDs already present in the working set
// (spec §4.E "Session working set" `load_session`).
func (c *Chain) LoadSession(ctx context.Context, sessionID string) error {
	if c.store == nil {
		return nil
	}
	loaded, err := c.store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range loaded {
		if _, ok := c.byID[a.ID]; ok {
			continue
		}
		c.index(a)
		c.lastHash = a.ChainHash
	}
	return nil
}

// UnloadSession evicts a session's actions from the working set and
// rebuilds every index from the remainder (spec §4.E `unload_session`).
// The backing Store is untouched — it remains source of truth.
func (c *Chain) UnloadSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]*Action, 0, len(c.actions))
	for _, a := range c.actions {
		if a.SessionID != sessionID {
			kept = append(kept, a)
		}
	}
	c.rebuildLocked(kept)
}

func (c *Chain) rebuildLocked(actions []*Action) {
	c.actions = nil
	c.byID = make(map[string]*Action)
	c.byIntent = make(map[string][]*Action)
	c.byPlan = make(map[string][]*Action)
	c.byCapability = make(map[string][]*Action)
	c.byParent = make(map[string][]*Action)
	c.lastHash = ""
	for _, a := range actions {
		c.index(a)
		c.lastHash = a.ChainHash
	}
}

// VerifyIntegrity recomputes the chain hash from the in-memory sequence and
// returns an error describing the first mismatch, or nil if every link
// checks out (spec §4.E "Integrity").
func (c *Chain) VerifyIntegrity() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := ""
	for _, a := range c.actions {
		if err := VerifyChainLink(a, prev); err != nil {
			return err
		}
		prev = a.ChainHash
	}
	return nil
}

// Len reports the number of actions currently in the working set.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions)
}
