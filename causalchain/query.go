package causalchain

// Filter narrows query_actions to actions matching every non-empty field
// (spec §4.E "Queries" — "Multi-filter query_actions(filter) uses
// intersecting index reads").
type Filter struct {
	IntentID     string
	PlanID       string
	CapabilityID string
	SessionID    string
	Type         ActionType
	Limit        int
}

// GetAction returns the latest-wins action for id: since actions are
// append-only and never rewritten, "latest" only matters if the same
// logical action were ever appended twice, which the chain's own
// invariants forbid — this is a reverse scan for symmetry with the
// original SQLite-backed `get_action` semantics (spec §4.E).
func (c *Chain) GetAction(id string) (*Action, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.actions) - 1; i >= 0; i-- {
		if c.actions[i].ID == id {
			return c.actions[i], true
		}
	}
	return nil, false
}

// GetActionsByIntent returns actions indexed under intentID, in
// insertion order.
func (c *Chain) GetActionsByIntent(intentID string) []*Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Action(nil), c.byIntent[intentID]...)
}

// GetActionsByPlan returns actions indexed under planID, in insertion
// order.
func (c *Chain) GetActionsByPlan(planID string) []*Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Action(nil), c.byPlan[planID]...)
}

// GetActionsByCapability returns CapabilityCall/CapabilityResult actions
// whose FunctionName is capabilityID, in insertion order.
func (c *Chain) GetActionsByCapability(capabilityID string) []*Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Action(nil), c.byCapability[capabilityID]...)
}

// GetChildren returns the actions whose ParentActionID is id.
func (c *Chain) GetChildren(id string) []*Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Action(nil), c.byParent[id]...)
}

// GetParent returns the action referenced by id's ParentActionID, if any.
func (c *Chain) GetParent(id string) (*Action, bool) {
	c.mu.Lock()
	action, ok := c.byID[id]
	c.mu.Unlock()
	if !ok || action.ParentActionID == "" {
		return nil, false
	}
	return c.GetAction(action.ParentActionID)
}

// QueryActions applies Filter across the working set, intersecting index
// reads where possible and falling back to a full scan for fields that
// have no dedicated index (Type, SessionID).
func (c *Chain) QueryActions(f Filter) []*Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidates := c.actions
	switch {
	case f.IntentID != "":
		candidates = c.byIntent[f.IntentID]
	case f.PlanID != "":
		candidates = c.byPlan[f.PlanID]
	case f.CapabilityID != "":
		candidates = c.byCapability[f.CapabilityID]
	}

	var out []*Action
	for _, a := range candidates {
		if f.IntentID != "" && a.IntentID != f.IntentID {
			continue
		}
		if f.PlanID != "" && a.PlanID != f.PlanID {
			continue
		}
		if f.CapabilityID != "" && a.FunctionName != f.CapabilityID {
			continue
		}
		if f.SessionID != "" && a.SessionID != f.SessionID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}
