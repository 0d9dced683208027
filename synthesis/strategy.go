// Package synthesis implements the missing-capability synthesis harness
// and the manifest/PL validation rules gating what it registers (spec
// §4.H). Strategy shape follows planner's ResolveStrategy — try in order,
// first one that can_handle wins — which itself follows the teacher's
// processor/context-builder strategies pattern.
package synthesis

import (
	"context"
	"time"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Request describes a capability the Marketplace couldn't resolve (spec
// §4.H "Request carries the target capability_id, arguments, context,
// requested_at, attempt_count").
type Request struct {
	CapabilityID string
	Args         value.Value
	Context      map[string]string
	RequestedAt  time.Time
	AttemptCount int
}

// Result is a successful synthesis: a manifest ready for Register plus the
// PL body that backs a ProviderLocal manifest.
type Result struct {
	Manifest *capability.Manifest
	PLSource string
}

// Strategy attempts to synthesize a capability for an unresolved request
// (spec §4.H "can_handle(request) -> bool; resolve(request, ctx) ->
// Result<CapabilityRef>").
type Strategy interface {
	Name() string
	CanHandle(req Request) bool
	Resolve(ctx context.Context, req Request) (*Result, error)
}

// Harness runs a configured chain of Strategy in order, logging
// CapabilitySynthesisStarted/Completed via Events the same way
// planner.Pipeline logs its own steps.
type Harness struct {
	Strategies []Strategy
	Events     EventSink
}

// EventSink mirrors planner.EventSink so synthesis doesn't need to import
// planner (which would create a cycle once planner starts calling into
// synthesis for NeedsReferral follow-up).
type EventSink interface {
	RecordSynthesisStarted(ctx context.Context, req Request)
	RecordSynthesisCompleted(ctx context.Context, req Request, strategy string, ok bool, reason string)
}

func NewHarness(events EventSink, strategies ...Strategy) *Harness {
	return &Harness{Strategies: strategies, Events: events}
}

// Resolve tries each strategy in order, returning the first one that
// handles the request (spec §4.H).
func (h *Harness) Resolve(ctx context.Context, req Request) (*Result, error) {
	if h.Events != nil {
		h.Events.RecordSynthesisStarted(ctx, req)
	}
	for _, s := range h.Strategies {
		if !s.CanHandle(req) {
			continue
		}
		result, err := s.Resolve(ctx, req)
		if h.Events != nil {
			h.Events.RecordSynthesisCompleted(ctx, req, s.Name(), err == nil, errMsg(err))
		}
		return result, err
	}
	if h.Events != nil {
		h.Events.RecordSynthesisCompleted(ctx, req, "", false, "no strategy could handle the request")
	}
	return nil, ccoserr.New(ccoserr.KindUnknownCapability, "no synthesis strategy could handle %q", req.CapabilityID)
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// RewriteToExisting matches the unresolved request against already
// registered manifests whose id shares the most path segments with the
// requested capability id — the cheapest possible
// strategy, tried first so a near-miss id doesn't trigger an LLM call.
type RewriteToExisting struct {
	Marketplace *capability.Marketplace
}

func NewRewriteToExisting(mp *capability.Marketplace) *RewriteToExisting {
	return &RewriteToExisting{Marketplace: mp}
}

func (s *RewriteToExisting) Name() string { return "rewrite_to_existing" }

func (s *RewriteToExisting) CanHandle(req Request) bool {
	return s.Marketplace != nil && req.CapabilityID != ""
}

func (s *RewriteToExisting) Resolve(_ context.Context, req Request) (*Result, error) {
	segments := pathSegments(req.CapabilityID)
	var best *capability.Manifest
	bestScore := 0
	for _, m := range s.Marketplace.List() {
		score := overlap(segments, pathSegments(m.ID))
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	if best == nil || bestScore == 0 {
		return nil, ccoserr.New(ccoserr.KindUnknownCapability, "no existing capability overlaps %q", req.CapabilityID)
	}
	return &Result{Manifest: best}, nil
}

func pathSegments(id string) []string {
	var out []string
	cur := ""
	for _, r := range id {
		if r == '.' || r == '_' || r == '-' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func overlap(a, b []string) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
			}
		}
	}
	return n
}

// RemoteProposal defers synthesis to an operator-configured remote
// synthesis service (e.g. the discovery pipeline's registry search
// extended to "propose a manifest"); Propose is nil by default, meaning
// this strategy never handles anything until an operator wires one in.
type RemoteProposal struct {
	Propose func(ctx context.Context, req Request) (*Result, error)
}

func NewRemoteProposal(propose func(ctx context.Context, req Request) (*Result, error)) *RemoteProposal {
	return &RemoteProposal{Propose: propose}
}

func (s *RemoteProposal) Name() string { return "remote_proposal" }

func (s *RemoteProposal) CanHandle(req Request) bool { return s.Propose != nil }

func (s *RemoteProposal) Resolve(ctx context.Context, req Request) (*Result, error) {
	return s.Propose(ctx, req)
}

// UserDeferral is the strategy of last resort: it always handles the
// request and always fails, surfacing a referral the runtime can turn
// into a ccos.user.ask prompt (spec §4.G step 5's NeedsReferral mirrored
// at the synthesis layer).
type UserDeferral struct{}

func NewUserDeferral() *UserDeferral { return &UserDeferral{} }

func (s *UserDeferral) Name() string { return "user_deferral" }

func (s *UserDeferral) CanHandle(Request) bool { return true }

func (s *UserDeferral) Resolve(_ context.Context, req Request) (*Result, error) {
	return nil, ccoserr.New(ccoserr.KindUnknownCapability, "capability %q requires user input to synthesize", req.CapabilityID)
}
