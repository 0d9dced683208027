package runtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/mandubian/ccos-sub008/intentgraph"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/value"
)

var tracer = otel.Tracer("github.com/mandubian/ccos-sub008/runtime")

// Session runs one `Start{goal, context}` command end to end: plan (via
// planner.Pipeline), then interpret the resulting Plan body form by form,
// publishing progress on the Service's event bus and honouring cooperative
// cancellation (spec §4.K, §5).
type Session struct {
	ID       string
	service  *Service
	host     *Host
	cancelFn context.CancelFunc
}

// runSession runs goal to completion (or cancellation/failure) on the calling
// goroutine; Dispatch runs it on its own goroutine for CmdStart so that the
// command returns immediately.
func (s *Service) runSession(ctx context.Context, goal string, goalCtx map[string]value.Value) {
	ctx, span := tracer.Start(ctx, "runtime.Session.Run")
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	sessionID := uuid.NewString()

	result, err := s.Pipeline.Run(ctx, goal)
	if err != nil {
		s.Events.Publish(Event{Type: EventError, Message: fmt.Sprintf("planning failed: %v", err)})
		s.Events.Publish(Event{Type: EventStopped})
		cancel()
		return
	}

	rootID := result.RootIntentID
	s.Events.Publish(Event{Type: EventStarted, IntentID: rootID, Goal: goal})

	nodes, edges := graphSnapshot(s.Graph, rootID)
	s.Events.Publish(Event{Type: EventGraphGenerated, RootID: rootID, Nodes: nodes, Edges: edges})
	s.Events.Publish(Event{Type: EventPlanGenerated, IntentID: rootID, PlanID: result.Plan.ID, RtfsCode: result.Plan.Body})

	if result.Plan.HasPendingSynthesis {
		s.Events.Publish(Event{Type: EventStatus, IntentID: rootID, Status: "PendingSynthesis"})
		s.Events.Publish(Event{Type: EventStopped})
		cancel()
		return
	}

	host := NewHost(s.Marketplace, s.Chain, sessionID, result.Plan.ID, rootID, "")
	sess := &Session{ID: sessionID, service: s, host: host, cancelFn: cancel}
	s.registerSession(rootID, sess)
	defer s.unregisterSession(rootID)

	if err := s.Graph.UpdateStatus(rootID, intentgraph.StatusExecuting); err != nil {
		s.Events.Publish(Event{Type: EventError, Message: err.Error()})
	}
	s.Events.Publish(Event{Type: EventStatus, IntentID: rootID, Status: string(intentgraph.StatusExecuting)})

	if goalCtx != nil {
		for k, v := range goalCtx {
			host.SetContext(k, v)
		}
	}

	sess.execute(ctx, rootID, result.Plan.Body)
}

// execute evaluates plan's PL forms one at a time (rather than a single
// interp.Run call) so each top-level form can be reported as a Step/StepLog
// pair and the cooperative cancel flag is observed between forms too, not
// only inside Host.CallCapability.
func (s *Session) execute(ctx context.Context, rootID, body string) {
	parsed, err := pl.Parse(body)
	if err != nil {
		s.fail(rootID, err)
		return
	}
	forms := topLevelSteps(parsed)

	interp := pl.NewInterpreter()
	env := interp.Stdlib.Child()

	var last value.Value
	for i, form := range forms {
		if s.host.Cancelled() || ctx.Err() != nil {
			s.service.Events.Publish(Event{Type: EventStatus, IntentID: rootID, Status: "Cancelled"})
			s.service.Events.Publish(Event{Type: EventStopped})
			return
		}

		desc := stepDescription(form, i)
		s.service.Events.Publish(Event{Type: EventStep, IntentID: rootID, Desc: desc})
		s.service.Events.Publish(Event{Type: EventStepLog, Step: desc, StepStatus: "started"})

		v, evalErr := interp.Eval(form, env, s.host)
		if evalErr != nil {
			s.service.Events.Publish(Event{Type: EventStepLog, Step: desc, StepStatus: "failed", Details: evalErr.Error()})
			s.fail(rootID, evalErr)
			return
		}
		last = v
		s.service.Events.Publish(Event{Type: EventStepLog, Step: desc, StepStatus: "completed"})

		if i < len(forms)-1 {
			s.service.Events.Publish(Event{Type: EventReadyForNext, NextStep: stepDescription(forms[i+1], i+1)})
		}
	}

	if err := s.service.Graph.UpdateStatus(rootID, intentgraph.StatusCompleted); err != nil {
		s.service.Events.Publish(Event{Type: EventError, Message: err.Error()})
	}
	s.service.Events.Publish(Event{Type: EventResult, IntentID: rootID, Result: renderResult(last)})
	s.service.Events.Publish(Event{Type: EventStatus, IntentID: rootID, Status: string(intentgraph.StatusCompleted)})
	s.service.Events.Publish(Event{Type: EventStopped})
}

func (s *Session) fail(rootID string, err error) {
	if cerr := s.service.Graph.UpdateStatus(rootID, intentgraph.StatusFailed); cerr != nil {
		s.service.Events.Publish(Event{Type: EventError, Message: cerr.Error()})
	}
	s.service.Events.Publish(Event{Type: EventError, Message: err.Error()})
	s.service.Events.Publish(Event{Type: EventStatus, IntentID: rootID, Status: string(intentgraph.StatusFailed)})
	s.service.Events.Publish(Event{Type: EventStopped})
}

// Cancel sets the cooperative cancel flag so the next suspension point
// raises Cancelled (spec §5 "Cancellation") and cancels the session's ctx,
// which execute checks between top-level forms. A provider call already in
// flight is not interrupted: the interpreter passes context.Background(),
// not the session's ctx, to Host.CallCapability.
func (s *Session) Cancel() {
	s.host.Cancel()
	if s.cancelFn != nil {
		s.cancelFn()
	}
}

// topLevelSteps flattens emitPL's output (planner/pipeline.go emitPL emits
// exactly one top-level value: a lone `(step ...)` form for a single step,
// or `(do (step ...) (step ...) ...)` for several) into one form per plan
// step, so execute can report Step/StepLog progress per step rather than
// treating the whole plan as one opaque evaluation.
func topLevelSteps(parsed []value.Value) []value.Value {
	var forms []value.Value
	for _, form := range parsed {
		if items, ok := form.Items(); ok && form.Kind() == value.KindList && len(items) > 0 {
			if head, ok := items[0].Str(); ok && head == "do" {
				forms = append(forms, items[1:]...)
				continue
			}
		}
		forms = append(forms, form)
	}
	return forms
}

func stepDescription(form value.Value, index int) string {
	if items, ok := form.Items(); ok && len(items) >= 2 && form.Kind() == value.KindList {
		if head, ok := items[0].Str(); ok && head == "step" {
			if label, ok := items[1].Str(); ok {
				return label
			}
		}
	}
	return fmt.Sprintf("step-%d", index)
}

func renderResult(v value.Value) string {
	if s, ok := v.Str(); ok {
		return s
	}
	return v.String()
}

func graphSnapshot(g *intentgraph.Graph, rootID string) ([]string, []string) {
	nodes := append([]string{rootID}, g.GetChildren(rootID)...)
	var edges []string
	for _, e := range g.Edges() {
		edges = append(edges, fmt.Sprintf("%s -%s-> %s", e.From, e.Type, e.To))
	}
	return nodes, edges
}
