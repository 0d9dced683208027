// Package runtime hosts the spec §4.K Runtime Service & Session: the
// cooperative single-threaded task runtime that wires the Planner,
// Interpreter, and Marketplace together, the Host implementation the
// interpreter calls out to, and the best-effort event broadcast bus
// sessions use to report progress.
package runtime

import (
	"context"
	"sync"
)

// EventType discriminates the Runtime Service's event union (spec §4.K).
type EventType string

const (
	EventStarted        EventType = "Started"
	EventStatus         EventType = "Status"
	EventStep           EventType = "Step"
	EventResult         EventType = "Result"
	EventError          EventType = "Error"
	EventGraphGenerated EventType = "GraphGenerated"
	EventPlanGenerated  EventType = "PlanGenerated"
	EventStepLog        EventType = "StepLog"
	EventReadyForNext   EventType = "ReadyForNext"
	EventStopped        EventType = "Stopped"
	EventHeartbeat      EventType = "Heartbeat"
)

// Event is one entry on the Runtime Service's broadcast bus. Only the
// fields relevant to Type are populated; the rest are zero.
type Event struct {
	Type EventType

	IntentID string // Started, Status, Step, Result
	Goal     string // Started
	Status   string // Status

	Desc   string // Step
	Result string // Result

	Message string // Error

	RootID string   // GraphGenerated
	Nodes  []string // GraphGenerated
	Edges  []string // GraphGenerated

	PlanID  string // PlanGenerated
	RtfsCode string // PlanGenerated

	Step     string // StepLog, ReadyForNext
	StepStatus string // StepLog
	Details  string // StepLog
	NextStep string // ReadyForNext
}

// Broadcaster is a minimal, concurrency-safe publish/subscribe abstraction
// for the Runtime Service's event bus (spec §4.K "Event delivery is
// best-effort broadcast; slow receivers may lag without affecting the
// runtime"). Grounded directly on the pack's own
// goadesign-goa-ai/runtime/mcp/broadcast.go Broadcaster, whose
// drop-on-full-buffer semantics are exactly what "best-effort" names.
type Broadcaster interface {
	Subscribe(ctx context.Context) (Subscription, error)
	Publish(ev Event)
	Close() error
}

// Subscription is a live registration with a Broadcaster.
type Subscription interface {
	C() <-chan Event
	Close() error
}

type channelBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buf    int
	closed bool
}

// NewBroadcaster builds an in-memory Broadcaster backed by buffered,
// drop-when-full channels: a slow receiver misses events rather than
// blocking the runtime's single logical thread.
func NewBroadcaster(buf int) Broadcaster {
	return &channelBroadcaster{subs: make(map[chan Event]struct{}), buf: buf}
}

func (b *channelBroadcaster) Subscribe(ctx context.Context) (Subscription, error) {
	ch := make(chan Event, b.buf)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return &channelSub{ch: ch, parent: b}, nil
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	sub := &channelSub{ch: ch, parent: b}
	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

func (b *channelBroadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// slow receiver: drop rather than block the runtime thread.
		}
	}
}

func (b *channelBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
	return nil
}

type channelSub struct {
	mu     sync.Mutex
	ch     chan Event
	parent *channelBroadcaster
}

func (s *channelSub) C() <-chan Event { return s.ch }

func (s *channelSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return nil
	}
	s.parent.mu.Lock()
	if _, ok := s.parent.subs[s.ch]; ok {
		close(s.ch)
		delete(s.parent.subs, s.ch)
	}
	s.parent.mu.Unlock()
	s.ch = nil
	return nil
}
