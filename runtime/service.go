package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/causalchain"
	"github.com/mandubian/ccos-sub008/intentgraph"
	"github.com/mandubian/ccos-sub008/planner"
	"github.com/mandubian/ccos-sub008/value"
)

// Service is the Runtime Service of spec §4.K: a cooperative
// single-threaded task host for the Planner/Interpreter/Marketplace,
// fronted by a command intake (Start/Cancel/Shutdown) and a best-effort
// event broadcast (Started/Status/.../Heartbeat).
type Service struct {
	Marketplace *capability.Marketplace
	Chain       *causalchain.Chain
	Graph       *intentgraph.Graph
	Pipeline    *planner.Pipeline
	Events      Broadcaster

	logger *slog.Logger
	cron   *cron.Cron

	mu       sync.Mutex
	sessions map[string]*Session // keyed by root intent id
}

// NewService wires a Service around an already-constructed Pipeline (its
// Catalogue/Decomposer/Resolver/Archive are set up by the caller, mirroring
// planner.NewPipeline's own "override what you have" contract).
func NewService(mp *capability.Marketplace, chain *causalchain.Chain, graph *intentgraph.Graph, pipeline *planner.Pipeline) *Service {
	return &Service{
		Marketplace: mp,
		Chain:       chain,
		Graph:       graph,
		Pipeline:    pipeline,
		Events:      NewBroadcaster(64),
		logger:      slog.Default(),
		sessions:    make(map[string]*Session),
	}
}

// WithLogger overrides the Service's logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Start runs the periodic maintenance loop (spec §4.K `Heartbeat`, §8
// invariant 1's periodic integrity check): every interval, verify the
// Causal Chain's hash sequence and publish Heartbeat, or Error if the
// chain has been tampered with (spec §7 IntegrityError is fatal to the
// process; the Service only reports it here, it does not itself decide to
// exit — that is cmd/ccosd's job, mapping to exit code 5).
func (s *Service) Start(heartbeatSpec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(heartbeatSpec, func() {
		if s.Chain != nil {
			if err := s.Chain.VerifyIntegrity(); err != nil {
				s.logger.Error("causal chain integrity check failed", "error", err)
				s.Events.Publish(Event{Type: EventError, Message: fmt.Sprintf("ledger integrity: %v", err)})
				return
			}
		}
		s.Events.Publish(Event{Type: EventHeartbeat})
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Command is one of the spec §4.K commands: Start{goal,context},
// Cancel{intent_id}, Shutdown.
type Command struct {
	Kind     CommandKind
	Goal     string
	Context  map[string]value.Value
	IntentID string
}

type CommandKind string

const (
	CmdStart    CommandKind = "Start"
	CmdCancel   CommandKind = "Cancel"
	CmdShutdown CommandKind = "Shutdown"
)

// Dispatch handles one command from the Runtime Service's mpsc command
// intake (spec §5 "The Runtime Service uses a broadcast channel for events
// and an mpsc for commands"). Start runs on its own goroutine so the
// caller's command loop keeps draining the channel while a plan executes —
// the single logical thread the spec describes is the planner/interpreter
// pipeline's own execution, not this dispatch loop.
func (s *Service) Dispatch(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CmdStart:
		go s.runSession(ctx, cmd.Goal, cmd.Context)
	case CmdCancel:
		if sess := s.lookupSession(cmd.IntentID); sess != nil {
			sess.Cancel()
		}
	case CmdShutdown:
		s.Shutdown()
	}
}

// Shutdown cancels every active session and stops the maintenance loop.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.Events.Publish(Event{Type: EventStopped})
	_ = s.Events.Close()
}

func (s *Service) registerSession(rootID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rootID] = sess
}

func (s *Service) unregisterSession(rootID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, rootID)
}

func (s *Service) lookupSession(rootID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[rootID]
}
