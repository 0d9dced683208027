package causalchain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Store is the durability boundary beneath Chain (spec §3 Open Question
// resolutions: an embedded NATS JetStream stream + KV bucket stands in for
// the spec's SQLite table, the way the teacher's storage.Store stands in
// for a relational entity store). The DB remains source of truth; Chain's
// in-memory working set is a cache over it.
type Store interface {
	Append(ctx context.Context, a *Action) error
	LoadSession(ctx context.Context, sessionID string) ([]*Action, error)
}

// JetStreamStore persists actions as one message per Action on the
// CAUSAL_CHAIN stream, subject-partitioned by session, and maintains a
// CAUSAL_CHAIN_IDX KV bucket mapping intent_id/plan_id/action_id to stream
// sequence numbers (SPEC_FULL.md §3.1).
type JetStreamStore struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	idx    jetstream.KeyValue
}

const (
	StreamName     = "CAUSAL_CHAIN"
	IndexBucket    = "CAUSAL_CHAIN_IDX"
	subjectPrefix  = "ccos.causalchain"
)

// NewJetStreamStore creates (or binds to) the CAUSAL_CHAIN stream and its
// index bucket, the way storage.NewStore in the teacher's repo creates its
// KV buckets on first use.
func NewJetStreamStore(ctx context.Context, js jetstream.JetStream) (*JetStreamStore, error) {
	stream, err := js.Stream(ctx, StreamName)
	if err != nil {
		stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        StreamName,
			Description: "CCOS causal chain: append-only hash-chained action log",
			Subjects:    []string{subjectPrefix + ".>"},
			Storage:     jetstream.FileStorage,
			Retention:   jetstream.LimitsPolicy,
		})
		if err != nil {
			return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: creating %s stream", StreamName)
		}
	}

	idx, err := js.KeyValue(ctx, IndexBucket)
	if err != nil {
		idx, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      IndexBucket,
			Description: "CCOS causal chain multi-index (intent/plan/action -> stream sequence)",
		})
		if err != nil {
			return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: creating %s bucket", IndexBucket)
		}
	}

	return &JetStreamStore{js: js, stream: stream, idx: idx}, nil
}

type wireAction struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	PlanID         string `json:"plan_id,omitempty"`
	IntentID       string `json:"intent_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	ParentActionID string `json:"parent_action_id,omitempty"`
	FunctionName   string `json:"function_name,omitempty"`
	Timestamp      int64  `json:"timestamp"`
	Data           any    `json:"data"`
	ActionHash     string `json:"action_hash"`
	ChainHash      string `json:"chain_hash"`
}

// Append publishes the action as one JetStream message on
// `ccos.causalchain.<session>` (or `.none` if unsessioned) and records its
// stream sequence number under every applicable index key. This is the
// JetStream analogue of the spec's single INSERT + index update (§4.E
// "Append").
func (s *JetStreamStore) Append(ctx context.Context, a *Action) error {
	data, err := value.ToJSON(a.Data)
	if err != nil {
		return ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: converting action %s data to JSON", a.ID)
	}
	wire := wireAction{
		ID: a.ID, Type: string(a.Type), PlanID: a.PlanID, IntentID: a.IntentID,
		SessionID: a.SessionID, ParentActionID: a.ParentActionID, FunctionName: a.FunctionName,
		Timestamp: a.Timestamp.UnixNano(), Data: data, ActionHash: a.ActionHash, ChainHash: a.ChainHash,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: marshalling action %s", a.ID)
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, sessionSubjectPart(a.SessionID))
	ack, err := s.js.Publish(ctx, subject, payload)
	if err != nil {
		return ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: publishing action %s", a.ID)
	}

	seq := strconv.FormatUint(ack.Sequence, 10)
	if _, err := s.idx.PutString(ctx, "action."+a.ID, seq); err != nil {
		return ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: indexing action %s by id", a.ID)
	}
	if a.IntentID != "" {
		if _, err := s.idx.PutString(ctx, "intent."+a.IntentID+"."+seq, seq); err != nil {
			return ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: indexing action %s by intent", a.ID)
		}
	}
	if a.PlanID != "" {
		if _, err := s.idx.PutString(ctx, "plan."+a.PlanID+"."+seq, seq); err != nil {
			return ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: indexing action %s by plan", a.ID)
		}
	}
	return nil
}

// LoadSession streams every message on `ccos.causalchain.<session>` in
// insertion order, deserialising each into an Action (spec §4.E
// `load_session`). Older messages that predate the SessionID field (the
// JetStream analogue of the spec's `ALTER TABLE ADD COLUMN`) still decode
// cleanly since wireAction.SessionID is optional.
func (s *JetStreamStore) LoadSession(ctx context.Context, sessionID string) ([]*Action, error) {
	subject := fmt.Sprintf("%s.%s", subjectPrefix, sessionSubjectPart(sessionID))
	cons, err := s.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: creating replay consumer for session %s", sessionID)
	}

	var actions []*Action
	msgs, err := cons.FetchNoWait(10_000)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: fetching session %s", sessionID)
	}
	for msg := range msgs.Messages() {
		var wire wireAction
		if err := json.Unmarshal(msg.Data(), &wire); err != nil {
			continue
		}
		actions = append(actions, wireToAction(wire))
	}
	if err := msgs.Error(); err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "causal chain: replaying session %s", sessionID)
	}
	return actions, nil
}

func wireToAction(w wireAction) *Action {
	data, _ := value.FromJSON(w.Data)
	return &Action{
		ID: w.ID, Type: ActionType(w.Type), PlanID: w.PlanID, IntentID: w.IntentID,
		SessionID: w.SessionID, ParentActionID: w.ParentActionID, FunctionName: w.FunctionName,
		Timestamp: time.Unix(0, w.Timestamp),
		Data:      data, ActionHash: w.ActionHash, ChainHash: w.ChainHash,
	}
}

func sessionSubjectPart(sessionID string) string {
	if sessionID == "" {
		return "none"
	}
	return sessionID
}

// MemStore is an in-process Store for tests and for the Mock MicroVM
// profile; it has none of JetStreamStore's durability but the same
// append/replay contract.
type MemStore struct {
	mu      sync.Mutex
	bySession map[string][]*Action
}

func NewMemStore() *MemStore {
	return &MemStore{bySession: make(map[string][]*Action)}
}

func (m *MemStore) Append(_ context.Context, a *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.bySession[a.SessionID] = append(m.bySession[a.SessionID], &cp)
	return nil
}

func (m *MemStore) LoadSession(_ context.Context, sessionID string) ([]*Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*Action(nil), m.bySession[sessionID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
