package providers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Stream dispatches to long-lived duplex channels (spec §4.C "Stream";
// §5 "Concurrency"). A connection is opened lazily per capability id and
// reused across calls; callers needing true streaming rather than PL's
// single-value `call` result should read follow-on frames directly off
// Conn.
type Stream struct {
	dialer *websocket.Dialer

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewStream() *Stream {
	return &Stream{dialer: websocket.DefaultDialer, conns: make(map[string]*websocket.Conn)}
}

func (s *Stream) Execute(ctx context.Context, manifest *capability.Manifest, inputs value.Value) (value.Value, error) {
	conn, err := s.connFor(ctx, manifest)
	if err != nil {
		return value.Nil, err
	}

	payload, err := value.ToJSON(inputs)
	if err != nil {
		return value.Nil, err
	}
	if err := conn.WriteJSON(payload); err != nil {
		s.drop(manifest.ID)
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "writing to stream %q", manifest.ID)
	}

	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err != nil {
		s.drop(manifest.ID)
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "reading from stream %q", manifest.ID)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return value.Nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "decoding stream frame from %q", manifest.ID)
	}
	return value.FromJSON(decoded)
}

func (s *Stream) connFor(ctx context.Context, manifest *capability.Manifest) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.conns[manifest.ID]; ok {
		return conn, nil
	}
	conn, _, err := s.dialer.DialContext(ctx, manifest.BaseURL, nil)
	if err != nil {
		return nil, ccoserr.Wrap(ccoserr.KindProviderError, err, "dialing stream %q", manifest.ID)
	}
	s.conns[manifest.ID] = conn
	return conn, nil
}

func (s *Stream) drop(capabilityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.conns[capabilityID]; ok {
		conn.Close()
		delete(s.conns, capabilityID)
	}
}

// Close tears down every open stream connection, for graceful shutdown.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, conn := range s.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.conns, id)
	}
	return firstErr
}
