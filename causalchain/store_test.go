package causalchain

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/value"
)

// startEmbeddedJetStream boots an in-process NATS server with JetStream
// enabled, the same way cmd/ccosd wires the embedded profile (app.go's
// startNATS in the teacher repo). It returns a jetstream.JetStream bound
// to a random port, torn down via t.Cleanup.
func startEmbeddedJetStream(t *testing.T) jetstream.JetStream {
	t.Helper()
	opts := &server.Options{Port: -1, JetStream: true, NoLog: true, NoSigs: true}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	js, err := jetstream.New(conn)
	require.NoError(t, err)
	return js
}

func TestJetStreamStoreAppendAndLoadSession(t *testing.T) {
	js := startEmbeddedJetStream(t)
	store, err := NewJetStreamStore(t.Context(), js)
	require.NoError(t, err)

	chain := NewChain(store)
	a1 := NewAction(ActionCapabilityCall, value.String("first")).WithSession("sess-1")
	require.NoError(t, chain.Append(t.Context(), a1))
	a2 := NewAction(ActionCapabilityResult, value.String("second")).WithSession("sess-1")
	require.NoError(t, chain.Append(t.Context(), a2))

	fresh := NewChain(store)
	require.NoError(t, fresh.LoadSession(t.Context(), "sess-1"))
	assert.Equal(t, 2, fresh.Len())
	assert.NoError(t, fresh.VerifyIntegrity())
}

func TestJetStreamStoreSeparatesSessionsBySubject(t *testing.T) {
	js := startEmbeddedJetStream(t)
	store, err := NewJetStreamStore(t.Context(), js)
	require.NoError(t, err)

	chain := NewChain(store)
	require.NoError(t, chain.Append(t.Context(), NewAction(ActionCapabilityCall, value.Nil).WithSession("a")))
	require.NoError(t, chain.Append(t.Context(), NewAction(ActionCapabilityCall, value.Nil).WithSession("b")))

	loaded, err := store.LoadSession(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
