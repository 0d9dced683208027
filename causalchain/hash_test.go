package causalchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/value"
)

func TestActionHashIsDeterministicForSameFields(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a1 := &Action{ID: "a1", Type: ActionCapabilityCall, Timestamp: ts, Data: value.String("x")}
	a2 := &Action{ID: "a1", Type: ActionCapabilityCall, Timestamp: ts, Data: value.String("x")}

	h1, err := ActionHash(a1)
	require.NoError(t, err)
	h2, err := ActionHash(a2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestActionHashChangesWithData(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a1 := &Action{ID: "a1", Type: ActionCapabilityCall, Timestamp: ts, Data: value.String("x")}
	a2 := &Action{ID: "a1", Type: ActionCapabilityCall, Timestamp: ts, Data: value.String("y")}

	h1, _ := ActionHash(a1)
	h2, _ := ActionHash(a2)
	assert.NotEqual(t, h1, h2)
}

func TestChainHashChainsOnPrevious(t *testing.T) {
	h1 := ChainHash("", "abc")
	h2 := ChainHash(h1, "def")
	h3 := ChainHash("", "def")
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h2, h3)
}

func TestVerifyChainLinkDetectsTamperedData(t *testing.T) {
	a := &Action{ID: "a1", Type: ActionCapabilityCall, Timestamp: time.Now(), Data: value.Int(1)}
	actionHash, err := ActionHash(a)
	require.NoError(t, err)
	a.ActionHash = actionHash
	a.ChainHash = ChainHash("", actionHash)

	require.NoError(t, VerifyChainLink(a, ""))

	a.Data = value.Int(2)
	assert.Error(t, VerifyChainLink(a, ""))
}
