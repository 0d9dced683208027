package synthesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
)

type recordingEvents struct {
	started   []Request
	completed []string
}

func (r *recordingEvents) RecordSynthesisStarted(_ context.Context, req Request) {
	r.started = append(r.started, req)
}

func (r *recordingEvents) RecordSynthesisCompleted(_ context.Context, req Request, strategy string, ok bool, reason string) {
	r.completed = append(r.completed, strategy)
}

func TestHarnessTriesStrategiesInOrder(t *testing.T) {
	events := &recordingEvents{}
	h := NewHarness(events, NewUserDeferral())

	_, err := h.Resolve(context.Background(), Request{CapabilityID: "weather.current"})
	require.Error(t, err)
	assert.Equal(t, []string{"user_deferral"}, events.completed)
}

func TestHarnessReturnsUnknownCapabilityWhenNoStrategyHandles(t *testing.T) {
	h := NewHarness(nil)
	_, err := h.Resolve(context.Background(), Request{CapabilityID: "x"})
	require.Error(t, err)
}

func TestRewriteToExistingMatchesByPathSegmentOverlap(t *testing.T) {
	mp := capability.NewMarketplace(nil, false)
	require.NoError(t, mp.Register(&capability.Manifest{ID: "weather.current", Description: "current weather"}))
	require.NoError(t, mp.Register(&capability.Manifest{ID: "files.delete", Description: "delete a file"}))

	s := NewRewriteToExisting(mp)
	result, err := s.Resolve(context.Background(), Request{CapabilityID: "weather.today"})
	require.NoError(t, err)
	assert.Equal(t, "weather.current", result.Manifest.ID)
}

func TestRewriteToExistingFailsWithoutOverlap(t *testing.T) {
	mp := capability.NewMarketplace(nil, false)
	require.NoError(t, mp.Register(&capability.Manifest{ID: "files.delete", Description: "delete a file"}))

	s := NewRewriteToExisting(mp)
	_, err := s.Resolve(context.Background(), Request{CapabilityID: "weather.today"})
	require.Error(t, err)
}

func TestRemoteProposalOnlyHandlesWhenConfigured(t *testing.T) {
	s := NewRemoteProposal(nil)
	assert.False(t, s.CanHandle(Request{CapabilityID: "x"}))

	called := false
	s2 := NewRemoteProposal(func(context.Context, Request) (*Result, error) {
		called = true
		return &Result{}, nil
	})
	assert.True(t, s2.CanHandle(Request{CapabilityID: "x"}))
	_, err := s2.Resolve(context.Background(), Request{CapabilityID: "x"})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestUserDeferralAlwaysFails(t *testing.T) {
	s := NewUserDeferral()
	assert.True(t, s.CanHandle(Request{}))
	_, err := s.Resolve(context.Background(), Request{CapabilityID: "weather.current"})
	require.Error(t, err)
}
