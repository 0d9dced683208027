package pl

import (
	"context"
	"testing"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
	"github.com/stretchr/testify/assert"
)

func TestNoopHostContextRoundTrip(t *testing.T) {
	h := NewNoopHost()
	_, ok := h.GetContext("missing")
	assert.False(t, ok)

	h.SetContext("k", value.Int(1))
	v, ok := h.GetContext("k")
	assert.True(t, ok)
	i, _ := v.Int()
	assert.Equal(t, int64(1), i)

	assert.False(t, h.Cancelled())
}

func TestNoopHostCallCapabilityIsUnknown(t *testing.T) {
	h := NewNoopHost()
	_, err := h.CallCapability(context.Background(), "math.add", value.Nil, ActionContext{})
	assert.Error(t, err)
	assert.Equal(t, ccoserr.KindUnknownCapability, ccoserr.KindOf(err))
}
