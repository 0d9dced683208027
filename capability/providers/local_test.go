package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/capability"
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

func TestLocalExecuteDispatchesRegisteredHandler(t *testing.T) {
	l := NewLocal()
	l.Register("math.add", func(_ context.Context, inputs value.Value) (value.Value, error) {
		items, _ := inputs.Items()
		a, _ := items[0].Int()
		b, _ := items[1].Int()
		return value.Int(a + b), nil
	})

	v, err := l.Execute(context.Background(), &capability.Manifest{ID: "math.add"}, value.Vector(value.Int(2), value.Int(3)))
	require.NoError(t, err)
	i, _ := v.Int()
	assert.Equal(t, int64(5), i)
}

func TestLocalExecuteMissingHandlerIsProviderError(t *testing.T) {
	l := NewLocal()
	_, err := l.Execute(context.Background(), &capability.Manifest{ID: "missing"}, value.Nil)
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindProviderError, ccoserr.KindOf(err))
}
