package microvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/pl"
	"github.com/mandubian/ccos-sub008/value"
)

func TestProcessExecuteProgramRunsPlSource(t *testing.T) {
	p := NewProcess(pl.NewNoopHost())
	prog := NewPlSourceProgram(`(+ 1 (* 2 3))`)
	res, err := p.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	require.NoError(t, err)
	i, ok := res.Value.Int()
	require.True(t, ok)
	assert.Equal(t, int64(7), i)
}

func TestProcessExecuteProgramRunsExternal(t *testing.T) {
	p := NewProcess(pl.NewNoopHost())
	prog := NewExternalProgram("/bin/echo", "hi")
	res, err := p.ExecuteProgram(context.Background(), ExecutionContext{
		Program:               &prog,
		CapabilityPermissions: []OperationClass{OperationProcess},
	})
	require.NoError(t, err)
	s, _ := res.Value.Str()
	assert.Contains(t, s, "hi")
}

func TestProcessExecuteProgramRejectsBytecode(t *testing.T) {
	p := NewProcess(pl.NewNoopHost())
	prog := NewBytecodeProgram([]byte{0x01})
	_, err := p.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindProviderError, ccoserr.KindOf(err))
}

func TestProcessExecuteCapabilityDelegatesToHost(t *testing.T) {
	host := &recordingMockHost{NoopHost: pl.NewNoopHost(), reply: value.Int(9)}
	p := NewProcess(host)
	res, err := p.ExecuteCapability(context.Background(), ExecutionContext{CapabilityID: "math.nine", Args: value.Nil})
	require.NoError(t, err)
	i, _ := res.Value.Int()
	assert.Equal(t, int64(9), i)
	assert.Equal(t, []string{"math.nine"}, host.calls)
}

func TestProcessExecuteProgramTimesOutLongRunningExternal(t *testing.T) {
	p := NewProcess(pl.NewNoopHost())
	prog := NewExternalProgram("/bin/sleep", "2")
	_, err := p.ExecuteProgram(context.Background(), ExecutionContext{
		Program:               &prog,
		CapabilityPermissions: []OperationClass{OperationProcess},
		Config:                Config{TimeoutMS: 20},
	})
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindTimeout, ccoserr.KindOf(err))
}

type recordingMockHost struct {
	*pl.NoopHost
	calls []string
	reply value.Value
}

func (h *recordingMockHost) CallCapability(ctx context.Context, id string, inputs value.Value, actionCtx pl.ActionContext) (value.Value, error) {
	h.calls = append(h.calls, id)
	return h.reply, nil
}
