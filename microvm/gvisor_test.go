package microvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

func TestGVisorRefusesWhenBinaryAbsent(t *testing.T) {
	g := &GVisor{binaryPath: ""}
	assert.False(t, g.Available())
	prog := NewExternalProgram("/bin/echo", "hi")
	_, err := g.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	assert.Error(t, err)
	assert.Equal(t, ccoserr.KindProviderError, ccoserr.KindOf(err))
}

func TestFirecrackerRefusesWhenBinaryAbsent(t *testing.T) {
	f := &Firecracker{binaryPath: ""}
	assert.False(t, f.Available())
	prog := NewExternalProgram("/bin/echo", "hi")
	_, err := f.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	assert.Error(t, err)
	assert.Equal(t, ccoserr.KindProviderError, ccoserr.KindOf(err))
}
