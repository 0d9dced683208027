package microvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub008/value"
)

func TestMockExecuteProgramArithmetic(t *testing.T) {
	m := NewMock()
	prog := NewPlSourceProgram(`(* 2 (+ 1 3))`)
	res, err := m.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	require.NoError(t, err)
	i, ok := res.Value.Int()
	require.True(t, ok)
	assert.Equal(t, int64(8), i)
}

func TestMockExecuteProgramBareLiteral(t *testing.T) {
	m := NewMock()
	prog := NewPlSourceProgram(`42`)
	res, err := m.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	require.NoError(t, err)
	i, _ := res.Value.Int()
	assert.Equal(t, int64(42), i)
}

func TestMockExecuteProgramDivisionByZero(t *testing.T) {
	m := NewMock()
	prog := NewPlSourceProgram(`(/ 1 0)`)
	_, err := m.ExecuteProgram(context.Background(), ExecutionContext{Program: &prog})
	assert.Error(t, err)
}

func TestMockExecuteCapabilityEchoesInputs(t *testing.T) {
	m := NewMock()
	res, err := m.ExecuteCapability(context.Background(), ExecutionContext{
		CapabilityID: "echo.test",
		Args:         value.String("hello"),
	})
	require.NoError(t, err)
	s, _ := res.Value.Str()
	assert.Equal(t, "hello", s)
}

func TestMockExecuteProgramRefusesDisallowedPermission(t *testing.T) {
	m := NewMock()
	prog := NewExternalProgram("curl", "https://example.com")
	_, err := m.ExecuteProgram(context.Background(), ExecutionContext{
		Program:               &prog,
		CapabilityPermissions: []OperationClass{OperationFile},
	})
	assert.Error(t, err)
}
