package pl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalRendersMapAsColonForm(t *testing.T) {
	form, err := ParseOne(`{:a 1 :b "x"}`)
	require.NoError(t, err)
	assert.Equal(t, `{:a 1 :b "x"}`, Canonical(form))
}

func TestCanonicalFoldsRegexLiteralToPlainString(t *testing.T) {
	form, err := ParseOne(`#rx"^[a-z]+$"`)
	require.NoError(t, err)
	assert.Equal(t, `"^[a-z]+$"`, Canonical(form))
}

func TestCanonicalProgramRoundTripsForms(t *testing.T) {
	forms, err := Parse(`(+ 1 2) (let [x 1] x)`)
	require.NoError(t, err)
	out := CanonicalProgram(forms)
	assert.Equal(t, "(+ 1 2)\n(let [x 1] x)", out)
}

func TestCanonicalNestedSExpr(t *testing.T) {
	form, err := ParseOne(`(call :math.add 1 2)`)
	require.NoError(t, err)
	assert.Equal(t, `(call :math.add 1 2)`, Canonical(form))
}
