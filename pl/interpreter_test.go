package pl

import (
	"context"
	"testing"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalSrc(t *testing.T, interp *Interpreter, env *Env, host Host, src string) value.Value {
	t.Helper()
	forms, err := Parse(src)
	require.NoError(t, err)
	v, err := interp.Run(forms, env, host)
	require.NoError(t, err)
	return v
}

func TestEvalArithmeticAndComparison(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	v := evalSrc(t, interp, env, host, `(+ 1 2 3)`)
	i, _ := v.Int()
	assert.Equal(t, int64(6), i)

	v = evalSrc(t, interp, env, host, `(* 2 3.0)`)
	f, _ := v.Float()
	assert.Equal(t, 6.0, f)

	v = evalSrc(t, interp, env, host, `(< 1 2 3)`)
	b, _ := v.Bool()
	assert.True(t, b)
}

func TestEvalIfLetFn(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	v := evalSrc(t, interp, env, host, `(if (> 2 1) "yes" "no")`)
	s, _ := v.Str()
	assert.Equal(t, "yes", s)

	v = evalSrc(t, interp, env, host, `(let [x 10 y (+ x 5)] (* x y))`)
	i, _ := v.Int()
	assert.Equal(t, int64(150), i)

	v = evalSrc(t, interp, env, host, `(let [add (fn [a b] (+ a b))] (add 4 5))`)
	i, _ = v.Int()
	assert.Equal(t, int64(9), i)
}

func TestEvalMatchDestructuringAndFailure(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	v := evalSrc(t, interp, env, host, `
		(match [1 2 3]
		  [a b] "two"
		  [a b c] (+ a b c))`)
	i, _ := v.Int()
	assert.Equal(t, int64(6), i)

	forms, err := Parse(`(match 5 "nope" 1)`)
	require.NoError(t, err)
	_, err = interp.Run(forms, env, host)
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindInternalError, ccoserr.KindOf(err))
}

func TestEvalSetGetContext(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	evalSrc(t, interp, env, host, `(set! :counter 1)`)
	v := evalSrc(t, interp, env, host, `(get :counter)`)
	i, _ := v.Int()
	assert.Equal(t, int64(1), i)
}

func TestEvalDefAndDefn(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	evalSrc(t, interp, env, host, `(def answer 42)`)
	v, ok := env.Get("answer")
	require.True(t, ok)
	i, _ := v.Int()
	assert.Equal(t, int64(42), i)

	evalSrc(t, interp, env, host, `(defn double [x] (* x 2))`)
	v = evalSrc(t, interp, env, host, `(double 21)`)
	i, _ = v.Int()
	assert.Equal(t, int64(42), i)
}

func TestEvalStepIsTransparent(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	v := evalSrc(t, interp, env, host, `(step "Greet" (+ 1 1))`)
	i, _ := v.Int()
	assert.Equal(t, int64(2), i)
}

func TestEvalIntentPlanEdgeForms(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	v := evalSrc(t, interp, env, host, `(intent "book-trip" :goal "Book a trip" :constraints {:budget 500})`)
	form, _ := v.MapGet(value.KeywordKey("form"))
	s, _ := form.Str()
	assert.Equal(t, "intent", s)
	goal, _ := v.MapGet(value.KeywordKey("goal"))
	gs, _ := goal.Str()
	assert.Equal(t, "Book a trip", gs)

	v = evalSrc(t, interp, env, host, `(edge :DependsOn "a" "b")`)
	edgeType, _ := v.MapGet(value.KeywordKey("edge-type"))
	et, _ := edgeType.Str()
	assert.Equal(t, "DependsOn", et)
}

// mockHost records CallCapability invocations and returns a canned value,
// exercising the `call` primitive's single Host crossing point.
type mockHost struct {
	*NoopHost
	calls []string
	reply value.Value
}

func newMockHost(reply value.Value) *mockHost {
	return &mockHost{NoopHost: NewNoopHost(), reply: reply}
}

func (h *mockHost) CallCapability(_ context.Context, id string, inputs value.Value, _ ActionContext) (value.Value, error) {
	h.calls = append(h.calls, id)
	return h.reply, nil
}

func TestEvalCallDelegatesToHost(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := newMockHost(value.Int(99))

	v := evalSrc(t, interp, env, host, `(call :math.add 1 2)`)
	i, _ := v.Int()
	assert.Equal(t, int64(99), i)
	require.Len(t, host.calls, 1)
	assert.Equal(t, "math.add", host.calls[0])
}

func TestEvalCallWithoutHostIsUnknownCapability(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()

	forms, err := Parse(`(call :math.add 1 2)`)
	require.NoError(t, err)
	_, err = interp.Eval(forms[0], env, nil)
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindUnknownCapability, ccoserr.KindOf(err))
}

func TestEvalUnboundSymbolErrors(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := NewNoopHost()

	forms, err := Parse(`nowhere`)
	require.NoError(t, err)
	_, err = interp.Eval(forms[0], env, host)
	require.Error(t, err)
}

func TestEvalCancelledHostStopsEvaluation(t *testing.T) {
	interp := NewInterpreter()
	env := interp.Stdlib.Child()
	host := &cancelledHost{NoopHost: NewNoopHost()}

	forms, err := Parse(`(+ 1 2)`)
	require.NoError(t, err)
	_, err = interp.Eval(forms[0], env, host)
	require.Error(t, err)
	assert.Equal(t, ccoserr.KindCancelled, ccoserr.KindOf(err))
}

type cancelledHost struct{ *NoopHost }

func (h *cancelledHost) Cancelled() bool { return true }
