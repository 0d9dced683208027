package pl

import (
	"context"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Interpreter evaluates parsed PL forms against an Env/Host (spec §4.B:
// "eval(expr, env, host) → Result<Value, RuntimeError>").
type Interpreter struct {
	Stdlib *Env
}

// NewInterpreter builds an interpreter with the numeric/comparison stdlib
// preloaded into a root Env every module and plan execution is parented on.
func NewInterpreter() *Interpreter {
	interp := &Interpreter{Stdlib: NewEnv()}
	installStdlib(interp.Stdlib)
	return interp
}

// Run evaluates a full program (sequence of top-level forms), returning the
// value of the last form — used for ad hoc PL execution outside the module
// system (e.g. the MicroVM Mock provider's `PlSource` program kind).
func (interp *Interpreter) Run(forms []value.Value, env *Env, host Host) (value.Value, error) {
	var result value.Value
	for _, form := range forms {
		v, err := interp.Eval(form, env, host)
		if err != nil {
			return value.Nil, err
		}
		result = v
	}
	return result, nil
}

// Eval is the pure evaluation function at the heart of the interpreter.
func (interp *Interpreter) Eval(expr value.Value, env *Env, host Host) (value.Value, error) {
	if host != nil && host.Cancelled() {
		return value.Nil, ccoserr.New(ccoserr.KindCancelled, "evaluation cancelled")
	}

	switch expr.Kind() {
	case value.KindSymbol:
		name, _ := expr.Str()
		if v, ok := env.Get(name); ok {
			return v, nil
		}
		return value.Nil, ccoserr.New(ccoserr.KindInternalError, "unbound symbol %q", name)
	case value.KindVector:
		items, _ := expr.Items()
		out := make([]value.Value, len(items))
		for i, it := range items {
			v, err := interp.Eval(it, env, host)
			if err != nil {
				return value.Nil, err
			}
			out[i] = v
		}
		return value.VectorOf(out), nil
	case value.KindMap:
		var pairs []value.MapEntry
		for _, k := range expr.MapKeys() {
			raw, _ := expr.MapGet(k)
			v, err := interp.Eval(raw, env, host)
			if err != nil {
				return value.Nil, err
			}
			pairs = append(pairs, value.Entry(k, v))
		}
		return value.Map(pairs...), nil
	case value.KindList:
		return interp.evalList(expr, env, host)
	default:
		// Literals (Nil, Bool, Integer, Float, String, Keyword, Timestamp,
		// Uuid, ResourceHandle, Function, Error) self-evaluate.
		return expr, nil
	}
}

func (interp *Interpreter) evalList(expr value.Value, env *Env, host Host) (value.Value, error) {
	items, _ := expr.Items()
	if len(items) == 0 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "empty form `()` is not a valid expression")
	}
	head := items[0]
	args := items[1:]

	if head.Kind() == value.KindSymbol {
		name, _ := head.Str()
		switch name {
		case "do":
			return interp.evalDo(args, env, host)
		case "let":
			return interp.evalLet(args, env, host)
		case "if":
			return interp.evalIf(args, env, host)
		case "fn":
			return interp.evalFn(args, env)
		case "match":
			return interp.evalMatch(args, env, host)
		case "set!":
			return interp.evalSet(args, env, host)
		case "get":
			return interp.evalGet(args, env, host)
		case "call":
			return interp.evalCall(args, env, host)
		case "intent":
			return interp.evalIntentForm(args, env, host)
		case "plan":
			return interp.evalPlanForm(args, env, host)
		case "edge":
			return interp.evalEdgeForm(args, env, host)
		case "step":
			// `step` wraps a body expression with a human-readable label for
			// trace/ledger purposes (spec §8 scenario 1's emitted plan body
			// uses `(step "Greet" (call …))`); it evaluates to its body's
			// value and is transparent to everything except tracing, which
			// reads the label directly off the unevaluated form upstream.
			return interp.evalStep(args, env, host)
		case "def", "defn":
			return interp.evalDef(name, args, env, host)
		}
	}

	// Not a special form: evaluate head, and if it resolves to a function,
	// apply it to the evaluated args. This is the natural completion of
	// `fn`/`let` (a bound closure must be invocable) without inventing a
	// new wire-visible special form.
	headVal, err := interp.Eval(head, env, host)
	if err != nil {
		return value.Nil, err
	}
	clos, ok := headVal.Closure()
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "head of list is not a special form or function: %s", head)
	}
	c, ok := clos.(applicable)
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindInternalError, "unsupported closure implementation")
	}
	evaledArgs := make([]value.Value, len(args))
	for i, a := range args {
		v, err := interp.Eval(a, env, host)
		if err != nil {
			return value.Nil, err
		}
		evaledArgs[i] = v
	}
	return c.apply(interp, evaledArgs, host)
}

func (interp *Interpreter) evalDo(args []value.Value, env *Env, host Host) (value.Value, error) {
	var result value.Value
	for _, a := range args {
		v, err := interp.Eval(a, env, host)
		if err != nil {
			return value.Nil, err
		}
		result = v
	}
	return result, nil
}

func (interp *Interpreter) evalStep(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 2 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "(step label body) requires a label and a body")
	}
	return interp.Eval(args[1], env, host)
}

// evalLet handles `(let [pattern expr pattern expr …] body…)`.
func (interp *Interpreter) evalLet(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`let` requires a bindings vector")
	}
	bindings, ok := args[0].Items()
	if args[0].Kind() != value.KindVector || !ok || len(bindings)%2 != 0 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`let` bindings must be an even-length vector of pattern/expr pairs")
	}
	frame := env.Child()
	for i := 0; i < len(bindings); i += 2 {
		pattern := bindings[i]
		valExpr := bindings[i+1]
		v, err := interp.Eval(valExpr, frame, host)
		if err != nil {
			return value.Nil, err
		}
		if err := bindPattern(pattern, v, frame); err != nil {
			return value.Nil, err
		}
	}
	return interp.evalDo(args[1:], frame, host)
}

func (interp *Interpreter) evalIf(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`if` requires (if cond then [else])")
	}
	cond, err := interp.Eval(args[0], env, host)
	if err != nil {
		return value.Nil, err
	}
	if truthy(cond) {
		return interp.Eval(args[1], env, host)
	}
	if len(args) == 3 {
		return interp.Eval(args[2], env, host)
	}
	return value.Nil, nil
}

func truthy(v value.Value) bool {
	if v.IsNil() {
		return false
	}
	if b, ok := v.Bool(); ok {
		return b
	}
	return true
}

// evalFn handles `(fn [params…] body…)`.
func (interp *Interpreter) evalFn(args []value.Value, env *Env) (value.Value, error) {
	if len(args) < 1 || args[0].Kind() != value.KindVector {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`fn` requires a parameter vector")
	}
	c := &closure{params: args[0], body: args[1:], env: env}
	return value.Func(c), nil
}

// evalMatch handles `(match expr pattern body pattern body … )`; the first
// matching clause wins, no match raises MatchFailure (spec §4.B).
func (interp *Interpreter) evalMatch(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 1 || len(args)%2 != 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`match` requires (match expr pattern body …) in pairs")
	}
	subject, err := interp.Eval(args[0], env, host)
	if err != nil {
		return value.Nil, err
	}
	clauses := args[1:]
	for i := 0; i+1 < len(clauses); i += 2 {
		pattern := clauses[i]
		body := clauses[i+1]
		frame := env.Child()
		if matchPattern(pattern, subject, frame) {
			return interp.Eval(body, frame, host)
		}
	}
	return value.Nil, ccoserr.New(ccoserr.KindInternalError, "MatchFailure: no clause matched")
}

// matchPattern tries to bind pattern against subject, reporting success.
// Unlike `let`'s unconditional bindPattern, match patterns can fail: a
// literal pattern must equal the subject, and `_`/symbols always match.
func matchPattern(pattern value.Value, subject value.Value, env *Env) bool {
	switch pattern.Kind() {
	case value.KindSymbol:
		name, _ := pattern.Str()
		if name != "_" {
			env.Define(name, subject)
		}
		return true
	case value.KindVector:
		items, _ := pattern.Items()
		vals, ok := subject.Items()
		if !ok {
			return false
		}
		hasRest := false
		for _, it := range items {
			if it.Kind() == value.KindSymbol {
				if s, _ := it.Str(); s == "&" {
					hasRest = true
				}
			}
		}
		if !hasRest && len(items) != len(vals) {
			return false
		}
		return bindPattern(pattern, subject, env) == nil
	case value.KindMap:
		if subject.Kind() != value.KindMap {
			return false
		}
		return bindPattern(pattern, subject, env) == nil
	default:
		// Literal pattern: structural equality against the subject.
		return value.Equal(pattern, subject)
	}
}

// evalSet handles `(set! key expr)`: publishes into the Host-scoped shared
// context for cross-plan data flow (spec §4.B).
func (interp *Interpreter) evalSet(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`set!` requires (set! key expr)")
	}
	key, err := contextKey(args[0])
	if err != nil {
		return value.Nil, err
	}
	v, err := interp.Eval(args[1], env, host)
	if err != nil {
		return value.Nil, err
	}
	if host == nil {
		return value.Nil, ccoserr.New(ccoserr.KindInternalError, "`set!` used without a Host")
	}
	host.SetContext(key, v)
	return v, nil
}

// evalGet handles `(get key)`: reads from the Host-scoped shared context.
func (interp *Interpreter) evalGet(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`get` requires (get key)")
	}
	key, err := contextKey(args[0])
	if err != nil {
		return value.Nil, err
	}
	if host == nil {
		return value.Nil, ccoserr.New(ccoserr.KindInternalError, "`get` used without a Host")
	}
	v, ok := host.GetContext(key)
	if !ok {
		return value.Nil, nil
	}
	return v, nil
}

func contextKey(expr value.Value) (string, error) {
	switch expr.Kind() {
	case value.KindKeyword, value.KindSymbol, value.KindString:
		s, _ := expr.Str()
		return s, nil
	default:
		return "", ccoserr.New(ccoserr.KindParseError, "context key must be a symbol, keyword, or string")
	}
}

// evalCall handles `(call id args…)` — the sole crossing point into the
// Host/Marketplace (spec §4.B).
func (interp *Interpreter) evalCall(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`call` requires a capability id")
	}
	idExpr, err := interp.Eval(args[0], env, host)
	if err != nil {
		return value.Nil, err
	}
	id, ok := idExpr.Str()
	if !ok {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`call` id must be a keyword, string, or symbol")
	}

	rest := args[1:]
	evaled := make([]value.Value, len(rest))
	for i, a := range rest {
		v, err := interp.Eval(a, env, host)
		if err != nil {
			return value.Nil, err
		}
		evaled[i] = v
	}

	var inputs value.Value
	switch len(evaled) {
	case 0:
		inputs = value.Nil
	case 1:
		inputs = evaled[0]
	default:
		inputs = value.VectorOf(evaled)
	}

	if host == nil {
		return value.Nil, ccoserr.New(ccoserr.KindUnknownCapability, "call to %s made without a Host", id)
	}
	return host.CallCapability(context.Background(), id, inputs, ActionContext{})
}

// evalDef handles the module-system-only `def`/`defn` top-level forms (spec
// §4.B: "Every top-level def/defn contributes to the binding table used for
// export typing"). These are not part of the core expression special-form
// set; they only make sense as bindings into a module/global Env.
func (interp *Interpreter) evalDef(kind string, args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 1 || args[0].Kind() != value.KindSymbol {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`%s` requires a symbol name", kind)
	}
	name, _ := args[0].Str()

	var v value.Value
	var err error
	switch kind {
	case "def":
		if len(args) != 2 {
			return value.Nil, ccoserr.New(ccoserr.KindParseError, "`def` requires (def name expr)")
		}
		v, err = interp.Eval(args[1], env, host)
	case "defn":
		if len(args) < 2 || args[1].Kind() != value.KindVector {
			return value.Nil, ccoserr.New(ccoserr.KindParseError, "`defn` requires (defn name [params] body…)")
		}
		c := &closure{params: args[1], body: args[2:], env: env, name: name}
		v = value.Func(c)
	}
	if err != nil {
		return value.Nil, err
	}
	env.Define(name, v)
	return v, nil
}
