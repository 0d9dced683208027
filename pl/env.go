package pl

import "github.com/mandubian/ccos-sub008/value"

// Env is a lexical environment: a child->parent chain of binding frames, per
// spec §4.B ("An environment chain (child → parent)").
type Env struct {
	parent *Env
	vars   map[string]value.Value
}

// NewEnv creates a root environment with no parent (used for the stdlib
// global scope).
func NewEnv() *Env {
	return &Env{vars: make(map[string]value.Value)}
}

// Child creates a new environment frame parented on e, e.g. for `let`
// bindings or a function call's activation record.
func (e *Env) Child() *Env {
	return &Env{parent: e, vars: make(map[string]value.Value)}
}

// Define binds name in this frame, shadowing any parent binding.
func (e *Env) Define(name string, v value.Value) {
	e.vars[name] = v
}

// Get walks the chain looking for name.
func (e *Env) Get(name string) (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return value.Nil, false
}

// Set mutates an existing binding in whichever frame owns it (used by
// `set!` when targeting a lexical symbol rather than the Host-shared
// context — CCOS reserves `set!`/`get` for the Host-scoped shared context
// per spec §4.B, but keeping Set here lets internal forms like destructuring
// rebind cleanly without reaching for the Host).
func (e *Env) Set(name string, v value.Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return true
		}
	}
	return false
}
