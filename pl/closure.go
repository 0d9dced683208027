package pl

import "github.com/mandubian/ccos-sub008/value"

// closure is the PL runtime representation of a `fn` expression. It captures
// its defining environment (spec §4.B: "`fn` captures its defining env"),
// implementing value.Closure so it can live inside a value.Value.
type closure struct {
	params value.Value // a vector pattern, or a single symbol for variadic-only fns
	body   []value.Value
	env    *Env
	name   string // empty for anonymous fns, set for `defn`
}

func (c *closure) Arity() int {
	items, ok := c.params.Items()
	if !ok {
		return -1
	}
	return len(items)
}

// applicable is implemented by every value.Closure the interpreter can
// actually invoke (PL `fn` closures and native stdlib functions), letting
// evalList's function-application path stay agnostic to which one it got.
type applicable interface {
	value.Closure
	apply(interp *Interpreter, args []value.Value, host Host) (value.Value, error)
}

// apply runs the closure's body with args bound against its parameter
// pattern, in a fresh frame parented on the closure's defining environment.
func (c *closure) apply(interp *Interpreter, args []value.Value, host Host) (value.Value, error) {
	frame := c.env.Child()
	if err := bindPattern(c.params, value.VectorOf(args), frame); err != nil {
		return value.Nil, err
	}
	var result value.Value
	for _, form := range c.body {
		v, err := interp.Eval(form, frame, host)
		if err != nil {
			return value.Nil, err
		}
		result = v
	}
	return result, nil
}

func (n *nativeFn) apply(_ *Interpreter, args []value.Value, _ Host) (value.Value, error) {
	return n.fn(args)
}
