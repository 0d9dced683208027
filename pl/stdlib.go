package pl

import "github.com/mandubian/ccos-sub008/value"

// nativeFn implements value.Closure for built-in stdlib functions, so the
// application path in evalList (headVal.Closure()) works uniformly whether
// the callee is a PL `fn` closure or a built-in.
type nativeFn struct {
	arity int
	fn    func(args []value.Value) (value.Value, error)
}

func (n *nativeFn) Arity() int { return n.arity }

// installStdlib preloads the minimal numeric/comparison/collection
// vocabulary a PL program needs inside `fn` bodies and `let`/`match`
// expressions. Capability-level operations (math, echo, …) are never part
// of the stdlib — those are Marketplace capabilities reached via `call`.
func installStdlib(env *Env) {
	def := func(name string, arity int, fn func([]value.Value) (value.Value, error)) {
		env.Define(name, value.Func(&nativeFn{arity: arity, fn: fn}))
	}

	def("+", -1, arith(func(a, b float64) float64 { return a + b }, 0))
	def("-", -1, arith(func(a, b float64) float64 { return a - b }, 0))
	def("*", -1, arith(func(a, b float64) float64 { return a * b }, 1))
	def("/", -1, func(args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Int(1), nil
		}
		acc, _ := args[0].AsNumber()
		for _, a := range args[1:] {
			n, _ := a.AsNumber()
			if n == 0 {
				return value.Nil, errDivByZero()
			}
			acc /= n
		}
		return numberValue(acc, allInts(args)), nil
	})

	def("=", -1, func(args []value.Value) (value.Value, error) {
		for i := 1; i < len(args); i++ {
			if !value.Equal(args[0], args[i]) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	})

	def("<", -1, cmp(func(a, b float64) bool { return a < b }))
	def(">", -1, cmp(func(a, b float64) bool { return a > b }))
	def("<=", -1, cmp(func(a, b float64) bool { return a <= b }))
	def(">=", -1, cmp(func(a, b float64) bool { return a >= b }))

	def("not", 1, func(args []value.Value) (value.Value, error) {
		return value.Bool(!truthy(args[0])), nil
	})

	def("count", 1, func(args []value.Value) (value.Value, error) {
		if items, ok := args[0].Items(); ok {
			return value.Int(int64(len(items))), nil
		}
		return value.Int(int64(args[0].MapLen())), nil
	})

	def("conj", -1, func(args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Vector(), nil
		}
		items, _ := args[0].Items()
		return value.VectorOf(append(append([]value.Value(nil), items...), args[1:]...)), nil
	})

	def("first", 1, func(args []value.Value) (value.Value, error) {
		items, _ := args[0].Items()
		if len(items) == 0 {
			return value.Nil, nil
		}
		return items[0], nil
	})

	def("rest", 1, func(args []value.Value) (value.Value, error) {
		items, _ := args[0].Items()
		if len(items) <= 1 {
			return value.Vector(), nil
		}
		return value.VectorOf(items[1:]), nil
	})
}

func allInts(args []value.Value) bool {
	for _, a := range args {
		if a.Kind() != value.KindInteger {
			return false
		}
	}
	return true
}

func numberValue(f float64, asInt bool) value.Value {
	if asInt {
		return value.Int(int64(f))
	}
	return value.Float(f)
}

func errDivByZero() error {
	return &divByZeroError{}
}

type divByZeroError struct{}

func (e *divByZeroError) Error() string { return "division by zero" }

func arith(op func(a, b float64) float64, identity float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return numberValue(identity, true), nil
		}
		acc, _ := args[0].AsNumber()
		for _, a := range args[1:] {
			n, _ := a.AsNumber()
			acc = op(acc, n)
		}
		return numberValue(acc, allInts(args)), nil
	}
}

func cmp(op func(a, b float64) bool) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		for i := 1; i < len(args); i++ {
			a, _ := args[i-1].AsNumber()
			b, _ := args[i].AsNumber()
			if !op(a, b) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	}
}
