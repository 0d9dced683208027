package pl

import (
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// evalIntentForm lowers `(intent "name" {:goal … :constraints {…} …})` (or
// the keyword-pairs style `(intent "name" :goal … :constraints {…})`) into
// a Map value tagged `:form :intent`, per spec §4.B "Plan post-processing".
// Downstream, package planner's canonical-form parser reads this back into
// a structured Intent.
func (interp *Interpreter) evalIntentForm(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`intent` requires a name")
	}
	nameVal, err := interp.Eval(args[0], env, host)
	if err != nil {
		return value.Nil, err
	}
	fields, err := interp.evalFormFields(args[1:], env, host)
	if err != nil {
		return value.Nil, err
	}
	pairs := []value.MapEntry{
		value.Entry(value.KeywordKey("form"), value.Keyword("intent")),
		value.Entry(value.KeywordKey("name"), nameVal),
	}
	pairs = append(pairs, fields...)
	return value.Map(pairs...), nil
}

// evalPlanForm lowers `(plan "name" {:body (…) :intent-ids […] …})`.
func (interp *Interpreter) evalPlanForm(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) < 1 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`plan` requires a name")
	}
	nameVal, err := interp.Eval(args[0], env, host)
	if err != nil {
		return value.Nil, err
	}
	fields, err := interp.evalFormFields(args[1:], env, host)
	if err != nil {
		return value.Nil, err
	}
	pairs := []value.MapEntry{
		value.Entry(value.KeywordKey("form"), value.Keyword("plan")),
		value.Entry(value.KeywordKey("name"), nameVal),
	}
	pairs = append(pairs, fields...)
	return value.Map(pairs...), nil
}

// evalEdgeForm lowers `(edge :EdgeType "from-id" "to-id")`.
func (interp *Interpreter) evalEdgeForm(args []value.Value, env *Env, host Host) (value.Value, error) {
	if len(args) != 3 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "`edge` requires (edge :EdgeType from to)")
	}
	edgeType, err := interp.Eval(args[0], env, host)
	if err != nil {
		return value.Nil, err
	}
	from, err := interp.Eval(args[1], env, host)
	if err != nil {
		return value.Nil, err
	}
	to, err := interp.Eval(args[2], env, host)
	if err != nil {
		return value.Nil, err
	}
	return value.Map(
		value.Entry(value.KeywordKey("form"), value.Keyword("edge")),
		value.Entry(value.KeywordKey("edge-type"), edgeType),
		value.Entry(value.KeywordKey("from"), from),
		value.Entry(value.KeywordKey("to"), to),
	), nil
}

// evalFormFields supports both the "map as second arg" style
// (`(intent "n" {:goal "g"})`) and the "keyword pairs" style
// (`(intent "n" :goal "g" :constraints {})`) that spec §4.B names for
// `intent`/`plan` literal forms, normalizing both into the same field list.
func (interp *Interpreter) evalFormFields(rest []value.Value, env *Env, host Host) ([]value.MapEntry, error) {
	if len(rest) == 0 {
		return nil, nil
	}
	if len(rest) == 1 {
		v, err := interp.Eval(rest[0], env, host)
		if err != nil {
			return nil, err
		}
		if v.Kind() != value.KindMap {
			return nil, ccoserr.New(ccoserr.KindParseError, "single trailing argument to `intent`/`plan` must be a map")
		}
		var out []value.MapEntry
		for _, k := range v.MapKeys() {
			val, _ := v.MapGet(k)
			out = append(out, value.Entry(k, val))
		}
		return out, nil
	}
	if len(rest)%2 != 0 {
		return nil, ccoserr.New(ccoserr.KindParseError, "keyword-pairs form requires an even number of trailing arguments")
	}
	var out []value.MapEntry
	for i := 0; i < len(rest); i += 2 {
		if rest[i].Kind() != value.KindKeyword {
			return nil, ccoserr.New(ccoserr.KindParseError, "keyword-pairs form requires a keyword at position %d", i)
		}
		kw, _ := rest[i].Str()
		v, err := interp.Eval(rest[i+1], env, host)
		if err != nil {
			return nil, err
		}
		out = append(out, value.Entry(value.KeywordKey(kw), v))
	}
	return out, nil
}
