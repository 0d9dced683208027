package pl

import (
	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// bindPattern implements the `let` destructuring grammar of spec §4.B:
// symbol, wildcard `_`, vector pattern `[p … & rest :as name]`, and map
// pattern `{:k p … :keys [a b] & rest :as name}`. It mutates env in place.
func bindPattern(pattern value.Value, val value.Value, env *Env) error {
	switch pattern.Kind() {
	case value.KindSymbol:
		name, _ := pattern.Str()
		if name == "_" {
			return nil
		}
		env.Define(name, val)
		return nil
	case value.KindVector:
		return bindVectorPattern(pattern, val, env)
	case value.KindMap:
		return bindMapPattern(pattern, val, env)
	default:
		return ccoserr.New(ccoserr.KindParseError, "invalid let pattern of kind %s", pattern.Kind())
	}
}

func bindVectorPattern(pattern value.Value, val value.Value, env *Env) error {
	items, _ := pattern.Items()
	vals, ok := val.Items()
	if !ok {
		return ccoserr.New(ccoserr.KindInternalError, "vector pattern requires a list/vector value, got %s", val.Kind())
	}

	i := 0
	vi := 0
	for i < len(items) {
		elem := items[i]
		if sym, ok := elem.Str(); ok && elem.Kind() == value.KindSymbol && sym == "&" {
			// `& rest` binds the remainder as a vector.
			if i+1 >= len(items) {
				return ccoserr.New(ccoserr.KindParseError, "`&` in vector pattern must be followed by a binding")
			}
			restName := items[i+1]
			var rest []value.Value
			if vi < len(vals) {
				rest = append(rest, vals[vi:]...)
			}
			if err := bindPattern(restName, value.VectorOf(rest), env); err != nil {
				return err
			}
			i += 2
			continue
		}
		if kw, ok := elem.Str(); ok && elem.Kind() == value.KindKeyword && kw == "as" {
			if i+1 >= len(items) {
				return ccoserr.New(ccoserr.KindParseError, "`:as` in vector pattern must be followed by a name")
			}
			if err := bindPattern(items[i+1], val, env); err != nil {
				return err
			}
			i += 2
			continue
		}
		var elemVal value.Value
		if vi < len(vals) {
			elemVal = vals[vi]
		} else {
			elemVal = value.Nil
		}
		if err := bindPattern(elem, elemVal, env); err != nil {
			return err
		}
		i++
		vi++
	}
	return nil
}

func bindMapPattern(pattern value.Value, val value.Value, env *Env) error {
	keys := pattern.MapKeys()
	for _, k := range keys {
		patVal, _ := pattern.MapGet(k)
		if k.Kind() == value.KindString && k.String() == "&" {
			// `& rest` binds the whole source map under `rest` — PL maps
			// are not closed records, so "remaining keys" is the map itself.
			if err := bindPattern(patVal, val, env); err != nil {
				return err
			}
			continue
		}
		switch k.Kind() {
		case value.KindKeyword:
			name := k.String()
			switch name {
			case "keys":
				syms, _ := patVal.Items()
				for _, s := range syms {
					symName, _ := s.Str()
					fieldVal, _ := val.MapGet(value.KeywordKey(symName))
					env.Define(symName, fieldVal)
				}
			case "as":
				if err := bindPattern(patVal, val, env); err != nil {
					return err
				}
			default:
				// `{:field subpattern}` binds the value under :field.
				fieldVal, _ := val.MapGet(k)
				if err := bindPattern(patVal, fieldVal, env); err != nil {
					return err
				}
			}
		}
	}
	// `& rest` in a map pattern collects unmatched keys; CCOS's map
	// destructuring treats this as advisory (`rest` binds to the original
	// map) since PL maps are not required to be closed records.
	return nil
}
