package value

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/mandubian/ccos-sub008/ccoserr"
)

// ToJSON converts a Value to a plain `any` tree (string/float64/bool/nil/
// []any/map[string]any) suitable for encoding/json.Marshal, per spec §4.A.
// Function, unresolved FunctionPlaceholder and Error values are not part of
// the JSON-representable subset and produce UnsupportedValueType.
//
// Symbol and Keyword both render as a bare JSON string and FromJSON always
// recovers a JSON string as String — so a Symbol or Keyword used as a leaf
// value (not a map key, which §4.A already normalises to String on the
// reverse pass) does not survive the round trip intact, only as its string
// name. This is deliberate: every consumer of ToJSON/FromJSON
// (capability/providers' HTTP/MCP/A2A/stream wire payloads, causalchain's
// action-data persistence) needs output that looks like plain JSON to an
// external peer or the database, not a CCOS-specific envelope distinguishing
// Keyword/Symbol from String. Callers that need exact Symbol/Keyword
// round-tripping should keep values inside PL-land (the canonical renderer
// in render.go) rather than bouncing them through JSON.
func ToJSON(v Value) (any, error) {
	switch v.kind {
	case KindNil:
		return nil, nil
	case KindBool:
		return v.b, nil
	case KindInteger:
		return v.i, nil
	case KindFloat:
		return v.f, nil
	case KindString:
		return v.s, nil
	case KindKeyword:
		// Keywords serialize as their bare name; the reverse conversion
		// recovers Keyword vs String using the identifier heuristic below.
		return v.s, nil
	case KindSymbol:
		return v.s, nil
	case KindTimestamp:
		return v.ts.Format("2006-01-02T15:04:05.999999999Z07:00"), nil
	case KindUuid:
		return v.u.String(), nil
	case KindList, KindVector:
		out := make([]any, len(v.lst))
		for i, it := range v.lst {
			j, err := ToJSON(it)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case KindMap:
		out := make(map[string]any, v.MapLen())
		for _, k := range v.MapKeys() {
			if k.Kind() != KindString && k.Kind() != KindKeyword && k.Kind() != KindInteger {
				return nil, ccoserr.New(ccoserr.KindSchemaError, "unsupported map key kind %s", k.Kind())
			}
			val, _ := v.MapGet(k)
			j, err := ToJSON(val)
			if err != nil {
				return nil, err
			}
			out[keyToJSON(k)] = j
		}
		return out, nil
	case KindResourceHandle:
		return nil, ccoserr.New(ccoserr.KindSchemaError, "UnsupportedValueType: resource-handle")
	case KindFunction:
		return nil, ccoserr.New(ccoserr.KindSchemaError, "UnsupportedValueType: function")
	case KindError:
		return nil, ccoserr.New(ccoserr.KindSchemaError, "UnsupportedValueType: error")
	default:
		return nil, ccoserr.New(ccoserr.KindSchemaError, "UnsupportedValueType: %s", v.kind)
	}
}

func keyToJSON(k MapKey) string {
	switch k.Kind() {
	case KindInteger:
		return strconv.FormatInt(k.i, 10)
	default:
		return k.s
	}
}

// FromJSON converts a plain `any` tree back into a Value. Object keys that
// look like identifiers (`[A-Za-z_][A-Za-z0-9_-]*`) are promoted to
// Keyword; everything else stays String. JSON arrays become Vector (the
// round-trip law treats List/Vector as equivalent, see spec §4.A invariant 5).
func FromJSON(j any) (Value, error) {
	switch t := j.(type) {
	case nil:
		return Nil, nil
	case bool:
		return Bool(t), nil
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := FromJSON(it)
			if err != nil {
				return Nil, err
			}
			items[i] = v
		}
		return VectorOf(items), nil
	case map[string]any:
		m := newOrderedMap()
		for k, raw := range t {
			v, err := FromJSON(raw)
			if err != nil {
				return Nil, err
			}
			if isIdentifierLike(k) {
				m.set(KeywordKey(k), v)
			} else {
				m.set(StringKey(k), v)
			}
		}
		return Value{kind: KindMap, m: m}, nil
	default:
		return Nil, fmt.Errorf("FromJSON: unsupported go type %T", j)
	}
}

// isIdentifierLike implements the reverse-conversion heuristic of spec
// §4.A: a JSON key parses as Keyword if it looks like an identifier token,
// else it stays a String key.
func isIdentifierLike(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-'):
		default:
			return false
		}
	}
	return true
}
