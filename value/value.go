// Package value implements the CCOS tagged Value model (spec §3, §4.A): the
// common currency passed between the Plan Language interpreter, the
// Capability Marketplace, and the Causal Chain ledger.
package value

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindKeyword
	KindSymbol
	KindTimestamp
	KindUuid
	KindResourceHandle
	KindList
	KindVector
	KindMap
	KindFunction
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindKeyword:
		return "keyword"
	case KindSymbol:
		return "symbol"
	case KindTimestamp:
		return "timestamp"
	case KindUuid:
		return "uuid"
	case KindResourceHandle:
		return "resource-handle"
	case KindList:
		return "list"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindFunction:
		return "function"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Closure is implemented by the Plan Language interpreter for values of
// KindFunction. It is opaque to the value package to avoid an import cycle
// with pl.
type Closure interface {
	Arity() int
}

// ResourceHandle references a MicroVM- or provider-owned resource (a file
// descriptor, a stream id, …) that must not be serialized to JSON.
type ResourceHandle struct {
	Kind string
	ID   string
}

// ErrorValue is the KindError payload: a first-class error value that PL's
// `match`/`try` forms can branch on, lowering spec §9's "exceptions become
// explicit results" rule.
type ErrorValue struct {
	Kind    string
	Message string
	Data    Value
}

// MapKey is intentionally a distinct type from Value: spec §3 requires maps
// to preserve the caller's key domain (String vs Keyword vs Integer) rather
// than collapsing everything to strings the way a plain map[string]Value
// would.
type MapKey struct {
	kind Kind // KindString | KindKeyword | KindInteger
	s    string
	i    int64
}

func StringKey(s string) MapKey  { return MapKey{kind: KindString, s: s} }
func KeywordKey(s string) MapKey { return MapKey{kind: KindKeyword, s: s} }
func IntKey(i int64) MapKey      { return MapKey{kind: KindInteger, i: i} }

func (k MapKey) Kind() Kind { return k.kind }

// String renders the key's textual form regardless of kind (used for
// canonical serialization and JSON promotion).
func (k MapKey) String() string {
	switch k.kind {
	case KindString, KindKeyword:
		return k.s
	case KindInteger:
		return fmt.Sprintf("%d", k.i)
	default:
		return ""
	}
}

func (k MapKey) Int() (int64, bool) {
	if k.kind == KindInteger {
		return k.i, true
	}
	return 0, false
}

// Value is the tagged sum type of spec §3. Only one of the typed fields is
// meaningful for a given Kind; callers should use the accessor methods
// (Bool(), Int(), …) rather than touching fields directly.
type Value struct {
	kind Kind

	b   bool
	i   int64
	f   float64
	s   string // String | Keyword | Symbol payload
	ts  time.Time
	u   uuid.UUID
	rh  ResourceHandle
	lst []Value // List | Vector
	m   *orderedMap
	fn  Closure
	err *ErrorValue
}

// Nil is the singleton Nil value.
var Nil = Value{kind: KindNil}

func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Keyword(s string) Value  { return Value{kind: KindKeyword, s: s} }
func Symbol(s string) Value   { return Value{kind: KindSymbol, s: s} }
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t} }
func UUID(u uuid.UUID) Value  { return Value{kind: KindUuid, u: u} }
func Resource(rh ResourceHandle) Value { return Value{kind: KindResourceHandle, rh: rh} }
func Func(c Closure) Value    { return Value{kind: KindFunction, fn: c} }

func Err(kind, message string, data Value) Value {
	return Value{kind: KindError, err: &ErrorValue{Kind: kind, Message: message, Data: data}}
}

func List(items ...Value) Value {
	return Value{kind: KindList, lst: append([]Value(nil), items...)}
}

func Vector(items ...Value) Value {
	return Value{kind: KindVector, lst: append([]Value(nil), items...)}
}

func ListOf(items []Value) Value   { return Value{kind: KindList, lst: items} }
func VectorOf(items []Value) Value { return Value{kind: KindVector, lst: items} }

// Map builds a Map value from key/value pairs, preserving insertion order so
// canonical serialization is deterministic.
func Map(pairs ...MapEntry) Value {
	m := newOrderedMap()
	for _, p := range pairs {
		m.set(p.Key, p.Val)
	}
	return Value{kind: KindMap, m: m}
}

type MapEntry struct {
	Key MapKey
	Val Value
}

func Entry(k MapKey, v Value) MapEntry { return MapEntry{Key: k, Val: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

func (v Value) Int() (int64, bool) {
	if v.kind == KindInteger {
		return v.i, true
	}
	return 0, false
}

func (v Value) Float() (float64, bool) {
	if v.kind == KindFloat {
		return v.f, true
	}
	return 0, false
}

// AsNumber returns a float64 view of Integer or Float values, for arithmetic
// that must mix the two (the interpreter's numeric tower).
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) Str() (string, bool) {
	switch v.kind {
	case KindString, KindKeyword, KindSymbol:
		return v.s, true
	default:
		return "", false
	}
}

func (v Value) Timestamp() (time.Time, bool) {
	if v.kind == KindTimestamp {
		return v.ts, true
	}
	return time.Time{}, false
}

func (v Value) UUID() (uuid.UUID, bool) {
	if v.kind == KindUuid {
		return v.u, true
	}
	return uuid.UUID{}, false
}

func (v Value) Resource() (ResourceHandle, bool) {
	if v.kind == KindResourceHandle {
		return v.rh, true
	}
	return ResourceHandle{}, false
}

func (v Value) Items() ([]Value, bool) {
	if v.kind == KindList || v.kind == KindVector {
		return v.lst, true
	}
	return nil, false
}

func (v Value) Closure() (Closure, bool) {
	if v.kind == KindFunction {
		return v.fn, true
	}
	return nil, false
}

func (v Value) ErrorValue() (*ErrorValue, bool) {
	if v.kind == KindError {
		return v.err, true
	}
	return nil, false
}

// MapGet looks up a key, reporting presence like a normal map access.
func (v Value) MapGet(k MapKey) (Value, bool) {
	if v.kind != KindMap || v.m == nil {
		return Nil, false
	}
	return v.m.get(k)
}

// MapKeys returns keys in insertion order.
func (v Value) MapKeys() []MapKey {
	if v.kind != KindMap || v.m == nil {
		return nil
	}
	return v.m.keys()
}

// MapLen reports the number of entries, 0 for non-maps.
func (v Value) MapLen() int {
	if v.kind != KindMap || v.m == nil {
		return 0
	}
	return len(v.m.order)
}

// WithMapEntry returns a copy of v (which must be a Map) with k set to val,
// preserving functional-update semantics expected by `let`/`set!` forms.
func (v Value) WithMapEntry(k MapKey, val Value) Value {
	if v.kind != KindMap {
		m := newOrderedMap()
		m.set(k, val)
		return Value{kind: KindMap, m: m}
	}
	nm := v.m.clone()
	nm.set(k, val)
	return Value{kind: KindMap, m: nm}
}

// Equal implements the structural equality PL's `match` and `=` rely on.
// List and Vector compare equal to each other when their elements match,
// matching the JSON round-trip law of spec §4.A.
func Equal(a, b Value) bool {
	if a.kind == KindList || a.kind == KindVector {
		if b.kind != KindList && b.kind != KindVector {
			return false
		}
		if len(a.lst) != len(b.lst) {
			return false
		}
		for i := range a.lst {
			if !Equal(a.lst[i], b.lst[i]) {
				return false
			}
		}
		return true
	}
	if a.kind != b.kind {
		// Integer/Float cross-comparison is intentionally strict: the type
		// model keeps them distinct variants.
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindInteger:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString, KindKeyword, KindSymbol:
		return a.s == b.s
	case KindTimestamp:
		return a.ts.Equal(b.ts)
	case KindUuid:
		return a.u == b.u
	case KindResourceHandle:
		return a.rh == b.rh
	case KindMap:
		ak, bk := a.MapKeys(), b.MapKeys()
		if len(ak) != len(bk) {
			return false
		}
		for _, k := range ak {
			av, _ := a.MapGet(k)
			bv, ok := b.MapGet(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	return render(v)
}
