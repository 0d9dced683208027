package value

import "fmt"

// TypeExprKind enumerates the shapes a TypeExpr can take. CCOS's PL is
// gradually typed: schemas on capability manifests and plan input/output are
// TypeExprs, and `:any` (TypeAny) means "no static checking here" — the
// `introspect.type_analysis` built-in (spec §4.J) specifically flags
// capabilities whose schema is TypeAny or absent.
type TypeExprKind int

const (
	TypeAny TypeExprKind = iota
	TypeNil
	TypeBool
	TypeInteger
	TypeFloat
	TypeString
	TypeKeyword
	TypeSymbol
	TypeList
	TypeVector
	TypeMap
	TypeUnion
	TypeFunction
)

// TypeExpr is a recursive type expression. Only the fields relevant to Kind
// are populated (Elem for List/Vector, Fields for Map, Options for Union,
// Params/Return for Function).
type TypeExpr struct {
	Kind    TypeExprKind
	Elem    *TypeExpr
	Fields  map[string]*TypeExpr
	Options []*TypeExpr
	Params  []*TypeExpr
	Return  *TypeExpr
}

func Any() *TypeExpr  { return &TypeExpr{Kind: TypeAny} }
func Prim(k TypeExprKind) *TypeExpr { return &TypeExpr{Kind: k} }

func ListOfType(elem *TypeExpr) *TypeExpr   { return &TypeExpr{Kind: TypeList, Elem: elem} }
func VectorOfType(elem *TypeExpr) *TypeExpr { return &TypeExpr{Kind: TypeVector, Elem: elem} }
func MapOfType(fields map[string]*TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypeMap, Fields: fields}
}
func Union(options ...*TypeExpr) *TypeExpr { return &TypeExpr{Kind: TypeUnion, Options: options} }

// Accepts reports whether v is a value of the shape described by t. It is
// intentionally permissive (TypeAny accepts everything) to match the PL's
// gradual typing model rather than implementing a full type checker.
func (t *TypeExpr) Accepts(v Value) bool {
	if t == nil || t.Kind == TypeAny {
		return true
	}
	switch t.Kind {
	case TypeNil:
		return v.Kind() == KindNil
	case TypeBool:
		return v.Kind() == KindBool
	case TypeInteger:
		return v.Kind() == KindInteger
	case TypeFloat:
		return v.Kind() == KindFloat
	case TypeString:
		return v.Kind() == KindString
	case TypeKeyword:
		return v.Kind() == KindKeyword
	case TypeSymbol:
		return v.Kind() == KindSymbol
	case TypeList:
		items, ok := v.Items()
		if !ok || v.Kind() != KindList {
			return false
		}
		return t.allElemsMatch(items)
	case TypeVector:
		items, ok := v.Items()
		if !ok || v.Kind() != KindVector {
			return false
		}
		return t.allElemsMatch(items)
	case TypeMap:
		if v.Kind() != KindMap {
			return false
		}
		for name, ft := range t.Fields {
			val, ok := v.MapGet(KeywordKey(name))
			if !ok {
				return false
			}
			if !ft.Accepts(val) {
				return false
			}
		}
		return true
	case TypeUnion:
		for _, opt := range t.Options {
			if opt.Accepts(v) {
				return true
			}
		}
		return false
	case TypeFunction:
		_, ok := v.Closure()
		return ok
	default:
		return false
	}
}

func (t *TypeExpr) allElemsMatch(items []Value) bool {
	if t.Elem == nil {
		return true
	}
	for _, it := range items {
		if !t.Elem.Accepts(it) {
			return false
		}
	}
	return true
}

func (t *TypeExpr) String() string {
	if t == nil {
		return ":any"
	}
	switch t.Kind {
	case TypeAny:
		return ":any"
	case TypeList:
		return fmt.Sprintf("[:list %s]", t.Elem)
	case TypeVector:
		return fmt.Sprintf("[:vector %s]", t.Elem)
	case TypeMap:
		return "[:map]"
	case TypeUnion:
		return "[:union]"
	case TypeFunction:
		return "[:fn]"
	default:
		return fmt.Sprintf(":%d", t.Kind)
	}
}
