package pl

import (
	"strconv"
	"strings"

	"github.com/mandubian/ccos-sub008/value"
)

// Canonical renders expr as canonical PL source: maps serialize as
// `{:k v …}` and any literal carrying the pre-lex marker of a `#rx"…"` regex
// literal is emitted as a plain string, per spec §6. Since the lexer already
// folds `#rx"…"` into a plain String token, canonical output is simply the
// textual form of the parsed Value tree — this function exists as the named
// entry point spec.md's wire format calls out, and is what
// planner/archive.go hashes for content-addressing (spec §4.G step 8).
func Canonical(expr value.Value) string {
	var sb strings.Builder
	writeCanonical(&sb, expr)
	return sb.String()
}

// CanonicalProgram renders a full sequence of top-level forms, one per line.
func CanonicalProgram(forms []value.Value) string {
	var sb strings.Builder
	for i, f := range forms {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(Canonical(f))
	}
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v value.Value) {
	switch v.Kind() {
	case value.KindList:
		items, _ := v.Items()
		sb.WriteByte('(')
		for i, it := range items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeCanonical(sb, it)
		}
		sb.WriteByte(')')
	case value.KindVector:
		items, _ := v.Items()
		sb.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeCanonical(sb, it)
		}
		sb.WriteByte(']')
	case value.KindMap:
		sb.WriteByte('{')
		for i, k := range v.MapKeys() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeCanonicalKey(sb, k)
			sb.WriteByte(' ')
			val, _ := v.MapGet(k)
			writeCanonical(sb, val)
		}
		sb.WriteByte('}')
	case value.KindString:
		s, _ := v.Str()
		sb.WriteString(strconv.Quote(s))
	case value.KindKeyword:
		s, _ := v.Str()
		sb.WriteByte(':')
		sb.WriteString(s)
	case value.KindSymbol:
		s, _ := v.Str()
		sb.WriteString(s)
	case value.KindInteger:
		i, _ := v.Int()
		sb.WriteString(strconv.FormatInt(i, 10))
	case value.KindFloat:
		f, _ := v.Float()
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case value.KindBool:
		b, _ := v.Bool()
		sb.WriteString(strconv.FormatBool(b))
	case value.KindNil:
		sb.WriteString("nil")
	default:
		sb.WriteString(v.String())
	}
}

func writeCanonicalKey(sb *strings.Builder, k value.MapKey) {
	switch k.Kind() {
	case value.KindKeyword:
		sb.WriteByte(':')
		sb.WriteString(k.String())
	case value.KindString:
		sb.WriteString(strconv.Quote(k.String()))
	case value.KindInteger:
		sb.WriteString(k.String())
	}
}
