package value

import (
	"fmt"
	"strconv"
	"strings"
)

// render produces the canonical textual form of a Value, used both for
// debugging (%v / String()) and as the basis of the PL canonical serializer
// in package pl (spec §6: maps as `{:k v …}`).
func render(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value) {
	switch v.kind {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInteger:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindKeyword:
		sb.WriteByte(':')
		sb.WriteString(v.s)
	case KindSymbol:
		sb.WriteString(v.s)
	case KindTimestamp:
		sb.WriteString(v.ts.Format("2006-01-02T15:04:05Z07:00"))
	case KindUuid:
		sb.WriteString(v.u.String())
	case KindResourceHandle:
		fmt.Fprintf(sb, "#resource[%s:%s]", v.rh.Kind, v.rh.ID)
	case KindList:
		sb.WriteByte('(')
		for i, it := range v.lst {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeValue(sb, it)
		}
		sb.WriteByte(')')
	case KindVector:
		sb.WriteByte('[')
		for i, it := range v.lst {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeValue(sb, it)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, k := range v.MapKeys() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeMapKey(sb, k)
			sb.WriteByte(' ')
			val, _ := v.MapGet(k)
			writeValue(sb, val)
		}
		sb.WriteByte('}')
	case KindFunction:
		sb.WriteString("#function")
	case KindError:
		fmt.Fprintf(sb, "#error[%s: %s]", v.err.Kind, v.err.Message)
	}
}

func writeMapKey(sb *strings.Builder, k MapKey) {
	switch k.Kind() {
	case KindKeyword:
		sb.WriteByte(':')
		sb.WriteString(k.s)
	case KindString:
		sb.WriteString(strconv.Quote(k.s))
	case KindInteger:
		sb.WriteString(strconv.FormatInt(k.i, 10))
	}
}
