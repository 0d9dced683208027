package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	cases := []Value{
		Nil,
		Bool(true),
		Int(42),
		Float(3.5),
		String("hello"),
		Keyword("greet"),
		Vector(Int(1), Int(2), Int(3)),
		List(Int(1), Int(2)),
		Map(Entry(KeywordKey("args"), Vector(Int(2), Int(3)))),
		Map(Entry(StringKey("weird key"), String("v"))),
		Map(Entry(IntKey(7), String("seven"))),
	}

	for _, v := range cases {
		j, err := ToJSON(v)
		require.NoError(t, err)
		back, err := FromJSON(j)
		require.NoError(t, err)
		assert.True(t, Equal(normalize(v), normalize(back)), "round trip mismatch: %v vs %v", v, back)
	}
}

// normalize maps List to Vector and Integer map keys to their decimal String
// form, matching the ≅ equivalence spec §4.A defines for the round-trip law.
func normalize(v Value) Value {
	switch v.Kind() {
	case KindList, KindVector:
		items, _ := v.Items()
		out := make([]Value, len(items))
		for i, it := range items {
			out[i] = normalize(it)
		}
		return VectorOf(out)
	case KindMap:
		m := newOrderedMap()
		for _, k := range v.MapKeys() {
			val, _ := v.MapGet(k)
			nk := k
			if k.Kind() == KindInteger {
				nk = StringKey(k.String())
			}
			m.set(nk, normalize(val))
		}
		return Value{kind: KindMap, m: m}
	default:
		return v
	}
}

func TestJSONUnsupportedKinds(t *testing.T) {
	_, err := ToJSON(Err("Boom", "nope", Nil))
	require.Error(t, err)

	_, err = ToJSON(Resource(ResourceHandle{Kind: "fd", ID: "1"}))
	require.Error(t, err)
}

func TestKeywordVsStringKeyPromotion(t *testing.T) {
	v, err := FromJSON(map[string]any{"greeting": "hi", "with space": "no"})
	require.NoError(t, err)
	_, ok := v.MapGet(KeywordKey("greeting"))
	assert.True(t, ok)
	_, ok = v.MapGet(StringKey("with space"))
	assert.True(t, ok)
}
