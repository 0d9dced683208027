package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualListVectorEquivalence(t *testing.T) {
	assert.True(t, Equal(List(Int(1), Int(2)), Vector(Int(1), Int(2))))
	assert.False(t, Equal(List(Int(1)), Vector(Int(1), Int(2))))
}

func TestMapWithEntryIsFunctional(t *testing.T) {
	base := Map(Entry(KeywordKey("a"), Int(1)))
	updated := base.WithMapEntry(KeywordKey("a"), Int(2))

	av, _ := base.MapGet(KeywordKey("a"))
	uv, _ := updated.MapGet(KeywordKey("a"))

	assert.Equal(t, int64(1), mustInt(av))
	assert.Equal(t, int64(2), mustInt(uv))
}

func mustInt(v Value) int64 {
	i, _ := v.Int()
	return i
}

func TestTypeExprAccepts(t *testing.T) {
	listOfInt := ListOfType(Prim(TypeInteger))
	assert.True(t, listOfInt.Accepts(List(Int(1), Int(2))))
	assert.False(t, listOfInt.Accepts(List(String("x"))))
	assert.True(t, Any().Accepts(Nil))

	shape := MapOfType(map[string]*TypeExpr{"args": ListOfType(Prim(TypeInteger))})
	assert.True(t, shape.Accepts(Map(Entry(KeywordKey("args"), List(Int(2), Int(3))))))
	assert.False(t, shape.Accepts(Map(Entry(KeywordKey("other"), Int(1)))))
}
