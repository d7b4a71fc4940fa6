package value

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiarush120220/penrose/internal/ad"
)

func TestKindNames(t *testing.T) {
	tape := ad.NewTape()
	assert.Equal(t, "FloatV", FloatV{X: tape.ConstOf(1)}.Kind())
	assert.Equal(t, "IntV", IntV{X: 1}.Kind())
	assert.Equal(t, "BoolV", BoolV{X: true}.Kind())
	assert.Equal(t, "StrV", StrV{X: "s"}.Kind())
	assert.Equal(t, "OpaqueV:COLOR", OpaqueV{OpaqueKind: "COLOR"}.Kind())
}

func TestArgValWrapping(t *testing.T) {
	v := Val{Contents: IntV{X: 3}}
	contents, ok := AsVal(v)
	assert.True(t, ok)
	assert.Equal(t, IntV{X: 3}, contents)

	_, ok = AsGPI(v)
	assert.False(t, ok)

	g := GPIVal{Contents: GPI{ShapeType: "Circle"}}
	gpi, ok := AsGPI(g)
	assert.True(t, ok)
	assert.Equal(t, "Circle", gpi.ShapeType)
}

func TestToFloatPromotesInt(t *testing.T) {
	tape := ad.NewTape()
	s, ok := ToFloat(tape, IntV{X: 4})
	assert.True(t, ok)
	assert.Equal(t, 4.0, ad.NumOf(s))

	f := tape.ConstOf(2.5)
	s2, ok := ToFloat(tape, FloatV{X: f})
	assert.True(t, ok)
	assert.Equal(t, f, s2)

	_, ok = ToFloat(tape, BoolV{X: true})
	assert.False(t, ok)
}
