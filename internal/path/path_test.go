package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalForms(t *testing.T) {
	f := FieldPath{Name: "A", Field: "x"}
	assert.Equal(t, "Field(A,x)", f.Canonical())

	p := PropertyPath{Name: "c", Field: "shape", Prop: "r"}
	assert.Equal(t, "Property(c,shape,r)", p.Canonical())

	a := AccessPath{Inner: f, Indices: []int{1, 0}}
	assert.Equal(t, "Access(Field(A,x),[1,0])", a.Canonical())
}

func TestEqualByCanonicalForm(t *testing.T) {
	a := FieldPath{Name: "A", Field: "x"}
	b := FieldPath{Name: "A", Field: "x"}
	c := FieldPath{Name: "A", Field: "y"}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestKeyIsCanonical(t *testing.T) {
	p := PropertyPath{Name: "c", Field: "icon", Prop: "center"}
	assert.Equal(t, p.Canonical(), Key(p))
}
