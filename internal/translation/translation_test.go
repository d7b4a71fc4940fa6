package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/value"
)

func fixtureWithField() *Translation {
	t := New()
	t.setField("A", "x", FExpr{Expr: OptEval{E: expr.AFloat{Fix: 3}}})
	return t
}

func TestFindExprFieldCase(t *testing.T) {
	tr := fixtureWithField()
	got, err := tr.FindExpr(path.FieldPath{Name: "A", Field: "x"})
	require.NoError(t, err)
	assert.Equal(t, OptEval{E: expr.AFloat{Fix: 3}}, got)
}

func TestFindExprUnresolved(t *testing.T) {
	tr := New()
	_, err := tr.FindExpr(path.FieldPath{Name: "A", Field: "x"})
	assert.True(t, evalerr.Is(err, evalerr.UnresolvedPath))
}

func TestFindExprPropertyCaseReturnsFGPI(t *testing.T) {
	tr := New()
	tr.setField("c", "shape", FGPI{
		ShapeType: "Circle",
		Props: map[string]TagExpr{
			"r": OptEval{E: expr.AFloat{Fix: 5}},
		},
	})
	got, err := tr.FindExpr(path.PropertyPath{Name: "c", Field: "shape", Prop: "r"})
	require.NoError(t, err)
	fgpi, ok := got.(FGPI)
	require.True(t, ok)
	assert.Equal(t, "Circle", fgpi.ShapeType)
}

func TestFindExprRejectsAccessPath(t *testing.T) {
	tr := fixtureWithField()
	ap := path.AccessPath{Inner: path.FieldPath{Name: "A", Field: "x"}, Indices: []int{0}}
	_, err := tr.FindExpr(ap)
	assert.True(t, evalerr.Is(err, evalerr.Unimplemented))
}

func TestInsertExprFieldPath(t *testing.T) {
	tr := New()
	p := path.FieldPath{Name: "A", Field: "x"}
	err := tr.InsertExpr(p, Done{V: value.IntV{X: 7}})
	require.NoError(t, err)
	got, err := tr.FindExpr(p)
	require.NoError(t, err)
	assert.Equal(t, Done{V: value.IntV{X: 7}}, got)
}

func TestInsertExprPropertyPath(t *testing.T) {
	tr := New()
	tr.setField("c", "shape", FGPI{ShapeType: "Circle", Props: map[string]TagExpr{}})
	p := path.PropertyPath{Name: "c", Field: "shape", Prop: "r"}
	err := tr.InsertExpr(p, Done{V: value.IntV{X: 5}})
	require.NoError(t, err)
	got, err := tr.FindExpr(p)
	require.NoError(t, err)
	fgpi := got.(FGPI)
	assert.Equal(t, Done{V: value.IntV{X: 5}}, fgpi.Props["r"])
}

func TestInsertExprPropertyPathOnExprFieldFails(t *testing.T) {
	tr := fixtureWithField()
	p := path.PropertyPath{Name: "A", Field: "x", Prop: "r"}
	err := tr.InsertExpr(p, Done{V: value.IntV{X: 5}})
	assert.True(t, evalerr.Is(err, evalerr.TypeMismatch))
}

func TestInsertExprAccessPathIntoOptEvalVector(t *testing.T) {
	tr := New()
	tr.setField("A", "v", FExpr{Expr: OptEval{E: expr.Vector{Es: []expr.Expr{
		expr.AFloat{Fix: 1}, expr.AFloat{Fix: 2},
	}}}})
	tape := ad.NewTape()
	p := path.AccessPath{Inner: path.FieldPath{Name: "A", Field: "v"}, Indices: []int{1}}
	err := tr.InsertExpr(p, Done{V: value.FloatV{X: tape.ConstOf(9)}})
	require.NoError(t, err)

	got, err := tr.FindExpr(path.FieldPath{Name: "A", Field: "v"})
	require.NoError(t, err)
	vecExpr := got.(OptEval).E.(expr.Vector)
	assert.Equal(t, expr.AFloat{Fix: 9}, vecExpr.Es[1])
	assert.Equal(t, expr.AFloat{Fix: 1}, vecExpr.Es[0])
}

func TestInsertExprAccessPathIntoDoneVector(t *testing.T) {
	tr := New()
	tape := ad.NewTape()
	vec := value.VectorV{X: ad.Vector{tape.ConstOf(1), tape.ConstOf(2)}}
	tr.setField("A", "v", FExpr{Expr: Done{V: vec}})

	p := path.AccessPath{Inner: path.FieldPath{Name: "A", Field: "v"}, Indices: []int{0}}
	err := tr.InsertExpr(p, Done{V: value.FloatV{X: tape.ConstOf(42)}})
	require.NoError(t, err)

	got, err := tr.FindExpr(path.FieldPath{Name: "A", Field: "v"})
	require.NoError(t, err)
	gotVec := got.(Done).V.(value.VectorV)
	assert.Equal(t, 42.0, ad.NumOf(gotVec.X[0]))
}

func TestInsertExprAccessPathTwoIndicesUnimplemented(t *testing.T) {
	tr := New()
	tr.setField("A", "v", FExpr{Expr: OptEval{E: expr.Vector{}}})
	p := path.AccessPath{Inner: path.FieldPath{Name: "A", Field: "v"}, Indices: []int{0, 1}}
	err := tr.InsertExpr(p, Done{V: value.FloatV{}})
	assert.True(t, evalerr.Is(err, evalerr.Unimplemented))
}

func TestInsertExprNestedAccessPathUnimplemented(t *testing.T) {
	tr := New()
	inner := path.AccessPath{Inner: path.FieldPath{Name: "A", Field: "v"}, Indices: []int{0}}
	p := path.AccessPath{Inner: inner, Indices: []int{0}}
	err := tr.InsertExpr(p, Done{V: value.FloatV{}})
	assert.True(t, evalerr.Is(err, evalerr.Unimplemented))
}

func TestCloneIsolatesSubsequentWrites(t *testing.T) {
	tr := New()
	tr.setField("c", "shape", FGPI{ShapeType: "Circle", Props: map[string]TagExpr{
		"r": OptEval{E: expr.AFloat{Fix: 5}},
	}})
	clone := tr.Clone()

	p := path.PropertyPath{Name: "c", Field: "shape", Prop: "r"}
	err := clone.InsertExpr(p, Done{V: value.IntV{X: 99}})
	require.NoError(t, err)

	original, err := tr.FindExpr(p)
	require.NoError(t, err)
	originalFGPI := original.(FGPI)
	assert.Equal(t, OptEval{E: expr.AFloat{Fix: 5}}, originalFGPI.Props["r"])

	clonedEntry, err := clone.FindExpr(p)
	require.NoError(t, err)
	assert.Equal(t, Done{V: value.IntV{X: 99}}, clonedEntry.(FGPI).Props["r"])
}
