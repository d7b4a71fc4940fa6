package opeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/value"
)

func f(tape *ad.Tape, x float64) value.Value { return value.FloatV{X: tape.ConstOf(x)} }
func i(x int) value.Value                    { return value.IntV{X: x} }
func vec(tape *ad.Tape, xs ...float64) value.Value {
	v := make(ad.Vector, len(xs))
	for idx, x := range xs {
		v[idx] = tape.ConstOf(x)
	}
	return value.VectorV{X: v}
}

func numOf(t *testing.T, v value.Value) float64 {
	fv, ok := v.(value.FloatV)
	require.True(t, ok, "expected FloatV, got %T", v)
	return ad.NumOf(fv.X)
}

func TestFloatFloat(t *testing.T) {
	tape := ad.NewTape()
	for _, tc := range []struct {
		op   expr.BinaryOp
		want float64
	}{
		{expr.BPlus, 5}, {expr.BMinus, -1}, {expr.Multiply, 6}, {expr.Divide, 2.0 / 3.0},
	} {
		got, err := Binary(tape, tc.op, f(tape, 2), f(tape, 3))
		require.NoError(t, err)
		assert.InDelta(t, tc.want, numOf(t, got), 1e-12)
	}
}

func TestFloatExpUnimplemented(t *testing.T) {
	tape := ad.NewTape()
	_, err := Binary(tape, expr.Exp, f(tape, 2), f(tape, 3))
	assert.True(t, evalerr.Is(err, evalerr.Unimplemented))
}

func TestIntPromotion(t *testing.T) {
	tape := ad.NewTape()
	got, err := Binary(tape, expr.BPlus, i(2), f(tape, 1.5))
	require.NoError(t, err)
	assert.InDelta(t, 3.5, numOf(t, got), 1e-12)

	got, err = Binary(tape, expr.Multiply, f(tape, 1.5), i(2))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, numOf(t, got), 1e-12)
}

func TestIntDivideIsTrueDivisionToFloat(t *testing.T) {
	tape := ad.NewTape()
	got, err := Binary(tape, expr.Divide, i(7), i(2))
	require.NoError(t, err)
	fv, ok := got.(value.FloatV)
	require.True(t, ok)
	assert.InDelta(t, 3.5, ad.NumOf(fv.X), 1e-12)
}

func TestIntExpIsIntegerPower(t *testing.T) {
	tape := ad.NewTape()
	got, err := Binary(tape, expr.Exp, i(2), i(10))
	require.NoError(t, err)
	assert.Equal(t, value.IntV{X: 1024}, got)
}

func TestFloatVectorMultiply(t *testing.T) {
	tape := ad.NewTape()
	got, err := Binary(tape, expr.Multiply, f(tape, 2), vec(tape, 1, 2, 3))
	require.NoError(t, err)
	vv := got.(value.VectorV)
	assert.Equal(t, []float64{2, 4, 6}, []float64{ad.NumOf(vv.X[0]), ad.NumOf(vv.X[1]), ad.NumOf(vv.X[2])})
}

func TestFloatVectorOtherOpsMismatch(t *testing.T) {
	tape := ad.NewTape()
	_, err := Binary(tape, expr.BPlus, f(tape, 2), vec(tape, 1, 2))
	assert.True(t, evalerr.Is(err, evalerr.TypeMismatch))
}

func TestVectorFloatDivide(t *testing.T) {
	tape := ad.NewTape()
	got, err := Binary(tape, expr.Divide, vec(tape, 4, 8), f(tape, 2))
	require.NoError(t, err)
	vv := got.(value.VectorV)
	assert.Equal(t, []float64{2, 4}, []float64{ad.NumOf(vv.X[0]), ad.NumOf(vv.X[1])})
}

func TestVectorFloatMultiplyMismatch(t *testing.T) {
	tape := ad.NewTape()
	_, err := Binary(tape, expr.Multiply, vec(tape, 4, 8), f(tape, 2))
	assert.True(t, evalerr.Is(err, evalerr.TypeMismatch))
}

func TestVectorVectorElementwise(t *testing.T) {
	tape := ad.NewTape()
	got, err := Binary(tape, expr.BPlus, vec(tape, 1, 2), vec(tape, 3, 4))
	require.NoError(t, err)
	vv := got.(value.VectorV)
	assert.Equal(t, []float64{4, 6}, []float64{ad.NumOf(vv.X[0]), ad.NumOf(vv.X[1])})

	_, err = Binary(tape, expr.Multiply, vec(tape, 1, 2), vec(tape, 3, 4))
	assert.True(t, evalerr.Is(err, evalerr.TypeMismatch))
}

func TestUnaryMinus(t *testing.T) {
	tape := ad.NewTape()
	got, err := Unary(expr.UMinus, i(5))
	require.NoError(t, err)
	assert.Equal(t, value.IntV{X: -5}, got)

	got, err = Unary(expr.UMinus, f(tape, 5))
	require.NoError(t, err)
	assert.InDelta(t, -5.0, numOf(t, got), 1e-12)

	got, err = Unary(expr.UMinus, vec(tape, 1, -2))
	require.NoError(t, err)
	vv := got.(value.VectorV)
	assert.Equal(t, []float64{-1, 2}, []float64{ad.NumOf(vv.X[0]), ad.NumOf(vv.X[1])})
}

func TestUnaryPlusAlwaysInvalid(t *testing.T) {
	_, err := Unary(expr.UPlus, value.IntV{X: 1})
	assert.True(t, evalerr.Is(err, evalerr.InvalidOperand))
}
