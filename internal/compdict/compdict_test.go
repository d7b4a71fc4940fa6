package compdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/value"
)

func TestDerivativeLooksUpByPathKey(t *testing.T) {
	tape := ad.NewTape()
	d := Standard()
	entry, err := d.LookupDeriv(Derivative)
	require.NoError(t, err)

	got, err := entry(tape, DebugInfo{Grad: map[string]float64{"Field(A,x)": 2.5}}, "Field(A,x)")
	require.NoError(t, err)
	assert.Equal(t, 2.5, ad.NumOf(got.(value.FloatV).X))
}

func TestDerivativeMissingPathFails(t *testing.T) {
	tape := ad.NewTape()
	d := Standard()
	entry, _ := d.LookupDeriv(Derivative)
	_, err := entry(tape, DebugInfo{}, "Field(A,x)")
	assert.True(t, evalerr.Is(err, evalerr.UnresolvedPath))
}

func TestDerivativePreconditioned(t *testing.T) {
	tape := ad.NewTape()
	d := Standard()
	entry, err := d.LookupDeriv(DerivativePreconditioned)
	require.NoError(t, err)
	got, err := entry(tape, DebugInfo{PrecondGrad: map[string]float64{"k": 9}}, "k")
	require.NoError(t, err)
	assert.Equal(t, 9.0, ad.NumOf(got.(value.FloatV).X))
}

func TestSqrtEntry(t *testing.T) {
	tape := ad.NewTape()
	d := Standard()
	entry, err := d.Lookup("sqrt")
	require.NoError(t, err)
	got, err := entry(tape, []value.ArgVal{value.Val{Contents: value.FloatV{X: tape.ConstOf(9)}}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, ad.NumOf(got.(value.FloatV).X))
}

func TestMaxMinEntries(t *testing.T) {
	tape := ad.NewTape()
	d := Standard()
	maxEntry, _ := d.Lookup("max")
	got, err := maxEntry(tape, []value.ArgVal{
		value.Val{Contents: value.IntV{X: 2}},
		value.Val{Contents: value.FloatV{X: tape.ConstOf(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, ad.NumOf(got.(value.FloatV).X))

	minEntry, _ := d.Lookup("min")
	got, err = minEntry(tape, []value.ArgVal{
		value.Val{Contents: value.IntV{X: 2}},
		value.Val{Contents: value.FloatV{X: tape.ConstOf(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, ad.NumOf(got.(value.FloatV).X))
}

func TestNormEntry(t *testing.T) {
	tape := ad.NewTape()
	d := Standard()
	entry, err := d.Lookup("norm")
	require.NoError(t, err)
	got, err := entry(tape, []value.ArgVal{
		value.Val{Contents: value.VectorV{X: ad.Vector{tape.ConstOf(3), tape.ConstOf(4)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, ad.NumOf(got.(value.FloatV).X))
}

func TestLookupUnimplemented(t *testing.T) {
	d := New()
	_, err := d.Lookup("nope")
	assert.True(t, evalerr.Is(err, evalerr.Unimplemented))
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved(Derivative))
	assert.True(t, IsReserved(DerivativePreconditioned))
	assert.False(t, IsReserved("sqrt"))
}
