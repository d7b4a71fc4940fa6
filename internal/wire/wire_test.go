package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/state"
	"github.com/xiarush120220/penrose/internal/translation"
	"github.com/xiarush120220/penrose/internal/value"
)

func fixtureState() *state.State {
	tr := translation.New()
	tr.Fields["c"] = map[string]translation.FieldEntry{
		"x": translation.FExpr{Expr: translation.OptEval{E: expr.AFloat{Fix: 1.5}}},
		"shape": translation.FGPI{
			ShapeType: "Circle",
			Props: map[string]translation.TagExpr{
				"r":    translation.OptEval{E: expr.EPath{P: path.FieldPath{Name: "c", Field: "x"}}},
				"name": translation.Done{V: value.StrV{X: "c"}},
			},
		},
	}
	return &state.State{
		VaryingValues: []float64{3.0},
		VaryingPaths:  []path.Path{path.FieldPath{Name: "c", Field: "x"}},
		Translation:   tr,
		Seed:          "fixture-seed",
		Params: state.Params{
			Weight:      1.0,
			Grad:        map[string]float64{"Field(c,x)": 0.5},
			PrecondGrad: map[string]float64{},
		},
	}
}

// §8 property 8: encode(decode(json)) round-trips the document's
// observable content, up to the dropped derived fields.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := fixtureState()
	data, err := Encode(s)
	require.NoError(t, err)

	tape := ad.NewTape()
	out, err := Decode(data, tape)
	require.NoError(t, err)

	assert.Equal(t, s.VaryingValues, out.VaryingValues)
	require.Len(t, out.VaryingPaths, 1)
	assert.Equal(t, s.VaryingPaths[0].Canonical(), out.VaryingPaths[0].Canonical())
	assert.Equal(t, s.Params.Weight, out.Params.Weight)
	assert.Equal(t, s.Params.Grad, out.Params.Grad)
	assert.Equal(t, s.Seed, out.Seed)

	fe, ok := out.Translation.Fields["c"]["x"].(translation.FExpr)
	require.True(t, ok)
	oe, ok := fe.Expr.(translation.OptEval)
	require.True(t, ok)
	af, ok := oe.E.(expr.AFloat)
	require.True(t, ok)
	assert.Equal(t, 1.5, af.Fix)

	gpi, ok := out.Translation.Fields["c"]["shape"].(translation.FGPI)
	require.True(t, ok)
	assert.Equal(t, "Circle", gpi.ShapeType)
	done, ok := gpi.Props["name"].(translation.Done)
	require.True(t, ok)
	sv, ok := done.V.(value.StrV)
	require.True(t, ok)
	assert.Equal(t, "c", sv.X)
}

func TestDecodeBuildsImmutableOriginalSnapshot(t *testing.T) {
	s := fixtureState()
	data, err := Encode(s)
	require.NoError(t, err)

	tape := ad.NewTape()
	out, err := Decode(data, tape)
	require.NoError(t, err)

	require.NotNil(t, out.OriginalTranslation)
	assert.NotSame(t, out.Translation, out.OriginalTranslation)

	// Mutating the live translation must never reach the snapshot.
	out.Translation.Fields["c"]["x"] = translation.FExpr{Expr: translation.Done{V: value.FloatV{X: tape.ConstOf(99)}}}
	origFE, ok := out.OriginalTranslation.Fields["c"]["x"].(translation.FExpr)
	require.True(t, ok)
	_, stillOptEval := origFE.Expr.(translation.OptEval)
	assert.True(t, stillOptEval)
}

func TestRNGSeedingIsDeterministic(t *testing.T) {
	a := state.NewRNG("same-seed")
	b := state.NewRNG("same-seed")
	assert.Equal(t, a.Int63(), b.Int63())
}
