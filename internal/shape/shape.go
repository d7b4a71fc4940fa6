// Package shape implements the Shape Evaluator (§4.6): it resolves
// every shape's properties to their final values, projects them to
// plain numbers for the display layer, and reorders the result to
// match the caller's declared shape ordering.
package shape

import (
	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/eval"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/translation"
	"github.com/xiarush120220/penrose/internal/value"
)

// Shape is one materialized, display-ready graphical primitive: a
// shape type plus a property map whose differentiable scalars and
// vectors have been projected to plain Go numbers (§4.6).
type Shape struct {
	Name       string
	Type       string
	Properties map[string]interface{}
}

// Eval resolves every shape named in shapePaths, then reorders the
// result to match shapeOrdering element-for-element by name (§4.6,
// §8 property 4). A declared name with no evaluated shape is fatal
// (ShapeOrderingUnmatched).
func Eval(ctx *eval.Context, tr *translation.Translation, shapePaths []path.Path, shapeOrdering []string) ([]Shape, error) {
	byName := make(map[string]Shape, len(shapePaths))
	for _, p := range shapePaths {
		s, err := evalOne(ctx, tr, p)
		if err != nil {
			return nil, err
		}
		byName[s.Name] = s
	}

	ordered := make([]Shape, len(shapeOrdering))
	for i, name := range shapeOrdering {
		s, ok := byName[name]
		if !ok {
			return nil, evalerr.New(evalerr.ShapeOrderingUnmatched, name, "declared shape name has no evaluated shape")
		}
		ordered[i] = s
	}
	return ordered, nil
}

func evalOne(ctx *eval.Context, tr *translation.Translation, p path.Path) (Shape, error) {
	resolved, err := eval.ResolvePath(ctx, tr, p)
	if err != nil {
		return Shape{}, err
	}
	gpi, ok := value.AsGPI(resolved)
	if !ok {
		return Shape{}, evalerr.New(evalerr.TypeMismatch, p.Canonical(), "shape path did not resolve to a GPI")
	}

	props := make(map[string]interface{}, len(gpi.Props))
	for prop, v := range gpi.Props {
		props[prop] = project(v)
	}

	name, _ := projectedName(props)
	return Shape{Name: name, Type: gpi.ShapeType, Properties: props}, nil
}

// project converts a Value into the plain Go representation the
// display layer consumes: differentiable scalars become float64,
// vectors/matrices become slices, everything else passes through
// unchanged (§4.6: "the non-AD numeric projection").
func project(v value.Value) interface{} {
	switch x := v.(type) {
	case value.FloatV:
		return ad.NumOf(x.X)
	case value.IntV:
		return x.X
	case value.BoolV:
		return x.X
	case value.StrV:
		return x.X
	case value.VectorV:
		out := make([]float64, len(x.X))
		for i, s := range x.X {
			out[i] = ad.NumOf(s)
		}
		return out
	case value.MatrixV:
		out := make([][]float64, len(x.Rows))
		for i, row := range x.Rows {
			r := make([]float64, len(row))
			for j, s := range row {
				r[j] = ad.NumOf(s)
			}
			out[i] = r
		}
		return out
	case value.TupV:
		return [2]float64{ad.NumOf(x.A), ad.NumOf(x.B)}
	case value.ListV:
		out := make([]float64, len(x.X))
		for i, s := range x.X {
			out[i] = ad.NumOf(s)
		}
		return out
	case value.LListV:
		out := make([][]float64, len(x.X))
		for i, vec := range x.X {
			r := make([]float64, len(vec))
			for j, s := range vec {
				r[j] = ad.NumOf(s)
			}
			out[i] = r
		}
		return out
	case value.OpaqueV:
		return x.Payload
	default:
		return v
	}
}

// projectedName extracts a shape's "name" property as a string, the
// key the ordering pass matches against (§4.6).
func projectedName(props map[string]interface{}) (string, bool) {
	n, ok := props["name"]
	if !ok {
		return "", false
	}
	s, ok := n.(string)
	return s, ok
}
