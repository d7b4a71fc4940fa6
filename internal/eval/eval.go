// Package eval implements the Expression Evaluator (§4.4) and the Path
// Resolver (§4.5): the two mutually recursive operations that walk an
// expression tree and a translation, producing values and memoizing
// results back into the translation as they go.
package eval

import (
	"encoding/json"
	"sort"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/compdict"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/opeval"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/translation"
	"github.com/xiarush120220/penrose/internal/value"
)

// VaryingMap is the canonical-path-keyed override consulted before the
// translation by the path resolver (§4.5 step 1). Its entries are the
// same (path, value) pairs the state adapter inserts into the
// translation as Done cells (§4.7) — the map is the fast-path read
// side of that same data.
type VaryingMap map[string]float64

// Context bundles the per-pass collaborators EvalExpr and ResolvePath
// thread through every recursive call: the tape backing every
// differentiable scalar produced during the pass, the computation
// dictionary, the varying overrides, and the gradient debug info
// CompApp's reserved names read from (§4.4).
type Context struct {
	Tape    *ad.Tape
	Dict    *compdict.Dictionary
	Varying VaryingMap
	Debug   compdict.DebugInfo

	// Fold enables constant folding of already-differentiated AFloat
	// leaves (config.Config.Fold): the same Fix value is lifted onto
	// Tape at most once per pass and every later reference reuses the
	// resulting Scalar instead of pushing a fresh tape node.
	Fold      bool
	foldCache map[float64]ad.Scalar
}

// EvalExpr evaluates e against tr under ctx, returning an ArgVal
// (§4.4). Evaluation may write Done cells into tr as a side effect of
// resolving a path.
func EvalExpr(ctx *Context, tr *translation.Translation, e expr.Expr) (value.ArgVal, error) {
	switch x := e.(type) {
	case expr.IntLit:
		return value.Val{Contents: value.IntV{X: x.X}}, nil
	case expr.StringLit:
		return value.Val{Contents: value.StrV{X: x.X}}, nil
	case expr.BoolLit:
		return value.Val{Contents: value.BoolV{X: x.X}}, nil

	case expr.AFloat:
		if x.Vary {
			return nil, evalerr.New(evalerr.UnsubstitutedVarying, "", "AFloat.Vary reached the evaluator unsubstituted")
		}
		if ctx.Fold {
			if ctx.foldCache == nil {
				ctx.foldCache = make(map[float64]ad.Scalar)
			}
			if s, ok := ctx.foldCache[x.Fix]; ok {
				return value.Val{Contents: value.FloatV{X: s}}, nil
			}
			s := ctx.Tape.ConstOf(x.Fix)
			ctx.foldCache[x.Fix] = s
			return value.Val{Contents: value.FloatV{X: s}}, nil
		}
		return value.Val{Contents: value.FloatV{X: ctx.Tape.ConstOf(x.Fix)}}, nil

	case expr.UOp:
		v, err := evalToValue(ctx, tr, x.E)
		if err != nil {
			return nil, err
		}
		result, err := opeval.Unary(x.Op, v)
		if err != nil {
			return nil, err
		}
		return value.Val{Contents: result}, nil

	case expr.BinOp:
		v1, err := evalToValue(ctx, tr, x.E1)
		if err != nil {
			return nil, err
		}
		v2, err := evalToValue(ctx, tr, x.E2)
		if err != nil {
			return nil, err
		}
		result, err := opeval.Binary(ctx.Tape, x.Op, v1, v2)
		if err != nil {
			return nil, err
		}
		return value.Val{Contents: result}, nil

	case expr.Tuple:
		v1, err := evalToValue(ctx, tr, x.E1)
		if err != nil {
			return nil, err
		}
		v2, err := evalToValue(ctx, tr, x.E2)
		if err != nil {
			return nil, err
		}
		s1, ok := value.ToFloat(ctx.Tape, v1)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "tuple element must be numeric, got %s", v1.Kind())
		}
		s2, ok := value.ToFloat(ctx.Tape, v2)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "tuple element must be numeric, got %s", v2.Kind())
		}
		return value.Val{Contents: value.TupV{A: s1, B: s2}}, nil

	case expr.List:
		return evalList(ctx, tr, x)

	case expr.Vector:
		return evalVector(ctx, tr, x)

	case expr.VectorAccess:
		return evalVectorAccess(ctx, tr, x)

	case expr.MatrixAccess:
		return evalMatrixAccess(ctx, tr, x)

	case expr.EPath:
		return ResolvePath(ctx, tr, x.P)

	case expr.CompApp:
		return evalCompApp(ctx, tr, x)

	case expr.Matrix:
		return nil, evalerr.New(evalerr.Unimplemented, e.Describe(), "general Matrix literals are not supported")

	case expr.ListAccess:
		return nil, evalerr.New(evalerr.Unimplemented, e.Describe(), "ListAccess is not supported")

	default:
		return nil, evalerr.New(evalerr.UnknownExpression, e.Describe(), "unrecognized expression kind")
	}
}

// evalToValue evaluates e and rejects a GPI result; most expression
// kinds operate only on plain values.
func evalToValue(ctx *Context, tr *translation.Translation, e expr.Expr) (value.Value, error) {
	av, err := EvalExpr(ctx, tr, e)
	if err != nil {
		return nil, err
	}
	v, ok := value.AsVal(av)
	if !ok {
		return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "expected a value, got a GPI")
	}
	return v, nil
}

func evalList(ctx *Context, tr *translation.Translation, x expr.List) (value.ArgVal, error) {
	if len(x.Es) == 0 {
		return value.Val{Contents: value.ListV{X: nil}}, nil
	}
	vals := make([]value.Value, len(x.Es))
	for i, e := range x.Es {
		v, err := evalToValue(ctx, tr, e)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	switch vals[0].(type) {
	case value.FloatV, value.IntV:
		scalars := make(ad.Vector, len(vals))
		for i, v := range vals {
			s, ok := value.ToFloat(ctx.Tape, v)
			if !ok {
				return nil, evalerr.New(evalerr.UnsupportedListElement, x.Describe(), "list element %d is %s, expected a scalar", i, v.Kind())
			}
			scalars[i] = s
		}
		return value.Val{Contents: value.ListV{X: scalars}}, nil
	case value.VectorV:
		rows := make([]ad.Vector, len(vals))
		for i, v := range vals {
			vv, ok := v.(value.VectorV)
			if !ok {
				return nil, evalerr.New(evalerr.UnsupportedListElement, x.Describe(), "list element %d is %s, expected VectorV", i, v.Kind())
			}
			rows[i] = vv.X
		}
		return value.Val{Contents: value.LListV{X: rows}}, nil
	default:
		return nil, evalerr.New(evalerr.UnsupportedListElement, x.Describe(), "unsupported list element kind %s", vals[0].Kind())
	}
}

func evalVector(ctx *Context, tr *translation.Translation, x expr.Vector) (value.ArgVal, error) {
	if len(x.Es) == 0 {
		return value.Val{Contents: value.VectorV{X: nil}}, nil
	}
	first, err := evalToValue(ctx, tr, x.Es[0])
	if err != nil {
		return nil, err
	}
	if _, isVec := first.(value.VectorV); isVec {
		rows := make([]ad.Vector, len(x.Es))
		rows[0] = first.(value.VectorV).X
		for i := 1; i < len(x.Es); i++ {
			v, err := evalToValue(ctx, tr, x.Es[i])
			if err != nil {
				return nil, err
			}
			vv, ok := v.(value.VectorV)
			if !ok {
				return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "matrix row %d is %s, expected VectorV", i, v.Kind())
			}
			rows[i] = vv.X
		}
		return value.Val{Contents: value.MatrixV{Rows: rows}}, nil
	}

	scalars := make(ad.Vector, len(x.Es))
	s0, ok := value.ToFloat(ctx.Tape, first)
	if !ok {
		return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "vector element 0 is %s, expected a scalar", first.Kind())
	}
	scalars[0] = s0
	for i := 1; i < len(x.Es); i++ {
		v, err := evalToValue(ctx, tr, x.Es[i])
		if err != nil {
			return nil, err
		}
		s, ok := value.ToFloat(ctx.Tape, v)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "vector element %d is %s, expected a scalar", i, v.Kind())
		}
		scalars[i] = s
	}
	return value.Val{Contents: value.VectorV{X: scalars}}, nil
}

func evalVectorAccess(ctx *Context, tr *translation.Translation, x expr.VectorAccess) (value.ArgVal, error) {
	resolved, err := evalToValue(ctx, tr, x.Path)
	if err != nil {
		return nil, err
	}
	idxVal, err := evalToValue(ctx, tr, x.Idx)
	if err != nil {
		return nil, err
	}
	idx, ok := idxVal.(value.IntV)
	if !ok {
		return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "index must be IntV, got %s", idxVal.Kind())
	}

	switch v := resolved.(type) {
	case value.LListV:
		if idx.X < 0 || idx.X >= len(v.X) {
			return nil, evalerr.New(evalerr.IndexOutOfBounds, x.Describe(), "index %d out of bounds for length %d", idx.X, len(v.X))
		}
		return value.Val{Contents: value.VectorV{X: v.X[idx.X]}}, nil
	case value.VectorV:
		if idx.X < 0 || idx.X >= len(v.X) {
			return nil, evalerr.New(evalerr.IndexOutOfBounds, x.Describe(), "index %d out of bounds for length %d", idx.X, len(v.X))
		}
		return value.Val{Contents: value.FloatV{X: v.X[idx.X]}}, nil
	default:
		return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "VectorAccess target must be LListV or VectorV, got %s", resolved.Kind())
	}
}

func evalMatrixAccess(ctx *Context, tr *translation.Translation, x expr.MatrixAccess) (value.ArgVal, error) {
	resolved, err := evalToValue(ctx, tr, x.Path)
	if err != nil {
		return nil, err
	}
	mv, ok := resolved.(value.MatrixV)
	if !ok {
		return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "MatrixAccess target must be MatrixV, got %s", resolved.Kind())
	}
	iv, err := evalToValue(ctx, tr, x.I)
	if err != nil {
		return nil, err
	}
	jv, err := evalToValue(ctx, tr, x.J)
	if err != nil {
		return nil, err
	}
	i, ok := iv.(value.IntV)
	if !ok {
		return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "row index must be IntV, got %s", iv.Kind())
	}
	j, ok := jv.(value.IntV)
	if !ok {
		return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "column index must be IntV, got %s", jv.Kind())
	}
	if i.X < 0 || i.X >= len(mv.Rows) {
		return nil, evalerr.New(evalerr.IndexOutOfBounds, x.Describe(), "row %d out of bounds for %d rows", i.X, len(mv.Rows))
	}
	row := mv.Rows[i.X]
	if j.X < 0 || j.X >= len(row) {
		return nil, evalerr.New(evalerr.IndexOutOfBounds, x.Describe(), "column %d out of bounds for %d columns", j.X, len(row))
	}
	return value.Val{Contents: value.FloatV{X: row[j.X]}}, nil
}

// accessorPath rewrites an EPath, VectorAccess, or MatrixAccess into
// the canonical AccessPath shape a derivative lookup keys on (§4.4).
// The index expressions must themselves evaluate to IntLit-shaped
// constants; this mirrors the fact that a gradient component is always
// addressed by a literal index in practice.
func accessorPath(ctx *Context, tr *translation.Translation, e expr.Expr) (path.Path, error) {
	switch x := e.(type) {
	case expr.EPath:
		return x.P, nil
	case expr.VectorAccess:
		inner, ok := x.Path.(expr.EPath)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "VectorAccess target of a derivative lookup must be an EPath")
		}
		idxVal, err := evalToValue(ctx, tr, x.Idx)
		if err != nil {
			return nil, err
		}
		idx, ok := idxVal.(value.IntV)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "index must be IntV, got %s", idxVal.Kind())
		}
		return path.AccessPath{Inner: inner.P, Indices: []int{idx.X}}, nil
	case expr.MatrixAccess:
		inner, ok := x.Path.(expr.EPath)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "MatrixAccess target of a derivative lookup must be an EPath")
		}
		iv, err := evalToValue(ctx, tr, x.I)
		if err != nil {
			return nil, err
		}
		jv, err := evalToValue(ctx, tr, x.J)
		if err != nil {
			return nil, err
		}
		i, ok := iv.(value.IntV)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "row index must be IntV, got %s", iv.Kind())
		}
		j, ok := jv.(value.IntV)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "column index must be IntV, got %s", jv.Kind())
		}
		return path.AccessPath{Inner: inner.P, Indices: []int{i.X, j.X}}, nil
	default:
		return nil, evalerr.New(evalerr.TypeMismatch, e.Describe(), "derivative argument must be an EPath, VectorAccess, or MatrixAccess")
	}
}

func evalCompApp(ctx *Context, tr *translation.Translation, x expr.CompApp) (value.ArgVal, error) {
	if compdict.IsReserved(x.Name) {
		if len(x.Args) != 1 {
			return nil, evalerr.New(evalerr.TypeMismatch, x.Describe(), "%s takes exactly one argument, got %d", x.Name, len(x.Args))
		}
		p, err := accessorPath(ctx, tr, x.Args[0])
		if err != nil {
			return nil, err
		}
		// JSON(path): the canonical string form serialized as a JSON
		// string, the same key format debugInfo's gradient maps are
		// built against by the state adapter (§4.4, §4.7).
		pathKey := jsonString(p.Canonical())
		entry, err := ctx.Dict.LookupDeriv(x.Name)
		if err != nil {
			return nil, err
		}
		result, err := entry(ctx.Tape, ctx.Debug, pathKey)
		if err != nil {
			return nil, err
		}
		return value.Val{Contents: result}, nil
	}

	args := make([]value.ArgVal, len(x.Args))
	for i, ae := range x.Args {
		av, err := EvalExpr(ctx, tr, ae)
		if err != nil {
			return nil, err
		}
		args[i] = av
	}
	entry, err := ctx.Dict.Lookup(x.Name)
	if err != nil {
		return nil, err
	}
	result, err := entry(ctx.Tape, args)
	if err != nil {
		return nil, err
	}
	return value.Val{Contents: result}, nil
}

// ResolvePath implements the Path Resolver (§4.5): it consults the
// varying map before the translation, evaluates and memoizes OptEval
// cells, and projects FGPI shapes property by property.
func ResolvePath(ctx *Context, tr *translation.Translation, p path.Path) (value.ArgVal, error) {
	if g, ok := ctx.Varying[path.Key(p)]; ok {
		return value.Val{Contents: value.FloatV{X: ctx.Tape.ConstOf(g)}}, nil
	}

	if _, isAccess := p.(path.AccessPath); isAccess {
		return nil, evalerr.New(evalerr.Unimplemented, p.Canonical(), "AccessPath is not resolvable through ResolvePath")
	}

	entry, err := tr.FindExpr(p)
	if err != nil {
		return nil, err
	}

	switch e := entry.(type) {
	case translation.FGPI:
		return resolveGPI(ctx, tr, p, e)
	case translation.OptEval:
		av, err := EvalExpr(ctx, tr, e.E)
		if err != nil {
			return nil, err
		}
		v, ok := value.AsVal(av)
		if !ok {
			return nil, evalerr.New(evalerr.UnexpectedGPI, p.Canonical(), "OptEval resolved to a GPI")
		}
		if err := tr.InsertExpr(p, translation.Done{V: v}); err != nil {
			return nil, err
		}
		return value.Val{Contents: v}, nil
	case translation.Done:
		return value.Val{Contents: e.V}, nil
	case translation.Pending:
		return value.Val{Contents: e.V}, nil
	default:
		return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(), "unrecognized TagExpr kind")
	}
}

func resolveGPI(ctx *Context, tr *translation.Translation, p path.Path, fgpi translation.FGPI) (value.ArgVal, error) {
	name, field, ok := fieldOf(p)
	if !ok {
		return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(), "path has no (name, field) for a shape lookup")
	}

	// Map iteration order is undefined; sort so property evaluation
	// order (and therefore shape output) is reproducible across runs.
	names := make([]string, 0, len(fgpi.Props))
	for prop := range fgpi.Props {
		names = append(names, prop)
	}
	sort.Strings(names)

	props := make(map[string]value.Value, len(fgpi.Props))
	for _, prop := range names {
		propPath := path.PropertyPath{Name: name, Field: field, Prop: prop}
		switch te := fgpi.Props[prop].(type) {
		case translation.OptEval:
			// A property's OptEval expression is evaluated directly,
			// not through ResolvePath: the path store has no separate
			// top-level entry for a property, only the enclosing
			// FGPI, so resolving propPath as a path would just hand
			// back this same shape (§4.5).
			if g, ok := ctx.Varying[propPath.Canonical()]; ok {
				v := value.FloatV{X: ctx.Tape.ConstOf(g)}
				if err := tr.InsertExpr(propPath, translation.Done{V: v}); err != nil {
					return nil, err
				}
				props[prop] = v
				break
			}
			av, err := EvalExpr(ctx, tr, te.E)
			if err != nil {
				return nil, err
			}
			v, ok := value.AsVal(av)
			if !ok {
				return nil, evalerr.New(evalerr.UnexpectedGPI, propPath.Canonical(), "shape property resolved to a GPI")
			}
			if err := tr.InsertExpr(propPath, translation.Done{V: v}); err != nil {
				return nil, err
			}
			props[prop] = v
		case translation.Done:
			if g, ok := ctx.Varying[propPath.Canonical()]; ok {
				props[prop] = value.FloatV{X: ctx.Tape.ConstOf(g)}
			} else {
				props[prop] = te.V
			}
		case translation.Pending:
			if g, ok := ctx.Varying[propPath.Canonical()]; ok {
				props[prop] = value.FloatV{X: ctx.Tape.ConstOf(g)}
			} else {
				props[prop] = te.V
			}
		default:
			return nil, evalerr.New(evalerr.UnresolvedPath, propPath.Canonical(), "unrecognized property TagExpr kind")
		}
	}

	return value.GPIVal{Contents: value.GPI{ShapeType: fgpi.ShapeType, Props: props}}, nil
}

// jsonString renders s as a JSON string literal. Marshaling a string
// never fails, so the error return is discarded.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func fieldOf(p path.Path) (name, field string, ok bool) {
	switch pp := p.(type) {
	case path.FieldPath:
		return pp.Name, pp.Field, true
	case path.PropertyPath:
		return pp.Name, pp.Field, true
	default:
		return "", "", false
	}
}
