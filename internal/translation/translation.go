// Package translation implements the Translation data structure (§3.3),
// its TagExpr cells (§3.2), and the Path Store read/write operations
// over it (§4.3).
package translation

import (
	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/value"
)

// TagExpr is the cell value held at every field/property entry (§3.2).
type TagExpr interface {
	isTagExpr()
}

// OptEval is an unevaluated style expression.
type OptEval struct{ E expr.Expr }

func (OptEval) isTagExpr() {}

// Done is a cached evaluated value.
type Done struct{ V value.Value }

func (Done) isTagExpr() {}

// Pending is a value awaiting an asynchronous side-channel (e.g. text
// metrics). The evaluator treats it exactly like Done (§3.2).
type Pending struct{ V value.Value }

func (Pending) isTagExpr() {}

// ValueOf extracts the cached value from a Done or Pending cell.
func ValueOf(te TagExpr) (value.Value, bool) {
	switch t := te.(type) {
	case Done:
		return t.V, true
	case Pending:
		return t.V, true
	default:
		return nil, false
	}
}

// FieldEntry is either an ordinary field (FExpr) or a shape (FGPI)
// (§3.3).
type FieldEntry interface {
	isFieldEntry()
}

// FExpr is a non-shape field entry.
type FExpr struct{ Expr TagExpr }

func (FExpr) isFieldEntry() {}

// FGPI is a shape field entry: its shape type plus a property name to
// TagExpr map.
type FGPI struct {
	ShapeType string
	Props     map[string]TagExpr
}

func (FGPI) isFieldEntry() {}

// Translation is the nested substance-name → field-name → entry mapping
// produced by the upstream style compiler (§3.3). It is expected to be
// acyclic; no cycle detection is performed (§1, §9).
type Translation struct {
	Fields map[string]map[string]FieldEntry
}

// New returns an empty translation.
func New() *Translation {
	return &Translation{Fields: map[string]map[string]FieldEntry{}}
}

// Clone deep-clones the outer map structure so that caching mutations
// made during one pass never reach the caller's translation (§3.5).
// Expression ASTs and already-lifted values are shared, not copied: an
// OptEval's Expr is read-only once produced by the style compiler, and
// a Done/Pending's autodiff Scalar handles are cheap indices into the
// pass's tape. An AccessPath write copies the addressed vector before
// changing it, so it never reaches a shared AST or value.
func (t *Translation) Clone() *Translation {
	out := New()
	for name, fields := range t.Fields {
		clonedFields := make(map[string]FieldEntry, len(fields))
		for fname, entry := range fields {
			clonedFields[fname] = cloneEntry(entry)
		}
		out.Fields[name] = clonedFields
	}
	return out
}

func cloneEntry(e FieldEntry) FieldEntry {
	switch v := e.(type) {
	case FGPI:
		props := make(map[string]TagExpr, len(v.Props))
		for k, p := range v.Props {
			props[k] = p
		}
		return FGPI{ShapeType: v.ShapeType, Props: props}
	default:
		return e
	}
}

func (t *Translation) field(name, fname string) (FieldEntry, bool) {
	fields, ok := t.Fields[name]
	if !ok {
		return nil, false
	}
	e, ok := fields[fname]
	return e, ok
}

func (t *Translation) setField(name, fname string, e FieldEntry) {
	fields, ok := t.Fields[name]
	if !ok {
		fields = map[string]FieldEntry{}
		t.Fields[name] = fields
	}
	fields[fname] = e
}

// nameField extracts the (substance, field) pair common to FieldPath
// and PropertyPath; AccessPath has no such pair.
func nameField(p path.Path) (name, fname string, ok bool) {
	switch pp := p.(type) {
	case path.FieldPath:
		return pp.Name, pp.Field, true
	case path.PropertyPath:
		return pp.Name, pp.Field, true
	default:
		return "", "", false
	}
}

// FindExpr reads the entry at p (§4.3). For a FieldPath naming an
// ordinary field it returns the field's TagExpr; for any path whose
// (name, field) lands on a shape it returns the shape's raw FGPI entry,
// letting the caller reach whichever property it needs (the "property
// case" of §4.3). AccessPath is not supported here (§4.3): callers
// compose EvalExpr on a VectorAccess/MatrixAccess expression instead.
func (t *Translation) FindExpr(p path.Path) (interface{}, error) {
	if _, ok := p.(path.AccessPath); ok {
		return nil, evalerr.New(evalerr.Unimplemented, p.Canonical(),
			"AccessPath is not readable through FindExpr")
	}
	name, fname, ok := nameField(p)
	if !ok {
		return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(),
			"path has no (name, field) to resolve")
	}
	entry, ok := t.field(name, fname)
	if !ok {
		return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(),
			"no such name/field in translation")
	}
	switch e := entry.(type) {
	case FExpr:
		return e.Expr, nil
	case FGPI:
		return e, nil
	default:
		return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(),
			"unrecognized field entry")
	}
}

// InsertExpr writes te at p, overwriting whatever was there (§4.3).
func (t *Translation) InsertExpr(p path.Path, te TagExpr) error {
	switch pp := p.(type) {
	case path.FieldPath:
		t.setField(pp.Name, pp.Field, FExpr{Expr: te})
		return nil

	case path.PropertyPath:
		entry, ok := t.field(pp.Name, pp.Field)
		if !ok {
			return evalerr.New(evalerr.UnresolvedPath, p.Canonical(),
				"no such name/field in translation")
		}
		fgpi, ok := entry.(FGPI)
		if !ok {
			return evalerr.New(evalerr.TypeMismatch, p.Canonical(),
				"property path targets a non-shape field")
		}
		fgpi.Props[pp.Prop] = te
		return nil

	case path.AccessPath:
		return t.insertAccess(pp, te)

	default:
		return evalerr.New(evalerr.UnresolvedPath, p.Canonical(), "unrecognized path variant")
	}
}

func (t *Translation) insertAccess(p path.AccessPath, te TagExpr) error {
	if _, nested := p.Inner.(path.AccessPath); nested {
		return evalerr.New(evalerr.Unimplemented, p.Canonical(), "nested AccessPath write")
	}
	if len(p.Indices) != 1 {
		return evalerr.New(evalerr.Unimplemented, p.Canonical(), "two-index AccessPath write")
	}
	i := p.Indices[0]

	inner, err := t.resolveInnerTagExpr(p.Inner)
	if err != nil {
		return err
	}

	done, ok := te.(Done)
	if !ok {
		return evalerr.New(evalerr.TypeMismatch, p.Canonical(),
			"AccessPath write requires a Done scalar value")
	}
	fv, ok := done.V.(value.FloatV)
	if !ok {
		return evalerr.New(evalerr.TypeMismatch, p.Canonical(),
			"AccessPath write requires a FloatV")
	}

	switch in := inner.(type) {
	case OptEval:
		vecExpr, ok := in.E.(expr.Vector)
		if !ok {
			return evalerr.New(evalerr.TypeMismatch, p.Canonical(),
				"AccessPath inner expression is not a Vector literal")
		}
		if i < 0 || i >= len(vecExpr.Es) {
			return evalerr.New(evalerr.IndexOutOfBounds, p.Canonical(),
				"index %d out of bounds for vector of length %d", i, len(vecExpr.Es))
		}
		es := append([]expr.Expr(nil), vecExpr.Es...)
		es[i] = expr.AFloat{Fix: ad.NumOf(fv.X)}
		return t.InsertExpr(p.Inner, OptEval{E: expr.Vector{Es: es}})
	case Done:
		vv, ok := in.V.(value.VectorV)
		if !ok {
			return evalerr.New(evalerr.TypeMismatch, p.Canonical(),
				"AccessPath inner value is not a VectorV")
		}
		if i < 0 || i >= len(vv.X) {
			return evalerr.New(evalerr.IndexOutOfBounds, p.Canonical(),
				"index %d out of bounds for vector of length %d", i, len(vv.X))
		}
		xs := append(ad.Vector(nil), vv.X...)
		xs[i] = fv.X
		return t.InsertExpr(p.Inner, Done{V: value.VectorV{X: xs}})
	case Pending:
		vv, ok := in.V.(value.VectorV)
		if !ok {
			return evalerr.New(evalerr.TypeMismatch, p.Canonical(),
				"AccessPath inner value is not a VectorV")
		}
		if i < 0 || i >= len(vv.X) {
			return evalerr.New(evalerr.IndexOutOfBounds, p.Canonical(),
				"index %d out of bounds for vector of length %d", i, len(vv.X))
		}
		xs := append(ad.Vector(nil), vv.X...)
		xs[i] = fv.X
		return t.InsertExpr(p.Inner, Pending{V: value.VectorV{X: xs}})
	default:
		return evalerr.New(evalerr.TypeMismatch, p.Canonical(), "unrecognized inner TagExpr")
	}
}

// resolveInnerTagExpr locates the TagExpr addressed by a FieldPath or
// PropertyPath, for AccessPath's Inner (§4.3).
func (t *Translation) resolveInnerTagExpr(p path.Path) (TagExpr, error) {
	switch pp := p.(type) {
	case path.FieldPath:
		entry, ok := t.field(pp.Name, pp.Field)
		if !ok {
			return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(), "no such name/field")
		}
		fe, ok := entry.(FExpr)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, p.Canonical(), "field path targets a shape")
		}
		return fe.Expr, nil
	case path.PropertyPath:
		entry, ok := t.field(pp.Name, pp.Field)
		if !ok {
			return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(), "no such name/field")
		}
		fgpi, ok := entry.(FGPI)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, p.Canonical(), "property path targets a non-shape field")
		}
		te, ok := fgpi.Props[pp.Prop]
		if !ok {
			return nil, evalerr.New(evalerr.UnresolvedPath, p.Canonical(), "no such property")
		}
		return te, nil
	default:
		return nil, evalerr.New(evalerr.Unimplemented, p.Canonical(), "nested AccessPath write")
	}
}
