// Package wire implements the decode/encode boundary (§4.7, §6 "State
// on disk / wire") with encoding/json directly: no third-party codec in
// the example pack targets a closed sum-type AST like expr.Expr, so each
// variant family is encoded as one flat struct with a "kind"
// discriminator field and optional per-variant fields, making this the
// one boundary in the module that earns a standard-library-only
// treatment (see DESIGN.md).
//
// The wire document's field keys are rng, varyingState, transr,
// paramsr, shapesr, plus varyingPaths carrying the varying paths
// aligned with varyingState. Decode builds a State plus an immutable
// OriginalTranslation snapshot; Encode strips the derived VaryingMap and
// PendingMap fields (§4.7: "derived, not wire fields") and re-serializes
// the rest.
package wire

import (
	"encoding/json"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/shape"
	"github.com/xiarush120220/penrose/internal/state"
	"github.com/xiarush120220/penrose/internal/translation"
	"github.com/xiarush120220/penrose/internal/value"
)

// document is the envelope exchanged with the optimizer.
type document struct {
	RNG          string             `json:"rng"`
	VaryingState []float64          `json:"varyingState"`
	VaryingPaths []string           `json:"varyingPaths"`
	Translation  translationDoc     `json:"transr"`
	Params       paramsDoc          `json:"paramsr"`
	Shapes       []shape.Shape      `json:"shapesr"`
}

type paramsDoc struct {
	Weight      float64            `json:"weight"`
	Grad        map[string]float64 `json:"grad"`
	PrecondGrad map[string]float64 `json:"precondGrad"`
}

// translationDoc is the wire shape of a Translation: substance name ->
// field name -> field entry.
type translationDoc map[string]map[string]fieldEntryDoc

// fieldEntryDoc tags an FExpr or an FGPI.
type fieldEntryDoc struct {
	Kind      string             `json:"kind"` // "expr" or "gpi"
	Expr      *tagExprDoc        `json:"expr,omitempty"`
	ShapeType string             `json:"shapeType,omitempty"`
	Props     map[string]tagExprDoc `json:"props,omitempty"`
}

// tagExprDoc tags an OptEval, Done, or Pending cell.
type tagExprDoc struct {
	Kind  string    `json:"kind"` // "optEval", "done", "pending"
	Expr  *exprDoc  `json:"expr,omitempty"`
	Value *valueDoc `json:"value,omitempty"`
}

// exprDoc is a tagged union over every expr.Expr variant.
type exprDoc struct {
	Kind string `json:"kind"`

	IntX    *int     `json:"intX,omitempty"`
	StrX    *string  `json:"strX,omitempty"`
	BoolX   *bool    `json:"boolX,omitempty"`
	Vary    bool     `json:"vary,omitempty"`
	FloatX  float64  `json:"floatX,omitempty"`
	Op      string   `json:"op,omitempty"`
	E       *exprDoc `json:"e,omitempty"`
	E1      *exprDoc `json:"e1,omitempty"`
	E2      *exprDoc `json:"e2,omitempty"`
	Es      []exprDoc `json:"es,omitempty"`
	Rows    [][]exprDoc `json:"rows,omitempty"`
	Path    *exprDoc `json:"path,omitempty"`
	Idx     *exprDoc `json:"idx,omitempty"`
	I       *exprDoc `json:"i,omitempty"`
	J       *exprDoc `json:"j,omitempty"`
	PPath   *pathDoc `json:"ppath,omitempty"`
	Name    string   `json:"name,omitempty"`
	Args    []exprDoc `json:"args,omitempty"`
	List    *exprDoc `json:"list,omitempty"`
}

// pathDoc is a tagged union over the three path.Path variants.
type pathDoc struct {
	Kind    string `json:"kind"` // "field", "property", "access"
	Name    string `json:"name,omitempty"`
	Field   string `json:"field,omitempty"`
	Prop    string `json:"prop,omitempty"`
	Inner   *pathDoc `json:"inner,omitempty"`
	Indices []int  `json:"indices,omitempty"`
}

// valueDoc is a tagged union over every value.Value variant, carrying
// plain numbers instead of ad.Scalar handles: a Scalar is only
// meaningful relative to the tape of the pass that produced it, so the
// wire form stores the projected number and docToValue re-lifts it on
// the decoding side's tape (§4.7).
type valueDoc struct {
	Kind       string      `json:"kind"`
	Float      float64     `json:"float,omitempty"`
	Int        int         `json:"int,omitempty"`
	Bool       bool        `json:"bool,omitempty"`
	Str        string      `json:"str,omitempty"`
	Vector     []float64   `json:"vector,omitempty"`
	Matrix     [][]float64 `json:"matrix,omitempty"`
	A          float64     `json:"a,omitempty"`
	B          float64     `json:"b,omitempty"`
	List       []float64   `json:"list,omitempty"`
	LList      [][]float64 `json:"llist,omitempty"`
	OpaqueKind string      `json:"opaqueKind,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

func pathToDoc(p path.Path) pathDoc {
	switch pp := p.(type) {
	case path.FieldPath:
		return pathDoc{Kind: "field", Name: pp.Name, Field: pp.Field}
	case path.PropertyPath:
		return pathDoc{Kind: "property", Name: pp.Name, Field: pp.Field, Prop: pp.Prop}
	case path.AccessPath:
		inner := pathToDoc(pp.Inner)
		return pathDoc{Kind: "access", Inner: &inner, Indices: pp.Indices}
	default:
		return pathDoc{Kind: "field"}
	}
}

func docToPath(d pathDoc) (path.Path, error) {
	switch d.Kind {
	case "field":
		return path.FieldPath{Name: d.Name, Field: d.Field}, nil
	case "property":
		return path.PropertyPath{Name: d.Name, Field: d.Field, Prop: d.Prop}, nil
	case "access":
		if d.Inner == nil {
			return nil, evalerr.New(evalerr.Unimplemented, "", "access path missing inner path")
		}
		inner, err := docToPath(*d.Inner)
		if err != nil {
			return nil, err
		}
		return path.AccessPath{Inner: inner, Indices: d.Indices}, nil
	default:
		return nil, evalerr.New(evalerr.Unimplemented, "", "unrecognized path kind %q", d.Kind)
	}
}

func exprToDoc(e expr.Expr) exprDoc {
	switch x := e.(type) {
	case expr.IntLit:
		v := x.X
		return exprDoc{Kind: "intLit", IntX: &v}
	case expr.StringLit:
		v := x.X
		return exprDoc{Kind: "stringLit", StrX: &v}
	case expr.BoolLit:
		v := x.X
		return exprDoc{Kind: "boolLit", BoolX: &v}
	case expr.AFloat:
		return exprDoc{Kind: "aFloat", Vary: x.Vary, FloatX: x.Fix}
	case expr.UOp:
		sub := exprToDoc(x.E)
		return exprDoc{Kind: "uOp", Op: x.Op.String(), E: &sub}
	case expr.BinOp:
		e1, e2 := exprToDoc(x.E1), exprToDoc(x.E2)
		return exprDoc{Kind: "binOp", Op: x.Op.String(), E1: &e1, E2: &e2}
	case expr.Tuple:
		e1, e2 := exprToDoc(x.E1), exprToDoc(x.E2)
		return exprDoc{Kind: "tuple", E1: &e1, E2: &e2}
	case expr.List:
		return exprDoc{Kind: "list", Es: exprsToDocs(x.Es)}
	case expr.Vector:
		return exprDoc{Kind: "vector", Es: exprsToDocs(x.Es)}
	case expr.VectorAccess:
		p, idx := exprToDoc(x.Path), exprToDoc(x.Idx)
		return exprDoc{Kind: "vectorAccess", Path: &p, Idx: &idx}
	case expr.MatrixAccess:
		p, i, j := exprToDoc(x.Path), exprToDoc(x.I), exprToDoc(x.J)
		return exprDoc{Kind: "matrixAccess", Path: &p, I: &i, J: &j}
	case expr.EPath:
		pd := pathToDoc(x.P)
		return exprDoc{Kind: "ePath", PPath: &pd}
	case expr.CompApp:
		return exprDoc{Kind: "compApp", Name: x.Name, Args: exprsToDocs(x.Args)}
	case expr.Matrix:
		rows := make([][]exprDoc, len(x.Rows))
		for i, r := range x.Rows {
			rows[i] = exprsToDocs(r)
		}
		return exprDoc{Kind: "matrix", Rows: rows}
	case expr.ListAccess:
		l, idx := exprToDoc(x.List), exprToDoc(x.Idx)
		return exprDoc{Kind: "listAccess", List: &l, Idx: &idx}
	default:
		return exprDoc{Kind: "unknown"}
	}
}

func exprsToDocs(es []expr.Expr) []exprDoc {
	out := make([]exprDoc, len(es))
	for i, e := range es {
		out[i] = exprToDoc(e)
	}
	return out
}

func docToExpr(d exprDoc) (expr.Expr, error) {
	switch d.Kind {
	case "intLit":
		return expr.IntLit{X: intOrZero(d.IntX)}, nil
	case "stringLit":
		return expr.StringLit{X: strOrZero(d.StrX)}, nil
	case "boolLit":
		return expr.BoolLit{X: boolOrZero(d.BoolX)}, nil
	case "aFloat":
		return expr.AFloat{Vary: d.Vary, Fix: d.FloatX}, nil
	case "uOp":
		sub, err := docToExpr(*d.E)
		if err != nil {
			return nil, err
		}
		return expr.UOp{Op: unaryOpOf(d.Op), E: sub}, nil
	case "binOp":
		e1, err := docToExpr(*d.E1)
		if err != nil {
			return nil, err
		}
		e2, err := docToExpr(*d.E2)
		if err != nil {
			return nil, err
		}
		return expr.BinOp{Op: binaryOpOf(d.Op), E1: e1, E2: e2}, nil
	case "tuple":
		e1, err := docToExpr(*d.E1)
		if err != nil {
			return nil, err
		}
		e2, err := docToExpr(*d.E2)
		if err != nil {
			return nil, err
		}
		return expr.Tuple{E1: e1, E2: e2}, nil
	case "list":
		es, err := docsToExprs(d.Es)
		if err != nil {
			return nil, err
		}
		return expr.List{Es: es}, nil
	case "vector":
		es, err := docsToExprs(d.Es)
		if err != nil {
			return nil, err
		}
		return expr.Vector{Es: es}, nil
	case "vectorAccess":
		p, err := docToExpr(*d.Path)
		if err != nil {
			return nil, err
		}
		idx, err := docToExpr(*d.Idx)
		if err != nil {
			return nil, err
		}
		return expr.VectorAccess{Path: p, Idx: idx}, nil
	case "matrixAccess":
		p, err := docToExpr(*d.Path)
		if err != nil {
			return nil, err
		}
		i, err := docToExpr(*d.I)
		if err != nil {
			return nil, err
		}
		j, err := docToExpr(*d.J)
		if err != nil {
			return nil, err
		}
		return expr.MatrixAccess{Path: p, I: i, J: j}, nil
	case "ePath":
		p, err := docToPath(*d.PPath)
		if err != nil {
			return nil, err
		}
		return expr.EPath{P: p}, nil
	case "compApp":
		args, err := docsToExprs(d.Args)
		if err != nil {
			return nil, err
		}
		return expr.CompApp{Name: d.Name, Args: args}, nil
	case "matrix":
		rows := make([][]expr.Expr, len(d.Rows))
		for i, r := range d.Rows {
			es, err := docsToExprs(r)
			if err != nil {
				return nil, err
			}
			rows[i] = es
		}
		return expr.Matrix{Rows: rows}, nil
	case "listAccess":
		l, err := docToExpr(*d.List)
		if err != nil {
			return nil, err
		}
		idx, err := docToExpr(*d.Idx)
		if err != nil {
			return nil, err
		}
		return expr.ListAccess{List: l, Idx: idx}, nil
	default:
		return nil, evalerr.New(evalerr.Unimplemented, "", "unrecognized expr kind %q", d.Kind)
	}
}

func docsToExprs(ds []exprDoc) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(ds))
	for i, d := range ds {
		e, err := docToExpr(d)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func strOrZero(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func boolOrZero(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

func unaryOpOf(s string) expr.UnaryOp {
	if s == "UMinus" {
		return expr.UMinus
	}
	return expr.UPlus
}

func binaryOpOf(s string) expr.BinaryOp {
	switch s {
	case "BMinus":
		return expr.BMinus
	case "Multiply":
		return expr.Multiply
	case "Divide":
		return expr.Divide
	case "Exp":
		return expr.Exp
	default:
		return expr.BPlus
	}
}

func valueToDoc(v value.Value) valueDoc {
	switch x := v.(type) {
	case value.FloatV:
		return valueDoc{Kind: "float", Float: ad.NumOf(x.X)}
	case value.IntV:
		return valueDoc{Kind: "int", Int: x.X}
	case value.BoolV:
		return valueDoc{Kind: "bool", Bool: x.X}
	case value.StrV:
		return valueDoc{Kind: "str", Str: x.X}
	case value.VectorV:
		return valueDoc{Kind: "vector", Vector: projectVec(x.X)}
	case value.MatrixV:
		rows := make([][]float64, len(x.Rows))
		for i, r := range x.Rows {
			rows[i] = projectVec(r)
		}
		return valueDoc{Kind: "matrix", Matrix: rows}
	case value.TupV:
		return valueDoc{Kind: "tup", A: ad.NumOf(x.A), B: ad.NumOf(x.B)}
	case value.ListV:
		return valueDoc{Kind: "list", List: projectVec(x.X)}
	case value.LListV:
		rows := make([][]float64, len(x.X))
		for i, r := range x.X {
			rows[i] = projectVec(r)
		}
		return valueDoc{Kind: "llist", LList: rows}
	case value.OpaqueV:
		return valueDoc{Kind: "opaque", OpaqueKind: x.OpaqueKind, Payload: x.Payload}
	default:
		return valueDoc{Kind: "unknown"}
	}
}

func projectVec(v ad.Vector) []float64 {
	out := make([]float64, len(v))
	for i, s := range v {
		out[i] = ad.NumOf(s)
	}
	return out
}

func liftVec(tape *ad.Tape, xs []float64) ad.Vector {
	out := make(ad.Vector, len(xs))
	for i, x := range xs {
		out[i] = tape.ConstOf(x)
	}
	return out
}

func docToValue(tape *ad.Tape, d valueDoc) (value.Value, error) {
	switch d.Kind {
	case "float":
		return value.FloatV{X: tape.ConstOf(d.Float)}, nil
	case "int":
		return value.IntV{X: d.Int}, nil
	case "bool":
		return value.BoolV{X: d.Bool}, nil
	case "str":
		return value.StrV{X: d.Str}, nil
	case "vector":
		return value.VectorV{X: liftVec(tape, d.Vector)}, nil
	case "matrix":
		rows := make([]ad.Vector, len(d.Matrix))
		for i, r := range d.Matrix {
			rows[i] = liftVec(tape, r)
		}
		return value.MatrixV{Rows: rows}, nil
	case "tup":
		return value.TupV{A: tape.ConstOf(d.A), B: tape.ConstOf(d.B)}, nil
	case "list":
		return value.ListV{X: liftVec(tape, d.List)}, nil
	case "llist":
		rows := make([]ad.Vector, len(d.LList))
		for i, r := range d.LList {
			rows[i] = liftVec(tape, r)
		}
		return value.LListV{X: rows}, nil
	case "opaque":
		return value.OpaqueV{OpaqueKind: d.OpaqueKind, Payload: d.Payload}, nil
	default:
		return nil, evalerr.New(evalerr.Unimplemented, "", "unrecognized value kind %q", d.Kind)
	}
}

func tagExprToDoc(te translation.TagExpr) tagExprDoc {
	switch t := te.(type) {
	case translation.OptEval:
		e := exprToDoc(t.E)
		return tagExprDoc{Kind: "optEval", Expr: &e}
	case translation.Done:
		v := valueToDoc(t.V)
		return tagExprDoc{Kind: "done", Value: &v}
	case translation.Pending:
		v := valueToDoc(t.V)
		return tagExprDoc{Kind: "pending", Value: &v}
	default:
		return tagExprDoc{Kind: "unknown"}
	}
}

func docToTagExpr(tape *ad.Tape, d tagExprDoc) (translation.TagExpr, error) {
	switch d.Kind {
	case "optEval":
		e, err := docToExpr(*d.Expr)
		if err != nil {
			return nil, err
		}
		return translation.OptEval{E: e}, nil
	case "done":
		v, err := docToValue(tape, *d.Value)
		if err != nil {
			return nil, err
		}
		return translation.Done{V: v}, nil
	case "pending":
		v, err := docToValue(tape, *d.Value)
		if err != nil {
			return nil, err
		}
		return translation.Pending{V: v}, nil
	default:
		return nil, evalerr.New(evalerr.Unimplemented, "", "unrecognized tagExpr kind %q", d.Kind)
	}
}

func fieldEntryToDoc(fe translation.FieldEntry) fieldEntryDoc {
	switch f := fe.(type) {
	case translation.FExpr:
		te := tagExprToDoc(f.Expr)
		return fieldEntryDoc{Kind: "expr", Expr: &te}
	case translation.FGPI:
		props := make(map[string]tagExprDoc, len(f.Props))
		for k, v := range f.Props {
			props[k] = tagExprToDoc(v)
		}
		return fieldEntryDoc{Kind: "gpi", ShapeType: f.ShapeType, Props: props}
	default:
		return fieldEntryDoc{Kind: "unknown"}
	}
}

func docToFieldEntry(tape *ad.Tape, d fieldEntryDoc) (translation.FieldEntry, error) {
	switch d.Kind {
	case "expr":
		te, err := docToTagExpr(tape, *d.Expr)
		if err != nil {
			return nil, err
		}
		return translation.FExpr{Expr: te}, nil
	case "gpi":
		props := make(map[string]translation.TagExpr, len(d.Props))
		for k, v := range d.Props {
			te, err := docToTagExpr(tape, v)
			if err != nil {
				return nil, err
			}
			props[k] = te
		}
		return translation.FGPI{ShapeType: d.ShapeType, Props: props}, nil
	default:
		return nil, evalerr.New(evalerr.Unimplemented, "", "unrecognized field entry kind %q", d.Kind)
	}
}

func translationToDoc(tr *translation.Translation) translationDoc {
	out := make(translationDoc, len(tr.Fields))
	for name, fields := range tr.Fields {
		fd := make(map[string]fieldEntryDoc, len(fields))
		for fname, entry := range fields {
			fd[fname] = fieldEntryToDoc(entry)
		}
		out[name] = fd
	}
	return out
}

func docToTranslation(tape *ad.Tape, d translationDoc) (*translation.Translation, error) {
	tr := translation.New()
	for name, fields := range d {
		fd := make(map[string]translation.FieldEntry, len(fields))
		for fname, entry := range fields {
			fe, err := docToFieldEntry(tape, entry)
			if err != nil {
				return nil, err
			}
			fd[fname] = fe
		}
		tr.Fields[name] = fd
	}
	return tr, nil
}

// Decode parses a wire document into a State. tape is the evaluation
// pass's tape: any Done/Pending cell already present in transr is
// lifted onto it immediately, since a Translation stores ad.Scalar
// handles rather than plain numbers (§3.2, §4.7). The freshly decoded
// translation is cloned once more into OriginalTranslation, an
// immutable snapshot the caller never mutates.
func Decode(data []byte, tape *ad.Tape) (*state.State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	tr, err := docToTranslation(tape, doc.Translation)
	if err != nil {
		return nil, err
	}

	varyingPaths := make([]path.Path, len(doc.VaryingPaths))
	for i, s := range doc.VaryingPaths {
		var pd pathDoc
		if err := json.Unmarshal([]byte(s), &pd); err != nil {
			return nil, err
		}
		p, err := docToPath(pd)
		if err != nil {
			return nil, err
		}
		varyingPaths[i] = p
	}

	return &state.State{
		VaryingValues:       doc.VaryingState,
		VaryingPaths:        varyingPaths,
		Translation:         tr,
		OriginalTranslation: tr.Clone(),
		Params: state.Params{
			Weight:      doc.Params.Weight,
			Grad:        doc.Params.Grad,
			PrecondGrad: doc.Params.PrecondGrad,
		},
		Shapes: doc.Shapes,
		Seed:   doc.RNG,
		RNG:    state.NewRNG(doc.RNG),
	}, nil
}

// Encode strips the derived VaryingMap/PendingMap fields and
// re-serializes the rest (§4.7, §6).
func Encode(s *state.State) ([]byte, error) {
	varyingPaths := make([]string, len(s.VaryingPaths))
	for i, p := range s.VaryingPaths {
		b, err := json.Marshal(pathToDoc(p))
		if err != nil {
			return nil, err
		}
		varyingPaths[i] = string(b)
	}

	doc := document{
		RNG:          s.Seed,
		VaryingState: s.VaryingValues,
		VaryingPaths: varyingPaths,
		Translation:  translationToDoc(s.Translation),
		Params: paramsDoc{
			Weight:      s.Params.Weight,
			Grad:        s.Params.Grad,
			PrecondGrad: s.Params.PrecondGrad,
		},
		Shapes: s.Shapes,
	}
	return json.Marshal(doc)
}
