// Package expr defines the expression AST the evaluator walks (§3.2,
// §4.4). Every node type is a small struct implementing the Expr marker
// interface, the same closed-sum-type idiom used throughout this
// module (see internal/value).
package expr

import "github.com/xiarush120220/penrose/internal/path"

// Expr is implemented by every expression node kind evaluated by
// internal/eval.
type Expr interface {
	isExpr()
	// Describe returns a short human-readable description used when an
	// error needs to name the offending expression (§7).
	Describe() string
}

// IntLit, StringLit, BoolLit are the three literal kinds returned
// verbatim by the evaluator (§4.4).
type IntLit struct{ X int }

func (IntLit) isExpr()          {}
func (IntLit) Describe() string { return "IntLit" }

type StringLit struct{ X string }

func (StringLit) isExpr()          {}
func (StringLit) Describe() string { return "StringLit" }

type BoolLit struct{ X bool }

func (BoolLit) isExpr()          {}
func (BoolLit) Describe() string { return "BoolLit" }

// AFloat is either a Vary marker (unexpected at evaluation time — a
// varying must have been inserted first) or a fixed float64 to be
// lifted to a differentiable leaf on first contact (§4.1, §4.4).
type AFloat struct {
	Vary bool
	Fix  float64
}

func (AFloat) isExpr()          {}
func (AFloat) Describe() string { return "AFloat" }

// UnaryOp is the operator of a UOp node (§4.2).
type UnaryOp int

const (
	UPlus UnaryOp = iota
	UMinus
)

func (op UnaryOp) String() string {
	if op == UPlus {
		return "UPlus"
	}
	return "UMinus"
}

// UOp applies a unary operator to e.
type UOp struct {
	Op UnaryOp
	E  Expr
}

func (UOp) isExpr()          {}
func (u UOp) Describe() string { return "UOp(" + u.Op.String() + ")" }

// BinaryOp is the operator of a BinOp node (§4.2).
type BinaryOp int

const (
	BPlus BinaryOp = iota
	BMinus
	Multiply
	Divide
	Exp
)

func (op BinaryOp) String() string {
	switch op {
	case BPlus:
		return "BPlus"
	case BMinus:
		return "BMinus"
	case Multiply:
		return "Multiply"
	case Divide:
		return "Divide"
	case Exp:
		return "Exp"
	default:
		return "BinaryOp(?)"
	}
}

// BinOp applies a binary operator to E1, E2, evaluated left to right
// (§4.4, §5 "Ordering").
type BinOp struct {
	Op     BinaryOp
	E1, E2 Expr
}

func (BinOp) isExpr()          {}
func (b BinOp) Describe() string { return "BinOp(" + b.Op.String() + ")" }

// Tuple evaluates its two elements, coerces each to FloatV, and packs
// them into a TupV (§4.4).
type Tuple struct{ E1, E2 Expr }

func (Tuple) isExpr()          {}
func (Tuple) Describe() string { return "Tuple" }

// List evaluates a homogeneous list of scalars or vectors (§4.4).
type List struct{ Es []Expr }

func (List) isExpr()          {}
func (List) Describe() string { return "List" }

// Vector evaluates to a VectorV, or to a MatrixV if its elements are
// themselves vectors (§4.4).
type Vector struct{ Es []Expr }

func (Vector) isExpr()          {}
func (Vector) Describe() string { return "Vector" }

// VectorAccess indexes a single element out of a vector or
// list-of-vectors resolved from Path (§4.4).
type VectorAccess struct {
	Path Expr
	Idx  Expr
}

func (VectorAccess) isExpr()          {}
func (VectorAccess) Describe() string { return "VectorAccess" }

// MatrixAccess indexes a single element out of a matrix resolved from
// Path, requiring exactly two indices (§4.4).
type MatrixAccess struct {
	Path Expr
	I, J Expr
}

func (MatrixAccess) isExpr()          {}
func (MatrixAccess) Describe() string { return "MatrixAccess" }

// EPath delegates to the path resolver (§4.4, §4.5).
type EPath struct{ P path.Path }

func (EPath) isExpr()          {}
func (e EPath) Describe() string { return "EPath(" + e.P.Canonical() + ")" }

// CompApp calls a named entry of the computation dictionary, or one of
// the two reserved derivative entries (§4.4, §4.8).
type CompApp struct {
	Name string
	Args []Expr
}

func (CompApp) isExpr()          {}
func (c CompApp) Describe() string { return "CompApp(" + c.Name + ")" }

// Matrix is a general matrix literal. Producers are expected never to
// emit it; matrices arrive as vectors-of-vectors instead (Non-goals,
// §1). Evaluating it always fails with Unimplemented (§4.4).
type Matrix struct{ Rows [][]Expr }

func (Matrix) isExpr()          {}
func (Matrix) Describe() string { return "Matrix" }

// ListAccess is not supported (Non-goals, §1); evaluating it always
// fails with Unimplemented (§4.4).
type ListAccess struct {
	List Expr
	Idx  Expr
}

func (ListAccess) isExpr()          {}
func (ListAccess) Describe() string { return "ListAccess" }
