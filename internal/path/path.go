// Package path implements the three path variants addressing entries in
// a translation (§3.4) and their canonical string form, which is both
// the equality test for the varying map and the serialization used at
// the computation-dictionary boundary for derivative lookups (§4.4).
package path

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is implemented by FieldPath, PropertyPath, and AccessPath.
type Path interface {
	isPath()
	// Canonical returns the tag-plus-operands string form path
	// equality and varying-map keys are defined over (§3.4).
	Canonical() string
}

// FieldPath addresses a field entry: substance name → field name.
type FieldPath struct {
	Name  string
	Field string
}

func (FieldPath) isPath() {}

func (p FieldPath) Canonical() string {
	return fmt.Sprintf("Field(%s,%s)", p.Name, p.Field)
}

// PropertyPath addresses a shape property: substance name → field name
// (the shape) → property name.
type PropertyPath struct {
	Name  string
	Field string
	Prop  string
}

func (PropertyPath) isPath() {}

func (p PropertyPath) Canonical() string {
	return fmt.Sprintf("Property(%s,%s,%s)", p.Name, p.Field, p.Prop)
}

// AccessPath addresses an indexed element inside a vector (one index)
// or matrix (two indices) stored at Inner (§3.4). Nested AccessPath is
// rejected by producers; this package does not itself enforce that —
// the path store does, at write time (§4.3).
type AccessPath struct {
	Inner   Path
	Indices []int
}

func (AccessPath) isPath() {}

func (p AccessPath) Canonical() string {
	idx := make([]string, len(p.Indices))
	for i, v := range p.Indices {
		idx[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("Access(%s,[%s])", p.Inner.Canonical(), strings.Join(idx, ","))
}

// Equal reports whether a and b name the same path, by canonical string
// form (§3.4: "Path equality for the varying-map is by canonical string
// form ... guaranteeing a pure function from path to key.").
func Equal(a, b Path) bool {
	return a.Canonical() == b.Canonical()
}

// Key returns the map key used by the varying map and the path→value
// map built by the state adapter (§4.7).
func Key(p Path) string {
	return p.Canonical()
}
