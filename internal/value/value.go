// Package value defines the tagged Value union the VM operates on and the
// single heap-object kind (interned strings) this core supports.
package value

import (
	"math"
	"strconv"
)

// Type discriminates the cases of Value, emulating the C tagged union
// {Nil, Bool(b), Number(f64), Object(obj)} from the spec.
type Type int

const (
	Nil Type = iota
	Bool
	Number
	Obj
)

// Value is a small tagged struct rather than an interface: there are only
// four cases and none of them needs dynamic dispatch, so an interface would
// cost an allocation on every push for no benefit.
type Value struct {
	Type Type
	b    bool
	n    float64
	obj  *ObjString
}

func NewNil() Value              { return Value{Type: Nil} }
func NewBool(b bool) Value       { return Value{Type: Bool, b: b} }
func NewNumber(n float64) Value  { return Value{Type: Number, n: n} }
func NewObj(o *ObjString) Value  { return Value{Type: Obj, obj: o} }

func (v Value) AsBool() bool       { return v.b }
func (v Value) AsNumber() float64  { return v.n }
func (v Value) AsString() *ObjString { return v.obj }

func (v Value) IsNil() bool    { return v.Type == Nil }
func (v Value) IsBool() bool   { return v.Type == Bool }
func (v Value) IsNumber() bool { return v.Type == Number }
func (v Value) IsString() bool { return v.Type == Obj }

// Falsey reports whether a value is considered false in a boolean context:
// nil and the literal false. Every other value, including 0 and "", is
// truthy.
func (v Value) Falsey() bool {
	switch v.Type {
	case Nil:
		return true
	case Bool:
		return !v.b
	default:
		return false
	}
}

// Equal implements the spec's equality table: different types are never
// equal; same-type comparison follows IEEE754 for numbers (so NaN != NaN)
// and pointer identity for strings, which is valid only because strings are
// always interned (see internal/heap).
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case Nil:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.n == b.n
	case Obj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders a Value the way PRINT and the disassembler's constant
// column do: nil/booleans/numbers in their canonical form, strings as their
// raw bytes.
func (v Value) String() string {
	switch v.Type {
	case Nil:
		return "nil"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(v.n)
	case Obj:
		return v.obj.Chars
	default:
		return "<invalid value>"
	}
}

// formatNumber mirrors printf("%g")-ish "shortest unambiguous decimal"
// behavior the spec allows implementations to use.
func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ObjType tags the kinds of heap object. There is exactly one in this core.
type ObjType int

const (
	ObjTypeString ObjType = iota
)

// ObjString is the only heap-object case this core implements: an immutable
// byte string with a precomputed FNV-1a hash, threaded into the VM's object
// list via Next so the whole chain can be released at once on teardown.
//
// Two ObjStrings with equal bytes must be the same object — that invariant
// is enforced by the interner (internal/heap), never by this type itself.
type ObjString struct {
	Chars string
	Hash  uint32
	Next  *ObjString
}

func (s *ObjString) Type() ObjType { return ObjTypeString }
func (s *ObjString) Len() int      { return len(s.Chars) }
