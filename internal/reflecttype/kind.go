// Package reflecttype classifies and walks the host Go type system
// (reflect.Type) that this module binds the query language to: numeric
// kind classification, nullable (pointer-to-value-type) unwrap, and
// the recognized-type whitelist. Member lookup's base/interface walk
// is not here; internal/nparse relies on reflect's own FieldByName and
// method sets for it. Grounded on internal/interp/marshal.go's
// switch-on-reflect.Kind pattern, promoted from FFI-boundary value
// conversion to the compiler's own type classification.
package reflecttype

import (
	"reflect"

	"github.com/google/uuid"
)

// NumericKind classifies a reflect.Kind into the numeric-widening
// lattice. NonNumeric covers everything else.
type NumericKind int

const (
	NonNumeric NumericKind = iota
	Int8Kind
	Int16Kind
	Int32Kind
	Int64Kind
	Uint8Kind
	Uint16Kind
	Uint32Kind
	Uint64Kind
	Float32Kind
	Float64Kind
	DecimalKind // github.com/shopspring/decimal-shaped: not wired by default, reserved for a registered decimal type
)

var kindTable = map[reflect.Kind]NumericKind{
	reflect.Int8:    Int8Kind,
	reflect.Int16:   Int16Kind,
	reflect.Int32:   Int32Kind,
	reflect.Int64:   Int64Kind,
	reflect.Int:     Int64Kind,
	reflect.Uint8:   Uint8Kind,
	reflect.Uint16:  Uint16Kind,
	reflect.Uint32:  Uint32Kind,
	reflect.Uint64:  Uint64Kind,
	reflect.Uint:    Uint64Kind,
	reflect.Float32: Float32Kind,
	reflect.Float64: Float64Kind,
}

// ClassifyNumeric returns the numeric kind of t, unwrapping a single
// pointer level first (nullable value types are represented as *T per
// Unwrap below).
func ClassifyNumeric(t reflect.Type) NumericKind {
	t = Unwrap(t)
	if t == nil {
		return NonNumeric
	}
	if k, ok := kindTable[t.Kind()]; ok {
		return k
	}
	return NonNumeric
}

// IsNumeric reports whether t (after nullable unwrap) is any numeric
// kind, signed or unsigned, integer or real.
func IsNumeric(t reflect.Type) bool { return ClassifyNumeric(t) != NonNumeric }

// IsSigned reports whether t is a signed integer numeric kind.
func IsSigned(k NumericKind) bool {
	switch k {
	case Int8Kind, Int16Kind, Int32Kind, Int64Kind:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer numeric kind.
func IsUnsigned(k NumericKind) bool {
	switch k {
	case Uint8Kind, Uint16Kind, Uint32Kind, Uint64Kind:
		return true
	}
	return false
}

// IsFloat reports whether k is a floating-point kind.
func IsFloat(k NumericKind) bool { return k == Float32Kind || k == Float64Kind }

// IsInteger reports whether k is any integer (signed or unsigned) kind.
func IsInteger(k NumericKind) bool { return IsSigned(k) || IsUnsigned(k) }

// rank orders numeric kinds by width within signed/unsigned/float
// families, used by internal/overload for "signed beats unsigned of
// equal rank".
var rank = map[NumericKind]int{
	Int8Kind: 1, Uint8Kind: 1,
	Int16Kind: 2, Uint16Kind: 2,
	Int32Kind: 3, Uint32Kind: 3,
	Int64Kind: 4, Uint64Kind: 4,
	Float32Kind: 5, Float64Kind: 6,
}

// Rank returns the relative width of k, for equal-rank signed/unsigned
// comparisons. Kinds with no defined rank (NonNumeric, DecimalKind)
// return 0.
func Rank(k NumericKind) int { return rank[k] }

// Unwrap strips a single pointer indirection, the representation this
// module uses for a nullable value type (a `Type?` primary). Returns t
// unchanged if it is not a pointer.
func Unwrap(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// IsNullable reports whether t is a pointer (our nullable
// representation) wrapping a non-pointer value type.
func IsNullable(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() != reflect.Ptr
}

// MakeNullable returns *t, the nullable form of a value type (the
// `Type?` primary). Fails (ok=false) for a reference type
// (interface, pointer, map, slice, chan, func: anything already
// nil-able) or for a type that is already nullable.
func MakeNullable(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return nil, false
	}
	return reflect.PtrTo(t), true
}

// guidType is the recognized type bound to the built-in "Guid" name.
var guidType = reflect.TypeOf(uuid.UUID{})

// GuidType returns the reflect.Type recognized as Guid.
func GuidType() reflect.Type { return guidType }

// IsGuid reports whether t (after nullable unwrap) is the Guid type.
func IsGuid(t reflect.Type) bool { return Unwrap(t) == guidType }

// Registry is the whitelist of non-predefined types addressable by
// simple name: a custom recognized type with a matching name.
// Immutable after construction, freely shared across concurrent
// parses.
type Registry struct {
	byName map[string]reflect.Type
}

// NewRegistry builds a Registry from name->type pairs. Guid is always
// registered, in addition to whatever the caller supplies.
func NewRegistry(extra map[string]reflect.Type) *Registry {
	r := &Registry{byName: map[string]reflect.Type{"Guid": guidType}}
	for name, t := range extra {
		r.byName[name] = t
	}
	return r
}

// Lookup resolves name case-sensitively against the registry, whose
// keys are stored exactly as registered. internal/nparse passes the
// identifier as written, so recognized type names are matched
// case-sensitively; they do not follow the case-insensitive folding
// applied to keywords and local names.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}
