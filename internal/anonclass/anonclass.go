// Package anonclass implements an anonymous-class factory: a
// process-wide cache mapping an ordered (name, type) signature to a
// synthesized Go struct type, used by new(e1 as p1, e2, ...)
// expressions. Go has no runtime facility to emit a named class the
// way the host runtime does, so the factory instead synthesizes an
// unnamed struct type via reflect.StructOf keyed by the signature, the
// idiomatic Go answer to dynamic anonymous-type emission (see
// DESIGN.md). The double-checked-
// locking cache shape is grounded on the teacher's process-wide type
// caches under internal/interp (reflect.Type lookups guarded by
// sync.RWMutex with a probe-miss-reprobe pattern).
package anonclass

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Field is one (name, type) entry of a signature, in declaration
// order: order is significant both for the emitted struct's field
// order and for signature equality ("ordered sequence").
type Field struct {
	Name string
	Type reflect.Type
}

// signatureKey is a comparable string form of a Field slice, used as
// the cache map key. Two signatures are equal iff this string matches,
// which holds iff they are element-wise equal in order, satisfying the
// ordered-sequence equality rule without needing a custom map key type.
func signatureKey(fields []Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type.String())
	}
	return b.String()
}

// Factory is the process-wide (or, for test isolation, per-instance)
// cache of emitted anonymous class types.
type Factory struct {
	mu    sync.RWMutex
	cache map[string]*Class
}

// NewFactory creates an empty factory. Construct one per process (or
// share a single package-level instance) the way the host's class
// cache is process-wide; tests may create their own to avoid
// cross-test interference.
func NewFactory() *Factory {
	return &Factory{cache: map[string]*Class{}}
}

// Class describes one emitted anonymous class: its reflect.Type (a
// struct with one exported field per signature entry, in order) and
// the DynamicClass view over it.
type Class struct {
	Fields []Field
	Type   reflect.Type
}

// exportedName renders a binding name as an exported Go struct field
// name (capitalized first rune), since reflect.StructOf requires
// exported fields to be addressable by Go's own field-access rules;
// the original binding name is preserved in Fields for String/member
// lookup by internal/nparse.
func exportedName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Get returns the Class for fields, emitting and caching it on first
// request (read-lock-probe, write-lock-reprobe-emit-insert sequence).
func (f *Factory) Get(fields []Field) *Class {
	key := signatureKey(fields)

	f.mu.RLock()
	if c, ok := f.cache[key]; ok {
		f.mu.RUnlock()
		return c
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cache[key]; ok {
		return c
	}

	structFields := make([]reflect.StructField, len(fields))
	for i, field := range fields {
		structFields[i] = reflect.StructField{
			Name: exportedName(field.Name),
			Type: field.Type,
		}
	}

	c := &Class{
		Fields: append([]Field(nil), fields...),
		Type:   reflect.StructOf(structFields),
	}
	f.cache[key] = c
	return c
}

// New constructs a reflect.Value of c.Type populated with values, in
// signature order. len(values) must equal len(c.Fields); a caller
// mismatch is a programming error in the compiler, not a user error,
// so New panics rather than returning an error (mirrors the teacher's
// own field-count invariant, enforced earlier by the parser).
func (c *Class) New(values []any) reflect.Value {
	if len(values) != len(c.Fields) {
		panic(fmt.Sprintf("anonclass: %d values for %d fields", len(values), len(c.Fields)))
	}
	v := reflect.New(c.Type).Elem()
	for i, val := range values {
		if val == nil {
			continue
		}
		v.Field(i).Set(reflect.ValueOf(val).Convert(c.Type.Field(i).Type))
	}
	return v
}

// DynamicClass is the base every emitted class is treated as
// inheriting: ToString/Equals/GetHashCode over the public properties,
// expressed in Go as free functions over a Class + value pair since
// Go structs cannot dynamically inherit a common base.
type DynamicClass struct {
	Class *Class
	Value reflect.Value
}

// String renders "{ Name = value, ... }" in field order, the
// DynamicClass base's ToString override.
func (d DynamicClass) String() string {
	parts := make([]string, len(d.Class.Fields))
	for i, f := range d.Class.Fields {
		parts[i] = fmt.Sprintf("%s = %v", f.Name, d.Value.Field(i).Interface())
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Equals compares d and other field-by-field using each field's own
// equality, via reflect.DeepEqual per field, the host equality
// comparer's Go-idiomatic equivalent. reflect.DeepEqual compares
// structurally and does not call a type's own Equal method.
func (d DynamicClass) Equals(other DynamicClass) bool {
	if d.Class.Type != other.Class.Type {
		return false
	}
	for i := range d.Class.Fields {
		if !reflect.DeepEqual(d.Value.Field(i).Interface(), other.Value.Field(i).Interface()) {
			return false
		}
	}
	return true
}

// Hash computes the XOR of each field's name hash and type hash,
// combined with fnv to produce a single field contribution.
func (d DynamicClass) Hash() uint32 {
	var h uint32
	for _, f := range d.Class.Fields {
		h ^= fnv32(f.Name) ^ fnv32(f.Type.String())
	}
	return h
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// SortedKeys returns the factory's current signature keys, sorted;
// exposed only for deterministic snapshot-test output over cache
// contents.
func (f *Factory) SortedKeys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := lo.Keys(f.cache)
	sort.Strings(keys)
	return keys
}

// TupleType returns the reflect.Type for a fixed-arity positional
// tuple over elems, built through the same signature cache as
// new(...) classes (the field names are just Item1..ItemN rather than
// user-supplied names), per the tuple(e1, ..., eN) grammar. For
// len(elems) > 7 the tail is grouped into a nested tuple using a
// rolling 7-wide window, the last partial group sized len(elems) mod 7,
// mirroring the host's Tuple<T1..T7, TRest> nesting.
func (f *Factory) TupleType(elems []reflect.Type) reflect.Type {
	if len(elems) <= 7 {
		return f.Get(tupleFields(elems)).Type
	}
	rest := f.TupleType(elems[7:])
	head := append(append([]reflect.Type(nil), elems[:7]...), rest)
	return f.Get(tupleFields(head)).Type
}

func tupleFields(elems []reflect.Type) []Field {
	fields := make([]Field, len(elems))
	for i, t := range elems {
		fields[i] = Field{Name: fmt.Sprintf("Item%d", i+1), Type: t}
	}
	return fields
}

// TupleValue constructs a reflect.Value of the tuple type for elems,
// populated with values in order, using the same nested-grouping rule
// as TupleType.
func (f *Factory) TupleValue(elems []reflect.Type, values []any) reflect.Value {
	if len(elems) <= 7 {
		return f.Get(tupleFields(elems)).New(values)
	}
	restType := f.TupleType(elems[7:])
	restValue := f.TupleValue(elems[7:], values[7:])
	_ = restType
	head := append(append([]reflect.Type(nil), elems[:7]...), restValue.Type())
	headValues := append(append([]any(nil), values[:7]...), restValue.Interface())
	return f.Get(tupleFields(head)).New(headValues)
}
