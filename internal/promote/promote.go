// Package promote implements the type promotion and conversion rules:
// the single Promote entry point used both by the parser (for
// assignment-like contexts) and by internal/overload (to
// decide applicability and to replace argument nodes with their
// promoted forms). Grounded on the numeric-widening switch inside
// internal/interp/marshal.go's MarshalToDWS, generalized from a single
// FFI coercion into the compiler's own implicit/explicit conversion
// table, and on internal/lexer/lexer.go's literal re-scan idiom for
// re-parsing a literal's original text at a narrower type.
package promote

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/numlit"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
)

// EnumRegistry maps an enum reflect.Type to its member name table, so
// that a string literal naming a member (S is a string literal and T
// is an enum) can be resolved to a value. Hosts register their
// enum types through this; it is otherwise unused by this package.
type EnumRegistry struct {
	members map[reflect.Type]map[string]int64
}

// NewEnumRegistry creates an empty registry.
func NewEnumRegistry() *EnumRegistry {
	return &EnumRegistry{members: map[reflect.Type]map[string]int64{}}
}

// Register adds t as a recognized enum type with the given
// case-sensitive member name -> integer value mapping. Lookup folds
// case itself, so names here may be supplied in their canonical form.
func (r *EnumRegistry) Register(t reflect.Type, members map[string]int64) {
	r.members[t] = members
}

// IsEnum reports whether t was registered as an enum type.
func (r *EnumRegistry) IsEnum(t reflect.Type) bool {
	_, ok := r.members[t]
	return ok
}

// Member resolves name case-insensitively against t's member table.
func (r *EnumRegistry) Member(t reflect.Type, name string) (int64, bool) {
	table, ok := r.members[t]
	if !ok {
		return 0, false
	}
	for memberName, v := range table {
		if strings.EqualFold(memberName, name) {
			return v, true
		}
	}
	return 0, false
}

// Context supplies the side tables Promote consults beyond the
// reflect.Type values themselves: the number-literal registry (to
// re-parse a literal's text at a narrower type) and the enum registry
// (to resolve a string literal naming an enum member).
type Context struct {
	Numbers *numlit.Registry
	Enums   *EnumRegistry
}

// widening is the built-in numeric implicit-conversion table, keyed
// by source NumericKind, valued by the set of target kinds it
// implicitly converts to (decimal and "nullable-of-same" are handled
// structurally below rather than listed per row, since every numeric
// kind widens to its own nullable form and to DecimalKind uniformly).
var widening = map[reflecttype.NumericKind][]reflecttype.NumericKind{
	reflecttype.Int8Kind: {reflecttype.Int8Kind, reflecttype.Int16Kind, reflecttype.Int32Kind,
		reflecttype.Int64Kind, reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Uint8Kind: {reflecttype.Uint8Kind, reflecttype.Int16Kind, reflecttype.Uint16Kind,
		reflecttype.Int32Kind, reflecttype.Uint32Kind, reflecttype.Int64Kind, reflecttype.Uint64Kind,
		reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Int16Kind: {reflecttype.Int16Kind, reflecttype.Int32Kind, reflecttype.Int64Kind,
		reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Uint16Kind: {reflecttype.Uint16Kind, reflecttype.Int32Kind, reflecttype.Uint32Kind,
		reflecttype.Int64Kind, reflecttype.Uint64Kind, reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Int32Kind: {reflecttype.Int32Kind, reflecttype.Int64Kind,
		reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Uint32Kind: {reflecttype.Uint32Kind, reflecttype.Int64Kind, reflecttype.Uint64Kind,
		reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Int64Kind:  {reflecttype.Int64Kind, reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Uint64Kind: {reflecttype.Uint64Kind, reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Float32Kind: {reflecttype.Float32Kind, reflecttype.Float64Kind},
	reflecttype.Float64Kind: {reflecttype.Float64Kind},
}

// ImplicitlyConvertible reports whether a value of numeric kind s
// widens to numeric kind t under the built-in table, or to t ==
// DecimalKind (every numeric kind widens to decimal).
func ImplicitlyConvertible(s, t reflecttype.NumericKind) bool {
	if t == reflecttype.DecimalKind {
		return true
	}
	for _, candidate := range widening[s] {
		if candidate == t {
			return true
		}
	}
	return false
}

// Promote attempts to convert expr (of type expr.Type()) to target.
// exact mirrors the explicit-conversion T(e) form: when true, the
// wider checked-conversion set applies
// instead of implicit widening alone. ctx may be nil if the caller
// has no literal or enum registries to consult (numeric widening and
// identity still work).
func Promote(expr ast.Node, target reflect.Type, exact bool, ctx *Context) (ast.Node, error) {
	source := expr.Type()

	if source == target {
		return expr, nil
	}

	if isNullLiteral(expr) {
		if target.Kind() == reflect.Ptr || isReferenceKind(target.Kind()) {
			return &ast.Constant{Value: nil, Typ: target, At: expr.Pos()}, nil
		}
		return nil, fmt.Errorf("cannot convert null to non-nullable type %s", target)
	}

	if c, ok := expr.(*ast.Constant); ok && c.IsLiteral() {
		if promoted, ok := promoteLiteral(c, target, ctx); ok {
			return promoted, nil
		}
	}

	if reflecttype.IsNumeric(source) && reflecttype.IsNumeric(target) {
		sk, tk := reflecttype.ClassifyNumeric(source), reflecttype.ClassifyNumeric(target)
		if ImplicitlyConvertible(sk, tk) {
			return &ast.Convert{Expr: expr, Target: target, At: expr.Pos()}, nil
		}
		if exact {
			return &ast.Convert{Expr: expr, Target: target, Checked: true, At: expr.Pos()}, nil
		}
	}

	if reflecttype.IsNullable(target) && reflecttype.Unwrap(target) == source {
		return &ast.Convert{Expr: expr, Target: target, At: expr.Pos()}, nil
	}

	if source.AssignableTo(target) {
		return &ast.Convert{Expr: expr, Target: target, At: expr.Pos()}, nil
	}

	if exact {
		if ok := explicitlyConvertible(source, target); ok {
			return &ast.Convert{Expr: expr, Target: target, Checked: true, At: expr.Pos()}, nil
		}
	}

	if target.Kind() == reflect.Interface && source.Implements(target) {
		return &ast.Convert{Expr: expr, Target: target, At: expr.Pos()}, nil
	}

	if isValueKind(target.Kind()) || exact {
		return nil, fmt.Errorf("cannot convert %s to %s", source, target)
	}

	return &ast.Convert{Expr: expr, Target: target, At: expr.Pos()}, nil
}

// promoteLiteral re-parses a numeric/string literal's original text
// at target's kind (re-parse the literal's original text in T,
// succeed if in-range), including the double->decimal re-parse and
// the string->enum-member resolution.
func promoteLiteral(c *ast.Constant, target reflect.Type, ctx *Context) (ast.Node, bool) {
	if ctx == nil {
		return nil, false
	}

	if c.Typ.Kind() == reflect.String && ctx.Enums != nil && ctx.Enums.IsEnum(target) {
		if v, ok := ctx.Enums.Member(target, c.Text); ok {
			return &ast.Constant{Value: v, Text: c.Text, Typ: target, At: c.At}, true
		}
		return nil, false
	}

	if !reflecttype.IsNumeric(c.Typ) || !reflecttype.IsNumeric(target) {
		return nil, false
	}
	if ctx.Numbers == nil {
		return nil, false
	}

	kind := numlit.Integer
	if reflecttype.IsFloat(reflecttype.ClassifyNumeric(c.Typ)) {
		kind = numlit.Real
	}
	v, _, ok := ctx.Numbers.Parse(kind, literalTextFor(c.Text, target))
	if !ok {
		return nil, false
	}
	if reflect.TypeOf(v) != target && reflect.TypeOf(v).ConvertibleTo(target) {
		rv := reflect.ValueOf(v).Convert(target)
		return &ast.Constant{Value: rv.Interface(), Text: c.Text, Typ: target, At: c.At}, true
	}
	return &ast.Constant{Value: v, Text: c.Text, Typ: target, At: c.At}, true
}

// literalTextFor appends the suffix letter implied by target's
// numeric kind to a bare digit sequence, so the shared numlit registry
// (which dispatches purely on suffix) re-parses at the requested
// width rather than falling through to its default handler.
func literalTextFor(text string, target reflect.Type) string {
	digits := strings.TrimRightFunc(text, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	})
	switch reflecttype.ClassifyNumeric(target) {
	case reflecttype.Int8Kind:
		return digits + "SB"
	case reflecttype.Int16Kind:
		return digits + "S"
	case reflecttype.Int32Kind:
		return digits + "I"
	case reflecttype.Int64Kind:
		return digits + "L"
	case reflecttype.Uint8Kind:
		return digits + "B"
	case reflecttype.Uint16Kind:
		return digits + "US"
	case reflecttype.Uint32Kind:
		return digits + "UI"
	case reflecttype.Uint64Kind:
		return digits + "UL"
	case reflecttype.Float32Kind:
		return digits + "F"
	case reflecttype.Float64Kind:
		return digits + "D"
	case reflecttype.DecimalKind:
		return digits + "M"
	}
	return digits
}

// explicitlyConvertible implements the wider T(e) conversion set:
// interface<->anything, nullable<->non-nullable of the same
// underlying type, and any pair drawn from
// {integral, real, char, enum, their nullable forms} via checked
// conversion. Guid<->string is additionally recognized.
func explicitlyConvertible(source, target reflect.Type) bool {
	if source.Kind() == reflect.Interface || target.Kind() == reflect.Interface {
		return true
	}
	if reflecttype.Unwrap(source) == reflecttype.Unwrap(target) {
		return true
	}
	if reflecttype.IsGuid(source) && target.Kind() == reflect.String {
		return true
	}
	if source.Kind() == reflect.String && reflecttype.IsGuid(target) {
		return true
	}
	us, ut := reflecttype.Unwrap(source), reflecttype.Unwrap(target)
	if isCharOrNumeric(us) && isCharOrNumeric(ut) {
		return true
	}
	return false
}

func isCharOrNumeric(t reflect.Type) bool {
	if reflecttype.IsNumeric(t) {
		return true
	}
	return t != nil && t.Kind() == reflect.Int32 // rune, the host's character representation
}

func isNullLiteral(n ast.Node) bool {
	c, ok := n.(*ast.Constant)
	return ok && c.Value == nil && c.Text == ""
}

func isReferenceKind(k reflect.Kind) bool {
	switch k {
	case reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Ptr:
		return true
	}
	return false
}

func isValueKind(k reflect.Kind) bool {
	return !isReferenceKind(k)
}

// CoerceGuid parses s as a Guid, for the Guid<->string coercion
// recognized at call sites. Returns the zero UUID
// and false if s is not a valid UUID text.
func CoerceGuid(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
