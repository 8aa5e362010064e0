// Package dynexpr is the public façade: parse a string expression
// against a host value's reflected shape and get back a typed,
// executable tree. It wires internal/nparse (lexing, parsing, name
// resolution, overload resolution, promotion) to internal/reflecteval,
// the one query-provider adapter this module ships, through the
// Enumerable/Builder seam a different provider could implement
// instead.
package dynexpr

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/anonclass"
	"github.com/cwbudde/dynexpr/internal/nparse"
	"github.com/cwbudde/dynexpr/internal/numlit"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/reflecteval"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
)

// Engine holds the registries and adapters shared across many Parse
// calls: the recognized-type whitelist, enum member tables, the
// numeric-literal handler chain, the anonymous-class cache, and the
// query-provider adapter. Construct one with New and reuse it; each
// Parse/ParseExpression/.../ParseOrdering call builds its own
// single-use internal/nparse.Parser from it.
//
// The zero Engine is not usable; use New.
type Engine struct {
	types   *reflecttype.Registry
	enums   *promote.EnumRegistry
	numbers *numlit.Registry
	classes *anonclass.Factory
	host    nparse.Host
	builder Builder
	ctors   map[reflect.Type][]any

	// extraTypes/pendingEnums only matter during New; they're folded
	// into types/enums and cleared before the Engine is returned.
	extraTypes   map[string]reflect.Type
	pendingEnums []enumReg
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithType registers a non-predefined type addressable by simple name
// e.g. WithType("Color", reflect.TypeOf(Color(0))).
func WithType(name string, t reflect.Type) Option {
	return func(e *Engine) { e.extraTypes[name] = t }
}

// WithEnum registers t as an enum whose members map name to ordinal
// value, enabling string-literal-to-enum promotion and enum/integer
// coercion.
func WithEnum(t reflect.Type, members map[string]int64) Option {
	return func(e *Engine) { e.pendingEnums = append(e.pendingEnums, enumReg{t, members}) }
}

// WithConstructor registers a func(...) T or func(...) (T, error) host
// constructor for t, consulted by Type(args) when the argument list
// doesn't resolve as a single-argument conversion.
func WithConstructor(t reflect.Type, fn any) Option {
	return func(e *Engine) { e.ctors[t] = append(e.ctors[t], fn) }
}

// WithHost supplies a query-provider adapter other than the default
// in-memory slice evaluator (internal/reflecteval), satisfying both
// Enumerable (aggregate-operator dispatch) and Builder (evaluation).
func WithHost(h interface {
	Enumerable
	Builder
}) Option {
	return func(e *Engine) { e.host = h; e.builder = h }
}

type enumReg struct {
	t       reflect.Type
	members map[string]int64
}

// New builds an Engine from opts. With no options, it recognizes only
// the built-in Guid type and uses the default numeric-literal handler
// bundle and the in-memory reflect-based evaluator as both Enumerable
// and Builder.
func New(opts ...Option) *Engine {
	e := &Engine{
		enums:      promote.NewEnumRegistry(),
		numbers:    numlit.NewDefaultRegistry(),
		classes:    anonclass.NewFactory(),
		ctors:      map[reflect.Type][]any{},
		extraTypes: map[string]reflect.Type{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.types = reflecttype.NewRegistry(e.extraTypes)
	for _, reg := range e.pendingEnums {
		e.enums.Register(reg.t, reg.members)
	}
	e.extraTypes = nil
	e.pendingEnums = nil
	if e.host == nil {
		ev := reflecteval.Evaluator{}
		e.host = ev
		e.builder = evaluatorBuilder{ev}
	}
	return e
}

// defaultEngine is the zero-configuration Engine the package-level
// Parse/ParseExpression/ParseLambda/ParseOrdering functions use.
var defaultEngine = New()
