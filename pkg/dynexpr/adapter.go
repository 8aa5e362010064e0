package dynexpr

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/reflecteval"
)

// Enumerable is the query-provider capability (an "external
// collaborator") that lets the parser recognize a host value as a
// sequence and dispatch the aggregate/sequence operators (Where,
// Select, Count, OrderBy, ...) over it. Its method set matches
// internal/nparse.Host exactly, so any Enumerable value is directly
// usable wherever that internal seam is consumed.
type Enumerable interface {
	// ElementType reports whether t is enumerable and, if so, its
	// element type.
	ElementType(t reflect.Type) (elem reflect.Type, ok bool)
}

// Bindings supplies the runtime values a compiled Expression or Lambda
// needs to evaluate: the current it/parent/root values (nil if not in
// scope for this expression) and any named locals. It mirrors
// internal/reflecteval.Bindings with plain `any` values so a caller
// outside this module never has to import reflect.Value conversions
// by hand.
type Bindings struct {
	It, Parent, Root any
	Locals           map[string]any
}

func (b Bindings) toInternal() reflecteval.Bindings {
	ib := reflecteval.Bindings{
		It:     toValue(b.It),
		Parent: toValue(b.Parent),
		Root:   toValue(b.Root),
	}
	if len(b.Locals) > 0 {
		ib.Locals = make(map[string]reflect.Value, len(b.Locals))
		for k, v := range b.Locals {
			ib.Locals[k] = toValue(v)
		}
	}
	return ib
}

func toValue(v any) reflect.Value {
	if v == nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(v)
}

// Builder is the query-provider capability to execute a parsed
// expression's node graph against a runtime Bindings, producing a Go
// value. Its methods are unexported because they're expressed in
// terms of the internal node graph (internal/ast.Node is not
// importable outside this module): an alternate Builder is an
// in-module extension point, added and wired through WithHost the way
// evaluatorBuilder wraps internal/reflecteval.Evaluator below. The
// query-integration surface a real external query provider would need
// (lifting a Builder-evaluated lambda into a SQL/ORM expression tree)
// is an explicitly out-of-scope collaborator here.
type Builder interface {
	eval(node ast.Node, b Bindings) (any, error)
	invoke(lambda *ast.Lambda, args []any) (any, error)
}

// evaluatorBuilder adapts internal/reflecteval.Evaluator to Builder.
type evaluatorBuilder struct {
	ev reflecteval.Evaluator
}

func (w evaluatorBuilder) eval(node ast.Node, b Bindings) (any, error) {
	v, err := w.ev.Eval(node, b.toInternal())
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func (w evaluatorBuilder) invoke(lambda *ast.Lambda, args []any) (any, error) {
	fn := w.ev.MakeCallable(lambda, reflecteval.Bindings{})
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = toValue(a)
	}
	out := fn.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}
