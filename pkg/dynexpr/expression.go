package dynexpr

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
)

// Expression is a parsed, type-checked expression tree. It carries no
// unbound parameters other than whatever the caller's it/parent/root
// and externals made available at parse time.
type Expression struct {
	node    ast.Node
	builder Builder
}

// Type is the reflect.Type this expression evaluates to.
func (e *Expression) Type() reflect.Type { return e.node.Type() }

// String renders the expression in its canonical printed form.
func (e *Expression) String() string { return e.node.String() }

// Eval executes the expression against b, returning the host value it
// evaluates to.
func (e *Expression) Eval(b Bindings) (any, error) {
	return e.builder.eval(e.node, b)
}

// Lambda is a parsed lambda: a parameterized expression body whose
// parameters are bound by Invoke's positional arguments. The
// single-unnamed-parameter form (ParseLambda(elementType, ...))
// additionally exposes that argument as `it` inside the body.
type Lambda struct {
	lambda  *ast.Lambda
	builder Builder
}

// Type is the lambda's own func(...) T reflect.Type.
func (l *Lambda) Type() reflect.Type { return l.lambda.Type() }

func (l *Lambda) String() string { return l.lambda.String() }

// Invoke calls the lambda with args bound to its parameters in order
// (args[0] also becomes `it` for the single-unnamed-parameter form),
// returning the body's result.
func (l *Lambda) Invoke(args ...any) (any, error) {
	return l.builder.invoke(l.lambda, args)
}

// Ordering is one selector of a ParseOrdering result: a per-element
// sort key and its direction.
type Ordering struct {
	Selector  *Expression
	Ascending bool
}
