package dynexpr

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/errs"
	"github.com/cwbudde/dynexpr/internal/nparse"
)

// ArgumentError is the façade-boundary error for a nil/empty source
// argument; it never carries a position since tokenizing never
// started.
type ArgumentError = errs.ArgumentError

// ParseError is the one error kind a failed parse/analysis returns:
// a message plus the character position of the faulty token.
type ParseError = errs.ParseError

func (e *Engine) newParser(text string, values []any) (*nparse.Parser, error) {
	if text == "" {
		return nil, &errs.ArgumentError{Message: "expression text must not be empty"}
	}
	opts := []nparse.Option{
		nparse.WithTypeRegistry(e.types),
		nparse.WithEnumRegistry(e.enums),
		nparse.WithNumberRegistry(e.numbers),
		nparse.WithClassFactory(e.classes),
		nparse.WithHost(e.host),
	}
	for t, fns := range e.ctors {
		opts = append(opts, nparse.WithConstructors(t, fns...))
	}
	return nparse.New(text, values, opts...)
}

// Parse compiles text as a standalone expression with no unbound
// parameters. resultType, if non-nil, is the expected result type the
// expression must be (implicitly or explicitly) convertible to; pass
// nil to infer the result type from the expression itself. values is a
// positional substitution list (@0, @1, ...); its last element may
// instead be a map[string]any naming externals.
func (e *Engine) Parse(resultType reflect.Type, text string, values ...any) (*Expression, error) {
	p, err := e.newParser(text, values)
	if err != nil {
		return nil, err
	}
	node, err := p.Parse(resultType)
	if err != nil {
		return nil, err
	}
	return &Expression{node: node, builder: e.builder}, nil
}

// ParseExpressionOn compiles text as an expression with a single named
// parameter, paramName, bound to paramType and in scope (as opposed to
// the implicit `it` binding ParseLambda gives an unnamed parameter).
func (e *Engine) ParseExpressionOn(paramName string, paramType reflect.Type, resultType reflect.Type, text string, values ...any) (*Expression, error) {
	p, err := e.newParser(text, values)
	if err != nil {
		return nil, err
	}
	param := &ast.Parameter{Name: paramName, Typ: paramType}
	lambda, err := p.ParseLambda([]*ast.Parameter{param}, resultType)
	if err != nil {
		return nil, err
	}
	return &Expression{node: lambda.Body, builder: e.builder}, nil
}

// ParseLambda compiles text as a lambda over a single unnamed
// parameter of elementType: the parameter's members are implicitly in
// scope as if written `it.Member`, and `it` itself names the
// parameter.
func (e *Engine) ParseLambda(elementType reflect.Type, resultType reflect.Type, text string, values ...any) (*Lambda, error) {
	p, err := e.newParser(text, values)
	if err != nil {
		return nil, err
	}
	param := &ast.Parameter{Name: "", Typ: elementType}
	lambda, err := p.ParseLambda([]*ast.Parameter{param}, resultType)
	if err != nil {
		return nil, err
	}
	return &Lambda{lambda: lambda, builder: e.builder}, nil
}

// ParseLambdaParams compiles text as a lambda over several named
// parameters, all simultaneously in scope.
func (e *Engine) ParseLambdaParams(params map[string]reflect.Type, resultType reflect.Type, text string, values ...any) (*Lambda, error) {
	p, err := e.newParser(text, values)
	if err != nil {
		return nil, err
	}
	ps := make([]*ast.Parameter, 0, len(params))
	for name, t := range params {
		ps = append(ps, &ast.Parameter{Name: name, Typ: t})
	}
	lambda, err := p.ParseLambda(ps, resultType)
	if err != nil {
		return nil, err
	}
	return &Lambda{lambda: lambda, builder: e.builder}, nil
}

// ParseOrdering compiles text as a comma-separated list of
// selector[, asc|desc] clauses over an implicit `it` of elementType.
func (e *Engine) ParseOrdering(elementType reflect.Type, text string, values ...any) ([]Ordering, error) {
	p, err := e.newParser(text, values)
	if err != nil {
		return nil, err
	}
	orderings, err := p.ParseOrdering(elementType)
	if err != nil {
		return nil, err
	}
	out := make([]Ordering, len(orderings))
	for i, o := range orderings {
		out[i] = Ordering{Selector: &Expression{node: o.Selector, builder: e.builder}, Ascending: o.Ascending}
	}
	return out, nil
}

// Parse compiles text as a standalone expression using the default,
// zero-configuration Engine. See Engine.Parse.
func Parse(resultType reflect.Type, text string, values ...any) (*Expression, error) {
	return defaultEngine.Parse(resultType, text, values...)
}

// ParseExpression compiles text as an expression with a single named
// parameter in scope, using the default Engine. See
// Engine.ParseExpressionOn.
func ParseExpression(paramName string, paramType reflect.Type, resultType reflect.Type, text string, values ...any) (*Expression, error) {
	return defaultEngine.ParseExpressionOn(paramName, paramType, resultType, text, values...)
}

// ParseLambda compiles text as a single-unnamed-parameter lambda using
// the default Engine. See Engine.ParseLambda.
func ParseLambda(elementType reflect.Type, resultType reflect.Type, text string, values ...any) (*Lambda, error) {
	return defaultEngine.ParseLambda(elementType, resultType, text, values...)
}

// ParseOrdering compiles text as an ordering list using the default
// Engine. See Engine.ParseOrdering.
func ParseOrdering(elementType reflect.Type, text string, values ...any) ([]Ordering, error) {
	return defaultEngine.ParseOrdering(elementType, text, values...)
}
