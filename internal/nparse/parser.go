package nparse

import (
	"fmt"
	"reflect"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cwbudde/dynexpr/internal/anonclass"
	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/errs"
	"github.com/cwbudde/dynexpr/internal/lexer"
	"github.com/cwbudde/dynexpr/internal/numlit"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
	"github.com/cwbudde/dynexpr/internal/token"
)

// Host supplies the capabilities the parser needs from the query
// provider (an "external collaborator" adapter contract) without
// depending on pkg/dynexpr directly, avoiding an import cycle between
// the parser and the public façade that constructs it.
type Host interface {
	// ElementType reports whether t is enumerable and, if so, its
	// element type, enabling aggregate-operator dispatch.
	ElementType(t reflect.Type) (elem reflect.Type, ok bool)
}

// Parser is a single-use, single-threaded parser over one expression
// string: construct one per call. Never share a Parser
// across goroutines or reuse it for a second Parse call.
type Parser struct {
	lex       *lexer.Lexer
	cur, peek token.Token

	source string

	host    Host
	types   *reflecttype.Registry
	enums   *promote.EnumRegistry
	numbers *numlit.Registry
	ctors   map[reflect.Type][]reflect.Value
	classes *anonclass.Factory
	caser   cases.Caser

	sc         *scope
	externals  map[string]ast.Node
	substVals  []ast.Node

	prefixFns map[token.Kind]func() (ast.Node, error)
	infixFns  map[token.Kind]func(ast.Node) (ast.Node, error)

	state state
}

type state int

const (
	stateInit state = iota
	stateParsing
	stateDone
	stateFailing
)

// Option configures a Parser at construction, mirroring the lexer's
// own functional-options idiom.
type Option func(*Parser)

// WithHost supplies the query-provider adapter used for
// aggregate-operator dispatch. Without one, member access still
// works, but .Where/.Select/... are looked up as ordinary methods or
// members of the receiver type (and so fail unless that type has
// them), and `x in seq` fails as "no applicable aggregate".
func WithHost(h Host) Option { return func(p *Parser) { p.host = h } }

// WithTypeRegistry supplies the recognized-type whitelist.
func WithTypeRegistry(r *reflecttype.Registry) Option {
	return func(p *Parser) { p.types = r }
}

// WithEnumRegistry supplies enum member tables for string-to-enum
// literal promotion and enum/integer coercion.
func WithEnumRegistry(r *promote.EnumRegistry) Option {
	return func(p *Parser) { p.enums = r }
}

// WithNumberRegistry overrides the default number-literal parser
// chain; callers registering a custom suffix handler should
// also extend the lexer's suffix set via lexer.WithNumericSuffixes.
func WithNumberRegistry(r *numlit.Registry) Option {
	return func(p *Parser) { p.numbers = r }
}

// WithConstructors registers a func(...) T or func(...) (T, error)
// host constructor for type t, consulted by Type(args) when the
// argument list doesn't resolve as a single-argument conversion.
// Multiple calls for the same t accumulate overload
// candidates.
func WithConstructors(t reflect.Type, fns ...any) Option {
	return func(p *Parser) {
		if p.ctors == nil {
			p.ctors = map[reflect.Type][]reflect.Value{}
		}
		for _, fn := range fns {
			p.ctors[t] = append(p.ctors[t], reflect.ValueOf(fn))
		}
	}
}

// WithClassFactory supplies the process-wide anonymous-class cache;
// callers sharing one Factory across parses get anonymous class
// identity across independently parsed expressions.
func WithClassFactory(f *anonclass.Factory) Option {
	return func(p *Parser) { p.classes = f }
}

// New constructs a Parser over text, binding positional substitution
// values (addressable as @0, @1, ...) and, if the last value is a
// map[string]any, treating it as the externals dictionary consulted
// after the local symbol table.
func New(text string, values []any, opts ...Option) (*Parser, error) {
	p := &Parser{
		source:    text,
		types:     reflecttype.NewRegistry(nil),
		enums:     promote.NewEnumRegistry(),
		numbers:   numlit.NewDefaultRegistry(),
		classes:   anonclass.NewFactory(),
		caser:     cases.Fold(),
		sc:        newScope(),
		externals: map[string]ast.Node{},
	}
	for _, opt := range opts {
		opt(p)
	}

	positional := values
	if len(values) > 0 {
		if dict, ok := values[len(values)-1].(map[string]any); ok {
			positional = values[:len(values)-1]
			for name, v := range dict {
				n, err := p.substitutionNode(v, 0)
				if err != nil {
					return nil, err
				}
				p.externals[p.fold(name)] = n
			}
		}
	}
	for i, v := range positional {
		n, err := p.substitutionNode(v, token.Position(i))
		if err != nil {
			return nil, err
		}
		p.substVals = append(p.substVals, n)
	}

	p.lex = lexer.New(text, lexer.WithNumericSuffixes(""))
	p.registerFns()
	p.state = stateInit
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.state = stateParsing
	return p, nil
}

// substitutionNode wraps a raw Go value as the node @i/externals-name
// resolves to: an existing ast.Node substitutes in place, a func
// value becomes an invokable lambda constant, anything else becomes a
// plain Constant of its own runtime type.
func (p *Parser) substitutionNode(v any, at token.Position) (ast.Node, error) {
	if n, ok := v.(ast.Node); ok {
		return n, nil
	}
	if v == nil {
		return &ast.Constant{Value: nil, Typ: reflect.TypeOf((*any)(nil)).Elem(), At: at}, nil
	}
	return &ast.Constant{Value: v, Typ: reflect.TypeOf(v), At: at}, nil
}

// fold case-folds an identifier for comparison: changing an
// identifier or keyword's ASCII case never changes parse results.
func (p *Parser) fold(s string) string { return p.caser.String(s) }

func (p *Parser) advance() error {
	p.cur = p.peek
	next, err := p.lex.NextToken()
	if err != nil {
		return p.lexError(err)
	}
	p.peek = next
	return nil
}

func (p *Parser) lexError(e *lexer.Error) error {
	p.state = stateFailing
	return errs.New(e.Pos, e.Message, p.source)
}

func (p *Parser) fail(pos token.Position, format string, args ...any) error {
	p.state = stateFailing
	return errs.New(pos, fmt.Sprintf(format, args...), p.source)
}

func (p *Parser) expect(k token.Kind, what string) error {
	if p.cur.Kind != k {
		return p.fail(p.cur.Pos, "Syntax error: expected %s", what)
	}
	return p.advance()
}

// Parse parses the full input as a single expression, promoting the
// result to expected exactly if expected is non-nil. It fails with
// "Syntax error" if any token remains before end.
func (p *Parser) Parse(expected reflect.Type) (ast.Node, error) {
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.END {
		return nil, p.fail(p.cur.Pos, "Syntax error")
	}
	if expected != nil {
		promoted, err := promote.Promote(expr, expected, true, p.promoteCtx())
		if err != nil {
			return nil, p.fail(expr.Pos(), "%s", err.Error())
		}
		expr = promoted
	}
	p.state = stateDone
	return expr, nil
}

// ParseLambda parses the input as a lambda body over the given
// parameters (already bound into scope; the single-parameter form
// names its one parameter "" and additionally exposes `it` as an
// alias).
func (p *Parser) ParseLambda(params []*ast.Parameter, expected reflect.Type) (*ast.Lambda, error) {
	for _, param := range params {
		if param.Name != "" {
			p.sc.locals[p.fold(param.Name)] = param
		}
	}
	if len(params) == 1 && params[0].Name == "" {
		p.sc.it = params[0]
	}

	body, err := p.Parse(expected)
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Parameters: params, Body: body, At: 0}, nil
}

// ParseOrdering parses a comma-separated list of selector[, asc|desc]
// clauses, requiring `end` after the last one (Open Question resolved
// in DESIGN.md: reject any trailing non-end token).
func (p *Parser) ParseOrdering(elementType reflect.Type) ([]ast.Ordering, error) {
	p.sc.it = &ast.Parameter{Name: "it", Typ: elementType}

	var orderings []ast.Ordering
	for {
		selector, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		ascending := true
		if p.cur.Kind == token.IDENT {
			switch p.fold(p.cur.Text) {
			case "asc", "ascending":
				ascending = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			case "desc", "descending":
				ascending = false
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		orderings = append(orderings, ast.Ordering{Selector: selector, Ascending: ascending})

		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if p.cur.Kind != token.END {
		return nil, p.fail(p.cur.Pos, "Syntax error")
	}
	p.state = stateDone
	return orderings, nil
}

func (p *Parser) promoteCtx() *promote.Context {
	return &promote.Context{Numbers: p.numbers, Enums: p.enums}
}

// parseIntText is a small shared helper for primaries that need a
// plain base-10 integer from already-validated digit text (the
// positional @N marker's numeric suffix).
func parseIntText(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
