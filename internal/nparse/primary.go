package nparse

import (
	"reflect"
	"strings"

	"github.com/cwbudde/dynexpr/internal/anonclass"
	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/numlit"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
	"github.com/cwbudde/dynexpr/internal/token"
)

func (p *Parser) parseNumber() (ast.Node, error) {
	tok := p.cur
	kind := numlit.Integer
	if tok.Kind == token.REAL {
		kind = numlit.Real
	}
	value, _, ok := p.numbers.Parse(kind, tok.Text)
	if !ok {
		if kind == numlit.Real {
			return nil, p.fail(tok.Pos, "Invalid real literal")
		}
		return nil, p.fail(tok.Pos, "Invalid integer literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Constant{Value: value, Text: tok.Text, Typ: reflect.TypeOf(value), At: tok.Pos}, nil
}

// parseString builds a string constant from an already-lexed '...' or
// "..." token; the lexer itself rejects a single-quoted literal whose
// unescaped length isn't exactly one character, so no further
// validation is needed here.
func (p *Parser) parseString() (ast.Node, error) {
	tok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Constant{Value: tok.Text, Text: tok.Text, Typ: stringType, At: tok.Pos}, nil
}

// parseGroupedOrTuple disambiguates a leading `(` between a plain
// parenthesized expression and the start of an `in (...)` list, which
// is instead consumed by parseIn: this prefix function only ever sees
// `(` as the start of a primary, so it's always a grouped expression
// here.
func (p *Parser) parseGroupedOrTuple() (ast.Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseIdentPrimary dispatches an identifier-led primary through the
// resolution order: keywords (iif/new/tuple/special forms), then
// recognized type name, then local symbol, then externals, then
// implicit member of it. Positional substitution markers (@0, @1,
// ...) are resolved
// here too.
func (p *Parser) parseIdentPrimary() (ast.Node, error) {
	tok := p.cur
	name := tok.Text

	if strings.HasPrefix(name, "@") {
		return p.parseSubstitution(tok)
	}

	folded := p.fold(name)

	switch folded {
	case "true":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Constant{Value: true, Typ: boolType, At: tok.Pos}, nil
	case "false":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Constant{Value: false, Typ: boolType, At: tok.Pos}, nil
	case "null":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Constant{Value: nil, Typ: nil, At: tok.Pos}, nil
	case "not":
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseExpression(unary - 1)
		if err != nil {
			return nil, err
		}
		typ, err := unaryResultType(token.EXCLAIM, operand.Type())
		if err != nil {
			return nil, p.fail(tok.Pos, "%s", err.Error())
		}
		return &ast.UnaryOp{Kind: token.EXCLAIM, Operand: operand, Typ: typ, At: tok.Pos}, nil
	case "iif":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseIif(tok)
	case "new":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseNew(tok)
	case "tuple":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseTuple(tok)
	}

	if param, ok := p.sc.resolveDistinguished(folded); ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return param, nil
	}
	if _, isDistinguished := sigilAliases[folded]; isDistinguished || folded == "it" || folded == "parent" || folded == "root" {
		return nil, p.fail(tok.Pos, "no %s in scope", folded)
	}

	if t, ok := p.types.Lookup(name); ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseTypePrimary(tok, t)
	}

	if local, ok := p.sc.locals[folded]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return local, nil
	}

	if ext, ok := p.externals[folded]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ext, nil
	}

	if p.sc.it != nil {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.resolveMemberOn(p.sc.it, name, tok.Pos)
	}

	return nil, p.fail(tok.Pos, "Unknown identifier")
}

// parseSubstitution resolves an @N marker to the Nth positional
// substitution value, or, when immediately followed by `(`, to an
// invocation of a lambda-valued substitution ("dynamic lambda
// invocation").
func (p *Parser) parseSubstitution(tok token.Token) (ast.Node, error) {
	idxText := strings.TrimPrefix(tok.Text, "@")
	idx, ok := parseIntText(idxText)
	if !ok || idx < 0 || idx >= len(p.substVals) {
		return nil, p.fail(tok.Pos, "Unknown identifier")
	}
	val := p.substVals[idx]
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind == token.LPAREN && val.Type() != nil && val.Type().Kind() == reflect.Func {
		return p.parseInvoke(val, tok.Pos)
	}
	return val, nil
}

func (p *Parser) parseInvoke(lambda ast.Node, at token.Position) (ast.Node, error) {
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	ft := lambda.Type()
	if ft.NumOut() == 0 {
		return nil, p.fail(at, "expression of type bool expected")
	}
	return &ast.Invoke{Lambda: lambda, Args: args, Typ: ft.Out(0), At: at}, nil
}

// parseArgList parses a parenthesized, comma-separated argument list;
// the opening `(` must be the current token.
func (p *Parser) parseArgList() ([]ast.Node, error) {
	if err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Node
	for p.cur.Kind != token.RPAREN {
		arg, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

// parseIif parses iif(test, a, b), equivalent to test ? a : b.
func (p *Parser) parseIif(tok token.Token) (ast.Node, error) {
	if err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	test, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COMMA, "','"); err != nil {
		return nil, err
	}
	thenExpr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COMMA, "','"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return p.buildConditional(tok.Pos, test, thenExpr, elseExpr)
}

// parseNew parses new(e1 as p1, e2, ...): each field is "expr as
// name", or a bare field/property access whose member name is reused.
func (p *Parser) parseNew(tok token.Token) (ast.Node, error) {
	if err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var bindings []ast.Binding
	for p.cur.Kind != token.RPAREN {
		value, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		name := ""
		if p.cur.Kind == token.IDENT && p.fold(p.cur.Text) == "as" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Kind != token.IDENT {
				return nil, p.fail(p.cur.Pos, "Syntax error")
			}
			name = p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if fp, ok := value.(*ast.FieldOrProperty); ok {
			name = fp.Name
		} else if param, ok := value.(*ast.Parameter); ok {
			name = param.Name
		} else {
			return nil, p.fail(value.Pos(), "Syntax error")
		}
		bindings = append(bindings, ast.Binding{Name: name, Value: value})
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}

	fields := make([]anonclass.Field, len(bindings))
	for i, b := range bindings {
		fields[i] = anonclass.Field{Name: b.Name, Type: b.Value.Type()}
	}
	class := p.classes.Get(fields)
	return &ast.NewAnonymous{Bindings: bindings, Typ: class.Type, At: tok.Pos}, nil
}

// parseTuple parses tuple(e1, ..., eN), nesting beyond 7 elements in
// a rolling 7-wide window.
func (p *Parser) parseTuple(tok token.Token) (ast.Node, error) {
	elems, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	types := make([]reflect.Type, len(elems))
	for i, e := range elems {
		types[i] = e.Type()
	}
	tupleType := p.classes.TupleType(types)
	return &ast.Tuple{Elements: elems, Typ: tupleType, At: tok.Pos}, nil
}

// parseTypePrimary handles the three forms that follow a recognized
// type name: Type(args) (conversion or constructor), Type? (nullable
// form), or a bare type reference used only for static member access
// (e.g. Guid.Parse(...), handled by the caller's parseMember).
func (p *Parser) parseTypePrimary(tok token.Token, t reflect.Type) (ast.Node, error) {
	switch p.cur.Kind {
	case token.QUESTION:
		if err := p.advance(); err != nil {
			return nil, err
		}
		nt, ok := reflecttype.MakeNullable(t)
		if !ok {
			return nil, p.fail(tok.Pos, "no nullable form")
		}
		return &ast.Constant{Value: reflect.Zero(nt).Interface(), Typ: nt, At: tok.Pos}, nil
	case token.LPAREN:
		return p.parseTypeCallOrConvert(tok, t)
	default:
		return &ast.TypeRef{Typ: t, At: tok.Pos}, nil
	}
}

func (p *Parser) parseTypeCallOrConvert(tok token.Token, t reflect.Type) (ast.Node, error) {
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		if converted, err := promote.Promote(args[0], t, true, p.promoteCtx()); err == nil {
			return converted, nil
		}
	}
	ctor, ok := p.resolveConstructor(t, args)
	if !ok {
		return nil, p.fail(tok.Pos, "no matching constructor")
	}
	return &ast.NewObject{Ctor: ctor, Args: args, Typ: t, At: tok.Pos}, nil
}
