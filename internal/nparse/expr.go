package nparse

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/token"
)

// Precedence levels, low to high.
const (
	_ int = iota
	lowest
	conditional // ?:
	logicalOr   // || or
	inOp        // in
	logicalAnd  // && and
	bitwiseOrAnd
	equality
	relational
	shift
	additive
	multiplicative
	unary
	primaryPrec
)

var precedences = map[token.Kind]int{
	token.QUESTION:    conditional,
	token.OR_OR:        logicalOr,
	token.AND_AND:      logicalAnd,
	token.PIPE:         bitwiseOrAnd,
	token.AMP:          bitwiseOrAnd,
	token.EQUAL:        equality,
	token.EQ_EQ:        equality,
	token.NOT_EQ:       equality,
	token.NOT_EQ_ALT:   equality,
	token.LESS:         relational,
	token.LESS_EQ:      relational,
	token.GREATER:      relational,
	token.GREATER_EQ:   relational,
	token.SHL:          shift,
	token.SHR:          shift,
	token.PLUS:         additive,
	token.MINUS:        additive,
	token.STAR:         multiplicative,
	token.SLASH:        multiplicative,
	token.PERCENT:      multiplicative,
	token.LPAREN:       primaryPrec,
	token.LBRACK:       primaryPrec,
	token.DOT:          primaryPrec,
}

// keywordPrecedence maps the word-spelled binary operators (or, and,
// in, mod) to their precedence, consulted only when the current token
// is an IDENT whose folded text names one of them. The unary `not` is
// handled as a primary by parseIdentPrimary.
var keywordPrecedence = map[string]int{
	"or":  logicalOr,
	"and": logicalAnd,
	"in":  inOp,
	"mod": multiplicative,
}

func (p *Parser) curPrecedence() int {
	if p.cur.Kind == token.IDENT {
		if prec, ok := keywordPrecedence[p.fold(p.cur.Text)]; ok {
			return prec
		}
		return lowest
	}
	if prec, ok := precedences[p.cur.Kind]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) registerFns() {
	p.prefixFns = map[token.Kind]func() (ast.Node, error){
		token.INT:    p.parseNumber,
		token.REAL:   p.parseNumber,
		token.STRING: p.parseString,
		token.LPAREN: p.parseGroupedOrTuple,
		token.MINUS:  p.parseUnary,
		token.EXCLAIM: p.parseUnary,
		token.IDENT:  p.parseIdentPrimary,
	}
	p.infixFns = map[token.Kind]func(ast.Node) (ast.Node, error){
		token.QUESTION:  p.parseConditional,
		token.OR_OR:     p.parseBinary,
		token.AND_AND:   p.parseBinary,
		token.PIPE:      p.parseBinary,
		token.AMP:       p.parseBinary,
		token.EQUAL:     p.parseBinary,
		token.EQ_EQ:     p.parseBinary,
		token.NOT_EQ:    p.parseBinary,
		token.NOT_EQ_ALT: p.parseBinary,
		token.LESS:      p.parseBinary,
		token.LESS_EQ:   p.parseBinary,
		token.GREATER:   p.parseBinary,
		token.GREATER_EQ: p.parseBinary,
		token.SHL:       p.parseBinary,
		token.SHR:       p.parseBinary,
		token.PLUS:      p.parseBinary,
		token.MINUS:     p.parseBinary,
		token.STAR:      p.parseBinary,
		token.SLASH:     p.parseBinary,
		token.PERCENT:   p.parseBinary,
		token.DOT:       p.parseMember,
		token.LBRACK:    p.parseIndex,
		token.LPAREN:    p.parseCall,
	}
}

// parseExpression is the precedence-climbing loop: parse one prefix
// (primary/unary) then repeatedly fold in infix operators whose
// precedence exceeds minPrec.
func (p *Parser) parseExpression(minPrec int) (ast.Node, error) {
	prefix, ok := p.prefixFns[p.cur.Kind]
	if !ok || (p.cur.Kind == token.IDENT && p.isKeywordOperator(p.fold(p.cur.Text))) {
		return nil, p.fail(p.cur.Pos, "Syntax error")
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}

	for {
		if p.cur.Kind == token.IDENT {
			word := p.fold(p.cur.Text)
			if word == "in" && precedenceAtLeast(inOp, minPrec) {
				left, err = p.parseIn(left)
				if err != nil {
					return nil, err
				}
				continue
			}
			if (word == "or" || word == "and" || word == "mod") && precedenceAtLeast(keywordPrecedence[word], minPrec) {
				left, err = p.parseKeywordBinary(left, word)
				if err != nil {
					return nil, err
				}
				continue
			}
			break
		}

		prec := p.curPrecedence()
		if prec <= minPrec {
			break
		}
		infix, ok := p.infixFns[p.cur.Kind]
		if !ok {
			break
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func precedenceAtLeast(prec, minPrec int) bool { return prec > minPrec }

// isKeywordOperator reports whether word is only ever a binary
// operator keyword (never a valid primary on its own), so the
// top-of-loop prefix dispatch can reject e.g. a bare "and" at the
// start of an expression with "Syntax error" rather than treating it
// as an identifier lookup.
func (p *Parser) isKeywordOperator(word string) bool {
	switch word {
	case "or", "and", "in", "mod":
		return true
	}
	return false
}

func (p *Parser) parseUnary() (ast.Node, error) {
	opTok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	operand, err := p.parseExpression(unary - 1)
	if err != nil {
		return nil, err
	}
	typ, err := unaryResultType(opTok.Kind, operand.Type())
	if err != nil {
		return nil, p.fail(opTok.Pos, "%s", err.Error())
	}
	return &ast.UnaryOp{Kind: opTok.Kind, Operand: operand, Typ: typ, At: opTok.Pos}, nil
}

func (p *Parser) parseBinary(left ast.Node) (ast.Node, error) {
	opTok := p.cur
	prec := p.curPrecedence()
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return p.buildBinary(opTok.Kind, opTok.Pos, left, right)
}

func (p *Parser) parseKeywordBinary(left ast.Node, word string) (ast.Node, error) {
	opTok := p.cur
	kind := keywordTokenKind(word)
	prec := keywordPrecedence[word]
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return p.buildBinary(kind, opTok.Pos, left, right)
}

// keywordTokenKind maps a word-spelled operator onto the token.Kind
// its symbolic spelling would have produced, so a single signature
// table serves both spellings ("||, or" etc. are aliases).
func keywordTokenKind(word string) token.Kind {
	switch word {
	case "or":
		return token.OR_OR
	case "and":
		return token.AND_AND
	case "mod":
		return token.PERCENT
	}
	return token.ILLEGAL
}

func (p *Parser) parseConditional(test ast.Node) (ast.Node, error) {
	at := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	thenExpr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COLON, "':'"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression(conditional)
	if err != nil {
		return nil, err
	}
	return p.buildConditional(at, test, thenExpr, elseExpr)
}

func (p *Parser) buildConditional(at token.Position, test, thenExpr, elseExpr ast.Node) (ast.Node, error) {
	if test.Type().Kind() != reflect.Bool {
		return nil, p.fail(test.Pos(), "expression of type bool expected")
	}
	resultType := thenExpr.Type()
	if thenExpr.Type() != elseExpr.Type() {
		if promoted, err := promote.Promote(elseExpr, thenExpr.Type(), false, p.promoteCtx()); err == nil {
			elseExpr = promoted
		} else if promoted, err := promote.Promote(thenExpr, elseExpr.Type(), false, p.promoteCtx()); err == nil {
			thenExpr = promoted
			resultType = elseExpr.Type()
		} else {
			return nil, p.fail(at, "incompatible operand types")
		}
	}
	return &ast.Conditional{Test: test, Then: thenExpr, Else: elseExpr, Typ: resultType, At: at}, nil
}
