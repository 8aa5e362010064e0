package nparse

import (
	"fmt"
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/overload"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
	"github.com/cwbudde/dynexpr/internal/token"
)

var (
	boolType   = reflect.TypeOf(false)
	stringType = reflect.TypeOf("")
	int32Type  = reflect.TypeOf(int32(0))
	int64Type  = reflect.TypeOf(int64(0))
)

// arithmeticKinds lists the numeric kinds a single arithmetic operand
// can take, narrowest first within each family.
var arithmeticKinds = []reflect.Type{
	reflect.TypeOf(int8(0)), reflect.TypeOf(uint8(0)),
	reflect.TypeOf(int16(0)), reflect.TypeOf(uint16(0)),
	int32Type, reflect.TypeOf(uint32(0)),
	int64Type, reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)), reflect.TypeOf(float64(0)),
}

// integralKinds is arithmeticKinds restricted to integer kinds, the
// set a shift count is allowed to promote to.
var integralKinds = []reflect.Type{
	reflect.TypeOf(int8(0)), reflect.TypeOf(uint8(0)),
	reflect.TypeOf(int16(0)), reflect.TypeOf(uint16(0)),
	int32Type, reflect.TypeOf(uint32(0)),
	int64Type, reflect.TypeOf(uint64(0)),
}

// singleOperandSignatures builds one single-parameter candidate per
// kind, for resolving one operand independently of any other.
func singleOperandSignatures(kinds []reflect.Type) []*overload.Candidate {
	cands := make([]*overload.Candidate, len(kinds))
	for i, k := range kinds {
		cands[i] = &overload.Candidate{Params: []reflect.Type{k}, Tag: k}
	}
	return cands
}

// arithmeticSignatures is the arithmetic (+ - * /) table: each
// candidate takes two operands of the same numeric kind and returns
// that kind. The overload resolver picks the narrowest applicable one
// given the actual operand types.
func arithmeticSignatures() []*overload.Candidate {
	cands := make([]*overload.Candidate, len(arithmeticKinds))
	for i, k := range arithmeticKinds {
		cands[i] = &overload.Candidate{Params: []reflect.Type{k, k}, Tag: k}
	}
	return cands
}

func relationalSignatures() []*overload.Candidate { return arithmeticSignatures() }

func logicalSignatures() []*overload.Candidate {
	return []*overload.Candidate{{Params: []reflect.Type{boolType, boolType}, Tag: boolType}}
}

// buildBinary types a binary-operator application: special cases
// (Guid/string, enum/integer, string concat, shift) are tried first,
// then the matching signature table is resolved via overload.
func (p *Parser) buildBinary(kind token.Kind, at token.Position, left, right ast.Node) (ast.Node, error) {
	if node, handled, err := p.tryGuidStringEquality(kind, at, left, right); handled {
		return node, err
	}
	if node, handled, err := p.tryEnumIntegerCompare(kind, at, left, right); handled {
		return node, err
	}
	if node, handled, err := p.tryStringConcat(kind, at, left, right); handled {
		return node, err
	}
	if node, handled, err := p.tryShift(kind, at, left, right); handled {
		return node, err
	}

	table := p.tableFor(kind)
	args := []ast.Node{left, right}
	res := overload.Resolve(table, args, p.promoteCtx())
	switch res.Count {
	case 0:
		return nil, p.fail(at, "incompatible operand types")
	case 1:
		resultType := operatorResultType(kind, res.Winner.Tag.(reflect.Type))
		return &ast.BinaryOp{Kind: kind, Left: res.Promoted[0], Right: res.Promoted[1], Typ: resultType, At: at}, nil
	default:
		return nil, p.fail(at, "ambiguous operand types")
	}
}

func (p *Parser) tableFor(kind token.Kind) []*overload.Candidate {
	switch kind {
	case token.AND_AND, token.OR_OR:
		return logicalSignatures()
	case token.EQUAL, token.EQ_EQ, token.NOT_EQ, token.NOT_EQ_ALT,
		token.LESS, token.LESS_EQ, token.GREATER, token.GREATER_EQ:
		return relationalSignatures()
	default:
		return arithmeticSignatures()
	}
}

// operatorResultType returns operandType for arithmetic/shift/bitwise
// operators and bool for comparisons/logical operators.
func operatorResultType(kind token.Kind, operandType reflect.Type) reflect.Type {
	switch kind {
	case token.EQUAL, token.EQ_EQ, token.NOT_EQ, token.NOT_EQ_ALT,
		token.LESS, token.LESS_EQ, token.GREATER, token.GREATER_EQ,
		token.AND_AND, token.OR_OR:
		return boolType
	default:
		return operandType
	}
}

// tryGuidStringEquality implements the rule that if one side is
// Guid/Guid? and the other is string, the string is wrapped in a
// runtime Guid.Parse call, applicable only to equality operators.
func (p *Parser) tryGuidStringEquality(kind token.Kind, at token.Position, left, right ast.Node) (ast.Node, bool, error) {
	if kind != token.EQ_EQ && kind != token.EQUAL && kind != token.NOT_EQ && kind != token.NOT_EQ_ALT {
		return nil, false, nil
	}
	lGuid, rGuid := reflecttype.IsGuid(left.Type()), reflecttype.IsGuid(right.Type())
	lStr, rStr := left.Type() == stringType, right.Type() == stringType
	switch {
	case lGuid && rStr:
		right = wrapGuidParse(right)
	case rGuid && lStr:
		left = wrapGuidParse(left)
	default:
		return nil, false, nil
	}
	return &ast.BinaryOp{Kind: kind, Left: left, Right: right, Typ: boolType, At: at}, true, nil
}

// wrapGuidParse represents the runtime Guid.Parse(text) call as a
// Convert node targeting Guid: the conversion rules already recognize
// string->Guid as an explicit conversion, and internal/reflecteval
// performs the actual uuid.Parse at evaluation time.
func wrapGuidParse(n ast.Node) ast.Node {
	return &ast.Convert{Expr: n, Target: reflecttype.GuidType(), Checked: true, At: n.Pos()}
}

// tryEnumIntegerCompare implements the enum/integer coercion rule:
// try promoting either side; if neither promotes, and the other side
// is a constant integer, coerce it to enum. This is an extension of
// the host's enum rules: the constant is retyped as the enum whether
// or not its value names a registered member.
func (p *Parser) tryEnumIntegerCompare(kind token.Kind, at token.Position, left, right ast.Node) (ast.Node, bool, error) {
	isEnum := func(n ast.Node) bool { return p.enums.IsEnum(n.Type()) }
	isIntConst := func(n ast.Node) bool {
		c, ok := n.(*ast.Constant)
		return ok && c != nil && !isEnum(n) && reflecttype.IsInteger(reflecttype.ClassifyNumeric(n.Type()))
	}

	var enumSide, intSide ast.Node
	switch {
	case isEnum(left) && isIntConst(right):
		enumSide, intSide = left, right
	case isEnum(right) && isIntConst(left):
		enumSide, intSide = right, left
	default:
		return nil, false, nil
	}

	c := intSide.(*ast.Constant)
	coerced := &ast.Constant{Value: c.Value, Typ: enumSide.Type(), At: c.At}
	var l, r ast.Node = left, right
	if enumSide == left {
		r = coerced
	} else {
		l = coerced
	}
	node, err := p.buildBinary(kind, at, l, r)
	return node, true, err
}

// tryStringConcat implements the string `+` rule: concatenation is
// triggered whenever either operand is string, boxing the other
// operand via its String() representation first.
func (p *Parser) tryStringConcat(kind token.Kind, at token.Position, left, right ast.Node) (ast.Node, bool, error) {
	if kind != token.PLUS {
		return nil, false, nil
	}
	if left.Type() != stringType && right.Type() != stringType {
		return nil, false, nil
	}
	boxed := func(n ast.Node) ast.Node {
		if n.Type() == stringType {
			return n
		}
		return &ast.Convert{Expr: n, Target: stringType, At: n.Pos()}
	}
	return &ast.BinaryOp{Kind: token.PLUS, Left: boxed(left), Right: boxed(right), Typ: stringType, At: at}, true, nil
}

// tryShift implements shift-operator typing: the left operand resolves
// through the normal arithmetic kinds on its own, while the right
// operand (the shift count) only has to promote to some integral kind
// of its own, independent of whatever kind the left operand picked.
// Routing shift through the two-operand arithmeticSignatures table
// would wrongly force both sides to share one kind.
func (p *Parser) tryShift(kind token.Kind, at token.Position, left, right ast.Node) (ast.Node, bool, error) {
	if kind != token.SHL && kind != token.SHR {
		return nil, false, nil
	}

	leftRes := overload.Resolve(singleOperandSignatures(arithmeticKinds), []ast.Node{left}, p.promoteCtx())
	switch leftRes.Count {
	case 0:
		return nil, true, p.fail(at, "incompatible operand types")
	case 1:
	default:
		return nil, true, p.fail(at, "ambiguous operand types")
	}

	countRes := overload.Resolve(singleOperandSignatures(integralKinds), []ast.Node{right}, p.promoteCtx())
	switch countRes.Count {
	case 0:
		return nil, true, p.fail(at, "incompatible operand types")
	case 1:
	default:
		return nil, true, p.fail(at, "ambiguous operand types")
	}

	resultType := leftRes.Winner.Tag.(reflect.Type)
	return &ast.BinaryOp{Kind: kind, Left: leftRes.Promoted[0], Right: countRes.Promoted[0], Typ: resultType, At: at}, true, nil
}

// unaryResultType types - and !/not. Negation requires a numeric
// operand (result is that same type); logical not requires bool.
func unaryResultType(kind token.Kind, operand reflect.Type) (reflect.Type, error) {
	switch kind {
	case token.MINUS:
		if !reflecttype.IsNumeric(operand) {
			return nil, fmt.Errorf("incompatible operand types")
		}
		return operand, nil
	case token.EXCLAIM:
		if operand != boolType {
			return nil, fmt.Errorf("incompatible operand types")
		}
		return boolType, nil
	}
	return nil, fmt.Errorf("incompatible operand types")
}

// parseIn implements both forms of the `in` operator: a
// parenthesized literal list lowers to a chain of equality ORs; any
// other right-hand side is required to be enumerable and lowers to a
// Contains aggregate call.
func (p *Parser) parseIn(left ast.Node) (ast.Node, error) {
	at := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind == token.LPAREN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var elems []ast.Node
		for p.cur.Kind != token.RPAREN {
			e, err := p.parseExpression(lowest)
			if err != nil {
				return nil, err
			}
			if e.Type() != left.Type() {
				promoted, err := promote.Promote(e, left.Type(), false, p.promoteCtx())
				if err != nil {
					return nil, p.fail(e.Pos(), "incompatible operand types")
				}
				e = promoted
			}
			elems = append(elems, e)
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
		if len(elems) == 0 {
			return &ast.Constant{Value: false, Typ: boolType, At: at}, nil
		}
		result, err := p.buildBinary(token.EQ_EQ, at, left, elems[0])
		if err != nil {
			return nil, err
		}
		for _, e := range elems[1:] {
			eq, err := p.buildBinary(token.EQ_EQ, at, left, e)
			if err != nil {
				return nil, err
			}
			result, err = p.buildBinary(token.OR_OR, at, result, eq)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	container, err := p.parseExpression(inOp)
	if err != nil {
		return nil, err
	}
	if p.host == nil {
		return nil, p.fail(at, "no applicable aggregate")
	}
	if _, ok := p.host.ElementType(container.Type()); !ok {
		return nil, p.fail(at, "no applicable aggregate")
	}
	return &ast.Aggregate{Receiver: container, Op: "Contains", Args: []ast.Node{left}, Typ: boolType, At: at}, nil
}
