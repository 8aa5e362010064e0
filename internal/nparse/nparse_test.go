package nparse

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/errs"
	"github.com/cwbudde/dynexpr/internal/token"
)

type sliceHost struct{}

func (sliceHost) ElementType(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Slice {
		return t.Elem(), true
	}
	return nil, false
}

type person struct {
	Name string
	Age  int32
}

func parseOn(t *testing.T, paramType reflect.Type, text string, expected reflect.Type, opts ...Option) ast.Node {
	t.Helper()
	p, err := New(text, nil, opts...)
	require.NoError(t, err)
	param := &ast.Parameter{Name: "", Typ: paramType}
	lambda, err := p.ParseLambda([]*ast.Parameter{param}, expected)
	require.NoError(t, err)
	return lambda.Body
}

func TestParse_SimpleArithmetic(t *testing.T) {
	p, err := New("1 + 2 * 3", nil)
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), node.Type())
	assert.Equal(t, "(1 + (2 * 3))", node.String())
}

func TestParse_UnaryAndComparisons(t *testing.T) {
	p, err := New("-1 < 0", nil)
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(false), node.Type())
}

func TestParse_ShiftCountNeedNotMatchLeftOperandKind(t *testing.T) {
	p, err := New("@0 << @1", []any{int64(1), uint32(4)})
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int64(0)), node.Type())
}

func TestParse_ShiftCountMustBeIntegral(t *testing.T) {
	p, err := New("@0 >> @1", []any{int64(1), "not-a-count"})
	require.NoError(t, err)
	_, err = p.Parse(nil)
	assert.Error(t, err)
}

func TestParse_StringConcatenationBoxesNonString(t *testing.T) {
	p, err := New(`"n=" + 5`, nil)
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(""), node.Type())
}

func TestParse_ConditionalRequiresBoolTest(t *testing.T) {
	p, err := New(`1 ? 2 : 3`, nil)
	require.NoError(t, err)
	_, err = p.Parse(nil)
	assert.Error(t, err)
}

func TestParse_TrailingGarbageIsSyntaxError(t *testing.T) {
	p, err := New("1 + 2 3", nil)
	require.NoError(t, err)
	_, err = p.Parse(nil)
	assert.Error(t, err)
}

func TestParse_UnknownIdentifier(t *testing.T) {
	p, err := New("nosuchname", nil)
	require.NoError(t, err)
	_, err = p.Parse(nil)
	assert.Error(t, err)
}

func TestParseLambda_ImplicitMemberOnIt(t *testing.T) {
	node := parseOn(t, reflect.TypeOf(person{}), "Age > 18", nil)
	assert.Equal(t, reflect.TypeOf(false), node.Type())
}

func TestParseLambda_DistinguishedNameFoldingIsCaseInsensitive(t *testing.T) {
	a := parseOn(t, reflect.TypeOf(person{}), "It.Age", nil)
	b := parseOn(t, reflect.TypeOf(person{}), "IT.Age", nil)
	assert.Equal(t, a.Type(), b.Type())
}

func TestParseLambda_MemberNamesAreCaseSensitive(t *testing.T) {
	p, err := New("it.age", nil)
	require.NoError(t, err)
	param := &ast.Parameter{Name: "", Typ: reflect.TypeOf(person{})}
	_, err = p.ParseLambda([]*ast.Parameter{param}, nil)
	assert.Error(t, err, "field names reflect the host type's exact casing")
}

func TestParseLambda_SigilAliasForIt(t *testing.T) {
	node := parseOn(t, reflect.TypeOf(person{}), "$.Age", nil)
	assert.Equal(t, reflect.TypeOf(int32(0)), node.Type())
}

func TestParse_SubstitutionValue(t *testing.T) {
	p, err := New("@0 + 1", []any{int32(41)})
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), node.Type())
}

func TestParse_ExternalsDictionary(t *testing.T) {
	p, err := New("threshold + 1", []any{map[string]any{"threshold": int32(10)}})
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), node.Type())
}

func TestParseLambda_WhereAggregateOverSlice(t *testing.T) {
	node := parseOn(t, reflect.TypeOf([]person{}), `it.Where(it.Age > 18)`, nil, WithHost(sliceHost{}))
	agg, ok := node.(*ast.Aggregate)
	require.True(t, ok)
	assert.Equal(t, "Where", agg.Op)
	assert.Equal(t, reflect.SliceOf(reflect.TypeOf(person{})), agg.Type())
}

func TestParseLambda_CountTakesNoArguments(t *testing.T) {
	node := parseOn(t, reflect.TypeOf([]person{}), `it.Count`, nil, WithHost(sliceHost{}))
	agg, ok := node.(*ast.Aggregate)
	require.True(t, ok)
	assert.Equal(t, "Count", agg.Op)
	assert.Nil(t, agg.Body)
}

func TestParse_InListLowersToEqualityChain(t *testing.T) {
	p, err := New(`1 in (1, 2, 3)`, nil)
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(false), node.Type())
}

func TestParse_InSequenceRequiresHost(t *testing.T) {
	p, err := New(`1 in it`, []any{})
	require.NoError(t, err)
	param := &ast.Parameter{Name: "", Typ: reflect.TypeOf([]int32{})}
	_, err = p.ParseLambda([]*ast.Parameter{param}, nil)
	assert.Error(t, err, "no host registered means no applicable aggregate")
}

func TestParseOrdering_MultipleSelectorsWithDirection(t *testing.T) {
	p, err := New("Name, Age desc", nil)
	require.NoError(t, err)
	orderings, err := p.ParseOrdering(reflect.TypeOf(person{}))
	require.NoError(t, err)
	require.Len(t, orderings, 2)
	assert.True(t, orderings[0].Ascending)
	assert.False(t, orderings[1].Ascending)
}

func TestParseOrdering_TrailingGarbageRejected(t *testing.T) {
	p, err := New("Name oops", nil)
	require.NoError(t, err)
	_, err = p.ParseOrdering(reflect.TypeOf(person{}))
	assert.Error(t, err)
}

func TestParse_NewAnonymousClass(t *testing.T) {
	node := parseOn(t, reflect.TypeOf(person{}), `new(it.Name as name, it.Age as age)`, nil)
	na, ok := node.(*ast.NewAnonymous)
	require.True(t, ok)
	require.Len(t, na.Bindings, 2)
	assert.Equal(t, "name", na.Bindings[0].Name)
	assert.Equal(t, "age", na.Bindings[1].Name)
}

func TestParse_TupleLiteral(t *testing.T) {
	p, err := New("tuple(1, 2)", nil)
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	tup, ok := node.(*ast.Tuple)
	require.True(t, ok)
	assert.Len(t, tup.Elements, 2)
}

func TestParse_IifEquivalentToTernary(t *testing.T) {
	p, err := New("iif(true, 1, 2)", nil)
	require.NoError(t, err)
	node, err := p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), node.Type())
}

func TestParse_ErrorPositionPointsAtFaultyToken(t *testing.T) {
	p, err := New("1 + ", nil)
	require.NoError(t, err)
	_, err = p.Parse(nil)
	require.Error(t, err)
	var pe *errs.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, token.Position(4), pe.Pos, "the missing operand is the end token at offset 4")
}
