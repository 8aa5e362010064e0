package ast

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwbudde/dynexpr/internal/token"
)

func TestConstant_IsLiteral(t *testing.T) {
	lit := &Constant{Value: int32(42), Text: "42", Typ: reflect.TypeOf(int32(0))}
	assert.True(t, lit.IsLiteral())
	assert.Equal(t, "42", lit.String())

	computed := &Constant{Value: int32(42), Typ: reflect.TypeOf(int32(0))}
	assert.False(t, computed.IsLiteral())
}

func TestBinaryOp_String(t *testing.T) {
	left := &Parameter{Name: "x", Typ: reflect.TypeOf(0)}
	right := &Constant{Value: 1, Text: "1", Typ: reflect.TypeOf(0)}
	bin := &BinaryOp{Kind: token.PLUS, Left: left, Right: right, Typ: reflect.TypeOf(0)}
	assert.Equal(t, "(x + 1)", bin.String())
}

func TestFieldOrProperty_String(t *testing.T) {
	target := &Parameter{Name: "it", Typ: reflect.TypeOf(struct{}{})}
	f := &FieldOrProperty{Target: target, Name: "Age", Typ: reflect.TypeOf(0)}
	assert.Equal(t, "it.Age", f.String())
}

func TestLambda_Type_BuildsFuncType(t *testing.T) {
	param := &Parameter{Name: "it", Typ: reflect.TypeOf(0)}
	body := &Constant{Value: true, Typ: reflect.TypeOf(true)}
	lambda := &Lambda{Parameters: []*Parameter{param}, Body: body}

	ft := lambda.Type()
	assert.Equal(t, reflect.Func, ft.Kind())
	assert.Equal(t, 1, ft.NumIn())
	assert.Equal(t, reflect.TypeOf(0), ft.In(0))
	assert.Equal(t, reflect.TypeOf(true), ft.Out(0))
	assert.Equal(t, "(it) => true", lambda.String())
}

func TestAggregate_String_WithAndWithoutBody(t *testing.T) {
	recv := &Parameter{Name: "it", Typ: reflect.TypeOf([]int{})}

	withBody := &Aggregate{
		Receiver: recv, Op: "Where",
		Body: &Lambda{Parameters: []*Parameter{{Name: "x", Typ: reflect.TypeOf(0)}}, Body: &Constant{Value: true, Typ: reflect.TypeOf(true)}},
		Typ:  reflect.TypeOf([]int{}),
	}
	assert.Equal(t, "it.Where((x) => true)", withBody.String())

	noBody := &Aggregate{Receiver: recv, Op: "Count", Typ: reflect.TypeOf(0)}
	assert.Equal(t, "it.Count()", noBody.String())
}

func TestTuple_String(t *testing.T) {
	tup := &Tuple{Elements: []Node{
		&Constant{Value: 1, Text: "1", Typ: reflect.TypeOf(0)},
		&Constant{Value: 2, Text: "2", Typ: reflect.TypeOf(0)},
	}, Typ: reflect.TypeOf(struct{ A, B int }{})}
	assert.Equal(t, "tuple(1, 2)", tup.String())
}
