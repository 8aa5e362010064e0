package dynexpr_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/dynexpr/pkg/dynexpr"
)

type Person struct {
	Name string
	Age  int32
}

func TestParse_ArithmeticExpression(t *testing.T) {
	expr, err := dynexpr.Parse(nil, "1 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), expr.Type())

	v, err := expr.Eval(dynexpr.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
}

func TestParse_EmptyTextIsArgumentError(t *testing.T) {
	_, err := dynexpr.Parse(nil, "")
	require.Error(t, err)
	var argErr *dynexpr.ArgumentError
	require.ErrorAs(t, err, &argErr)
}

func TestParse_SyntaxErrorIsParseError(t *testing.T) {
	_, err := dynexpr.Parse(nil, "1 +")
	require.Error(t, err)
	var parseErr *dynexpr.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseExpressionOn_NamedParameter(t *testing.T) {
	expr, err := dynexpr.ParseExpression("p", reflect.TypeOf(Person{}), nil, "p.Age > 18")
	require.NoError(t, err)

	v, err := expr.Eval(dynexpr.Bindings{Locals: map[string]any{"p": Person{Name: "Ada", Age: 36}}})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = expr.Eval(dynexpr.Bindings{Locals: map[string]any{"p": Person{Name: "Kid", Age: 10}}})
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestParseLambda_ImplicitItAndInvoke(t *testing.T) {
	lambda, err := dynexpr.ParseLambda(reflect.TypeOf(Person{}), nil, "Age > 18")
	require.NoError(t, err)

	v, err := lambda.Invoke(Person{Name: "Ada", Age: 36})
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEngine_ParseLambdaParams_NamedParametersInvokeByPosition(t *testing.T) {
	e := dynexpr.New()
	lambda, err := e.ParseLambdaParams(map[string]reflect.Type{
		"n": reflect.TypeOf(int32(0)),
		"s": reflect.TypeOf(""),
	}, nil, "s")
	require.NoError(t, err)

	stringIndex := -1
	ft := lambda.Type()
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i).Kind() == reflect.String {
			stringIndex = i
		}
	}
	require.NotEqual(t, -1, stringIndex)

	args := make([]any, ft.NumIn())
	for i := range args {
		args[i] = int32(0)
	}
	args[stringIndex] = "hello"

	v, err := lambda.Invoke(args...)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestEngine_ParseOrdering(t *testing.T) {
	e := dynexpr.New()
	orderings, err := e.ParseOrdering(reflect.TypeOf(Person{}), "Age desc")
	require.NoError(t, err)
	require.Len(t, orderings, 1)
	assert.False(t, orderings[0].Ascending)
	assert.Equal(t, reflect.TypeOf(int32(0)), orderings[0].Selector.Type())

	v, err := orderings[0].Selector.Eval(dynexpr.Bindings{It: Person{Age: 42}})
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

type color int32

func TestEngine_WithEnumAndWithType(t *testing.T) {
	e := dynexpr.New(
		dynexpr.WithType("Color", reflect.TypeOf(color(0))),
		dynexpr.WithEnum(reflect.TypeOf(color(0)), map[string]int64{"Red": 0, "Green": 1}),
	)
	expr, err := e.Parse(reflect.TypeOf(color(0)), `"Green"`)
	require.NoError(t, err)

	v, err := expr.Eval(dynexpr.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, color(1), v)
}

func TestEngine_WithConstructor(t *testing.T) {
	e := dynexpr.New(
		dynexpr.WithType("Person", reflect.TypeOf(Person{})),
		dynexpr.WithConstructor(reflect.TypeOf(Person{}), func(name string, age int32) Person {
			return Person{Name: name, Age: age}
		}),
	)
	expr, err := e.Parse(nil, `Person("Ada", 36)`)
	require.NoError(t, err)

	v, err := expr.Eval(dynexpr.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, Person{Name: "Ada", Age: 36}, v)
}

func TestParseLambda_WhereAggregateOverSliceOfStructs(t *testing.T) {
	lambda, err := dynexpr.ParseLambda(reflect.TypeOf([]Person{}), nil, "it.Where(it.Age > 18)")
	require.NoError(t, err)

	people := []Person{{Name: "Ada", Age: 36}, {Name: "Kid", Age: 10}}
	v, err := lambda.Invoke(people)
	require.NoError(t, err)
	assert.Equal(t, []Person{{Name: "Ada", Age: 36}}, v)
}
