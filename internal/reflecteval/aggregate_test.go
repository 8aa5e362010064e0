package reflecteval

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/token"
)

func ints(vals ...int32) *ast.Constant {
	return &ast.Constant{Value: vals, Typ: reflect.TypeOf(vals)}
}

// gtPredicate builds a lambda body `it > n` for use as an Aggregate's
// Body, mirroring how nparse.parseAggregate wires a predicate.
func gtPredicate(n int32) *ast.Lambda {
	it := &ast.Parameter{Name: "it", Typ: int32Type}
	return &ast.Lambda{
		Parameters: []*ast.Parameter{it},
		Body: &ast.BinaryOp{
			Kind:  token.GREATER,
			Left:  it,
			Right: &ast.Constant{Value: n, Typ: int32Type},
			Typ:   boolType,
		},
	}
}

func selfSelector() *ast.Lambda {
	it := &ast.Parameter{Name: "it", Typ: int32Type}
	return &ast.Lambda{Parameters: []*ast.Parameter{it}, Body: it}
}

func TestEvalAggregate_Where(t *testing.T) {
	var e Evaluator
	recv := ints(1, 2, 3, 4)
	node := &ast.Aggregate{Receiver: recv, Op: "Where", Body: gtPredicate(2), Typ: reflect.SliceOf(int32Type)}
	v, err := e.Eval(node, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 4}, v.Interface())
}

func TestEvalAggregate_CountWithAndWithoutPredicate(t *testing.T) {
	var e Evaluator
	recv := ints(1, 2, 3, 4)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "Count"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Count", Body: gtPredicate(2)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Interface())
}

func TestEvalAggregate_AnyAll(t *testing.T) {
	var e Evaluator
	recv := ints(1, 2, 3)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "Any", Body: gtPredicate(2)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, true, v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "All", Body: gtPredicate(0)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, true, v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "All", Body: gtPredicate(1)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, false, v.Interface())
}

func TestEvalAggregate_FirstLastSingle(t *testing.T) {
	var e Evaluator
	recv := ints(5, 6, 7)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "First"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(5), v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Last"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(7), v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Single", Body: gtPredicate(6)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(7), v.Interface())

	_, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Single", Body: gtPredicate(5)}, Bindings{})
	assert.Error(t, err, "two elements exceed 5, so Single must fail")

	empty := ints()
	_, err = e.Eval(&ast.Aggregate{Receiver: empty, Op: "First"}, Bindings{})
	assert.Error(t, err)

	v, err = e.Eval(&ast.Aggregate{Receiver: empty, Op: "FirstOrDefault"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(0), v.Interface())
}

func TestEvalAggregate_SumAverage(t *testing.T) {
	var e Evaluator
	recv := ints(1, 2, 3, 4)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "Sum"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(10), v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Average"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, float64(2.5), v.Interface())
}

func TestEvalAggregate_MinMax(t *testing.T) {
	var e Evaluator
	recv := ints(3, 1, 4, 1, 5)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "Min"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Max"}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, int32(5), v.Interface())
}

func TestEvalAggregate_OrderByAndDescending(t *testing.T) {
	var e Evaluator
	recv := ints(3, 1, 2)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "OrderBy", Body: selfSelector(), Typ: reflect.SliceOf(int32Type)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "OrderByDescending", Body: selfSelector(), Typ: reflect.SliceOf(int32Type)}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 2, 1}, v.Interface())
}

func TestEvalAggregate_Contains(t *testing.T) {
	var e Evaluator
	recv := ints(1, 2, 3)

	v, err := e.Eval(&ast.Aggregate{Receiver: recv, Op: "Contains", Args: []ast.Node{&ast.Constant{Value: int32(2), Typ: int32Type}}}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, true, v.Interface())

	v, err = e.Eval(&ast.Aggregate{Receiver: recv, Op: "Contains", Args: []ast.Node{&ast.Constant{Value: int32(9), Typ: int32Type}}}, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, false, v.Interface())
}

func TestEvalAggregate_SelectProjectsElements(t *testing.T) {
	var e Evaluator
	recv := ints(1, 2, 3)
	it := &ast.Parameter{Name: "it", Typ: int32Type}
	double := &ast.Lambda{Parameters: []*ast.Parameter{it}, Body: &ast.BinaryOp{
		Kind:  token.STAR,
		Left:  it,
		Right: &ast.Constant{Value: int32(2), Typ: int32Type},
		Typ:   int32Type,
	}}
	node := &ast.Aggregate{Receiver: recv, Op: "Select", Body: double, Typ: reflect.SliceOf(int32Type)}
	v, err := e.Eval(node, Bindings{})
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 4, 6}, v.Interface())
}
