package promote

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/numlit"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
)

func TestImplicitlyConvertible_WideningAndDecimal(t *testing.T) {
	assert.True(t, ImplicitlyConvertible(reflecttype.Int32Kind, reflecttype.Int64Kind))
	assert.True(t, ImplicitlyConvertible(reflecttype.Int32Kind, reflecttype.Float64Kind))
	assert.False(t, ImplicitlyConvertible(reflecttype.Int64Kind, reflecttype.Int32Kind))
	assert.True(t, ImplicitlyConvertible(reflecttype.Int8Kind, reflecttype.DecimalKind))
}

func TestPromote_SameTypeIsIdentity(t *testing.T) {
	expr := &ast.Constant{Value: 1, Typ: reflect.TypeOf(0)}
	got, err := Promote(expr, reflect.TypeOf(0), false, nil)
	require.NoError(t, err)
	assert.Same(t, expr, got)
}

func TestPromote_NullLiteral(t *testing.T) {
	null := &ast.Constant{Value: nil}
	ptrType := reflect.PtrTo(reflect.TypeOf(0))
	null.Typ = nil

	got, err := Promote(null, ptrType, false, nil)
	require.NoError(t, err)
	assert.Equal(t, ptrType, got.Type())

	_, err = Promote(null, reflect.TypeOf(0), false, nil)
	assert.Error(t, err)
}

func TestPromote_NumericWidening(t *testing.T) {
	expr := &ast.Constant{Value: int32(5), Typ: reflect.TypeOf(int32(0))}
	got, err := Promote(expr, reflect.TypeOf(int64(0)), false, nil)
	require.NoError(t, err)
	conv, ok := got.(*ast.Convert)
	require.True(t, ok)
	assert.False(t, conv.Checked)
	assert.Equal(t, reflect.TypeOf(int64(0)), conv.Target)
}

func TestPromote_NarrowingRejectedWithoutExact(t *testing.T) {
	expr := &ast.Constant{Value: int64(5), Typ: reflect.TypeOf(int64(0))}
	_, err := Promote(expr, reflect.TypeOf(int32(0)), false, nil)
	assert.Error(t, err)
}

func TestPromote_NarrowingAllowedWithExact(t *testing.T) {
	expr := &ast.Constant{Value: int64(5), Typ: reflect.TypeOf(int64(0))}
	got, err := Promote(expr, reflect.TypeOf(int32(0)), true, nil)
	require.NoError(t, err)
	conv, ok := got.(*ast.Convert)
	require.True(t, ok)
	assert.True(t, conv.Checked)
}

func TestPromote_LiteralReparseNarrowsInRange(t *testing.T) {
	ctx := &Context{Numbers: numlit.NewDefaultRegistry()}
	lit := &ast.Constant{Value: int32(200), Text: "200", Typ: reflect.TypeOf(int32(0))}

	got, err := Promote(lit, reflect.TypeOf(uint8(0)), false, ctx)
	require.NoError(t, err)
	c, ok := got.(*ast.Constant)
	require.True(t, ok)
	assert.Equal(t, uint8(200), c.Value)
}

func TestPromote_LiteralReparseOutOfRangeFails(t *testing.T) {
	ctx := &Context{Numbers: numlit.NewDefaultRegistry()}
	lit := &ast.Constant{Value: int32(9000), Text: "9000", Typ: reflect.TypeOf(int32(0))}

	_, err := Promote(lit, reflect.TypeOf(uint8(0)), false, ctx)
	assert.Error(t, err)
}

type color int

func TestPromote_StringLiteralToEnumMember(t *testing.T) {
	enums := NewEnumRegistry()
	colorType := reflect.TypeOf(color(0))
	enums.Register(colorType, map[string]int64{"Red": 0, "Green": 1})
	ctx := &Context{Enums: enums}

	lit := &ast.Constant{Value: "green", Text: "green", Typ: reflect.TypeOf("")}
	got, err := Promote(lit, colorType, false, ctx)
	require.NoError(t, err)
	c := got.(*ast.Constant)
	assert.Equal(t, int64(1), c.Value)
}

func TestCoerceGuid(t *testing.T) {
	id, ok := CoerceGuid("22222222-7651-4045-962a-3d44dee71398")
	require.True(t, ok)
	assert.Equal(t, "22222222-7651-4045-962a-3d44dee71398", id.String())

	_, ok = CoerceGuid("not-a-guid")
	assert.False(t, ok)
}

func TestExplicitlyConvertible_GuidStringRoundTrip(t *testing.T) {
	assert.True(t, explicitlyConvertible(reflecttype.GuidType(), reflect.TypeOf("")))
	assert.True(t, explicitlyConvertible(reflect.TypeOf(""), reflecttype.GuidType()))
}
