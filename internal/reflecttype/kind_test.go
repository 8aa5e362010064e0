package reflecttype

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClassifyNumeric_UnwrapsNullable(t *testing.T) {
	assert.Equal(t, Int32Kind, ClassifyNumeric(reflect.TypeOf(int32(0))))
	assert.Equal(t, Int32Kind, ClassifyNumeric(reflect.TypeOf(new(int32))))
	assert.Equal(t, NonNumeric, ClassifyNumeric(reflect.TypeOf("")))
	assert.Equal(t, NonNumeric, ClassifyNumeric(nil))
}

func TestSignedUnsignedFloatInteger(t *testing.T) {
	assert.True(t, IsSigned(Int64Kind))
	assert.False(t, IsSigned(Uint64Kind))
	assert.True(t, IsUnsigned(Uint8Kind))
	assert.True(t, IsFloat(Float32Kind))
	assert.True(t, IsInteger(Int16Kind))
	assert.True(t, IsInteger(Uint16Kind))
	assert.False(t, IsInteger(Float64Kind))
}

func TestRank_EqualWidthSignedUnsigned(t *testing.T) {
	assert.Equal(t, Rank(Int32Kind), Rank(Uint32Kind))
	assert.Less(t, Rank(Int16Kind), Rank(Int32Kind))
	assert.Equal(t, 0, Rank(NonNumeric))
}

func TestUnwrap_PointerAndNonPointer(t *testing.T) {
	intType := reflect.TypeOf(0)
	assert.Equal(t, intType, Unwrap(reflect.PtrTo(intType)))
	assert.Equal(t, intType, Unwrap(intType))
}

func TestIsNullable(t *testing.T) {
	intType := reflect.TypeOf(0)
	assert.True(t, IsNullable(reflect.PtrTo(intType)))
	assert.False(t, IsNullable(intType))
	assert.False(t, IsNullable(reflect.PtrTo(reflect.PtrTo(intType))))
}

func TestMakeNullable(t *testing.T) {
	intType := reflect.TypeOf(0)
	nt, ok := MakeNullable(intType)
	assert.True(t, ok)
	assert.Equal(t, reflect.PtrTo(intType), nt)

	_, ok = MakeNullable(reflect.TypeOf(map[string]int{}))
	assert.False(t, ok)

	_, ok = MakeNullable(reflect.PtrTo(intType))
	assert.False(t, ok)
}

func TestGuidType_IsRecognized(t *testing.T) {
	assert.Equal(t, reflect.TypeOf(uuid.UUID{}), GuidType())
	assert.True(t, IsGuid(reflect.TypeOf(uuid.UUID{})))
	assert.True(t, IsGuid(reflect.PtrTo(reflect.TypeOf(uuid.UUID{}))))
	assert.False(t, IsGuid(reflect.TypeOf(0)))
}

func TestRegistry_LookupIncludesGuidAndExtras(t *testing.T) {
	type Widget struct{ Name string }
	r := NewRegistry(map[string]reflect.Type{"Widget": reflect.TypeOf(Widget{})})

	tp, ok := r.Lookup("Guid")
	assert.True(t, ok)
	assert.Equal(t, GuidType(), tp)

	tp, ok = r.Lookup("Widget")
	assert.True(t, ok)
	assert.Equal(t, reflect.TypeOf(Widget{}), tp)

	_, ok = r.Lookup("widget")
	assert.False(t, ok, "lookup is case-sensitive; it matches the registered name exactly")
}
