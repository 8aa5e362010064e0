// Package reflecteval is the one concrete query-provider this module
// ships (an "external collaborator" adapter, instantiated): an
// in-memory tree-walking evaluator over internal/ast nodes, built on
// reflect.Value the same way internal/interp/marshal.go drives value
// conversion at the host FFI boundary. It implements nparse.Host (so
// the parser can recognize slice/array receivers as enumerable) and
// exposes Eval to run a parsed expression against a runtime binding.
package reflecteval

import (
	"fmt"
	"math"
	"reflect"

	"github.com/google/uuid"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
	"github.com/cwbudde/dynexpr/internal/token"
)

// Evaluator runs parsed expression trees against runtime values. The
// zero value is usable.
type Evaluator struct{}

// ElementType implements nparse.Host: a receiver is enumerable here
// iff it is a slice or array, yielding its element type.
func (Evaluator) ElementType(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		return t.Elem(), true
	}
	return nil, false
}

// Bindings supplies the runtime values an evaluation needs beyond the
// expression tree itself: the current it/parent/root values (nil
// Value if not in scope) and named locals.
type Bindings struct {
	It, Parent, Root reflect.Value
	Locals           map[string]reflect.Value
}

func (b Bindings) withIt(v reflect.Value) Bindings {
	return Bindings{It: v, Parent: b.It, Root: firstValid(b.Root, b.It), Locals: b.Locals}
}

func firstValid(candidates ...reflect.Value) reflect.Value {
	for _, c := range candidates {
		if c.IsValid() {
			return c
		}
	}
	return reflect.Value{}
}

// Eval walks node and returns its runtime value.
func (e Evaluator) Eval(node ast.Node, b Bindings) (reflect.Value, error) {
	switch n := node.(type) {
	case *ast.Constant:
		return e.evalConstant(n)
	case *ast.Parameter:
		return e.evalParameter(n, b)
	case *ast.TypeRef:
		return reflect.Value{}, fmt.Errorf("cannot evaluate a bare type reference")
	case *ast.FieldOrProperty:
		return e.evalFieldOrProperty(n, b)
	case *ast.MethodCall:
		return e.evalMethodCall(n, b)
	case *ast.BinaryOp:
		return e.evalBinary(n, b)
	case *ast.UnaryOp:
		return e.evalUnary(n, b)
	case *ast.Conditional:
		return e.evalConditional(n, b)
	case *ast.NewObject:
		return e.evalNewObject(n, b)
	case *ast.NewAnonymous:
		return e.evalNewAnonymous(n, b)
	case *ast.Invoke:
		return e.evalInvoke(n, b)
	case *ast.Lambda:
		return e.makeLambdaValue(n, b), nil
	case *ast.Convert:
		return e.evalConvert(n, b)
	case *ast.Aggregate:
		return e.evalAggregate(n, b)
	case *ast.Tuple:
		return e.evalTuple(n, b)
	}
	return reflect.Value{}, fmt.Errorf("unsupported node %T", node)
}

func (e Evaluator) evalConstant(n *ast.Constant) (reflect.Value, error) {
	if n.Value == nil {
		if n.Typ == nil {
			return reflect.Value{}, nil
		}
		return reflect.Zero(n.Typ), nil
	}
	v := reflect.ValueOf(n.Value)
	if n.Typ != nil && v.Type() != n.Typ && v.Type().ConvertibleTo(n.Typ) {
		return v.Convert(n.Typ), nil
	}
	return v, nil
}

func (e Evaluator) evalParameter(n *ast.Parameter, b Bindings) (reflect.Value, error) {
	switch n.Name {
	case "it", "":
		if !b.It.IsValid() {
			return reflect.Value{}, fmt.Errorf("no it in scope")
		}
		return b.It, nil
	case "parent":
		if !b.Parent.IsValid() {
			return reflect.Value{}, fmt.Errorf("no parent in scope")
		}
		return b.Parent, nil
	case "root":
		if !b.Root.IsValid() {
			return reflect.Value{}, fmt.Errorf("no root in scope")
		}
		return b.Root, nil
	}
	if v, ok := b.Locals[n.Name]; ok {
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("unbound parameter %q", n.Name)
}

func (e Evaluator) evalFieldOrProperty(n *ast.FieldOrProperty, b Bindings) (reflect.Value, error) {
	target, err := e.Eval(n.Target, b)
	if err != nil {
		return reflect.Value{}, err
	}
	target = indirect(target)
	if f := target.FieldByName(n.Name); f.IsValid() {
		return f, nil
	}
	if m := addr(target).MethodByName(n.Name); m.IsValid() {
		out := m.Call(nil)
		return out[0], nil
	}
	return reflect.Value{}, fmt.Errorf("property/field not found: %s", n.Name)
}

func (e Evaluator) evalMethodCall(n *ast.MethodCall, b Bindings) (reflect.Value, error) {
	args, err := e.evalArgs(n.Args, b)
	if err != nil {
		return reflect.Value{}, err
	}
	if n.Method.Name == "index" {
		recv, err := e.Eval(n.Receiver, b)
		if err != nil {
			return reflect.Value{}, err
		}
		return recv.Index(int(args[0].Int())), nil
	}
	if n.Receiver == nil {
		if n.Method.Name == "Parse" && reflecttype.IsGuid(n.Typ) {
			id, err := uuid.Parse(args[0].String())
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(id), nil
		}
		return reflect.Value{}, fmt.Errorf("unsupported static method %s", n.Method.Name)
	}
	recv, err := e.Eval(n.Receiver, b)
	if err != nil {
		return reflect.Value{}, err
	}
	m := addr(recv).MethodByName(n.Method.Name)
	out := m.Call(args)
	if len(out) == 0 {
		return reflect.Value{}, nil
	}
	return out[0], nil
}

func (e Evaluator) evalArgs(nodes []ast.Node, b Bindings) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(nodes))
	for i, a := range nodes {
		v, err := e.Eval(a, b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalBinary interprets a BinaryOp node. By the time nparse builds one,
// both operands have already been promoted (or boxed, for string
// concatenation, or converted, for Guid/enum comparisons) to a common
// type, so this only needs to dispatch on that shared type's kind.
func (e Evaluator) evalBinary(n *ast.BinaryOp, b Bindings) (reflect.Value, error) {
	left, err := e.Eval(n.Left, b)
	if err != nil {
		return reflect.Value{}, err
	}

	switch n.Kind {
	case token.AND_AND:
		if !left.Bool() {
			return reflect.ValueOf(false), nil
		}
		right, err := e.Eval(n.Right, b)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(right.Bool()), nil
	case token.OR_OR:
		if left.Bool() {
			return reflect.ValueOf(true), nil
		}
		right, err := e.Eval(n.Right, b)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(right.Bool()), nil
	}

	right, err := e.Eval(n.Right, b)
	if err != nil {
		return reflect.Value{}, err
	}

	switch n.Kind {
	case token.EQUAL, token.EQ_EQ:
		return reflect.ValueOf(valuesEqual(left, right)), nil
	case token.NOT_EQ, token.NOT_EQ_ALT:
		return reflect.ValueOf(!valuesEqual(left, right)), nil
	case token.LESS:
		return reflect.ValueOf(less(left, right)), nil
	case token.LESS_EQ:
		return reflect.ValueOf(less(left, right) || valuesEqual(left, right)), nil
	case token.GREATER:
		return reflect.ValueOf(!less(left, right) && !valuesEqual(left, right)), nil
	case token.GREATER_EQ:
		return reflect.ValueOf(!less(left, right)), nil
	case token.PLUS:
		if left.Kind() == reflect.String {
			return reflect.ValueOf(left.String() + right.String()).Convert(n.Typ), nil
		}
		return arith(left, right, n.Typ, func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b }, func(a, b uint64) uint64 { return a + b })
	case token.MINUS:
		return arith(left, right, n.Typ, func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b }, func(a, b uint64) uint64 { return a - b })
	case token.STAR:
		return arith(left, right, n.Typ, func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b }, func(a, b uint64) uint64 { return a * b })
	case token.SLASH:
		return arith(left, right, n.Typ, func(a, b float64) float64 { return a / b }, func(a, b int64) int64 { return a / b }, func(a, b uint64) uint64 { return a / b })
	case token.PERCENT:
		return arith(left, right, n.Typ, math.Mod, func(a, b int64) int64 { return a % b }, func(a, b uint64) uint64 { return a % b })
	case token.SHL, token.SHR:
		return shift(n.Kind, left, right, n.Typ)
	}
	return reflect.Value{}, fmt.Errorf("unsupported binary operator %s", n.Kind.String())
}

// shift evaluates << and >>: the left operand keeps its own promoted
// kind (the shift count is not required to share it), so unlike arith
// this reads left and right independently rather than assuming a
// common type.
func shift(kind token.Kind, left, right reflect.Value, target reflect.Type) (reflect.Value, error) {
	targetKind := reflecttype.ClassifyNumeric(target)
	if !reflecttype.IsInteger(targetKind) {
		return reflect.Value{}, fmt.Errorf("shift requires an integral left operand")
	}

	var count uint64
	if reflecttype.IsUnsigned(reflecttype.ClassifyNumeric(right.Type())) {
		count = right.Uint()
	} else {
		count = uint64(right.Int())
	}

	if reflecttype.IsUnsigned(targetKind) {
		v := left.Uint()
		if kind == token.SHL {
			v <<= count
		} else {
			v >>= count
		}
		return reflect.ValueOf(v).Convert(target), nil
	}

	v := left.Int()
	if kind == token.SHL {
		v <<= count
	} else {
		v >>= count
	}
	return reflect.ValueOf(v).Convert(target), nil
}

// valuesEqual compares two operands of identical type using the
// comparison appropriate to their kind (reflect.DeepEqual covers Guid
// and any other comparable struct uniformly).
func valuesEqual(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.Uint() == b.Uint()
	default:
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}

// arith dispatches an arithmetic operator to the float/signed/unsigned
// implementation matching the shared operand type, converting the
// result back to that type.
func arith(a, b reflect.Value, target reflect.Type, onFloat func(float64, float64) float64, onInt func(int64, int64) int64, onUint func(uint64, uint64) uint64) (reflect.Value, error) {
	switch reflecttype.ClassifyNumeric(target) {
	case reflecttype.Float32Kind, reflecttype.Float64Kind:
		return reflect.ValueOf(onFloat(a.Float(), b.Float())).Convert(target), nil
	default:
		if reflecttype.IsUnsigned(reflecttype.ClassifyNumeric(target)) {
			return reflect.ValueOf(onUint(a.Uint(), b.Uint())).Convert(target), nil
		}
		return reflect.ValueOf(onInt(a.Int(), b.Int())).Convert(target), nil
	}
}

func (e Evaluator) evalUnary(n *ast.UnaryOp, b Bindings) (reflect.Value, error) {
	v, err := e.Eval(n.Operand, b)
	if err != nil {
		return reflect.Value{}, err
	}
	switch n.Kind {
	case token.MINUS:
		return negate(v)
	case token.EXCLAIM:
		return reflect.ValueOf(!v.Bool()), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported unary operator")
}

func negate(v reflect.Value) (reflect.Value, error) {
	switch reflecttype.ClassifyNumeric(v.Type()) {
	case reflecttype.Float32Kind, reflecttype.Float64Kind:
		return reflect.ValueOf(-v.Float()).Convert(v.Type()), nil
	default:
		if reflecttype.IsSigned(reflecttype.ClassifyNumeric(v.Type())) {
			return reflect.ValueOf(-v.Int()).Convert(v.Type()), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot negate unsigned value")
	}
}

func (e Evaluator) evalConditional(n *ast.Conditional, b Bindings) (reflect.Value, error) {
	test, err := e.Eval(n.Test, b)
	if err != nil {
		return reflect.Value{}, err
	}
	if test.Bool() {
		return e.Eval(n.Then, b)
	}
	return e.Eval(n.Else, b)
}

func (e Evaluator) evalNewObject(n *ast.NewObject, b Bindings) (reflect.Value, error) {
	args, err := e.evalArgs(n.Args, b)
	if err != nil {
		return reflect.Value{}, err
	}
	out := n.Ctor.Call(args)
	if len(out) > 1 && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	return out[0], nil
}

func (e Evaluator) evalNewAnonymous(n *ast.NewAnonymous, b Bindings) (reflect.Value, error) {
	v := reflect.New(n.Typ).Elem()
	for i, binding := range n.Bindings {
		val, err := e.Eval(binding.Value, b)
		if err != nil {
			return reflect.Value{}, err
		}
		v.Field(i).Set(val.Convert(v.Field(i).Type()))
	}
	return v, nil
}

func (e Evaluator) evalInvoke(n *ast.Invoke, b Bindings) (reflect.Value, error) {
	fn, err := e.Eval(n.Lambda, b)
	if err != nil {
		return reflect.Value{}, err
	}
	args, err := e.evalArgs(n.Args, b)
	if err != nil {
		return reflect.Value{}, err
	}
	out := fn.Call(args)
	return out[0], nil
}

// MakeCallable exposes makeLambdaValue to callers outside this package
// (pkg/dynexpr's Lambda.Invoke) that need to call a parsed lambda as a
// native Go func value without going through Eval's Invoke-node path.
func (e Evaluator) MakeCallable(n *ast.Lambda, b Bindings) reflect.Value {
	return e.makeLambdaValue(n, b)
}

// makeLambdaValue builds a reflect.Value of func(...) T that closes
// over b and evaluates n.Body when called, so a Lambda substitution
// value can be invoked via @i(args) or passed to a query
// provider expecting a native callable.
func (e Evaluator) makeLambdaValue(n *ast.Lambda, b Bindings) reflect.Value {
	ft := n.Type()
	return reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		nb := b
		nb.Locals = map[string]reflect.Value{}
		for k, v := range b.Locals {
			nb.Locals[k] = v
		}
		for i, param := range n.Parameters {
			if param.Name != "" {
				nb.Locals[param.Name] = args[i]
			} else if len(n.Parameters) == 1 {
				nb = nb.withIt(args[0])
			}
		}
		result, err := e.Eval(n.Body, nb)
		if err != nil {
			panic(err)
		}
		return []reflect.Value{result}
	})
}

func (e Evaluator) evalConvert(n *ast.Convert, b Bindings) (reflect.Value, error) {
	v, err := e.Eval(n.Expr, b)
	if err != nil {
		return reflect.Value{}, err
	}
	if reflecttype.IsGuid(n.Target) && v.Kind() == reflect.String {
		id, err := uuid.Parse(v.String())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(id), nil
	}
	if n.Target.Kind() == reflect.String && v.Type() != n.Target {
		return reflect.ValueOf(fmt.Sprintf("%v", v.Interface())), nil
	}
	if v.Type().ConvertibleTo(n.Target) {
		return v.Convert(n.Target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Type(), n.Target)
}

func (e Evaluator) evalTuple(n *ast.Tuple, b Bindings) (reflect.Value, error) {
	values, err := e.evalArgs(n.Elements, b)
	if err != nil {
		return reflect.Value{}, err
	}
	var fill func(t reflect.Type, vals []reflect.Value) reflect.Value
	fill = func(t reflect.Type, vals []reflect.Value) reflect.Value {
		v := reflect.New(t).Elem()
		for i := 0; i < len(vals) && i < 7; i++ {
			v.Field(i).Set(vals[i].Convert(v.Field(i).Type()))
		}
		if len(vals) > 7 {
			v.Field(7).Set(fill(v.Field(7).Type(), vals[7:]))
		}
		return v
	}
	return fill(n.Typ, values), nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v
}

func addr(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr
}
