package nparse

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/overload"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
	"github.com/cwbudde/dynexpr/internal/token"
)

// aggregateOps is the recognized sequence-operator name set,
// case-sensitive per the host's own member-naming convention (the
// identifier resolution order's case-folding applies to *local*
// names, not to member names reflected off a host type).
var aggregateOps = map[string]bool{
	"Where": true, "Any": true, "All": true,
	"First": true, "FirstOrDefault": true,
	"Single": true, "SingleOrDefault": true,
	"Last": true, "LastOrDefault": true,
	"Count": true, "Min": true, "Max": true, "Sum": true, "Average": true,
	"Select": true, "OrderBy": true, "OrderByDescending": true,
	"Contains": true,
}

// arity0Ops take no argument at all.
var arity0Ops = map[string]bool{
	"Count": true, "Min": true, "Max": true, "Sum": true, "Average": true,
	"First": true, "FirstOrDefault": true,
	"Single": true, "SingleOrDefault": true,
	"Last": true, "LastOrDefault": true,
}

func (p *Parser) parseMember(left ast.Node) (ast.Node, error) {
	at := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.IDENT {
		return nil, p.fail(p.cur.Pos, "Syntax error")
	}
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.host != nil && aggregateOps[name] {
		if _, ok := p.host.ElementType(left.Type()); ok {
			return p.parseAggregate(left, name, at)
		}
	}

	if p.cur.Kind == token.LPAREN {
		return p.parseMethodCall(left, name, at)
	}
	return p.resolveMemberOn(left, name, at)
}

// resolveMemberOn looks up name as a field or zero-argument property
// accessor on receiver's type, walking the base/interface closure.
// receiver may itself be a TypeRef, in which case only static
// members are considered.
func (p *Parser) resolveMemberOn(receiver ast.Node, name string, at token.Position) (ast.Node, error) {
	t := receiver.Type()
	static := false
	if tr, ok := receiver.(*ast.TypeRef); ok {
		t = tr.Typ
		static = true
	}

	base := reflecttype.Unwrap(t)
	if f, ok := findField(base, name, map[reflect.Type]bool{}); ok {
		if static {
			return nil, p.fail(at, "property/field not found")
		}
		return &ast.FieldOrProperty{Target: receiver, Name: name, Typ: f, At: at}, nil
	}
	if static {
		return nil, p.fail(at, "property/field not found")
	}
	if m, ok := findZeroArgMethod(base, name, map[reflect.Type]bool{}); ok {
		return &ast.FieldOrProperty{Target: receiver, Name: name, Typ: m.Type.Out(0), At: at}, nil
	}
	return nil, p.fail(at, "property/field not found")
}

// findField resolves name as a struct field on t. reflect.Type's own
// FieldByName already walks anonymous-embedded fields, this module's
// stand-in for the host's base-type chain; interface types
// carry no fields. The visited parameter is unused here and kept only
// so findField and findZeroArgMethod share a signature.
func findField(t reflect.Type, name string, _ map[reflect.Type]bool) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	if f, ok := t.FieldByName(name); ok {
		return f.Type, true
	}
	return nil, false
}

// findZeroArgMethod resolves name as a zero-argument (besides the
// receiver) accessor method. reflect.Type.Method already flattens an
// interface's transitive embedded-interface method set. Go rejects
// recursive interface embedding at compile time, so unlike the host's
// own reflection model, no separate visited-set walk is needed for
// the interface closure here.
func findZeroArgMethod(t reflect.Type, name string, _ map[reflect.Type]bool) (reflect.Method, bool) {
	if t == nil {
		return reflect.Method{}, false
	}
	if t.Kind() != reflect.Interface {
		if m, ok := reflect.PointerTo(t).MethodByName(name); ok && m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
			return m, true
		}
	}
	if m, ok := t.MethodByName(name); ok {
		in := 1
		if t.Kind() == reflect.Interface {
			in = 0
		}
		if m.Type.NumIn() == in && m.Type.NumOut() == 1 {
			return m, true
		}
	}
	return reflect.Method{}, false
}

func (p *Parser) parseIndex(left ast.Node) (ast.Node, error) {
	at := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	index, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBRACK, "']'"); err != nil {
		return nil, err
	}

	t := left.Type()
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		promoted, err := promote.Promote(index, int64Type, false, p.promoteCtx())
		if err != nil {
			return nil, p.fail(index.Pos(), "incompatible operand types")
		}
		return &ast.MethodCall{Receiver: left, Method: reflect.Method{Name: "index"}, Args: []ast.Node{promoted}, Typ: t.Elem(), At: at}, nil
	}

	m, ok := t.MethodByName("Get")
	if !ok {
		return nil, p.fail(at, "no applicable indexer")
	}
	return &ast.MethodCall{Receiver: left, Method: m, Args: []ast.Node{index}, Typ: m.Type.Out(0), At: at}, nil
}

// parseCall handles a bare call on a value that is itself invokable
// (a Parameter/local bound to a func-typed substitution value, a
// dynamic lambda invocation).
func (p *Parser) parseCall(left ast.Node) (ast.Node, error) {
	at := p.cur.Pos
	if left.Type() == nil || left.Type().Kind() != reflect.Func {
		return nil, p.fail(at, "Syntax error")
	}
	return p.parseInvoke(left, at)
}

func (p *Parser) parseMethodCall(receiver ast.Node, name string, at token.Position) (ast.Node, error) {
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}

	t := receiver.Type()
	static := false
	if tr, ok := receiver.(*ast.TypeRef); ok {
		t = tr.Typ
		static = true
	}

	// Guid.Parse(text) is the one built-in static method this module
	// recognizes: the host's uuid.UUID has no such method (it's a
	// package-level function), so it's special-cased
	// here rather than discovered through reflect.Type.Method.
	if static && reflecttype.IsGuid(t) && name == "Parse" && len(args) == 1 {
		return &ast.MethodCall{Method: reflect.Method{Name: "Parse"}, Args: args, Typ: t, At: at}, nil
	}

	candidates := methodCandidates(reflecttype.Unwrap(t), name)
	if len(candidates) == 0 {
		return nil, p.fail(at, "no applicable method")
	}
	res := overload.Resolve(candidates, args, p.promoteCtx())
	switch res.Count {
	case 0:
		return nil, p.fail(at, "no applicable method")
	case 1:
		m := res.Winner.Tag.(reflect.Method)
		var recv ast.Node
		if !static {
			recv = receiver
		}
		return &ast.MethodCall{Receiver: recv, Method: m, Args: res.Promoted, Typ: methodResultType(m), At: at}, nil
	default:
		return nil, p.fail(at, "ambiguous method")
	}
}

func methodResultType(m reflect.Method) reflect.Type {
	if m.Type.NumOut() == 0 {
		return reflect.TypeOf(struct{}{})
	}
	return m.Type.Out(0)
}

func methodCandidates(t reflect.Type, name string) []*overload.Candidate {
	if t == nil {
		return nil
	}
	var cands []*overload.Candidate
	collectMethods(t, name, map[reflect.Type]bool{}, &cands)
	ptrT := reflect.PointerTo(t)
	if t.Kind() != reflect.Interface && t.Kind() != reflect.Ptr {
		collectMethods(ptrT, name, map[reflect.Type]bool{}, &cands)
	}
	return cands
}

func collectMethods(t reflect.Type, name string, visited map[reflect.Type]bool, out *[]*overload.Candidate) {
	if t == nil || visited[t] {
		return
	}
	visited[t] = true
	skip := 0
	if t.Kind() != reflect.Interface {
		skip = 1 // receiver
	}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Name != name {
			continue
		}
		params := make([]reflect.Type, 0, m.Type.NumIn()-skip)
		for j := skip; j < m.Type.NumIn(); j++ {
			params = append(params, m.Type.In(j))
		}
		*out = append(*out, &overload.Candidate{Params: params, Tag: m})
	}
}

// resolveConstructor picks the applicable registered constructor for
// t via the same overload resolver used for method calls.
func (p *Parser) resolveConstructor(t reflect.Type, args []ast.Node) (reflect.Value, bool) {
	fns := p.ctors[t]
	if len(fns) == 0 {
		return reflect.Value{}, false
	}
	cands := make([]*overload.Candidate, len(fns))
	for i, fn := range fns {
		ft := fn.Type()
		params := make([]reflect.Type, ft.NumIn())
		for j := 0; j < ft.NumIn(); j++ {
			params[j] = ft.In(j)
		}
		cands[i] = &overload.Candidate{Params: params, Tag: fn}
	}
	res := overload.Resolve(cands, args, p.promoteCtx())
	if res.Count != 1 {
		return reflect.Value{}, false
	}
	return res.Winner.Tag.(reflect.Value), true
}

// parseAggregate parses a recognized sequence-operator call, shifting
// scope for its lambda-bodied argument.
func (p *Parser) parseAggregate(receiver ast.Node, name string, at token.Position) (ast.Node, error) {
	elem, _ := p.host.ElementType(receiver.Type())

	if name == "Contains" {
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, p.fail(at, "no applicable aggregate")
		}
		promoted, err := promote.Promote(args[0], elem, false, p.promoteCtx())
		if err != nil {
			return nil, p.fail(args[0].Pos(), "incompatible operand types")
		}
		return &ast.Aggregate{Receiver: receiver, Op: name, Args: []ast.Node{promoted}, Typ: boolType, At: at}, nil
	}

	if arity0Ops[name] && p.cur.Kind != token.LPAREN {
		return &ast.Aggregate{Receiver: receiver, Op: name, Typ: aggregateResultType(name, elem, elem), At: at}, nil
	}

	saved := p.sc
	p.sc = p.sc.enterAggregate(elem, int(at))
	defer func() { p.sc = saved }()

	if p.cur.Kind != token.LPAREN {
		return &ast.Aggregate{Receiver: receiver, Op: name, Typ: aggregateResultType(name, elem, elem), At: at}, nil
	}

	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, p.fail(at, "no applicable aggregate")
	}
	body := &ast.Lambda{Parameters: []*ast.Parameter{p.sc.it}, Body: args[0], At: at}
	return &ast.Aggregate{Receiver: receiver, Op: name, Body: body, Typ: aggregateResultType(name, elem, args[0].Type()), At: at}, nil
}

// aggregateResultType returns the result type fed back to the caller:
// bool for Any/All/Contains, a slice of the element type for
// Where/OrderBy/OrderByDescending, a slice of the selector's result
// type for Select, the selector's own result type for Min/Max, int64
// for Count, the element type for the First/Last/Single family, elem
// itself for Sum, and for Average float64 over integer elements or
// elem over floating-point elements.
func aggregateResultType(name string, elem, selectorResult reflect.Type) reflect.Type {
	switch name {
	case "Where", "Select":
		if name == "Select" {
			return reflect.SliceOf(selectorResult)
		}
		return reflect.SliceOf(elem)
	case "Any", "All", "Contains":
		return boolType
	case "Count":
		return int64Type
	case "Min", "Max":
		return selectorResult
	case "Sum":
		return elem
	case "Average":
		if reflecttype.IsInteger(reflecttype.ClassifyNumeric(elem)) {
			return reflect.TypeOf(float64(0))
		}
		return elem
	case "OrderBy", "OrderByDescending":
		return reflect.SliceOf(elem)
	default:
		return elem
	}
}
