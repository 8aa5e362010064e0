// Package ast defines the typed expression node variants produced by
// internal/nparse. Every node carries the reflect.Type it evaluates
// to; there are no untyped nodes in a successfully parsed tree.
package ast

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cwbudde/dynexpr/internal/token"
)

// Node is the base interface every expression node implements.
type Node interface {
	// Type is the reflect.Type this node evaluates to. Never nil on a
	// node that survived semantic analysis.
	Type() reflect.Type
	// Pos is the source offset this node was parsed from, for error
	// reporting that outlives the parse (e.g. re-reporting a runtime
	// conversion failure).
	Pos() token.Position
	String() string
}

// Constant is a literal value of a known type: 42, "hi", true, an enum
// member, or the null literal (Value == nil, Type == the nilable
// target type it was promoted to). Text carries the original source
// text for a numeric/string literal (empty for a computed constant),
// since internal/promote re-parses it rather than converting Value
// when narrowing a literal to a smaller target type.
type Constant struct {
	Value any
	Text  string
	Typ   reflect.Type
	At    token.Position
}

// IsLiteral reports whether this constant was parsed directly from
// source text, as opposed to being synthesized during promotion.
func (c *Constant) IsLiteral() bool { return c.Text != "" }

func (c *Constant) Type() reflect.Type  { return c.Typ }
func (c *Constant) Pos() token.Position { return c.At }
func (c *Constant) String() string      { return fmt.Sprintf("%v", c.Value) }

// Parameter is a reference to a named lambda parameter, or to one of
// the it/parent/root scope slots (see internal/nparse's scope model).
type Parameter struct {
	Name string
	Typ  reflect.Type
	At   token.Position
}

func (p *Parameter) Type() reflect.Type  { return p.Typ }
func (p *Parameter) Pos() token.Position { return p.At }
func (p *Parameter) String() string      { return p.Name }

// FieldOrProperty is read-only access to a struct field or a
// zero-argument accessor method on Target.
type FieldOrProperty struct {
	Target Node
	Name   string
	Typ    reflect.Type
	At     token.Position
}

func (f *FieldOrProperty) Type() reflect.Type  { return f.Typ }
func (f *FieldOrProperty) Pos() token.Position { return f.At }
func (f *FieldOrProperty) String() string      { return f.Target.String() + "." + f.Name }

// MethodCall is a call to a resolved method, Receiver == nil for a
// static/free-function candidate.
type MethodCall struct {
	Receiver Node
	Method   reflect.Method
	Args     []Node
	Typ      reflect.Type
	At       token.Position
}

func (m *MethodCall) Type() reflect.Type  { return m.Typ }
func (m *MethodCall) Pos() token.Position { return m.At }
func (m *MethodCall) String() string {
	args := make([]string, len(m.Args))
	for i, a := range m.Args {
		args[i] = a.String()
	}
	recv := ""
	if m.Receiver != nil {
		recv = m.Receiver.String() + "."
	}
	return fmt.Sprintf("%s%s(%s)", recv, m.Method.Name, strings.Join(args, ", "))
}

// BinaryOp is a binary operator application, already resolved to the
// signature selected by internal/overload; Left and Right are the
// promoted operand nodes.
type BinaryOp struct {
	Kind  token.Kind
	Left  Node
	Right Node
	Typ   reflect.Type
	At    token.Position
}

func (b *BinaryOp) Type() reflect.Type  { return b.Typ }
func (b *BinaryOp) Pos() token.Position { return b.At }
func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.Kind.String(), b.Right.String())
}

// UnaryOp is a prefix operator application (-x, !b, not b).
type UnaryOp struct {
	Kind    token.Kind
	Operand Node
	Typ     reflect.Type
	At      token.Position
}

func (u *UnaryOp) Type() reflect.Type  { return u.Typ }
func (u *UnaryOp) Pos() token.Position { return u.At }
func (u *UnaryOp) String() string      { return fmt.Sprintf("(%s%s)", u.Kind.String(), u.Operand.String()) }

// Conditional is test ? then : else, or iif(test, then, else).
type Conditional struct {
	Test Node
	Then Node
	Else Node
	Typ  reflect.Type
	At   token.Position
}

func (c *Conditional) Type() reflect.Type  { return c.Typ }
func (c *Conditional) Pos() token.Position { return c.At }
func (c *Conditional) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", c.Test.String(), c.Then.String(), c.Else.String())
}

// NewObject is Type(args) resolved as a constructor invocation (as
// opposed to an explicit conversion, which is represented by Convert).
type NewObject struct {
	Ctor reflect.Value // func(...) T or func(...) (T, error)
	Args []Node
	Typ  reflect.Type
	At   token.Position
}

func (n *NewObject) Type() reflect.Type  { return n.Typ }
func (n *NewObject) Pos() token.Position { return n.At }
func (n *NewObject) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Typ, strings.Join(args, ", "))
}

// TypeRef is a bare type name used only as the receiver of a static
// member access (e.g. Guid.Parse(...)); it never appears as a final
// parse result on its own.
type TypeRef struct {
	Typ reflect.Type
	At  token.Position
}

func (t *TypeRef) Type() reflect.Type  { return t.Typ }
func (t *TypeRef) Pos() token.Position { return t.At }
func (t *TypeRef) String() string      { return t.Typ.String() }

// Binding is one field of a new(...) anonymous data class.
type Binding struct {
	Name  string
	Value Node
}

// NewAnonymous is new(e1 as p1, e2, ...): construction of a value of
// an anonymous-class-factory-emitted type (internal/anonclass).
type NewAnonymous struct {
	Bindings []Binding
	Typ      reflect.Type
	At       token.Position
}

func (n *NewAnonymous) Type() reflect.Type  { return n.Typ }
func (n *NewAnonymous) Pos() token.Position { return n.At }
func (n *NewAnonymous) String() string {
	parts := make([]string, len(n.Bindings))
	for i, b := range n.Bindings {
		parts[i] = b.Value.String() + " as " + b.Name
	}
	return fmt.Sprintf("new(%s)", strings.Join(parts, ", "))
}

// Invoke is application of a substitution value that is itself a
// lambda: @i(args).
type Invoke struct {
	Lambda Node
	Args   []Node
	Typ    reflect.Type
	At     token.Position
}

func (i *Invoke) Type() reflect.Type  { return i.Typ }
func (i *Invoke) Pos() token.Position { return i.At }
func (i *Invoke) String() string {
	args := make([]string, len(i.Args))
	for j, a := range i.Args {
		args[j] = a.String()
	}
	return fmt.Sprintf("%s(%s)", i.Lambda.String(), strings.Join(args, ", "))
}

// Lambda is a parameterized expression body, used both for top-level
// ParseLambda results and for aggregate-operator argument bodies.
type Lambda struct {
	Parameters []*Parameter
	Body       Node
	At         token.Position
}

// Type of a Lambda is its own func(...) T reflect.Type, synthesized on
// each call via reflect.FuncOf from the parameter types and Body's
// type, since FuncOf's parameter/result lists are only known once Body
// is typed.
func (l *Lambda) Type() reflect.Type {
	in := make([]reflect.Type, len(l.Parameters))
	for i, p := range l.Parameters {
		in[i] = p.Typ
	}
	out := []reflect.Type{l.Body.Type()}
	return reflect.FuncOf(in, out, false)
}
func (l *Lambda) Pos() token.Position { return l.At }
func (l *Lambda) String() string {
	names := make([]string, len(l.Parameters))
	for i, p := range l.Parameters {
		names[i] = p.Name
	}
	return fmt.Sprintf("(%s) => %s", strings.Join(names, ", "), l.Body.String())
}

// Convert is an explicit or implicit conversion of Expr to Target.
// Checked mirrors the host's checked-arithmetic conversion semantics
// (overflow is an error rather than silent truncation), used for the
// explicit-conversion forms.
type Convert struct {
	Expr    Node
	Target  reflect.Type
	Checked bool
	At      token.Position
}

func (c *Convert) Type() reflect.Type  { return c.Target }
func (c *Convert) Pos() token.Position { return c.At }
func (c *Convert) String() string      { return fmt.Sprintf("%s(%s)", c.Target, c.Expr.String()) }

// Ordering is one selector of a ParseOrdering result.
type Ordering struct {
	Selector  Node
	Ascending bool
}

// Aggregate is a sequence-operator call (Where, Select, Any, Count,
// Sum, OrderBy, Contains, ...) over an enumerable Receiver.
// Go's reflect package cannot express the underlying generic
// IEnumerable<T> primitive the host runtime dispatches to, so this is
// a dedicated node rather than a MethodCall: internal/reflecteval
// interprets Op directly against Receiver's runtime slice/iterator
// value. Body is nil for the two-argument Contains form and for
// arity-0 operators (Count, Min, Max, Sum, Average with no selector).
type Aggregate struct {
	Receiver Node
	Op       string
	Body     *Lambda
	Args     []Node // Contains' second argument, or empty
	Typ      reflect.Type
	At       token.Position
}

func (a *Aggregate) Type() reflect.Type  { return a.Typ }
func (a *Aggregate) Pos() token.Position { return a.At }
func (a *Aggregate) String() string {
	if a.Body != nil {
		return fmt.Sprintf("%s.%s(%s)", a.Receiver.String(), a.Op, a.Body.String())
	}
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s.%s(%s)", a.Receiver.String(), a.Op, strings.Join(args, ", "))
}

// Tuple is tuple(e1, ..., eN), lowered to a nested 7-wide
// grouping for N > 7 the way the host's positional tuple type nests.
type Tuple struct {
	Elements []Node
	Typ      reflect.Type
	At       token.Position
}

func (t *Tuple) Type() reflect.Type  { return t.Typ }
func (t *Tuple) Pos() token.Position { return t.At }
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return fmt.Sprintf("tuple(%s)", strings.Join(parts, ", "))
}
