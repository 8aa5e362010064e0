// Package nparse implements the expression parser and semantic
// analyzer: lexer integration, Pratt-style precedence climbing over
// the query-expression grammar, the it/parent/root scope model,
// special primaries, aggregate-operator dispatch, and ParseOrdering.
// Grounded on internal/parser/parser.go's
// prefixParseFns/infixParseFns dispatch-table idiom and
// internal/parser/expressions.go's precedence-climbing loop,
// generalized from DWScript's statement-and-expression grammar to
// this module's pure-expression grammar with its distinguished
// it/parent/root parameters.
package nparse

import (
	"reflect"

	"github.com/cwbudde/dynexpr/internal/ast"
)

// scope holds the three distinguished parameters (it/parent/root)
// plus the local symbol table in effect at one point during parsing.
// Aggregate bodies push a new scope (new it, old it becomes parent,
// root unchanged) and pop it on return (a save-restore rule).
type scope struct {
	it     *ast.Parameter
	parent *ast.Parameter
	root   *ast.Parameter
	locals map[string]*ast.Parameter
}

func newScope() *scope {
	return &scope{locals: map[string]*ast.Parameter{}}
}

// clone copies the scope's distinguished slots and local table, so a
// nested aggregate body parses against its own mutable copy while the
// parent's scope object is left untouched for restoration.
func (s *scope) clone() *scope {
	locals := make(map[string]*ast.Parameter, len(s.locals))
	for k, v := range s.locals {
		locals[k] = v
	}
	return &scope{it: s.it, parent: s.parent, root: s.root, locals: locals}
}

// enterAggregate returns the scope in effect inside an aggregate
// body whose element type is elemType: new it, old it becomes parent,
// root unchanged (first entry also seeds root from it).
func (s *scope) enterAggregate(elemType reflect.Type, at int) *scope {
	next := s.clone()
	root := s.root
	if root == nil {
		root = s.it
	}
	next.parent = s.it
	next.root = root
	next.it = &ast.Parameter{Name: "it", Typ: elemType}
	return next
}

// sigilAliases maps the sigil spellings of it/parent/root to their
// canonical keyword name (equivalent aliases).
var sigilAliases = map[string]string{
	"$": "it",
	"^": "parent",
	"~": "root",
}

// resolveDistinguished returns the Parameter bound to name if name
// (already case-folded) names it, parent, or root under either
// spelling, and a "no X in scope" style diagnostic name on miss.
func (s *scope) resolveDistinguished(name string) (*ast.Parameter, bool) {
	if canonical, ok := sigilAliases[name]; ok {
		name = canonical
	}
	switch name {
	case "it":
		return s.it, s.it != nil
	case "parent":
		return s.parent, s.parent != nil
	case "root":
		return s.root, s.root != nil
	}
	return nil, false
}
