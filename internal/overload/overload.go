// Package overload implements an overload resolver: applicability
// filtering over a candidate set followed by pairwise
// best-match pruning, deliberately NOT the teacher's summed-distance
// ranking (see DESIGN.md) because a distance sum can pick the wrong
// winner on certain two-conversion-path ties that the pairwise
// "better-or-equal on every argument, strictly better on one"
// tournament resolves correctly. Grounded on the collect-candidates,
// filter-applicable, rank, and report-ambiguous shape of
// internal/semantic/overload_resolution.go's ResolveOverload.
package overload

import (
	"reflect"

	"github.com/samber/lo"

	"github.com/cwbudde/dynexpr/internal/ast"
	"github.com/cwbudde/dynexpr/internal/promote"
	"github.com/cwbudde/dynexpr/internal/reflecttype"
)

// Candidate is one overload member: its parameter types (no variadic
// or out-parameter support) and an opaque Tag the caller uses to
// recover which method/constructor/indexer won.
type Candidate struct {
	Params []reflect.Type
	Tag    any
}

// Result is the outcome of Resolve.
type Result struct {
	Count     int // 0, 1, or >1 (the number the caller reports on ambiguity)
	Winner    *Candidate
	Promoted  []ast.Node // args, replaced with their promoted forms; only meaningful when Count == 1
}

// Resolve filters and ranks candidates against args. ctx supplies the
// literal/enum registries Promote needs; it may be nil.
func Resolve(candidates []*Candidate, args []ast.Node, ctx *promote.Context) Result {
	applicable := lo.Filter(candidates, func(c *Candidate, _ int) bool {
		return isApplicable(c, args, ctx)
	})

	switch len(applicable) {
	case 0:
		return Result{Count: 0}
	case 1:
		return Result{Count: 1, Winner: applicable[0], Promoted: promoteArgs(applicable[0], args, ctx)}
	}

	best := prune(applicable, args)
	switch len(best) {
	case 1:
		return Result{Count: 1, Winner: best[0], Promoted: promoteArgs(best[0], args, ctx)}
	case 0:
		// Every candidate was beaten by some other on at least one
		// argument, with none dominating overall: this is the
		// ambiguous case, reported as the applicable count.
		return Result{Count: len(applicable)}
	default:
		return Result{Count: len(best)}
	}
}

func isApplicable(c *Candidate, args []ast.Node, ctx *promote.Context) bool {
	if len(c.Params) != len(args) {
		return false
	}
	for i, p := range c.Params {
		if _, err := promote.Promote(args[i], p, false, ctx); err != nil {
			return false
		}
	}
	return true
}

func promoteArgs(c *Candidate, args []ast.Node, ctx *promote.Context) []ast.Node {
	out := make([]ast.Node, len(args))
	for i, p := range c.Params {
		promoted, err := promote.Promote(args[i], p, false, ctx)
		if err != nil {
			// isApplicable already proved this succeeds; unreachable
			// unless args/ctx changed between calls.
			out[i] = args[i]
			continue
		}
		out[i] = promoted
	}
	return out
}

// prune keeps candidates m such that, for every other candidate n, m
// is better-or-equal to n on every argument and strictly better on at
// least one. A candidate that fails to dominate even one other
// candidate is dropped, so the result is empty when no single
// candidate beats all the rest.
func prune(applicable []*Candidate, args []ast.Node) []*Candidate {
	var survivors []*Candidate
	for i, m := range applicable {
		beatsAll := true
		for j, n := range applicable {
			if i != j && !dominates(m, n, args) {
				beatsAll = false
				break
			}
		}
		if beatsAll {
			survivors = append(survivors, m)
		}
	}
	return survivors
}

// dominates reports whether m is better-than-or-equal to n on every
// argument type and strictly better on at least one.
func dominates(m, n *Candidate, args []ast.Node) bool {
	strictlyBetterSomewhere := false
	for i, arg := range args {
		cmp := better(arg.Type(), m.Params[i], n.Params[i])
		if cmp < 0 {
			return false // n is better on this argument: m does not dominate
		}
		if cmp > 0 {
			strictlyBetterSomewhere = true
		}
	}
	return strictlyBetterSomewhere
}

// better compares target types t1, t2 for source type s. Returns 1 if
// t1 is preferred, -1 if t2 is preferred, 0 on a tie.
func better(s, t1, t2 reflect.Type) int {
	if t1 == t2 {
		return 0
	}
	if s == t1 {
		return 1
	}
	if s == t2 {
		return -1
	}

	t1FromT2 := convertibleOneWay(t2, t1)
	t2FromT1 := convertibleOneWay(t1, t2)
	if t1FromT2 && !t2FromT1 {
		// t1 is reachable from t2 but not vice versa: t1 is the wider
		// type, so t2 (the narrower one) is preferred.
		return -1
	}
	if t2FromT1 && !t1FromT2 {
		return 1
	}

	k1, k2 := reflecttype.ClassifyNumeric(t1), reflecttype.ClassifyNumeric(t2)
	if k1 != reflecttype.NonNumeric && k2 != reflecttype.NonNumeric && reflecttype.Rank(k1) == reflecttype.Rank(k2) {
		if reflecttype.IsSigned(k1) && reflecttype.IsUnsigned(k2) {
			return 1
		}
		if reflecttype.IsUnsigned(k1) && reflecttype.IsSigned(k2) {
			return -1
		}
	}

	return 0
}

// convertibleOneWay reports whether a value of type from implicitly
// converts to to, used only to test the asymmetric-convertibility
// relation between two candidate target types (not to test an
// argument's own applicability, which uses promote.Promote directly).
func convertibleOneWay(from, to reflect.Type) bool {
	kf, kt := reflecttype.ClassifyNumeric(from), reflecttype.ClassifyNumeric(to)
	if kf != reflecttype.NonNumeric && kt != reflecttype.NonNumeric {
		return promote.ImplicitlyConvertible(kf, kt)
	}
	return from.AssignableTo(to)
}
