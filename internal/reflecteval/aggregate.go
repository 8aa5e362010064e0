package reflecteval

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/cwbudde/dynexpr/internal/ast"
)

// evalAggregate interprets a sequence-operator node by
// iterating the receiver's slice/array value and, for operators
// carrying a lambda body, invoking it per element with a fresh
// it-scoped Bindings (old it shifted to parent, root unchanged).
func (e Evaluator) evalAggregate(n *ast.Aggregate, b Bindings) (reflect.Value, error) {
	recv, err := e.Eval(n.Receiver, b)
	if err != nil {
		return reflect.Value{}, err
	}
	recv = indirect(recv)

	elemBindings := func(elem reflect.Value) Bindings { return b.withIt(elem) }

	predicate := func(elem reflect.Value) (reflect.Value, error) {
		if n.Body == nil {
			return reflect.Value{}, fmt.Errorf("no applicable aggregate")
		}
		return e.Eval(n.Body.Body, elemBindings(elem))
	}

	switch n.Op {
	case "Where":
		out := reflect.MakeSlice(reflect.SliceOf(recv.Type().Elem()), 0, recv.Len())
		for i := 0; i < recv.Len(); i++ {
			elem := recv.Index(i)
			keep, err := predicate(elem)
			if err != nil {
				return reflect.Value{}, err
			}
			if keep.Bool() {
				out = reflect.Append(out, elem)
			}
		}
		return out, nil

	case "Select":
		if recv.Len() == 0 {
			return reflect.MakeSlice(reflect.SliceOf(n.Typ.Elem()), 0, 0), nil
		}
		out := reflect.MakeSlice(reflect.SliceOf(n.Typ.Elem()), 0, recv.Len())
		for i := 0; i < recv.Len(); i++ {
			v, err := predicate(recv.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, v)
		}
		return out, nil

	case "Any":
		if n.Body == nil {
			return reflect.ValueOf(recv.Len() > 0), nil
		}
		for i := 0; i < recv.Len(); i++ {
			keep, err := predicate(recv.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			if keep.Bool() {
				return reflect.ValueOf(true), nil
			}
		}
		return reflect.ValueOf(false), nil

	case "All":
		for i := 0; i < recv.Len(); i++ {
			keep, err := predicate(recv.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			if !keep.Bool() {
				return reflect.ValueOf(false), nil
			}
		}
		return reflect.ValueOf(true), nil

	case "Count":
		if n.Body == nil {
			return reflect.ValueOf(int64(recv.Len())), nil
		}
		count := int64(0)
		for i := 0; i < recv.Len(); i++ {
			keep, err := predicate(recv.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			if keep.Bool() {
				count++
			}
		}
		return reflect.ValueOf(count), nil

	case "First", "FirstOrDefault":
		return firstMatching(recv, predicate, n.Body != nil, n.Op == "FirstOrDefault")

	case "Single", "SingleOrDefault":
		return singleMatching(recv, predicate, n.Body != nil, n.Op == "SingleOrDefault")

	case "Last", "LastOrDefault":
		return lastMatching(recv, predicate, n.Body != nil, n.Op == "LastOrDefault")

	case "Sum", "Average":
		return sumOrAverage(recv, n.Op == "Average")

	case "Min", "Max":
		return minOrMax(recv, predicate, n.Body != nil, n.Op == "Min")

	case "OrderBy", "OrderByDescending":
		return orderBy(recv, predicate, n.Op == "OrderByDescending")

	case "Contains":
		target, err := e.Eval(n.Args[0], b)
		if err != nil {
			return reflect.Value{}, err
		}
		for i := 0; i < recv.Len(); i++ {
			if reflect.DeepEqual(recv.Index(i).Interface(), target.Interface()) {
				return reflect.ValueOf(true), nil
			}
		}
		return reflect.ValueOf(false), nil
	}

	return reflect.Value{}, fmt.Errorf("unsupported aggregate operator %s", n.Op)
}

func firstMatching(recv reflect.Value, pred func(reflect.Value) (reflect.Value, error), hasPred, orDefault bool) (reflect.Value, error) {
	for i := 0; i < recv.Len(); i++ {
		elem := recv.Index(i)
		if !hasPred {
			return elem, nil
		}
		keep, err := pred(elem)
		if err != nil {
			return reflect.Value{}, err
		}
		if keep.Bool() {
			return elem, nil
		}
	}
	if orDefault {
		return reflect.Zero(recv.Type().Elem()), nil
	}
	return reflect.Value{}, fmt.Errorf("sequence contains no matching element")
}

func lastMatching(recv reflect.Value, pred func(reflect.Value) (reflect.Value, error), hasPred, orDefault bool) (reflect.Value, error) {
	for i := recv.Len() - 1; i >= 0; i-- {
		elem := recv.Index(i)
		if !hasPred {
			return elem, nil
		}
		keep, err := pred(elem)
		if err != nil {
			return reflect.Value{}, err
		}
		if keep.Bool() {
			return elem, nil
		}
	}
	if orDefault {
		return reflect.Zero(recv.Type().Elem()), nil
	}
	return reflect.Value{}, fmt.Errorf("sequence contains no matching element")
}

func singleMatching(recv reflect.Value, pred func(reflect.Value) (reflect.Value, error), hasPred, orDefault bool) (reflect.Value, error) {
	found := false
	var result reflect.Value
	for i := 0; i < recv.Len(); i++ {
		elem := recv.Index(i)
		ok := !hasPred
		if hasPred {
			keep, err := pred(elem)
			if err != nil {
				return reflect.Value{}, err
			}
			ok = keep.Bool()
		}
		if ok {
			if found {
				return reflect.Value{}, fmt.Errorf("sequence contains more than one matching element")
			}
			found = true
			result = elem
		}
	}
	if !found {
		if orDefault {
			return reflect.Zero(recv.Type().Elem()), nil
		}
		return reflect.Value{}, fmt.Errorf("sequence contains no matching element")
	}
	return result, nil
}

func sumOrAverage(recv reflect.Value, average bool) (reflect.Value, error) {
	if recv.Len() == 0 {
		return reflect.Zero(recv.Type().Elem()), nil
	}
	elemType := recv.Type().Elem()
	isFloat := elemType.Kind() == reflect.Float32 || elemType.Kind() == reflect.Float64
	if isFloat {
		var sum float64
		for i := 0; i < recv.Len(); i++ {
			sum += recv.Index(i).Float()
		}
		if average {
			sum /= float64(recv.Len())
		}
		return reflect.ValueOf(sum).Convert(elemType), nil
	}
	var sum int64
	for i := 0; i < recv.Len(); i++ {
		sum += recv.Index(i).Int()
	}
	if average {
		return reflect.ValueOf(float64(sum) / float64(recv.Len())), nil
	}
	return reflect.ValueOf(sum).Convert(elemType), nil
}

func minOrMax(recv reflect.Value, pred func(reflect.Value) (reflect.Value, error), hasSelector, min bool) (reflect.Value, error) {
	if recv.Len() == 0 {
		return reflect.Value{}, fmt.Errorf("sequence contains no elements")
	}
	best := recv.Index(0)
	bestKey := best
	if hasSelector {
		k, err := pred(best)
		if err != nil {
			return reflect.Value{}, err
		}
		bestKey = k
	}
	for i := 1; i < recv.Len(); i++ {
		elem := recv.Index(i)
		key := elem
		if hasSelector {
			k, err := pred(elem)
			if err != nil {
				return reflect.Value{}, err
			}
			key = k
		}
		if less(key, bestKey) == min {
			best, bestKey = elem, key
		}
	}
	if hasSelector {
		return bestKey, nil
	}
	return best, nil
}

func orderBy(recv reflect.Value, pred func(reflect.Value) (reflect.Value, error), descending bool) (reflect.Value, error) {
	n := recv.Len()
	indices := make([]int, n)
	keys := make([]reflect.Value, n)
	for i := 0; i < n; i++ {
		k, err := pred(recv.Index(i))
		if err != nil {
			return reflect.Value{}, err
		}
		indices[i] = i
		keys[i] = k
	}
	sort.SliceStable(indices, func(a, b int) bool {
		if descending {
			return less(keys[indices[b]], keys[indices[a]])
		}
		return less(keys[indices[a]], keys[indices[b]])
	})
	out := reflect.MakeSlice(recv.Type(), n, n)
	for i, idx := range indices {
		out.Index(i).Set(recv.Index(idx))
	}
	return out, nil
}

// less compares two scalar reflect.Values of the same kind family:
// numeric by value, string lexically, bool false<true. Used by
// Min/Max/OrderBy and by evalBinary's relational operators.
func less(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.String:
		return a.String() < b.String()
	case reflect.Bool:
		return !a.Bool() && b.Bool()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.Uint() < b.Uint()
	default:
		return false
	}
}
