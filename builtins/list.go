package builtins

import (
	"fmt"
	"sort"

	"github.com/informatter/flux/gcheap"
	"github.com/informatter/flux/value"
)

// Flux's list is the cons representation execCons/execConsHead/execConsTail
// already establish (vm/containers.go): value.None terminates it, a
// non-empty list is a value.Gc handle to a gcheap.Cons{Head, Tail}. Every
// list builtin walks or rebuilds that same chain rather than introducing a
// second list shape.

func (r *registry) consHandle(v value.Value) (gcheap.Handle, bool) {
	gc, ok := v.(value.Gc)
	if !ok {
		return 0, false
	}
	h := gcheap.Handle(gc.Handle)
	return h, r.heap.Kind(h) == gcheap.KindCons
}

// toSlice materializes a Flux list into a Go slice, in list order.
func (r *registry) toSlice(v value.Value) ([]value.Value, error) {
	var out []value.Value
	for v.Kind() != value.KindNone {
		h, ok := r.consHandle(v)
		if !ok {
			return nil, fmt.Errorf("expected a list, got %s", v.Kind())
		}
		cell := r.heap.Cons(h)
		head, ok := cell.Head.(value.Value)
		if !ok {
			return nil, fmt.Errorf("internal: cons head is not a value.Value")
		}
		tail, ok := cell.Tail.(value.Value)
		if !ok {
			return nil, fmt.Errorf("internal: cons tail is not a value.Value")
		}
		out = append(out, head)
		v = tail
	}
	return out, nil
}

// fromSlice builds a fresh list from elems, allocating each cons cell from
// the tail backward so the result shares no cells with any input list.
func (r *registry) fromSlice(elems []value.Value) value.Value {
	list := value.Value(value.None)
	for i := len(elems) - 1; i >= 0; i-- {
		h := r.heap.AllocCons(elems[i], list)
		list = value.Gc{Handle: uint32(h)}
	}
	return list
}

func wantArgs(name string, args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func (r *registry) len_(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case value.Str:
		return value.Integer(len([]rune(string(v)))), nil
	case value.Array:
		return value.Integer(len(v.Elements)), nil
	case value.NoneValue:
		return value.Integer(0), nil
	case value.Gc:
		if _, ok := r.consHandle(v); ok {
			elems, err := r.toSlice(v)
			if err != nil {
				return nil, err
			}
			return value.Integer(len(elems)), nil
		}
		count := 0
		r.eachHash(v, func(value.HashKey, value.Value) { count++ })
		return value.Integer(count), nil
	default:
		return nil, fmt.Errorf("len: unsupported argument of kind %s", args[0].Kind())
	}
}

func (r *registry) head(args []value.Value) (value.Value, error) {
	if err := wantArgs("head", args, 1); err != nil {
		return nil, err
	}
	if args[0].Kind() == value.KindNone {
		return value.None, nil
	}
	h, ok := r.consHandle(args[0])
	if !ok {
		return nil, fmt.Errorf("head: expected a list, got %s", args[0].Kind())
	}
	head, ok := r.heap.Cons(h).Head.(value.Value)
	if !ok {
		return nil, fmt.Errorf("internal: cons head is not a value.Value")
	}
	return value.Some{Inner: head}, nil
}

func (r *registry) tail(args []value.Value) (value.Value, error) {
	if err := wantArgs("tail", args, 1); err != nil {
		return nil, err
	}
	if args[0].Kind() == value.KindNone {
		return value.None, nil
	}
	h, ok := r.consHandle(args[0])
	if !ok {
		return nil, fmt.Errorf("tail: expected a list, got %s", args[0].Kind())
	}
	tail, ok := r.heap.Cons(h).Tail.(value.Value)
	if !ok {
		return nil, fmt.Errorf("internal: cons tail is not a value.Value")
	}
	return value.Some{Inner: tail}, nil
}

func (r *registry) append_(args []value.Value) (value.Value, error) {
	if err := wantArgs("append", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	elems = append(elems, args[1])
	return r.fromSlice(elems), nil
}

func (r *registry) prepend(args []value.Value) (value.Value, error) {
	if err := wantArgs("prepend", args, 2); err != nil {
		return nil, err
	}
	if args[0].Kind() != value.KindNone {
		if _, ok := r.consHandle(args[0]); !ok {
			return nil, fmt.Errorf("prepend: expected a list, got %s", args[0].Kind())
		}
	}
	h := r.heap.AllocCons(args[1], args[0])
	return value.Gc{Handle: uint32(h)}, nil
}

func (r *registry) reverse(args []value.Value) (value.Value, error) {
	if err := wantArgs("reverse", args, 1); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	return r.fromSlice(out), nil
}

func (r *registry) callback(fn value.Value, args ...value.Value) (value.Value, error) {
	switch fn.(type) {
	case value.Closure, value.Builtin:
		return r.vm.CallValue(fn, args)
	default:
		return nil, fmt.Errorf("expected a function, got %s", fn.Kind())
	}
}

func (r *registry) map_(args []value.Value) (value.Value, error) {
	if err := wantArgs("map", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		v, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("map: at index %d: %w", i, err)
		}
		out[i] = v
	}
	return r.fromSlice(out), nil
}

func (r *registry) filter(args []value.Value) (value.Value, error) {
	if err := wantArgs("filter", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for i, e := range elems {
		keep, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("filter: at index %d: %w", i, err)
		}
		if value.Truthy(keep) {
			out = append(out, e)
		}
	}
	return r.fromSlice(out), nil
}

func (r *registry) reduce(args []value.Value) (value.Value, error) {
	if err := wantArgs("reduce", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("reduce: cannot reduce an empty list")
	}
	acc := elems[0]
	for i, e := range elems[1:] {
		acc, err = r.callback(args[1], acc, e)
		if err != nil {
			return nil, fmt.Errorf("reduce: at index %d: %w", i+1, err)
		}
	}
	return acc, nil
}

func (r *registry) fold(args []value.Value) (value.Value, error) {
	if err := wantArgs("fold", args, 3); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	acc := args[1]
	for i, e := range elems {
		acc, err = r.callback(args[2], acc, e)
		if err != nil {
			return nil, fmt.Errorf("fold: at index %d: %w", i, err)
		}
	}
	return acc, nil
}

func (r *registry) zip(args []value.Value) (value.Value, error) {
	if err := wantArgs("zip", args, 2); err != nil {
		return nil, err
	}
	a, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	b, err := r.toSlice(args[1])
	if err != nil {
		return nil, err
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		out[i] = value.NewTuple(a[i], b[i])
	}
	return r.fromSlice(out), nil
}

func (r *registry) flatten(args []value.Value) (value.Value, error) {
	if err := wantArgs("flatten", args, 1); err != nil {
		return nil, err
	}
	outer, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for i, inner := range outer {
		elems, err := r.toSlice(inner)
		if err != nil {
			return nil, fmt.Errorf("flatten: element %d is not a list: %w", i, err)
		}
		out = append(out, elems...)
	}
	return r.fromSlice(out), nil
}

func (r *registry) any_(args []value.Value) (value.Value, error) {
	if err := wantArgs("any", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	for i, e := range elems {
		ok, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("any: at index %d: %w", i, err)
		}
		if value.Truthy(ok) {
			return value.Boolean(true), nil
		}
	}
	return value.Boolean(false), nil
}

func (r *registry) all_(args []value.Value) (value.Value, error) {
	if err := wantArgs("all", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	for i, e := range elems {
		ok, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("all: at index %d: %w", i, err)
		}
		if !value.Truthy(ok) {
			return value.Boolean(false), nil
		}
	}
	return value.Boolean(true), nil
}

func (r *registry) find(args []value.Value) (value.Value, error) {
	if err := wantArgs("find", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	for i, e := range elems {
		ok, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("find: at index %d: %w", i, err)
		}
		if value.Truthy(ok) {
			return value.Some{Inner: e}, nil
		}
	}
	return value.None, nil
}

func asInt(v value.Value, name string) (int64, error) {
	i, ok := v.(value.Integer)
	if !ok {
		return 0, fmt.Errorf("%s: expected an Integer, got %s", name, v.Kind())
	}
	return int64(i), nil
}

func (r *registry) take(args []value.Value) (value.Value, error) {
	if err := wantArgs("take", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	n, err := asInt(args[1], "take")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if n > int64(len(elems)) {
		n = int64(len(elems))
	}
	return r.fromSlice(elems[:n]), nil
}

func (r *registry) drop(args []value.Value) (value.Value, error) {
	if err := wantArgs("drop", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	n, err := asInt(args[1], "drop")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if n > int64(len(elems)) {
		n = int64(len(elems))
	}
	return r.fromSlice(elems[n:]), nil
}

func (r *registry) range_(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("range expects 2 arguments, got %d", len(args))
	}
	start, err := asInt(args[0], "range")
	if err != nil {
		return nil, err
	}
	end, err := asInt(args[1], "range")
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for i := start; i < end; i++ {
		out = append(out, value.Integer(i))
	}
	return r.fromSlice(out), nil
}

func (r *registry) sort_(args []value.Value) (value.Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, fmt.Errorf("sort expects 1 or 2 arguments, got %d", len(args))
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(elems))
	copy(out, elems)

	if len(args) == 2 {
		var cbErr error
		sort.SliceStable(out, func(i, j int) bool {
			if cbErr != nil {
				return false
			}
			less, err := r.callback(args[1], out[i], out[j])
			if err != nil {
				cbErr = err
				return false
			}
			return value.Truthy(less)
		})
		if cbErr != nil {
			return nil, fmt.Errorf("sort: comparator: %w", cbErr)
		}
		return r.fromSlice(out), nil
	}

	var lessErr error
	sort.SliceStable(out, func(i, j int) bool {
		ok, err := lessDefault(out[i], out[j])
		if err != nil {
			lessErr = err
			return false
		}
		return ok
	})
	if lessErr != nil {
		return nil, fmt.Errorf("sort: %w", lessErr)
	}
	return r.fromSlice(out), nil
}

// sortBy sorts by comparing a key extracted from each element, rather than
// the elements themselves — `sort` already covers the no-key case.
func (r *registry) sortBy(args []value.Value) (value.Value, error) {
	if err := wantArgs("sort_by", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(elems))
	copy(out, elems)
	keys := make([]value.Value, len(out))
	for i, e := range out {
		k, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("sort_by: at index %d: %w", i, err)
		}
		keys[i] = k
	}
	var sortErr error
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := lessDefault(keys[idx[i]], keys[idx[j]])
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return nil, fmt.Errorf("sort_by: %w", sortErr)
	}
	sorted := make([]value.Value, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return r.fromSlice(sorted), nil
}

// count_ counts the elements satisfying a predicate.
func (r *registry) count_(args []value.Value) (value.Value, error) {
	if err := wantArgs("count", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	n := 0
	for i, e := range elems {
		ok, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("count: at index %d: %w", i, err)
		}
		if value.Truthy(ok) {
			n++
		}
	}
	return value.Integer(n), nil
}

// flatMap maps then flattens in one pass, the comprehension desugaring's
// target for nested generators (`[e | x <- xs, y <- ys]`).
func (r *registry) flatMap(args []value.Value) (value.Value, error) {
	if err := wantArgs("flat_map", args, 2); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for i, e := range elems {
		v, err := r.callback(args[1], e)
		if err != nil {
			return nil, fmt.Errorf("flat_map: at index %d: %w", i, err)
		}
		inner, err := r.toSlice(v)
		if err != nil {
			return nil, fmt.Errorf("flat_map: callback at index %d did not return a list: %w", i, err)
		}
		out = append(out, inner...)
	}
	return r.fromSlice(out), nil
}

// list_ builds a cons list from its arguments directly, `list(1, 2, 3, 4)`.
func (r *registry) list_(args []value.Value) (value.Value, error) {
	return r.fromSlice(args), nil
}

// toList converts an Array into the cons-list representation.
func (r *registry) toList(args []value.Value) (value.Value, error) {
	if err := wantArgs("to_list", args, 1); err != nil {
		return nil, err
	}
	arr, ok := args[0].(value.Array)
	if !ok {
		return nil, fmt.Errorf("to_list: expected an Array, got %s", args[0].Kind())
	}
	return r.fromSlice(arr.Elements), nil
}

// toArray converts a cons list into the Array representation. Round-trips
// with to_list: to_array(to_list(arr)) == arr.
func (r *registry) toArray(args []value.Value) (value.Value, error) {
	if err := wantArgs("to_array", args, 1); err != nil {
		return nil, err
	}
	elems, err := r.toSlice(args[0])
	if err != nil {
		return nil, fmt.Errorf("to_array: %w", err)
	}
	return value.NewArray(elems...), nil
}

// lessDefault orders Integer, Float, and Str values; any other kind (or a
// mismatched pair) is a type error rather than an arbitrary ordering.
func lessDefault(a, b value.Value) (bool, error) {
	switch av := a.(type) {
	case value.Integer:
		bv, ok := b.(value.Integer)
		if !ok {
			return false, fmt.Errorf("cannot compare Integer with %s", b.Kind())
		}
		return av < bv, nil
	case value.Float:
		bv, ok := b.(value.Float)
		if !ok {
			return false, fmt.Errorf("cannot compare Float with %s", b.Kind())
		}
		return av < bv, nil
	case value.Str:
		bv, ok := b.(value.Str)
		if !ok {
			return false, fmt.Errorf("cannot compare String with %s", b.Kind())
		}
		return av < bv, nil
	default:
		return false, fmt.Errorf("sort: unsupported element kind %s (pass a comparator)", a.Kind())
	}
}
