package builtins

import (
	"fmt"

	"github.com/informatter/flux/gcheap"
	"github.com/informatter/flux/persist"
	"github.com/informatter/flux/value"
)

// Flux's Hash is always a value.Gc handle to a persist HAMT root (execHash,
// vm/containers.go); `hashHandle` is the one place that assumption is
// checked before any hash builtin touches package persist.
func (r *registry) hashHandle(v value.Value, name string) (gcheap.Handle, error) {
	gc, ok := v.(value.Gc)
	if !ok {
		return 0, fmt.Errorf("%s: expected a Hash, got %s", name, v.Kind())
	}
	h := gcheap.Handle(gc.Handle)
	if r.heap.Kind(h) != gcheap.KindHamtNode {
		return 0, fmt.Errorf("%s: expected a Hash, got %s", name, v.Kind())
	}
	return h, nil
}

func (r *registry) eachHash(v value.Value, fn func(value.HashKey, value.Value)) {
	gc, ok := v.(value.Gc)
	if !ok {
		return
	}
	h := gcheap.Handle(gc.Handle)
	if r.heap.Kind(h) != gcheap.KindHamtNode {
		return
	}
	persist.Each(r.heap, h, fn)
}

func hashKeyOf(v value.Value, name string) (value.HashKey, error) {
	key, ok := value.AsHashKey(v)
	if !ok {
		return nil, fmt.Errorf("%s: %s is not a valid hash key", name, v.Kind())
	}
	return key, nil
}

func (r *registry) keys(args []value.Value) (value.Value, error) {
	if err := wantArgs("keys", args, 1); err != nil {
		return nil, err
	}
	h, err := r.hashHandle(args[0], "keys")
	if err != nil {
		return nil, err
	}
	var out []value.Value
	persist.Each(r.heap, h, func(k value.HashKey, _ value.Value) {
		out = append(out, k)
	})
	return r.fromSlice(out), nil
}

func (r *registry) values(args []value.Value) (value.Value, error) {
	if err := wantArgs("values", args, 1); err != nil {
		return nil, err
	}
	h, err := r.hashHandle(args[0], "values")
	if err != nil {
		return nil, err
	}
	var out []value.Value
	persist.Each(r.heap, h, func(_ value.HashKey, v value.Value) {
		out = append(out, v)
	})
	return r.fromSlice(out), nil
}

func (r *registry) has(args []value.Value) (value.Value, error) {
	if err := wantArgs("has", args, 2); err != nil {
		return nil, err
	}
	h, err := r.hashHandle(args[0], "has")
	if err != nil {
		return nil, err
	}
	key, err := hashKeyOf(args[1], "has")
	if err != nil {
		return nil, err
	}
	_, ok := persist.Get(r.heap, h, key)
	return value.Boolean(ok), nil
}

func (r *registry) get(args []value.Value) (value.Value, error) {
	if err := wantArgs("get", args, 2); err != nil {
		return nil, err
	}
	h, err := r.hashHandle(args[0], "get")
	if err != nil {
		return nil, err
	}
	key, err := hashKeyOf(args[1], "get")
	if err != nil {
		return nil, err
	}
	v, ok := persist.Get(r.heap, h, key)
	if !ok {
		return value.None, nil
	}
	return value.Some{Inner: v}, nil
}

func (r *registry) insert(args []value.Value) (value.Value, error) {
	if err := wantArgs("insert", args, 3); err != nil {
		return nil, err
	}
	h, err := r.hashHandle(args[0], "insert")
	if err != nil {
		return nil, err
	}
	key, err := hashKeyOf(args[1], "insert")
	if err != nil {
		return nil, err
	}
	newRoot := persist.Insert(r.heap, h, key, args[2])
	return value.Gc{Handle: uint32(newRoot)}, nil
}

func (r *registry) remove(args []value.Value) (value.Value, error) {
	if err := wantArgs("remove", args, 2); err != nil {
		return nil, err
	}
	h, err := r.hashHandle(args[0], "remove")
	if err != nil {
		return nil, err
	}
	key, err := hashKeyOf(args[1], "remove")
	if err != nil {
		return nil, err
	}
	newRoot := persist.Remove(r.heap, h, key)
	return value.Gc{Handle: uint32(newRoot)}, nil
}

// merge folds every entry of the second Hash into the first, so keys
// present in both end up with the second Hash's value — the usual
// right-biased merge convention.
func (r *registry) merge(args []value.Value) (value.Value, error) {
	if err := wantArgs("merge", args, 2); err != nil {
		return nil, err
	}
	base, err := r.hashHandle(args[0], "merge")
	if err != nil {
		return nil, err
	}
	other, err := r.hashHandle(args[1], "merge")
	if err != nil {
		return nil, err
	}
	result := base
	persist.Each(r.heap, other, func(k value.HashKey, v value.Value) {
		result = persist.Insert(r.heap, result, k, v)
	})
	return value.Gc{Handle: uint32(result)}, nil
}
