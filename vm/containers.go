package vm

import (
	"github.com/informatter/flux/gcheap"
	"github.com/informatter/flux/persist"
	"github.com/informatter/flux/value"
)

// popN pops count values off the stack and returns them in the order they
// were originally pushed (the stack holds them with the last-pushed one on
// top, so this reverses what a naive repeated pop would give).
func (vm *VM) popN(count int) ([]value.Value, error) {
	out := make([]value.Value, count)
	for i := count - 1; i >= 0; i-- {
		v, ok := vm.stack.pop()
		if !ok {
			return nil, vm.errf(codeStackUnderflow, "expected %d values on the stack, found fewer", count)
		}
		out[i] = v
	}
	return out, nil
}

func (vm *VM) execArray(count int) error {
	elems, err := vm.popN(count)
	if err != nil {
		return err
	}
	return vm.stack.push(value.NewArray(elems...))
}

func (vm *VM) execTuple(count int) error {
	elems, err := vm.popN(count)
	if err != nil {
		return err
	}
	return vm.stack.push(value.NewTuple(elems...))
}

// execHash builds a persistent HAMT from count (always even: key, value,
// key, value, ...) stack values and pushes a Gc handle to its root node —
// `{}` and every literal Hash in Flux source is backed by package persist,
// never a bare Go map, so structural sharing survives "modifications"
// (insert/remove builtins) without mutating the original.
func (vm *VM) execHash(count int) error {
	items, err := vm.popN(count)
	if err != nil {
		return err
	}
	root := persist.Empty(vm.heap)
	for i := 0; i < len(items); i += 2 {
		key, ok := value.AsHashKey(items[i])
		if !ok {
			return vm.errf(codeBadHashKey, "%s is not a valid hash key", items[i].Kind())
		}
		root = persist.Insert(vm.heap, root, key, items[i+1])
	}
	return vm.stack.push(value.Gc{Handle: uint32(root)})
}

// execCons implements OP_CONS. compileExpr pushes Head then Tail, so the
// stack holds [..., head, tail] with tail on top.
func (vm *VM) execCons() error {
	tail, ok1 := vm.stack.pop()
	head, ok2 := vm.stack.pop()
	if !ok1 || !ok2 {
		return vm.errf(codeStackUnderflow, "cons on an empty stack")
	}
	handle := vm.heap.AllocCons(head, tail)
	return vm.stack.push(value.Gc{Handle: uint32(handle)})
}

func (vm *VM) consHandle(v value.Value) (gcheap.Handle, bool) {
	gc, ok := v.(value.Gc)
	if !ok {
		return 0, false
	}
	handle := gcheap.Handle(gc.Handle)
	return handle, vm.heap.Kind(handle) == gcheap.KindCons
}

func (vm *VM) execIsCons() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_IS_CONS on an empty stack")
	}
	_, isCons := vm.consHandle(v)
	return vm.stack.push(value.Boolean(isCons))
}

func (vm *VM) execConsHead() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_CONS_HEAD on an empty stack")
	}
	handle, isCons := vm.consHandle(v)
	if !isCons {
		return vm.errf(codeTypeMismatch, "cannot take the head of a %s", v.Kind())
	}
	head, ok := vm.heap.Cons(handle).Head.(value.Value)
	if !ok {
		return vm.errf(codeTypeMismatch, "internal: cons head is not a value.Value")
	}
	return vm.stack.push(head)
}

func (vm *VM) execConsTail() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_CONS_TAIL on an empty stack")
	}
	handle, isCons := vm.consHandle(v)
	if !isCons {
		return vm.errf(codeTypeMismatch, "cannot take the tail of a %s", v.Kind())
	}
	tail, ok := vm.heap.Cons(handle).Tail.(value.Value)
	if !ok {
		return vm.errf(codeTypeMismatch, "internal: cons tail is not a value.Value")
	}
	return vm.stack.push(tail)
}

func (vm *VM) execIsEmptyList() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_IS_EMPTY_LIST on an empty stack")
	}
	return vm.stack.push(value.Boolean(v.Kind() == value.KindNone))
}

func (vm *VM) execIsTuple() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_IS_TUPLE on an empty stack")
	}
	return vm.stack.push(value.Boolean(v.Kind() == value.KindTuple))
}

func (vm *VM) execTupleGet(index int) error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_TUPLE_GET on an empty stack")
	}
	tup, ok := v.(value.Tuple)
	if !ok {
		return vm.errf(codeTypeMismatch, "cannot index into a %s as a tuple", v.Kind())
	}
	if index < 0 || index >= len(tup.Elements) {
		return vm.errf(codeIndexOutOfRange, "tuple index %d out of range (len %d)", index, len(tup.Elements))
	}
	return vm.stack.push(tup.Elements[index])
}

func (vm *VM) execSome() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_SOME on an empty stack")
	}
	return vm.stack.push(value.Some{Inner: v})
}

func (vm *VM) execLeft() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_LEFT on an empty stack")
	}
	return vm.stack.push(value.Left{Inner: v})
}

func (vm *VM) execRight() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_RIGHT on an empty stack")
	}
	return vm.stack.push(value.Right{Inner: v})
}

func (vm *VM) execIsSome() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_IS_SOME on an empty stack")
	}
	return vm.stack.push(value.Boolean(v.Kind() == value.KindSome))
}

func (vm *VM) execUnwrapSome() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_UNWRAP_SOME on an empty stack")
	}
	some, ok := v.(value.Some)
	if !ok {
		return vm.errf(codeBadUnwrap, "cannot unwrap a %s as Some", v.Kind())
	}
	return vm.stack.push(some.Inner)
}

func (vm *VM) execIsLeft() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_IS_LEFT on an empty stack")
	}
	return vm.stack.push(value.Boolean(v.Kind() == value.KindLeft))
}

func (vm *VM) execIsRight() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_IS_RIGHT on an empty stack")
	}
	return vm.stack.push(value.Boolean(v.Kind() == value.KindRight))
}

func (vm *VM) execUnwrapEither() error {
	v, ok := vm.stack.pop()
	if !ok {
		return vm.errf(codeStackUnderflow, "OP_UNWRAP_EITHER on an empty stack")
	}
	switch vv := v.(type) {
	case value.Left:
		return vm.stack.push(vv.Inner)
	case value.Right:
		return vm.stack.push(vv.Inner)
	default:
		return vm.errf(codeBadUnwrap, "cannot unwrap a %s as Left/Right", v.Kind())
	}
}

// execIndex implements OP_INDEX. Per the Open Question decision recorded in
// SPEC_FULL.md, both Array and Hash indexing return an Option rather than
// erroring or panicking on a missing key/out-of-range index.
func (vm *VM) execIndex() error {
	idx, ok1 := vm.stack.pop()
	target, ok2 := vm.stack.pop()
	if !ok1 || !ok2 {
		return vm.errf(codeStackUnderflow, "index on an empty stack")
	}
	switch t := target.(type) {
	case value.Array:
		i, ok := idx.(value.Integer)
		if !ok {
			return vm.errf(codeTypeMismatch, "array index must be an Integer, got %s", idx.Kind())
		}
		if int64(i) < 0 || int64(i) >= int64(len(t.Elements)) {
			return vm.stack.push(value.None)
		}
		return vm.stack.push(value.Some{Inner: t.Elements[i]})
	case value.Gc:
		handle := gcheap.Handle(t.Handle)
		if vm.heap.Kind(handle) != gcheap.KindHamtNode {
			return vm.errf(codeTypeMismatch, "cannot index a %s", target.Kind())
		}
		key, ok := value.AsHashKey(idx)
		if !ok {
			return vm.errf(codeBadHashKey, "%s is not a valid hash key", idx.Kind())
		}
		found, ok := persist.Get(vm.heap, handle, key)
		if !ok {
			return vm.stack.push(value.None)
		}
		return vm.stack.push(value.Some{Inner: found})
	default:
		return vm.errf(codeTypeMismatch, "cannot index a %s", target.Kind())
	}
}
