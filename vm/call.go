package vm

import (
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/value"
)

// execCall implements OP_CALL/OP_TAIL_CALL(arity). The callee sits on the
// stack below its arity argument values (spec.md §4.6: "popping occurs
// conceptually only on the callee value"); conceptually it's replaced in
// place once the call returns, rather than removed up front, matching the
// classic bytecode-VM call-frame layout (base pointer = first argument's
// stack index, callee's own slot stays put as dead space until return).
func (vm *VM) execCall(arity int, isTail bool) error {
	calleeIdx := vm.stack.len() - 1 - arity
	if calleeIdx < 0 {
		return vm.errf(codeStackUnderflow, "call with fewer than %d argument(s) on the stack", arity)
	}
	callee := vm.stack.data[calleeIdx]

	switch fn := callee.(type) {
	case value.Closure:
		return vm.callClosure(fn, arity, calleeIdx, isTail)
	case value.Builtin:
		return vm.callBuiltin(fn, arity, calleeIdx)
	default:
		return vm.errf(codeNotCallable, "%s is not callable", callee.Kind())
	}
}

func (vm *VM) callClosure(fn value.Closure, arity, calleeIdx int, isTail bool) error {
	proto, ok := fn.Fn.Proto.(*compiler.CompiledFunction)
	if !ok {
		return vm.errf(codeNotCallable, "internal: closure missing its compiled prototype")
	}
	if arity != proto.NumParameters {
		name := fn.Fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		return vm.errf(codeArityMismatch, "%s expects %d argument(s), got %d", name, proto.NumParameters, arity)
	}

	// Tail position, and the callee is a closure with matching arity: reuse
	// the current frame instead of pushing a new one, the mechanism that
	// keeps self-recursive Flux functions in constant stack space. A tail
	// call to a Builtin never reaches here (callBuiltin handles it directly,
	// with no frame to reuse), so this path is only ever taken for Closure
	// callees, matching spec.md §4.6's "otherwise the opcode falls back to a
	// regular call" — the one other case (arity mismatch) already returned above.
	if isTail && len(vm.frames) > 0 {
		frame := vm.currentFrame()
		base := frame.basePointer
		argsStart := calleeIdx + 1
		for i := 0; i < arity; i++ {
			vm.stack.data[base+i] = vm.stack.data[argsStart+i]
		}
		vm.stack.truncate(base + arity)
		for i := 0; i < proto.NumLocals-arity; i++ {
			if err := vm.stack.push(value.Uninit{}); err != nil {
				return err
			}
		}
		frame.cl = fn
		frame.ip = 0
		return nil
	}

	basePointer := calleeIdx + 1
	for i := 0; i < proto.NumLocals-arity; i++ {
		if err := vm.stack.push(value.Uninit{}); err != nil {
			return err
		}
	}
	vm.pushFrame(&Frame{cl: fn, ip: 0, basePointer: basePointer})
	return nil
}

func (vm *VM) callBuiltin(fn value.Builtin, arity, calleeIdx int) error {
	args := make([]value.Value, arity)
	copy(args, vm.stack.data[calleeIdx+1:calleeIdx+1+arity])

	result, err := fn.Fn(args)
	if err != nil {
		return vm.errf(codeBuiltinError, "%s: %v", fn.Name, err)
	}
	vm.stack.truncate(calleeIdx)
	return vm.stack.push(result)
}

// execReturn implements OP_RETURN: pop the return value, tear down the
// current frame (discarding its locals and the dead callee slot below
// them), push the value back for the caller. Whether this unwound past the
// depth the caller (Run's or CallValue's runLoop) is waiting on is the
// caller's own len(vm.frames) check, not this function's concern.
func (vm *VM) execReturn() (value.Value, error) {
	val, ok := vm.stack.pop()
	if !ok {
		return nil, vm.errf(codeStackUnderflow, "return with an empty stack")
	}
	frame := vm.popFrame()
	vm.stack.truncate(frame.basePointer - 1)
	if err := vm.stack.push(val); err != nil {
		return nil, err
	}
	return val, nil
}
