// Package vm is the stack-based bytecode interpreter: it executes a
// compiler.Bytecode program to completion, managing the operand stack, the
// call-frame stack, the globals vector, and the explicit GC heap (package
// gcheap) those opcodes allocate into.
//
// This file replaces the teacher's original vm.go, a two-opcode
// (OP_CONSTANT, OP_END) placeholder over a `[]any` Stack and a bare
// instruction-pointer loop. Its successor here generalizes that loop to the
// full opcode set in compiler/code.go, adds the call-frame stack needed for
// closures and recursion, and reports errors as structured
// diagnostics.Diagnostic (vm/errors.go) instead of a bare fmt.Errorf.
package vm

import (
	"io"
	"os"

	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/gcheap"
	"github.com/informatter/flux/value"
)

// VM is the runtime environment bytecode executes in. One VM instance owns
// its stack, frames, globals, and heap exclusively — per spec.md §5 there is
// no locking, because Flux's execution model is single-threaded.
type VM struct {
	file string

	stack   *Stack
	frames  []*Frame
	globals []value.Value

	constants []any // the running program's constant pool; set once by Run

	builtins []value.Value
	heap     *gcheap.Heap

	stdout io.Writer
}

// New constructs a VM for a given source file name (used only for
// diagnostics spans) and the GC heap's enable flag and initial adaptive
// threshold (config.Config.GCEnabled / GCInitialThreshold). The builtin
// table isn't supplied here: package builtins' constructors close over the
// VM's heap (list/hash builtins allocate cons cells and HAMT nodes through
// it), so callers build it from Heap() after New returns and install it
// with SetBuiltins — see cmd_run.go/cmd_repl.go for the two-step wiring.
func New(file string, gcEnabled bool, gcThreshold int) *VM {
	vm := &VM{
		file:   file,
		stack:  newStack(),
		stdout: os.Stdout,
	}
	vm.heap = gcheap.New(gcThreshold, gcEnabled, vm.collectRoots)
	return vm
}

// SetStdout redirects OP_PRINT's output — used by the REPL (which writes
// through a liner-aware writer) and by tests.
func (vm *VM) SetStdout(w io.Writer) {
	vm.stdout = w
}

// SetBuiltins installs the builtin table OP_GET_BUILTIN indexes into, in
// the exact order compiler.BuiltinNames() resolved at compile time.
func (vm *VM) SetBuiltins(builtins []value.Value) {
	vm.builtins = builtins
}

// Heap exposes the VM's GC heap, so builtins that allocate cons cells or
// HAMT nodes (the list/hash builtins in package builtins) share the same
// heap the compiled opcodes use.
func (vm *VM) Heap() *gcheap.Heap {
	return vm.heap
}

// Stdout exposes the writer OP_PRINT writes through, so the print/println
// builtins produce output on the same stream instead of each opening its own
// path to os.Stdout.
func (vm *VM) Stdout() io.Writer {
	return vm.stdout
}

// collectRoots is gcheap's roots callback: every Value reachable from the
// live operand stack (which holds every frame's locals inline, since a
// Frame's basePointer just indexes into it), the globals vector, and each
// active frame's captured free variables (held on the Frame, not the
// stack, once its closure's own slot is gone).
func (vm *VM) collectRoots() []gcheap.Handle {
	var out []gcheap.Handle
	for _, v := range vm.stack.data {
		if v == nil {
			continue
		}
		out = append(out, value.GCChildren(v)...)
	}
	for _, g := range vm.globals {
		if g == nil {
			continue
		}
		out = append(out, value.GCChildren(g)...)
	}
	for _, f := range vm.frames {
		out = append(out, value.GCChildren(f.cl)...)
	}
	return out
}

func (vm *VM) topOrNone() value.Value {
	if v, ok := vm.stack.peek(); ok {
		return v
	}
	return value.None
}

func (vm *VM) setGlobal(idx int, v value.Value) {
	for len(vm.globals) <= idx {
		vm.globals = append(vm.globals, value.Uninit{})
	}
	vm.globals[idx] = v
}

func (vm *VM) getGlobal(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(vm.globals) {
		return nil, vm.errf(codeUnknownGlobal, "global %d is not defined", idx)
	}
	v := vm.globals[idx]
	if _, ok := v.(value.Uninit); ok {
		return nil, vm.errf(codeUninitLocal, "global %d read before its 'let' ran", idx)
	}
	return v, nil
}

func (vm *VM) getLocal(frame *Frame, idx int) (value.Value, error) {
	slot := frame.basePointer + idx
	if slot < 0 || slot >= vm.stack.len() {
		return nil, vm.errf(codeStackUnderflow, "local slot %d out of range", idx)
	}
	v := vm.stack.data[slot]
	if _, ok := v.(value.Uninit); ok {
		return nil, vm.errf(codeUninitLocal, "local %d read before its 'let' ran", idx)
	}
	return v, nil
}

func (vm *VM) setLocal(frame *Frame, idx int, v value.Value) {
	vm.stack.data[frame.basePointer+idx] = v
}

func constantAsValue(raw any) (value.Value, bool) {
	switch v := raw.(type) {
	case int64:
		return value.Integer(v), true
	case float64:
		return value.Float(v), true
	case bool:
		return value.Boolean(v), true
	case string:
		return value.Str(v), true
	default:
		return nil, false
	}
}

// Run executes bytecode to completion and returns the program's result: the
// value of the last top-level expression statement, or value.None when the
// last top-level statement is a binding or declaration. Every top-level
// statement pops its own value, so the operand stack is empty at OP_END;
// bytecode that leaves a value there instead returns that value. A stack
// overflow is reported as a structured E1009 Diagnostic.
func (vm *VM) Run(bytecode compiler.Bytecode) (value.Value, error) {
	main := &compiler.CompiledFunction{Instructions: bytecode.Instructions, Name: "main"}
	vm.constants = bytecode.ConstantsPool
	vm.frames = []*Frame{{cl: value.Closure{Fn: value.Function{Proto: main, Name: "main"}}}}
	result, err := vm.runLoop(0)
	return result, vm.wrapOverflow(err)
}

// CallValue invokes fn (a Closure or Builtin) with args and runs it to
// completion, reentering the dispatch loop if fn is a Closure. This is how
// higher-order builtins (map, filter, reduce, ...) in package builtins
// invoke a callback Value handed to them — they only ever see a
// *VM through their constructor closure, never the bytecode.Bytecode that
// produced the program, so CallValue (not Run) is their entry point.
func (vm *VM) CallValue(fn value.Value, args []value.Value) (value.Value, error) {
	depthBefore := len(vm.frames)
	if err := vm.stack.push(fn); err != nil {
		return nil, vm.wrapOverflow(err)
	}
	for _, a := range args {
		if err := vm.stack.push(a); err != nil {
			return nil, vm.wrapOverflow(err)
		}
	}
	if err := vm.execCall(len(args), false); err != nil {
		return nil, err
	}
	if len(vm.frames) > depthBefore {
		if _, err := vm.runLoop(depthBefore); err != nil {
			return nil, err
		}
	}
	v, ok := vm.stack.pop()
	if !ok {
		return nil, vm.errf(codeStackUnderflow, "callback produced no result")
	}
	return v, nil
}

// runLoop is the fetch-decode-dispatch loop. It runs until either OP_END is
// reached (only ever true for the outermost Run call — function bodies
// compile to OP_RETURN, never OP_END) or an OP_RETURN pops the frame stack
// back down to stopDepth (the depth CallValue captured before pushing the
// call it's waiting on).
func (vm *VM) runLoop(stopDepth int) (value.Value, error) {
	// lastPopped is the value most recently discarded by a top-level
	// (outermost frame) OP_POP: the program's result at OP_END.
	var lastPopped value.Value = value.None
	for {
		frame := vm.currentFrame()
		ins := frame.instructions()
		if frame.ip >= len(ins) {
			return nil, vm.errf(codeUnknownOpcode, "ran off the end of the instruction stream")
		}

		op := compiler.Opcode(ins[frame.ip])
		def, err := compiler.Get(op)
		if err != nil {
			return nil, vm.errf(codeUnknownOpcode, "unknown opcode %d at ip %d", op, frame.ip)
		}
		width := 0
		for _, w := range def.OperandWidths {
			width += w
		}
		opStart := frame.ip
		frame.ip += 1 + width

		switch op {
		case compiler.OP_END:
			if vm.stack.len() == 0 {
				return lastPopped, nil
			}
			return vm.topOrNone(), nil

		case compiler.OP_CONSTANT, compiler.OP_CONSTANT_LONG:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			if op == compiler.OP_CONSTANT_LONG {
				idx = int(compiler.ReadUint32(ins, opStart+1))
			}
			if idx < 0 || idx >= len(vm.constants) {
				return nil, vm.errf(codeUnknownOpcode, "constant index %d out of range", idx)
			}
			v, ok := constantAsValue(vm.constants[idx])
			if !ok {
				return nil, vm.errf(codeTypeMismatch, "internal: unexpected constant type %T", vm.constants[idx])
			}
			if err := vm.stack.push(v); err != nil {
				return nil, vm.wrapOverflow(err)
			}

		case compiler.OP_POP:
			v, ok := vm.stack.pop()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_POP on an empty stack")
			}
			if len(vm.frames) == 1 {
				lastPopped = v
			}

		case compiler.OP_DUP:
			v, ok := vm.stack.peek()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_DUP on an empty stack")
			}
			if err := vm.stack.push(v); err != nil {
				return nil, vm.wrapOverflow(err)
			}

		case compiler.OP_ADD, compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE, compiler.OP_MODULO:
			if err := vm.execBinaryArith(op); err != nil {
				return nil, err
			}

		case compiler.OP_NEGATE:
			v, ok := vm.stack.pop()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_NEGATE on an empty stack")
			}
			switch n := v.(type) {
			case value.Integer:
				if err := vm.stack.push(-n); err != nil {
					return nil, err
				}
			case value.Float:
				if err := vm.stack.push(-n); err != nil {
					return nil, err
				}
			default:
				return nil, vm.errf(codeTypeMismatch, "cannot negate a %s", v.Kind())
			}

		case compiler.OP_NOT:
			v, ok := vm.stack.pop()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_NOT on an empty stack")
			}
			if err := vm.stack.push(value.Boolean(!value.Truthy(v))); err != nil {
				return nil, err
			}

		case compiler.OP_EQUALITY, compiler.OP_NOT_EQUAL, compiler.OP_LARGER, compiler.OP_LARGER_EQUAL, compiler.OP_LESS, compiler.OP_LESS_EQUAL:
			if err := vm.execCompare(op); err != nil {
				return nil, err
			}

		// OP_AND/OP_OR are defined in the opcode table but the compiler
		// always lowers `and`/`or` to short-circuiting jumps instead
		// (compileLogical); handled here only so a well-formed instruction
		// stream containing one doesn't hit OP_RETURN's "unhandled opcode"
		// default. Eager, Python-style: yields whichever operand decided it.
		case compiler.OP_AND:
			b, ok1 := vm.stack.pop()
			a, ok2 := vm.stack.pop()
			if !ok1 || !ok2 {
				return nil, vm.errf(codeStackUnderflow, "'and' on an empty stack")
			}
			if !value.Truthy(a) {
				if err := vm.stack.push(a); err != nil {
					return nil, err
				}
			} else if err := vm.stack.push(b); err != nil {
				return nil, err
			}
		case compiler.OP_OR:
			b, ok1 := vm.stack.pop()
			a, ok2 := vm.stack.pop()
			if !ok1 || !ok2 {
				return nil, vm.errf(codeStackUnderflow, "'or' on an empty stack")
			}
			if value.Truthy(a) {
				if err := vm.stack.push(a); err != nil {
					return nil, err
				}
			} else if err := vm.stack.push(b); err != nil {
				return nil, err
			}

		case compiler.OP_JUMP:
			target := int(compiler.ReadUint16(ins, opStart+1))
			frame.ip = target

		case compiler.OP_JUMP_IF_FALSE:
			target := int(compiler.ReadUint16(ins, opStart+1))
			v, ok := vm.stack.peek()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_JUMP_IF_FALSE on an empty stack")
			}
			if !value.Truthy(v) {
				frame.ip = target
			}

		case compiler.OP_JUMP_IF_TRUE:
			target := int(compiler.ReadUint16(ins, opStart+1))
			v, ok := vm.stack.peek()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_JUMP_IF_TRUE on an empty stack")
			}
			if value.Truthy(v) {
				frame.ip = target
			}

		case compiler.OP_SET_GLOBAL:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			v, ok := vm.stack.pop()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_SET_GLOBAL on an empty stack")
			}
			vm.setGlobal(idx, v)
			lastPopped = value.None

		case compiler.OP_GET_GLOBAL:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			v, err := vm.getGlobal(idx)
			if err != nil {
				return nil, err
			}
			if err := vm.stack.push(v); err != nil {
				return nil, err
			}

		case compiler.OP_SET_LOCAL:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			v, ok := vm.stack.pop()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_SET_LOCAL on an empty stack")
			}
			vm.setLocal(frame, idx, v)

		case compiler.OP_GET_LOCAL:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			v, err := vm.getLocal(frame, idx)
			if err != nil {
				return nil, err
			}
			if err := vm.stack.push(v); err != nil {
				return nil, err
			}

		case compiler.OP_GET_FREE:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			if idx < 0 || idx >= len(frame.cl.Free) {
				return nil, vm.errf(codeUnknownFree, "free variable %d out of range", idx)
			}
			if err := vm.stack.push(frame.cl.Free[idx]); err != nil {
				return nil, err
			}

		case compiler.OP_GET_BUILTIN:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			if idx < 0 || idx >= len(vm.builtins) {
				return nil, vm.errf(codeUnknownBuiltin, "builtin %d out of range", idx)
			}
			if err := vm.stack.push(vm.builtins[idx]); err != nil {
				return nil, err
			}

		case compiler.OP_CURRENT_CLOSURE:
			if err := vm.stack.push(frame.cl); err != nil {
				return nil, err
			}

		case compiler.OP_CLOSURE, compiler.OP_CLOSURE_LONG:
			var constIdx, numFree int
			if op == compiler.OP_CLOSURE {
				constIdx = int(compiler.ReadUint16(ins, opStart+1))
				numFree = int(ins[opStart+3])
			} else {
				constIdx = int(compiler.ReadUint32(ins, opStart+1))
				numFree = int(ins[opStart+5])
			}
			if constIdx < 0 || constIdx >= len(vm.constants) {
				return nil, vm.errf(codeUnknownOpcode, "closure constant index %d out of range", constIdx)
			}
			proto, ok := vm.constants[constIdx].(compiler.CompiledFunction)
			if !ok {
				return nil, vm.errf(codeTypeMismatch, "internal: constant %d is not a compiled function", constIdx)
			}
			free := make([]value.Value, numFree)
			for i := numFree - 1; i >= 0; i-- {
				v, ok := vm.stack.pop()
				if !ok {
					return nil, vm.errf(codeStackUnderflow, "closure capture %d missing from the stack", i)
				}
				free[i] = v
			}
			protoCopy := proto
			cl := value.Closure{Fn: value.Function{Proto: &protoCopy, Name: proto.Name}, Free: free}
			if err := vm.stack.push(cl); err != nil {
				return nil, err
			}

		case compiler.OP_CALL:
			arity := int(compiler.ReadUint16(ins, opStart+1))
			if err := vm.execCall(arity, false); err != nil {
				return nil, err
			}

		case compiler.OP_TAIL_CALL:
			arity := int(compiler.ReadUint16(ins, opStart+1))
			if err := vm.execCall(arity, true); err != nil {
				return nil, err
			}

		case compiler.OP_RETURN:
			result, err := vm.execReturn()
			if err != nil {
				return nil, err
			}
			if len(vm.frames) <= stopDepth {
				return result, nil
			}

		case compiler.OP_ARRAY:
			if err := vm.execArray(int(compiler.ReadUint16(ins, opStart+1))); err != nil {
				return nil, err
			}
		case compiler.OP_ARRAY_LONG:
			if err := vm.execArray(int(compiler.ReadUint32(ins, opStart+1))); err != nil {
				return nil, err
			}

		case compiler.OP_TUPLE:
			if err := vm.execTuple(int(compiler.ReadUint16(ins, opStart+1))); err != nil {
				return nil, err
			}
		case compiler.OP_TUPLE_LONG:
			if err := vm.execTuple(int(compiler.ReadUint32(ins, opStart+1))); err != nil {
				return nil, err
			}

		case compiler.OP_HASH:
			if err := vm.execHash(int(compiler.ReadUint16(ins, opStart+1))); err != nil {
				return nil, err
			}
		case compiler.OP_HASH_LONG:
			if err := vm.execHash(int(compiler.ReadUint32(ins, opStart+1))); err != nil {
				return nil, err
			}

		case compiler.OP_CONS:
			if err := vm.execCons(); err != nil {
				return nil, err
			}
		case compiler.OP_INDEX:
			if err := vm.execIndex(); err != nil {
				return nil, err
			}

		case compiler.OP_SOME:
			if err := vm.execSome(); err != nil {
				return nil, err
			}
		case compiler.OP_NONE:
			if err := vm.stack.push(value.None); err != nil {
				return nil, err
			}
		case compiler.OP_LEFT:
			if err := vm.execLeft(); err != nil {
				return nil, err
			}
		case compiler.OP_RIGHT:
			if err := vm.execRight(); err != nil {
				return nil, err
			}

		case compiler.OP_IS_TUPLE:
			if err := vm.execIsTuple(); err != nil {
				return nil, err
			}
		case compiler.OP_TUPLE_GET:
			idx := int(compiler.ReadUint16(ins, opStart+1))
			if err := vm.execTupleGet(idx); err != nil {
				return nil, err
			}
		case compiler.OP_IS_CONS:
			if err := vm.execIsCons(); err != nil {
				return nil, err
			}
		case compiler.OP_CONS_HEAD:
			if err := vm.execConsHead(); err != nil {
				return nil, err
			}
		case compiler.OP_CONS_TAIL:
			if err := vm.execConsTail(); err != nil {
				return nil, err
			}
		case compiler.OP_IS_EMPTY_LIST:
			if err := vm.execIsEmptyList(); err != nil {
				return nil, err
			}
		case compiler.OP_IS_SOME:
			if err := vm.execIsSome(); err != nil {
				return nil, err
			}
		case compiler.OP_UNWRAP_SOME:
			if err := vm.execUnwrapSome(); err != nil {
				return nil, err
			}
		case compiler.OP_IS_LEFT:
			if err := vm.execIsLeft(); err != nil {
				return nil, err
			}
		case compiler.OP_IS_RIGHT:
			if err := vm.execIsRight(); err != nil {
				return nil, err
			}
		case compiler.OP_UNWRAP_EITHER:
			if err := vm.execUnwrapEither(); err != nil {
				return nil, err
			}
		case compiler.OP_MATCH_FAIL:
			return nil, vm.errf(codeMatchFail, "no match arm matched the scrutinee")

		case compiler.OP_PRINT:
			v, ok := vm.stack.pop()
			if !ok {
				return nil, vm.errf(codeStackUnderflow, "OP_PRINT on an empty stack")
			}
			io.WriteString(vm.stdout, v.String()+"\n")

		default:
			return nil, vm.errf(codeUnknownOpcode, "unhandled opcode %s", def.Name)
		}
	}
}

// wrapOverflow turns the sentinel stack-overflow error stack.go's push
// returns into a structured E1009 Diagnostic and passes any other error
// through unchanged. Run applies it to the error its dispatch loop returns,
// which covers the push call sites that return the sentinel directly.
func (vm *VM) wrapOverflow(err error) error {
	if err == errStackOverflow {
		return vm.errf(codeStackOverflow, "operand stack exceeded %d slots", maxStackDepth)
	}
	return err
}
