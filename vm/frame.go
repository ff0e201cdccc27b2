package vm

import (
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/value"
)

// Frame is one call frame: the closure being executed, its instruction
// pointer into that closure's own instruction stream, and the base pointer
// — the operand-stack index of its first argument/local slot. Generalized
// from the teacher's bare VM.ip (which only ever indexed a single flat
// instruction stream) now that closures nest and recurse.
type Frame struct {
	cl          value.Closure
	ip          int
	basePointer int
}

// proto returns the CompiledFunction this frame is executing. Every Frame's
// cl.Fn.Proto is set by either Run (the synthetic top-level frame) or
// OP_CLOSURE/OP_CLOSURE_LONG (compileFuncLit always emits one of these for
// every function literal, so OP_CALL/OP_TAIL_CALL never see a bare
// value.Function constant needing this fallback — only Closures reach a
// Frame).
func (f *Frame) proto() *compiler.CompiledFunction {
	return f.cl.Fn.Proto.(*compiler.CompiledFunction)
}

func (f *Frame) instructions() compiler.Instructions {
	return f.proto().Instructions
}

func (vm *VM) currentFrame() *Frame {
	return vm.frames[len(vm.frames)-1]
}

func (vm *VM) pushFrame(f *Frame) {
	vm.frames = append(vm.frames, f)
}

func (vm *VM) popFrame() *Frame {
	n := len(vm.frames) - 1
	f := vm.frames[n]
	vm.frames = vm.frames[:n]
	return f
}
