// Package builtins implements every native function compiler.BuiltinNames
// resolves at compile time: list/hash/string operations, I/O, and
// assertions. A Flux program never sees this package directly — OP_GET_
// BUILTIN indexes into the table New returns, installed on a *vm.VM via
// SetBuiltins.
//
// No teacher equivalent exists (nilan has no builtin-function table beyond
// its bare `print` opcode); every entry here is grounded on spec.md §4.8's
// category list, with the higher-order entries (map/filter/reduce/fold/
// any/all/find) built on vm.VM.CallValue — the mechanism §4.8 describes as
// a builtin "constructing a call into the VM" to invoke a callback.
package builtins

import (
	"bufio"

	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/gcheap"
	"github.com/informatter/flux/value"
	"github.com/informatter/flux/vm"
)

// New builds the builtin table in exactly the order compiler.BuiltinNames
// returns. machine is the runtime these builtins allocate into and call
// back into; callers wire it as:
//
//	m := vm.New(file, gcEnabled, gcThreshold)
//	m.SetBuiltins(builtins.New(m))
func New(machine *vm.VM) []value.Value {
	reg := &registry{vm: machine, heap: machine.Heap()}
	fns := []func(args []value.Value) (value.Value, error){
		reg.len_, reg.head, reg.tail, reg.append_, reg.prepend, reg.reverse,
		reg.map_, reg.filter, reg.reduce, reg.fold, reg.zip, reg.flatten,
		reg.any_, reg.all_, reg.find, reg.take, reg.drop, reg.range_, reg.sort_,

		reg.keys, reg.values, reg.has, reg.get, reg.insert, reg.remove, reg.merge,

		reg.upper, reg.lower, reg.split, reg.join, reg.trim, reg.contains,
		reg.startsWith, reg.endsWith, reg.replace, reg.toInt, reg.toFloat, reg.toString,

		reg.print_, reg.println_, reg.readLine,

		reg.assert, reg.assertEqual, reg.typeOf,

		reg.head, reg.tail, reg.list_, reg.toList, reg.toArray, reg.flatMap,
		reg.has, reg.insert, reg.count_, reg.sortBy, reg.assertEqual,
		reg.readFile, reg.readLines, reg.chars, reg.substring,
	}
	names := compiler.BuiltinNames()
	out := make([]value.Value, len(names))
	for i, name := range names {
		out[i] = value.Builtin{Name: name, Fn: fns[i]}
	}
	return out
}

// registry closes over the VM every builtin method needs: heap for cons/
// hash allocation, vm itself for CallValue (higher-order builtins) and
// Stdout (print/println). stdin is allocated lazily by readLine, once, so
// repeated calls share one buffered reader instead of dropping whatever
// bufio.NewReader had already read ahead.
type registry struct {
	vm    *vm.VM
	heap  *gcheap.Heap
	stdin *bufio.Reader
}
