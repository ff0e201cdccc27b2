package vm

import "github.com/informatter/flux/value"

// valuesEqual implements Flux's `==`, delegating to value.DeepEqual (the
// identity-safe equality every package that can't rule out a Closure
// operand must use instead of value.Equal's `a == b` default branch, which
// panics on Closure's incomparable Free []Value field). Kept as a VM method
// so arith.go's execCompare call sites didn't need to change when this was
// promoted out of the VM and into package value for builtins' assertEqual
// to share.
func (vm *VM) valuesEqual(a, b value.Value) bool {
	return value.DeepEqual(a, b)
}
