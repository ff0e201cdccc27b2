package vm

import (
	"math"
	"strings"

	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/value"
)

// asFloat widens an Integer or Float to float64 for a mixed-type operation;
// any other Value isn't numeric.
func asFloat(v value.Value) (float64, bool) {
	switch vv := v.(type) {
	case value.Integer:
		return float64(vv), true
	case value.Float:
		return float64(vv), true
	default:
		return 0, false
	}
}

func opName(op compiler.Opcode) string {
	switch op {
	case compiler.OP_ADD:
		return "+"
	case compiler.OP_SUBTRACT:
		return "-"
	case compiler.OP_MULTIPLY:
		return "*"
	case compiler.OP_DIVIDE:
		return "/"
	case compiler.OP_MODULO:
		return "%"
	default:
		return "?"
	}
}

// execBinaryArith implements OP_ADD/SUBTRACT/MULTIPLY/DIVIDE/MODULO.
// Integer op Integer stays Integer; any Float operand promotes both to
// Float64 (the teacher's old tree-walking interpreter collapsed every
// number to float64 uniformly, but Flux's Integer and Float are distinct
// Value variants, so this VM keeps Integer arithmetic exact until a Float
// actually enters the expression). OP_ADD additionally accepts Str+Str,
// concatenation — the only non-numeric use of a binary arithmetic opcode,
// needed by string interpolation's desugaring in the compiler.
func (vm *VM) execBinaryArith(op compiler.Opcode) error {
	b, ok1 := vm.stack.pop()
	a, ok2 := vm.stack.pop()
	if !ok1 || !ok2 {
		return vm.errf(codeStackUnderflow, "'%s' on an empty stack", opName(op))
	}

	if op == compiler.OP_ADD {
		if as, ok := a.(value.Str); ok {
			bs, ok2 := b.(value.Str)
			if !ok2 {
				return vm.errf(codeTypeMismatch, "cannot add %s and %s", a.Kind(), b.Kind())
			}
			return vm.stack.push(value.Str(string(as) + string(bs)))
		}
	}

	ai, aIsInt := a.(value.Integer)
	bi, bIsInt := b.(value.Integer)
	if aIsInt && bIsInt {
		result, err := vm.intArith(op, int64(ai), int64(bi))
		if err != nil {
			return err
		}
		return vm.stack.push(value.Integer(result))
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return vm.errf(codeTypeMismatch, "cannot apply '%s' to %s and %s", opName(op), a.Kind(), b.Kind())
	}
	result, err := vm.floatArith(op, af, bf)
	if err != nil {
		return err
	}
	return vm.stack.push(value.Float(result))
}

func (vm *VM) intArith(op compiler.Opcode, a, b int64) (int64, error) {
	switch op {
	case compiler.OP_ADD:
		return a + b, nil
	case compiler.OP_SUBTRACT:
		return a - b, nil
	case compiler.OP_MULTIPLY:
		return a * b, nil
	case compiler.OP_DIVIDE:
		if b == 0 {
			return 0, vm.errf(codeDivisionByZero, "integer division by zero")
		}
		return a / b, nil
	case compiler.OP_MODULO:
		if b == 0 {
			return 0, vm.errf(codeDivisionByZero, "integer modulo by zero")
		}
		return a % b, nil
	default:
		return 0, vm.errf(codeUnknownOpcode, "internal: unhandled integer arithmetic opcode %d", op)
	}
}

func (vm *VM) floatArith(op compiler.Opcode, a, b float64) (float64, error) {
	switch op {
	case compiler.OP_ADD:
		return a + b, nil
	case compiler.OP_SUBTRACT:
		return a - b, nil
	case compiler.OP_MULTIPLY:
		return a * b, nil
	case compiler.OP_DIVIDE:
		return a / b, nil
	case compiler.OP_MODULO:
		return math.Mod(a, b), nil
	default:
		return 0, vm.errf(codeUnknownOpcode, "internal: unhandled float arithmetic opcode %d", op)
	}
}

// execCompare implements OP_EQUALITY/NOT_EQUAL/LARGER(_EQUAL)/LESS(_EQUAL).
// Equality delegates to valuesEqual (arith.go's sibling eq.go), which
// special-cases Function/Closure/Builtin/Gc identity before ever touching a
// composite's elements, so it never risks panicking on an incomparable
// struct the way a bare `==` over an interface holding a Closure would.
// Ordering accepts Integer/Float (promoting mixed pairs like arithmetic
// does) and Str (lexicographic, Go's native byte-wise string ordering).
func (vm *VM) execCompare(op compiler.Opcode) error {
	b, ok1 := vm.stack.pop()
	a, ok2 := vm.stack.pop()
	if !ok1 || !ok2 {
		return vm.errf(codeStackUnderflow, "comparison on an empty stack")
	}

	if op == compiler.OP_EQUALITY {
		return vm.stack.push(value.Boolean(vm.valuesEqual(a, b)))
	}
	if op == compiler.OP_NOT_EQUAL {
		return vm.stack.push(value.Boolean(!vm.valuesEqual(a, b)))
	}

	if as, ok := a.(value.Str); ok {
		bs, ok2 := b.(value.Str)
		if !ok2 {
			return vm.errf(codeTypeMismatch, "cannot compare %s and %s", a.Kind(), b.Kind())
		}
		return vm.stack.push(value.Boolean(compareOrdered(op, strings.Compare(string(as), string(bs)))))
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return vm.errf(codeTypeMismatch, "cannot compare %s and %s", a.Kind(), b.Kind())
	}
	cmp := 0
	switch {
	case af < bf:
		cmp = -1
	case af > bf:
		cmp = 1
	}
	return vm.stack.push(value.Boolean(compareOrdered(op, cmp)))
}

func compareOrdered(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.OP_LARGER:
		return cmp > 0
	case compiler.OP_LARGER_EQUAL:
		return cmp >= 0
	case compiler.OP_LESS:
		return cmp < 0
	case compiler.OP_LESS_EQUAL:
		return cmp <= 0
	default:
		return false
	}
}
