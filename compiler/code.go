package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Bytecode is the compiled output handed to the VM: a flat instruction
// stream plus the constant pool its OP_CONSTANT/OP_CONSTANT_LONG operands
// index into.
//
// Neither field is meant to be mutated after compilation finishes — the
// compiler always builds a fresh Bytecode (the REPL compiles each input
// with a new Compiler seeded through NewWithState) rather than patching one in
// place, the same immutable-bytecode discipline documented for the
// retrieval pack's risor/tamarin `bytecode` package.
type Bytecode struct {
	Instructions  Instructions
	ConstantsPool []any
	NameConstants []string // interned global/function names, indexed by OP_*_GLOBAL operands
}

type Opcode byte

type Instructions []byte

// Opcodes. Two-byte (uint16) operand widths cap a single compilation unit
// at 65535 constants/locals/jump targets; the `_LONG` variants use a
// 4-byte (uint32) operand for the handful of opcodes the spec calls out as
// needing to scale past that (large constant pools assembled by the module
// graph, wide array/hash/tuple literals, and closures capturing a large
// free-variable list).
const (
	OP_CONSTANT Opcode = iota
	OP_CONSTANT_LONG
	OP_END
	OP_POP
	OP_DUP

	// arithmetic / comparison
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO
	OP_NEGATE
	OP_NOT
	OP_EQUALITY
	OP_NOT_EQUAL
	OP_LARGER
	OP_LARGER_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_AND
	OP_OR

	// control flow
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_JUMP_IF_TRUE

	// bindings
	OP_SET_GLOBAL
	OP_GET_GLOBAL
	OP_SET_LOCAL
	OP_GET_LOCAL
	OP_GET_FREE
	OP_GET_BUILTIN

	// functions
	OP_CLOSURE
	OP_CLOSURE_LONG
	OP_CURRENT_CLOSURE
	OP_CALL
	OP_TAIL_CALL
	OP_RETURN

	// containers
	OP_ARRAY
	OP_ARRAY_LONG
	OP_TUPLE
	OP_TUPLE_LONG
	OP_HASH
	OP_HASH_LONG
	OP_CONS
	OP_INDEX

	// options / either
	OP_SOME
	OP_NONE
	OP_LEFT
	OP_RIGHT

	// pattern matching support
	OP_IS_TUPLE
	OP_TUPLE_GET
	OP_IS_CONS
	OP_CONS_HEAD
	OP_CONS_TAIL
	OP_IS_EMPTY_LIST
	OP_IS_SOME
	OP_UNWRAP_SOME
	OP_IS_LEFT
	OP_IS_RIGHT
	OP_UNWRAP_EITHER
	OP_MATCH_FAIL

	OP_PRINT
)

var opcodeNames = map[Opcode]string{
	OP_CONSTANT:        "OP_CONSTANT",
	OP_CONSTANT_LONG:   "OP_CONSTANT_LONG",
	OP_END:             "OP_END",
	OP_POP:             "OP_POP",
	OP_DUP:             "OP_DUP",
	OP_ADD:             "OP_ADD",
	OP_SUBTRACT:        "OP_SUBTRACT",
	OP_MULTIPLY:        "OP_MULTIPLY",
	OP_DIVIDE:          "OP_DIVIDE",
	OP_MODULO:          "OP_MODULO",
	OP_NEGATE:          "OP_NEGATE",
	OP_NOT:             "OP_NOT",
	OP_EQUALITY:        "OP_EQUALITY",
	OP_NOT_EQUAL:       "OP_NOT_EQUAL",
	OP_LARGER:          "OP_LARGER",
	OP_LARGER_EQUAL:    "OP_LARGER_EQUAL",
	OP_LESS:            "OP_LESS",
	OP_LESS_EQUAL:      "OP_LESS_EQUAL",
	OP_AND:             "OP_AND",
	OP_OR:              "OP_OR",
	OP_JUMP:            "OP_JUMP",
	OP_JUMP_IF_FALSE:   "OP_JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:    "OP_JUMP_IF_TRUE",
	OP_SET_GLOBAL:      "OP_SET_GLOBAL",
	OP_GET_GLOBAL:      "OP_GET_GLOBAL",
	OP_SET_LOCAL:       "OP_SET_LOCAL",
	OP_GET_LOCAL:       "OP_GET_LOCAL",
	OP_GET_FREE:        "OP_GET_FREE",
	OP_GET_BUILTIN:     "OP_GET_BUILTIN",
	OP_CLOSURE:         "OP_CLOSURE",
	OP_CLOSURE_LONG:    "OP_CLOSURE_LONG",
	OP_CURRENT_CLOSURE: "OP_CURRENT_CLOSURE",
	OP_CALL:            "OP_CALL",
	OP_TAIL_CALL:       "OP_TAIL_CALL",
	OP_RETURN:          "OP_RETURN",
	OP_ARRAY:           "OP_ARRAY",
	OP_ARRAY_LONG:      "OP_ARRAY_LONG",
	OP_TUPLE:           "OP_TUPLE",
	OP_TUPLE_LONG:      "OP_TUPLE_LONG",
	OP_HASH:            "OP_HASH",
	OP_HASH_LONG:       "OP_HASH_LONG",
	OP_CONS:            "OP_CONS",
	OP_INDEX:           "OP_INDEX",
	OP_SOME:            "OP_SOME",
	OP_NONE:            "OP_NONE",
	OP_LEFT:            "OP_LEFT",
	OP_RIGHT:           "OP_RIGHT",
	OP_IS_TUPLE:        "OP_IS_TUPLE",
	OP_TUPLE_GET:       "OP_TUPLE_GET",
	OP_IS_CONS:         "OP_IS_CONS",
	OP_CONS_HEAD:       "OP_CONS_HEAD",
	OP_CONS_TAIL:       "OP_CONS_TAIL",
	OP_IS_EMPTY_LIST:   "OP_IS_EMPTY_LIST",
	OP_IS_SOME:         "OP_IS_SOME",
	OP_UNWRAP_SOME:     "OP_UNWRAP_SOME",
	OP_IS_LEFT:         "OP_IS_LEFT",
	OP_IS_RIGHT:        "OP_IS_RIGHT",
	OP_UNWRAP_EITHER:   "OP_UNWRAP_EITHER",
	OP_MATCH_FAIL:      "OP_MATCH_FAIL",
	OP_PRINT:           "OP_PRINT",
}

// OPCODE_TOTAL_BYTES is the width, in bytes, of an opcode itself (always
// one byte: Flux never needs more than 256 distinct instructions).
const OPCODE_TOTAL_BYTES = 1

// THREE_BYTE_INSTRUCTION_LENGTH is the total encoded length of an
// instruction carrying a single uint16 operand: one opcode byte plus two
// operand bytes.
const THREE_BYTE_INSTRUCTION_LENGTH = 3

// FIVE_BYTE_INSTRUCTION_LENGTH is the total encoded length of an
// instruction carrying a single uint32 (`_LONG`) operand.
const FIVE_BYTE_INSTRUCTION_LENGTH = 5

// OpCodeDefinition documents one opcode: its human-readable name and the
// byte width of each operand it takes.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = buildDefinitions()

func buildDefinitions() map[Opcode]*OpCodeDefinition {
	zero := []int{}
	two := []int{2}
	four := []int{4}

	// OP_CLOSURE(_LONG) carries two operands: the constant-pool index of
	// its CompiledFunction, and a one-byte count of free variables the
	// preceding OpGetLocal/OpGetFree instructions pushed for it to capture.
	special := map[Opcode][]int{
		OP_CLOSURE:      {2, 1},
		OP_CLOSURE_LONG: {4, 1},
	}

	defs := map[Opcode]*OpCodeDefinition{}
	longOps := map[Opcode]bool{
		OP_CONSTANT_LONG: true, OP_ARRAY_LONG: true,
		OP_TUPLE_LONG: true, OP_HASH_LONG: true,
	}
	twoByteOps := map[Opcode]bool{
		OP_CONSTANT: true, OP_SET_GLOBAL: true, OP_GET_GLOBAL: true,
		OP_SET_LOCAL: true, OP_GET_LOCAL: true, OP_GET_FREE: true,
		OP_GET_BUILTIN: true, OP_JUMP: true,
		OP_JUMP_IF_FALSE: true, OP_JUMP_IF_TRUE: true, OP_CALL: true,
		OP_TAIL_CALL: true, OP_ARRAY: true, OP_TUPLE: true, OP_HASH: true,
		OP_TUPLE_GET: true,
	}
	for op, name := range opcodeNames {
		widths := zero
		switch {
		case special[op] != nil:
			widths = special[op]
		case longOps[op]:
			widths = four
		case twoByteOps[op]:
			widths = two
		}
		defs[op] = &OpCodeDefinition{Name: name, OperandWidths: widths}
	}
	return defs
}

// Get returns the OpCodeDefinition for op, or an error if op is undefined.
func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode: '%d' undefined", op)
	}
	return def, nil
}

// AssembleInstruction encodes an opcode and its operands into a byte
// sequence. Operands are written Big-Endian: for a `uint16` operand of
// 65000, the bytes are 253, 232 (most-significant byte first).
func AssembleInstruction(op Opcode, operands ...int) ([]byte, error) {
	def, err := Get(op)
	if err != nil {
		return nil, err
	}

	instructionLength := OPCODE_TOTAL_BYTES
	for _, w := range def.OperandWidths {
		instructionLength += w
	}

	instruction := make([]byte, instructionLength)
	instruction[0] = byte(op)

	offset := OPCODE_TOTAL_BYTES
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(o)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 4:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(o))
		}
		offset += width
	}
	return instruction, nil
}

// DiassembleInstruction renders a single encoded instruction back into a
// human-readable line, matching the format the teacher's code_test.go
// already exercised: "opcode: OP_CONSTANT, operand: 65000, operand widths: 2 bytes".
func DiassembleInstruction(instruction []byte) (string, error) {
	if len(instruction) == 0 {
		return "", fmt.Errorf("empty instruction")
	}
	op := Opcode(instruction[0])
	def, err := Get(op)
	if err != nil {
		return "", err
	}

	if len(def.OperandWidths) == 0 {
		return fmt.Sprintf("opcode: %s, operand: None, operand widths: 0 bytes", def.Name), nil
	}

	offset := OPCODE_TOTAL_BYTES
	operands := make([]string, len(def.OperandWidths))
	totalWidth := 0
	for i, width := range def.OperandWidths {
		var operand uint32
		switch width {
		case 2:
			operand = uint32(binary.BigEndian.Uint16(instruction[offset:]))
		case 4:
			operand = binary.BigEndian.Uint32(instruction[offset:])
		case 1:
			operand = uint32(instruction[offset])
		}
		operands[i] = fmt.Sprintf("%d", operand)
		offset += width
		totalWidth += width
	}
	if len(operands) == 1 {
		return fmt.Sprintf("opcode: %s, operand: %s, operand widths: %d bytes", def.Name, operands[0], totalWidth), nil
	}
	return fmt.Sprintf("opcode: %s, operand: %s, operand widths: %d bytes", def.Name, strings.Join(operands, ","), totalWidth), nil
}

// Disassemble renders a whole instruction stream, one line per
// instruction, prefixed with its byte offset — used by `-diassemble` and
// the `emit` subcommand's .dis output.
func Disassemble(ins Instructions) string {
	var sb strings.Builder
	offset := 0
	for offset < len(ins) {
		op := Opcode(ins[offset])
		def, err := Get(op)
		if err != nil {
			fmt.Fprintf(&sb, "%04d ERROR: %v\n", offset, err)
			offset++
			continue
		}
		width := OPCODE_TOTAL_BYTES
		for _, w := range def.OperandWidths {
			width += w
		}
		line, err := DiassembleInstruction(ins[offset : offset+width])
		if err != nil {
			fmt.Fprintf(&sb, "%04d ERROR: %v\n", offset, err)
		} else {
			fmt.Fprintf(&sb, "%04d %s\n", offset, line)
		}
		offset += width
	}
	return sb.String()
}

// ReadUint16 decodes a Big-Endian uint16 operand at the given offset.
func ReadUint16(ins Instructions, offset int) uint16 {
	return binary.BigEndian.Uint16(ins[offset:])
}

// ReadUint32 decodes a Big-Endian uint32 operand at the given offset.
func ReadUint32(ins Instructions, offset int) uint32 {
	return binary.BigEndian.Uint32(ins[offset:])
}
