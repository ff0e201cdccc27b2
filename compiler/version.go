package compiler

// Version identifies the instruction set and Bytecode encoding this package
// emits. Package cache mixes this into every content hash it computes, so
// upgrading an opcode or the Bytecode shape invalidates every .fxc file on
// disk instead of handing the VM bytecode it was never meant to read.
const Version = "flux-bc-1"
