package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/informatter/flux/compiler"
)

// magic tags a .fxc file's first four bytes so a corrupt or foreign file is
// rejected before any further parsing is attempted.
var magic = [4]byte{'F', 'X', 'C', '1'}

// Constant pool entry tags. compiler.Bytecode.ConstantsPool is a flat []any
// holding only the scalars vm/vm.go's constantAsValue type-switches
// on (int64, float64, bool, string) plus compiler.CompiledFunction for
// function literals — compileFuncLit adds those to the very same pool
// nested functions share, rather than giving each function body its own
// pool, so one tagged union covers every entry this format ever sees.
const (
	tagInt byte = iota
	tagFloat
	tagBool
	tagString
	tagFunction
)

// Encode serializes bc into the .fxc binary format: a magic/version header,
// the compiler version string that hashed this entry (so a stale on-disk
// file whose version doesn't match the running binary is rejected outright
// rather than handed to a VM built for a different instruction set), the
// raw instruction stream, the tagged constant pool, and the interned name
// table.
func Encode(bc compiler.Bytecode) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeString(&buf, compiler.Version)
	writeBytes(&buf, bc.Instructions)

	writeUint32(&buf, uint32(len(bc.ConstantsPool)))
	for _, c := range bc.ConstantsPool {
		if err := encodeConstant(&buf, c); err != nil {
			return nil, err
		}
	}

	writeUint32(&buf, uint32(len(bc.NameConstants)))
	for _, n := range bc.NameConstants {
		writeString(&buf, n)
	}
	return buf.Bytes(), nil
}

func encodeConstant(buf *bytes.Buffer, c any) error {
	switch v := c.(type) {
	case int64:
		buf.WriteByte(tagInt)
		writeUint64(buf, uint64(v))
	case float64:
		buf.WriteByte(tagFloat)
		writeUint64(buf, math.Float64bits(v))
	case bool:
		buf.WriteByte(tagBool)
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case string:
		buf.WriteByte(tagString)
		writeString(buf, v)
	case compiler.CompiledFunction:
		buf.WriteByte(tagFunction)
		writeBytes(buf, v.Instructions)
		writeUint32(buf, uint32(v.NumLocals))
		writeUint32(buf, uint32(v.NumParameters))
		writeString(buf, v.Name)
	default:
		return fmt.Errorf("cache: constant pool entry of unsupported type %T", c)
	}
	return nil
}

// Decode parses data back into a Bytecode, rejecting anything whose magic
// or compiler version doesn't match what this binary produces.
func Decode(data []byte) (compiler.Bytecode, error) {
	r := bytes.NewReader(data)

	var got [4]byte
	if _, err := readFull(r, got[:]); err != nil || got != magic {
		return compiler.Bytecode{}, fmt.Errorf("cache: not a .fxc file (bad magic)")
	}
	version, err := readString(r)
	if err != nil {
		return compiler.Bytecode{}, fmt.Errorf("cache: truncated header: %w", err)
	}
	if version != compiler.Version {
		return compiler.Bytecode{}, fmt.Errorf("cache: .fxc built for compiler version %q, running %q", version, compiler.Version)
	}

	instructions, err := readBytes(r)
	if err != nil {
		return compiler.Bytecode{}, fmt.Errorf("cache: truncated instructions: %w", err)
	}

	constCount, err := readUint32(r)
	if err != nil {
		return compiler.Bytecode{}, fmt.Errorf("cache: truncated constant count: %w", err)
	}
	constants := make([]any, constCount)
	for i := range constants {
		c, err := decodeConstant(r)
		if err != nil {
			return compiler.Bytecode{}, fmt.Errorf("cache: truncated constant %d: %w", i, err)
		}
		constants[i] = c
	}

	nameCount, err := readUint32(r)
	if err != nil {
		return compiler.Bytecode{}, fmt.Errorf("cache: truncated name count: %w", err)
	}
	names := make([]string, nameCount)
	for i := range names {
		s, err := readString(r)
		if err != nil {
			return compiler.Bytecode{}, fmt.Errorf("cache: truncated name %d: %w", i, err)
		}
		names[i] = s
	}

	return compiler.Bytecode{
		Instructions:  instructions,
		ConstantsPool: constants,
		NameConstants: names,
	}, nil
}

func decodeConstant(r *bytes.Reader) (any, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagInt:
		u, err := readUint64(r)
		return int64(u), err
	case tagFloat:
		u, err := readUint64(r)
		return math.Float64frombits(u), err
	case tagBool:
		b, err := r.ReadByte()
		return b != 0, err
	case tagString:
		return readString(r)
	case tagFunction:
		ins, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		numLocals, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		numParams, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return compiler.CompiledFunction{
			Instructions:  ins,
			NumLocals:     int(numLocals),
			NumParameters: int(numParams),
			Name:          name,
		}, nil
	default:
		return nil, fmt.Errorf("unknown constant tag %d", tag)
	}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func readFull(r *bytes.Reader, out []byte) (int, error) {
	n, err := r.Read(out)
	if err != nil {
		return n, err
	}
	if n != len(out) {
		return n, fmt.Errorf("short read: got %d, want %d", n, len(out))
	}
	return n, nil
}
