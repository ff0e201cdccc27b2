// Package value implements Flux's runtime value model: a discriminated
// union of Integer, Float, Boolean, String, None, Some, Left/Right (Either),
// Tuple, Array, Gc handle, Function, Closure, Builtin, ReturnValue, and
// Uninit. Each variant is a small Go struct implementing the Value
// interface rather than a hand-rolled tagged union, because a Go interface
// wrapping a small struct or slice header already gives the O(1)-clone
// semantics the spec requires — copying a Value copies its interface word
// plus a small fixed payload, never a deep structure.
//
// Constructors that take a slice (NewTuple, NewArray) copy their input so a
// caller mutating the slice they passed in afterwards can't reach into the
// Value; this mirrors the immutable-bytecode contract documented in the
// retrieval pack's risor/tamarin bytecode package.
package value

import (
	"fmt"
	"strings"

	"github.com/informatter/flux/gcheap"
)

// Kind identifies a Value's variant for fast dispatch without a type
// switch in hot paths (the VM's binary-op dispatch checks Kind first).
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindNone
	KindSome
	KindLeft
	KindRight
	KindTuple
	KindArray
	KindGc
	KindFunction
	KindClosure
	KindBuiltin
	KindReturn
	KindUninit
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindNone:
		return "None"
	case KindSome:
		return "Some"
	case KindLeft:
		return "Left"
	case KindRight:
		return "Right"
	case KindTuple:
		return "Tuple"
	case KindArray:
		return "Array"
	case KindGc:
		return "Gc"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindBuiltin:
		return "Builtin"
	case KindReturn:
		return "Return"
	case KindUninit:
		return "Uninit"
	default:
		return "?"
	}
}

// Value is implemented by every runtime value variant.
type Value interface {
	Kind() Kind
	String() string
}

// HashKey is implemented only by the variants valid as hash-map keys:
// Integer, Boolean, String. Attempting to use any other Value as a key is
// a runtime error (E1007 in the diagnostics taxonomy).
type HashKey interface {
	Value
	hashKey() string
}

// ---- Integer ----

type Integer int64

func (Integer) Kind() Kind        { return KindInt }
func (i Integer) String() string  { return fmt.Sprintf("%d", int64(i)) }
func (i Integer) hashKey() string { return "i:" + i.String() }

// ---- Float ----

type Float float64

func (Float) Kind() Kind       { return KindFloat }
func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }

// ---- Boolean ----

type Boolean bool

func (Boolean) Kind() Kind        { return KindBool }
func (b Boolean) String() string  { return fmt.Sprintf("%t", bool(b)) }
func (b Boolean) hashKey() string { return "b:" + b.String() }

// ---- String ----

type Str string

func (Str) Kind() Kind        { return KindString }
func (s Str) String() string  { return string(s) }
func (s Str) hashKey() string { return "s:" + string(s) }

// ---- None / Some ----

type NoneValue struct{}

func (NoneValue) Kind() Kind       { return KindNone }
func (NoneValue) String() string   { return "None" }

var None = NoneValue{}

type Some struct{ Inner Value }

func (Some) Kind() Kind       { return KindSome }
func (s Some) String() string { return "Some(" + s.Inner.String() + ")" }

// ---- Either ----

type Left struct{ Inner Value }

func (Left) Kind() Kind       { return KindLeft }
func (l Left) String() string { return "Left(" + l.Inner.String() + ")" }

type Right struct{ Inner Value }

func (Right) Kind() Kind        { return KindRight }
func (r Right) String() string  { return "Right(" + r.Inner.String() + ")" }

// ---- Tuple ----

type Tuple struct{ Elements []Value }

// NewTuple copies elems so the returned Tuple is independent of the
// caller's backing array.
func NewTuple(elems ...Value) Tuple {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Tuple{Elements: cp}
}

func (Tuple) Kind() Kind { return KindTuple }
func (t Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ---- Array ----

type Array struct{ Elements []Value }

func NewArray(elems ...Value) Array {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Array{Elements: cp}
}

func (Array) Kind() Kind { return KindArray }
func (a Array) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ---- Gc handle ----

// Gc is a handle into the explicit mark-and-sweep heap (package gcheap):
// it never holds the payload itself, only a stable index, matching the
// spec's requirement that GC objects be referenced indirectly so the
// collector can relocate/reuse slots without chasing down every Value that
// points at them.
type Gc struct{ Handle uint32 }

func (Gc) Kind() Kind       { return KindGc }
func (g Gc) String() string { return fmt.Sprintf("<gc#%d>", g.Handle) }

// ---- Function / Closure / Builtin ----

// Function is a compiled, non-closing-over-anything function: its
// constant-pool representation. CompiledFunction lives in package compiler;
// Function wraps one as a runtime Value (e.g. stored in a global).
type Function struct {
	Proto any // *compiler.CompiledFunction, kept as `any` to avoid an import cycle
	Name  string
}

func (Function) Kind() Kind       { return KindFunction }
func (f Function) String() string { return "<fn " + f.Name + ">" }

// Closure pairs a Function with the free-variable cells it captured at the
// point its OpClosure instruction ran.
type Closure struct {
	Fn   Function
	Free []Value
}

func (Closure) Kind() Kind        { return KindClosure }
func (c Closure) String() string  { return "<closure " + c.Fn.Name + ">" }

// Builtin is a natively implemented function exposed to Flux code.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (Builtin) Kind() Kind        { return KindBuiltin }
func (b Builtin) String() string  { return "<builtin " + b.Name + ">" }

// ---- ReturnValue / Uninit ----

// ReturnValue wraps a value being propagated up out of a function body by
// an explicit `return`; the VM unwraps it at the call boundary.
type ReturnValue struct{ Inner Value }

func (ReturnValue) Kind() Kind       { return KindReturn }
func (r ReturnValue) String() string { return r.Inner.String() }

// Uninit marks a local slot reserved (by OpCall, for locals beyond the
// callee's declared arity) but not yet written. Reading one before its
// `let` executes is a compiler bug, not reachable from valid bytecode, but
// the VM still checks for it defensively at OpGetLocal.
type Uninit struct{}

func (Uninit) Kind() Kind       { return KindUninit }
func (Uninit) String() string   { return "<uninit>" }

// Truthy implements Flux's truthiness rule: only `false` and `None` are
// falsy, everything else (including 0, "", empty array/tuple) is truthy.
func Truthy(v Value) bool {
	switch vv := v.(type) {
	case Boolean:
		return bool(vv)
	case NoneValue:
		return false
	default:
		return true
	}
}

// AsHashKey returns v as a HashKey if it's a valid hash-map key variant.
func AsHashKey(v Value) (HashKey, bool) {
	hk, ok := v.(HashKey)
	return hk, ok
}

// Equal implements Flux's structural `==` for the variants that support
// it: primitives by value, Tuple/Array element-wise, Some/Left/Right by
// their inner value. Every other variant falls through to Go's ==: a Gc
// compares by handle, not by the structure it points to, and a Closure or
// Builtin (whose fields are not comparable) makes it panic. Package persist
// uses Equal for hash keys; the VM's `==` goes through DeepEqual instead.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Integer:
		return av == b.(Integer)
	case Float:
		return av == b.(Float)
	case Boolean:
		return av == b.(Boolean)
	case Str:
		return av == b.(Str)
	case NoneValue:
		return true
	case Some:
		return Equal(av.Inner, b.(Some).Inner)
	case Left:
		return Equal(av.Inner, b.(Left).Inner)
	case Right:
		return Equal(av.Inner, b.(Right).Inner)
	case Tuple:
		bv := b.(Tuple)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case Array:
		bv := b.(Array)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// GCChildren returns every gcheap.Handle directly or indirectly reachable
// from v: itself if v is a Gc, or the recursive union over a composite
// value's elements. gcheap's mark phase calls this (through a narrow
// interface it declares locally, to avoid importing package value) on any
// Cons/HamtNode child that isn't a bare Handle, so a cons cell or map entry
// holding a Tuple/Array/Some/Left/Right/Closure that nests a Gc still keeps
// the nested object alive.
func GCChildren(v Value) []gcheap.Handle {
	switch vv := v.(type) {
	case Gc:
		return []gcheap.Handle{gcheap.Handle(vv.Handle)}
	case Tuple:
		var out []gcheap.Handle
		for _, e := range vv.Elements {
			out = append(out, GCChildren(e)...)
		}
		return out
	case Array:
		var out []gcheap.Handle
		for _, e := range vv.Elements {
			out = append(out, GCChildren(e)...)
		}
		return out
	case Some:
		return GCChildren(vv.Inner)
	case Left:
		return GCChildren(vv.Inner)
	case Right:
		return GCChildren(vv.Inner)
	case Closure:
		var out []gcheap.Handle
		for _, f := range vv.Free {
			out = append(out, GCChildren(f)...)
		}
		return out
	default:
		return nil
	}
}

// These thin GCChildren methods let gcheap's mark phase recognize a
// Tuple/Array/Some/Left/Right/Closure/Gc stored directly as a Cons.Head/Tail
// or HamtNode child (not just one buried inside another container) through
// the narrow structural interface it declares locally — gcheap can't import
// package value to name these types, so it matches on method signature
// alone, and the standalone GCChildren above stays the single recursive
// implementation every one of these defers to.
func (v Gc) GCChildren() []gcheap.Handle      { return GCChildren(v) }
func (v Tuple) GCChildren() []gcheap.Handle   { return GCChildren(v) }
func (v Array) GCChildren() []gcheap.Handle   { return GCChildren(v) }
func (v Some) GCChildren() []gcheap.Handle    { return GCChildren(v) }
func (v Left) GCChildren() []gcheap.Handle    { return GCChildren(v) }
func (v Right) GCChildren() []gcheap.Handle   { return GCChildren(v) }
func (v Closure) GCChildren() []gcheap.Handle { return GCChildren(v) }
