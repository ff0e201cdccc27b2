// Package gcheap implements Flux's explicit mark-and-sweep garbage
// collector. It is deliberately separate from Go's own runtime GC: the
// spec's object model only puts two shapes on this heap — Cons cells and
// HAMT (32-wide trie) nodes used by persistent Hash structural
// sharing — and the point of this package is to exercise a hand-written
// collector over stable integer handles, not to lean on Go's GC for them.
package gcheap

import "github.com/informatter/flux/flog"

// ObjKind distinguishes the two heap object shapes the spec allows.
type ObjKind int

const (
	KindCons ObjKind = iota
	KindHamtNode
)

// Handle is a stable index into the heap's object table. Handles are
// reused (via the free list) only after a sweep proves the slot
// unreachable, so a live Handle is never aliased to a different live
// object concurrently.
type Handle uint32

// Cons is a single cons cell: a value-or-handle pair forming list nodes.
type Cons struct {
	Head, Tail any // value.Value, stored as `any` to avoid an import cycle
}

// HamtNode is one node of a 32-wide hash array mapped trie, used for the
// persistent Hash value. Children holds one entry per set bit of Bitmap, in
// bit order; a slot whose bit is clear has no entry.
type HamtNode struct {
	Bitmap   uint32
	Children []any // each entry is either a leaf value.Value or a Handle to a child HamtNode
}

type object struct {
	kind  ObjKind
	cons  Cons
	hamt  HamtNode
	marked bool
	alive bool
}

// Heap is the explicit GC'd heap. It is not safe for concurrent use — the
// VM is single-threaded per spec §5, and the heap mutates during ordinary
// evaluation (allocation) as well as during collection.
type Heap struct {
	objects   []object
	freeList  []Handle
	threshold int
	allocated int
	enabled   bool

	roots func() []Handle // supplied by the VM: live handles reachable from stack/frames/globals
	log   func(event string, fields map[string]any)
}

// New constructs a Heap with the given initial adaptive threshold (the
// spec's default is 10,000 allocations) and a roots callback the
// collector invokes to discover the live set at the start of a cycle.
func New(initialThreshold int, enabled bool, roots func() []Handle) *Heap {
	return &Heap{
		threshold: initialThreshold,
		enabled:   enabled,
		roots:     roots,
		objects:   make([]object, 0, 1024),
	}
}

// AllocCons allocates a new Cons cell and returns its Handle, running a
// collection first if the allocation threshold has been reached.
func (h *Heap) AllocCons(head, tail any) Handle {
	h.maybeCollect()
	return h.push(object{kind: KindCons, cons: Cons{Head: head, Tail: tail}, alive: true})
}

// AllocHamtNode allocates a new HAMT node and returns its Handle.
func (h *Heap) AllocHamtNode(bitmap uint32, children []any) Handle {
	h.maybeCollect()
	cp := make([]any, len(children))
	copy(cp, children)
	return h.push(object{kind: KindHamtNode, hamt: HamtNode{Bitmap: bitmap, Children: cp}, alive: true})
}

func (h *Heap) push(obj object) Handle {
	if n := len(h.freeList); n > 0 {
		idx := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.objects[idx] = obj
		h.allocated++
		return idx
	}
	h.objects = append(h.objects, obj)
	h.allocated++
	return Handle(len(h.objects) - 1)
}

// Cons returns the Cons cell stored at handle. The caller must only call
// this with a handle it knows is alive (the VM never retains a dangling
// handle across a collection that would reuse its slot, since live handles
// are discovered via roots() before any sweep).
func (h *Heap) Cons(handle Handle) Cons {
	return h.objects[handle].cons
}

// HamtNode returns the HAMT node stored at handle.
func (h *Heap) HamtNode(handle Handle) HamtNode {
	return h.objects[handle].hamt
}

// Kind reports which of the two heap shapes handle refers to, so a caller
// holding a bare Handle (e.g. a VM unwrapping a value.Gc) can dispatch
// without first committing to Cons or HamtNode.
func (h *Heap) Kind(handle Handle) ObjKind {
	return h.objects[handle].kind
}

// Len reports the number of live slots currently tracked (allocated minus
// freed), used by telemetry and tests.
func (h *Heap) Len() int {
	return h.allocated
}

func (h *Heap) maybeCollect() {
	if !h.enabled {
		return
	}
	if h.allocated < h.threshold {
		return
	}
	h.Collect()
}

// childHandles reports the heap handles directly reachable from a Cons or
// HamtNode field: itself if it's already a bare Handle, or whatever its
// GCChildren method reports otherwise. A Cons.Head/Tail or a persist.Leaf
// stored in a HamtNode's Children may hold a value.Value that nests a Gc
// arbitrarily deep (a Tuple of Arrays of Somes, say) — gcheap can't import
// package value (it would cycle back through value's own gcheap import),
// so it recognizes this narrow, locally-declared interface instead.
func childHandles(field any) []Handle {
	if h, ok := field.(Handle); ok {
		return []Handle{h}
	}
	if nested, ok := field.(interface{ GCChildren() []Handle }); ok {
		return nested.GCChildren()
	}
	return nil
}

// Collect runs one mark-and-sweep cycle: mark every object reachable from
// roots(), then sweep unmarked slots onto the free list. The threshold
// then adapts: it doubles if fewer than 25% of tracked objects were freed
// (the heap is still growing and collecting too often would waste time),
// and halves if more than 75% were freed (the heap was oversized for its
// live set).
func (h *Heap) Collect() {
	before := h.allocated
	for i := range h.objects {
		h.objects[i].marked = false
	}

	var stack []Handle
	for _, r := range h.roots() {
		stack = append(stack, r)
	}
	for len(stack) > 0 {
		n := len(stack) - 1
		handle := stack[n]
		stack = stack[:n]
		if int(handle) >= len(h.objects) || h.objects[handle].marked || !h.objects[handle].alive {
			continue
		}
		h.objects[handle].marked = true
		obj := h.objects[handle]
		switch obj.kind {
		case KindCons:
			stack = append(stack, childHandles(obj.cons.Head)...)
			stack = append(stack, childHandles(obj.cons.Tail)...)
		case KindHamtNode:
			for _, c := range obj.hamt.Children {
				stack = append(stack, childHandles(c)...)
			}
		}
	}

	freed := 0
	for i := range h.objects {
		if h.objects[i].alive && !h.objects[i].marked {
			h.objects[i].alive = false
			h.objects[i] = object{}
			h.freeList = append(h.freeList, Handle(i))
			freed++
			h.allocated--
		}
	}

	ratio := 0.0
	if before > 0 {
		ratio = float64(freed) / float64(before)
	}
	switch {
	case ratio < 0.25:
		h.threshold *= 2
	case ratio > 0.75:
		if h.threshold > 1 {
			h.threshold /= 2
		}
	}

	if h.log != nil {
		h.log("gc_cycle", map[string]any{"freed": freed, "before": before, "threshold": h.threshold})
	} else {
		flog.For("gcheap").Debug().Int("freed", freed).Int("before", before).Int("newThreshold", h.threshold).Msg("gc cycle")
	}
}
