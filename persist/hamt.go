// Package persist implements Flux's persistent Hash value: a 32-wide Hash
// Array Mapped Trie over gcheap's HamtNode object shape, giving
// structural-sharing get/insert/remove per spec.md's description of the
// HAMT object ("a 32-wide branch node keyed by 5 bits of the key hash per
// level, holding either subtrees or key-value entries; collisions are
// represented by a separate collision-list variant"). The algorithm is the
// classic Bagwell HAMT: a node's Bitmap marks which of the 32 possible
// slots at this level are occupied, and Children holds only the occupied
// ones, indexed by the population count of the bits below the slot.
package persist

import (
	"fmt"
	"hash/fnv"
	"math/bits"

	"github.com/informatter/flux/gcheap"
	"github.com/informatter/flux/value"
)

const bitsPerLevel = 5
const levelMask = 1<<bitsPerLevel - 1
const maxLevel = 32 / bitsPerLevel // 6 full levels before the 32-bit hash is exhausted

// Leaf is one key/value entry stored directly in a HamtNode's Children.
type Leaf struct {
	Key value.HashKey
	Val value.Value
}

// GCChildren delegates to Val's own GCChildren (value.Gc and every
// composite Value variant that can nest one implements it), so Collect's
// mark phase can trace into a container stored as a map value without
// gcheap or persist needing to special-case value's variant types.
func (l Leaf) GCChildren() []gcheap.Handle {
	return value.GCChildren(l.Val)
}

// Collision holds every entry whose hash fully collided after maxLevel
// levels of routing. Rare in practice, but the spec calls out a dedicated
// variant rather than silently overwriting one of the colliding keys.
type Collision struct {
	Entries []Leaf
}

// GCChildren concatenates every entry's GCChildren.
func (c Collision) GCChildren() []gcheap.Handle {
	var out []gcheap.Handle
	for _, e := range c.Entries {
		out = append(out, e.GCChildren()...)
	}
	return out
}

func hashOf(key value.HashKey) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s", key.Kind(), key.String())
	return h.Sum32()
}

func chunk(hash uint32, level int) uint32 {
	return (hash >> uint(level*bitsPerLevel)) & levelMask
}

func keyEqual(a, b value.HashKey) bool {
	return value.Equal(a, b)
}

// Empty allocates a fresh, empty root node — every Flux Hash value,
// including `{}`, is a Gc handle to a root node, never a bare nil.
func Empty(h *gcheap.Heap) gcheap.Handle {
	return h.AllocHamtNode(0, nil)
}

// Get looks up key starting from root.
func Get(h *gcheap.Heap, root gcheap.Handle, key value.HashKey) (value.Value, bool) {
	return getAt(h, root, hashOf(key), key, 0)
}

func getAt(h *gcheap.Heap, handle gcheap.Handle, hash uint32, key value.HashKey, level int) (value.Value, bool) {
	node := h.HamtNode(handle)
	if level >= maxLevel {
		for _, c := range node.Children {
			if col, ok := c.(Collision); ok {
				for _, e := range col.Entries {
					if keyEqual(e.Key, key) {
						return e.Val, true
					}
				}
			}
		}
		return nil, false
	}

	bit := chunk(hash, level)
	mask := uint32(1) << bit
	if node.Bitmap&mask == 0 {
		return nil, false
	}
	idx := bits.OnesCount32(node.Bitmap & (mask - 1))
	switch child := node.Children[idx].(type) {
	case Leaf:
		if keyEqual(child.Key, key) {
			return child.Val, true
		}
		return nil, false
	case Collision:
		for _, e := range child.Entries {
			if keyEqual(e.Key, key) {
				return e.Val, true
			}
		}
		return nil, false
	case gcheap.Handle:
		return getAt(h, child, hash, key, level+1)
	default:
		return nil, false
	}
}

// Insert returns the handle of a new root reflecting key set to val,
// structurally sharing every node along paths the update didn't touch.
func Insert(h *gcheap.Heap, root gcheap.Handle, key value.HashKey, val value.Value) gcheap.Handle {
	return insertAt(h, root, hashOf(key), key, val, 0)
}

func insertAt(h *gcheap.Heap, handle gcheap.Handle, hash uint32, key value.HashKey, val value.Value, level int) gcheap.Handle {
	node := h.HamtNode(handle)

	if level >= maxLevel {
		var entries []Leaf
		replaced := false
		for _, c := range node.Children {
			if col, ok := c.(Collision); ok {
				for _, e := range col.Entries {
					if keyEqual(e.Key, key) {
						entries = append(entries, Leaf{Key: key, Val: val})
						replaced = true
					} else {
						entries = append(entries, e)
					}
				}
			}
		}
		if !replaced {
			entries = append(entries, Leaf{Key: key, Val: val})
		}
		return h.AllocHamtNode(1, []any{Collision{Entries: entries}})
	}

	bit := chunk(hash, level)
	mask := uint32(1) << bit

	if node.Bitmap&mask == 0 {
		idx := bits.OnesCount32(node.Bitmap & (mask - 1))
		children := make([]any, 0, len(node.Children)+1)
		children = append(children, node.Children[:idx]...)
		children = append(children, Leaf{Key: key, Val: val})
		children = append(children, node.Children[idx:]...)
		return h.AllocHamtNode(node.Bitmap|mask, children)
	}

	idx := bits.OnesCount32(node.Bitmap & (mask - 1))
	children := make([]any, len(node.Children))
	copy(children, node.Children)

	switch existing := children[idx].(type) {
	case Leaf:
		if keyEqual(existing.Key, key) {
			children[idx] = Leaf{Key: key, Val: val}
			return h.AllocHamtNode(node.Bitmap, children)
		}
		// Two distinct keys routed to the same slot: push both one level
		// deeper so they split on the next five bits of their hashes.
		sub := h.AllocHamtNode(0, nil)
		sub = insertAt(h, sub, hashOf(existing.Key), existing.Key, existing.Val, level+1)
		sub = insertAt(h, sub, hash, key, val, level+1)
		children[idx] = sub
		return h.AllocHamtNode(node.Bitmap, children)
	case Collision:
		sub := insertAt(h, h.AllocHamtNode(1, []any{existing}), hash, key, val, maxLevel)
		children[idx] = sub
		return h.AllocHamtNode(node.Bitmap, children)
	case gcheap.Handle:
		children[idx] = insertAt(h, existing, hash, key, val, level+1)
		return h.AllocHamtNode(node.Bitmap, children)
	default:
		children[idx] = Leaf{Key: key, Val: val}
		return h.AllocHamtNode(node.Bitmap, children)
	}
}

// Remove returns the handle of a new root with key absent. If key wasn't
// present, the original root handle is returned unchanged.
func Remove(h *gcheap.Heap, root gcheap.Handle, key value.HashKey) gcheap.Handle {
	newRoot, _ := removeAt(h, root, hashOf(key), key, 0)
	return newRoot
}

func removeAt(h *gcheap.Heap, handle gcheap.Handle, hash uint32, key value.HashKey, level int) (gcheap.Handle, bool) {
	node := h.HamtNode(handle)

	if level >= maxLevel {
		for i, c := range node.Children {
			col, ok := c.(Collision)
			if !ok {
				continue
			}
			var rest []Leaf
			removed := false
			for _, e := range col.Entries {
				if keyEqual(e.Key, key) {
					removed = true
					continue
				}
				rest = append(rest, e)
			}
			if !removed {
				return handle, false
			}
			if len(rest) == 0 {
				return h.AllocHamtNode(0, nil), true
			}
			children := make([]any, len(node.Children))
			copy(children, node.Children)
			children[i] = Collision{Entries: rest}
			return h.AllocHamtNode(node.Bitmap, children), true
		}
		return handle, false
	}

	bit := chunk(hash, level)
	mask := uint32(1) << bit
	if node.Bitmap&mask == 0 {
		return handle, false
	}
	idx := bits.OnesCount32(node.Bitmap & (mask - 1))

	switch existing := node.Children[idx].(type) {
	case Leaf:
		if !keyEqual(existing.Key, key) {
			return handle, false
		}
		children := make([]any, 0, len(node.Children)-1)
		children = append(children, node.Children[:idx]...)
		children = append(children, node.Children[idx+1:]...)
		return h.AllocHamtNode(node.Bitmap&^mask, children), true
	case Collision:
		var rest []Leaf
		removed := false
		for _, e := range existing.Entries {
			if keyEqual(e.Key, key) {
				removed = true
				continue
			}
			rest = append(rest, e)
		}
		if !removed {
			return handle, false
		}
		children := make([]any, len(node.Children))
		copy(children, node.Children)
		if len(rest) == 0 {
			children = append(children[:idx:idx], children[idx+1:]...)
			return h.AllocHamtNode(node.Bitmap&^mask, children), true
		}
		children[idx] = Collision{Entries: rest}
		return h.AllocHamtNode(node.Bitmap, children), true
	case gcheap.Handle:
		newChild, ok := removeAt(h, existing, hash, key, level+1)
		if !ok {
			return handle, false
		}
		children := make([]any, len(node.Children))
		copy(children, node.Children)
		if h.HamtNode(newChild).Bitmap == 0 {
			children = append(children[:idx:idx], children[idx+1:]...)
			return h.AllocHamtNode(node.Bitmap&^mask, children), true
		}
		children[idx] = newChild
		return h.AllocHamtNode(node.Bitmap, children), true
	default:
		return handle, false
	}
}

// Each calls fn for every key/value pair reachable from root, in
// unspecified order — a HAMT doesn't keep insertion order.
func Each(h *gcheap.Heap, root gcheap.Handle, fn func(value.HashKey, value.Value)) {
	node := h.HamtNode(root)
	for _, c := range node.Children {
		switch cc := c.(type) {
		case Leaf:
			fn(cc.Key, cc.Val)
		case Collision:
			for _, e := range cc.Entries {
				fn(e.Key, e.Val)
			}
		case gcheap.Handle:
			Each(h, cc, fn)
		}
	}
}
