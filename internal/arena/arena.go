// Package arena provides an append-only, typed-index container for the
// entities that make up a road network (nodes, segments, intersections).
//
// The network never removes an entity once allocated, so this is a strict
// subset of the teacher's incremental-array idea: no buffered Add/Remove
// reconciliation pass is needed, just direct append and O(1) index lookup.
package arena

import "fmt"

// Id is an opaque, strongly typed index into the Arena[T] that produced it.
// Two Id[A] and Id[B] values are different Go types even when A and B share
// an underlying representation, so a NodeID can never be passed where a
// SegmentID is expected.
type Id[T any] struct {
	idx int
}

// Valid reports whether the id is not the NoId sentinel. The zero value of
// Id[T] refers to index 0 and counts as valid.
func (id Id[T]) Valid() bool {
	return id.idx >= 0
}

func (id Id[T]) String() string {
	return fmt.Sprintf("#%d", id.idx)
}

// Int returns the underlying dense index, mostly useful for logging and
// deterministic iteration order.
func (id Id[T]) Int() int {
	return id.idx
}

// NoId is the sentinel Id with index -1; Valid() is false for it. Arena
// lookups never return it: Get panics on an out-of-range id.
func NoId[T any]() Id[T] {
	return Id[T]{idx: -1}
}

// Arena is an append-only store of T, indexed by Id[T].
type Arena[T any] struct {
	items []T
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc appends item and returns the Id it was stored under.
func (a *Arena[T]) Alloc(item T) Id[T] {
	id := Id[T]{idx: len(a.items)}
	a.items = append(a.items, item)
	return id
}

// Get returns a pointer to the item at id. Panics on an out-of-range id: a
// bad id means the caller holds a reference that was never allocated here,
// which is a programming error, not a runtime condition.
func (a *Arena[T]) Get(id Id[T]) *T {
	if id.idx < 0 || id.idx >= len(a.items) {
		panic(fmt.Sprintf("arena: id %v out of range [0,%d)", id, len(a.items)))
	}
	return &a.items[id.idx]
}

// Len returns the number of allocated items.
func (a *Arena[T]) Len() int {
	return len(a.items)
}

// Iter calls fn for every item in allocation order.
func (a *Arena[T]) Iter(fn func(T)) {
	for i := range a.items {
		fn(a.items[i])
	}
}

// IterWithIds calls fn for every (id, item) pair in allocation order.
func (a *Arena[T]) IterWithIds(fn func(Id[T], *T)) {
	for i := range a.items {
		fn(Id[T]{idx: i}, &a.items[i])
	}
}

// Ids returns every allocated id in allocation order.
func (a *Arena[T]) Ids() []Id[T] {
	ids := make([]Id[T], len(a.items))
	for i := range a.items {
		ids[i] = Id[T]{idx: i}
	}
	return ids
}
