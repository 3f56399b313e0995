// Package arena provides fixed-capacity, lock-protected pools of homogeneous,
// reference-counted kernel objects (inodes, block buffers, open files).
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena

// ===================== Theory Of Operations (TOO) =============================
//
// An arena owns exactly Cap() slots for its entire lifetime. Each slot holds one
// object (a value of type T) and the count of live handles referring to it:
//
//	refcnt == 0 - the slot is free; its contents are logically absent
//	refcnt  > 0 - exactly that many handles refer to the slot
//
// All slot state (and, for the MRU flavor, the recency list) is guarded by a
// single per-arena spinlock; every operation below holds it for its duration.
//
// Consumers ask for:
//   - FindOrAlloc(match, init) - the live object satisfying `match`, or, if
//     there's none, a free slot initialized by `init`. All live slots are
//     examined before a free one is taken: deduplication always wins.
//   - Alloc(init) - a free slot initialized by `init`, ignoring occupants.
//
// Both return *Rc, the reference-counted smart handle. Rc.Clone() duplicates
// (refcnt++); Rc.Release() drops (refcnt--). When the count goes from 1 to 0
// the object's Finalize runs - once, under the arena lock - and only then is
// the slot returned to the free pool.
//
// A finalizer that must release another Rc into the *same* arena (or do
// anything else that takes the arena lock) does so inside
// Guard.ReacquireAfter. While the lock is dropped, the slot being finalized
// is neither matched nor allocated; it is the caller's obligation, though, to
// make sure nobody depends on finding that very object in the meantime.
//
// Flavors:
//   - Slab: linear scan over a fixed array; freed slots are reused in place.
//   - MRU: slots are threaded through a recency list. Freed slots move to the
//     most-recently-used end; allocation consumes from the least-recently-used
//     end, so the longest-idle slot is recycled first. With retain mode on,
//     a freed slot keeps its (finalized) contents and can still be matched by
//     FindOrAlloc until it is recycled - the buffer cache runs this way.
//
// "No capacity" (*cos.ErrNoCapacity) is the only error. Everything else -
// releasing twice, releasing into a foreign arena, letting an unreleased
// handle be garbage-collected - is a programming error and panics.
//
// ========================== end of TOO ========================================

type (
	// Object is what every arena-stored type provides, with a pointer receiver.
	Object interface {
		// Finalize runs exactly once per occupied lifetime, when the last
		// reference is released and before the slot becomes reusable.
		Finalize(g Guard)
	}

	ObjectPtr[T any] interface {
		*T
		Object
	}

	// Guard is the held arena lock, as seen by a finalizer.
	Guard interface {
		ReacquireAfter(f func())
	}

	// Arena is the contract shared by Slab and MRU.
	Arena[T any] interface {
		Name() string
		Cap() int

		FindOrAllocHandle(match func(*T) bool, init func(*T)) (*Handle[T], error)
		AllocHandle(init func(*T)) (*Handle[T], error)
		// Dup and Dealloc require a handle issued by this same arena.
		Dup(h *Handle[T]) *Handle[T]
		Dealloc(h *Handle[T])

		FindOrAlloc(match func(*T) bool, init func(*T)) (*Rc[T], error)
		Alloc(init func(*T)) (*Rc[T], error)

		Stats() Stats
	}
)

// Reacquire is the value-returning form of Guard.ReacquireAfter.
func Reacquire[R any](g Guard, f func() R) (r R) {
	g.ReacquireAfter(func() { r = f() })
	return r
}
