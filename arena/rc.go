// Package arena provides fixed-capacity, lock-protected pools of homogeneous,
// reference-counted kernel objects.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena

import "github.com/rv6go/kernel/cmn/cos"

// Rc owns exactly one handle and returns it to the arena on Release.
// Typical usage:
//
//	rc, err := a.FindOrAlloc(match, init)
//	if err != nil {
//		return err
//	}
//	defer rc.Release()
type Rc[T any] struct {
	a Arena[T]
	h *Handle[T]
}

// NewRc wraps a raw handle. The handle must have been issued by `a`;
// this is not checked until the handle gets duplicated or released.
func NewRc[T any](a Arena[T], h *Handle[T]) *Rc[T] {
	cos.Assert(h != nil)
	return &Rc[T]{a: a, h: h}
}

// FindOrAlloc and Alloc are the free-function forms of the Arena methods.
func FindOrAlloc[T any](a Arena[T], match func(*T) bool, init func(*T)) (*Rc[T], error) {
	return a.FindOrAlloc(match, init)
}

func Alloc[T any](a Arena[T], init func(*T)) (*Rc[T], error) { return a.Alloc(init) }

// Get provides access to the referenced object; valid until Release.
func (rc *Rc[T]) Get() *T { return rc.handle().data }

func (rc *Rc[T]) Handle() *Handle[T] { return rc.handle() }
func (rc *Rc[T]) Arena() Arena[T]    { return rc.a }
func (rc *Rc[T]) String() string     { return rc.handle().String() }

// Clone duplicates the reference (refcount + 1).
func (rc *Rc[T]) Clone() *Rc[T] {
	return &Rc[T]{a: rc.a, h: rc.a.Dup(rc.handle())}
}

// Release drops the reference; the last one finalizes the object.
func (rc *Rc[T]) Release() {
	h := rc.handle()
	rc.h = nil
	rc.a.Dealloc(h)
}

// Same reports whether both refer to the same slot of the same arena.
func (rc *Rc[T]) Same(other *Rc[T]) bool {
	return rc.handle().owner == other.handle().owner && rc.handle().st.idx == other.handle().st.idx
}

func (rc *Rc[T]) handle() *Handle[T] {
	if rc.h == nil {
		cos.AssertMsg(false, "use of released Rc")
	}
	return rc.h
}
