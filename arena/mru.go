// Package arena provides fixed-capacity, lock-protected pools of homogeneous,
// reference-counted kernel objects.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena

import "github.com/rv6go/kernel/list"

type (
	// MRU threads its slots through a recency list: the back of the list is
	// the most recently released end, the front - the least recently used.
	MRU[T any, PT ObjectPtr[T]] struct {
		base[T, PT]
		retain bool
	}

	Option func(*mruOpts)
	mruOpts struct {
		retain bool
	}
)

// interface guard
var _ Arena[nopObject] = (*MRU[nopObject, *nopObject])(nil)

// WithRetain makes released objects stay matchable by FindOrAlloc until
// their slots get recycled.
func WithRetain() Option { return func(o *mruOpts) { o.retain = true } }

func NewMRU[T any, PT ObjectPtr[T]](name string, capacity int, opts ...Option) *MRU[T, PT] {
	var o mruOpts
	for _, opt := range opts {
		opt(&o)
	}
	m := &MRU[T, PT]{retain: o.retain}
	m.init(name, "mru", capacity, func(t *table[T]) {
		t.recency.Init(capacity)
		for i := range capacity {
			t.recency.PushBack(i) // array order
		}
	})
	return m
}

func (m *MRU[T, PT]) Retain() bool { return m.retain }

// FindOrAllocHandle scans from the most recent end for a match. The fallback
// is the unreferenced slot closest to the least recent end - the same one
// AllocHandle would pick.
func (m *MRU[T, PT]) FindOrAllocHandle(match func(*T) bool, init func(*T)) (*Handle[T], error) {
	g := m.lk.Lock()
	defer g.Unlock()
	var (
		t     = g.Data()
		empty = list.End
	)
	for i := t.recency.Back(); i != list.End; i = t.recency.Prev(i) {
		s := &t.slots[i]
		switch s.state {
		case slotLive:
			if match(&s.data) {
				return m.acquire(t, i), nil
			}
		case slotCached:
			if match(&s.data) {
				return m.acquire(t, i), nil
			}
			empty = i
		case slotFree:
			empty = i
		}
	}
	if empty == list.End {
		return nil, m.noCapacity(t)
	}
	return m.occupy(t, empty, init), nil
}

// AllocHandle recycles the least recently used unreferenced slot.
func (m *MRU[T, PT]) AllocHandle(init func(*T)) (*Handle[T], error) {
	g := m.lk.Lock()
	defer g.Unlock()
	t := g.Data()
	for i := t.recency.Front(); i != list.End; i = t.recency.Next(i) {
		if st := t.slots[i].state; st == slotFree || st == slotCached {
			return m.occupy(t, i, init), nil
		}
	}
	return nil, m.noCapacity(t)
}

func (m *MRU[T, PT]) Dealloc(h *Handle[T]) { m.dealloc(h, m.freed) }

// relink the freed slot at the most recent end
func (m *MRU[T, PT]) freed(t *table[T], i int) {
	t.recency.MoveToBack(i)
	if m.retain {
		t.slots[i].state = slotCached
	}
}

func (m *MRU[T, PT]) FindOrAlloc(match func(*T) bool, init func(*T)) (*Rc[T], error) {
	h, err := m.FindOrAllocHandle(match, init)
	if err != nil {
		return nil, err
	}
	return NewRc[T](m, h), nil
}

func (m *MRU[T, PT]) Alloc(init func(*T)) (*Rc[T], error) {
	h, err := m.AllocHandle(init)
	if err != nil {
		return nil, err
	}
	return NewRc[T](m, h), nil
}

// Recency returns slot indices from the least to the most recently used end.
func (m *MRU[T, PT]) Recency() []int {
	g := m.lk.Lock()
	defer g.Unlock()
	t := g.Data()
	out := make([]int, 0, t.recency.Len())
	for i := t.recency.Front(); i != list.End; i = t.recency.Next(i) {
		out = append(out, i)
	}
	return out
}
