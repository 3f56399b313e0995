// Package arena provides fixed-capacity, lock-protected pools of homogeneous,
// reference-counted kernel objects.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena

// Slab is a fixed array of slots with linear-scan allocation and no ordering.
type Slab[T any, PT ObjectPtr[T]] struct {
	base[T, PT]
}

// interface guard
var _ Arena[nopObject] = (*Slab[nopObject, *nopObject])(nil)

func NewSlab[T any, PT ObjectPtr[T]](name string, capacity int) *Slab[T, PT] {
	s := &Slab[T, PT]{}
	s.init(name, "slab", capacity, nil)
	return s
}

func (s *Slab[T, PT]) FindOrAllocHandle(match func(*T) bool, init func(*T)) (*Handle[T], error) {
	g := s.lk.Lock()
	defer g.Unlock()
	var (
		t     = g.Data()
		empty = -1
	)
	for i := range t.slots {
		switch t.slots[i].state {
		case slotLive:
			if match(&t.slots[i].data) {
				return s.acquire(t, i), nil
			}
		case slotFree:
			if empty < 0 {
				empty = i // keep going: an existing match takes precedence
			}
		}
	}
	if empty < 0 {
		return nil, s.noCapacity(t)
	}
	return s.occupy(t, empty, init), nil
}

func (s *Slab[T, PT]) AllocHandle(init func(*T)) (*Handle[T], error) {
	g := s.lk.Lock()
	defer g.Unlock()
	t := g.Data()
	for i := range t.slots {
		if t.slots[i].state == slotFree {
			return s.occupy(t, i, init), nil
		}
	}
	return nil, s.noCapacity(t)
}

// Dealloc: freed slots stay where they are and become eligible in place.
func (s *Slab[T, PT]) Dealloc(h *Handle[T]) { s.dealloc(h, nil) }

func (s *Slab[T, PT]) FindOrAlloc(match func(*T) bool, init func(*T)) (*Rc[T], error) {
	h, err := s.FindOrAllocHandle(match, init)
	if err != nil {
		return nil, err
	}
	return NewRc[T](s, h), nil
}

func (s *Slab[T, PT]) Alloc(init func(*T)) (*Rc[T], error) {
	h, err := s.AllocHandle(init)
	if err != nil {
		return nil, err
	}
	return NewRc[T](s, h), nil
}
