// Package arena provides fixed-capacity, lock-protected pools of homogeneous,
// reference-counted kernel objects.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena

import (
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/debug"
	"github.com/rv6go/kernel/cmn/nlog"
	"github.com/rv6go/kernel/list"
	"github.com/rv6go/kernel/lock"
)

// log every so many capacity misses
const exhaustedLogEvery = 1000

type slotState uint8

const (
	slotFree slotState = iota
	slotLive
	slotFinalizing
	slotCached // MRU retain mode: unreferenced, contents still valid
)

type (
	slot[T any] struct {
		data   T
		refcnt uint32
		state  slotState
	}

	counters struct {
		allocs, hits, finalized, exhausted int64
		inUse                              int
	}

	// lock-protected state of an arena
	table[T any] struct {
		slots   []slot[T]
		recency list.List // MRU only: Front() is the least recently used end
		cnt     counters
	}

	// base holds what's common to both flavors
	base[T any, PT ObjectPtr[T]] struct {
		lk   lock.Spinlock[table[T]]
		name string
		kind string
		n    int
	}

	// Handle is a capability for one slot of one arena. Handles are never
	// copied by value; each is released exactly once, via Dealloc (or Rc.Release).
	Handle[T any] struct {
		_     noCopy
		owner *lock.Spinlock[table[T]]
		data  *T
		st    *handleState
	}
	handleState struct {
		arena    string
		idx      int
		released atomic.Bool
	}

	noCopy struct{}
)

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

//////////
// base //
//////////

func (b *base[T, PT]) init(name, kind string, n int, prep func(t *table[T])) {
	cos.Assertf(n > 0, "arena %q: invalid capacity %d", name, n)
	b.name, b.kind, b.n = name, kind, n
	t := table[T]{slots: make([]slot[T], n)}
	if prep != nil {
		prep(&t)
	}
	b.lk.Init(name, t)
}

func (b *base[T, PT]) Name() string   { return b.name }
func (b *base[T, PT]) Cap() int       { return b.n }
func (b *base[T, PT]) String() string { return b.kind + "[" + b.name + "]" }

// issue a new handle for slot i; the caller has already accounted for it in refcnt
func (b *base[T, PT]) issue(t *table[T], i int) *Handle[T] {
	h := &Handle[T]{owner: &b.lk, data: &t.slots[i].data, st: &handleState{arena: b.name, idx: i}}
	runtime.AddCleanup(h, leaked, h.st)
	return h
}

func (b *base[T, PT]) occupy(t *table[T], i int, init func(*T)) *Handle[T] {
	s := &t.slots[i]
	debug.Assert(s.refcnt == 0 && (s.state == slotFree || s.state == slotCached), b.name, i)
	s.refcnt, s.state = 1, slotLive
	if init != nil {
		init(&s.data)
	}
	t.cnt.allocs++
	t.cnt.inUse++
	return b.issue(t, i)
}

// take one more reference to a live (or retained) slot
func (b *base[T, PT]) acquire(t *table[T], i int) *Handle[T] {
	s := &t.slots[i]
	switch s.state {
	case slotLive:
		debug.Assert(s.refcnt > 0)
	case slotCached:
		debug.Assert(s.refcnt == 0)
		s.state = slotLive
		t.cnt.inUse++
	default:
		cos.AssertMsg(false, b.String()+": acquiring slot "+strconv.Itoa(i)+" in state "+s.state.String())
	}
	s.refcnt++
	t.cnt.hits++
	return b.issue(t, i)
}

func (b *base[T, PT]) noCapacity(t *table[T]) error {
	t.cnt.exhausted++
	if t.cnt.exhausted == 1 || t.cnt.exhausted%exhaustedLogEvery == 0 {
		nlog.Warningf("%s: no free slots (capacity %d, misses %d)", b, b.n, t.cnt.exhausted)
	}
	return cos.NewErrNoCapacity(b.name, b.n)
}

// validate a handle presented by the caller; must hold the lock
func (b *base[T, PT]) own(h *Handle[T], op string) {
	if h == nil {
		b.violation(op + ": nil handle")
	}
	if h.owner != &b.lk {
		b.violation(fmt.Sprintf("%s: handle %s[%d] was issued by a different arena", op, h.st.arena, h.st.idx))
	}
	if h.st.released.Load() {
		b.violation(fmt.Sprintf("%s: handle %s[%d] already released", op, h.st.arena, h.st.idx))
	}
}

func (b *base[T, PT]) violation(msg string) {
	nlog.ErrorDepth(2, b.String()+": "+msg)
	nlog.Flush()
	panic(b.String() + ": " + msg)
}

func (b *base[T, PT]) Dup(h *Handle[T]) *Handle[T] {
	g := b.lk.Lock()
	defer g.Unlock()
	b.own(h, "dup")
	t := g.Data()
	s := &t.slots[h.st.idx]
	cos.Assert(s.state == slotLive && s.refcnt > 0)
	s.refcnt++
	return b.issue(t, h.st.idx)
}

// dealloc drops one reference; on the last one, finalizes the object and
// hands the slot to `freed` (flavor-specific bookkeeping) - all under the lock
func (b *base[T, PT]) dealloc(h *Handle[T], freed func(t *table[T], i int)) {
	g := b.lk.Lock()
	defer g.Unlock()
	b.own(h, "dealloc")
	h.st.released.Store(true)

	var (
		t = g.Data()
		i = h.st.idx
		s = &t.slots[i]
	)
	cos.Assert(s.state == slotLive && s.refcnt > 0)
	if s.refcnt--; s.refcnt > 0 {
		return
	}
	s.state = slotFinalizing
	PT(&s.data).Finalize(&g)

	debug.Assert(g.Held())
	debug.Assert(s.state == slotFinalizing && s.refcnt == 0)
	s.state = slotFree
	t.cnt.finalized++
	t.cnt.inUse--
	if freed != nil {
		freed(t, i)
	}
}

func (b *base[T, PT]) Stats() (st Stats) {
	g := b.lk.Lock()
	t := g.Data()
	st = Stats{
		Name:      b.name,
		Kind:      b.kind,
		Capacity:  b.n,
		InUse:     t.cnt.inUse,
		Allocs:    t.cnt.allocs,
		Hits:      t.cnt.hits,
		Finalized: t.cnt.finalized,
		Exhausted: t.cnt.exhausted,
	}
	for i := range t.slots {
		switch t.slots[i].state {
		case slotLive:
			st.Refs += int64(t.slots[i].refcnt)
		case slotCached:
			st.Cached++
		}
	}
	g.Unlock()
	return st
}

////////////
// Handle //
////////////

// Index identifies the slot within its arena.
func (h *Handle[T]) Index() int    { return h.st.idx }
func (h *Handle[T]) Arena() string { return h.st.arena }

func (h *Handle[T]) String() string { return h.st.arena + "[" + strconv.Itoa(h.st.idx) + "]" }

// runs when a handle gets garbage-collected
func leaked(st *handleState) {
	if st.released.Load() {
		return
	}
	msg := fmt.Sprintf("%s[%d]: handle dropped without release (refcount leak)", st.arena, st.idx)
	nlog.Errorln(msg)
	nlog.Flush()
	panic(msg)
}

func (s slotState) String() string {
	switch s {
	case slotFree:
		return "free"
	case slotLive:
		return "live"
	case slotFinalizing:
		return "finalizing"
	case slotCached:
		return "cached"
	default:
		return "invalid"
	}
}
