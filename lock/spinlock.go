// Package lock provides the busy-wait mutual exclusion used to guard kernel tables.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package lock

import (
	"runtime"
	"sync/atomic"

	"github.com/rv6go/kernel/cmn/cos"
)

// number of busy iterations before yielding the processor
const spinsPerYield = 64

type (
	// Spinlock protects a value of type T; the value is reachable only
	// through the Guard returned by Lock.
	Spinlock[T any] struct {
		data   T
		name   string
		locked atomic.Bool
	}

	// Guard is the proof of holding a Spinlock. It must not be copied.
	Guard[T any] struct {
		l    *Spinlock[T]
		held bool
	}
)

func New[T any](name string, data T) *Spinlock[T] {
	l := &Spinlock[T]{}
	l.Init(name, data)
	return l
}

// Init (re)initializes an unlocked, in-place Spinlock.
func (l *Spinlock[T]) Init(name string, data T) {
	cos.Assert(!l.locked.Load())
	l.name, l.data = name, data
}

func (l *Spinlock[T]) Name() string { return l.name }

// Holding reports whether the lock is currently held (by anyone).
func (l *Spinlock[T]) Holding() bool { return l.locked.Load() }

func (l *Spinlock[T]) Lock() Guard[T] {
	l.acquire()
	return Guard[T]{l: l, held: true}
}

// TryLock acquires the lock only if it is free.
func (l *Spinlock[T]) TryLock() (Guard[T], bool) {
	if l.locked.CompareAndSwap(false, true) {
		return Guard[T]{l: l, held: true}, true
	}
	return Guard[T]{}, false
}

func (l *Spinlock[T]) acquire() {
	for spins := 0; !l.locked.CompareAndSwap(false, true); spins++ {
		if spins >= spinsPerYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

func (l *Spinlock[T]) release() {
	if !l.locked.CompareAndSwap(true, false) {
		cos.AssertMsg(false, "release: spinlock "+l.name+" not held")
	}
}

///////////
// Guard //
///////////

// Data returns the protected value; valid only while the guard is held.
func (g *Guard[T]) Data() *T {
	cos.AssertMsg(g.held, "spinlock "+g.l.name+": access without holding the lock")
	return &g.l.data
}

func (g *Guard[T]) Held() bool { return g.held }

// Unlock is a no-op on a guard that has already been unlocked, which makes
// `defer g.Unlock()` safe after an early explicit Unlock.
func (g *Guard[T]) Unlock() {
	if !g.held {
		return
	}
	g.held = false
	g.l.release()
}

// ReacquireAfter temporarily releases the lock while calling f and
// re-acquires it once f returns (or panics).
func (g *Guard[T]) ReacquireAfter(f func()) {
	cos.AssertMsg(g.held, "spinlock "+g.l.name+": reacquire without holding the lock")
	g.held = false
	g.l.release()
	defer func() {
		g.l.acquire()
		g.held = true
	}()
	f()
}

// ReacquireAfter is the value-returning form of Guard.ReacquireAfter.
func ReacquireAfter[T, R any](g *Guard[T], f func() R) (r R) {
	g.ReacquireAfter(func() { r = f() })
	return r
}
