// Package list implements an intrusive doubly-linked list over the indices
// of a fixed array: nodes are array slots, links are indices, and every
// operation is O(1) except iteration.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package list

import "github.com/rv6go/kernel/cmn/debug"

// End is returned by Front, Back, Next and Prev when there is no such node.
const End = -1

type (
	link struct {
		prev, next int32
		linked     bool
	}
	// List orders a subset of the indices [0, n). The zero value is an
	// empty list of capacity 0; use Init.
	List struct {
		links []link // links[n] is the sentinel
		len   int
	}
)

func New(n int) *List {
	l := &List{}
	l.Init(n)
	return l
}

// Init resets l to an empty list able to hold the indices [0, n).
func (l *List) Init(n int) {
	l.links = make([]link, n+1)
	s := l.sentinel()
	l.links[s] = link{prev: s, next: s, linked: true}
	l.len = 0
}

func (l *List) Cap() int { return len(l.links) - 1 }
func (l *List) Len() int { return l.len }

func (l *List) Linked(i int) bool { return l.links[i].linked }

func (l *List) Front() int { return l.pub(l.links[l.sentinel()].next) }
func (l *List) Back() int  { return l.pub(l.links[l.sentinel()].prev) }
func (l *List) Next(i int) int {
	debug.Assert(l.links[i].linked, i)
	return l.pub(l.links[i].next)
}

func (l *List) Prev(i int) int {
	debug.Assert(l.links[i].linked, i)
	return l.pub(l.links[i].prev)
}

func (l *List) PushFront(i int) { l.insertAfter(i, l.sentinel()) }
func (l *List) PushBack(i int)  { l.insertAfter(i, l.links[l.sentinel()].prev) }

// Remove unlinks i; it is a no-op when i is not on the list.
func (l *List) Remove(i int) {
	lk := &l.links[i]
	if !lk.linked {
		return
	}
	l.links[lk.prev].next = lk.next
	l.links[lk.next].prev = lk.prev
	*lk = link{}
	l.len--
}

func (l *List) MoveToFront(i int) {
	l.Remove(i)
	l.PushFront(i)
}

func (l *List) MoveToBack(i int) {
	l.Remove(i)
	l.PushBack(i)
}

func (l *List) insertAfter(i int, at int32) {
	if i < 0 || i >= l.Cap() {
		panic("list: index out of range")
	}
	lk := &l.links[i]
	if lk.linked {
		panic("list: index already linked")
	}
	next := l.links[at].next
	*lk = link{prev: at, next: next, linked: true}
	l.links[at].next = int32(i)
	l.links[next].prev = int32(i)
	l.len++
}

func (l *List) sentinel() int32 { return int32(len(l.links) - 1) }

func (l *List) pub(i int32) int {
	if i == l.sentinel() {
		return End
	}
	return int(i)
}
