// Package arena provides fixed-capacity, lock-protected pools of homogeneous,
// reference-counted kernel objects.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena

import "strconv"

// Stats is a point-in-time snapshot of an arena.
type Stats struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"` // "slab" | "mru"
	Capacity  int    `json:"capacity"`
	InUse     int    `json:"in_use"`    // referenced slots
	Cached    int    `json:"cached"`    // unreferenced slots with retained contents (MRU)
	Refs      int64  `json:"refs"`      // outstanding handles
	Allocs    int64  `json:"allocs"`    // initializer runs
	Hits      int64  `json:"hits"`      // find-or-alloc matches
	Finalized int64  `json:"finalized"` // finalizer runs
	Exhausted int64  `json:"exhausted"` // "no capacity" failures
}

// Statser is implemented by every arena regardless of its element type.
type Statser interface {
	Name() string
	Stats() Stats
}

func (st *Stats) String() string {
	return st.Kind + "[" + st.Name + "]: in-use " + strconv.Itoa(st.InUse) + "/" + strconv.Itoa(st.Capacity) +
		", refs " + strconv.FormatInt(st.Refs, 10) +
		", allocs " + strconv.FormatInt(st.Allocs, 10) +
		", hits " + strconv.FormatInt(st.Hits, 10) +
		", finalized " + strconv.FormatInt(st.Finalized, 10) +
		", exhausted " + strconv.FormatInt(st.Exhausted, 10)
}

// used in interface guards
type nopObject struct{}

func (*nopObject) Finalize(Guard) {}
