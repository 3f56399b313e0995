// Package stats exports arena counters to Prometheus and to the log.
/*
 * Copyright (c) 2024-2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"sort"
	"sync"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/cmn/debug"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "rv6"
	subsystem = "arena"
	labelName = "arena"
)

type (
	metric struct {
		desc  *prometheus.Desc
		vtype prometheus.ValueType
		get   func(st *arena.Stats) float64
	}

	// Collector is a prometheus.Collector over a dynamic set of arenas
	// that are registered (and possibly unregistered) by name.
	Collector struct {
		arenas  map[string]arena.Statser
		metrics []metric
		mu      sync.RWMutex
	}
)

// interface guard
var _ prometheus.Collector = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{
		arenas: make(map[string]arena.Statser, 4),
		metrics: []metric{
			gauge("capacity", "number of slots", func(st *arena.Stats) float64 { return float64(st.Capacity) }),
			gauge("in_use", "number of referenced slots", func(st *arena.Stats) float64 { return float64(st.InUse) }),
			gauge("cached", "number of unreferenced slots with retained contents", func(st *arena.Stats) float64 { return float64(st.Cached) }),
			counter("allocs_total", "total number of slot (re)initializations", func(st *arena.Stats) float64 { return float64(st.Allocs) }),
			counter("hits_total", "total number of find-or-alloc matches", func(st *arena.Stats) float64 { return float64(st.Hits) }),
			counter("finalized_total", "total number of finalized objects", func(st *arena.Stats) float64 { return float64(st.Finalized) }),
			counter("exhausted_total", "total number of allocations failed for lack of capacity", func(st *arena.Stats) float64 { return float64(st.Exhausted) }),
		},
	}
}

func gauge(name, help string, get func(*arena.Stats) float64) metric {
	return metric{desc: newDesc(name, help), vtype: prometheus.GaugeValue, get: get}
}

func counter(name, help string, get func(*arena.Stats) float64) metric {
	return metric{desc: newDesc(name, help), vtype: prometheus.CounterValue, get: get}
}

// e.g. rv6_arena_in_use{arena="BCACHE"}
func newDesc(name, help string) *prometheus.Desc {
	fullqn := prometheus.BuildFQName(namespace, subsystem, name)
	return prometheus.NewDesc(fullqn, help, []string{labelName}, nil)
}

// Add registers an arena under its name; a name can be registered only once.
func (c *Collector) Add(a arena.Statser) {
	name := a.Name()
	c.mu.Lock()
	_, dup := c.arenas[name]
	debug.Assertf(!dup, "duplicate arena %q", name)
	c.arenas[name] = a
	c.mu.Unlock()
}

func (c *Collector) Remove(name string) {
	c.mu.Lock()
	delete(c.arenas, name)
	c.mu.Unlock()
}

// Snapshot returns the stats of all registered arenas ordered by name.
func (c *Collector) Snapshot() []arena.Stats {
	c.mu.RLock()
	out := make([]arena.Stats, 0, len(c.arenas))
	for _, a := range c.arenas {
		out = append(out, a.Stats())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for i := range c.metrics {
		ch <- c.metrics[i].desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.Snapshot()
	for i := range snap {
		st := &snap[i]
		for j := range c.metrics {
			m := &c.metrics[j]
			ch <- prometheus.MustNewConstMetric(m.desc, m.vtype, m.get(st), st.Name)
		}
	}
}
