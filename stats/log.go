// Package stats exports arena counters to Prometheus and to the log.
/*
 * Copyright (c) 2024-2026, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"time"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/nlog"
)

// Logger logs arena stats periodically, skipping arenas that did not
// change since the previous call.
type Logger struct {
	c    *Collector
	prev map[string]arena.Stats
	ival time.Duration
}

func NewLogger(c *Collector, ival time.Duration) *Logger {
	return &Logger{c: c, ival: ival, prev: make(map[string]arena.Stats, 4)}
}

// Log is a housekeeping callback (see hk.Func).
func (l *Logger) Log(int64) time.Duration {
	l.LogN()
	return l.ival
}

// LogN logs the arenas that changed and returns their number.
func (l *Logger) LogN() (n int) {
	for _, st := range l.c.Snapshot() {
		if prev, ok := l.prev[st.Name]; ok && prev == st {
			continue
		}
		l.prev[st.Name] = st
		nlog.Infoln(st.String())
		n++
	}
	return n
}

// JSON dumps all registered arenas.
func (c *Collector) JSON() []byte { return cos.MustMarshalIndent(c.Snapshot()) }
