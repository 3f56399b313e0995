// Package hk provides mechanism for registering periodic callbacks
// (stats logging, cache trimming) which are invoked at specified intervals.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import (
	"container/heap"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/debug"
	"github.com/rv6go/kernel/cmn/mono"
	"github.com/rv6go/kernel/cmn/nlog"
)

const workChanCap = 48

const (
	DayInterval   = 24 * time.Hour
	UnregInterval = 365 * DayInterval // to unregister upon return from the callback
)

type (
	// returns the interval until the next call, or UnregInterval
	Func func(now int64) time.Duration

	op struct {
		f        Func
		name     string
		interval time.Duration
	}
	timedAction struct {
		f          Func
		name       string
		updateTime int64
	}
	timedActions []timedAction

	Housekeeper struct {
		stopCh  cos.StopCh
		sigCh   chan os.Signal
		actions *timedActions
		timer   *time.Timer
		workCh  chan op
		running atomic.Bool
	}
)

// interface guard
var _ cos.Runner = (*Housekeeper)(nil)

// New returns a housekeeper; with `signals` set, Run also terminates upon
// SIGINT, SIGTERM, or SIGQUIT and returns the corresponding *cos.ErrSignal.
func New(signals bool) *Housekeeper {
	hk := &Housekeeper{
		workCh:  make(chan op, workChanCap),
		actions: &timedActions{},
	}
	if signals {
		hk.sigCh = make(chan os.Signal, 1)
	}
	hk.stopCh.Init()
	heap.Init(hk.actions)
	return hk
}

// Reg schedules `f` to run after `interval` (zero: run right away, then
// every time `f` says). Registration may precede Run.
func (hk *Housekeeper) Reg(name string, f Func, interval time.Duration) {
	debug.Assert(interval != UnregInterval)
	debug.Assert(f != nil, name)

	hk.workCh <- op{name: name, f: f, interval: interval}

	if l, c := len(hk.workCh), workChanCap; l >= (c - c>>3) {
		nlog.Errorln("hk: work channel is almost full, len", l, "cap", c)
	}
}

func (hk *Housekeeper) Unreg(name string) {
	hk.workCh <- op{name: name, interval: UnregInterval}
}

func (hk *Housekeeper) IsRunning() bool { return hk.running.Load() }

func (*Housekeeper) Name() string { return "hk" }

func (hk *Housekeeper) Stop(error) { hk.stopCh.Close() }

func (hk *Housekeeper) Run() (err error) {
	if hk.sigCh != nil {
		signal.Notify(hk.sigCh,
			syscall.SIGINT,  // kill -SIGINT (Ctrl-C)
			syscall.SIGTERM, // kill -SIGTERM
			syscall.SIGQUIT, // kill -SIGQUIT
		)
	}
	hk.timer = time.NewTimer(time.Hour)
	hk.timer.Stop()
	hk.running.Store(true)
	err = hk._run()
	if hk.sigCh != nil {
		signal.Stop(hk.sigCh)
	}
	hk.timer.Stop()
	hk.running.Store(false)
	return
}

func (hk *Housekeeper) _run() error {
	for {
		select {
		case <-hk.stopCh.Listen():
			return nil

		case <-hk.timer.C:
			if hk.actions.Len() == 0 {
				break
			}
			// call and update the heap
			var (
				item    = hk.actions.Peek()
				started = mono.NanoTime()
				ival    = item.f(started)
			)
			if ival == UnregInterval {
				heap.Remove(hk.actions, 0)
			} else {
				now := mono.NanoTime()
				item.updateTime = now + ival.Nanoseconds()
				heap.Fix(hk.actions, 0)

				if d := time.Duration(now - started); d > time.Second {
					nlog.Warningln("call[", item.name, "] duration exceeds 1s:", d.String())
				}
			}
			hk.updateTimer()

		case op := <-hk.workCh:
			hk.do(op)
			hk.updateTimer()

		case s, ok := <-hk.sigCh: // nil channel when not handling signals
			if ok {
				err := cos.NewSignalError(s.(syscall.Signal))
				hk.Stop(err)
				return err
			}
		}
	}
}

func (hk *Housekeeper) do(op op) {
	idx := hk.byName(op.name)
	if op.interval == UnregInterval {
		if idx >= 0 {
			heap.Remove(hk.actions, idx)
		} else {
			nlog.Warningln(op.name, "not found (already removed?)")
		}
		return
	}
	if idx >= 0 {
		nlog.Errorln("duplicated name [", op.name, "] - not registering")
		return
	}
	ival := op.interval
	now := mono.NanoTime()
	if op.interval == 0 {
		// calling right away
		ival = op.f(now)
		if ival == UnregInterval {
			return
		}
	}
	heap.Push(hk.actions, timedAction{name: op.name, f: op.f, updateTime: now + ival.Nanoseconds()})
}

func (hk *Housekeeper) updateTimer() {
	if hk.actions.Len() == 0 {
		hk.timer.Stop()
		return
	}
	d := hk.actions.Peek().updateTime - mono.NanoTime()
	hk.timer.Reset(time.Duration(max(d, 0)))
}

func (hk *Housekeeper) byName(name string) int {
	for i, tc := range *hk.actions {
		if tc.name == name {
			return i
		}
	}
	return -1
}

//////////////////
// timedActions //
//////////////////

func (tc timedActions) Len() int           { return len(tc) }
func (tc timedActions) Less(i, j int) bool { return tc[i].updateTime < tc[j].updateTime }
func (tc timedActions) Swap(i, j int)      { tc[i], tc[j] = tc[j], tc[i] }
func (tc timedActions) Peek() *timedAction { return &tc[0] }
func (tc *timedActions) Push(x any)        { *tc = append(*tc, x.(timedAction)) }

func (tc *timedActions) Pop() any {
	old := *tc
	n := len(old)
	item := old[n-1]
	*tc = old[0 : n-1]
	return item
}
