// Package main is the arenactl command-line tool: arena stress workloads,
// metrics server, and configuration dump.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/mono"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"golang.org/x/sync/errgroup"
)

type (
	// stress object: one per key while referenced
	item struct {
		st  *counters
		key int
	}
	counters struct {
		finalized atomic.Int64
		nocap     atomic.Int64
		ops       atomic.Int64
	}
	stressArgs struct {
		workers int
		ops     int
		keys    int
	}
	target struct {
		a  arena.Arena[item]
		st *counters
	}
)

func (it *item) Finalize(arena.Guard) { it.st.finalized.Add(1) }

func (a *acli) stressHandler(c *cli.Context) error {
	var (
		args = stressArgs{
			workers: c.Int(workersFlag.Name),
			ops:     c.Int(opsFlag.Name),
			keys:    c.Int(keysFlag.Name),
		}
		capacity = c.Int(capacityFlag.Name)
		kind     = c.String(kindFlag.Name)
	)
	if args.workers <= 0 || args.ops <= 0 || args.keys <= 0 || capacity <= 0 {
		return fmt.Errorf("--%s, --%s, --%s, and --%s must be positive",
			workersFlag.Name, opsFlag.Name, keysFlag.Name, capacityFlag.Name)
	}
	targets, err := newTargets(kind, capacity, c.Bool(retainFlag.Name))
	if err != nil {
		return err
	}

	var progress *mpb.Progress
	if !c.Bool(noBarFlag.Name) {
		progress = newProgress(a.outWriter)
	}
	started := mono.NanoTime()
	err = stressAll(context.Background(), targets, args, progress)
	if progress != nil {
		progress.Wait()
	}
	if err != nil {
		return err
	}
	elapsed := mono.Since(started)

	fmt.Fprintln(a.outWriter, fcyan(fmt.Sprintf("%d workers x %d ops, %d keys, %v", args.workers, args.ops, args.keys, elapsed)))
	for _, t := range targets {
		st := t.a.Stats()
		fmt.Fprintln(a.outWriter, st.String(), "no-capacity", t.st.nocap.Load())
	}
	return nil
}

func newTargets(kind string, capacity int, retain bool) ([]target, error) {
	var (
		targets []target
		opts    []arena.Option
	)
	if retain {
		opts = append(opts, arena.WithRetain())
	}
	if kind == "slab" || kind == "all" {
		targets = append(targets, target{a: arena.NewSlab[item]("SLAB", capacity), st: &counters{}})
	}
	if kind == "mru" || kind == "all" {
		targets = append(targets, target{a: arena.NewMRU[item]("MRU", capacity, opts...), st: &counters{}})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("invalid --%s %q: expecting slab, mru, or all", kindFlag.Name, kind)
	}
	return targets, nil
}

// stressAll runs the workload against all targets at the same time and
// then checks that every object got finalized.
func stressAll(ctx context.Context, targets []target, args stressArgs, progress *mpb.Progress) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		var bar *mpb.Bar
		if progress != nil {
			bar = addBar(progress, t.a.Name(), int64(args.workers*args.ops))
		}
		g.Go(func() error {
			err := stress(ctx, t, args, bar)
			if err != nil && bar != nil {
				bar.Abort(false)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, t := range targets {
		if err := verify(t); err != nil {
			return err
		}
	}
	return nil
}

func stress(ctx context.Context, t target, args stressArgs, bar *mpb.Bar) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := range args.workers {
		g.Go(func() error {
			rnd := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
			for range args.ops {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := op(t, rnd, args.keys); err != nil {
					return err
				}
				t.st.ops.Add(1)
				if bar != nil {
					bar.Increment()
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func op(t target, rnd *rand.Rand, keys int) error {
	key := rnd.IntN(keys)
	rc, err := t.a.FindOrAlloc(
		func(it *item) bool { return it.key == key },
		func(it *item) { it.key, it.st = key, t.st },
	)
	if err != nil {
		if !cos.IsErrNoCapacity(err) {
			return err
		}
		t.st.nocap.Add(1)
		runtime.Gosched()
		return nil
	}
	if got := rc.Get().key; got != key {
		rc.Release()
		return fmt.Errorf("%s: found key %d, expecting %d", t.a.Name(), got, key)
	}
	if rnd.IntN(4) == 0 {
		rc.Clone().Release()
	}
	if rnd.IntN(8) == 0 {
		runtime.Gosched() // hold it a bit longer
	}
	rc.Release()
	return nil
}

func verify(t target) error {
	st := t.a.Stats()
	switch {
	case st.InUse != 0 || st.Refs != 0:
		return fmt.Errorf("%s: objects still referenced after the run", st.String())
	case st.Finalized != t.st.finalized.Load():
		return fmt.Errorf("%s: finalizer ran %d times", st.String(), t.st.finalized.Load())
	case st.Cached == 0 && st.Finalized != st.Allocs:
		return fmt.Errorf("%s: allocations and finalizations do not match", st.String())
	}
	return nil
}
