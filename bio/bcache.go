// Package bio implements the buffer cache: a fixed pool of block buffers,
// ordered by recency of use, that caches virtual disk blocks.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package bio

import (
	"sync"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/debug"
	"github.com/rv6go/kernel/cmn/nlog"
	"github.com/rv6go/kernel/vdisk"

	"github.com/pkg/errors"
)

const ArenaName = "BCACHE"

type (
	// Buf is a cached copy of one disk block. Data is guarded by the buffer's
	// own lock (see Lock); identity (dev, blockno) is immutable while referenced.
	Buf struct {
		bc      *Bcache
		Data    vdisk.Block
		mu      sync.Mutex
		dev     uint32
		blockno uint32
		valid   bool // has data been read from disk?
		dirty   bool // modified since last write
	}

	Bcache struct {
		a    *arena.MRU[Buf, *Buf]
		disk *vdisk.Disk
	}
)

// New creates a buffer cache of `capacity` blocks. With `retain`, released
// buffers keep their contents and get reused (without disk I/O) by subsequent
// reads of the same block, until recycled.
func New(disk *vdisk.Disk, capacity int, retain bool) *Bcache {
	var opts []arena.Option
	if retain {
		opts = append(opts, arena.WithRetain())
	}
	return &Bcache{
		a:    arena.NewMRU[Buf](ArenaName, capacity, opts...),
		disk: disk,
	}
}

func (bc *Bcache) Arena() *arena.MRU[Buf, *Buf] { return bc.a }

// Read returns a referenced buffer with the contents of the given block.
func (bc *Bcache) Read(dev, blockno uint32) (*arena.Rc[Buf], error) {
	rc, err := bc.a.FindOrAlloc(
		func(b *Buf) bool { return b.dev == dev && b.blockno == blockno },
		func(b *Buf) {
			b.bc = bc
			b.dev, b.blockno = dev, blockno
			b.valid, b.dirty = false, false
		},
	)
	if err != nil {
		debug.Assert(cos.IsErrNoCapacity(err), err)
		return nil, errors.Wrapf(err, "bread %d/%d: no buffers", dev, blockno)
	}
	b := rc.Get()
	b.mu.Lock()
	if !b.valid {
		if err := bc.disk.Read(dev, blockno, &b.Data); err != nil {
			b.mu.Unlock()
			rc.Release()
			return nil, err
		}
		b.valid = true
	}
	b.mu.Unlock()
	return rc, nil
}

// Write writes the buffer's contents to disk right away.
func (bc *Bcache) Write(rc *arena.Rc[Buf]) error {
	b := rc.Get()
	b.mu.Lock()
	err := bc.disk.Write(b.dev, b.blockno, &b.Data)
	if err == nil {
		b.dirty = false
	}
	b.mu.Unlock()
	return err
}

/////////
// Buf //
/////////

func (b *Buf) Dev() uint32     { return b.dev }
func (b *Buf) Blockno() uint32 { return b.blockno }

func (b *Buf) Lock()   { b.mu.Lock() }
func (b *Buf) Unlock() { b.mu.Unlock() }

// MarkDirty schedules a write-back upon the last release; the caller holds the lock.
func (b *Buf) MarkDirty() { b.dirty = true }

func (b *Buf) Dirty() bool {
	b.mu.Lock()
	dirty := b.dirty
	b.mu.Unlock()
	return dirty
}

// Finalize writes back a dirty block. The arena lock stays held so that no
// other buffer can be (re)loaded with the same block while it is being written.
// A failed write-back leaves the buffer valid and dirty: when retained, the
// next holder gets the unwritten data and the next release retries.
func (b *Buf) Finalize(arena.Guard) {
	if !b.dirty {
		return
	}
	if err := b.bc.disk.Write(b.dev, b.blockno, &b.Data); err != nil {
		nlog.Errorln("bcache: write-back", b.dev, b.blockno, "failed:", err)
		return
	}
	b.dirty = false
}
