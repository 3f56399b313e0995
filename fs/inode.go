// Package fs provides the in-memory inode table and open-file table on top
// of the buffer cache, along with the on-disk inode and superblock formats.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"fmt"
	"sync"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/bio"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/nlog"

	"github.com/pkg/errors"
)

// no free inode on disk
var ErrNoInodes = errors.New("no inodes")

type (
	// Inode is the in-memory copy of an on-disk inode. `dev` and `inum` are
	// immutable while the inode is referenced; everything else is guarded by
	// the inode's lock (see Lock).
	Inode struct {
		it     *Itable
		parent *arena.Rc[Inode]
		mu     sync.Mutex
		d      Dinode
		dev    uint32
		inum   uint32
		valid  bool // has d been read from disk?
		dirty  bool // d modified since last Update
	}

	Itable struct {
		a       *arena.Slab[Inode, *Inode]
		bc      *bio.Bcache
		sb      *Superblock
		rootdev uint32
	}
)

func NewItable(bc *bio.Bcache, sb *Superblock, rootdev uint32, capacity int) *Itable {
	return &Itable{
		a:       arena.NewSlab[Inode](ItableName, capacity),
		bc:      bc,
		sb:      sb,
		rootdev: rootdev,
	}
}

func (it *Itable) Arena() *arena.Slab[Inode, *Inode] { return it.a }
func (it *Itable) Superblock() *Superblock          { return it.sb }

// Get finds the inode with number inum on device dev and returns the
// in-memory copy. Does not lock the inode and does not read it from disk.
func (it *Itable) Get(dev, inum uint32) (*arena.Rc[Inode], error) {
	rc, err := it.a.FindOrAlloc(
		func(ip *Inode) bool { return ip.dev == dev && ip.inum == inum },
		func(ip *Inode) {
			ip.it = it
			ip.dev, ip.inum = dev, inum
			ip.valid, ip.dirty = false, false
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "iget %d/%d", dev, inum)
	}
	return rc, nil
}

// MustGet is Get that panics when the table is full.
func (it *Itable) MustGet(dev, inum uint32) *arena.Rc[Inode] {
	rc, err := it.Get(dev, inum)
	if err != nil {
		nlog.Errorln(err)
		panic("itable: no inodes")
	}
	return rc
}

func (it *Itable) Root() *arena.Rc[Inode] { return it.MustGet(it.rootdev, ROOTINO) }

// Alloc allocates an inode on device dev, marking it allocated on disk by
// giving it type `typ`. Returns an unlocked but allocated and referenced inode.
func (it *Itable) Alloc(dev uint32, typ InodeType) (*arena.Rc[Inode], error) {
	cos.Assert(typ != TypeNone)
	for inum := uint32(1); inum < it.sb.Ninodes; inum++ {
		rc, err := it.bc.Read(dev, it.sb.IBlock(inum))
		if err != nil {
			return nil, err
		}
		var (
			d   Dinode
			buf = rc.Get()
			off = dinodeOff(inum)
		)
		buf.Lock()
		d.decode(buf.Data[off:])
		if d.Type != TypeNone {
			buf.Unlock()
			rc.Release()
			continue
		}
		// a free inode
		d = Dinode{Type: typ}
		d.encode(buf.Data[off:])
		buf.MarkDirty()
		buf.Unlock()
		err = it.bc.Write(rc)
		rc.Release()
		if err != nil {
			return nil, err
		}
		return it.Get(dev, inum)
	}
	return nil, errors.Wrapf(ErrNoInodes, "ialloc dev %d", dev)
}

// SetParent makes `child` hold a reference to `parent` (e.g., its directory);
// the reference is dropped when the child gets finalized.
func (*Itable) SetParent(child, parent *arena.Rc[Inode]) {
	ref := parent.Clone()
	ip := child.Get()
	ip.mu.Lock()
	prev := ip.parent
	ip.parent = ref
	ip.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
}

func (it *Itable) load(ip *Inode) error {
	rc, err := it.bc.Read(ip.dev, it.sb.IBlock(ip.inum))
	if err != nil {
		return err
	}
	buf := rc.Get()
	buf.Lock()
	ip.d.decode(buf.Data[dinodeOff(ip.inum):])
	buf.Unlock()
	rc.Release()
	return nil
}

func (it *Itable) store(ip *Inode) error {
	rc, err := it.bc.Read(ip.dev, it.sb.IBlock(ip.inum))
	if err != nil {
		return err
	}
	buf := rc.Get()
	buf.Lock()
	ip.d.encode(buf.Data[dinodeOff(ip.inum):])
	buf.MarkDirty()
	buf.Unlock()
	err = it.bc.Write(rc)
	rc.Release()
	return err
}

///////////
// Inode //
///////////

func (ip *Inode) Dev() uint32  { return ip.dev }
func (ip *Inode) Inum() uint32 { return ip.inum }

func (ip *Inode) String() string { return fmt.Sprintf("inode[%d/%d]", ip.dev, ip.inum) }

// Parent returns the (borrowed) parent reference, if any.
func (ip *Inode) Parent() *arena.Rc[Inode] {
	ip.mu.Lock()
	p := ip.parent
	ip.mu.Unlock()
	return p
}

// Lock locks the inode, reading it from disk if necessary.
func (ip *Inode) Lock() error {
	ip.mu.Lock()
	if ip.valid {
		return nil
	}
	if err := ip.it.load(ip); err != nil {
		ip.mu.Unlock()
		return err
	}
	if ip.d.Type == TypeNone {
		ip.mu.Unlock()
		return fmt.Errorf("%s: no type", ip)
	}
	ip.valid = true
	return nil
}

func (ip *Inode) Unlock() { ip.mu.Unlock() }

// Dinode returns the in-memory copy of the on-disk inode; the caller holds
// the lock and follows up modifications with Update or MarkDirty.
func (ip *Inode) Dinode() *Dinode { return &ip.d }

// MarkDirty defers writing the inode to disk until its last reference is gone.
func (ip *Inode) MarkDirty() { ip.dirty = true }

// Update copies a modified in-memory inode to disk. Must be called after
// every change to a field that lives on disk (or use MarkDirty).
func (ip *Inode) Update() error {
	if err := ip.it.store(ip); err != nil {
		return err
	}
	ip.dirty = false
	return nil
}

// Finalize runs when the last reference is dropped. An inode with no links
// is freed on disk; nobody can look it up by then, so the table lock is
// released for the disk I/O. A dirty inode, on the other hand, is written back
// under the lock: otherwise, a concurrent Get could load a stale copy.
func (ip *Inode) Finalize(g arena.Guard) {
	parent := ip.parent
	ip.parent = nil
	if ip.valid {
		switch {
		case ip.d.Nlink == 0:
			g.ReacquireAfter(ip.free)
		case ip.dirty:
			if err := ip.it.store(ip); err != nil {
				nlog.Errorln(ip.String(), "write-back failed:", err)
			}
		}
	}
	ip.valid, ip.dirty = false, false
	if parent != nil {
		g.ReacquireAfter(parent.Release)
	}
}

func (ip *Inode) free() {
	ip.d = Dinode{}
	if err := ip.it.store(ip); err != nil {
		nlog.Errorln(ip.String(), "failed to free:", err)
	}
}
