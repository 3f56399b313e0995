// Package fs provides the in-memory inode table and open-file table on top
// of the buffer cache, along with the on-disk inode and superblock formats.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"sync"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/debug"
)

type (
	// File is an open file: it owns a reference to its inode.
	File struct {
		ip       *arena.Rc[Inode]
		mu       sync.Mutex
		off      uint32
		readable bool
		writable bool
	}

	Ftable struct {
		a *arena.Slab[File, *File]
	}

	Stat struct {
		Dev   uint32
		Inum  uint32
		Type  InodeType
		Nlink int16
		Size  uint32
	}
)

func NewFtable(capacity int) *Ftable {
	return &Ftable{a: arena.NewSlab[File](FtableName, capacity)}
}

func (ft *Ftable) Arena() *arena.Slab[File, *File] { return ft.a }

// Open allocates a file structure that holds its own reference to `ip`.
func (ft *Ftable) Open(ip *arena.Rc[Inode], readable, writable bool) (*arena.Rc[File], error) {
	ref := ip.Clone()
	rc, err := ft.a.Alloc(func(f *File) {
		f.ip = ref
		f.off = 0
		f.readable, f.writable = readable, writable
	})
	if err != nil {
		ref.Release()
		debug.Assert(cos.IsErrNoCapacity(err), err)
		return nil, cos.NewErrTooManyFiles(ft.a.Cap())
	}
	return rc, nil
}

//////////
// File //
//////////

func (f *File) Readable() bool { return f.readable }
func (f *File) Writable() bool { return f.writable }

// Inode returns the file's (borrowed) inode reference.
func (f *File) Inode() *arena.Rc[Inode] { return f.ip }

func (f *File) Offset() uint32 {
	f.mu.Lock()
	off := f.off
	f.mu.Unlock()
	return off
}

// Seek sets the offset for the next read or write, bounded by the file size.
func (f *File) Seek(off uint32) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.off = min(off, st.Size)
	f.mu.Unlock()
	return nil
}

func (f *File) Stat() (Stat, error) {
	ip := f.ip.Get()
	if err := ip.Lock(); err != nil {
		return Stat{}, err
	}
	d := ip.Dinode()
	st := Stat{Dev: ip.Dev(), Inum: ip.Inum(), Type: d.Type, Nlink: d.Nlink, Size: d.Size}
	ip.Unlock()
	return st, nil
}

// Finalize drops the inode reference; the table lock is released for the
// duration as it may, in turn, finalize the inode.
func (f *File) Finalize(g arena.Guard) {
	ip := f.ip
	f.ip = nil
	if ip != nil {
		g.ReacquireAfter(ip.Release)
	}
}
