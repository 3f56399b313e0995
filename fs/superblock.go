// Package fs provides the in-memory inode table and open-file table on top
// of the buffer cache, along with the on-disk inode and superblock formats.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"encoding/binary"
	"fmt"

	"github.com/rv6go/kernel/bio"
	"github.com/rv6go/kernel/cmn/nlog"

	"github.com/pkg/errors"
)

// Superblock describes the disk layout:
//
//	[ boot block | super block | inode blocks ... ]
type Superblock struct {
	Magic      uint32
	Size       uint32 // size of file system image (blocks)
	Ninodes    uint32
	Inodestart uint32 // block number of first inode block
}

// IBlock returns the block containing inode `inum`.
func (sb *Superblock) IBlock(inum uint32) uint32 { return inum/IPB + sb.Inodestart }

func (sb *Superblock) String() string {
	return fmt.Sprintf("sb[size %d, ninodes %d, inodestart %d]", sb.Size, sb.Ninodes, sb.Inodestart)
}

func (sb *Superblock) encode(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:], sb.Magic)
	le.PutUint32(b[4:], sb.Size)
	le.PutUint32(b[8:], sb.Ninodes)
	le.PutUint32(b[12:], sb.Inodestart)
}

func (sb *Superblock) decode(b []byte) {
	le := binary.LittleEndian
	sb.Magic = le.Uint32(b[0:])
	sb.Size = le.Uint32(b[4:])
	sb.Ninodes = le.Uint32(b[8:])
	sb.Inodestart = le.Uint32(b[12:])
}

// ReadSuperblock reads and validates the superblock of `dev`.
func ReadSuperblock(bc *bio.Bcache, dev uint32) (*Superblock, error) {
	rc, err := bc.Read(dev, SBLOCK)
	if err != nil {
		return nil, err
	}
	defer rc.Release()
	b := rc.Get()
	sb := &Superblock{}
	b.Lock()
	sb.decode(b.Data[:])
	b.Unlock()
	if sb.Magic != FSMAGIC {
		return nil, errors.Errorf("dev %d: invalid file system (magic %#x)", dev, sb.Magic)
	}
	return sb, nil
}

// Mkfs formats `dev` with `ninodes` inodes and an empty root directory.
func Mkfs(bc *bio.Bcache, dev, ninodes uint32) (*Superblock, error) {
	ninodeblocks := ninodes/IPB + 1
	sb := &Superblock{
		Magic:      FSMAGIC,
		Size:       SBLOCK + 1 + ninodeblocks,
		Ninodes:    ninodes,
		Inodestart: SBLOCK + 1,
	}
	if err := writeBlock(bc, dev, SBLOCK, func(data []byte) { sb.encode(data) }); err != nil {
		return nil, errors.Wrap(err, "mkfs: superblock")
	}
	for i := range ninodeblocks {
		if err := writeBlock(bc, dev, sb.Inodestart+i, func(data []byte) { clear(data) }); err != nil {
			return nil, errors.Wrap(err, "mkfs: inode blocks")
		}
	}
	root := Dinode{Type: TypeDir, Nlink: 1}
	if err := writeBlock(bc, dev, sb.IBlock(ROOTINO), func(data []byte) { root.encode(data[dinodeOff(ROOTINO):]) }); err != nil {
		return nil, errors.Wrap(err, "mkfs: root inode")
	}
	nlog.Infoln("mkfs: dev", dev, sb.String())
	return sb, nil
}

// read-modify-write one block through the cache
func writeBlock(bc *bio.Bcache, dev, blockno uint32, modify func(data []byte)) error {
	rc, err := bc.Read(dev, blockno)
	if err != nil {
		return err
	}
	defer rc.Release()
	b := rc.Get()
	b.Lock()
	modify(b.Data[:])
	b.MarkDirty()
	b.Unlock()
	return bc.Write(rc)
}
