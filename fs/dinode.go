// Package fs provides the in-memory inode table and open-file table on top
// of the buffer cache, along with the on-disk inode and superblock formats.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import (
	"encoding/binary"

	"github.com/rv6go/kernel/cmn/cos"
)

// Dinode is the on-disk inode (little-endian, DinodeSize bytes):
//
//	type(2) major(2) minor(2) nlink(2) size(4) addrs[NDIRECT+1](4 each) pad
type Dinode struct {
	Type  InodeType
	Major uint16 // TypeDevice only
	Minor uint16 // ditto
	Nlink int16  // number of directory entries referring to this inode
	Size  uint32
	Addrs [NDIRECT + 1]uint32 // direct blocks, then the indirect one
}

const dinodeUsed = 2 + 2 + 2 + 2 + 4 + 4*(NDIRECT+1)

func init() { cos.Assert(dinodeUsed <= DinodeSize && BSIZE%DinodeSize == 0) }

func (d *Dinode) encode(b []byte) {
	_ = b[DinodeSize-1]
	le := binary.LittleEndian
	le.PutUint16(b[0:], uint16(d.Type))
	le.PutUint16(b[2:], d.Major)
	le.PutUint16(b[4:], d.Minor)
	le.PutUint16(b[6:], uint16(d.Nlink))
	le.PutUint32(b[8:], d.Size)
	off := 12
	for _, a := range d.Addrs {
		le.PutUint32(b[off:], a)
		off += 4
	}
	clear(b[off:DinodeSize])
}

func (d *Dinode) decode(b []byte) {
	_ = b[DinodeSize-1]
	le := binary.LittleEndian
	d.Type = InodeType(le.Uint16(b[0:]))
	d.Major = le.Uint16(b[2:])
	d.Minor = le.Uint16(b[4:])
	d.Nlink = int16(le.Uint16(b[6:]))
	d.Size = le.Uint32(b[8:])
	off := 12
	for i := range d.Addrs {
		d.Addrs[i] = le.Uint32(b[off:])
		off += 4
	}
}

// byte offset of inode `inum` within its block
func dinodeOff(inum uint32) int { return int(inum%IPB) * DinodeSize }
