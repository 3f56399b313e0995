// Package fs provides the in-memory inode table and open-file table on top
// of the buffer cache, along with the on-disk inode and superblock formats.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package fs

import "github.com/rv6go/kernel/vdisk"

const (
	BSIZE = vdisk.BSIZE

	NDIRECT = 12 // direct block addresses per inode
	ROOTINO = 1  // root i-number

	SBLOCK  = 1 // superblock's block number
	FSMAGIC = 0x10203040

	DinodeSize = 64                 // on-disk inode, bytes
	IPB        = BSIZE / DinodeSize // inodes per block
)

const (
	ItableName = "ITABLE"
	FtableName = "FTABLE"
)

type InodeType int16

const (
	TypeNone InodeType = iota
	TypeDir
	TypeFile
	TypeDevice
)

func (t InodeType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeDir:
		return "dir"
	case TypeFile:
		return "file"
	case TypeDevice:
		return "device"
	default:
		return "invalid"
	}
}
