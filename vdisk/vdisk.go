// Package vdisk implements a virtual block device on top of a key-value store:
// fixed-size blocks addressed by (dev, blockno), optionally lz4-compressed
// and xxhash-checksummed at rest.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package vdisk

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/rv6go/kernel/cmn"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/nlog"
	"github.com/rv6go/kernel/dbdriver"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// block size
const BSIZE = 1024

const (
	metaCollection = "meta"
	metaKey        = "geometry"
)

// record header: flags byte, then (if flagCksum) xxhash64 of the raw block
const (
	flagLZ4   = 1 << 0
	flagCksum = 1 << 1

	sizeofCksum = 8
)

type (
	Block [BSIZE]byte

	Opts struct {
		Compression string // cmn.CompressLZ4 | cmn.CompressNone
		Checksum    bool
	}

	geometry struct {
		Bsize int `json:"bsize"`
	}

	Disk struct {
		db       dbdriver.Driver
		compress bool
		checksum bool
		reads    atomic.Int64
		writes   atomic.Int64
	}
)

// Open opens a buntdb-backed disk at `path` (cmn.DiskMemory for in-memory).
func Open(path string, opts Opts) (*Disk, error) {
	db, err := dbdriver.NewBuntDB(path)
	if err != nil {
		return nil, err
	}
	d, err := New(db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// New formats an empty store or verifies the geometry of an existing one.
func New(db dbdriver.Driver, opts Opts) (*Disk, error) {
	d := &Disk{db: db, compress: opts.Compression == cmn.CompressLZ4, checksum: opts.Checksum}
	var geo geometry
	err := db.Get(metaCollection, metaKey, &geo)
	switch {
	case err == nil:
		if geo.Bsize != BSIZE {
			return nil, errors.Errorf("vdisk: block size mismatch (have %d, expecting %d)", geo.Bsize, BSIZE)
		}
	case dbdriver.IsErrNotFound(err):
		if err := db.Set(metaCollection, metaKey, &geometry{Bsize: BSIZE}); err != nil {
			return nil, errors.Wrap(err, "vdisk: failed to format")
		}
	default:
		return nil, errors.Wrap(err, "vdisk: failed to read geometry")
	}
	return d, nil
}

func (d *Disk) Close() error { return d.db.Close() }

func (d *Disk) String() string {
	return fmt.Sprintf("vdisk[lz4=%t, cksum=%t, reads=%d, writes=%d]", d.compress, d.checksum, d.reads.Load(), d.writes.Load())
}

func (d *Disk) Stats() (reads, writes int64) { return d.reads.Load(), d.writes.Load() }

func collection(dev uint32) string { return "dev" + strconv.FormatUint(uint64(dev), 10) }
func key(blockno uint32) string    { return fmt.Sprintf("%08x", blockno) }

// Read fills `b` with block contents; a block that was never written reads as zeros.
func (d *Disk) Read(dev, blockno uint32, b *Block) error {
	d.reads.Add(1)
	s, err := d.db.GetString(collection(dev), key(blockno))
	if err != nil {
		if dbdriver.IsErrNotFound(err) {
			clear(b[:])
			return nil
		}
		return errors.Wrapf(err, "vdisk: read %d/%d", dev, blockno)
	}
	return d.decode([]byte(s), dev, blockno, b)
}

func (d *Disk) Write(dev, blockno uint32, b *Block) error {
	d.writes.Add(1)
	rec := d.encode(b)
	if err := d.db.SetString(collection(dev), key(blockno), string(rec)); err != nil {
		return errors.Wrapf(err, "vdisk: write %d/%d", dev, blockno)
	}
	return nil
}

func (d *Disk) encode(b *Block) []byte {
	var (
		flags byte
		hdr   = 1
	)
	if d.checksum {
		flags |= flagCksum
		hdr += sizeofCksum
	}
	rec := make([]byte, hdr+lz4.CompressBlockBound(BSIZE))
	if d.checksum {
		binary.LittleEndian.PutUint64(rec[1:], xxhash.Sum64(b[:]))
	}
	n := 0
	if d.compress {
		var err error
		n, err = lz4.CompressBlock(b[:], rec[hdr:], nil)
		if err != nil {
			nlog.Warningln("vdisk: lz4 compression failed, storing raw:", err)
			n = 0
		}
	}
	if n > 0 && n < BSIZE {
		flags |= flagLZ4
	} else {
		// incompressible
		n = copy(rec[hdr:], b[:])
	}
	rec[0] = flags
	return rec[:hdr+n]
}

func (*Disk) decode(rec []byte, dev, blockno uint32, b *Block) error {
	if len(rec) < 1 {
		return errors.Errorf("vdisk: %d/%d: empty record", dev, blockno)
	}
	var (
		flags    = rec[0]
		payload  = rec[1:]
		expected uint64
	)
	if flags&flagCksum != 0 {
		if len(payload) < sizeofCksum {
			return errors.Errorf("vdisk: %d/%d: truncated record", dev, blockno)
		}
		expected = binary.LittleEndian.Uint64(payload)
		payload = payload[sizeofCksum:]
	}
	if flags&flagLZ4 != 0 {
		n, err := lz4.UncompressBlock(payload, b[:])
		if err != nil {
			return errors.Wrapf(err, "vdisk: %d/%d: lz4", dev, blockno)
		}
		if n != BSIZE {
			return errors.Errorf("vdisk: %d/%d: short block (%d)", dev, blockno, n)
		}
	} else {
		if len(payload) != BSIZE {
			return errors.Errorf("vdisk: %d/%d: invalid block size %d", dev, blockno, len(payload))
		}
		copy(b[:], payload)
	}
	if flags&flagCksum != 0 {
		if actual := xxhash.Sum64(b[:]); actual != expected {
			return cos.NewErrChecksum(fmt.Sprintf("block %d/%d", dev, blockno), expected, actual)
		}
	}
	return nil
}
