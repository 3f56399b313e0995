// Package bio_test contains buffer cache unit tests.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package bio_test

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rv6go/kernel/bio"
	"github.com/rv6go/kernel/cmn"
	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/dbdriver"
	"github.com/rv6go/kernel/vdisk"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const dev = 1

var _ = Describe("Bcache", func() {
	var disk *vdisk.Disk

	BeforeEach(func() {
		var err error
		disk, err = vdisk.Open(cmn.DiskMemory, vdisk.Opts{Compression: cmn.CompressLZ4, Checksum: true})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(disk.Close()).To(Succeed())
	})

	onDisk := func(bn uint32) vdisk.Block {
		var b vdisk.Block
		Expect(disk.Read(dev, bn, &b)).To(Succeed())
		return b
	}

	fill := func(bc *bio.Bcache, bn uint32, v byte) {
		rc, err := bc.Read(dev, bn)
		Expect(err).NotTo(HaveOccurred())
		b := rc.Get()
		b.Lock()
		for i := range b.Data {
			b.Data[i] = v
		}
		b.MarkDirty()
		b.Unlock()
		rc.Release()
	}

	for _, retain := range []bool{false, true} {
		Context(map[bool]string{false: "strict", true: "retain"}[retain], func() {
			It("should return the same buffer to concurrent holders of a block", func() {
				bc := bio.New(disk, 3, retain)
				rc1, err := bc.Read(dev, 7)
				Expect(err).NotTo(HaveOccurred())
				rc2, err := bc.Read(dev, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(rc1.Same(rc2)).To(BeTrue())
				Expect(rc1.Get().Blockno()).To(BeEquivalentTo(7))
				Expect(rc1.Get().Dev()).To(BeEquivalentTo(dev))

				st := bc.Arena().Stats()
				Expect(st.Hits).To(BeEquivalentTo(1))
				Expect(st.Refs).To(BeEquivalentTo(2))
				rc1.Release()
				rc2.Release()
			})

			It("should write a dirty block back on the last release", func() {
				bc := bio.New(disk, 3, retain)
				fill(bc, 4, 0xab)
				b := onDisk(4)
				Expect(b[0]).To(BeEquivalentTo(0xab))
				Expect(b[vdisk.BSIZE-1]).To(BeEquivalentTo(0xab))
			})

			It("should read back data after eviction", func() {
				bc := bio.New(disk, 1, retain)
				fill(bc, 1, 0x11)
				fill(bc, 2, 0x22) // recycles the only buffer

				rc, err := bc.Read(dev, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(rc.Get().Data[100]).To(BeEquivalentTo(0x11))
				rc.Release()
			})

			It("should write through on Write", func() {
				bc := bio.New(disk, 2, retain)
				rc, err := bc.Read(dev, 9)
				Expect(err).NotTo(HaveOccurred())
				b := rc.Get()
				b.Lock()
				b.Data[0] = 0x42
				b.MarkDirty()
				b.Unlock()
				Expect(b.Dirty()).To(BeTrue())

				Expect(bc.Write(rc)).To(Succeed())
				Expect(b.Dirty()).To(BeFalse())
				Expect(onDisk(9)[0]).To(BeEquivalentTo(0x42))
				_, writes := disk.Stats()
				rc.Release()
				_, after := disk.Stats()
				Expect(after).To(Equal(writes), "clean buffer must not be written back")
			})

			It("should fail with no buffers when all are referenced", func() {
				bc := bio.New(disk, 2, retain)
				rc1, err := bc.Read(dev, 1)
				Expect(err).NotTo(HaveOccurred())
				rc2, err := bc.Read(dev, 2)
				Expect(err).NotTo(HaveOccurred())

				_, err = bc.Read(dev, 3)
				Expect(err).To(HaveOccurred())
				Expect(cos.IsErrNoCapacity(err)).To(BeTrue())
				Expect(strings.Contains(err.Error(), "no buffers")).To(BeTrue())

				rc1.Release()
				rc3, err := bc.Read(dev, 3)
				Expect(err).NotTo(HaveOccurred())
				rc2.Release()
				rc3.Release()
			})
		})
	}

	It("should serve a released block from the cache without disk I/O in retain mode", func() {
		bc := bio.New(disk, 2, true)
		fill(bc, 5, 0x55)
		reads, _ := disk.Stats()

		rc, err := bc.Read(dev, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(rc.Get().Data[0]).To(BeEquivalentTo(0x55))
		after, _ := disk.Stats()
		Expect(after).To(Equal(reads))
		rc.Release()

		st := bc.Arena().Stats()
		Expect(st.Allocs).To(BeEquivalentTo(1))
		Expect(st.Hits).To(BeEquivalentTo(1))
		Expect(st.Cached).To(Equal(1))
	})

	It("should re-read a released block from disk in strict mode", func() {
		bc := bio.New(disk, 2, false)
		fill(bc, 5, 0x55)
		reads, _ := disk.Stats()

		rc, err := bc.Read(dev, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(rc.Get().Data[0]).To(BeEquivalentTo(0x55))
		after, _ := disk.Stats()
		Expect(after).To(Equal(reads + 1))
		rc.Release()
	})
})

// failingDB fails block writes while `fail` is set
type failingDB struct {
	*dbdriver.DBMock
	fail atomic.Bool
}

func (db *failingDB) SetString(collection, key, data string) error {
	if db.fail.Load() {
		return errors.New("injected write failure")
	}
	return db.DBMock.SetString(collection, key, data)
}

var _ = Describe("Bcache write-back failure", func() {
	It("should keep unwritten data across a retained revive and retry on the next release", func() {
		db := &failingDB{DBMock: dbdriver.NewDBMock()}
		disk, err := vdisk.New(db, vdisk.Opts{Checksum: true})
		Expect(err).NotTo(HaveOccurred())
		defer disk.Close()
		bc := bio.New(disk, 2, true)

		rc, err := bc.Read(dev, 3)
		Expect(err).NotTo(HaveOccurred())
		b := rc.Get()
		b.Lock()
		b.Data[0] = 0xab
		b.MarkDirty()
		b.Unlock()

		db.fail.Store(true)
		rc.Release() // write-back fails
		db.fail.Store(false)

		rc, err = bc.Read(dev, 3)
		Expect(err).NotTo(HaveOccurred())
		b = rc.Get()
		Expect(b.Data[0]).To(BeEquivalentTo(0xab))
		Expect(b.Dirty()).To(BeTrue())
		rc.Release() // retried

		var blk vdisk.Block
		Expect(disk.Read(dev, 3, &blk)).To(Succeed())
		Expect(blk[0]).To(BeEquivalentTo(0xab))
		Expect(bc.Arena().Stats().Cached).To(Equal(1))
	})
})
