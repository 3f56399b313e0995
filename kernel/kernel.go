// Package kernel boots the storage stack: virtual disk, buffer cache,
// inode and file tables, plus arena stats and housekeeping.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package kernel

import (
	"github.com/rv6go/kernel/bio"
	"github.com/rv6go/kernel/cmn"
	"github.com/rv6go/kernel/cmn/nlog"
	"github.com/rv6go/kernel/fs"
	"github.com/rv6go/kernel/hk"
	"github.com/rv6go/kernel/stats"
	"github.com/rv6go/kernel/vdisk"

	"github.com/pkg/errors"
)

type Kernel struct {
	Config *cmn.Config
	Disk   *vdisk.Disk
	Bcache *bio.Bcache
	Itable *fs.Itable
	Ftable *fs.Ftable
	Stats  *stats.Collector
	HK     *hk.Housekeeper
}

// New boots a kernel; an unformatted root device gets formatted.
func New(config *cmn.Config, signals bool) (*Kernel, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "boot")
	}
	disk, err := vdisk.Open(config.Disk.Path, vdisk.Opts{
		Compression: config.Disk.Compression,
		Checksum:    config.Disk.Checksum,
	})
	if err != nil {
		return nil, errors.Wrap(err, "boot")
	}
	k := &Kernel{
		Config: config,
		Disk:   disk,
		Bcache: bio.New(disk, config.Bcache.Capacity, config.Bcache.Retain),
		Ftable: fs.NewFtable(config.Ftable.Capacity),
		Stats:  stats.NewCollector(),
		HK:     hk.New(signals),
	}
	sb, err := k.mount()
	if err != nil {
		disk.Close()
		return nil, err
	}
	k.Itable = fs.NewItable(k.Bcache, sb, config.FS.Dev, config.Itable.Capacity)

	k.Stats.Add(k.Bcache.Arena())
	k.Stats.Add(k.Itable.Arena())
	k.Stats.Add(k.Ftable.Arena())

	if ival := config.Periodic.StatsTime.D(); ival > 0 {
		l := stats.NewLogger(k.Stats, hk.Ival(ival))
		k.HK.Reg(hk.StatsLogName, l.Log, hk.Ival(ival))
	}
	nlog.Infoln("boot:", disk.String(), sb.String())
	return k, nil
}

func (k *Kernel) mount() (*fs.Superblock, error) {
	dev := k.Config.FS.Dev
	sb, err := fs.ReadSuperblock(k.Bcache, dev)
	if err == nil {
		return sb, nil
	}
	nlog.Warningln(err, "- formatting")
	sb, err = fs.Mkfs(k.Bcache, dev, uint32(k.Config.FS.Ninodes))
	if err != nil {
		return nil, errors.Wrapf(err, "boot: failed to format dev %d", dev)
	}
	return sb, nil
}

// Run blocks running housekeeping until Shutdown (or a signal, if enabled).
func (k *Kernel) Run() error { return k.HK.Run() }

// Shutdown stops housekeeping and closes the disk; the caller makes sure
// that all references have been released.
func (k *Kernel) Shutdown() error {
	k.HK.Stop(nil)
	for _, st := range k.Stats.Snapshot() {
		if st.Refs > 0 {
			nlog.Warningln("shutdown:", st.String())
		}
	}
	nlog.Flush()
	return k.Disk.Close()
}
