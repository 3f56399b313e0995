// Package cmn provides common constants, types, and utilities for the kernel packages.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rv6go/kernel/cmn/cos"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	CompressNone = "none"
	CompressLZ4  = "lz4"
)

// in-memory disk
const DiskMemory = ":memory:"

type (
	Config struct {
		Itable   TableConf  `json:"itable" yaml:"itable"`
		Ftable   TableConf  `json:"ftable" yaml:"ftable"`
		Bcache   BcacheConf `json:"bcache" yaml:"bcache"`
		Disk     DiskConf   `json:"disk" yaml:"disk"`
		Periodic PeriodConf `json:"periodic" yaml:"periodic"`
		FS       FSConf     `json:"fs" yaml:"fs"`
	}
	TableConf struct {
		Capacity int `json:"capacity" yaml:"capacity"`
	}
	BcacheConf struct {
		Capacity int  `json:"capacity" yaml:"capacity"`
		Retain   bool `json:"retain" yaml:"retain"` // keep released blocks matchable until recycled
	}
	DiskConf struct {
		Path        string `json:"path" yaml:"path"`               // buntdb file or ":memory:"
		Compression string `json:"compression" yaml:"compression"` // "lz4" | "none"
		Checksum    bool   `json:"checksum" yaml:"checksum"`       // xxhash64 per block
	}
	PeriodConf struct {
		StatsTime cos.Duration `json:"stats_time" yaml:"stats_time"`
	}
	FSConf struct {
		Ninodes int    `json:"ninodes" yaml:"ninodes"`
		Dev     uint32 `json:"dev" yaml:"dev"`
	}
)

// defaults as in param.h: NINODE, NFILE, NBUF
func DefaultConfig() *Config {
	return &Config{
		Itable: TableConf{Capacity: 50},
		Ftable: TableConf{Capacity: 100},
		Bcache: BcacheConf{Capacity: 30, Retain: true},
		Disk: DiskConf{
			Path:        DiskMemory,
			Compression: CompressLZ4,
			Checksum:    true,
		},
		Periodic: PeriodConf{StatsTime: cos.Duration(10 * time.Second)},
		FS:       FSConf{Ninodes: 200, Dev: 1},
	}
}

// LoadConfig reads JSON or (by extension) YAML on top of the defaults;
// unknown fields are rejected either way.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		err = dec.Decode(config)
	default:
		err = cos.JSON.Unmarshal(b, config)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %q", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", path)
	}
	return config, nil
}

func (c *Config) Validate() error {
	for _, nv := range []struct {
		name string
		v    int
	}{
		{"itable.capacity", c.Itable.Capacity},
		{"ftable.capacity", c.Ftable.Capacity},
		{"bcache.capacity", c.Bcache.Capacity},
		{"fs.ninodes", c.FS.Ninodes},
	} {
		if nv.v <= 0 {
			return errors.Errorf("%s must be positive (got %d)", nv.name, nv.v)
		}
	}
	if c.FS.Dev == 0 {
		return errors.New("fs.dev must be non-zero")
	}
	switch c.Disk.Compression {
	case CompressNone, CompressLZ4:
	default:
		return errors.Errorf("disk.compression: expecting %q or %q, got %q", CompressNone, CompressLZ4, c.Disk.Compression)
	}
	if c.Disk.Path == "" {
		return errors.New("disk.path is empty")
	}
	if c.Periodic.StatsTime.D() < 0 {
		return errors.Errorf("periodic.stats_time must be non-negative (got %s)", c.Periodic.StatsTime)
	}
	return nil
}

func (c *Config) String() string { return cos.MustMarshalToString(c) }
