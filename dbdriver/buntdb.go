// Package dbdriver provides a local key-value store for the virtual disk.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package dbdriver

import (
	"strings"

	"github.com/rv6go/kernel/cmn/cos"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

const autoShrinkSize = cos.MiB

type BuntDriver struct {
	driver *buntdb.DB
}

// interface guard
var _ Driver = (*BuntDriver)(nil)

// NewBuntDB opens (or creates) the database file; ":memory:" is in-memory only.
func NewBuntDB(path string) (*BuntDriver, error) {
	driver, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "buntdb: failed to open %q", path)
	}
	// NOTE: defaults are fine except shrink size: increase to avoid
	// rewriting the append-only file too often
	cfg := buntdb.Config{
		SyncPolicy:           buntdb.EverySecond,
		AutoShrinkMinSize:    autoShrinkSize,
		AutoShrinkPercentage: 100,
	}
	if err = driver.SetConfig(cfg); err != nil {
		driver.Close()
		return nil, errors.Wrap(err, "buntdb: failed to configure")
	}
	return &BuntDriver{driver: driver}, nil
}

func (bd *BuntDriver) Close() error { return bd.driver.Close() }

func (bd *BuntDriver) Set(collection, key string, object any) error {
	b := cos.MustMarshal(object)
	return bd.SetString(collection, key, string(b))
}

func (bd *BuntDriver) Get(collection, key string, object any) error {
	s, err := bd.GetString(collection, key)
	if err != nil {
		return err
	}
	return cos.JSON.UnmarshalFromString(s, object)
}

func (bd *BuntDriver) SetString(collection, key, data string) error {
	name := makePath(collection, key)
	err := bd.driver.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(name, data, nil)
		return err
	})
	return err
}

func (bd *BuntDriver) GetString(collection, key string) (string, error) {
	var (
		value string
		name  = makePath(collection, key)
	)
	err := bd.driver.View(func(tx *buntdb.Tx) error {
		var err error
		value, err = tx.Get(name)
		return err
	})
	return value, bd.convErr(collection, key, err)
}

func (bd *BuntDriver) Delete(collection, key string) error {
	name := makePath(collection, key)
	err := bd.driver.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(name)
		return err
	})
	return bd.convErr(collection, key, err)
}

func (bd *BuntDriver) List(collection, pattern string) ([]string, error) {
	var (
		keys   = make([]string, 0)
		filter = makePath(collection, pattern)
	)
	if !strings.ContainsAny(filter, "*?") {
		filter += "*"
	}
	err := bd.driver.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(filter, func(path, _ string) bool {
			if _, key := ParsePath(path); key != "" {
				keys = append(keys, key)
			}
			return true
		})
	})
	return keys, err
}

func (bd *BuntDriver) DeleteCollection(collection string) error {
	keys, err := bd.List(collection, "")
	if err != nil || len(keys) == 0 {
		return err
	}
	return bd.driver.Update(func(tx *buntdb.Tx) error {
		for _, k := range keys {
			if _, err := tx.Delete(makePath(collection, k)); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}

func (*BuntDriver) convErr(collection, key string, err error) error {
	if err == buntdb.ErrNotFound {
		return NewErrNotFound(collection, key)
	}
	return err
}
