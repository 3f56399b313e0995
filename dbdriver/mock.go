// Package dbdriver provides a local key-value store for the virtual disk.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package dbdriver

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rv6go/kernel/cmn/cos"
)

type DBMock struct {
	values map[string]string
	mtx    sync.RWMutex
}

// interface guard
var _ Driver = (*DBMock)(nil)

func NewDBMock() *DBMock     { return &DBMock{values: make(map[string]string)} }
func (*DBMock) Close() error { return nil }

func (bd *DBMock) Set(collection, key string, object any) error {
	b := cos.MustMarshal(object)
	return bd.SetString(collection, key, string(b))
}

func (bd *DBMock) Get(collection, key string, object any) error {
	s, err := bd.GetString(collection, key)
	if err != nil {
		return err
	}
	return cos.JSON.UnmarshalFromString(s, object)
}

func (bd *DBMock) SetString(collection, key, data string) error {
	bd.mtx.Lock()
	bd.values[makePath(collection, key)] = data
	bd.mtx.Unlock()
	return nil
}

func (bd *DBMock) GetString(collection, key string) (string, error) {
	bd.mtx.RLock()
	value, ok := bd.values[makePath(collection, key)]
	bd.mtx.RUnlock()
	if !ok {
		return "", NewErrNotFound(collection, key)
	}
	return value, nil
}

func (bd *DBMock) Delete(collection, key string) error {
	name := makePath(collection, key)
	bd.mtx.Lock()
	defer bd.mtx.Unlock()
	if _, ok := bd.values[name]; !ok {
		return NewErrNotFound(collection, key)
	}
	delete(bd.values, name)
	return nil
}

func (bd *DBMock) List(collection, pattern string) ([]string, error) {
	var (
		keys   = make([]string, 0)
		filter = makePath(collection, pattern)
	)
	if !strings.ContainsAny(filter, "*?") {
		filter += "*"
	}
	bd.mtx.RLock()
	for k := range bd.values {
		if ok, _ := filepath.Match(filter, k); !ok {
			continue
		}
		if _, key := ParsePath(k); key != "" {
			keys = append(keys, key)
		}
	}
	bd.mtx.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

func (bd *DBMock) DeleteCollection(collection string) error {
	keys, err := bd.List(collection, "")
	if err != nil {
		return err
	}
	bd.mtx.Lock()
	for _, k := range keys {
		delete(bd.values, makePath(collection, k))
	}
	bd.mtx.Unlock()
	return nil
}
