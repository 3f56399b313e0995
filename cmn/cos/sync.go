// Package cos provides common low-level types and utilities for all kernel packages.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import "sync"

type (
	// StopCh is specialized channel for stopping things.
	StopCh struct {
		once sync.Once
		ch   chan struct{}
	}

	Runner interface {
		Name() string
		Run() error
		Stop(error)
	}
)

////////////
// StopCh //
////////////

func (sc *StopCh) Init() { sc.ch = make(chan struct{}, 1) }

func (sc *StopCh) Listen() <-chan struct{} { return sc.ch }

func (sc *StopCh) Close() {
	sc.once.Do(func() {
		close(sc.ch)
	})
}
