//go:build debug

// Package debug provides debug utilities
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"

	"github.com/rv6go/kernel/cmn/nlog"
)

func Assert(cond bool, a ...any) {
	if !cond {
		nlog.Flush()
		if len(a) > 0 {
			panic("DEBUG PANIC: " + fmt.Sprint(a...))
		}
		panic("DEBUG PANIC")
	}
}

func Assertf(cond bool, f string, a ...any) {
	if !cond {
		nlog.Flush()
		panic("DEBUG PANIC: " + fmt.Sprintf(f, a...))
	}
}
