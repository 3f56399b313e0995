// Package cos provides common low-level types and utilities for all kernel packages.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cos

// standard units
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

func Plural(num int) (s string) {
	if num != 1 {
		s = "s"
	}
	return
}
