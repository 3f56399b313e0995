// Package hk provides mechanism for registering periodic callbacks
// (stats logging, cache trimming) which are invoked at specified intervals.
/*
 * Copyright (c) 2023-2025, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import "time"

// registered names
const (
	NameSuffix   = ".hk"
	StatsLogName = "arena-stats" + NameSuffix
)

const (
	// lower bound for any periodic interval coming from configuration
	MinIval = 100 * time.Millisecond
)

// Ival clamps configured intervals.
func Ival(d time.Duration) time.Duration { return max(d, MinIval) }
