// Package hk provides mechanism for registering periodic callbacks
// (stats logging, cache trimming) which are invoked at specified intervals.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package hk

import "os"

func (hk *Housekeeper) SigCh() <-chan os.Signal { return hk.sigCh }
