// Package main is the arenactl command-line tool: arena stress workloads,
// metrics server, and configuration dump.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"io"

	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
)

const barWidth = 64

func newProgress(w io.Writer) *mpb.Progress {
	return mpb.New(mpb.WithWidth(barWidth), mpb.WithOutput(w))
}

func addBar(progress *mpb.Progress, text string, total int64) *mpb.Bar {
	return progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: len(text) + 2, C: decor.DSyncWidthR}),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.NewPercentage("%d", decor.WCSyncSpaceR),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncWidth),
		),
	)
}
