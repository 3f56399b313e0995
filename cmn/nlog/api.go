// Package nlog is the kernel logger: leveled, buffered, flushable;
// backed by glog (flags: -logtostderr, -alsologtostderr, -v, -log_dir, ...)
/*
 * Copyright (c) 2023-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"

	"github.com/golang/glog"
)

func InfoDepth(depth int, args ...any)    { glog.InfoDepth(depth+1, args...) }
func Infoln(args ...any)                  { glog.InfoDepth(1, sprintln(args)) }
func Warningln(args ...any)               { glog.WarningDepth(1, sprintln(args)) }
func Warningf(format string, args ...any) { glog.WarningDepth(1, fmt.Sprintf(format, args...)) }
func ErrorDepth(depth int, args ...any)   { glog.ErrorDepth(depth+1, args...) }
func Errorln(args ...any)                 { glog.ErrorDepth(1, sprintln(args)) }

func Flush() { glog.Flush() }

// same as fmt.Sprintln but without the trailing newline
func sprintln(args []any) string {
	s := fmt.Sprintln(args...)
	return s[:len(s)-1]
}
