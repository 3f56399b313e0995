// Package main is the arenactl command-line tool: arena stress workloads,
// metrics server, and configuration dump.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/nlog"
)

var (
	build     string
	buildtime string
)

func main() {
	// glog flags (log_dir, v, ...) keep their defaults; the CLI parses its own
	_ = flag.CommandLine.Parse(nil)

	err := run(version(), os.Args)
	nlog.Flush()
	if err == nil {
		return
	}
	if code, ok := signalExit(err); ok {
		os.Exit(code)
	}
	exitf("%v", err)
}

// termination by signal exits quietly, with the conventional 128+N status
func signalExit(err error) (int, bool) {
	var e *cos.ErrSignal
	if errors.As(err, &e) {
		return e.ExitCode(), true
	}
	return 0, false
}

func version() string {
	if build == "" {
		return "dev"
	}
	return build + " (" + buildtime + ")"
}

func exitf(f string, a ...any) {
	fmt.Fprintln(os.Stderr, fred("Error: ")+fmt.Sprintf(f, a...))
	os.Exit(1)
}
