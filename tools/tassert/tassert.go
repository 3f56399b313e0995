// Package tassert provides common asserts for tests
/*
 * Copyright (c) 2019-2025, NVIDIA CORPORATION. All rights reserved.
 */
package tassert

import (
	"runtime/debug"
	"testing"
)

func CheckFatal(tb testing.TB, err error) {
	if err != nil {
		debug.PrintStack()
		tb.Fatal(err.Error())
	}
}

func CheckError(tb testing.TB, err error) {
	if err != nil {
		debug.PrintStack()
		tb.Error(err.Error())
	}
}

func Fatalf(tb testing.TB, cond bool, msg string, args ...any) {
	if !cond {
		debug.PrintStack()
		tb.Fatalf(msg, args...)
	}
}

func Errorf(tb testing.TB, cond bool, msg string, args ...any) {
	if !cond {
		debug.PrintStack()
		tb.Errorf(msg, args...)
	}
}

// Panics runs f and fails the test unless f panics.
func Panics(tb testing.TB, f func(), what string) {
	tb.Helper()
	defer func() {
		if r := recover(); r == nil {
			debug.PrintStack()
			tb.Fatalf("expected panic: %s", what)
		}
	}()
	f()
}
