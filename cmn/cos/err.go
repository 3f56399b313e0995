// Package cos provides common low-level types and utilities for all kernel packages.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"strconv"
	"syscall"
)

type (
	// fixed-capacity table has no free slot
	ErrNoCapacity struct {
		table string
		cap   int
	}
	// open-file table is full
	ErrTooManyFiles struct {
		cap int
	}
	ErrChecksum struct {
		where    string
		expected uint64
		actual   uint64
	}
	ErrSignal struct {
		signal syscall.Signal
	}
)

// ErrNoCapacity

func NewErrNoCapacity(table string, capacity int) *ErrNoCapacity {
	return &ErrNoCapacity{table: table, cap: capacity}
}

func (e *ErrNoCapacity) Error() string {
	return e.table + ": table exhausted (capacity " + strconv.Itoa(e.cap) + ")"
}

func IsErrNoCapacity(err error) bool {
	var e *ErrNoCapacity
	return errors.As(err, &e)
}

// ErrTooManyFiles

func NewErrTooManyFiles(capacity int) *ErrTooManyFiles { return &ErrTooManyFiles{cap: capacity} }

func (e *ErrTooManyFiles) Error() string {
	return "too many open files (max " + strconv.Itoa(e.cap) + ")"
}

func IsErrTooManyFiles(err error) bool {
	var e *ErrTooManyFiles
	return errors.As(err, &e)
}

// ErrChecksum

func NewErrChecksum(where string, expected, actual uint64) *ErrChecksum {
	return &ErrChecksum{where: where, expected: expected, actual: actual}
}

func (e *ErrChecksum) Error() string {
	return "checksum mismatch at " + e.where + ": expected " + strconv.FormatUint(e.expected, 16) +
		", got " + strconv.FormatUint(e.actual, 16)
}

func IsErrChecksum(err error) bool {
	var e *ErrChecksum
	return errors.As(err, &e)
}

// ErrSignal

func NewSignalError(s syscall.Signal) *ErrSignal { return &ErrSignal{signal: s} }
func (e *ErrSignal) Error() string               { return "signal " + strconv.Itoa(int(e.signal)) }

// exit code as per shell convention
func (e *ErrSignal) ExitCode() int { return 128 + int(e.signal) }
