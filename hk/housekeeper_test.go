// Package hk provides mechanism for registering periodic callbacks
// (stats logging, cache trimming) which are invoked at specified intervals.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package hk_test

import (
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/hk"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Housekeeper", func() {
	var (
		h    *hk.Housekeeper
		done chan error
	)

	BeforeEach(func() {
		h = hk.New(false)
		done = make(chan error, 1)
		go func() { done <- h.Run() }()
		Eventually(h.IsRunning).Should(BeTrue())
	})

	AfterEach(func() {
		h.Stop(nil)
		Eventually(done).Should(Receive(BeNil()))
		Expect(h.IsRunning()).To(BeFalse())
	})

	It("should call a registered callback periodically", func() {
		var cnt atomic.Int32
		h.Reg("foo", func(int64) time.Duration {
			cnt.Add(1)
			return 10 * time.Millisecond
		}, 10*time.Millisecond)

		Eventually(cnt.Load).Should(BeNumerically(">=", 3))
	})

	It("should call right away when registered with zero interval", func() {
		var cnt atomic.Int32
		h.Reg("foo", func(int64) time.Duration {
			cnt.Add(1)
			return time.Hour
		}, 0)

		Eventually(cnt.Load).Should(BeEquivalentTo(1))
		Consistently(cnt.Load, 100*time.Millisecond).Should(BeEquivalentTo(1))
	})

	It("should stop calling after Unreg", func() {
		var cnt atomic.Int32
		h.Reg("foo", func(int64) time.Duration {
			cnt.Add(1)
			return 5 * time.Millisecond
		}, 5*time.Millisecond)
		Eventually(cnt.Load).Should(BeNumerically(">=", 1))

		h.Unreg("foo")
		time.Sleep(50 * time.Millisecond) // let in-flight calls drain
		n := cnt.Load()
		Consistently(cnt.Load, 100*time.Millisecond).Should(Equal(n))
	})

	It("should unregister when the callback says so", func() {
		var cnt atomic.Int32
		h.Reg("foo", func(int64) time.Duration {
			if cnt.Add(1) == 2 {
				return hk.UnregInterval
			}
			return 5 * time.Millisecond
		}, 5*time.Millisecond)

		Eventually(cnt.Load).Should(BeEquivalentTo(2))
		Consistently(cnt.Load, 100*time.Millisecond).Should(BeEquivalentTo(2))
	})

	It("should not register a duplicate name", func() {
		var first, second atomic.Int32
		h.Reg("foo", func(int64) time.Duration {
			first.Add(1)
			return 5 * time.Millisecond
		}, 5*time.Millisecond)
		h.Reg("foo", func(int64) time.Duration {
			second.Add(1)
			return 5 * time.Millisecond
		}, 5*time.Millisecond)

		Eventually(first.Load).Should(BeNumerically(">=", 2))
		Expect(second.Load()).To(BeZero())
	})

	It("should order callbacks by their next due time", func() {
		var (
			order = make(chan string, 2)
			once  = func(name string) hk.Func {
				return func(int64) time.Duration {
					order <- name
					return hk.UnregInterval
				}
			}
		)
		h.Reg("slow", once("slow"), 80*time.Millisecond)
		h.Reg("fast", once("fast"), 10*time.Millisecond)

		Eventually(order).Should(Receive(Equal("fast")))
		Eventually(order).Should(Receive(Equal("slow")))
	})
})

var _ = Describe("Housekeeper signals", func() {
	It("should stop handling signals once stopped", func() {
		h := hk.New(true)
		done := make(chan error, 1)
		go func() { done <- h.Run() }()
		Eventually(h.IsRunning).Should(BeTrue())
		h.Stop(nil)
		Eventually(done).Should(Receive(BeNil()))

		// keep the default action (exit) away while the signal is in flight
		mine := make(chan os.Signal, 1)
		signal.Notify(mine, syscall.SIGTERM)
		defer signal.Stop(mine)
		Expect(syscall.Kill(os.Getpid(), syscall.SIGTERM)).To(Succeed())
		Eventually(mine).Should(Receive())

		Consistently(h.SigCh(), 100*time.Millisecond).ShouldNot(Receive())
	})

	It("should terminate Run with a signal error", func() {
		h := hk.New(true)
		done := make(chan error, 1)
		go func() { done <- h.Run() }()
		Eventually(h.IsRunning).Should(BeTrue())

		Expect(syscall.Kill(os.Getpid(), syscall.SIGTERM)).To(Succeed())
		var err error
		Eventually(done).Should(Receive(&err))
		var sig *cos.ErrSignal
		Expect(errors.As(err, &sig)).To(BeTrue())
		Expect(sig.ExitCode()).To(Equal(128 + int(syscall.SIGTERM)))
	})
})
