// Package arena_test contains arena unit tests.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package arena_test

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/rv6go/kernel/arena"
	"github.com/rv6go/kernel/cmn/cos"
	"golang.org/x/sync/errgroup"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Arena contract", func() {
	for _, fl := range flavors {
		Describe(fl.name, func() {
			var (
				a   arena.Arena[obj]
				fin *atomic.Int32
			)

			BeforeEach(func() {
				a = fl.new("TEST", 4)
				fin = &atomic.Int32{}
			})

			It("should deduplicate find-or-alloc and finalize once", func() {
				a = fl.new("TEST", 2)
				rc1, err := a.FindOrAlloc(byID(5), withID(5, fin))
				Expect(err).NotTo(HaveOccurred())
				Expect(rc1.Get().payload).To(Equal(5))
				Expect(a.Stats().InUse).To(Equal(1))

				inits := 0
				rc2, err := a.FindOrAlloc(byID(5), func(*obj) { inits++ })
				Expect(err).NotTo(HaveOccurred())
				Expect(inits).To(BeZero())
				Expect(rc2.Same(rc1)).To(BeTrue())
				Expect(rc2.Handle().Index()).To(Equal(rc1.Handle().Index()))

				st := a.Stats()
				Expect(st.InUse).To(Equal(1))
				Expect(st.Refs).To(BeEquivalentTo(2))

				rc1.Release()
				Expect(fin.Load()).To(BeZero())
				rc2.Release()
				Expect(fin.Load()).To(BeEquivalentTo(1))
				Expect(a.Stats().InUse).To(BeZero())
				Expect(a.Stats().Refs).To(BeZero())
			})

			It("should prefer an existing match over an earlier free slot", func() {
				x, err := a.Alloc(withID(1, fin))
				Expect(err).NotTo(HaveOccurred())
				y, err := a.Alloc(withID(2, fin))
				Expect(err).NotTo(HaveOccurred())
				x.Release() // x's slot is free and precedes y's in scan order

				allocs := a.Stats().Allocs
				inits := 0
				y2, err := a.FindOrAlloc(byID(2), func(*obj) { inits++ })
				Expect(err).NotTo(HaveOccurred())
				Expect(inits).To(BeZero())
				Expect(y2.Same(y)).To(BeTrue())
				Expect(a.Stats().Allocs).To(Equal(allocs))
				Expect(a.Stats().InUse).To(Equal(1))

				y2.Release()
				y.Release()
			})

			It("should report no capacity without touching existing slots", func() {
				rcs := make([]*arena.Rc[obj], 0, a.Cap())
				for i := range a.Cap() {
					rc, err := a.Alloc(withID(i, fin))
					Expect(err).NotTo(HaveOccurred())
					rcs = append(rcs, rc)
				}

				_, err := a.Alloc(withID(100, fin))
				Expect(err).To(HaveOccurred())
				Expect(cos.IsErrNoCapacity(err)).To(BeTrue())
				_, err = a.FindOrAlloc(byID(100), withID(100, fin))
				Expect(cos.IsErrNoCapacity(err)).To(BeTrue())

				for i, rc := range rcs {
					Expect(rc.Get().id).To(Equal(i))
					Expect(rc.Get().payload).To(Equal(i))
				}
				st := a.Stats()
				Expect(st.Exhausted).To(BeEquivalentTo(2))
				Expect(st.InUse).To(Equal(a.Cap()))
				Expect(fin.Load()).To(BeZero())

				for _, rc := range rcs {
					rc.Release()
				}
				Expect(fin.Load()).To(BeEquivalentTo(a.Cap()))
			})

			It("should keep dup + dealloc symmetric", func() {
				rc, err := a.Alloc(withID(7, fin))
				Expect(err).NotTo(HaveOccurred())
				dup := rc.Clone()
				Expect(a.Stats().Refs).To(BeEquivalentTo(2))
				dup.Release()

				Expect(fin.Load()).To(BeZero())
				Expect(a.Stats().Refs).To(BeEquivalentTo(1))
				Expect(rc.Get().payload).To(Equal(7))

				// the same, through raw handles
				h := a.Dup(rc.Handle())
				Expect(h.Index()).To(Equal(rc.Handle().Index()))
				a.Dealloc(h)
				Expect(fin.Load()).To(BeZero())

				rc.Release()
				Expect(fin.Load()).To(BeEquivalentTo(1))
			})

			It("should finalize exactly once for any clone/release sequence", func() {
				for round := range 20 {
					fin.Store(0)
					rc, err := a.FindOrAlloc(byID(round), withID(round, fin))
					Expect(err).NotTo(HaveOccurred())
					live := []*arena.Rc[obj]{rc}
					for len(live) > 0 {
						if rand.IntN(3) > 0 && len(live) < 8 {
							live = append(live, live[rand.IntN(len(live))].Clone())
							continue
						}
						k := rand.IntN(len(live))
						live[k].Release()
						live = append(live[:k], live[k+1:]...)
						if len(live) > 0 {
							Expect(fin.Load()).To(BeZero())
						}
					}
					Expect(fin.Load()).To(BeEquivalentTo(1))
				}
				Expect(a.Stats().InUse).To(BeZero())
			})

			It("should accept raw handles wrapped via NewRc", func() {
				h, err := a.FindOrAllocHandle(byID(3), withID(3, fin))
				Expect(err).NotTo(HaveOccurred())
				Expect(h.Arena()).To(Equal("TEST"))
				rc := arena.NewRc(a, h)
				Expect(rc.Get().id).To(Equal(3))
				rc.Release()
				Expect(fin.Load()).To(BeEquivalentTo(1))
			})

			It("should let a finalizer release into the same arena", func() {
				parent, err := a.Alloc(withID(1, fin))
				Expect(err).NotTo(HaveOccurred())
				child, err := a.Alloc(withID(2, fin))
				Expect(err).NotTo(HaveOccurred())
				child.Get().peer = parent // child now owns the only reference to parent

				child.Release()
				Expect(fin.Load()).To(BeEquivalentTo(2))
				Expect(a.Stats().InUse).To(BeZero())
			})

			It("should not match an object while it is being finalized", func() {
				victim, err := a.Alloc(withID(9, fin))
				Expect(err).NotTo(HaveOccurred())
				idx := victim.Handle().Index()

				var (
					raced   *arena.Rc[obj]
					raceErr error
				)
				victim.Get().onFinalize = func(g arena.Guard) {
					raced = arena.Reacquire(g, func() *arena.Rc[obj] {
						rc, err := a.FindOrAlloc(byID(9), withID(9, nil))
						raceErr = err
						return rc
					})
				}
				victim.Release()

				Expect(raceErr).NotTo(HaveOccurred())
				Expect(raced.Handle().Index()).NotTo(Equal(idx))
				raced.Release()
			})
		})
	}

	Describe("contract violations", func() {
		It("should panic on double release", func() {
			a := arena.NewSlab[obj]("V1", 2)
			h, err := a.AllocHandle(withID(1, nil))
			Expect(err).NotTo(HaveOccurred())
			a.Dealloc(h)
			Expect(func() { a.Dealloc(h) }).To(Panic())
			Expect(func() { a.Dup(h) }).To(Panic())
		})

		It("should panic on a handle from another arena", func() {
			a, b := arena.NewSlab[obj]("A", 2), arena.NewMRU[obj]("B", 2)
			h, err := a.AllocHandle(withID(1, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(func() { b.Dealloc(h) }).To(Panic())
			Expect(func() { b.Dup(h) }).To(Panic())
			a.Dealloc(h) // still owned by a
			Expect(a.Stats().InUse).To(BeZero())
		})

		It("should panic on use of a released Rc", func() {
			a := arena.NewMRU[obj]("V3", 1)
			rc, err := a.Alloc(withID(1, nil))
			Expect(err).NotTo(HaveOccurred())
			rc.Release()
			Expect(func() { rc.Release() }).To(Panic())
			Expect(func() { rc.Clone() }).To(Panic())
			Expect(func() { _ = rc.Get() }).To(Panic())
		})

		It("should reject zero capacity", func() {
			Expect(func() { arena.NewSlab[obj]("Z", 0) }).To(Panic())
		})
	})

	Describe("concurrency", func() {
		for _, fl := range flavors {
			It("should survive a clone/release storm: "+fl.name, func() {
				const (
					workers = 8
					iters   = 500
					keys    = 6
				)
				var (
					a   = fl.new("STORM", 4)
					fin atomic.Int32
					eg  errgroup.Group
				)
				for w := range workers {
					eg.Go(func() error {
						for i := range iters {
							id := (w + i) % keys
							rc, err := a.FindOrAlloc(byID(id), withID(id, &fin))
							if err != nil {
								if cos.IsErrNoCapacity(err) {
									continue
								}
								return err
							}
							if got := rc.Get().id; got != id {
								rc.Release()
								return fmt.Errorf("%s: expected object %d, got %d", a.Name(), id, got)
							}
							dup := rc.Clone()
							rc.Release()
							dup.Release()
						}
						return nil
					})
				}
				Expect(eg.Wait()).NotTo(HaveOccurred())

				st := a.Stats()
				Expect(st.InUse).To(BeZero())
				Expect(st.Refs).To(BeZero())
				Expect(int64(fin.Load())).To(Equal(st.Finalized))
				if st.Cached == 0 {
					Expect(st.Finalized).To(Equal(st.Allocs))
				} else {
					// retained objects get revived without an initializer
					Expect(st.Finalized).To(BeNumerically(">=", st.Allocs))
				}
			})
		}
	})
})
