// Package main is the arenactl command-line tool: arena stress workloads,
// metrics server, and configuration dump.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rv6go/kernel/cmn/cos"
	"github.com/rv6go/kernel/cmn/nlog"
	"github.com/rv6go/kernel/fs"
	"github.com/rv6go/kernel/kernel"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (a *acli) serveHandler(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	k, err := kernel.New(config, true /*signals*/)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(k.Stats, collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/arenas", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(k.Stats.JSON())
	})
	srv := &http.Server{Addr: c.String(listenFlag.Name), Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return k.Run() // until signaled
	})
	g.Go(func() error {
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		k.HK.Stop(nil)
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		return srv.Shutdown(sctx)
	})
	if c.Bool(loadFlag.Name) {
		g.Go(func() error { return fsLoad(ctx, k) })
	}
	fmt.Fprintln(a.outWriter, "serving arena metrics at", fcyan(srv.Addr+"/metrics"))

	err = g.Wait()
	if errs := k.Shutdown(); errs != nil {
		nlog.Errorln("shutdown:", errs)
	}
	var sig *cos.ErrSignal
	if errors.As(err, &sig) {
		nlog.Infoln("terminated by", sig)
	}
	return err
}

// fsLoad keeps opening and closing files on random inodes until canceled.
func fsLoad(ctx context.Context, k *kernel.Kernel) error {
	var (
		rnd     = rand.New(rand.NewPCG(1, uint64(time.Now().UnixNano())))
		dev     = k.Config.FS.Dev
		ninodes = k.Itable.Superblock().Ninodes
		ticker  = time.NewTicker(time.Millisecond)
	)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		ip, err := k.Itable.Get(dev, 1+rnd.Uint32N(ninodes-1))
		if err != nil {
			if cos.IsErrNoCapacity(err) {
				continue
			}
			return err
		}
		f, err := k.Ftable.Open(ip, true, false)
		ip.Release()
		if err != nil {
			if cos.IsErrTooManyFiles(err) {
				continue
			}
			return err
		}
		if _, err := f.Get().Stat(); err != nil && f.Get().Inode().Get().Inum() == fs.ROOTINO {
			f.Release()
			return err // root must always be there
		}
		f.Release()
	}
}
