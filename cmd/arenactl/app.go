// Package main is the arenactl command-line tool: arena stress workloads,
// metrics server, and configuration dump.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"io"
	"os"

	"github.com/rv6go/kernel/cmn"

	"github.com/fatih/color"
	"github.com/urfave/cli"
)

const cliName = "arenactl"

type acli struct {
	app       *cli.App
	outWriter io.Writer
	errWriter io.Writer
}

var fred, fcyan func(a ...any) string

func init() {
	fred = color.New(color.FgHiRed).SprintFunc()
	fcyan = color.New(color.FgHiCyan).SprintFunc()
}

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "configuration file (.json, .yaml, or .yml); defaults are used when omitted",
	}
	// stress
	workersFlag  = cli.IntFlag{Name: "workers", Usage: "number of concurrent workers", Value: 8}
	opsFlag      = cli.IntFlag{Name: "ops", Usage: "operations per worker", Value: 10000}
	capacityFlag = cli.IntFlag{Name: "capacity", Usage: "arena capacity (slots)", Value: 16}
	keysFlag     = cli.IntFlag{Name: "keys", Usage: "number of distinct keys", Value: 64}
	kindFlag     = cli.StringFlag{Name: "arena", Usage: "arena kind: slab, mru, or all", Value: "all"}
	retainFlag   = cli.BoolFlag{Name: "retain", Usage: "MRU: keep released objects matchable until recycled"}
	noBarFlag    = cli.BoolFlag{Name: "no-progress", Usage: "do not show progress bars"}
	// serve
	listenFlag = cli.StringFlag{Name: "listen", Usage: "metrics endpoint address", Value: ":9090"}
	loadFlag   = cli.BoolFlag{Name: "load", Usage: "generate background file-system load"}
	// config
	yamlFlag = cli.BoolFlag{Name: "yaml", Usage: "show in YAML format"}
)

func run(version string, args []string) error {
	a := acli{app: cli.NewApp(), outWriter: os.Stdout, errWriter: os.Stderr}
	a.init(version)
	return a.app.Run(args)
}

func (a *acli) init(version string) {
	app := a.app
	app.Name = cliName
	app.Usage = "exercise and monitor kernel object arenas"
	app.Version = version
	app.EnableBashCompletion = true
	app.Writer = a.outWriter
	app.ErrWriter = a.errWriter
	app.Commands = []cli.Command{
		{
			Name:   "stress",
			Usage:  "run concurrent find-or-alloc/clone/release workload against fresh arenas",
			Flags:  []cli.Flag{workersFlag, opsFlag, capacityFlag, keysFlag, kindFlag, retainFlag, noBarFlag},
			Action: a.stressHandler,
		},
		{
			Name:   "serve",
			Usage:  "boot the kernel and export arena metrics for Prometheus",
			Flags:  []cli.Flag{configFlag, listenFlag, loadFlag},
			Action: a.serveHandler,
		},
		{
			Name:  "config",
			Usage: "show configuration",
			Subcommands: []cli.Command{
				{
					Name:   "show",
					Usage:  "show effective configuration (defaults plus --config)",
					Flags:  []cli.Flag{configFlag, yamlFlag},
					Action: a.configShowHandler,
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*cmn.Config, error) {
	path := c.String(configFlag.GetName())
	if path == "" {
		return cmn.DefaultConfig(), nil
	}
	return cmn.LoadConfig(path)
}
