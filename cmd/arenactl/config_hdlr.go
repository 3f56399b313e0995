// Package main is the arenactl command-line tool: arena stress workloads,
// metrics server, and configuration dump.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"fmt"

	"github.com/rv6go/kernel/cmn/cos"

	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

func (a *acli) configShowHandler(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool(yamlFlag.Name) {
		b, err := yaml.Marshal(config)
		if err != nil {
			return err
		}
		_, err = a.outWriter.Write(b)
		return err
	}
	fmt.Fprintln(a.outWriter, string(cos.MustMarshalIndent(config)))
	return nil
}
