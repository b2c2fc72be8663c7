// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"storj.io/minus80/private/process"
)

var setupOverwrite bool

func init() {
	cmd := addCmd(&cobra.Command{
		Use:   "setup",
		Short: "Write the current configuration to the config file",
		Args:  cobra.NoArgs,
		RunE:  cmdSetup,
	}, rootCmd)
	cmd.Flags().BoolVar(&setupOverwrite, "overwrite", false, "replace an existing config file")
	_ = cmd.Flags().SetAnnotation("overwrite", "setup", []string{"true"})
}

func cmdSetup(cmd *cobra.Command, args []string) error {
	path := cmd.Flags().Lookup(process.ConfigFlag).Value.String()

	if _, err := os.Stat(path); err == nil && !setupOverwrite {
		return errs.New("%q already exists, use --overwrite to replace it", path)
	}

	if err := process.SaveConfig(cmd, path); err != nil {
		return err
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
	return err
}
