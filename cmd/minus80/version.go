// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storj.io/minus80/private/version"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE:  cmdVersion,
	})
}

func cmdVersion(cmd *cobra.Command, args []string) error {
	info, err := version.Build()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, "minus80", info.Version.String()); err != nil {
		return err
	}
	if info.CommitHash != "" {
		_, err = fmt.Fprintf(out, "commit %s built %s\n", info.CommitHash, info.Timestamp)
	}
	return err
}
