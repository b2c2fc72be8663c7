// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storj.io/minus80/archive/rebuild"
)

func init() {
	addCmd(&cobra.Command{
		Use:   "rebuild DOWNLOADED_DIR DEST_DIR",
		Short: "Reconstruct the archived file tree from a downloaded archive",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdRebuild,
	}, rootCmd)
}

func cmdRebuild(cmd *cobra.Command, args []string) (err error) {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	stats, err := rebuild.New(log.Named("rebuild")).Rebuild(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d records: %d rebuilt, %d present, %d superseded, %d invalid, %d failed\n",
		stats.Records, stats.Rebuilt, stats.Existing, stats.Superseded, stats.Invalid, stats.Failed)
	return err
}
