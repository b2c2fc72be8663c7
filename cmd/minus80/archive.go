// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"storj.io/minus80/archive/archiver"
)

func init() {
	addCmd(&cobra.Command{
		Use:   "archive [PATH...]",
		Short: "Archive the files listed on standard input, one per line",
		RunE:  cmdArchive,
	}, rootCmd)
}

func cmdArchive(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := openStore(ctx, log, cfg.Store)
	if err != nil {
		return err
	}

	cache, err := openCache(ctx, log, cfg.Cache)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, cache.Close()) }()

	arch := archiver.New(log.Named("archiver"), store, cache, cfg.Archive)

	var stats archiver.Stats
	if len(args) > 0 {
		stats, err = arch.Archive(ctx, args)
	} else {
		stats, err = arch.ArchiveLines(ctx, cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d files: %d uploaded (%s), %d already archived, %d unchanged, %d conflicts, %d failed\n",
		stats.Files, stats.Uploaded, humanize.Bytes(uint64(stats.UploadedBytes)),
		stats.Existing, stats.Known, stats.Conflicts, stats.Failed)
	return err
}
