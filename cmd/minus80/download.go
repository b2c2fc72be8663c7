// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"io"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"storj.io/minus80/archive/download"
	"storj.io/minus80/objectstore"
)

var showProgress bool

func init() {
	cmd := addCmd(&cobra.Command{
		Use:   "download DIR",
		Short: "Mirror the whole archive into a local directory",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdDownload,
	}, rootCmd)
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")
}

// progressBar shows download progress by bytes.
type progressBar struct {
	output io.Writer
	bar    *pb.ProgressBar
}

func (progress *progressBar) Start(objects int, bytes int64) {
	progress.bar = pb.New64(bytes).Set(pb.Bytes, true).SetWriter(progress.output)
	progress.bar.Start()
}

func (progress *progressBar) Done(info objectstore.ObjectInfo) {
	progress.bar.Add64(info.Size)
}

func (progress *progressBar) Finish() {
	if progress.bar != nil {
		progress.bar.Finish()
	}
}

func cmdDownload(cmd *cobra.Command, args []string) (err error) {
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

	downloader := download.New(log.Named("download"), store, cfg.Download)
	if showProgress {
		bar := &progressBar{output: cmd.ErrOrStderr()}
		downloader.SetProgress(bar)
		defer bar.Finish()
	}

	stats, err := downloader.Download(ctx, args[0])
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d objects: %d downloaded (%s), %d present, %d frozen, %d failed\n",
		stats.Objects, stats.Downloaded, humanize.Bytes(uint64(stats.DownloadedBytes)),
		stats.Existing, stats.Frozen, stats.Failed)
	return err
}
