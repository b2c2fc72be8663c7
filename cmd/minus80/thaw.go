// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"storj.io/minus80/archive/thaw"
)

func init() {
	addCmd(&cobra.Command{
		Use:   "thaw",
		Short: "Request a restore of every object in the cold tier",
		Args:  cobra.NoArgs,
		RunE:  cmdThaw,
	}, rootCmd)
}

func cmdThaw(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pacer, err := thaw.NewPacer(cfg.Thaw.Pacing, cfg.Thaw.Rate)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, log, cfg.Store)
	if err != nil {
		return err
	}

	th, err := thaw.New(log.Named("thaw"), store, pacer, cfg.Thaw)
	if err != nil {
		return err
	}

	result, err := th.Thaw(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case result.Ready():
		_, err = fmt.Fprintf(out, "all objects thawed; ready to download (%d restored)\n", result.Restored)
	case result.Thawing() == 0:
		_, err = fmt.Fprintf(out, "%d objects could not be thawed; run thaw again before downloading\n", result.Failed)
	default:
		_, err = fmt.Fprintf(out, "thawing %d objects (%s requested now, %d failed); should be complete by %s\n",
			result.Thawing(), humanize.Bytes(uint64(result.RequestedBytes)), result.Failed,
			result.CompleteBy.Local().Format(time.DateTime))
	}
	return err
}
