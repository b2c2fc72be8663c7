// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"storj.io/minus80/archive/history"
)

var historySince string

func init() {
	cmd := addCmd(&cobra.Command{
		Use:   "history",
		Short: "List archived file versions in archival order",
		Args:  cobra.NoArgs,
		RunE:  cmdHistory,
	}, rootCmd)
	cmd.Flags().StringVar(&historySince, "since", "", "only list versions archived at or after this UTC time (2006-01-02 or RFC 3339)")
}

// parseSince parses the --since flag.
func parseSince(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.New("invalid time %q", value)
}

func cmdHistory(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()

	since, err := parseSince(historySince)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := openStore(ctx, log, cfg.Store)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 4, 2, ' ', 0)
	defer func() { err = errs.Combine(err, tw.Flush()) }()

	return history.New(log.Named("history"), store).List(ctx, since, func(entry history.Entry) error {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.Archived.Format(time.DateTime),
			humanize.IBytes(uint64(entry.Record.Size)),
			entry.Record.Data,
			entry.Record.Path)
		return err
	})
}
