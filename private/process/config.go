// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package process

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

// SaveConfig writes the current value of every flag of cmd, except the
// config flag itself and flags annotated as "setup", to outfile. The file
// format follows the extension of outfile.
func SaveConfig(cmd *cobra.Command, outfile string) error {
	vip := viper.New()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == ConfigFlag || readBoolAnnotation(f, "setup") {
			return
		}
		vip.Set(f.Name, f.Value.String())
	})

	if err := os.MkdirAll(filepath.Dir(outfile), 0700); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(atomicWrite(outfile, 0600, func(tmp string) error {
		return vip.WriteConfigAs(tmp)
	}))
}

// readBoolAnnotation is a helper to see if a boolean annotation is set to true on the flag.
func readBoolAnnotation(flag *pflag.Flag, key string) bool {
	annotation := flag.Annotations[key]
	return len(annotation) > 0 && annotation[0] == "true"
}

// atomicWrite is a helper to atomically write to outfile. write fills a
// temporary file in the same directory which is renamed into place.
func atomicWrite(outfile string, mode os.FileMode, write func(tmp string) error) (err error) {
	ext := filepath.Ext(outfile)
	fh, err := os.CreateTemp(filepath.Dir(outfile), strings.TrimSuffix(filepath.Base(outfile), ext)+".*"+ext)
	if err != nil {
		return errs.Wrap(err)
	}
	tmp := fh.Name()
	defer func() {
		if err != nil {
			err = errs.Combine(err, os.Remove(tmp))
		}
	}()
	if err := fh.Close(); err != nil {
		return errs.Wrap(err)
	}
	if err := write(tmp); err != nil {
		return errs.Wrap(err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return errs.Wrap(err)
	}
	return errs.Wrap(os.Rename(tmp, outfile))
}
