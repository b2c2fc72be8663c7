// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package archive contains the stages of a content-addressed archive.
//
// archiver uploads local files on the source machine. On a recovery machine
// thaw, download and rebuild run in that order, each depending only on the
// state left behind by the previous stage.
package archive
