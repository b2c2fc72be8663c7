// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// minus80 is a tool for long-term archival backup to a tiered object store.
package main

import (
	"storj.io/minus80/private/process"
)

func main() {
	process.Exec(rootCmd)
}
