// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/geoloc-cli/geoloc/cmd"
)

var Version = "development"

func main() {
	os.Exit(cmd.Execute(Version))
}
