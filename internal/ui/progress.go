// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar returns a progress bar for a long-running operation with
// a known item count, such as expanding a large collection or loading
// many artifacts during a render. Quiet suppresses the bar entirely,
// matching the CLI's --json/--quiet convention of never mixing progress
// output with machine-readable output.
func NewProgressBar(total int, description string, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
