package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"orsi/internal/upload"
)

// newTransferBar draws a byte progress bar on stderr when it is a terminal.
// size -1 renders a spinner. It returns nil otherwise.
func newTransferBar(cmd *cobra.Command, size int64, description string) *progressbar.ProgressBar {
	w := cmd.ErrOrStderr()
	if !isTerminal(w) {
		return nil
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// uploadProgress adapts newTransferBar to the upload controller hook. The bar
// clears itself once the whole file has been read.
func uploadProgress(cmd *cobra.Command) func(upload.Selection) io.Writer {
	return func(sel upload.Selection) io.Writer {
		bar := newTransferBar(cmd, sel.Size, "uploading "+sel.Name)
		if bar == nil {
			return nil
		}
		return bar
	}
}
