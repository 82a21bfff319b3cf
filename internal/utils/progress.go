package utils

import "github.com/schollz/progressbar/v3"

// Progress bar descriptions for the two export flows
const (
	DescFetching  = "Fetching"
	DescExporting = "Exporting"
)

// NewProgressBar creates a consistently styled progress bar for a batch
// of ids. Batch sizes are always known up front, so there is no
// indeterminate mode; the bar shows the running count and throughput.
// Callers Add(1) per completed id and Finish once the batch is done.
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)
}
