package utils

import (
	"archive/zip"
	"io"

	"github.com/klauspost/compress/flate"
)

// NewZipWriter creates a zip writer with a faster deflate implementation
// registered. Archives are built per request and streamed back, so
// compression speed matters more than ratio.
func NewZipWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})
	return zw
}
