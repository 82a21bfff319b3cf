package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/docsnatch/docsnatch/internal/utils"
)

// Writer assembles one in-memory zip archive. Entry names pass through
// Reserve so that identically titled documents cannot overwrite each
// other; flat files and spreadsheet directories share one namespace.
type Writer struct {
	buf  bytes.Buffer
	zw   *zip.Writer
	used map[string]bool
}

// NewWriter creates an empty archive writer
func NewWriter() *Writer {
	w := &Writer{used: make(map[string]bool)}
	w.zw = utils.NewZipWriter(&w.buf)
	return w
}

// Reserve claims a unique name, appending _2, _3 ... before the
// extension when the requested name is already taken
func (w *Writer) Reserve(name string) string {
	if !w.used[name] {
		w.used[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !w.used[candidate] {
			w.used[candidate] = true
			return candidate
		}
	}
}

// Add writes one file entry under the given name. Directories exist only
// through the slashes in entry names.
func (w *Writer) Add(name string, data []byte) error {
	f, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}

// Bytes closes the archive and returns it. An archive with no entries is
// still a valid zip.
func (w *Writer) Bytes() ([]byte, error) {
	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return w.buf.Bytes(), nil
}
