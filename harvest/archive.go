package harvest

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/klauspost/compress/zstd"

	vetmic "github.com/ResonanceResearch/WCVM-VetMic"
	"github.com/ResonanceResearch/WCVM-VetMic/atomicfile"
)

// PageArchive mirrors raw API pages to disk, one zstd compressed file of
// newline separated page bodies per author. Useful for debugging schema
// drift without refetching.
type PageArchive struct {
	Dir string
}

// DefaultArchiveDir is under the XDG data home.
func DefaultArchiveDir() string {
	return filepath.Join(xdg.DataHome, vetmic.AppName, "pages")
}

// Open starts an archive file for one author; the file only becomes visible
// under its final name on Close.
func (a *PageArchive) Open(name string) (*PageWriter, error) {
	dir := a.Dir
	if dir == "" {
		dir = DefaultArchiveDir()
	}
	af, err := atomicfile.New(filepath.Join(dir, name+".json.zst"))
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(af)
	if err != nil {
		af.Close()
		return nil, err
	}
	return &PageWriter{af: af, zw: zw}, nil
}

// PageWriter writes one page body per line.
type PageWriter struct {
	af *atomicfile.File
	zw *zstd.Encoder
}

func (w *PageWriter) WritePage(body []byte) error {
	if _, err := w.zw.Write(body); err != nil {
		return err
	}
	_, err := w.zw.Write([]byte("\n"))
	return err
}

func (w *PageWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		w.af.Close()
		return err
	}
	return w.af.Close()
}
