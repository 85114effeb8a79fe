package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// StampLayout is the timestamp appended to exported file names.
const StampLayout = "2006-01-02T15-04-05"

// Writer places exports in a staging and an outputs directory.
type Writer struct {
	StagingDir string
	OutputsDir string

	// Stamp appends _<timestamp> to every file name.
	Stamp bool
	Now   func() time.Time
}

// NewWriter creates both directories.
func NewWriter(staging, outputs string, stamp bool) (*Writer, error) {
	for _, d := range []string{staging, outputs} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return &Writer{StagingDir: staging, OutputsDir: outputs, Stamp: stamp, Now: time.Now}, nil
}

// Path returns dir/name[_stamp].ext.
func (w *Writer) Path(dir, name, ext string) string {
	if w.Stamp {
		now := time.Now
		if w.Now != nil {
			now = w.Now
		}
		name = name + "_" + now().Format(StampLayout)
	}
	return filepath.Join(dir, name+"."+ext)
}

// File renders into memory then writes the file, so a failed render leaves
// no partial file behind.
func (w *Writer) File(dir, name, ext string, render func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	p := w.Path(dir, name, ext)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// CSV writes t as dir/name.csv.
func (w *Writer) CSV(dir, name string, t Table) (string, error) {
	return w.File(dir, name, "csv", func(out io.Writer) error { return WriteCSV(out, t) })
}

// JSON writes v as dir/name.json.
func (w *Writer) JSON(dir, name string, v any) (string, error) {
	return w.File(dir, name, "json", func(out io.Writer) error { return WriteJSON(out, v) })
}
