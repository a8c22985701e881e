// Package export serializes a converted batch as Google Calendar CSV or
// as an iCalendar file.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"e2gc/internal/model"
)

// ErrEmptyBatch is returned instead of writing an output without events.
var ErrEmptyBatch = errors.New("nothing to export")

type Format string

const (
	FormatCSV Format = "csv"
	FormatICS Format = "ics"
)

// ParseFormat accepts the menu choices "1"/"2" as well as "csv"/"ics".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "csv":
		return FormatCSV, nil
	case "2", "ics", "ical":
		return FormatICS, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// OutputPath names the output after the input's base name. An empty dir
// places it next to the input.
func OutputPath(input, dir string, f Format) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + f.Ext()
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

// Write serializes batch in format f.
func Write(w io.Writer, f Format, batch model.Batch, opts ICSOptions) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, batch)
	case FormatICS:
		return WriteICS(w, batch, opts)
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}

// WriteFile writes batch to path atomically. An empty batch returns
// ErrEmptyBatch and leaves the filesystem untouched.
//
// Implementation details:
//   - Serializes into memory first so a failing exporter never leaves a
//     partial file behind.
//   - Writes to a temp file in the target directory, then renames it over
//     path.
func WriteFile(path string, f Format, batch model.Batch, opts ICSOptions) error {
	if batch.Empty() {
		return ErrEmptyBatch
	}

	var buf bytes.Buffer
	if err := Write(&buf, f, batch, opts); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".e2gc-export-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
