package report

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"termarea/internal/errors"
)

// WriteLines writes each line followed by a newline
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the report lines to path, replacing any existing file.
// Content goes to a temporary file in the same directory first, so readers of
// path only ever see a complete report.
func WriteFile(path string, lines []string) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create report file %s", path)
	}
	tmp := f.Name()
	if err := WriteLines(f, lines); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to write report file %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to close report file %s", path)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to set permissions on report file %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "failed to replace report file %s", path)
	}
	return nil
}
