package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FragmentError reports a failed fragment write. By the time it surfaces
// the partial file has been removed, so a fragment on disk is always
// complete.
type FragmentError struct {
	Path string
	Err  error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("failed to write fragment %s: %v", e.Path, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// CSVWriter writes per-market fragment files and merges them into
// consolidated per-period output.
type CSVWriter struct{}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// WriteFragment writes rows to path as CSV. The write is all or nothing:
// any failure removes the partial file and returns a FragmentError, so an
// existing fragment can safely be treated as already downloaded.
func (w *CSVWriter) WriteFragment(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &FragmentError{Path: path, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return &FragmentError{Path: path, Err: err}
	}

	writer := csv.NewWriter(file)
	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			return w.abort(file, path, fmt.Errorf("record %d: %w", i, err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return w.abort(file, path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return &FragmentError{Path: path, Err: err}
	}

	slog.Debug("Wrote fragment",
		slog.String("path", path),
		slog.Int("record_count", len(rows)))

	return nil
}

func (w *CSVWriter) abort(file *os.File, path string, err error) error {
	file.Close()
	os.Remove(path)
	return &FragmentError{Path: path, Err: err}
}

// MergeFragments streams every listed fragment, in order, into a fresh
// consolidated CSV at outPath. It returns the number of fragments
// consumed. Fragments are re-parsed rather than byte-copied so the output
// is uniformly quoted regardless of who produced the fragments.
func (w *CSVWriter) MergeFragments(outPath string, fragments []string) (int, error) {
	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create consolidated file: %w", err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	for _, fragment := range fragments {
		if err := w.appendFragment(writer, fragment); err != nil {
			return 0, err
		}
		slog.Info("Consumed fragment",
			slog.String("fragment", fragment),
			slog.String("output", outPath))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush consolidated file: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close consolidated file: %w", err)
	}

	return len(fragments), nil
}

func (w *CSVWriter) appendFragment(writer *csv.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open fragment %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read fragment %s: %w", path, err)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to append fragment %s: %w", path, err)
		}
	}
}
