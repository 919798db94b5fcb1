package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ListFragments returns the fragment CSV files inside dir in sorted name
// order. Fragments left behind by earlier runs are included, which is
// what lets an interrupted run resume. Subdirectories and other stray
// entries are ignored.
func ListFragments(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan fragment directory %s: %w", dir, err)
	}

	fragments := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		fragments = append(fragments, match)
	}

	slog.Debug("Listed fragments",
		slog.String("dir", dir),
		slog.Int("count", len(fragments)))

	return fragments, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	exists := err == nil && !info.IsDir()

	slog.Debug("Fragment existence check",
		slog.String("path", path),
		slog.Bool("exists", exists))

	return exists
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureDirectory creates path and any missing parents.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// RemoveTree deletes path and everything under it.
func RemoveTree(path string) error {
	slog.Debug("Removing directory tree", slog.String("path", path))

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", path, err)
	}
	return nil
}
