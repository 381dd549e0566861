// SPDX-License-Identifier: MIT

package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Spool stores uploaded files on disk while async processing is pending.
// Files are written atomically and named by processing ID so a crashed
// worker can be replayed from the spool.
type Spool struct {
	root string
}

// NewSpool creates the spool directory if needed.
func NewSpool(root string) (*Spool, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{root: root}, nil
}

// Put stores content under the processing ID and returns the spool path.
func (s *Spool) Put(processingID, filename string, content []byte) (string, error) {
	path, err := ConfineRelPath(s.root, processingID+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("spool path for %s: %w", processingID, err)
	}
	if err := WriteFileAtomic(path, content, 0o600); err != nil {
		return "", fmt.Errorf("spool %s: %w", processingID, err)
	}
	return path, nil
}

// Remove deletes a spooled file. Missing files are not an error.
func (s *Spool) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spooled file: %w", err)
	}
	return nil
}

// Sweep removes spooled files older than maxAge and returns how many were
// deleted. Runs from a background maintenance job.
func (s *Spool) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read spool dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.root, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
