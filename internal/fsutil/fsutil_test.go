// SPDX-License-Identifier: MIT

package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfineRelPath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "plain file", target: "upload.pdf"},
		{name: "nested", target: "a/b/upload.pdf"},
		{name: "traversal", target: "../escape.pdf", wantErr: true},
		{name: "sneaky traversal", target: "a/../../escape.pdf", wantErr: true},
		{name: "absolute", target: "/etc/passwd", wantErr: true},
		{name: "backslash", target: `a\b.pdf`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfineRelPath(root, tt.target)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")

	require.NoError(t, WriteFileAtomic(path, []byte("content"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Overwrite replaces content.
	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestIsRegularFile(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, IsRegularFile(dir))

	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	assert.NoError(t, IsRegularFile(path))

	assert.Error(t, IsRegularFile(filepath.Join(dir, "missing")))
}

func TestSpool(t *testing.T) {
	spool, err := NewSpool(filepath.Join(t.TempDir(), "spool"))
	require.NoError(t, err)

	path, err := spool.Put("p-1", "lease.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	require.NoError(t, spool.Remove(path))
	require.NoError(t, spool.Remove(path), "double remove is fine")

	_, err = spool.Put("../evil", "x.pdf", []byte("x"))
	assert.Error(t, err)
}

func TestSpool_Sweep(t *testing.T) {
	root := filepath.Join(t.TempDir(), "spool")
	spool, err := NewSpool(root)
	require.NoError(t, err)

	oldPath, err := spool.Put("old", "a.pdf", []byte("old"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(oldPath, time.Now().Add(-2*time.Hour), time.Now().Add(-2*time.Hour)))

	_, err = spool.Put("fresh", "b.pdf", []byte("fresh"))
	require.NoError(t, err)

	removed, err := spool.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
