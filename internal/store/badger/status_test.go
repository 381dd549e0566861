// SPDX-License-Identifier: MIT

package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thakurdishanttt/Project-DocuLens/internal/store"
)

func newTestStatusStore(t *testing.T) *StatusStore {
	t.Helper()

	s, err := Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStatusRoundTrip(t *testing.T) {
	s := newTestStatusStore(t)

	require.NoError(t, s.Put(t.Context(), Status{
		ProcessingID: "p-1",
		Status:       store.StatusPending,
	}))

	got, err := s.Get(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	// Progressing to completed overwrites.
	require.NoError(t, s.Put(t.Context(), Status{
		ProcessingID: "p-1",
		DocumentID:   "doc-1",
		Status:       store.StatusCompleted,
	}))
	got, err = s.Get(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, "doc-1", got.DocumentID)
}

func TestStatus_NotFound(t *testing.T) {
	s := newTestStatusStore(t)

	_, err := s.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatus_Delete(t *testing.T) {
	s := newTestStatusStore(t)

	require.NoError(t, s.Put(t.Context(), Status{ProcessingID: "p-2", Status: store.StatusFailed}))
	require.NoError(t, s.Delete(t.Context(), "p-2"))

	_, err := s.Get(t.Context(), "p-2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatus_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Put(t.Context(), Status{ProcessingID: "p-3", Status: store.StatusProcessing}))
	require.NoError(t, s.Close())

	s, err = Open(dir, time.Hour)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(t.Context(), "p-3")
	require.NoError(t, err)
	assert.Equal(t, store.StatusProcessing, got.Status)
}
