package database

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOpenRead(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Open("ledger", "current")
	assert.False(t, ok)

	require.NoError(t, s.Write("ledger", "current", []byte(`{"a":1}`)))
	f, ok := s.Open("ledger", "current")
	require.True(t, ok)
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, `{"a":1}`, string(b))

	require.NoError(t, s.Write("ledger", "current", []byte(`{"a":2}`)))
	b, ok = s.Read("ledger", "current")
	require.True(t, ok)
	assert.Equal(t, `{"a":2}`, string(b))
}

func TestRejectsPathTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Write("ledger", "../escape", []byte("x")))
	assert.Error(t, s.Write("", "current", []byte("x")))
	_, ok := s.Read("..", "current")
	assert.False(t, ok)
}

func TestBackup(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Write("proposals", "current", []byte("{}")))

	dest := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, s.Backup(dest))

	restored, err := New(dest)
	require.NoError(t, err)
	b, ok := restored.Read("proposals", "current")
	require.True(t, ok)
	assert.Equal(t, "{}", string(b))
}
