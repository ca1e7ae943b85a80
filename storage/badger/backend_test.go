package badger

import (
	"testing"

	"github.com/poiesic/newsdesk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_InvalidPath(t *testing.T) {
	// Try to open a file path (not directory)
	tmpFile := t.TempDir() + "/file.txt"
	// Create a file at the path
	backend, err := OpenBackend(tmpFile, false)
	if err == nil {
		backend.Close()
	}
	// We expect this to either error or succeed (depending on mkdir behavior)
	// The key is that it should handle the case gracefully
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestGetSequence(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.GetSequence("test_sequence")
	require.NoError(t, err)
	require.NotNil(t, seq)
	defer seq.Release()

	// Get sequential IDs
	id1, err := seq.Next()
	require.NoError(t, err)

	id2, err := seq.Next()
	require.NoError(t, err)

	// IDs should be sequential
	assert.Greater(t, id2, id1)
}

func TestKeySequence_DrivesSequentialKeys(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.KeySequence("user_data")
	require.NoError(t, err)
	defer seq.Release()

	keys := core.NewSequentialKeys(seq)
	first, err := keys.NextKey(nil)
	require.NoError(t, err)
	second, err := keys.NextKey(nil)
	require.NoError(t, err)

	assert.NotZero(t, first)
	assert.Greater(t, second, first)
}

func TestKeySequence_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	seq, err := backend.KeySequence("news_articles")
	require.NoError(t, err)
	first, err := seq.Next()
	require.NoError(t, err)
	require.NoError(t, seq.Release())
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	seq, err = backend.KeySequence("news_articles")
	require.NoError(t, err)
	defer seq.Release()

	next, err := seq.Next()
	require.NoError(t, err)
	assert.Greater(t, next, first)
}
