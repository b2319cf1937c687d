//go:build unix

package region

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "app.region")
	assert.False(t, Exists(path))

	m, err := OpenMapped(path, 4096)
	require.NoError(t, err)
	assert.True(t, m.Created())
	assert.Equal(t, path, m.Path())
	require.Len(t, m.Bytes(), 4096)
	assert.True(t, Exists(path))

	copy(m.Bytes()[100:], "persisted")
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
	assert.NoError(t, m.Close(), "second close")
	assert.ErrorIs(t, m.Sync(), ErrClosed)

	data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(data[100:109]))

	again, err := OpenMapped(path, 4096)
	require.NoError(t, err)
	defer again.Close()
	assert.False(t, again.Created())
	assert.Equal(t, "persisted", string(again.Bytes()[100:109]))
}

func TestOpenMapped_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.region")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o600))

	_, err := OpenMapped(path, 4096)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestOpenMapped_InvalidSize(t *testing.T) {
	_, err := OpenMapped(filepath.Join(t.TempDir(), "r"), 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
