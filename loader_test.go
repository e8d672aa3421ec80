package tablepad

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytes(t *testing.T) {
	t.Parallel()

	t.Run("reads everything", func(t *testing.T) {
		t.Parallel()
		data, err := LoadBytes(strings.NewReader("id,amount\n1,10\n"))
		require.NoError(t, err)
		assert.Equal(t, []byte("id,amount\n1,10\n"), data)
	})

	t.Run("read failure is a ReadError", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("disk on fire")
		_, err := LoadBytes(iotest.ErrReader(cause))
		require.ErrorIs(t, err, ErrRead)
		require.ErrorIs(t, err, cause)

		var re *ReadError
		assert.True(t, errors.As(err, &re))
	})

	t.Run("nil reader", func(t *testing.T) {
		t.Parallel()
		_, err := LoadBytes(nil)
		assert.ErrorIs(t, err, ErrRead)
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o600))

	data, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("a\n1\n"), data)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.csv")

	_, err = LoadFile(dir)
	assert.ErrorIs(t, err, ErrRead, "directories are not loadable")
}
