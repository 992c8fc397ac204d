package fsio

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "chat.txt", []byte("x"), 0o644))
	require.NoError(t, fsys.MkdirAll("dir", 0o755))

	assert.NoError(t, RequireFile(fsys, "chat.txt"))
	assert.True(t, errors.Is(RequireFile(fsys, "nope.txt"), ErrMissingFile))
	assert.True(t, errors.Is(RequireFile(fsys, "dir"), ErrMissingFile))
	assert.True(t, errors.Is(RequireFile(fsys, ""), ErrMissingFile))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "missing.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingFile))
}

func TestWriteFileAtomic(t *testing.T) {
	fsys := afero.NewMemMapFs()
	err := WriteFileAtomic(fsys, "out/result.csv", 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, "window_start,a\n")
		return err
	})
	require.NoError(t, err)
	got, err := afero.ReadFile(fsys, "out/result.csv")
	require.NoError(t, err)
	assert.Equal(t, "window_start,a\n", string(got))
	exists, _ := afero.Exists(fsys, "out/result.csv.tmp")
	assert.False(t, exists)
}

func TestWriteFileAtomicKeepsOldFileOnError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "result.csv", []byte("old"), 0o644))
	boom := errors.New("boom")
	err := WriteFileAtomic(fsys, "result.csv", 0o644, func(w io.Writer) error { return boom })
	require.ErrorIs(t, err, boom)
	got, _ := afero.ReadFile(fsys, "result.csv")
	assert.Equal(t, "old", string(got))
}
