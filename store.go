package tablepad

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// storeSuffixes are the companion files SQLite keeps next to the store.
var storeSuffixes = []string{"", "-wal", "-shm", "-journal"}

// Store is the persistent backing store: one database file plus its
// write-ahead log companions.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns the store at path on the operating system file system.
func NewStore(path string) *Store {
	return NewStoreFs(afero.NewOsFs(), path)
}

// NewStoreFs returns the store at path on fsys.
func NewStoreFs(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the primary store file path.
func (s *Store) Path() string {
	return s.path
}

// Files returns the primary store file followed by its companions.
func (s *Store) Files() []string {
	files := make([]string, len(storeSuffixes))
	for i, suffix := range storeSuffixes {
		files[i] = s.path + suffix
	}
	return files
}

// Reset removes the store file and its write-ahead log so the next session
// starts from an empty database. Files that do not exist are ignored.
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range s.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fs.RemoveAll(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %w", ErrStorage, name, err)
		}
	}
	return nil
}

// Exists reports whether the primary store file is present.
func (s *Store) Exists() (bool, error) {
	ok, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return ok, nil
}
