// Package engine provides the embedded analytical engine used by tablepad.
//
// A Database is one engine instance bound to a single SQLite store file
// (journal mode WAL). Besides plain SQLite SQL, a connection understands the
// small set of statements the session pipeline relies on:
//
//	SHOW TABLES
//	CREATE TABLE t AS SELECT * FROM read_csv('uploaded_csv')
//	CREATE TABLE t AS SELECT * FROM read_json('uploaded_json')
//	CREATE TABLE t AS SELECT * FROM read_parquet('uploaded_parquet')
//	COPY (SELECT ...) TO 'output.csv' (HEADER, DELIMITER ',')
//	COPY (SELECT ...) TO 'output.jsonl' (FORMAT JSON)
//	COPY (SELECT ...) TO 'output.parquet' (FORMAT PARQUET)
//
// The files named in read_* and COPY live in a per-instance virtual file
// system: callers put uploads there with RegisterFileBuffer and take exports
// out with CopyFileToBuffer. Nothing in the virtual file system survives
// Terminate.
//
// Only one Database may be open for a given store path inside a process, and
// each Database hands out at most one logical connection at a time.
//
// Usage:
//
//	db, err := engine.Open(ctx, engine.Config{Path: "tablepad.db"})
//	if err != nil {
//		return err
//	}
//	defer db.Terminate()
//
//	conn, err := db.Connect(ctx)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	res, err := conn.Query(ctx, "SHOW TABLES")
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// AccessMode controls whether the store may be written.
type AccessMode int

const (
	// AccessModeReadWrite opens the store for reading and writing
	AccessModeReadWrite AccessMode = iota
	// AccessModeReadOnly rejects statements that modify the store
	AccessModeReadOnly
)

// Config describes the store an engine instance is bound to.
type Config struct {
	// Path is the store file. Its write-ahead log lives next to it.
	Path string
	// AccessMode defaults to AccessModeReadWrite.
	AccessMode AccessMode
}

// dsn builds the modernc sqlite data source name for the config.
func (c Config) dsn(path string) string {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if c.AccessMode == AccessModeReadOnly {
		dsn += "&_pragma=query_only(1)"
	}
	return dsn
}

// Database is one engine instance bound to a store file.
type Database struct {
	mu         sync.Mutex
	path       string
	db         *sql.DB
	files      afero.Fs
	conn       *Conn
	terminated bool
}

// storeLocks tracks the store paths held by live engine instances.
var storeLocks = struct {
	sync.Mutex
	held map[string]struct{}
}{held: make(map[string]struct{})}

func lockStore(path string) error {
	storeLocks.Lock()
	defer storeLocks.Unlock()
	if _, ok := storeLocks.held[path]; ok {
		return fmt.Errorf("%w: %s", ErrStoreLocked, path)
	}
	storeLocks.held[path] = struct{}{}
	return nil
}

func unlockStore(path string) {
	storeLocks.Lock()
	defer storeLocks.Unlock()
	delete(storeLocks.held, path)
}

// Open instantiates an engine bound to cfg.Path. The store file and its
// write-ahead log are created on first use.
func Open(ctx context.Context, cfg Config) (*Database, error) {
	if err := ValidateStorePath(cfg.Path); err != nil {
		return nil, err
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path %s: %w", cfg.Path, err)
	}
	if err := lockStore(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.dsn(path))
	if err != nil {
		unlockStore(path)
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	// One physical connection keeps every logical connection on the same
	// SQLite handle, so the WAL is never shared between handles.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() // Ignore close error since we're already returning an error
		unlockStore(path)
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}

	return &Database{
		path:  path,
		db:    db,
		files: afero.NewMemMapFs(),
	}, nil
}

// Path returns the absolute store path.
func (d *Database) Path() string {
	return d.path
}

// Connect opens the single logical connection of this instance.
// It must be paired with Conn.Close.
func (d *Database) Connect(ctx context.Context) (*Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.terminated {
		return nil, ErrClosed
	}
	if d.conn != nil {
		return nil, ErrConnectionInUse
	}

	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	d.conn = &Conn{db: d, conn: c}
	return d.conn, nil
}

// release forgets the active connection.
func (d *Database) release(c *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == c {
		d.conn = nil
	}
}

// Terminate closes any open connection, closes the store, drops every
// virtual file and releases the store path. It is safe to call more than once.
func (d *Database) Terminate() error {
	d.mu.Lock()
	if d.terminated {
		d.mu.Unlock()
		return nil
	}
	d.terminated = true
	conn := d.conn
	d.conn = nil
	d.files = afero.NewMemMapFs()
	d.mu.Unlock()

	var errs []error
	if conn != nil {
		errs = append(errs, conn.closeUnderlying())
	}
	errs = append(errs, d.db.Close())
	unlockStore(d.path)
	return errors.Join(errs...)
}

// Terminated reports whether Terminate has been called.
func (d *Database) Terminated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.terminated
}

// RegisterFileBuffer stores data in the virtual file system under name,
// replacing any previous file of the same name.
func (d *Database) RegisterFileBuffer(name string, data []byte) error {
	if err := ValidateFileName(name); err != nil {
		return err
	}
	fsys, err := d.fs()
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fsys, name, data, 0o600); err != nil {
		return fmt.Errorf("failed to register %s: %w", name, err)
	}
	return nil
}

// CopyFileToBuffer returns the contents of a virtual file.
func (d *Database) CopyFileToBuffer(name string) ([]byte, error) {
	if err := ValidateFileName(name); err != nil {
		return nil, err
	}
	fsys, err := d.fs()
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// DropFile removes a virtual file. Dropping a missing file is not an error.
func (d *Database) DropFile(name string) error {
	fsys, err := d.fs()
	if err != nil {
		return err
	}
	if err := fsys.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	return nil
}

func (d *Database) fs() (afero.Fs, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.terminated {
		return nil, ErrClosed
	}
	return d.files, nil
}
