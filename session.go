package tablepad

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nao1215/tablepad/engine"
)

// Engine is one running engine instance bound to a store.
// *engine.Database satisfies it through OpenEngine.
type Engine interface {
	Connect(ctx context.Context) (EngineConn, error)
	RegisterFileBuffer(name string, data []byte) error
	CopyFileToBuffer(name string) ([]byte, error)
	Terminate() error
}

// EngineConn is a logical connection to an Engine.
type EngineConn interface {
	Query(ctx context.Context, query string) (*engine.Result, error)
	Close() error
}

// Opener instantiates an engine bound to the store described by cfg.
type Opener func(ctx context.Context, cfg engine.Config) (Engine, error)

// OpenEngine is the default Opener backed by the embedded engine.
func OpenEngine(ctx context.Context, cfg engine.Config) (Engine, error) {
	db, err := engine.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &databaseEngine{Database: db}, nil
}

type databaseEngine struct {
	*engine.Database
}

func (d *databaseEngine) Connect(ctx context.Context) (EngineConn, error) {
	conn, err := d.Database.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SessionManager opens one engine session per action against a fixed store path.
type SessionManager struct {
	path   string
	mode   engine.AccessMode
	opener Opener
	logger *zap.Logger
}

// NewSessionManager creates a session manager for the store at path.
// Sessions are read/write unless WithAccessMode says otherwise.
func NewSessionManager(path string) *SessionManager {
	return &SessionManager{
		path:   path,
		mode:   engine.AccessModeReadWrite,
		opener: OpenEngine,
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used for session lifecycle events.
// Returns the manager for method chaining.
func (m *SessionManager) WithLogger(logger *zap.Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithOpener replaces the engine opener.
// Returns the manager for method chaining.
func (m *SessionManager) WithOpener(opener Opener) *SessionManager {
	if opener != nil {
		m.opener = opener
	}
	return m
}

// WithAccessMode sets the access mode sessions are opened with.
// Returns the manager for method chaining.
func (m *SessionManager) WithAccessMode(mode engine.AccessMode) *SessionManager {
	m.mode = mode
	return m
}

// ReadOnly returns a manager for the same store whose sessions reject
// statements that modify it. The opener and logger are shared.
func (m *SessionManager) ReadOnly() *SessionManager {
	readers := *m
	readers.mode = engine.AccessModeReadOnly
	return &readers
}

// Path returns the store path sessions are bound to.
func (m *SessionManager) Path() string {
	return m.path
}

// Open instantiates an engine bound to the store. Failure is not retried.
func (m *SessionManager) Open(ctx context.Context) (*Session, error) {
	eng, err := m.opener(ctx, engine.Config{Path: m.path, AccessMode: m.mode})
	if err != nil {
		return nil, engineError("open session", err)
	}
	m.logger.Debug("session opened", zap.String("store", m.path))
	return &Session{
		engine: eng,
		path:   m.path,
		logger: m.logger,
	}, nil
}

// Do runs fn inside a fresh session with exactly one connection. The
// connection is closed and the session terminated on every exit path of fn,
// including a panic, which is re-raised after teardown.
func (m *SessionManager) Do(ctx context.Context, fn func(ctx context.Context, s *Session, c *Connection) error) (err error) {
	s, err := m.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Terminate())
	}()

	c, err := s.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()

	return fn(ctx, s, c)
}

// Session is one engine instance bound to the store.
type Session struct {
	engine Engine
	path   string
	logger *zap.Logger

	mu         sync.Mutex
	terminated bool
}

// Path returns the store path the session is bound to.
func (s *Session) Path() string {
	return s.path
}

// Connect opens the logical connection of the session.
// It must be paired with Connection.Close.
func (s *Session) Connect(ctx context.Context) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return nil, engineError("connect", engine.ErrClosed)
	}
	conn, err := s.engine.Connect(ctx)
	if err != nil {
		return nil, engineError("connect", err)
	}
	return &Connection{session: s, conn: conn}, nil
}

// Terminate releases the engine instance. Calling it again is a no-op.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return nil
	}
	s.terminated = true
	if err := s.engine.Terminate(); err != nil {
		return engineError("terminate session", err)
	}
	s.logger.Debug("session terminated", zap.String("store", s.path))
	return nil
}

// Terminated reports whether Terminate has been called.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Connection is the single logical connection of a Session.
type Connection struct {
	session *Session
	conn    EngineConn

	mu     sync.Mutex
	closed bool
}

// Session returns the session the connection belongs to.
func (c *Connection) Session() *Session {
	return c.session
}

// Query runs one statement on the engine.
func (c *Connection) Query(ctx context.Context, query string) (*engine.Result, error) {
	res, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, engineError(fmt.Sprintf("query %q", engine.SanitizeForLog(query)), err)
	}
	return res, nil
}

// Close closes the connection. Calling it again is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return engineError("close connection", err)
	}
	return nil
}

func (c *Connection) registerFileBuffer(name string, data []byte) error {
	if err := c.session.engine.RegisterFileBuffer(name, data); err != nil {
		return engineError("register "+name, err)
	}
	return nil
}

func (c *Connection) copyFileToBuffer(name string) ([]byte, error) {
	data, err := c.session.engine.CopyFileToBuffer(name)
	if err != nil {
		return nil, engineError("read "+name, err)
	}
	return data, nil
}
