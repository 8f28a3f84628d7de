package sqlexec

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/xerrors"
)

// ConnectionProvider supplies the connection an Executor prepares its statements on
type ConnectionProvider interface {
	// Connection returns the live connection, creating it on first use
	Connection(ctx context.Context) (SqlInterface, error)
}

// Handle returns a ConnectionProvider that always supplies the given handle
//
// The handle remains owned by the caller - passing a *sql.Tx runs every statement inside that transaction
func Handle(sqli SqlInterface) ConnectionProvider {
	return &handleProvider{sqli: sqli}
}

type handleProvider struct {
	sqli SqlInterface
}

func (h *handleProvider) Connection(ctx context.Context) (SqlInterface, error) {
	if h.sqli == nil {
		return nil, xerrors.New("no connection handle")
	}
	return h.sqli, nil
}

// Connections owns the database pools opened for a set of Credentials
//
// A pool is opened (and pinged) lazily on first use and then reused for every later call with identical
// credentials. Pools are never health-checked or re-opened - a dropped connection surfaces as an error from
// the next statement.
//
// Connections is safe for concurrent use; each statement checks a connection out of the pool for its duration.
type Connections struct {
	mutex      sync.Mutex
	driverName string
	dsn        func(Credentials) string
	pools      map[Credentials]*sql.DB
}

// NewConnections creates a new, empty, set of MySQL connection pools
func NewConnections() *Connections {
	return newConnections("mysql", Credentials.Dsn)
}

func newConnections(driverName string, dsn func(Credentials) string) *Connections {
	return &Connections{
		driverName: driverName,
		dsn:        dsn,
		pools:      map[Credentials]*sql.DB{},
	}
}

// GetConnection returns the pool for the given credentials, opening it if this is the first request for them
//
// The pool is opened and pinged without holding the lock, so a slow host does not block callers of other pools.
// If two callers race to open the same pool the first one stored wins and the other is closed.
func (c *Connections) GetConnection(ctx context.Context, creds Credentials) (*sql.DB, error) {
	if db, ok := c.cached(creds); ok {
		return db, nil
	}
	db, err := sql.Open(c.driverName, c.dsn(creds))
	if err != nil {
		log.Errorw("opening database", "host", creds.Host, "database", creds.Database, "error", err)
		return nil, xerrors.Errorf("opening database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		log.Errorw("connecting to database", "host", creds.Host, "database", creds.Database, "error", err)
		_ = db.Close()
		return nil, xerrors.Errorf("connecting to database: %w", err)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.pools[creds]; ok {
		_ = db.Close()
		return existing, nil
	}
	log.Infow("connected", "host", creds.Host, "database", creds.Database)
	c.pools[creds] = db
	return db, nil
}

func (c *Connections) cached(creds Credentials) (*sql.DB, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	db, ok := c.pools[creds]
	return db, ok
}

// For returns a ConnectionProvider bound to the given credentials
func (c *Connections) For(creds Credentials) ConnectionProvider {
	return &credentialsProvider{connections: c, creds: creds}
}

// Close closes every pool opened so far
//
// Executors never call Close - it is for whoever owns the Connections
func (c *Connections) Close() (err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for creds, db := range c.pools {
		err = multierr.Append(err, db.Close())
		delete(c.pools, creds)
	}
	return err
}

type credentialsProvider struct {
	connections *Connections
	creds       Credentials
}

func (p *credentialsProvider) Connection(ctx context.Context) (SqlInterface, error) {
	return p.connections.GetConnection(ctx, p.creds)
}
