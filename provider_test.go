package sqlexec

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	p := Handle(db)
	conn, err := p.Connection(ctx)
	require.NoError(t, err)
	require.Same(t, db, conn)

	_, err = Handle(nil).Connection(ctx)
	require.Error(t, err)
}

func TestConnections_GetConnection(t *testing.T) {
	creds := Credentials{Host: "mock-host", Username: "root", Password: "root", Database: "conn_test_db"}
	db, mock, err := sqlmock.NewWithDSN(creds.Dsn())
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	c := newConnections("sqlmock", Credentials.Dsn)
	conn1, err := c.GetConnection(ctx, creds)
	require.NoError(t, err)
	require.NotNil(t, conn1)
	conn2, err := c.GetConnection(ctx, creds)
	require.NoError(t, err)
	require.Same(t, conn1, conn2)
	require.Len(t, c.pools, 1)

	p := c.For(creds)
	conn3, err := p.Connection(ctx)
	require.NoError(t, err)
	require.Same(t, conn1, conn3)

	mock.ExpectClose()
	require.NoError(t, c.Close())
	require.Empty(t, c.pools)
}

func TestConnections_GetConnection_Errors(t *testing.T) {
	c := newConnections("sqlmock", Credentials.Dsn)
	_, err := c.GetConnection(ctx, Credentials{Host: "unregistered-host", Database: "nowhere"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connecting to database")
	require.Empty(t, c.pools)

	c = newConnections("no-such-driver", Credentials.Dsn)
	_, err = c.GetConnection(ctx, Credentials{Host: "localhost"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "opening database")
	require.Empty(t, c.pools)
}

func TestConnections_ExecutorUsesPool(t *testing.T) {
	creds := Credentials{Host: "mock-host", Username: "root", Password: "root", Database: "exec_test_db"}
	db, mock, err := sqlmock.NewWithDSN(creds.Dsn())
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	c := newConnections("sqlmock", Credentials.Dsn)
	e, err := NewExecutor(c.For(creds))
	require.NoError(t, err)
	require.Empty(t, c.pools)

	mock.ExpectPrepare("INSERT").ExpectExec().WillReturnResult(sqlmock.NewResult(42, 1))
	id, err := e.Insert(ctx, insertUser, []any{"a@x.com", 30})
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Len(t, c.pools, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewConnections(t *testing.T) {
	c := NewConnections()
	require.Equal(t, "mysql", c.driverName)
	require.NotNil(t, c.pools)
	require.NoError(t, c.Close())
}

var gatedDrivers atomic.Int64

// gatedDriver holds every connection attempt until released
type gatedDriver struct {
	entered chan struct{}
	release chan struct{}
	next    driver.Driver
}

func (d *gatedDriver) Open(name string) (driver.Conn, error) {
	d.entered <- struct{}{}
	<-d.release
	return d.next.Open(name)
}

func TestConnections_GetConnection_Concurrent(t *testing.T) {
	cached := Credentials{Host: "cached-host", Database: "cached_db"}
	slow := Credentials{Host: "slow-host", Database: "slow_db"}
	cachedDb, _, err := sqlmock.New()
	require.NoError(t, err)
	winnerDb, _, err := sqlmock.New()
	require.NoError(t, err)
	slowDb, slowMock, err := sqlmock.NewWithDSN(slow.Dsn())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = cachedDb.Close()
		_ = winnerDb.Close()
		_ = slowDb.Close()
	})
	gd := &gatedDriver{entered: make(chan struct{}, 1), release: make(chan struct{}), next: slowDb.Driver()}
	driverName := fmt.Sprintf("gated-%d", gatedDrivers.Add(1))
	sql.Register(driverName, gd)
	c := newConnections(driverName, Credentials.Dsn)
	c.pools[cached] = cachedDb

	type result struct {
		db  *sql.DB
		err error
	}
	done := make(chan result, 1)
	go func() {
		db, err := c.GetConnection(ctx, slow)
		done <- result{db: db, err: err}
	}()
	<-gd.entered

	// the slow pool is still connecting
	db, err := c.GetConnection(ctx, cached)
	require.NoError(t, err)
	require.Same(t, cachedDb, db)

	// another caller stores a pool for the same credentials first
	c.mutex.Lock()
	c.pools[slow] = winnerDb
	c.mutex.Unlock()
	slowMock.ExpectClose()
	close(gd.release)

	r := <-done
	require.NoError(t, r.err)
	require.Same(t, winnerDb, r.db)
	require.Len(t, c.pools, 2)
	// the losing pool was closed
	require.NoError(t, slowMock.ExpectationsWereMet())
}
