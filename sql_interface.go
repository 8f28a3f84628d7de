package sqlexec

import (
	"context"
	"database/sql"
)

// SqlInterface is the connection handle statements are prepared on
//
// It is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type SqlInterface interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}
