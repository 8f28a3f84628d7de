// Package sqlite adapts sqlexec to SQLite databases (via github.com/mattn/go-sqlite3)
package sqlite

import (
	"database/sql"
	"errors"
	"net/url"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"

	"github.com/go-andiamo/sqlexec"
)

// DriverName is the database/sql driver name registered by go-sqlite3
const DriverName = "sqlite3"

// connection parameters, applied by the driver to every pooled connection
var dsnParams = url.Values{
	"_foreign_keys": {"on"},
	"_journal_mode": {"WAL"},
	"_busy_timeout": {"5000"},
	"_synchronous":  {"NORMAL"},
	"_txlock":       {"immediate"},
}

// Open opens (creating if necessary) the SQLite database file at path
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, "file:"+path+"?"+dsnParams.Encode())
	if err != nil {
		return nil, xerrors.Errorf("opening sqlite database %s: %w", path, err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("opening sqlite database %s: %w", path, err)
	}
	return db, nil
}

// ErrorClassifier classifies SQLite unique and primary key constraint failures as sqlexec.KindUniqueViolation
//
// pass it as an option to sqlexec.NewExecutor
var ErrorClassifier sqlexec.ErrorClassifier = sqlexec.ErrorClassifierFunc(func(err error) sqlexec.ErrorKind {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return sqlexec.KindUniqueViolation
		}
	}
	return sqlexec.KindGeneric
})

// NewExecutor opens the SQLite database at path and returns an Executor over it, along with the database
// (which the caller owns and should close)
func NewExecutor(path string, options ...any) (sqlexec.Executor, *sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	e, err := sqlexec.NewExecutor(sqlexec.Handle(db), append([]any{ErrorClassifier}, options...)...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return e, db, nil
}
