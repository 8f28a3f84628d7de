// Package sqlexec is a minimal data-access layer for executing raw, parameterized, SQL
//
// Parameters are passed as an untyped, positional, list and their wire types are inferred (see Classify).
// Duplicate key failures are reported as a distinct error kind (see UniquenessError and KindOf).
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("sqlexec")

const (
	opInsert = "insert"
	opExec   = "exec"
	opSelect = "select"
)

// Executor is the main statement executor interface
//
// The sql text uses the driver's native positional placeholders and params must match them in number and order
type Executor interface {
	// Insert executes the statement and returns the last inserted auto-generated id
	//
	// fails with *UniquenessError if the database rejects a duplicate value, otherwise with *OrmError
	Insert(ctx context.Context, sql string, params []any) (int64, error)
	// Exec executes the statement and returns the number of rows affected
	//
	// fails with *UniquenessError if the database rejects a duplicate value, otherwise with *OrmError
	Exec(ctx context.Context, sql string, params []any) (int64, error)
	// Select executes the query and reads all rows into memory
	//
	// fails with *OrmError - uniqueness violations are not classified for reads
	Select(ctx context.Context, sql string, params []any) ([]Row, error)
}

// New creates a new MySQL Executor
//
// The connection is not opened until the first statement is executed.
//
// options can be any of: ErrorClassifier, UseDecimals or ColumnScanners
func New(host, username, password, databaseName string, options ...any) (Executor, error) {
	creds := Credentials{
		Host:     host,
		Username: username,
		Password: password,
		Database: databaseName,
	}
	return NewExecutor(NewConnections().For(creds), options...)
}

// MustNew is the same as New, except it panics on error
func MustNew(host, username, password, databaseName string, options ...any) Executor {
	e, err := New(host, username, password, databaseName, options...)
	if err != nil {
		panic(err)
	}
	return e
}

// NewExecutor creates a new Executor that executes statements on connections from the given provider
//
// options can be any of: ErrorClassifier, UseDecimals or ColumnScanners
func NewExecutor(provider ConnectionProvider, options ...any) (Executor, error) {
	return newExecutor(provider, options...)
}

func newExecutor(provider ConnectionProvider, options ...any) (*executor, error) {
	result := &executor{
		provider:   provider,
		classifier: MySqlErrorClassifier,
		scanners:   ColumnScanners{},
	}
	if err := result.addOptions(options...); err != nil {
		return nil, err
	}
	return result, nil
}

type executor struct {
	provider    ConnectionProvider
	classifier  ErrorClassifier
	useDecimals bool
	scanners    ColumnScanners
}

var _ Executor = (*executor)(nil)

func (e *executor) addOptions(options ...any) error {
	for _, o := range options {
		if o != nil {
			switch option := o.(type) {
			case ErrorClassifier:
				e.classifier = option
			case func(error) ErrorKind:
				e.classifier = ErrorClassifierFunc(option)
			case UseDecimals:
				e.useDecimals = bool(option)
			case ColumnScanners:
				for k, v := range option {
					e.scanners[k] = v
				}
			default:
				return fmt.Errorf("unknown option type: %T", o)
			}
		}
	}
	return nil
}

func (e *executor) Insert(ctx context.Context, query string, params []any) (id int64, err error) {
	start := time.Now()
	defer func() {
		observe(opInsert, start, err)
	}()
	return e.execute(ctx, opInsert, query, params, sql.Result.LastInsertId)
}

func (e *executor) Exec(ctx context.Context, query string, params []any) (count int64, err error) {
	start := time.Now()
	defer func() {
		observe(opExec, start, err)
	}()
	return e.execute(ctx, opExec, query, params, sql.Result.RowsAffected)
}

func (e *executor) Select(ctx context.Context, query string, params []any) (result []Row, err error) {
	start := time.Now()
	defer func() {
		observe(opSelect, start, err)
	}()
	args, err := bindArgs(params)
	if err != nil {
		return nil, newOrmError(err)
	}
	stmt, err := e.prepare(ctx, opSelect, query, params)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = stmt.Close()
	}()
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		log.Warnw("select failed", "sql", query, "error", err)
		return nil, newOrmError(err)
	}
	defer func() {
		_ = rows.Close()
	}()
	cols, err := newColumnsInfo(rows, e.useDecimals, e.scanners)
	if err != nil {
		return nil, newOrmError(err)
	}
	result = make([]Row, 0)
	for rows.Next() {
		cr := cols.reader()
		if err = rows.Scan(cr.scanArgs...); err != nil {
			return nil, newOrmError(err)
		}
		result = append(result, Row{columns: cols, values: cr.values})
	}
	if err = rows.Err(); err != nil {
		return nil, newOrmError(err)
	}
	return result, nil
}

// execute runs a statement that does not return rows, reading the outcome before the statement is released
//
// parameters are bound before anything is prepared, so a parameter that cannot be bound never reaches the database
func (e *executor) execute(ctx context.Context, op string, query string, params []any, read func(sql.Result) (int64, error)) (int64, error) {
	args, err := bindArgs(params)
	if err != nil {
		return 0, newOrmError(err)
	}
	stmt, err := e.prepare(ctx, op, query, params)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = stmt.Close()
	}()
	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		// must be classified while the statement is still open
		err = classifyError(err, e.classifier)
		log.Warnw(op+" failed", "sql", query, "kind", KindOf(err), "error", err)
		return 0, err
	}
	n, err := read(result)
	if err != nil {
		return 0, newOrmError(err)
	}
	return n, nil
}

func (e *executor) prepare(ctx context.Context, op string, query string, params []any) (*sql.Stmt, error) {
	log.Debugw(op, "sql", query, "params", len(params))
	conn, err := e.provider.Connection(ctx)
	if err != nil {
		return nil, newOrmError(err)
	}
	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		log.Warnw("prepare failed", "sql", query, "error", err)
		return nil, newOrmError(err)
	}
	return stmt, nil
}

// bindArgs returns nil for an empty parameter list - nothing is bound
func bindArgs(params []any) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	b, err := Bind(params)
	if err != nil {
		return nil, err
	}
	return b.Values, nil
}
