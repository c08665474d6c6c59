package pgvector

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
)

// recordedStmt is one statement seen by the recording driver.
type recordedStmt struct {
	query string
	args  []driver.Value
	inTx  bool
}

// recorder is a database/sql driver that keeps every statement it receives
// and answers with scripted results. Queries return rows; Execs report
// rowsAffected for the first statement whose text contains the key.
type recorder struct {
	mu           sync.Mutex
	stmts        []recordedStmt
	columns      []string
	rows         [][]driver.Value
	rowsAffected map[string]int64
	failOn       string
	commits      int
	rollbacks    int
	inTx         bool
}

func newRecorderDB(t *testing.T, rec *recorder) *sqlx.DB {
	t.Helper()
	db := sqlx.NewDb(sql.OpenDB(recorderConnector{rec: rec}), "postgres")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func (r *recorder) Open(string) (driver.Conn, error) { return &recorderConn{rec: r}, nil }

func (r *recorder) record(query string, args []driver.NamedValue) (recordedStmt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	stmt := recordedStmt{query: strings.Join(strings.Fields(query), " "), args: values, inTx: r.inTx}
	r.stmts = append(r.stmts, stmt)
	if r.failOn != "" && strings.Contains(stmt.query, r.failOn) {
		return stmt, errors.New("scripted failure")
	}
	return stmt, nil
}

// find returns the recorded statements whose text contains fragment.
func (r *recorder) find(fragment string) []recordedStmt {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedStmt
	for _, s := range r.stmts {
		if strings.Contains(s.query, fragment) {
			out = append(out, s)
		}
	}
	return out
}

type recorderConnector struct{ rec *recorder }

func (c recorderConnector) Connect(context.Context) (driver.Conn, error) {
	return &recorderConn{rec: c.rec}, nil
}

func (c recorderConnector) Driver() driver.Driver { return c.rec }

type recorderConn struct{ rec *recorder }

func (c *recorderConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *recorderConn) Close() error { return nil }

func (c *recorderConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *recorderConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.rec.mu.Lock()
	c.rec.inTx = true
	c.rec.mu.Unlock()
	return recorderTx{rec: c.rec}, nil
}

func (c *recorderConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	stmt, err := c.rec.record(query, args)
	if err != nil {
		return nil, err
	}
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	for key, n := range c.rec.rowsAffected {
		if strings.Contains(stmt.query, key) {
			return driver.RowsAffected(n), nil
		}
	}
	return driver.RowsAffected(0), nil
}

func (c *recorderConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if _, err := c.rec.record(query, args); err != nil {
		return nil, err
	}
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	return &recorderRows{columns: c.rec.columns, rows: c.rec.rows}, nil
}

type recorderTx struct{ rec *recorder }

func (tx recorderTx) Commit() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.commits++
	tx.rec.inTx = false
	return nil
}

func (tx recorderTx) Rollback() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.rollbacks++
	tx.rec.inTx = false
	return nil
}

type recorderRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *recorderRows) Columns() []string { return r.columns }

func (r *recorderRows) Close() error { return nil }

func (r *recorderRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}
