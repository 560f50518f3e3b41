// Package sqldb implements storage.Store over database/sql. The SQLite and
// Postgres backends share these queries and differ only in dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// DB is a storage.Store backed by an open *sql.DB with its schema already migrated.
type DB struct {
	*queries
	db *sql.DB
}

var _ storage.Store = (*DB)(nil)

func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{queries: &queries{ex: db, dialect: dialect, now: utcNow}, db: db}
}

// Atomic runs fn inside a database transaction, committing only when fn succeeds.
func (d *DB) Atomic(ctx context.Context, fn func(ctx context.Context, q storage.Queries) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapStorage("begin", err)
	}
	q := &queries{ex: tx, dialect: d.dialect, now: d.now}
	if err := fn(ctx, q); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.WrapStorage("commit", err)
	}
	return nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

type queries struct {
	ex      execer
	dialect Dialect
	now     func() time.Time
}

// utcNow is truncated to the microsecond precision both engines keep.
func utcNow() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// timestampLayout is how timestamps are bound. SQLite keeps the text as
// written; Postgres parses it into TIMESTAMPTZ.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

func stamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (q *queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *queries) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := q.ex.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, core.WrapStorage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.WrapStorage(op, err)
	}
	return n, nil
}

// insert runs an INSERT ... RETURNING id statement.
func (q *queries) insert(ctx context.Context, op, query string, args ...any) (int64, error) {
	var id int64
	if err := q.ex.QueryRowContext(ctx, q.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, core.WrapStorage(op, err)
	}
	return id, nil
}

func (q *queries) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := q.ex.QueryRowContext(ctx, q.rebind(query+" LIMIT 1"), args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, core.WrapStorage(op, err)
	}
	return true, nil
}

func (q *queries) mustExist(ctx context.Context, table, entity string, id int64) error {
	ok, err := q.exists(ctx, "check "+entity, "SELECT 1 FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewNotFound(entity, id)
	}
	return nil
}

func (q *queries) mustExistRef(ctx context.Context, table, entity string, id *int64) error {
	if id == nil {
		return nil
	}
	return q.mustExist(ctx, table, entity, *id)
}

// refuseIfReferenced returns a ValidationError when query finds a referencing row.
func (q *queries) refuseIfReferenced(ctx context.Context, msg, query string, id int64) error {
	ok, err := q.exists(ctx, "check references", query, id)
	if err != nil {
		return err
	}
	if ok {
		return core.NewValidationError("id", msg)
	}
	return nil
}

func (q *queries) deleteByID(ctx context.Context, table, entity string, id int64) error {
	n, err := q.exec(ctx, "delete "+entity, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NewNotFound(entity, id)
	}
	return nil
}

func notFoundOr(err error, entity string, id int64, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewNotFound(entity, id)
	}
	return core.WrapStorage(op, err)
}

func collect[T any](rows *sql.Rows, op string, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, core.WrapStorage(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStorage(op, err)
	}
	return out, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return core.ID(n.Int64)
}

func nullDate(d *core.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

// timestamp scans the timestamp encodings of both drivers.
type timestamp struct{ t *time.Time }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts.t = time.Time{}
		return nil
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
