package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowFunc is a pgx.Row backed by a function.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

// newIDRow fills the leading uuid destination, as an INSERT ... RETURNING id does.
func newIDRow() pgx.Row {
	return rowFunc(func(dest ...any) error {
		if id, ok := dest[0].(*uuid.UUID); ok {
			*id = uuid.New()
		}
		return nil
	})
}

type statement struct {
	sql  string
	args []any
}

// fakeDB records statements and answers them through the optional funcs.
// Exec defaults to one affected row.
type fakeDB struct {
	statements []statement
	ExecFunc   func(sql string, args []any) (pgconn.CommandTag, error)
	RowFunc    func(sql string, args []any) pgx.Row
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, statement{sql, args})
	if f.ExecFunc != nil {
		return f.ExecFunc(sql, args)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.statements = append(f.statements, statement{sql, args})
	return nil, errors.New("fakeDB: Query not supported")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.statements = append(f.statements, statement{sql, args})
	if f.RowFunc != nil {
		return f.RowFunc(sql, args)
	}
	return newIDRow()
}

// touched returns the statements whose SQL contains part.
func (f *fakeDB) touched(part string) []statement {
	var out []statement
	for _, s := range f.statements {
		if strings.Contains(s.sql, part) {
			out = append(out, s)
		}
	}
	return out
}

// fakeTx runs statements against a fakeDB. Methods not overridden panic
// through the nil embedded pgx.Tx.
type fakeTx struct {
	pgx.Tx
	db        *fakeDB
	committed bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

type fakePool struct {
	tx *fakeTx
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.tx, nil
}

// newFakeStore returns a Store whose transactions all run on db.
func newFakeStore(db *fakeDB) (*Store, *fakeTx) {
	tx := &fakeTx{db: db}
	return &Store{Queries: New(db), pool: &fakePool{tx: tx}}, tx
}
