package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"agencyerp/internal/domain/auth"
)

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

type failingCountDB struct{ err error }

func (f failingCountDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (f failingCountDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (f failingCountDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{err: f.err}
}

func TestListSlipsCountFailurePropagates(t *testing.T) {
	dbErr := errors.New("connection reset")
	svc := &Service{Store: &Store{DB: failingCountDB{err: dbErr}}}

	_, err := svc.ListSlips(context.Background(), "tenant", auth.RoleAdmin, "", "", 20, 0)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected count failure to surface, got %v", err)
	}
}
