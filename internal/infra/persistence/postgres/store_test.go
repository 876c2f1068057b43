package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"orthoset/internal/infra/persistence/postgres/testutil"
	"orthoset/internal/ledger/core"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func TestStoreRecordGetList(t *testing.T) {
	store, conn := newStubStore(t)
	ctx := context.Background()
	if len(conn.Execs) == 0 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS runs") {
		t.Fatalf("expected schema to be applied, got %v", conn.Execs)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := core.Run{ID: "a", StartedAt: base, Status: core.StatusSucceeded, Counts: map[string]int{"core": 4}}
	newer := core.Run{ID: "b", StartedAt: base.Add(time.Hour), Status: core.StatusFailed, Error: "boom"}
	for _, run := range []core.Run{older, newer} {
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record %s: %v", run.ID, err)
		}
	}
	older.Counts["core"] = 5
	if err := store.Record(ctx, older); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Counts["core"] != 5 {
		t.Fatalf("expected upserted counts, got %+v", got)
	}
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "b" || runs[1].ID != "a" {
		t.Fatalf("unexpected order %+v", runs)
	}
	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != "b" {
		t.Fatalf("limit: %v %+v", err, limited)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if store.Driver() != core.DriverPostgres {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestStoreRejectsInvalidRun(t *testing.T) {
	store, _ := newStubStore(t)
	if err := store.Record(context.Background(), core.Run{ID: "x"}); err == nil {
		t.Fatalf("expected validation error for missing start time")
	}
}

func TestNewStoreErrors(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}

	restoreOpen := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial refused") })
	defer restoreOpen()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestStoreSurfacesQueryErrors(t *testing.T) {
	store, conn := newStubStore(t)
	conn.FailQuery = true
	if _, err := store.List(context.Background(), 0); err == nil {
		t.Fatalf("expected list error")
	}
	conn.FailQuery = false
	conn.FailExec = true
	if err := store.Record(context.Background(), core.Run{ID: "x", StartedAt: time.Now()}); err == nil {
		t.Fatalf("expected record error")
	}
}
