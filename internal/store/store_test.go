package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{}) // in-memory
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedEvent(t *testing.T, s *Store, id string, state model.BridgeState, ts time.Time) *model.Event {
	t.Helper()
	e := &model.Event{
		EventID:          id,
		SourceDeviceID:   "camera_001",
		BridgeState:      state,
		BridgeConfidence: 0.9,
		Timestamp:        ts,
	}
	if err := s.InsertEvent(context.Background(), e); err != nil {
		t.Fatalf("InsertEvent(%s): %v", id, err)
	}
	return e
}

// ---------------------------------------------------------------------------
// Connection options
// ---------------------------------------------------------------------------

func TestResolveDSN(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		wantDialect Dialect
		wantDriver  string
		wantDSN     string
	}{
		{"memory", Options{}, DialectSQLite, "sqlite", ":memory:?_journal_mode=WAL"},
		{"postgres", Options{URL: "postgres://u:p@db:5432/hutch"}, DialectPostgres, "pgx", "postgres://u:p@db:5432/hutch"},
		{"postgresql", Options{URL: "postgresql://db/hutch"}, DialectPostgres, "pgx", "postgresql://db/hutch"},
		{"sqlite memory url", Options{URL: "sqlite://:memory:"}, DialectSQLite, "sqlite", ":memory:?_journal_mode=WAL"},
		{"sqlite file url", Options{URL: "sqlite:///var/lib/hutch.db"}, DialectSQLite, "sqlite", "/var/lib/hutch.db?_journal_mode=WAL&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialect, driver, dsn, err := resolveDSN(tt.opts)
			if err != nil {
				t.Fatalf("resolveDSN: %v", err)
			}
			if dialect != tt.wantDialect {
				t.Errorf("dialect = %q, want %q", dialect, tt.wantDialect)
			}
			if driver != tt.wantDriver {
				t.Errorf("driver = %q, want %q", driver, tt.wantDriver)
			}
			if dsn != tt.wantDSN {
				t.Errorf("dsn = %q, want %q", dsn, tt.wantDSN)
			}
		})
	}
}

func TestResolveDSNMySQL(t *testing.T) {
	dialect, driver, dsn, err := resolveDSN(Options{URL: "mysql://hutch:s3cret@db/bridge"})
	if err != nil {
		t.Fatalf("resolveDSN: %v", err)
	}
	if dialect != DialectMySQL || driver != "mysql" {
		t.Errorf("got %s/%s, want mysql/mysql", dialect, driver)
	}
	for _, want := range []string{"hutch:s3cret@tcp(db:3306)/bridge", "parseTime=true"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestResolveDSNUnsupportedScheme(t *testing.T) {
	if _, _, _, err := resolveDSN(Options{URL: "mongodb://localhost"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestOpenDataDir(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if s.Dialect() != DialectSQLite {
		t.Errorf("dialect = %q, want sqlite", s.Dialect())
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestReopenRerunsMigrations(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.InsertAdmin(ctx, &model.Admin{
		Username: "alice", PasswordHash: "h", Role: model.RoleAdmin, IsActive: true,
	}); err != nil {
		t.Fatalf("InsertAdmin: %v", err)
	}
	s.Close()

	s, err = Open(ctx, Options{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.FindAdminByUsername(ctx, "alice"); err != nil {
		t.Errorf("admin lost across reopen: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

func TestAdminCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &model.Admin{
		Username:     "alice",
		PasswordHash: "salt:key",
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := s.InsertAdmin(ctx, admin); err != nil {
		t.Fatalf("InsertAdmin: %v", err)
	}
	if admin.ID == 0 {
		t.Fatal("expected non-zero ID after insert")
	}

	got, err := s.FindAdminByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindAdminByUsername: %v", err)
	}
	if got.ID != admin.ID || got.PasswordHash != "salt:key" || got.Role != model.RoleAdmin || !got.IsActive {
		t.Errorf("unexpected admin: %+v", got)
	}
	if got.LastLoginAt != nil {
		t.Error("expected nil LastLoginAt before first login")
	}

	if err := s.TouchLastLogin(ctx, admin.ID); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	got, err = s.FindAdminByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("FindAdminByID: %v", err)
	}
	if got.LastLoginAt == nil {
		t.Error("expected LastLoginAt to be set")
	}

	if err := s.SetAdminActive(ctx, admin.ID, false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}
	got, _ = s.FindAdminByID(ctx, admin.ID)
	if got.IsActive {
		t.Error("expected admin to be inactive")
	}

	n, err := s.CountAdmins(ctx)
	if err != nil {
		t.Fatalf("CountAdmins: %v", err)
	}
	if n != 1 {
		t.Errorf("CountAdmins = %d, want 1", n)
	}

	if err := s.DeleteAdmin(ctx, admin.ID); err != nil {
		t.Fatalf("DeleteAdmin: %v", err)
	}
	if _, err := s.FindAdminByID(ctx, admin.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInsertAdminDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.Admin{Username: "bob", PasswordHash: "x", Role: model.RoleViewer, IsActive: true}
	if err := s.InsertAdmin(ctx, first); err != nil {
		t.Fatalf("InsertAdmin: %v", err)
	}
	second := &model.Admin{Username: "bob", PasswordHash: "y", Role: model.RoleEditor, IsActive: true}
	if err := s.InsertAdmin(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAdminNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.FindAdminByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindAdminByUsername: expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindAdminByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindAdminByID: expected ErrNotFound, got %v", err)
	}
	if err := s.TouchLastLogin(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("TouchLastLogin: expected ErrNotFound, got %v", err)
	}
	if err := s.SetAdminActive(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAdminActive: expected ErrNotFound, got %v", err)
	}
}

func TestListAdminsOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zed", "amy", "mia"} {
		a := &model.Admin{Username: name, PasswordHash: "h", Role: model.RoleViewer, IsActive: true}
		if err := s.InsertAdmin(ctx, a); err != nil {
			t.Fatalf("InsertAdmin(%s): %v", name, err)
		}
	}
	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 3 {
		t.Fatalf("got %d admins, want 3", len(admins))
	}
	if admins[0].Username != "amy" || admins[2].Username != "zed" {
		t.Errorf("unexpected order: %s, %s, %s", admins[0].Username, admins[1].Username, admins[2].Username)
	}
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func TestEventsOrderedNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedEvent(t, s, "e2", model.BridgeOpening, base.Add(2*time.Minute))
	seedEvent(t, s, "e1", model.BridgeClosed, base)
	seedEvent(t, s, "e3", model.BridgeOpen, base.Add(5*time.Minute))

	events, err := s.ListEvents(ctx, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	want := []string{"e3", "e2", "e1"}
	for i, id := range want {
		if events[i].EventID != id {
			t.Errorf("events[%d] = %s, want %s", i, events[i].EventID, id)
		}
	}
	if !events[0].Timestamp.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("timestamp = %v, want %v", events[0].Timestamp, base.Add(5*time.Minute))
	}

	limited, err := s.ListEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListEvents(limit): %v", err)
	}
	if len(limited) != 2 || limited[0].EventID != "e3" {
		t.Errorf("unexpected limited result: %+v", limited)
	}
}

func TestInsertEventDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedEvent(t, s, "e1", model.BridgeOpen, ts)
	dup := &model.Event{EventID: "e1", SourceDeviceID: "camera_002", BridgeState: model.BridgeClosed, BridgeConfidence: 0.1, Timestamp: ts}
	if err := s.InsertEvent(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	stored, err := s.GetEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if stored.BridgeState != model.BridgeOpen || stored.SourceDeviceID != "camera_001" {
		t.Errorf("stored event was modified: %+v", stored)
	}
}

// ---------------------------------------------------------------------------
// Current state
// ---------------------------------------------------------------------------

func TestCurrentStateEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetCurrentState(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertCurrentStateCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	seedEvent(t, s, "e1", model.BridgeOpen, t1)
	seedEvent(t, s, "e2", model.BridgeClosed, t2)

	first := &model.CurrentState{StateID: "s1", BridgeState: model.BridgeOpen, Timestamp: t1, LastEventID: "e1"}
	if err := s.UpsertCurrentState(ctx, nil, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("Version = %d, want 1", first.Version)
	}

	// A second writer that also saw "no row" must lose.
	racer := &model.CurrentState{StateID: "s-racer", BridgeState: model.BridgeClosed, Timestamp: t2, LastEventID: "e2"}
	if err := s.UpsertCurrentState(ctx, nil, racer); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for concurrent insert, got %v", err)
	}

	prev, err := s.GetCurrentState(ctx)
	if err != nil {
		t.Fatalf("GetCurrentState: %v", err)
	}
	next := &model.CurrentState{StateID: "s2", BridgeState: model.BridgeClosed, Timestamp: t2, LastEventID: "e2"}
	if err := s.UpsertCurrentState(ctx, prev, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.Version != 2 {
		t.Errorf("Version = %d, want 2", next.Version)
	}

	// Writing against the stale snapshot must fail.
	stale := &model.CurrentState{StateID: "s3", BridgeState: model.BridgeOpen, Timestamp: t1, LastEventID: "e1"}
	if err := s.UpsertCurrentState(ctx, prev, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}

	got, err := s.GetCurrentState(ctx)
	if err != nil {
		t.Fatalf("GetCurrentState: %v", err)
	}
	if got.StateID != "s2" || got.LastEventID != "e2" || got.BridgeState != model.BridgeClosed {
		t.Errorf("unexpected state: %+v", got)
	}
	if !got.Timestamp.Equal(t2) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, t2)
	}
}

func TestUpsertCurrentStateRequiresKnownEvent(t *testing.T) {
	s := newTestStore(t)
	st := &model.CurrentState{StateID: "s1", BridgeState: model.BridgeOpen, Timestamp: time.Now(), LastEventID: "missing"}
	if err := s.UpsertCurrentState(context.Background(), nil, st); err == nil {
		t.Fatal("expected foreign key violation for unknown event")
	}
}
