package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testKeyStore(t *testing.T, s KeyStore) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}
	if err := s.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "a", "2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, found, err := s.Get(ctx, "a")
	if err != nil || !found || v != "2" {
		t.Fatalf("Get(a) = %q, %v, %v", v, found, err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, found, _ := s.Get(ctx, "a"); found {
		t.Fatal("key still present after delete")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testKeyStore(t, s)

	s.Close()
	if err := s.Set(context.Background(), "k", "v"); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	testKeyStore(t, s)

	if err := s.Set(context.Background(), "kept", `{"x":1}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, found, _ := reopened.Get(context.Background(), "kept")
	if !found || v != `{"x":1}` {
		t.Fatalf("value not persisted: %q %v", v, found)
	}
}

func TestFileStoreSharedBetweenProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	server, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore(server): %v", err)
	}
	worker, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore(worker): %v", err)
	}

	if err := server.Set(ctx, "expense_tracker_Default", `{"month":"2024-05"}`); err != nil {
		t.Fatalf("server Set: %v", err)
	}
	v, found, err := worker.Get(ctx, "expense_tracker_Default")
	if err != nil || !found || v != `{"month":"2024-05"}` {
		t.Fatalf("worker Get = %q, %v, %v", v, found, err)
	}

	// A write from the second store keeps the first store's keys.
	if err := worker.Set(ctx, "expense_tracker_current_profile", "Default"); err != nil {
		t.Fatalf("worker Set: %v", err)
	}
	if _, found, _ := server.Get(ctx, "expense_tracker_current_profile"); !found {
		t.Fatal("server does not see the worker's write")
	}
	if _, found, _ := worker.Get(ctx, "expense_tracker_Default"); !found {
		t.Fatal("worker write dropped the server's key")
	}

	if err := server.Delete(ctx, "expense_tracker_Default"); err != nil {
		t.Fatalf("server Delete: %v", err)
	}
	if _, found, _ := worker.Get(ctx, "expense_tracker_Default"); found {
		t.Fatal("worker still sees a deleted key")
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected error for corrupt data file")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	testKeyStore(t, s)

	version, dirty, err := SchemaVersion(path)
	if err != nil || dirty || version != 2 {
		t.Fatalf("SchemaVersion = %d, %v, %v", version, dirty, err)
	}

	// Running migrations again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}
}
