package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func setupTestBolt(t *testing.T) (*Bolt, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state", "veloxcase.db")
	db, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt() error: %v", err)
	}
	return db, path
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, err := s.Get(KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(KeyToken, "abc"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := s.Get(KeyToken)
	if err != nil || got != "abc" {
		t.Fatalf("Get() = %q, %v; want abc", got, err)
	}

	if err := s.Set(KeyToken, "def"); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}
	if got, _ := s.Get(KeyToken); got != "def" {
		t.Errorf("Get() after overwrite = %q, want def", got)
	}

	if err := s.Delete(KeyToken); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(KeyToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(KeyToken); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestBolt(t *testing.T) {
	db, _ := setupTestBolt(t)
	defer func() { _ = db.Close() }()
	exerciseStore(t, db)
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	db, path := setupTestBolt(t)
	if err := db.Set(KeyTheme, "dark"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt() reopen error: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(KeyTheme)
	if err != nil || got != "dark" {
		t.Errorf("Get() after reopen = %q, %v; want dark", got, err)
	}
}
