package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store Load = %v, want ErrNotFound", err)
	}

	p := sampleProfile()
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != p {
		t.Errorf("Load = %+v, want %+v", got, p)
	}

	// Cleared fields must not survive a later save.
	p.Experience = ""
	p.Phone = "555-0100"
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != p {
		t.Errorf("after overwrite Load = %+v, want %+v", got, p)
	}

	if err := s.Save(ctx, Profile{}); err != nil {
		t.Fatalf("saving empty profile: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after clearing = %v, want ErrNotFound", err)
	}
}

func TestFileStore(t *testing.T) {
	storeContract(t, NewFileStore(filepath.Join(t.TempDir(), "nested", "profile.json")))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Load(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "profile.json"))
	if err := s.Save(context.Background(), sampleProfile()); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "profile.json" {
		t.Errorf("unexpected files: %v", entries)
	}
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "resumedraft:profile")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := setupTestRedis(t)
	storeContract(t, s)
}

func TestRedisStore_HashLayout(t *testing.T) {
	s, mr := setupTestRedis(t)
	if err := s.Save(context.Background(), Profile{Name: "Jane", Skills: "Go"}); err != nil {
		t.Fatal(err)
	}
	if got := mr.HGet("resumedraft:profile", "name"); got != "Jane" {
		t.Errorf("name field = %q", got)
	}
	keys, err := mr.HKeys("resumedraft:profile")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("hash keys = %v", keys)
	}
}

func TestRedisStore_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore("redis://"+mr.Addr(), "k")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisStore(addr, "k"); err == nil {
		t.Fatal("expected connection error")
	}
}
