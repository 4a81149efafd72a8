package storage

import (
	"errors"
	"sort"
	"testing"

	"github.com/wildfrostsss/Blood-pressure/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestSetAndGet(t *testing.T) {
	s := tempStore(t)
	value := []byte(`[{"systolic":120,"diastolic":80,"pulse":60,"datetime":"2024-03-01T08:00"}]`)
	if err := s.Set("blood_pressure_measurements", value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("blood_pressure_measurements")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("value mismatch: got %q", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := tempStore(t)
	_, err := s.Get("no_such_key")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("blood_pressure_theme", []byte(`"light"`))
	if err := s.Set("blood_pressure_theme", []byte(`"dark"`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("blood_pressure_theme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `"dark"` {
		t.Errorf("value = %q, want %q", got, `"dark"`)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("gone", []byte("bye"))
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op.
	if err := s.Delete("gone"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestKeys(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("blood_pressure_measurements", []byte("[]"))
	_ = s.Set("blood_pressure_theme", []byte(`"light"`))
	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	want := []string{"blood_pressure_measurements", "blood_pressure_theme"}
	if len(keys) != 2 || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	s := tempStore(t)
	for _, key := range []string{"", "a/b", `a\b`, "../escape"} {
		if err := s.Set(key, []byte("x")); err == nil {
			t.Errorf("Set(%q) should fail", key)
		}
		if _, err := s.Get(key); err == nil {
			t.Errorf("Get(%q) should fail", key)
		}
	}
}

func TestNewFSRejectsMissingDir(t *testing.T) {
	if _, err := NewFS("/no/such/dir"); err == nil {
		t.Error("expected error for missing root")
	}
}
