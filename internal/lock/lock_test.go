package lock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raven.lock")
	h, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected lock file removed after release")
	}
}

func TestAcquireFailsImmediatelyWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raven.lock")
	h, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	_, err = Acquire(path)
	if err == nil {
		t.Fatal("expected second Acquire to fail")
	}
	if _, ok := err.(*LockedError); !ok {
		t.Fatalf("expected *LockedError, got %T: %v", err, err)
	}
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raven.lock")
	// Simulate a lock file left behind by a pid that cannot possibly be
	// alive: pid 1 owned by init is alive on real systems, so instead use
	// a very large pid unlikely to be assigned, which FindProcess accepts
	// on Unix without an existence check, and Signal(0) reports ESRCH.
	if err := os.WriteFile(path, []byte("2020-01-01T00:00:00Z 999999"), 0644); err != nil {
		t.Fatal(err)
	}

	h, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire should reclaim stale lock, got: %v", err)
	}
	h.Release()
}
