package offline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_AssetChangeInstallsNewVersion(t *testing.T) {
	dir, assets := testAssets(t)
	store := testStore(t)
	logger := quietLogger()

	mgr := NewManager(store, assets, testManifest(""),
		WithLogger(logger), WithAutoActivate(true))
	first, err := mgr.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = Watch(ctx, mgr, dir, logger)
	}()

	// Give the watcher a moment to register before mutating.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "script.js"), []byte("console.log('v2')"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return mgr.CurrentBucket() != first && mgr.State() == StateActive
	}, "watcher did not install+activate a new version after asset change")
}

func TestWatcher_WaitsForApprovalWithoutAutoActivate(t *testing.T) {
	dir, assets := testAssets(t)
	store := testStore(t)
	logger := quietLogger()

	updates := make(chan string, 1)
	mgr := NewManager(store, assets, testManifest(""),
		WithLogger(logger),
		WithUpdateCallback(func(bucket string) { updates <- bucket }))
	first, err := mgr.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = Watch(ctx, mgr, dir, logger)
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{color:red}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case bucket := <-updates:
		if bucket == first {
			t.Errorf("update callback fired with the old bucket %q", bucket)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("update callback never fired")
	}

	// Old version keeps serving until the explicit signal.
	if mgr.CurrentBucket() != first {
		t.Errorf("current = %q, want %q until skip-waiting", mgr.CurrentBucket(), first)
	}
}
