package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestWatchFileRerunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, newLogger(io.Discard, log.InfoLevel), path, func() error {
			calls.Add(1)
			changed <- struct{}{}
			return nil
		})
	}()

	waitFor := func(what string) {
		t.Helper()
		select {
		case <-changed:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	waitFor("initial run")

	// A sibling file must not trigger a run.
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"rects": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor("run after write")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchFile returned %v after cancel, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
	if n := calls.Load(); n < 2 {
		t.Errorf("onChange called %d times, want at least 2", n)
	}
}

func TestWatchFileMissingDir(t *testing.T) {
	err := watchFile(context.Background(), newLogger(io.Discard, log.InfoLevel), "/does/not/exist/m.json", func() error { return nil })
	if err == nil {
		t.Fatal("expected an error watching a missing directory")
	}
}
