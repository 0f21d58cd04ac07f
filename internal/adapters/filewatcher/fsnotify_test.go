package filewatcher

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

var quietLogger = log.New(io.Discard, "", 0)

func TestFSNotifyWatcher_Creation(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(quietLogger)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()
}

func TestFSNotifyWatcher_ModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	os.WriteFile(path, []byte("v1"), 0644)

	watcher, _ := NewFSNotifyWatcher(quietLogger)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := watcher.WatchFile(ctx, path)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("v2"), 0644)
	}()

	select {
	case event := <-events:
		if event.Path != path {
			t.Errorf("unexpected path %s", event.Path)
		}
		if event.Operation != ports.FileModified && event.Operation != ports.FileCreated {
			t.Errorf("expected write event, got %v", event.Operation)
		}
	case <-ctx.Done():
		t.Error("timeout waiting for event")
	}
}

func TestFSNotifyWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	os.WriteFile(path, []byte("v1"), 0644)

	watcher, _ := NewFSNotifyWatcher(quietLogger)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	events, _ := watcher.WatchFile(ctx, path)

	// Sibling file in the same directory
	os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644)

	select {
	case <-events:
		t.Error("should not receive event for a sibling file")
	case <-time.After(300 * time.Millisecond):
		// Expected - no event
	}
}

func TestFSNotifyWatcher_MissingDirectory(t *testing.T) {
	watcher, _ := NewFSNotifyWatcher(quietLogger)
	defer watcher.Stop()

	if _, err := watcher.WatchFile(context.Background(), "/nonexistent/dir/doc.pdf"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFSNotifyWatcher_ClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	watcher, _ := NewFSNotifyWatcher(quietLogger)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := watcher.WatchFile(ctx, filepath.Join(dir, "doc.txt"))
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after cancel")
	}
}

func TestOperation(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want ports.FileOperation
		ok   bool
	}{
		{fsnotify.Create, ports.FileCreated, true},
		{fsnotify.Write, ports.FileModified, true},
		{fsnotify.Remove, ports.FileDeleted, true},
		{fsnotify.Rename, ports.FileDeleted, true},
		{fsnotify.Chmod, 0, false},
	}
	for _, tt := range tests {
		got, ok := operation(tt.op)
		if ok != tt.ok || got != tt.want {
			t.Errorf("operation(%v) = %v, %v; want %v, %v", tt.op, got, ok, tt.want, tt.ok)
		}
	}
}
