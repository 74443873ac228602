package daemon

import (
	"context"
	"testing"
)

func TestStartTwiceFails(t *testing.T) {
	d, _ := startDaemon(t)
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d, _ := startDaemon(t)
	d.Stop()
	d.Stop()
	if d.running.Load() {
		t.Fatal("daemon still reports running after Stop")
	}
}

func TestStatusReflectsLibrary(t *testing.T) {
	d, base := startDaemon(t)
	uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("a")})

	status := d.Status(context.Background())
	if status.ClipCount != 1 {
		t.Fatalf("clip count = %d, want 1", status.ClipCount)
	}
	if status.MergedCount != 0 {
		t.Fatalf("merged count = %d, want 0", status.MergedCount)
	}
}
