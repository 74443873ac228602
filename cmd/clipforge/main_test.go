package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/testsupport"
)

type passthroughCodec struct{}

func (passthroughCodec) Decode(ctx context.Context, path string, sampleRate, channels int) (*media.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		data = append(data, 0)
	}
	return &media.Buffer{Data: data, SampleRate: sampleRate, Channels: channels}, nil
}

func (passthroughCodec) Encode(ctx context.Context, buf *media.Buffer, path, format string) error {
	return os.WriteFile(path, buf.Data, 0o644)
}

func (passthroughCodec) ApplyGain(buf *media.Buffer, db float64) (*media.Buffer, error) {
	return media.ApplyGainDB(buf, db)
}

func (passthroughCodec) Probe(ctx context.Context, path string) (float64, error) {
	return 2.0, nil
}

func startTestDaemon(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, passthroughCodec{}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d.Addr()
}

func runCommand(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args, "--api", addr))
	err := cmd.Execute()
	return buf.String(), err
}

func writeClip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestUploadAndClipsCommands(t *testing.T) {
	addr := startTestDaemon(t)
	dir := t.TempDir()
	a := writeClip(t, dir, "intro.mp3", "aaaa")
	b := writeClip(t, dir, "outro.mp3", "bbbb")

	out, err := runCommand(t, addr, "upload", a, b)
	if err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}
	if !strings.Contains(out, "intro.mp3: uploaded as #1") {
		t.Fatalf("upload output: %s", out)
	}

	out, err = runCommand(t, addr, "clips")
	if err != nil {
		t.Fatalf("clips: %v\n%s", err, out)
	}
	if !strings.Contains(out, "intro") || !strings.Contains(out, "outro") {
		t.Fatalf("clips output: %s", out)
	}
}

func TestUploadReportsDuplicates(t *testing.T) {
	addr := startTestDaemon(t)
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp3", "same")
	b := writeClip(t, dir, "b.mp3", "same")

	if out, err := runCommand(t, addr, "upload", a); err != nil {
		t.Fatalf("upload a: %v\n%s", err, out)
	}
	out, err := runCommand(t, addr, "upload", b)
	if err != nil {
		t.Fatalf("upload b: %v\n%s", err, out)
	}
	if !strings.Contains(out, "duplicate") {
		t.Fatalf("duplicate not reported: %s", out)
	}
}

func TestMergeWaitCommand(t *testing.T) {
	addr := startTestDaemon(t)
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp3", "1111")
	b := writeClip(t, dir, "b.mp3", "2222")
	if out, err := runCommand(t, addr, "upload", a, b); err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}

	client := newAPIClient(normalizeBase(addr))
	clips, err := client.ListClips()
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	ids := []string{clips[0].ID, clips[1].ID}

	out, err := runCommand(t, addr, append([]string{"merge", "--name", "mix", "--wait"}, ids...)...)
	if err != nil {
		t.Fatalf("merge: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Merge queued") || !strings.Contains(out, "Completed: mix") {
		t.Fatalf("merge output: %s", out)
	}

	out, err = runCommand(t, addr, "merged")
	if err != nil {
		t.Fatalf("merged: %v\n%s", err, out)
	}
	if !strings.Contains(out, "mix") {
		t.Fatalf("merged output: %s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	addr := startTestDaemon(t)
	out, err := runCommand(t, addr, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Running:      yes") {
		t.Fatalf("status output: %s", out)
	}
}

func TestCancelUnknownTaskFails(t *testing.T) {
	addr := startTestDaemon(t)
	if _, err := runCommand(t, addr, "cancel", "no-such-task"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestClearCommand(t *testing.T) {
	addr := startTestDaemon(t)
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp3", "abcd")
	if out, err := runCommand(t, addr, "upload", a); err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}

	out, err := runCommand(t, addr, "clear")
	if err != nil {
		t.Fatalf("clear: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Removed 1 items") {
		t.Fatalf("clear output: %s", out)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v\n%s", err, buf.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
