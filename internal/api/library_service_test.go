package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
)

// stubProbe satisfies media.Codec for upload tests; only Probe is used.
type stubProbe struct {
	duration float64
	err      error
}

func (p stubProbe) Probe(ctx context.Context, path string) (float64, error) {
	return p.duration, p.err
}

func (p stubProbe) Decode(ctx context.Context, path string, sampleRate, channels int) (*media.Buffer, error) {
	return nil, errors.New("not implemented")
}

func (p stubProbe) Encode(ctx context.Context, buf *media.Buffer, path, format string) error {
	return errors.New("not implemented")
}

func (p stubProbe) ApplyGain(buf *media.Buffer, db float64) (*media.Buffer, error) {
	return nil, errors.New("not implemented")
}

func newService(t *testing.T, probe stubProbe) (*LibraryService, func() int) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewLibraryService(cfg, store, probe, logging.NewNop())
	countFiles := func() int {
		entries, err := os.ReadDir(cfg.Paths.UploadDir)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		return len(entries)
	}
	return svc, countFiles
}

func TestUploadStoresClipWithHashAndOrder(t *testing.T) {
	svc, countFiles := newService(t, stubProbe{duration: 12.5})

	res, err := svc.Upload(context.Background(), "intro.mp3", bytes.NewReader([]byte("clip-content")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.IsDuplicate {
		t.Fatal("first upload flagged duplicate")
	}
	if res.Item.Order != 1 {
		t.Fatalf("order = %d, want 1", res.Item.Order)
	}
	if res.Item.DisplayName != "intro" {
		t.Fatalf("display name = %q", res.Item.DisplayName)
	}
	if res.Item.DurationSeconds != 12.5 {
		t.Fatalf("duration = %v", res.Item.DurationSeconds)
	}
	if res.Item.ContentHash == "" {
		t.Fatal("content hash not recorded")
	}
	if countFiles() != 1 {
		t.Fatalf("upload dir holds %d files, want 1", countFiles())
	}
}

func TestUploadDeduplicatesByContent(t *testing.T) {
	svc, countFiles := newService(t, stubProbe{})

	first, err := svc.Upload(context.Background(), "a.mp3", bytes.NewReader([]byte("same-bytes")))
	if err != nil {
		t.Fatalf("Upload a: %v", err)
	}
	second, err := svc.Upload(context.Background(), "b.mp3", bytes.NewReader([]byte("same-bytes")))
	if err != nil {
		t.Fatalf("Upload b: %v", err)
	}
	if !second.IsDuplicate {
		t.Fatal("identical content not flagged duplicate")
	}
	if second.Item.ID != first.Item.ID {
		t.Fatal("duplicate should return the existing record")
	}
	if second.UploadedName != "b.mp3" {
		t.Fatalf("uploaded name = %q", second.UploadedName)
	}
	if countFiles() != 1 {
		t.Fatalf("duplicate left %d files on disk, want 1", countFiles())
	}
}

func TestConcurrentUploadsShareOneRecord(t *testing.T) {
	svc, countFiles := newService(t, stubProbe{})

	const uploaders = 4
	start := make(chan struct{})
	results := make(chan *UploadResult, uploaders)
	errs := make(chan error, uploaders)
	var wg sync.WaitGroup
	for i := 0; i < uploaders; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			<-start
			res, err := svc.Upload(context.Background(), name, bytes.NewReader([]byte("same-bytes")))
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}(fmt.Sprintf("clip-%d.mp3", i))
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("Upload: %v", err)
	}
	winners := 0
	ids := make(map[string]struct{})
	for res := range results {
		if !res.IsDuplicate {
			winners++
		}
		ids[res.Item.ID] = struct{}{}
	}
	if winners != 1 {
		t.Fatalf("%d uploads created a record, want exactly 1", winners)
	}
	if len(ids) != 1 {
		t.Fatalf("uploads resolved to %d distinct items, want 1", len(ids))
	}

	clips, err := svc.ListClips(context.Background())
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("library holds %d clips, want 1", len(clips))
	}
	if countFiles() != 1 {
		t.Fatalf("upload dir holds %d files, want 1", countFiles())
	}
}

func TestUploadProbeFailureIsNotFatal(t *testing.T) {
	svc, _ := newService(t, stubProbe{err: errors.New("ffprobe missing")})

	res, err := svc.Upload(context.Background(), "clip.mp3", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Item.DurationSeconds != 0 {
		t.Fatalf("duration = %v, want 0 on probe failure", res.Item.DurationSeconds)
	}
}

func TestUploadRejectsEmptyFilename(t *testing.T) {
	svc, _ := newService(t, stubProbe{})
	if _, err := svc.Upload(context.Background(), "  ", bytes.NewReader(nil)); !services.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRenameValidatesDisplayName(t *testing.T) {
	svc, _ := newService(t, stubProbe{})
	if _, err := svc.Rename(context.Background(), "id", "   ", false); !services.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveMissingBackingFile(t *testing.T) {
	svc, _ := newService(t, stubProbe{})
	res, err := svc.Upload(context.Background(), "clip.mp3", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := os.Remove(res.Item.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), res.Item.ID); !services.IsNotFound(err) {
		t.Fatalf("expected not found for missing file, got %v", err)
	}
}
