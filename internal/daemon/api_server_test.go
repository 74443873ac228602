package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media"
	"clipforge/internal/testsupport"
)

// fakeCodec keeps HTTP tests independent of ffmpeg. Decode returns the raw
// file bytes as PCM and Encode writes them back out.
type fakeCodec struct {
	mu       sync.Mutex
	duration float64
}

func (f *fakeCodec) Decode(ctx context.Context, path string, sampleRate, channels int) (*media.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		data = append(data, 0)
	}
	return &media.Buffer{Data: data, SampleRate: sampleRate, Channels: channels}, nil
}

func (f *fakeCodec) Encode(ctx context.Context, buf *media.Buffer, path, format string) error {
	return os.WriteFile(path, buf.Data, 0o644)
}

func (f *fakeCodec) ApplyGain(buf *media.Buffer, db float64) (*media.Buffer, error) {
	return media.ApplyGainDB(buf, db)
}

func (f *fakeCodec) Probe(ctx context.Context, path string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration, nil
}

func startDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, store, &fakeCodec{duration: 3.5}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.Addr()
}

func uploadFiles(t *testing.T, base string, names map[string][]byte) api.UploadListResponse {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range names {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	resp, err := http.Post(base+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status %d: %s", resp.StatusCode, payload)
	}
	var out api.UploadListResponse
	decodeBody(t, resp.Body, &out)
	return out
}

func decodeBody(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func doRequest(t *testing.T, method, url string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func listClips(t *testing.T, base string) []api.Item {
	t.Helper()
	resp, err := http.Get(base + "/api/audio")
	if err != nil {
		t.Fatalf("GET /api/audio: %v", err)
	}
	defer resp.Body.Close()
	var out api.ListResponse
	decodeBody(t, resp.Body, &out)
	return out.Files
}

func TestUploadListRenameDelete(t *testing.T) {
	_, base := startDaemon(t)

	uploaded := uploadFiles(t, base, map[string][]byte{"intro.mp3": []byte("aaaa")})
	if len(uploaded.Files) != 1 || uploaded.Files[0].IsDuplicate {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}
	id := uploaded.Files[0].ID

	clips := listClips(t, base)
	if len(clips) != 1 || clips[0].Order != 1 || clips[0].DurationSeconds != 3.5 {
		t.Fatalf("unexpected listing: %+v", clips)
	}

	resp := doRequest(t, http.MethodPut, base+"/api/audio/"+id, api.RenameRequest{DisplayName: "opening"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename status %d", resp.StatusCode)
	}
	var renamed api.Item
	decodeBody(t, resp.Body, &renamed)
	if renamed.DisplayName != "opening" {
		t.Fatalf("rename did not apply: %+v", renamed)
	}

	del := doRequest(t, http.MethodDelete, base+"/api/audio/"+id, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", del.StatusCode)
	}
	if clips := listClips(t, base); len(clips) != 0 {
		t.Fatalf("clips remain after delete: %+v", clips)
	}
}

func TestUploadDuplicateContent(t *testing.T) {
	_, base := startDaemon(t)

	first := uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("same")})
	second := uploadFiles(t, base, map[string][]byte{"b.mp3": []byte("same")})
	if !second.Files[0].IsDuplicate {
		t.Fatal("duplicate content not flagged")
	}
	if second.Files[0].ID != first.Files[0].ID {
		t.Fatal("duplicate did not return existing record")
	}
	if clips := listClips(t, base); len(clips) != 1 {
		t.Fatalf("expected a single clip, got %d", len(clips))
	}
}

func TestRenameUnknownClipReturns404(t *testing.T) {
	_, base := startDaemon(t)
	resp := doRequest(t, http.MethodPut, base+"/api/audio/nope", api.RenameRequest{DisplayName: "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestReorderEndpoint(t *testing.T) {
	_, base := startDaemon(t)
	uploaded := uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("a1")})
	uploadedB := uploadFiles(t, base, map[string][]byte{"b.mp3": []byte("b2")})
	idA := uploaded.Files[0].ID
	idB := uploadedB.Files[0].ID

	resp := postJSON(t, base+"/api/reorder", api.ReorderRequest{FileIDs: []string{idB, idA}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		t.Fatalf("reorder status %d: %s", resp.StatusCode, payload)
	}
	var out api.ListResponse
	decodeBody(t, resp.Body, &out)
	if out.Files[0].ID != idB || out.Files[0].Order != 1 {
		t.Fatalf("reorder not applied: %+v", out.Files)
	}

	bad := postJSON(t, base+"/api/reorder", api.ReorderRequest{FileIDs: []string{idA}})
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("partial reorder status %d, want 400", bad.StatusCode)
	}
}

func TestMergeLifecycleOverHTTP(t *testing.T) {
	_, base := startDaemon(t)
	a := uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("1111")})
	b := uploadFiles(t, base, map[string][]byte{"b.mp3": []byte("2222")})

	resp := postJSON(t, base+"/api/merge", api.MergeRequest{
		FileIDs:    []string{a.Files[0].ID, b.Files[0].ID},
		OutputName: "combined",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		payload, _ := io.ReadAll(resp.Body)
		t.Fatalf("merge status %d: %s", resp.StatusCode, payload)
	}
	var ack api.MergeResponse
	decodeBody(t, resp.Body, &ack)
	if ack.Status != string(jobs.StatusProcessing) || ack.TotalFiles != 2 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	status := pollTask(t, base, ack.TaskID)
	if status.Status != string(jobs.StatusCompleted) {
		t.Fatalf("job finished %q (%s)", status.Status, status.Error)
	}
	if status.File == nil || status.File.DisplayName != "combined" {
		t.Fatalf("completed status has no file: %+v", status)
	}

	procResp, err := http.Get(base + "/api/processed")
	if err != nil {
		t.Fatalf("GET /api/processed: %v", err)
	}
	defer procResp.Body.Close()
	var processed api.ListResponse
	decodeBody(t, procResp.Body, &processed)
	if len(processed.Files) != 1 || !processed.Files[0].Merged {
		t.Fatalf("processed listing: %+v", processed.Files)
	}

	dl, err := http.Get(base + "/api/download/" + status.File.ID)
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status %d", dl.StatusCode)
	}
	payload, _ := io.ReadAll(dl.Body)
	if string(payload) != "11112222" {
		t.Fatalf("downloaded content %q", payload)
	}
}

func pollTask(t *testing.T, base, taskID string) api.TaskStatusResponse {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp := postJSON(t, base+"/api/check-processing-status", api.TaskRequest{TaskID: taskID})
		var status api.TaskStatusResponse
		decodeBody(t, resp.Body, &status)
		resp.Body.Close()
		switch status.Status {
		case string(jobs.StatusCompleted), string(jobs.StatusFailed), string(jobs.StatusCancelled):
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s never finished: %+v", taskID, status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCancelUnknownTaskReturns404(t *testing.T) {
	_, base := startDaemon(t)
	resp := postJSON(t, base+"/api/cancel-processing", api.TaskRequest{TaskID: "missing"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestMergeUnknownClipReturns404(t *testing.T) {
	_, base := startDaemon(t)
	resp := postJSON(t, base+"/api/merge", api.MergeRequest{FileIDs: []string{"ghost"}, OutputName: "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestMergeHonorsClientRequestID(t *testing.T) {
	_, base := startDaemon(t)
	a := uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("1111")})

	resp := postJSON(t, base+"/api/merge", api.MergeRequest{
		RequestID:  "client-track-1",
		FileIDs:    []string{a.Files[0].ID},
		OutputName: "named",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("merge status %d", resp.StatusCode)
	}
	var ack api.MergeResponse
	decodeBody(t, resp.Body, &ack)
	if ack.TaskID != "client-track-1" {
		t.Fatalf("task id = %q, want client-track-1", ack.TaskID)
	}
	if job := pollTask(t, base, "client-track-1"); job.Status != "completed" {
		t.Fatalf("status = %q (%s)", job.Status, job.Error)
	}
}

func TestRootBanner(t *testing.T) {
	_, base := startDaemon(t)

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	var banner map[string]string
	decodeBody(t, resp.Body, &banner)
	if banner["service"] != "clipforge" {
		t.Fatalf("unexpected banner: %+v", banner)
	}
}

func TestStatusEndpoint(t *testing.T) {
	d, base := startDaemon(t)

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	var status api.DaemonStatus
	decodeBody(t, resp.Body, &status)
	if !status.Running {
		t.Fatal("daemon reports not running")
	}
	if status.WorkerCount != d.cfg.Merge.Workers {
		t.Fatalf("worker count %d", status.WorkerCount)
	}
	if status.LibraryDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("paths missing: %+v", status)
	}
}

func TestDeleteAllClips(t *testing.T) {
	_, base := startDaemon(t)
	uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("a"), "b.mp3": []byte("b")})

	resp := doRequest(t, http.MethodDelete, base+"/api/audio/all", nil)
	defer resp.Body.Close()
	var out api.DeleteAllResponse
	decodeBody(t, resp.Body, &out)
	if out.Deleted != 2 {
		t.Fatalf("deleted %d, want 2", out.Deleted)
	}

	// A fresh upload restarts the order sequence at 1.
	again := uploadFiles(t, base, map[string][]byte{"c.mp3": []byte("c")})
	if again.Files[0].Order != 1 {
		t.Fatalf("order after clear = %d, want 1", again.Files[0].Order)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	d, _ := startDaemon(t)

	second, err := New(d.cfg, d.store, &fakeCodec{}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon instance acquired the lock")
	}
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	_, base := startDaemon(t)
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("unrelated", "value")
	_ = writer.Close()

	resp, err := http.Post(base+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}
