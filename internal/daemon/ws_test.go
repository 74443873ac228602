package daemon

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"clipforge/internal/api"
	"clipforge/internal/events"
)

func TestWebSocketStreamsMergeEvents(t *testing.T) {
	d, base := startDaemon(t)

	wsURL := "ws://" + d.Addr() + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	// Give the subscriber time to register before events start flowing.
	deadline := time.Now().Add(time.Second)
	for d.hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	a := uploadFiles(t, base, map[string][]byte{"a.mp3": []byte("1111")})
	b := uploadFiles(t, base, map[string][]byte{"b.mp3": []byte("2222")})
	resp := postJSON(t, base+"/api/merge", api.MergeRequest{
		FileIDs:    []string{a.Files[0].ID, b.Files[0].ID},
		OutputName: "streamed",
	})
	var ack api.MergeResponse
	decodeBody(t, resp.Body, &ack)
	resp.Body.Close()

	sawProgress := false
	for {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var frame api.JobEvent
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.TaskID != ack.TaskID {
			continue
		}
		switch frame.Type {
		case string(events.TypeProgress):
			sawProgress = true
		case string(events.TypeCompleted):
			if !sawProgress {
				t.Fatal("completion arrived before any progress frame")
			}
			if frame.File == nil || frame.File.DisplayName != "streamed" {
				t.Fatalf("completion frame missing file: %+v", frame)
			}
			return
		case string(events.TypeFailed):
			t.Fatalf("merge failed: %s", frame.Message)
		}
	}
}
