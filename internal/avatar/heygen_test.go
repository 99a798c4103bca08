package avatar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T, handler func(path string, body map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		status, resp := handler(r.URL.Path, body)
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
}

func TestSessionLifecycle(t *testing.T) {
	var started, spoke, stopped bool
	ts := testServer(t, func(path string, body map[string]any) (int, string) {
		switch path {
		case "/streaming.new":
			if body["avatar_name"] != "rabbi_avatar" || body["quality"] != "high" {
				t.Errorf("new session request: %v", body)
			}
			return 200, `{"code": 100, "data": {"session_id": "sess-1", "sdp": {"type": "offer"}}}`
		case "/streaming.start":
			started = body["session_id"] == "sess-1"
			return 200, `{"code": 100}`
		case "/streaming.task":
			spoke = body["session_id"] == "sess-1" && body["text"] == "La joie est le remède."
			return 200, `{"code": 100}`
		case "/streaming.stop":
			stopped = body["session_id"] == "sess-1"
			return 200, `{"code": 100}`
		}
		return 404, `{}`
	})
	defer ts.Close()

	c := NewClient("test-key", "rabbi_avatar", "voice-1", "high")
	c.baseURL = ts.URL

	ctx := context.Background()
	session, err := c.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if session.ID != "sess-1" || len(session.SDP) == 0 {
		t.Errorf("session: %+v", session)
	}

	if err := c.Start(ctx, session.ID, json.RawMessage(`{"type":"answer"}`)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Speak(ctx, session.ID, "La joie est le remède."); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if err := c.Stop(ctx, session.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if !started || !spoke || !stopped {
		t.Errorf("lifecycle calls: started=%v spoke=%v stopped=%v", started, spoke, stopped)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	ts := testServer(t, func(path string, _ map[string]any) (int, string) {
		return 200, `{"code": 400101, "message": "avatar not found"}`
	})
	defer ts.Close()

	c := NewClient("test-key", "missing", "", "")
	c.baseURL = ts.URL

	if _, err := c.NewSession(context.Background()); err == nil {
		t.Fatal("expected API error")
	}
}
