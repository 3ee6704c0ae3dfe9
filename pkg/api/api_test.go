package api

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"gesture-capture/pkg/capture"
	"gesture-capture/pkg/stream"
)

type fakeController struct {
	mu    sync.Mutex
	state capture.State
	calls []string
}

func (f *fakeController) record(call string, next capture.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.state = next
}

func (f *fakeController) Activate()        { f.record("activate", capture.Acquiring) }
func (f *fakeController) Deactivate()      { f.record("deactivate", capture.Stopped) }
func (f *fakeController) RetryFromFailed() bool {
	f.mu.Lock()
	failed := f.state == capture.Failed
	f.mu.Unlock()
	if !failed {
		return false
	}
	f.record("retry", capture.Acquiring)
	return true
}

func (f *fakeController) Status() capture.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return capture.Status{ID: "test", State: f.state, Mounted: true}
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestServer() (*gin.Engine, *fakeController, *stream.Hub) {
	gin.SetMode(gin.TestMode)
	ctrl := &fakeController{state: capture.Idle}
	hub := stream.NewHub()
	return New(ctrl, hub).Router(nil), ctrl, hub
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestActivateDeactivate(t *testing.T) {
	r, ctrl, hub := newTestServer()

	w := do(r, http.MethodPost, "/api/session/activate")
	if w.Code != http.StatusOK {
		t.Fatalf("activate: %d %s", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), `"state":"Acquiring"`) {
		t.Fatalf("activate body: %s", w.Body)
	}

	hub.Publish("data:image/jpeg;base64,AAAA")
	w = do(r, http.MethodPost, "/api/session/deactivate")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"state":"Stopped"`) {
		t.Fatalf("deactivate: %d %s", w.Code, w.Body)
	}
	if _, ok := hub.Latest(); ok {
		t.Fatal("latest frame kept after deactivate")
	}

	calls := ctrl.Calls()
	if len(calls) != 2 || calls[0] != "activate" || calls[1] != "deactivate" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRetryRequiresFailed(t *testing.T) {
	r, ctrl, _ := newTestServer()

	w := do(r, http.MethodPost, "/api/session/retry")
	if w.Code != http.StatusConflict {
		t.Fatalf("retry from Idle: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Idle") {
		t.Fatalf("retry from Idle: %s", w.Body)
	}
	if len(ctrl.Calls()) != 0 {
		t.Fatalf("calls = %v", ctrl.Calls())
	}

	ctrl.record("fail", capture.Failed)
	w = do(r, http.MethodPost, "/api/session/retry")
	if w.Code != http.StatusOK {
		t.Fatalf("retry from Failed: %d %s", w.Code, w.Body)
	}
	if calls := ctrl.Calls(); calls[len(calls)-1] != "retry" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestLatestFrame(t *testing.T) {
	r, _, hub := newTestServer()

	if w := do(r, http.MethodGet, "/api/session/frame"); w.Code != http.StatusNotFound {
		t.Fatalf("empty hub: %d", w.Code)
	}
	hub.Publish("data:image/jpeg;base64,AAAA")
	w := do(r, http.MethodGet, "/api/session/frame")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "base64,AAAA") {
		t.Fatalf("frame: %d %s", w.Code, w.Body)
	}
}

func TestStatusAndMetrics(t *testing.T) {
	r, _, _ := newTestServer()

	w := do(r, http.MethodGet, "/api/session")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"test"`) {
		t.Fatalf("status: %d %s", w.Code, w.Body)
	}
	if w := do(r, http.MethodGet, "/metrics"); w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("no route: %d", w.Code)
	}
}

func TestWebsocketFrames(t *testing.T) {
	r, _, hub := newTestServer()
	srv := httptest.NewServer(r)
	defer srv.Close()

	hub.Publish("data:image/jpeg;base64,AAAA")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/session/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var f stream.Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		t.Fatal(err)
	}
	if f.Seq != 1 || f.Data != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("frame = %+v", f)
	}

	hub.Close()
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection still open after hub close")
	}
}

func TestVideoStream(t *testing.T) {
	r, _, hub := newTestServer()
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/session/video")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("video handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// "\xff\xd8\xff" is a JPEG SOI marker
	hub.Publish("data:image/jpeg;base64,/9j/")

	part, err := multipart.NewReader(resp.Body, params["boundary"]).NextPart()
	if err != nil {
		t.Fatal(err)
	}
	if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("part content type = %s", ct)
	}
	body, err := io.ReadAll(io.LimitReader(part, 3))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "\xff\xd8\xff" {
		t.Fatalf("part = %x", body)
	}
}
