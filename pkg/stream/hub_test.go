package stream

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestHubLatest(t *testing.T) {
	h := NewHub()
	if _, ok := h.Latest(); ok {
		t.Fatal("latest frame on an empty hub")
	}
	h.Publish("a")
	h.Publish("b")
	f, ok := h.Latest()
	if !ok || f.Data != "b" || f.Seq != 2 {
		t.Fatalf("latest = %+v", f)
	}
	h.Reset()
	if _, ok := h.Latest(); ok {
		t.Fatal("latest survived reset")
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Publish("first")
	h.Publish("second")

	var f Frame
	if err := json.Unmarshal(<-ch, &f); err != nil {
		t.Fatal(err)
	}
	if f.Data != "first" {
		t.Fatalf("data = %q", f.Data)
	}
	select {
	case msg := <-ch:
		t.Fatalf("backlog delivered: %s", msg)
	default:
	}
}

func TestHubCancel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open")
	}
	h.Publish("x")
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	h.Close()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after close")
	}
	cancel()

	late, _ := h.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatal("subscribed to a closed hub")
	}
	h.Publish("x")
}
