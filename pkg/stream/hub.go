// Package stream fans encoded frames out to dashboard subscribers.
package stream

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Frame is the message pushed to subscribers.
type Frame struct {
	Seq  uint64    `json:"seq"`
	At   time.Time `json:"at"`
	Data string    `json:"data"`
}

// Hub keeps the latest frame and forwards every new one to subscribers
// without blocking: a subscriber that is still busy misses the frame.
type Hub struct {
	mu     sync.RWMutex
	seq    uint64
	latest *Frame
	subs   map[chan []byte]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// Publish is a capture.Consumer.
func (h *Hub) Publish(data string) {
	h.mu.Lock()
	h.seq++
	f := &Frame{Seq: h.seq, At: time.Now(), Data: data}
	h.latest = f
	subs := make([]chan []byte, 0, len(h.subs))
	for ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	msg, err := json.Marshal(f)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range subs {
		if _, ok := h.subs[ch]; !ok {
			continue
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

// Latest returns the most recent frame, if any.
func (h *Hub) Latest() (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return Frame{}, false
	}
	return *h.latest, true
}

// Reset forgets the latest frame, e.g. once the session stopped.
func (h *Hub) Reset() {
	h.mu.Lock()
	h.latest = nil
	h.mu.Unlock()
}

// Subscribe returns a channel of JSON encoded Frames and its cancel func.
func (h *Hub) Subscribe(buf int) (<-chan []byte, func()) {
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan []byte, buf)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close ends every subscription. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
