package ov

import (
	"github.com/dustin/go-humanize"

	"gesture-capture/pkg/capture"
	"gesture-capture/pkg/stream"
)

// Session is the status payload rendered to the dashboard.
type Session struct {
	capture.Status

	Frames    uint64 `json:"frames"`
	LastFrame string `json:"lastFrame,omitempty"`
}

func NewSession(st capture.Status, hub *stream.Hub) Session {
	s := Session{Status: st}
	if f, ok := hub.Latest(); ok {
		s.Frames = f.Seq
		s.LastFrame = humanize.Time(f.At)
	}
	return s
}

type Frame struct {
	Seq  uint64 `json:"seq"`
	Age  string `json:"age"`
	Data string `json:"data"`
}

func NewFrame(f stream.Frame) Frame {
	return Frame{
		Seq:  f.Seq,
		Age:  humanize.Time(f.At),
		Data: f.Data,
	}
}
