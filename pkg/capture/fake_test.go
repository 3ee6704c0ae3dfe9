package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"gesture-capture/pkg/camera"
	"gesture-capture/pkg/loop"
	"gesture-capture/pkg/types"
)

const ms = time.Millisecond

// fakeOpener hands out fakeHandles and records when each Open happened.
type fakeOpener struct {
	m *loop.Manual

	// errs[i] is returned by the i-th Open; past the end, always is used.
	errs   []error
	always error

	attempts  []time.Duration
	open      int
	maxOpen   int
	stops     int
	failTrack bool
}

func newFakeOpener(m *loop.Manual) *fakeOpener {
	return &fakeOpener{m: m}
}

func (f *fakeOpener) Open(_ context.Context, _ types.Constraints) (camera.Handle, error) {
	i := len(f.attempts)
	f.attempts = append(f.attempts, f.m.Elapsed())

	err := f.always
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}

	f.open++
	if f.open > f.maxOpen {
		f.maxOpen = f.open
	}
	return &fakeHandle{f: f, w: 8, h: 6}, nil
}

type fakeHandle struct {
	f        *fakeOpener
	w, h     int
	released bool
}

func (h *fakeHandle) Size() (int, int) {
	if h.released {
		return 0, 0
	}
	return h.w, h.h
}

func (h *fakeHandle) Snapshot(dst *image.RGBA) error {
	if h.released {
		return camera.ErrNotStarted
	}
	for i := range dst.Pix {
		dst.Pix[i] = 0x7f
	}
	return nil
}

func (h *fakeHandle) Tracks() []camera.Track {
	return []camera.Track{
		camera.NewTrack("stream", func() error {
			h.f.stops++
			if h.f.failTrack {
				return errors.New("stream stuck")
			}
			return nil
		}),
		camera.NewTrack("device", func() error {
			h.f.stops++
			if !h.released {
				h.released = true
				h.f.open--
			}
			return nil
		}),
	}
}

type recorder struct {
	frames []string
}

func (r *recorder) consume(frame string) {
	r.frames = append(r.frames, frame)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Constraints = types.Constraints{Width: 8, Height: 6, Orientation: types.OrientationUser}
	return cfg
}

func newTestSession() (*Session, *loop.Manual, *fakeOpener, *recorder) {
	m := loop.NewManual()
	op := newFakeOpener(m)
	rec := &recorder{}
	return New(m, op, rec.consume, testConfig()), m, op, rec
}
