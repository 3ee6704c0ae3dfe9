package schedule

import (
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"gesture-capture/pkg/loop"
	imgutil "gesture-capture/pkg/utils/image"
)

type fakeSource struct {
	w, h      int
	snapErr   error
	snapshots int
}

func (f *fakeSource) Size() (int, int) { return f.w, f.h }

func (f *fakeSource) Snapshot(dst *image.RGBA) error {
	f.snapshots++
	if f.snapErr != nil {
		return f.snapErr
	}
	for i := range dst.Pix {
		dst.Pix[i] = byte(i)
	}
	return nil
}

type frames []string

func (f *frames) consume(frame string) { *f = append(*f, frame) }

func TestSamplerTicks(t *testing.T) {
	m := loop.NewManual()
	s := New(m, 90)
	src := &fakeSource{w: 16, h: 8}
	var got frames

	s.Start(200*time.Millisecond, src, got.consume)
	m.Advance(600 * time.Millisecond)

	if len(got) != 3 {
		t.Fatalf("consumer called %d times, want 3", len(got))
	}
	for _, f := range got {
		if !strings.HasPrefix(f, imgutil.DataURLPrefix) || len(f) == len(imgutil.DataURLPrefix) {
			t.Fatalf("bad frame %.40q", f)
		}
	}
	img, err := imgutil.DecodeDataURL(got[0])
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("frame bounds = %v", img.Bounds())
	}
}

func TestSamplerSkipsWarmup(t *testing.T) {
	m := loop.NewManual()
	s := New(m, 0)
	src := &fakeSource{}
	var got frames

	s.Start(200*time.Millisecond, src, got.consume)
	m.Advance(1000 * time.Millisecond)
	if len(got) != 0 || src.snapshots != 0 {
		t.Fatalf("warming source sampled: frames=%d snapshots=%d", len(got), src.snapshots)
	}

	src.w, src.h = 4, 4
	m.Advance(200 * time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("frames after warmup = %d", len(got))
	}
}

func TestSamplerEncodeFailureKeepsRunning(t *testing.T) {
	m := loop.NewManual()
	s := New(m, 90)
	src := &fakeSource{w: 4, h: 4, snapErr: errors.New("torn frame")}
	var got frames

	s.Start(200*time.Millisecond, src, got.consume)
	m.Advance(400 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("consumer saw %d frames from a failing source", len(got))
	}
	if !s.Running() {
		t.Fatal("sampler stopped after encode failure")
	}

	src.snapErr = nil
	m.Advance(200 * time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("frames after recovery = %d", len(got))
	}
}

func TestSamplerStop(t *testing.T) {
	m := loop.NewManual()
	s := New(m, 90)
	src := &fakeSource{w: 4, h: 4}
	var got frames

	s.Stop()
	s.Start(200*time.Millisecond, src, got.consume)
	m.Advance(200 * time.Millisecond)
	s.Stop()
	s.Stop()
	m.Advance(2 * time.Second)

	if len(got) != 1 {
		t.Fatalf("frames = %d, want 1", len(got))
	}
	if s.Running() {
		t.Fatal("still running")
	}
	if m.Pending() != 0 {
		t.Fatalf("pending timers = %d", m.Pending())
	}
}

func TestSamplerResizesBuffer(t *testing.T) {
	m := loop.NewManual()
	s := New(m, 90)
	src := &fakeSource{w: 4, h: 4}
	var got frames

	s.Start(100*time.Millisecond, src, got.consume)
	m.Advance(100 * time.Millisecond)
	first := s.buf
	m.Advance(100 * time.Millisecond)
	if s.buf != first {
		t.Fatal("buffer reallocated with unchanged dimensions")
	}
	src.w = 8
	m.Advance(100 * time.Millisecond)
	if s.buf.Rect.Dx() != 8 {
		t.Fatalf("buffer width = %d", s.buf.Rect.Dx())
	}
}
