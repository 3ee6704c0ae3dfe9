package camera

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"gesture-capture/pkg/types"
)

func init() {
	Register("pattern", NewPattern)
}

// Pattern is a synthetic driver that renders a moving gradient. It lets the
// service and the probe run on hosts without a camera.
type Pattern struct {
	// WarmupFrames is the number of Size calls that report 0x0 after open.
	WarmupFrames int
}

func NewPattern(Options) (Opener, error) {
	return &Pattern{WarmupFrames: 1}, nil
}

func (p *Pattern) Open(ctx context.Context, c types.Constraints) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := c.Width, c.Height
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}
	logger.Infof("open pattern in %d*%d", w, h)

	return &patternHandle{width: w, height: h, warmup: int32(p.WarmupFrames)}, nil
}

type patternHandle struct {
	width, height int
	warmup        int32
	frame         atomic.Int32
	closeOnce     sync.Once
	closed        atomic.Bool
}

func (h *patternHandle) Size() (int, int) {
	if h.closed.Load() {
		return 0, 0
	}
	if atomic.AddInt32(&h.warmup, -1) >= 0 {
		return 0, 0
	}
	return h.width, h.height
}

func (h *patternHandle) Snapshot(dst *image.RGBA) error {
	if h.closed.Load() {
		return ErrNotStarted
	}
	shift := int(h.frame.Add(1)) * 4
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			i := x * 4
			row[i] = byte(x + shift)
			row[i+1] = byte(y)
			row[i+2] = byte(x + y - shift)
			row[i+3] = 0xff
		}
	}

	return nil
}

func (h *patternHandle) Tracks() []Track {
	return []Track{NewTrack("pattern", func() error {
		h.closeOnce.Do(func() { h.closed.Store(true) })
		return nil
	})}
}
