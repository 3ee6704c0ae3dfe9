//go:build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"gesture-capture/pkg/types"
)

func init() {
	Register("gocv", NewGocv)
}

// Gocv opens cameras through OpenCV. Device is a capture index ("0") or a
// path OpenCV understands.
type Gocv struct {
	opts Options
}

func NewGocv(opts Options) (Opener, error) {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	return &Gocv{opts: opts}, nil
}

func (g *Gocv) Open(ctx context.Context, c types.Constraints) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var device interface{} = g.opts.DevicePath(c.Orientation)
	if idx, err := strconv.Atoi(device.(string)); err == nil {
		device = idx
	}

	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, WrapOpenError(fmt.Errorf("failed to open camera %v: %w", device, err))
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("%w: camera %v is not open", ErrNotFound, device)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	webcam.Set(gocv.VideoCaptureFPS, float64(g.opts.FPS))

	return &gocvHandle{
		webcam: webcam,
		frame:  gocv.NewMat(),
		width:  int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		height: int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

type gocvHandle struct {
	mu     sync.Mutex
	webcam *gocv.VideoCapture
	frame  gocv.Mat
	width  int
	height int
	warm   bool
}

// Size stays 0x0 until the first frame has been read.
func (h *gocvHandle) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.webcam == nil {
		return 0, 0
	}
	if !h.warm {
		if !h.webcam.Read(&h.frame) || h.frame.Empty() {
			return 0, 0
		}
		h.warm = true
		h.width, h.height = h.frame.Cols(), h.frame.Rows()
	}
	return h.width, h.height
}

func (h *gocvHandle) Snapshot(dst *image.RGBA) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.webcam == nil {
		return ErrNotStarted
	}
	if !h.webcam.Read(&h.frame) || h.frame.Empty() {
		return errors.New("frame is empty")
	}
	img, err := h.frame.ToImage()
	if err != nil {
		return err
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	return nil
}

func (h *gocvHandle) Tracks() []Track {
	return []Track{
		NewTrack("capture", func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.webcam == nil {
				return nil
			}
			err := h.webcam.Close()
			h.webcam = nil
			return err
		}),
		NewTrack("mat", func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.frame.Close()
		}),
	}
}
