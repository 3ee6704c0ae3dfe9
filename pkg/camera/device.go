//go:build linux

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"gesture-capture/pkg/types"
	imgutil "gesture-capture/pkg/utils/image"
)

// streamStopWait 取消上下文后等待底层流 goroutine 走到 ctx.Done 并调用 d.Stop()，
// 避免随后 Close() 与其并发执行。
const streamStopWait = 100 * time.Millisecond

var ErrUnsupportedFormat = errors.New("unsupported pixel format")

func init() {
	Register("v4l2", NewV4L2)
}

// V4L2 opens cameras through go4vl.
type V4L2 struct {
	opts   Options
	format v4l2.FourCCType
}

func NewV4L2(opts Options) (Opener, error) {
	format, err := pixelFormat(opts.PixelFormat)
	if err != nil {
		return nil, err
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1
	}

	return &V4L2{opts: opts, format: format}, nil
}

func pixelFormat(name string) (v4l2.FourCCType, error) {
	switch strings.ToLower(name) {
	case "", "mjpeg":
		return v4l2.PixelFmtMJPEG, nil
	case "jpeg":
		return v4l2.PixelFmtJPEG, nil
	case "rgb24":
		return v4l2.PixelFmtRGB24, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

func (v *V4L2) Open(ctx context.Context, c types.Constraints) (Handle, error) {
	devName := v.opts.DevicePath(c.Orientation)
	logger.Infof("open %s in %d*%d", devName, c.Width, c.Height)

	dev, err := device.Open(
		devName,
		device.WithBufferSize(uint32(v.opts.BufferSize)),
		device.WithFPS(uint32(v.opts.FPS)),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v.format,
			Width:       uint32(c.Width),
			Height:      uint32(c.Height),
			Field:       v4l2.FieldNone,
		}),
	)
	if err != nil {
		return nil, WrapOpenError(err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	if err = dev.Start(streamCtx); err != nil {
		cancel()
		_ = dev.Close()
		return nil, WrapOpenError(err)
	}

	applySettings(dev, v.opts.Settings)

	// 驱动可能不接受请求的分辨率，以实际格式为准
	pix, err := dev.GetPixFormat()
	if err != nil {
		cancel()
		_ = dev.Close()
		return nil, fmt.Errorf("get pix format: %w", err)
	}

	h := &v4l2Handle{
		dev:    dev,
		cancel: cancel,
		format: pix.PixelFormat,
		width:  int(pix.Width),
		height: int(pix.Height),
		done:   make(chan struct{}),
	}
	go h.drain(streamCtx, dev.GetOutput())

	return h, nil
}

type v4l2Handle struct {
	dev    *device.Device
	cancel context.CancelFunc
	format v4l2.FourCCType
	width  int
	height int
	done   chan struct{}

	mu     sync.Mutex
	latest []byte
}

// drain 只保留最新一帧；消费者按自己的节奏取样，不会积压。
func (h *v4l2Handle) drain(ctx context.Context, frames <-chan []byte) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if len(frame) == 0 {
				continue
			}
			h.mu.Lock()
			h.latest = append(h.latest[:0], frame...)
			h.mu.Unlock()
		}
	}
}

func (h *v4l2Handle) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.latest) == 0 {
		return 0, 0
	}
	return h.width, h.height
}

func (h *v4l2Handle) Snapshot(dst *image.RGBA) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.latest) == 0 {
		return ErrNotStarted
	}

	switch h.format {
	case v4l2.PixelFmtMJPEG, v4l2.PixelFmtJPEG:
		return imgutil.DecodeJPEGInto(h.latest, dst)
	case v4l2.PixelFmtRGB24:
		return imgutil.RGBToRGBA(h.latest, dst.Pix, h.width, h.height)
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.format)
}

func (h *v4l2Handle) Tracks() []Track {
	return []Track{
		NewTrack("stream", h.stopStream),
		NewTrack("device", h.dev.Close),
	}
}

func (h *v4l2Handle) stopStream() error {
	// 先取消上下文，让底层流处理 goroutine 走到 ctx.Done 分支并调用 d.Stop()
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(streamStopWait):
		return errors.New("frame drain did not exit")
	}
	time.Sleep(streamStopWait)

	return nil
}
