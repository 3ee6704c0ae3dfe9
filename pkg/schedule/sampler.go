// Package schedule samples an open camera on a fixed period.
package schedule

import (
	"bytes"
	"image"
	"time"

	"go.uber.org/zap"

	"gesture-capture/pkg/loop"
	"gesture-capture/pkg/metrics"
	"gesture-capture/pkg/utils"
	imgutil "gesture-capture/pkg/utils/image"
)

const (
	DefaultPeriod  = 200 * time.Millisecond
	DefaultQuality = 90
)

// Source is the live side of an open camera handle.
type Source interface {
	Size() (width, height int)
	Snapshot(dst *image.RGBA) error
}

// Sampler is the periodic frame job. It must only be used from its scheduler.
type Sampler struct {
	sched   loop.Scheduler
	quality int
	logger  *zap.SugaredLogger

	t   loop.Timer
	buf *image.RGBA
	jpg bytes.Buffer
}

func New(sched loop.Scheduler, quality int) *Sampler {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Sampler{
		sched:   sched,
		quality: quality,
		logger:  utils.GetLogger().Named("sampler"),
	}
}

// Start begins sampling src every period. A running job is replaced.
func (s *Sampler) Start(period time.Duration, src Source, consumer func(frame string)) {
	s.Stop()
	if period <= 0 {
		period = DefaultPeriod
	}
	s.logger.Debugf("start sampling every %s", period)
	s.t = s.sched.Every(period, func() {
		s.tick(src, consumer)
	})
}

// Stop cancels the job. It is safe to call when nothing is running, and no
// consumer call happens after it returns.
func (s *Sampler) Stop() {
	if s.t == nil {
		return
	}
	s.t.Stop()
	s.t = nil
	s.buf = nil
	s.logger.Debug("sampling stopped")
}

func (s *Sampler) Running() bool {
	return s.t != nil
}

func (s *Sampler) tick(src Source, consumer func(frame string)) {
	w, h := src.Size()
	if w <= 0 || h <= 0 {
		// still warming up
		metrics.TicksSkipped.Inc()
		return
	}
	if s.buf == nil || s.buf.Rect.Dx() != w || s.buf.Rect.Dy() != h {
		s.buf = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	if err := src.Snapshot(s.buf); err != nil {
		metrics.EncodeFailures.Inc()
		s.logger.Warnf("snapshot %d*%d: %s", w, h, err)
		return
	}
	frame, err := imgutil.EncodeDataURL(s.buf, s.quality, &s.jpg)
	if err != nil {
		metrics.EncodeFailures.Inc()
		s.logger.Warnf("encode %d*%d: %s", w, h, err)
		return
	}

	metrics.FramesEncoded.Inc()
	consumer(frame)
}
