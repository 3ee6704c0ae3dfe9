// Package capture owns the lifecycle of one camera capture session: acquiring
// the device with bounded retries, sampling frames while streaming, and
// releasing everything on deactivate or teardown.
//
// A Session only mutates its state from callbacks run by its loop.Scheduler.
// The exported methods hop onto that scheduler and return once the request
// has been applied. The consumer is called from the scheduler too; it must not
// block or call back into the session synchronously.
package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gesture-capture/pkg/camera"
	"gesture-capture/pkg/loop"
	"gesture-capture/pkg/metrics"
	"gesture-capture/pkg/schedule"
	"gesture-capture/pkg/types"
	"gesture-capture/pkg/utils"
)

// Consumer receives each encoded frame as a JPEG data URL.
type Consumer func(frame string)

type Config struct {
	Constraints types.Constraints

	// SettleDelay absorbs activate/deactivate churn before opening.
	SettleDelay time.Duration
	// GraceDelay separates a release from the next open of the same device.
	GraceDelay  time.Duration
	BackoffStep time.Duration
	MaxAttempts int

	SamplePeriod time.Duration
	Quality      int
	Locale       string
}

func DefaultConfig() Config {
	return Config{
		Constraints:  types.Constraints{Width: 640, Height: 480, Orientation: types.OrientationUser},
		SettleDelay:  300 * time.Millisecond,
		GraceDelay:   200 * time.Millisecond,
		BackoffStep:  500 * time.Millisecond,
		MaxAttempts:  3,
		SamplePeriod: schedule.DefaultPeriod,
		Quality:      schedule.DefaultQuality,
		Locale:       DefaultLocale,
	}
}

type Status struct {
	ID         string `json:"id"`
	State      State  `json:"state"`
	RetryCount int    `json:"retryCount"`
	Mounted    bool   `json:"mounted"`
	Streaming  bool   `json:"streaming"`
	Error      *Error `json:"error,omitempty"`
}

type Session struct {
	id       string
	cfg      Config
	sched    loop.Scheduler
	opener   camera.Opener
	consumer Consumer
	logger   *zap.SugaredLogger

	machine *fsm.FSM
	sampler *schedule.Sampler
	handle  camera.Handle

	retryCount int
	mounted    bool
	lastErr    *Error

	// generation is bumped by every activate, retry and deactivate; a
	// continuation carrying an older value is stale and does nothing.
	generation uint64
	pending    loop.Timer

	// opening is set while an Open call is in flight. Another attempt waits
	// in deferred until it resolves, so two handles never coexist.
	opening  bool
	deferred func()

	// releasedAt is when a handle was last released; the device gets the
	// grace delay from then before it is opened again.
	releasedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func New(sched loop.Scheduler, opener camera.Opener, consumer Consumer, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.SamplePeriod <= 0 {
		cfg.SamplePeriod = def.SamplePeriod
	}
	if cfg.Locale == "" {
		cfg.Locale = def.Locale
	}
	if consumer == nil {
		consumer = func(string) {}
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		cfg:      cfg,
		sched:    sched,
		opener:   opener,
		consumer: consumer,
		logger:   utils.GetLogger().Named("capture").With("session", id),
		machine:  newMachine(id),
		sampler:  schedule.New(sched, cfg.Quality),
		mounted:  true,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Activate (re)starts acquisition after the settle delay. A live session is
// deactivated first and the new acquisition also waits the grace delay.
func (s *Session) Activate() {
	s.sched.Do(s.activate)
}

// Deactivate stops sampling and releases the device. It is idempotent.
func (s *Session) Deactivate() {
	s.sched.Do(s.deactivate)
}

// RetryFromFailed restarts acquisition from Failed and reports whether it
// did. Other states ignore it.
func (s *Session) RetryFromFailed() bool {
	var ok bool
	s.sched.Do(func() { ok = s.retryFromFailed() })
	return ok
}

// Teardown deactivates and unmounts the session. Later calls do nothing.
func (s *Session) Teardown() {
	s.sched.Do(s.teardown)
}

func (s *Session) Status() Status {
	var st Status
	s.sched.Do(func() {
		st = Status{
			ID:         s.id,
			State:      s.state(),
			RetryCount: s.retryCount,
			Mounted:    s.mounted,
			Streaming:  s.sampler.Running(),
			Error:      s.lastErr,
		}
	})
	return st
}

func (s *Session) activate() {
	if !s.mounted {
		return
	}

	var grace time.Duration
	switch s.state() {
	case Streaming, Acquiring:
		s.deactivate()
		grace = s.cfg.GraceDelay
	case Failed:
		s.deactivate()
	}
	if grace == 0 && !s.releasedAt.IsZero() {
		// a recent Deactivate still owes the device the rest of its grace
		if rest := s.cfg.GraceDelay - s.sched.Now().Sub(s.releasedAt); rest > 0 {
			grace = rest
		}
	}

	s.transition(evActivate)
	s.generation++
	gen := s.generation
	s.logger.Infof("activate: grace %s, settle %s", grace, s.cfg.SettleDelay)

	if grace > 0 {
		s.after(gen, grace, func() { s.settle(gen) })
		return
	}
	s.settle(gen)
}

func (s *Session) settle(gen uint64) {
	s.after(gen, s.cfg.SettleDelay, func() { s.acquire(gen) })
}

// after schedules fn as the session's single pending continuation. fn runs
// only if the session is still mounted and gen is still current.
func (s *Session) after(gen uint64, d time.Duration, fn func()) {
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = s.sched.AfterFunc(d, func() {
		if !s.current(gen) {
			return
		}
		s.pending = nil
		fn()
	})
}

func (s *Session) current(gen uint64) bool {
	return s.mounted && gen == s.generation
}

func (s *Session) deactivate() {
	s.generation++
	s.deferred = nil
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}

	// the sampler must stop before the handle it reads from is released
	s.sampler.Stop()
	if s.handle != nil {
		h := s.handle
		s.handle = nil
		s.release(h)
	}
	s.lastErr = nil

	if s.state() != Stopped {
		s.logger.Infof("deactivate from %s", s.state())
	}
	s.transition(evDeactivate)
}

// release stops every track of h, continuing past failures.
func (s *Session) release(h camera.Handle) {
	defer func() { s.releasedAt = s.sched.Now() }()
	var errs error
	for _, tr := range h.Tracks() {
		if err := tr.Stop(); err != nil {
			metrics.ReleaseFailures.WithLabelValues(tr.Name()).Inc()
			s.logger.Warnf("%s: stop track %s: %s", ReleaseFailure, tr.Name(), err)
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		s.logger.Warnf("released with %d failed tracks", len(multierr.Errors(errs)))
		return
	}
	s.logger.Debug("device released")
}

func (s *Session) teardown() {
	if !s.mounted {
		return
	}
	s.deactivate()
	s.transition(evTeardown)
	s.cancel()
	s.mounted = false
	forgetMetrics(s.id)
	s.logger.Info("teardown")
}
