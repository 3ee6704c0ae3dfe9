package capture

import (
	"time"

	"gesture-capture/pkg/camera"
	"gesture-capture/pkg/metrics"
)

// acquire starts a new acquisition sequence.
func (s *Session) acquire(gen uint64) {
	s.retryCount = 0
	s.lastErr = nil
	s.attempt(gen)
}

func (s *Session) attempt(gen uint64) {
	if !s.current(gen) {
		return
	}
	if s.opening {
		s.logger.Debug("previous open still in flight, waiting for it")
		s.deferred = func() { s.attempt(gen) }
		return
	}

	s.retryCount++
	n := s.retryCount
	s.opening = true
	metrics.AcquireAttempts.Inc()
	s.logger.Infof("open attempt %d/%d %s", n, s.cfg.MaxAttempts, s.cfg.Constraints)

	var (
		h   camera.Handle
		err error
	)
	ctx, constraints := s.ctx, s.cfg.Constraints
	s.sched.Go(func() {
		h, err = s.opener.Open(ctx, constraints)
	}, func() {
		s.opened(gen, n, h, err)
	})
}

func (s *Session) opened(gen uint64, n int, h camera.Handle, err error) {
	if !s.mounted {
		if h != nil {
			s.release(h)
		}
		return
	}
	s.opening = false

	if !s.current(gen) {
		if h != nil {
			s.logger.Info("open resolved after the session moved on, releasing")
			s.release(h)
		}
		s.runDeferred()
		return
	}

	if err == nil {
		s.streaming(h)
		return
	}

	s.logger.Warnf("open attempt %d/%d failed: %s", n, s.cfg.MaxAttempts, err)
	if n >= s.cfg.MaxAttempts {
		s.fail(err)
		return
	}
	backoff := time.Duration(n) * s.cfg.BackoffStep
	s.after(gen, backoff, func() { s.attempt(gen) })
}

func (s *Session) runDeferred() {
	if s.deferred == nil {
		return
	}
	next := s.deferred
	s.deferred = nil
	next()
}

func (s *Session) streaming(h camera.Handle) {
	s.handle = h
	s.retryCount = 0
	s.transition(evSucceed)
	s.logger.Info("streaming")

	s.sampler.Start(s.cfg.SamplePeriod, h, s.deliver)
}

func (s *Session) deliver(frame string) {
	if !s.mounted || s.handle == nil {
		return
	}
	s.consumer(frame)
}

func (s *Session) fail(err error) {
	s.lastErr = newError(err, s.cfg.Locale)
	s.transition(evFail)
	metrics.AcquireFailures.WithLabelValues(string(s.lastErr.Category)).Inc()
	s.logger.Errorf("acquisition failed after %d attempts: %s", s.retryCount, s.lastErr)
}

func (s *Session) retryFromFailed() bool {
	if !s.mounted || s.state() != Failed {
		s.logger.Debugf("retry ignored in %s", s.state())
		return false
	}
	s.transition(evRetry)
	s.generation++
	s.acquire(s.generation)
	return true
}
