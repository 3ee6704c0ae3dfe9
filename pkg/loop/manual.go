package loop

import "time"

// Manual is a virtual-time Scheduler. Nothing happens until Advance is called,
// and every callback runs on the calling goroutine. It is not safe for
// concurrent use.
type Manual struct {
	epoch   time.Time
	now     time.Duration
	seq     int
	timers  []*manualTimer
	latency time.Duration
}

type manualTimer struct {
	at      time.Duration
	period  time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() {
	t.stopped = true
}

func NewManual() *Manual {
	return &Manual{epoch: time.Unix(0, 0)}
}

func (m *Manual) Now() time.Time {
	return m.epoch.Add(m.now)
}

// SetWorkLatency delays the done continuation of Go by d of virtual time.
func (m *Manual) SetWorkLatency(d time.Duration) {
	m.latency = d
}

// Elapsed is the virtual time since NewManual.
func (m *Manual) Elapsed() time.Duration {
	return m.now
}

// Pending counts timers that can still fire.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) add(d, period time.Duration, fn func()) *manualTimer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{at: m.now + d, period: period, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)

	return t
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		panic("loop: non-positive period")
	}
	return m.add(d, d, fn)
}

func (m *Manual) Go(work func(), done func()) {
	work()
	if m.latency > 0 {
		m.add(m.latency, 0, done)
		return
	}
	done()
}

func (m *Manual) Do(fn func()) {
	fn()
}

// Advance moves virtual time forward by d, firing due timers in order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.next(target)
		if t == nil {
			break
		}
		m.now = t.at
		if t.period > 0 {
			t.at += t.period
			m.seq++
			t.seq = m.seq
		} else {
			t.stopped = true
		}
		t.fn()
	}
	m.now = target
	m.compact()
}

func (m *Manual) next(target time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.stopped || t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = live
}
