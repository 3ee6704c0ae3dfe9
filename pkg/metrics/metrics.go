package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gesture_capture"

var (
	AcquireAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acquire_attempts_total",
		Help:      "number of camera open attempts",
	})
	AcquireFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acquire_failures_total",
		Help:      "number of acquisition sequences that exhausted their retries",
	}, []string{"category"})
	ReleaseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "release_failures_total",
		Help:      "number of tracks that failed to stop",
	}, []string{"track"})
	FramesEncoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_encoded_total",
		Help:      "number of frames delivered to the consumer",
	})
	EncodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "encode_failures_total",
		Help:      "number of sampling ticks that failed to snapshot or encode",
	})
	TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_skipped_total",
		Help:      "number of sampling ticks skipped while the source warmed up",
	})
	SessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_state",
		Help:      "1 for the state each session is in",
	}, []string{"session", "state"})
)
