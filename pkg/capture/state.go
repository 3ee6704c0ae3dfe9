package capture

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"gesture-capture/pkg/metrics"
)

type State string

const (
	Idle      State = "Idle"
	Acquiring State = "Acquiring"
	Streaming State = "Streaming"
	Failed    State = "Failed"
	Stopped   State = "Stopped"
)

var states = []State{Idle, Acquiring, Streaming, Failed, Stopped}

const (
	evActivate   = "activate"
	evSucceed    = "succeed"
	evFail       = "fail"
	evDeactivate = "deactivate"
	evRetry      = "retry"
	evTeardown   = "teardown"
)

func newMachine(id string) *fsm.FSM {
	all := []string{string(Idle), string(Acquiring), string(Streaming), string(Failed), string(Stopped)}
	m := fsm.NewFSM(
		string(Idle),
		fsm.Events{
			{Name: evActivate, Src: []string{string(Idle), string(Stopped)}, Dst: string(Acquiring)},
			{Name: evSucceed, Src: []string{string(Acquiring)}, Dst: string(Streaming)},
			{Name: evFail, Src: []string{string(Acquiring)}, Dst: string(Failed)},
			{Name: evDeactivate, Src: all, Dst: string(Stopped)},
			{Name: evRetry, Src: []string{string(Failed)}, Dst: string(Acquiring)},
			{Name: evTeardown, Src: all, Dst: string(Stopped)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				metrics.SessionState.WithLabelValues(id, e.Src).Set(0)
				metrics.SessionState.WithLabelValues(id, e.Dst).Set(1)
			},
		},
	)
	metrics.SessionState.WithLabelValues(id, string(Idle)).Set(1)

	return m
}

// transition fires event; firing into the current state is not an error.
func (s *Session) transition(event string) {
	err := s.machine.Event(context.Background(), event)
	if err == nil {
		return
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return
	}
	s.logger.Errorf("%s from %s: %s", event, s.machine.Current(), err)
}

func (s *Session) state() State {
	return State(s.machine.Current())
}

// forgetMetrics drops the per-session gauge series after teardown.
func forgetMetrics(id string) {
	for _, st := range states {
		metrics.SessionState.DeleteLabelValues(id, string(st))
	}
}
