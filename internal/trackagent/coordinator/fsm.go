package coordinator

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/geotrack/internal/pkg/util/fsm"
	"github.com/autopeer-io/geotrack/pkg/log"
)

// Session states.
const (
	StateIdle           = "idle"
	StateAuthenticating = "authenticating"
	StateActive         = "active"
	StateStopping       = "stopping"
)

// Session events.
const (
	EventAuthenticate = "authenticate"
	EventActivate     = "activate"
	EventFail         = "fail"
	EventStop         = "stop"
	EventStopped      = "stopped"
	EventHalted       = "halted"
)

var allStates = []string{StateIdle, StateAuthenticating, StateActive, StateStopping}

func (c *Coordinator) newFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventAuthenticate, Src: []string{StateIdle}, Dst: StateAuthenticating},
			{Name: EventActivate, Src: []string{StateAuthenticating}, Dst: StateActive},
			{Name: EventFail, Src: []string{StateAuthenticating}, Dst: StateIdle},
			{Name: EventStop, Src: []string{StateActive}, Dst: StateStopping},
			{Name: EventStopped, Src: []string{StateStopping}, Dst: StateIdle},
			{Name: EventHalted, Src: []string{StateStopping}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				metrics.SetSessionState(e.Dst, allStates)
				log.Debug("Session state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
			fsmutil.EnterState(StateActive): fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				return c.persistActive(true)
			}),
			fsmutil.EnterState(StateIdle): fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				if e.Event == EventFail || e.Event == EventHalted {
					return nil
				}
				return c.persistActive(false)
			}),
		},
	)
}

// transition fires event, logging persistence failures reported by callbacks.
func (c *Coordinator) transition(event string) {
	if err := c.fsm.Event(context.Background(), event); fsmutil.IsRealError(err) {
		log.Error(err, "Session transition reported an error", "event", event, "state", c.fsm.Current())
	}
}

func (c *Coordinator) persistActive(active bool) error {
	if c.flags == nil {
		return nil
	}
	return c.flags.SetTrackingActive(active)
}
