package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning handler to an fsm.Callback. A returned
// error is stored on the event and returned from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsRealError reports whether err from FSM.Event is a failure rather than a
// self transition or a transition cancelled by a callback.
func IsRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError

	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return false
	}

	return true
}

// EnterState returns the callback key fired on entering state.
func EnterState(state string) string {
	return "enter_" + state
}

// BeforeEvent returns the callback key fired before event.
func BeforeEvent(event string) string {
	return "before_" + event
}
