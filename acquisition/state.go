/*
NAME
  state.go

DESCRIPTION
  state.go implements the acquisition device's state machine: a small,
  strictly constrained lifecycle guarded by a mutual-exclusion primitive,
  with synchronous, isolated observer notification on every accepted
  transition.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acquisition

import "github.com/ausocean/utils/logging"

// State is one of the device's lifecycle states.
type State int

const (
	Disconnected State = iota
	Connecting
	Configuring
	Streaming
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Configuring:
		return "configuring"
	case Streaming:
		return "streaming"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// allowedTransitions enumerates every state that may be entered directly
// from a given state. A transition absent from this table is refused.
var allowedTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Configuring, Error, Disconnected},
	Configuring:  {Streaming, Error, Disconnected},
	Streaming:    {Disconnected, Error},
	Error:        {Disconnected},
}

func transitionAllowed(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Observer is notified synchronously on every accepted state transition.
// It must not block; panics raised by an observer are isolated and
// logged, and do not affect the transition or other observers.
type Observer func(from, to State, reason string)

// state returns the current state under the guard.
func (d *Device) state() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// transition attempts to move the device from its current state to to,
// for the named reason. It refuses and returns an error for any
// transition absent from allowedTransitions; on success, it mutates
// state and notifies observers before releasing the guard.
func (d *Device) transition(to State, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	from := d.current
	if !transitionAllowed(from, to) {
		d.logger.Warning("refused invalid state transition", "from", from.String(), "to", to.String())
		return &InvalidStateTransitionError{From: from, Operation: to.String()}
	}

	d.current = to
	d.logger.Info("state transition", "from", from.String(), "to", to.String(), "reason", reason)

	for _, obs := range d.observers {
		notify(obs, from, to, reason, d.logger)
	}
	return nil
}

// notify invokes obs, recovering and logging any panic so that one
// misbehaving observer cannot corrupt the transition or block others.
func notify(obs Observer, from, to State, reason string, logger logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state observer panicked", "panic", r)
		}
	}()
	obs(from, to, reason)
}

// OnStateChange registers an observer invoked on every accepted
// transition. Observers are invoked in registration order, from within
// the guarded section.
func (d *Device) OnStateChange(obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, obs)
}

// State returns the device's current lifecycle state.
func (d *Device) State() State {
	return d.state()
}
