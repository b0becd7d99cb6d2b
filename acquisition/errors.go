/*
NAME
  errors.go

DESCRIPTION
  errors.go defines the typed error taxonomy raised and propagated by the
  acquisition state machine and loop: transport failures, invalid state
  transitions, device-rejected configuration, decode failures, sink write
  failures, and external cancellation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acquisition

import "fmt"

// TransportError wraps a failure to open, read, or write a byte or
// control transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidStateTransitionError reports a refused transition: the state
// machine was not in an acceptable state for the requested operation.
type InvalidStateTransitionError struct {
	From      State
	Operation string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s not permitted from %s", e.Operation, e.From)
}

// AlreadyConnectedError is returned by Connect when the state machine is
// not disconnected.
type AlreadyConnectedError struct {
	Current State
}

func (e *AlreadyConnectedError) Error() string {
	return fmt.Sprintf("already connected: current state is %s", e.Current)
}

// ConfigurationError reports that the device rejected a configuration
// command: its acknowledgement line contained "Error".
type ConfigurationError struct {
	Command string
	Reply   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("device rejected command %q: %s", e.Command, e.Reply)
}

// DecodeError reports a malformed frame or TLV payload. It is internal
// and non-fatal: callers count it and move on.
type DecodeError struct {
	Context string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (%s): %v", e.Context, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SinkWriteError reports that a recording sink rejected a write. It is
// internal and non-fatal.
type SinkWriteError struct {
	Err error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink write error: %v", e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// CancelledError reports that the acquisition loop was cancelled
// externally rather than having failed.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "acquisition loop cancelled" }
