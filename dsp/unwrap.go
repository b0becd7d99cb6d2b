/*
NAME
  unwrap.go

DESCRIPTION
  unwrap.go implements phase unwrapping: removing 2*pi discontinuities
  from a wrapped phase stream to recover a continuous signal, sample by
  sample.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dsp

import "math"

// Unwrapper maintains the running state needed to unwrap a stream of
// phase samples one at a time.
type Unwrapper struct {
	lastPhase float64
	offset    float64
	set       bool
}

// NewUnwrapper returns a fresh Unwrapper.
func NewUnwrapper() *Unwrapper { return &Unwrapper{} }

// Unwrap consumes the next wrapped phase sample, in radians, and returns
// the continuous output.
func (u *Unwrapper) Unwrap(x float64) float64 {
	if !u.set {
		u.lastPhase = x
		u.set = true
		return x + u.offset
	}

	delta := x - u.lastPhase
	switch {
	case delta > math.Pi:
		u.offset -= 2 * math.Pi
	case delta < -math.Pi:
		u.offset += 2 * math.Pi
	}
	u.lastPhase = x

	return x + u.offset
}

// Reset clears the unwrapper's state.
func (u *Unwrapper) Reset() {
	u.lastPhase = 0
	u.offset = 0
	u.set = false
}
