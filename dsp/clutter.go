/*
NAME
  clutter.go

DESCRIPTION
  clutter.go implements the closed set of clutter-removal variants applied
  to a range profile before target detection: pass-through, exponential
  background subtraction, and a moving-target-indicator tap filter.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dsp provides the low-level numeric primitives shared by the
// processing pipeline and vital-signs extractors: clutter removal, phase
// unwrapping, and zero-phase bandpass filtering.
package dsp

// Clutter removes static background from a range profile. It is a closed
// set of three variants; a tagged interface is preferable here to a trait
// hierarchy since no external variant is ever added.
type Clutter interface {
	// Apply returns the filtered profile. The returned slice is always the
	// same length as x; Apply must not retain x.
	Apply(x []float32) []float32

	// Reset clears any internal state, returning the filter to its
	// just-constructed condition.
	Reset()
}

// NoneClutter is the identity variant: it returns its input unchanged.
type NoneClutter struct{}

func NewNoneClutter() *NoneClutter { return &NoneClutter{} }

func (c *NoneClutter) Apply(x []float32) []float32 { return x }

func (c *NoneClutter) Reset() {}

// DefaultEMAAlpha and DefaultEMAWarmup are the exponential-background
// clutter filter's defaults.
const (
	DefaultEMAAlpha  = 0.1
	DefaultEMAWarmup = 10
)

// EMAClutter maintains an exponentially-weighted running background and
// subtracts it from each incoming profile once warmed up.
type EMAClutter struct {
	alpha  float32
	warmup int

	background []float32
	frames     int
}

// NewEMAClutter returns an EMAClutter with the given decay constant and
// warm-up length in frames.
func NewEMAClutter(alpha float32, warmup int) *EMAClutter {
	return &EMAClutter{alpha: alpha, warmup: warmup}
}

// NewDefaultEMAClutter returns an EMAClutter configured with default decay
// and warm-up values.
func NewDefaultEMAClutter() *EMAClutter {
	return NewEMAClutter(DefaultEMAAlpha, DefaultEMAWarmup)
}

func (c *EMAClutter) Apply(x []float32) []float32 {
	if c.background == nil {
		c.background = append([]float32(nil), x...)
	} else {
		for i := range x {
			c.background[i] = c.alpha*x[i] + (1-c.alpha)*c.background[i]
		}
	}
	c.frames++

	if c.frames <= c.warmup {
		return x
	}

	out := make([]float32, len(x))
	for i := range x {
		out[i] = x[i] - c.background[i]
	}
	return out
}

func (c *EMAClutter) Reset() {
	c.background = nil
	c.frames = 0
}

// DefaultMTITaps and DefaultMTIWeights are the moving-target-indicator
// clutter filter's defaults: a first-difference filter.
var (
	DefaultMTITaps    = 2
	DefaultMTIWeights = []float32{1, -1}
)

// MTIClutter is an N-tap weighted difference filter over the last N
// frames. Until the tap history is full, it returns a zero vector shaped
// like the input.
type MTIClutter struct {
	weights []float32
	history [][]float32 // Oldest first; length grows to len(weights).
}

// NewMTIClutter returns an MTIClutter with the given per-tap weights,
// applied oldest-frame-first.
func NewMTIClutter(weights []float32) *MTIClutter {
	w := append([]float32(nil), weights...)
	return &MTIClutter{weights: w}
}

// NewDefaultMTIClutter returns an MTIClutter configured with default taps
// and weights.
func NewDefaultMTIClutter() *MTIClutter {
	return NewMTIClutter(DefaultMTIWeights)
}

func (c *MTIClutter) Apply(x []float32) []float32 {
	frame := append([]float32(nil), x...)
	c.history = append(c.history, frame)
	if len(c.history) > len(c.weights) {
		c.history = c.history[len(c.history)-len(c.weights):]
	}

	if len(c.history) < len(c.weights) {
		return make([]float32, len(x))
	}

	out := make([]float32, len(x))
	for i, h := range c.history {
		w := c.weights[i]
		for j := range out {
			out[j] += w * h[j]
		}
	}
	return out
}

func (c *MTIClutter) Reset() {
	c.history = nil
}
