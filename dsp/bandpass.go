/*
NAME
  bandpass.go

DESCRIPTION
  bandpass.go designs windowed-sinc FIR bandpass filters and applies them
  either zero-phase (forward-backward) or causally, depending on the
  length of the signal being filtered.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dsp

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/pkg/errors"
)

// DefaultOrder is the Butterworth-equivalent filter order used to derive
// FIR tap counts for the HR and RR bandpass filters.
const DefaultOrder = 4

// Bandpass is a windowed-sinc FIR bandpass filter designed around a
// [low, high] Hz passband at a fixed sample rate.
type Bandpass struct {
	coeffs []float64
	order  int
}

// NewBandpass designs a bandpass filter for [low, high] Hz at sample rate
// fs, with a tap count derived from order. It is built as the difference
// of two filters: a windowed-sinc lowpass at high minus a windowed-sinc
// lowpass at low.
func NewBandpass(low, high, fs float64, order int) (*Bandpass, error) {
	if low <= 0 || high <= low || high >= fs/2 {
		return nil, errors.New("dsp: invalid bandpass cutoffs")
	}
	if order <= 0 {
		order = DefaultOrder
	}

	taps := order*10 + 1
	if taps%2 == 0 {
		taps++
	}

	lo := sincLowpass(low/fs, taps)
	hi := sincLowpass(high/fs, taps)

	coeffs := make([]float64, taps)
	for i := range coeffs {
		coeffs[i] = hi[i] - lo[i]
	}

	return &Bandpass{coeffs: coeffs, order: order}, nil
}

// sincLowpass designs a normalized windowed-sinc lowpass filter with
// cutoff fd (cycles/sample) and the given odd tap count, using a
// flat-top window.
func sincLowpass(fd float64, taps int) []float64 {
	coeffs := make([]float64, taps)
	b := 2 * math.Pi * fd
	win := window.FlatTop(taps)
	mid := taps / 2
	for n := 0; n < mid; n++ {
		c := float64(n) - float64(taps)/2
		y := math.Sin(c*b) / (math.Pi * c)
		coeffs[n] = y * win[n]
		coeffs[taps-1-n] = coeffs[n]
	}
	coeffs[mid] = 2 * fd * win[mid]
	return coeffs
}

// Taps returns the number of filter coefficients.
func (b *Bandpass) Taps() int { return len(b.coeffs) }

// Apply filters x, choosing zero-phase forward-backward filtering when x
// is long enough (at least 3*order samples), falling back to a single
// causal convolution otherwise.
func (b *Bandpass) Apply(x []float64) []float64 {
	if len(x) >= 3*b.order {
		return b.applyZeroPhase(x)
	}
	return b.applyCausal(x)
}

// applyZeroPhase runs the filter forward then backward and averages the
// time-reversal so that the net result carries no phase delay.
func (b *Bandpass) applyZeroPhase(x []float64) []float64 {
	fwd := convolveSame(x, b.coeffs)

	rev := make([]float64, len(x))
	for i, v := range x {
		rev[len(x)-1-i] = v
	}
	bwd := convolveSame(rev, b.coeffs)
	for i, j := 0, len(bwd)-1; i < j; i, j = i+1, j-1 {
		bwd[i], bwd[j] = bwd[j], bwd[i]
	}

	out := make([]float64, len(x))
	for i := range out {
		out[i] = (fwd[i] + bwd[i]) / 2
	}
	return out
}

func (b *Bandpass) applyCausal(x []float64) []float64 {
	return convolveSame(x, b.coeffs)
}

// convolveSame performs a linear convolution of x with h via FFT and
// trims the result to len(x), centering the filter's group delay so the
// output aligns with the input.
func convolveSame(x, h []float64) []float64 {
	n := len(x) + len(h) - 1
	padLen := nextPow2(n)

	xp := make([]float64, padLen)
	copy(xp, x)
	hp := make([]float64, padLen)
	copy(hp, h)

	xFFT := fft.FFTReal(xp)
	hFFT := fft.FFTReal(hp)

	yFFT := make([]complex128, padLen)
	for i := range xFFT {
		yFFT[i] = xFFT[i] * hFFT[i]
	}
	y := fft.IFFT(yFFT)

	full := make([]float64, n)
	for i := 0; i < n; i++ {
		full[i] = real(y[i])
	}

	delay := len(h) / 2
	out := make([]float64, len(x))
	for i := range out {
		out[i] = full[i+delay]
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
