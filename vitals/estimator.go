/*
NAME
  estimator.go

DESCRIPTION
  estimator.go implements the band-limited FFT peak-search frequency
  estimator shared by the phase-path and chirp-phase vital-signs
  extractors: zero-padded magnitude spectrum, band restriction, peak
  search, and a confidence score with rate-jump penalty.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vitals extracts respiratory and heart rate estimates, with
// confidence scores and motion rejection, from a sliding window of phase
// samples.
package vitals

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

const rateHistoryLen = 10

// band describes a frequency band of interest and the estimator tuning
// specific to it (HR and RR differ only in these numbers).
type band struct {
	lowHz, highHz float64
	confK         float64
	jumpDeltaBPM  float64
}

// bandEstimator is a stateful band-limited FFT frequency estimator. One
// instance tracks HR, another RR; both share this implementation.
type bandEstimator struct {
	band band

	lastRateBPM float64
	haveLast    bool
	history     []float64 // BPM, most recent last, capped at rateHistoryLen.
}

func newBandEstimator(b band) *bandEstimator {
	return &bandEstimator{band: b}
}

// estimate computes the band's rate (BPM) and confidence from a filtered,
// zero-mean time-domain window sampled at fs Hz, zero-padded to the next
// power of two at or above len(window)*padFactor before the FFT.
func (e *bandEstimator) estimate(window []float64, fs float64, padFactor int) (rateBPM, confidence float64, present bool) {
	n := len(window)
	padded := n * padFactor
	padded = nextPow2(padded)

	x := make([]float64, padded)
	copy(x, window)

	spectrum := fft.FFTReal(x)
	mags := make([]float64, padded/2+1)
	for i := range mags {
		mags[i] = cabs(spectrum[i])
	}

	freqResolution := fs / float64(padded)

	loBin := int(math.Ceil(e.band.lowHz / freqResolution))
	hiBin := int(math.Floor(e.band.highHz / freqResolution))
	if loBin < 0 {
		loBin = 0
	}
	if hiBin > len(mags)-1 {
		hiBin = len(mags) - 1
	}
	if loBin > hiBin {
		e.haveLast = false
		return 0, 0, false
	}

	bandMags := mags[loBin : hiBin+1]
	peakIdx := argmax(bandMags)
	peakMag := bandMags[peakIdx]
	meanMag := stat.Mean(bandMags, nil)

	peakFreq := float64(loBin+peakIdx) * freqResolution
	rateBPM = peakFreq * 60

	confidence = 0
	if meanMag > 0 {
		confidence = (peakMag/meanMag - 1) / e.band.confK
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	if e.haveLast && math.Abs(rateBPM-e.lastRateBPM) > e.band.jumpDeltaBPM {
		confidence /= 2
	}
	e.lastRateBPM = rateBPM
	e.haveLast = true

	e.history = append(e.history, rateBPM)
	if len(e.history) > rateHistoryLen {
		e.history = e.history[len(e.history)-rateHistoryLen:]
	}

	return rateBPM, confidence, true
}

func (e *bandEstimator) reset() {
	e.haveLast = false
	e.history = nil
	e.lastRateBPM = 0
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}

func cabs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
