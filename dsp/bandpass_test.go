package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBandpass_RejectsInvalidCutoffs(t *testing.T) {
	_, err := NewBandpass(0, 1, 20, 4)
	assert.Error(t, err)

	_, err = NewBandpass(2, 1, 20, 4)
	assert.Error(t, err)

	_, err = NewBandpass(1, 11, 20, 4)
	assert.Error(t, err)
}

func TestNewBandpass_HRBand(t *testing.T) {
	bp, err := NewBandpass(0.8, 3.0, 20, DefaultOrder)
	require.NoError(t, err)
	assert.Greater(t, bp.Taps(), 0)
	assert.Equal(t, 1, bp.Taps()%2, "tap count should be odd for a symmetric FIR")
}

func sineWave(freqHz, fs float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freqHz * float64(i) / fs)
	}
	return out
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestBandpass_AttenuatesOutOfBandDC(t *testing.T) {
	fs := 20.0
	bp, err := NewBandpass(0.8, 3.0, fs, DefaultOrder)
	require.NoError(t, err)

	n := int(fs * 10) // 10s window, long enough for zero-phase path
	dc := make([]float64, n)
	for i := range dc {
		dc[i] = 1.0
	}

	out := bp.Apply(dc)
	require.Len(t, out, n)

	// A DC signal sits well outside any passband that excludes 0 Hz;
	// steady-state output should be small relative to the input.
	mid := out[n/2-20 : n/2+20]
	assert.Less(t, rms(mid), 0.5)
}

func TestBandpass_PassesInBandTone(t *testing.T) {
	fs := 20.0
	bp, err := NewBandpass(0.8, 3.0, fs, DefaultOrder)
	require.NoError(t, err)

	n := int(fs * 10)
	tone := sineWave(1.5, fs, n) // Center of the HR band.

	out := bp.Apply(tone)
	require.Len(t, out, n)

	mid := out[n/2-40 : n/2+40]
	assert.Greater(t, rms(mid), 0.1, "an in-band tone should survive with non-trivial amplitude")
}

func TestBandpass_ShortSignalUsesCausalPath(t *testing.T) {
	bp, err := NewBandpass(0.8, 3.0, 20, DefaultOrder)
	require.NoError(t, err)

	short := sineWave(1.5, 20, 3*DefaultOrder-1)
	out := bp.Apply(short)
	assert.Len(t, out, len(short))
}
