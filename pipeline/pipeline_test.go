package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalwave/radarcore/dsp"
	"github.com/vitalwave/radarcore/tlv"
)

func flatProfile(n int, spikeBin int, spikeVal float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1.0
	}
	if spikeBin >= 0 {
		out[spikeBin] = spikeVal
	}
	return out
}

func decodedWithRangeProfile(bins []float32) tlv.Decoded {
	return tlv.Decoded{Records: []tlv.Record{tlv.RangeProfile{Bins: bins}}}
}

func TestNew_DefaultsNilClutterAndZeroResolution(t *testing.T) {
	p := New(Config{})
	assert.NotNil(t, p.cfg.Clutter)
	assert.Equal(t, float32(DefaultRangeResolution), p.cfg.RangeResolution)
}

func TestProcess_NoRangeProfileLeavesNoTarget(t *testing.T) {
	p := New(DefaultConfig())
	out := p.Process(1, 100, tlv.Decoded{})
	assert.False(t, out.HasTarget)
	assert.Nil(t, out.RangeProfile)
}

func TestProcess_DetectsTargetAboveThresholdWithinRangeGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RangeResolution = 0.1
	cfg.RangeMin = 0
	cfg.RangeMax = 10
	cfg.ThresholdSigma = 2
	p := New(cfg)

	bins := flatProfile(50, 20, 500)
	out := p.Process(1, 0, decodedWithRangeProfile(bins))

	require.True(t, out.HasTarget)
	assert.Equal(t, 20, out.TargetBin)
	assert.InDelta(t, 2.0, out.TargetM, 1e-6)
}

func TestProcess_GatesTargetOutsideRangeWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RangeResolution = 0.1
	cfg.RangeMin = 5 // Excludes bin 20 (2.0m) below.
	cfg.RangeMax = 10
	cfg.ThresholdSigma = 2
	p := New(cfg)

	bins := flatProfile(50, 20, 500)
	out := p.Process(1, 0, decodedWithRangeProfile(bins))

	assert.False(t, out.HasTarget)
}

func TestProcess_AppliesClutterFilterBeforeDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RangeResolution = 0.1
	cfg.RangeMin = 0
	cfg.RangeMax = 10
	cfg.Clutter = dsp.NewNoneClutter()
	p := New(cfg)

	bins := []float32{1, 2, 3}
	out := p.Process(1, 0, decodedWithRangeProfile(bins))
	assert.Equal(t, bins, out.RangeProfile)
}

func TestProcess_PassesThroughRangeDopplerAndPoints(t *testing.T) {
	p := New(DefaultConfig())
	decoded := tlv.Decoded{Records: []tlv.Record{
		tlv.RangeDoppler{Data: []float32{1, 2, 3, 4}, Rows: 1, Cols: 4},
		tlv.DetectedPoints{Points: []tlv.Point{{X: 1, Y: 2, Z: 0, Velocity: 0.5}}},
	}}

	out := p.Process(1, 0, decoded)
	require.NotNil(t, out.RangeDoppler)
	assert.Equal(t, 4, out.RangeDoppler.Cols)
	require.Len(t, out.DetectedPoints, 1)
	assert.Equal(t, float32(2), out.DetectedPoints[0].Y)
	assert.Equal(t, float32(0.5), out.DetectedPoints[0].Velocity)
}

func TestExtractPhase_ResetsHistoryOnTargetBinChange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RangeResolution = 0.1
	cfg.RangeMin = 0
	cfg.RangeMax = 10
	cfg.ThresholdSigma = 2
	p := New(cfg)

	first := p.Process(1, 0, decodedWithRangeProfile(flatProfile(50, 20, 500)))
	require.True(t, first.HasTarget)

	second := p.Process(2, 0, decodedWithRangeProfile(flatProfile(50, 30, 500)))
	require.True(t, second.HasTarget)
	assert.Equal(t, 30, second.TargetBin)
	// A freshly reset history means the sample is the magnitude itself
	// minus its own mean, i.e. zero.
	assert.InDelta(t, 0, second.PhaseSample, 1e-9)
}

func TestDetectTarget_EmptyProfileHasNoTarget(t *testing.T) {
	p := New(DefaultConfig())
	bin, rangeM, ok := p.detectTarget(nil)
	assert.False(t, ok)
	assert.Zero(t, bin)
	assert.Zero(t, rangeM)
}

func TestExtractComplexPhase_MatchesAtan2(t *testing.T) {
	assert.InDelta(t, 0.0, ExtractComplexPhase(1, 0), 1e-9)
	assert.InDelta(t, 1.5707963267948966, ExtractComplexPhase(0, 1), 1e-9)
}

func TestReset_ClearsHistoryAndClutterState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RangeResolution = 0.1
	cfg.RangeMin = 0
	cfg.RangeMax = 10
	cfg.ThresholdSigma = 2
	p := New(cfg)

	p.Process(1, 0, decodedWithRangeProfile(flatProfile(50, 20, 500)))
	require.NotEmpty(t, p.magHistory)

	p.Reset()
	assert.Empty(t, p.magHistory)
	assert.False(t, p.haveLastBin)
}
