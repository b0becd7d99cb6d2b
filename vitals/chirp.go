/*
NAME
  chirp.go

DESCRIPTION
  chirp.go implements the chirp-phase vital-signs estimator: it consumes
  sensor-provided phase directly from the chirp-phase TLV, unwraps it,
  and feeds the same sliding-window FFT estimator core used by the
  phase-path Extractor. No clutter step is required, since the sensor
  firmware has already isolated the target bin.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vitals

import (
	"github.com/vitalwave/radarcore/dsp"
	"github.com/vitalwave/radarcore/tlv"
)

// ChirpExtractor parallels Extractor but sources its phase samples from
// a chirp-phase TLV instead of a magnitude-derived range profile.
type ChirpExtractor struct {
	inner     *Extractor
	unwrapper *dsp.Unwrapper
}

// NewChirpExtractor returns a ChirpExtractor configured by cfg.
func NewChirpExtractor(cfg Config) *ChirpExtractor {
	return &ChirpExtractor{
		inner:     New(cfg),
		unwrapper: dsp.NewUnwrapper(),
	}
}

// AddFrame extracts the center-bin (or first valid) phase from phase and
// feeds the unwrapped sample into the shared FFT estimator core. When
// motionTLV is present, its Detected flag replaces the estimator's own
// motion flag, and a detected motion returns absent estimates. The
// estimator's own motion test still runs first, so a window that fails
// it has absent estimates even when motionTLV reports no motion.
func (c *ChirpExtractor) AddFrame(phase tlv.ChirpPhase, motionTLV *tlv.ChirpMotion) Vitals {
	sample, ok := phase.CenterPhase()
	if !ok {
		return Vitals{}
	}

	unwrapped := c.unwrapper.Unwrap(float64(sample))
	v := c.inner.AddSample(unwrapped)

	if motionTLV != nil {
		v.MotionDetected = motionTLV.Detected
		if motionTLV.Detected {
			return Vitals{MotionDetected: true}
		}
	}

	return v
}

// Reset clears the unwrapper and the inner estimator's state.
func (c *ChirpExtractor) Reset() {
	c.unwrapper.Reset()
	c.inner.Reset()
}
