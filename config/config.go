/*
NAME
  config.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds the configuration settings shared across the
// radar vital-signs core: clutter removal, range gating, vital-signs
// extraction, and acquisition timeouts.
package config

import (
	"io"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/vitalwave/radarcore/dsp"
	"github.com/vitalwave/radarcore/fall"
	"github.com/vitalwave/radarcore/pipeline"
	"github.com/vitalwave/radarcore/pointcloud"
	"github.com/vitalwave/radarcore/vitals"
)

// Clutter variant names, as accepted by the ClutterVariant field.
const (
	ClutterNone = "none"
	ClutterEMA  = "ema"
	ClutterMTI  = "mti"
)

// Config is the flat set of tunables governing one acquisition session.
// Fields left at their zero value are defaulted and logged by Validate.
type Config struct {
	Logger logging.Logger

	// Clutter removal.
	ClutterVariant string
	EMAAlpha       float32
	EMAWarmup      int
	MTIWeights     []float32

	// Range gating and target detection.
	RangeResolution float32
	RangeMin        float32
	RangeMax        float32
	ThresholdSigma  float64

	// Vital-signs extraction.
	SampleRate      float64
	WindowSeconds   float64
	FilterOrder     int
	ZeroPadFactor   int
	MotionThreshold float64
	Tau             float64

	// Acquisition timeouts.
	FrameTimeout  time.Duration
	AckTimeout    time.Duration
	MaxBufferSize int

	// Point cloud accumulation.
	PersistenceFrames int
	MaxPoints         int
	MinSNRDB          float32
	MergeDistance     float32

	// Fall detection.
	StandingHeightMin     float64
	FallHeightThreshold   float64
	LyingHeightMax        float64
	FallVelocityThreshold float64
	LyingTimeout          time.Duration
	MinFallConfidence     float64
	MinTrackHistory       int
}

// Validate checks each field in turn, defaulting and logging any that
// are bad or unset. It never returns an error: every field has a usable
// default, so configuration can proceed with logged substitutions rather
// than a hard failure.
func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = logging.New(logging.Info, io.Discard, true)
	}

	switch c.ClutterVariant {
	case ClutterNone, ClutterEMA, ClutterMTI:
	default:
		c.LogInvalidField("ClutterVariant", ClutterEMA)
		c.ClutterVariant = ClutterEMA
	}
	if c.EMAAlpha <= 0 {
		c.LogInvalidField("EMAAlpha", dsp.DefaultEMAAlpha)
		c.EMAAlpha = dsp.DefaultEMAAlpha
	}
	if c.EMAWarmup <= 0 {
		c.LogInvalidField("EMAWarmup", dsp.DefaultEMAWarmup)
		c.EMAWarmup = dsp.DefaultEMAWarmup
	}
	if len(c.MTIWeights) == 0 {
		c.LogInvalidField("MTIWeights", dsp.DefaultMTIWeights)
		c.MTIWeights = dsp.DefaultMTIWeights
	}

	if c.RangeResolution <= 0 {
		c.LogInvalidField("RangeResolution", pipeline.DefaultRangeResolution)
		c.RangeResolution = pipeline.DefaultRangeResolution
	}
	if c.RangeMin <= 0 {
		c.LogInvalidField("RangeMin", pipeline.DefaultRangeMin)
		c.RangeMin = pipeline.DefaultRangeMin
	}
	if c.RangeMax <= c.RangeMin {
		c.LogInvalidField("RangeMax", pipeline.DefaultRangeMax)
		c.RangeMax = pipeline.DefaultRangeMax
	}
	if c.ThresholdSigma <= 0 {
		c.LogInvalidField("ThresholdSigma", pipeline.DefaultThresholdSigma)
		c.ThresholdSigma = pipeline.DefaultThresholdSigma
	}

	if c.SampleRate <= 0 {
		c.LogInvalidField("SampleRate", vitals.DefaultSampleRate)
		c.SampleRate = vitals.DefaultSampleRate
	}
	if c.WindowSeconds <= 0 {
		c.LogInvalidField("WindowSeconds", vitals.DefaultWindowSeconds)
		c.WindowSeconds = vitals.DefaultWindowSeconds
	}
	if c.FilterOrder <= 0 {
		c.LogInvalidField("FilterOrder", vitals.DefaultFilterOrder)
		c.FilterOrder = vitals.DefaultFilterOrder
	}
	if c.ZeroPadFactor <= 0 {
		c.LogInvalidField("ZeroPadFactor", vitals.DefaultZeroPadFactor)
		c.ZeroPadFactor = vitals.DefaultZeroPadFactor
	}
	if c.MotionThreshold <= 0 {
		c.LogInvalidField("MotionThreshold", vitals.DefaultMotionThreshold)
		c.MotionThreshold = vitals.DefaultMotionThreshold
	}
	if c.Tau <= 0 {
		c.LogInvalidField("Tau", vitals.DefaultTau)
		c.Tau = vitals.DefaultTau
	}

	if c.FrameTimeout <= 0 {
		c.LogInvalidField("FrameTimeout", defaultFrameTimeout)
		c.FrameTimeout = defaultFrameTimeout
	}
	if c.AckTimeout <= 0 {
		c.LogInvalidField("AckTimeout", defaultAckTimeout)
		c.AckTimeout = defaultAckTimeout
	}
	if c.MaxBufferSize <= 0 {
		c.LogInvalidField("MaxBufferSize", defaultMaxBufferSize)
		c.MaxBufferSize = defaultMaxBufferSize
	}

	if c.PersistenceFrames <= 0 {
		c.LogInvalidField("PersistenceFrames", pointcloud.DefaultPersistenceFrames)
		c.PersistenceFrames = pointcloud.DefaultPersistenceFrames
	}
	if c.MaxPoints <= 0 {
		c.LogInvalidField("MaxPoints", pointcloud.DefaultMaxPoints)
		c.MaxPoints = pointcloud.DefaultMaxPoints
	}
	if c.MergeDistance <= 0 {
		c.LogInvalidField("MergeDistance", pointcloud.DefaultMergeDistance)
		c.MergeDistance = pointcloud.DefaultMergeDistance
	}
	if c.MinSNRDB <= 0 {
		c.LogInvalidField("MinSNRDB", pointcloud.DefaultMinSNRDB)
		c.MinSNRDB = pointcloud.DefaultMinSNRDB
	}

	if c.StandingHeightMin <= 0 {
		c.LogInvalidField("StandingHeightMin", fall.DefaultStandingHeightMin)
		c.StandingHeightMin = fall.DefaultStandingHeightMin
	}
	if c.FallHeightThreshold <= 0 {
		c.LogInvalidField("FallHeightThreshold", fall.DefaultFallHeightThreshold)
		c.FallHeightThreshold = fall.DefaultFallHeightThreshold
	}
	if c.LyingHeightMax <= 0 {
		c.LogInvalidField("LyingHeightMax", fall.DefaultLyingHeightMax)
		c.LyingHeightMax = fall.DefaultLyingHeightMax
	}
	if c.FallVelocityThreshold == 0 {
		c.LogInvalidField("FallVelocityThreshold", fall.DefaultFallVelocityThresh)
		c.FallVelocityThreshold = fall.DefaultFallVelocityThresh
	}
	if c.LyingTimeout <= 0 {
		c.LogInvalidField("LyingTimeout", fall.DefaultLyingTimeout)
		c.LyingTimeout = fall.DefaultLyingTimeout
	}
	if c.MinFallConfidence <= 0 {
		c.LogInvalidField("MinFallConfidence", fall.DefaultMinConfidence)
		c.MinFallConfidence = fall.DefaultMinConfidence
	}
	if c.MinTrackHistory <= 0 {
		c.LogInvalidField("MinTrackHistory", fall.DefaultMinTrackHistory)
		c.MinTrackHistory = fall.DefaultMinTrackHistory
	}

	return nil
}

const (
	defaultFrameTimeout  = 100 * time.Millisecond
	defaultAckTimeout    = 30 * time.Millisecond
	defaultMaxBufferSize = 64 * 1024
)

// LogInvalidField logs that a field was bad or unset and has been
// defaulted to def.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// ClutterConfig builds a dsp.Clutter of the configured variant.
func (c *Config) ClutterConfig() dsp.Clutter {
	switch c.ClutterVariant {
	case ClutterNone:
		return dsp.NewNoneClutter()
	case ClutterMTI:
		return dsp.NewMTIClutter(c.MTIWeights)
	default:
		return dsp.NewEMAClutter(c.EMAAlpha, c.EMAWarmup)
	}
}

// PipelineConfig projects the range-gating and detection fields into a
// pipeline.Config, wiring in the configured clutter variant.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Clutter:         c.ClutterConfig(),
		RangeResolution: c.RangeResolution,
		RangeMin:        c.RangeMin,
		RangeMax:        c.RangeMax,
		ThresholdSigma:  c.ThresholdSigma,
	}
}

// VitalsConfig projects the extraction fields into a vitals.Config.
func (c *Config) VitalsConfig() vitals.Config {
	return vitals.Config{
		SampleRate:      c.SampleRate,
		WindowSeconds:   c.WindowSeconds,
		FilterOrder:     c.FilterOrder,
		ZeroPadFactor:   c.ZeroPadFactor,
		MotionThreshold: c.MotionThreshold,
		Tau:             c.Tau,
	}
}

// PointCloudConfig projects the accumulation fields into a
// pointcloud.Config.
func (c *Config) PointCloudConfig() pointcloud.Config {
	return pointcloud.Config{
		PersistenceFrames: c.PersistenceFrames,
		MaxPoints:         c.MaxPoints,
		MinSNRDB:          c.MinSNRDB,
		MergeDistance:     c.MergeDistance,
	}
}

// FallConfig projects the fall-detection fields into a fall.Config.
func (c *Config) FallConfig() fall.Config {
	return fall.Config{
		StandingHeightMin:     c.StandingHeightMin,
		FallHeightThreshold:   c.FallHeightThreshold,
		LyingHeightMax:        c.LyingHeightMax,
		FallVelocityThreshold: c.FallVelocityThreshold,
		LyingTimeout:          c.LyingTimeout,
		MinConfidence:         c.MinFallConfidence,
		MinTrackHistory:       c.MinTrackHistory,
	}
}

// DefaultConfig returns a Config populated entirely with documented
// defaults, including a no-op, stdout-suppressed logger.
func DefaultConfig() Config {
	c := Config{ClutterVariant: ClutterEMA}
	_ = c.Validate()
	return c
}
