/*
NAME
  pointcloud.go

DESCRIPTION
  pointcloud.go accumulates detected points across frames so that a
  point's presence can be tracked for longer than the single frame it
  was reported in: points persist for a configurable number of frames,
  age as they go unconfirmed, and are associated frame-to-frame with a
  nearest-neighbor match so that downstream consumers (fall detection,
  point-cloud visualization) see a stable identity per physical target
  rather than an independent point cloud every frame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pointcloud accumulates and tracks detected points across
// frames, independent of the real-time clutter/target-bin path in
// package pipeline.
package pointcloud

import (
	"math"

	"github.com/vitalwave/radarcore/tlv"
)

// Defaults for Config.
const (
	DefaultPersistenceFrames = 10
	DefaultMaxPoints         = 1000
	DefaultMinSNRDB          = 5.0
	DefaultMergeDistance     = 0.1 // Meters.
)

// Config holds the accumulator's tunable parameters.
type Config struct {
	PersistenceFrames int     // Frames a point is retained without reconfirmation.
	MaxPoints         int     // Upper bound on accumulated points; oldest are dropped first.
	MinSNRDB          float32 // Points below this SNR are discarded. 16-byte point records carry no SNR and default to 0.
	MergeDistance     float32 // Meters; a new point within this distance of a live point inherits its track ID.
}

// DefaultConfig returns a Config populated with documented defaults.
func DefaultConfig() Config {
	return Config{
		PersistenceFrames: DefaultPersistenceFrames,
		MaxPoints:         DefaultMaxPoints,
		MinSNRDB:          DefaultMinSNRDB,
		MergeDistance:     DefaultMergeDistance,
	}
}

// Point is a tracked detected point, carrying the age and track identity
// an accumulator assigns on top of the raw per-frame detection.
type Point struct {
	X, Y, Z  float32
	Velocity float32
	SNR      float32

	Age         int    // Frames since this point was added.
	TrackID     int    // Accumulator-assigned identity, stable across frames for a nearest-neighbor match.
	FrameNumber uint32 // Frame number the point was added on.
}

// Range is the point's distance from the radar.
func (p Point) Range() float32 {
	return float32(math.Sqrt(float64(p.X*p.X + p.Y*p.Y + p.Z*p.Z)))
}

// Azimuth is the point's azimuth angle in radians.
func (p Point) Azimuth() float64 {
	return math.Atan2(float64(p.X), float64(p.Y))
}

// Elevation is the point's elevation angle in radians.
func (p Point) Elevation() float64 {
	rXY := math.Sqrt(float64(p.X*p.X + p.Y*p.Y))
	if rXY == 0 {
		return 0
	}
	return math.Atan2(float64(p.Z), rXY)
}

// Accumulator retains detected points across frames, aging and
// discarding them as persistence expires and merging new detections
// into existing tracks by proximity. It is single-writer, matching the
// acquisition loop's ownership of one Accumulator per streaming
// session.
type Accumulator struct {
	cfg Config

	points      []Point
	frameCount  uint32
	nextTrackID int
}

// New returns an Accumulator configured by cfg, with a non-positive
// PersistenceFrames or MaxPoints replaced by its default. MinSNRDB and
// MergeDistance are used as given, zero included.
func New(cfg Config) *Accumulator {
	if cfg.PersistenceFrames <= 0 {
		cfg.PersistenceFrames = DefaultPersistenceFrames
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	return &Accumulator{cfg: cfg, nextTrackID: -1}
}

// AddPoints ages and expires the current point set, then merges in a
// frame's newly detected points: a point within MergeDistance of a
// point that survived aging inherits its track ID, otherwise it starts
// a new track. Points below MinSNRDB are discarded.
func (a *Accumulator) AddPoints(detected []tlv.Point, frameNumber uint32) {
	a.frameCount++

	live := make([]Point, 0, len(a.points))
	for _, p := range a.points {
		p.Age++
		if p.Age < a.cfg.PersistenceFrames {
			live = append(live, p)
		}
	}
	a.points = live

	prev := append([]Point(nil), a.points...)
	for _, dp := range detected {
		if dp.SNR < a.cfg.MinSNRDB {
			continue
		}
		a.points = append(a.points, Point{
			X: dp.X, Y: dp.Y, Z: dp.Z,
			Velocity:    dp.Velocity,
			SNR:         dp.SNR,
			Age:         0,
			TrackID:     a.associate(prev, dp),
			FrameNumber: frameNumber,
		})
	}

	if len(a.points) > a.cfg.MaxPoints {
		a.points = a.points[len(a.points)-a.cfg.MaxPoints:]
	}
}

// associate returns the track ID of the nearest point in prev within
// MergeDistance, or allocates a new track ID if none is close enough.
func (a *Accumulator) associate(prev []Point, dp tlv.Point) int {
	best := -1
	bestDist := float32(math.MaxFloat32)
	for i, p := range prev {
		dx, dy, dz := p.X-dp.X, p.Y-dp.Y, p.Z-dp.Z
		dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
		if dist <= a.cfg.MergeDistance && dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	if best >= 0 {
		return prev[best].TrackID
	}
	a.nextTrackID++
	return a.nextTrackID
}

// Points returns all currently accumulated points.
func (a *Accumulator) Points() []Point {
	return append([]Point(nil), a.points...)
}

// PointsByTrack returns the accumulated points sharing trackID.
func (a *Accumulator) PointsByTrack(trackID int) []Point {
	var out []Point
	for _, p := range a.points {
		if p.TrackID == trackID {
			out = append(out, p)
		}
	}
	return out
}

// NumPoints returns the number of currently accumulated points.
func (a *Accumulator) NumPoints() int { return len(a.points) }

// FrameCount returns the total number of frames added.
func (a *Accumulator) FrameCount() uint32 { return a.frameCount }

// Clear discards all accumulated points without resetting the frame
// counter or track ID sequence.
func (a *Accumulator) Clear() {
	a.points = nil
}

// Reset returns the accumulator to its just-constructed state.
func (a *Accumulator) Reset() {
	a.points = nil
	a.frameCount = 0
	a.nextTrackID = -1
}
