package pointcloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalwave/radarcore/tlv"
)

func TestNew_DefaultsZeroFields(t *testing.T) {
	a := New(Config{})
	assert.Equal(t, DefaultPersistenceFrames, a.cfg.PersistenceFrames)
	assert.Equal(t, DefaultMaxPoints, a.cfg.MaxPoints)
}

func TestAddPoints_DiscardsBelowMinSNR(t *testing.T) {
	a := New(Config{MinSNRDB: 10})
	a.AddPoints([]tlv.Point{{X: 1, Y: 1, SNR: 5}}, 1)
	assert.Equal(t, 0, a.NumPoints())
}

func TestAddPoints_AssignsNewTrackOnFirstSighting(t *testing.T) {
	a := New(DefaultConfig())
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	require.Len(t, a.Points(), 1)
	assert.Equal(t, 0, a.Points()[0].TrackID)
}

func TestAddPoints_ReassociatesNearbyPointToSameTrack(t *testing.T) {
	a := New(Config{MergeDistance: 0.5, PersistenceFrames: 10, MaxPoints: 100})
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	a.AddPoints([]tlv.Point{{X: 0.05, Y: 1.05, SNR: 20}}, 2)

	points := a.Points()
	require.Len(t, points, 2)
	assert.Equal(t, points[0].TrackID, points[1].TrackID)
}

func TestAddPoints_FarPointStartsNewTrack(t *testing.T) {
	a := New(Config{MergeDistance: 0.1, PersistenceFrames: 10, MaxPoints: 100})
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	a.AddPoints([]tlv.Point{{X: 5, Y: 5, SNR: 20}}, 2)

	points := a.Points()
	require.Len(t, points, 2)
	assert.NotEqual(t, points[0].TrackID, points[1].TrackID)
}

func TestAddPoints_ExpiresPointsPastPersistence(t *testing.T) {
	a := New(Config{PersistenceFrames: 2, MaxPoints: 100, MergeDistance: 0.1})
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	a.AddPoints(nil, 2)
	assert.Equal(t, 1, a.NumPoints())
	a.AddPoints(nil, 3)
	assert.Equal(t, 0, a.NumPoints())
}

func TestAddPoints_CapsAtMaxPoints(t *testing.T) {
	a := New(Config{MaxPoints: 2, PersistenceFrames: 10, MergeDistance: 0.01})
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}, {X: 10, Y: 1, SNR: 20}, {X: 20, Y: 1, SNR: 20}}, 1)
	assert.Equal(t, 2, a.NumPoints())
}

func TestPointsByTrack_FiltersToMatchingTrack(t *testing.T) {
	a := New(Config{MergeDistance: 0.1, PersistenceFrames: 10, MaxPoints: 100})
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}, {X: 10, Y: 1, SNR: 20}}, 1)
	points := a.Points()
	got := a.PointsByTrack(points[0].TrackID)
	require.Len(t, got, 1)
	assert.Equal(t, points[0].TrackID, got[0].TrackID)
}

func TestRangeAzimuthElevation_MatchGeometry(t *testing.T) {
	p := Point{X: 0, Y: 1, Z: 0}
	assert.InDelta(t, 1.0, p.Range(), 1e-6)
	assert.InDelta(t, 0, p.Azimuth(), 1e-6)
	assert.InDelta(t, 0, p.Elevation(), 1e-6)

	// An rXY of zero is a degenerate case (point directly above/below the
	// radar); elevation defaults to 0 rather than atan2's vertical limit.
	straightUp := Point{X: 0, Y: 0, Z: 1}
	assert.InDelta(t, 0, straightUp.Elevation(), 1e-6)

	forward := Point{X: 0, Y: 1, Z: 1}
	assert.InDelta(t, 0.7853981633974483, forward.Elevation(), 1e-6)
}

func TestReset_ClearsPointsFrameCountAndTrackIDs(t *testing.T) {
	a := New(DefaultConfig())
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	a.Reset()
	assert.Equal(t, 0, a.NumPoints())
	assert.Equal(t, uint32(0), a.FrameCount())

	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	assert.Equal(t, 0, a.Points()[0].TrackID, "track IDs should restart after Reset")
}

func TestClear_DiscardsPointsButKeepsFrameCount(t *testing.T) {
	a := New(DefaultConfig())
	a.AddPoints([]tlv.Point{{X: 0, Y: 1, SNR: 20}}, 1)
	a.Clear()
	assert.Equal(t, 0, a.NumPoints())
	assert.Equal(t, uint32(1), a.FrameCount())
}
