/*
NAME
  loop.go

DESCRIPTION
  loop.go implements the supervised acquisition loop: a single
  cooperative task that pulls bytes from the data transport, frames and
  decodes them, runs the processing pipeline and vital-signs extractors,
  and fans results out to the recording sink and broadcast fabric. The
  loop suspends only at well-defined points (a bounded transport read, a
  non-blocking broadcast, and an explicit yield) so that cancellation is
  always honored within one frame-timeout.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acquisition

import (
	"fmt"
	"runtime"
	"time"

	"github.com/vitalwave/radarcore/fall"
	"github.com/vitalwave/radarcore/frame"
	"github.com/vitalwave/radarcore/pipeline"
	"github.com/vitalwave/radarcore/pointcloud"
	"github.com/vitalwave/radarcore/tlv"
	"github.com/vitalwave/radarcore/vitals"
)

// FrameEvent is broadcast on SensorTopic for every frame the pipeline
// finishes processing.
type FrameEvent struct {
	Frame pipeline.ProcessedFrame
}

// VitalsEvent is broadcast on SensorTopic for every vitals estimate
// computed from a frame, alongside which extractor produced it.
type VitalsEvent struct {
	Vitals vitals.Vitals
	Source string // "phase" or "chirp".
}

// PointCloudEvent is broadcast on SensorTopic whenever a frame carries
// detected points, after they have been merged into the accumulator's
// tracked point set.
type PointCloudEvent struct {
	Points []pointcloud.Point
}

// FallAlertEvent is broadcast on SensorTopic when the fall detector
// reports an active fall for a tracked point.
type FallAlertEvent struct {
	Result fall.Result
}

const (
	sourcePhase = "phase"
	sourceChirp = "chirp"
)

// startLoop launches the acquisition loop goroutine. The caller must
// hold no lock; startLoop is only called from within Connect, after the
// streaming transition has already been accepted.
func (d *Device) startLoop() {
	d.stop = make(chan struct{})
	d.wg.Add(1)
	go d.run(d.stop)
}

// stopLoop signals the loop to exit and awaits its termination. It is a
// no-op if the loop was never started.
func (d *Device) stopLoop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	d.wg.Wait()
	d.stop = nil
}

// run is the acquisition loop body. It owns the framer, pipeline, and
// vitals extractors for the lifetime of one streaming session; none of
// this state survives a reconnect.
func (d *Device) run(stop chan struct{}) {
	defer d.wg.Done()

	framer := frame.NewWithMaxBuffer(d.cfg.MaxBufferSize)
	pl := pipeline.New(d.cfg.Pipeline)
	phaseExtractor := vitals.New(d.cfg.Vitals)
	chirpExtractor := vitals.NewChirpExtractor(d.cfg.Vitals)
	pc := pointcloud.New(d.cfg.PointCloud)
	fd := fall.NewDetector(d.cfg.Fall)

	readBuf := make([]byte, 4096)

	for {
		select {
		case <-stop:
			d.logCancelled()
			return
		default:
		}

		if err := d.dataTransport.SetReadTimeout(d.cfg.FrameTimeout); err != nil {
			d.logger.Error("failed to set read timeout", "error", err.Error())
			d.fail("data transport read timeout", err)
			return
		}

		n, err := d.dataTransport.Read(readBuf)
		if err != nil {
			d.logger.Error("data transport read failed", "error", err.Error())
			d.fail("data transport read", err)
			return
		}
		if n > 0 {
			d.stats.addBytesRead(n)
			framer.Append(readBuf[:n])
		}

		for {
			fr, ok := framer.ExtractFrame()
			if !ok {
				break
			}
			d.processFrame(fr, pl, phaseExtractor, chirpExtractor, pc, fd)
		}

		// Explicit yield after each transport read so other tasks can
		// progress even under a sustained stream of frames.
		runtime.Gosched()

		select {
		case <-stop:
			d.logCancelled()
			return
		default:
		}
	}
}

// logCancelled records that the loop exited because of an external
// cancellation request, not a transport failure.
func (d *Device) logCancelled() {
	d.logger.Info("acquisition loop stopped", "reason", (&CancelledError{}).Error())
}

// processFrame decodes one frame, runs it through the pipeline, point
// cloud accumulator, fall detector, and vitals extractors, and
// broadcasts and records the results. Decode and sink errors are
// counted and never propagate out of the loop.
func (d *Device) processFrame(fr frame.Frame, pl *pipeline.Pipeline, phase *vitals.Extractor, chirp *vitals.ChirpExtractor, pc *pointcloud.Accumulator, fd *fall.Detector) {
	decoded := tlv.DecodeFrame(fr)
	if decoded.Failed > 0 {
		d.stats.addDecodeErrors(decoded.Failed)
		decodeErr := &DecodeError{Context: fmt.Sprintf("frame %d", fr.Header.FrameNumber), Err: fmt.Errorf("%d malformed TLVs", decoded.Failed)}
		d.logger.Warning("frame carried malformed TLVs", "error", decodeErr.Error())
	}

	processed := pl.Process(fr.Header.FrameNumber, fr.Header.TimeCPUCycles, decoded)
	d.stats.incFramesProcessed()

	d.fabric.Broadcast(SensorTopic, FrameEvent{Frame: processed})
	if err := d.sink.WriteFrame(processed); err != nil {
		d.stats.incSinkErrors()
		sinkErr := &SinkWriteError{Err: err}
		d.logger.Warning("sink rejected frame write", "error", sinkErr.Error())
	}

	if len(processed.DetectedPoints) > 0 {
		d.trackPoints(processed.DetectedPoints, fr.Header.FrameNumber, pc, fd)
	}

	if chirpPhase, ok := decoded.ChirpPhase(); ok {
		var motion *tlv.ChirpMotion
		if m, ok := decoded.ChirpMotion(); ok {
			motion = &m
		}
		v := chirp.AddFrame(chirpPhase, motion)
		d.emitVitals(v, sourceChirp)
		return
	}

	if processed.HasTarget {
		v := phase.AddSample(processed.PhaseSample)
		d.emitVitals(v, sourcePhase)
	}
}

// trackPoints merges a frame's detected points into the point-cloud
// accumulator, broadcasts the resulting tracked point set, projects
// each point's radial Doppler velocity onto its line-of-sight unit
// vector to synthesize a 3-axis velocity, and runs the result through
// the fall detector.
func (d *Device) trackPoints(points []tlv.Point, frameNumber uint32, pc *pointcloud.Accumulator, fd *fall.Detector) {
	pc.AddPoints(points, frameNumber)
	tracked := pc.Points()
	d.fabric.Broadcast(SensorTopic, PointCloudEvent{Points: tracked})

	objects := make([]fall.TrackedObject, len(tracked))
	for i, p := range tracked {
		vx, vy, vz := radialVelocityComponents(p)
		objects[i] = fall.TrackedObject{
			TrackID: p.TrackID,
			X:       float64(p.X), Y: float64(p.Y), Z: float64(p.Z),
			VX: vx, VY: vy, VZ: vz,
		}
	}

	result := fd.ProcessTrackedObjects(objects, time.Now())
	if result.FallDetected {
		d.fabric.Broadcast(SensorTopic, FallAlertEvent{Result: result})
	}
}

// radialVelocityComponents projects p's scalar radial (Doppler)
// velocity onto its line-of-sight unit vector, assuming pure
// line-of-sight motion; it is the only velocity available, since the
// radar reports one Doppler value per point rather than a 3D velocity.
func radialVelocityComponents(p pointcloud.Point) (vx, vy, vz float64) {
	r := float64(p.Range())
	if r == 0 {
		return 0, 0, 0
	}
	v := float64(p.Velocity)
	return v * float64(p.X) / r, v * float64(p.Y) / r, v * float64(p.Z) / r
}

func (d *Device) emitVitals(v vitals.Vitals, source string) {
	d.fabric.Broadcast(SensorTopic, VitalsEvent{Vitals: v, Source: source})
	if err := d.sink.WriteVitals(v); err != nil {
		d.stats.incSinkErrors()
		sinkErr := &SinkWriteError{Err: err}
		d.logger.Warning("sink rejected vitals write", "error", sinkErr.Error())
	}
}
