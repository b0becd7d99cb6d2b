/*
NAME
  chirp.go

DESCRIPTION
  chirp.go decodes the vendor "chirp" TLV family (0x05xx) that carries
  per-bin phase, complex I/Q, and firmware-derived presence/motion/target
  summaries directly from the sensor's chirp processing stage.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tlv

import (
	"encoding/binary"
	"math"
)

// Chirp phase-record flag bits.
const (
	ChirpFlagMotion = 1 << 0
	ChirpFlagValid  = 1 << 1
)

// Q15PhaseToRadians converts a Q15 fixed-point phase sample to radians.
func Q15PhaseToRadians(q15 int16) float32 {
	return float32(q15) / 32768 * math.Pi
}

// Q8RangeToMeters converts a Q8 fixed-point range sample to meters.
func Q8RangeToMeters(q8 uint16) float32 {
	return float32(q8) / 256
}

func readI16(b []byte) int16 { return int16(readU16(b)) }

// ComplexSample is a single complex-valued range-FFT bin, as carried by
// TLV 0x0500 and 0x0510.
type ComplexSample struct {
	Bin        uint16 // Absolute bin index; for 0x0500, which is dense from bin 0, the sample's position in the array.
	Real, Imag int16
}

// ChirpComplexFFT is the decoded TLV type 0x0500 payload: a dense range
// FFT for one chirp/RX pair.
type ChirpComplexFFT struct {
	ChirpIdx uint16
	RX       uint16
	Bins     []ComplexSample
}

func (ChirpComplexFFT) tlvType() uint32 { return TypeChirpComplexFFT }

func decodeChirpComplexFFT(payload []byte) (Record, error) {
	if len(payload) < 8 {
		return nil, errShortPayload
	}
	nBins := int(readU16(payload[0:2]))
	chirpIdx := readU16(payload[2:4])
	rx := readU16(payload[4:6])
	body := payload[8:]
	if len(body) < nBins*4 {
		return nil, errShortPayload
	}
	bins := make([]ComplexSample, nBins)
	for i := 0; i < nBins; i++ {
		rec := body[i*4 : i*4+4]
		bins[i] = ComplexSample{
			Bin:  uint16(i),
			Imag: readI16(rec[0:2]),
			Real: readI16(rec[2:4]),
		}
	}
	return ChirpComplexFFT{ChirpIdx: chirpIdx, RX: rx, Bins: bins}, nil
}

// ChirpTargetIQ is the decoded TLV type 0x0510 payload: complex I/Q
// samples around a firmware-chosen center bin.
type ChirpTargetIQ struct {
	CenterBin   uint16
	TimestampUs uint32
	Bins        []ComplexSample
}

func (ChirpTargetIQ) tlvType() uint32 { return TypeChirpTargetIQ }

func decodeChirpTargetIQ(payload []byte) (Record, error) {
	if len(payload) < 8 {
		return nil, errShortPayload
	}
	nBins := int(readU16(payload[0:2]))
	centerBin := readU16(payload[2:4])
	ts := binary.LittleEndian.Uint32(payload[4:8])
	body := payload[8:]
	const recLen = 8 // bin u16, imag i16, real i16, reserved u16
	if len(body) < nBins*recLen {
		return nil, errShortPayload
	}
	bins := make([]ComplexSample, nBins)
	for i := 0; i < nBins; i++ {
		rec := body[i*recLen : i*recLen+recLen]
		bins[i] = ComplexSample{
			Bin:  readU16(rec[0:2]),
			Imag: readI16(rec[2:4]),
			Real: readI16(rec[4:6]),
		}
	}
	return ChirpTargetIQ{CenterBin: centerBin, TimestampUs: ts, Bins: bins}, nil
}

// PhaseBin is a single per-bin phase sample, as carried by TLV 0x0520.
type PhaseBin struct {
	Bin       uint16
	Phase     float32 // Radians, converted from Q15 on decode.
	Magnitude uint16
	Flags     uint16
}

// Motion reports whether this bin's motion flag is set.
func (p PhaseBin) Motion() bool { return p.Flags&ChirpFlagMotion != 0 }

// Valid reports whether this bin's valid flag is set.
func (p PhaseBin) Valid() bool { return p.Flags&ChirpFlagValid != 0 }

// ChirpPhase is the decoded TLV type 0x0520 payload.
type ChirpPhase struct {
	CenterBin   uint16
	TimestampUs uint32
	Bins        []PhaseBin
}

func (ChirpPhase) tlvType() uint32 { return TypeChirpPhase }

// CenterPhase returns the phase at the center bin if it is present and
// valid, else the phase of the first valid bin (the "center-bin fallback"
// rule).
func (c ChirpPhase) CenterPhase() (float32, bool) {
	for _, b := range c.Bins {
		if b.Bin == c.CenterBin && b.Valid() {
			return b.Phase, true
		}
	}
	for _, b := range c.Bins {
		if b.Valid() {
			return b.Phase, true
		}
	}
	return 0, false
}

func decodeChirpPhase(payload []byte) (Record, error) {
	if len(payload) < 8 {
		return nil, errShortPayload
	}
	nBins := int(readU16(payload[0:2]))
	centerBin := readU16(payload[2:4])
	ts := binary.LittleEndian.Uint32(payload[4:8])
	body := payload[8:]
	const recLen = 8 // bin u16, phase_q15 i16, magnitude u16, flags u16
	if len(body) < nBins*recLen {
		return nil, errShortPayload
	}
	bins := make([]PhaseBin, nBins)
	for i := 0; i < nBins; i++ {
		rec := body[i*recLen : i*recLen+recLen]
		bins[i] = PhaseBin{
			Bin:       readU16(rec[0:2]),
			Phase:     Q15PhaseToRadians(readI16(rec[2:4])),
			Magnitude: readU16(rec[4:6]),
			Flags:     readU16(rec[6:8]),
		}
	}
	return ChirpPhase{CenterBin: centerBin, TimestampUs: ts, Bins: bins}, nil
}

// ChirpPresenceState enumerates the firmware's presence classification.
type ChirpPresenceState uint8

const (
	PresenceAbsent  ChirpPresenceState = 0
	PresencePresent ChirpPresenceState = 1
	PresenceMotion  ChirpPresenceState = 2
)

// ChirpPresence is the decoded TLV type 0x0540 payload.
type ChirpPresence struct {
	State      ChirpPresenceState
	Confidence uint8
	RangeM     float32
	TargetBin  uint16
}

func (ChirpPresence) tlvType() uint32 { return TypeChirpPresence }

func decodeChirpPresence(payload []byte) (Record, error) {
	if len(payload) < 8 {
		return nil, errShortPayload
	}
	return ChirpPresence{
		State:      ChirpPresenceState(payload[0]),
		Confidence: payload[1],
		RangeM:     Q8RangeToMeters(readU16(payload[2:4])),
		TargetBin:  readU16(payload[4:6]),
	}, nil
}

// ChirpMotion is the decoded TLV type 0x0550 payload.
type ChirpMotion struct {
	Detected  bool
	Level     uint8
	BinCount  uint16
	PeakBin   uint16
	PeakDelta uint16
}

func (ChirpMotion) tlvType() uint32 { return TypeChirpMotion }

func decodeChirpMotion(payload []byte) (Record, error) {
	if len(payload) < 8 {
		return nil, errShortPayload
	}
	return ChirpMotion{
		Detected:  payload[0] != 0,
		Level:     payload[1],
		BinCount:  readU16(payload[2:4]),
		PeakBin:   readU16(payload[4:6]),
		PeakDelta: readU16(payload[6:8]),
	}, nil
}

// ChirpTargetInfo is the decoded TLV type 0x0560 payload.
type ChirpTargetInfo struct {
	PrimaryBin   uint16
	PrimaryMag   uint16
	RangeM       float32
	Confidence   uint8
	NumTargets   uint8
	SecondaryBin uint16
}

func (ChirpTargetInfo) tlvType() uint32 { return TypeChirpTargetInfo }

func decodeChirpTargetInfo(payload []byte) (Record, error) {
	if len(payload) < 10 {
		return nil, errShortPayload
	}
	return ChirpTargetInfo{
		PrimaryBin:   readU16(payload[0:2]),
		PrimaryMag:   readU16(payload[2:4]),
		RangeM:       Q8RangeToMeters(readU16(payload[4:6])),
		Confidence:   payload[6],
		NumTargets:   payload[7],
		SecondaryBin: readU16(payload[8:10]),
	}, nil
}
