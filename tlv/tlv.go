/*
NAME
  tlv.go

DESCRIPTION
  tlv.go walks the TLV records following a frame header and dispatches
  each to a type-specific decoder. The Type constants below form the TLV
  type table.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tlv decodes the heterogeneous, version-sensitive TLV dictionary
// carried in a sensor frame's payload (see package frame for the raw
// byte framing this package consumes).
package tlv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/vitalwave/radarcore/frame"
)

// Type codes recognized in the TLV dictionary.
const (
	TypeDetectedPoints     = 1
	TypeRangeProfile       = 2
	TypeRangeDoppler       = 5
	TypeVitalSigns         = 0x410
	TypeChirpComplexFFT    = 0x0500
	TypeChirpTargetIQ      = 0x0510
	TypeChirpPhase         = 0x0520
	TypeChirpPresence      = 0x0540
	TypeChirpMotion        = 0x0550
	TypeChirpTargetInfo    = 0x0560
	tlvHeaderLen           = 8 // 4-byte type + 4-byte length
)

// Record is implemented by every decoded TLV payload type.
type Record interface {
	// tlvType returns the TLV type code this record was decoded from.
	tlvType() uint32
}

// Decoded is the result of walking a frame's TLV dictionary: the records
// that decoded successfully, in wire order, and counters for TLVs that
// were skipped (unknown type) or failed to decode (malformed payload).
// A frame is still emitted with whatever decoded successfully; decode
// failures are never fatal to the frame.
type Decoded struct {
	Records []Record
	Skipped int // Unknown TLV types.
	Failed  int // Recognized types with malformed payloads.
}

// Points returns the first DetectedPoints record, if any.
func (d Decoded) Points() (DetectedPoints, bool) {
	for _, r := range d.Records {
		if p, ok := r.(DetectedPoints); ok {
			return p, true
		}
	}
	return DetectedPoints{}, false
}

// RangeProfile returns the first RangeProfile record, if any.
func (d Decoded) RangeProfile() (RangeProfile, bool) {
	for _, r := range d.Records {
		if p, ok := r.(RangeProfile); ok {
			return p, true
		}
	}
	return RangeProfile{}, false
}

// RangeDoppler returns the first RangeDoppler record, if any.
func (d Decoded) RangeDoppler() (RangeDoppler, bool) {
	for _, r := range d.Records {
		if p, ok := r.(RangeDoppler); ok {
			return p, true
		}
	}
	return RangeDoppler{}, false
}

// VitalSigns returns the first VitalSigns record, if any.
func (d Decoded) VitalSigns() (VitalSigns, bool) {
	for _, r := range d.Records {
		if p, ok := r.(VitalSigns); ok {
			return p, true
		}
	}
	return VitalSigns{}, false
}

// ChirpComplexFFT returns the first ChirpComplexFFT record, if any.
func (d Decoded) ChirpComplexFFT() (ChirpComplexFFT, bool) {
	for _, r := range d.Records {
		if p, ok := r.(ChirpComplexFFT); ok {
			return p, true
		}
	}
	return ChirpComplexFFT{}, false
}

// ChirpTargetIQ returns the first ChirpTargetIQ record, if any.
func (d Decoded) ChirpTargetIQ() (ChirpTargetIQ, bool) {
	for _, r := range d.Records {
		if p, ok := r.(ChirpTargetIQ); ok {
			return p, true
		}
	}
	return ChirpTargetIQ{}, false
}

// ChirpPhase returns the first ChirpPhase record, if any.
func (d Decoded) ChirpPhase() (ChirpPhase, bool) {
	for _, r := range d.Records {
		if p, ok := r.(ChirpPhase); ok {
			return p, true
		}
	}
	return ChirpPhase{}, false
}

// ChirpMotion returns the first ChirpMotion record, if any.
func (d Decoded) ChirpMotion() (ChirpMotion, bool) {
	for _, r := range d.Records {
		if p, ok := r.(ChirpMotion); ok {
			return p, true
		}
	}
	return ChirpMotion{}, false
}

// ChirpPresence returns the first ChirpPresence record, if any.
func (d Decoded) ChirpPresence() (ChirpPresence, bool) {
	for _, r := range d.Records {
		if p, ok := r.(ChirpPresence); ok {
			return p, true
		}
	}
	return ChirpPresence{}, false
}

// ChirpTargetInfo returns the first ChirpTargetInfo record, if any.
func (d Decoded) ChirpTargetInfo() (ChirpTargetInfo, bool) {
	for _, r := range d.Records {
		if p, ok := r.(ChirpTargetInfo); ok {
			return p, true
		}
	}
	return ChirpTargetInfo{}, false
}

// decoder is a per-type payload decoder. It returns a decode-failed error
// for short/malformed payloads rather than panicking.
type decoder func(payload []byte) (Record, error)

var decoders = map[uint32]decoder{
	TypeDetectedPoints:  decodeDetectedPoints,
	TypeRangeProfile:    decodeRangeProfile,
	TypeRangeDoppler:    decodeRangeDoppler,
	TypeVitalSigns:      decodeVitalSigns,
	TypeChirpComplexFFT: decodeChirpComplexFFT,
	TypeChirpTargetIQ:   decodeChirpTargetIQ,
	TypeChirpPhase:      decodeChirpPhase,
	TypeChirpPresence:   decodeChirpPresence,
	TypeChirpMotion:     decodeChirpMotion,
	TypeChirpTargetInfo: decodeChirpTargetInfo,
}

// Decode walks the TLV records in payload, dispatching num TLVs to their
// type-specific decoder. Unknown types are skipped. A TLV whose decoder
// reports a decode failure is skipped rather than aborting the walk; the
// error is never returned to the caller, but counts are available via
// Decoded.Skipped/Failed.
func Decode(payload []byte, num uint32) Decoded {
	var out Decoded
	off := 0
	for i := uint32(0); i < num; i++ {
		if off+tlvHeaderLen > len(payload) {
			break // Truncated TLV dictionary; stop walking.
		}
		typ := binary.LittleEndian.Uint32(payload[off : off+4])
		length := binary.LittleEndian.Uint32(payload[off+4 : off+8])
		off += tlvHeaderLen

		if off+int(length) > len(payload) {
			break // Reported length runs past the buffer; stop walking.
		}
		body := payload[off : off+int(length)]
		off += int(length)

		dec, ok := decoders[typ]
		if !ok {
			out.Skipped++
			continue
		}
		rec, err := dec(body)
		if err != nil {
			out.Failed++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// DecodeFrame is a convenience wrapper that decodes the TLV dictionary of
// a frame.Frame, using its header's NumTLVs count. It routes through the
// same Decode dispatch table as the buffer-oriented entry point, so the
// two historical call sites share one decoder.
func DecodeFrame(f frame.Frame) Decoded {
	return Decode(f.Payload(), f.Header.NumTLVs)
}

// errShortPayload is returned by individual decoders when a payload is too
// small to contain its fixed-size fields.
var errShortPayload = errors.New("tlv: short payload")
