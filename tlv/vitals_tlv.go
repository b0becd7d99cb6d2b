/*
NAME
  vitals_tlv.go

DESCRIPTION
  vitals_tlv.go decodes TLV type 0x410, the firmware-computed vital-signs
  record. Two wire layouts are observed (long form with 20-sample
  waveforms and a phase field, and a 136-byte short form); both are
  accepted.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tlv

const (
	vitalsPrefixLen   = 28  // range_bin(2) + reserved(2) + 6 f32 fields(24).
	vitalsLongMinLen  = 192 // Prefix + 2x20 f32 waveforms + phase f32.
	vitalsWaveLongLen = 20

	// vitalsShortMinLen is the minimum length to hold the prefix plus two
	// 10-sample waveforms. The wire variant observed in the field pads
	// this out to 136 bytes with trailing reserved bytes this decoder
	// does not need to interpret.
	vitalsShortMinLen  = vitalsPrefixLen + 2*4*vitalsWaveShortLen
	vitalsWaveShortLen = 10
)

// VitalSigns is the decoded TLV type 0x410 payload. Waveforms are always
// normalized to 20 samples; short-form (10-sample) waveforms are
// zero-padded out to 20.
type VitalSigns struct {
	RangeBin uint16

	BreathDeviation float32
	HeartDeviation  float32
	BreathRate      float32
	HeartRate       float32
	BreathConf      float32
	HeartConf       float32

	BreathWaveform []float32
	HeartWaveform  []float32

	// UnwrappedPhase is 0 when the short-form (136-byte) layout, which
	// carries no phase field, was decoded.
	UnwrappedPhase float32
}

func (VitalSigns) tlvType() uint32 { return TypeVitalSigns }

func decodeVitalSigns(payload []byte) (Record, error) {
	if len(payload) < vitalsPrefixLen {
		return nil, errShortPayload
	}

	v := VitalSigns{
		RangeBin:        readU16(payload[0:2]),
		BreathDeviation: readF32(payload[4:8]),
		HeartDeviation:  readF32(payload[8:12]),
		BreathRate:      readF32(payload[12:16]),
		HeartRate:       readF32(payload[16:20]),
		BreathConf:      readF32(payload[20:24]),
		HeartConf:       readF32(payload[24:28]),
	}

	switch {
	case len(payload) >= vitalsLongMinLen:
		v.BreathWaveform = readF32Slice(payload[vitalsPrefixLen:], vitalsWaveLongLen)
		v.HeartWaveform = readF32Slice(payload[vitalsPrefixLen+4*vitalsWaveLongLen:], vitalsWaveLongLen)
		phaseOff := vitalsPrefixLen + 4*vitalsWaveLongLen*2
		if phaseOff+4 <= len(payload) {
			v.UnwrappedPhase = readF32(payload[phaseOff : phaseOff+4])
		}
	case len(payload) >= vitalsShortMinLen:
		short := readF32Slice(payload[vitalsPrefixLen:], vitalsWaveShortLen)
		v.BreathWaveform = padTo(short, vitalsWaveLongLen)
		short = readF32Slice(payload[vitalsPrefixLen+4*vitalsWaveShortLen:], vitalsWaveShortLen)
		v.HeartWaveform = padTo(short, vitalsWaveLongLen)
	default:
		// Prefix-only payload: no waveforms available.
	}

	return v, nil
}

func readU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func readF32Slice(b []byte, n int) []float32 {
	out := make([]float32, n)
	for i := 0; i < n && (i+1)*4 <= len(b); i++ {
		out[i] = readF32(b[i*4 : i*4+4])
	}
	return out
}

func padTo(v []float32, n int) []float32 {
	if len(v) >= n {
		return v[:n]
	}
	out := make([]float32, n)
	copy(out, v)
	return out
}
