/*
NAME
  points.go

DESCRIPTION
  points.go decodes TLV type 1, detected point clouds, inferring the
  16- or 24-byte record layout from the payload length.

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

const (
	pointRecShort = 16 // x,y,z,velocity (f32 each)
	pointRecLong  = 24 // + snr, noise (f32 each)
)

// Point is a single detected point.
type Point struct {
	X, Y, Z  float32
	Velocity float32

	// SNR and Noise are populated only for the 24-byte record layout;
	// HasSNR reports whether they are present.
	SNR, Noise float32
	HasSNR     bool
}

// DetectedPoints is the decoded TLV type 1 payload.
type DetectedPoints struct {
	Points []Point
}

func (DetectedPoints) tlvType() uint32 { return TypeDetectedPoints }

// decodeDetectedPoints infers the record size from length: 24-byte
// records when length is a multiple of 24 but not of 16, else 16-byte
// records.
func decodeDetectedPoints(payload []byte) (Record, error) {
	recSize := pointRecShort
	if len(payload)%pointRecLong == 0 && len(payload)%pointRecShort != 0 {
		recSize = pointRecLong
	}
	if len(payload) == 0 || len(payload)%recSize != 0 {
		return nil, errShortPayload
	}

	n := len(payload) / recSize
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		rec := payload[i*recSize : (i+1)*recSize]
		p := Point{
			X:        readF32(rec[0:4]),
			Y:        readF32(rec[4:8]),
			Z:        readF32(rec[8:12]),
			Velocity: readF32(rec[12:16]),
		}
		if recSize == pointRecLong {
			p.SNR = readF32(rec[16:20])
			p.Noise = readF32(rec[20:24])
			p.HasSNR = true
		}
		pts[i] = p
	}
	return DetectedPoints{Points: pts}, nil
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
