/*
NAME
  rangeprofile.go

DESCRIPTION
  rangeprofile.go decodes TLV types 2 (range profile) and 5 (range-Doppler
  heatmap), both arrays of u16 magnitudes transformed to dB.

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

// MagnitudeToDB converts a raw u16 magnitude to decibels using the +1
// stabilizer required to tolerate a zero magnitude.
func MagnitudeToDB(v uint16) float32 {
	return float32(20 * math.Log10(float64(v)+1))
}

func decodeU16Magnitudes(payload []byte) ([]float32, error) {
	if len(payload)%2 != 0 {
		return nil, errShortPayload
	}
	n := len(payload) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := binary.LittleEndian.Uint16(payload[i*2 : i*2+2])
		out[i] = MagnitudeToDB(v)
	}
	return out, nil
}

// RangeProfile is the decoded TLV type 2 payload: per-bin magnitude in dB.
type RangeProfile struct {
	Bins []float32
}

func (RangeProfile) tlvType() uint32 { return TypeRangeProfile }

func decodeRangeProfile(payload []byte) (Record, error) {
	bins, err := decodeU16Magnitudes(payload)
	if err != nil {
		return nil, err
	}
	return RangeProfile{Bins: bins}, nil
}

// RangeDoppler is the decoded TLV type 5 payload: a magnitude map in dB,
// reshaped to a square if a perfect square element count, else to
// 256-column rows if evenly divisible by 256, else left 1-D.
type RangeDoppler struct {
	// Data holds the flattened, row-major magnitudes.
	Data []float32
	Rows int // Rows == 1 when the data is kept 1-D.
	Cols int
}

func (RangeDoppler) tlvType() uint32 { return TypeRangeDoppler }

func decodeRangeDoppler(payload []byte) (Record, error) {
	data, err := decodeU16Magnitudes(payload)
	if err != nil {
		return nil, err
	}
	rows, cols := reshapeDims(len(data))
	return RangeDoppler{Data: data, Rows: rows, Cols: cols}, nil
}

// reshapeDims determines the (rows, cols) shape for n magnitude samples:
// a perfect square reshapes to k×k; otherwise, if evenly divisible by
// 256, reshapes to (n/256, 256) rows; otherwise the data is kept 1-D
// (rows=1, cols=n).
func reshapeDims(n int) (rows, cols int) {
	if n == 0 {
		return 1, 0
	}
	if k := int(math.Sqrt(float64(n))); k*k == n {
		return k, k
	}
	if n%256 == 0 {
		return n / 256, 256
	}
	return 1, n
}
