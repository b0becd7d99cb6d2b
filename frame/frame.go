/*
NAME
  frame.go

DESCRIPTION
  frame.go defines the wire header and frame types produced by Framer.
  Magic, HeaderLen and ParseHeader below define the wire format this
  package decodes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame provides a streaming byte-stream framer for the sensor's
// magic-marker-delimited binary frames. Framer only deals with bytes; it
// has no knowledge of TLV contents (see package tlv for that).
package frame

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Magic is the fixed 8-byte sequence that begins every frame.
var Magic = [8]byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0x08, 0x07}

// HeaderLen is the total size, in bytes, of the magic marker plus header
// fields, i.e. the offset at which TLV data begins.
const HeaderLen = 40

// ErrShortHeader is returned when fewer than HeaderLen bytes are available
// to parse a Header.
var ErrShortHeader = errors.New("frame: short header")

// Header is the fixed-size frame header that follows the magic marker.
type Header struct {
	Version        uint32
	PacketLength   uint32 // Counts the entire frame, including marker and header.
	Platform       uint32
	FrameNumber    uint32
	TimeCPUCycles  uint32
	NumDetectedObj uint32
	NumTLVs        uint32
	SubframeNumber uint32
}

// ParseHeader parses the 40-byte header (including the leading magic
// marker) from b. b must be at least HeaderLen bytes.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	if [8]byte(b[0:8]) != Magic {
		return Header{}, errors.New("frame: missing magic marker")
	}
	return Header{
		Version:        binary.LittleEndian.Uint32(b[8:12]),
		PacketLength:   binary.LittleEndian.Uint32(b[12:16]),
		Platform:       binary.LittleEndian.Uint32(b[16:20]),
		FrameNumber:    binary.LittleEndian.Uint32(b[20:24]),
		TimeCPUCycles:  binary.LittleEndian.Uint32(b[24:28]),
		NumDetectedObj: binary.LittleEndian.Uint32(b[28:32]),
		NumTLVs:        binary.LittleEndian.Uint32(b[32:36]),
		SubframeNumber: binary.LittleEndian.Uint32(b[36:40]),
	}, nil
}

// Frame is a single decoded frame: its header and the raw bytes of the
// entire frame (marker, header, and TLV payload), retained for replay.
// The TLV payload itself is left undecoded; use package tlv to decode it.
type Frame struct {
	Header Header

	// Raw holds the entire frame as received, including the magic marker
	// and header. It is not mutated after being handed out by Framer.
	Raw []byte
}

// Payload returns the bytes following the header, i.e. the concatenated
// TLV records described by Header.NumTLVs.
func (f Frame) Payload() []byte {
	if len(f.Raw) < HeaderLen {
		return nil
	}
	return f.Raw[HeaderLen:]
}
