/*
NAME
  framer.go

DESCRIPTION
  framer.go implements Framer, a streaming byte-stream decoder that
  resynchronizes on the magic marker and extracts complete frames as
  bytes accumulate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import "bytes"

// Defaults for Framer tunables.
const (
	// DefaultMaxBuffer is the hard cap on the internal resync buffer.
	DefaultMaxBuffer = 64 << 10 // 64 KiB

	// trailingRetain is how many bytes ExtractFrame keeps when no magic
	// marker is found anywhere in the buffer; large enough to hold a
	// marker that has only partly arrived.
	trailingRetain = 16

	// noMagicRetain is how many bytes are kept when append() alone grows
	// the buffer past MaxBuffer with no marker present at all.
	noMagicRetain = 1024
)

// Framer converts a byte stream into a sequence of Frames. It resolves
// resynchronization by searching for the magic marker and validates the
// frame length reported by the header before extracting a frame. Framer
// is not safe for concurrent use; it is intended to be owned by a single
// acquisition task (see package acquisition).
type Framer struct {
	buf       []byte
	maxBuffer int
}

// New returns a Framer with the default maximum buffer size.
func New() *Framer {
	return &Framer{maxBuffer: DefaultMaxBuffer}
}

// NewWithMaxBuffer returns a Framer whose internal resync buffer is capped
// at maxBuffer bytes.
func NewWithMaxBuffer(maxBuffer int) *Framer {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &Framer{maxBuffer: maxBuffer}
}

// Append appends b to the framer's internal buffer. If the buffer grows
// beyond its cap, Append attempts to retain only data from the most
// recent magic marker; if none is found, it retains only the trailing
// 1 KiB.
func (f *Framer) Append(b []byte) {
	f.buf = append(f.buf, b...)
	if len(f.buf) <= f.maxBuffer {
		return
	}
	if i := bytes.LastIndex(f.buf, Magic[:]); i >= 0 {
		f.buf = append([]byte(nil), f.buf[i:]...)
		return
	}
	tail := f.buf[len(f.buf)-noMagicRetain:]
	f.buf = append([]byte(nil), tail...)
}

// Len returns the number of bytes currently buffered.
func (f *Framer) Len() int { return len(f.buf) }

// ExtractFrame returns the next complete frame from the buffered bytes,
// or ok == false if there is not yet enough data. ExtractFrame never
// blocks.
func (f *Framer) ExtractFrame() (fr Frame, ok bool) {
	i := bytes.Index(f.buf, Magic[:])
	if i < 0 {
		// No marker anywhere in the buffer; keep only the trailing bytes
		// that might be the start of a marker that hasn't fully arrived.
		if len(f.buf) > trailingRetain {
			f.buf = append([]byte(nil), f.buf[len(f.buf)-trailingRetain:]...)
		}
		return Frame{}, false
	}
	if i > 0 {
		// Drop garbage (or a stale partial frame) preceding the marker.
		f.buf = f.buf[i:]
	}
	if len(f.buf) < HeaderLen {
		return Frame{}, false
	}

	hdr, err := ParseHeader(f.buf)
	if err != nil {
		// Should not happen: we just matched Magic at offset 0.
		f.buf = f.buf[8:]
		return Frame{}, false
	}

	if hdr.PacketLength < HeaderLen || int(hdr.PacketLength) > f.maxBuffer {
		// Spurious length field; skip past the magic we matched and let
		// the next call resynchronize further along.
		f.buf = f.buf[8:]
		return Frame{}, false
	}

	if len(f.buf) < int(hdr.PacketLength) {
		return Frame{}, false
	}

	raw := make([]byte, hdr.PacketLength)
	copy(raw, f.buf[:hdr.PacketLength])
	f.buf = f.buf[hdr.PacketLength:]

	return Frame{Header: hdr, Raw: raw}, true
}
