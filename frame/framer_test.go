package frame

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// buildFrame constructs a raw, well-formed frame with the given frame
// number and TLV payload (opaque bytes, already concatenated).
func buildFrame(t testing.TB, frameNumber, numTLVs uint32, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, HeaderLen+len(payload))
	copy(buf[0:8], Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], 1)                               // version
	binary.LittleEndian.PutUint32(buf[12:16], uint32(HeaderLen+len(payload))) // packet length
	binary.LittleEndian.PutUint32(buf[16:20], 0)                              // platform
	binary.LittleEndian.PutUint32(buf[20:24], frameNumber)
	binary.LittleEndian.PutUint32(buf[24:28], 0) // time
	binary.LittleEndian.PutUint32(buf[28:32], 0) // num detected obj
	binary.LittleEndian.PutUint32(buf[32:36], numTLVs)
	binary.LittleEndian.PutUint32(buf[36:40], 0) // subframe
	copy(buf[HeaderLen:], payload)
	return buf
}

func TestFramer_SynthFramePassThrough(t *testing.T) {
	raw := buildFrame(t, 1, 0, nil)

	f := New()
	f.Append(raw)
	got, ok := f.ExtractFrame()
	require.True(t, ok)
	assert.Equal(t, raw, got.Raw)
	assert.Equal(t, uint32(1), got.Header.FrameNumber)
}

func TestFramer_ResyncAfterGarbage(t *testing.T) {
	raw := buildFrame(t, 7, 0, nil)
	garbage := bytes.Repeat([]byte{0xff}, 64)

	f := New()
	f.Append(garbage)
	f.Append(raw)

	got, ok := f.ExtractFrame()
	require.True(t, ok)
	assert.Equal(t, raw, got.Raw)
	assert.Equal(t, uint32(7), got.Header.FrameNumber)

	_, ok = f.ExtractFrame()
	assert.False(t, ok, "only one frame should have been present")
}

func TestFramer_PartialFeeds(t *testing.T) {
	raw := buildFrame(t, 3, 1, []byte("abcdefgh"))

	for split := 1; split < len(raw); split++ {
		f := New()
		f.Append(raw[:split])
		_, ok := f.ExtractFrame()
		assert.False(t, ok, "split=%d: should not extract from a partial frame", split)

		f.Append(raw[split:])
		got, ok := f.ExtractFrame()
		require.True(t, ok, "split=%d", split)
		assert.Equal(t, raw, got.Raw)
	}
}

func TestFramer_LengthFieldGuardDoesNotStall(t *testing.T) {
	buf := make([]byte, HeaderLen)
	copy(buf[0:8], Magic[:])
	binary.LittleEndian.PutUint32(buf[12:16], uint32(DefaultMaxBuffer+1)) // bogus length

	f := New()
	f.Append(buf)
	_, ok := f.ExtractFrame()
	assert.False(t, ok)
	assert.LessOrEqual(t, f.Len(), HeaderLen, "framer should have dropped the spurious magic")
}

func TestFramer_BoundedBuffer(t *testing.T) {
	f := NewWithMaxBuffer(DefaultMaxBuffer)
	noise := bytes.Repeat([]byte{0x5a}, DefaultMaxBuffer*4)
	f.Append(noise)
	_, ok := f.ExtractFrame()
	assert.False(t, ok)
	assert.LessOrEqual(t, f.Len(), 1024)
}

// TestFramer_ResyncProperty checks that for any garbage prefix not
// containing the magic marker, followed by a valid frame, the framer
// emits exactly one frame identical to the original.
func TestFramer_ResyncProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		garbage := rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "garbage")
		garbage = stripMagic(garbage)

		frameNum := uint32(rapid.IntRange(0, 1<<20).Draw(t, "frameNum"))
		payloadLen := rapid.IntRange(0, 64).Draw(t, "payloadLen")
		payload := rapid.SliceOfN(rapid.Byte(), payloadLen, payloadLen).Draw(t, "payload")
		raw := buildFrame(t, frameNum, 0, payload)

		f := New()
		f.Append(garbage)
		f.Append(raw)

		got, ok := f.ExtractFrame()
		if !ok {
			t.Fatalf("expected a frame, got none (garbage len %d)", len(garbage))
		}
		if !bytes.Equal(got.Raw, raw) {
			t.Fatalf("frame mismatch: got %x want %x", got.Raw, raw)
		}
	})
}

// TestFramer_PartialFeedProperty checks that feeding a valid frame in
// arbitrary chunks, calling ExtractFrame between each, yields exactly
// one frame identical to the original once all chunks have arrived.
func TestFramer_PartialFeedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payloadLen := rapid.IntRange(0, 48).Draw(t, "payloadLen")
		payload := rapid.SliceOfN(rapid.Byte(), payloadLen, payloadLen).Draw(t, "payload")
		raw := buildFrame(t, 42, 0, payload)

		nParts := rapid.IntRange(1, len(raw)).Draw(t, "nParts")
		cuts := make([]int, 0, nParts+1)
		cuts = append(cuts, 0)
		for i := 1; i < nParts; i++ {
			cuts = append(cuts, rapid.IntRange(0, len(raw)).Draw(t, "cut"))
		}
		cuts = append(cuts, len(raw))

		f := New()
		var lastFrame Frame
		var sawFrame bool
		off := 0
		for _, c := range cuts[1:] {
			if c < off {
				c = off
			}
			if c > len(raw) {
				c = len(raw)
			}
			f.Append(raw[off:c])
			off = c
			if fr, ok := f.ExtractFrame(); ok {
				lastFrame = fr
				sawFrame = true
			}
		}
		// Ensure any remaining bytes are flushed.
		if !sawFrame {
			if fr, ok := f.ExtractFrame(); ok {
				lastFrame = fr
				sawFrame = true
			}
		}
		if !sawFrame {
			t.Fatalf("expected exactly one frame after all parts delivered")
		}
		if !bytes.Equal(lastFrame.Raw, raw) {
			t.Fatalf("frame mismatch: got %x want %x", lastFrame.Raw, raw)
		}
	})
}

// stripMagic removes any occurrence of the magic marker from b so that it
// qualifies as a "prefix not containing the magic marker".
func stripMagic(b []byte) []byte {
	for {
		i := bytes.Index(b, Magic[:])
		if i < 0 {
			return b
		}
		b = append(b[:i], b[i+1:]...)
	}
}
