/*
NAME
  stats.go

DESCRIPTION
  stats.go tracks running counters for the acquisition loop: frames
  processed, decode failures, sink write failures, and bytes read, all
  of which are non-fatal and simply counted.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acquisition

import "sync/atomic"

// Stats is a point-in-time snapshot of a Device's running counters. It
// holds plain fields and is safe to copy, unlike counters.
type Stats struct {
	FramesProcessed uint64
	DecodeErrors    uint64
	SinkErrors      uint64
	BytesRead       uint64
}

// counters holds the live atomic counters backing Stats. It must never
// be copied; Device embeds one by value and only ever takes its
// address.
type counters struct {
	framesProcessed atomic.Uint64
	decodeErrors    atomic.Uint64
	sinkErrors      atomic.Uint64
	bytesRead       atomic.Uint64
}

func (c *counters) incFramesProcessed()   { c.framesProcessed.Add(1) }
func (c *counters) addDecodeErrors(n int) { c.decodeErrors.Add(uint64(n)) }
func (c *counters) incSinkErrors()        { c.sinkErrors.Add(1) }
func (c *counters) addBytesRead(n int)    { c.bytesRead.Add(uint64(n)) }

func (c *counters) snapshot() Stats {
	return Stats{
		FramesProcessed: c.framesProcessed.Load(),
		DecodeErrors:    c.decodeErrors.Load(),
		SinkErrors:      c.sinkErrors.Load(),
		BytesRead:       c.bytesRead.Load(),
	}
}
