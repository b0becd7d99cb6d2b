/*
NAME
  transport.go

DESCRIPTION
  transport.go defines the external collaborator interfaces the
  acquisition device depends on: the raw byte transport carrying sensor
  frames, the line-oriented control transport carrying configuration
  commands, the recording sink, and the configuration command-list
  provider. Concrete implementations (serial ports, files, sockets) live
  outside this package.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acquisition

import (
	"time"

	"github.com/vitalwave/radarcore/pipeline"
	"github.com/vitalwave/radarcore/vitals"
)

// ByteTransport is the raw data-carrying transport, e.g. a serial port
// or socket streaming frame bytes from the sensor.
type ByteTransport interface {
	// Open establishes the transport.
	Open() error

	// Read fills p with as many bytes as are available within the
	// transport's current read timeout, returning the number read.
	// A timeout with no bytes read returns (0, nil).
	Read(p []byte) (int, error)

	// SetReadTimeout bounds the duration of a subsequent Read.
	SetReadTimeout(d time.Duration) error

	// Close releases the transport. Close is idempotent.
	Close() error
}

// ControlTransport is the line-oriented text channel used to configure
// the sensor. Commands are written terminated with "\n"; acknowledgement
// lines contain "Done" on success and "Error" on failure.
type ControlTransport interface {
	Open() error
	WriteLine(s string) error
	ReadLine(timeout time.Duration) (string, error)
	Close() error
}

// ConfigProvider resolves a named configuration into an ordered list of
// control-transport commands. It is supplied externally, e.g. backed by
// a file or a remote configuration service.
type ConfigProvider interface {
	Commands(name string) ([]string, error)
}

// Sink is a recording destination for processed frames and vitals
// estimates. Write failures are treated by the acquisition loop as
// non-fatal: they are counted and do not interrupt streaming. Close is
// idempotent.
type Sink interface {
	WriteFrame(f pipeline.ProcessedFrame) error
	WriteVitals(v vitals.Vitals) error
	Close() error
}

// NopSink discards everything written to it. It is useful as a default
// when no recording destination has been configured.
type NopSink struct{}

func (NopSink) WriteFrame(pipeline.ProcessedFrame) error { return nil }
func (NopSink) WriteVitals(vitals.Vitals) error           { return nil }
func (NopSink) Close() error                              { return nil }

