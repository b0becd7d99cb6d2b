/*
NAME
  device.go

DESCRIPTION
  device.go implements Device, which owns the acquisition state machine
  together with the transports, sink, and broadcast fabric it gates. It
  provides Connect, Disconnect, and EmergencyStop, mirroring the
  start/stop lifecycle of a long-running capture session: construction
  takes a Config describing the collaborators, and Connect wires them up
  and starts the supervised acquisition loop on reaching streaming.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acquisition

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/vitalwave/radarcore/broadcast"
	"github.com/vitalwave/radarcore/fall"
	"github.com/vitalwave/radarcore/pipeline"
	"github.com/vitalwave/radarcore/pointcloud"
	"github.com/vitalwave/radarcore/vitals"
)

// Default timeouts, per Config.
const (
	DefaultFrameTimeout  = 100 * time.Millisecond
	DefaultAckTimeout    = 30 * time.Millisecond
	DefaultMaxBufferSize = 64 * 1024
)

// SensorTopic is the broadcast topic carrying both frame and vitals
// events, matching the single "sensor" topic of the wire protocol.
const SensorTopic = "sensor"

// ByteTransportFactory constructs a ByteTransport bound to port.
type ByteTransportFactory func(port string) (ByteTransport, error)

// ControlTransportFactory constructs a ControlTransport bound to port.
type ControlTransportFactory func(port string) (ControlTransport, error)

// Config collects the collaborators and tunables a Device needs. Zero
// timeouts are replaced by documented defaults.
type Config struct {
	Logger logging.Logger

	NewDataTransport    ByteTransportFactory
	NewControlTransport ControlTransportFactory
	ConfigProvider      ConfigProvider

	Sink       Sink
	Fabric     *broadcast.Fabric
	Pipeline   pipeline.Config
	Vitals     vitals.Config
	PointCloud pointcloud.Config
	Fall       fall.Config

	FrameTimeout  time.Duration
	AckTimeout    time.Duration
	MaxBufferSize int
}

// Device is the acquisition state machine plus its supervised
// acquisition loop. It is safe for concurrent use: Connect, Disconnect,
// EmergencyStop, and OnStateChange may be called from any task.
type Device struct {
	mu        sync.Mutex
	current   State
	observers []Observer

	logger logging.Logger
	cfg    Config

	dataTransport    ByteTransport
	controlTransport ControlTransport
	sink             Sink
	fabric           *broadcast.Fabric

	stats counters

	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Device in the disconnected state, configured by cfg.
func New(cfg Config) *Device {
	if cfg.Logger == nil {
		cfg.Logger = logging.New(logging.Info, io.Discard, false)
	}
	if cfg.FrameTimeout == 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if cfg.AckTimeout == 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.MaxBufferSize == 0 {
		cfg.MaxBufferSize = DefaultMaxBufferSize
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Fabric == nil {
		cfg.Fabric = broadcast.New(broadcast.DefaultInboxCapacity)
	}

	return &Device{
		current: Disconnected,
		logger:  cfg.Logger,
		cfg:     cfg,
		sink:    cfg.Sink,
		fabric:  cfg.Fabric,
	}
}

// Stats returns a snapshot of the device's running counters.
func (d *Device) Stats() Stats {
	return d.stats.snapshot()
}

// Connect opens the control and data transports bound to cliPort and
// dataPort, loads the named configuration, writes it to the control
// transport, and on success starts the acquisition loop. It fails with
// AlreadyConnectedError unless the device is disconnected.
func (d *Device) Connect(cliPort, dataPort, configName string) error {
	if s := d.state(); s != Disconnected {
		return &AlreadyConnectedError{Current: s}
	}

	if err := d.transition(Connecting, "connect requested"); err != nil {
		return err
	}

	data, err := d.cfg.NewDataTransport(dataPort)
	if err != nil {
		d.fail("open data transport", err)
		return &TransportError{Op: "open data transport", Err: err}
	}
	if err := data.Open(); err != nil {
		d.fail("open data transport", err)
		return &TransportError{Op: "open data transport", Err: err}
	}

	ctrl, err := d.cfg.NewControlTransport(cliPort)
	if err != nil {
		d.fail("open control transport", err)
		return &TransportError{Op: "open control transport", Err: err}
	}
	if err := ctrl.Open(); err != nil {
		d.fail("open control transport", err)
		return &TransportError{Op: "open control transport", Err: err}
	}

	d.dataTransport = data
	d.controlTransport = ctrl

	if err := d.transition(Configuring, "transports opened"); err != nil {
		return err
	}

	commands, err := d.cfg.ConfigProvider.Commands(configName)
	if err != nil {
		d.fail("load configuration", err)
		return &ConfigurationError{Command: configName, Reply: err.Error()}
	}

	for _, cmd := range commands {
		if err := d.controlTransport.WriteLine(cmd); err != nil {
			d.fail("write command", err)
			return &TransportError{Op: "write command " + cmd, Err: err}
		}
		reply, err := d.controlTransport.ReadLine(d.cfg.AckTimeout)
		if err != nil {
			d.fail("read ack", err)
			return &TransportError{Op: "read ack for " + cmd, Err: err}
		}
		if containsError(reply) {
			d.fail("device rejected command", nil)
			return &ConfigurationError{Command: cmd, Reply: reply}
		}
	}

	if err := d.transition(Streaming, "configuration complete"); err != nil {
		return err
	}

	d.startLoop()
	return nil
}

// Disconnect cancels the acquisition loop (if running), closes both
// transports, and transitions to disconnected. It is idempotent: calling
// it while already disconnected is a no-op.
func (d *Device) Disconnect() {
	d.teardown("disconnect requested")
}

// EmergencyStop has an identical contract to Disconnect, logged at a
// higher severity to distinguish an operator-triggered abort from a
// routine shutdown.
func (d *Device) EmergencyStop() {
	d.logger.Error("emergency stop requested")
	d.teardown("emergency stop")
}

func (d *Device) teardown(reason string) {
	if d.state() == Disconnected {
		return
	}

	d.stopLoop()

	if d.dataTransport != nil {
		if err := d.dataTransport.Close(); err != nil {
			d.logger.Error("error closing data transport", "error", err.Error())
		}
	}
	if d.controlTransport != nil {
		if err := d.controlTransport.Close(); err != nil {
			d.logger.Error("error closing control transport", "error", err.Error())
		}
	}

	// From whatever state teardown started in (streaming, configuring,
	// connecting, or error), disconnected is always reachable.
	_ = d.transition(Disconnected, reason)
}

// fail transitions the device to the error state, logging cause if
// given. The transition error is intentionally discarded: fail is only
// called while already mid-operation, and error is always reachable.
func (d *Device) fail(op string, cause error) {
	if cause != nil {
		d.logger.Error("acquisition failure", "op", op, "error", cause.Error())
	} else {
		d.logger.Error("acquisition failure", "op", op)
	}
	_ = d.transition(Error, op)
}

func containsError(reply string) bool {
	return strings.Contains(reply, "Error")
}
