package acquisition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalwave/radarcore/frame"
	"github.com/vitalwave/radarcore/pipeline"
	"github.com/vitalwave/radarcore/vitals"
)

// memByteTransport is an in-memory ByteTransport fixture: Read drains a
// fixed buffer, then blocks (respecting its timeout) as if no further
// data had arrived, simulating a live but idle sensor stream.
type memByteTransport struct {
	mu      sync.Mutex
	data    []byte
	timeout time.Duration
	opened  bool
	closed  bool
	failOpen bool
}

func (m *memByteTransport) Open() error {
	if m.failOpen {
		return errors.New("forced open failure")
	}
	m.opened = true
	return nil
}

func (m *memByteTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) == 0 {
		time.Sleep(m.timeout)
		return 0, nil
	}
	n := copy(p, m.data)
	m.data = m.data[n:]
	return n, nil
}

func (m *memByteTransport) SetReadTimeout(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
	return nil
}

func (m *memByteTransport) Close() error {
	m.closed = true
	return nil
}

// memControlTransport is an in-memory ControlTransport fixture that acks
// every written line with "Done", unless the line matches a configured
// failure trigger.
type memControlTransport struct {
	mu       sync.Mutex
	written  []string
	failWith string
	closed   bool
}

func (m *memControlTransport) Open() error { return nil }

func (m *memControlTransport) WriteLine(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, s)
	return nil
}

func (m *memControlTransport) ReadLine(timeout time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.written) == 0 {
		return "", errors.New("nothing written")
	}
	last := m.written[len(m.written)-1]
	if m.failWith != "" && last == m.failWith {
		return "Error: rejected", nil
	}
	return "Done", nil
}

func (m *memControlTransport) Close() error {
	m.closed = true
	return nil
}

type staticConfigProvider struct {
	commands []string
	err      error
}

func (p staticConfigProvider) Commands(name string) ([]string, error) {
	return p.commands, p.err
}

// recordingSink captures every frame and vitals write for assertions.
type recordingSink struct {
	mu     sync.Mutex
	frames []pipeline.ProcessedFrame
	vitals []vitals.Vitals
	closed bool
}

func (s *recordingSink) WriteFrame(f pipeline.ProcessedFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *recordingSink) WriteVitals(v vitals.Vitals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vitals = append(s.vitals, v)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// buildRawFrame assembles one well-formed frame byte sequence carrying
// no TLVs, for loop plumbing tests where TLV content is irrelevant.
func buildRawFrame(frameNumber uint32) []byte {
	buf := new(bytes.Buffer)
	buf.Write(frame.Magic[:])
	header := make([]byte, frame.HeaderLen-8)
	binary.LittleEndian.PutUint32(header[0:4], 1) // Version.
	binary.LittleEndian.PutUint32(header[4:8], uint32(frame.HeaderLen))
	binary.LittleEndian.PutUint32(header[8:12], 0) // Platform.
	binary.LittleEndian.PutUint32(header[12:16], frameNumber)
	binary.LittleEndian.PutUint32(header[16:20], frameNumber*1000) // TimeCPUCycles.
	binary.LittleEndian.PutUint32(header[20:24], 0)                // NumDetectedObj.
	binary.LittleEndian.PutUint32(header[24:28], 0)                // NumTLVs.
	binary.LittleEndian.PutUint32(header[28:32], 0)                // SubframeNumber.
	buf.Write(header)
	return buf.Bytes()
}

func testConfig(data *memByteTransport, ctrl *memControlTransport, provider staticConfigProvider, sink Sink) Config {
	return Config{
		NewDataTransport:    func(string) (ByteTransport, error) { return data, nil },
		NewControlTransport: func(string) (ControlTransport, error) { return ctrl, nil },
		ConfigProvider:      provider,
		Sink:                sink,
		FrameTimeout:        10 * time.Millisecond,
		AckTimeout:          5 * time.Millisecond,
	}
}

func TestConnect_HappyPathReachesStreaming(t *testing.T) {
	data := &memByteTransport{}
	ctrl := &memControlTransport{}
	sink := &recordingSink{}
	d := New(testConfig(data, ctrl, staticConfigProvider{commands: []string{"sensorStart"}}, sink))

	err := d.Connect("/dev/ttyCLI", "/dev/ttyDATA", "default")
	require.NoError(t, err)
	assert.Equal(t, Streaming, d.State())
	assert.Equal(t, []string{"sensorStart"}, ctrl.written)

	d.Disconnect()
	assert.Equal(t, Disconnected, d.State())
	assert.True(t, data.closed)
	assert.True(t, ctrl.closed)
}

func TestConnect_RefusesWhenAlreadyConnected(t *testing.T) {
	data := &memByteTransport{}
	ctrl := &memControlTransport{}
	sink := &recordingSink{}
	d := New(testConfig(data, ctrl, staticConfigProvider{}, sink))

	require.NoError(t, d.Connect("cli", "data", "default"))
	err := d.Connect("cli", "data", "default")
	var already *AlreadyConnectedError
	assert.ErrorAs(t, err, &already)

	d.Disconnect()
}

func TestConnect_DataTransportOpenFailureEntersError(t *testing.T) {
	data := &memByteTransport{failOpen: true}
	ctrl := &memControlTransport{}
	d := New(testConfig(data, ctrl, staticConfigProvider{}, &recordingSink{}))

	err := d.Connect("cli", "data", "default")
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, Error, d.State())

	d.Disconnect()
	assert.Equal(t, Disconnected, d.State())
}

func TestConnect_DeviceRejectedCommandEntersError(t *testing.T) {
	data := &memByteTransport{}
	ctrl := &memControlTransport{failWith: "badcmd"}
	d := New(testConfig(data, ctrl, staticConfigProvider{commands: []string{"badcmd"}}, &recordingSink{}))

	err := d.Connect("cli", "data", "default")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, Error, d.State())
}

func TestConnect_ConfigProviderFailureEntersError(t *testing.T) {
	data := &memByteTransport{}
	ctrl := &memControlTransport{}
	d := New(testConfig(data, ctrl, staticConfigProvider{err: errors.New("no such config")}, &recordingSink{}))

	err := d.Connect("cli", "data", "missing")
	assert.Error(t, err)
	assert.Equal(t, Error, d.State())
}

func TestDisconnect_IdempotentWhenAlreadyDisconnected(t *testing.T) {
	d := New(Config{})
	assert.NotPanics(t, func() { d.Disconnect() })
	assert.Equal(t, Disconnected, d.State())
}

func TestLoop_ProcessesFramesIntoSink(t *testing.T) {
	var raw bytes.Buffer
	for i := uint32(0); i < 3; i++ {
		raw.Write(buildRawFrame(i))
	}
	data := &memByteTransport{data: raw.Bytes()}
	ctrl := &memControlTransport{}
	sink := &recordingSink{}
	d := New(testConfig(data, ctrl, staticConfigProvider{}, sink))

	require.NoError(t, d.Connect("cli", "data", "default"))

	require.Eventually(t, func() bool { return sink.frameCount() >= 3 }, time.Second, 5*time.Millisecond)

	d.Disconnect()
	stats := d.Stats()
	assert.GreaterOrEqual(t, stats.FramesProcessed, uint64(3))
}

func TestEmergencyStop_SameContractAsDisconnect(t *testing.T) {
	data := &memByteTransport{}
	ctrl := &memControlTransport{}
	d := New(testConfig(data, ctrl, staticConfigProvider{}, &recordingSink{}))

	require.NoError(t, d.Connect("cli", "data", "default"))
	d.EmergencyStop()
	assert.Equal(t, Disconnected, d.State())
}

var _ io.Closer = (*memByteTransport)(nil)
