package acquisition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	return New(Config{})
}

func TestTransition_AllowedTable(t *testing.T) {
	d := newTestDevice(t)
	assert.Equal(t, Disconnected, d.State())

	assert.NoError(t, d.transition(Connecting, "t"))
	assert.NoError(t, d.transition(Configuring, "t"))
	assert.NoError(t, d.transition(Streaming, "t"))
	assert.NoError(t, d.transition(Disconnected, "t"))
}

func TestTransition_RefusesIllegalMove(t *testing.T) {
	d := newTestDevice(t)
	err := d.transition(Streaming, "illegal")
	assert.Error(t, err)
	assert.Equal(t, Disconnected, d.State())

	var invalid *InvalidStateTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestTransition_ErrorAlwaysReachesDisconnected(t *testing.T) {
	d := newTestDevice(t)
	assert.NoError(t, d.transition(Connecting, "t"))
	assert.NoError(t, d.transition(Error, "t"))
	assert.NoError(t, d.transition(Disconnected, "t"))
}

func TestTransition_NeverMutatesStateOnRefusal(t *testing.T) {
	d := newTestDevice(t)
	assert.NoError(t, d.transition(Connecting, "t"))
	before := d.State()
	err := d.transition(Streaming, "illegal") // connecting -> streaming is not allowed.
	assert.Error(t, err)
	assert.Equal(t, before, d.State())
}

func TestOnStateChange_ObserverIsolation(t *testing.T) {
	d := newTestDevice(t)

	var calls int
	d.OnStateChange(func(from, to State, reason string) {
		calls++
		panic("boom")
	})
	var seen []State
	d.OnStateChange(func(from, to State, reason string) {
		seen = append(seen, to)
	})

	assert.NotPanics(t, func() {
		assert.NoError(t, d.transition(Connecting, "t"))
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, []State{Connecting}, seen)
}

func TestOnStateChange_OnlyAcceptedTransitionsNotified(t *testing.T) {
	d := newTestDevice(t)
	var seen []State
	d.OnStateChange(func(from, to State, reason string) {
		seen = append(seen, to)
	})

	_ = d.transition(Streaming, "illegal") // Refused: no notification expected.
	assert.Empty(t, seen)

	_ = d.transition(Connecting, "t")
	assert.Equal(t, []State{Connecting}, seen)
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Configuring:  "configuring",
		Streaming:    "streaming",
		Error:        "error",
	}
	for s, want := range cases {
		assert.Equal(t, want, s.String())
	}
}
