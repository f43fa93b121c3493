// Package shifter filters the two interrupt-triggered shift edges into
// validated shifter-position changes. OnEdge runs in interrupt context: it
// must not block, allocate or take locks, so every touched field is atomic
// and the debounce timestamp is owned exclusively by this path.
package shifter

import (
	"sync/atomic"

	"smartspin-go/pkg/state"
)

// Pin identifies one of the two shifter inputs.
type Pin int

const (
	// PinShiftUp is the shift-up input.
	PinShiftUp Pin = iota

	// PinShiftDown is the shift-down input.
	PinShiftDown
)

func (p Pin) String() string {
	if p == PinShiftUp {
		return "shift_up"
	}
	return "shift_down"
}

// PinReader reports whether a pin currently reads asserted (pressed). A
// genuine press must still read asserted when the edge is validated;
// electromagnetic noise usually does not.
type PinReader func(Pin) bool

// Clock returns monotonic milliseconds.
type Clock func() int64

// DefaultDebounceInterval is the minimum spacing between accepted edges in
// milliseconds.
const DefaultDebounceInterval = 400

// DirReader returns the configured shifter direction flag: true preserves
// the pressed direction, false reverses it.
type DirReader func() bool

// Input debounces the two shift edges and mutates the shifter position in
// the runtime parameter store.
type Input struct {
	params  *state.Params
	readPin PinReader
	dir     DirReader
	now     Clock

	debounceMillis int64
	lastDebounce   atomic.Int64
}

// NewInput builds a shifter input. interval <= 0 selects the default
// debounce interval.
func NewInput(params *state.Params, readPin PinReader, dir DirReader, now Clock, interval int64) *Input {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &Input{
		params:         params,
		readPin:        readPin,
		dir:            dir,
		now:            now,
		debounceMillis: interval,
	}
}

// OnEdge handles one edge interrupt on pin. The edge is accepted only when
// the debounce interval has elapsed since the last accepted edge; an
// accepted edge whose pin no longer reads asserted is treated as noise and
// resets the debounce timestamp to zero so the next edge is immediately
// eligible.
func (in *Input) OnEdge(pin Pin) {
	if !in.debounce() {
		return
	}
	if !in.readPin(pin) {
		// Triggered by EMF; re-arm immediately.
		in.lastDebounce.Store(0)
		return
	}
	in.params.AddShifterPosition(in.delta(pin))
}

// debounce accepts the edge when enough time has passed, claiming the
// debounce window as a side effect.
func (in *Input) debounce() bool {
	now := in.now()
	if now-in.lastDebounce.Load() > in.debounceMillis {
		in.lastDebounce.Store(now)
		return true
	}
	return false
}

// delta returns the signed position change for pin under the configured
// shifter direction: up is -1 + dir*2, down is +1 - dir*2.
func (in *Input) delta(pin Pin) int32 {
	d := int32(0)
	if in.dir() {
		d = 1
	}
	if pin == PinShiftUp {
		return -1 + d*2
	}
	return 1 - d*2
}

// BothHeld reports whether both shifter pins currently read asserted. Used
// by the boot-time factory-reset check.
func (in *Input) BothHeld() bool {
	return in.readPin(PinShiftUp) && in.readPin(PinShiftDown)
}
