// Package state holds the process-wide runtime parameter store shared by the
// shifter input path, the mode resolver, the motion control task and the
// auxiliary serial protocol engine. Every field is individually atomic: a
// reader may observe values from different control iterations, but never a
// torn single-field read.
package state

import (
	"math"
	"sync/atomic"
)

// Mode identifies which external control scheme currently governs target
// resolution. Values mirror the fitness machine control point opcodes so an
// inbound command can be stored without translation.
type Mode int32

const (
	// ModeTargetResistance maps shifter input onto a resistance target.
	ModeTargetResistance Mode = 0x04

	// ModeTargetPower maps shifter input onto a power target (ERG).
	ModeTargetPower Mode = 0x05

	// ModeSimulation follows rider shifting plus the incline signal. This is
	// the default mode.
	ModeSimulation Mode = 0x11
)

func (m Mode) String() string {
	switch m {
	case ModeTargetResistance:
		return "resistance"
	case ModeTargetPower:
		return "power"
	case ModeSimulation:
		return "simulation"
	default:
		return "unknown"
	}
}

// TargetsIncline reports whether the mode resolves the actuator target
// directly from the incline value rather than from accumulated shifter
// travel.
func (m Mode) TargetsIncline() bool {
	return m == ModeTargetPower || m == ModeTargetResistance
}

// DefaultResistanceRange is the sentinel resistance bound meaning "resistance
// bounding disabled, clamp on travel limits instead". Bounds are symmetric:
// disabled means [-DefaultResistanceRange, DefaultResistanceRange].
const DefaultResistanceRange = 2000

// Default actuator travel bounds in position units.
const (
	DefaultMinTravel = -3500
	DefaultMaxTravel = 3500
)

// atomicFloat is a float64 with atomic load/store via its bit pattern.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Measurement is a paired target/value reading (watts or resistance units).
type Measurement struct {
	target atomic.Int32
	value  atomic.Int32
}

// Target returns the commanded target.
func (m *Measurement) Target() int32 { return m.target.Load() }

// SetTarget stores a new commanded target.
func (m *Measurement) SetTarget(v int32) { m.target.Store(v) }

// Value returns the most recent live reading.
func (m *Measurement) Value() int32 { return m.value.Load() }

// SetValue stores a new live reading.
func (m *Measurement) SetValue(v int32) { m.value.Store(v) }

// Params is the runtime parameter store. A single instance lives for the
// whole process and is handed to every component at construction.
type Params struct {
	shifterPosition atomic.Int32
	targetIncline   atomicFloat
	currentIncline  atomicFloat

	// Power is the watts target/value pair.
	Power Measurement

	// Resistance is the device-unit resistance target/value pair.
	Resistance Measurement

	// Cadence is the rider cadence value in rpm; the target side is unused
	// by the control core.
	Cadence Measurement

	minStep       atomic.Int32
	maxStep       atomic.Int32
	minResistance atomic.Int32
	maxResistance atomic.Int32

	mode atomic.Int32
}

// NewParams returns a Params with default travel and resistance bounds and
// simulation mode active.
func NewParams() *Params {
	p := &Params{}
	p.minStep.Store(DefaultMinTravel)
	p.maxStep.Store(DefaultMaxTravel)
	p.minResistance.Store(-DefaultResistanceRange)
	p.maxResistance.Store(DefaultResistanceRange)
	p.mode.Store(int32(ModeSimulation))
	return p
}

// ShifterPosition returns the discrete shift count.
func (p *Params) ShifterPosition() int32 { return p.shifterPosition.Load() }

// SetShifterPosition stores the discrete shift count. Safe from interrupt
// context: a single atomic store, no allocation.
func (p *Params) SetShifterPosition(v int32) { p.shifterPosition.Store(v) }

// AddShifterPosition applies a signed delta to the shift count and returns
// the new value. Safe from interrupt context.
func (p *Params) AddShifterPosition(delta int32) int32 {
	return p.shifterPosition.Add(delta)
}

// TargetIncline returns the logical target incline (maps 1:1 to actuator
// position units).
func (p *Params) TargetIncline() float64 { return p.targetIncline.Load() }

// SetTargetIncline stores the logical target incline.
func (p *Params) SetTargetIncline(v float64) { p.targetIncline.Store(v) }

// CurrentIncline returns the incline derived from the actuator's actual
// position, published by the motion task each iteration.
func (p *Params) CurrentIncline() float64 { return p.currentIncline.Load() }

// SetCurrentIncline publishes the incline read back from the actuator.
func (p *Params) SetCurrentIncline(v float64) { p.currentIncline.Store(v) }

// MinStep returns the minimum safe actuator position.
func (p *Params) MinStep() int32 { return p.minStep.Load() }

// SetMinStep sets the minimum safe actuator position.
func (p *Params) SetMinStep(v int32) { p.minStep.Store(v) }

// MaxStep returns the maximum safe actuator position.
func (p *Params) MaxStep() int32 { return p.maxStep.Load() }

// SetMaxStep sets the maximum safe actuator position.
func (p *Params) SetMaxStep(v int32) { p.maxStep.Store(v) }

// MinResistance returns the lower resistance bound.
func (p *Params) MinResistance() int32 { return p.minResistance.Load() }

// SetMinResistance sets the lower resistance bound.
func (p *Params) SetMinResistance(v int32) { p.minResistance.Store(v) }

// MaxResistance returns the upper resistance bound.
// DefaultResistanceRange means bounding is disabled.
func (p *Params) MaxResistance() int32 { return p.maxResistance.Load() }

// SetMaxResistance sets the upper resistance bound.
func (p *Params) SetMaxResistance(v int32) { p.maxResistance.Store(v) }

// ResistanceBounded reports whether resistance bounding is active.
func (p *Params) ResistanceBounded() bool {
	return p.maxResistance.Load() != DefaultResistanceRange
}

// FTMSMode returns the active control mode.
func (p *Params) FTMSMode() Mode { return Mode(p.mode.Load()) }

// SetFTMSMode switches the active control mode and resets the shifter
// position to the actuator's last known physical offset. The reset avoids a
// discontinuous position jump when the governing scheme changes: at most one
// of power target, resistance target or simulation resolves targets at a
// time.
func (p *Params) SetFTMSMode(m Mode, lastOffset int32) {
	p.mode.Store(int32(m))
	p.shifterPosition.Store(lastOffset)
}
