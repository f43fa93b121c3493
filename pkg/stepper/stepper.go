// Package stepper defines the actuator driver collaborator the motion task
// commands, and the drive-current control surface used by the thermal
// governor and the settings frontend. Step-pulse generation itself lives in
// the external driver, not here.
package stepper

// Actuator is the resistance-adjuster motor driver. The control core calls
// these; it never generates step pulses itself.
type Actuator interface {
	// MoveTo commands a ramped move to an absolute position.
	MoveTo(position int32)

	// StopMove halts any in-flight motion.
	StopMove()

	// SetCurrentPosition redefines the actuator's current physical position
	// without moving.
	SetCurrentPosition(position int32)

	// IsRunning reports whether a move is in flight.
	IsRunning() bool

	// CurrentPosition returns the actual current position.
	CurrentPosition() int32

	// SetAutoEnable controls automatic idle power-down between moves.
	SetAutoEnable(enable bool)

	// EnableOutputs forces the drive outputs on.
	EnableOutputs()

	// SetDirectionPin applies the direction pin polarity.
	SetDirectionPin(pin int, highCountsUp bool)

	// SetSpeedHz sets the maximum step rate.
	SetSpeedHz(hz uint32)

	// SetAcceleration sets the ramp acceleration.
	SetAcceleration(stepsPerSecSq uint32)
}

// CurrentControl adjusts the stepper driver's coil current. The thermal
// governor throttles through SetRunCurrent; user configuration changes go
// through SetRMSCurrent and SetStealthChop.
type CurrentControl interface {
	// SetRunCurrent applies a raw current scale (CS units, 0..31).
	SetRunCurrent(scale uint8)

	// SetRMSCurrent applies a current in mA, translated to the nearest CS
	// scale for the driver's sense resistor.
	SetRMSCurrent(mA uint16)

	// SetStealthChop toggles quiet chopper mode.
	SetStealthChop(on bool)
}
