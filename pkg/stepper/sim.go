package stepper

import "sync"

// Sim is an in-memory Actuator and CurrentControl used by tests and by the
// host binary when no hardware driver is attached. Moves complete instantly
// unless a step limit is configured.
type Sim struct {
	mu   sync.Mutex
	calc *CurrentCalculator

	position int32
	target   int32
	running  bool

	// StepLimit caps how far one Advance call moves; zero means moves
	// complete instantly inside MoveTo.
	StepLimit int32

	autoEnable     bool
	outputsEnabled bool
	dirPin         int
	dirHigh        bool
	speedHz        uint32
	accel          uint32

	runCurrent  uint8
	rmsCurrent  uint16
	vsense      bool
	stealthChop bool

	// RunCurrentHistory records every applied run-current scale in order,
	// whether set directly or derived from an RMS current.
	RunCurrentHistory []uint8
}

// NewSim returns a simulated actuator with instant moves.
func NewSim() *Sim {
	return &Sim{
		calc:       NewCurrentCalculator(DefaultSenseResistor),
		autoEnable: true,
	}
}

// MoveTo implements Actuator.
func (s *Sim) MoveTo(position int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = position
	if s.StepLimit == 0 {
		s.position = position
		s.running = false
		return
	}
	s.running = s.position != position
}

// Advance moves the simulated motor toward its target by at most StepLimit
// units, emulating ramped motion across iterations.
func (s *Sim) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == s.target {
		s.running = false
		return
	}
	step := s.StepLimit
	if step == 0 || step > abs32(s.target-s.position) {
		step = abs32(s.target - s.position)
	}
	if s.target > s.position {
		s.position += step
	} else {
		s.position -= step
	}
	s.running = s.position != s.target
}

// StopMove implements Actuator.
func (s *Sim) StopMove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = s.position
	s.running = false
}

// SetCurrentPosition implements Actuator.
func (s *Sim) SetCurrentPosition(position int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	s.target = position
	s.running = false
}

// IsRunning implements Actuator.
func (s *Sim) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentPosition implements Actuator.
func (s *Sim) CurrentPosition() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Target returns the commanded target, for assertions.
func (s *Sim) Target() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetAutoEnable implements Actuator.
func (s *Sim) SetAutoEnable(enable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoEnable = enable
}

// AutoEnable returns the idle power-down setting, for assertions.
func (s *Sim) AutoEnable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoEnable
}

// EnableOutputs implements Actuator.
func (s *Sim) EnableOutputs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputsEnabled = true
}

// OutputsEnabled reports whether EnableOutputs was called.
func (s *Sim) OutputsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputsEnabled
}

// SetDirectionPin implements Actuator.
func (s *Sim) SetDirectionPin(pin int, highCountsUp bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirPin = pin
	s.dirHigh = highCountsUp
}

// Direction returns the applied direction polarity, for assertions.
func (s *Sim) Direction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirHigh
}

// SetSpeedHz implements Actuator.
func (s *Sim) SetSpeedHz(hz uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speedHz = hz
}

// SetAcceleration implements Actuator.
func (s *Sim) SetAcceleration(a uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accel = a
}

// SetRunCurrent implements CurrentControl.
func (s *Sim) SetRunCurrent(scale uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCurrent = scale
	s.RunCurrentHistory = append(s.RunCurrentHistory, scale)
}

// RunCurrent returns the applied current scale.
func (s *Sim) RunCurrent() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCurrent
}

// SetRMSCurrent implements CurrentControl. The mA value is translated to
// the nearest CS scale and applied as the run current, the way the hardware
// driver's rms_current write is followed by a cs_actual readback.
func (s *Sim) SetRMSCurrent(mA uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rmsCurrent = mA
	cs, vsense := s.calc.CSForMilliamps(mA)
	s.vsense = vsense
	s.runCurrent = uint8(cs)
	s.RunCurrentHistory = append(s.RunCurrentHistory, uint8(cs))
}

// VSense reports which sense voltage range the last RMS current selected.
func (s *Sim) VSense() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vsense
}

// SetStealthChop implements CurrentControl.
func (s *Sim) SetStealthChop(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stealthChop = on
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
