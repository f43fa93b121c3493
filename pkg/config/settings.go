// Package config holds the user-facing controller settings and the
// persistence collaborator that loads and saves them. The on-disk format is
// a single-section key/value file ("key: value", '#' comments, "#*#"
// save-back lines), matching what the configuration frontend writes.
package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// SectionName is the section header the settings live under.
const SectionName = "smartspin"

// Settings is the mutable user configuration. All components share one
// handle; accessors are safe for concurrent use because the web frontend can
// rewrite any value while the motion task is running.
type Settings struct {
	mu sync.RWMutex

	shiftStep             int32   // position units per shift
	inclineMultiplier     float64 // incline units -> position units
	stepperDir            bool    // actuator wiring direction
	shifterDir            bool    // true preserves shift direction, false reverses
	stepperPower          uint16  // drive current in mA
	stepperSpeed          uint32  // max speed in Hz
	powerCorrectionFactor float64 // outbound watts translation factor
	maxWatts              int32   // power-target ceiling
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() *Settings {
	return &Settings{
		shiftStep:             400,
		inclineMultiplier:     3.0,
		stepperDir:            false,
		shifterDir:            true,
		stepperPower:          900,
		stepperSpeed:          1500,
		powerCorrectionFactor: 1.0,
		maxWatts:              500,
	}
}

// ShiftStep returns the position units applied per shift.
func (s *Settings) ShiftStep() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shiftStep
}

// SetShiftStep sets the position units applied per shift.
func (s *Settings) SetShiftStep(v int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shiftStep = v
}

// InclineMultiplier returns the incline-to-position scale factor.
func (s *Settings) InclineMultiplier() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inclineMultiplier
}

// SetInclineMultiplier sets the incline-to-position scale factor.
func (s *Settings) SetInclineMultiplier(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inclineMultiplier = v
}

// StepperDir returns the actuator wiring direction flag. The motion task
// re-reads this every iteration and re-applies the direction pin when it
// changes.
func (s *Settings) StepperDir() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepperDir
}

// SetStepperDir sets the actuator wiring direction flag.
func (s *Settings) SetStepperDir(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepperDir = v
}

// ShifterDir returns the shifter direction flag: true preserves the pressed
// direction, false reverses it.
func (s *Settings) ShifterDir() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shifterDir
}

// SetShifterDir sets the shifter direction flag.
func (s *Settings) SetShifterDir(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifterDir = v
}

// StepperPower returns the nominal drive current in mA.
func (s *Settings) StepperPower() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepperPower
}

// SetStepperPower sets the nominal drive current in mA.
func (s *Settings) SetStepperPower(v uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepperPower = v
}

// StepperSpeed returns the max actuator speed in Hz.
func (s *Settings) StepperSpeed() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepperSpeed
}

// SetStepperSpeed sets the max actuator speed in Hz.
func (s *Settings) SetStepperSpeed(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepperSpeed = v
}

// PowerCorrectionFactor returns the outbound watts translation factor.
func (s *Settings) PowerCorrectionFactor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.powerCorrectionFactor
}

// SetPowerCorrectionFactor sets the outbound watts translation factor.
func (s *Settings) SetPowerCorrectionFactor(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v <= 0 {
		v = 1.0
	}
	s.powerCorrectionFactor = v
}

// MaxWatts returns the power-target ceiling.
func (s *Settings) MaxWatts() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxWatts
}

// SetMaxWatts sets the power-target ceiling.
func (s *Settings) SetMaxWatts(v int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxWatts = v
}

// ParseSettings parses a settings file. Unknown keys are ignored so the file
// can carry frontend-only options; missing keys keep their defaults.
func ParseSettings(data string) (*Settings, error) {
	options, err := parseSection(data, SectionName)
	if err != nil {
		return nil, err
	}

	s := DefaultSettings()
	for key, value := range options {
		if err := s.apply(key, value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// apply assigns one parsed option.
func (s *Settings) apply(key, value string) error {
	bad := func(kind string) error {
		return fmt.Errorf("config: option %q: %q is not a valid %s", key, value, kind)
	}
	switch key {
	case "shift_step":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return bad("integer")
		}
		s.shiftStep = int32(v)
	case "incline_multiplier":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return bad("float")
		}
		s.inclineMultiplier = v
	case "stepper_dir":
		v, err := parseBool(value)
		if err != nil {
			return bad("boolean")
		}
		s.stepperDir = v
	case "shifter_dir":
		v, err := parseBool(value)
		if err != nil {
			return bad("boolean")
		}
		s.shifterDir = v
	case "stepper_power":
		v, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return bad("integer")
		}
		s.stepperPower = uint16(v)
	case "stepper_speed":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return bad("integer")
		}
		s.stepperSpeed = uint32(v)
	case "power_correction_factor":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return bad("float")
		}
		if v <= 0 {
			return fmt.Errorf("config: power_correction_factor must be positive, got %q", value)
		}
		s.powerCorrectionFactor = v
	case "max_watts":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return bad("integer")
		}
		s.maxWatts = int32(v)
	}
	return nil
}

// Encode renders the settings in the on-disk format.
func (s *Settings) Encode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]\n", SectionName)
	fmt.Fprintf(&sb, "shift_step: %d\n", s.shiftStep)
	fmt.Fprintf(&sb, "incline_multiplier: %g\n", s.inclineMultiplier)
	fmt.Fprintf(&sb, "stepper_dir: %d\n", boolInt(s.stepperDir))
	fmt.Fprintf(&sb, "shifter_dir: %d\n", boolInt(s.shifterDir))
	fmt.Fprintf(&sb, "stepper_power: %d\n", s.stepperPower)
	fmt.Fprintf(&sb, "stepper_speed: %d\n", s.stepperSpeed)
	fmt.Fprintf(&sb, "power_correction_factor: %g\n", s.powerCorrectionFactor)
	fmt.Fprintf(&sb, "max_watts: %d\n", s.maxWatts)
	return sb.String()
}

// CopyFrom overwrites this Settings with the values of other, preserving the
// shared handle held by the other components.
func (s *Settings) CopyFrom(other *Settings) {
	snapshot := DefaultSettings()
	other.mu.RLock()
	snapshot.shiftStep = other.shiftStep
	snapshot.inclineMultiplier = other.inclineMultiplier
	snapshot.stepperDir = other.stepperDir
	snapshot.shifterDir = other.shifterDir
	snapshot.stepperPower = other.stepperPower
	snapshot.stepperSpeed = other.stepperSpeed
	snapshot.powerCorrectionFactor = other.powerCorrectionFactor
	snapshot.maxWatts = other.maxWatts
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shiftStep = snapshot.shiftStep
	s.inclineMultiplier = snapshot.inclineMultiplier
	s.stepperDir = snapshot.stepperDir
	s.shifterDir = snapshot.shifterDir
	s.stepperPower = snapshot.stepperPower
	s.stepperSpeed = snapshot.stepperSpeed
	s.powerCorrectionFactor = snapshot.powerCorrectionFactor
	s.maxWatts = snapshot.maxWatts
}

// Capabilities is the rider's derived capability data, persisted alongside
// the settings.
type Capabilities struct {
	// FTP is the functional threshold power in watts.
	FTP int

	// WeightKG is the rider weight used for power scaling.
	WeightKG float64
}

// DefaultCapabilities returns the factory capability record.
func DefaultCapabilities() *Capabilities {
	return &Capabilities{FTP: 200, WeightKG: 75}
}

// ParseCapabilities parses a capabilities file.
func ParseCapabilities(data string) (*Capabilities, error) {
	options, err := parseSection(data, "capabilities")
	if err != nil {
		return nil, err
	}

	c := DefaultCapabilities()
	for key, value := range options {
		switch key {
		case "ftp":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("config: ftp: %q is not a valid integer", value)
			}
			c.FTP = v
		case "weight_kg":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("config: weight_kg: %q is not a valid float", value)
			}
			c.WeightKG = v
		}
	}
	return c, nil
}

// Encode renders the capabilities in the on-disk format.
func (c *Capabilities) Encode() string {
	var sb strings.Builder
	sb.WriteString("[capabilities]\n")
	fmt.Fprintf(&sb, "ftp: %d\n", c.FTP)
	fmt.Fprintf(&sb, "weight_kg: %g\n", c.WeightKG)
	return sb.String()
}

// parseSection extracts the options of one section from key/value file data.
// Lines before the section header and other sections are skipped. Lines
// beginning with "#*#" are save-back lines and parsed like regular options.
func parseSection(data, section string) (map[string]string, error) {
	options := make(map[string]string)
	inSection := false

	scanner := bufio.NewScanner(strings.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#*#") {
			line = strings.TrimSpace(line[3:])
			if line == "" {
				continue
			}
		} else if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return nil, fmt.Errorf("config: empty section header at line %d", lineNum)
			}
			inSection = header == section
			continue
		}
		if !inSection {
			continue
		}

		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			kv = strings.SplitN(line, "=", 2)
		}
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if key == "" {
			continue
		}
		options[key] = strings.TrimSpace(kv[1])
	}
	return options, nil
}

// parseBool accepts 0/1 and the usual true/false spellings.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
