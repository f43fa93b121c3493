package stepper

import (
	"math"
	"testing"
)

// TestCSForCurrent tests current-to-scale translation and saturation.
func TestCSForCurrent(t *testing.T) {
	cc := NewCurrentCalculator(0.110)

	tests := []struct {
		name       string
		amps       float64
		wantVSense bool
	}{
		{"low current uses vsense", 0.5, true},
		{"high current drops vsense", 1.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, vsense := cc.CSForCurrent(tt.amps)
			if vsense != tt.wantVSense {
				t.Errorf("CSForCurrent(%g) vsense = %v, want %v", tt.amps, vsense, tt.wantVSense)
			}
			if cs < 0 || cs > 31 {
				t.Errorf("CSForCurrent(%g) = %d, outside 0..31", tt.amps, cs)
			}
		})
	}

	t.Run("saturates high", func(t *testing.T) {
		cs, _ := cc.CSForCurrent(100)
		if cs != 31 {
			t.Errorf("CSForCurrent(100) = %d, want 31", cs)
		}
	})
}

// TestCurrentRoundTrip tests that CS bits map back to roughly the current
// that produced them.
func TestCurrentRoundTrip(t *testing.T) {
	cc := NewCurrentCalculator(0.110)

	amps := 0.8
	cs, vsense := cc.CSForCurrent(amps)
	back := cc.CurrentForCS(cs, vsense)

	// One CS step of tolerance.
	step := cc.CurrentForCS(cs+1, vsense) - back
	if math.Abs(back-amps) > step {
		t.Errorf("round trip %g A -> CS %d -> %g A, drift beyond one step", amps, cs, back)
	}
}

// TestSimRMSCurrentAppliesScale tests that a configured drive current in mA
// lands on the driver as a translated run-current scale.
func TestSimRMSCurrentAppliesScale(t *testing.T) {
	tests := []struct {
		name       string
		mA         uint16
		wantScale  uint8
		wantVSense bool
	}{
		{"stock 900 mA", 900, 23, true},
		{"high current drops vsense", 1500, 21, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSim()
			s.SetRMSCurrent(tt.mA)
			if got := s.RunCurrent(); got != tt.wantScale {
				t.Errorf("RunCurrent() = %d, want %d", got, tt.wantScale)
			}
			if got := s.VSense(); got != tt.wantVSense {
				t.Errorf("VSense() = %v, want %v", got, tt.wantVSense)
			}
			if len(s.RunCurrentHistory) != 1 {
				t.Errorf("RunCurrentHistory = %v, want one applied scale", s.RunCurrentHistory)
			}
		})
	}
}

// TestSimActuator tests the simulated actuator's motion bookkeeping.
func TestSimActuator(t *testing.T) {
	s := NewSim()

	s.MoveTo(500)
	if s.CurrentPosition() != 500 {
		t.Errorf("CurrentPosition() = %d, want 500 (instant move)", s.CurrentPosition())
	}

	s.StepLimit = 100
	s.MoveTo(800)
	if !s.IsRunning() {
		t.Error("IsRunning() = false with move in flight")
	}
	s.Advance()
	if s.CurrentPosition() != 600 {
		t.Errorf("CurrentPosition() = %d, want 600 after one advance", s.CurrentPosition())
	}
	s.Advance()
	s.Advance()
	if s.IsRunning() {
		t.Error("IsRunning() = true after reaching target")
	}

	s.SetCurrentPosition(0)
	if s.CurrentPosition() != 0 || s.IsRunning() {
		t.Error("SetCurrentPosition should redefine position without motion")
	}
}
