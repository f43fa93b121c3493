package ftms

import (
	"bytes"
	"testing"
)

// TestSetTargetPowerCommand tests little-endian watts encoding.
func TestSetTargetPowerCommand(t *testing.T) {
	tests := []struct {
		name  string
		watts int
		want  []byte
	}{
		{"155 watts", 155, []byte{OpSetTargetPower, 0x9B, 0x00}},
		{"zero watts", 0, []byte{OpSetTargetPower, 0x00, 0x00}},
		{"multi-byte watts", 300, []byte{OpSetTargetPower, 0x2C, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SetTargetPowerCommand(tt.watts)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("SetTargetPowerCommand(%d) = % x, want % x", tt.watts, got, tt.want)
			}
		})
	}
}

// TestSimulationParamsCommand tests the fixed passthrough payload.
func TestSimulationParamsCommand(t *testing.T) {
	want := []byte{OpSetIndoorBikeSimulation, 0x00, 0x00, 0x00, 0x00, 0x28, 0x33}
	got := SimulationParamsCommand()
	if !bytes.Equal(got, want) {
		t.Errorf("SimulationParamsCommand() = % x, want % x", got, want)
	}
	if len(got) != 7 {
		t.Errorf("payload length = %d, want 7", len(got))
	}
}
