package board

import "testing"

// TestSelect tests nearest-match revision selection.
func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		measured int
		want     string
	}{
		{"well below rev1", 100, "rev1"},
		{"at rev1 reference", Rev1.VersionVoltage, "rev1"},
		{"just above rev1", Rev1.VersionVoltage + 100, "rev1"},
		{"midpoint goes to rev2", (Rev1.VersionVoltage + Rev2.VersionVoltage) / 2, "rev1"},
		{"just past midpoint", (Rev1.VersionVoltage+Rev2.VersionVoltage)/2 + 1, "rev2"},
		{"at rev2 reference", Rev2.VersionVoltage, "rev2"},
		{"above rev2", 3000, "rev2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.measured, Rev1, Rev2)
			if got.Name != tt.want {
				t.Errorf("Select(%d) = %s, want %s", tt.measured, got.Name, tt.want)
			}
		})
	}
}

// TestHasAuxSerial tests the populated-link check.
func TestHasAuxSerial(t *testing.T) {
	if Rev1.HasAuxSerial() {
		t.Error("rev1 should not have an aux serial link")
	}
	if !Rev2.HasAuxSerial() {
		t.Error("rev2 should have an aux serial link")
	}
}
