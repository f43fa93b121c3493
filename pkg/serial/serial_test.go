package serial

import "testing"

func TestBaudRateToSpeed(t *testing.T) {
	if _, err := baudRateToSpeed(19200); err != nil {
		t.Errorf("baudRateToSpeed(19200) error: %v", err)
	}
	if _, err := baudRateToSpeed(31337); err == nil {
		t.Error("baudRateToSpeed(31337) expected error")
	}
}

func TestOpenRequiresDevice(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open with empty device expected error")
	}
}

func TestIsDeviceAvailableMissing(t *testing.T) {
	if IsDeviceAvailable("/dev/does-not-exist-ss2k") {
		t.Error("missing device reported available")
	}
}
