// Package board describes the controller hardware revisions. A profile is
// selected once at startup by comparing a measured divider voltage against
// each revision's reference value; it is immutable afterwards.
package board

// Profile holds the pin assignments and power scaling of one board revision.
type Profile struct {
	Name string

	// VersionVoltage is the expected ADC reading of the revision divider.
	VersionVoltage int

	ShiftUpPin   int
	ShiftDownPin int
	EnablePin    int
	DirPin       int
	StepPin      int
	LEDPin       int

	// Aux serial pins; AuxSerialTxPin == 0 means the auxiliary peripheral
	// link is not populated on this revision.
	AuxSerialRxPin int
	AuxSerialTxPin int

	// PwrScaler is the nominal drive-current scale (TMC CS units) and the
	// base for thermal throttling.
	PwrScaler uint8
}

// HasAuxSerial reports whether the auxiliary serial link is populated.
func (p Profile) HasAuxSerial() bool { return p.AuxSerialTxPin != 0 }

// Stock revisions.
var (
	Rev1 = Profile{
		Name:           "rev1",
		VersionVoltage: 495,
		ShiftUpPin:     19,
		ShiftDownPin:   18,
		EnablePin:      27,
		DirPin:         33,
		StepPin:        25,
		LEDPin:         2,
		PwrScaler:      28,
	}
	Rev2 = Profile{
		Name:           "rev2",
		VersionVoltage: 1650,
		ShiftUpPin:     23,
		ShiftDownPin:   19,
		EnablePin:      18,
		DirPin:         33,
		StepPin:        25,
		LEDPin:         2,
		AuxSerialRxPin: 16,
		AuxSerialTxPin: 17,
		PwrScaler:      31,
	}
)

// Select returns whichever of a, b has the reference voltage nearest the
// measured reading. A tie goes to b, the newer revision.
func Select(measured int, a, b Profile) Profile {
	if measured-a.VersionVoltage >= b.VersionVoltage-measured {
		return b
	}
	return a
}
