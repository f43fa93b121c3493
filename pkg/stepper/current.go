// TMC driver current translation.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package stepper

// DefaultSenseResistor is the sense resistor in ohms fitted on the stock
// driver boards.
const DefaultSenseResistor = 0.110

// CurrentCalculator converts between driver current and the TMC CS scale
// (0..31) for a given sense resistor.
type CurrentCalculator struct {
	// SenseResistor in ohms.
	SenseResistor float64
}

// NewCurrentCalculator returns a calculator for the given sense resistor.
func NewCurrentCalculator(senseResistor float64) *CurrentCalculator {
	return &CurrentCalculator{SenseResistor: senseResistor}
}

const sqrt2 = 1.41421356237

// CSForCurrent returns the CS bits for an RMS current in amps, and whether
// the low-sensitivity vsense range was selected. The result saturates at
// the 0..31 scale.
func (cc *CurrentCalculator) CSForCurrent(amps float64) (int, bool) {
	// vsense=1: CS = I * 32 * sqrt(2) * Rs / 0.180 - 1
	cs := int(amps*32*sqrt2*cc.SenseResistor/0.180 - 1)
	if cs >= 0 && cs <= 31 {
		return cs, true
	}

	// vsense=0 for higher currents
	cs = int(amps*32*sqrt2*cc.SenseResistor/0.325 - 1)
	if cs < 0 {
		cs = 0
	}
	if cs > 31 {
		cs = 31
	}
	return cs, false
}

// CurrentForCS returns the RMS current in amps for CS bits in the given
// vsense range.
func (cc *CurrentCalculator) CurrentForCS(cs int, vsense bool) float64 {
	vref := 0.325
	if vsense {
		vref = 0.180
	}
	return float64(cs+1) * vref / (32 * sqrt2 * cc.SenseResistor)
}

// CSForMilliamps is CSForCurrent for a current given in mA.
func (cc *CurrentCalculator) CSForMilliamps(mA uint16) (int, bool) {
	return cc.CSForCurrent(float64(mA) / 1000.0)
}
