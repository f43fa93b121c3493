// Driver temperature governor: throttles stepper run current when the
// driver reports an over-temperature reading and restores the nominal
// current once it recovers.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package control

import (
	"smartspin-go/pkg/log"
	"smartspin-go/pkg/stepper"
)

// ThrottleTempC is the driver temperature above which run current is
// reduced.
const ThrottleTempC = 72

// ThermalGovernor watches the stepper driver temperature and scales the run
// current down proportionally to the overshoot. Recovery restores the
// board's nominal current scaler exactly once per over-temperature episode.
type ThermalGovernor struct {
	driver    stepper.CurrentControl
	readTempC func() float64
	threshold int
	pwrScaler uint8
	overTemp  bool
	log       *log.Logger
}

// NewThermalGovernor builds a governor around the driver's current control
// and a temperature read callback. pwrScaler is the board's nominal run
// current scale.
func NewThermalGovernor(driver stepper.CurrentControl, readTempC func() float64, pwrScaler uint8, logger *log.Logger) *ThermalGovernor {
	if logger == nil {
		logger = log.GetLogger("thermal")
	}
	return &ThermalGovernor{
		driver:    driver,
		readTempC: readTempC,
		threshold: ThrottleTempC,
		pwrScaler: pwrScaler,
		log:       logger,
	}
}

// OverTemp reports whether the governor is currently throttling.
func (g *ThermalGovernor) OverTemp() bool { return g.overTemp }

// Check samples the driver temperature and applies or releases the
// throttle. Each degree over the threshold removes one step of run current,
// saturating at zero.
func (g *ThermalGovernor) Check() {
	if g.driver == nil || g.readTempC == nil {
		return
	}
	temp := int(g.readTempC())
	if temp > g.threshold {
		throttled := g.threshold - temp + int(g.pwrScaler)
		if throttled < 0 {
			throttled = 0
		}
		g.driver.SetRunCurrent(uint8(throttled))
		g.overTemp = true
		g.log.Warn("driver at %dC, run current throttled to %d", temp, throttled)
		return
	}
	if g.overTemp {
		g.driver.SetRunCurrent(g.pwrScaler)
		g.log.Info("driver recovered at %dC, run current restored to %d", temp, g.pwrScaler)
	}
	g.overTemp = false
}
