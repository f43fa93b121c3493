// Shift policy: how a shifter-position change is interpreted under each
// control mode.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package control

import (
	"smartspin-go/pkg/ftms"
	"smartspin-go/pkg/state"
)

// ShiftModifier resolves a shifter-position change against the active
// control mode. The maintenance supervisor invokes it every iteration; when
// the position has not moved since the last resolution it is a no-op.
//
// Power-target mode converts shifts into watts steps, resistance-target mode
// into resistance steps clamped to the live bounds, and simulation mode into
// raw actuator travel guarded by the travel and resistance limits. In every
// mode the last resolved position is recorded and the telemetry subscriber
// notified afterwards.
func (c *Controller) ShiftModifier() {
	shiftDelta := c.params.ShifterPosition() - c.lastShifterPosition.Load()
	if shiftDelta == 0 {
		return
	}

	switch c.params.FTMSMode() {
	case state.ModeTargetPower:
		c.shiftPower(shiftDelta)
	case state.ModeTargetResistance:
		c.shiftResistance(shiftDelta)
	default:
		c.shiftSimulation(shiftDelta)
	}

	c.lastShifterPosition.Store(c.params.ShifterPosition())
	if c.notifier != nil {
		c.notifier.NotifyShift()
	}
}

// shiftPower applies ergPerShift watts per shift, rejecting proposals over
// the configured ceiling. Accepted targets are passed through the power
// correction factor and emitted as a set-target-power command, unless the
// power loop is closed internally.
func (c *Controller) shiftPower(shiftDelta int32) {
	newTarget := c.params.Power.Target() + shiftDelta*c.ergPerShift
	if newTarget > c.settings.MaxWatts() {
		c.log.Warn("erg shift to %dw rejected, over limit of %dw", newTarget, c.settings.MaxWatts())
		return
	}
	c.params.Power.SetTarget(newTarget)
	c.log.Info("erg shift, new target %dw", newTarget)
	if c.internalErg {
		return
	}
	adjusted := int(float64(newTarget) / c.settings.PowerCorrectionFactor())
	if err := c.writer.WriteControlPoint(ftms.SetTargetPowerCommand(adjusted)); err != nil {
		c.log.Error("set-target-power write failed: %v", err)
	}
}

// shiftResistance steps the resistance target. Resistance shifts do not
// accumulate actuator travel, so the shifter position is put back to the
// last resolved offset before anything else. With bounding disabled the
// target is left alone entirely.
func (c *Controller) shiftResistance(shiftDelta int32) {
	c.params.SetShifterPosition(c.lastShifterPosition.Load())
	if !c.params.ResistanceBounded() {
		return
	}
	proposed := c.params.Resistance.Target() + shiftDelta
	switch {
	case proposed < c.params.MinResistance():
		c.params.Resistance.SetTarget(c.params.MinResistance())
		c.log.Warn("resistance shift clamped to minimum %d", c.params.MinResistance())
	case proposed > c.params.MaxResistance():
		c.params.Resistance.SetTarget(c.params.MaxResistance())
		c.log.Warn("resistance shift clamped to maximum %d", c.params.MaxResistance())
	default:
		c.params.Resistance.SetTarget(proposed)
		c.log.Info("resistance shift, new target %d", proposed)
	}
}

// shiftSimulation validates a travel shift against the travel bounds and
// the live resistance reading. A blocked shift restores the shifter
// position to the last resolved value; either way a simulation-parameters
// command goes out so the remote machine re-evaluates.
func (c *Controller) shiftSimulation(shiftDelta int32) {
	proposed := c.params.ShifterPosition()*c.settings.ShiftStep() +
		int32(c.params.TargetIncline()*c.settings.InclineMultiplier())

	switch {
	case proposed < c.params.MinStep() || proposed > c.params.MaxStep():
		c.params.SetShifterPosition(c.lastShifterPosition.Load())
		c.log.Warn("shift blocked by travel limit")
	case c.params.Resistance.Value() < c.params.MinResistance() && shiftDelta > 0:
		// Below the resistance floor but shifting away from it.
	case c.params.Resistance.Value() > c.params.MaxResistance() && shiftDelta < 0:
		// Above the resistance ceiling but shifting away from it.
	case c.params.Resistance.Value() > c.params.MinResistance() && c.params.Resistance.Value() < c.params.MaxResistance():
		c.log.Debug("shift accepted, position %d", c.params.ShifterPosition())
	default:
		c.params.SetShifterPosition(c.lastShifterPosition.Load())
		c.log.Warn("shift blocked by resistance limit")
	}

	if err := c.writer.WriteControlPoint(ftms.SimulationParamsCommand()); err != nil {
		c.log.Error("simulation-params write failed: %v", err)
	}
}
