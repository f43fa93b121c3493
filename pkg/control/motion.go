// Motion control task: resolves the actuator target each iteration and
// drives the stepper toward it under the travel and resistance limits.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package control

import (
	"context"
	"time"
)

// InitActuator applies the configured direction, speed, acceleration and
// idle power-down to the actuator. Call once before the first motion
// iteration; RunMotion does it for you.
func (c *Controller) InitActuator() {
	a := c.actuator
	if a == nil {
		return
	}
	c.stepperDir = c.settings.StepperDir()
	a.SetDirectionPin(c.dirPin, c.stepperDir)
	a.SetSpeedHz(c.settings.StepperSpeed())
	a.SetAcceleration(c.settings.StepperSpeed() * 2)
	a.SetAutoEnable(true)
}

// RunMotion runs the motion control loop until ctx is cancelled. Each
// iteration is one motionStep at the configured cadence.
func (c *Controller) RunMotion(ctx context.Context) {
	c.InitActuator()
	ticker := time.NewTicker(c.loopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.motionStep()
		}
	}
}

// motionStep is one motion iteration: derive the target, honor sync
// requests, issue a bounded move, publish the position read-back and manage
// drive power. A nil actuator skips the iteration entirely.
func (c *Controller) motionStep() {
	a := c.actuator
	if a == nil {
		return
	}
	c.stepperRunning.Store(a.IsRunning())

	if !c.externalControl.Load() {
		c.deriveTarget()
	}

	if c.syncMode.Load() {
		a.StopMove()
		a.SetCurrentPosition(c.targetPosition.Load())
		c.syncMode.Store(false)
	}

	if c.params.ResistanceBounded() {
		// A live resistance reading outside its bounds overrides target
		// tracking with a small corrective nudge, so the actuator cannot
		// run away past a physical limit.
		value := c.params.Resistance.Value()
		switch {
		case value < c.params.MinResistance():
			a.MoveTo(a.CurrentPosition() + resistanceNudge)
		case value > c.params.MaxResistance():
			a.MoveTo(a.CurrentPosition() - resistanceNudge)
		default:
			a.MoveTo(c.targetPosition.Load())
		}
	} else {
		target := c.targetPosition.Load()
		if target < c.params.MinStep() {
			target = c.params.MinStep()
		}
		if target > c.params.MaxStep() {
			target = c.params.MaxStep()
		}
		a.MoveTo(target)
	}

	c.params.SetCurrentIncline(float64(a.CurrentPosition()))

	if c.clients.ConnectedCount() > 0 {
		// Keep the drive powered while a client is riding; idle power-down
		// would let the load back-drive the mechanism.
		a.SetAutoEnable(false)
		a.EnableOutputs()
	} else {
		a.SetAutoEnable(true)
	}

	if dir := c.settings.StepperDir(); dir != c.stepperDir {
		for a.IsRunning() {
			time.Sleep(c.loopInterval)
		}
		c.stepperDir = dir
		a.SetDirectionPin(c.dirPin, dir)
	}
}

// deriveTarget recomputes the actuator target from the runtime parameters.
// Power and resistance modes track the incline value directly; simulation
// mode combines shifter travel with the scaled incline.
func (c *Controller) deriveTarget() {
	switch m := c.params.FTMSMode(); {
	case m.TargetsIncline():
		c.targetPosition.Store(int32(c.params.TargetIncline()))
	default:
		pos := c.params.ShifterPosition()*c.settings.ShiftStep() +
			int32(c.params.TargetIncline()*c.settings.InclineMultiplier())
		c.targetPosition.Store(pos)
	}
}
