// Controller state and boot-time actions for the smartspin control core.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package control implements the concurrent control core: the shift-policy
// mode resolver (shift.go), the motion control task (motion.go) and the
// driver thermal governor (thermal.go). All of them share the single
// Controller instance and the runtime parameter store.
package control

import (
	"sync/atomic"
	"time"

	"smartspin-go/pkg/config"
	"smartspin-go/pkg/ftms"
	"smartspin-go/pkg/log"
	"smartspin-go/pkg/shifter"
	"smartspin-go/pkg/state"
	"smartspin-go/pkg/stepper"
)

// DefaultErgPerShift is the watts applied per shift in power-target mode.
const DefaultErgPerShift = 30

// DefaultLoopInterval is the motion task cadence.
const DefaultLoopInterval = 100 * time.Millisecond

// resistanceNudge is the small corrective move issued when the live
// resistance reading has exceeded a bound, instead of tracking the target.
const resistanceNudge = 10

// Options configures a Controller. Zero-value fields select defaults; nil
// collaborators select no-op implementations (a nil Actuator stays nil and
// skips motion entirely).
type Options struct {
	Actuator stepper.Actuator
	Writer   ftms.CommandWriter
	Notifier ftms.Notifier
	Clients  ftms.Clients
	Logger   *log.Logger

	// ErgPerShift is the watts step per shift in power-target mode.
	ErgPerShift int32

	// InternalErg suppresses the outbound set-target-power command, for
	// configurations where the power loop is closed internally rather than
	// passed through to an external fitness machine.
	InternalErg bool

	// LoopInterval overrides the motion task cadence.
	LoopInterval time.Duration

	// BlinkDelay overrides the factory-reset LED blink spacing.
	BlinkDelay time.Duration

	// DirPin is the actuator direction pin passed back to the driver on
	// live direction reconfiguration.
	DirPin int

	// LED drives the indicator output.
	LED func(on bool)

	// Store is the persistence collaborator used by the factory reset.
	Store config.Store

	// Restart requests a process restart.
	Restart func()
}

// Controller is the single process-wide controller state: the resolved
// target position, the external-control and sync flags, and the references
// every control path shares.
type Controller struct {
	params   *state.Params
	settings *config.Settings
	actuator stepper.Actuator
	writer   ftms.CommandWriter
	notifier ftms.Notifier
	clients  ftms.Clients
	log      *log.Logger

	targetPosition      atomic.Int32
	lastShifterPosition atomic.Int32
	externalControl     atomic.Bool
	syncMode            atomic.Bool
	stepperRunning      atomic.Bool

	ergPerShift  int32
	internalErg  bool
	loopInterval time.Duration
	blinkDelay   time.Duration
	dirPin       int

	// stepperDir is the last applied wiring direction; owned by the motion
	// task after InitActuator.
	stepperDir bool

	led     func(on bool)
	store   config.Store
	restart func()
}

// New builds a Controller around the shared parameter store and settings.
func New(params *state.Params, settings *config.Settings, opts Options) *Controller {
	c := &Controller{
		params:       params,
		settings:     settings,
		actuator:     opts.Actuator,
		writer:       opts.Writer,
		notifier:     opts.Notifier,
		clients:      opts.Clients,
		log:          opts.Logger,
		ergPerShift:  opts.ErgPerShift,
		internalErg:  opts.InternalErg,
		loopInterval: opts.LoopInterval,
		blinkDelay:   opts.BlinkDelay,
		dirPin:       opts.DirPin,
		led:          opts.LED,
		store:        opts.Store,
		restart:      opts.Restart,
	}
	if c.writer == nil {
		c.writer = ftms.NopWriter{}
	}
	if c.clients == nil {
		c.clients = ftms.NopClients{}
	}
	if c.log == nil {
		c.log = log.GetLogger("control")
	}
	if c.ergPerShift == 0 {
		c.ergPerShift = DefaultErgPerShift
	}
	if c.loopInterval == 0 {
		c.loopInterval = DefaultLoopInterval
	}
	if c.blinkDelay == 0 {
		c.blinkDelay = 200 * time.Millisecond
	}
	if c.led == nil {
		c.led = func(bool) {}
	}
	return c
}

// TargetPosition returns the actuator target resolved by the last motion
// iteration (or set externally).
func (c *Controller) TargetPosition() int32 { return c.targetPosition.Load() }

// SetExternalTarget hands target resolution to an outside agent: the motion
// task stops recomputing the target and tracks pos directly.
func (c *Controller) SetExternalTarget(pos int32) {
	c.externalControl.Store(true)
	c.targetPosition.Store(pos)
}

// ReleaseExternalControl returns target resolution to the mode logic.
func (c *Controller) ReleaseExternalControl() { c.externalControl.Store(false) }

// ExternalControl reports whether an outside agent owns the target.
func (c *Controller) ExternalControl() bool { return c.externalControl.Load() }

// RequestSync asks the motion task to redefine the actuator's physical
// position as the current target without ramped motion.
func (c *Controller) RequestSync() { c.syncMode.Store(true) }

// SyncPending reports whether a sync request is outstanding.
func (c *Controller) SyncPending() bool { return c.syncMode.Load() }

// StepperRunning reports whether the actuator had a move in flight at the
// last motion iteration.
func (c *Controller) StepperRunning() bool { return c.stepperRunning.Load() }

// LastShifterPosition returns the last fully resolved shifter position; the
// mode resolver restores the store to this value when it blocks a shift.
func (c *Controller) LastShifterPosition() int32 { return c.lastShifterPosition.Load() }

// SwitchMode changes the governing control scheme, resetting the shifter
// position to the last resolved offset so the new mode starts without a
// positional jump.
func (c *Controller) SwitchMode(m state.Mode) {
	c.params.SetFTMSMode(m, c.lastShifterPosition.Load())
}

// MotorStop halts motion and redefines the current position as the target.
// With releaseTension it backs off four shift steps to unload the drivetrain.
func (c *Controller) MotorStop(releaseTension bool) {
	a := c.actuator
	if a == nil {
		return
	}
	a.StopMove()
	a.SetCurrentPosition(c.targetPosition.Load())
	if releaseTension {
		a.MoveTo(c.targetPosition.Load() - c.settings.ShiftStep()*4)
	}
}

// ResetIfShiftersHeld performs the boot-time factory reset: when both shift
// inputs read held, blink the indicator, then repeatedly format storage and
// write defaults, then restart. When the shifters are not both held this is
// a no-op.
func (c *Controller) ResetIfShiftersHeld(in *shifter.Input) {
	if !in.BothHeld() {
		return
	}
	c.log.Warn("both shifters held at boot, restoring defaults")

	for i := 0; i < 10; i++ {
		c.led(true)
		time.Sleep(c.blinkDelay)
		c.led(false)
	}
	if c.store != nil {
		for i := 0; i < 20; i++ {
			c.store.Format()
			c.store.SetDefaults()
		}
	}
	if c.restart != nil {
		c.restart()
	}
}
