// Maintenance supervisor: the housekeeping loop that resolves shifts,
// drives the auxiliary transmit cycle, services deferred reboot/save
// requests, flushes logs and bounds runaway device scans.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package supervisor runs the periodic maintenance loop and owns the
// single-slot request mailbox other components use to defer reboot and
// save actions to a safe point.
package supervisor

import (
	"context"
	"sync/atomic"
	"time"

	"smartspin-go/pkg/ftms"
	"smartspin-go/pkg/log"
)

// Loop cadences. Test-overridable via Config.
const (
	DefaultLoopInterval         = 73 * time.Millisecond
	DefaultLogFlushInterval     = 2003 * time.Millisecond
	DefaultScanWatchdogInterval = 6007 * time.Millisecond
	DefaultIdleRebootInterval   = 30 * time.Minute
	DefaultRebootGraceDelay     = 100 * time.Millisecond
)

// Mailbox is the deferred-request channel between components and the
// supervisor. Each kind is a single slot: raising an already-raised request
// is idempotent, and the supervisor consumes a slot exactly once.
type Mailbox struct {
	reboot atomic.Bool
	save   atomic.Bool
}

// RequestReboot raises the reboot request.
func (m *Mailbox) RequestReboot() { m.reboot.Store(true) }

// RequestSave raises the save request.
func (m *Mailbox) RequestSave() { m.save.Store(true) }

// TakeReboot consumes the reboot request, reporting whether it was raised.
func (m *Mailbox) TakeReboot() bool { return m.reboot.Swap(false) }

// TakeSave consumes the save request, reporting whether it was raised.
func (m *Mailbox) TakeSave() bool { return m.save.Swap(false) }

// RebootPending reports the reboot slot without consuming it.
func (m *Mailbox) RebootPending() bool { return m.reboot.Load() }

// ShiftResolver is invoked every iteration to fold pending shifter input
// into the active control mode.
type ShiftResolver interface {
	ShiftModifier()
}

// AuxTransmitter drives one auxiliary serial transmit cycle.
type AuxTransmitter interface {
	TxCycle()
}

// Scanner exposes the wireless device scan the watchdog bounds.
type Scanner interface {
	IsScanning() bool
	StopScan()
}

// Config carries the supervisor's collaborators and cadences. Zero
// durations select the defaults; nil collaborators disable the matching
// duty.
type Config struct {
	LoopInterval         time.Duration
	LogFlushInterval     time.Duration
	ScanWatchdogInterval time.Duration
	IdleRebootInterval   time.Duration
	RebootGraceDelay     time.Duration

	Shift   ShiftResolver
	Aux     AuxTransmitter
	Scanner Scanner
	Clients ftms.Clients

	// Flush flushes buffered logs and services the log streaming endpoint.
	Flush func()

	// Save persists settings and capabilities.
	Save func() error

	// Restart performs the process restart.
	Restart func()

	Logger *log.Logger

	// Now overrides the clock in tests.
	Now func() time.Time

	// Sleep overrides the reboot grace delay sleep in tests.
	Sleep func(time.Duration)
}

// Supervisor owns the maintenance loop state.
type Supervisor struct {
	cfg  Config
	mail *Mailbox
	log  *log.Logger

	start        time.Time
	lastFlush    time.Time
	lastScanTick time.Time
	wasScanning  bool
}

// New builds a supervisor around mail and cfg.
func New(mail *Mailbox, cfg Config) *Supervisor {
	if cfg.LoopInterval == 0 {
		cfg.LoopInterval = DefaultLoopInterval
	}
	if cfg.LogFlushInterval == 0 {
		cfg.LogFlushInterval = DefaultLogFlushInterval
	}
	if cfg.ScanWatchdogInterval == 0 {
		cfg.ScanWatchdogInterval = DefaultScanWatchdogInterval
	}
	if cfg.IdleRebootInterval == 0 {
		cfg.IdleRebootInterval = DefaultIdleRebootInterval
	}
	if cfg.RebootGraceDelay == 0 {
		cfg.RebootGraceDelay = DefaultRebootGraceDelay
	}
	if cfg.Clients == nil {
		cfg.Clients = ftms.NopClients{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("supervisor")
	}
	now := cfg.Now()
	return &Supervisor{
		cfg:          cfg,
		mail:         mail,
		log:          logger,
		start:        now,
		lastFlush:    now,
		lastScanTick: now,
	}
}

// Run executes the maintenance loop until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.LoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick is one maintenance iteration.
func (s *Supervisor) tick() {
	now := s.cfg.Now()

	if s.cfg.Shift != nil {
		s.cfg.Shift.ShiftModifier()
	}
	if s.cfg.Aux != nil {
		s.cfg.Aux.TxCycle()
	}

	if s.mail.TakeReboot() {
		s.log.Warn("reboot requested, restarting")
		s.cfg.Sleep(s.cfg.RebootGraceDelay)
		if s.cfg.Restart != nil {
			s.cfg.Restart()
		}
		return
	}

	if s.mail.TakeSave() {
		if s.cfg.Save != nil {
			if err := s.cfg.Save(); err != nil {
				s.log.Error("save failed: %v", err)
			}
		}
	}

	if now.Sub(s.lastFlush) > s.cfg.LogFlushInterval {
		if s.cfg.Flush != nil {
			s.cfg.Flush()
		}
		s.lastFlush = now
	}

	if now.Sub(s.lastScanTick) > s.cfg.ScanWatchdogInterval {
		s.scanWatchdog()
		s.lastScanTick = now
	}

	if now.Sub(s.start) > s.cfg.IdleRebootInterval && s.cfg.Clients.ConnectedCount() == 0 {
		s.mail.RequestReboot()
	}
}

// scanWatchdog force-stops a device scan only when one was already observed
// running at the previous check. A scan that starts and finishes inside one
// window is never stopped.
func (s *Supervisor) scanWatchdog() {
	if s.cfg.Scanner == nil {
		return
	}
	if s.cfg.Scanner.IsScanning() && s.wasScanning {
		s.log.Warn("scan still running at watchdog check, stopping it")
		s.cfg.Scanner.StopScan()
		s.wasScanning = false
	} else {
		s.wasScanning = true
	}
}
