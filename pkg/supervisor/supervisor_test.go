package supervisor

import (
	"bytes"
	"testing"
	"time"

	"smartspin-go/pkg/log"
)

type countShift struct {
	count int
}

func (c *countShift) ShiftModifier() { c.count++ }

type countAux struct {
	count int
}

func (c *countAux) TxCycle() { c.count++ }

type fakeScanner struct {
	scanning bool
	stops    int
}

func (s *fakeScanner) IsScanning() bool { return s.scanning }
func (s *fakeScanner) StopScan()        { s.stops++; s.scanning = false }

type fakeClients struct {
	n int
}

func (c *fakeClients) ConnectedCount() int { return c.n }

// testClock steps a fake time source.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time       { return c.now }
func (c *testClock) Step(d time.Duration) { c.now = c.now.Add(d) }

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetWriter(&bytes.Buffer{})
	l.SetLevel(log.ERROR)
	return l
}

func newTestSupervisor(mail *Mailbox, cfg Config, clock *testClock) *Supervisor {
	cfg.Now = clock.Now
	cfg.Sleep = func(time.Duration) {}
	cfg.Logger = quietLogger()
	return New(mail, cfg)
}

func TestMailboxConsumeOnce(t *testing.T) {
	var m Mailbox
	m.RequestReboot()
	m.RequestReboot()
	if !m.TakeReboot() {
		t.Fatal("first take should consume the request")
	}
	if m.TakeReboot() {
		t.Error("second take should be empty")
	}

	m.RequestSave()
	if !m.TakeSave() || m.TakeSave() {
		t.Error("save slot should be consumed exactly once")
	}
}

func TestTickDrivesShiftAndAux(t *testing.T) {
	shift := &countShift{}
	aux := &countAux{}
	clock := &testClock{now: time.Unix(0, 0)}
	s := newTestSupervisor(&Mailbox{}, Config{Shift: shift, Aux: aux}, clock)

	for i := 0; i < 5; i++ {
		s.tick()
	}

	if shift.count != 5 || aux.count != 5 {
		t.Errorf("shift=%d aux=%d, want 5 each", shift.count, aux.count)
	}
}

func TestRebootRequestRestarts(t *testing.T) {
	mail := &Mailbox{}
	restarted := 0
	clock := &testClock{now: time.Unix(0, 0)}
	s := newTestSupervisor(mail, Config{Restart: func() { restarted++ }}, clock)

	s.tick()
	if restarted != 0 {
		t.Fatal("restart without a request")
	}

	mail.RequestReboot()
	s.tick()
	if restarted != 1 {
		t.Fatalf("restarted = %d, want 1", restarted)
	}

	// Consumed: the next tick must not restart again.
	s.tick()
	if restarted != 1 {
		t.Errorf("restarted = %d after consume, want 1", restarted)
	}
}

func TestSaveRequestPersists(t *testing.T) {
	mail := &Mailbox{}
	saves := 0
	clock := &testClock{now: time.Unix(0, 0)}
	s := newTestSupervisor(mail, Config{Save: func() error { saves++; return nil }}, clock)

	mail.RequestSave()
	s.tick()
	s.tick()

	if saves != 1 {
		t.Errorf("saves = %d, want 1", saves)
	}
}

func TestLogFlushCadence(t *testing.T) {
	flushes := 0
	clock := &testClock{now: time.Unix(0, 0)}
	s := newTestSupervisor(&Mailbox{}, Config{Flush: func() { flushes++ }}, clock)

	s.tick()
	if flushes != 0 {
		t.Fatal("flushed before the interval elapsed")
	}

	clock.Step(DefaultLogFlushInterval + time.Millisecond)
	s.tick()
	s.tick()
	if flushes != 1 {
		t.Errorf("flushes = %d, want 1 per elapsed interval", flushes)
	}
}

func TestScanWatchdogEdgeTriggered(t *testing.T) {
	scanner := &fakeScanner{}
	clock := &testClock{now: time.Unix(0, 0)}
	s := newTestSupervisor(&Mailbox{}, Config{Scanner: scanner}, clock)

	// First window observes a running scan but only arms the watchdog.
	scanner.scanning = true
	clock.Step(DefaultScanWatchdogInterval + time.Millisecond)
	s.tick()
	if scanner.stops != 0 {
		t.Fatal("scan stopped on first observation")
	}

	// Still running a window later: force stop.
	clock.Step(DefaultScanWatchdogInterval + time.Millisecond)
	s.tick()
	if scanner.stops != 1 {
		t.Fatalf("stops = %d, want 1", scanner.stops)
	}

	// An idle check re-arms the flag, so the next scan observed running is
	// stopped at its first check.
	scanner.scanning = false
	clock.Step(DefaultScanWatchdogInterval + time.Millisecond)
	s.tick()
	scanner.scanning = true
	clock.Step(DefaultScanWatchdogInterval + time.Millisecond)
	s.tick()
	clock.Step(DefaultScanWatchdogInterval + time.Millisecond)
	s.tick()
	if scanner.stops != 2 {
		t.Errorf("stops = %d, want 2", scanner.stops)
	}
}

func TestIdleRebootOnlyWithoutClients(t *testing.T) {
	t.Run("no clients raises reboot", func(t *testing.T) {
		mail := &Mailbox{}
		clock := &testClock{now: time.Unix(0, 0)}
		s := newTestSupervisor(mail, Config{Clients: &fakeClients{n: 0}}, clock)

		clock.Step(DefaultIdleRebootInterval + time.Second)
		s.tick()
		if !mail.RebootPending() {
			t.Error("idle timeout did not raise a reboot request")
		}
	})

	t.Run("connected client suppresses reboot", func(t *testing.T) {
		mail := &Mailbox{}
		clock := &testClock{now: time.Unix(0, 0)}
		s := newTestSupervisor(mail, Config{Clients: &fakeClients{n: 1}}, clock)

		clock.Step(DefaultIdleRebootInterval + time.Second)
		s.tick()
		if mail.RebootPending() {
			t.Error("reboot raised despite a connected client")
		}
	})
}
