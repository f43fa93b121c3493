package log

import (
	"strings"
	"sync"
	"testing"
)

// TestMirrorAppendAndDrain tests basic buffering and draining.
func TestMirrorAppendAndDrain(t *testing.T) {
	m := NewMirror(64)

	if !m.Append([]byte("first line\n")) {
		t.Fatal("Append dropped without contention")
	}
	m.Append([]byte("second line\n"))

	got := m.GetAndClear()
	if got != "first line\nsecond line\n" {
		t.Errorf("GetAndClear() = %q", got)
	}
	if m.GetAndClear() != "" {
		t.Error("second drain should be empty")
	}
}

// TestMirrorOverflowTruncates tests that overflow collapses to the elision
// marker instead of growing.
func TestMirrorOverflowTruncates(t *testing.T) {
	m := NewMirror(16)

	m.Append([]byte("0123456789"))
	m.Append([]byte("abcdefghij")) // would exceed 16 bytes

	got := m.GetAndClear()
	if !strings.HasPrefix(got, "...\n") {
		t.Errorf("overflow should truncate to marker, got %q", got)
	}
	if len(got) > 16 {
		t.Errorf("buffer exceeded capacity: %d bytes", len(got))
	}
}

// TestMirrorDropsOnContention tests the lose-data-never-stall policy: with
// the lock held by a reader, writers drop instead of blocking.
func TestMirrorDropsOnContention(t *testing.T) {
	m := NewMirror(1024)

	m.mu.Lock()
	done := make(chan bool)
	go func() {
		done <- m.Append([]byte("contended\n"))
	}()
	wrote := <-done
	m.mu.Unlock()

	if wrote {
		t.Error("Append succeeded while the lock was held")
	}
	if m.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", m.Dropped())
	}
	if got := m.GetAndClear(); got != "" {
		t.Errorf("dropped write still landed: %q", got)
	}
}

// TestMirrorConcurrentWriters exercises the try-lock path under load.
func TestMirrorConcurrentWriters(t *testing.T) {
	m := NewMirror(1 << 16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Append([]byte("x\n"))
			}
		}()
	}
	wg.Wait()

	drained := m.GetAndClear()
	kept := int64(strings.Count(drained, "x\n"))
	if kept+m.Dropped() != 800 {
		t.Errorf("kept %d + dropped %d != 800", kept, m.Dropped())
	}
}

// TestLoggerMirrorTee tests that a logger tees formatted lines into its
// mirror.
func TestLoggerMirrorTee(t *testing.T) {
	m := NewMirror(1024)
	var sink strings.Builder

	l := New("test")
	l.SetWriter(&sink)
	l.SetColorize(false)
	l.SetMirror(m)

	l.Info("target now %dw", 155)

	drained := m.GetAndClear()
	if !strings.Contains(drained, "target now 155w") {
		t.Errorf("mirror missing log line: %q", drained)
	}
	if !strings.Contains(sink.String(), "target now 155w") {
		t.Errorf("writer missing log line: %q", sink.String())
	}
}

// TestLoggerLevelFilter tests level gating.
func TestLoggerLevelFilter(t *testing.T) {
	var sink strings.Builder
	l := New("test")
	l.SetWriter(&sink)
	l.SetColorize(false)
	l.SetLevel(WARN)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")

	out := sink.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level lines leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("WARN line missing: %q", out)
	}
}

// TestParseLevel tests level parsing defaults.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"DEBUG", DEBUG},
		{"warn", WARN},
		{"WARNING", WARN},
		{"error", ERROR},
		{"bogus", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
