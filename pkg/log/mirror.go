// In-memory log mirror with a drop-on-contention write policy.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"sync"
	"sync/atomic"
)

// DefaultMirrorSize is the mirror capacity in bytes.
const DefaultMirrorSize = 4096

// Mirror is a bounded in-memory copy of recent log output, drained
// periodically by the maintenance supervisor for the streaming transport.
// Writers attempt a non-blocking lock and silently drop the write on
// contention: the logging caller is never stalled, data is lost instead.
type Mirror struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	dropped atomic.Int64
}

// NewMirror returns a mirror holding at most max bytes; max <= 0 selects
// DefaultMirrorSize.
func NewMirror(max int) *Mirror {
	if max <= 0 {
		max = DefaultMirrorSize
	}
	return &Mirror{buf: make([]byte, 0, max), max: max}
}

// Append adds p to the buffer. Returns false when the write was dropped due
// to lock contention. When p would overflow the capacity the buffer is
// truncated to an elision marker, matching the firmware's behavior.
func (m *Mirror) Append(p []byte) bool {
	if !m.mu.TryLock() {
		m.dropped.Add(1)
		return false
	}
	defer m.mu.Unlock()

	if len(m.buf)+len(p) > m.max {
		m.buf = append(m.buf[:0], "...\n"...)
		if len(p) <= m.max-len(m.buf) {
			m.buf = append(m.buf, p...)
		}
		return true
	}
	m.buf = append(m.buf, p...)
	return true
}

// Write implements io.Writer; the mirror always reports full success so a
// teed writer never sees backpressure.
func (m *Mirror) Write(p []byte) (int, error) {
	m.Append(p)
	return len(p), nil
}

// GetAndClear drains the buffer under the same non-blocking discipline:
// on contention it returns "" and leaves the buffer intact.
func (m *Mirror) GetAndClear() string {
	if !m.mu.TryLock() {
		return ""
	}
	defer m.mu.Unlock()

	out := string(m.buf)
	m.buf = m.buf[:0]
	return out
}

// Dropped returns how many writes were lost to contention.
func (m *Mirror) Dropped() int64 { return m.dropped.Load() }
