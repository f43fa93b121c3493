// Metrics collection for the smartspin controller.
//
// Provides a small Prometheus-text-format registry with counters and
// gauges. No labels; the controller's metric set is flat.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing value.
type Counter struct {
	value atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds n; negative deltas are ignored.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.value.Add(n)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	bits atomic.Uint64
}

// Set stores v.
func (g *Gauge) Set(v float64) { g.bits.Store(math.Float64bits(v)) }

// Value returns the current value.
func (g *Gauge) Value() float64 { return math.Float64frombits(g.bits.Load()) }

type metric struct {
	name    string
	help    string
	counter *Counter
	gauge   *Gauge
}

// Registry holds registered metrics and renders them in Prometheus text
// format.
type Registry struct {
	mu      sync.Mutex
	metrics map[string]*metric
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]*metric)}
}

// Counter registers and returns a counter. Registering the same name twice
// returns the existing counter.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok && m.counter != nil {
		return m.counter
	}
	c := &Counter{}
	r.metrics[name] = &metric{name: name, help: help, counter: c}
	return c
}

// Gauge registers and returns a gauge. Registering the same name twice
// returns the existing gauge.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok && m.gauge != nil {
		return m.gauge
	}
	g := &Gauge{}
	r.metrics[name] = &metric{name: name, help: help, gauge: g}
	return g
}

// Render returns all metrics in Prometheus text exposition format, sorted
// by name.
func (r *Registry) Render() string {
	r.mu.Lock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	metrics := make([]*metric, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		metrics = append(metrics, r.metrics[name])
	}
	r.mu.Unlock()

	var sb strings.Builder
	for _, m := range metrics {
		if m.help != "" {
			fmt.Fprintf(&sb, "# HELP %s %s\n", m.name, m.help)
		}
		if m.counter != nil {
			fmt.Fprintf(&sb, "# TYPE %s counter\n%s %d\n", m.name, m.name, m.counter.Value())
		} else {
			fmt.Fprintf(&sb, "# TYPE %s gauge\n%s %g\n", m.name, m.name, m.gauge.Value())
		}
	}
	return sb.String()
}

// ServeHTTP implements http.Handler for scraping.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(r.Render()))
}
