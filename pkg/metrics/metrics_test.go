package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(4)
	c.Add(-10)
	if got := c.Value(); got != 5 {
		t.Errorf("counter = %d, want 5", got)
	}
}

func TestGauge(t *testing.T) {
	var g Gauge
	g.Set(3.5)
	if got := g.Value(); got != 3.5 {
		t.Errorf("gauge = %g, want 3.5", got)
	}
	g.Set(-1)
	if got := g.Value(); got != -1 {
		t.Errorf("gauge = %g, want -1", got)
	}
}

func TestRegistryReuse(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("x_total", "")
	b := r.Counter("x_total", "")
	if a != b {
		t.Error("re-registering a counter should return the existing one")
	}
}

func TestRenderFormat(t *testing.T) {
	r := NewRegistry()
	r.Counter("b_total", "counts b").Inc()
	r.Gauge("a_value", "current a").Set(2.5)

	out := r.Render()

	wantLines := []string{
		"# HELP a_value current a",
		"# TYPE a_value gauge",
		"a_value 2.5",
		"# HELP b_total counts b",
		"# TYPE b_total counter",
		"b_total 1",
	}
	if got := strings.TrimRight(out, "\n"); got != strings.Join(wantLines, "\n") {
		t.Errorf("render:\n%s\nwant:\n%s", got, strings.Join(wantLines, "\n"))
	}
}

func TestServeHTTP(t *testing.T) {
	m := NewControllerMetrics()
	m.NotifyShift()
	m.PowerWatts.Set(185)

	rec := httptest.NewRecorder()
	m.Registry.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "smartspin_shifts_resolved_total 1") {
		t.Errorf("missing shift counter in:\n%s", body)
	}
	if !strings.Contains(body, "smartspin_power_watts 185") {
		t.Errorf("missing power gauge in:\n%s", body)
	}
}
