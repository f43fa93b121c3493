// Controller metric set.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

// ControllerMetrics groups the metrics the controller exports: live
// telemetry gauges updated from the maintenance flush tick and event
// counters incremented at the source.
type ControllerMetrics struct {
	Registry *Registry

	ShiftsResolved  *Counter
	LogLinesDropped *Gauge

	PowerWatts      *Gauge
	CadenceRPM      *Gauge
	Resistance      *Gauge
	CurrentIncline  *Gauge
	TargetIncline   *Gauge
	ShifterPosition *Gauge
	ClientsActive   *Gauge
}

// NewControllerMetrics registers the controller metric set on a fresh
// registry.
func NewControllerMetrics() *ControllerMetrics {
	r := NewRegistry()
	return &ControllerMetrics{
		Registry:        r,
		ShiftsResolved:  r.Counter("smartspin_shifts_resolved_total", "Shift resolutions applied by the mode resolver"),
		LogLinesDropped: r.Gauge("smartspin_log_drops", "Log writes dropped under mirror contention"),
		PowerWatts:      r.Gauge("smartspin_power_watts", "Rider power reported by the bike"),
		CadenceRPM:      r.Gauge("smartspin_cadence_rpm", "Rider cadence reported by the bike"),
		Resistance:      r.Gauge("smartspin_resistance", "Bike resistance reading"),
		CurrentIncline:  r.Gauge("smartspin_current_incline", "Actuator position read-back"),
		TargetIncline:   r.Gauge("smartspin_target_incline", "Logical target incline"),
		ShifterPosition: r.Gauge("smartspin_shifter_position", "Accumulated shifter position"),
		ClientsActive:   r.Gauge("smartspin_clients_active", "Connected log streaming clients"),
	}
}

// NotifyShift implements the shift notification collaborator by counting
// resolutions.
func (m *ControllerMetrics) NotifyShift() { m.ShiftsResolved.Inc() }
