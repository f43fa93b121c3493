// Package ftms carries the fitness-machine control point opcodes the control
// core reacts to or emits, and builds the outbound command buffers handed to
// the wireless transport collaborator. The on-air encoding beyond these
// opcodes is out of scope here.
package ftms

// Control point procedure opcodes.
const (
	OpSetTargetResistanceLevel = 0x04
	OpSetTargetPower           = 0x05
	OpStartOrResume            = 0x07
	OpSetIndoorBikeSimulation  = 0x11
)

// Simulation parameter payload trailer. The grade/wind fields are forwarded
// zeroed; only the rolling and wind resistance coefficients carry fixed
// values. Deliberately not computed from live simulation state.
const (
	simCRC = 0x28
	simCW  = 0x33
)

// SetTargetPowerCommand builds a set-target-power command: the opcode
// followed by the watts as a 2-byte little-endian value.
func SetTargetPowerCommand(watts int) []byte {
	return []byte{OpSetTargetPower, byte(watts & 0xff), byte(watts >> 8)}
}

// SimulationParamsCommand builds the indoor-bike-simulation-parameters
// command emitted after every simulation-mode shift resolution.
func SimulationParamsCommand() []byte {
	return []byte{OpSetIndoorBikeSimulation, 0x00, 0x00, 0x00, 0x00, simCRC, simCW}
}

// CommandWriter is the wireless transport collaborator: it delivers an
// opaque command buffer to the remote fitness machine.
type CommandWriter interface {
	WriteControlPoint(data []byte) error
}

// Notifier receives a push notification after every shift resolution.
type Notifier interface {
	NotifyShift()
}

// Clients reports how many remote clients are connected. The motion task
// uses it to decide actuator idle power-down; the maintenance supervisor
// uses it to gate the inactivity restart.
type Clients interface {
	ConnectedCount() int
}

// NopWriter discards outbound commands; used when no transport is attached.
type NopWriter struct{}

// WriteControlPoint implements CommandWriter.
func (NopWriter) WriteControlPoint([]byte) error { return nil }

// NopClients reports zero connected clients.
type NopClients struct{}

// ConnectedCount implements Clients.
func (NopClients) ConnectedCount() int { return 0 }
