// Telemetry decoding for Peloton reply frames.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package peloton

import (
	"smartspin-go/pkg/log"
	"smartspin-go/pkg/state"
)

// A reply frame is {Header, opcode, length, digits..., checksum} where the
// digits are ASCII decimal, least significant first, and the checksum is
// the sum of all preceding bytes mod 256.

// TelemetryDecoder parses reply frames into the runtime parameter store. It
// implements Decoder.
type TelemetryDecoder struct {
	params *state.Params
	log    *log.Logger
}

// NewTelemetryDecoder builds a decoder feeding params.
func NewTelemetryDecoder(params *state.Params, logger *log.Logger) *TelemetryDecoder {
	if logger == nil {
		logger = log.GetLogger("peloton")
	}
	return &TelemetryDecoder{params: params, log: logger}
}

// Decode implements Decoder. Malformed frames are logged and dropped.
func (d *TelemetryDecoder) Decode(deviceID, characteristicID, address string, data []byte) {
	value, op, ok := parseFrame(data)
	if !ok {
		d.log.Debug("dropping malformed frame from %s: %v", deviceID, data)
		return
	}
	switch op {
	case ReqPower:
		d.params.Power.SetValue(value)
	case ReqCadence:
		d.params.Cadence.SetValue(value)
	case ReqResistance:
		d.params.Resistance.SetValue(value)
	}
}

// parseFrame validates framing and checksum and returns the decoded value
// and the echoed request opcode.
func parseFrame(data []byte) (value int32, op byte, ok bool) {
	if len(data) < 4 || data[0] != Header {
		return 0, 0, false
	}
	op = data[1]
	n := int(data[2])
	if len(data) < 3+n+1 {
		return 0, 0, false
	}
	var sum byte
	for _, b := range data[:3+n] {
		sum += b
	}
	if sum != data[3+n] {
		return 0, 0, false
	}
	mult := int32(1)
	for _, digit := range data[3 : 3+n] {
		if digit < '0' || digit > '9' {
			return 0, 0, false
		}
		value += int32(digit-'0') * mult
		mult *= 10
	}
	return value, op, true
}
