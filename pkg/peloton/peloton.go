// Auxiliary serial protocol engine for Peloton bikes: polls the bike for
// power, cadence and resistance over the aux serial link and forwards its
// replies to the telemetry decoder.
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package peloton

import (
	"smartspin-go/pkg/log"
	"smartspin-go/pkg/state"
)

// Wire framing. A request is {Header, opcode, 0x00, checksum} with
// checksum = (Header + opcode) mod 256. Replies end with Footer.
const (
	Header = 0xF1
	Footer = 0xF7

	ReqPower      = 0x44
	ReqCadence    = 0x41
	ReqResistance = 0x4A

	RequestSize = 4
)

// TxCheckInterval is the transmit budget: how many full request cycles go
// out after a detected connection before the engine backs off.
const TxCheckInterval = 20

// Resistance bounds applied while a bike is connected and reporting.
const (
	MinResistance = 0
	MaxResistance = 100
)

// RxBufferSize bounds one reply read.
const RxBufferSize = 20

// Identifiers handed to the telemetry decoder with every forwarded payload.
const (
	DeviceID           = "peloton"
	DataCharacteristic = "peloton-data"
	DeviceAddress      = "aux-serial"
)

// RequestFrame builds the 4-byte request for one telemetry opcode.
func RequestFrame(op byte) []byte {
	return []byte{Header, op, 0x00, byte((int(Header) + int(op)) % 256)}
}

// Port is the serial collaborator the engine transmits and receives
// through.
type Port interface {
	Available() int
	AvailableForWrite() int
	Write(data []byte) (int, error)
	ReadBytesUntil(delim byte, buf []byte) (int, error)
}

// Decoder consumes raw telemetry payloads keyed by device and
// characteristic identifiers.
type Decoder interface {
	Decode(deviceID, characteristicID, address string, data []byte)
}

// Engine drives the request/reply protocol. TxCycle runs from the
// maintenance supervisor; OnReceive runs from the port's data-available
// callback. The engine itself is single-goroutine per side; the resistance
// bounds it publishes live in the shared parameter store.
type Engine struct {
	params  *state.Params
	port    Port
	decoder Decoder
	log     *log.Logger

	txCheck   int
	alternate int
	rxBuf     [RxBufferSize]byte
}

// New builds an engine over the given port and telemetry decoder.
func New(params *state.Params, port Port, decoder Decoder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.GetLogger("peloton")
	}
	return &Engine{
		params:  params,
		port:    port,
		decoder: decoder,
		log:     logger,
	}
}

// TxCheck returns the remaining transmit budget, for tests and status.
func (e *Engine) TxCheck() int { return e.txCheck }

// Connected records a live bike: refill the transmit budget and tighten the
// resistance bounds if the bike is already reporting a positive resistance,
// else leave them at the disabled full range.
func (e *Engine) Connected() {
	e.txCheck = TxCheckInterval
	if e.params.Resistance.Value() > 0 {
		e.params.SetMinResistance(MinResistance)
		e.params.SetMaxResistance(MaxResistance)
	} else {
		e.params.SetMinResistance(-state.DefaultResistanceRange)
		e.params.SetMaxResistance(state.DefaultResistanceRange)
	}
}

// TxCycle emits the next request of the power/cadence/resistance
// round-robin while budget remains. An exhausted budget enters a backoff
// phase that forces the resistance bounds back to the disabled range and
// counts back up toward a re-probe.
func (e *Engine) TxCycle() {
	if e.txCheck >= 1 {
		var op byte
		switch e.alternate {
		case 0:
			op = ReqPower
			e.alternate++
		case 1:
			op = ReqCadence
			e.alternate++
		default:
			op = ReqResistance
			e.alternate = 0
			e.txCheck--
		}
		if e.port.AvailableForWrite() >= RequestSize {
			if _, err := e.port.Write(RequestFrame(op)); err != nil {
				e.log.Error("aux request write failed: %v", err)
			}
		}
		return
	}

	if e.txCheck == 0 {
		e.txCheck = -TxCheckInterval
	} else if e.txCheck == -1 {
		e.txCheck = 1
	}
	e.params.SetMinResistance(-state.DefaultResistanceRange)
	e.params.SetMaxResistance(state.DefaultResistanceRange)
	e.txCheck++
}

// OnReceive drains the port. Each read collects bytes up to the reply
// footer; every header byte found in the read starts one payload that is
// forwarded to the decoder from that offset to the end of the read.
func (e *Engine) OnReceive() {
	for e.port.Available() > 0 {
		e.Connected()
		n, err := e.port.ReadBytesUntil(Footer, e.rxBuf[:])
		if err != nil {
			e.log.Error("aux read failed: %v", err)
			return
		}
		data := e.rxBuf[:n]
		for i := range data {
			if data[i] == Header {
				e.decoder.Decode(DeviceID, DataCharacteristic, DeviceAddress, data[i:])
			}
		}
	}
}
