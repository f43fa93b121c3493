package peloton

import (
	"bytes"
	"testing"

	"smartspin-go/pkg/state"
)

// fakePort queues inbound data and records outbound frames.
type fakePort struct {
	writes  [][]byte
	inbound []byte
	full    bool
}

func (p *fakePort) Available() int { return len(p.inbound) }

func (p *fakePort) AvailableForWrite() int {
	if p.full {
		return 0
	}
	return 64
}

func (p *fakePort) Write(data []byte) (int, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	p.writes = append(p.writes, buf)
	return len(data), nil
}

func (p *fakePort) ReadBytesUntil(delim byte, buf []byte) (int, error) {
	n := 0
	for n < len(buf) && len(p.inbound) > 0 {
		b := p.inbound[0]
		p.inbound = p.inbound[1:]
		if b == delim {
			return n, nil
		}
		buf[n] = b
		n++
	}
	return n, nil
}

type recDecoder struct {
	payloads [][]byte
	devices  []string
}

func (d *recDecoder) Decode(deviceID, characteristicID, address string, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	d.payloads = append(d.payloads, buf)
	d.devices = append(d.devices, deviceID)
}

func TestRequestFrame(t *testing.T) {
	cases := []struct {
		name string
		op   byte
		want []byte
	}{
		{"power", ReqPower, []byte{0xF1, 0x44, 0x00, 0x35}},
		{"cadence", ReqCadence, []byte{0xF1, 0x41, 0x00, 0x32}},
		{"resistance", ReqResistance, []byte{0xF1, 0x4A, 0x00, 0x3B}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequestFrame(tc.op); !bytes.Equal(got, tc.want) {
				t.Errorf("RequestFrame(%#x) = %v, want %v", tc.op, got, tc.want)
			}
		})
	}
}

func TestTxCycleRoundRobin(t *testing.T) {
	port := &fakePort{}
	e := New(state.NewParams(), port, &recDecoder{}, nil)
	e.Connected()

	for i := 0; i < 6; i++ {
		e.TxCycle()
	}

	wantOps := []byte{ReqPower, ReqCadence, ReqResistance, ReqPower, ReqCadence, ReqResistance}
	if len(port.writes) != len(wantOps) {
		t.Fatalf("writes = %d, want %d", len(port.writes), len(wantOps))
	}
	for i, frame := range port.writes {
		if frame[1] != wantOps[i] {
			t.Errorf("write %d opcode = %#x, want %#x", i, frame[1], wantOps[i])
		}
	}
	if e.TxCheck() != TxCheckInterval-2 {
		t.Errorf("txCheck = %d, want %d", e.TxCheck(), TxCheckInterval-2)
	}
}

func TestTxCycleRespectsWriteSpace(t *testing.T) {
	port := &fakePort{full: true}
	e := New(state.NewParams(), port, &recDecoder{}, nil)
	e.Connected()

	e.TxCycle()

	if len(port.writes) != 0 {
		t.Errorf("writes = %d, want 0 with no write space", len(port.writes))
	}
}

func TestTxBudgetExhaustionResetsBounds(t *testing.T) {
	params := state.NewParams()
	port := &fakePort{}
	e := New(params, port, &recDecoder{}, nil)

	params.Resistance.SetValue(30)
	e.Connected()
	if params.MinResistance() != MinResistance || params.MaxResistance() != MaxResistance {
		t.Fatalf("connected bounds = [%d, %d], want [%d, %d]",
			params.MinResistance(), params.MaxResistance(), MinResistance, MaxResistance)
	}

	// Burn the whole transmit budget, then one more cycle to enter backoff.
	for i := 0; i < TxCheckInterval*3; i++ {
		e.TxCycle()
	}
	if e.TxCheck() != 0 {
		t.Fatalf("txCheck after budget = %d, want 0", e.TxCheck())
	}
	e.TxCycle()

	if params.MinResistance() != -state.DefaultResistanceRange ||
		params.MaxResistance() != state.DefaultResistanceRange {
		t.Errorf("backoff bounds = [%d, %d], want default range",
			params.MinResistance(), params.MaxResistance())
	}
	if len(port.writes) != TxCheckInterval*3 {
		t.Errorf("writes = %d, want exactly the budget %d", len(port.writes), TxCheckInterval*3)
	}
}

func TestTxBackoffCountsBackToProbe(t *testing.T) {
	port := &fakePort{}
	e := New(state.NewParams(), port, &recDecoder{}, nil)

	// txCheck 0 enters backoff at -TxCheckInterval and counts up each cycle;
	// at -1 it snaps positive so transmission resumes.
	for i := 0; i < TxCheckInterval; i++ {
		e.TxCycle()
	}
	if e.TxCheck() < 1 {
		t.Fatalf("txCheck = %d, want positive after backoff", e.TxCheck())
	}

	e.TxCycle()
	if len(port.writes) != 1 {
		t.Errorf("writes = %d, want re-probe transmission", len(port.writes))
	}
}

func TestConnectedWithoutResistanceKeepsDefaultRange(t *testing.T) {
	params := state.NewParams()
	e := New(params, &fakePort{}, &recDecoder{}, nil)

	e.Connected()

	if params.MinResistance() != -state.DefaultResistanceRange ||
		params.MaxResistance() != state.DefaultResistanceRange {
		t.Errorf("bounds = [%d, %d], want default range with no reading",
			params.MinResistance(), params.MaxResistance())
	}
	if e.TxCheck() != TxCheckInterval {
		t.Errorf("txCheck = %d, want refilled %d", e.TxCheck(), TxCheckInterval)
	}
}

func TestOnReceiveForwardsHeaderPayloads(t *testing.T) {
	dec := &recDecoder{}
	port := &fakePort{inbound: []byte{0x00, Header, 0x41, 0x05, Header, 0x09, Footer}}
	e := New(state.NewParams(), port, dec, nil)

	e.OnReceive()

	want := [][]byte{
		{Header, 0x41, 0x05, Header, 0x09},
		{Header, 0x09},
	}
	if len(dec.payloads) != len(want) {
		t.Fatalf("payloads = %d, want %d", len(dec.payloads), len(want))
	}
	for i := range want {
		if !bytes.Equal(dec.payloads[i], want[i]) {
			t.Errorf("payload %d = %v, want %v", i, dec.payloads[i], want[i])
		}
		if dec.devices[i] != DeviceID {
			t.Errorf("device %d = %q, want %q", i, dec.devices[i], DeviceID)
		}
	}
}

func TestOnReceiveRefillsBudget(t *testing.T) {
	port := &fakePort{inbound: []byte{Header, 0x44, Footer}}
	e := New(state.NewParams(), port, &recDecoder{}, nil)

	e.OnReceive()

	if e.TxCheck() != TxCheckInterval {
		t.Errorf("txCheck = %d, want %d after receive", e.TxCheck(), TxCheckInterval)
	}
}
