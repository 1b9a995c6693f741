package onewiretest

import (
	"fmt"

	"github.com/mklimuk/onewire"
)

var _ onewire.Transport = &Playback{}

// IO is one scripted bus segment: a reset answered with a presence value,
// or a run of byte touches where W holds the bytes the caller is expected
// to put on the line and R the bytes the line answers with. len(R) must
// equal len(W); read slots appear in W as 0xFF.
type IO struct {
	Reset    bool
	Presence bool
	W        []byte
	R        []byte
}

// Playback replays a scripted exchange and fails the transaction as soon
// as the caller diverges from the script. Bit-level traffic is not
// scriptable; use Net for search flows.
type Playback struct {
	Ops []IO

	op  int
	idx int
}

func (p *Playback) Reset() (bool, error) {
	if p.op >= len(p.Ops) {
		return false, fmt.Errorf("onewiretest: reset past end of script")
	}
	step := p.Ops[p.op]
	if !step.Reset {
		return false, fmt.Errorf("onewiretest: unexpected reset at op %d", p.op)
	}
	p.op++
	p.idx = 0
	return step.Presence, nil
}

func (p *Playback) TouchByte(b byte) (byte, error) {
	if p.op >= len(p.Ops) {
		return 0, fmt.Errorf("onewiretest: byte %#02x past end of script", b)
	}
	step := p.Ops[p.op]
	if step.Reset {
		return 0, fmt.Errorf("onewiretest: byte %#02x where reset scripted at op %d", b, p.op)
	}
	if p.idx >= len(step.W) {
		return 0, fmt.Errorf("onewiretest: byte %#02x overruns op %d", b, p.op)
	}
	if step.W[p.idx] != b {
		return 0, fmt.Errorf("onewiretest: op %d byte %d: got %#02x, script expects %#02x", p.op, p.idx, b, step.W[p.idx])
	}
	out := step.R[p.idx]
	p.idx++
	if p.idx == len(step.W) {
		p.op++
		p.idx = 0
	}
	return out, nil
}

func (p *Playback) TouchBit(level bool) (bool, error) {
	return false, fmt.Errorf("onewiretest: bit touch is not scriptable")
}

// Done reports whether the whole script was consumed.
func (p *Playback) Done() error {
	if p.op != len(p.Ops) {
		return fmt.Errorf("onewiretest: %d of %d ops consumed", p.op, len(p.Ops))
	}
	return nil
}
