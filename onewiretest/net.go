// Package onewiretest provides hardware-free onewire.Transport fakes: Net
// behaves like a bus populated with devices (wired-AND probe answers,
// addressing state machine), Playback replays a scripted byte exchange,
// and TransportMock delegates to behavior functions.
package onewiretest

import (
	"fmt"

	"github.com/mklimuk/onewire"
)

var _ onewire.Transport = &Net{}
var _ onewire.SpeedController = &Net{}

type netState int

const (
	netIdle netState = iota
	netCommand
	netSearch
	netReadROM
	netMatchROM
	netConverse
)

// Net simulates a 1-Wire bus carrying a set of devices. It answers reset
// with a presence pulse when any device is present, plays the wired-AND
// probe game of the search algorithm, arbitrates ReadROM collisions the
// way open-drain hardware does (bitwise AND of all transmitters) and
// tracks device selection through MatchROM/SkipROM. Function-command
// traffic after addressing can be scripted with Respond.
type Net struct {
	// Respond, when set, answers post-addressing traffic: it receives the
	// currently selected devices and the touched byte and returns the line
	// value. When nil the bus idles high (touches echo back).
	Respond func(selected []onewire.ROM, b byte) byte

	devices []onewire.ROM
	alarm   map[onewire.ROM]bool
	speed   onewire.Speed

	state    netState
	active   []onewire.ROM // participants of the running search pass
	selected []onewire.ROM // devices addressed by the last ROM command
	bit      int
	phase    int // 0 = id probe, 1 = complement probe, 2 = direction write
	idx      int
	romBuf   onewire.ROM
}

// NewNet builds a bus populated with the given devices.
func NewNet(devices ...onewire.ROM) *Net {
	return &Net{
		devices: append([]onewire.ROM(nil), devices...),
		alarm:   make(map[onewire.ROM]bool),
	}
}

// SetAlarm marks a device as alarming, making it answer conditional
// searches.
func (n *Net) SetAlarm(rom onewire.ROM, alarming bool) {
	if alarming {
		n.alarm[rom] = true
		return
	}
	delete(n.alarm, rom)
}

// Selected returns the devices addressed by the last completed ROM
// command.
func (n *Net) Selected() []onewire.ROM {
	return append([]onewire.ROM(nil), n.selected...)
}

func (n *Net) Reset() (bool, error) {
	n.state = netCommand
	n.active = nil
	n.selected = nil
	n.bit = 0
	n.phase = 0
	n.idx = 0
	return len(n.devices) > 0, nil
}

func (n *Net) TouchByte(b byte) (byte, error) {
	switch n.state {
	case netCommand:
		return n.dispatch(b)
	case netReadROM:
		// Every device transmits its ROM at once; the open-drain line
		// performs a bitwise AND, garbling the answer when more than one
		// device is present.
		if n.idx >= 8 {
			n.state = netConverse
			return b, nil
		}
		out := byte(0xFF)
		for _, d := range n.devices {
			out &= d[n.idx]
		}
		n.idx++
		if n.idx == 8 {
			n.state = netConverse
			n.selected = append([]onewire.ROM(nil), n.devices...)
		}
		return out, nil
	case netMatchROM:
		n.romBuf[n.idx] = b
		n.idx++
		if n.idx == 8 {
			n.state = netConverse
			n.selected = nil
			for _, d := range n.devices {
				if d == n.romBuf {
					n.selected = append(n.selected, d)
				}
			}
		}
		return b, nil
	case netConverse:
		if n.Respond != nil {
			return n.Respond(n.selected, b), nil
		}
		return b, nil
	case netSearch:
		// Byte traffic mid-search is a protocol violation of the caller.
		return 0, fmt.Errorf("onewiretest: byte touch during search pass")
	default:
		// No reset yet: the bus idles high.
		return b, nil
	}
}

func (n *Net) dispatch(b byte) (byte, error) {
	switch onewire.Command(b) {
	case onewire.CmdSearchROM:
		n.state = netSearch
		n.active = append([]onewire.ROM(nil), n.devices...)
		n.bit = 0
		n.phase = 0
	case onewire.CmdAlarmSearch:
		n.state = netSearch
		n.active = nil
		for _, d := range n.devices {
			if n.alarm[d] {
				n.active = append(n.active, d)
			}
		}
		n.bit = 0
		n.phase = 0
	case onewire.CmdReadROM:
		n.state = netReadROM
		n.idx = 0
	case onewire.CmdMatchROM, onewire.CmdOverdriveMatch:
		n.state = netMatchROM
		n.idx = 0
	case onewire.CmdSkipROM, onewire.CmdOverdriveSkip:
		n.state = netConverse
		n.selected = append([]onewire.ROM(nil), n.devices...)
	default:
		n.state = netConverse
	}
	return b, nil
}

func (n *Net) TouchBit(level bool) (bool, error) {
	if n.state != netSearch {
		if n.Respond != nil && n.state == netConverse {
			// Bit-level conversation is rare; answer through the byte hook
			// by treating the slot as the LSB of a byte.
			out := n.Respond(n.selected, boolByte(level))
			return out&1 != 0, nil
		}
		return level, nil
	}
	switch n.phase {
	case 0: // id probe: low wins on the open-drain line
		n.phase = 1
		if len(n.active) == 0 {
			return true, nil
		}
		for _, d := range n.active {
			if !d.Bit(n.bit) {
				return false, nil
			}
		}
		return true, nil
	case 1: // complement probe
		n.phase = 2
		if len(n.active) == 0 {
			return true, nil
		}
		for _, d := range n.active {
			if d.Bit(n.bit) {
				return false, nil
			}
		}
		return true, nil
	default: // direction write: mismatching devices drop out
		var stay []onewire.ROM
		for _, d := range n.active {
			if d.Bit(n.bit) == level {
				stay = append(stay, d)
			}
		}
		n.active = stay
		n.bit++
		n.phase = 0
		if n.bit == 64 {
			n.state = netConverse
			n.selected = stay
		}
		return level, nil
	}
}

// SetSpeed records the timing grade; the simulated devices follow either
// grade transparently.
func (n *Net) SetSpeed(s onewire.Speed) error {
	n.speed = s
	return nil
}

func (n *Net) Speed() onewire.Speed {
	return n.speed
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
