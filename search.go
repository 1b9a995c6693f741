package onewire

import "fmt"

// defaultMaxPasses caps search passes per enumeration so a misbehaving bus
// cannot loop forever. One pass yields one device, so the default covers
// buses of up to 64 devices; raise it with MaxPasses for larger nets.
const defaultMaxPasses = 64

// Search walks the binary tree spanned by the ROM codes on the bus, one
// device per pass, using the standard 1-Wire search algorithm. It follows
// the bufio.Scanner convention:
//
//	sr := onewire.NewSearch(sess)
//	for sr.Next() {
//		fmt.Println(sr.ROM())
//	}
//	if err := sr.Err(); err != nil { ... }
//
// A Search owns its cursor exclusively; interleaving other traffic on the
// same bus mid-enumeration confuses the devices' search state and is the
// caller's responsibility to avoid. The per-pass bus transaction is locked
// through the session.
type Search struct {
	s         *Session
	cmd       Command
	maxPasses int

	// cursor across passes
	lastDiscrepancy       int // 1-based bit number of the last chosen 0, 0 = none
	lastFamilyDiscrepancy int
	lastDevice            bool
	rom                   ROM // working buffer, replayed pass to pass
	targeted              bool
	family                byte
	familyOnly            bool

	cur    ROM
	passes int
	done   bool
	err    error
}

type SearchOption func(*Search)

// Alarm restricts enumeration to devices currently in an alarm state
// (conditional search, command 0xEC).
func Alarm() SearchOption {
	return func(sr *Search) { sr.cmd = CmdAlarmSearch }
}

// MaxPasses overrides the safety cap on search passes per enumeration.
func MaxPasses(n int) SearchOption {
	return func(sr *Search) { sr.maxPasses = n }
}

func NewSearch(s *Session, opts ...SearchOption) *Search {
	sr := &Search{s: s, cmd: CmdSearchROM, maxPasses: defaultMaxPasses}
	for _, opt := range opts {
		opt(sr)
	}
	return sr
}

// Reset restarts enumeration from the beginning of the tree.
func (sr *Search) Reset() {
	sr.lastDiscrepancy = 0
	sr.lastFamilyDiscrepancy = 0
	sr.lastDevice = false
	sr.rom = ROM{}
	sr.targeted = false
	sr.familyOnly = false
	sr.passes = 0
	sr.done = false
	sr.err = nil
}

// Target restricts enumeration to one family code: the next pass descends
// directly to the family's subtree and enumeration ends as soon as it
// would leave it. If no device of the family is present the enumeration
// ends empty.
func (sr *Search) Target(family byte) {
	sr.Reset()
	sr.rom[0] = family
	sr.lastDiscrepancy = 64
	sr.targeted = true
	sr.family = family
	sr.familyOnly = true
}

// SkipFamily abandons the remaining devices of the family just yielded and
// continues with the next family, if any.
func (sr *Search) SkipFamily() {
	sr.lastDiscrepancy = sr.lastFamilyDiscrepancy
	sr.lastFamilyDiscrepancy = 0
	if sr.lastDiscrepancy == 0 {
		sr.lastDevice = true
	}
}

// Next runs one search pass and reports whether a device was found. It
// returns false when enumeration completed or failed; Err tells the two
// apart.
func (sr *Search) Next() bool {
	if sr.done {
		return false
	}
	if sr.lastDevice {
		sr.done = true
		return false
	}
	if sr.passes >= sr.maxPasses {
		sr.done = true
		sr.err = fmt.Errorf("onewire: search: pass limit %d exceeded: %w", sr.maxPasses, ErrSearchAborted)
		return false
	}
	sr.passes++
	found, err := sr.pass()
	if err != nil {
		sr.done = true
		sr.err = err
		return false
	}
	if !found {
		sr.done = true
		return false
	}
	if sr.familyOnly && sr.cur.Family() != sr.family {
		// Walked out of the targeted family's subtree.
		sr.done = true
		return false
	}
	return true
}

// ROM returns the device yielded by the last successful Next.
func (sr *Search) ROM() ROM {
	return sr.cur
}

// Err returns the error that ended enumeration, nil after a clean finish.
// ErrSearchAborted and ErrCRCMismatch leave previously yielded devices
// standing; the result is simply incomplete.
func (sr *Search) Err() error {
	return sr.err
}

// pass executes one full search transaction: reset, search command, then
// 64 probe/probe/write triplets resolving one ROM.
func (sr *Search) pass() (bool, error) {
	s := sr.s
	s.mu.Lock()
	defer s.mu.Unlock()

	presence, err := s.t.Reset()
	if err != nil {
		return false, fmt.Errorf("onewire: search: %w", err)
	}
	if !presence {
		// Empty or vanished bus ends enumeration; prior finds stand.
		return false, nil
	}
	if err := s.writeByte(byte(sr.cmd)); err != nil {
		return false, fmt.Errorf("onewire: search: %w", err)
	}

	lastZero := 0
	for bit := 1; bit <= 64; bit++ {
		idBit, err := s.t.TouchBit(true)
		if err != nil {
			return false, fmt.Errorf("onewire: search bit %d: %w", bit, err)
		}
		cmpBit, err := s.t.TouchBit(true)
		if err != nil {
			return false, fmt.Errorf("onewire: search bit %d: %w", bit, err)
		}

		var dir bool
		switch {
		case idBit && cmpBit:
			// Nobody answered the probe pair.
			if sr.cmd == CmdAlarmSearch && bit == 1 {
				// No device is alarming right now.
				return false, nil
			}
			if sr.targeted {
				// The targeted family is not on the bus.
				return false, nil
			}
			return false, fmt.Errorf("onewire: search bit %d: %w", bit, ErrSearchAborted)
		case idBit != cmpBit:
			// All remaining devices agree.
			dir = idBit
		default:
			// Discrepancy. Replay the previous pass below the fork point,
			// take the 1 branch exactly at it, explore 0 above it.
			if bit < sr.lastDiscrepancy {
				dir = sr.rom.Bit(bit - 1)
			} else {
				dir = bit == sr.lastDiscrepancy
			}
			if !dir {
				// Any chosen 0, replayed or fresh, is a branch still owing
				// its 1 side: the deepest one is the next fork point.
				lastZero = bit
				if lastZero <= 8 {
					sr.lastFamilyDiscrepancy = lastZero
				}
			}
		}

		if _, err := s.t.TouchBit(dir); err != nil {
			return false, fmt.Errorf("onewire: search bit %d: %w", bit, err)
		}
		sr.rom.SetBit(bit-1, dir)
	}

	if !sr.rom.Valid() {
		return false, fmt.Errorf("onewire: search candidate %s: %w", sr.rom, ErrCRCMismatch)
	}
	if sr.rom.Family() == 0 {
		// A null family code cannot come from a real device; the line is
		// being read stuck low.
		return false, fmt.Errorf("onewire: search produced null family code: %w", ErrLineFault)
	}

	sr.lastDiscrepancy = lastZero
	if lastZero == 0 {
		sr.lastDevice = true
	}
	sr.targeted = false
	sr.cur = sr.rom
	return true, nil
}

// Search enumerates every device on the bus. When enumeration fails
// mid-way the devices already found are returned together with the error.
func (s *Session) Search() ([]ROM, error) {
	sr := NewSearch(s)
	var roms []ROM
	for sr.Next() {
		roms = append(roms, sr.ROM())
	}
	return roms, sr.Err()
}

// AlarmSearch enumerates the devices currently in an alarm state.
func (s *Session) AlarmSearch() ([]ROM, error) {
	sr := NewSearch(s, Alarm())
	var roms []ROM
	for sr.Next() {
		roms = append(roms, sr.ROM())
	}
	return roms, sr.Err()
}
