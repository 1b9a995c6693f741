package onewire

import (
	"fmt"
	"sync"
)

// Command is a ROM-level opcode, transmitted as the first byte after a
// reset/presence cycle. Values are the standard Dallas/Maxim assignments.
type Command byte

const (
	CmdReadROM        Command = 0x33
	CmdMatchROM       Command = 0x55
	CmdSkipROM        Command = 0xCC
	CmdSearchROM      Command = 0xF0
	CmdAlarmSearch    Command = 0xEC
	CmdOverdriveSkip  Command = 0x3C
	CmdOverdriveMatch Command = 0x69
)

// Session runs byte-level traffic and ROM addressing commands over a
// Transport. It owns the per-bus mutex: every exported operation is one
// full transaction, locked end to end, so a Session may be shared between
// goroutines even though the bus itself is strictly serial. There is no
// internal timeout or cancellation; the caller controls pacing by deciding
// when to issue the next operation.
//
// Usage: wrap a bitbang.Master (or uart.Adapter) with NewSession, then
// address devices with the ROM commands and exchange payload bytes with
// WriteBytes/ReadBytes.
type Session struct {
	mu sync.Mutex
	t  Transport
}

// NewSession wraps a transport. The session starts at Standard speed;
// entering Overdrive is a ROM command exchange (OverdriveSkipROM or
// OverdriveMatchROM), never a local toggle.
func NewSession(t Transport) *Session {
	if sc, ok := t.(SpeedController); ok {
		_ = sc.SetSpeed(Standard)
	}
	return &Session{t: t}
}

// Reset issues a reset/presence cycle and reports whether any device
// answered. An empty bus is not an error.
func (s *Session) Reset() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.Reset()
}

// WriteByte transmits one byte and verifies its echo. A slave pulling the
// line low during a write-1 slot means the bus is desynchronized or noisy,
// which surfaces as ErrLineFault.
func (s *Session) WriteByte(b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeByte(b)
}

// WriteBytes transmits a byte sequence with echo verification.
func (s *Session) WriteBytes(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBytes(p)
}

// ReadByte reads one byte by touching 0xFF.
func (s *Session) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.TouchByte(0xFF)
}

// ReadBytes fills p with bytes read from the bus.
func (s *Session) ReadBytes(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readBytes(p)
}

// ReadChecked fills p with len(p) data bytes, reads one trailing CRC-8
// byte and fails with ErrCRCMismatch unless the residual over the whole
// block is zero. Many devices frame register and scratchpad reads this way.
func (s *Session) ReadChecked(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var d Digest
	if err := s.readBytes(p); err != nil {
		return err
	}
	d.Update(p)
	crc, err := s.t.TouchByte(0xFF)
	if err != nil {
		return err
	}
	d.UpdateByte(crc)
	if d.Sum() != 0 {
		return fmt.Errorf("onewire: read block of %d: %w", len(p), ErrCRCMismatch)
	}
	return nil
}

// ReadROM reads the identity of the only device on the bus (reset, 0x33,
// eight ROM bytes, CRC validation). With more than one device present the
// wired-AND collision garbles the code, which the CRC check rejects.
func (s *Session) ReadROM() (ROM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r ROM
	if err := s.present(); err != nil {
		return r, fmt.Errorf("onewire: read rom: %w", err)
	}
	if err := s.writeByte(byte(CmdReadROM)); err != nil {
		return r, fmt.Errorf("onewire: read rom: %w", err)
	}
	if err := s.readBytes(r[:]); err != nil {
		return r, fmt.Errorf("onewire: read rom: %w", err)
	}
	if !r.Valid() {
		return r, fmt.Errorf("onewire: read rom %s: %w", r, ErrCRCMismatch)
	}
	return r, nil
}

// MatchROM addresses one device by its ROM; subsequent traffic talks to
// that device only, until the next reset.
func (s *Session) MatchROM(rom ROM) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.present(); err != nil {
		return fmt.Errorf("onewire: match rom: %w", err)
	}
	if err := s.writeByte(byte(CmdMatchROM)); err != nil {
		return fmt.Errorf("onewire: match rom: %w", err)
	}
	if err := s.writeBytes(rom[:]); err != nil {
		return fmt.Errorf("onewire: match rom %s: %w", rom, err)
	}
	return nil
}

// SkipROM addresses every device at once. Useful for broadcast commands on
// multi-device buses and for skipping addressing entirely on single-device
// buses.
func (s *Session) SkipROM() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.present(); err != nil {
		return fmt.Errorf("onewire: skip rom: %w", err)
	}
	if err := s.writeByte(byte(CmdSkipROM)); err != nil {
		return fmt.Errorf("onewire: skip rom: %w", err)
	}
	return nil
}

// Verify checks whether the device with the given ROM is currently
// responding, by walking a search-command exchange along its ROM bits:
// only that device can follow the whole path. Devices whose agreed bits
// diverge from rom, or a (1,1) probe answer, prove its absence.
func (s *Session) Verify(rom ROM) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presence, err := s.t.Reset()
	if err != nil {
		return false, fmt.Errorf("onewire: verify %s: %w", rom, err)
	}
	if !presence {
		return false, nil
	}
	if err := s.writeByte(byte(CmdSearchROM)); err != nil {
		return false, fmt.Errorf("onewire: verify %s: %w", rom, err)
	}
	for i := 0; i < 64; i++ {
		idBit, err := s.t.TouchBit(true)
		if err != nil {
			return false, fmt.Errorf("onewire: verify %s: %w", rom, err)
		}
		cmpBit, err := s.t.TouchBit(true)
		if err != nil {
			return false, fmt.Errorf("onewire: verify %s: %w", rom, err)
		}
		if idBit && cmpBit {
			return false, nil
		}
		if idBit != cmpBit && idBit != rom.Bit(i) {
			return false, nil
		}
		if _, err := s.t.TouchBit(rom.Bit(i)); err != nil {
			return false, fmt.Errorf("onewire: verify %s: %w", rom, err)
		}
	}
	return true, nil
}

// OverdriveSkipROM broadcasts the overdrive-skip command at Standard speed
// and switches the transport to Overdrive. Every overdrive-capable device
// on the bus follows; subsequent traffic runs at Overdrive until
// ExitOverdrive.
func (s *Session) OverdriveSkipROM() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.t.(SpeedController)
	if !ok {
		return fmt.Errorf("onewire: overdrive skip rom: %w", ErrSpeedUnsupported)
	}
	if err := s.present(); err != nil {
		return fmt.Errorf("onewire: overdrive skip rom: %w", err)
	}
	if err := s.writeByte(byte(CmdOverdriveSkip)); err != nil {
		return fmt.Errorf("onewire: overdrive skip rom: %w", err)
	}
	if err := sc.SetSpeed(Overdrive); err != nil {
		return fmt.Errorf("onewire: overdrive skip rom: %w", err)
	}
	return nil
}

// OverdriveMatchROM transmits the overdrive-match command at Standard
// speed, switches to Overdrive and addresses the device by sending its ROM
// at the new speed.
func (s *Session) OverdriveMatchROM(rom ROM) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.t.(SpeedController)
	if !ok {
		return fmt.Errorf("onewire: overdrive match rom: %w", ErrSpeedUnsupported)
	}
	if err := s.present(); err != nil {
		return fmt.Errorf("onewire: overdrive match rom: %w", err)
	}
	if err := s.writeByte(byte(CmdOverdriveMatch)); err != nil {
		return fmt.Errorf("onewire: overdrive match rom: %w", err)
	}
	if err := sc.SetSpeed(Overdrive); err != nil {
		return fmt.Errorf("onewire: overdrive match rom: %w", err)
	}
	if err := s.writeBytes(rom[:]); err != nil {
		return fmt.Errorf("onewire: overdrive match rom %s: %w", rom, err)
	}
	return nil
}

// ExitOverdrive drops the transport back to Standard speed and issues a
// Standard-speed reset, which returns every overdrive device to Standard.
// The presence answer is discarded. On transports without speed control
// this is a no-op.
func (s *Session) ExitOverdrive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.t.(SpeedController)
	if !ok {
		return nil
	}
	if err := sc.SetSpeed(Standard); err != nil {
		return fmt.Errorf("onewire: exit overdrive: %w", err)
	}
	if _, err := s.t.Reset(); err != nil {
		return fmt.Errorf("onewire: exit overdrive: %w", err)
	}
	return nil
}

// Speed reports the transport's current timing grade. Transports without
// speed control are always Standard.
func (s *Session) Speed() Speed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.t.(SpeedController); ok {
		return sc.Speed()
	}
	return Standard
}

// PowerBus switches strong pull-up power delivery for parasitically
// powered devices. Transports without power control report
// ErrPowerUnsupported.
func (s *Session) PowerBus(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.t.(PowerController)
	if !ok {
		return fmt.Errorf("onewire: power bus: %w", ErrPowerUnsupported)
	}
	return pc.PowerBus(on)
}

// present resets the bus and requires a presence answer.
func (s *Session) present() error {
	presence, err := s.t.Reset()
	if err != nil {
		return err
	}
	if !presence {
		return ErrNoPresence
	}
	return nil
}

func (s *Session) writeByte(b byte) error {
	echo, err := s.t.TouchByte(b)
	if err != nil {
		return err
	}
	if echo != b {
		return fmt.Errorf("write echo %#02x for %#02x: %w", echo, b, ErrLineFault)
	}
	return nil
}

func (s *Session) writeBytes(p []byte) error {
	for _, b := range p {
		if err := s.writeByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) readBytes(p []byte) error {
	for i := range p {
		b, err := s.t.TouchByte(0xFF)
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}
