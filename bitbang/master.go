// Package bitbang implements a 1-Wire bus master on top of a single GPIO
// line, using busy-wait delays to shape reset and bit time slots.
//
// Timing caveat: slots are produced on the calling goroutine. On a hosted
// operating system the scheduler, interrupts and the Go runtime can stretch
// any slot at any point; locking the OS thread and isolating a CPU reduce
// that jitter but never remove it. Standard speed tolerates occasional
// stretched slots reasonably well; Overdrive generally does not work from
// user space, and is best left to pins with a Touch1Overdrive fast path or
// to dedicated bus controllers.
package bitbang

import (
	"fmt"

	"github.com/mklimuk/onewire"
)

// Master drives one 1-Wire bus through an onewire.Pin. It implements
// onewire.Transport, onewire.SpeedController and onewire.PowerController.
//
// A Master is bound to its pin for the life of the bus and is not
// goroutine-safe: wrap it in an onewire.Session for transaction locking,
// and use one Master per bus line.
type Master struct {
	pin  onewire.Pin
	fast onewire.OverdriveToucher
	pwr  onewire.Pin
	// pwrLow is the polarity of the power-control pin: true when driving
	// it low turns bus power on.
	pwrLow  bool
	std     Timings
	od      Timings
	t       Timings
	speed   onewire.Speed
	powered bool
}

type config struct {
	pwr    onewire.Pin
	pwrLow bool
	std    Timings
	od     Timings
	odSet  bool
}

type Option func(*config)

// WithPowerPin routes strong pull-up delivery through a dedicated
// power-control line (a switching transistor gate) instead of the data
// line. The pin is configured as an output at its inactive level at
// construction.
func WithPowerPin(p onewire.Pin) Option {
	return func(c *config) { c.pwr = p }
}

// WithPowerActiveLow inverts the power-control polarity for low-side and
// P-FET switches: driving the control pin low turns bus power on.
func WithPowerActiveLow() Option {
	return func(c *config) { c.pwrLow = true }
}

// WithTimings replaces the standard-speed table. Unless overridden with
// WithOverdriveTimings, the overdrive table is rederived as one eighth of
// the given table.
func WithTimings(t Timings) Option {
	return func(c *config) { c.std = t }
}

// WithOverdriveTimings replaces the overdrive table, e.g. with the
// published overdrive column.
func WithOverdriveTimings(t Timings) Option {
	return func(c *config) { c.od = t; c.odSet = true }
}

// New builds a Master on the given data pin. The pin is released (input,
// pull-up high) immediately; the bus idles high from here on.
func New(pin onewire.Pin, opts ...Option) *Master {
	cfg := &config{std: StandardTimings}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.odSet {
		cfg.od = cfg.std.scaled(8)
	}
	m := &Master{
		pin:    pin,
		pwr:    cfg.pwr,
		pwrLow: cfg.pwrLow,
		std:    cfg.std,
		od:     cfg.od,
		t:      cfg.std,
		speed:  onewire.Standard,
	}
	m.fast, _ = pin.(onewire.OverdriveToucher)
	pin.Release()
	if m.pwr != nil {
		m.pwr.Output(m.pwrLow)
	}
	return m
}

// Reset issues the reset/presence cycle: long low hold, release, presence
// sample, tail. The line must idle high before the cycle and recover high
// after it; a violation of either is a wiring-level fault, not an empty
// bus.
func (m *Master) Reset() (bool, error) {
	m.depower()
	if !m.pin.Read() {
		return false, fmt.Errorf("bitbang: line low before reset: %w", onewire.ErrLineFault)
	}
	m.pin.DriveLow()
	m.pin.Delay(m.t.ResetLow)
	m.pin.Release()
	m.pin.Delay(m.t.PresenceDetect)
	presence := !m.pin.Read()
	m.pin.Delay(m.t.ResetTail)
	if !m.pin.Read() {
		return false, fmt.Errorf("bitbang: line did not recover after reset: %w", onewire.ErrLineFault)
	}
	return presence, nil
}

// TouchBit transmits one time slot and returns the sampled level. Touching
// 1 is electrically a read slot: a short init pulse, then the line level
// belongs to the addressed device until the sample point. Touching 0 holds
// the line low for the full bit window and always reads back false.
func (m *Master) TouchBit(level bool) (bool, error) {
	m.depower()
	return m.touch(level), nil
}

// WriteBit transmits a single bit.
func (m *Master) WriteBit(bit bool) error {
	_, err := m.TouchBit(bit)
	return err
}

// ReadBit runs one read slot and returns the sampled level.
func (m *Master) ReadBit() (bool, error) {
	return m.TouchBit(true)
}

// TouchByte runs eight touch slots, least significant bit first. Touching
// 0xFF reads a byte, any other value transmits it.
func (m *Master) TouchByte(b byte) (byte, error) {
	m.depower()
	var out byte
	for i := 0; i < 8; i++ {
		out >>= 1
		if m.touch(b&1 != 0) {
			out |= 0x80
		}
		b >>= 1
	}
	return out, nil
}

// SetSpeed selects the timing table for subsequent slots. Session-level
// code enters overdrive through the ROM command exchange; this is the raw
// table switch underneath it.
func (m *Master) SetSpeed(s onewire.Speed) error {
	switch s {
	case onewire.Standard:
		m.t = m.std
	case onewire.Overdrive:
		m.t = m.od
	default:
		return fmt.Errorf("bitbang: unknown speed %v", s)
	}
	m.speed = s
	return nil
}

func (m *Master) Speed() onewire.Speed {
	return m.speed
}

// PowerBus switches strong pull-up delivery for parasitically powered
// devices. With a power-control pin configured that pin is driven to its
// active level; otherwise the data line itself is pushed high. Power drops
// automatically before the next bus operation touches the line.
func (m *Master) PowerBus(on bool) error {
	if m.pwr != nil {
		m.pwr.Output(on != m.pwrLow)
	} else if on {
		m.pin.DriveHigh()
	} else {
		m.pin.Release()
	}
	m.powered = on
	return nil
}

func (m *Master) depower() {
	if !m.powered {
		return
	}
	if m.pwr != nil {
		m.pwr.Output(m.pwrLow)
	} else {
		m.pin.Release()
	}
	m.powered = false
}

func (m *Master) touch(level bool) bool {
	if !level {
		m.pin.DriveLow()
		m.pin.Delay(m.t.Write0Low)
		m.pin.Release()
		m.pin.Delay(m.t.Write0Recovery)
		return false
	}
	if m.speed == onewire.Overdrive && m.fast != nil {
		// The fast path shapes its own sub-microsecond init pulse and
		// sample; only the slot tail remains ours.
		v := m.fast.Touch1Overdrive()
		m.pin.Delay(m.t.ReadTail)
		return v
	}
	m.pin.DriveLow()
	m.pin.Delay(m.t.Write1Low)
	m.pin.Release()
	m.pin.Delay(m.t.ReadSample)
	v := m.pin.Read()
	m.pin.Delay(m.t.ReadTail)
	return v
}
