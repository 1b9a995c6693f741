// Package onewire implements a master for the Dallas/Maxim 1-Wire bus:
// reset/presence cycles, bit and byte time slots at standard and overdrive
// speed, ROM addressing commands and the device search algorithm. The
// timing-critical engine lives in the bitbang package and talks to hardware
// through the Pin capability contract; alternative transports (UART) plug in
// at the Transport level.
package onewire

import (
	"fmt"
	"time"
)

var ErrNoPresence = fmt.Errorf("no device asserted a presence pulse")
var ErrCRCMismatch = fmt.Errorf("crc check failed")
var ErrSearchAborted = fmt.Errorf("search aborted (no device responded mid-pass)")
var ErrLineFault = fmt.Errorf("bus line did not reach the expected level")
var ErrSpeedUnsupported = fmt.Errorf("transport does not support speed switching")
var ErrPowerUnsupported = fmt.Errorf("transport does not support strong pull-up control")

// Speed selects a bus timing grade. A session always starts at Standard;
// Overdrive is entered through a ROM command exchange (see Session), never
// by toggling the transport directly.
type Speed int

const (
	Standard Speed = iota
	Overdrive
)

func (s Speed) String() string {
	switch s {
	case Standard:
		return "standard"
	case Overdrive:
		return "overdrive"
	default:
		return fmt.Sprintf("speed(%d)", int(s))
	}
}

// Pin is the capability contract between the bit-bang engine and one GPIO
// line. Implementations live in the adapter package, one per platform
// backend; the engine itself never touches a register. Methods deliberately
// return no errors: they map to plain register pokes, physical line failure
// is detected by the engine through sampling, and adapters over fallible
// backends record a sticky error retrievable with their Err method.
type Pin interface {
	// Read samples the instantaneous logic level of the line.
	Read() bool
	// DriveLow actively pulls the line low.
	DriveLow()
	// DriveHigh pushes the line high. Only meaningful where push assist
	// exists; open-drain-only implementations may treat it as Release.
	DriveHigh()
	// Release floats the line (input mode) so the pull-up restores high.
	Release()
	// Output configures the line as an output at the given initial level.
	Output(level bool)
	// Delay blocks for the given duration with microsecond-class accuracy.
	// It is part of the contract so the engine can run against a virtual
	// clock in tests.
	Delay(d time.Duration)
}

// OverdriveToucher is an optional Pin fast path: a platform-tuned write-1
// (read) slot used at overdrive speed, where per-call overhead would
// otherwise distort sub-microsecond low pulses. The bit-bang engine uses it
// when present and the current speed is Overdrive.
type OverdriveToucher interface {
	Touch1Overdrive() bool
}

type BitTransport interface {
	// TouchBit transmits one time slot and returns the sampled line level.
	// Touching 1 is a read slot (a slave may hold the line low); touching 0
	// writes a zero and always returns false.
	TouchBit(level bool) (bool, error)
}

type ByteTransport interface {
	// TouchByte runs eight touch slots, least significant bit first.
	// Touching 0xFF reads a byte; any other value transmits it.
	TouchByte(b byte) (byte, error)
}

// Transport is the bus-level primitive surface the protocol layers build
// on. The bitbang package implements it by driving a Pin; the uart package
// implements it over a serial port.
type Transport interface {
	// Reset issues a reset/presence cycle. The boolean reports whether at
	// least one device asserted a presence pulse; its absence is not an
	// error (the bus may legitimately be empty).
	Reset() (bool, error)
	BitTransport
	ByteTransport
}

// SpeedController is implemented by transports that can switch timing
// grades. Transports without it are fixed at Standard.
type SpeedController interface {
	SetSpeed(s Speed) error
	Speed() Speed
}

// PowerController is implemented by transports that can deliver strong
// pull-up power to parasitically powered slaves, either through the data
// line itself or through a dedicated power-control line.
type PowerController interface {
	PowerBus(on bool) error
}
