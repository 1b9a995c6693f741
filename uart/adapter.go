// Package uart implements a 1-Wire master over a serial port, letting the
// UART shape the bus waveforms: the reset pulse is a 0xF0 frame at 9600
// baud, bit slots are 0xFF (read/write-1) and 0x00 (write-0) frames at
// 115200 baud. Timing comes from the UART hardware, so scheduler jitter is
// a non-issue, but the signaling is fixed at Standard speed and there is no
// strong pull-up control.
package uart

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/mklimuk/onewire"
)

// Port is the slice of go.bug.st/serial.Port the adapter drives. Kept
// narrow so tests can script a port without hardware.
type Port interface {
	SetMode(mode *serial.Mode) error
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetDTR(dtr bool) error
	Close() error
}

// Adapter implements onewire.Transport over a serial port. It is fixed at
// Standard speed (the slot shape is dictated by the 115200 baud frame), so
// session-level overdrive commands report onewire.ErrSpeedUnsupported.
//
// An Adapter is not goroutine-safe; wrap it in an onewire.Session.
type Adapter struct {
	device string
	port   Port
	mode   serial.Mode
}

// Open opens the named serial device (e.g. /dev/ttyUSB0) and asserts DTR,
// which powers the passive adapter circuits usually found on these dongles.
func Open(device string) (*Adapter, error) {
	a := &Adapter{
		device: device,
		mode: serial.Mode{
			BaudRate: 115200,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	p, err := serial.Open(device, &a.mode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", device, err)
	}
	if err := p.SetDTR(true); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("uart: set dtr on %s: %w", device, err)
	}
	a.port = p
	return a, nil
}

// New wraps an already configured port. Mainly for tests and for callers
// who need custom serial setup before handing the port over.
func New(p Port, device string) *Adapter {
	return &Adapter{
		device: device,
		port:   p,
		mode: serial.Mode{
			BaudRate: 115200,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
}

// Device returns the serial device name.
func (a *Adapter) Device() string {
	return a.device
}

// Close closes the serial port.
func (a *Adapter) Close() error {
	if a.port == nil {
		return nil
	}
	return a.port.Close()
}

// Reset drops to 9600 baud and transmits a single 0xF0 frame: the long
// start-plus-data low time is the reset pulse, and a presence pulse from a
// device shows up as extra zero bits in the echoed high nibble.
func (a *Adapter) Reset() (bool, error) {
	a.mode.BaudRate = 9600
	if err := a.port.SetMode(&a.mode); err != nil {
		return false, fmt.Errorf("uart: reset: set 9600 baud: %w", err)
	}
	presence, pulseErr := a.resetPulse()
	a.mode.BaudRate = 115200
	if err := a.port.SetMode(&a.mode); err != nil {
		return false, fmt.Errorf("uart: reset: restore 115200 baud: %w", err)
	}
	return presence, pulseErr
}

func (a *Adapter) resetPulse() (bool, error) {
	if err := a.clear(); err != nil {
		return false, fmt.Errorf("uart: reset: %w", err)
	}
	if _, err := a.port.Write([]byte{0xF0}); err != nil {
		return false, fmt.Errorf("uart: reset: %w", err)
	}
	var echo [1]byte
	if _, err := io.ReadFull(a.port, echo[:]); err != nil {
		return false, fmt.Errorf("uart: reset echo: %w", err)
	}
	switch {
	case echo[0] == 0xF0:
		return false, nil
	case echo[0] == 0x00:
		// The line never rose between our low phases: stuck low, not a
		// (bounded) presence pulse.
		return false, fmt.Errorf("uart: reset echo 0x00: %w", onewire.ErrLineFault)
	case echo[0]&0x0F != 0:
		// Our driven-low data bits read back high.
		return false, fmt.Errorf("uart: reset echo %#02x: %w", echo[0], onewire.ErrLineFault)
	default:
		return true, nil
	}
}

// TouchBit transmits one slot frame and samples the line through the echo:
// a 0xFF frame is a read (or write-1) slot and any device pulling the line
// low clears echoed bits; a 0x00 frame writes a zero.
func (a *Adapter) TouchBit(level bool) (bool, error) {
	if err := a.clear(); err != nil {
		return false, fmt.Errorf("uart: touch bit: %w", err)
	}
	frame := byte(0x00)
	if level {
		frame = 0xFF
	}
	if _, err := a.port.Write([]byte{frame}); err != nil {
		return false, fmt.Errorf("uart: touch bit: %w", err)
	}
	var echo [1]byte
	if _, err := io.ReadFull(a.port, echo[:]); err != nil {
		return false, fmt.Errorf("uart: touch bit echo: %w", err)
	}
	if !level && echo[0] != 0x00 {
		return false, fmt.Errorf("uart: write-0 echo %#02x: %w", echo[0], onewire.ErrLineFault)
	}
	return echo[0] == 0xFF, nil
}

// TouchByte frames eight slots in one UART burst, least significant bit
// first.
func (a *Adapter) TouchByte(b byte) (byte, error) {
	if err := a.clear(); err != nil {
		return 0, fmt.Errorf("uart: touch byte: %w", err)
	}
	var frames [8]byte
	for i := 0; i < 8; i++ {
		if b&(1<<uint(i)) != 0 {
			frames[i] = 0xFF
		}
	}
	if _, err := a.port.Write(frames[:]); err != nil {
		return 0, fmt.Errorf("uart: touch byte: %w", err)
	}
	var echo [8]byte
	if _, err := io.ReadFull(a.port, echo[:]); err != nil {
		return 0, fmt.Errorf("uart: touch byte echo: %w", err)
	}
	var out byte
	for i, e := range echo {
		if frames[i] == 0x00 && e != 0x00 {
			return 0, fmt.Errorf("uart: write-0 echo %#02x at bit %d: %w", e, i, onewire.ErrLineFault)
		}
		if e == 0xFF {
			out |= 1 << uint(i)
		}
	}
	return out, nil
}

// clear discards both serial buffers so an echo always pairs with the
// frame just written.
func (a *Adapter) clear() error {
	if err := a.port.ResetOutputBuffer(); err != nil {
		return err
	}
	return a.port.ResetInputBuffer()
}
