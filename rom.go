package onewire

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ROM is the 64-bit identity lasered into every 1-Wire device: byte 0 is
// the family code, bytes 1-6 the serial number and byte 7 a CRC-8/MAXIM
// over the first seven bytes. Bytes travel the wire in index order, least
// significant bit first.
type ROM [8]byte

// NewROM assembles a ROM from a family code and serial number, computing
// the trailing CRC. Handy for building known-good identities in tests and
// simulations.
func NewROM(family byte, serial [6]byte) ROM {
	var r ROM
	r[0] = family
	copy(r[1:7], serial[:])
	r[7] = Checksum(r[0:7])
	return r
}

// ParseROM reads a ROM from its 16-digit hex form (separators ':', '-' and
// spaces are tolerated) and verifies the embedded CRC.
func ParseROM(s string) (ROM, error) {
	var r ROM
	clean := strings.Map(func(c rune) rune {
		switch c {
		case ':', '-', ' ':
			return -1
		}
		return c
	}, s)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return r, fmt.Errorf("onewire: malformed rom %q: %w", s, err)
	}
	if len(raw) != len(r) {
		return r, fmt.Errorf("onewire: rom %q: want 8 bytes, got %d", s, len(raw))
	}
	copy(r[:], raw)
	if !r.Valid() {
		return r, fmt.Errorf("onewire: rom %q: %w", s, ErrCRCMismatch)
	}
	return r, nil
}

// Family returns the device family code.
func (r ROM) Family() byte {
	return r[0]
}

// Serial returns the six serial-number bytes in wire order.
func (r ROM) Serial() [6]byte {
	var s [6]byte
	copy(s[:], r[1:7])
	return s
}

// Valid reports whether the trailing CRC matches the first seven bytes.
func (r ROM) Valid() bool {
	return Check(r[:])
}

func (r ROM) String() string {
	return hex.EncodeToString(r[:])
}

// Bit returns ROM bit i (0..63) in wire transmission order: bit 0 is the
// least significant bit of the family code.
func (r ROM) Bit(i int) bool {
	return r[i>>3]&(1<<(uint(i)&7)) != 0
}

// SetBit sets ROM bit i in wire transmission order.
func (r *ROM) SetBit(i int, v bool) {
	if v {
		r[i>>3] |= 1 << (uint(i) & 7)
	} else {
		r[i>>3] &^= 1 << (uint(i) & 7)
	}
}
