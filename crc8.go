package onewire

import "github.com/sigurn/crc8"

// CRC-8/MAXIM: polynomial 0x31 reflected (0x8C), initial value 0x00, no
// final xor. Every ROM code carries it as its trailing byte and many device
// payloads append it, so the residual over payload-plus-CRC is zero for
// intact data.
var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Digest accumulates a CRC-8/MAXIM over a byte stream. The zero value is
// ready to use.
type Digest struct {
	crc uint8
}

func (d *Digest) Update(data []byte) {
	d.crc = crc8.Update(d.crc, data, crcTable)
}

func (d *Digest) UpdateByte(b byte) {
	d.crc = crc8.Update(d.crc, []byte{b}, crcTable)
}

func (d *Digest) Sum() byte {
	return crc8.Complete(d.crc, crcTable)
}

func (d *Digest) Reset() {
	d.crc = crc8.Init(crcTable)
}

// Checksum returns the CRC-8/MAXIM of data.
func Checksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// Check reports whether p, whose last byte is a CRC-8/MAXIM over the bytes
// before it, is intact. Single-bit corruption anywhere in p flips the
// residual to non-zero.
func Check(p []byte) bool {
	return crc8.Checksum(p, crcTable) == 0
}
