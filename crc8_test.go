package onewire

import "testing"

func TestChecksum_KnownVectors(t *testing.T) {
	// ROM worked through in Maxim application note 27.
	rom7 := []byte{0x02, 0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00}
	if got := Checksum(rom7); got != 0xA2 {
		t.Errorf("expected crc 0xA2, got %#02x", got)
	}
	// Catalogue check value for CRC-8/MAXIM.
	if got := Checksum([]byte("123456789")); got != 0xA1 {
		t.Errorf("expected crc 0xA1, got %#02x", got)
	}
	if got := Checksum([]byte{0, 0, 0, 0, 0, 0, 0}); got != 0 {
		t.Errorf("expected crc 0 over zeros, got %#02x", got)
	}
}

func TestCheck_ZeroResidual(t *testing.T) {
	block := []byte{0x02, 0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00, 0xA2}
	if !Check(block) {
		t.Fatal("expected intact block to check out")
	}

	// Any single flipped bit must break the residual.
	for i := 0; i < len(block)*8; i++ {
		corrupt := make([]byte, len(block))
		copy(corrupt, block)
		corrupt[i/8] ^= 1 << (uint(i) % 8)
		if Check(corrupt) {
			t.Errorf("bit %d flip went undetected", i)
		}
	}
}

func TestDigest_Incremental(t *testing.T) {
	data := []byte{0x28, 0xFF, 0x4B, 0x46, 0x7F, 0x10, 0x02}
	want := Checksum(data)

	var d Digest
	d.Update(data[:3])
	d.UpdateByte(data[3])
	d.Update(data[4:])
	if got := d.Sum(); got != want {
		t.Errorf("expected incremental crc %#02x, got %#02x", want, got)
	}

	d.Reset()
	d.Update(data)
	if got := d.Sum(); got != want {
		t.Errorf("expected crc %#02x after reset, got %#02x", want, got)
	}
}
