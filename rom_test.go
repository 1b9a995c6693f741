package onewire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewROM(t *testing.T) {
	r := NewROM(0x02, [6]byte{0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00})

	assert.True(t, r.Valid())
	assert.Equal(t, byte(0x02), r.Family())
	assert.Equal(t, [6]byte{0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00}, r.Serial())
	assert.Equal(t, byte(0xA2), r[7])
	assert.Equal(t, "021cb801000000a2", r.String())
}

func TestParseROM(t *testing.T) {
	want := NewROM(0x02, [6]byte{0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00})

	tests := []struct {
		name string
		in   string
	}{
		{name: "plain hex", in: "021cb801000000a2"},
		{name: "upper case", in: "021CB801000000A2"},
		{name: "colon separated", in: "02:1c:b8:01:00:00:00:a2"},
		{name: "dash separated", in: "02-1c-b8-01-00-00-00-a2"},
		{name: "space separated", in: "02 1c b8 01 00 00 00 a2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseROM(tt.in)
			require.NoError(t, err)
			assert.Equal(t, want, r)
		})
	}
}

func TestParseROM_Errors(t *testing.T) {
	_, err := ParseROM("021cb801")
	assert.Error(t, err, "short input must be rejected")

	_, err = ParseROM("zz1cb801000000a2")
	assert.Error(t, err, "non-hex input must be rejected")

	_, err = ParseROM("021cb801000000a3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCRCMismatch), "corrupt crc must surface ErrCRCMismatch, got %v", err)
}

func TestROM_BitOrder(t *testing.T) {
	r := NewROM(0x28, [6]byte{})

	// Wire order: bit 0 is the family code's least significant bit.
	// 0x28 = 0b00101000.
	wantLow := []bool{false, false, false, true, false, true, false, false}
	for i, want := range wantLow {
		assert.Equal(t, want, r.Bit(i), "bit %d", i)
	}

	var r2 ROM
	for i := 0; i < 64; i++ {
		r2.SetBit(i, r.Bit(i))
	}
	assert.Equal(t, r, r2)

	r2.SetBit(3, false)
	assert.NotEqual(t, r, r2)
	assert.False(t, r2.Bit(3))
}
