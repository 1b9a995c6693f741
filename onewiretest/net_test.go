package onewiretest

import (
	"testing"

	"github.com/mklimuk/onewire"
)

func TestNet_Presence(t *testing.T) {
	empty := NewNet()
	presence, err := empty.Reset()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if presence {
		t.Error("empty bus must not answer presence")
	}

	populated := NewNet(onewire.NewROM(0x28, [6]byte{0x01}))
	presence, err = populated.Reset()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !presence {
		t.Error("populated bus must answer presence")
	}
}

func TestNet_ReadROM_WiredAND(t *testing.T) {
	a := onewire.NewROM(0x28, [6]byte{0x01})
	b := onewire.NewROM(0x10, [6]byte{0x02})
	net := NewNet(a, b)

	if _, err := net.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := net.TouchByte(byte(onewire.CmdReadROM)); err != nil {
		t.Fatalf("command: %v", err)
	}
	for i := 0; i < 8; i++ {
		got, err := net.TouchByte(0xFF)
		if err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
		if want := a[i] & b[i]; got != want {
			t.Errorf("byte %d: expected wired-AND %#02x, got %#02x", i, want, got)
		}
	}
}

func TestNet_SearchProbes_WiredAND(t *testing.T) {
	// 0x28 and 0x10 agree on their three low bits and split at bit 3.
	net := NewNet(
		onewire.NewROM(0x28, [6]byte{0x01}),
		onewire.NewROM(0x10, [6]byte{0x02}),
	)

	if _, err := net.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := net.TouchByte(byte(onewire.CmdSearchROM)); err != nil {
		t.Fatalf("command: %v", err)
	}

	step := func(wantID, wantCmp, dir bool) {
		t.Helper()
		id, err := net.TouchBit(true)
		if err != nil {
			t.Fatalf("id probe: %v", err)
		}
		cmp, err := net.TouchBit(true)
		if err != nil {
			t.Fatalf("cmp probe: %v", err)
		}
		if id != wantID || cmp != wantCmp {
			t.Fatalf("expected probes %v/%v, got %v/%v", wantID, wantCmp, id, cmp)
		}
		if _, err := net.TouchBit(dir); err != nil {
			t.Fatalf("direction: %v", err)
		}
	}

	step(false, true, false)  // bit 0: both devices carry 0
	step(false, true, false)  // bit 1
	step(false, true, false)  // bit 2
	step(false, false, true)  // bit 3: 0x28 carries 1, 0x10 carries 0
	step(false, true, false)  // bit 4: only 0x28 left, carries 0
}

func TestNet_MatchROM_Selection(t *testing.T) {
	a := onewire.NewROM(0x28, [6]byte{0x01})
	b := onewire.NewROM(0x10, [6]byte{0x02})
	net := NewNet(a, b)

	if _, err := net.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := net.TouchByte(byte(onewire.CmdMatchROM)); err != nil {
		t.Fatalf("command: %v", err)
	}
	for _, by := range a {
		if _, err := net.TouchByte(by); err != nil {
			t.Fatalf("rom byte: %v", err)
		}
	}
	sel := net.Selected()
	if len(sel) != 1 || sel[0] != a {
		t.Errorf("expected selection [%s], got %v", a, sel)
	}
}

func TestNet_Respond(t *testing.T) {
	a := onewire.NewROM(0x28, [6]byte{0x01})
	net := NewNet(a)
	net.Respond = func(selected []onewire.ROM, b byte) byte {
		if len(selected) == 1 && b == 0xFF {
			return 0x42
		}
		return b
	}

	if _, err := net.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := net.TouchByte(byte(onewire.CmdSkipROM)); err != nil {
		t.Fatalf("command: %v", err)
	}
	got, err := net.TouchByte(0xFF)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0x42 {
		t.Errorf("expected scripted answer 0x42, got %#02x", got)
	}
}

func TestPlayback_Divergence(t *testing.T) {
	pb := &Playback{Ops: []IO{
		{Reset: true, Presence: true},
		{W: []byte{0xCC}, R: []byte{0xCC}},
	}}

	if err := pb.Done(); err == nil {
		t.Error("unconsumed script must not report done")
	}
	if _, err := pb.TouchByte(0xCC); err == nil {
		t.Error("byte where reset is scripted must fail")
	}
	if _, err := pb.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := pb.TouchByte(0x55); err == nil {
		t.Error("off-script byte must fail")
	}
}
