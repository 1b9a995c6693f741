package onewire_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/onewire"
	"github.com/mklimuk/onewire/onewiretest"
)

func TestSearch_EnumeratesAll(t *testing.T) {
	devices := []onewire.ROM{
		onewire.NewROM(0x10, [6]byte{0x01}),
		onewire.NewROM(0x10, [6]byte{0x02}),
		onewire.NewROM(0x28, [6]byte{0x03}),
		onewire.NewROM(0x28, [6]byte{0x04}),
		onewire.NewROM(0x3B, [6]byte{0x05}),
	}
	sess := onewire.NewSession(onewiretest.NewNet(devices...))

	roms, err := sess.Search()
	require.NoError(t, err)
	assert.ElementsMatch(t, devices, roms)
}

func TestSearch_SingleDevice(t *testing.T) {
	dev := onewire.NewROM(0x28, [6]byte{0x01})
	sess := onewire.NewSession(onewiretest.NewNet(dev))

	sr := onewire.NewSearch(sess)
	require.True(t, sr.Next())
	assert.Equal(t, dev, sr.ROM())
	assert.False(t, sr.Next())
	assert.NoError(t, sr.Err())
	assert.Equal(t, dev, sr.ROM(), "last find stays readable after the end")
}

func TestSearch_EmptyBus(t *testing.T) {
	sess := onewire.NewSession(onewiretest.NewNet())

	sr := onewire.NewSearch(sess)
	assert.False(t, sr.Next())
	assert.NoError(t, sr.Err())

	roms, err := sess.Search()
	assert.NoError(t, err)
	assert.Empty(t, roms)
}

func TestSearch_Alarm(t *testing.T) {
	a := onewire.NewROM(0x28, [6]byte{0x01})
	b := onewire.NewROM(0x10, [6]byte{0x02})
	c := onewire.NewROM(0x3B, [6]byte{0x03})
	net := onewiretest.NewNet(a, b, c)
	sess := onewire.NewSession(net)

	net.SetAlarm(b, true)
	roms, err := sess.AlarmSearch()
	require.NoError(t, err)
	assert.Equal(t, []onewire.ROM{b}, roms)

	// Plain search still sees everyone.
	roms, err = sess.Search()
	require.NoError(t, err)
	assert.ElementsMatch(t, []onewire.ROM{a, b, c}, roms)

	net.SetAlarm(b, false)
	roms, err = sess.AlarmSearch()
	require.NoError(t, err)
	assert.Empty(t, roms, "no alarming device means a clean empty result")
}

func TestSearch_Target(t *testing.T) {
	devices := []onewire.ROM{
		onewire.NewROM(0x10, [6]byte{0x01}),
		onewire.NewROM(0x10, [6]byte{0x02}),
		onewire.NewROM(0x28, [6]byte{0x03}),
	}
	sess := onewire.NewSession(onewiretest.NewNet(devices...))

	sr := onewire.NewSearch(sess)
	sr.Target(0x28)
	var roms []onewire.ROM
	for sr.Next() {
		roms = append(roms, sr.ROM())
	}
	require.NoError(t, sr.Err())
	assert.Equal(t, []onewire.ROM{devices[2]}, roms)

	sr.Target(0x77)
	assert.False(t, sr.Next(), "absent family must yield nothing")
	assert.NoError(t, sr.Err())
}

func TestSearch_SkipFamily(t *testing.T) {
	devices := []onewire.ROM{
		onewire.NewROM(0x10, [6]byte{0x01}),
		onewire.NewROM(0x10, [6]byte{0x02}),
		onewire.NewROM(0x28, [6]byte{0x03}),
		onewire.NewROM(0x28, [6]byte{0x04}),
	}
	sess := onewire.NewSession(onewiretest.NewNet(devices...))

	// Abandon family 0x10 as soon as its first member shows up: its second
	// member must be skipped while family 0x28 stays fully enumerated.
	sr := onewire.NewSearch(sess)
	byFamily := map[byte]int{}
	for sr.Next() {
		rom := sr.ROM()
		byFamily[rom.Family()]++
		if rom.Family() == 0x10 {
			sr.SkipFamily()
		}
	}
	require.NoError(t, sr.Err())
	assert.Equal(t, map[byte]int{0x10: 1, 0x28: 2}, byFamily)
}

func TestSearch_Reset_Reenumerates(t *testing.T) {
	devices := []onewire.ROM{
		onewire.NewROM(0x10, [6]byte{0x01}),
		onewire.NewROM(0x28, [6]byte{0x02}),
		onewire.NewROM(0x3B, [6]byte{0x03}),
	}
	sess := onewire.NewSession(onewiretest.NewNet(devices...))

	sr := onewire.NewSearch(sess)
	var first []onewire.ROM
	for sr.Next() {
		first = append(first, sr.ROM())
	}
	require.NoError(t, sr.Err())
	require.Len(t, first, 3)

	sr.Reset()
	var second []onewire.ROM
	for sr.Next() {
		second = append(second, sr.ROM())
	}
	require.NoError(t, sr.Err())
	assert.Equal(t, first, second)
}

func TestSearch_WildProbes_Abort(t *testing.T) {
	// A bus that answers every probe pair with 1/1 despite presence is
	// glitching; enumeration must stop instead of fabricating a device.
	tr := onewiretest.NewTransportMock(
		func() (bool, error) { return true, nil },
		func(level bool) (bool, error) { return true, nil },
		nil,
	)
	sess := onewire.NewSession(tr)

	roms, err := sess.Search()
	require.Error(t, err)
	assert.True(t, errors.Is(err, onewire.ErrSearchAborted), "expected ErrSearchAborted, got %v", err)
	assert.Empty(t, roms)
}

func TestSearch_CorruptROM_CRCMismatch(t *testing.T) {
	// Replay a real code with one flipped bit: every probe pair answers
	// consistently, but the assembled code cannot pass its crc.
	corrupt := onewire.NewROM(0x28, [6]byte{0x01})
	corrupt.SetBit(63, !corrupt.Bit(63))

	calls := 0
	tr := onewiretest.NewTransportMock(
		func() (bool, error) { return true, nil },
		func(level bool) (bool, error) {
			pos := calls
			calls++
			switch pos % 3 {
			case 0:
				return corrupt.Bit(pos / 3), nil
			case 1:
				return !corrupt.Bit(pos / 3), nil
			default:
				return level, nil
			}
		},
		nil,
	)
	sess := onewire.NewSession(tr)

	roms, err := sess.Search()
	require.Error(t, err)
	assert.True(t, errors.Is(err, onewire.ErrCRCMismatch), "expected ErrCRCMismatch, got %v", err)
	assert.Empty(t, roms)
}

func TestSearch_NullFamily_LineFault(t *testing.T) {
	// All-zero probe answers assemble an all-zero code whose crc is
	// accidentally fine; the null family code gives the glitch away.
	calls := 0
	tr := onewiretest.NewTransportMock(
		func() (bool, error) { return true, nil },
		func(level bool) (bool, error) {
			pos := calls
			calls++
			if pos%3 == 1 {
				return true, nil // complement probe
			}
			if pos%3 == 2 {
				return level, nil
			}
			return false, nil
		},
		nil,
	)
	sess := onewire.NewSession(tr)

	roms, err := sess.Search()
	require.Error(t, err)
	assert.True(t, errors.Is(err, onewire.ErrLineFault), "expected ErrLineFault, got %v", err)
	assert.Empty(t, roms)
}

func TestSearch_PassLimit(t *testing.T) {
	a := onewire.NewROM(0x28, [6]byte{0x01})
	b := onewire.NewROM(0x10, [6]byte{0x02})
	sess := onewire.NewSession(onewiretest.NewNet(a, b))

	sr := onewire.NewSearch(sess, onewire.MaxPasses(1))
	require.True(t, sr.Next())
	assert.False(t, sr.Next())
	require.Error(t, sr.Err())
	assert.True(t, errors.Is(sr.Err(), onewire.ErrSearchAborted), "expected ErrSearchAborted, got %v", sr.Err())
	assert.Contains(t, sr.Err().Error(), "pass limit")
}

// glitched passes traffic through until a bit budget is spent, then fails
// hard, cutting an enumeration off mid-flight.
type glitched struct {
	onewire.Transport
	bits  int
	after int
}

func (g *glitched) TouchBit(level bool) (bool, error) {
	g.bits++
	if g.bits > g.after {
		return false, errors.New("glitch")
	}
	return g.Transport.TouchBit(level)
}

func TestSearch_MidFlightFailure_KeepsPartialResult(t *testing.T) {
	a := onewire.NewROM(0x28, [6]byte{0x01})
	b := onewire.NewROM(0x10, [6]byte{0x02})
	// First pass (192 bit slots) runs clean, second pass dies.
	tr := &glitched{Transport: onewiretest.NewNet(a, b), after: 192}
	sess := onewire.NewSession(tr)

	roms, err := sess.Search()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glitch")
	require.Len(t, roms, 1, "the device found before the fault must survive")
	assert.Contains(t, []onewire.ROM{a, b}, roms[0])
}
