package bitbang

import "time"

// Timings names every delay in the reset and bit-slot waveforms for one
// speed grade. A touch-1 slot doubles as the read slot, so its shape is
// init pulse, sample offset, tail; a touch-0 slot is a long low hold plus
// the recovery gap.
type Timings struct {
	ResetLow       time.Duration // reset low hold
	PresenceDetect time.Duration // release-to-sample offset for the presence pulse
	ResetTail      time.Duration // rest of the reset cycle after the sample

	Write0Low      time.Duration // write-0 low hold
	Write0Recovery time.Duration // recovery gap closing a write-0 slot

	Write1Low  time.Duration // write-1/read init pulse
	ReadSample time.Duration // release-to-sample offset
	ReadTail   time.Duration // rest of the slot after the sample, incl. recovery
}

// StandardTimings is the published Maxim standard-speed table (the A..J
// recommended values): 6/64 write-1, 60/10 write-0, 6/9/55 read,
// 480/70/410 reset, in microseconds.
var StandardTimings = Timings{
	ResetLow:       480 * time.Microsecond,
	PresenceDetect: 70 * time.Microsecond,
	ResetTail:      410 * time.Microsecond,
	Write0Low:      60 * time.Microsecond,
	Write0Recovery: 10 * time.Microsecond,
	Write1Low:      6 * time.Microsecond,
	ReadSample:     9 * time.Microsecond,
	ReadTail:       55 * time.Microsecond,
}

// OverdriveTimings is StandardTimings scaled by exactly 1/8. The published
// overdrive column rounds a few phases differently (write-1 low 1.0µs
// instead of 0.75µs, write-0 recovery 2.5µs instead of 1.25µs); slot totals
// stay inside the overdrive windows either way, and WithOverdriveTimings
// accepts the published column verbatim for callers who want it.
var OverdriveTimings = StandardTimings.scaled(8)

func (t Timings) scaled(f int64) Timings {
	d := time.Duration(f)
	return Timings{
		ResetLow:       t.ResetLow / d,
		PresenceDetect: t.PresenceDetect / d,
		ResetTail:      t.ResetTail / d,
		Write0Low:      t.Write0Low / d,
		Write0Recovery: t.Write0Recovery / d,
		Write1Low:      t.Write1Low / d,
		ReadSample:     t.ReadSample / d,
		ReadTail:       t.ReadTail / d,
	}
}
