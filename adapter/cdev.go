package adapter

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/mklimuk/onewire"
)

var _ onewire.Pin = &CdevLine{}

// CdevLine drives a 1-Wire bus line through the Linux GPIO character
// device. Direction changes go through line reconfiguration, which costs a
// syscall per edge; that overhead eats into standard-speed slot margins,
// so prefer the uart transport where timing precision matters and keep
// this adapter for buses with relaxed slaves or for bring-up.
//
// Backend failures never surface through the Pin methods (the contract is
// register-poke shaped); the first one is latched and reported by Err.
type CdevLine struct {
	line   *gpiocdev.Line
	output bool
	err    error
}

// NewCdevLine requests the line at offset on the named chip (e.g.
// "gpiochip0", 4) as an input with pull-up bias, the released idle state
// of a 1-Wire bus.
func NewCdevLine(chip string, offset int) (*CdevLine, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithConsumer("onewire"),
		gpiocdev.AsInput,
		gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("adapter: could not request %s:%d: %w", chip, offset, err)
	}
	return &CdevLine{line: line}, nil
}

func (p *CdevLine) Read() bool {
	v, err := p.line.Value()
	if err != nil {
		p.fail(err)
		return false
	}
	return v != 0
}

func (p *CdevLine) DriveLow() {
	if p.output {
		p.fail(p.line.SetValue(0))
		return
	}
	p.output = true
	p.fail(p.line.Reconfigure(gpiocdev.AsOutput(0)))
}

func (p *CdevLine) DriveHigh() {
	if p.output {
		p.fail(p.line.SetValue(1))
		return
	}
	p.output = true
	p.fail(p.line.Reconfigure(gpiocdev.AsOutput(1)))
}

func (p *CdevLine) Release() {
	p.output = false
	p.fail(p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp))
}

func (p *CdevLine) Output(level bool) {
	v := 0
	if level {
		v = 1
	}
	p.output = true
	p.fail(p.line.Reconfigure(gpiocdev.AsOutput(v)))
}

func (p *CdevLine) Delay(d time.Duration) {
	delay(d)
}

// Err returns the first backend failure since construction. Callers check
// it at transaction granularity, not per poke.
func (p *CdevLine) Err() error {
	return p.err
}

// Close releases the requested line.
func (p *CdevLine) Close() error {
	return p.line.Close()
}

func (p *CdevLine) fail(err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("adapter: gpiocdev: %w", err)
	}
}
