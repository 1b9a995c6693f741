package adapter

import (
	"fmt"
	"time"

	gobotgpio "gobot.io/x/gobot/v2/drivers/gpio"

	"github.com/mklimuk/onewire"
)

// DigitalPort groups the gobot adaptor capabilities the pin needs. Every
// gobot platform with digital pins (raspi, nanopi, beaglebone, ...)
// satisfies it.
type DigitalPort interface {
	gobotgpio.DigitalReader
	gobotgpio.DigitalWriter
}

var _ onewire.Pin = &GobotPin{}

// GobotPin drives a 1-Wire bus line through a gobot adaptor. Gobot flips
// pin direction implicitly — DigitalWrite configures the pin as an output,
// DigitalRead as an input — which is exactly how Release floats the line
// here. The adaptor call overhead makes this adapter a bring-up and
// experimentation tool rather than a tight standard-speed master.
//
// Backend failures are latched and reported by Err.
type GobotPin struct {
	conn DigitalPort
	id   string
	err  error
}

// NewGobotPin wraps pin id (platform naming, e.g. "7") of a connected
// adaptor. The line is released immediately.
func NewGobotPin(conn DigitalPort, id string) *GobotPin {
	p := &GobotPin{conn: conn, id: id}
	p.Release()
	return p
}

func (p *GobotPin) Read() bool {
	v, err := p.conn.DigitalRead(p.id)
	if err != nil {
		p.fail(err)
		return false
	}
	return v == 1
}

func (p *GobotPin) DriveLow() {
	p.fail(p.conn.DigitalWrite(p.id, 0))
}

func (p *GobotPin) DriveHigh() {
	p.fail(p.conn.DigitalWrite(p.id, 1))
}

func (p *GobotPin) Release() {
	// A read flips the pin to input; the bus pull-up restores high.
	_, err := p.conn.DigitalRead(p.id)
	p.fail(err)
}

func (p *GobotPin) Output(level bool) {
	var v byte
	if level {
		v = 1
	}
	p.fail(p.conn.DigitalWrite(p.id, v))
}

func (p *GobotPin) Delay(d time.Duration) {
	delay(d)
}

// Err returns the first backend failure since construction.
func (p *GobotPin) Err() error {
	return p.err
}

func (p *GobotPin) fail(err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("adapter: gobot pin %s: %w", p.id, err)
	}
}
