package adapter

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/onewire"
)

var _ onewire.Pin = &PeriphPin{}

// PeriphPin drives a 1-Wire bus line through a periph.io gpio.PinIO.
// Backend failures are latched and reported by Err.
type PeriphPin struct {
	pin gpio.PinIO
	err error
}

// NewPeriphPin initializes the periph host and resolves the pin by name
// (e.g. "GPIO4"). The line starts released (input, pull-up), the idle
// state of a 1-Wire bus.
func NewPeriphPin(name string) (*PeriphPin, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("adapter: could not init host: %w", err)
	}
	slog.Debug("periph host initialized", "drivers", len(state.Loaded))
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("adapter: unknown gpio pin %q", name)
	}
	p := NewPeriphFromPin(pin)
	if p.err != nil {
		return nil, p.err
	}
	return p, nil
}

// NewPeriphFromPin wraps an already resolved pin. Useful with gpiotest
// pins and with hosts initialized elsewhere.
func NewPeriphFromPin(pin gpio.PinIO) *PeriphPin {
	p := &PeriphPin{pin: pin}
	p.Release()
	return p
}

func (p *PeriphPin) Read() bool {
	return p.pin.Read() == gpio.High
}

func (p *PeriphPin) DriveLow() {
	p.fail(p.pin.Out(gpio.Low))
}

func (p *PeriphPin) DriveHigh() {
	p.fail(p.pin.Out(gpio.High))
}

func (p *PeriphPin) Release() {
	p.fail(p.pin.In(gpio.PullUp, gpio.NoEdge))
}

func (p *PeriphPin) Output(level bool) {
	p.fail(p.pin.Out(gpio.Level(level)))
}

func (p *PeriphPin) Delay(d time.Duration) {
	delay(d)
}

// Err returns the first backend failure since construction.
func (p *PeriphPin) Err() error {
	return p.err
}

func (p *PeriphPin) fail(err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("adapter: periph pin %s: %w", p.pin.Name(), err)
	}
}
