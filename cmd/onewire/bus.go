package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/onewire"
	"github.com/mklimuk/onewire/adapter"
	"github.com/mklimuk/onewire/bitbang"
	"github.com/mklimuk/onewire/uart"
)

// transportFlags are shared by every command that talks to the bus.
var transportFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Value:   "cdev",
		Usage:   "bus adapter: cdev, periph, nanopi or uart",
	},
	&cli.StringFlag{
		Name:  "chip",
		Value: "gpiochip0",
		Usage: "gpio character device (cdev)",
	},
	&cli.IntFlag{
		Name:  "line",
		Value: 4,
		Usage: "gpio line offset of the data line (cdev)",
	},
	&cli.IntFlag{
		Name:  "power-line",
		Value: -1,
		Usage: "gpio line offset driving the strong pullup, -1 to disable (cdev)",
	},
	&cli.BoolFlag{
		Name:  "power-active-low",
		Usage: "strong pullup control is active low (cdev)",
	},
	&cli.StringFlag{
		Name:    "pin",
		Aliases: []string{"p"},
		Value:   "GPIO4",
		Usage:   "pin name (periph) or pin id (nanopi)",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Value:   "/dev/ttyUSB0",
		Usage:   "serial device (uart)",
	},
}

// bus bundles an open transport with its teardown. pinErr is nil for
// transports that report failures inline instead of latching them.
type bus struct {
	tr     onewire.Transport
	pinErr func() error
	close  func()
}

// fault reports a pin failure latched while a transaction ran. Bit-banged
// pins cannot fail mid-slot, so a dead line would otherwise masquerade as
// an empty bus.
func (b *bus) fault() error {
	if b.pinErr == nil {
		return nil
	}
	return b.pinErr()
}

func openBus(c *cli.Context) (*bus, error) {
	switch c.String("adapter") {
	case "uart":
		ad, err := uart.Open(c.String("device"))
		if err != nil {
			return nil, err
		}
		return &bus{
			tr:    ad,
			close: func() { _ = ad.Close() },
		}, nil
	case "cdev":
		// Slot shaping degrades when the scheduler migrates us mid-slot.
		runtime.LockOSThread()
		line, err := adapter.NewCdevLine(c.String("chip"), c.Int("line"))
		if err != nil {
			return nil, err
		}
		var opts []bitbang.Option
		closeAll := func() { _ = line.Close() }
		if off := c.Int("power-line"); off >= 0 {
			power, err := adapter.NewCdevLine(c.String("chip"), off)
			if err != nil {
				_ = line.Close()
				return nil, err
			}
			opts = append(opts, bitbang.WithPowerPin(power))
			if c.Bool("power-active-low") {
				opts = append(opts, bitbang.WithPowerActiveLow())
			}
			closeAll = func() {
				_ = power.Close()
				_ = line.Close()
			}
		}
		return &bus{
			tr:     bitbang.New(line, opts...),
			pinErr: line.Err,
			close:  closeAll,
		}, nil
	case "periph":
		runtime.LockOSThread()
		pin, err := adapter.NewPeriphPin(c.String("pin"))
		if err != nil {
			return nil, err
		}
		return &bus{
			tr:     bitbang.New(pin),
			pinErr: pin.Err,
			close:  func() {},
		}, nil
	case "nanopi":
		runtime.LockOSThread()
		npi := nanopi.NewNeoAdaptor()
		if err := npi.Connect(); err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		pin := adapter.NewGobotPin(npi, c.String("pin"))
		return &bus{
			tr:     bitbang.New(pin),
			pinErr: pin.Err,
			close:  func() { _ = npi.Finalize() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", c.String("adapter"))
	}
}
