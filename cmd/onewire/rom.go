package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/onewire"
	"github.com/mklimuk/onewire/cmd/onewire/console"
)

var romCmd = cli.Command{
	Name:  "rom",
	Usage: "read and check device identities",
	Subcommands: cli.Commands{
		&romReadCmd,
		&romVerifyCmd,
	},
}

var romReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "read the ROM of the only device on the bus",
	Flags:   transportFlags,
	Action: func(c *cli.Context) error {
		b, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus setup error: %s", console.Red(err))
		}
		defer b.close()
		sess := onewire.NewSession(b.tr)
		rom, err := sess.ReadROM()
		if err != nil {
			if ferr := b.fault(); ferr != nil {
				return console.Exit(1, "adapter fault: %s", console.Red(ferr))
			}
			switch {
			case errors.Is(err, onewire.ErrNoPresence):
				return console.Exit(1, "no device answered the reset")
			case errors.Is(err, onewire.ErrCRCMismatch):
				return console.Exit(1, "corrupted ROM read, is more than one device on the bus? (%s)", console.Red(err))
			}
			return console.Exit(1, "read error: %s", console.Red(err))
		}
		printROM(rom)
		return nil
	},
}

var romVerifyCmd = cli.Command{
	Name:      "verify",
	Usage:     "check whether the device with the given ROM is on the bus",
	ArgsUsage: "<rom>",
	Flags:     transportFlags,
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected exactly one ROM argument")
		}
		rom, err := onewire.ParseROM(c.Args().First())
		if err != nil {
			return console.Exit(1, "invalid ROM: %s", console.Red(err))
		}
		b, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus setup error: %s", console.Red(err))
		}
		defer b.close()
		sess := onewire.NewSession(b.tr)
		present, err := sess.Verify(rom)
		if err != nil {
			if ferr := b.fault(); ferr != nil {
				return console.Exit(1, "adapter fault: %s", console.Red(ferr))
			}
			return console.Exit(1, "verify error: %s", console.Red(err))
		}
		if present {
			console.Printf("%s %s %s\n", console.PictoPin, console.Cyan(rom), console.Green("present"))
		} else {
			console.Printf("%s %s %s\n", console.PictoPin, console.Cyan(rom), console.Yellow("absent"))
		}
		return nil
	},
}

func printROM(rom onewire.ROM) {
	console.Printf("%s %s\n", console.PictoPin, console.Cyan(rom))
	console.Printf("  family: %s %s\n", console.White(fmt.Sprintf("%#02x", rom.Family())), familyName(rom.Family()))
	console.Printf("  serial: %s\n", console.White(fmt.Sprintf("%x", rom.Serial())))
}

// familyNames covers the devices this cli is commonly pointed at. Codes
// come from the respective datasheets.
var familyNames = map[byte]string{
	0x01: "DS1990A serial number iButton",
	0x05: "DS2405 addressable switch",
	0x10: "DS18S20 temperature sensor",
	0x12: "DS2406 dual addressable switch",
	0x1D: "DS2423 counter",
	0x22: "DS1822 temperature sensor",
	0x26: "DS2438 battery monitor",
	0x28: "DS18B20 temperature sensor",
	0x29: "DS2408 8-channel switch",
	0x2D: "DS2431 EEPROM",
	0x3A: "DS2413 dual switch",
	0x42: "DS28EA00 temperature sensor",
}

func familyName(code byte) string {
	if name, ok := familyNames[code]; ok {
		return name
	}
	return "unknown"
}
