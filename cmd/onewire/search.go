package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/onewire"
	"github.com/mklimuk/onewire/cmd/onewire/console"
)

var searchCmd = cli.Command{
	Name:    "search",
	Aliases: []string{"ls"},
	Usage:   "enumerate devices on the bus",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "alarm",
			Usage: "only enumerate devices in alarm state",
		},
		&cli.StringFlag{
			Name:  "family",
			Usage: "restrict the search to one family code, e.g. 0x28",
		},
		&cli.StringFlag{
			Name:  "save",
			Usage: "write the inventory to a yaml file",
		},
	}, transportFlags...),
	Action: func(c *cli.Context) error {
		b, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus setup error: %s", console.Red(err))
		}
		defer b.close()
		sess := onewire.NewSession(b.tr)
		var opts []onewire.SearchOption
		if c.Bool("alarm") {
			opts = append(opts, onewire.Alarm())
		}
		sr := onewire.NewSearch(sess, opts...)
		if fam := c.String("family"); fam != "" {
			code, err := strconv.ParseUint(fam, 0, 8)
			if err != nil {
				return console.Exit(1, "invalid family code %q: %s", fam, console.Red(err))
			}
			sr.Target(byte(code))
		}
		var roms []onewire.ROM
		for sr.Next() {
			roms = append(roms, sr.ROM())
		}
		if err := sr.Err(); err != nil {
			if ferr := b.fault(); ferr != nil {
				return console.Exit(1, "adapter fault: %s", console.Red(ferr))
			}
			return console.Exit(1, "search error: %s", console.Red(err))
		}
		picto := console.PictoMag
		if c.Bool("alarm") {
			picto = console.PictoBell
		}
		if len(roms) == 0 {
			console.PInfof(picto, "no devices found")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "#\tROM\tFAMILY\tDEVICE\n")
		for i, rom := range roms {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%#02x\t%s\n", i, rom, rom.Family(), familyName(rom.Family()))
		}
		_ = w.Flush()
		console.PInfof(picto, "found %s device(s)", console.White(len(roms)))
		if path := c.String("save"); path != "" {
			return saveInventory(path, roms)
		}
		return nil
	},
}

type inventory struct {
	Scanned time.Time        `yaml:"scanned"`
	Devices []inventoryEntry `yaml:"devices"`
}

type inventoryEntry struct {
	ROM    string `yaml:"rom"`
	Family string `yaml:"family"`
	Name   string `yaml:"name,omitempty"`
}

func saveInventory(path string, roms []onewire.ROM) error {
	if _, err := os.Stat(path); err == nil {
		ok, err := console.Confirm(fmt.Sprintf("%s exists, overwrite?", path))
		if err != nil {
			return console.Exit(1, "prompt error: %s", console.Red(err))
		}
		if !ok {
			console.PInfof(console.PictoStop, "save aborted")
			return nil
		}
	}
	inv := inventory{Scanned: time.Now().UTC()}
	for _, rom := range roms {
		name := ""
		if n, ok := familyNames[rom.Family()]; ok {
			name = n
		}
		inv.Devices = append(inv.Devices, inventoryEntry{
			ROM:    rom.String(),
			Family: fmt.Sprintf("%#02x", rom.Family()),
			Name:   name,
		})
	}
	out, err := yaml.Marshal(&inv)
	if err != nil {
		return console.Exit(1, "yaml encode error: %s", console.Red(err))
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return console.Exit(1, "write error: %s", console.Red(err))
	}
	console.PInfof(console.PictoFloppy, "saved %d device(s) to %s", len(inv.Devices), path)
	return nil
}
