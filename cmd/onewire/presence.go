package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/onewire"
	"github.com/mklimuk/onewire/cmd/onewire/console"
)

var presenceCmd = cli.Command{
	Name:    "presence",
	Aliases: []string{"ping"},
	Usage:   "reset the bus and report whether any device answers",
	Flags:   transportFlags,
	Action: func(c *cli.Context) error {
		b, err := openBus(c)
		if err != nil {
			return console.Exit(1, "bus setup error: %s", console.Red(err))
		}
		defer b.close()
		sess := onewire.NewSession(b.tr)
		present, err := sess.Reset()
		if err != nil {
			if ferr := b.fault(); ferr != nil {
				return console.Exit(1, "adapter fault: %s", console.Red(ferr))
			}
			return console.Exit(1, "reset error: %s", console.Red(err))
		}
		if present {
			console.Printf("%s %s\n", console.PictoPlug, console.Green("present"))
		} else {
			console.Printf("%s %s\n", console.PictoStop, console.Yellow("no presence"))
		}
		return nil
	},
}
