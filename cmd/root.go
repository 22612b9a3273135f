package cmd

import (
	"github.com/michalmuskala/debounce/cmd/subcmds"

	"github.com/urfave/cli/v2"
)

func NewApp() *cli.App {
	return &cli.App{
		Name:    "debounce",
		Usage:   "Run a command once file changes have settled",
		Version: "1.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to debounce.yml",
			},
		},
		Commands: []*cli.Command{
			subcmds.WatchCmd(),
		},
	}
}
