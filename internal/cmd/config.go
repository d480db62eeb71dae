package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"voccal/internal/config"
	appLog "voccal/internal/log"
)

var ConfigCmd = cli.Command{
	Name:  "config",
	Usage: "Manages the configuration file",
	Subcommands: []cli.Command{
		{
			Name:      "init",
			Usage:     "Writes a default configuration file",
			ArgsUsage: "<path>",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Overwrite an existing file",
				},
			},
			Action: configInitAct,
		},
	},
}

func configInitAct(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing config path")
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	appLog.Info("default config written", "path", path)
	return nil
}

// NewApp builds the command line application.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = AppName
	app.Version = AppVersion
	app.Usage = "Renders Gantt timelines of events and their equipment cases"
	app.Flags = append([]cli.Flag{
		&cli.StringFlag{
			Name:   "config, c",
			Usage:  "Path to the config file",
			EnvVar: "VOCCAL_CONFIG",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
	}, RenderFlags...)
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			appLog.SetLevel(appLog.LevelDebug)
		}
		return nil
	}
	app.Commands = []cli.Command{
		RenderCmd,
		WatchCmd,
		ConfigCmd,
	}
	// Without a command the app renders.
	app.Action = renderAct
	return app
}
