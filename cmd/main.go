// cmd/main.go

package main

import (
	"os"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"VoxelStore/pkg/utils"
	"VoxelStore/pkg/version"
)

var logger = utils.GetLogger("voxelstore")

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"debug", "v"},
			Usage:   "enable debug log",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "enable trace log",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "only warning and errors, no progress bars",
		},
		&cli.StringFlag{
			Name:  "log",
			Usage: "append log to this file instead of stderr",
		},
		&cli.BoolFlag{
			Name:  "debug-agent",
			Usage: "start a gops agent for runtime diagnostics",
		},
	}
}

func setLoggerLevel(c *cli.Context) {
	if c.Bool("trace") {
		utils.SetLogLevel(logrus.TraceLevel)
	} else if c.Bool("verbose") {
		utils.SetLogLevel(logrus.DebugLevel)
	} else if c.Bool("quiet") {
		utils.SetLogLevel(logrus.WarnLevel)
	} else {
		utils.SetLogLevel(logrus.InfoLevel)
	}
	if p := c.String("log"); p != "" {
		if err := utils.SetOutFile(p); err != nil {
			logger.Warnf("open log file %s: %s", p, err)
		}
	}
	if c.Bool("debug-agent") {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warnf("start gops agent: %s", err)
		}
	}
}

func main() {
	app := &cli.App{
		Name:                 "voxelstore",
		Usage:                "chunked storage for huge 16-bit scan volumes",
		Version:              version.Version(),
		Copyright:            "Apache License 2.0",
		EnableBashCompletion: true,
		Flags:                globalFlags(),
		Commands: []*cli.Command{
			convertFlags(),
			infoFlags(),
			walkFlags(),
			exportFlags(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("%s", err)
	}
}
