// cmd/export.go

package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"VoxelStore/pkg/slice"
)

func exportFlags() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write one slice of a chunked volume as a 16-bit PNG",
		ArgsUsage: "CHUNKED-DIR Z OUTPUT.png",
		Action:    export,
		Flags: []cli.Flag{
			memoryFlag(),
			&cli.IntFlag{
				Name:  "threads",
				Usage: "concurrent chunk readers (0 for one per CPU)",
			},
		},
	}
}

func export(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 3 {
		return fmt.Errorf("CHUNKED-DIR, Z and OUTPUT are needed")
	}
	z, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid slice %s: %s", c.Args().Get(1), err)
	}
	s := openStore(c, true)
	defer s.Close()

	layer, err := s.ReadLayer(z)
	if err != nil {
		logger.Fatalf("read slice %d: %s", z, err)
	}
	if err = slice.WriteLayer(c.Args().Get(2), layer); err != nil {
		logger.Fatalf("export: %s", err)
	}
	logger.Infof("Written slice %d (%dx%d) to %s", z, layer.Width, layer.Height, c.Args().Get(2))
	return nil
}
