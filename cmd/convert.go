// cmd/convert.go

package main

import (
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"VoxelStore/pkg/convert"
	"VoxelStore/pkg/utils"
)

func convertFlags() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a slice stack and its mask into a chunked volume",
		ArgsUsage: "VOLUME-DIR MASK-DIR OUTPUT-DIR",
		Action:    convertVolume,
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "chunk-size",
				Value: 64,
				Usage: "edge length of the cubic chunks in voxels",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: 0,
				Usage: "number of concurrent slice decoders (0 for one per CPU)",
			},
			&cli.StringFlag{
				Name:  "bwlimit",
				Value: "0",
				Usage: "limit the payload write rate per second, e.g. 200MiB (0 is unlimited)",
			},
		},
	}
}

func convertVolume(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 3 {
		logger.Fatalf("VOLUME-DIR, MASK-DIR and OUTPUT-DIR are required")
	}
	limit, err := humanize.ParseBytes(c.String("bwlimit"))
	if err != nil {
		logger.Fatalf("invalid bwlimit %s: %s", c.String("bwlimit"), err)
	}

	conf := &convert.Config{
		ChunkSize: c.Uint64("chunk-size"),
		Workers:   c.Int("workers"),
		BWLimit:   int64(limit),
		Quiet:     c.Bool("quiet"),
	}
	res, err := convert.Convert(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), conf)
	if err != nil {
		logger.Fatalf("convert: %s", err)
	}
	logger.Infof("Stored %d of %d chunks (%s) in %s", res.Present, res.Chunks,
		humanize.IBytes(uint64(res.Size)), utils.GetRusage())
	return nil
}
