// cmd/walk.go

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"VoxelStore/pkg/chunk"
	"VoxelStore/pkg/utils"
)

func memoryFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "memory",
		Value: "1GiB",
		Usage: "memory budget of the chunk pool",
	}
}

func openStore(c *cli.Context, readOnly bool) *chunk.Store {
	budget, err := humanize.ParseBytes(c.String("memory"))
	if err != nil {
		logger.Fatalf("invalid memory %s: %s", c.String("memory"), err)
	}
	s, err := chunk.NewStore(c.Args().Get(0), &chunk.Config{
		MemoryBudget: budget,
		Threads:      c.Int("threads"),
		ReadOnly:     readOnly,
	})
	if err != nil {
		logger.Fatalf("open: %s", err)
	}
	return s
}

func walkFlags() *cli.Command {
	return &cli.Command{
		Name:      "walk",
		Usage:     "load and drop every chunk row of a chunked volume, front to back",
		ArgsUsage: "CHUNKED-DIR",
		Action:    walk,
		Flags: []cli.Flag{
			memoryFlag(),
			&cli.IntFlag{
				Name:  "threads",
				Usage: "concurrent chunk readers (0 for one per CPU)",
			},
			&cli.IntFlag{
				Name:  "rounds",
				Value: 1,
				Usage: "number of passes over the volume",
			},
		},
	}
}

func walk(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		return fmt.Errorf("CHUNKED-DIR is needed")
	}
	s := openStore(c, true)
	defer s.Close()

	grid := s.Grid()
	if uint64(s.Capacity()) < grid.X*grid.Y {
		logger.Fatalf("a chunk row has %d chunks, the pool holds only %d", grid.X*grid.Y, s.Capacity())
	}
	progress, bar := utils.NewDynProgressBar("walk: ", c.Bool("quiet"))
	bar.SetTotal(int64(grid.Z)*int64(c.Int("rounds")), false)

	start := time.Now()
	var loaded int
	for r := 0; r < c.Int("rounds"); r++ {
		for z := int64(0); uint64(z) < grid.Z; z++ {
			coords := grid.Layer(z)
			s.Preload(coords)
			chunks, err := s.Load(coords)
			if err != nil {
				logger.Fatalf("load chunk row %d: %s", z, err)
			}
			loaded += len(chunks)
			s.Drop(coords)
			bar.Increment()
		}
	}
	bar.SetTotal(-1, true)
	progress.Wait()

	used := time.Since(start)
	logger.Infof("Loaded %d chunks in %s (%.1f chunks/s), %s", loaded, used,
		float64(loaded)/used.Seconds(), utils.GetRusage())
	return nil
}
