// cmd/info.go

package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"VoxelStore/pkg/chunk"
	"VoxelStore/pkg/meta"
)

type summary struct {
	Grid       chunk.Grid
	Chunks     uint64
	Present    uint64
	ChunkBytes string
	Payload    string
}

type sections struct {
	Setting *meta.ChunkedVolumeInfo
	Summary *summary
}

func printJson(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}

func infoFlags() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show the descriptor and chunk statistics of a chunked volume",
		ArgsUsage: "CHUNKED-DIR",
		Action:    info,
	}
}

func info(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("CHUNKED-DIR is needed")
	}
	s, err := chunk.NewStore(ctx.Args().Get(0), &chunk.Config{ReadOnly: true})
	if err != nil {
		logger.Fatalf("open: %s", err)
	}
	defer s.Close()

	v := s.Info()
	chunkBytes := v.ChunkVolume() * 2
	printJson(&sections{v, &summary{
		Grid:       s.Grid(),
		Chunks:     s.Grid().Len(),
		Present:    s.Present(),
		ChunkBytes: humanize.IBytes(chunkBytes),
		Payload:    humanize.IBytes(s.Present() * chunkBytes),
	}})
	return nil
}
