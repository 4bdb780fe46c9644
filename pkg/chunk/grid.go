// pkg/chunk/grid.go

package chunk

import (
	"VoxelStore/pkg/meta"
)

// Grid holds the number of chunks along each axis of a chunked volume.
type Grid struct {
	X, Y, Z uint64
}

// GridOf returns the chunk grid of a chunked volume.
func GridOf(info *meta.ChunkedVolumeInfo) Grid {
	x, y, z := info.ChunkCounts()
	return Grid{X: x, Y: y, Z: z}
}

// Len is the number of chunk slots in the grid.
func (g Grid) Len() uint64 {
	return g.X * g.Y * g.Z
}

// Contains tells whether c lies inside the grid.
func (g Grid) Contains(c Coordinate) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 &&
		uint64(c.X) < g.X && uint64(c.Y) < g.Y && uint64(c.Z) < g.Z
}

// Linear maps c to its z-major flat index.
func (g Grid) Linear(c Coordinate) (uint64, bool) {
	if !g.Contains(c) {
		return 0, false
	}
	return uint64(c.Z)*g.Y*g.X + uint64(c.Y)*g.X + uint64(c.X), true
}

// Coordinate is the inverse of Linear.
func (g Grid) Coordinate(i uint64) Coordinate {
	layer := g.Y * g.X
	return Coordinate{
		X: int64(i % g.X),
		Y: int64(i % layer / g.X),
		Z: int64(i / layer),
	}
}

// Layer returns the coordinates of chunk row z in linear order.
func (g Grid) Layer(z int64) []Coordinate {
	coords := make([]Coordinate, 0, g.X*g.Y)
	for y := int64(0); uint64(y) < g.Y; y++ {
		for x := int64(0); uint64(x) < g.X; x++ {
			coords = append(coords, Coordinate{X: x, Y: y, Z: z})
		}
	}
	return coords
}
