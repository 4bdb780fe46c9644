// pkg/chunk/layer.go

package chunk

import (
	"github.com/pkg/errors"

	"VoxelStore/pkg/slice"
)

// ReadLayer assembles voxel slice z of the volume from the chunk row that
// contains it. Chunks that were not resident before the call are dropped
// again afterwards.
func (s *Store) ReadLayer(z uint64) (*slice.Layer, error) {
	cs := s.info.ChunkSize
	if z >= s.info.Slices {
		return nil, errors.Wrapf(ErrOutOfRange, "slice %d of %d", z, s.info.Slices)
	}
	coords := s.grid.Layer(int64(z / cs))

	resident := make(map[Coordinate]bool)
	for _, c := range s.Prepared() {
		resident[c] = true
	}
	chunks, err := s.Load(coords)
	if err != nil {
		return nil, err
	}
	var loaded []Coordinate
	for _, c := range coords {
		if !resident[c] {
			loaded = append(loaded, c)
		}
	}
	defer s.Drop(loaded)

	n := int(cs)
	depth := int(z % cs)
	layer := slice.NewLayer(int(s.info.Width), int(s.info.Height))
	for _, ch := range chunks {
		x0, y0 := int(ch.Coordinate.X)*n, int(ch.Coordinate.Y)*n
		plane := ch.Data[depth*n*n : (depth+1)*n*n]
		for y := 0; y < n; y++ {
			copy(layer.Row(y0+y, x0, n), plane[y*n:(y+1)*n])
		}
	}
	return layer, nil
}
