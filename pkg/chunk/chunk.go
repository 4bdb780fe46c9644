// pkg/chunk/chunk.go

package chunk

import (
	"fmt"

	"github.com/pkg/errors"

	"VoxelStore/pkg/utils"
)

var logger = utils.GetLogger("voxelstore")

var (
	ErrCapacity   = errors.New("not enough free chunk buffers")
	ErrOutOfRange = errors.New("chunk coordinate out of range")
	ErrReadOnly   = errors.New("chunked volume is opened read-only")
	ErrChunkSize  = errors.New("chunk buffer has wrong length")
	ErrCorrupt    = errors.New("chunked volume is corrupted")
	ErrClosed     = errors.New("chunk store is closed")
)

// Coordinate addresses one chunk in chunk-grid space.
type Coordinate struct {
	X, Y, Z int64
}

// Less orders coordinates by x, then y, then z.
func (c Coordinate) Less(o Coordinate) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Chunk pairs a coordinate with its voxels in host byte order.
//
// Chunks returned by Load alias pool memory: the slice stays valid until the
// coordinate is dropped, after which the buffer may serve another chunk.
type Chunk struct {
	Coordinate Coordinate
	Data       []uint16
}

// Loader serves chunks of one chunked volume under a fixed memory budget.
type Loader interface {
	// Load blocks until every requested chunk is resident and returns them in
	// request order.
	Load(coords []Coordinate) ([]Chunk, error)
	// Write blocks until all chunks are persisted to the volume.
	Write(chunks []Chunk) error
	// Preload hints which chunks will be loaded soon.
	Preload(coords []Coordinate)
	// Prepared returns the coordinates of all resident chunks.
	Prepared() []Coordinate
	// Drop releases the buffers of resident chunks.
	Drop(coords []Coordinate)
	Close() error
}

// Config for a chunk store.
type Config struct {
	MemoryBudget uint64 // bytes available to the chunk pool
	Threads      int    // concurrent fill/write workers, 0 means NumCPU
	ReadOnly     bool
}
