// pkg/chunk/index.go

package chunk

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Absent marks a chunk slot that has no payload in the volume file.
const Absent uint64 = math.MaxUint64

// Index maps every chunk slot to the ordinal of its payload, or Absent.
// It is stored big-endian at the head of the volume file.
type Index struct {
	grid    Grid
	entries []uint64
	present uint64
}

// BuildIndex compacts a presence mask laid out in linear grid order.
func BuildIndex(grid Grid, present []bool) (*Index, error) {
	if uint64(len(present)) != grid.Len() {
		return nil, errors.Errorf("presence mask has %d entries, grid %v needs %d", len(present), grid, grid.Len())
	}
	ix := &Index{grid: grid, entries: make([]uint64, len(present))}
	for i, p := range present {
		if p {
			ix.entries[i] = ix.present
			ix.present++
		} else {
			ix.entries[i] = Absent
		}
	}
	return ix, nil
}

// ParseIndex decodes a header read from a volume file.
func ParseIndex(grid Grid, header []byte) (*Index, error) {
	n := grid.Len()
	if uint64(len(header)) != n*8 {
		return nil, errors.Wrapf(ErrCorrupt, "header has %d bytes, want %d", len(header), n*8)
	}
	ix := &Index{grid: grid, entries: make([]uint64, n)}
	for i := range ix.entries {
		ix.entries[i] = binary.BigEndian.Uint64(header[i*8:])
		if ix.entries[i] != Absent {
			ix.present++
		}
	}
	seen := make([]bool, ix.present)
	for i, e := range ix.entries {
		if e == Absent {
			continue
		}
		if e >= ix.present || seen[e] {
			return nil, errors.Wrapf(ErrCorrupt, "chunk %v has ordinal %d of %d", grid.Coordinate(uint64(i)), e, ix.present)
		}
		seen[e] = true
	}
	return ix, nil
}

func (ix *Index) Grid() Grid {
	return ix.grid
}

// Present is the number of chunks with a payload.
func (ix *Index) Present() uint64 {
	return ix.present
}

// HeaderSize is the byte length of the encoded index.
func (ix *Index) HeaderSize() int64 {
	return int64(len(ix.entries)) * 8
}

// Lookup returns the payload ordinal of c, Absent if it has none.
func (ix *Index) Lookup(c Coordinate) (uint64, error) {
	i, ok := ix.grid.Linear(c)
	if !ok {
		return 0, errors.Wrapf(ErrOutOfRange, "%v in grid %dx%dx%d", c, ix.grid.X, ix.grid.Y, ix.grid.Z)
	}
	return ix.entries[i], nil
}

// Entry returns the raw entry at linear position i.
func (ix *Index) Entry(i uint64) uint64 {
	return ix.entries[i]
}

// WriteTo encodes the index as big-endian u64 entries.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var buf [8]byte
	var n int64
	for _, e := range ix.entries {
		binary.BigEndian.PutUint64(buf[:], e)
		m, err := bw.Write(buf[:])
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
