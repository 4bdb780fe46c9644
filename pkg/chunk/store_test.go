// pkg/chunk/store_test.go

package chunk

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"VoxelStore/pkg/meta"
)

const cs = 4

func chunkBytes() uint64 {
	return cs * cs * cs * 2
}

// voxel value of linear chunk i; offset by one so present chunks are never all zero
func pattern(i, v int) uint16 {
	return uint16(i*1000 + v + 1)
}

func openStore(t *testing.T, dir string, chunks uint64, readOnly bool) *Store {
	s, err := NewStore(dir, &Config{MemoryBudget: chunks * chunkBytes(), Threads: 2, ReadOnly: readOnly})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// twoByTwo is a 2x2x1 grid with chunks 1 and 2 present.
func twoByTwo(t *testing.T) string {
	return fixture(t, testInfo(2, 2, 1, cs), []bool{false, true, true, false}, pattern)
}

func TestStoreOpen(t *testing.T) {
	s := openStore(t, twoByTwo(t), 3, true)
	require.Equal(t, Grid{X: 2, Y: 2, Z: 1}, s.Grid())
	require.Equal(t, 3, s.Capacity())
	require.Equal(t, 3, s.Free())
	require.Equal(t, uint64(2), s.Present())
	require.Equal(t, uint64(cs), s.Info().ChunkSize)
	require.Empty(t, s.Prepared())
}

func TestStoreOpenErrors(t *testing.T) {
	_, err := NewStore(t.TempDir(), &Config{})
	require.True(t, errors.Is(err, os.ErrNotExist))

	dir := twoByTwo(t)
	require.NoError(t, os.Truncate(meta.PayloadPath(dir), int64(4*8+chunkBytes())))
	_, err = NewStore(dir, &Config{ReadOnly: true})
	require.True(t, errors.Is(err, ErrCorrupt))

	require.NoError(t, os.Truncate(meta.PayloadPath(dir), 12))
	_, err = NewStore(dir, &Config{ReadOnly: true})
	require.True(t, errors.Is(err, ErrCorrupt))
}

func TestStoreLoad(t *testing.T) {
	s := openStore(t, twoByTwo(t), 4, true)
	coords := []Coordinate{{X: 1, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 1}}
	chunks, err := s.Load(coords)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		require.Equal(t, coords[i], ch.Coordinate)
		require.Len(t, ch.Data, cs*cs*cs)
	}
	// (1,0,0) is linear 1, (0,1,0) is linear 2
	require.Equal(t, pattern(1, 0), chunks[0].Data[0])
	require.Equal(t, pattern(1, 63), chunks[0].Data[63])
	require.Equal(t, make([]uint16, cs*cs*cs), chunks[1].Data)
	require.Equal(t, pattern(2, 5), chunks[2].Data[5])

	require.Equal(t, []Coordinate{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}}, s.Prepared())
	require.Equal(t, 1, s.Free())
	require.Equal(t, s.Capacity(), s.Free()+len(s.Prepared()))
}

func TestStoreLoadResident(t *testing.T) {
	s := openStore(t, twoByTwo(t), 1, true)
	c := []Coordinate{{X: 1}}
	first, err := s.Load(c)
	require.NoError(t, err)
	first[0].Data[0] = 42

	again, err := s.Load(c)
	require.NoError(t, err)
	require.Equal(t, uint16(42), again[0].Data[0])
	require.Equal(t, 0, s.Free())
}

func TestStoreLoadDuplicates(t *testing.T) {
	s := openStore(t, twoByTwo(t), 1, true)
	chunks, err := s.Load([]Coordinate{{X: 1}, {X: 1}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, chunks[0].Data, chunks[1].Data)
	require.Equal(t, 0, s.Free())
}

func TestStoreLoadCapacity(t *testing.T) {
	s := openStore(t, twoByTwo(t), 2, true)
	_, err := s.Load([]Coordinate{{X: 0, Y: 0}})
	require.NoError(t, err)

	_, err = s.Load([]Coordinate{{X: 1, Y: 0}, {X: 0, Y: 1}})
	require.True(t, errors.Is(err, ErrCapacity))
	require.Equal(t, []Coordinate{{X: 0, Y: 0}}, s.Prepared())
	require.Equal(t, 1, s.Free())

	// a resident chunk costs nothing
	_, err = s.Load([]Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}})
	require.NoError(t, err)
	require.Equal(t, 0, s.Free())
}

func TestStoreLoadOutOfRange(t *testing.T) {
	s := openStore(t, twoByTwo(t), 4, true)
	for _, c := range []Coordinate{{X: 2}, {Y: -1}, {Z: 1}} {
		_, err := s.Load([]Coordinate{{X: 1}, c})
		require.True(t, errors.Is(err, ErrOutOfRange), "%v", c)
	}
	require.Empty(t, s.Prepared())
	require.Equal(t, 4, s.Free())
}

func TestStoreZeroBudget(t *testing.T) {
	s := openStore(t, twoByTwo(t), 0, true)
	require.Equal(t, 0, s.Capacity())
	_, err := s.Load([]Coordinate{{X: 1}})
	require.True(t, errors.Is(err, ErrCapacity))
	chunks, err := s.Load(nil)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestStoreDrop(t *testing.T) {
	s := openStore(t, twoByTwo(t), 2, true)
	_, err := s.Load([]Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}})
	require.NoError(t, err)

	s.Drop([]Coordinate{{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 7}})
	require.Equal(t, []Coordinate{{X: 0, Y: 0}}, s.Prepared())
	require.Equal(t, 1, s.Free())

	chunks, err := s.Load([]Coordinate{{X: 1, Y: 0}})
	require.NoError(t, err)
	require.Equal(t, pattern(1, 7), chunks[0].Data[7])
}

func TestStoreAbsentZeroedAfterReuse(t *testing.T) {
	s := openStore(t, twoByTwo(t), 1, true)
	chunks, err := s.Load([]Coordinate{{X: 1, Y: 0}})
	require.NoError(t, err)
	require.NotZero(t, chunks[0].Data[0])
	s.Drop([]Coordinate{{X: 1, Y: 0}})

	chunks, err = s.Load([]Coordinate{{X: 1, Y: 1}})
	require.NoError(t, err)
	require.Equal(t, make([]uint16, cs*cs*cs), chunks[0].Data)
}

func TestStoreWrite(t *testing.T) {
	dir := twoByTwo(t)
	s := openStore(t, dir, 2, false)

	data := make([]uint16, cs*cs*cs)
	for i := range data {
		data[i] = uint16(0xbeef + i)
	}
	data[0] = 1
	require.NoError(t, s.Write([]Chunk{
		{Coordinate: Coordinate{X: 0, Y: 1}, Data: data},
		{Coordinate: Coordinate{X: 1, Y: 1}, Data: data},
	}))
	require.NoError(t, s.Flush())

	chunks, err := s.Load([]Coordinate{{X: 0, Y: 1}, {X: 1, Y: 1}})
	require.NoError(t, err)
	require.Equal(t, data, chunks[0].Data)
	require.Equal(t, make([]uint16, cs*cs*cs), chunks[1].Data)
	require.NoError(t, s.Close())

	// ordinal 1 sits after the 4 entry header and the first chunk
	raw, err := os.ReadFile(meta.PayloadPath(dir))
	require.NoError(t, err)
	off := 4*8 + chunkBytes()
	require.Equal(t, []byte{0x00, 0x01}, raw[off:off+2])
	require.Equal(t, uint64(len(raw)), 4*8+2*chunkBytes())

	reopened := openStore(t, dir, 1, true)
	chunks, err = reopened.Load([]Coordinate{{X: 0, Y: 1}})
	require.NoError(t, err)
	require.Equal(t, data, chunks[0].Data)
}

func TestStoreWriteLastWins(t *testing.T) {
	s := openStore(t, twoByTwo(t), 1, false)
	a := make([]uint16, cs*cs*cs)
	b := make([]uint16, cs*cs*cs)
	a[0], b[0] = 1, 2
	c := Coordinate{X: 1}
	require.NoError(t, s.Write([]Chunk{{Coordinate: c, Data: a}, {Coordinate: c, Data: b}}))

	chunks, err := s.Load([]Coordinate{c})
	require.NoError(t, err)
	require.Equal(t, uint16(2), chunks[0].Data[0])
}

func TestStoreWriteErrors(t *testing.T) {
	dir := twoByTwo(t)
	ro := openStore(t, dir, 1, true)
	data := make([]uint16, cs*cs*cs)
	err := ro.Write([]Chunk{{Coordinate: Coordinate{X: 1}, Data: data}})
	require.True(t, errors.Is(err, ErrReadOnly))

	rw := openStore(t, dir, 1, false)
	err = rw.Write([]Chunk{{Coordinate: Coordinate{X: 1}, Data: data[:3]}})
	require.True(t, errors.Is(err, ErrChunkSize))
	err = rw.Write([]Chunk{{Coordinate: Coordinate{X: 1}, Data: data}, {Coordinate: Coordinate{X: 2}, Data: data}})
	require.True(t, errors.Is(err, ErrOutOfRange))

	// nothing is written when any chunk is rejected
	chunks, err := rw.Load([]Coordinate{{X: 1}})
	require.NoError(t, err)
	require.Equal(t, pattern(1, 0), chunks[0].Data[0])
}

func TestStoreClosed(t *testing.T) {
	s := openStore(t, twoByTwo(t), 1, false)
	chunks, err := s.Load([]Coordinate{{X: 1}})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	require.Equal(t, pattern(1, 0), chunks[0].Data[0])
	_, err = s.Load([]Coordinate{{X: 1}})
	require.True(t, errors.Is(err, ErrClosed))
	require.True(t, errors.Is(s.Write(nil), ErrClosed))
	require.True(t, errors.Is(s.Flush(), ErrClosed))
}

func TestStorePreload(t *testing.T) {
	s := openStore(t, twoByTwo(t), 1, true)
	s.Preload([]Coordinate{{X: 1}, {X: 9}})
	require.Empty(t, s.Prepared())
	require.Equal(t, 1, s.Free())
}

func TestReadLayer(t *testing.T) {
	dir := fixture(t, testInfo(2, 1, 2, cs), []bool{true, false, false, true}, pattern)
	s := openStore(t, dir, 3, true)
	_, err := s.Load([]Coordinate{{X: 0, Y: 0, Z: 1}})
	require.NoError(t, err)

	// slice 6 is depth 2 of chunk row 1
	layer, err := s.ReadLayer(6)
	require.NoError(t, err)
	require.Equal(t, 2*cs, layer.Width)
	require.Equal(t, cs, layer.Height)
	require.Equal(t, uint16(0), layer.At(3, 1))
	require.Equal(t, pattern(3, 2*cs*cs+3*cs+1), layer.At(3, cs+1))
	require.Equal(t, pattern(3, 2*cs*cs), layer.At(0, cs))

	// chunks loaded for the layer are dropped, resident ones stay
	require.Equal(t, []Coordinate{{X: 0, Y: 0, Z: 1}}, s.Prepared())

	_, err = s.ReadLayer(8)
	require.True(t, errors.Is(err, ErrOutOfRange))
}
