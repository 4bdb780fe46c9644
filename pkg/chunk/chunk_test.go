// pkg/chunk/chunk_test.go

package chunk

import (
	"bytes"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"VoxelStore/pkg/meta"
)

// fixture writes a chunked volume in a fresh directory. Chunk i of the grid
// is present when present[i] is set, and every voxel of it holds
// value(i, voxel).
func fixture(t *testing.T, info *meta.ChunkedVolumeInfo, present []bool, value func(i, v int) uint16) string {
	dir := t.TempDir()
	require.NoError(t, meta.WriteChunkedVolumeInfo(info, meta.DescriptorPath(dir)))

	grid := GridOf(info)
	index, err := BuildIndex(grid, present)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = index.WriteTo(&buf)
	require.NoError(t, err)

	voxels := make([]uint16, info.ChunkVolume())
	for i, p := range present {
		if !p {
			continue
		}
		for v := range voxels {
			voxels[v] = value(i, v)
		}
		buf.Write(AppendVoxels(nil, voxels))
	}
	require.NoError(t, os.WriteFile(meta.PayloadPath(dir), buf.Bytes(), 0644))
	return dir
}

func testInfo(x, y, z, cs uint64) *meta.ChunkedVolumeInfo {
	return &meta.ChunkedVolumeInfo{
		Name:      "test",
		UUID:      "6c0f0ac4-1d5b-4d7e-a6a5-1f3e1e2c8a01",
		Type:      meta.DefaultType,
		Width:     x * cs,
		Height:    y * cs,
		Slices:    z * cs,
		ChunkSize: cs,
		Max:       meta.DefaultMax,
		VoxelSize: 1,
	}
}

func TestCoordinateOrder(t *testing.T) {
	a := Coordinate{X: 0, Y: 5, Z: 5}
	b := Coordinate{X: 1, Y: 0, Z: 0}
	c := Coordinate{X: 1, Y: 0, Z: 1}
	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	require.False(t, c.Less(b))
	require.False(t, b.Less(b))
	require.Equal(t, "(1,0,1)", c.String())
}

func TestGridLinear(t *testing.T) {
	g := Grid{X: 3, Y: 2, Z: 4}
	require.Equal(t, uint64(24), g.Len())

	i, ok := g.Linear(Coordinate{X: 2, Y: 1, Z: 3})
	require.True(t, ok)
	require.Equal(t, uint64(3*2*3+1*3+2), i)

	for i := uint64(0); i < g.Len(); i++ {
		j, ok := g.Linear(g.Coordinate(i))
		require.True(t, ok)
		require.Equal(t, i, j)
	}

	for _, c := range []Coordinate{{X: -1}, {X: 3}, {Y: 2}, {Z: 4}, {Z: -1}} {
		_, ok := g.Linear(c)
		require.False(t, ok, "%v", c)
	}

	layer := g.Layer(2)
	require.Len(t, layer, 6)
	require.Equal(t, Coordinate{X: 0, Y: 0, Z: 2}, layer[0])
	require.Equal(t, Coordinate{X: 2, Y: 1, Z: 2}, layer[5])
}

func TestIndex(t *testing.T) {
	g := Grid{X: 2, Y: 2, Z: 1}
	ix, err := BuildIndex(g, []bool{false, true, true, false})
	require.NoError(t, err)
	require.Equal(t, uint64(2), ix.Present())
	require.Equal(t, int64(32), ix.HeaderSize())
	require.Equal(t, []uint64{Absent, 0, 1, Absent},
		[]uint64{ix.Entry(0), ix.Entry(1), ix.Entry(2), ix.Entry(3)})

	ord, err := ix.Lookup(Coordinate{X: 0, Y: 1})
	require.NoError(t, err)
	require.Equal(t, uint64(1), ord)
	_, err = ix.Lookup(Coordinate{X: 2})
	require.True(t, errors.Is(err, ErrOutOfRange))

	var buf bytes.Buffer
	n, err := ix.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(32), n)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, buf.Bytes()[:8])
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, buf.Bytes()[16:24])

	parsed, err := ParseIndex(g, buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, ix, parsed)

	_, err = BuildIndex(g, []bool{true})
	require.Error(t, err)
}

func TestParseIndexCorrupt(t *testing.T) {
	g := Grid{X: 2, Y: 1, Z: 1}
	entry := func(v uint64) []byte {
		var buf bytes.Buffer
		ix := &Index{grid: Grid{X: 1, Y: 1, Z: 1}, entries: []uint64{v}}
		_, _ = ix.WriteTo(&buf)
		return buf.Bytes()
	}
	cases := map[string][]byte{
		"short":     entry(0),
		"duplicate": append(entry(0), entry(0)...),
		"gap":       append(entry(0), entry(2)...),
		"range":     append(entry(Absent), entry(1)...),
	}
	for name, header := range cases {
		_, err := ParseIndex(g, header)
		require.True(t, errors.Is(err, ErrCorrupt), "%s: %v", name, err)
	}
}

func TestCodec(t *testing.T) {
	src := []uint16{1, 0x1234, 0xffff}
	buf := make([]byte, 6)
	EncodeVoxels(buf, src)
	require.Equal(t, []byte{0x00, 0x01, 0x12, 0x34, 0xff, 0xff}, buf)
	require.Equal(t, buf, AppendVoxels(nil, src))

	dst := make([]uint16, 3)
	DecodeVoxels(dst, buf)
	require.Equal(t, src, dst)

	DecodeVoxels(nil, nil)
	EncodeVoxels(nil, nil)
}

func TestMemPool(t *testing.T) {
	p := newMemPool(3, 4)
	require.Equal(t, 3, p.capacity())

	slots, err := p.take(2)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, slots)
	p.assign(Coordinate{X: 1}, slots[0])
	p.assign(Coordinate{X: 0}, slots[1])

	_, err = p.take(2)
	require.True(t, errors.Is(err, ErrCapacity))
	free, occupied := p.stats()
	require.Equal(t, []int{1, 2}, []int{free, occupied})

	buf, ok := p.lookup(Coordinate{X: 1})
	require.True(t, ok)
	require.Len(t, buf, 4)
	require.Equal(t, 4, cap(buf))
	require.Equal(t, []Coordinate{{X: 0}, {X: 1}}, p.coordinates())

	require.True(t, p.release(Coordinate{X: 1}))
	require.False(t, p.release(Coordinate{X: 1}))
	slots, err = p.take(2)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 2}, slots)
	p.giveBack(slots)
	free, occupied = p.stats()
	require.Equal(t, []int{2, 1}, []int{free, occupied})

	empty := newMemPool(0, 8)
	_, err = empty.take(1)
	require.True(t, errors.Is(err, ErrCapacity))
	slots, err = empty.take(0)
	require.NoError(t, err)
	require.Empty(t, slots)
}
