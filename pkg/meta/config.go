// pkg/meta/config.go

package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// DescriptorName is the sidecar descriptor inside a volume directory.
	DescriptorName = "meta.json"
	// PayloadName is the chunked payload file inside a chunked volume directory.
	PayloadName = "volume.bin"

	DefaultType = "vol"
	DefaultMax  = 65535.0
	DefaultMin  = 0.0
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrNotDivisible = errors.New("extent is not divisible by chunk size")
	ErrInvalid      = errors.New("invalid volume extent")
)

// VolumeInfo describes a dense volume stored as a stack of slice images.
type VolumeInfo struct {
	Name      string  `json:"name"`
	UUID      string  `json:"uuid"`
	Type      string  `json:"type"`
	Height    uint64  `json:"height"`
	Width     uint64  `json:"width"`
	Slices    uint64  `json:"slices"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
	VoxelSize float64 `json:"voxelsize"`
}

// ChunkedVolumeInfo is VolumeInfo plus the edge length of the cubic chunks.
type ChunkedVolumeInfo struct {
	Name      string  `json:"name"`
	UUID      string  `json:"uuid"`
	Type      string  `json:"type"`
	Height    uint64  `json:"height"`
	Width     uint64  `json:"width"`
	Slices    uint64  `json:"slices"`
	ChunkSize uint64  `json:"chunk_size"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
	VoxelSize float64 `json:"voxelsize"`
}

// descriptor is the wire form; pointers tell absent fields from zero values.
type descriptor struct {
	Name      string   `json:"name"`
	UUID      string   `json:"uuid"`
	Type      *string  `json:"type"`
	Height    *uint64  `json:"height"`
	Width     *uint64  `json:"width"`
	Slices    *uint64  `json:"slices"`
	ChunkSize *uint64  `json:"chunk_size"`
	Max       *float64 `json:"max"`
	Min       *float64 `json:"min"`
	VoxelSize *float64 `json:"voxelsize"`
}

func readDescriptor(path string, chunked bool) (*descriptor, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read descriptor %s", path)
	}
	var d descriptor
	if err = json.Unmarshal(body, &d); err != nil {
		return nil, errors.Wrapf(err, "parse descriptor %s", path)
	}
	required := map[string]bool{
		"height":    d.Height != nil,
		"width":     d.Width != nil,
		"slices":    d.Slices != nil,
		"voxelsize": d.VoxelSize != nil,
	}
	if chunked {
		required["chunk_size"] = d.ChunkSize != nil
	}
	for _, name := range []string{"height", "width", "slices", "chunk_size", "voxelsize"} {
		if ok, checked := required[name]; checked && !ok {
			return nil, errors.Wrapf(ErrMissingField, "descriptor %s: %s", path, name)
		}
	}
	if d.Type == nil {
		t := DefaultType
		d.Type = &t
	}
	if d.Max == nil {
		v := DefaultMax
		d.Max = &v
	}
	if d.Min == nil {
		v := DefaultMin
		d.Min = &v
	}
	return &d, nil
}

func writeDescriptor(path string, v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode descriptor %s", path)
	}
	if err = os.WriteFile(path, append(body, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "write descriptor %s", path)
	}
	return nil
}

// ReadVolumeInfo loads the descriptor of a dense volume.
func ReadVolumeInfo(path string) (*VolumeInfo, error) {
	d, err := readDescriptor(path, false)
	if err != nil {
		return nil, err
	}
	info := &VolumeInfo{
		Name:      d.Name,
		UUID:      d.UUID,
		Type:      *d.Type,
		Height:    *d.Height,
		Width:     *d.Width,
		Slices:    *d.Slices,
		Max:       *d.Max,
		Min:       *d.Min,
		VoxelSize: *d.VoxelSize,
	}
	if info.Height == 0 || info.Width == 0 || info.Slices == 0 {
		return nil, errors.Wrapf(ErrInvalid, "descriptor %s: %dx%dx%d", path, info.Width, info.Height, info.Slices)
	}
	return info, nil
}

// WriteVolumeInfo stores the descriptor of a dense volume.
func WriteVolumeInfo(info *VolumeInfo, path string) error {
	return writeDescriptor(path, info)
}

// ReadChunkedVolumeInfo loads and validates the descriptor of a chunked volume.
func ReadChunkedVolumeInfo(path string) (*ChunkedVolumeInfo, error) {
	d, err := readDescriptor(path, true)
	if err != nil {
		return nil, err
	}
	info := &ChunkedVolumeInfo{
		Name:      d.Name,
		UUID:      d.UUID,
		Type:      *d.Type,
		Height:    *d.Height,
		Width:     *d.Width,
		Slices:    *d.Slices,
		ChunkSize: *d.ChunkSize,
		Max:       *d.Max,
		Min:       *d.Min,
		VoxelSize: *d.VoxelSize,
	}
	if err = info.Validate(); err != nil {
		return nil, errors.Wrapf(err, "descriptor %s", path)
	}
	return info, nil
}

// WriteChunkedVolumeInfo stores the descriptor of a chunked volume.
func WriteChunkedVolumeInfo(info *ChunkedVolumeInfo, path string) error {
	return writeDescriptor(path, info)
}

// FromVolumeInfo attaches a chunk size to a dense volume descriptor.
func FromVolumeInfo(info *VolumeInfo, chunkSize uint64) *ChunkedVolumeInfo {
	return &ChunkedVolumeInfo{
		Name:      info.Name,
		UUID:      info.UUID,
		Type:      info.Type,
		Height:    info.Height,
		Width:     info.Width,
		Slices:    info.Slices,
		ChunkSize: chunkSize,
		Max:       info.Max,
		Min:       info.Min,
		VoxelSize: info.VoxelSize,
	}
}

// Validate checks that the extents are positive and split into whole chunks.
func (c *ChunkedVolumeInfo) Validate() error {
	if c.ChunkSize == 0 {
		return errors.Wrap(ErrInvalid, "chunk size is zero")
	}
	if c.Height == 0 || c.Width == 0 || c.Slices == 0 {
		return errors.Wrapf(ErrInvalid, "%dx%dx%d", c.Width, c.Height, c.Slices)
	}
	for _, ext := range []struct {
		name string
		v    uint64
	}{{"width", c.Width}, {"height", c.Height}, {"slices", c.Slices}} {
		if ext.v%c.ChunkSize != 0 {
			return errors.Wrapf(ErrNotDivisible, "%s %d, chunk size %d", ext.name, ext.v, c.ChunkSize)
		}
	}
	return nil
}

// ChunkCounts returns the number of chunks along width, height and depth.
func (c *ChunkedVolumeInfo) ChunkCounts() (x, y, z uint64) {
	return c.Width / c.ChunkSize, c.Height / c.ChunkSize, c.Slices / c.ChunkSize
}

// ChunkVolume is the number of voxels in one chunk.
func (c *ChunkedVolumeInfo) ChunkVolume() uint64 {
	return c.ChunkSize * c.ChunkSize * c.ChunkSize
}

func (c *ChunkedVolumeInfo) String() string {
	return fmt.Sprintf("%s (%s) %dx%dx%d chunk %d", c.Name, c.UUID, c.Width, c.Height, c.Slices, c.ChunkSize)
}

// DescriptorPath returns the descriptor path inside the volume directory dir.
func DescriptorPath(dir string) string {
	return filepath.Join(dir, DescriptorName)
}

// PayloadPath returns the payload path inside the chunked volume directory dir.
func PayloadPath(dir string) string {
	return filepath.Join(dir, PayloadName)
}
