// pkg/convert/convert.go

package convert

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"VoxelStore/pkg/chunk"
	"VoxelStore/pkg/meta"
	"VoxelStore/pkg/slice"
	"VoxelStore/pkg/utils"
)

var logger = utils.GetLogger("voxelstore")

var ErrSliceCount = errors.New("slice count does not match the volume")

var (
	volumeExts = []string{".tif", ".tiff", ".png"}
	maskExts   = []string{".png", ".tif", ".tiff"}
)

// Config for a conversion.
type Config struct {
	ChunkSize uint64 // edge length of the cubic chunks in voxels
	Workers   int    // concurrent slice decoders, 0 means NumCPU
	BWLimit   int64  // payload write rate in bytes per second, 0 means unlimited
	Quiet     bool   // hide progress bars
}

// Result summarizes a finished conversion.
type Result struct {
	Info    *meta.ChunkedVolumeInfo
	Chunks  uint64 // chunk slots in the grid
	Present uint64 // chunks with a payload
	Size    int64  // bytes in the payload file
}

type converter struct {
	conf    Config
	info    *meta.ChunkedVolumeInfo
	grid    chunk.Grid
	volumes []string
	masks   []string
}

// Convert turns the slice stack in volumeDir, gated by the mask slices in
// maskDir, into a chunked volume in outputDir. The descriptor and payload in
// outputDir are only replaced once the whole volume has been written.
func Convert(volumeDir, maskDir, outputDir string, conf *Config) (*Result, error) {
	src, err := meta.ReadVolumeInfo(meta.DescriptorPath(volumeDir))
	if err != nil {
		return nil, err
	}
	logger.Infof("Volume %s: %dx%dx%d voxels", src.Name, src.Width, src.Height, src.Slices)
	if src.UUID == "" {
		src.UUID = uuid.New().String()
		logger.Warnf("Volume %s has no uuid, assigned %s", src.Name, src.UUID)
	}

	c := &converter{conf: *conf, info: meta.FromVolumeInfo(src, conf.ChunkSize)}
	if c.conf.Workers <= 0 {
		c.conf.Workers = runtime.NumCPU()
	}
	if err = c.info.Validate(); err != nil {
		return nil, err
	}
	c.grid = chunk.GridOf(c.info)

	if c.volumes, err = listSlices(volumeDir, src.Slices, volumeExts); err != nil {
		return nil, err
	}
	if c.masks, err = listSlices(maskDir, src.Slices, maskExts); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", outputDir)
	}
	out, err := os.CreateTemp(outputDir, "."+meta.PayloadName+".*")
	if err != nil {
		return nil, errors.Wrapf(err, "create payload in %s", outputDir)
	}
	tmp := out.Name()
	committed := false
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	res, err := c.run(out)
	if err != nil {
		return nil, err
	}
	if err = out.Sync(); err != nil {
		return nil, errors.Wrapf(err, "sync %s", tmp)
	}
	if err = out.Close(); err != nil {
		return nil, errors.Wrapf(err, "close %s", tmp)
	}
	descriptor := filepath.Join(outputDir, "."+meta.DescriptorName+".tmp")
	if err = meta.WriteChunkedVolumeInfo(c.info, descriptor); err != nil {
		_ = os.Remove(descriptor)
		return nil, err
	}
	if err = os.Rename(tmp, meta.PayloadPath(outputDir)); err != nil {
		_ = os.Remove(descriptor)
		return nil, errors.Wrap(err, "commit payload")
	}
	committed = true
	if err = os.Rename(descriptor, meta.DescriptorPath(outputDir)); err != nil {
		return nil, errors.Wrap(err, "commit descriptor")
	}
	logger.Infof("Converted %s into %s: %d of %d chunks stored, %s",
		c.info, outputDir, res.Present, res.Chunks, humanize.IBytes(uint64(res.Size)))
	return res, nil
}

func listSlices(dir string, want uint64, exts []string) ([]string, error) {
	files, err := slice.List(dir, exts...)
	if err != nil {
		return nil, err
	}
	if uint64(len(files)) != want {
		return nil, errors.Wrapf(ErrSliceCount, "%s has %d slices, want %d", dir, len(files), want)
	}
	logger.Infof("Found %d slices in %s", len(files), dir)
	return files, nil
}

func (c *converter) run(out io.Writer) (*Result, error) {
	present, err := c.buildMask()
	if err != nil {
		return nil, err
	}
	logger.Infof("Created the chunk mask")

	index, err := chunk.BuildIndex(c.grid, present)
	if err != nil {
		return nil, err
	}
	logger.Infof("Created the chunk index: %d of %d chunks present", index.Present(), c.grid.Len())

	w := bufio.NewWriterSize(newLimitedWriter(out, c.conf.BWLimit), 1<<20)
	size, err := index.WriteTo(w)
	if err != nil {
		return nil, errors.Wrap(err, "write chunk index")
	}
	logger.Infof("Written all chunk indices")

	n, written, err := c.writeChunks(w, present)
	if err != nil {
		return nil, err
	}
	size += n
	if err = w.Flush(); err != nil {
		return nil, errors.Wrap(err, "write chunks")
	}
	if written != index.Present() {
		return nil, errors.Errorf("written %d chunks, index has %d", written, index.Present())
	}
	logger.Infof("Written all chunks")
	return &Result{Info: c.info, Chunks: c.grid.Len(), Present: written, Size: size}, nil
}

// writeChunks streams the payload of every present chunk in index order.
func (c *converter) writeChunks(w io.Writer, present []bool) (size int64, written uint64, err error) {
	n := int(c.info.ChunkSize)
	row := int(c.grid.X * c.grid.Y)
	cells := make([][]uint16, row)
	for i := range cells {
		cells[i] = make([]uint16, n*n*n)
	}
	buf := make([]byte, 0, 2*n*n*n)

	progress, bar := utils.NewDynProgressBar("chunks: ", c.conf.Quiet)
	bar.SetTotal(int64(c.grid.Z), false)
	defer func() {
		bar.Abort(false)
		progress.Wait()
	}()

	for z := 0; uint64(z) < c.grid.Z; z++ {
		layers, err := c.openLayers(z * n)
		if err != nil {
			return size, written, err
		}
		for depth, l := range layers {
			for cy := 0; uint64(cy) < c.grid.Y; cy++ {
				for cx := 0; uint64(cx) < c.grid.X; cx++ {
					cell := cells[cy*int(c.grid.X)+cx]
					for y := 0; y < n; y++ {
						off := depth*n*n + y*n
						copy(cell[off:off+n], l.Row(cy*n+y, cx*n, n))
					}
				}
			}
		}
		for i, cell := range cells {
			if !present[z*row+i] {
				continue
			}
			buf = chunk.AppendVoxels(buf[:0], cell)
			m, err := w.Write(buf)
			size += int64(m)
			if err != nil {
				return size, written, errors.Wrap(err, "write chunks")
			}
			written++
		}
		bar.Increment()
		logger.Debugf("written chunk data from slice %d to %d", z*n, (z+1)*n)
	}
	bar.SetTotal(-1, true)
	return size, written, nil
}
