// pkg/slice/slice.go

package slice

import (
	"image"
	"image/color"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/tiff"
)

var ErrSize = errors.New("slice has unexpected size")

// Layer is one 2D slice of 16-bit voxels in row-major order.
type Layer struct {
	Width, Height int
	Data          []uint16
}

func NewLayer(width, height int) *Layer {
	return &Layer{Width: width, Height: height, Data: make([]uint16, width*height)}
}

func (l *Layer) At(y, x int) uint16 {
	return l.Data[y*l.Width+x]
}

func (l *Layer) Set(y, x int, v uint16) {
	l.Data[y*l.Width+x] = v
}

// Row returns n voxels of row y starting at column x.
func (l *Layer) Row(y, x, n int) []uint16 {
	off := y*l.Width + x
	return l.Data[off : off+n]
}

// Mask is one 2D slice of foreground flags.
type Mask struct {
	Width, Height int
	Data          []bool
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Data: make([]bool, width*height)}
}

func (m *Mask) At(y, x int) bool {
	return m.Data[y*m.Width+x]
}

func (m *Mask) Set(y, x int, v bool) {
	m.Data[y*m.Width+x] = v
}

// Row returns n flags of row y starting at column x.
func (m *Mask) Row(y, x, n int) []bool {
	off := y*m.Width + x
	return m.Data[off : off+n]
}

// List returns the files in dir with one of the extensions, sorted by name.
func List(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list slices in %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open slice %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode slice %s", path)
	}
	return img, nil
}

// ReadLayer decodes a grayscale slice image into 16-bit voxels. Images that
// are not 16-bit grayscale are converted through the Gray16 color model.
func ReadLayer(path string) (*Layer, error) {
	img, err := decode(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	l := NewLayer(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < l.Height; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X)*2:]
			for x := 0; x < l.Width; x++ {
				l.Data[y*l.Width+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
	default:
		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				l.Data[y*l.Width+x] = c.Y
			}
		}
	}
	return l, nil
}

// ReadMask decodes a mask image; any non-zero pixel is foreground.
func ReadMask(path string) (*Mask, error) {
	img, err := decode(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < m.Height; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
			for x := 0; x < m.Width; x++ {
				m.Data[y*m.Width+x] = row[x] != 0
			}
		}
	default:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				m.Data[y*m.Width+x] = c.Y != 0
			}
		}
	}
	return m, nil
}

// CheckSize fails with ErrSize unless the slice is width x height.
func CheckSize(path string, width, height, wantWidth, wantHeight int) error {
	if width != wantWidth || height != wantHeight {
		return errors.Wrapf(ErrSize, "%s is %dx%d, want %dx%d", path, width, height, wantWidth, wantHeight)
	}
	return nil
}
