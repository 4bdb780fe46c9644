// pkg/slice/write.go

package slice

import (
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"
)

// WriteLayer encodes a layer as a 16-bit grayscale PNG.
func WriteLayer(path string, l *Layer) error {
	img := image.NewGray16(image.Rect(0, 0, l.Width, l.Height))
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			v := l.At(y, x)
			off := y*img.Stride + 2*x
			img.Pix[off] = uint8(v >> 8)
			img.Pix[off+1] = uint8(v)
		}
	}
	return writePNG(path, img)
}

// WriteMask encodes a mask as an 8-bit PNG with foreground at 255.
func WriteMask(path string, m *Mask) error {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(y, x) {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return writePNG(path, img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err = png.Encode(f, img); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
