// pkg/convert/mask.go

package convert

import (
	"VoxelStore/pkg/slice"
	"VoxelStore/pkg/utils"
)

// cropMask copies the n x n window at (y0, x0) of every mask slice into
// window, depth-major.
func cropMask(window []bool, masks []*slice.Mask, y0, x0, n int) {
	for z, m := range masks {
		for y := 0; y < n; y++ {
			copy(window[z*n*n+y*n:z*n*n+(y+1)*n], m.Row(y0+y, x0, n))
		}
	}
}

func allFalse(window []bool) bool {
	for _, v := range window {
		if v {
			return false
		}
	}
	return true
}

// buildMask flags every chunk whose footprint holds at least one foreground
// mask pixel. The result is in linear grid order.
func (c *converter) buildMask() ([]bool, error) {
	n := int(c.info.ChunkSize)
	present := make([]bool, c.grid.Len())
	window := make([]bool, n*n*n)

	progress, bar := utils.NewDynProgressBar("mask: ", c.conf.Quiet)
	bar.SetTotal(int64(c.grid.Z), false)
	defer func() {
		bar.Abort(false)
		progress.Wait()
	}()

	var i int
	for z := 0; uint64(z) < c.grid.Z; z++ {
		masks, err := c.openMasks(z * n)
		if err != nil {
			return nil, err
		}
		for y := 0; uint64(y) < c.grid.Y; y++ {
			for x := 0; uint64(x) < c.grid.X; x++ {
				cropMask(window, masks, y*n, x*n, n)
				present[i] = !allFalse(window)
				i++
			}
		}
		bar.Increment()
		logger.Debugf("created chunk mask from slice %d to %d", z*n, (z+1)*n)
	}
	bar.SetTotal(-1, true)
	return present, nil
}
