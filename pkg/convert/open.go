// pkg/convert/open.go

package convert

import (
	"sync"

	"VoxelStore/pkg/slice"
)

// openSlices decodes paths with up to concurrent workers, keeping the order
// of paths in the result.
func openSlices[T any](paths []string, concurrent int, open func(string) (T, error)) ([]T, error) {
	out := make([]T, len(paths))
	errs := make([]error, len(paths))
	todo := make(chan int, len(paths))
	for i := range paths {
		todo <- i
	}
	close(todo)

	wg := sync.WaitGroup{}
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range todo {
				out[i], errs[i] = open(paths[i])
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *converter) openMasks(first int) ([]*slice.Mask, error) {
	paths := c.masks[first : first+int(c.info.ChunkSize)]
	masks, err := openSlices(paths, c.conf.Workers, slice.ReadMask)
	if err != nil {
		return nil, err
	}
	for i, m := range masks {
		if err = slice.CheckSize(paths[i], m.Width, m.Height, int(c.info.Width), int(c.info.Height)); err != nil {
			return nil, err
		}
	}
	return masks, nil
}

func (c *converter) openLayers(first int) ([]*slice.Layer, error) {
	paths := c.volumes[first : first+int(c.info.ChunkSize)]
	layers, err := openSlices(paths, c.conf.Workers, slice.ReadLayer)
	if err != nil {
		return nil, err
	}
	for i, l := range layers {
		if err = slice.CheckSize(paths[i], l.Width, l.Height, int(c.info.Width), int(c.info.Height)); err != nil {
			return nil, err
		}
	}
	return layers, nil
}
