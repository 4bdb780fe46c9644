// pkg/chunk/mem_pool.go

package chunk

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// memPool partitions one voxel arena into chunk-sized slots. A slot is either
// on the free stack or owned by exactly one coordinate in occupied.
type memPool struct {
	sync.Mutex
	size     int
	volume   int
	arena    []uint16
	free     []int
	occupied map[Coordinate]int
}

func newMemPool(capacity, volume int) *memPool {
	p := &memPool{
		size:     capacity,
		volume:   volume,
		arena:    make([]uint16, capacity*volume),
		free:     make([]int, capacity),
		occupied: make(map[Coordinate]int, capacity),
	}
	// pop order hands out the lowest slots first
	for i := range p.free {
		p.free[i] = capacity - 1 - i
	}
	return p
}

func (p *memPool) capacity() int {
	return p.size
}

func (p *memPool) stats() (free, occupied int) {
	p.Lock()
	defer p.Unlock()
	return len(p.free), len(p.occupied)
}

// buffer returns the voxels of slot; the capacity is capped so that appends
// never spill into the next slot.
func (p *memPool) buffer(slot int) []uint16 {
	start := slot * p.volume
	return p.arena[start : start+p.volume : start+p.volume]
}

func (p *memPool) lookup(c Coordinate) ([]uint16, bool) {
	p.Lock()
	defer p.Unlock()
	if slot, ok := p.occupied[c]; ok {
		return p.buffer(slot), true
	}
	return nil, false
}

// take pops n free slots, or none if fewer than n are free.
func (p *memPool) take(n int) ([]int, error) {
	p.Lock()
	defer p.Unlock()
	if n > len(p.free) {
		return nil, errors.Wrapf(ErrCapacity, "need %d, free %d of %d", n, len(p.free), p.capacity())
	}
	rest := len(p.free) - n
	slots := make([]int, n)
	for i := range slots {
		slots[i] = p.free[len(p.free)-1-i]
	}
	p.free = p.free[:rest]
	return slots, nil
}

// giveBack returns slots that were taken but never assigned.
func (p *memPool) giveBack(slots []int) {
	p.Lock()
	defer p.Unlock()
	for i := len(slots) - 1; i >= 0; i-- {
		p.free = append(p.free, slots[i])
	}
}

func (p *memPool) assign(c Coordinate, slot int) {
	p.Lock()
	defer p.Unlock()
	p.occupied[c] = slot
}

// release moves the slot of c back to the free stack.
func (p *memPool) release(c Coordinate) bool {
	p.Lock()
	defer p.Unlock()
	slot, ok := p.occupied[c]
	if !ok {
		return false
	}
	delete(p.occupied, c)
	p.free = append(p.free, slot)
	return true
}

func (p *memPool) coordinates() []Coordinate {
	p.Lock()
	coords := make([]Coordinate, 0, len(p.occupied))
	for c := range p.occupied {
		coords = append(coords, c)
	}
	p.Unlock()
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}
