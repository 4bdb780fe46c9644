// pkg/chunk/store.go

package chunk

import (
	"runtime"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"VoxelStore/pkg/meta"
)

// Store serves the chunks of a converted volume out of a fixed pool of chunk
// buffers backed by the memory-mapped payload file.
//
// Calls are serialized by the store; the byte copying inside Load and Write
// runs on up to Config.Threads goroutines.
type Store struct {
	sync.Mutex
	conf   Config
	info   *meta.ChunkedVolumeInfo
	grid   Grid
	volume int   // voxels per chunk
	bytes  int64 // payload bytes per chunk
	index  *Index
	file   *mappedFile
	pool   *memPool
	closed bool
}

var _ Loader = &Store{}

// NewStore opens the chunked volume in dir.
func NewStore(dir string, conf *Config) (*Store, error) {
	info, err := meta.ReadChunkedVolumeInfo(meta.DescriptorPath(dir))
	if err != nil {
		return nil, err
	}
	s := &Store{
		conf:   *conf,
		info:   info,
		grid:   GridOf(info),
		volume: int(info.ChunkVolume()),
		bytes:  int64(info.ChunkVolume()) * 2,
	}
	if s.conf.Threads <= 0 {
		s.conf.Threads = runtime.NumCPU()
	}

	s.file, err = openMapped(meta.PayloadPath(dir), !conf.ReadOnly)
	if err != nil {
		return nil, err
	}
	header, err := s.file.slice(0, int64(s.grid.Len())*8)
	if err != nil {
		_ = s.file.Close()
		return nil, errors.Wrap(err, "read chunk index")
	}
	s.index, err = ParseIndex(s.grid, header)
	if err != nil {
		_ = s.file.Close()
		return nil, err
	}
	need := s.index.HeaderSize() + int64(s.index.Present())*s.bytes
	if s.file.Len() < need {
		_ = s.file.Close()
		return nil, errors.Wrapf(ErrCorrupt, "%s has %d bytes, %d chunks need %d",
			meta.PayloadPath(dir), s.file.Len(), s.index.Present(), need)
	}

	capacity := conf.MemoryBudget / uint64(s.bytes)
	s.pool = newMemPool(int(capacity), s.volume)
	logger.Infof("Opened %s: grid %dx%dx%d, %d of %d chunks stored, pool of %d chunks (%s)",
		info, s.grid.X, s.grid.Y, s.grid.Z, s.index.Present(), s.grid.Len(), capacity,
		humanize.IBytes(capacity*uint64(s.bytes)))
	return s, nil
}

func (s *Store) Info() *meta.ChunkedVolumeInfo {
	return s.info
}

func (s *Store) Grid() Grid {
	return s.grid
}

// Capacity is the number of chunks the pool can hold.
func (s *Store) Capacity() int {
	return s.pool.capacity()
}

// Free is the number of unassigned pool buffers.
func (s *Store) Free() int {
	free, _ := s.pool.stats()
	return free
}

// Present is the number of chunks with a payload in the volume file.
func (s *Store) Present() uint64 {
	return s.index.Present()
}

func (s *Store) offset(ordinal uint64) int64 {
	return s.index.HeaderSize() + int64(ordinal)*s.bytes
}

func (s *Store) check(c Coordinate) error {
	if !s.grid.Contains(c) {
		return errors.Wrapf(ErrOutOfRange, "%v in grid %dx%dx%d", c, s.grid.X, s.grid.Y, s.grid.Z)
	}
	return nil
}

// Load makes the requested chunks resident. Chunks that are already resident
// are returned as they are; the others are read from the volume file, or
// zeroed if the volume has no payload for them. If the misses do not fit in
// the free buffers, nothing is loaded and ErrCapacity is returned.
func (s *Store) Load(coords []Coordinate) ([]Chunk, error) {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var misses []Coordinate
	missing := make(map[Coordinate]bool)
	for _, c := range coords {
		if err := s.check(c); err != nil {
			return nil, err
		}
		if _, ok := s.pool.lookup(c); ok || missing[c] {
			continue
		}
		missing[c] = true
		misses = append(misses, c)
	}

	slots, err := s.pool.take(len(misses))
	if err != nil {
		return nil, err
	}
	var g errgroup.Group
	g.SetLimit(s.conf.Threads)
	for i, c := range misses {
		c := c
		buf := s.pool.buffer(slots[i])
		g.Go(func() error {
			return s.fill(c, buf)
		})
	}
	if err = g.Wait(); err != nil {
		s.pool.giveBack(slots)
		return nil, err
	}
	for i, c := range misses {
		s.pool.assign(c, slots[i])
	}

	chunks := make([]Chunk, len(coords))
	for i, c := range coords {
		buf, _ := s.pool.lookup(c)
		chunks[i] = Chunk{Coordinate: c, Data: buf}
	}
	logger.Debugf("load %d chunks, %d read, %d buffers free", len(coords), len(misses), s.Free())
	return chunks, nil
}

func (s *Store) fill(c Coordinate, buf []uint16) error {
	ordinal, err := s.index.Lookup(c)
	if err != nil {
		return err
	}
	if ordinal == Absent {
		clear(buf)
		return nil
	}
	src, err := s.file.slice(s.offset(ordinal), s.bytes)
	if err != nil {
		return errors.Wrapf(err, "read chunk %v", c)
	}
	DecodeVoxels(buf, src)
	return nil
}

// Write persists chunks into the volume file. Chunks without a payload slot
// in the volume are discarded. If a coordinate occurs more than once the last
// occurrence is written.
func (s *Store) Write(chunks []Chunk) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.conf.ReadOnly {
		return ErrReadOnly
	}

	last := make(map[Coordinate]int, len(chunks))
	for i, ch := range chunks {
		if err := s.check(ch.Coordinate); err != nil {
			return err
		}
		if len(ch.Data) != s.volume {
			return errors.Wrapf(ErrChunkSize, "chunk %v has %d voxels, want %d", ch.Coordinate, len(ch.Data), s.volume)
		}
		last[ch.Coordinate] = i
	}

	var g errgroup.Group
	g.SetLimit(s.conf.Threads)
	var written, skipped int
	for i, ch := range chunks {
		if last[ch.Coordinate] != i {
			continue
		}
		ordinal, err := s.index.Lookup(ch.Coordinate)
		if err != nil {
			return err
		}
		if ordinal == Absent {
			skipped++
			continue
		}
		written++
		ch := ch
		g.Go(func() error {
			dst, err := s.file.slice(s.offset(ordinal), s.bytes)
			if err != nil {
				return errors.Wrapf(err, "write chunk %v", ch.Coordinate)
			}
			EncodeVoxels(dst, ch.Data)
			return nil
		})
	}
	err := g.Wait()
	logger.Debugf("write %d chunks, %d without payload slot", written, skipped)
	return err
}

// Preload is a hint that coords will be loaded soon. Chunks are read on
// demand by Load, so nothing is prefetched.
func (s *Store) Preload(coords []Coordinate) {
	logger.Debugf("preload hint for %d chunks", len(coords))
}

// Prepared returns the resident coordinates in ascending order.
func (s *Store) Prepared() []Coordinate {
	s.Lock()
	defer s.Unlock()
	return s.pool.coordinates()
}

// Drop returns the buffers of resident chunks to the pool. Coordinates that
// are not resident are ignored.
func (s *Store) Drop(coords []Coordinate) {
	s.Lock()
	defer s.Unlock()
	var released int
	for _, c := range coords {
		if s.pool.release(c) {
			released++
		}
	}
	logger.Debugf("drop %d of %d chunks, %d buffers free", released, len(coords), s.Free())
}

// Flush writes modified pages of the mapping back to the volume file.
func (s *Store) Flush() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.file.Sync()
}

// Close flushes and unmaps the volume file. Chunks returned by Load remain
// readable since they live in the pool, not in the mapping.
func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.file.Sync()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
