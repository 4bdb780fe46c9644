// pkg/chunk/mmap_unix.go

//go:build unix

package chunk

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mappedFile is a file mapped shared into memory. All access goes through
// slice, which checks the requested range against the mapping.
type mappedFile struct {
	name     string
	file     *os.File
	data     []byte
	writable bool
}

func openMapped(name string, writable bool) (*mappedFile, error) {
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flag, prot = os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}
	f, err := os.OpenFile(name, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", name)
	}
	m := &mappedFile{name: name, file: f, writable: writable}
	if size := st.Size(); size > 0 {
		if int64(int(size)) != size {
			_ = f.Close()
			return nil, errors.Errorf("%s is too large to map: %d bytes", name, size)
		}
		m.data, err = unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "mmap %s", name)
		}
	}
	return m, nil
}

func (m *mappedFile) Len() int64 {
	return int64(len(m.data))
}

// slice returns the n bytes at off, failing if the range leaves the mapping.
func (m *mappedFile) slice(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off > int64(len(m.data)) || n > int64(len(m.data))-off {
		return nil, errors.Wrapf(ErrCorrupt, "range [%d, %d) outside %s of %d bytes", off, off+n, m.name, len(m.data))
	}
	return m.data[off : off+n : off+n], nil
}

func (m *mappedFile) Sync() error {
	if !m.writable || len(m.data) == 0 {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return errors.Wrapf(err, "msync %s", m.name)
	}
	return nil
}

func (m *mappedFile) Close() error {
	var err error
	if m.data != nil {
		err = unix.Munmap(m.data)
		m.data = nil
	}
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}
