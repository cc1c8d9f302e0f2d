package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/janelia-flyem/sparsevol/dvid"
)

// MmapSource is a read-only Source backed by a memory-mapped file.  Block reads
// copy out of the mapping, so returned blocks stay valid after Close.
type MmapSource struct {
	f    *os.File
	data mmap.MMap
}

// NewMmapSource maps a file for reading.
func NewMmapSource(path string) (*MmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dvid.NewError(dvid.NotFound, "mmap", "no container at %q", path)
		}
		return nil, dvid.IOErr("mmap", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dvid.IOErr("mmap", err)
	}
	s := &MmapSource{f: f}
	if fi.Size() == 0 {
		// empty files cannot be mapped; reads see EOF
		return s, nil
	}
	if s.data, err = mmap.Map(f, mmap.RDONLY, 0); err != nil {
		f.Close()
		return nil, dvid.IOErr("mmap", err)
	}
	return s, nil
}

// OpenMmap opens a finalized container through a memory mapping.
func OpenMmap(path string) (*File, error) {
	src, err := NewMmapSource(path)
	if err != nil {
		return nil, err
	}
	return Open(src)
}

func (s *MmapSource) ReadAt(p []byte, off int64) (int, error) {
	if s.f == nil {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("mmap read at negative offset %d", off)
	}
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the mapped length.
func (s *MmapSource) Size() int64 {
	return int64(len(s.data))
}

func (s *MmapSource) Name() string {
	if s.f == nil {
		return "closed mmap"
	}
	return s.f.Name() + " (mmap)"
}

// Close unmaps the file and closes it.
func (s *MmapSource) Close() error {
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			return err
		}
		s.data = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}

var _ sizer = (*MmapSource)(nil)
