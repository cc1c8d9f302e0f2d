package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

// Source is the byte stream a finalized container is read from.  A File owns its
// Source and closes it on Close or on a failed Open.
type Source interface {
	io.ReaderAt
	io.Closer
}

// Target is the byte stream a container is written to.  Writes append to the
// payload region; Seek is only used by Finalize to patch the header.  If a
// Target also implements io.ReaderAt, blocks can be read back before finalize.
type Target interface {
	io.Writer
	io.Seeker
	io.Closer
}

// Committer is implemented by targets that publish their bytes only once the
// container is complete.  Finalize calls Commit after the header is patched.
type Committer interface {
	Commit() error
}

type sizer interface {
	Size() int64
}

type syncer interface {
	Sync() error
}

type namer interface {
	Name() string
}

func describe(v interface{}) string {
	if n, ok := v.(namer); ok {
		return n.Name()
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}

// osFile adds Size to *os.File so directory reads can be bounds checked.
type osFile struct {
	*os.File
}

func (f osFile) Size() int64 {
	fi, err := f.Stat()
	if err != nil {
		return -1
	}
	return fi.Size()
}

// OpenPath opens a finalized container on the local filesystem.
func OpenPath(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dvid.NewError(dvid.NotFound, "open", "no container at %q", path)
		}
		return nil, dvid.IOErr("open", err)
	}
	return Open(osFile{f})
}

// CreatePath creates or truncates a container on the local filesystem.
func CreatePath(path string, h format.Header) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, dvid.IOErr("create", err)
	}
	return Create(osFile{f}, h)
}
