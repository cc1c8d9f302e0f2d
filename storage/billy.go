package storage

import (
	"os"
	"path"

	"go.uber.org/multierr"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

const partialSuffix = ".partial"

type billySource struct {
	billy.File
	size int64
}

func (s *billySource) Size() int64 {
	return s.size
}

// OpenBilly opens a finalized container stored on a billy filesystem.
func OpenBilly(fs billy.Filesystem, name string) (*File, error) {
	fi, err := fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dvid.NewError(dvid.NotFound, "open", "no container at %q", name)
		}
		return nil, dvid.IOErr("open", err)
	}
	f, err := fs.Open(name)
	if err != nil {
		return nil, dvid.IOErr("open", err)
	}
	return Open(&billySource{File: f, size: fi.Size()})
}

// BillyTarget writes a container to a scratch file beside its final name and
// renames it into place on Close only if the container was finalized.  Readers
// never see a partially written container under the final name.
type BillyTarget struct {
	billy.File
	fs        billy.Filesystem
	name      string
	partial   string
	committed bool
}

// NewBillyTarget creates the scratch file for name, creating parent directories.
func NewBillyTarget(fs billy.Filesystem, name string) (*BillyTarget, error) {
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, dvid.IOErr("create", err)
		}
	}
	partial := name + partialSuffix
	f, err := fs.OpenFile(partial, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, dvid.IOErr("create", err)
	}
	return &BillyTarget{File: f, fs: fs, name: name, partial: partial}, nil
}

// CreateBilly creates a container on a billy filesystem.
func CreateBilly(fs billy.Filesystem, name string, h format.Header) (*File, error) {
	t, err := NewBillyTarget(fs, name)
	if err != nil {
		return nil, err
	}
	return Create(t, h)
}

// Name returns the final name of the container.
func (t *BillyTarget) Name() string {
	return t.name
}

// Commit marks the container complete so Close publishes it.
func (t *BillyTarget) Commit() error {
	t.committed = true
	return nil
}

// Close closes the scratch file and, if committed, renames it to the final name.
// An uncommitted container stays under its scratch name.  A committed container
// whose scratch file fails to close is removed rather than published.
func (t *BillyTarget) Close() error {
	err := t.File.Close()
	if !t.committed {
		if err == nil {
			dvid.Infof("Leaving incomplete container at %s\n", t.partial)
		}
		return err
	}
	if err != nil {
		return multierr.Append(err, t.fs.Remove(t.partial))
	}
	return t.fs.Rename(t.partial, t.name)
}
