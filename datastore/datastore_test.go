package datastore

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	. "github.com/janelia-flyem/go/gocheck"
	"gopkg.in/src-d/go-billy.v4/memfs"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
	"github.com/janelia-flyem/sparsevol/storage"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type DataSuite struct {
	dir string
}

var _ = Suite(&DataSuite{})

func (s *DataSuite) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *DataSuite) path(name string) string {
	return filepath.Join(s.dir, name)
}

func uint8Config() *Config {
	return &Config{
		VoxelType: format.Uint8,
		BlockType: format.LZ,
		BlockEdge: 16,
		ExtentMax: [3]int32{3, 3, 3},
	}
}

func mustUint(c *C, t format.VoxelType, x uint64) Value {
	v, err := UintValue(t, x)
	c.Assert(err, IsNil)
	return v
}

func (s *DataSuite) TestRoundTrip(c *C) {
	path := s.path("roundtrip.svox")
	d, err := CreateFile(path, uint8Config())
	c.Assert(err, IsNil)

	p := dvid.Point3d{5, 5, 5}
	c.Assert(d.SetVoxel(p, mustUint(c, format.Uint8, 200)), IsNil)
	c.Assert(d.Flush(), IsNil)
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)

	d, err = OpenFile(path, Options{})
	c.Assert(err, IsNil)
	defer d.Close()

	v, err := d.GetVoxel(p)
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(200))

	v, err = d.GetVoxel(dvid.Point3d{0, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(0))

	v, err = d.GetVoxel(dvid.Point3d{63, 63, 63})
	c.Assert(err, IsNil)
	c.Assert(v, Equals, ZeroValue(format.Uint8))

	_, err = d.GetVoxel(dvid.Point3d{64, 0, 0})
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)
	_, err = d.GetVoxel(dvid.Point3d{0, -1, 0})
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)

	c.Assert(d.File().Len(), Equals, 1)
	err = d.SetVoxel(p, mustUint(c, format.Uint8, 1))
	c.Assert(dvid.KindOf(err), Equals, dvid.ReadOnly)
}

func (s *DataSuite) TestDefaultFill(c *C) {
	cfg := uint8Config()
	cfg.VoxelType = format.Int16
	cfg.DefaultValue = int64(-7)
	path := s.path("default.svox")
	d, err := CreateFile(path, cfg)
	c.Assert(err, IsNil)
	c.Assert(d.Default().Int(), Equals, int64(-7))

	v, err := IntValue(format.Int16, 1000)
	c.Assert(err, IsNil)
	c.Assert(d.SetVoxel(dvid.Point3d{17, 0, 0}, v), IsNil)

	// Unwritten voxels of a written block take the default.
	got, err := d.GetVoxel(dvid.Point3d{16, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(got.Int(), Equals, int64(-7))
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)

	d, err = OpenFile(path, Options{Default: configDefault(c, cfg)})
	c.Assert(err, IsNil)
	defer d.Close()
	got, err = d.GetVoxel(dvid.Point3d{16, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(got.Int(), Equals, int64(-7))
	got, err = d.GetVoxel(dvid.Point3d{17, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(got.Int(), Equals, int64(1000))
	got, err = d.GetVoxel(dvid.Point3d{40, 40, 40})
	c.Assert(err, IsNil)
	c.Assert(got.Int(), Equals, int64(-7))

	_, err = OpenFile(path, Options{Default: mustUint(c, format.Uint8, 3)})
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)
}

func configDefault(c *C, cfg *Config) Value {
	opts, err := cfg.Options()
	c.Assert(err, IsNil)
	return opts.Default
}

func (s *DataSuite) TestWriteErrors(c *C) {
	d, err := CreateFile(s.path("errors.svox"), uint8Config())
	c.Assert(err, IsNil)
	defer d.Close()

	err = d.SetVoxel(dvid.Point3d{64, 0, 0}, mustUint(c, format.Uint8, 1))
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)
	err = d.SetVoxel(dvid.Point3d{0, 0, 0}, mustUint(c, format.Uint16, 1))
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)

	c.Assert(d.SetVoxel(dvid.Point3d{0, 0, 0}, mustUint(c, format.Uint8, 1)), IsNil)
	c.Assert(d.SetVoxel(dvid.Point3d{1, 0, 0}, mustUint(c, format.Uint8, 2)), IsNil)
	c.Assert(d.Stats().DirtyBlocks, Equals, 1)
	c.Assert(d.Flush(), IsNil)
	c.Assert(d.Stats().DirtyBlocks, Equals, 0)

	// Flushed blocks are immutable.
	err = d.SetVoxel(dvid.Point3d{2, 0, 0}, mustUint(c, format.Uint8, 3))
	c.Assert(dvid.KindOf(err), Equals, dvid.DuplicateBlock)
	c.Assert(d.SetVoxel(dvid.Point3d{16, 0, 0}, mustUint(c, format.Uint8, 3)), IsNil)

	c.Assert(d.Finalize(), IsNil)
	err = d.SetVoxel(dvid.Point3d{32, 0, 0}, mustUint(c, format.Uint8, 3))
	c.Assert(dvid.KindOf(err), Equals, dvid.Finalized)
	c.Assert(dvid.KindOf(d.Flush()), Equals, dvid.Finalized)

	// Still readable after finalizing.
	v, err := d.GetVoxel(dvid.Point3d{1, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(2))

	c.Assert(d.Close(), IsNil)
	c.Assert(d.Close(), IsNil)
	_, err = d.GetVoxel(dvid.Point3d{1, 0, 0})
	c.Assert(dvid.KindOf(err), Equals, dvid.IOFailure)
}

func (s *DataSuite) TestBadConfig(c *C) {
	cfg := uint8Config()
	cfg.BlockEdge = 12
	_, err := CreateFile(s.path("bad.svox"), cfg)
	c.Assert(err, NotNil)

	cfg = uint8Config()
	cfg.DefaultValue = int64(300)
	_, err = CreateFile(s.path("bad.svox"), cfg)
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)
}

func (s *DataSuite) TestOpenBadMagic(c *C) {
	path := s.path("junk.svox")
	c.Assert(os.WriteFile(path, []byte("this is not a volume container at all, just some text"), 0644), IsNil)
	_, err := OpenFile(path, Options{})
	c.Assert(errors.Is(err, dvid.ErrBadMagic), Equals, true)
	c.Assert(dvid.KindOf(err).Category(), Equals, dvid.FormatError)

	_, err = OpenFile(s.path("missing.svox"), Options{})
	c.Assert(err, NotNil)
}

func (s *DataSuite) TestChecksumMismatch(c *C) {
	cfg := uint8Config()
	cfg.BlockType = format.Raw
	path := s.path("corrupt.svox")
	d, err := CreateFile(path, cfg)
	c.Assert(err, IsNil)
	c.Assert(d.SetVoxel(dvid.Point3d{20, 20, 20}, mustUint(c, format.Uint8, 9)), IsNil)
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)

	f, err := storage.OpenPath(path)
	c.Assert(err, IsNil)
	entry := f.Entries()[0]
	c.Assert(f.Close(), IsNil)

	data, err := os.ReadFile(path)
	c.Assert(err, IsNil)
	data[entry.End()-1] ^= 0xff
	c.Assert(os.WriteFile(path, data, 0644), IsNil)

	d, err = OpenFile(path, Options{})
	c.Assert(err, IsNil)
	defer d.Close()
	_, err = d.GetVoxel(dvid.Point3d{20, 20, 20})
	c.Assert(dvid.KindOf(err), Equals, dvid.ChecksumMismatch)
	c.Assert(dvid.KindOf(err).Category(), Equals, dvid.CompressionError)

	// Unpopulated blocks never touch the damaged payload.
	v, err := d.GetVoxel(dvid.Point3d{0, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(0))
}

func (s *DataSuite) TestCacheEviction(c *C) {
	cfg := uint8Config()
	cfg.CacheBlocks = 2
	path := s.path("cache.svox")
	d, err := CreateFile(path, cfg)
	c.Assert(err, IsNil)
	corners := []dvid.Point3d{{0, 0, 0}, {16, 0, 0}, {0, 16, 0}, {0, 0, 16}}
	for i, p := range corners {
		c.Assert(d.SetVoxel(p, mustUint(c, format.Uint8, uint64(i+1))), IsNil)
	}
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)

	d, err = OpenFile(path, Options{CacheBlocks: 2})
	c.Assert(err, IsNil)
	defer d.Close()
	for round := 0; round < 2; round++ {
		for i, p := range corners {
			v, err := d.GetVoxel(p)
			c.Assert(err, IsNil)
			c.Assert(v.Uint(), Equals, uint64(i+1))
		}
	}
	stats := d.Stats()
	c.Assert(stats.Blocks, Equals, 4)
	c.Assert(stats.CachedBlocks, Equals, 2)
	c.Assert(stats.CacheMisses, Equals, uint64(8))
	c.Assert(stats.Evictions, Equals, uint64(6))

	// Repeated reads of one block hit.
	for i := 0; i < 3; i++ {
		_, err := d.GetVoxel(dvid.Point3d{1, 0, 16})
		c.Assert(err, IsNil)
	}
	c.Assert(d.Stats().CacheHits, Equals, uint64(3))
	c.Assert(d.Stats().CacheBytes > 0, Equals, true)
}

// regionDataset returns a writable uint16 dataset with blocks of edge 4 over
// voxels -4 to 11, some flushed and some still buffered.
func (s *DataSuite) regionDataset(c *C) *Dataset {
	cfg := &Config{
		VoxelType: format.Uint16,
		BlockType: format.Snappy,
		BlockEdge: 4,
		ExtentMin: [3]int32{-1, -1, -1},
		ExtentMax: [3]int32{2, 2, 2},
	}
	d, err := CreateFile(s.path("region.svox"), cfg)
	c.Assert(err, IsNil)
	flushed := []dvid.Point3d{{-4, -4, -4}, {5, 1, 2}, {11, 11, 11}, {0, 7, -3}}
	for i, p := range flushed {
		c.Assert(d.SetVoxel(p, mustUint(c, format.Uint16, uint64(100+i))), IsNil)
	}
	c.Assert(d.Flush(), IsNil)
	buffered := []dvid.Point3d{{3, 3, 3}, {-1, 8, 0}}
	for i, p := range buffered {
		c.Assert(d.SetVoxel(p, mustUint(c, format.Uint16, uint64(200+i))), IsNil)
	}
	return d
}

func (s *DataSuite) TestQueryRegion(c *C) {
	d := s.regionDataset(c)
	defer d.Close()

	box := dvid.Box3d{Min: dvid.Point3d{-6, 1, -3}, Max: dvid.Point3d{6, 9, 3}}
	clipped := box.Intersect(d.Extent())
	seen := make(map[dvid.Point3d]bool)
	var lastCode uint64
	var last dvid.Point3d
	it := d.QueryRegion(box)
	for it.Next() {
		p := it.Point()
		c.Assert(clipped.Contains(p), Equals, true)
		c.Assert(seen[p], Equals, false)
		seen[p] = true

		want, err := d.GetVoxel(p)
		c.Assert(err, IsNil)
		c.Assert(it.Value(), Equals, want)

		code, err := d.File().Code(p.Chunk(4))
		c.Assert(err, IsNil)
		if len(seen) > 1 {
			c.Assert(code >= lastCode, Equals, true)
			if code == lastCode {
				// x fastest within a block
				c.Assert(p[2] > last[2] || (p[2] == last[2] && (p[1] > last[1] || (p[1] == last[1] && p[0] > last[0]))), Equals, true)
			}
		}
		lastCode, last = code, p
	}
	c.Assert(it.Err(), IsNil)
	c.Assert(int64(len(seen)), Equals, clipped.Volume())

	it.Reset()
	count := 0
	for it.Next() {
		count++
	}
	c.Assert(count, Equals, len(seen))

	outside := d.QueryRegion(dvid.Box3d{Min: dvid.Point3d{20, 20, 20}, Max: dvid.Point3d{30, 30, 30}})
	c.Assert(outside.Next(), Equals, false)
	c.Assert(outside.Err(), IsNil)
}

func (s *DataSuite) TestPopulatedBlocks(c *C) {
	d := s.regionDataset(c)
	defer d.Close()

	all, err := d.PopulatedBlocks(d.Extent())
	c.Assert(err, IsNil)
	c.Assert(all, HasLen, 6)
	var prev uint64
	for i, coord := range all {
		code, err := d.File().Code(coord)
		c.Assert(err, IsNil)
		if i > 0 {
			c.Assert(code > prev, Equals, true)
		}
		prev = code
	}

	some, err := d.PopulatedBlocks(dvid.Box3d{Min: dvid.Point3d{0, 0, 0}, Max: dvid.Point3d{7, 7, 7}})
	c.Assert(err, IsNil)
	c.Assert(some, DeepEquals, []dvid.ChunkPoint3d{{0, 0, 0}, {1, 0, 0}})
}

func (s *DataSuite) TestTransform(c *C) {
	cfg := uint8Config()
	cfg.Resolution = []float64{4, 4, 40}
	cfg.Offset = []float64{10, 0, 0}
	d, err := CreateFile(s.path("transform.svox"), cfg)
	c.Assert(err, IsNil)
	defer d.Close()

	c.Assert(d.WorldPoint(dvid.Point3d{1, 2, 3}), Equals, dvid.Vector3d{14, 8, 120})
	p, err := d.VoxelAt(dvid.Vector3d{15.9, 8.5, 121})
	c.Assert(err, IsNil)
	c.Assert(p, Equals, dvid.Point3d{1, 2, 3})

	bounds := d.WorldBounds(dvid.Box3d{Min: dvid.Point3d{0, 0, 0}, Max: dvid.Point3d{1, 1, 1}})
	c.Assert(bounds.Contains(dvid.Vector3d{12, 2, 20}), Equals, true)

	cfg = uint8Config()
	cfg.Resolution = []float64{0, 1, 1}
	flat, err := CreateFile(s.path("flat.svox"), cfg)
	c.Assert(err, IsNil)
	defer flat.Close()
	_, err = flat.VoxelAt(dvid.Vector3d{1, 1, 1})
	c.Assert(dvid.KindOf(err), Equals, dvid.SingularMatrix)
}

func (s *DataSuite) TestBillyDataset(c *C) {
	fs := memfs.New()
	dst, err := storage.NewBillyTarget(fs, "vols/a.svox")
	c.Assert(err, IsNil)
	cfg := uint8Config()
	cfg.BlockType = format.Zstd
	d, err := Create(dst, cfg)
	c.Assert(err, IsNil)
	c.Assert(d.SetVoxel(dvid.Point3d{33, 2, 50}, mustUint(c, format.Uint8, 77)), IsNil)
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)

	f, err := storage.OpenBilly(fs, "vols/a.svox")
	c.Assert(err, IsNil)
	d, err = New(f, Options{})
	c.Assert(err, IsNil)
	defer d.Close()
	v, err := d.GetVoxel(dvid.Point3d{33, 2, 50})
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(77))
	c.Assert(d.Stats().Blocks, Equals, 1)
}

// failingTarget fails its nth write, counting from 1.
type failingTarget struct {
	*storage.BillyTarget
	writes int
	failOn int
}

var errInjected = errors.New("injected write failure")

func (t *failingTarget) Write(p []byte) (int, error) {
	t.writes++
	if t.writes == t.failOn {
		return 0, errInjected
	}
	return t.BillyTarget.Write(p)
}

var _ io.Writer = (*failingTarget)(nil)

func (s *DataSuite) TestFlushPartialFailure(c *C) {
	fs := memfs.New()
	bt, err := storage.NewBillyTarget(fs, "partial.svox")
	c.Assert(err, IsNil)
	// write 1 is the header, so write 3 is the second block flushed
	d, err := Create(&failingTarget{BillyTarget: bt, failOn: 3}, uint8Config())
	c.Assert(err, IsNil)

	corners := []dvid.Point3d{{0, 0, 0}, {16, 0, 0}, {0, 16, 0}, {0, 0, 16}}
	for i, p := range corners {
		c.Assert(d.SetVoxel(p, mustUint(c, format.Uint8, uint64(i+1))), IsNil)
	}
	err = d.Flush()
	c.Assert(dvid.KindOf(err), Equals, dvid.IOFailure)
	c.Assert(errors.Is(err, errInjected), Equals, true)

	// The first block stays written and leaves the dirty set; the rest stay
	// buffered and readable.
	c.Assert(d.File().Len(), Equals, 1)
	c.Assert(d.Stats().DirtyBlocks, Equals, 3)
	populated, err := d.PopulatedBlocks(d.Extent())
	c.Assert(err, IsNil)
	c.Assert(populated, HasLen, 4)
	for i, p := range corners {
		v, err := d.GetVoxel(p)
		c.Assert(err, IsNil)
		c.Assert(v.Uint(), Equals, uint64(i+1))
	}

	// Until finalized, the bytes on disk do not open.
	_, err = storage.OpenBilly(fs, "partial.svox.partial")
	c.Assert(dvid.KindOf(err), Equals, dvid.CorruptDirectory)
	_, err = storage.OpenBilly(fs, "partial.svox")
	c.Assert(dvid.KindOf(err), Equals, dvid.NotFound)

	// A later flush writes what remained.
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)
	f, err := storage.OpenBilly(fs, "partial.svox")
	c.Assert(err, IsNil)
	d, err = New(f, Options{})
	c.Assert(err, IsNil)
	defer d.Close()
	c.Assert(d.Stats().Blocks, Equals, 4)
	for i, p := range corners {
		v, err := d.GetVoxel(p)
		c.Assert(err, IsNil)
		c.Assert(v.Uint(), Equals, uint64(i+1))
	}
}

func (s *DataSuite) TestExtentAtInt32Minimum(c *C) {
	cfg := &Config{
		VoxelType: format.Uint8,
		BlockType: format.LZ,
		BlockEdge: 16,
		ExtentMin: [3]int32{math.MinInt32 / 16, 0, 0},
		ExtentMax: [3]int32{math.MinInt32/16 + 1, 0, 0},
	}
	path := s.path("minimum.svox")
	d, err := CreateFile(path, cfg)
	c.Assert(err, IsNil)
	lowest := dvid.Point3d{math.MinInt32, 0, 0}
	c.Assert(d.Extent().Min, Equals, lowest)
	c.Assert(d.SetVoxel(lowest, mustUint(c, format.Uint8, 5)), IsNil)
	c.Assert(d.SetVoxel(dvid.Point3d{math.MinInt32 + 31, 15, 15}, mustUint(c, format.Uint8, 6)), IsNil)
	c.Assert(d.Finalize(), IsNil)
	c.Assert(d.Close(), IsNil)

	d, err = OpenFile(path, Options{})
	c.Assert(err, IsNil)
	defer d.Close()
	v, err := d.GetVoxel(lowest)
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(5))
	v, err = d.GetVoxel(dvid.Point3d{math.MinInt32 + 31, 15, 15})
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(6))
	_, err = d.GetVoxel(dvid.Point3d{math.MinInt32 + 32, 0, 0})
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)

	count := 0
	it := d.QueryRegion(dvid.Box3d{Min: lowest, Max: dvid.Point3d{math.MinInt32 + 3, 0, 0}})
	for it.Next() {
		count++
	}
	c.Assert(it.Err(), IsNil)
	c.Assert(count, Equals, 4)
}
