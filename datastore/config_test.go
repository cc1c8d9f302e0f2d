package datastore

import (
	"os"
	"path/filepath"

	. "github.com/janelia-flyem/go/gocheck"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

const testConfig = `
voxel_type = "rgb8"
block_type = "lz4"
block_edge = 8
extent_min = [-2, 0, 0]
extent_max = [5, 3, 1]
resolution = [2.0, 2.0, 30.0]
default_value = [255, 128, 0]
cache_blocks = 16
unknown_setting = true

[log]
logfile = "volume.log"
max_log_size = 10
`

func (s *DataSuite) TestLoadConfig(c *C) {
	path := s.path("volume.toml")
	c.Assert(os.WriteFile(path, []byte(testConfig), 0644), IsNil)

	cfg, err := LoadConfig(path)
	c.Assert(err, IsNil)
	c.Assert(cfg.VoxelType, Equals, format.RGB8)
	c.Assert(cfg.BlockType, Equals, format.LZ4)
	c.Assert(cfg.Extent(), Equals, dvid.Box3d{Min: dvid.Point3d{-2, 0, 0}, Max: dvid.Point3d{5, 3, 1}})
	c.Assert(cfg.Logging.Logfile, Equals, filepath.Join(s.dir, "volume.log"))
	c.Assert(cfg.Logging.MaxSize, Equals, 10)

	h, err := cfg.Header()
	c.Assert(err, IsNil)
	c.Assert(h.BlockEdge, Equals, uint32(8))
	c.Assert(h.VoxelExtent(), Equals, dvid.Box3d{Min: dvid.Point3d{-16, 0, 0}, Max: dvid.Point3d{47, 31, 15}})
	c.Assert(h.Transform.TransformPoint(dvid.Vector3d{1, 1, 1}), Equals, dvid.Vector3d{2, 2, 30})

	opts, err := cfg.Options()
	c.Assert(err, IsNil)
	c.Assert(opts.CacheBlocks, Equals, 16)
	c.Assert(opts.Default.String(), Equals, "(255,128,0)")

	d, err := CreateFile(s.path("volume.svox"), cfg)
	c.Assert(err, IsNil)
	defer d.Close()
	v, err := d.GetVoxel(dvid.Point3d{-16, 0, 0})
	c.Assert(err, IsNil)
	c.Assert(v, Equals, opts.Default)
}

func (s *DataSuite) TestLoadConfigErrors(c *C) {
	_, err := LoadConfig("")
	c.Assert(err, NotNil)
	_, err = LoadConfig(s.path("missing.toml"))
	c.Assert(err, NotNil)

	path := s.path("bad.toml")
	c.Assert(os.WriteFile(path, []byte("voxel_type = \"uint9\"\n"), 0644), IsNil)
	_, err = LoadConfig(path)
	c.Assert(err, NotNil)

	c.Assert(os.WriteFile(path, []byte("voxel_type = \"uint8\"\nextent_max = [1, 1, 1]\ntransform = [1.0, 2.0]\n"), 0644), IsNil)
	_, err = LoadConfig(path)
	c.Assert(err, NotNil)

	c.Assert(os.WriteFile(path, []byte("voxel_type = \"uint8\"\nextent_max = [1, 1, 1]\ndefault_value = 1.5\n"), 0644), IsNil)
	_, err = LoadConfig(path)
	c.Assert(err, NotNil)
}

func (s *DataSuite) TestCacheArena(c *C) {
	cache := newBlockCache(2, 4)
	a := cache.put(1, []byte{1, 1, 1, 1})
	c.Assert(a, DeepEquals, []byte{1, 1, 1, 1})
	cache.put(2, []byte{2, 2, 2, 2})
	cache.put(3, []byte{3, 3, 3, 3})
	c.Assert(cache.len(), Equals, 2)
	c.Assert(cache.evictions, Equals, uint64(1))
	_, found := cache.get(1)
	c.Assert(found, Equals, false)
	got, found := cache.get(3)
	c.Assert(found, Equals, true)
	c.Assert(got, DeepEquals, []byte{3, 3, 3, 3})
	c.Assert(len(cache.slots), Equals, 2)

	// 3 was just used, so 2 is the oldest
	cache.put(4, []byte{4, 4, 4, 4})
	c.Assert(cache.len(), Equals, 2)
	c.Assert(cache.evictions, Equals, uint64(2))
	c.Assert(len(cache.slots), Equals, 2)
	_, found = cache.get(2)
	c.Assert(found, Equals, false)
	got, found = cache.get(3)
	c.Assert(found, Equals, true)
	c.Assert(got, DeepEquals, []byte{3, 3, 3, 3})
	c.Assert(cache.hits, Equals, uint64(2))
	c.Assert(cache.misses, Equals, uint64(2))
	c.Assert(cache.hits, Equals, uint64(1))
	c.Assert(cache.misses, Equals, uint64(1))
}
