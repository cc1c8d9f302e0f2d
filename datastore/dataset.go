package datastore

import (
	"fmt"
	"sort"

	humanize "github.com/dustin/go-humanize"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
	"github.com/janelia-flyem/sparsevol/storage"
)

// Options tune an opened dataset.
type Options struct {
	// Default is returned for voxels of unpopulated blocks.  The zero Value means
	// the all-zero voxel of the dataset's type.
	Default Value

	// CacheBlocks bounds the number of decoded blocks kept in memory.
	CacheBlocks int
}

// Dataset is the voxel-level view of a container.  Voxels are addressed by
// integer coordinates, grouped into cubic blocks of the header's edge length.
// Blocks never written read as the default value.
//
// A Dataset opened for writing buffers modified blocks in memory until Flush.
// A Dataset is not safe for concurrent use.
type Dataset struct {
	file       *storage.File
	header     format.Header
	edge       int32
	voxelBytes int
	extent     dvid.Box3d // voxel coordinates

	def     Value
	defFill []byte // a block of default voxels
	cache   *blockCache
	dirty   map[uint64][]byte

	inverse    dvid.Affine
	inverseErr error

	closed bool
}

// New wraps an opened container.  The Dataset takes ownership of f and closes it
// if New fails.
func New(f *storage.File, opts Options) (*Dataset, error) {
	h := f.Header()
	def := opts.Default
	if def == (Value{}) {
		def = ZeroValue(h.VoxelType)
	}
	if def.Type() != h.VoxelType {
		f.Close()
		return nil, dvid.NewError(dvid.OutOfBounds, "dataset", "default value is %s, dataset holds %s", def.Type(), h.VoxelType)
	}
	d := &Dataset{
		file:       f,
		header:     h,
		edge:       int32(h.BlockEdge),
		voxelBytes: h.VoxelType.Bytes(),
		extent:     h.VoxelExtent(),
		def:        def,
		cache:      newBlockCache(opts.CacheBlocks, h.BlockBytes()),
	}
	d.defFill = make([]byte, h.BlockBytes())
	if def != ZeroValue(h.VoxelType) {
		vb := def.Bytes()
		for i := 0; i < len(d.defFill); i += len(vb) {
			copy(d.defFill[i:], vb)
		}
	}
	if f.Writable() {
		d.dirty = make(map[uint64][]byte)
	}
	d.inverse, d.inverseErr = h.Transform.Invert()
	return d, nil
}

// Open opens a finalized container from any source.
func Open(src storage.Source, opts Options) (*Dataset, error) {
	f, err := storage.Open(src)
	if err != nil {
		return nil, err
	}
	return New(f, opts)
}

// OpenFile opens a finalized container on local disk through a memory mapping.
func OpenFile(path string, opts Options) (*Dataset, error) {
	f, err := storage.OpenMmap(path)
	if err != nil {
		return nil, err
	}
	return New(f, opts)
}

// Create starts a new container on dst described by cfg.
func Create(dst storage.Target, cfg *Config) (*Dataset, error) {
	h, opts, err := prepare(cfg)
	if err != nil {
		dst.Close()
		return nil, err
	}
	f, err := storage.Create(dst, *h)
	if err != nil {
		return nil, err
	}
	return New(f, opts)
}

// CreateFile starts a new container at a local path described by cfg.
func CreateFile(path string, cfg *Config) (*Dataset, error) {
	h, opts, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	f, err := storage.CreatePath(path, *h)
	if err != nil {
		return nil, err
	}
	return New(f, opts)
}

func prepare(cfg *Config) (*format.Header, Options, error) {
	h, err := cfg.Header()
	if err != nil {
		return nil, Options{}, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, Options{}, err
	}
	return h, opts, nil
}

// Header returns the container header.
func (d *Dataset) Header() format.Header {
	return d.header
}

// Extent returns the box of addressable voxel coordinates.
func (d *Dataset) Extent() dvid.Box3d {
	return d.extent
}

// Default returns the value of voxels in unpopulated blocks.
func (d *Dataset) Default() Value {
	return d.def
}

// File returns the underlying container.
func (d *Dataset) File() *storage.File {
	return d.file
}

func (d *Dataset) checkOpen(op string) error {
	if d.closed {
		return dvid.NewError(dvid.IOFailure, op, "dataset %s is closed", d.file.Name())
	}
	return nil
}

func (d *Dataset) locate(op string, p dvid.Point3d) (uint64, int, error) {
	if !d.extent.Contains(p) {
		return 0, 0, dvid.NewError(dvid.OutOfBounds, op, "voxel %s outside extent %s", p, d.extent)
	}
	code, err := d.file.Code(p.Chunk(d.edge))
	if err != nil {
		return 0, 0, err
	}
	return code, d.offset(p.PointInChunk(d.edge)), nil
}

// offset returns the byte offset of a voxel within a block, x fastest.
func (d *Dataset) offset(q dvid.Point3d) int {
	e := int(d.edge)
	return ((int(q[2])*e+int(q[1]))*e + int(q[0])) * d.voxelBytes
}

// block returns the raw bytes of a block, or nil if it was never written.  The
// slice may be owned by the cache.
func (d *Dataset) block(code uint64) ([]byte, error) {
	if data, found := d.dirty[code]; found {
		return data, nil
	}
	if data, found := d.cache.get(code); found {
		return data, nil
	}
	if !d.file.Has(code) {
		return nil, nil
	}
	raw, err := d.file.ReadBlockCode(code)
	if err != nil {
		return nil, err
	}
	return d.cache.put(code, raw), nil
}

// GetVoxel returns the voxel at p, failing with OutOfBounds outside the extent.
// Voxels of blocks never written return the default value.
func (d *Dataset) GetVoxel(p dvid.Point3d) (Value, error) {
	if err := d.checkOpen("get voxel"); err != nil {
		return Value{}, err
	}
	code, off, err := d.locate("get voxel", p)
	if err != nil {
		return Value{}, err
	}
	data, err := d.block(code)
	if err != nil {
		return Value{}, err
	}
	if data == nil {
		return d.def, nil
	}
	return ValueFromBytes(d.header.VoxelType, data[off:off+d.voxelBytes]), nil
}

// SetVoxel sets the voxel at p in a dataset opened for writing.  The owning
// block is buffered until Flush.  A block already flushed to the container
// cannot be modified and fails with DuplicateBlock.
func (d *Dataset) SetVoxel(p dvid.Point3d, v Value) error {
	if err := d.writable("set voxel"); err != nil {
		return err
	}
	if v.Type() != d.header.VoxelType {
		return dvid.NewError(dvid.OutOfBounds, "set voxel", "value is %s, dataset holds %s", v.Type(), d.header.VoxelType)
	}
	code, off, err := d.locate("set voxel", p)
	if err != nil {
		return err
	}
	data, found := d.dirty[code]
	if !found {
		if d.file.Has(code) {
			return dvid.NewError(dvid.DuplicateBlock, "set voxel", "block %s holding %s was already flushed", p.Chunk(d.edge), p)
		}
		data = make([]byte, len(d.defFill))
		copy(data, d.defFill)
		d.dirty[code] = data
	}
	copy(data[off:], v.Bytes())
	return nil
}

func (d *Dataset) writable(op string) error {
	if err := d.checkOpen(op); err != nil {
		return err
	}
	if d.dirty == nil {
		return dvid.NewError(dvid.ReadOnly, op, "dataset %s was opened for reading", d.file.Name())
	}
	if d.file.Finalized() {
		return dvid.NewError(dvid.Finalized, op, "dataset %s", d.file.Name())
	}
	return nil
}

// Flush writes every modified block to the container in increasing Morton
// order.  If a write fails, blocks already written stay written and leave the
// set of modified blocks; the rest remain buffered.
func (d *Dataset) Flush() error {
	if err := d.writable("flush"); err != nil {
		return err
	}
	if len(d.dirty) == 0 {
		return nil
	}
	timedLog := dvid.NewTimeLog()
	codes := make([]uint64, 0, len(d.dirty))
	for code := range d.dirty {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, code := range codes {
		coord, err := d.file.Coord(code)
		if err != nil {
			return err
		}
		data := d.dirty[code]
		if err := d.file.WriteBlock(coord, data); err != nil {
			dvid.Errorf("Flush of %s stopped at block %s: %v\n", d.file.Name(), coord, err)
			return err
		}
		d.cache.put(code, data)
		delete(d.dirty, code)
	}
	timedLog.Debugf("Flushed %d blocks to %s", len(codes), d.file.Name())
	return nil
}

// Finalize flushes modified blocks and completes the container.  The dataset
// stays readable afterwards.
func (d *Dataset) Finalize() error {
	if err := d.Flush(); err != nil {
		return err
	}
	return d.file.Finalize()
}

// Close releases the container.  Modified blocks that were never flushed are
// discarded, and a dataset opened for writing that was not finalized leaves a
// container that fails to open.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if len(d.dirty) != 0 {
		dvid.Warningf("Discarding %d unflushed blocks of %s\n", len(d.dirty), d.file.Name())
	}
	d.dirty = nil
	return d.file.Close()
}

// WorldPoint returns the world position of a voxel coordinate.
func (d *Dataset) WorldPoint(p dvid.Point3d) dvid.Vector3d {
	return d.header.Transform.TransformPoint(p.Vector())
}

// WorldBounds returns the world-space bounding box of a box of voxels.
func (d *Dataset) WorldBounds(box dvid.Box3d) dvid.Bounds3d {
	return d.header.Transform.TransformBox(box)
}

// VoxelAt returns the voxel containing a world position, failing with
// SingularMatrix if the transform cannot be inverted.
func (d *Dataset) VoxelAt(w dvid.Vector3d) (dvid.Point3d, error) {
	if d.inverseErr != nil {
		return dvid.Point3d{}, d.inverseErr
	}
	return d.inverse.TransformPoint(w).Floor(), nil
}

// PopulatedBlocks returns the coordinates of blocks holding data within a box
// of voxels, in increasing Morton order.  Both blocks stored in the container
// and blocks modified since the last flush are included.
func (d *Dataset) PopulatedBlocks(box dvid.Box3d) ([]dvid.ChunkPoint3d, error) {
	if err := d.checkOpen("populated blocks"); err != nil {
		return nil, err
	}
	blocks := box.Intersect(d.extent).Chunks(d.edge)
	codes := make(map[uint64]struct{})
	scan := d.file.ScanRange(blocks)
	for scan.Next() {
		codes[scan.Code()] = struct{}{}
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	for code := range d.dirty {
		coord, err := d.file.Coord(code)
		if err != nil {
			return nil, err
		}
		if blocks.Contains(coord.Point()) {
			codes[code] = struct{}{}
		}
	}
	sorted := make([]uint64, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	coords := make([]dvid.ChunkPoint3d, len(sorted))
	for i, code := range sorted {
		coord, err := d.file.Coord(code)
		if err != nil {
			return nil, err
		}
		coords[i] = coord
	}
	return coords, nil
}

// Stats describes the container and the in-memory state of a dataset.
type Stats struct {
	storage.Stats
	DirtyBlocks  int
	CachedBlocks int
	CacheBytes   int
	CacheHits    uint64
	CacheMisses  uint64
	Evictions    uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s; %d dirty blocks; cache %d blocks (%s), %d hits, %d misses, %d evictions",
		s.Stats, s.DirtyBlocks, s.CachedBlocks, humanize.Bytes(uint64(s.CacheBytes)), s.CacheHits, s.CacheMisses, s.Evictions)
}

// Stats returns container and cache statistics.
func (d *Dataset) Stats() Stats {
	return Stats{
		Stats:        d.file.Stats(),
		DirtyBlocks:  len(d.dirty),
		CachedBlocks: d.cache.len(),
		CacheBytes:   d.cache.bytes(),
		CacheHits:    d.cache.hits,
		CacheMisses:  d.cache.misses,
		Evictions:    d.cache.evictions,
	}
}
