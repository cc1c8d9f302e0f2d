/*
	This file handles configuration of a new dataset and its loading from TOML files.
*/

package datastore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

// DefaultBlockEdge is the block edge used when a config gives none.
const DefaultBlockEdge = 32

// Config describes a dataset to create.  A TOML file looks like:
//
//	voxel_type = "uint8"
//	block_type = "lz"
//	block_edge = 16
//	extent_min = [0, 0, 0]
//	extent_max = [63, 63, 15]
//	resolution = [8.0, 8.0, 40.0]
//	offset = [0.0, 0.0, 0.0]
//	default_value = 0
//	cache_blocks = 128
//
//	[log]
//	logfile = "/var/log/sparsevol.log"
//	max_log_size = 500
//	max_log_age = 30
//
// Extents are block coordinates with inclusive corners.  The voxel to world
// transform is offset + resolution * voxel unless a full row-major 4x4
// transform is given.
type Config struct {
	VoxelType format.VoxelType `toml:"voxel_type"`
	BlockType format.BlockType `toml:"block_type"`
	BlockEdge uint32           `toml:"block_edge"`
	ExtentMin [3]int32         `toml:"extent_min"`
	ExtentMax [3]int32         `toml:"extent_max"`

	Resolution []float64 `toml:"resolution"`
	Offset     []float64 `toml:"offset"`
	Transform  []float64 `toml:"transform"`

	// DefaultValue is returned for voxels in unpopulated blocks: an integer, a
	// float, or an array of channel values.
	DefaultValue interface{} `toml:"default_value"`
	CacheBlocks  int         `toml:"cache_blocks"`

	Logging dvid.LogConfig `toml:"log"`
}

// Extent returns the configured block extent.
func (cfg *Config) Extent() dvid.Box3d {
	return dvid.Box3d{Min: dvid.Point3d(cfg.ExtentMin), Max: dvid.Point3d(cfg.ExtentMax)}
}

func vector(v []float64, fallback float64, name string) (dvid.Vector3d, error) {
	switch len(v) {
	case 0:
		return dvid.Vector3d{fallback, fallback, fallback}, nil
	case 3:
		return dvid.Vector3d{v[0], v[1], v[2]}, nil
	default:
		return dvid.Vector3d{}, fmt.Errorf("%s must have 3 components, got %d", name, len(v))
	}
}

// Affine returns the configured voxel to world transform.
func (cfg *Config) Affine() (dvid.Affine, error) {
	if len(cfg.Transform) != 0 {
		if len(cfg.Transform) != 16 {
			return dvid.Affine{}, fmt.Errorf("transform must have 16 components, got %d", len(cfg.Transform))
		}
		var m dvid.Affine
		copy(m[:], cfg.Transform)
		return m, nil
	}
	res, err := vector(cfg.Resolution, 1, "resolution")
	if err != nil {
		return dvid.Affine{}, err
	}
	offset, err := vector(cfg.Offset, 0, "offset")
	if err != nil {
		return dvid.Affine{}, err
	}
	return dvid.Translation(offset).Mul(dvid.Scaling(res)), nil
}

// Header returns a validated header for a new container.
func (cfg *Config) Header() (*format.Header, error) {
	edge := cfg.BlockEdge
	if edge == 0 {
		edge = DefaultBlockEdge
	}
	h, err := format.NewHeader(cfg.VoxelType, cfg.BlockType, edge, cfg.Extent())
	if err != nil {
		return nil, err
	}
	if h.Transform, err = cfg.Affine(); err != nil {
		return nil, err
	}
	return h, nil
}

// Options returns the runtime options implied by the config.
func (cfg *Config) Options() (Options, error) {
	def, err := parseValue(cfg.VoxelType, cfg.DefaultValue)
	if err != nil {
		return Options{}, err
	}
	return Options{Default: def, CacheBlocks: cfg.CacheBlocks}, nil
}

// LoadConfig reads a dataset configuration from a TOML file.  A relative log
// file path is taken relative to the config file, and a configured log file
// becomes the package logger.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	var cfg Config
	md, err := toml.DecodeFile(filename, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		dvid.Warningf("Ignoring unknown settings in %s: %s\n", filename, strings.Join(keys, ", "))
	}
	if _, err := cfg.Header(); err != nil {
		return nil, fmt.Errorf("bad dataset configuration in %s: %w", filename, err)
	}
	if _, err := cfg.Options(); err != nil {
		return nil, fmt.Errorf("bad default value in %s: %w", filename, err)
	}
	if cfg.Logging.Logfile != "" {
		if !filepath.IsAbs(cfg.Logging.Logfile) {
			cfg.Logging.Logfile = filepath.Join(filepath.Dir(filename), cfg.Logging.Logfile)
		}
		cfg.Logging.SetLogger()
	}
	dvid.Infof("Loaded dataset config %s: %s voxels, %s blocks of edge %d, extent %s\n",
		filename, cfg.VoxelType, cfg.BlockType, cfg.BlockEdge, cfg.Extent())
	return &cfg, nil
}
