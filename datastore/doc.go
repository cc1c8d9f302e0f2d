/*
Package datastore provides voxel-level access to sparse volume containers.

A Dataset maps integer voxel coordinates onto the blocks of a container.
Blocks that were never written read as a configurable default value, so a
huge extent costs nothing until it is populated.  Writes are buffered per
block and reach the container on Flush or Finalize; a block, once flushed,
is immutable.

	cfg, err := datastore.LoadConfig("volume.toml")
	d, err := datastore.CreateFile("volume.svox", cfg)
	err = d.SetVoxel(dvid.Point3d{5, 5, 5}, v)
	err = d.Finalize()
	err = d.Close()

Reads go through a bounded cache of decoded blocks.  QueryRegion walks a box
of voxels block by block in Morton order, and the header transform maps voxel
coordinates to world space.
*/
package datastore
