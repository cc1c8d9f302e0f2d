/*
Sparsevol stores large, mostly empty 3D voxel volumes in a compact file that
allows any single block of voxels to be read without touching the rest.

Packages

	dvid       points, boxes, affine transforms, errors, and logging
	morton     Z-order encoding of block coordinates and box iteration
	codec      block compression schemes
	format     the on-disk header and block directory
	storage    reading and writing containers on local files, memory maps,
	           billy filesystems, and cloud buckets
	datastore  voxel-level access with default fill, write buffering, and a
	           decode cache

File layout

A container is a fixed 120 byte header, the compressed blocks in the order
they were written, and a block directory sorted by Morton code.  The header
records the directory position once the file is finalized, so a reader needs
one read for the header, one for the directory, and one per block.

	d, err := datastore.OpenFile("volume.svox", datastore.Options{})
	if err != nil {
		...
	}
	defer d.Close()
	v, err := d.GetVoxel(dvid.Point3d{120, 87, 3000})
*/
package sparsevol
