/*
	Package format defines the on-disk layout of a sparse voxel container: the
	fixed-size header, the voxel and block type enumerations it records, and the
	block directory.  All multi-byte fields are little-endian.

	A finalized file holds the header, the compressed block payloads, and the
	directory.  The header records where the directory starts, so readers never
	assume its position and can skip any payload they do not understand.
*/
package format
