/*
	Package dvid provides types, constants, and functions that have no other dependencies
	and can be used by all packages of the sparse voxel container.  This includes integer
	and world-space geometry (points, boxes, affine transforms), the error taxonomy, and
	leveled logging.
*/
package dvid
