/*
	Package storage reads and writes sparse voxel containers.  A File is opened
	either on a finalized container, where any block can be fetched with one
	ranged read, or on a new target, where blocks are compressed and appended
	and the directory is written by Finalize.

	The directory follows the payload, so the size of the payload need not be
	known up front.  The header is patched last with its offset and count; a
	file whose header still has no directory offset was never finalized.

	Containers can live on local disk (OpenPath, CreatePath), in a memory mapping
	(OpenMmap), on any billy filesystem (OpenBilly, CreateBilly), or in a cloud
	bucket (OpenBlob, CreateBlob).  Any io.ReaderAt or io.WriteSeeker with a
	Close method can be used through Open and Create.
*/
package storage
