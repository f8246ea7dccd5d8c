/*
Package schematic implements a Minetest schematic (.mts) decoder and encoder.

A schematic is a box of nodes, each with a palette index, a placement
probability, a force flag and an opaque param2 byte. Every horizontal slice
also carries its own probability of being placed.

The file is written big-endian as a 4 byte "MTSM" signature, a 16-bit
version, three 16-bit dimensions (X, Y, Z), one probability byte per Y slice,
a 16-bit palette length followed by that many length-prefixed node names and
finally a zlib stream. The stream inflates to three planes of X*Y*Z entries:
16-bit palette indices, one byte each of packed force flag and probability,
and one byte each of param2. The planes are ordered Z, then Y, then X
varying fastest, which is the reverse of the X, Y, Z order used in memory.
*/
package schematic

const (
	// CurrentVersion is the version written by New.
	CurrentVersion = 4

	// DefaultLevel is the compression level used by MarshalBinary.
	DefaultLevel = 9

	maxUint16 = 1<<16 - 1

	// 2 bytes of node id, 1 of packed prob and force, 1 of param2
	bytesPerNode = 4
)

var signature = [4]byte{'M', 'T', 'S', 'M'}
