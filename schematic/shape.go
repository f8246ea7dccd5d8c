package schematic

import "encoding/binary"

// shape is the X, Y, Z size of a schematic. Both the decoder and encoder go
// through it so the two axis orders are only defined here.
type shape [3]int

func (s shape) volume() int {
	return s[0] * s[1] * s[2]
}

// index returns the offset of (x, y, z) in memory order, Z varying fastest.
func (s shape) index(x, y, z int) int {
	return (x*s[1]+y)*s[2] + z
}

// fromDiskOrder fills nodes, in memory order, from the three planes in b
// which are in disk order, X varying fastest.
func (s shape) fromDiskOrder(b []byte, nodes []Node, p Packing) {
	v := s.volume()
	ids, flags, param2 := b[:2*v], b[2*v:3*v], b[3*v:4*v]

	d := 0
	for z := 0; z < s[2]; z++ {
		for y := 0; y < s[1]; y++ {
			for x := 0; x < s[0]; x++ {
				n := &nodes[s.index(x, y, z)]
				n.ID = binary.BigEndian.Uint16(ids[d<<1:])
				n.Prob, n.Force = p.Unpack(flags[d])
				n.Param2 = param2[d]
				d++
			}
		}
	}
}

// toDiskOrder is the inverse of fromDiskOrder, writing nodes into the three
// planes of b.
func (s shape) toDiskOrder(nodes []Node, b []byte, p Packing) {
	v := s.volume()
	ids, flags, param2 := b[:2*v], b[2*v:3*v], b[3*v:4*v]

	d := 0
	for z := 0; z < s[2]; z++ {
		for y := 0; y < s[1]; y++ {
			for x := 0; x < s[0]; x++ {
				n := nodes[s.index(x, y, z)]
				binary.BigEndian.PutUint16(ids[d<<1:], n.ID)
				flags[d] = p.Pack(n.Prob, n.Force)
				param2[d] = n.Param2
				d++
			}
		}
	}
}
