package schematic

// Node is a single cell of a schematic.
type Node struct {
	// ID is an index into the palette of the owning schematic.
	ID uint16
	// Prob is the chance the node is placed, 0-127.
	Prob uint8
	// Force replaces whatever is already in the world when placed.
	Force  bool
	Param2 uint8
}

// Schematic is a decoded schematic. The fields may be changed freely, they
// are only checked when the schematic is encoded.
type Schematic struct {
	Version uint16
	// Size is the number of nodes along the X, Y and Z axes.
	Size [3]int
	// LayerProbs holds the probability of each Y slice being placed. It
	// is padded with zeroes or truncated to Size[1] when encoded.
	LayerProbs []uint8
	// Palette holds the node names referenced by Node.ID.
	Palette []string
	// Nodes is ordered X, then Y, then Z varying fastest; see Index.
	Nodes []Node
}

// Box is a half-open range of node positions, Min inclusive and Max
// exclusive on each axis.
type Box struct {
	Min, Max [3]int
}

// New returns a schematic of the given size filled with node 0, which is
// "air", with every layer probability set to 0.
func New(x, y, z int) *Schematic {
	sh := shape{x, y, z}
	return &Schematic{
		Version:    CurrentVersion,
		Size:       sh,
		LayerProbs: make([]uint8, y),
		Palette:    []string{"air"},
		Nodes:      make([]Node, sh.volume()),
	}
}

// Volume returns the number of nodes in the schematic.
func (s *Schematic) Volume() int {
	return shape(s.Size).volume()
}

// Index returns the offset of the node at (x, y, z) in s.Nodes.
func (s *Schematic) Index(x, y, z int) int {
	return shape(s.Size).index(x, y, z)
}

// InBounds reports whether (x, y, z) is inside the schematic.
func (s *Schematic) InBounds(x, y, z int) bool {
	return x >= 0 && x < s.Size[0] && y >= 0 && y < s.Size[1] && z >= 0 && z < s.Size[2]
}

// At returns the node at (x, y, z). It panics if the position is out of
// bounds.
func (s *Schematic) At(x, y, z int) Node {
	return s.Nodes[s.Index(x, y, z)]
}

// Set replaces the node at (x, y, z). It panics if the position is out of
// bounds.
func (s *Schematic) Set(x, y, z int, n Node) {
	s.Nodes[s.Index(x, y, z)] = n
}

// NodeName returns the palette entry for id, or "" if there is none.
func (s *Schematic) NodeName(id uint16) string {
	if int(id) >= len(s.Palette) {
		return ""
	}
	return s.Palette[id]
}

// Lookup returns the first palette index holding name.
func (s *Schematic) Lookup(name string) (uint16, bool) {
	for i, n := range s.Palette {
		if n == name {
			return uint16(i), true
		}
	}
	return 0, false
}

// AddNode returns the palette index for name, appending it to the palette
// if it isn't already present.
func (s *Schematic) AddNode(name string) uint16 {
	if id, ok := s.Lookup(name); ok {
		return id
	}
	s.Palette = append(s.Palette, name)
	return uint16(len(s.Palette) - 1)
}

// Resize changes the size of the schematic. Nodes inside both the old and
// new bounds are kept, new nodes are zeroed. LayerProbs is left alone.
func (s *Schematic) Resize(x, y, z int) {
	old, sh := shape(s.Size), shape{x, y, z}
	nodes := make([]Node, sh.volume())
	for i := 0; i < min(old[0], sh[0]); i++ {
		for j := 0; j < min(old[1], sh[1]); j++ {
			// Z is contiguous in both
			n := min(old[2], sh[2])
			copy(nodes[sh.index(i, j, 0):][:n], s.Nodes[old.index(i, j, 0):][:n])
		}
	}
	s.Size = sh
	s.Nodes = nodes
}

// Extract returns an independent copy of the nodes within b, clipped to the
// bounds of s. The palette is copied as-is and the layer probabilities
// follow the Y range.
func (s *Schematic) Extract(b Box) *Schematic {
	var lo, sz [3]int
	for i := range sz {
		lo[i] = max(b.Min[i], 0)
		hi := min(b.Max[i], s.Size[i])
		sz[i] = max(hi-lo[i], 0)
	}

	sub := &Schematic{
		Version:    s.Version,
		Size:       sz,
		LayerProbs: make([]uint8, sz[1]),
		Palette:    append([]string(nil), s.Palette...),
		Nodes:      make([]Node, shape(sz).volume()),
	}

	if lo[1] < len(s.LayerProbs) {
		copy(sub.LayerProbs, s.LayerProbs[lo[1]:])
	}

	if len(sub.Nodes) == 0 {
		return sub
	}

	for x := 0; x < sz[0]; x++ {
		for y := 0; y < sz[1]; y++ {
			copy(sub.Nodes[sub.Index(x, y, 0):][:sz[2]], s.Nodes[s.Index(lo[0]+x, lo[1]+y, lo[2]):][:sz[2]])
		}
	}

	return sub
}
