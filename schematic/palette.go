package schematic

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// Compact removes palette entries that no node uses and merges entries
// with the same name, rewriting every node to match. Surviving names keep
// the order of their lowest original index.
//
// The returned slice maps each original palette index to its new index,
// or -1 if the entry was dropped. If any node refers past the end of the
// palette an error is returned and s is left unchanged.
func (s *Schematic) Compact() ([]int, error) {
	used := bitmap.New(len(s.Palette))
	for i, n := range s.Nodes {
		if int(n.ID) >= len(s.Palette) {
			return nil, fmt.Errorf("%w: node %d refers to id %d, palette has %d entries", ErrEncoding, i, n.ID, len(s.Palette))
		}
		used.Set(int(n.ID), true)
	}

	remap := make([]int, len(s.Palette))
	palette := make([]string, 0, len(s.Palette))
	seen := make(map[string]int, len(s.Palette))
	identity := true

	for old, name := range s.Palette {
		if !used.Get(old) {
			remap[old] = -1
			continue
		}
		id, ok := seen[name]
		if !ok {
			id = len(palette)
			seen[name] = id
			palette = append(palette, name)
		}
		remap[old] = id
		if id != old {
			identity = false
		}
	}

	s.Palette = palette

	if !identity {
		for i := range s.Nodes {
			s.Nodes[i].ID = uint16(remap[s.Nodes[i].ID])
		}
	}

	return remap, nil
}
