/*
Package preview renders a top-down picture of a schematic.

Each column of the schematic becomes one pixel (or a Scale by Scale square),
coloured by the topmost node that would be placed. Colours are derived from
the node name so the same node always looks the same across schematics, and
are darkened the lower the node sits. North (+Z) is at the top.
*/
package preview

import (
	"errors"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/bodgit/mtschem/schematic"
	"github.com/ericpauley/go-quantize/quantize"
)

const maxColors = 256

// DefaultIgnore lists the node names that are treated as empty.
var DefaultIgnore = []string{"air", "ignore"}

// Options controls how a schematic is rendered.
type Options struct {
	// Scale is the width and height in pixels of each column, at least 1.
	Scale int
	// Ignore lists node names to see through, DefaultIgnore if nil.
	Ignore []string
}

func nodeColor(name string, y, height int) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()

	// Scale from half brightness at the bottom to full at the top
	shade := func(c uint32) uint8 {
		c &= 0xff
		return uint8(c/2 + c*uint32(y+1)/uint32(2*height))
	}

	return color.RGBA{shade(sum >> 16), shade(sum >> 8), shade(sum), 0xff}
}

// Render draws s as seen from above.
func Render(s *schematic.Schematic, o *Options) *image.RGBA {
	scale, ignore := 1, DefaultIgnore
	if o != nil {
		if o.Scale > 1 {
			scale = o.Scale
		}
		if o.Ignore != nil {
			ignore = o.Ignore
		}
	}

	skip := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		skip[name] = struct{}{}
	}

	// Work out once which palette entries are visible
	visible := make([]bool, len(s.Palette))
	for i, name := range s.Palette {
		_, ok := skip[name]
		visible[i] = !ok
	}

	sx, sy, sz := s.Size[0], s.Size[1], s.Size[2]
	m := image.NewRGBA(image.Rect(0, 0, sx*scale, sz*scale))

	for x := 0; x < sx; x++ {
		for z := 0; z < sz; z++ {
			for y := sy - 1; y >= 0; y-- {
				n := s.At(x, y, z)
				if int(n.ID) >= len(visible) || !visible[n.ID] || n.Prob == 0 {
					continue
				}
				r := image.Rect(x*scale, (sz-1-z)*scale, (x+1)*scale, (sz-z)*scale)
				draw.Draw(m, r, &image.Uniform{nodeColor(s.Palette[n.ID], y, sy)}, image.Point{}, draw.Src)
				break
			}
		}
	}

	return m
}

// Encode writes m to w as a paletted PNG. Images with more than 256
// colours are reduced first.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Empty() {
		return errors.New("preview: image is empty")
	}

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		q := quantize.MedianCutQuantizer{}
		// Keep one slot free for empty columns
		p := q.Quantize(make(color.Palette, 0, maxColors-1), m)
		pm = image.NewPaletted(b, append(color.Palette{color.Transparent}, p...))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	return png.Encode(w, pm)
}
