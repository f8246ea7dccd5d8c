package schematic

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

// ErrEncoding is returned when a schematic can't be represented in the file
// format.
var ErrEncoding = errors.New("schematic: cannot encode")

// Encoder writes schematics.
type Encoder struct {
	// Level is the zlib compression level, from -1 for the default
	// through 0 for none to 9 for the smallest output.
	Level int
	// Packing is used to combine the force flag and probability.
	Packing Packing
}

type encoder struct {
	w       *bufio.Writer
	level   int
	packing Packing
	tmp     [6]byte
}

func validate(s *Schematic) error {
	for i, n := range s.Size {
		if n < 0 || n > maxUint16 {
			return fmt.Errorf("%w: size %v out of range on axis %d", ErrEncoding, s.Size, i)
		}
	}
	if len(s.Nodes) != s.Volume() {
		return fmt.Errorf("%w: %d nodes for size %v", ErrEncoding, len(s.Nodes), s.Size)
	}
	return nil
}

func validatePalette(palette []string) error {
	if len(palette) > maxUint16 {
		return fmt.Errorf("%w: %d palette entries", ErrEncoding, len(palette))
	}
	for _, name := range palette {
		if len(name) > maxUint16 {
			return fmt.Errorf("%w: node name of %d bytes", ErrEncoding, len(name))
		}
		if !utf8.ValidString(name) {
			return fmt.Errorf("%w: node name %q is not valid UTF-8", ErrEncoding, name)
		}
	}
	return nil
}

// layerProbs returns p padded with zeroes or truncated to n entries.
func layerProbs(p []uint8, n int) []uint8 {
	if len(p) >= n {
		return p[:n]
	}
	out := make([]uint8, n)
	copy(out, p)
	return out
}

func (e *encoder) writeUint16(v uint16) error {
	binary.BigEndian.PutUint16(e.tmp[:2], v)
	_, err := e.w.Write(e.tmp[:2])
	return err
}

func (e *encoder) writeHeader(s *Schematic) error {
	if _, err := e.w.Write(signature[:]); err != nil {
		return err
	}
	if err := e.writeUint16(s.Version); err != nil {
		return err
	}

	for i, n := range s.Size {
		binary.BigEndian.PutUint16(e.tmp[i<<1:], uint16(n))
	}
	if _, err := e.w.Write(e.tmp[:6]); err != nil {
		return err
	}

	_, err := e.w.Write(layerProbs(s.LayerProbs, s.Size[1]))
	return err
}

func (e *encoder) writePalette(palette []string) error {
	if err := e.writeUint16(uint16(len(palette))); err != nil {
		return err
	}
	for _, name := range palette {
		if err := e.writeUint16(uint16(len(name))); err != nil {
			return err
		}
		if _, err := e.w.WriteString(name); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeNodes(s *Schematic) error {
	sh := shape(s.Size)
	b := make([]byte, sh.volume()*bytesPerNode)
	sh.toDiskOrder(s.Nodes, b, e.packing)

	zw, err := zlib.NewWriterLevel(e.w, e.level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if _, err := zw.Write(b); err != nil {
		return err
	}
	return zw.Close()
}

func (e *encoder) encode(s *Schematic) error {
	if err := validate(s); err != nil {
		return err
	}
	if e.level < zlib.DefaultCompression || e.level > zlib.BestCompression {
		return fmt.Errorf("%w: compression level %d", ErrEncoding, e.level)
	}

	if _, err := s.Compact(); err != nil {
		return err
	}
	if err := validatePalette(s.Palette); err != nil {
		return err
	}

	if err := e.writeHeader(s); err != nil {
		return err
	}
	if err := e.writePalette(s.Palette); err != nil {
		return err
	}
	if err := e.writeNodes(s); err != nil {
		return err
	}

	return e.w.Flush()
}

// Encode writes s to w. The palette of s is compacted first, see
// Schematic.Compact.
func (enc *Encoder) Encode(w io.Writer, s *Schematic) error {
	e := encoder{
		w:       bufio.NewWriter(w),
		level:   enc.Level,
		packing: enc.Packing,
	}
	return e.encode(s)
}

// Encode writes s to w using the ForceHighBit packing and the given zlib
// compression level.
func Encode(w io.Writer, s *Schematic, level int) error {
	enc := Encoder{Level: level}
	return enc.Encode(w, s)
}
