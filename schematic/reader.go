package schematic

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/klauspost/compress/zlib"
)

var (
	// ErrSignature is passed to Decoder.Warn when the file doesn't start
	// with "MTSM". It never stops decoding.
	ErrSignature = errors.New("schematic: signature not recognised")
	// ErrTruncated is returned when the header or palette is short.
	ErrTruncated = errors.New("schematic: not enough data")
	// ErrDecompress is returned when the node data can't be inflated.
	ErrDecompress = errors.New("schematic: bad compressed data")
	// ErrSizeMismatch is returned when the inflated node data doesn't
	// match the size declared in the header.
	ErrSizeMismatch = errors.New("schematic: node data is wrong size")
	// ErrOverflow is returned when the declared size can't be held in
	// memory on this platform.
	ErrOverflow = errors.New("schematic: size too large")
)

// IsFormatError reports whether err means the input isn't a valid
// schematic.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrDecompress) ||
		errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrOverflow)
}

// Config is the header of a schematic, everything but the nodes.
type Config struct {
	Version    uint16
	Size       [3]int
	LayerProbs []uint8
	Palette    []string
}

// Decoder reads schematics.
type Decoder struct {
	// Packing is used to split the force flag and probability.
	Packing Packing
	// Warn, if set, is called with problems that don't stop decoding.
	Warn func(error)
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

type decoder struct {
	r       io.Reader
	packing Packing
	warn    func(error)
	c       Config
	tmp     [6]byte
}

func (d *decoder) readUint16() (uint16, error) {
	if err := readFull(d.r, d.tmp[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.tmp[:2]), nil
}

func (d *decoder) readHeader() error {
	if err := readFull(d.r, d.tmp[:4]); err != nil {
		return err
	}
	if [4]byte(d.tmp[:4]) != signature {
		d.warn(fmt.Errorf("%w: got %q", ErrSignature, d.tmp[:4]))
	}

	var err error
	if d.c.Version, err = d.readUint16(); err != nil {
		return err
	}

	if err := readFull(d.r, d.tmp[:6]); err != nil {
		return err
	}
	for i := range d.c.Size {
		d.c.Size[i] = int(binary.BigEndian.Uint16(d.tmp[i<<1:]))
	}

	d.c.LayerProbs = make([]uint8, d.c.Size[1])
	return readFull(d.r, d.c.LayerProbs)
}

func (d *decoder) readPalette() error {
	count, err := d.readUint16()
	if err != nil {
		return err
	}

	d.c.Palette = make([]string, count)
	for i := range d.c.Palette {
		length, err := d.readUint16()
		if err != nil {
			return err
		}
		name := make([]byte, length)
		if err := readFull(d.r, name); err != nil {
			return err
		}
		d.c.Palette[i] = string(name)
	}
	return nil
}

func (d *decoder) decode(r io.Reader, configOnly bool) (*Schematic, error) {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	d.r = r

	if err := d.readHeader(); err != nil {
		return nil, err
	}
	if err := d.readPalette(); err != nil {
		return nil, err
	}

	if configOnly {
		return nil, nil
	}

	sh := shape(d.c.Size)
	// Each dimension is at most 16 bits so this only trips where int is
	// 32 bits wide
	if v := uint64(d.c.Size[0]) * uint64(d.c.Size[1]) * uint64(d.c.Size[2]); v > math.MaxInt/bytesPerNode {
		return nil, fmt.Errorf("%w: %d nodes", ErrOverflow, v)
	}
	want := sh.volume() * bytesPerNode

	zr, err := zlib.NewReader(d.r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer zr.Close()

	// Read one byte more than expected to catch oversized data without
	// inflating all of it
	b, err := io.ReadAll(io.LimitReader(zr, int64(want)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	if len(b) != want {
		return nil, fmt.Errorf("%w: expected %d bytes", ErrSizeMismatch, want)
	}

	s := &Schematic{
		Version:    d.c.Version,
		Size:       d.c.Size,
		LayerProbs: d.c.LayerProbs,
		Palette:    d.c.Palette,
		Nodes:      make([]Node, sh.volume()),
	}
	sh.fromDiskOrder(b, s.Nodes, d.packing)

	return s, nil
}

// Decode reads a schematic from r.
func (dec *Decoder) Decode(r io.Reader) (*Schematic, error) {
	d := dec.newDecoder()
	return d.decode(r, false)
}

// DecodeConfig reads the header and palette of a schematic from r without
// inflating the nodes.
func (dec *Decoder) DecodeConfig(r io.Reader) (Config, error) {
	d := dec.newDecoder()
	if _, err := d.decode(r, true); err != nil {
		return Config{}, err
	}
	return d.c, nil
}

func (dec *Decoder) newDecoder() *decoder {
	warn := dec.Warn
	if warn == nil {
		warn = func(error) {}
	}
	return &decoder{packing: dec.Packing, warn: warn}
}

func logWarning(err error) {
	log.Println(err)
}

// Decode reads a schematic from r using the ForceHighBit packing.
// Warnings are written to the standard logger.
func Decode(r io.Reader) (*Schematic, error) {
	dec := Decoder{Warn: logWarning}
	return dec.Decode(r)
}

// DecodeConfig returns the header and palette of a schematic without
// decoding the nodes.
func DecodeConfig(r io.Reader) (Config, error) {
	dec := Decoder{Warn: logWarning}
	return dec.DecodeConfig(r)
}
