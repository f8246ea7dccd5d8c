package schematic

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawFile struct {
	signature  string
	version    uint16
	size       [3]uint16
	layerProbs []byte
	palette    []string
	nodes      []byte // uncompressed planes
}

func (f rawFile) header() []byte {
	b := new(bytes.Buffer)
	b.WriteString(f.signature)
	binary.Write(b, binary.BigEndian, f.version)
	binary.Write(b, binary.BigEndian, f.size)
	b.Write(f.layerProbs)
	binary.Write(b, binary.BigEndian, uint16(len(f.palette)))
	for _, name := range f.palette {
		binary.Write(b, binary.BigEndian, uint16(len(name)))
		b.WriteString(name)
	}
	return b.Bytes()
}

func (f rawFile) bytes(t *testing.T) []byte {
	b := bytes.NewBuffer(f.header())
	zw := zlib.NewWriter(b)
	_, err := zw.Write(f.nodes)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

// sentinelFile is a 2x3x4 schematic where the node ID, flags and param2 of
// each node are its offset in disk order.
func sentinelFile() rawFile {
	const volume = 2 * 3 * 4
	nodes := make([]byte, volume*bytesPerNode)
	for d := 0; d < volume; d++ {
		binary.BigEndian.PutUint16(nodes[d*2:], uint16(d))
		nodes[2*volume+d] = byte(d)
		nodes[3*volume+d] = byte(d + 100)
	}
	palette := make([]string, volume)
	for i := range palette {
		palette[i] = string(rune('A' + i))
	}
	return rawFile{
		signature:  "MTSM",
		version:    4,
		size:       [3]uint16{2, 3, 4},
		layerProbs: []byte{127, 64, 0},
		palette:    palette,
		nodes:      nodes,
	}
}

func TestDecodeTranspose(t *testing.T) {
	f := sentinelFile()

	s, err := Decode(bytes.NewReader(f.bytes(t)))
	require.NoError(t, err)

	assert.Equal(t, uint16(4), s.Version)
	assert.Equal(t, [3]int{2, 3, 4}, s.Size)
	assert.Equal(t, []uint8{127, 64, 0}, s.LayerProbs)
	assert.Equal(t, f.palette, s.Palette)

	for x := 0; x < 2; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 4; z++ {
				d := (z*3+y)*2 + x
				n := s.At(x, y, z)
				assert.Equal(t, uint16(d), n.ID, "(%d, %d, %d)", x, y, z)
				assert.Equal(t, uint8(d), n.Prob, "(%d, %d, %d)", x, y, z)
				assert.False(t, n.Force)
				assert.Equal(t, uint8(d+100), n.Param2, "(%d, %d, %d)", x, y, z)
			}
		}
	}
}

func TestDecodePacking(t *testing.T) {
	f := rawFile{
		signature:  "MTSM",
		version:    4,
		size:       [3]uint16{2, 1, 1},
		layerProbs: []byte{127},
		palette:    []string{"air"},
		nodes:      []byte{0, 0, 0, 0, 200, 5, 0, 0},
	}

	s, err := Decode(bytes.NewReader(f.bytes(t)))
	require.NoError(t, err)
	assert.Equal(t, Node{Prob: 72, Force: true}, s.At(0, 0, 0))
	assert.Equal(t, Node{Prob: 5}, s.At(1, 0, 0))

	dec := Decoder{Packing: ForceLowBit}
	s, err = dec.Decode(bytes.NewReader(f.bytes(t)))
	require.NoError(t, err)
	assert.Equal(t, Node{Prob: 100}, s.At(0, 0, 0))
	assert.Equal(t, Node{Prob: 2, Force: true}, s.At(1, 0, 0))
}

func TestDecodeSignature(t *testing.T) {
	f := sentinelFile()
	f.signature = "MTSX"

	var warnings []error
	dec := Decoder{Warn: func(err error) { warnings = append(warnings, err) }}

	s, err := dec.Decode(bytes.NewReader(f.bytes(t)))
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 3, 4}, s.Size)

	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], ErrSignature))

	// A zero Decoder drops the warning
	var quiet Decoder
	_, err = quiet.Decode(bytes.NewReader(f.bytes(t)))
	assert.NoError(t, err)
}

func TestDecodeTruncated(t *testing.T) {
	f := sentinelFile()
	header := f.header()

	for i := 0; i < len(header); i++ {
		_, err := Decode(bytes.NewReader(header[:i]))
		if !assert.Error(t, err, "%d bytes", i) {
			continue
		}
		assert.True(t, errors.Is(err, ErrTruncated), "%d bytes: %v", i, err)
		assert.True(t, IsFormatError(err))
	}
}

func TestDecodeBadCompression(t *testing.T) {
	f := sentinelFile()
	good := f.bytes(t)
	headerLen := len(f.header())

	tables := []struct {
		name string
		data []byte
	}{
		{"missing", good[:headerLen]},
		{"garbage", append(f.header(), 0xde, 0xad, 0xbe, 0xef, 0x00, 0x01)},
		{"cut short", good[:headerLen+(len(good)-headerLen)/2]},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(table.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecompress), err.Error())
			assert.True(t, IsFormatError(err))
		})
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	for _, delta := range []int{-1, 1, 100} {
		f := sentinelFile()
		if delta < 0 {
			f.nodes = f.nodes[:len(f.nodes)+delta]
		} else {
			f.nodes = append(f.nodes, make([]byte, delta)...)
		}

		_, err := Decode(bytes.NewReader(f.bytes(t)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSizeMismatch), err.Error())
		assert.True(t, IsFormatError(err))
	}
}

func TestDecodeEmpty(t *testing.T) {
	f := rawFile{
		signature: "MTSM",
		version:   3,
		size:      [3]uint16{0, 0, 5},
	}

	s, err := Decode(bytes.NewReader(f.bytes(t)))
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 0, 5}, s.Size)
	assert.Empty(t, s.Nodes)
	assert.Empty(t, s.Palette)
	assert.Empty(t, s.LayerProbs)
}

func TestDecodeConfig(t *testing.T) {
	f := sentinelFile()
	// The node data isn't read so it doesn't have to be valid
	b := append(f.header(), 0xff, 0xff)

	c, err := DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, uint16(4), c.Version)
	assert.Equal(t, [3]int{2, 3, 4}, c.Size)
	assert.Equal(t, []uint8{127, 64, 0}, c.LayerProbs)
	assert.Equal(t, f.palette, c.Palette)

	_, err = DecodeConfig(bytes.NewReader(b[:10]))
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestUnmarshalBinary(t *testing.T) {
	f := sentinelFile()

	var s Schematic
	require.NoError(t, s.UnmarshalBinary(f.bytes(t)))
	assert.Equal(t, [3]int{2, 3, 4}, s.Size)
	assert.Equal(t, uint16(23), s.At(1, 2, 3).ID)

	assert.Error(t, s.UnmarshalBinary([]byte("MTSM")))
}
