package mtschem

import (
	"bytes"
	"encoding/binary"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodgit/mtschem/schematic"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

func testLibrary(t *testing.T) (*Library, *bytes.Buffer) {
	t.Helper()

	db, err := NewIndexDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b := new(bytes.Buffer)
	return New(db, log.New(b, "", 0)), b
}

// house is a small schematic with a couple of unused palette entries.
func house() *schematic.Schematic {
	s := schematic.New(3, 3, 3)
	s.Palette = []string{"air", "default:wood", "default:glass", "air", "default:mese"}
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			s.Set(x, 0, z, schematic.Node{ID: 1, Prob: 127})
			s.Set(x, 2, z, schematic.Node{ID: 1, Prob: 127, Force: true})
		}
	}
	s.Set(1, 1, 0, schematic.Node{ID: 2, Prob: 127})
	s.Set(1, 1, 1, schematic.Node{ID: 3, Prob: 0})
	for i := range s.LayerProbs {
		s.LayerProbs[i] = 127
	}
	return s
}

func writeSchematic(t *testing.T, file string, s *schematic.Schematic) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))

	b := new(bytes.Buffer)
	require.NoError(t, schematic.Encode(b, s, schematic.DefaultLevel))
	require.NoError(t, os.WriteFile(file, b.Bytes(), 0o644))
}

// writeSchematicRaw writes s exactly as it is, without compacting the
// palette first.
func writeSchematicRaw(t *testing.T, file string, s *schematic.Schematic) {
	t.Helper()

	b := new(bytes.Buffer)
	b.WriteString("MTSM")
	binary.Write(b, binary.BigEndian, s.Version)
	for _, n := range s.Size {
		binary.Write(b, binary.BigEndian, uint16(n))
	}
	b.Write(s.LayerProbs)
	binary.Write(b, binary.BigEndian, uint16(len(s.Palette)))
	for _, name := range s.Palette {
		binary.Write(b, binary.BigEndian, uint16(len(name)))
		b.WriteString(name)
	}

	var ids, flags, param2 []byte
	for z := 0; z < s.Size[2]; z++ {
		for y := 0; y < s.Size[1]; y++ {
			for x := 0; x < s.Size[0]; x++ {
				n := s.At(x, y, z)
				ids = binary.BigEndian.AppendUint16(ids, n.ID)
				flags = append(flags, schematic.ForceHighBit.Pack(n.Prob, n.Force))
				param2 = append(param2, n.Param2)
			}
		}
	}

	zw := zlib.NewWriter(b)
	for _, plane := range [][]byte{ids, flags, param2} {
		_, err := zw.Write(plane)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	require.NoError(t, os.WriteFile(file, b.Bytes(), 0o644))
}

func readSchematic(t *testing.T, file string) *schematic.Schematic {
	t.Helper()

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	dec := schematic.Decoder{}
	s, err := dec.Decode(f)
	require.NoError(t, err)

	return s
}
