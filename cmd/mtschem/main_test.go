package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bodgit/mtschem/schematic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVector(t *testing.T) {
	v, err := parseVector("1,-2, 3")
	require.NoError(t, err)
	assert.Equal(t, [3]int{1, -2, 3}, v)

	for _, s := range []string{"", "1,2", "1,2,3,4", "a,b,c"} {
		_, err := parseVector(s)
		assert.Error(t, err, s)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, defaults(dir), cfg)
	assert.Equal(t, schematic.DefaultLevel, cfg.Level)
	assert.Equal(t, schematic.ForceHighBit, cfg.packing())

	file := filepath.Join(dir, "mtschem.yaml")
	require.NoError(t, os.WriteFile(file, []byte("db: index/schematics.db\nlevel: 0\npacking: low\n"), 0o644))

	cfg, err = loadConfig(file, "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index", "schematics.db"), cfg.DB)
	assert.Equal(t, 0, cfg.Level)
	assert.Equal(t, schematic.ForceLowBit, cfg.packing())
	assert.Equal(t, defaultWorkers, cfg.Workers)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadConfig(filepath.Join(dir, "missing.yaml"), dir)
	assert.Error(t, err)

	tables := map[string]string{
		"syntax":  "level: [",
		"level":   "level: 10",
		"packing": "packing: sideways",
		"workers": "workers: 0",
		"db":      "db: \"\"",
	}

	for name, body := range tables {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(file, []byte(body), 0o644))

			_, err := loadConfig(file, dir)
			assert.Error(t, err)
		})
	}
}

func TestApp(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(t.TempDir(), "index.db")
	in := filepath.Join(dir, "tree.mts")
	out := filepath.Join(dir, "trunk.mts")

	s := schematic.New(3, 4, 3)
	s.Palette = []string{"air", "default:tree", "default:leaves", "unused"}
	for y := 0; y < 4; y++ {
		s.Set(1, y, 1, schematic.Node{ID: 1, Prob: 127})
	}
	s.Set(0, 3, 1, schematic.Node{ID: 2, Prob: 127})

	b := new(bytes.Buffer)
	require.NoError(t, schematic.Encode(b, s, schematic.DefaultLevel))
	require.NoError(t, os.WriteFile(in, b.Bytes(), 0o644))

	run := func(args ...string) string {
		t.Helper()

		w := new(bytes.Buffer)
		app := newApp()
		app.Writer = w
		require.NoError(t, app.Run(append([]string{"mtschem", "--db", db}, args...)))
		return w.String()
	}

	got := run("info", "--palette", in)
	assert.Contains(t, got, "3 x 4 x 3 (36 nodes)")
	assert.Contains(t, got, "default:leaves")

	run("extract", "--min", "1,0,1", "--max", "2,4,2", in, out)
	run("compact", "--level", "1", in, out)
	run("preview", "--scale", "2", in, filepath.Join(dir, "tree.png"))
	run("scan", dir)

	got = run("find", "default:tree")
	assert.Equal(t, 2, strings.Count(got, "\n"), got)

	got = run("list", "--csv")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "path,sha1,version,size_x,size_y,size_z,nodes", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], in+","), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",4,1,4,1,1"), lines[2])

	_, err := os.Stat(filepath.Join(dir, "tree.png"))
	assert.NoError(t, err)
}
