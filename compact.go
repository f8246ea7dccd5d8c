package mtschem

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bodgit/mtschem/schematic"
)

func (l *Library) readFile(file string) (*schematic.Schematic, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := l.decoder(file).Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return s, nil
}

// writeFile encodes s into a temporary file alongside file and then renames
// it into place, so file is never left half written.
func (l *Library) writeFile(file string, s *schematic.Schematic, level int) (err error) {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(file); err == nil {
		mode = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	w := bufio.NewWriter(f)
	enc := schematic.Encoder{Level: level, Packing: l.Packing}
	if err = enc.Encode(w, s); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Chmod(mode); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), file)
}

// Compact rewrites file with a compacted palette and returns how many
// palette entries were removed.
func (l *Library) Compact(file string, level int) (int, error) {
	s, err := l.readFile(file)
	if err != nil {
		return 0, err
	}

	before := len(s.Palette)
	if err := l.writeFile(file, s, level); err != nil {
		return 0, err
	}
	removed := before - len(s.Palette)

	l.logger.Printf("Compacted \"%s\", removed %d of %d palette entries\n", file, removed, before)

	return removed, nil
}

// Extract writes the part of in that lies within box to out.
func (l *Library) Extract(in, out string, box schematic.Box, level int) error {
	s, err := l.readFile(in)
	if err != nil {
		return err
	}

	sub := s.Extract(box)
	l.logger.Printf("Extracted %v from \"%s\" to \"%s\"\n", sub.Size, in, out)

	return l.writeFile(out, sub, level)
}
