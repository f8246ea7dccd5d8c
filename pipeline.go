package mtschem

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/mtschem/preview"
	"github.com/hashicorp/go-multierror"
)

const extension = ".mts"

func isSchematic(name string) bool {
	return strings.EqualFold(filepath.Ext(name), extension)
}

func (l *Library) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				// Things like sqlite journals come and go while walking
				if file != base && errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}

			// Ignore any hidden files or directories, this also skips our own temporary files
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() || !isSchematic(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (l *Library) indexFile(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha1.New()
	r := io.TeeReader(f, h)

	s, err := l.decoder(file).Decode(r)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	// Hash anything after the compressed block too
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}

	counts := make(map[string]int, len(s.Palette))
	for _, n := range s.Nodes {
		if int(n.ID) < len(s.Palette) {
			counts[s.Palette[n.ID]]++
		}
	}

	var png []byte
	if m := preview.Render(s, nil); !m.Bounds().Empty() {
		b := new(bytes.Buffer)
		if err := preview.Encode(b, m); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		png = b.Bytes()
	}

	e := Entry{
		Path:    file,
		SHA1:    fmt.Sprintf("%X", h.Sum(nil)),
		Version: s.Version,
		SizeX:   s.Size[0],
		SizeY:   s.Size[1],
		SizeZ:   s.Size[2],
		Nodes:   len(s.Palette),
	}

	return l.db.add(e, counts, png)
}

func (l *Library) fileWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		var result *multierror.Error
		for file := range in {
			if err := l.indexFile(file); err != nil {
				l.logger.Printf("Unable to index \"%s\": %v\n", file, err)
				result = multierror.Append(result, err)

				// Don't leave a stale entry behind
				if err := l.db.remove(file); err != nil {
					result = multierror.Append(result, err)
				}
				continue
			}
			l.logger.Printf("Indexed \"%s\"\n", file)
		}
		errc <- result.ErrorOrNil()
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	var result *multierror.Error
	for err := range mergeErrors(errs...) {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan indexes every schematic found under path. Files that can't be read
// don't stop the scan, their errors are collected and returned together
// once everything else has been indexed.
func (l *Library) Scan(path string) error {
	if l.db == nil {
		return errors.New("mtschem: no index database")
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := l.findFiles(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	workers := l.Workers
	if workers < 1 {
		workers = defaultWorkers
	}

	for i := 0; i < workers; i++ {
		errc, err := l.fileWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
