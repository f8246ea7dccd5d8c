package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/bodgit/mtschem"
	"github.com/bodgit/mtschem/preview"
	"github.com/bodgit/mtschem/schematic"
	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

// parseVector parses "x,y,z".
func parseVector(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(s, ",")
	if len(parts) != len(v) {
		return v, fmt.Errorf("%q is not of the form x,y,z", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return v, fmt.Errorf("%q is not of the form x,y,z", s)
		}
		v[i] = n
	}
	return v, nil
}

// settings loads the configuration file and lets any flags given on the
// command line override it.
func settings(c *cli.Context) (config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config{}, err
	}

	cfg, err := loadConfig(c.String("config"), cwd)
	if err != nil {
		return cfg, err
	}

	if c.IsSet("db") {
		cfg.DB = c.String("db")
	}
	if c.IsSet("level") {
		cfg.Level = c.Int("level")
	}
	if c.IsSet("packing") {
		cfg.Packing = c.String("packing")
	}

	return cfg, cfg.validate()
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// newLibrary returns a library, opening the index database only if it
// will be needed.
func newLibrary(c *cli.Context, withDB bool) (*mtschem.Library, config, func(), error) {
	cfg, err := settings(c)
	if err != nil {
		return nil, cfg, nil, err
	}

	var db *mtschem.IndexDB
	closeFunc := func() {}
	if withDB {
		if db, err = mtschem.NewIndexDB(cfg.DB); err != nil {
			return nil, cfg, nil, err
		}
		closeFunc = func() { db.Close() }
	}

	l := mtschem.New(db, newLogger(c))
	l.Workers = cfg.Workers
	l.Packing = cfg.packing()

	return l, cfg, closeFunc, nil
}

func decodeFile(file string, packing schematic.Packing, logger *log.Logger) (*schematic.Schematic, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := schematic.Decoder{
		Packing: packing,
		Warn: func(err error) {
			logger.Printf("%s: %v\n", file, err)
		},
	}
	return dec.Decode(f)
}

func info(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	for _, file := range c.Args().Slice() {
		f, err := os.Open(file)
		if err != nil {
			return cli.Exit(err, 1)
		}

		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return cli.Exit(err, 1)
		}

		dec := schematic.Decoder{
			Warn: func(err error) {
				logger.Printf("%s: %v\n", file, err)
			},
		}
		cfg, err := dec.DecodeConfig(f)
		f.Close()
		if err != nil {
			return cli.Exit(fmt.Errorf("%s: %w", file, err), 1)
		}

		volume := uint64(cfg.Size[0]) * uint64(cfg.Size[1]) * uint64(cfg.Size[2])

		w := c.App.Writer
		fmt.Fprintf(w, "%s:\n", file)
		fmt.Fprintf(w, "  File size: %s\n", humanize.IBytes(uint64(fi.Size())))
		fmt.Fprintf(w, "  Version:   %d\n", cfg.Version)
		fmt.Fprintf(w, "  Size:      %d x %d x %d (%s nodes)\n", cfg.Size[0], cfg.Size[1], cfg.Size[2], humanize.Comma(int64(volume)))
		fmt.Fprintf(w, "  Palette:   %d entries\n", len(cfg.Palette))
		if c.Bool("palette") {
			for i, name := range cfg.Palette {
				fmt.Fprintf(w, "    %5d %s\n", i, name)
			}
		}
	}

	return nil
}

func compact(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	l, cfg, closeFunc, err := newLibrary(c, false)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closeFunc()

	var total int
	for _, file := range c.Args().Slice() {
		before, _ := os.Stat(file)

		removed, err := l.Compact(file, cfg.Level)
		if err != nil {
			return cli.Exit(err, 1)
		}
		total += removed

		if after, err := os.Stat(file); err == nil && before != nil {
			fmt.Fprintf(c.App.Writer, "%s: removed %d palette entries, %s -> %s\n", file, removed, humanize.IBytes(uint64(before.Size())), humanize.IBytes(uint64(after.Size())))
		}
	}

	if c.NArg() > 1 {
		fmt.Fprintf(c.App.Writer, "Removed %s palette entries from %d files\n", humanize.Comma(int64(total)), c.NArg())
	}

	return nil
}

func extract(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	lo, err := parseVector(c.String("min"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	hi, err := parseVector(c.String("max"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	l, cfg, closeFunc, err := newLibrary(c, false)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closeFunc()

	if err := l.Extract(c.Args().Get(0), c.Args().Get(1), schematic.Box{Min: lo, Max: hi}, cfg.Level); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func renderPreview(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := settings(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	s, err := decodeFile(c.Args().Get(0), cfg.packing(), newLogger(c))
	if err != nil {
		return cli.Exit(err, 1)
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := preview.Encode(w, preview.Render(s, &preview.Options{Scale: c.Int("scale")})); err != nil {
		return cli.Exit(err, 1)
	}
	if err := w.Flush(); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func scan(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	l, _, closeFunc, err := newLibrary(c, true)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closeFunc()

	if err := l.Scan(c.Args().First()); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func printEntries(c *cli.Context, entries []mtschem.Entry) error {
	if c.Bool("csv") {
		return gocsv.Marshal(entries, c.App.Writer)
	}
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%dx%dx%d\t%d nodes\n", e.Path, e.SizeX, e.SizeY, e.SizeZ, e.Nodes)
	}
	return nil
}

func find(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cfg, err := settings(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	db, err := mtschem.NewIndexDB(cfg.DB)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	entries, err := db.FindByNode(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := printEntries(c, entries); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func list(c *cli.Context) error {
	cfg, err := settings(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	db, err := mtschem.NewIndexDB(cfg.DB)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	entries, err := db.List()
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err := printEntries(c, entries); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "mtschem"
	app.Usage = "Minetest schematic management utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"MTSCHEM_DB"},
			Usage:   "path to index database (default: ./" + defaultDB + ")",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"MTSCHEM_CONFIG"},
			Usage:   "path to YAML configuration file",
		},
		&cli.StringFlag{
			Name:    "packing",
			EnvVars: []string{"MTSCHEM_PACKING"},
			Usage:   "probability and force flag packing, \"high\" or \"low\"",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	levelFlag := &cli.IntFlag{
		Name:    "level",
		Aliases: []string{"l"},
		Value:   schematic.DefaultLevel,
		Usage:   "zlib compression level, -1 to 9",
	}

	csvFlag := &cli.BoolFlag{
		Name:  "csv",
		Usage: "print as CSV",
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the header of one or more schematics",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "palette",
					Aliases: []string{"p"},
					Usage:   "list every palette entry",
				},
			},
			Action: info,
		},
		{
			Name:        "compact",
			Usage:       "Remove unused and duplicate palette entries",
			Description: "Each file is rewritten in place.",
			ArgsUsage:   "FILE...",
			Flags:       []cli.Flag{levelFlag},
			Action:      compact,
		},
		{
			Name:      "extract",
			Usage:     "Copy a region of a schematic to a new file",
			ArgsUsage: "IN OUT",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "min",
					Usage:    "inclusive corner, x,y,z",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "max",
					Usage:    "exclusive corner, x,y,z",
					Required: true,
				},
				levelFlag,
			},
			Action: extract,
		},
		{
			Name:      "preview",
			Usage:     "Render a top-down PNG of a schematic",
			ArgsUsage: "IN OUT.png",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "scale",
					Aliases: []string{"s"},
					Value:   1,
					Usage:   "pixels per node",
				},
			},
			Action: renderPreview,
		},
		{
			Name:        "scan",
			Usage:       "Scan filesystem and update the index",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action:      scan,
		},
		{
			Name:      "find",
			Usage:     "List indexed schematics that use a node",
			ArgsUsage: "NODE",
			Flags:     []cli.Flag{csvFlag},
			Action:    find,
		},
		{
			Name:   "list",
			Usage:  "List every indexed schematic",
			Flags:  []cli.Flag{csvFlag},
			Action: list,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
