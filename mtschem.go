/*
Package mtschem is a library for maintaining collections of Minetest MTS
schematic files.

It can compact schematics in place, cut regions out of them, and keep a
searchable sqlite index of which nodes every schematic in a directory tree
uses, along with a small top-down preview of each one.
*/
package mtschem

import (
	"log"

	"github.com/bodgit/mtschem/schematic"
)

const defaultWorkers = 10

// Library ties together the index database and the settings used when
// reading and writing schematics.
type Library struct {
	db     *IndexDB
	logger *log.Logger

	// Workers is the number of files decoded concurrently by Scan.
	Workers int
	// Packing selects how the probability and force flag are stored.
	Packing schematic.Packing
}

// New returns a Library using db, which may be nil if nothing will be
// indexed, and logging to logger.
func New(db *IndexDB, logger *log.Logger) *Library {
	return &Library{
		db:      db,
		logger:  logger,
		Workers: defaultWorkers,
	}
}

func (l *Library) decoder(file string) *schematic.Decoder {
	return &schematic.Decoder{
		Packing: l.Packing,
		Warn: func(err error) {
			l.logger.Printf("%s: %v\n", file, err)
		},
	}
}
