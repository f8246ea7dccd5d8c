package mtschem

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one indexed schematic.
type Entry struct {
	Path    string `csv:"path"`
	SHA1    string `csv:"sha1"`
	Version uint16 `csv:"version"`
	SizeX   int    `csv:"size_x"`
	SizeY   int    `csv:"size_y"`
	SizeZ   int    `csv:"size_z"`
	Nodes   int    `csv:"nodes"`
}

// IndexDB records which nodes are used by which schematic files.
type IndexDB struct {
	db *sql.DB
}

// NewIndexDB opens or creates the index database in file.
func NewIndexDB(file string) (*IndexDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS schematic (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, sha1 TEXT NOT NULL, version INTEGER NOT NULL, size_x INTEGER NOT NULL, size_y INTEGER NOT NULL, size_z INTEGER NOT NULL, nodes INTEGER NOT NULL, preview BLOB)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS node (schematic_id INTEGER NOT NULL, name TEXT NOT NULL, count INTEGER NOT NULL, PRIMARY KEY(schematic_id, name), FOREIGN KEY(schematic_id) REFERENCES schematic(id) ON DELETE CASCADE)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS node_name ON node (name)"); err != nil {
		db.Close()
		return nil, err
	}

	return &IndexDB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *IndexDB) Close() error {
	return db.db.Close()
}

// add inserts or replaces the row for e.Path along with its node counts.
func (db *IndexDB) add(e Entry, counts map[string]int, preview []byte) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec("INSERT INTO schematic (path, sha1, version, size_x, size_y, size_z, nodes, preview) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(path) DO UPDATE SET sha1 = excluded.sha1, version = excluded.version, size_x = excluded.size_x, size_y = excluded.size_y, size_z = excluded.size_z, nodes = excluded.nodes, preview = excluded.preview", e.Path, e.SHA1, e.Version, e.SizeX, e.SizeY, e.SizeZ, e.Nodes, preview); err != nil {
		return err
	}

	// LastInsertId isn't reliable after an update
	var id int64
	if err = tx.QueryRow("SELECT id FROM schematic WHERE path = ?", e.Path).Scan(&id); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM node WHERE schematic_id = ?", id); err != nil {
		return err
	}

	for name, count := range counts {
		if _, err = tx.Exec("INSERT INTO node (schematic_id, name, count) VALUES (?, ?, ?)", id, name, count); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// remove drops path from the index, it is not an error if it isn't there.
func (db *IndexDB) remove(path string) error {
	_, err := db.db.Exec("DELETE FROM schematic WHERE path = ?", path)
	return err
}

func (db *IndexDB) query(query string, args ...interface{}) ([]Entry, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.SHA1, &e.Version, &e.SizeX, &e.SizeY, &e.SizeZ, &e.Nodes); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// List returns every indexed schematic ordered by path.
func (db *IndexDB) List() ([]Entry, error) {
	return db.query("SELECT path, sha1, version, size_x, size_y, size_z, nodes FROM schematic ORDER BY path")
}

// FindByNode returns the schematics that place at least one node called
// name, ordered by path.
func (db *IndexDB) FindByNode(name string) ([]Entry, error) {
	return db.query("SELECT s.path, s.sha1, s.version, s.size_x, s.size_y, s.size_z, s.nodes FROM node AS n JOIN schematic AS s ON n.schematic_id = s.id WHERE n.name = ? AND n.count > 0 ORDER BY s.path", name)
}

// Counts returns how many times each node name appears in path.
func (db *IndexDB) Counts(path string) (map[string]int, error) {
	rows, err := db.db.Query("SELECT n.name, n.count FROM node AS n JOIN schematic AS s ON n.schematic_id = s.id WHERE s.path = ?", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[name] = count
	}

	return counts, rows.Err()
}

// Preview returns the PNG preview stored for path, or nil if there isn't
// one.
func (db *IndexDB) Preview(path string) ([]byte, error) {
	var preview []byte
	switch err := db.db.QueryRow("SELECT preview FROM schematic WHERE path = ?", path).Scan(&preview); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return preview, nil
	default:
		return nil, err
	}
}
