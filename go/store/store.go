package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/rmmh/cubeoccluder/go/occlusion"
)

const schema = `
CREATE TABLE IF NOT EXISTS cull (
	world TEXT NOT NULL,
	cx INTEGER NOT NULL,
	sy INTEGER NOT NULL,
	cz INTEGER NOT NULL,
	built INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (world, cx, sy, cz)
);
CREATE INDEX IF NOT EXISTS cull_region ON cull (world, cx >> 5, cz >> 5);
`

// Key names one section of one world.
type Key struct {
	World      string
	Cx, Sy, Cz int
}

type Entry struct {
	Key
	Built time.Time
	Data  occlusion.CullData
}

// Store keeps compiled cull data in a sqlite database.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "creating schema in %s", path)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const putQuery = "INSERT OR REPLACE INTO cull (world, cx, sy, cz, built, data) VALUES (?, ?, ?, ?, ?, ?)"

func (s *Store) Put(ctx context.Context, key Key, cd occlusion.CullData) error {
	return s.PutAll(ctx, []Entry{{Key: key, Built: time.Now(), Data: cd}})
}

// PutAll writes every entry in one transaction.
func (s *Store) PutAll(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, putQuery)
	if err != nil {
		return errors.Wrap(err, "preparing insert")
	}
	defer stmt.Close()

	for _, e := range entries {
		blob, err := Encode(e.Data)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.World, e.Cx, e.Sy, e.Cz, e.Built.Unix(), blob); err != nil {
			return errors.Wrapf(err, "storing %v", e.Key)
		}
	}
	return errors.Wrap(tx.Commit(), "committing cull data")
}

// Get returns the cull data for key, and false if none is stored.
func (s *Store) Get(ctx context.Context, key Key) (occlusion.CullData, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM cull WHERE world=? AND cx=? AND sy=? AND cz=?",
		key.World, key.Cx, key.Sy, key.Cz).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "loading %v", key)
	}
	cd, err := Decode(blob)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decoding %v", key)
	}
	return cd, true, nil
}

// Region returns every stored section of region (rx, rz), ordered by cz, cx, sy.
func (s *Store) Region(ctx context.Context, world string, rx, rz int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT cx, sy, cz, built, data FROM cull WHERE world=? AND cx >> 5 = ? AND cz >> 5 = ? ORDER BY cz, cx, sy",
		world, rx, rz)
	if err != nil {
		return nil, errors.Wrapf(err, "querying region %d,%d", rx, rz)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{Key: Key{World: world}}
		var built int64
		var blob []byte
		if err := rows.Scan(&e.Cx, &e.Sy, &e.Cz, &built, &blob); err != nil {
			return nil, errors.Wrap(err, "scanning cull row")
		}
		e.Built = time.Unix(built, 0)
		if e.Data, err = Decode(blob); err != nil {
			return nil, errors.Wrapf(err, "decoding %v", e.Key)
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "reading cull rows")
}

// Count returns the number of stored sections of a world.
func (s *Store) Count(ctx context.Context, world string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cull WHERE world=?", world).Scan(&n)
	return n, errors.Wrap(err, "counting sections")
}
