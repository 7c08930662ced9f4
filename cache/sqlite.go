package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/fulldump/lazytable/record"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS rows (
	id INTEGER PRIMARY KEY,
	seq INTEGER NOT NULL,
	value BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS rows_seq ON rows(seq)`

// SQLite is a Store backed by a single sqlite table named rows, primary key
// id, with the record kept as an opaque JSON blob.
type SQLite struct {
	db       *sql.DB
	filename string
}

func OpenSQLite(filename string) (*SQLite, error) {

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, storeError("open", fmt.Errorf("failed to open database: %w", err))
	}

	// one writer at a time, avoids SQLITE_BUSY between Put and GetRange
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storeError("open", fmt.Errorf("failed to ping database: %w", err))
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storeError("open", fmt.Errorf("failed to create schema: %w", err))
	}

	return &SQLite{db: db, filename: filename}, nil
}

func (s *SQLite) Put(rows []record.Record) error {

	tx, err := s.db.Begin()
	if err != nil {
		return storeError("put", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO rows (id, seq, value)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM rows), ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return storeError("put", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			return storeError("put", fmt.Errorf("json encode payload: %w", err))
		}
		if _, err := stmt.Exec(r.ID, payload); err != nil {
			return storeError("put", fmt.Errorf("failed to put row %d: %w", r.ID, err))
		}
	}

	return storeError("put", tx.Commit())
}

// scan yields every value in insertion order until f returns false.
func (s *SQLite) scan(f func(payload []byte) (bool, error)) error {

	rows, err := s.db.Query(`SELECT value FROM rows ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		next, err := f(payload)
		if err != nil {
			return err
		}
		if !next {
			return nil
		}
	}

	return rows.Err()
}

func (s *SQLite) GetRange(start, limit int) ([]record.Record, error) {

	if start < 0 || limit <= 0 {
		return nil, storeError("get range", fmt.Errorf("bad range start=%d limit=%d", start, limit))
	}

	result := []record.Record{}
	i := 0
	err := s.scan(func(payload []byte) (bool, error) {
		defer func() { i++ }()
		if i < start {
			return true, nil
		}
		r := record.Record{}
		if err := json.Unmarshal(payload, &r); err != nil {
			return false, err
		}
		result = append(result, r)
		return len(result) < limit, nil
	})
	if err != nil {
		return nil, storeError("get range", err)
	}

	return result, nil
}

func (s *SQLite) Find(filter map[string]any, skip, limit int) ([]record.Record, error) {
	return findPayloads(filter, skip, limit, s.scan)
}

func (s *SQLite) Len() (int, error) {
	n := 0
	err := s.db.QueryRow(`SELECT COUNT(*) FROM rows`).Scan(&n)
	return n, storeError("len", err)
}

func (s *SQLite) Clear() error {
	_, err := s.db.Exec(`DELETE FROM rows`)
	return storeError("clear", err)
}

func (s *SQLite) Close() error {
	return storeError("close", s.db.Close())
}

// Drop closes the database and removes its file.
func (s *SQLite) Drop() error {
	err := s.Close()
	if err != nil {
		return err
	}
	return storeError("drop", os.Remove(s.filename))
}
